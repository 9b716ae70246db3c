// internal/services/testhelpers_test.go
package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vistaprohq/vistapro-backend/internal/config"
	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

func testPagination() utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}
}

var testDBCounter int64

// newTestDB opens an isolated in-memory database. The shared cache keeps the
// schema visible across the pooled connections gorm opens for transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:servicetest%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.StockPickup{},
		&models.PickupAllowance{},
		&models.ViolationRecord{},
		&models.ViolationLog{},
		&models.VerificationSubmission{},
		&models.VerificationAuditLog{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Target{},
		&models.AuditLog{},
		&models.Notification{},
	))
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT:         config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1},
		Payment:     config.PaymentConfig{Currency: "ngn", MinimumPayout: 1000},
		Stock: config.StockConfig{
			PickupDeadlineHours:  48,
			RequestCooldownHours: 24,
			DefaultAllowance:     1,
			ElevatedAllowance:    3,
			BlockThreshold:       4,
			SaleCommission:       10000,
		},
		Verification: config.VerificationConfig{StuckThresholdHours: 24},
	}
}

// newStockStack wires the service graph the way the router does, minus the
// optional infrastructure.
func newStockStack(db *gorm.DB, cfg *config.Config) (*StockService, *ViolationService, *WalletService) {
	notifications := NewNotificationService(db)
	violations := NewViolationService(db, cfg, nil, nil, notifications)
	wallets := NewWalletService(db, cfg, nil, nil)
	stock := NewStockService(db, cfg, violations, wallets, notifications, nil, nil)
	return stock, violations, wallets
}

func createTestUser(t *testing.T, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()

	id := uuid.New()
	user := &models.User{
		UniqueID:  fmt.Sprintf("T%s", id.String()[:8]),
		FirstName: "Test",
		LastName:  string(role),
		Email:     fmt.Sprintf("%s@test.local", id),
		Role:      role,
		Status:    models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, dealerID uuid.UUID, quantity int) *models.Product {
	t.Helper()

	product := &models.Product{
		DealerID:          dealerID,
		DeviceName:        "Galaxy",
		DeviceModel:       "A15",
		DeviceType:        "android",
		CostPrice:         90000,
		SellingPrice:      120000,
		QuantityAvailable: quantity,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}
