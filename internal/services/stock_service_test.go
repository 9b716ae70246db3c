// internal/services/stock_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/vistaprohq/vistapro-backend/internal/config"
	"github.com/vistaprohq/vistapro-backend/internal/models"
)

type StockServiceTestSuite struct {
	suite.Suite
	db         *gorm.DB
	cfg        *config.Config
	stock      *StockService
	violations *ViolationService
	wallets    *WalletService

	marketer *models.User
	dealer   *models.User
	product  *models.Product
}

func (suite *StockServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.cfg = newTestConfig()
	suite.stock, suite.violations, suite.wallets = newStockStack(suite.db, suite.cfg)

	suite.marketer = createTestUser(suite.T(), suite.db, models.UserRoleMarketer)
	suite.dealer = createTestUser(suite.T(), suite.db, models.UserRoleDealer)
	suite.product = createTestProduct(suite.T(), suite.db, suite.dealer.ID, 5)
}

func (suite *StockServiceTestSuite) pickupInput(quantity int) CreatePickupInput {
	return CreatePickupInput{
		DealerID:  suite.dealer.ID,
		ProductID: suite.product.ID,
		Quantity:  quantity,
	}
}

func (suite *StockServiceTestSuite) reloadProduct() *models.Product {
	var product models.Product
	suite.Require().NoError(suite.db.First(&product, "id = ?", suite.product.ID).Error)
	return &product
}

func (suite *StockServiceTestSuite) backdateDeadline(pickupID interface{}, hours int) {
	suite.Require().NoError(suite.db.Model(&models.StockPickup{}).
		Where("id = ?", pickupID).
		Update("deadline", time.Now().Add(-time.Duration(hours)*time.Hour)).Error)
}

func (suite *StockServiceTestSuite) violationLogs(violationType models.ViolationType) []models.ViolationLog {
	var logs []models.ViolationLog
	suite.Require().NoError(suite.db.Where("user_id = ? AND violation_type = ?", suite.marketer.ID, violationType).Find(&logs).Error)
	return logs
}

func (suite *StockServiceTestSuite) TestCreatePickupDecrementsStockAndSetsDeadline() {
	before := time.Now()
	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)

	suite.Equal(models.PickupStatusPending, pickup.Status)
	suite.Equal(4, suite.reloadProduct().QuantityAvailable)
	suite.WithinDuration(before.Add(48*time.Hour), pickup.Deadline, 5*time.Second)
	suite.False(pickup.Countdown.IsExpired)
	suite.NotEmpty(pickup.CountdownText)
}

func (suite *StockServiceTestSuite) TestCreatePickupRejectsInsufficientStock() {
	_, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(6))
	suite.ErrorIs(err, ErrInsufficientStock)
	suite.Equal(5, suite.reloadProduct().QuantityAvailable)
}

func (suite *StockServiceTestSuite) TestCreatePickupOverAllowanceRecordsViolation() {
	_, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)

	_, err = suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.ErrorIs(err, ErrAllowanceExceeded)

	logs := suite.violationLogs(models.ViolationTypeExcessivePickup)
	suite.Require().Len(logs, 1)
	suite.Equal(1, logs[0].ActiveStockCount)
	suite.Equal(1, logs[0].AttemptedPickupQuantity)

	// Stock must be untouched by the failed attempt.
	suite.Equal(4, suite.reloadProduct().QuantityAvailable)
}

func (suite *StockServiceTestSuite) TestConfirmSaleCreditsCommission() {
	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(2))
	suite.Require().NoError(err)

	sold, err := suite.stock.ConfirmSale(pickup.ID, suite.marketer.ID)
	suite.Require().NoError(err)
	suite.Equal(models.PickupStatusSold, sold.Status)
	suite.Require().NotNil(sold.SoldAt)

	wallet, err := suite.wallets.GetWallet(suite.marketer.ID)
	suite.Require().NoError(err)
	suite.Equal(20000.0, wallet.AvailableBalance)

	// Sold stock is gone from the dealer's shelf for good.
	suite.Equal(3, suite.reloadProduct().QuantityAvailable)
}

func (suite *StockServiceTestSuite) TestConfirmSaleByAnotherMarketerIsRejected() {
	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)

	other := createTestUser(suite.T(), suite.db, models.UserRoleMarketer)
	_, err = suite.stock.ConfirmSale(pickup.ID, other.ID)
	suite.ErrorIs(err, ErrNotPickupOwner)
}

func (suite *StockServiceTestSuite) TestReturnFlowRestoresStock() {
	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(2))
	suite.Require().NoError(err)
	suite.Equal(3, suite.reloadProduct().QuantityAvailable)

	requested, err := suite.stock.RequestReturn(pickup.ID, suite.marketer.ID)
	suite.Require().NoError(err)
	suite.Equal(models.PickupStatusReturnPending, requested.Status)
	suite.NotNil(requested.ReturnRequestedAt)

	returned, err := suite.stock.ConfirmReturn(pickup.ID, suite.dealer.ID, models.UserRoleDealer)
	suite.Require().NoError(err)
	suite.Equal(models.PickupStatusReturned, returned.Status)
	suite.NotNil(returned.ReturnedAt)
	suite.Equal(5, suite.reloadProduct().QuantityAvailable)
}

func (suite *StockServiceTestSuite) TestConfirmReturnRequiresReturnPending() {
	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)

	_, err = suite.stock.ConfirmReturn(pickup.ID, suite.dealer.ID, models.UserRoleDealer)
	suite.ErrorIs(err, ErrInvalidTransition)
}

func (suite *StockServiceTestSuite) TestTransferApprovedOpensSuccessorLine() {
	target := createTestUser(suite.T(), suite.db, models.UserRoleMarketer)

	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)

	requested, err := suite.stock.RequestTransfer(pickup.ID, suite.marketer.ID, target.ID)
	suite.Require().NoError(err)
	suite.Equal(models.PickupStatusTransferPending, requested.Status)

	resolved, err := suite.stock.ResolveTransfer(pickup.ID, target.ID, models.UserRoleMarketer, true)
	suite.Require().NoError(err)
	suite.Equal(models.PickupStatusTransferred, resolved.Status)
	suite.NotNil(resolved.TransferredAt)

	var successor models.StockPickup
	suite.Require().NoError(suite.db.
		Where("marketer_id = ? AND status = ?", target.ID, models.PickupStatusPending).
		First(&successor).Error)
	suite.Equal(pickup.Quantity, successor.Quantity)
	suite.True(successor.Deadline.After(pickup.Deadline), "the successor line gets a fresh deadline")
}

func (suite *StockServiceTestSuite) TestTransferRejectedRestoresPending() {
	target := createTestUser(suite.T(), suite.db, models.UserRoleMarketer)

	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)

	_, err = suite.stock.RequestTransfer(pickup.ID, suite.marketer.ID, target.ID)
	suite.Require().NoError(err)

	resolved, err := suite.stock.ResolveTransfer(pickup.ID, target.ID, models.UserRoleMarketer, false)
	suite.Require().NoError(err)
	suite.Equal(models.PickupStatusPending, resolved.Status)
	suite.Nil(resolved.TransferTargetID)
	suite.Nil(resolved.TransferRequestedAt)
	suite.True(resolved.Deadline.Equal(pickup.Deadline) || resolved.Deadline.Sub(pickup.Deadline) < time.Second,
		"a rejected transfer keeps the original deadline")
}

func (suite *StockServiceTestSuite) TestTransferResolvedOnlyByTargetOrAdmin() {
	target := createTestUser(suite.T(), suite.db, models.UserRoleMarketer)
	bystander := createTestUser(suite.T(), suite.db, models.UserRoleMarketer)
	master := createTestUser(suite.T(), suite.db, models.UserRoleMasterAdmin)

	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)
	_, err = suite.stock.RequestTransfer(pickup.ID, suite.marketer.ID, target.ID)
	suite.Require().NoError(err)

	// A marketer who is not the target cannot resolve.
	_, err = suite.stock.ResolveTransfer(pickup.ID, bystander.ID, models.UserRoleMarketer, true)
	suite.ErrorIs(err, ErrNotTransferTarget)

	// An admin role can.
	resolved, err := suite.stock.ResolveTransfer(pickup.ID, master.ID, models.UserRoleMasterAdmin, true)
	suite.Require().NoError(err)
	suite.Equal(models.PickupStatusTransferred, resolved.Status)
}

func (suite *StockServiceTestSuite) TestTransferToSelfIsRejected() {
	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)

	_, err = suite.stock.RequestTransfer(pickup.ID, suite.marketer.ID, suite.marketer.ID)
	suite.ErrorIs(err, ErrTransferToSelf)
}

func (suite *StockServiceTestSuite) TestExpireOverdueIsIdempotent() {
	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)
	suite.backdateDeadline(pickup.ID, 2)

	expired, err := suite.stock.ExpireOverdue()
	suite.Require().NoError(err)
	suite.Equal(1, expired)

	// A second sweep finds nothing and records nothing.
	expired, err = suite.stock.ExpireOverdue()
	suite.Require().NoError(err)
	suite.Equal(0, expired)

	logs := suite.violationLogs(models.ViolationTypeExpiredPickup)
	suite.Len(logs, 1)

	var stored models.StockPickup
	suite.Require().NoError(suite.db.First(&stored, "id = ?", pickup.ID).Error)
	suite.Equal(models.PickupStatusExpired, stored.Status)
	suite.NotNil(stored.ExpiredAt)
}

func (suite *StockServiceTestSuite) TestActingOnOverduePickupExpiresItFirst() {
	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)
	suite.backdateDeadline(pickup.ID, 1)

	_, err = suite.stock.ConfirmSale(pickup.ID, suite.marketer.ID)
	suite.ErrorIs(err, ErrInvalidTransition)

	var stored models.StockPickup
	suite.Require().NoError(suite.db.First(&stored, "id = ?", pickup.ID).Error)
	suite.Equal(models.PickupStatusExpired, stored.Status)
	suite.Len(suite.violationLogs(models.ViolationTypeExpiredPickup), 1)

	// No commission for a sale that never happened.
	wallet, err := suite.wallets.GetWallet(suite.marketer.ID)
	suite.Require().NoError(err)
	suite.Equal(0.0, wallet.AvailableBalance)
}

func (suite *StockServiceTestSuite) TestListPickupsExpiresStaleRows() {
	pickup, err := suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.Require().NoError(err)
	suite.backdateDeadline(pickup.ID, 3)

	result, err := suite.stock.ListPickups(PickupFilter{MarketerID: &suite.marketer.ID}, testPagination())
	suite.Require().NoError(err)

	views := result.Data.([]PickupView)
	suite.Require().Len(views, 1)
	suite.Equal(models.PickupStatusExpired, views[0].Status)
}

func (suite *StockServiceTestSuite) TestBlockedMarketerCannotPickup() {
	admin := createTestUser(suite.T(), suite.db, models.UserRoleMasterAdmin)

	for i := 0; i < suite.cfg.Stock.BlockThreshold; i++ {
		_, err := suite.violations.RecordManual(suite.marketer.ID, admin.ID, "repeated deadline abuse")
		suite.Require().NoError(err)
	}

	record, _, err := suite.violations.GetRecord(suite.marketer.ID)
	suite.Require().NoError(err)
	suite.True(record.IsBlocked)
	suite.Equal(suite.cfg.Stock.BlockThreshold, record.ViolationCount)
	suite.NotNil(record.BlockedAt)

	_, err = suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.ErrorIs(err, ErrAccountBlocked)

	// Unlock resets the count and restores pickup access.
	unlocked, err := suite.violations.Unlock(suite.marketer.ID, admin.ID, "second chance granted")
	suite.Require().NoError(err)
	suite.False(unlocked.IsBlocked)
	suite.Equal(0, unlocked.ViolationCount)

	_, err = suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.NoError(err)
}

func (suite *StockServiceTestSuite) TestAllowanceRequestLifecycle() {
	master := createTestUser(suite.T(), suite.db, models.UserRoleMasterAdmin)

	allowance, err := suite.stock.GetAllowance(suite.marketer.ID)
	suite.Require().NoError(err)
	suite.Equal(1, allowance.Allowance)

	allowance, err = suite.stock.RequestAdditionalPickup(suite.marketer.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(allowance.RequestStatus)
	suite.Equal(models.AllowanceRequestPending, *allowance.RequestStatus)

	_, err = suite.stock.RequestAdditionalPickup(suite.marketer.ID)
	suite.ErrorIs(err, ErrRequestAlreadyPending)

	allowance, err = suite.stock.ResolveAdditionalPickup(suite.marketer.ID, master.ID, true)
	suite.Require().NoError(err)
	suite.Equal(3, allowance.Allowance)
	suite.Nil(allowance.RequestStatus, "approval consumes the request")
	suite.NotNil(allowance.ResolvedAt)
	suite.NotNil(allowance.ResolvedBy)

	// Resolving again has no pending request to act on; the allowance holds.
	_, err = suite.stock.ResolveAdditionalPickup(suite.marketer.ID, master.ID, true)
	suite.ErrorIs(err, ErrNoRequestPending)
	allowance, err = suite.stock.GetAllowance(suite.marketer.ID)
	suite.Require().NoError(err)
	suite.Equal(3, allowance.Allowance)

	_, err = suite.stock.RequestAdditionalPickup(suite.marketer.ID)
	suite.ErrorIs(err, ErrAllowanceAlreadyElevated)
}

func (suite *StockServiceTestSuite) TestRejectedAllowanceRequestStartsCooldown() {
	master := createTestUser(suite.T(), suite.db, models.UserRoleMasterAdmin)

	_, err := suite.stock.RequestAdditionalPickup(suite.marketer.ID)
	suite.Require().NoError(err)

	allowance, err := suite.stock.ResolveAdditionalPickup(suite.marketer.ID, master.ID, false)
	suite.Require().NoError(err)
	suite.Equal(1, allowance.Allowance)
	suite.Require().NotNil(allowance.NextRequestAllowedAt)
	suite.WithinDuration(time.Now().Add(24*time.Hour), *allowance.NextRequestAllowedAt, 5*time.Second)

	_, err = suite.stock.RequestAdditionalPickup(suite.marketer.ID)
	suite.ErrorIs(err, ErrCooldownActive)
}

func (suite *StockServiceTestSuite) TestElevatedAllowancePermitsParallelLines() {
	master := createTestUser(suite.T(), suite.db, models.UserRoleMasterAdmin)

	_, err := suite.stock.RequestAdditionalPickup(suite.marketer.ID)
	suite.Require().NoError(err)
	_, err = suite.stock.ResolveAdditionalPickup(suite.marketer.ID, master.ID, true)
	suite.Require().NoError(err)

	for i := 0; i < 3; i++ {
		_, err = suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
		suite.Require().NoError(err)
	}

	_, err = suite.stock.CreatePickup(suite.marketer.ID, suite.pickupInput(1))
	suite.ErrorIs(err, ErrAllowanceExceeded)
}

func (suite *StockServiceTestSuite) TestUserRefsResolveByUniqueID() {
	dealerID, err := suite.stock.ResolveDealerRef(suite.dealer.UniqueID)
	suite.Require().NoError(err)
	suite.Equal(suite.dealer.ID, dealerID)

	// The raw UUID form still works.
	dealerID, err = suite.stock.ResolveDealerRef(suite.dealer.ID.String())
	suite.Require().NoError(err)
	suite.Equal(suite.dealer.ID, dealerID)

	_, err = suite.stock.ResolveDealerRef("DLR999999")
	suite.ErrorIs(err, ErrDealerNotFound)

	marketerID, err := suite.stock.ResolveMarketerRef(suite.marketer.UniqueID)
	suite.Require().NoError(err)
	suite.Equal(suite.marketer.ID, marketerID)

	// A dealer's unique id does not resolve as a marketer.
	_, err = suite.stock.ResolveMarketerRef(suite.dealer.UniqueID)
	suite.ErrorIs(err, ErrTransferTargetInvalid)
}

func TestStockServiceSuite(t *testing.T) {
	suite.Run(t, new(StockServiceTestSuite))
}
