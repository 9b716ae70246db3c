// internal/services/wallet_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/payout"
	"gorm.io/gorm"

	"github.com/vistaprohq/vistapro-backend/internal/config"
	"github.com/vistaprohq/vistapro-backend/internal/database"
	"github.com/vistaprohq/vistapro-backend/internal/events"
	"github.com/vistaprohq/vistapro-backend/internal/metrics"
	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type WalletService struct {
	db        *gorm.DB
	config    *config.Config
	metrics   *metrics.Metrics
	publisher *events.Publisher
}

func NewWalletService(db *gorm.DB, cfg *config.Config, m *metrics.Metrics, publisher *events.Publisher) *WalletService {
	if cfg.Payment.StripeSecretKey != "" {
		stripe.Key = cfg.Payment.StripeSecretKey
	}
	return &WalletService{db: db, config: cfg, metrics: m, publisher: publisher}
}

// CreditCommission adds a commission to the user's wallet on the given
// handle, creating the wallet on first use. Callers pass their open
// transaction so the credit commits with the sale.
func (s *WalletService) CreditCommission(tx *gorm.DB, userID uuid.UUID, amount float64, reference string) error {
	wallet := &models.Wallet{}
	if err := tx.Where(models.Wallet{UserID: userID}).FirstOrCreate(wallet).Error; err != nil {
		return fmt.Errorf("failed to load wallet: %w", err)
	}

	result := tx.Model(&models.Wallet{}).
		Where("id = ?", wallet.ID).
		UpdateColumn("available_balance", gorm.Expr("available_balance + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to credit wallet: %w", result.Error)
	}

	now := time.Now()
	transaction := &models.WalletTransaction{
		WalletID:    wallet.ID,
		Type:        models.WalletTransactionCommission,
		Amount:      amount,
		Reference:   reference,
		ProcessedAt: &now,
	}
	if err := tx.Create(transaction).Error; err != nil {
		return fmt.Errorf("failed to record commission transaction: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordCommission(amount)
	}
	return nil
}

func (s *WalletService) GetWallet(userID uuid.UUID) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	if err := s.db.Where(models.Wallet{UserID: userID}).FirstOrCreate(wallet).Error; err != nil {
		return nil, err
	}
	return wallet, nil
}

// Withdraw debits the wallet and pushes the funds out through Stripe. The
// balance check and debit are one guarded update so concurrent withdrawals
// cannot overdraw.
func (s *WalletService) Withdraw(userID uuid.UUID, amount float64) (*models.WalletTransaction, error) {
	if amount < s.config.Payment.MinimumPayout {
		return nil, ErrBelowMinimumPayout
	}

	wallet, err := s.GetWallet(userID)
	if err != nil {
		return nil, err
	}

	var transaction *models.WalletTransaction
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		result := tx.Model(&models.Wallet{}).
			Where("id = ? AND available_balance >= ?", wallet.ID, amount).
			UpdateColumn("available_balance", gorm.Expr("available_balance - ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		paymentReference := ""
		if stripe.Key != "" {
			p, err := payout.New(&stripe.PayoutParams{
				Amount:   stripe.Int64(int64(amount * 100)),
				Currency: stripe.String(s.config.Payment.Currency),
			})
			if err != nil {
				return fmt.Errorf("payout failed: %w", err)
			}
			paymentReference = p.ID
		}

		now := time.Now()
		transaction = &models.WalletTransaction{
			WalletID:         wallet.ID,
			Type:             models.WalletTransactionWithdrawal,
			Amount:           amount,
			PaymentReference: paymentReference,
			ProcessedAt:      &now,
		}
		return tx.Create(transaction).Error
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordWithdrawal(amount)
	}
	s.publisher.Publish(context.Background(), events.EventWithdrawalPaid, userID.String(), map[string]interface{}{
		"user_id": userID.String(),
		"amount":  amount,
	})

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount,
	}).Info("Wallet withdrawal processed")

	return transaction, nil
}

func (s *WalletService) ListTransactions(userID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	wallet, err := s.GetWallet(userID)
	if err != nil {
		return nil, err
	}

	query := s.db.Model(&models.WalletTransaction{}).Where("wallet_id = ?", wallet.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var transactions []models.WalletTransaction
	query = utils.ApplySort(query, params, []string{"created_at", "amount", "type"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(transactions, total, params)
	return &result, nil
}
