// internal/services/violation_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vistaprohq/vistapro-backend/internal/config"
	"github.com/vistaprohq/vistapro-backend/internal/database"
	"github.com/vistaprohq/vistapro-backend/internal/events"
	"github.com/vistaprohq/vistapro-backend/internal/metrics"
	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type ViolationService struct {
	db            *gorm.DB
	config        *config.Config
	metrics       *metrics.Metrics
	publisher     *events.Publisher
	notifications *NotificationService
}

func NewViolationService(db *gorm.DB, cfg *config.Config, m *metrics.Metrics, publisher *events.Publisher, notifications *NotificationService) *ViolationService {
	return &ViolationService{
		db:            db,
		config:        cfg,
		metrics:       m,
		publisher:     publisher,
		notifications: notifications,
	}
}

// RecordViolationInput describes one infraction to append to a user's record.
type RecordViolationInput struct {
	UserID                  uuid.UUID
	Type                    models.ViolationType
	Message                 string
	ActiveStockCount        int
	AttemptedPickupQuantity int
	PerformedBy             *uuid.UUID
	Metadata                models.JSONB
}

// Record appends a violation on the given handle, incrementing the user's
// count and blocking the account when the threshold is reached. Callers
// inside a transaction pass it so the violation commits with the expiry or
// rejection that caused it.
func (s *ViolationService) Record(db *gorm.DB, input RecordViolationInput) (*models.ViolationRecord, error) {
	if db == nil {
		db = s.db
	}

	record := &models.ViolationRecord{}
	if err := db.Where(models.ViolationRecord{UserID: input.UserID}).FirstOrCreate(record).Error; err != nil {
		return nil, fmt.Errorf("failed to load violation record: %w", err)
	}

	record.ViolationCount++
	crossedThreshold := !record.IsBlocked && record.ViolationCount >= s.config.Stock.BlockThreshold
	if crossedThreshold {
		now := time.Now()
		record.IsBlocked = true
		record.BlockedAt = &now
		record.BlockingReason = fmt.Sprintf("Violation threshold reached (%d violations)", record.ViolationCount)
	}

	if err := db.Save(record).Error; err != nil {
		return nil, fmt.Errorf("failed to update violation record: %w", err)
	}

	log := &models.ViolationLog{
		UserID:                  input.UserID,
		ViolationType:           input.Type,
		Message:                 input.Message,
		ActiveStockCount:        input.ActiveStockCount,
		AttemptedPickupQuantity: input.AttemptedPickupQuantity,
		PerformedBy:             input.PerformedBy,
		Metadata:                input.Metadata,
	}
	if err := db.Create(log).Error; err != nil {
		return nil, fmt.Errorf("failed to create violation log: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordViolation(string(input.Type))
		if crossedThreshold {
			s.metrics.AccountsBlockedTotal.Inc()
		}
	}

	s.publisher.Publish(context.Background(), events.EventViolationRecorded, input.UserID.String(), map[string]interface{}{
		"user_id":         input.UserID.String(),
		"violation_type":  string(input.Type),
		"violation_count": record.ViolationCount,
	})

	if crossedThreshold {
		s.publisher.Publish(context.Background(), events.EventAccountBlocked, input.UserID.String(), map[string]interface{}{
			"user_id":         input.UserID.String(),
			"violation_count": record.ViolationCount,
		})
		s.notifications.Notify(db, input.UserID, "account_blocked", "Account blocked",
			fmt.Sprintf("Your account has been blocked after %d violations. Contact a MasterAdmin to restore access.", record.ViolationCount),
			"violation_record", &record.ID)

		logrus.WithFields(logrus.Fields{
			"user_id":         input.UserID,
			"violation_count": record.ViolationCount,
		}).Warn("Account blocked at violation threshold")
	}

	return record, nil
}

// RecordManual appends a manual infraction entered by an administrator.
func (s *ViolationService) RecordManual(userID, performedBy uuid.UUID, reason string) (*models.ViolationRecord, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrUserNotFound
	}

	var record *models.ViolationRecord
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		record, err = s.Record(tx, RecordViolationInput{
			UserID:      userID,
			Type:        models.ViolationTypeManualInfraction,
			Message:     reason,
			PerformedBy: &performedBy,
		})
		return err
	})
	return record, err
}

// IsBlocked reports whether a user is currently blocked.
func (s *ViolationService) IsBlocked(db *gorm.DB, userID uuid.UUID) (bool, error) {
	if db == nil {
		db = s.db
	}

	var count int64
	err := db.Model(&models.ViolationRecord{}).
		Where("user_id = ? AND is_blocked = ?", userID, true).
		Count(&count).Error
	return count > 0, err
}

// Unlock clears a block and resets the violation count to zero. Only reaches
// blocked accounts; the reason is mandatory and kept in the log trail.
func (s *ViolationService) Unlock(userID, performedBy uuid.UUID, reason string) (*models.ViolationRecord, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	record := &models.ViolationRecord{}
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(record).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrViolationRecordNotFound
			}
			return err
		}
		if !record.IsBlocked {
			return ErrNotBlocked
		}

		previousCount := record.ViolationCount
		record.ViolationCount = 0
		record.IsBlocked = false
		record.BlockingReason = ""
		record.BlockedAt = nil
		if err := tx.Save(record).Error; err != nil {
			return err
		}

		log := &models.ViolationLog{
			UserID:        userID,
			ViolationType: models.ViolationTypeManualInfraction,
			Message:       reason,
			PerformedBy:   &performedBy,
			Metadata: models.JSONB{
				"action":         "unlock",
				"previous_count": previousCount,
			},
		}
		return tx.Create(log).Error
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AccountsUnlockedTotal.Inc()
	}
	s.publisher.Publish(context.Background(), events.EventAccountUnlocked, userID.String(), map[string]interface{}{
		"user_id":      userID.String(),
		"performed_by": performedBy.String(),
	})
	s.notifications.Notify(nil, userID, "account_unlocked", "Account unlocked",
		"Your account has been unlocked and your violation count reset.", "violation_record", &record.ID)

	logrus.WithFields(logrus.Fields{
		"user_id":      userID,
		"performed_by": performedBy,
	}).Info("Account unlocked")

	return record, nil
}

// GetRecord returns a user's violation record with its log trail, newest first.
func (s *ViolationService) GetRecord(userID uuid.UUID) (*models.ViolationRecord, []models.ViolationLog, error) {
	record := &models.ViolationRecord{}
	if err := s.db.Where(models.ViolationRecord{UserID: userID}).FirstOrCreate(record).Error; err != nil {
		return nil, nil, err
	}

	var logs []models.ViolationLog
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(100).
		Find(&logs).Error; err != nil {
		return nil, nil, err
	}
	return record, logs, nil
}

// ListBlocked returns every currently blocked account.
func (s *ViolationService) ListBlocked(params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.ViolationRecord{}).Where("is_blocked = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var records []models.ViolationRecord
	query = query.Preload("User")
	query = utils.ApplySort(query, params, []string{"created_at", "blocked_at", "violation_count"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(records, total, params)
	return &result, nil
}
