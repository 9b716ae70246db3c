// internal/services/target_service.go
package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vistaprohq/vistapro-backend/internal/database"
	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type TargetService struct {
	db *gorm.DB
}

func NewTargetService(db *gorm.DB) *TargetService {
	return &TargetService{db: db}
}

type SetTargetInput struct {
	UserID      uuid.UUID
	TargetType  models.TargetType
	TargetValue float64
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// SetTarget activates a new target for the user, retiring any active target
// of the same type so only one counts at a time.
func (s *TargetService) SetTarget(input SetTargetInput, createdBy uuid.UUID) (*models.Target, error) {
	if !input.PeriodEnd.After(input.PeriodStart) {
		return nil, ErrInvalidPeriod
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("id = ?", input.UserID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrUserNotFound
	}

	target := &models.Target{
		UserID:      input.UserID,
		TargetType:  input.TargetType,
		TargetValue: input.TargetValue,
		PeriodStart: input.PeriodStart,
		PeriodEnd:   input.PeriodEnd,
		IsActive:    true,
		CreatedBy:   createdBy,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Target{}).
			Where("user_id = ? AND target_type = ? AND is_active = ?", input.UserID, input.TargetType, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(target).Error
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// TargetPerformance pairs a target with what the user achieved inside its
// period, measured from sold pickups.
type TargetPerformance struct {
	Target          models.Target `json:"target"`
	Achieved        float64       `json:"achieved"`
	ProgressPercent float64       `json:"progress_percent"`
}

// GetPerformance evaluates the user's active targets. Orders targets count
// sold pickups; sales targets sum quantity times the product selling price.
func (s *TargetService) GetPerformance(userID uuid.UUID) ([]TargetPerformance, error) {
	var targets []models.Target
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&targets).Error; err != nil {
		return nil, err
	}

	performances := make([]TargetPerformance, 0, len(targets))
	for _, target := range targets {
		var sold []models.StockPickup
		if err := s.db.Preload("Product").
			Where("marketer_id = ? AND status = ? AND sold_at >= ? AND sold_at < ?",
				userID, models.PickupStatusSold, target.PeriodStart, target.PeriodEnd).
			Find(&sold).Error; err != nil {
			return nil, err
		}

		var achieved float64
		switch target.TargetType {
		case models.TargetTypeOrders:
			achieved = float64(len(sold))
		case models.TargetTypeSales:
			for _, pickup := range sold {
				achieved += float64(pickup.Quantity) * pickup.Product.SellingPrice
			}
		}

		performance := TargetPerformance{Target: target, Achieved: achieved}
		if target.TargetValue > 0 {
			performance.ProgressPercent = achieved / target.TargetValue * 100
		}
		performances = append(performances, performance)
	}
	return performances, nil
}

func (s *TargetService) ListTargets(userID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Target{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var targets []models.Target
	query = utils.ApplySort(query, params, []string{"created_at", "period_start", "period_end"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&targets).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(targets, total, params)
	return &result, nil
}
