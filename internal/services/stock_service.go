// internal/services/stock_service.go
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

// StockService owns the pickup lifecycle: creation against dealer inventory,
// the deadline clock, and every status transition. Expiry is evaluated
// lazily on reads and writes plus an explicit sweep, so no background timer
// is required for correctness.
type StockService struct {
	db            *gorm.DB
	config        *config.Config
	violations    *ViolationService
	wallets       *WalletService
	notifications *NotificationService
	metrics       *metrics.Metrics
	publisher     *events.Publisher
}

func NewStockService(
	db *gorm.DB,
	cfg *config.Config,
	violations *ViolationService,
	wallets *WalletService,
	notifications *NotificationService,
	m *metrics.Metrics,
	publisher *events.Publisher,
) *StockService {
	return &StockService{
		db:            db,
		config:        cfg,
		violations:    violations,
		wallets:       wallets,
		notifications: notifications,
		metrics:       m,
		publisher:     publisher,
	}
}

type CreatePickupInput struct {
	DealerID  uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

// PickupView is a pickup plus its evaluated deadline countdown. The
// countdown is only meaningful while the pickup is pending.
type PickupView struct {
	models.StockPickup
	Countdown     utils.Countdown `json:"countdown"`
	CountdownText string          `json:"countdown_text,omitempty"`
}

func (s *StockService) toView(pickup models.StockPickup, now time.Time) PickupView {
	view := PickupView{StockPickup: pickup}
	if pickup.Status == models.PickupStatusPending {
		view.Countdown = utils.EvaluateDeadline(pickup.Deadline, now)
		view.CountdownText = utils.FormatCountdown(view.Countdown)
	}
	return view
}

// CreatePickup reserves stock from a dealer for a marketer. The quantity is
// taken from the product with a guarded decrement so concurrent pickups of
// the last units cannot both succeed.
func (s *StockService) CreatePickup(marketerID uuid.UUID, input CreatePickupInput) (*PickupView, error) {
	if input.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	blocked, err := s.violations.IsBlocked(nil, marketerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		s.recordError("account_blocked")
		return nil, ErrAccountBlocked
	}

	allowance, err := s.getOrCreateAllowance(s.db, marketerID)
	if err != nil {
		return nil, err
	}

	openCount, err := s.countOpenPickups(s.db, marketerID)
	if err != nil {
		return nil, err
	}
	if int(openCount) >= allowance.Allowance {
		// The over-allowance attempt itself is an infraction.
		if _, verr := s.violations.Record(nil, RecordViolationInput{
			UserID:                  marketerID,
			Type:                    models.ViolationTypeExcessivePickup,
			Message:                 fmt.Sprintf("Pickup attempted with %d active stock lines against an allowance of %d", openCount, allowance.Allowance),
			ActiveStockCount:        int(openCount),
			AttemptedPickupQuantity: input.Quantity,
		}); verr != nil {
			logrus.WithError(verr).WithField("marketer_id", marketerID).Error("Failed to record excessive pickup violation")
		}
		s.recordError("allowance_exceeded")
		return nil, ErrAllowanceExceeded
	}

	var dealer models.User
	if err := s.db.Where("id = ? AND role = ?", input.DealerID, models.UserRoleDealer).First(&dealer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrDealerNotFound
		}
		return nil, err
	}

	var product models.Product
	if err := s.db.Where("id = ? AND dealer_id = ?", input.ProductID, input.DealerID).First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	now := time.Now()
	pickup := &models.StockPickup{
		MarketerID: marketerID,
		DealerID:   input.DealerID,
		ProductID:  input.ProductID,
		Quantity:   input.Quantity,
		PickupDate: now,
		Deadline:   now.Add(time.Duration(s.config.Stock.PickupDeadlineHours) * time.Hour),
		Status:     models.PickupStatusPending,
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		result := tx.Model(&models.Product{}).
			Where("id = ? AND quantity_available >= ?", input.ProductID, input.Quantity).
			UpdateColumn("quantity_available", gorm.Expr("quantity_available - ?", input.Quantity))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInsufficientStock
		}
		return tx.Create(pickup).Error
	})
	if err != nil {
		if err == ErrInsufficientStock {
			s.recordError("insufficient_stock")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPickupCreated(input.DealerID.String())
	}
	s.publisher.Publish(context.Background(), events.EventPickupCreated, pickup.ID.String(), map[string]interface{}{
		"pickup_id":   pickup.ID.String(),
		"marketer_id": marketerID.String(),
		"dealer_id":   input.DealerID.String(),
		"quantity":    input.Quantity,
		"deadline":    pickup.Deadline,
	})
	s.notifications.Notify(nil, input.DealerID, "pickup_created", "Stock picked up",
		fmt.Sprintf("%d unit(s) of %s %s picked up by a marketer.", input.Quantity, product.DeviceName, product.DeviceModel),
		"stock_pickup", &pickup.ID)

	view := s.toView(*pickup, now)
	return &view, nil
}

// GetPickup returns a single pickup with its countdown. An overdue pending
// pickup is expired on the way out, so callers never observe a pending
// status past its deadline.
func (s *StockService) GetPickup(pickupID uuid.UUID) (*PickupView, error) {
	now := time.Now()
	if err := s.expireIfOverdue(pickupID, now); err != nil {
		return nil, err
	}

	var pickup models.StockPickup
	if err := s.db.Preload("Product").First(&pickup, "id = ?", pickupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPickupNotFound
		}
		return nil, err
	}

	view := s.toView(pickup, now)
	return &view, nil
}

// PickupFilter narrows ListPickups. Handlers set MarketerID or DealerID from
// the caller's own identity for non-admin roles.
type PickupFilter struct {
	MarketerID *uuid.UUID
	DealerID   *uuid.UUID
	Status     *models.PickupStatus
}

func (s *StockService) ListPickups(filter PickupFilter, params utils.PaginationParams) (*utils.PaginationResult, error) {
	now := time.Now()
	if err := s.expireOverdueMatching(filter, now); err != nil {
		return nil, err
	}

	query := s.db.Model(&models.StockPickup{})
	if filter.MarketerID != nil {
		query = query.Where("marketer_id = ?", *filter.MarketerID)
	}
	if filter.DealerID != nil {
		query = query.Where("dealer_id = ?", *filter.DealerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var pickups []models.StockPickup
	query = query.Preload("Product")
	query = utils.ApplySort(query, params, []string{"created_at", "deadline", "status", "pickup_date"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&pickups).Error; err != nil {
		return nil, err
	}

	views := make([]PickupView, 0, len(pickups))
	for _, p := range pickups {
		views = append(views, s.toView(p, now))
	}

	result := utils.CreatePaginationResult(views, total, params)
	return &result, nil
}

// ConfirmSale moves a pending pickup to sold and credits the marketer's
// sale commission in the same transaction.
func (s *StockService) ConfirmSale(pickupID, marketerID uuid.UUID) (*models.StockPickup, error) {
	var pickup models.StockPickup
	now := time.Now()

	if err := s.expireIfOverdue(pickupID, now); err != nil {
		return nil, err
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.loadOwnedPickup(tx, pickupID, marketerID, &pickup); err != nil {
			return err
		}
		if err := s.transition(tx, &pickup, models.PickupStatusSold, map[string]interface{}{
			"sold_at": now,
		}); err != nil {
			return err
		}

		commission := s.config.Stock.SaleCommission * float64(pickup.Quantity)
		return s.wallets.CreditCommission(tx, marketerID, commission, fmt.Sprintf("sale:%s", pickup.ID))
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPickupResolved(string(models.PickupStatusSold))
	}
	s.publisher.Publish(context.Background(), events.EventPickupSold, pickup.ID.String(), map[string]interface{}{
		"pickup_id":   pickup.ID.String(),
		"marketer_id": marketerID.String(),
		"quantity":    pickup.Quantity,
	})
	s.notifications.Notify(nil, pickup.DealerID, "pickup_sold", "Stock sold",
		fmt.Sprintf("A pickup of %d unit(s) was confirmed sold.", pickup.Quantity), "stock_pickup", &pickup.ID)

	return &pickup, nil
}

// RequestReturn moves a pending pickup into return_pending, awaiting the
// dealer's confirmation that the stock came back.
func (s *StockService) RequestReturn(pickupID, marketerID uuid.UUID) (*models.StockPickup, error) {
	var pickup models.StockPickup
	now := time.Now()

	if err := s.expireIfOverdue(pickupID, now); err != nil {
		return nil, err
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.loadOwnedPickup(tx, pickupID, marketerID, &pickup); err != nil {
			return err
		}
		return s.transition(tx, &pickup, models.PickupStatusReturnPending, map[string]interface{}{
			"return_requested_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(nil, pickup.DealerID, "return_requested", "Return requested",
		fmt.Sprintf("A marketer requested to return %d unit(s).", pickup.Quantity), "stock_pickup", &pickup.ID)
	return &pickup, nil
}

// ConfirmReturn completes a return and restores the quantity to the dealer's
// inventory. Only the pickup's dealer or an admin role may confirm.
func (s *StockService) ConfirmReturn(pickupID, actorID uuid.UUID, actorRole models.UserRole) (*models.StockPickup, error) {
	var pickup models.StockPickup
	now := time.Now()

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.First(&pickup, "id = ?", pickupID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrPickupNotFound
			}
			return err
		}
		if actorRole == models.UserRoleDealer && pickup.DealerID != actorID {
			return ErrNotPickupOwner
		}

		if err := s.transition(tx, &pickup, models.PickupStatusReturned, map[string]interface{}{
			"returned_at": now,
		}); err != nil {
			return err
		}

		return tx.Model(&models.Product{}).
			Where("id = ?", pickup.ProductID).
			UpdateColumn("quantity_available", gorm.Expr("quantity_available + ?", pickup.Quantity)).Error
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPickupResolved(string(models.PickupStatusReturned))
	}
	s.publisher.Publish(context.Background(), events.EventPickupReturned, pickup.ID.String(), map[string]interface{}{
		"pickup_id":   pickup.ID.String(),
		"marketer_id": pickup.MarketerID.String(),
		"quantity":    pickup.Quantity,
	})
	s.notifications.Notify(nil, pickup.MarketerID, "return_confirmed", "Return confirmed",
		fmt.Sprintf("Your return of %d unit(s) was confirmed.", pickup.Quantity), "stock_pickup", &pickup.ID)

	return &pickup, nil
}

// RequestTransfer asks to hand a pending pickup to another marketer. The
// target must be an active, unblocked marketer other than the requester.
func (s *StockService) RequestTransfer(pickupID, marketerID, targetID uuid.UUID) (*models.StockPickup, error) {
	if targetID == marketerID {
		return nil, ErrTransferToSelf
	}
	if err := s.validateTransferTarget(targetID); err != nil {
		return nil, err
	}

	var pickup models.StockPickup
	now := time.Now()

	if err := s.expireIfOverdue(pickupID, now); err != nil {
		return nil, err
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.loadOwnedPickup(tx, pickupID, marketerID, &pickup); err != nil {
			return err
		}
		return s.transition(tx, &pickup, models.PickupStatusTransferPending, map[string]interface{}{
			"transfer_target_id":    targetID,
			"transfer_requested_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(nil, targetID, "transfer_requested", "Stock transfer requested",
		fmt.Sprintf("A marketer wants to transfer %d unit(s) of stock to you, pending approval.", pickup.Quantity),
		"stock_pickup", &pickup.ID)
	return &pickup, nil
}

// ResolveTransfer approves or rejects a pending transfer. The resolver is
// either an admin role or the transfer target. Approval closes the original
// line as transferred and opens a fresh pending line, with a fresh deadline,
// for the target marketer. Rejection restores the original line to pending
// with its original deadline.
func (s *StockService) ResolveTransfer(pickupID, resolverID uuid.UUID, resolverRole models.UserRole, approve bool) (*models.StockPickup, error) {
	var pickup models.StockPickup
	var successor *models.StockPickup
	now := time.Now()

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.First(&pickup, "id = ?", pickupID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrPickupNotFound
			}
			return err
		}
		if pickup.Status != models.PickupStatusTransferPending || pickup.TransferTargetID == nil {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, pickup.Status, models.PickupStatusTransferred)
		}
		if resolverRole == models.UserRoleMarketer && *pickup.TransferTargetID != resolverID {
			return ErrNotTransferTarget
		}

		if !approve {
			return s.transition(tx, &pickup, models.PickupStatusPending, map[string]interface{}{
				"transfer_target_id":    nil,
				"transfer_requested_at": nil,
			})
		}

		targetID := *pickup.TransferTargetID
		blocked, err := s.violations.IsBlocked(tx, targetID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrTransferTargetBlocked
		}

		if err := s.transition(tx, &pickup, models.PickupStatusTransferred, map[string]interface{}{
			"transferred_at": now,
		}); err != nil {
			return err
		}

		successor = &models.StockPickup{
			MarketerID: targetID,
			DealerID:   pickup.DealerID,
			ProductID:  pickup.ProductID,
			Quantity:   pickup.Quantity,
			PickupDate: now,
			Deadline:   now.Add(time.Duration(s.config.Stock.PickupDeadlineHours) * time.Hour),
			Status:     models.PickupStatusPending,
		}
		return tx.Create(successor).Error
	})
	if err != nil {
		return nil, err
	}

	if approve {
		if s.metrics != nil {
			s.metrics.RecordPickupResolved(string(models.PickupStatusTransferred))
		}
		s.publisher.Publish(context.Background(), events.EventPickupTransferred, pickup.ID.String(), map[string]interface{}{
			"pickup_id":    pickup.ID.String(),
			"successor_id": successor.ID.String(),
			"from":         pickup.MarketerID.String(),
			"to":           successor.MarketerID.String(),
		})
		s.notifications.Notify(nil, successor.MarketerID, "transfer_approved", "Stock transfer approved",
			fmt.Sprintf("%d unit(s) of stock transferred to you. A fresh deadline applies.", pickup.Quantity),
			"stock_pickup", &successor.ID)
		s.notifications.Notify(nil, pickup.MarketerID, "transfer_approved", "Stock transfer approved",
			"Your stock transfer request was approved.", "stock_pickup", &pickup.ID)
	} else {
		s.notifications.Notify(nil, pickup.MarketerID, "transfer_rejected", "Stock transfer rejected",
			"Your stock transfer request was rejected. The pickup is back in your hands with its original deadline.",
			"stock_pickup", &pickup.ID)
	}

	return &pickup, nil
}

// RequestAdditionalPickup asks to raise the marketer's open-pickup allowance.
// Only one request can be in flight, an elevated allowance cannot be raised
// again, and a rejected request starts a cooldown before the next attempt.
func (s *StockService) RequestAdditionalPickup(marketerID uuid.UUID) (*models.PickupAllowance, error) {
	blocked, err := s.violations.IsBlocked(nil, marketerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrAccountBlocked
	}

	var allowance *models.PickupAllowance
	now := time.Now()

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		allowance, err = s.getOrCreateAllowance(tx, marketerID)
		if err != nil {
			return err
		}

		if allowance.RequestStatus != nil && *allowance.RequestStatus == models.AllowanceRequestPending {
			return ErrRequestAlreadyPending
		}
		if allowance.Allowance >= s.config.Stock.ElevatedAllowance {
			return ErrAllowanceAlreadyElevated
		}
		if allowance.NextRequestAllowedAt != nil && now.Before(*allowance.NextRequestAllowedAt) {
			return ErrCooldownActive
		}

		pending := models.AllowanceRequestPending
		allowance.RequestStatus = &pending
		allowance.RequestedAt = &now
		allowance.ResolvedAt = nil
		allowance.ResolvedBy = nil
		return tx.Save(allowance).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithField("marketer_id", marketerID).Info("Additional pickup allowance requested")
	return allowance, nil
}

// ResolveAdditionalPickup is the MasterAdmin decision on a pending allowance
// request. Approval raises the allowance to the elevated cap; rejection
// starts the request cooldown.
func (s *StockService) ResolveAdditionalPickup(marketerID, resolverID uuid.UUID, approve bool) (*models.PickupAllowance, error) {
	var allowance *models.PickupAllowance
	now := time.Now()

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		allowance, err = s.getOrCreateAllowance(tx, marketerID)
		if err != nil {
			return err
		}
		if allowance.RequestStatus == nil || *allowance.RequestStatus != models.AllowanceRequestPending {
			return ErrNoRequestPending
		}

		allowance.ResolvedAt = &now
		allowance.ResolvedBy = &resolverID
		if approve {
			// The request is consumed by approval; only the elevated
			// allowance and the audit fields remain.
			allowance.RequestStatus = nil
			allowance.Allowance = s.config.Stock.ElevatedAllowance
		} else {
			rejected := models.AllowanceRequestRejected
			allowance.RequestStatus = &rejected
			cooldownEnd := now.Add(time.Duration(s.config.Stock.RequestCooldownHours) * time.Hour)
			allowance.NextRequestAllowedAt = &cooldownEnd
		}
		return tx.Save(allowance).Error
	})
	if err != nil {
		return nil, err
	}

	if approve {
		s.notifications.Notify(nil, marketerID, "allowance_approved", "Additional pickup approved",
			fmt.Sprintf("You can now hold up to %d active stock lines.", allowance.Allowance),
			"pickup_allowance", &allowance.ID)
	} else {
		s.notifications.Notify(nil, marketerID, "allowance_rejected", "Additional pickup rejected",
			"Your request for an additional pickup was rejected.", "pickup_allowance", &allowance.ID)
	}

	return allowance, nil
}

func (s *StockService) GetAllowance(marketerID uuid.UUID) (*models.PickupAllowance, error) {
	return s.getOrCreateAllowance(s.db, marketerID)
}

// ListAllowanceRequests returns allowances with a pending elevation request.
func (s *StockService) ListAllowanceRequests(params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.PickupAllowance{}).
		Where("request_status = ?", models.AllowanceRequestPending)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var allowances []models.PickupAllowance
	query = utils.ApplySort(query, params, []string{"created_at", "requested_at"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&allowances).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(allowances, total, params)
	return &result, nil
}

// ExpireOverdue sweeps every pending pickup past its deadline. Safe to run
// concurrently with reads and with itself; the conditional update guarantees
// a single violation per pickup.
func (s *StockService) ExpireOverdue() (int, error) {
	now := time.Now()
	var overdue []models.StockPickup
	if err := s.db.Where("status = ? AND deadline <= ?", models.PickupStatusPending, now).
		Find(&overdue).Error; err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		pickup := overdue[i]
		err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
			did, err := s.expirePickupTx(tx, &pickup, now)
			if err == nil && did {
				expired++
			}
			return err
		})
		if err != nil {
			logrus.WithError(err).WithField("pickup_id", pickup.ID).Error("Failed to expire pickup")
		}
	}

	if expired > 0 {
		logrus.WithField("count", expired).Info("Expired overdue pickups")
	}
	return expired, nil
}

// expirePickupTx performs the one-time pending -> expired move. The
// conditional update is the idempotency guard: only the caller that flips
// the row records the violation, no matter how many race here.
func (s *StockService) expirePickupTx(tx *gorm.DB, pickup *models.StockPickup, now time.Time) (bool, error) {
	result := tx.Model(&models.StockPickup{}).
		Where("id = ? AND status = ? AND deadline <= ? AND expired_at IS NULL",
			pickup.ID, models.PickupStatusPending, now).
		Updates(map[string]interface{}{
			"status":     models.PickupStatusExpired,
			"expired_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	overdueBy := now.Sub(pickup.Deadline)
	if _, err := s.violations.Record(tx, RecordViolationInput{
		UserID:  pickup.MarketerID,
		Type:    models.ViolationTypeExpiredPickup,
		Message: fmt.Sprintf("Pickup of %d unit(s) expired %s past its deadline", pickup.Quantity, overdueBy.Round(time.Minute)),
		Metadata: models.JSONB{
			"pickup_id": pickup.ID.String(),
			"deadline":  pickup.Deadline,
		},
	}); err != nil {
		return false, err
	}

	if s.metrics != nil {
		s.metrics.RecordPickupExpired()
	}
	s.publisher.Publish(context.Background(), events.EventPickupExpired, pickup.ID.String(), map[string]interface{}{
		"pickup_id":   pickup.ID.String(),
		"marketer_id": pickup.MarketerID.String(),
		"deadline":    pickup.Deadline,
	})
	s.notifications.Notify(tx, pickup.MarketerID, "pickup_expired", "Pickup expired",
		"A stock pickup passed its deadline and has been expired. A violation was recorded.",
		"stock_pickup", &pickup.ID)

	return true, nil
}

// expireOverdueMatching expires overdue pending pickups within a list filter
// so listings never show stale pending rows.
func (s *StockService) expireOverdueMatching(filter PickupFilter, now time.Time) error {
	query := s.db.Where("status = ? AND deadline <= ?", models.PickupStatusPending, now)
	if filter.MarketerID != nil {
		query = query.Where("marketer_id = ?", *filter.MarketerID)
	}
	if filter.DealerID != nil {
		query = query.Where("dealer_id = ?", *filter.DealerID)
	}

	var overdue []models.StockPickup
	if err := query.Find(&overdue).Error; err != nil {
		return err
	}

	for i := range overdue {
		pickup := overdue[i]
		if err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
			_, err := s.expirePickupTx(tx, &pickup, now)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

// expireIfOverdue commits the expiry of an overdue pending pickup in its own
// transaction before an action runs. Done inside the action's transaction the
// expiry and its violation would roll back with the action's failure; the
// stored transition and its violation must survive regardless.
func (s *StockService) expireIfOverdue(pickupID uuid.UUID, now time.Time) error {
	var pickup models.StockPickup
	if err := s.db.First(&pickup, "id = ?", pickupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrPickupNotFound
		}
		return err
	}
	if pickup.Status != models.PickupStatusPending || pickup.Deadline.After(now) {
		return nil
	}
	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		_, err := s.expirePickupTx(tx, &pickup, now)
		return err
	})
}

// transition applies a guarded status move: the update only lands if the row
// still holds the status we loaded, so two racing writers cannot both win.
func (s *StockService) transition(tx *gorm.DB, pickup *models.StockPickup, to models.PickupStatus, updates map[string]interface{}) error {
	if err := checkPickupTransition(pickup.Status, to); err != nil {
		return err
	}

	updates["status"] = to
	result := tx.Model(&models.StockPickup{}).
		Where("id = ? AND status = ?", pickup.ID, pickup.Status).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}

	// Reload into a fresh struct: scanning into the populated one would keep
	// stale pointer fields when the update nulled their columns.
	var fresh models.StockPickup
	if err := tx.First(&fresh, "id = ?", pickup.ID).Error; err != nil {
		return err
	}
	*pickup = fresh

	if result.RowsAffected == 0 {
		// Lost the race; report against the current status.
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, pickup.Status, to)
	}
	return nil
}

func (s *StockService) loadOwnedPickup(tx *gorm.DB, pickupID, marketerID uuid.UUID, pickup *models.StockPickup) error {
	if err := tx.First(pickup, "id = ?", pickupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrPickupNotFound
		}
		return err
	}
	if pickup.MarketerID != marketerID {
		return ErrNotPickupOwner
	}
	return nil
}

func (s *StockService) getOrCreateAllowance(db *gorm.DB, marketerID uuid.UUID) (*models.PickupAllowance, error) {
	allowance := &models.PickupAllowance{}
	err := db.Where(models.PickupAllowance{MarketerID: marketerID}).
		Attrs(models.PickupAllowance{Allowance: s.config.Stock.DefaultAllowance}).
		FirstOrCreate(allowance).Error
	if err != nil {
		return nil, err
	}
	return allowance, nil
}

func (s *StockService) countOpenPickups(db *gorm.DB, marketerID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&models.StockPickup{}).
		Where("marketer_id = ? AND status IN ?", marketerID, []models.PickupStatus{
			models.PickupStatusPending,
			models.PickupStatusReturnPending,
			models.PickupStatusTransferPending,
		}).
		Count(&count).Error
	return count, err
}

// ResolveDealerRef accepts a dealer's UUID or human-readable unique id
// (for example "DLR000123") and returns the dealer's id.
func (s *StockService) ResolveDealerRef(ref string) (uuid.UUID, error) {
	return s.resolveUserRef(ref, models.UserRoleDealer, ErrDealerNotFound)
}

// ResolveMarketerRef accepts a marketer's UUID or unique id.
func (s *StockService) ResolveMarketerRef(ref string) (uuid.UUID, error) {
	return s.resolveUserRef(ref, models.UserRoleMarketer, ErrTransferTargetInvalid)
}

func (s *StockService) resolveUserRef(ref string, role models.UserRole, notFound error) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}

	var user models.User
	if err := s.db.Where("unique_id = ? AND role = ?", ref, role).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return uuid.Nil, notFound
		}
		return uuid.Nil, err
	}
	return user.ID, nil
}

func (s *StockService) validateTransferTarget(targetID uuid.UUID) error {
	var target models.User
	if err := s.db.First(&target, "id = ?", targetID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrTransferTargetInvalid
		}
		return err
	}
	if target.Role != models.UserRoleMarketer || target.Status != models.UserStatusActive {
		return ErrTransferTargetInvalid
	}

	blocked, err := s.violations.IsBlocked(nil, targetID)
	if err != nil {
		return err
	}
	if blocked {
		return ErrTransferTargetBlocked
	}
	return nil
}

func (s *StockService) recordError(errorType string) {
	if s.metrics != nil {
		s.metrics.RecordPickupError(errorType)
	}
}
