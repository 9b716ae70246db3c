// internal/services/verification_service.go
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

// VerificationService drives the four-stage KYC pipeline: marketer forms,
// Admin review, SuperAdmin validation, MasterAdmin approval. Every move is
// appended to the audit trail the timeline reconstructor reads back.
type VerificationService struct {
	db            *gorm.DB
	config        *config.Config
	metrics       *metrics.Metrics
	publisher     *events.Publisher
	notifications *NotificationService
}

func NewVerificationService(db *gorm.DB, cfg *config.Config, m *metrics.Metrics, publisher *events.Publisher, notifications *NotificationService) *VerificationService {
	return &VerificationService{
		db:            db,
		config:        cfg,
		metrics:       m,
		publisher:     publisher,
		notifications: notifications,
	}
}

// GetOrCreateSubmission returns the marketer's submission, creating the
// forms_incomplete row on first touch.
func (s *VerificationService) GetOrCreateSubmission(marketerID uuid.UUID) (*models.VerificationSubmission, error) {
	submission := &models.VerificationSubmission{}
	err := s.db.Where(models.VerificationSubmission{MarketerID: marketerID}).
		Attrs(models.VerificationSubmission{Status: models.SubmissionStatusFormsIncomplete}).
		FirstOrCreate(submission).Error
	if err != nil {
		return nil, err
	}
	return submission, nil
}

func (s *VerificationService) GetByID(submissionID uuid.UUID) (*models.VerificationSubmission, error) {
	submission := &models.VerificationSubmission{}
	if err := s.db.Preload("Marketer").First(submission, "id = ?", submissionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

// SubmitForm records completion of one of the three onboarding forms. When
// the last form lands the submission advances to admin review on its own.
func (s *VerificationService) SubmitForm(marketerID uuid.UUID, form models.FormType, documentURL string) (*models.VerificationSubmission, error) {
	switch form {
	case models.FormTypeBiodata, models.FormTypeGuarantor, models.FormTypeCommitment:
	default:
		return nil, ErrUnknownFormType
	}

	var submission *models.VerificationSubmission
	now := time.Now()
	advanced := false

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		submission = &models.VerificationSubmission{}
		err := tx.Where(models.VerificationSubmission{MarketerID: marketerID}).
			Attrs(models.VerificationSubmission{Status: models.SubmissionStatusFormsIncomplete}).
			FirstOrCreate(submission).Error
		if err != nil {
			return err
		}

		if submission.Status != models.SubmissionStatusFormsIncomplete {
			if submission.Status.Terminal() {
				return ErrSubmissionTerminal
			}
			return ErrFormsStageClosed
		}

		switch form {
		case models.FormTypeBiodata:
			submission.BiodataCompletedAt = &now
			if documentURL != "" {
				submission.BiodataDocumentURL = documentURL
			}
		case models.FormTypeGuarantor:
			submission.GuarantorCompletedAt = &now
			if documentURL != "" {
				submission.GuarantorDocumentURL = documentURL
			}
		case models.FormTypeCommitment:
			submission.CommitmentCompletedAt = &now
		}

		if err := tx.Save(submission).Error; err != nil {
			return err
		}

		if err := s.appendAudit(tx, submission.ID, "form_submitted", string(submission.Status), &marketerID, models.UserRoleMarketer, "", models.JSONB{
			"form": string(form),
		}); err != nil {
			return err
		}

		if submission.AllFormsComplete() {
			if err := s.transition(tx, submission, models.SubmissionStatusPendingAdminReview, map[string]interface{}{
				"forms_completed_at": now,
			}); err != nil {
				return err
			}
			advanced = true
			return s.appendAudit(tx, submission.ID, "forms_completed", string(models.SubmissionStatusPendingAdminReview), &marketerID, models.UserRoleMarketer, "", nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordVerificationTransition("form_submitted", string(form))
	}
	if advanced {
		if s.metrics != nil {
			s.metrics.RecordVerificationTransition("advanced", string(models.SubmissionStatusPendingAdminReview))
		}
		s.publisher.Publish(context.Background(), events.EventSubmissionAdvanced, submission.ID.String(), map[string]interface{}{
			"submission_id": submission.ID.String(),
			"marketer_id":   marketerID.String(),
			"status":        string(submission.Status),
		})
		s.notifications.Notify(nil, marketerID, "verification_advanced", "Forms complete",
			"All onboarding forms are in. Your submission is now awaiting Admin review.",
			"verification_submission", &submission.ID)
	}

	return submission, nil
}

// AdminReview is the first review gate. Approval forwards the submission to
// SuperAdmin validation; rejection ends the pipeline until a refill is
// allowed.
func (s *VerificationService) AdminReview(submissionID, adminID uuid.UUID, approve bool, notes string) (*models.VerificationSubmission, error) {
	return s.review(submissionID, adminID, models.UserRoleAdmin, approve, notes, reviewStage{
		expected: models.SubmissionStatusPendingAdminReview,
		next:     models.SubmissionStatusPendingSuperAdminReview,
		updates: func(now time.Time) map[string]interface{} {
			return map[string]interface{}{
				"admin_id":          adminID,
				"admin_reviewed_at": now,
				"admin_notes":       notes,
			}
		},
		action: "admin_reviewed",
	})
}

// SuperAdminReview is the second gate, forwarding to MasterAdmin approval.
func (s *VerificationService) SuperAdminReview(submissionID, superAdminID uuid.UUID, approve bool, notes string) (*models.VerificationSubmission, error) {
	return s.review(submissionID, superAdminID, models.UserRoleSuperAdmin, approve, notes, reviewStage{
		expected: models.SubmissionStatusPendingSuperAdminReview,
		next:     models.SubmissionStatusPendingMasterAdminReview,
		updates: func(now time.Time) map[string]interface{} {
			return map[string]interface{}{
				"super_admin_id":         superAdminID,
				"superadmin_reviewed_at": now,
				"superadmin_notes":       notes,
			}
		},
		action: "superadmin_reviewed",
	})
}

// MasterAdminApprove is the final gate. Approval marks the marketer verified.
func (s *VerificationService) MasterAdminApprove(submissionID, masterAdminID uuid.UUID, approve bool, notes string) (*models.VerificationSubmission, error) {
	submission, err := s.review(submissionID, masterAdminID, models.UserRoleMasterAdmin, approve, notes, reviewStage{
		expected: models.SubmissionStatusPendingMasterAdminReview,
		next:     models.SubmissionStatusApproved,
		updates: func(now time.Time) map[string]interface{} {
			return map[string]interface{}{
				"masteradmin_approved_at": now,
			}
		},
		action: "masteradmin_approved",
	})
	if err != nil {
		return nil, err
	}

	if approve {
		if err := s.db.Model(&models.User{}).
			Where("id = ?", submission.MarketerID).
			Update("is_verified", true).Error; err != nil {
			logrus.WithError(err).WithField("marketer_id", submission.MarketerID).Error("Failed to flag marketer as verified")
		}

		if s.metrics != nil {
			s.metrics.SubmissionsApprovedTotal.Inc()
		}
		s.publisher.Publish(context.Background(), events.EventSubmissionApproved, submission.ID.String(), map[string]interface{}{
			"submission_id": submission.ID.String(),
			"marketer_id":   submission.MarketerID.String(),
		})
		s.notifications.Notify(nil, submission.MarketerID, "verification_approved", "Verification approved",
			"Your verification is complete. Welcome aboard.", "verification_submission", &submission.ID)
	}

	return submission, nil
}

// AllowRefill reopens a rejected submission so the marketer can start the
// forms over. All stage fields are cleared; the audit trail keeps the
// history of the failed run.
func (s *VerificationService) AllowRefill(submissionID, performedBy uuid.UUID, performedByRole models.UserRole) (*models.VerificationSubmission, error) {
	var submission *models.VerificationSubmission

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		submission = &models.VerificationSubmission{}
		if err := tx.First(submission, "id = ?", submissionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrSubmissionNotFound
			}
			return err
		}
		if submission.Status != models.SubmissionStatusRejected {
			return ErrNotRejected
		}

		if err := s.transition(tx, submission, models.SubmissionStatusFormsIncomplete, map[string]interface{}{
			"admin_id":                nil,
			"super_admin_id":          nil,
			"biodata_completed_at":    nil,
			"guarantor_completed_at":  nil,
			"commitment_completed_at": nil,
			"biodata_document_url":    "",
			"guarantor_document_url":  "",
			"forms_completed_at":      nil,
			"admin_reviewed_at":       nil,
			"admin_notes":             "",
			"superadmin_reviewed_at":  nil,
			"superadmin_notes":        "",
			"masteradmin_approved_at": nil,
			"rejected_at":             nil,
			"rejected_by":             "",
			"rejection_reason":        "",
		}); err != nil {
			return err
		}

		return s.appendAudit(tx, submission.ID, "refill_allowed", string(models.SubmissionStatusFormsIncomplete), &performedBy, performedByRole, "", nil)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordVerificationTransition("refill_allowed", string(models.SubmissionStatusFormsIncomplete))
	}
	s.notifications.Notify(nil, submission.MarketerID, "verification_refill", "Verification reopened",
		"You may now refill your onboarding forms and resubmit.", "verification_submission", &submission.ID)

	return submission, nil
}

// ListSubmissions returns submissions, optionally narrowed to one status.
func (s *VerificationService) ListSubmissions(status *models.SubmissionStatus, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.VerificationSubmission{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var submissions []models.VerificationSubmission
	query = query.Preload("Marketer")
	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "forms_completed_at"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&submissions).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(submissions, total, params)
	return &result, nil
}

// AuditTrail returns the submission's events oldest first, the order the
// timeline reconstructor consumes them in.
func (s *VerificationService) AuditTrail(submissionID uuid.UUID) ([]models.VerificationAuditLog, error) {
	var logs []models.VerificationAuditLog
	err := s.db.Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

type reviewStage struct {
	expected models.SubmissionStatus
	next     models.SubmissionStatus
	updates  func(now time.Time) map[string]interface{}
	action   string
}

func (s *VerificationService) review(submissionID, reviewerID uuid.UUID, reviewerRole models.UserRole, approve bool, notes string, stage reviewStage) (*models.VerificationSubmission, error) {
	var submission *models.VerificationSubmission
	now := time.Now()

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		submission = &models.VerificationSubmission{}
		if err := tx.First(submission, "id = ?", submissionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrSubmissionNotFound
			}
			return err
		}

		if submission.Status != stage.expected {
			if submission.Status.Terminal() {
				return ErrSubmissionTerminal
			}
			return ErrNotInReviewableState
		}

		if !approve {
			return s.rejectTx(tx, submission, reviewerID, reviewerRole, notes, now)
		}

		if err := s.transition(tx, submission, stage.next, stage.updates(now)); err != nil {
			return err
		}
		return s.appendAudit(tx, submission.ID, stage.action, string(stage.next), &reviewerID, reviewerRole, notes, nil)
	})
	if err != nil {
		return nil, err
	}

	if approve {
		if s.metrics != nil {
			s.metrics.RecordVerificationTransition(stage.action, string(stage.next))
		}
		if !submission.Status.Terminal() {
			s.publisher.Publish(context.Background(), events.EventSubmissionAdvanced, submission.ID.String(), map[string]interface{}{
				"submission_id": submission.ID.String(),
				"marketer_id":   submission.MarketerID.String(),
				"status":        string(submission.Status),
			})
			s.notifications.Notify(nil, submission.MarketerID, "verification_advanced", "Verification advanced",
				fmt.Sprintf("Your submission moved forward to %s.", submission.Status),
				"verification_submission", &submission.ID)
		}
	} else {
		if s.metrics != nil {
			s.metrics.SubmissionsRejectedTotal.WithLabelValues(string(reviewerRole)).Inc()
		}
		s.publisher.Publish(context.Background(), events.EventSubmissionRejected, submission.ID.String(), map[string]interface{}{
			"submission_id": submission.ID.String(),
			"marketer_id":   submission.MarketerID.String(),
			"rejected_by":   string(reviewerRole),
		})
		s.notifications.Notify(nil, submission.MarketerID, "verification_rejected", "Verification rejected",
			"Your submission was rejected. An administrator can reopen it for refill.",
			"verification_submission", &submission.ID)
	}

	return submission, nil
}

func (s *VerificationService) rejectTx(tx *gorm.DB, submission *models.VerificationSubmission, reviewerID uuid.UUID, reviewerRole models.UserRole, reason string, now time.Time) error {
	if reason == "" {
		return ErrReasonRequired
	}

	if err := s.transition(tx, submission, models.SubmissionStatusRejected, map[string]interface{}{
		"rejected_at":      now,
		"rejected_by":      reviewerRole,
		"rejection_reason": reason,
	}); err != nil {
		return err
	}

	return s.appendAudit(tx, submission.ID, "rejected", string(models.SubmissionStatusRejected), &reviewerID, reviewerRole, reason, nil)
}

// transition applies a guarded workflow move: checked against the adjacency
// table, then written only if the row still holds the loaded status.
func (s *VerificationService) transition(tx *gorm.DB, submission *models.VerificationSubmission, to models.SubmissionStatus, updates map[string]interface{}) error {
	if !CanTransitionSubmission(submission.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, submission.Status, to)
	}

	updates["status"] = to
	result := tx.Model(&models.VerificationSubmission{}).
		Where("id = ? AND status = ?", submission.ID, submission.Status).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}

	// Reload into a fresh struct so fields nulled by the update do not
	// linger in the returned value.
	var fresh models.VerificationSubmission
	if err := tx.First(&fresh, "id = ?", submission.ID).Error; err != nil {
		return err
	}
	*submission = fresh

	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, submission.Status, to)
	}
	return nil
}

func (s *VerificationService) appendAudit(tx *gorm.DB, submissionID uuid.UUID, action, stage string, performedBy *uuid.UUID, role models.UserRole, notes string, metadata models.JSONB) error {
	return tx.Create(&models.VerificationAuditLog{
		SubmissionID:    submissionID,
		Action:          action,
		Stage:           stage,
		PerformedBy:     performedBy,
		PerformedByRole: role,
		Notes:           notes,
		Metadata:        metadata,
	}).Error
}
