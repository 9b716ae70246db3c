// internal/services/tracking_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vistaprohq/vistapro-backend/internal/cache"
	"github.com/vistaprohq/vistapro-backend/internal/config"
	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

// Stage names in pipeline order.
const (
	StageForms               = "forms"
	StageAdminReview         = "admin_review"
	StageSuperAdminReview    = "superadmin_review"
	StageMasterAdminApproval = "masteradmin_approval"
)

const timelineListCacheKey = "tracking:timelines"

type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusRejected   StageStatus = "rejected"
)

// TimelineStage is one reconstructed pipeline stage. ElapsedMS measures
// start to completion for finished stages and start to now for the stage
// currently in progress.
type TimelineStage struct {
	Name        string      `json:"name"`
	Status      StageStatus `json:"status"`
	StartedAt   *time.Time  `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at"`
	ElapsedMS   int64       `json:"elapsed_ms"`
}

// FormProgress breaks the forms stage down per form.
type FormProgress struct {
	Form        models.FormType `json:"form"`
	Completed   bool            `json:"completed"`
	CompletedAt *time.Time      `json:"completed_at"`
}

// Timeline is the reconstructed view of one marketer's verification run.
type Timeline struct {
	SubmissionID    uuid.UUID               `json:"submission_id"`
	MarketerID      uuid.UUID               `json:"marketer_id"`
	Status          models.SubmissionStatus `json:"status"`
	Stages          []TimelineStage         `json:"stages"`
	Forms           []FormProgress          `json:"forms"`
	CurrentStage    string                  `json:"current_stage,omitempty"`
	ProgressPercent int                     `json:"progress_percent"`
	IsStuck         bool                    `json:"is_stuck"`
	BottleneckStage string                  `json:"bottleneck_stage,omitempty"`
	RejectedBy      models.UserRole         `json:"rejected_by,omitempty"`
	RejectionReason string                  `json:"rejection_reason,omitempty"`
	RejectedAt      *time.Time              `json:"rejected_at"`
}

// BuildTimeline reconstructs a timeline from a submission's stage
// timestamps. Pure: everything derives from the row and the supplied clock,
// so the same inputs always produce the same timeline. Missing timestamps
// simply leave their stages pending.
func BuildTimeline(submission *models.VerificationSubmission, now time.Time, stuckThreshold time.Duration) Timeline {
	createdAt := submission.CreatedAt

	boundaries := []struct {
		name      string
		startedAt *time.Time
		endedAt   *time.Time
	}{
		{StageForms, &createdAt, submission.FormsCompletedAt},
		{StageAdminReview, submission.FormsCompletedAt, submission.AdminReviewedAt},
		{StageSuperAdminReview, submission.AdminReviewedAt, submission.SuperAdminReviewedAt},
		{StageMasterAdminApproval, submission.SuperAdminReviewedAt, submission.MasterAdminApprovedAt},
	}

	timeline := Timeline{
		SubmissionID:    submission.ID,
		MarketerID:      submission.MarketerID,
		Status:          submission.Status,
		Stages:          make([]TimelineStage, 0, len(boundaries)),
		RejectedBy:      submission.RejectedBy,
		RejectionReason: submission.RejectionReason,
		RejectedAt:      submission.RejectedAt,
	}

	for _, form := range []models.FormType{models.FormTypeBiodata, models.FormTypeGuarantor, models.FormTypeCommitment} {
		completedAt := submission.FormCompletedAt(form)
		timeline.Forms = append(timeline.Forms, FormProgress{
			Form:        form,
			Completed:   completedAt != nil,
			CompletedAt: completedAt,
		})
	}

	rejected := submission.Status == models.SubmissionStatusRejected
	completed := 0

	for _, b := range boundaries {
		stage := TimelineStage{
			Name:        b.name,
			Status:      StageStatusPending,
			StartedAt:   b.startedAt,
			CompletedAt: b.endedAt,
		}

		switch {
		case b.endedAt != nil:
			stage.Status = StageStatusCompleted
			if b.startedAt != nil {
				stage.ElapsedMS = b.endedAt.Sub(*b.startedAt).Milliseconds()
			}
			completed++
		case b.startedAt != nil:
			if rejected {
				stage.Status = StageStatusRejected
				if submission.RejectedAt != nil {
					stage.ElapsedMS = submission.RejectedAt.Sub(*b.startedAt).Milliseconds()
				}
			} else {
				stage.Status = StageStatusInProgress
				stage.ElapsedMS = now.Sub(*b.startedAt).Milliseconds()
				if timeline.CurrentStage == "" {
					timeline.CurrentStage = b.name
				}
			}
		}

		timeline.Stages = append(timeline.Stages, stage)
	}

	timeline.ProgressPercent = completed * 100 / len(boundaries)
	if submission.Status.Terminal() {
		// Approved or rejected runs are over; nothing further can progress.
		timeline.ProgressPercent = 100
	}

	if timeline.CurrentStage != "" {
		for _, stage := range timeline.Stages {
			if stage.Name == timeline.CurrentStage && stage.ElapsedMS > stuckThreshold.Milliseconds() {
				timeline.IsStuck = true
				timeline.BottleneckStage = stage.Name
			}
		}
	}

	return timeline
}

// TrackingService serves reconstructed verification timelines. Listings are
// cached briefly since admins poll them.
type TrackingService struct {
	db     *gorm.DB
	config *config.Config
	cache  *cache.Cache
}

func NewTrackingService(db *gorm.DB, cfg *config.Config, c *cache.Cache) *TrackingService {
	return &TrackingService{db: db, config: cfg, cache: c}
}

func (s *TrackingService) stuckThreshold() time.Duration {
	return time.Duration(s.config.Verification.StuckThresholdHours) * time.Hour
}

// GetTimeline reconstructs one marketer's timeline, creating the empty
// submission on first read so brand new marketers see an all-pending view.
func (s *TrackingService) GetTimeline(marketerID uuid.UUID) (*Timeline, error) {
	submission := &models.VerificationSubmission{}
	err := s.db.Where(models.VerificationSubmission{MarketerID: marketerID}).
		Attrs(models.VerificationSubmission{Status: models.SubmissionStatusFormsIncomplete}).
		FirstOrCreate(submission).Error
	if err != nil {
		return nil, err
	}

	timeline := BuildTimeline(submission, time.Now(), s.stuckThreshold())
	return &timeline, nil
}

// ListTimelines reconstructs timelines for every submission, optionally
// narrowed to one status. Stuck-only filtering happens after reconstruction
// since stuckness is a derived property.
func (s *TrackingService) ListTimelines(ctx context.Context, status *models.SubmissionStatus, stuckOnly bool, params utils.PaginationParams) (*utils.PaginationResult, error) {
	var timelines []Timeline
	cacheable := status == nil && !stuckOnly && params.Page == 1

	if cacheable && s.cache.Get(ctx, timelineListCacheKey, &timelines) {
		total := int64(len(timelines))
		if len(timelines) > params.Limit {
			timelines = timelines[:params.Limit]
		}
		result := utils.CreatePaginationResult(timelines, total, params)
		return &result, nil
	}

	query := s.db.Model(&models.VerificationSubmission{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var submissions []models.VerificationSubmission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	threshold := s.stuckThreshold()
	timelines = make([]Timeline, 0, len(submissions))
	for i := range submissions {
		timeline := BuildTimeline(&submissions[i], now, threshold)
		if stuckOnly && !timeline.IsStuck {
			continue
		}
		timelines = append(timelines, timeline)
	}

	if cacheable {
		s.cache.Set(ctx, timelineListCacheKey, timelines, 30*time.Second)
	}

	total := int64(len(timelines))
	offset := (params.Page - 1) * params.Limit
	if offset > len(timelines) {
		offset = len(timelines)
	}
	end := offset + params.Limit
	if end > len(timelines) {
		end = len(timelines)
	}

	result := utils.CreatePaginationResult(timelines[offset:end], total, params)
	return &result, nil
}
