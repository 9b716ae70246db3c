// internal/services/tracking_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistaprohq/vistapro-backend/internal/models"
)

func timelineFixture(createdAt time.Time) *models.VerificationSubmission {
	return &models.VerificationSubmission{
		BaseModel: models.BaseModel{CreatedAt: createdAt},
		Status:    models.SubmissionStatusFormsIncomplete,
	}
}

func stageByName(t *testing.T, timeline Timeline, name string) TimelineStage {
	t.Helper()
	for _, stage := range timeline.Stages {
		if stage.Name == name {
			return stage
		}
	}
	t.Fatalf("stage %s not found", name)
	return TimelineStage{}
}

func TestBuildTimelineFreshSubmission(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	submission := timelineFixture(now.Add(-time.Hour))

	timeline := BuildTimeline(submission, now, 24*time.Hour)

	assert.Equal(t, 0, timeline.ProgressPercent)
	assert.Equal(t, StageForms, timeline.CurrentStage)
	assert.False(t, timeline.IsStuck)

	forms := stageByName(t, timeline, StageForms)
	assert.Equal(t, StageStatusInProgress, forms.Status)
	assert.Equal(t, time.Hour.Milliseconds(), forms.ElapsedMS)

	for _, name := range []string{StageAdminReview, StageSuperAdminReview, StageMasterAdminApproval} {
		assert.Equal(t, StageStatusPending, stageByName(t, timeline, name).Status)
	}
}

func TestBuildTimelinePartialFormsStayAtZeroProgress(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	submission := timelineFixture(now.Add(-3 * time.Hour))
	biodataAt := now.Add(-2 * time.Hour)
	guarantorAt := now.Add(-time.Hour)
	submission.BiodataCompletedAt = &biodataAt
	submission.GuarantorCompletedAt = &guarantorAt

	timeline := BuildTimeline(submission, now, 24*time.Hour)

	assert.Equal(t, 0, timeline.ProgressPercent)
	assert.Equal(t, StageStatusInProgress, stageByName(t, timeline, StageForms).Status)

	completed := 0
	for _, form := range timeline.Forms {
		if form.Completed {
			completed++
		}
	}
	assert.Equal(t, 2, completed)
}

func TestBuildTimelineProgressSteps(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	formsAt := now.Add(-10 * time.Hour)
	adminAt := now.Add(-8 * time.Hour)
	superAt := now.Add(-4 * time.Hour)
	masterAt := now.Add(-1 * time.Hour)

	tests := []struct {
		name         string
		mutate       func(*models.VerificationSubmission)
		progress     int
		currentStage string
	}{
		{
			"forms done",
			func(s *models.VerificationSubmission) {
				s.Status = models.SubmissionStatusPendingAdminReview
				s.FormsCompletedAt = &formsAt
			},
			25, StageAdminReview,
		},
		{
			"admin done",
			func(s *models.VerificationSubmission) {
				s.Status = models.SubmissionStatusPendingSuperAdminReview
				s.FormsCompletedAt = &formsAt
				s.AdminReviewedAt = &adminAt
			},
			50, StageSuperAdminReview,
		},
		{
			"superadmin done",
			func(s *models.VerificationSubmission) {
				s.Status = models.SubmissionStatusPendingMasterAdminReview
				s.FormsCompletedAt = &formsAt
				s.AdminReviewedAt = &adminAt
				s.SuperAdminReviewedAt = &superAt
			},
			75, StageMasterAdminApproval,
		},
		{
			"approved",
			func(s *models.VerificationSubmission) {
				s.Status = models.SubmissionStatusApproved
				s.FormsCompletedAt = &formsAt
				s.AdminReviewedAt = &adminAt
				s.SuperAdminReviewedAt = &superAt
				s.MasterAdminApprovedAt = &masterAt
			},
			100, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submission := timelineFixture(now.Add(-12 * time.Hour))
			tt.mutate(submission)

			timeline := BuildTimeline(submission, now, 24*time.Hour)
			assert.Equal(t, tt.progress, timeline.ProgressPercent)
			assert.Equal(t, tt.currentStage, timeline.CurrentStage)
		})
	}
}

func TestBuildTimelineCompletedStageElapsed(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	submission := timelineFixture(now.Add(-12 * time.Hour))
	formsAt := now.Add(-10 * time.Hour)
	adminAt := now.Add(-7 * time.Hour)
	submission.Status = models.SubmissionStatusPendingSuperAdminReview
	submission.FormsCompletedAt = &formsAt
	submission.AdminReviewedAt = &adminAt

	timeline := BuildTimeline(submission, now, 24*time.Hour)

	forms := stageByName(t, timeline, StageForms)
	require.Equal(t, StageStatusCompleted, forms.Status)
	assert.Equal(t, (2 * time.Hour).Milliseconds(), forms.ElapsedMS)

	admin := stageByName(t, timeline, StageAdminReview)
	require.Equal(t, StageStatusCompleted, admin.Status)
	assert.Equal(t, (3 * time.Hour).Milliseconds(), admin.ElapsedMS)

	super := stageByName(t, timeline, StageSuperAdminReview)
	require.Equal(t, StageStatusInProgress, super.Status)
	assert.Equal(t, (7 * time.Hour).Milliseconds(), super.ElapsedMS)
}

func TestBuildTimelineFlagsStuckStage(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	submission := timelineFixture(now.Add(-40 * time.Hour))
	formsAt := now.Add(-30 * time.Hour)
	submission.Status = models.SubmissionStatusPendingAdminReview
	submission.FormsCompletedAt = &formsAt

	timeline := BuildTimeline(submission, now, 24*time.Hour)

	assert.True(t, timeline.IsStuck)
	assert.Equal(t, StageAdminReview, timeline.BottleneckStage)

	// Just under the threshold is not stuck.
	recent := now.Add(-23 * time.Hour)
	submission.FormsCompletedAt = &recent
	timeline = BuildTimeline(submission, now, 24*time.Hour)
	assert.False(t, timeline.IsStuck)
	assert.Empty(t, timeline.BottleneckStage)
}

func TestBuildTimelineRejectedRun(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	submission := timelineFixture(now.Add(-50 * time.Hour))
	formsAt := now.Add(-48 * time.Hour)
	rejectedAt := now.Add(-46 * time.Hour)
	submission.Status = models.SubmissionStatusRejected
	submission.FormsCompletedAt = &formsAt
	submission.RejectedAt = &rejectedAt
	submission.RejectedBy = models.UserRoleAdmin
	submission.RejectionReason = "document mismatch"

	timeline := BuildTimeline(submission, now, 24*time.Hour)

	admin := stageByName(t, timeline, StageAdminReview)
	assert.Equal(t, StageStatusRejected, admin.Status)
	assert.Equal(t, (2 * time.Hour).Milliseconds(), admin.ElapsedMS)

	assert.Equal(t, 100, timeline.ProgressPercent, "a terminal run reports full progress")
	assert.Empty(t, timeline.CurrentStage)
	assert.False(t, timeline.IsStuck, "a rejected run is finished, not stuck")
	assert.Equal(t, models.UserRoleAdmin, timeline.RejectedBy)
}
