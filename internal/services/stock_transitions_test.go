// internal/services/stock_transitions_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vistaprohq/vistapro-backend/internal/models"
)

func TestCanTransitionPickup(t *testing.T) {
	allowed := []struct{ from, to models.PickupStatus }{
		{models.PickupStatusPending, models.PickupStatusSold},
		{models.PickupStatusPending, models.PickupStatusReturnPending},
		{models.PickupStatusPending, models.PickupStatusTransferPending},
		{models.PickupStatusPending, models.PickupStatusExpired},
		{models.PickupStatusReturnPending, models.PickupStatusReturned},
		{models.PickupStatusTransferPending, models.PickupStatusTransferred},
		{models.PickupStatusTransferPending, models.PickupStatusPending},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransitionPickup(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	denied := []struct{ from, to models.PickupStatus }{
		{models.PickupStatusSold, models.PickupStatusPending},
		{models.PickupStatusExpired, models.PickupStatusSold},
		{models.PickupStatusReturned, models.PickupStatusReturnPending},
		{models.PickupStatusTransferred, models.PickupStatusPending},
		{models.PickupStatusReturnPending, models.PickupStatusSold},
		{models.PickupStatusReturnPending, models.PickupStatusExpired},
		{models.PickupStatusTransferPending, models.PickupStatusExpired},
		{models.PickupStatusPending, models.PickupStatusReturned},
		{models.PickupStatusPending, models.PickupStatusTransferred},
	}
	for _, tt := range denied {
		assert.False(t, CanTransitionPickup(tt.from, tt.to), "%s -> %s should be denied", tt.from, tt.to)
	}
}

func TestTerminalPickupStatesHaveNoExits(t *testing.T) {
	for from, targets := range pickupTransitions {
		if from.Terminal() {
			assert.Empty(t, targets, "terminal state %s must have no outgoing transitions", from)
		}
	}
}

func TestCanTransitionSubmission(t *testing.T) {
	allowed := []struct{ from, to models.SubmissionStatus }{
		{models.SubmissionStatusFormsIncomplete, models.SubmissionStatusPendingAdminReview},
		{models.SubmissionStatusPendingAdminReview, models.SubmissionStatusPendingSuperAdminReview},
		{models.SubmissionStatusPendingAdminReview, models.SubmissionStatusRejected},
		{models.SubmissionStatusPendingSuperAdminReview, models.SubmissionStatusPendingMasterAdminReview},
		{models.SubmissionStatusPendingSuperAdminReview, models.SubmissionStatusRejected},
		{models.SubmissionStatusPendingMasterAdminReview, models.SubmissionStatusApproved},
		{models.SubmissionStatusPendingMasterAdminReview, models.SubmissionStatusRejected},
		{models.SubmissionStatusRejected, models.SubmissionStatusFormsIncomplete},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransitionSubmission(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	denied := []struct{ from, to models.SubmissionStatus }{
		{models.SubmissionStatusApproved, models.SubmissionStatusRejected},
		{models.SubmissionStatusApproved, models.SubmissionStatusFormsIncomplete},
		{models.SubmissionStatusFormsIncomplete, models.SubmissionStatusApproved},
		{models.SubmissionStatusFormsIncomplete, models.SubmissionStatusRejected},
		{models.SubmissionStatusPendingAdminReview, models.SubmissionStatusApproved},
		{models.SubmissionStatusPendingAdminReview, models.SubmissionStatusPendingMasterAdminReview},
		{models.SubmissionStatusRejected, models.SubmissionStatusPendingAdminReview},
	}
	for _, tt := range denied {
		assert.False(t, CanTransitionSubmission(tt.from, tt.to), "%s -> %s should be denied", tt.from, tt.to)
	}
}
