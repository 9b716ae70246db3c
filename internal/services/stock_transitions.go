// internal/services/stock_transitions.go
package services

import (
	"fmt"

	"github.com/vistaprohq/vistapro-backend/internal/models"
)

// pickupTransitions is the adjacency map of allowed pickup status moves.
// Terminal states have no outgoing edges. The transfer_pending -> pending
// edge covers a rejected transfer, which restores the original holder.
var pickupTransitions = map[models.PickupStatus][]models.PickupStatus{
	models.PickupStatusPending: {
		models.PickupStatusSold,
		models.PickupStatusReturnPending,
		models.PickupStatusTransferPending,
		models.PickupStatusExpired,
	},
	models.PickupStatusReturnPending: {
		models.PickupStatusReturned,
	},
	models.PickupStatusTransferPending: {
		models.PickupStatusTransferred,
		models.PickupStatusPending,
	},
	models.PickupStatusSold:        {},
	models.PickupStatusReturned:    {},
	models.PickupStatusTransferred: {},
	models.PickupStatusExpired:     {},
}

// CanTransitionPickup reports whether from -> to is a legal move.
func CanTransitionPickup(from, to models.PickupStatus) bool {
	for _, next := range pickupTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkPickupTransition returns ErrInvalidTransition wrapped with the
// offending pair when the move is not allowed.
func checkPickupTransition(from, to models.PickupStatus) error {
	if !CanTransitionPickup(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// submissionTransitions is the adjacency map for the verification workflow.
// Rejection is reachable from every review stage; refill is the only way out
// of rejected and loops the submission back to forms_incomplete.
var submissionTransitions = map[models.SubmissionStatus][]models.SubmissionStatus{
	models.SubmissionStatusFormsIncomplete: {
		models.SubmissionStatusPendingAdminReview,
	},
	models.SubmissionStatusPendingAdminReview: {
		models.SubmissionStatusPendingSuperAdminReview,
		models.SubmissionStatusRejected,
	},
	models.SubmissionStatusPendingSuperAdminReview: {
		models.SubmissionStatusPendingMasterAdminReview,
		models.SubmissionStatusRejected,
	},
	models.SubmissionStatusPendingMasterAdminReview: {
		models.SubmissionStatusApproved,
		models.SubmissionStatusRejected,
	},
	models.SubmissionStatusRejected: {
		models.SubmissionStatusFormsIncomplete,
	},
	models.SubmissionStatusApproved: {},
}

// CanTransitionSubmission reports whether from -> to is a legal workflow move.
func CanTransitionSubmission(from, to models.SubmissionStatus) bool {
	for _, next := range submissionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
