// internal/services/errors.go
package services

import "errors"

// Sentinel errors returned by the service layer. Handlers map these onto
// HTTP status codes with errors.Is.
var (
	// Stock pickup lifecycle
	ErrDealerNotFound        = errors.New("dealer not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrPickupNotFound        = errors.New("pickup not found")
	ErrInsufficientStock     = errors.New("insufficient stock available")
	ErrAllowanceExceeded     = errors.New("active pickup allowance exceeded")
	ErrAccountBlocked        = errors.New("account is blocked")
	ErrNotPickupOwner        = errors.New("pickup belongs to another marketer")
	ErrInvalidTransition     = errors.New("invalid pickup status transition")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrTransferTargetBlocked = errors.New("transfer target is blocked")
	ErrTransferTargetInvalid = errors.New("transfer target must be an active marketer")
	ErrTransferToSelf        = errors.New("cannot transfer a pickup to yourself")
	ErrNotTransferTarget     = errors.New("only the transfer target may resolve this transfer")

	// Additional pickup requests
	ErrRequestAlreadyPending    = errors.New("an additional pickup request is already pending")
	ErrCooldownActive           = errors.New("request cooldown has not elapsed")
	ErrAllowanceAlreadyElevated = errors.New("allowance is already elevated")
	ErrNoRequestPending         = errors.New("no additional pickup request is pending")

	// Violations
	ErrViolationRecordNotFound = errors.New("violation record not found")
	ErrNotBlocked              = errors.New("account is not blocked")
	ErrReasonRequired          = errors.New("a reason is required")

	// Verification workflow
	ErrSubmissionNotFound   = errors.New("verification submission not found")
	ErrUnknownFormType      = errors.New("unknown form type")
	ErrFormsStageClosed     = errors.New("forms can no longer be edited")
	ErrFormsIncomplete      = errors.New("not all required forms are complete")
	ErrNotInReviewableState = errors.New("submission is not awaiting this review stage")
	ErrSubmissionTerminal   = errors.New("submission is already in a terminal state")
	ErrNotRejected          = errors.New("submission is not rejected")
	ErrNotAssignedReviewer  = errors.New("submission is assigned to another reviewer")

	// Wallet
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrBelowMinimumPayout  = errors.New("amount is below the minimum payout")

	// Users and auth
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is not active")

	// Targets
	ErrTargetNotFound = errors.New("target not found")
	ErrInvalidPeriod  = errors.New("period end must be after period start")

	// Notifications
	ErrNotificationNotFound = errors.New("notification not found")
)
