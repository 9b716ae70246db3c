// internal/handlers/common.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/services"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

// currentUserID reads the authenticated user's id from the request context.
// Routes behind AuthRequired always have it; the zero UUID means a broken
// middleware chain.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func currentRole(c *gin.Context) models.UserRole {
	raw, _ := utils.GetUserRoleFromContext(c)
	return models.UserRole(raw)
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// handleServiceError maps service sentinel errors onto the response
// envelope. Anything unmapped is a 500 and gets logged.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPickupNotFound),
		errors.Is(err, services.ErrDealerNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrSubmissionNotFound),
		errors.Is(err, services.ErrViolationRecordNotFound),
		errors.Is(err, services.ErrWalletNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTargetNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		utils.NotFoundResponse(c, err.Error())

	case errors.Is(err, services.ErrAccountBlocked),
		errors.Is(err, services.ErrNotPickupOwner),
		errors.Is(err, services.ErrTransferTargetBlocked),
		errors.Is(err, services.ErrNotTransferTarget),
		errors.Is(err, services.ErrNotAssignedReviewer):
		utils.ForbiddenResponse(c, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrUserInactive):
		utils.UnauthorizedResponse(c, err.Error())

	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrReasonRequired),
		errors.Is(err, services.ErrUnknownFormType),
		errors.Is(err, services.ErrTransferToSelf),
		errors.Is(err, services.ErrTransferTargetInvalid),
		errors.Is(err, services.ErrInvalidPeriod),
		errors.Is(err, services.ErrBelowMinimumPayout):
		utils.BadRequestResponse(c, err.Error(), nil)

	case errors.Is(err, services.ErrCooldownActive):
		utils.ErrorResponse(c, http.StatusTooManyRequests, "COOLDOWN_ACTIVE", err.Error(), nil)

	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrAllowanceExceeded),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrRequestAlreadyPending),
		errors.Is(err, services.ErrAllowanceAlreadyElevated),
		errors.Is(err, services.ErrNoRequestPending),
		errors.Is(err, services.ErrNotBlocked),
		errors.Is(err, services.ErrFormsIncomplete),
		errors.Is(err, services.ErrFormsStageClosed),
		errors.Is(err, services.ErrNotInReviewableState),
		errors.Is(err, services.ErrSubmissionTerminal),
		errors.Is(err, services.ErrNotRejected),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrInsufficientBalance):
		utils.ConflictResponse(c, err.Error())

	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Unhandled service error")
		utils.InternalErrorResponse(c, "")
	}
}

// bindAndValidate parses the JSON body and runs struct validation, writing
// the error response itself on failure.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return false
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return false
	}
	return true
}
