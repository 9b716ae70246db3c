// internal/handlers/violation.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vistaprohq/vistapro-backend/internal/services"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type ViolationHandler struct {
	violations *services.ViolationService
}

func NewViolationHandler(violations *services.ViolationService) *ViolationHandler {
	return &ViolationHandler{violations: violations}
}

func (h *ViolationHandler) GetMyRecord(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	record, logs, err := h.violations.GetRecord(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{
		"record": record,
		"logs":   logs,
	})
}

func (h *ViolationHandler) GetUserRecord(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	record, logs, err := h.violations.GetRecord(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{
		"record": record,
		"logs":   logs,
	})
}

func (h *ViolationHandler) ListBlocked(c *gin.Context) {
	result, err := h.violations.ListBlocked(utils.GetPaginationParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

func (h *ViolationHandler) Unlock(c *gin.Context) {
	performedBy, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	var req reasonRequest
	if !bindAndValidate(c, &req) {
		return
	}

	record, err := h.violations.Unlock(userID, performedBy, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Account unlocked", record)
}

func (h *ViolationHandler) RecordManual(c *gin.Context) {
	performedBy, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	var req reasonRequest
	if !bindAndValidate(c, &req) {
		return
	}

	record, err := h.violations.RecordManual(userID, performedBy, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Violation recorded", record)
}
