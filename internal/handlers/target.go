// internal/handlers/target.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/services"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type TargetHandler struct {
	targets *services.TargetService
}

func NewTargetHandler(targets *services.TargetService) *TargetHandler {
	return &TargetHandler{targets: targets}
}

type setTargetRequest struct {
	UserID      string  `json:"user_id" validate:"required,uuid"`
	TargetType  string  `json:"target_type" validate:"required,oneof=orders sales"`
	TargetValue float64 `json:"target_value" validate:"required,gt=0"`
	PeriodStart string  `json:"period_start" validate:"required"`
	PeriodEnd   string  `json:"period_end" validate:"required"`
}

func (h *TargetHandler) SetTarget(c *gin.Context) {
	createdBy, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req setTargetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	periodStart, err := time.Parse(time.RFC3339, req.PeriodStart)
	if err != nil {
		utils.BadRequestResponse(c, "period_start must be RFC3339", nil)
		return
	}
	periodEnd, err := time.Parse(time.RFC3339, req.PeriodEnd)
	if err != nil {
		utils.BadRequestResponse(c, "period_end must be RFC3339", nil)
		return
	}

	target, err := h.targets.SetTarget(services.SetTargetInput{
		UserID:      userID,
		TargetType:  models.TargetType(req.TargetType),
		TargetValue: req.TargetValue,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}, createdBy)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.CreatedResponse(c, target)
}

func (h *TargetHandler) GetMyPerformance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	performances, err := h.targets.GetPerformance(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, performances)
}

func (h *TargetHandler) GetUserPerformance(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	performances, err := h.targets.GetPerformance(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, performances)
}

func (h *TargetHandler) ListMyTargets(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	result, err := h.targets.ListTargets(userID, utils.GetPaginationParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}
