// internal/handlers/tracking.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/services"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type TrackingHandler struct {
	tracking *services.TrackingService
}

func NewTrackingHandler(tracking *services.TrackingService) *TrackingHandler {
	return &TrackingHandler{tracking: tracking}
}

func (h *TrackingHandler) GetMyTimeline(c *gin.Context) {
	marketerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	timeline, err := h.tracking.GetTimeline(marketerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, timeline)
}

func (h *TrackingHandler) GetMarketerTimeline(c *gin.Context) {
	marketerID, ok := parseIDParam(c, "marketerId")
	if !ok {
		return
	}

	timeline, err := h.tracking.GetTimeline(marketerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, timeline)
}

func (h *TrackingHandler) ListTimelines(c *gin.Context) {
	var status *models.SubmissionStatus
	if raw := c.Query("status"); raw != "" {
		s := models.SubmissionStatus(raw)
		status = &s
	}
	stuckOnly := c.Query("stuck") == "true"

	result, err := h.tracking.ListTimelines(c.Request.Context(), status, stuckOnly, utils.GetPaginationParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}
