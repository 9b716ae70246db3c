// internal/handlers/stock.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/services"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type StockHandler struct {
	stock *services.StockService
}

func NewStockHandler(stock *services.StockService) *StockHandler {
	return &StockHandler{stock: stock}
}

type createPickupRequest struct {
	// DealerID takes the dealer's UUID or their unique id (e.g. "DLR000123").
	DealerID  string `json:"dealer_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

func (h *StockHandler) CreatePickup(c *gin.Context) {
	marketerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req createPickupRequest
	if !bindAndValidate(c, &req) {
		return
	}
	dealerID, err := h.stock.ResolveDealerRef(req.DealerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	productID, _ := uuid.Parse(req.ProductID)

	pickup, err := h.stock.CreatePickup(marketerID, services.CreatePickupInput{
		DealerID:  dealerID,
		ProductID: productID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.CreatedResponse(c, pickup)
}

// ListPickups scopes the listing by role: marketers see their own lines,
// dealers their own inventory's, admins everything.
func (h *StockHandler) ListPickups(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	filter := services.PickupFilter{}
	switch currentRole(c) {
	case models.UserRoleMarketer:
		filter.MarketerID = &userID
	case models.UserRoleDealer:
		filter.DealerID = &userID
	default:
		if raw := c.Query("marketer_id"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				filter.MarketerID = &id
			}
		}
	}
	if raw := c.Query("status"); raw != "" {
		status := models.PickupStatus(raw)
		filter.Status = &status
	}

	result, err := h.stock.ListPickups(filter, utils.GetPaginationParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}

func (h *StockHandler) GetPickup(c *gin.Context) {
	pickupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pickup, err := h.stock.GetPickup(pickupID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, pickup)
}

func (h *StockHandler) ConfirmSale(c *gin.Context) {
	marketerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	pickupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pickup, err := h.stock.ConfirmSale(pickupID, marketerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Sale confirmed", pickup)
}

func (h *StockHandler) RequestReturn(c *gin.Context) {
	marketerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	pickupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pickup, err := h.stock.RequestReturn(pickupID, marketerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Return requested", pickup)
}

func (h *StockHandler) ConfirmReturn(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	pickupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pickup, err := h.stock.ConfirmReturn(pickupID, actorID, currentRole(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Return confirmed", pickup)
}

type transferRequest struct {
	// TargetID takes the target marketer's UUID or their unique id.
	TargetID string `json:"target_id" validate:"required"`
}

func (h *StockHandler) RequestTransfer(c *gin.Context) {
	marketerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	pickupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req transferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	targetID, err := h.stock.ResolveMarketerRef(req.TargetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	pickup, err := h.stock.RequestTransfer(pickupID, marketerID, targetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Transfer requested", pickup)
}

type resolveRequest struct {
	Approve bool `json:"approve"`
}

func (h *StockHandler) ResolveTransfer(c *gin.Context) {
	resolverID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	pickupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	pickup, err := h.stock.ResolveTransfer(pickupID, resolverID, currentRole(c), req.Approve)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Transfer resolved", pickup)
}

func (h *StockHandler) RequestAdditionalPickup(c *gin.Context) {
	marketerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	allowance, err := h.stock.RequestAdditionalPickup(marketerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Additional pickup requested", allowance)
}

func (h *StockHandler) ResolveAdditionalPickup(c *gin.Context) {
	resolverID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	marketerID, ok := parseIDParam(c, "marketerId")
	if !ok {
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	allowance, err := h.stock.ResolveAdditionalPickup(marketerID, resolverID, req.Approve)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Request resolved", allowance)
}

func (h *StockHandler) GetAllowance(c *gin.Context) {
	marketerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	allowance, err := h.stock.GetAllowance(marketerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, allowance)
}

func (h *StockHandler) ListAllowanceRequests(c *gin.Context) {
	result, err := h.stock.ListAllowanceRequests(utils.GetPaginationParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}

// ExpireOverdue is the manual sweep endpoint. Expiry also happens lazily on
// reads, so this exists for cron hooks and operational cleanups.
func (h *StockHandler) ExpireOverdue(c *gin.Context) {
	expired, err := h.stock.ExpireOverdue()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"expired": expired})
}
