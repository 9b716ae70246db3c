// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/services"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type ProductHandler struct {
	products *services.ProductService
}

func NewProductHandler(products *services.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

type productRequest struct {
	DeviceName        string  `json:"device_name" validate:"required,max=100"`
	DeviceModel       string  `json:"device_model" validate:"required,max=100"`
	DeviceType        string  `json:"device_type" validate:"max=50"`
	CostPrice         float64 `json:"cost_price" validate:"gte=0"`
	SellingPrice      float64 `json:"selling_price" validate:"gte=0"`
	QuantityAvailable int     `json:"quantity_available" validate:"gte=0"`
}

func (r productRequest) toInput() services.ProductInput {
	return services.ProductInput{
		DeviceName:        r.DeviceName,
		DeviceModel:       r.DeviceModel,
		DeviceType:        r.DeviceType,
		CostPrice:         r.CostPrice,
		SellingPrice:      r.SellingPrice,
		QuantityAvailable: r.QuantityAvailable,
	}
}

func (h *ProductHandler) Create(c *gin.Context) {
	dealerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req productRequest
	if !bindAndValidate(c, &req) {
		return
	}

	product, err := h.products.Create(dealerID, req.toInput())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.CreatedResponse(c, product)
}

func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.products.Get(productID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, product)
}

func (h *ProductHandler) Update(c *gin.Context) {
	dealerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req productRequest
	if !bindAndValidate(c, &req) {
		return
	}

	product, err := h.products.Update(productID, dealerID, req.toInput())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, product)
}

type restockRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func (h *ProductHandler) Restock(c *gin.Context) {
	dealerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req restockRequest
	if !bindAndValidate(c, &req) {
		return
	}

	product, err := h.products.Restock(productID, dealerID, req.Quantity)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Stock added", product)
}

// List shows a dealer their own catalog; everyone else browses all products.
func (h *ProductHandler) List(c *gin.Context) {
	var dealerID *uuid.UUID
	if currentRole(c) == models.UserRoleDealer {
		id, ok := currentUserID(c)
		if !ok {
			utils.UnauthorizedResponse(c, "")
			return
		}
		dealerID = &id
	} else if raw := c.Query("dealer_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			dealerID = &id
		}
	}

	result, err := h.products.List(dealerID, utils.GetPaginationParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}
