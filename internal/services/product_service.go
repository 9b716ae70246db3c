// internal/services/product_service.go
package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

type ProductInput struct {
	DeviceName        string
	DeviceModel       string
	DeviceType        string
	CostPrice         float64
	SellingPrice      float64
	QuantityAvailable int
}

func (s *ProductService) Create(dealerID uuid.UUID, input ProductInput) (*models.Product, error) {
	product := &models.Product{
		DealerID:          dealerID,
		DeviceName:        input.DeviceName,
		DeviceModel:       input.DeviceModel,
		DeviceType:        input.DeviceType,
		CostPrice:         input.CostPrice,
		SellingPrice:      input.SellingPrice,
		QuantityAvailable: input.QuantityAvailable,
	}
	if err := s.db.Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) Get(productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *ProductService) Update(productID, dealerID uuid.UUID, input ProductInput) (*models.Product, error) {
	product, err := s.Get(productID)
	if err != nil {
		return nil, err
	}
	if product.DealerID != dealerID {
		return nil, ErrProductNotFound
	}

	product.DeviceName = input.DeviceName
	product.DeviceModel = input.DeviceModel
	product.DeviceType = input.DeviceType
	product.CostPrice = input.CostPrice
	product.SellingPrice = input.SellingPrice
	if err := s.db.Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Restock adds units to a product. Quantity only ever changes through
// additive updates so it composes with concurrent pickups.
func (s *ProductService) Restock(productID, dealerID uuid.UUID, quantity int) (*models.Product, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	result := s.db.Model(&models.Product{}).
		Where("id = ? AND dealer_id = ?", productID, dealerID).
		UpdateColumn("quantity_available", gorm.Expr("quantity_available + ?", quantity))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}
	return s.Get(productID)
}

func (s *ProductService) List(dealerID *uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Product{})
	if dealerID != nil {
		query = query.Where("dealer_id = ?", *dealerID)
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where("device_name LIKE ? OR device_model LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	query = utils.ApplySort(query, params, []string{"created_at", "device_name", "selling_price", "quantity_available"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(products, total, params)
	return &result, nil
}
