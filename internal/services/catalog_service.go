// internal/services/catalog_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/myecomstore/backend/internal/inventory"
	"github.com/myecomstore/backend/internal/models"
	"github.com/myecomstore/backend/internal/utils"
)

var ErrProductNotFound = errors.New("product not found")

// CatalogService serves the product read path. Availability figures come from
// the inventory ledger so listings already account for live holds.
type CatalogService struct {
	db     *gorm.DB
	ledger *inventory.Ledger
}

// ProductView is a Product plus its current reservable quantity.
type ProductView struct {
	models.Product
	AvailableQuantity int `json:"available_quantity"`
}

func NewCatalogService(db *gorm.DB, ledger *inventory.Ledger) *CatalogService {
	return &CatalogService{db: db, ledger: ledger}
}

func (s *CatalogService) ListProducts(params utils.PaginationParams) (utils.PaginationResult, error) {
	query := s.db.Model(&models.Product{}).Where("is_available = ?", true)

	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.PaginationResult{}, fmt.Errorf("database error: %w", err)
	}

	allowedSorts := []string{"created_at", "price", "name", "average_rating", "sales_count"}
	query = utils.ApplySort(query, params, allowedSorts)

	var products []models.Product
	if err := utils.ApplyPagination(query, params).Find(&products).Error; err != nil {
		return utils.PaginationResult{}, fmt.Errorf("database error: %w", err)
	}

	views := make([]ProductView, 0, len(products))
	for i := range products {
		view, err := s.withAvailability(&products[i])
		if err != nil {
			return utils.PaginationResult{}, err
		}
		views = append(views, *view)
	}

	return utils.CreatePaginationResult(views, total, params), nil
}

// GetProduct returns the product, falling back to an in-stock sibling variant
// when the requested one has nothing left to reserve. The fallback keeps the
// product page sellable while a single colour or size is sold out.
func (s *CatalogService) GetProduct(productID uuid.UUID) (*ProductView, error) {
	var product models.Product
	err := s.db.Preload("Variants").First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	s.db.Model(&product).UpdateColumn("view_count", gorm.Expr("view_count + 1"))

	view, err := s.withAvailability(&product)
	if err != nil {
		return nil, err
	}
	if view.AvailableQuantity > 0 {
		return view, nil
	}

	fallback, err := s.availableVariant(&product)
	if err != nil || fallback == nil {
		return view, err
	}
	return fallback, nil
}

// availableVariant walks the product's variant group (the parent and all
// siblings) and returns the first member with reservable stock.
func (s *CatalogService) availableVariant(product *models.Product) (*ProductView, error) {
	groupRoot := product.ID
	if product.ParentID != nil {
		groupRoot = *product.ParentID
	}

	var candidates []models.Product
	err := s.db.Where("(id = ? OR parent_id = ?) AND id != ? AND is_available = ?",
		groupRoot, groupRoot, product.ID, true).
		Order("price ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	for i := range candidates {
		view, err := s.withAvailability(&candidates[i])
		if err != nil {
			return nil, err
		}
		if view.AvailableQuantity > 0 {
			return view, nil
		}
	}
	return nil, nil
}

func (s *CatalogService) withAvailability(product *models.Product) (*ProductView, error) {
	available, err := s.ledger.Availability(s.db, product.ID)
	if err != nil {
		if errors.Is(err, inventory.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &ProductView{Product: *product, AvailableQuantity: available}, nil
}

type CreateProductRequest struct {
	Name          string   `json:"name" validate:"required,min=2,max=255"`
	Description   string   `json:"description" validate:"max=5000"`
	Price         string   `json:"price" validate:"required"`
	Category      string   `json:"category" validate:"required,max=100"`
	StockQuantity int      `json:"stock_quantity" validate:"min=0"`
	Images        []string `json:"images" validate:"max=10,dive,url"`
	ParentID      *string  `json:"parent_id"`
}

// CreateProduct is the admin write path for catalog entries.
func (s *CatalogService) CreateProduct(req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         price,
		Category:      req.Category,
		StockQuantity: req.StockQuantity,
		IsAvailable:   req.StockQuantity > 0,
		Images:        req.Images,
	}
	if req.ParentID != nil {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent_id: %w", err)
		}
		var parent models.Product
		if err := s.db.First(&parent, "id = ?", parentID).Error; err != nil {
			return nil, ErrProductNotFound
		}
		if parent.ParentID != nil {
			// Variant groups are one level deep. Reparent onto the root.
			parentID = *parent.ParentID
		}
		product.ParentID = &parentID
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

type RestockRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// Restock adds stock under the product row lock and re-enables the listing.
func (s *CatalogService) Restock(productID uuid.UUID, req *RestockRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var product models.Product
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(lockForUpdate()).First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}
		product.StockQuantity += req.Quantity
		product.IsAvailable = true
		return tx.Save(&product).Error
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}
