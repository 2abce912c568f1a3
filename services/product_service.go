package services

import (
	"errors"
	"fmt"

	"investment-reward-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product is not available")
	ErrProductOutOfStock = errors.New("product is sold out")
	ErrDuplicateSlug     = errors.New("a product with this name already exists")
	ErrAlreadyInvested   = errors.New("product already purchased")
	errStockConflict     = errors.New("stock update conflict")
)

type ProductService struct {
	DB    *gorm.DB
	Tasks *TaskService
}

func NewProductService(db *gorm.DB, tasks *TaskService) *ProductService {
	return &ProductService{DB: db, Tasks: tasks}
}

// CreateProduct adds a catalogue entry (admin only). The slug is derived from
// the name and must be unique.
func (s *ProductService) CreateProduct(name, description, imageURL string, price, totalReturn, stock int64, cycleDays int) (*models.Product, error) {
	if price <= 0 || cycleDays <= 0 || totalReturn <= 0 {
		return nil, fmt.Errorf("price, cycle_days and total_return must be positive")
	}

	product := models.Product{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug.Make(name),
		Price:       price,
		CycleDays:   cycleDays,
		TotalReturn: totalReturn,
		Stock:       stock,
		Description: description,
		ImageURL:    imageURL,
		Status:      models.ProductStatusActive,
	}

	var taken int64
	if err := s.DB.Model(&models.Product{}).Where("slug = ?", product.Slug).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, ErrDuplicateSlug
	}

	if err := s.DB.Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductUpdate carries optional fields for a partial product update.
type ProductUpdate struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	ImageURL    *string               `json:"image_url"`
	Price       *int64                `json:"price"`
	TotalReturn *int64                `json:"total_return"`
	CycleDays   *int                  `json:"cycle_days"`
	Stock       *int64                `json:"stock"`
	Status      *models.ProductStatus `json:"status"`
}

// UpdateProduct applies the provided fields (admin only). Cycle parameters of
// already-running tasks are unaffected: tasks copy them at purchase time.
func (s *ProductService) UpdateProduct(productID string, upd ProductUpdate) (*models.Product, error) {
	var product models.Product
	if err := s.DB.Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if (upd.Price != nil && *upd.Price <= 0) ||
		(upd.CycleDays != nil && *upd.CycleDays <= 0) ||
		(upd.TotalReturn != nil && *upd.TotalReturn <= 0) {
		return nil, fmt.Errorf("price, cycle_days and total_return must be positive")
	}

	if upd.Name != nil {
		product.Name = *upd.Name
		product.Slug = slug.Make(*upd.Name)
	}
	if upd.Description != nil {
		product.Description = *upd.Description
	}
	if upd.ImageURL != nil {
		product.ImageURL = *upd.ImageURL
	}
	if upd.Price != nil {
		product.Price = *upd.Price
	}
	if upd.TotalReturn != nil {
		product.TotalReturn = *upd.TotalReturn
	}
	if upd.CycleDays != nil {
		product.CycleDays = *upd.CycleDays
	}
	if upd.Stock != nil {
		product.Stock = *upd.Stock
	}
	if upd.Status != nil {
		product.Status = *upd.Status
	}

	if err := s.DB.Save(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListActive returns the purchasable catalogue.
func (s *ProductService) ListActive() ([]models.Product, error) {
	var products []models.Product
	err := s.DB.Where("status = ?", models.ProductStatusActive).
		Order("price ASC").
		Find(&products).Error
	return products, err
}

// GetBySlug resolves a catalogue entry for the product detail page.
func (s *ProductService) GetBySlug(productSlug string) (*models.Product, error) {
	var product models.Product
	err := s.DB.Where("slug = ?", productSlug).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Invest purchases one product instance for a user: conditional atomic debit
// of the price, conditional stock decrement, investment record, investment
// ledger entry and idempotent task provisioning, all in one transaction.
func (s *ProductService) Invest(userID, productID string) (*models.Investment, error) {
	var product models.Product
	if err := s.DB.Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if product.Status != models.ProductStatusActive {
		return nil, ErrProductInactive
	}

	var existing int64
	if err := s.DB.Model(&models.Investment{}).
		Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, models.InvestmentStatusRunning).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyInvested
	}

	investment := models.Investment{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		OrderID:   uuid.NewString(),
		Amount:    product.Price,
		Status:    models.InvestmentStatusRunning,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if product.Stock > 0 {
			// Stock 0 means unlimited; otherwise decrement with a guard so
			// the last unit cannot be sold twice.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock > 0", productID).
				UpdateColumn("stock", gorm.Expr("stock - 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStockConflict
			}

			// The last unit closes the product: a finite stock that reaches 0
			// must not be re-read as the unlimited sentinel.
			if err := tx.Model(&models.Product{}).
				Where("id = ? AND stock = 0", productID).
				Update("status", models.ProductStatusInactive).Error; err != nil {
				return err
			}
		}

		if err := debitBalance(tx, userID, product.Price); err != nil {
			return err
		}

		if err := tx.Create(&investment).Error; err != nil {
			return err
		}

		entry := models.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      -product.Price,
			Kind:        models.TransactionKindInvestment,
			Status:      models.TransactionStatusCompleted,
			Description: fmt.Sprintf("Investment in %s", product.Name),
			ReferenceID: &investment.ID,
		}
		return tx.Create(&entry).Error
	})
	if errors.Is(err, errStockConflict) {
		return nil, ErrProductOutOfStock
	}
	if err != nil {
		return nil, err
	}

	// Task provisioning is idempotent, so a retry after a crash between the
	// purchase commit and this call converges on the same record.
	if _, err := s.Tasks.EnsureTask(userID, productID, &product); err != nil {
		return nil, fmt.Errorf("provision task for investment %s: %w", investment.ID, err)
	}
	return &investment, nil
}

// ListInvestments returns a user's purchases, newest first.
func (s *ProductService) ListInvestments(userID string) ([]models.Investment, error) {
	var investments []models.Investment
	err := s.DB.Where("user_id = ?", userID).
		Preload("Product").
		Order("created_at DESC").
		Find(&investments).Error
	return investments, err
}
