package pricing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velmora/retail-admin-backend/pkg/db/models"
)

// Repository persists price headers and unit prices.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateHeader inserts a price list header.
func (r *Repository) CreateHeader(ctx context.Context, header *models.PriceHeader) (*models.PriceHeader, error) {
	if err := r.db.WithContext(ctx).Create(header).Error; err != nil {
		return nil, err
	}
	return header, nil
}

// FindHeaderByID loads a header without its prices.
func (r *Repository) FindHeaderByID(ctx context.Context, id uuid.UUID) (*models.PriceHeader, error) {
	var header models.PriceHeader
	if err := r.db.WithContext(ctx).First(&header, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &header, nil
}

// GetHeaderDetail loads a header with its prices ordered by validity start.
func (r *Repository) GetHeaderDetail(ctx context.Context, id uuid.UUID) (*models.PriceHeader, error) {
	var header models.PriceHeader
	err := r.db.WithContext(ctx).
		Preload("Prices", func(db *gorm.DB) *gorm.DB {
			return db.Order("unit_prices.time_start ASC")
		}).
		First(&header, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &header, nil
}

// CreatePrice inserts one unit price row.
func (r *Repository) CreatePrice(ctx context.Context, price *models.UnitPrice) (*models.UnitPrice, error) {
	if err := r.db.WithContext(ctx).Create(price).Error; err != nil {
		return nil, err
	}
	return price, nil
}

// FindPriceByID loads a unit price row.
func (r *Repository) FindPriceByID(ctx context.Context, id uuid.UUID) (*models.UnitPrice, error) {
	var price models.UnitPrice
	if err := r.db.WithContext(ctx).First(&price, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &price, nil
}

// ListActivePricesByUnit returns the active rows for one product unit ordered
// by validity start. Conflict checks and point lookups read through this.
func (r *Repository) ListActivePricesByUnit(ctx context.Context, productUnitID uuid.UUID) ([]models.UnitPrice, error) {
	var prices []models.UnitPrice
	err := r.db.WithContext(ctx).
		Where("product_unit_id = ? AND active", productUnitID).
		Order("time_start ASC").
		Find(&prices).Error
	if err != nil {
		return nil, err
	}
	return prices, nil
}

// ListActivePrices returns every active unit price. Snapshot loads read
// through this.
func (r *Repository) ListActivePrices(ctx context.Context) ([]models.UnitPrice, error) {
	var prices []models.UnitPrice
	err := r.db.WithContext(ctx).
		Where("active").
		Order("time_start ASC").
		Find(&prices).Error
	if err != nil {
		return nil, err
	}
	return prices, nil
}

// DeactivatePrice soft-disables a unit price. The row is retained for history.
func (r *Repository) DeactivatePrice(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.UnitPrice{}).
		Where("id = ?", id).
		Update("active", false).Error
}
