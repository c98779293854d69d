package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velmora/retail-admin-backend/pkg/db/models"
)

// Repository reads product, unit, and category reference data. The rule engine
// references these records but never mutates them; ownership stays with the
// inventory subsystem.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindProductByID loads the product without associations.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindUnitByID loads a product unit.
func (r *Repository) FindUnitByID(ctx context.Context, id uuid.UUID) (*models.ProductUnit, error) {
	var unit models.ProductUnit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindCategoryByID loads a category.
func (r *Repository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ListUnits returns every product unit. Snapshot loads read through this.
func (r *Repository) ListUnits(ctx context.Context) ([]models.ProductUnit, error) {
	var units []models.ProductUnit
	if err := r.db.WithContext(ctx).Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// ListProducts returns every product. Snapshot loads read through this.
func (r *Repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
