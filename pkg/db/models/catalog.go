package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products for category-targeted promotions.
type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Category) TableName() string { return "categories" }

// Product is a sellable article. Owned by the catalog subsystem; the rule
// engine only references it.
type Product struct {
	ID         uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string        `gorm:"column:name;not null"`
	CategoryID uuid.UUID     `gorm:"column:category_id;type:uuid;not null;index"`
	Active     bool          `gorm:"column:active;not null;default:true"`
	Units      []ProductUnit `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductUnit identifies one sellable unit of a product (e.g. piece, box, crate).
type ProductUnit struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	UnitName         string    `gorm:"column:unit_name;not null"`
	ConversionFactor int       `gorm:"column:conversion_factor;not null;default:1"`
	IsDefault        bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
