package models

import (
	"time"

	"github.com/google/uuid"
)

// PriceHeader is a named campaign grouping unit prices.
type PriceHeader struct {
	ID          uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string      `gorm:"column:name;not null"`
	Description *string     `gorm:"column:description"`
	TimeStart   time.Time   `gorm:"column:time_start;not null"`
	TimeEnd     *time.Time  `gorm:"column:time_end"`
	Prices      []UnitPrice `gorm:"foreignKey:PriceHeaderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// UnitPrice is the price of one product unit valid during [TimeStart, TimeEnd).
// For a fixed product unit no two active rows may overlap in time.
type UnitPrice struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductUnitID uuid.UUID  `gorm:"column:product_unit_id;type:uuid;not null;index"`
	PriceCents    int64      `gorm:"column:price_cents;not null"`
	PriceHeaderID uuid.UUID  `gorm:"column:price_header_id;type:uuid;not null;index"`
	TimeStart     time.Time  `gorm:"column:time_start;not null"`
	TimeEnd       *time.Time `gorm:"column:time_end"`
	Active        bool       `gorm:"column:active;not null;default:true"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
