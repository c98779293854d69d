package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velmora/retail-admin-backend/pkg/enums"
)

// PromotionHeader names a promotional campaign and bounds its lines in time.
type PromotionHeader struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	StartDate time.Time       `gorm:"column:start_date;not null"`
	EndDate   *time.Time      `gorm:"column:end_date"`
	Active    bool            `gorm:"column:active;not null;default:true"`
	Lines     []PromotionLine `gorm:"foreignKey:PromotionHeaderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PromotionLine targets a product or category with a discount type and window.
// For a fixed (target_type, target_id) no two active rows may overlap in time.
type PromotionLine struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PromotionHeaderID uuid.UUID             `gorm:"column:promotion_header_id;type:uuid;not null;index"`
	TargetType        enums.PromotionTarget `gorm:"column:target_type;not null;index:idx_promotion_lines_target"`
	TargetID          uuid.UUID             `gorm:"column:target_id;type:uuid;not null;index:idx_promotion_lines_target"`
	Type              enums.PromotionType   `gorm:"column:type;not null"`
	StartDate         time.Time             `gorm:"column:start_date;not null"`
	EndDate           *time.Time            `gorm:"column:end_date"`
	Active            bool                  `gorm:"column:active;not null;default:true"`
	Detail            *PromotionDetail      `gorm:"foreignKey:PromotionLineID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// PromotionDetail stores the type-specific parameters of a line. The row keeps
// one column set per variant; the promotions package maps it to a tagged union
// and never exposes the raw row to callers.
type PromotionDetail struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PromotionLineID uuid.UUID           `gorm:"column:promotion_line_id;type:uuid;not null;uniqueIndex"`
	Type            enums.PromotionType `gorm:"column:type;not null"`

	DiscountPercent  *float64 `gorm:"column:discount_percent;type:numeric(5,2)"`
	DiscountAmount   *int64   `gorm:"column:discount_amount_cents"`
	MinAmountCents   *int64   `gorm:"column:min_amount_cents"`
	MaxDiscountCents *int64   `gorm:"column:max_discount_cents"`

	ConditionProductUnitID *uuid.UUID `gorm:"column:condition_product_unit_id;type:uuid"`
	ConditionQuantity      *int       `gorm:"column:condition_quantity"`
	GiftProductUnitID      *uuid.UUID `gorm:"column:gift_product_unit_id;type:uuid"`
	FreeQuantity           *int       `gorm:"column:free_quantity"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
