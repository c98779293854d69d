package promotions

import (
	"time"

	"github.com/google/uuid"

	"github.com/velmora/retail-admin-backend/pkg/db/models"
	"github.com/velmora/retail-admin-backend/pkg/enums"
	"github.com/velmora/retail-admin-backend/pkg/timewindow"
)

// HeaderDTO is the API-facing shape of a promotion campaign.
type HeaderDTO struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Active    bool       `json:"active"`
	Lines     []LineDTO  `json:"lines,omitempty"`
}

// LineDTO is the API-facing shape of a promotion line.
type LineDTO struct {
	ID                uuid.UUID             `json:"id"`
	PromotionHeaderID uuid.UUID             `json:"promotion_header_id"`
	TargetType        enums.PromotionTarget `json:"target_type"`
	TargetID          uuid.UUID             `json:"target_id"`
	Type              enums.PromotionType   `json:"type"`
	StartDate         time.Time             `json:"start_date"`
	EndDate           *time.Time            `json:"end_date,omitempty"`
	Active            bool                  `json:"active"`
	Detail            *DetailDTO            `json:"detail,omitempty"`
}

// DetailDTO renders the detail variant; only the fields of the line's type are
// ever populated.
type DetailDTO struct {
	Type enums.PromotionType `json:"type"`

	DiscountPercent     *float64 `json:"discount_percent,omitempty"`
	DiscountAmountCents *int64   `json:"discount_amount_cents,omitempty"`
	MinAmountCents      *int64   `json:"min_amount_cents,omitempty"`
	MaxDiscountCents    *int64   `json:"max_discount_cents,omitempty"`

	ConditionProductUnitID *uuid.UUID `json:"condition_product_unit_id,omitempty"`
	ConditionQuantity      *int       `json:"condition_quantity,omitempty"`
	GiftProductUnitID      *uuid.UUID `json:"gift_product_unit_id,omitempty"`
	FreeQuantity           *int       `json:"free_quantity,omitempty"`
}

// NewHeaderDTO maps the model, including lines when preloaded.
func NewHeaderDTO(header *models.PromotionHeader) *HeaderDTO {
	dto := &HeaderDTO{
		ID:        header.ID,
		Name:      header.Name,
		StartDate: header.StartDate,
		EndDate:   header.EndDate,
		Active:    header.Active,
	}
	for i := range header.Lines {
		dto.Lines = append(dto.Lines, *NewLineDTO(&header.Lines[i]))
	}
	return dto
}

// NewLineDTO maps the model, including the detail when present and consistent
// with the line type. A mismatched detail is omitted rather than rendered
// wrongly; mutation paths surface the mismatch as a state conflict.
func NewLineDTO(line *models.PromotionLine) *LineDTO {
	dto := &LineDTO{
		ID:                line.ID,
		PromotionHeaderID: line.PromotionHeaderID,
		TargetType:        line.TargetType,
		TargetID:          line.TargetID,
		Type:              line.Type,
		StartDate:         line.StartDate,
		EndDate:           line.EndDate,
		Active:            line.Active,
	}
	if detail, err := DetailFromRow(line.Detail, line.Type); err == nil && detail != nil {
		dto.Detail = NewDetailDTO(detail)
	}
	return dto
}

// NewDetailDTO maps a detail variant onto the wire shape.
func NewDetailDTO(detail Detail) *DetailDTO {
	dto := &DetailDTO{Type: detail.PromotionType()}
	switch d := detail.(type) {
	case PercentDetail:
		percent := d.Percent
		dto.DiscountPercent = &percent
		dto.MinAmountCents = d.MinAmountCents
		dto.MaxDiscountCents = d.MaxDiscountCents
	case AmountDetail:
		amount := d.AmountCents
		dto.DiscountAmountCents = &amount
		dto.MinAmountCents = d.MinAmountCents
		dto.MaxDiscountCents = d.MaxDiscountCents
	case BuyXGetYDetail:
		condUnit := d.ConditionProductUnitID
		condQty := d.ConditionQuantity
		giftUnit := d.GiftProductUnitID
		freeQty := d.FreeQuantity
		dto.ConditionProductUnitID = &condUnit
		dto.ConditionQuantity = &condQty
		dto.GiftProductUnitID = &giftUnit
		dto.FreeQuantity = &freeQty
	}
	return dto
}

// LineWindow exposes a line's validity window with half-open semantics.
func LineWindow(line *models.PromotionLine) timewindow.Window {
	return timewindow.New(line.StartDate, line.EndDate)
}

// HeaderWindow exposes a campaign's validity window with half-open semantics.
func HeaderWindow(header *models.PromotionHeader) timewindow.Window {
	return timewindow.New(header.StartDate, header.EndDate)
}
