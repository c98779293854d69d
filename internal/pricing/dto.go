package pricing

import (
	"time"

	"github.com/google/uuid"

	"github.com/velmora/retail-admin-backend/pkg/db/models"
	"github.com/velmora/retail-admin-backend/pkg/timewindow"
)

// HeaderDTO is the API-facing shape of a price list.
type HeaderDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	TimeStart   time.Time  `json:"time_start"`
	TimeEnd     *time.Time `json:"time_end,omitempty"`
	Prices      []PriceDTO `json:"prices,omitempty"`
}

// PriceDTO is the API-facing shape of one unit price row.
type PriceDTO struct {
	ID            uuid.UUID  `json:"id"`
	ProductUnitID uuid.UUID  `json:"product_unit_id"`
	PriceCents    int64      `json:"price_cents"`
	PriceHeaderID uuid.UUID  `json:"price_header_id"`
	TimeStart     time.Time  `json:"time_start"`
	TimeEnd       *time.Time `json:"time_end,omitempty"`
	Active        bool       `json:"active"`
}

// ResolvedPrice is the answer to a point-in-time price lookup.
type ResolvedPrice struct {
	ProductUnitID uuid.UUID `json:"product_unit_id"`
	PriceCents    int64     `json:"price_cents"`
	UnitPriceID   uuid.UUID `json:"unit_price_id"`
	At            time.Time `json:"at"`
}

// NewHeaderDTO maps the model, including prices when preloaded.
func NewHeaderDTO(header *models.PriceHeader) *HeaderDTO {
	dto := &HeaderDTO{
		ID:          header.ID,
		Name:        header.Name,
		Description: header.Description,
		TimeStart:   header.TimeStart,
		TimeEnd:     header.TimeEnd,
	}
	for i := range header.Prices {
		dto.Prices = append(dto.Prices, *NewPriceDTO(&header.Prices[i]))
	}
	return dto
}

// NewPriceDTO maps the model.
func NewPriceDTO(price *models.UnitPrice) *PriceDTO {
	return &PriceDTO{
		ID:            price.ID,
		ProductUnitID: price.ProductUnitID,
		PriceCents:    price.PriceCents,
		PriceHeaderID: price.PriceHeaderID,
		TimeStart:     price.TimeStart,
		TimeEnd:       price.TimeEnd,
		Active:        price.Active,
	}
}

// PriceWindow exposes a row's validity window with half-open semantics.
func PriceWindow(price *models.UnitPrice) timewindow.Window {
	return timewindow.New(price.TimeStart, price.TimeEnd)
}

// HeaderWindow exposes a header's validity window with half-open semantics.
func HeaderWindow(header *models.PriceHeader) timewindow.Window {
	return timewindow.New(header.TimeStart, header.TimeEnd)
}
