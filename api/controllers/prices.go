package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/velmora/retail-admin-backend/api/responses"
	"github.com/velmora/retail-admin-backend/api/validators"
	pricingsvc "github.com/velmora/retail-admin-backend/internal/pricing"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
	"github.com/velmora/retail-admin-backend/pkg/logger"
	"github.com/velmora/retail-admin-backend/pkg/timewindow"
)

// CreatePriceHeader handles price list creation.
func CreatePriceHeader(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var payload createPriceHeaderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		header, err := svc.CreateHeader(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, header)
	}
}

// GetPriceHeader returns a price list with its rows.
func GetPriceHeader(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		headerID, err := validators.ParseURLUUID(r, "headerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		header, err := svc.GetHeader(r.Context(), headerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, header)
	}
}

// InsertPrice adds one conflict-checked price row to a list.
func InsertPrice(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		headerID, err := validators.ParseURLUUID(r, "headerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload insertPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(headerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := svc.InsertPrice(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, price)
	}
}

// BulkInsertPrices adds a batch of rows atomically.
func BulkInsertPrices(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		headerID, err := validators.ParseURLUUID(r, "headerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkInsertPricesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := payload.toItems()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		prices, err := svc.BulkInsertPrices(r.Context(), headerID, items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, prices)
	}
}

// ResolvePrice answers a point-in-time price lookup for one product unit.
func ResolvePrice(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unitID, err := validators.ParseQueryUUID(r, "product_unit_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		at, err := validators.ParseQueryTime(r, "at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolved, err := svc.ResolvePrice(r.Context(), unitID, at)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resolved)
	}
}

// DeactivatePrice soft-disables one price row.
func DeactivatePrice(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		priceID, err := validators.ParseURLUUID(r, "priceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeactivatePrice(r.Context(), priceID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

type createPriceHeaderRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	TimeStart   string  `json:"time_start" validate:"required"`
	TimeEnd     string  `json:"time_end,omitempty"`
}

func (req createPriceHeaderRequest) toInput() (pricingsvc.CreateHeaderInput, error) {
	window, err := timewindow.ParseWindow(req.TimeStart, req.TimeEnd)
	if err != nil {
		return pricingsvc.CreateHeaderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid window")
	}
	return pricingsvc.CreateHeaderInput{
		Name:        req.Name,
		Description: req.Description,
		Window:      window,
	}, nil
}

type insertPriceRequest struct {
	ProductUnitID uuid.UUID `json:"product_unit_id" validate:"required"`
	PriceCents    int64     `json:"price_cents" validate:"required,gt=0"`
	TimeStart     string    `json:"time_start" validate:"required"`
	TimeEnd       string    `json:"time_end,omitempty"`
}

func (req insertPriceRequest) toInput(headerID uuid.UUID) (pricingsvc.PriceInput, error) {
	window, err := timewindow.ParseWindow(req.TimeStart, req.TimeEnd)
	if err != nil {
		return pricingsvc.PriceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid window")
	}
	return pricingsvc.PriceInput{
		HeaderID:      headerID,
		ProductUnitID: req.ProductUnitID,
		PriceCents:    req.PriceCents,
		Window:        window,
	}, nil
}

type bulkInsertPricesRequest struct {
	Items []insertPriceRequest `json:"items" validate:"required,min=1,dive"`
}

func (req bulkInsertPricesRequest) toItems() ([]pricingsvc.BulkPriceItem, error) {
	items := make([]pricingsvc.BulkPriceItem, 0, len(req.Items))
	for i, item := range req.Items {
		window, err := timewindow.ParseWindow(item.TimeStart, item.TimeEnd)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid window").
				WithDetails(map[string]any{"item_index": i})
		}
		items = append(items, pricingsvc.BulkPriceItem{
			ProductUnitID: item.ProductUnitID,
			PriceCents:    item.PriceCents,
			Window:        window,
		})
	}
	return items, nil
}
