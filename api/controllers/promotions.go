package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/velmora/retail-admin-backend/api/responses"
	"github.com/velmora/retail-admin-backend/api/validators"
	promosvc "github.com/velmora/retail-admin-backend/internal/promotions"
	"github.com/velmora/retail-admin-backend/pkg/enums"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
	"github.com/velmora/retail-admin-backend/pkg/logger"
	"github.com/velmora/retail-admin-backend/pkg/timewindow"
)

// CreatePromotionHeader handles campaign creation.
func CreatePromotionHeader(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		var payload createPromotionHeaderRequest
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

// GetPromotionHeader returns a campaign with its lines and details.
func GetPromotionHeader(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
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

// InsertPromotionLine adds a conflict-checked line to a campaign.
func InsertPromotionLine(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		headerID, err := validators.ParseURLUUID(r, "headerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload insertPromotionLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(headerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.InsertLine(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, line)
	}
}

// InsertPromotionDetail attaches the type-specific parameters to a line.
func InsertPromotionDetail(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := validators.ParseURLUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload insertPromotionDetailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.InsertDetail(r.Context(), lineID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, line)
	}
}

// ResolvePromotionLines returns the lines covering one target at an instant.
func ResolvePromotionLines(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawTarget := r.URL.Query().Get("target_type")
		targetType, err := enums.ParsePromotionTarget(rawTarget)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target type"))
			return
		}
		targetID, err := validators.ParseQueryUUID(r, "target_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		at, err := validators.ParseQueryTime(r, "at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := svc.ResolveActiveLines(r.Context(), targetType, targetID, at)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, lines)
	}
}

// ResolveProductPromotions returns the lines applying to one product with
// product-over-category precedence already applied.
func ResolveProductPromotions(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		at, err := validators.ParseQueryTime(r, "at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := svc.ResolveLinesForProduct(r.Context(), productID, at)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, lines)
	}
}

// DeactivatePromotionLine soft-disables one line.
func DeactivatePromotionLine(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := validators.ParseURLUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeactivateLine(r.Context(), lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

// DeactivatePromotionHeader soft-disables a campaign and all of its lines.
func DeactivatePromotionHeader(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		headerID, err := validators.ParseURLUUID(r, "headerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeactivateHeader(r.Context(), headerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

type createPromotionHeaderRequest struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date,omitempty"`
	Active    *bool  `json:"active,omitempty"`
}

func (req createPromotionHeaderRequest) toInput() (promosvc.CreateHeaderInput, error) {
	window, err := timewindow.ParseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return promosvc.CreateHeaderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid window")
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return promosvc.CreateHeaderInput{
		Name:   req.Name,
		Window: window,
		Active: active,
	}, nil
}

type insertPromotionLineRequest struct {
	TargetType string    `json:"target_type" validate:"required"`
	TargetID   uuid.UUID `json:"target_id" validate:"required"`
	Type       string    `json:"type" validate:"required"`
	StartDate  string    `json:"start_date" validate:"required"`
	EndDate    string    `json:"end_date,omitempty"`
}

func (req insertPromotionLineRequest) toInput(headerID uuid.UUID) (promosvc.InsertLineInput, error) {
	targetType, err := enums.ParsePromotionTarget(req.TargetType)
	if err != nil {
		return promosvc.InsertLineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target type")
	}
	promoType, err := enums.ParsePromotionType(req.Type)
	if err != nil {
		return promosvc.InsertLineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid promotion type")
	}
	window, err := timewindow.ParseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return promosvc.InsertLineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid window")
	}
	return promosvc.InsertLineInput{
		HeaderID:   headerID,
		TargetType: targetType,
		TargetID:   req.TargetID,
		Type:       promoType,
		Window:     window,
	}, nil
}

type insertPromotionDetailRequest struct {
	DiscountPercent     *float64 `json:"discount_percent,omitempty"`
	DiscountAmountCents *int64   `json:"discount_amount_cents,omitempty"`
	MinAmountCents      *int64   `json:"min_amount_cents,omitempty"`
	MaxDiscountCents    *int64   `json:"max_discount_cents,omitempty"`

	ConditionProductUnitID *uuid.UUID `json:"condition_product_unit_id,omitempty"`
	ConditionQuantity      *int       `json:"condition_quantity,omitempty"`
	GiftProductUnitID      *uuid.UUID `json:"gift_product_unit_id,omitempty"`
	FreeQuantity           *int       `json:"free_quantity,omitempty"`
}

func (req insertPromotionDetailRequest) toInput() promosvc.DetailInput {
	return promosvc.DetailInput{
		DiscountPercent:        req.DiscountPercent,
		DiscountAmountCents:    req.DiscountAmountCents,
		MinAmountCents:         req.MinAmountCents,
		MaxDiscountCents:       req.MaxDiscountCents,
		ConditionProductUnitID: req.ConditionProductUnitID,
		ConditionQuantity:      req.ConditionQuantity,
		GiftProductUnitID:      req.GiftProductUnitID,
		FreeQuantity:           req.FreeQuantity,
	}
}
