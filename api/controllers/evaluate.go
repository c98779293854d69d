package controllers

import (
	"net/http"
	"time"

	"github.com/velmora/retail-admin-backend/api/responses"
	"github.com/velmora/retail-admin-backend/api/validators"
	"github.com/velmora/retail-admin-backend/internal/evaluation"
	"github.com/velmora/retail-admin-backend/internal/snapshot"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
	"github.com/velmora/retail-admin-backend/pkg/logger"
	"github.com/velmora/retail-admin-backend/pkg/metrics"
	"github.com/velmora/retail-admin-backend/pkg/timewindow"
)

type evaluateRequest struct {
	OrderLines []evaluation.OrderLine `json:"order_lines" validate:"required,min=1,dive"`
	At         string                 `json:"at,omitempty"`
}

type evaluateResponse struct {
	SnapshotVersion int64                       `json:"snapshot_version"`
	EvaluatedAt     time.Time                   `json:"evaluated_at"`
	Discounts       []evaluation.DiscountResult `json:"discounts"`
}

// Evaluate computes the discounts for a draft order against one pinned
// snapshot. Every rule lookup in the request sees the same catalog state.
func Evaluate(provider *snapshot.Provider, engineMetrics *metrics.EngineMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "snapshot provider unavailable"))
			return
		}

		var payload evaluateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		at := time.Now().UTC()
		if payload.At != "" {
			parsed, err := timewindow.ParseInstant(payload.At)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid evaluation instant"))
				return
			}
			at = parsed
		}

		snap, err := provider.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog snapshot"))
			return
		}

		started := time.Now()
		discounts, err := evaluation.Evaluate(payload.OrderLines, at, snap)
		if err != nil {
			engineMetrics.ObserveEvaluation("error", time.Since(started))
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engineMetrics.ObserveEvaluation("ok", time.Since(started))

		responses.WriteSuccess(w, evaluateResponse{
			SnapshotVersion: snap.Version,
			EvaluatedAt:     at,
			Discounts:       discounts,
		})
	}
}
