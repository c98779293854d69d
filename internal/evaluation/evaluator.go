package evaluation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velmora/retail-admin-backend/internal/promotions"
	"github.com/velmora/retail-admin-backend/internal/snapshot"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
)

// OrderLine is one position of the order under evaluation.
type OrderLine struct {
	OrderLineID   uuid.UUID `json:"order_line_id" validate:"required"`
	ProductUnitID uuid.UUID `json:"product_unit_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,gt=0"`
}

// DiscountResult is one rule application. Amount discounts carry AmountCents;
// buy-x-get-y grants carry FreeUnits. Results for one order line are not
// merged; the order subsystem decides how stacked rules combine.
type DiscountResult struct {
	OrderLineID uuid.UUID `json:"order_line_id"`
	RuleLineID  uuid.UUID `json:"rule_line_id"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	FreeUnits   int       `json:"free_units,omitempty"`
}

var oneHundred = decimal.NewFromInt(100)

// Evaluate applies the snapshot's promotion rules to the order at the given
// instant. Pure and deterministic: identical inputs against the same snapshot
// produce identical results. It errors only on malformed input; an order no
// rule matches simply yields no results.
func Evaluate(lines []OrderLine, at time.Time, snap *snapshot.Snapshot) ([]DiscountResult, error) {
	if snap == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog snapshot is required")
	}

	for i := range lines {
		if lines[i].Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order line quantity must be positive").
				WithDetails(map[string]string{"order_line_id": lines[i].OrderLineID.String()})
		}
		if _, ok := snap.Unit(lines[i].ProductUnitID); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown product unit").
				WithDetails(map[string]string{"product_unit_id": lines[i].ProductUnitID.String()})
		}
	}

	qtyByUnit := make(map[uuid.UUID]int, len(lines))
	for i := range lines {
		qtyByUnit[lines[i].ProductUnitID] += lines[i].Quantity
	}

	var results []DiscountResult
	seenRules := make(map[uuid.UUID]struct{})

	for i := range lines {
		line := lines[i]
		for _, rule := range snap.ActiveLines(line.ProductUnitID, at) {
			switch detail := rule.Detail.(type) {
			case promotions.PercentDetail:
				subtotal, ok := lineSubtotal(snap, line, at)
				if !ok {
					continue
				}
				raw := decimal.NewFromInt(subtotal).
					Mul(decimal.NewFromFloat(detail.Percent)).
					Div(oneHundred).
					Floor().
					IntPart()
				results = append(results, DiscountResult{
					OrderLineID: line.OrderLineID,
					RuleLineID:  rule.LineID,
					AmountCents: clampDiscount(raw, subtotal, detail.MinAmountCents, detail.MaxDiscountCents),
				})

			case promotions.AmountDetail:
				subtotal, ok := lineSubtotal(snap, line, at)
				if !ok {
					continue
				}
				results = append(results, DiscountResult{
					OrderLineID: line.OrderLineID,
					RuleLineID:  rule.LineID,
					AmountCents: clampDiscount(detail.AmountCents, subtotal, detail.MinAmountCents, detail.MaxDiscountCents),
				})

			case promotions.BuyXGetYDetail:
				if _, seen := seenRules[rule.LineID]; seen {
					continue
				}
				seenRules[rule.LineID] = struct{}{}
				if result, ok := applyBuyXGetY(lines, qtyByUnit, rule.LineID, detail); ok {
					results = append(results, result)
				}
			}
		}
	}

	return results, nil
}

// lineSubtotal prices one order line against the snapshot. A unit with no
// price covering the instant cannot carry a monetary discount.
func lineSubtotal(snap *snapshot.Snapshot, line OrderLine, at time.Time) (int64, bool) {
	entry, ok := snap.ResolvePrice(line.ProductUnitID, at)
	if !ok {
		return 0, false
	}
	return entry.PriceCents * int64(line.Quantity), true
}

// clampDiscount applies the minimum-subtotal gate and the cap. The discount
// never exceeds the line subtotal.
func clampDiscount(raw, subtotal int64, minAmount, maxDiscount *int64) int64 {
	if minAmount != nil && subtotal < *minAmount {
		return 0
	}
	discount := raw
	if maxDiscount != nil && discount > *maxDiscount {
		discount = *maxDiscount
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// applyBuyXGetY grants free gift units for full condition multiples present in
// the order. The grant is capped to gift units already purchased; absent gift
// units are never added to the order.
func applyBuyXGetY(lines []OrderLine, qtyByUnit map[uuid.UUID]int, ruleLineID uuid.UUID, detail promotions.BuyXGetYDetail) (DiscountResult, bool) {
	multiples := qtyByUnit[detail.ConditionProductUnitID] / detail.ConditionQuantity
	if multiples == 0 {
		return DiscountResult{}, false
	}

	freeUnits := multiples * detail.FreeQuantity
	if present := qtyByUnit[detail.GiftProductUnitID]; freeUnits > present {
		freeUnits = present
	}
	if freeUnits == 0 {
		return DiscountResult{}, false
	}

	for i := range lines {
		if lines[i].ProductUnitID == detail.GiftProductUnitID {
			return DiscountResult{
				OrderLineID: lines[i].OrderLineID,
				RuleLineID:  ruleLineID,
				FreeUnits:   freeUnits,
			}, true
		}
	}
	return DiscountResult{}, false
}
