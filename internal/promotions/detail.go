package promotions

import (
	"github.com/google/uuid"

	"github.com/velmora/retail-admin-backend/pkg/db/models"
	"github.com/velmora/retail-admin-backend/pkg/enums"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
)

// Detail is the type-specific payload of a promotion line, modeled as a tagged
// union so each variant's fields are mandatory within that variant.
type Detail interface {
	PromotionType() enums.PromotionType
}

// PercentDetail applies a percentage discount to the line subtotal.
type PercentDetail struct {
	Percent          float64
	MinAmountCents   *int64
	MaxDiscountCents *int64
}

// PromotionType implements Detail.
func (PercentDetail) PromotionType() enums.PromotionType { return enums.PromotionTypeDiscountPercent }

// AmountDetail applies a flat discount to the line subtotal.
type AmountDetail struct {
	AmountCents      int64
	MinAmountCents   *int64
	MaxDiscountCents *int64
}

// PromotionType implements Detail.
func (AmountDetail) PromotionType() enums.PromotionType { return enums.PromotionTypeDiscountAmount }

// BuyXGetYDetail grants free gift units for every multiple of the condition
// unit purchased.
type BuyXGetYDetail struct {
	ConditionProductUnitID uuid.UUID
	ConditionQuantity      int
	GiftProductUnitID      uuid.UUID
	FreeQuantity           int
}

// PromotionType implements Detail.
func (BuyXGetYDetail) PromotionType() enums.PromotionType { return enums.PromotionTypeBuyXGetY }

// DetailFromRow converts the wide persistence row into the variant matching the
// owning line's type. A row whose tag no longer matches the line type is a
// state conflict: the line's type changed after the detail was created.
func DetailFromRow(row *models.PromotionDetail, lineType enums.PromotionType) (Detail, error) {
	if row == nil {
		return nil, nil
	}
	if row.Type != lineType {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "promotion detail no longer matches its line type").
			WithDetails(map[string]any{
				"detail_type": row.Type.String(),
				"line_type":   lineType.String(),
			})
	}

	switch row.Type {
	case enums.PromotionTypeDiscountPercent:
		if row.DiscountPercent == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "percent detail row is missing discount_percent")
		}
		return PercentDetail{
			Percent:          *row.DiscountPercent,
			MinAmountCents:   row.MinAmountCents,
			MaxDiscountCents: row.MaxDiscountCents,
		}, nil
	case enums.PromotionTypeDiscountAmount:
		if row.DiscountAmount == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "amount detail row is missing discount_amount")
		}
		return AmountDetail{
			AmountCents:      *row.DiscountAmount,
			MinAmountCents:   row.MinAmountCents,
			MaxDiscountCents: row.MaxDiscountCents,
		}, nil
	case enums.PromotionTypeBuyXGetY:
		if row.ConditionProductUnitID == nil || row.ConditionQuantity == nil ||
			row.GiftProductUnitID == nil || row.FreeQuantity == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "buy-x-get-y detail row is missing fields")
		}
		return BuyXGetYDetail{
			ConditionProductUnitID: *row.ConditionProductUnitID,
			ConditionQuantity:      *row.ConditionQuantity,
			GiftProductUnitID:      *row.GiftProductUnitID,
			FreeQuantity:           *row.FreeQuantity,
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "unknown promotion detail type")
	}
}

// rowFromDetail flattens a variant back into the persistence row.
func rowFromDetail(lineID uuid.UUID, detail Detail) *models.PromotionDetail {
	row := &models.PromotionDetail{
		PromotionLineID: lineID,
		Type:            detail.PromotionType(),
	}
	switch d := detail.(type) {
	case PercentDetail:
		percent := d.Percent
		row.DiscountPercent = &percent
		row.MinAmountCents = d.MinAmountCents
		row.MaxDiscountCents = d.MaxDiscountCents
	case AmountDetail:
		amount := d.AmountCents
		row.DiscountAmount = &amount
		row.MinAmountCents = d.MinAmountCents
		row.MaxDiscountCents = d.MaxDiscountCents
	case BuyXGetYDetail:
		condUnit := d.ConditionProductUnitID
		condQty := d.ConditionQuantity
		giftUnit := d.GiftProductUnitID
		freeQty := d.FreeQuantity
		row.ConditionProductUnitID = &condUnit
		row.ConditionQuantity = &condQty
		row.GiftProductUnitID = &giftUnit
		row.FreeQuantity = &freeQty
	}
	return row
}
