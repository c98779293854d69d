package promotions

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/velmora/retail-admin-backend/pkg/enums"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
)

// DetailInput carries the raw, all-optional detail payload as submitted by the
// admin console. ValidateDetail decides which fields the line type requires.
type DetailInput struct {
	DiscountPercent     *float64
	DiscountAmountCents *int64
	MinAmountCents      *int64
	MaxDiscountCents    *int64

	ConditionProductUnitID *uuid.UUID
	ConditionQuantity      *int
	GiftProductUnitID      *uuid.UUID
	FreeQuantity           *int
}

// FieldError names one invalid or missing detail field.
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) Error() string {
	return fmt.Sprintf("%s %s", f.Field, f.Message)
}

// ValidateDetail checks the input against the line type and reports every
// violation at once. Usable by the admin UI and any server-side entry point.
func ValidateDetail(input DetailInput, lineType enums.PromotionType) []FieldError {
	var errs []FieldError

	switch lineType {
	case enums.PromotionTypeDiscountPercent:
		if input.DiscountPercent == nil {
			errs = append(errs, FieldError{"discount_percent", "is required"})
		} else if *input.DiscountPercent <= 0 || *input.DiscountPercent > 100 {
			errs = append(errs, FieldError{"discount_percent", "must be greater than 0 and at most 100"})
		}
		errs = append(errs, requireAbsent(input, absentAmount|absentGift)...)
		errs = append(errs, validateThresholds(input)...)

	case enums.PromotionTypeDiscountAmount:
		if input.DiscountAmountCents == nil {
			errs = append(errs, FieldError{"discount_amount_cents", "is required"})
		} else if *input.DiscountAmountCents <= 0 {
			errs = append(errs, FieldError{"discount_amount_cents", "must be positive"})
		}
		errs = append(errs, requireAbsent(input, absentPercent|absentGift)...)
		errs = append(errs, validateThresholds(input)...)

	case enums.PromotionTypeBuyXGetY:
		if input.ConditionProductUnitID == nil || *input.ConditionProductUnitID == uuid.Nil {
			errs = append(errs, FieldError{"condition_product_unit_id", "is required"})
		}
		if input.ConditionQuantity == nil {
			errs = append(errs, FieldError{"condition_quantity", "is required"})
		} else if *input.ConditionQuantity <= 0 {
			errs = append(errs, FieldError{"condition_quantity", "must be positive"})
		}
		if input.GiftProductUnitID == nil || *input.GiftProductUnitID == uuid.Nil {
			errs = append(errs, FieldError{"gift_product_unit_id", "is required"})
		}
		if input.FreeQuantity == nil {
			errs = append(errs, FieldError{"free_quantity", "is required"})
		} else if *input.FreeQuantity <= 0 {
			errs = append(errs, FieldError{"free_quantity", "must be positive"})
		}
		errs = append(errs, requireAbsent(input, absentPercent|absentAmount|absentThresholds)...)

	default:
		errs = append(errs, FieldError{"type", "is not a known promotion type"})
	}

	return errs
}

type absentMask uint8

const (
	absentPercent absentMask = 1 << iota
	absentAmount
	absentGift
	absentThresholds
)

func requireAbsent(input DetailInput, mask absentMask) []FieldError {
	var errs []FieldError
	if mask&absentPercent != 0 && input.DiscountPercent != nil {
		errs = append(errs, FieldError{"discount_percent", "does not apply to this promotion type"})
	}
	if mask&absentAmount != 0 && input.DiscountAmountCents != nil {
		errs = append(errs, FieldError{"discount_amount_cents", "does not apply to this promotion type"})
	}
	if mask&absentGift != 0 {
		if input.ConditionProductUnitID != nil {
			errs = append(errs, FieldError{"condition_product_unit_id", "does not apply to this promotion type"})
		}
		if input.ConditionQuantity != nil {
			errs = append(errs, FieldError{"condition_quantity", "does not apply to this promotion type"})
		}
		if input.GiftProductUnitID != nil {
			errs = append(errs, FieldError{"gift_product_unit_id", "does not apply to this promotion type"})
		}
		if input.FreeQuantity != nil {
			errs = append(errs, FieldError{"free_quantity", "does not apply to this promotion type"})
		}
	}
	if mask&absentThresholds != 0 {
		if input.MinAmountCents != nil {
			errs = append(errs, FieldError{"min_amount_cents", "does not apply to this promotion type"})
		}
		if input.MaxDiscountCents != nil {
			errs = append(errs, FieldError{"max_discount_cents", "does not apply to this promotion type"})
		}
	}
	return errs
}

func validateThresholds(input DetailInput) []FieldError {
	var errs []FieldError
	if input.MinAmountCents != nil && *input.MinAmountCents < 0 {
		errs = append(errs, FieldError{"min_amount_cents", "must not be negative"})
	}
	if input.MaxDiscountCents != nil && *input.MaxDiscountCents <= 0 {
		errs = append(errs, FieldError{"max_discount_cents", "must be positive"})
	}
	return errs
}

// BuildDetail validates the input and assembles the matching variant. The
// returned error is a single validation error listing every offending field.
func BuildDetail(input DetailInput, lineType enums.PromotionType) (Detail, error) {
	fieldErrs := ValidateDetail(input, lineType)
	if len(fieldErrs) > 0 {
		var combined error
		details := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			combined = multierr.Append(combined, fe)
			details[fe.Field] = fe.Message
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, combined, "invalid promotion detail").
			WithDetails(details)
	}

	switch lineType {
	case enums.PromotionTypeDiscountPercent:
		return PercentDetail{
			Percent:          *input.DiscountPercent,
			MinAmountCents:   input.MinAmountCents,
			MaxDiscountCents: input.MaxDiscountCents,
		}, nil
	case enums.PromotionTypeDiscountAmount:
		return AmountDetail{
			AmountCents:      *input.DiscountAmountCents,
			MinAmountCents:   input.MinAmountCents,
			MaxDiscountCents: input.MaxDiscountCents,
		}, nil
	case enums.PromotionTypeBuyXGetY:
		return BuyXGetYDetail{
			ConditionProductUnitID: *input.ConditionProductUnitID,
			ConditionQuantity:      *input.ConditionQuantity,
			GiftProductUnitID:      *input.GiftProductUnitID,
			FreeQuantity:           *input.FreeQuantity,
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown promotion type")
	}
}
