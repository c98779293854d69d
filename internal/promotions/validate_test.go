package promotions

import (
	"testing"

	"github.com/google/uuid"

	"github.com/velmora/retail-admin-backend/pkg/enums"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
)

func fieldsOf(errs []FieldError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field] = fe.Message
	}
	return out
}

func TestValidateDetailPercent(t *testing.T) {
	percent := 20.0
	if errs := ValidateDetail(DetailInput{DiscountPercent: &percent}, enums.PromotionTypeDiscountPercent); len(errs) != 0 {
		t.Fatalf("expected valid input, got %v", errs)
	}

	zero := 0.0
	over := 120.0
	for _, bad := range []*float64{nil, &zero, &over} {
		errs := ValidateDetail(DetailInput{DiscountPercent: bad}, enums.PromotionTypeDiscountPercent)
		if _, ok := fieldsOf(errs)["discount_percent"]; !ok {
			t.Fatalf("expected discount_percent error for %v, got %v", bad, errs)
		}
	}

	hundred := 100.0
	if errs := ValidateDetail(DetailInput{DiscountPercent: &hundred}, enums.PromotionTypeDiscountPercent); len(errs) != 0 {
		t.Fatalf("100 percent is a free item, expected valid, got %v", errs)
	}
}

func TestValidateDetailRejectsForeignFields(t *testing.T) {
	percent := 20.0
	amount := int64(500)
	qty := 3
	errs := ValidateDetail(DetailInput{
		DiscountPercent:     &percent,
		DiscountAmountCents: &amount,
		ConditionQuantity:   &qty,
	}, enums.PromotionTypeDiscountPercent)

	fields := fieldsOf(errs)
	if _, ok := fields["discount_amount_cents"]; !ok {
		t.Fatalf("expected amount field rejected, got %v", errs)
	}
	if _, ok := fields["condition_quantity"]; !ok {
		t.Fatalf("expected gift field rejected, got %v", errs)
	}
	if _, ok := fields["discount_percent"]; ok {
		t.Fatalf("valid percent should not be flagged, got %v", errs)
	}
}

func TestValidateDetailAmountThresholds(t *testing.T) {
	amount := int64(750)
	minAmount := int64(-1)
	maxDiscount := int64(0)
	errs := ValidateDetail(DetailInput{
		DiscountAmountCents: &amount,
		MinAmountCents:      &minAmount,
		MaxDiscountCents:    &maxDiscount,
	}, enums.PromotionTypeDiscountAmount)

	fields := fieldsOf(errs)
	if len(fields) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if _, ok := fields["min_amount_cents"]; !ok {
		t.Fatalf("expected min_amount_cents error, got %v", errs)
	}
	if _, ok := fields["max_discount_cents"]; !ok {
		t.Fatalf("expected max_discount_cents error, got %v", errs)
	}
}

func TestValidateDetailBuyXGetY(t *testing.T) {
	condUnit := uuid.New()
	giftUnit := uuid.New()
	condQty := 3
	freeQty := 1

	valid := DetailInput{
		ConditionProductUnitID: &condUnit,
		ConditionQuantity:      &condQty,
		GiftProductUnitID:      &giftUnit,
		FreeQuantity:           &freeQty,
	}
	if errs := ValidateDetail(valid, enums.PromotionTypeBuyXGetY); len(errs) != 0 {
		t.Fatalf("expected valid input, got %v", errs)
	}

	// Every missing field is reported in the same pass.
	errs := ValidateDetail(DetailInput{}, enums.PromotionTypeBuyXGetY)
	fields := fieldsOf(errs)
	for _, field := range []string{"condition_product_unit_id", "condition_quantity", "gift_product_unit_id", "free_quantity"} {
		if _, ok := fields[field]; !ok {
			t.Fatalf("expected %s reported, got %v", field, errs)
		}
	}

	minAmount := int64(1000)
	withThreshold := valid
	withThreshold.MinAmountCents = &minAmount
	errs = ValidateDetail(withThreshold, enums.PromotionTypeBuyXGetY)
	if _, ok := fieldsOf(errs)["min_amount_cents"]; !ok {
		t.Fatalf("thresholds do not apply to buy x get y, got %v", errs)
	}
}

func TestBuildDetailCombinesErrors(t *testing.T) {
	_, err := BuildDetail(DetailInput{}, enums.PromotionTypeBuyXGetY)
	if err == nil {
		t.Fatal("expected error for empty input")
	}
	coded := pkgerrors.As(err)
	if coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", coded.Code())
	}
	details, ok := coded.Details().(map[string]string)
	if !ok || len(details) != 4 {
		t.Fatalf("expected 4 field details, got %v", coded.Details())
	}
}

func TestBuildDetailAssemblesVariant(t *testing.T) {
	percent := 12.5
	maxDiscount := int64(3000)
	detail, err := BuildDetail(DetailInput{
		DiscountPercent:  &percent,
		MaxDiscountCents: &maxDiscount,
	}, enums.PromotionTypeDiscountPercent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pd, ok := detail.(PercentDetail)
	if !ok {
		t.Fatalf("expected PercentDetail, got %T", detail)
	}
	if pd.Percent != percent {
		t.Fatalf("expected percent %v, got %v", percent, pd.Percent)
	}
	if pd.MinAmountCents != nil || pd.MaxDiscountCents == nil || *pd.MaxDiscountCents != maxDiscount {
		t.Fatalf("thresholds not carried: %+v", pd)
	}
}
