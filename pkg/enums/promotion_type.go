package enums

import "fmt"

// PromotionType identifies the discount mechanics of a promotion line.
type PromotionType string

const (
	PromotionTypeDiscountPercent PromotionType = "discount_percent"
	PromotionTypeDiscountAmount  PromotionType = "discount_amount"
	PromotionTypeBuyXGetY        PromotionType = "buy_x_get_y"
)

var validPromotionTypes = []PromotionType{
	PromotionTypeDiscountPercent,
	PromotionTypeDiscountAmount,
	PromotionTypeBuyXGetY,
}

// String implements fmt.Stringer.
func (p PromotionType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromotionType.
func (p PromotionType) IsValid() bool {
	for _, candidate := range validPromotionTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromotionType converts raw input into a PromotionType.
func ParsePromotionType(value string) (PromotionType, error) {
	for _, candidate := range validPromotionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion type %q", value)
}
