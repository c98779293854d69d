package enums

import "fmt"

// PromotionTarget distinguishes what a promotion line applies to.
type PromotionTarget string

const (
	PromotionTargetProduct  PromotionTarget = "product"
	PromotionTargetCategory PromotionTarget = "category"
)

var validPromotionTargets = []PromotionTarget{
	PromotionTargetProduct,
	PromotionTargetCategory,
}

// String implements fmt.Stringer.
func (p PromotionTarget) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromotionTarget.
func (p PromotionTarget) IsValid() bool {
	for _, candidate := range validPromotionTargets {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromotionTarget converts raw input into a PromotionTarget.
func ParsePromotionTarget(value string) (PromotionTarget, error) {
	for _, candidate := range validPromotionTargets {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion target %q", value)
}
