package engine

import (
	"github.com/nguyenvotandat/runway-backend/internal/domain"
)

// CalculateDiscount computes the monetary discount a campaign grants on the
// qualifying subtotal and whether it waives the shipping fee. It is a pure
// function over integer minor currency units.
//
// PERCENTAGE discounts are rounded half up to the minor unit and capped at
// MaxDiscount when set. FIXED_AMOUNT discounts never exceed the subtotal.
// FREE_SHIPPING grants no cart-line discount and is reported via the flag.
// Unknown discount types grant nothing (fail closed).
func CalculateDiscount(c *domain.Campaign, qualifyingSubtotal int64) (discount int64, freeShipping bool) {
	if qualifyingSubtotal < 0 {
		return 0, false
	}

	switch c.DiscountType {
	case domain.DiscountTypePercentage:
		// DiscountValue is a whole percentage, e.g. 25 for 25%.
		discount = (qualifyingSubtotal*c.DiscountValue + 50) / 100
		if c.MaxDiscount > 0 && discount > c.MaxDiscount {
			discount = c.MaxDiscount
		}
		return discount, false

	case domain.DiscountTypeFixedAmount:
		if c.DiscountValue > qualifyingSubtotal {
			return qualifyingSubtotal, false
		}
		return c.DiscountValue, false

	case domain.DiscountTypeFreeShipping:
		return 0, true

	default:
		return 0, false
	}
}
