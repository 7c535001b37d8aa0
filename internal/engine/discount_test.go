package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
)

func TestCalculateDiscount_Percentage(t *testing.T) {
	c := &domain.Campaign{DiscountType: domain.DiscountTypePercentage, DiscountValue: 25}

	discount, freeShipping := CalculateDiscount(c, 10000)
	assert.Equal(t, int64(2500), discount)
	assert.False(t, freeShipping)
}

func TestCalculateDiscount_PercentageRoundsHalfUp(t *testing.T) {
	c := &domain.Campaign{DiscountType: domain.DiscountTypePercentage, DiscountValue: 25}

	// 25% of 101 = 25.25, rounds down to 25.
	discount, _ := CalculateDiscount(c, 101)
	assert.Equal(t, int64(25), discount)

	// 25% of 102 = 25.5, rounds up to 26.
	discount, _ = CalculateDiscount(c, 102)
	assert.Equal(t, int64(26), discount)
}

func TestCalculateDiscount_PercentageCappedAtMaxDiscount(t *testing.T) {
	c := &domain.Campaign{
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 50,
		MaxDiscount:   2000,
	}

	discount, _ := CalculateDiscount(c, 10000)
	assert.Equal(t, int64(2000), discount)

	// Below the cap the raw value wins.
	discount, _ = CalculateDiscount(c, 3000)
	assert.Equal(t, int64(1500), discount)
}

func TestCalculateDiscount_PercentageZeroMaxDiscountMeansUncapped(t *testing.T) {
	c := &domain.Campaign{DiscountType: domain.DiscountTypePercentage, DiscountValue: 50}

	discount, _ := CalculateDiscount(c, 1_000_000)
	assert.Equal(t, int64(500_000), discount)
}

func TestCalculateDiscount_FixedAmount(t *testing.T) {
	c := &domain.Campaign{DiscountType: domain.DiscountTypeFixedAmount, DiscountValue: 1500}

	discount, freeShipping := CalculateDiscount(c, 10000)
	assert.Equal(t, int64(1500), discount)
	assert.False(t, freeShipping)
}

func TestCalculateDiscount_FixedAmountClampedToSubtotal(t *testing.T) {
	c := &domain.Campaign{DiscountType: domain.DiscountTypeFixedAmount, DiscountValue: 5000}

	discount, _ := CalculateDiscount(c, 3000)
	assert.Equal(t, int64(3000), discount)
}

func TestCalculateDiscount_FreeShipping(t *testing.T) {
	c := &domain.Campaign{DiscountType: domain.DiscountTypeFreeShipping}

	discount, freeShipping := CalculateDiscount(c, 10000)
	assert.Zero(t, discount)
	assert.True(t, freeShipping)
}

func TestCalculateDiscount_UnknownTypeGrantsNothing(t *testing.T) {
	c := &domain.Campaign{DiscountType: "LOYALTY_POINTS", DiscountValue: 100}

	discount, freeShipping := CalculateDiscount(c, 10000)
	assert.Zero(t, discount)
	assert.False(t, freeShipping)
}

func TestCalculateDiscount_ZeroSubtotal(t *testing.T) {
	c := &domain.Campaign{DiscountType: domain.DiscountTypeFixedAmount, DiscountValue: 500}

	discount, _ := CalculateDiscount(c, 0)
	assert.Zero(t, discount)
}
