package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidDiscountType(t *testing.T) {
	for _, dt := range ValidDiscountTypes() {
		assert.True(t, IsValidDiscountType(dt))
	}
	assert.False(t, IsValidDiscountType("percentage"))
	assert.False(t, IsValidDiscountType("BOGO"))
	assert.False(t, IsValidDiscountType(""))
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range ValidStatuses() {
		assert.True(t, IsValidStatus(s))
	}
	assert.False(t, IsValidStatus("active"))
	assert.False(t, IsValidStatus("ARCHIVED"))
}

func TestIsValidRuleType(t *testing.T) {
	assert.True(t, IsValidRuleType(RuleTypeInclude))
	assert.True(t, IsValidRuleType(RuleTypeExclude))
	assert.False(t, IsValidRuleType("include"))
	assert.False(t, IsValidRuleType(""))
}

func TestIsValidTargetType(t *testing.T) {
	for _, tt := range ValidTargetTypes() {
		assert.True(t, IsValidTargetType(tt))
	}
	assert.False(t, IsValidTargetType("SKU"))
}

func TestRequiresTargetID(t *testing.T) {
	assert.False(t, RequiresTargetID(TargetTypeAllProducts))
	assert.False(t, RequiresTargetID(TargetTypePriceRange))
	assert.True(t, RequiresTargetID(TargetTypeSpecificProduct))
	assert.True(t, RequiresTargetID(TargetTypeProductVariant))
	assert.True(t, RequiresTargetID(TargetTypeCategory))
	assert.True(t, RequiresTargetID(TargetTypeBrand))
	assert.True(t, RequiresTargetID(TargetTypeTag))
}

func TestCartItemLineTotal(t *testing.T) {
	item := CartItem{VariantID: "v1", Quantity: 3, Price: 1500}
	assert.Equal(t, int64(4500), item.LineTotal())

	empty := CartItem{VariantID: "v2", Quantity: 0, Price: 1500}
	assert.Zero(t, empty.LineTotal())
}
