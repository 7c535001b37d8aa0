package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
)

func includeRule(targetType, targetID string) domain.CampaignRule {
	return domain.CampaignRule{
		RuleType:   domain.RuleTypeInclude,
		TargetType: targetType,
		TargetID:   targetID,
	}
}

func excludeRule(targetType, targetID string) domain.CampaignRule {
	return domain.CampaignRule{
		RuleType:   domain.RuleTypeExclude,
		TargetType: targetType,
		TargetID:   targetID,
	}
}

func TestCovers_EmptyRuleSetCoversNothing(t *testing.T) {
	item := domain.CartItem{VariantID: "v1", Quantity: 1, Price: 1000}
	assert.False(t, Covers(nil, item))
	assert.False(t, Covers([]domain.CampaignRule{}, item))
}

func TestCovers_AllProductsInclude(t *testing.T) {
	rules := []domain.CampaignRule{includeRule(domain.TargetTypeAllProducts, "")}
	item := domain.CartItem{VariantID: "v1", Quantity: 1, Price: 1000}
	assert.True(t, Covers(rules, item))
}

func TestCovers_ExcludeVetoesInclude(t *testing.T) {
	rules := []domain.CampaignRule{
		includeRule(domain.TargetTypeAllProducts, ""),
		excludeRule(domain.TargetTypeBrand, "brand-acme"),
	}

	excluded := domain.CartItem{VariantID: "v1", Quantity: 1, Price: 1000, BrandID: "brand-acme"}
	kept := domain.CartItem{VariantID: "v2", Quantity: 1, Price: 1000, BrandID: "brand-other"}

	assert.False(t, Covers(rules, excluded))
	assert.True(t, Covers(rules, kept))
}

func TestCovers_CategoryInclude(t *testing.T) {
	rules := []domain.CampaignRule{includeRule(domain.TargetTypeCategory, "cat-shoes")}

	match := domain.CartItem{VariantID: "v1", Quantity: 1, Price: 1000, CategoryID: "cat-shoes"}
	noMatch := domain.CartItem{VariantID: "v2", Quantity: 1, Price: 1000, CategoryID: "cat-hats"}
	noData := domain.CartItem{VariantID: "v3", Quantity: 1, Price: 1000}

	assert.True(t, Covers(rules, match))
	assert.False(t, Covers(rules, noMatch))
	assert.False(t, Covers(rules, noData))
}

func TestCovers_SpecificProductAndVariant(t *testing.T) {
	productRules := []domain.CampaignRule{includeRule(domain.TargetTypeSpecificProduct, "prod-1")}
	variantRules := []domain.CampaignRule{includeRule(domain.TargetTypeProductVariant, "var-1")}

	item := domain.CartItem{VariantID: "var-1", ProductID: "prod-1", Quantity: 1, Price: 500}
	other := domain.CartItem{VariantID: "var-2", ProductID: "prod-2", Quantity: 1, Price: 500}

	assert.True(t, Covers(productRules, item))
	assert.False(t, Covers(productRules, other))
	assert.True(t, Covers(variantRules, item))
	assert.False(t, Covers(variantRules, other))
}

func TestCovers_TagMatchesAnyTag(t *testing.T) {
	rules := []domain.CampaignRule{includeRule(domain.TargetTypeTag, "clearance")}

	tagged := domain.CartItem{VariantID: "v1", Quantity: 1, Price: 1000, Tags: []string{"new", "clearance"}}
	untagged := domain.CartItem{VariantID: "v2", Quantity: 1, Price: 1000, Tags: []string{"new"}}
	noTags := domain.CartItem{VariantID: "v3", Quantity: 1, Price: 1000}

	assert.True(t, Covers(rules, tagged))
	assert.False(t, Covers(rules, untagged))
	assert.False(t, Covers(rules, noTags))
}

func TestCovers_PriceRange(t *testing.T) {
	rules := []domain.CampaignRule{{
		RuleType:   domain.RuleTypeInclude,
		TargetType: domain.TargetTypePriceRange,
		Conditions: &domain.RuleConditions{MinPrice: 1000, MaxPrice: 5000},
	}}

	assert.True(t, Covers(rules, domain.CartItem{VariantID: "v1", Quantity: 1, Price: 1000}))
	assert.True(t, Covers(rules, domain.CartItem{VariantID: "v2", Quantity: 1, Price: 5000}))
	assert.False(t, Covers(rules, domain.CartItem{VariantID: "v3", Quantity: 1, Price: 999}))
	assert.False(t, Covers(rules, domain.CartItem{VariantID: "v4", Quantity: 1, Price: 5001}))
}

func TestCovers_PriceRangeUnboundedAbove(t *testing.T) {
	rules := []domain.CampaignRule{{
		RuleType:   domain.RuleTypeInclude,
		TargetType: domain.TargetTypePriceRange,
		Conditions: &domain.RuleConditions{MinPrice: 1000},
	}}

	assert.True(t, Covers(rules, domain.CartItem{VariantID: "v1", Quantity: 1, Price: 10_000_000}))
	assert.False(t, Covers(rules, domain.CartItem{VariantID: "v2", Quantity: 1, Price: 500}))
}

func TestCovers_PriceRangeWithoutConditionsNeverMatches(t *testing.T) {
	rules := []domain.CampaignRule{{
		RuleType:   domain.RuleTypeInclude,
		TargetType: domain.TargetTypePriceRange,
	}}
	assert.False(t, Covers(rules, domain.CartItem{VariantID: "v1", Quantity: 1, Price: 1000}))
}

func TestCovers_MinQuantityGate(t *testing.T) {
	rules := []domain.CampaignRule{{
		RuleType:    domain.RuleTypeInclude,
		TargetType:  domain.TargetTypeAllProducts,
		MinQuantity: 3,
	}}

	assert.False(t, Covers(rules, domain.CartItem{VariantID: "v1", Quantity: 2, Price: 1000}))
	assert.True(t, Covers(rules, domain.CartItem{VariantID: "v1", Quantity: 3, Price: 1000}))
}

func TestCovers_UnknownTargetTypeNeverMatches(t *testing.T) {
	rules := []domain.CampaignRule{includeRule("SOMETHING_NEW", "x")}
	assert.False(t, Covers(rules, domain.CartItem{VariantID: "v1", Quantity: 1, Price: 1000}))
}

func TestPartition_SplitsQualifyingFromTotal(t *testing.T) {
	rules := []domain.CampaignRule{includeRule(domain.TargetTypeCategory, "cat-shoes")}

	items := []domain.CartItem{
		{VariantID: "v1", Quantity: 2, Price: 1500, CategoryID: "cat-shoes"},
		{VariantID: "v2", Quantity: 1, Price: 4000, CategoryID: "cat-hats"},
	}

	qualifying, total := Partition(rules, items)
	assert.Equal(t, int64(3000), qualifying)
	assert.Equal(t, int64(7000), total)
}

func TestPartition_EmptyCart(t *testing.T) {
	rules := []domain.CampaignRule{includeRule(domain.TargetTypeAllProducts, "")}
	qualifying, total := Partition(rules, nil)
	assert.Zero(t, qualifying)
	assert.Zero(t, total)
}
