package engine

import (
	"github.com/nguyenvotandat/runway-backend/internal/domain"
)

// Covers reports whether a cart item is covered by a campaign's rule set.
//
// INCLUDE rules are evaluated first: the item must match at least one of them
// to be covered. EXCLUDE rules then veto: any matching EXCLUDE rule removes
// the item regardless of the INCLUDE result. An empty rule set covers nothing,
// so campaigns must carry an explicit ALL_PRODUCTS INCLUDE rule to target the
// whole catalog.
func Covers(rules []domain.CampaignRule, item domain.CartItem) bool {
	included := false
	for _, r := range rules {
		if r.RuleType != domain.RuleTypeInclude {
			continue
		}
		if ruleMatches(r, item) {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, r := range rules {
		if r.RuleType != domain.RuleTypeExclude {
			continue
		}
		if ruleMatches(r, item) {
			return false
		}
	}

	return true
}

// ruleMatches reports whether a single rule matches the item. Unknown target
// types and rules missing required data never match.
func ruleMatches(r domain.CampaignRule, item domain.CartItem) bool {
	if r.MinQuantity > 0 && item.Quantity < r.MinQuantity {
		return false
	}

	switch r.TargetType {
	case domain.TargetTypeAllProducts:
		return true

	case domain.TargetTypeSpecificProduct:
		return r.TargetID != "" && item.ProductID == r.TargetID

	case domain.TargetTypeProductVariant:
		return r.TargetID != "" && item.VariantID == r.TargetID

	case domain.TargetTypeCategory:
		return r.TargetID != "" && item.CategoryID == r.TargetID

	case domain.TargetTypeBrand:
		return r.TargetID != "" && item.BrandID == r.TargetID

	case domain.TargetTypeTag:
		if r.TargetID == "" {
			return false
		}
		for _, tag := range item.Tags {
			if tag == r.TargetID {
				return true
			}
		}
		return false

	case domain.TargetTypePriceRange:
		if r.Conditions == nil {
			return false
		}
		if item.Price < r.Conditions.MinPrice {
			return false
		}
		if r.Conditions.MaxPrice > 0 && item.Price > r.Conditions.MaxPrice {
			return false
		}
		return true

	default:
		return false
	}
}

// Partition splits cart items into the subtotal of items covered by the rule
// set and the total over all items.
func Partition(rules []domain.CampaignRule, items []domain.CartItem) (qualifyingSubtotal, cartTotal int64) {
	for _, item := range items {
		line := item.LineTotal()
		cartTotal += line
		if Covers(rules, item) {
			qualifyingSubtotal += line
		}
	}
	return qualifyingSubtotal, cartTotal
}
