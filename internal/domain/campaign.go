package domain

import (
	"time"
)

// Discount type constants.
const (
	DiscountTypePercentage   = "PERCENTAGE"
	DiscountTypeFixedAmount  = "FIXED_AMOUNT"
	DiscountTypeFreeShipping = "FREE_SHIPPING"
)

// Campaign status constants. Only ACTIVE campaigns are redeemable.
const (
	CampaignStatusDraft    = "DRAFT"
	CampaignStatusActive   = "ACTIVE"
	CampaignStatusPaused   = "PAUSED"
	CampaignStatusExpired  = "EXPIRED"
	CampaignStatusDisabled = "DISABLED"
)

// Rule type constants.
const (
	RuleTypeInclude = "INCLUDE"
	RuleTypeExclude = "EXCLUDE"
)

// Rule target type constants.
const (
	TargetTypeAllProducts     = "ALL_PRODUCTS"
	TargetTypeSpecificProduct = "SPECIFIC_PRODUCT"
	TargetTypeProductVariant  = "PRODUCT_VARIANT"
	TargetTypeCategory        = "CATEGORY"
	TargetTypeBrand           = "BRAND"
	TargetTypeTag             = "TAG"
	TargetTypePriceRange      = "PRICE_RANGE"
)

// Campaign represents a time-boxed, rule-scoped promotional discount offer.
// All monetary fields are integer minor currency units.
type Campaign struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Code           string    `json:"code,omitempty"`
	DiscountType   string    `json:"discount_type"`
	DiscountValue  int64     `json:"discount_value"`
	MaxDiscount    int64     `json:"max_discount,omitempty"`
	MinOrderValue  int64     `json:"min_order_value,omitempty"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	MaxUses        int       `json:"max_uses,omitempty"`
	MaxUsesPerUser int       `json:"max_uses_per_user,omitempty"`
	UsedCount      int       `json:"used_count"`
	Status         string    `json:"status"`
	Priority       int       `json:"priority"`
	IsAutoApply    bool      `json:"is_auto_apply"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Rules are created atomically with the campaign and immutable afterward.
	Rules []CampaignRule `json:"rules"`
}

// CampaignRule is a single targeting condition owned by exactly one campaign.
type CampaignRule struct {
	ID          string          `json:"id"`
	CampaignID  string          `json:"campaign_id"`
	RuleType    string          `json:"rule_type"`
	TargetType  string          `json:"target_type"`
	TargetID    string          `json:"target_id,omitempty"`
	MinQuantity int             `json:"min_quantity,omitempty"`
	Conditions  *RuleConditions `json:"conditions,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RuleConditions is the typed payload for PRICE_RANGE rules. A MaxPrice of
// zero means the range is unbounded above.
type RuleConditions struct {
	MinPrice int64 `json:"min_price"`
	MaxPrice int64 `json:"max_price,omitempty"`
}

// CampaignUserUsage records one redemption of a campaign by a user.
// Rows are append-only and never mutated after creation.
type CampaignUserUsage struct {
	ID             string    `json:"id"`
	CampaignID     string    `json:"campaign_id"`
	UserID         string    `json:"user_id"`
	OrderID        string    `json:"order_id,omitempty"`
	OrderValue     int64     `json:"order_value"`
	DiscountAmount int64     `json:"discount_amount"`
	UsedAt         time.Time `json:"used_at"`
}

// CartItem is one line of the cart being checked out. It is transient input
// to the eligibility engine and never persisted here.
type CartItem struct {
	VariantID  string   `json:"variant_id"`
	Quantity   int      `json:"quantity"`
	Price      int64    `json:"price"`
	ProductID  string   `json:"product_id,omitempty"`
	CategoryID string   `json:"category_id,omitempty"`
	BrandID    string   `json:"brand_id,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// LineTotal returns price times quantity for the item.
func (i CartItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// EligibilityResult is the structured verdict returned by the eligibility
// engine. Reason is set exactly when Eligible is false.
type EligibilityResult struct {
	Eligible       bool      `json:"eligible"`
	Reason         string    `json:"reason,omitempty"`
	Campaign       *Campaign `json:"campaign,omitempty"`
	DiscountAmount int64     `json:"discount_amount"`
	FinalPrice     int64     `json:"final_price"`
	FreeShipping   bool      `json:"free_shipping"`
}

// CampaignStats aggregates the usage history of a campaign.
type CampaignStats struct {
	CampaignID     string   `json:"campaign_id"`
	Name           string   `json:"name"`
	Status         string   `json:"status"`
	TotalUses      int      `json:"total_uses"`
	MaxUses        int      `json:"max_uses,omitempty"`
	TotalUsers     int      `json:"total_users"`
	TotalSavings   int64    `json:"total_savings"`
	AverageSavings int64    `json:"average_savings"`
	UsageRate      *float64 `json:"usage_rate,omitempty"`
}

// ValidDiscountTypes returns the set of valid discount types.
func ValidDiscountTypes() []string {
	return []string{
		DiscountTypePercentage,
		DiscountTypeFixedAmount,
		DiscountTypeFreeShipping,
	}
}

// IsValidDiscountType checks whether t is a valid discount type.
func IsValidDiscountType(t string) bool {
	for _, v := range ValidDiscountTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// ValidStatuses returns the set of valid campaign statuses.
func ValidStatuses() []string {
	return []string{
		CampaignStatusDraft,
		CampaignStatusActive,
		CampaignStatusPaused,
		CampaignStatusExpired,
		CampaignStatusDisabled,
	}
}

// IsValidStatus checks whether status is a valid campaign status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ValidRuleTypes returns the set of valid rule types.
func ValidRuleTypes() []string {
	return []string{RuleTypeInclude, RuleTypeExclude}
}

// IsValidRuleType checks whether t is a valid rule type.
func IsValidRuleType(t string) bool {
	return t == RuleTypeInclude || t == RuleTypeExclude
}

// ValidTargetTypes returns the set of valid rule target types.
func ValidTargetTypes() []string {
	return []string{
		TargetTypeAllProducts,
		TargetTypeSpecificProduct,
		TargetTypeProductVariant,
		TargetTypeCategory,
		TargetTypeBrand,
		TargetTypeTag,
		TargetTypePriceRange,
	}
}

// IsValidTargetType checks whether t is a valid rule target type.
func IsValidTargetType(t string) bool {
	for _, v := range ValidTargetTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// RequiresTargetID reports whether rules of the given target type must carry
// a target id. ALL_PRODUCTS targets everything and PRICE_RANGE carries its
// bounds in Conditions instead.
func RequiresTargetID(targetType string) bool {
	return targetType != TargetTypeAllProducts && targetType != TargetTypePriceRange
}
