package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
	"github.com/nguyenvotandat/runway-backend/internal/repository"
	apperrors "github.com/nguyenvotandat/runway-backend/pkg/errors"
)

// Verdict reason strings returned to callers when a voucher is rejected.
// Callers display these to end users, so they are stable contract.
const (
	ReasonNoCode          = "no campaign code provided"
	ReasonInvalidCode     = "invalid campaign code"
	ReasonNotActive       = "campaign is not active"
	ReasonNotStarted      = "campaign has not started yet"
	ReasonExpired         = "campaign has expired"
	ReasonUsageLimit      = "campaign usage limit reached"
	ReasonPerUserLimit    = "per-user usage limit reached"
	ReasonNoQualifying    = "no qualifying items in cart"
	ReasonNoAutoApply     = "no applicable campaign"
	reasonMinOrderValueFm = "minimum order value of %d not met"
)

// redeemRetryAttempts bounds local retries of the redemption transaction on
// concurrency conflicts before surfacing the failure to the caller.
const redeemRetryAttempts = 3

// Engine evaluates campaign eligibility and performs redemptions against an
// injected campaign store. Evaluation is a pure read path; only Redeem
// mutates state.
type Engine struct {
	store  repository.CampaignRepository
	logger *slog.Logger
	now    func() time.Time
}

// New creates an eligibility engine backed by the given store.
func New(store repository.CampaignRepository, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate decides whether the voucher code applies to the cart for the user
// and computes the discount. Rejections are results with a reason, never
// errors; an error return means the store itself failed.
func (e *Engine) Evaluate(ctx context.Context, code, userID string, items []domain.CartItem) (*domain.EligibilityResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return &domain.EligibilityResult{Eligible: false, Reason: ReasonNoCode}, nil
	}

	campaign, err := e.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Deliberately indistinguishable from a never-issued code.
			return &domain.EligibilityResult{Eligible: false, Reason: ReasonInvalidCode}, nil
		}
		return nil, fmt.Errorf("get campaign by code: %w", err)
	}

	return e.EvaluateCampaign(ctx, campaign, userID, items)
}

// EvaluateCampaign runs the verdict sequence against an already-loaded
// campaign. Checks short-circuit on the first failure; each failure carries a
// distinct reason.
func (e *Engine) EvaluateCampaign(ctx context.Context, c *domain.Campaign, userID string, items []domain.CartItem) (*domain.EligibilityResult, error) {
	now := e.now()

	if c.Status != domain.CampaignStatusActive {
		return &domain.EligibilityResult{Eligible: false, Reason: ReasonNotActive}, nil
	}
	if now.Before(c.StartDate) {
		return &domain.EligibilityResult{Eligible: false, Reason: ReasonNotStarted}, nil
	}
	if now.After(c.EndDate) {
		return &domain.EligibilityResult{Eligible: false, Reason: ReasonExpired}, nil
	}

	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return &domain.EligibilityResult{Eligible: false, Reason: ReasonUsageLimit}, nil
	}

	if c.MaxUsesPerUser > 0 && userID != "" {
		used, err := e.store.CountUserUsage(ctx, c.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("count user usage: %w", err)
		}
		if used >= c.MaxUsesPerUser {
			return &domain.EligibilityResult{Eligible: false, Reason: ReasonPerUserLimit}, nil
		}
	}

	qualifyingSubtotal, cartTotal := Partition(c.Rules, items)

	if c.MinOrderValue > 0 && cartTotal < c.MinOrderValue {
		return &domain.EligibilityResult{
			Eligible: false,
			Reason:   fmt.Sprintf(reasonMinOrderValueFm, c.MinOrderValue),
		}, nil
	}

	if qualifyingSubtotal == 0 {
		return &domain.EligibilityResult{Eligible: false, Reason: ReasonNoQualifying}, nil
	}

	if !domain.IsValidDiscountType(c.DiscountType) {
		// Data-integrity anomaly: grant nothing, but make it visible.
		e.logger.WarnContext(ctx, "campaign has unknown discount type",
			slog.String("campaign_id", c.ID),
			slog.String("discount_type", c.DiscountType),
		)
	}

	discount, freeShipping := CalculateDiscount(c, qualifyingSubtotal)

	finalPrice := cartTotal - discount
	if finalPrice < 0 {
		finalPrice = 0
	}

	return &domain.EligibilityResult{
		Eligible:       true,
		Campaign:       c,
		DiscountAmount: discount,
		FinalPrice:     finalPrice,
		FreeShipping:   freeShipping,
	}, nil
}

// BestAutoApply evaluates all active auto-apply campaigns against the cart
// and returns the verdict of the highest-priority eligible one. The store
// orders campaigns by priority descending, then recency, so the first
// eligible campaign wins.
func (e *Engine) BestAutoApply(ctx context.Context, userID string, items []domain.CartItem) (*domain.EligibilityResult, error) {
	status := domain.CampaignStatusActive
	campaigns, err := e.store.List(ctx, repository.CampaignFilter{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("list active campaigns: %w", err)
	}

	for i := range campaigns {
		c := &campaigns[i]
		if !c.IsAutoApply {
			continue
		}
		result, err := e.EvaluateCampaign(ctx, c, userID, items)
		if err != nil {
			return nil, err
		}
		if result.Eligible {
			return result, nil
		}
	}

	return &domain.EligibilityResult{Eligible: false, Reason: ReasonNoAutoApply}, nil
}

// Redeem consumes one use of the campaign for a confirmed checkout. It
// re-evaluates eligibility, then delegates the atomic counter increment and
// usage-record append to the store, retrying a bounded number of times with
// backoff when concurrent redemptions conflict.
func (e *Engine) Redeem(ctx context.Context, code, userID, orderID string, items []domain.CartItem) (*domain.CampaignUserUsage, error) {
	result, err := e.Evaluate(ctx, code, userID, items)
	if err != nil {
		return nil, fmt.Errorf("evaluate for redemption: %w", err)
	}
	if !result.Eligible {
		return nil, apperrors.InvalidInput(result.Reason)
	}

	var cartTotal int64
	for _, item := range items {
		cartTotal += item.LineTotal()
	}

	usage := &domain.CampaignUserUsage{
		ID:             uuid.New().String(),
		CampaignID:     result.Campaign.ID,
		UserID:         userID,
		OrderID:        orderID,
		OrderValue:     cartTotal,
		DiscountAmount: result.DiscountAmount,
		UsedAt:         e.now(),
	}

	var lastErr error
	for attempt := 0; attempt < redeemRetryAttempts; attempt++ {
		err := e.store.Redeem(ctx, usage)
		if err == nil {
			e.logger.InfoContext(ctx, "voucher redeemed",
				slog.String("campaign_id", usage.CampaignID),
				slog.String("user_id", userID),
				slog.Int64("discount_amount", usage.DiscountAmount),
			)
			return usage, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		lastErr = err
		if attempt < redeemRetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("redeem: context canceled during retry: %w", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
			}
		}
	}

	return nil, fmt.Errorf("redeem campaign after %d attempts: %w", redeemRetryAttempts, lastErr)
}
