package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
	"github.com/nguyenvotandat/runway-backend/internal/engine"
	"github.com/nguyenvotandat/runway-backend/internal/event"
	"github.com/nguyenvotandat/runway-backend/internal/repository"
	apperrors "github.com/nguyenvotandat/runway-backend/pkg/errors"
)

const (
	minPriority = 0
	maxPriority = 100
)

// RuleInput describes one targeting rule of a campaign being created.
type RuleInput struct {
	RuleType    string
	TargetType  string
	TargetID    string
	MinQuantity int
	Conditions  *domain.RuleConditions
}

// CreateCampaignInput carries the fields accepted when creating a campaign.
type CreateCampaignInput struct {
	Name           string
	Description    string
	Code           string
	DiscountType   string
	DiscountValue  int64
	MaxDiscount    int64
	MinOrderValue  int64
	StartDate      time.Time
	EndDate        time.Time
	MaxUses        int
	MaxUsesPerUser int
	Status         string
	Priority       int
	IsAutoApply    bool
	Rules          []RuleInput
}

// UpdateCampaignInput carries the restricted set of mutable campaign fields.
// Nil pointers leave the current value unchanged.
type UpdateCampaignInput struct {
	Name        *string
	Description *string
	Status      *string
	Priority    *int
	MaxUses     *int
	EndDate     *time.Time
}

// CampaignService owns campaign administration and fronts the eligibility
// engine for voucher operations.
type CampaignService struct {
	repo      repository.CampaignRepository
	engine    *engine.Engine
	publisher *event.Publisher
	logger    *slog.Logger
}

// NewCampaignService creates a campaign service.
func NewCampaignService(repo repository.CampaignRepository, eng *engine.Engine, publisher *event.Publisher, logger *slog.Logger) *CampaignService {
	return &CampaignService{
		repo:      repo,
		engine:    eng,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateCampaign validates the input, persists the campaign atomically with
// its rules, and emits a created event.
func (s *CampaignService) CreateCampaign(ctx context.Context, input CreateCampaignInput) (*domain.Campaign, error) {
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &domain.Campaign{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Code:           strings.ToUpper(strings.TrimSpace(input.Code)),
		DiscountType:   input.DiscountType,
		DiscountValue:  input.DiscountValue,
		MaxDiscount:    input.MaxDiscount,
		MinOrderValue:  input.MinOrderValue,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		MaxUses:        input.MaxUses,
		MaxUsesPerUser: input.MaxUsesPerUser,
		Status:         input.Status,
		Priority:       input.Priority,
		IsAutoApply:    input.IsAutoApply,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c.Status == "" {
		c.Status = domain.CampaignStatusDraft
	}

	c.Rules = make([]domain.CampaignRule, 0, len(input.Rules))
	for _, r := range input.Rules {
		c.Rules = append(c.Rules, domain.CampaignRule{
			ID:          uuid.New().String(),
			CampaignID:  c.ID,
			RuleType:    r.RuleType,
			TargetType:  r.TargetType,
			TargetID:    r.TargetID,
			MinQuantity: r.MinQuantity,
			Conditions:  r.Conditions,
			CreatedAt:   now,
		})
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "campaign created",
		slog.String("campaign_id", c.ID),
		slog.String("name", c.Name),
		slog.String("status", c.Status),
	)
	s.publisher.CampaignCreated(ctx, c)

	return c, nil
}

// GetCampaign retrieves a campaign by id.
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("campaign", id)
		}
		return nil, err
	}
	return c, nil
}

// GetCampaignByCode retrieves a campaign by its voucher code. Codes are
// case-insensitive, matching the engine's lookup behavior.
func (s *CampaignService) GetCampaignByCode(ctx context.Context, code string) (*domain.Campaign, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperrors.InvalidInput("campaign code is required")
	}

	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("campaign", code)
		}
		return nil, err
	}
	return c, nil
}

// ListCampaigns returns campaigns, optionally filtered by status, ordered by
// priority descending then recency.
func (s *CampaignService) ListCampaigns(ctx context.Context, status string) ([]domain.Campaign, error) {
	filter := repository.CampaignFilter{}
	if status != "" {
		status = strings.ToUpper(status)
		if !domain.IsValidStatus(status) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of %s",
				status, strings.Join(domain.ValidStatuses(), ", ")))
		}
		filter.Status = &status
	}
	return s.repo.List(ctx, filter)
}

// UpdateCampaign applies the restricted set of mutable fields to an existing
// campaign. Discount configuration, dates other than the end date, the code,
// and the rule set cannot be changed after creation.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id string, input UpdateCampaignInput) (*domain.Campaign, error) {
	c, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("campaign name must not be empty")
		}
		c.Name = name
	}
	if input.Description != nil {
		c.Description = *input.Description
	}
	if input.Status != nil {
		if !domain.IsValidStatus(*input.Status) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of %s",
				*input.Status, strings.Join(domain.ValidStatuses(), ", ")))
		}
		c.Status = *input.Status
	}
	if input.Priority != nil {
		if *input.Priority < minPriority || *input.Priority > maxPriority {
			return nil, apperrors.InvalidInput(fmt.Sprintf("priority must be between %d and %d", minPriority, maxPriority))
		}
		c.Priority = *input.Priority
	}
	if input.MaxUses != nil {
		if *input.MaxUses < 0 {
			return nil, apperrors.InvalidInput("max uses must not be negative")
		}
		c.MaxUses = *input.MaxUses
	}
	if input.EndDate != nil {
		if !input.EndDate.After(c.StartDate) {
			return nil, apperrors.InvalidInput("end date must be after start date")
		}
		c.EndDate = *input.EndDate
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "campaign updated",
		slog.String("campaign_id", c.ID),
		slog.String("status", c.Status),
	)
	s.publisher.CampaignUpdated(ctx, c)

	return c, nil
}

// DeleteCampaign removes a campaign and its rules. Usage history survives.
func (s *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "campaign deleted", slog.String("campaign_id", id))
	s.publisher.CampaignDeleted(ctx, id)

	return nil
}

// GetCampaignStats aggregates campaign usage. The used counter is the
// authoritative source for total uses and the usage rate; the usage history
// rows supply distinct users and savings.
func (s *CampaignService) GetCampaignStats(ctx context.Context, id string) (*domain.CampaignStats, error) {
	c, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	usages, err := s.repo.ListUserUsages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list campaign usages: %w", err)
	}

	stats := &domain.CampaignStats{
		CampaignID: c.ID,
		Name:       c.Name,
		Status:     c.Status,
		TotalUses:  c.UsedCount,
		MaxUses:    c.MaxUses,
	}

	users := make(map[string]struct{}, len(usages))
	for _, u := range usages {
		users[u.UserID] = struct{}{}
		stats.TotalSavings += u.DiscountAmount
	}
	stats.TotalUsers = len(users)

	if stats.TotalUses > 0 {
		stats.AverageSavings = stats.TotalSavings / int64(stats.TotalUses)
	}
	if c.MaxUses > 0 {
		rate := float64(c.UsedCount) / float64(c.MaxUses) * 100
		stats.UsageRate = &rate
	}

	return stats, nil
}

// ValidateVoucher checks whether a code applies to the cart without
// consuming a use.
func (s *CampaignService) ValidateVoucher(ctx context.Context, code, userID string, items []domain.CartItem) (*domain.EligibilityResult, error) {
	return s.engine.Evaluate(ctx, code, userID, items)
}

// RedeemVoucher consumes one use of the campaign at checkout and emits a
// redemption event.
func (s *CampaignService) RedeemVoucher(ctx context.Context, code, userID, orderID string, items []domain.CartItem) (*domain.CampaignUserUsage, error) {
	usage, err := s.engine.Redeem(ctx, code, userID, orderID, items)
	if err != nil {
		return nil, err
	}

	s.publisher.VoucherRedeemed(ctx, usage)

	return usage, nil
}

// AutoApply finds the best automatically applicable campaign for the cart.
func (s *CampaignService) AutoApply(ctx context.Context, userID string, items []domain.CartItem) (*domain.EligibilityResult, error) {
	return s.engine.BestAutoApply(ctx, userID, items)
}

func validateCreate(input *CreateCampaignInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.InvalidInput("campaign name is required")
	}
	if !domain.IsValidDiscountType(input.DiscountType) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid discount type %q, must be one of %s",
			input.DiscountType, strings.Join(domain.ValidDiscountTypes(), ", ")))
	}
	if input.DiscountValue < 0 {
		return apperrors.InvalidInput("discount value must not be negative")
	}
	if input.DiscountType == domain.DiscountTypePercentage && input.DiscountValue > 100 {
		return apperrors.InvalidInput("percentage discount value must not exceed 100")
	}
	if input.MaxDiscount < 0 {
		return apperrors.InvalidInput("max discount must not be negative")
	}
	if input.MinOrderValue < 0 {
		return apperrors.InvalidInput("min order value must not be negative")
	}
	if input.MaxUses < 0 || input.MaxUsesPerUser < 0 {
		return apperrors.InvalidInput("usage limits must not be negative")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return apperrors.InvalidInput("start date and end date are required")
	}
	if !input.EndDate.After(input.StartDate) {
		return apperrors.InvalidInput("end date must be after start date")
	}
	if input.Status != "" && !domain.IsValidStatus(input.Status) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of %s",
			input.Status, strings.Join(domain.ValidStatuses(), ", ")))
	}
	if input.Priority < minPriority || input.Priority > maxPriority {
		return apperrors.InvalidInput(fmt.Sprintf("priority must be between %d and %d", minPriority, maxPriority))
	}
	if len(input.Rules) == 0 {
		return apperrors.InvalidInput("at least one targeting rule is required")
	}

	for i, r := range input.Rules {
		if !domain.IsValidRuleType(r.RuleType) {
			return apperrors.InvalidInput(fmt.Sprintf("rule %d: invalid rule type %q", i, r.RuleType))
		}
		if !domain.IsValidTargetType(r.TargetType) {
			return apperrors.InvalidInput(fmt.Sprintf("rule %d: invalid target type %q", i, r.TargetType))
		}
		if domain.RequiresTargetID(r.TargetType) && r.TargetID == "" {
			return apperrors.InvalidInput(fmt.Sprintf("rule %d: target id is required for target type %s", i, r.TargetType))
		}
		if r.MinQuantity < 0 {
			return apperrors.InvalidInput(fmt.Sprintf("rule %d: min quantity must not be negative", i))
		}
		if r.TargetType == domain.TargetTypePriceRange {
			if r.Conditions == nil {
				return apperrors.InvalidInput(fmt.Sprintf("rule %d: price range rules require conditions", i))
			}
			if r.Conditions.MinPrice < 0 || r.Conditions.MaxPrice < 0 {
				return apperrors.InvalidInput(fmt.Sprintf("rule %d: price bounds must not be negative", i))
			}
			if r.Conditions.MaxPrice > 0 && r.Conditions.MaxPrice < r.Conditions.MinPrice {
				return apperrors.InvalidInput(fmt.Sprintf("rule %d: max price must not be below min price", i))
			}
		}
	}

	return nil
}
