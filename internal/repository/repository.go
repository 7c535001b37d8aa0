package repository

import (
	"context"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
)

// CampaignFilter defines filter criteria for listing campaigns.
type CampaignFilter struct {
	Status *string
}

// CampaignRepository defines the persistence contract consumed by the
// eligibility engine and the administration service.
type CampaignRepository interface {
	// Create inserts a campaign together with its rules in one atomic
	// operation. A campaign is never visible without its rules.
	Create(ctx context.Context, campaign *domain.Campaign) error

	// GetByID retrieves a campaign with its rules by id.
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)

	// GetByCode retrieves a campaign with its rules by voucher code.
	GetByCode(ctx context.Context, code string) (*domain.Campaign, error)

	// List returns campaigns matching the filter, ordered by priority
	// descending and then by creation time descending.
	List(ctx context.Context, filter CampaignFilter) ([]domain.Campaign, error)

	// Update modifies an existing campaign. Rules are immutable and are not
	// touched by updates.
	Update(ctx context.Context, campaign *domain.Campaign) error

	// Delete removes a campaign and, by cascade, its rules. Usage history
	// is retained.
	Delete(ctx context.Context, id string) error

	// CountUserUsage returns how many times the user has redeemed the campaign.
	CountUserUsage(ctx context.Context, campaignID, userID string) (int, error)

	// ListUserUsages returns the full redemption history of a campaign.
	ListUserUsages(ctx context.Context, campaignID string) ([]domain.CampaignUserUsage, error)

	// Redeem appends a usage record and increments the campaign's used
	// counter in one atomic transaction. It re-checks the global and
	// per-user quotas under lock and returns errors.ErrQuotaExceeded when a
	// quota would be overrun, so two concurrent redemptions never both
	// succeed on the last remaining slot.
	Redeem(ctx context.Context, usage *domain.CampaignUserUsage) error
}
