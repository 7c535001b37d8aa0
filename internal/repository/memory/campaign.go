package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
	"github.com/nguyenvotandat/runway-backend/internal/repository"
	apperrors "github.com/nguyenvotandat/runway-backend/pkg/errors"
)

// CampaignRepository is an in-memory implementation of the campaign store,
// used in tests and local development. All quota checks in Redeem run under
// the write lock, so concurrent redemptions observe the same guarantees as
// the transactional PostgreSQL implementation.
type CampaignRepository struct {
	mu        sync.RWMutex
	campaigns map[string]*domain.Campaign
	byCode    map[string]string
	usages    []domain.CampaignUserUsage
}

// NewCampaignRepository creates an empty in-memory campaign repository.
func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{
		campaigns: make(map[string]*domain.Campaign),
		byCode:    make(map[string]string),
	}
}

func (r *CampaignRepository) Create(_ context.Context, c *domain.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.campaigns[c.ID]; ok {
		return apperrors.AlreadyExists("campaign", "id", c.ID)
	}
	if c.Code != "" {
		if _, ok := r.byCode[c.Code]; ok {
			return apperrors.AlreadyExists("campaign", "code", c.Code)
		}
	}

	stored := cloneCampaign(c)
	r.campaigns[c.ID] = stored
	if c.Code != "" {
		r.byCode[c.Code] = c.ID
	}

	return nil
}

func (r *CampaignRepository) GetByID(_ context.Context, id string) (*domain.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.campaigns[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneCampaign(c), nil
}

func (r *CampaignRepository) GetByCode(_ context.Context, code string) (*domain.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneCampaign(r.campaigns[id]), nil
}

func (r *CampaignRepository) List(_ context.Context, filter repository.CampaignFilter) ([]domain.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	campaigns := make([]domain.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		campaigns = append(campaigns, *cloneCampaign(c))
	}

	sort.SliceStable(campaigns, func(i, j int) bool {
		if campaigns[i].Priority != campaigns[j].Priority {
			return campaigns[i].Priority > campaigns[j].Priority
		}
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})

	return campaigns, nil
}

func (r *CampaignRepository) Update(_ context.Context, c *domain.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.campaigns[c.ID]
	if !ok {
		return apperrors.NotFound("campaign", c.ID)
	}

	existing.Name = c.Name
	existing.Description = c.Description
	existing.Status = c.Status
	existing.Priority = c.Priority
	existing.MaxUses = c.MaxUses
	existing.EndDate = c.EndDate
	existing.UpdatedAt = time.Now().UTC()
	c.UpdatedAt = existing.UpdatedAt

	return nil
}

func (r *CampaignRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.campaigns[id]
	if !ok {
		return apperrors.NotFound("campaign", id)
	}

	delete(r.campaigns, id)
	if c.Code != "" {
		delete(r.byCode, c.Code)
	}

	return nil
}

func (r *CampaignRepository) CountUserUsage(_ context.Context, campaignID, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countUserUsageLocked(campaignID, userID), nil
}

func (r *CampaignRepository) ListUserUsages(_ context.Context, campaignID string) ([]domain.CampaignUserUsage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	usages := make([]domain.CampaignUserUsage, 0)
	for _, u := range r.usages {
		if u.CampaignID == campaignID {
			usages = append(usages, u)
		}
	}

	return usages, nil
}

func (r *CampaignRepository) Redeem(_ context.Context, usage *domain.CampaignUserUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.campaigns[usage.CampaignID]
	if !ok {
		return apperrors.NotFound("campaign", usage.CampaignID)
	}

	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return apperrors.QuotaExceeded("campaign usage limit reached")
	}
	if c.MaxUsesPerUser > 0 && r.countUserUsageLocked(c.ID, usage.UserID) >= c.MaxUsesPerUser {
		return apperrors.QuotaExceeded("per-user usage limit reached")
	}

	r.usages = append(r.usages, *usage)
	c.UsedCount++
	c.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *CampaignRepository) countUserUsageLocked(campaignID, userID string) int {
	count := 0
	for _, u := range r.usages {
		if u.CampaignID == campaignID && u.UserID == userID {
			count++
		}
	}
	return count
}

// cloneCampaign deep-copies a campaign so callers cannot mutate stored state.
func cloneCampaign(c *domain.Campaign) *domain.Campaign {
	cp := *c
	cp.Rules = make([]domain.CampaignRule, len(c.Rules))
	copy(cp.Rules, c.Rules)
	for i := range cp.Rules {
		if cp.Rules[i].Conditions != nil {
			cond := *cp.Rules[i].Conditions
			cp.Rules[i].Conditions = &cond
		}
	}
	return &cp
}
