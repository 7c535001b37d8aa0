package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
	"github.com/nguyenvotandat/runway-backend/internal/repository"
)

// CampaignRepository decorates another campaign store with a Redis
// read-through cache on the hot lookup paths, GetByCode and GetByID. Writes
// pass through and invalidate. Cache failures are logged and degrade to the
// underlying store, never to an error for the caller.
type CampaignRepository struct {
	next   repository.CampaignRepository
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewCampaignRepository wraps next with a Redis cache using the given TTL.
func NewCampaignRepository(next repository.CampaignRepository, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func codeKey(code string) string { return "campaign:code:" + code }
func idKey(id string) string     { return "campaign:id:" + id }

func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	if err := r.next.Create(ctx, c); err != nil {
		return err
	}
	r.invalidate(ctx, c)
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	if c, ok := r.cacheGet(ctx, idKey(id)); ok {
		return c, nil
	}

	c, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheSet(ctx, idKey(id), c)
	return c, nil
}

func (r *CampaignRepository) GetByCode(ctx context.Context, code string) (*domain.Campaign, error) {
	if c, ok := r.cacheGet(ctx, codeKey(code)); ok {
		return c, nil
	}

	c, err := r.next.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cacheSet(ctx, codeKey(code), c)
	return c, nil
}

// List always goes to the underlying store. Listings back the admin surface
// and auto-apply scans, both of which need current used counters.
func (r *CampaignRepository) List(ctx context.Context, filter repository.CampaignFilter) ([]domain.Campaign, error) {
	return r.next.List(ctx, filter)
}

func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	if err := r.next.Update(ctx, c); err != nil {
		return err
	}
	r.invalidate(ctx, c)
	return nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	// Fetch first so the code key can be invalidated alongside the id key.
	c, err := r.next.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}

	r.invalidate(ctx, c)
	return nil
}

func (r *CampaignRepository) CountUserUsage(ctx context.Context, campaignID, userID string) (int, error) {
	return r.next.CountUserUsage(ctx, campaignID, userID)
}

func (r *CampaignRepository) ListUserUsages(ctx context.Context, campaignID string) ([]domain.CampaignUserUsage, error) {
	return r.next.ListUserUsages(ctx, campaignID)
}

// Redeem passes through and invalidates the cached campaign, whose used
// counter just changed.
func (r *CampaignRepository) Redeem(ctx context.Context, usage *domain.CampaignUserUsage) error {
	if err := r.next.Redeem(ctx, usage); err != nil {
		return err
	}

	if c, err := r.next.GetByID(ctx, usage.CampaignID); err == nil {
		r.invalidate(ctx, c)
	} else {
		r.delKeys(ctx, idKey(usage.CampaignID))
	}

	return nil
}

func (r *CampaignRepository) cacheGet(ctx context.Context, key string) (*domain.Campaign, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.WarnContext(ctx, "campaign cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}

	var c domain.Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		r.logger.WarnContext(ctx, "campaign cache entry corrupt, evicting",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		r.delKeys(ctx, key)
		return nil, false
	}

	return &c, true
}

func (r *CampaignRepository) cacheSet(ctx context.Context, key string, c *domain.Campaign) {
	data, err := json.Marshal(c)
	if err != nil {
		r.logger.WarnContext(ctx, "campaign cache marshal failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "campaign cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (r *CampaignRepository) invalidate(ctx context.Context, c *domain.Campaign) {
	keys := []string{idKey(c.ID)}
	if c.Code != "" {
		keys = append(keys, codeKey(c.Code))
	}
	r.delKeys(ctx, keys...)
}

func (r *CampaignRepository) delKeys(ctx context.Context, keys ...string) {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.WarnContext(ctx, "campaign cache invalidation failed",
			slog.String("error", err.Error()),
			slog.String("keys", fmt.Sprint(keys)),
		)
	}
}
