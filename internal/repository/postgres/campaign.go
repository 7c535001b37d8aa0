package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
	"github.com/nguyenvotandat/runway-backend/internal/repository"
	"github.com/nguyenvotandat/runway-backend/pkg/database"
	apperrors "github.com/nguyenvotandat/runway-backend/pkg/errors"
)

const campaignColumns = `id, name, description, code, discount_type, discount_value,
	max_discount, min_order_value, start_date, end_date, max_uses,
	max_uses_per_user, used_count, status, priority, is_auto_apply,
	created_at, updated_at`

// CampaignRepository implements repository.CampaignRepository on PostgreSQL.
type CampaignRepository struct {
	pool database.PgxPool
}

// NewCampaignRepository creates a PostgreSQL-backed campaign repository.
func NewCampaignRepository(pool database.PgxPool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// Create inserts the campaign and all of its rules in one transaction, so a
// campaign is never visible without the rules it was specified with.
func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create campaign tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO campaigns (
			id, name, description, code, discount_type, discount_value,
			max_discount, min_order_value, start_date, end_date, max_uses,
			max_uses_per_user, used_count, status, priority, is_auto_apply,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = tx.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Description,
		nullableCode(c.Code),
		c.DiscountType,
		c.DiscountValue,
		c.MaxDiscount,
		c.MinOrderValue,
		c.StartDate,
		c.EndDate,
		c.MaxUses,
		c.MaxUsesPerUser,
		c.UsedCount,
		c.Status,
		c.Priority,
		c.IsAutoApply,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("campaign", "code", c.Code)
		}
		return fmt.Errorf("insert campaign: %w", err)
	}

	ruleQuery := `
		INSERT INTO campaign_rules (id, campaign_id, rule_type, target_type, target_id, min_quantity, conditions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, rule := range c.Rules {
		var conditionsJSON []byte
		if rule.Conditions != nil {
			conditionsJSON, err = json.Marshal(rule.Conditions)
			if err != nil {
				return fmt.Errorf("marshal rule conditions: %w", err)
			}
		}

		_, err = tx.Exec(ctx, ruleQuery,
			rule.ID,
			c.ID,
			rule.RuleType,
			rule.TargetType,
			rule.TargetID,
			rule.MinQuantity,
			conditionsJSON,
			rule.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert campaign rule: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create campaign tx: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign with its rules by id.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	query := fmt.Sprintf("SELECT %s FROM campaigns WHERE id = $1", campaignColumns)
	return r.fetchCampaign(ctx, query, id)
}

// GetByCode retrieves a campaign with its rules by voucher code.
func (r *CampaignRepository) GetByCode(ctx context.Context, code string) (*domain.Campaign, error) {
	query := fmt.Sprintf("SELECT %s FROM campaigns WHERE code = $1", campaignColumns)
	return r.fetchCampaign(ctx, query, code)
}

// List returns campaigns matching the filter with their rules attached,
// ordered by priority descending then recency.
func (r *CampaignRepository) List(ctx context.Context, filter repository.CampaignFilter) ([]domain.Campaign, error) {
	var (
		where string
		args  []any
	)
	if filter.Status != nil {
		where = "WHERE status = $1"
		args = append(args, *filter.Status)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM campaigns
		%s
		ORDER BY priority DESC, created_at DESC`, campaignColumns, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign row: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign rows: %w", err)
	}

	for i := range campaigns {
		rules, err := r.loadRules(ctx, campaigns[i].ID)
		if err != nil {
			return nil, err
		}
		campaigns[i].Rules = rules
	}

	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}

	return campaigns, nil
}

// Update modifies the mutable fields of an existing campaign. Rules are
// immutable and left untouched.
func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE campaigns
		SET name = $1, description = $2, status = $3, priority = $4,
		    max_uses = $5, end_date = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.pool.Exec(ctx, query,
		c.Name,
		c.Description,
		c.Status,
		c.Priority,
		c.MaxUses,
		c.EndDate,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", c.ID)
	}

	return nil
}

// Delete removes a campaign; its rules go with it via ON DELETE CASCADE.
// Usage history rows are kept.
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, "DELETE FROM campaigns WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", id)
	}
	return nil
}

// CountUserUsage returns how many times the user has redeemed the campaign.
func (r *CampaignRepository) CountUserUsage(ctx context.Context, campaignID, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT count(*) FROM campaign_user_usages WHERE campaign_id = $1 AND user_id = $2",
		campaignID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count user usage: %w", err)
	}
	return count, nil
}

// ListUserUsages returns the redemption history of a campaign, oldest first.
func (r *CampaignRepository) ListUserUsages(ctx context.Context, campaignID string) ([]domain.CampaignUserUsage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, campaign_id, user_id, order_id, order_value, discount_amount, used_at
		FROM campaign_user_usages
		WHERE campaign_id = $1
		ORDER BY used_at`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list campaign usages: %w", err)
	}
	defer rows.Close()

	var usages []domain.CampaignUserUsage
	for rows.Next() {
		var u domain.CampaignUserUsage
		if err := rows.Scan(&u.ID, &u.CampaignID, &u.UserID, &u.OrderID, &u.OrderValue, &u.DiscountAmount, &u.UsedAt); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage rows: %w", err)
	}

	if usages == nil {
		usages = []domain.CampaignUserUsage{}
	}

	return usages, nil
}

// Redeem records one redemption in a single transaction: it locks the
// campaign row, re-checks both quotas under the lock, appends the usage row,
// and bumps used_count. The counter and the usage record commit together or
// not at all.
func (r *CampaignRepository) Redeem(ctx context.Context, usage *domain.CampaignUserUsage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin redeem tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		maxUses        int
		maxUsesPerUser int
		usedCount      int
	)
	err = tx.QueryRow(ctx,
		"SELECT max_uses, max_uses_per_user, used_count FROM campaigns WHERE id = $1 FOR UPDATE",
		usage.CampaignID,
	).Scan(&maxUses, &maxUsesPerUser, &usedCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("campaign", usage.CampaignID)
		}
		if isSerializationFailure(err) {
			return apperrors.Conflict("campaign row contention, retry redemption")
		}
		return fmt.Errorf("lock campaign for redemption: %w", err)
	}

	if maxUses > 0 && usedCount >= maxUses {
		return apperrors.QuotaExceeded("campaign usage limit reached")
	}

	if maxUsesPerUser > 0 {
		var userCount int
		err = tx.QueryRow(ctx,
			"SELECT count(*) FROM campaign_user_usages WHERE campaign_id = $1 AND user_id = $2",
			usage.CampaignID, usage.UserID,
		).Scan(&userCount)
		if err != nil {
			return fmt.Errorf("count user usage for redemption: %w", err)
		}
		if userCount >= maxUsesPerUser {
			return apperrors.QuotaExceeded("per-user usage limit reached")
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO campaign_user_usages (id, campaign_id, user_id, order_id, order_value, discount_amount, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		usage.ID,
		usage.CampaignID,
		usage.UserID,
		usage.OrderID,
		usage.OrderValue,
		usage.DiscountAmount,
		usage.UsedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE campaigns SET used_count = used_count + 1, updated_at = NOW() WHERE id = $1",
		usage.CampaignID,
	)
	if err != nil {
		return fmt.Errorf("increment used count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return apperrors.Conflict("redemption transaction conflict, retry")
		}
		return fmt.Errorf("commit redeem tx: %w", err)
	}

	return nil
}

// fetchCampaign runs a single-campaign query and attaches the rule set.
func (r *CampaignRepository) fetchCampaign(ctx context.Context, query string, arg any) (*domain.Campaign, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	rules, err := r.loadRules(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Rules = rules

	return c, nil
}

// loadRules fetches the rule set of a campaign in insertion order.
func (r *CampaignRepository) loadRules(ctx context.Context, campaignID string) ([]domain.CampaignRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, campaign_id, rule_type, target_type, target_id, min_quantity, conditions, created_at
		FROM campaign_rules
		WHERE campaign_id = $1
		ORDER BY created_at`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.CampaignRule
	for rows.Next() {
		var (
			rule           domain.CampaignRule
			conditionsJSON []byte
		)
		if err := rows.Scan(
			&rule.ID,
			&rule.CampaignID,
			&rule.RuleType,
			&rule.TargetType,
			&rule.TargetID,
			&rule.MinQuantity,
			&conditionsJSON,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}

		if len(conditionsJSON) > 0 {
			var conditions domain.RuleConditions
			if err := json.Unmarshal(conditionsJSON, &conditions); err != nil {
				return nil, fmt.Errorf("unmarshal rule conditions: %w", err)
			}
			rule.Conditions = &conditions
		}

		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule rows: %w", err)
	}

	if rules == nil {
		rules = []domain.CampaignRule{}
	}

	return rules, nil
}

// scanCampaign scans one campaign row from either a pgx.Row or pgx.Rows.
func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c    domain.Campaign
		code *string
	)
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&code,
		&c.DiscountType,
		&c.DiscountValue,
		&c.MaxDiscount,
		&c.MinOrderValue,
		&c.StartDate,
		&c.EndDate,
		&c.MaxUses,
		&c.MaxUsesPerUser,
		&c.UsedCount,
		&c.Status,
		&c.Priority,
		&c.IsAutoApply,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if code != nil {
		c.Code = *code
	}
	return &c, nil
}

// nullableCode maps an absent voucher code to NULL so the unique index only
// applies to campaigns that actually have one.
func nullableCode(code string) *string {
	if code == "" {
		return nil
	}
	return &code
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

// isSerializationFailure checks for serialization failure (40001) or
// deadlock detected (40P01), both of which are safe to retry.
func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "40001") || strings.Contains(msg, "40P01")
}
