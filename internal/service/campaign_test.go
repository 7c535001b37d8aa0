package service

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
	"github.com/nguyenvotandat/runway-backend/internal/engine"
	"github.com/nguyenvotandat/runway-backend/internal/event"
	"github.com/nguyenvotandat/runway-backend/internal/repository"
	apperrors "github.com/nguyenvotandat/runway-backend/pkg/errors"
)

// --- Mock Repository ---

type mockCampaignRepository struct {
	mock.Mock
}

func (m *mockCampaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *mockCampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *mockCampaignRepository) GetByCode(ctx context.Context, code string) (*domain.Campaign, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *mockCampaignRepository) List(ctx context.Context, filter repository.CampaignFilter) ([]domain.Campaign, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Campaign), args.Error(1)
}

func (m *mockCampaignRepository) Update(ctx context.Context, campaign *domain.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *mockCampaignRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCampaignRepository) CountUserUsage(ctx context.Context, campaignID, userID string) (int, error) {
	args := m.Called(ctx, campaignID, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockCampaignRepository) ListUserUsages(ctx context.Context, campaignID string) ([]domain.CampaignUserUsage, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).([]domain.CampaignUserUsage), args.Error(1)
}

func (m *mockCampaignRepository) Redeem(ctx context.Context, usage *domain.CampaignUserUsage) error {
	args := m.Called(ctx, usage)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(repo *mockCampaignRepository) *CampaignService {
	logger := newTestLogger()
	eng := engine.New(repo, logger)
	publisher := event.NewPublisher(nil, logger)
	return NewCampaignService(repo, eng, publisher, logger)
}

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func timePtr(t time.Time) *time.Time { return &t }

var (
	futureStart = time.Now().UTC().Add(24 * time.Hour)
	futureEnd   = time.Now().UTC().Add(48 * time.Hour)
)

func validInput() CreateCampaignInput {
	return CreateCampaignInput{
		Name:          "Summer Sale",
		Description:   "10% off everything",
		Code:          "summer10",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 10,
		StartDate:     futureStart,
		EndDate:       futureEnd,
		Priority:      50,
		Rules: []RuleInput{{
			RuleType:   domain.RuleTypeInclude,
			TargetType: domain.TargetTypeAllProducts,
		}},
	}
}

// --- CreateCampaign ---

func TestCreateCampaign_Success(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	campaign, err := svc.CreateCampaign(ctx, validInput())

	require.NoError(t, err)
	assert.NotEmpty(t, campaign.ID)
	assert.Equal(t, "Summer Sale", campaign.Name)
	assert.Equal(t, "SUMMER10", campaign.Code)
	assert.Equal(t, domain.CampaignStatusDraft, campaign.Status)
	assert.Equal(t, 0, campaign.UsedCount)
	require.Len(t, campaign.Rules, 1)
	assert.Equal(t, campaign.ID, campaign.Rules[0].CampaignID)
	assert.NotEmpty(t, campaign.Rules[0].ID)
	assert.NotZero(t, campaign.CreatedAt)

	repo.AssertExpectations(t)
}

func TestCreateCampaign_ExplicitStatusKept(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	input := validInput()
	input.Status = domain.CampaignStatusActive

	campaign, err := svc.CreateCampaign(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusActive, campaign.Status)
}

func TestCreateCampaign_EmptyName(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)

	input := validInput()
	input.Name = "   "

	campaign, err := svc.CreateCampaign(context.Background(), input)

	assert.Nil(t, campaign)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateCampaign_InvalidDiscountType(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)

	input := validInput()
	input.DiscountType = "BOGO"

	campaign, err := svc.CreateCampaign(context.Background(), input)

	assert.Nil(t, campaign)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateCampaign_PercentageOverHundred(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)

	input := validInput()
	input.DiscountValue = 150

	campaign, err := svc.CreateCampaign(context.Background(), input)

	assert.Nil(t, campaign)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateCampaign_EndDateBeforeStartDate(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)

	input := validInput()
	input.StartDate = futureEnd
	input.EndDate = futureStart

	campaign, err := svc.CreateCampaign(context.Background(), input)

	assert.Nil(t, campaign)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateCampaign_NoRules(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)

	input := validInput()
	input.Rules = nil

	campaign, err := svc.CreateCampaign(context.Background(), input)

	assert.Nil(t, campaign)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateCampaign_RuleMissingTargetID(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)

	input := validInput()
	input.Rules = []RuleInput{{
		RuleType:   domain.RuleTypeInclude,
		TargetType: domain.TargetTypeCategory,
	}}

	campaign, err := svc.CreateCampaign(context.Background(), input)

	assert.Nil(t, campaign)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateCampaign_PriceRangeRuleWithoutConditions(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)

	input := validInput()
	input.Rules = []RuleInput{{
		RuleType:   domain.RuleTypeInclude,
		TargetType: domain.TargetTypePriceRange,
	}}

	campaign, err := svc.CreateCampaign(context.Background(), input)

	assert.Nil(t, campaign)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateCampaign_InvalidPriority(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)

	input := validInput()
	input.Priority = 101

	campaign, err := svc.CreateCampaign(context.Background(), input)

	assert.Nil(t, campaign)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- UpdateCampaign ---

func existingCampaign() *domain.Campaign {
	now := time.Now().UTC()
	return &domain.Campaign{
		ID:            "camp-1",
		Name:          "Existing",
		Code:          "EXISTING",
		DiscountType:  domain.DiscountTypeFixedAmount,
		DiscountValue: 500,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		Status:        domain.CampaignStatusActive,
		Priority:      10,
		CreatedAt:     now,
		UpdatedAt:     now,
		Rules: []domain.CampaignRule{{
			ID:         "rule-1",
			CampaignID: "camp-1",
			RuleType:   domain.RuleTypeInclude,
			TargetType: domain.TargetTypeAllProducts,
		}},
	}
}

func TestGetCampaignByCode_NormalizesCode(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetByCode", ctx, "EXISTING").Return(existingCampaign(), nil)

	c, err := svc.GetCampaignByCode(ctx, "  existing ")

	require.NoError(t, err)
	assert.Equal(t, "camp-1", c.ID)
	repo.AssertExpectations(t)
}

func TestGetCampaignByCode_NotFound(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetByCode", ctx, "MISSING").Return(nil, apperrors.ErrNotFound)

	_, err := svc.GetCampaignByCode(ctx, "missing")

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestUpdateCampaign_Success(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "camp-1").Return(existingCampaign(), nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	updated, err := svc.UpdateCampaign(ctx, "camp-1", UpdateCampaignInput{
		Name:     strPtr("Renamed"),
		Status:   strPtr(domain.CampaignStatusPaused),
		Priority: intPtr(30),
		MaxUses:  intPtr(500),
	})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, domain.CampaignStatusPaused, updated.Status)
	assert.Equal(t, 30, updated.Priority)
	assert.Equal(t, 500, updated.MaxUses)

	repo.AssertExpectations(t)
}

func TestUpdateCampaign_NotFound(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "missing").Return(nil, apperrors.ErrNotFound)

	updated, err := svc.UpdateCampaign(ctx, "missing", UpdateCampaignInput{Name: strPtr("x")})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateCampaign_InvalidStatus(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "camp-1").Return(existingCampaign(), nil)

	updated, err := svc.UpdateCampaign(ctx, "camp-1", UpdateCampaignInput{
		Status: strPtr("SOMETHING"),
	})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUpdateCampaign_EndDateBeforeStart(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	c := existingCampaign()
	repo.On("GetByID", ctx, "camp-1").Return(c, nil)

	updated, err := svc.UpdateCampaign(ctx, "camp-1", UpdateCampaignInput{
		EndDate: timePtr(c.StartDate.Add(-time.Minute)),
	})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- ListCampaigns ---

func TestListCampaigns_InvalidStatus(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)

	campaigns, err := svc.ListCampaigns(context.Background(), "bogus")

	assert.Nil(t, campaigns)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestListCampaigns_StatusUppercased(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	status := domain.CampaignStatusActive
	repo.On("List", ctx, repository.CampaignFilter{Status: &status}).
		Return([]domain.Campaign{*existingCampaign()}, nil)

	campaigns, err := svc.ListCampaigns(ctx, "active")

	require.NoError(t, err)
	assert.Len(t, campaigns, 1)
	repo.AssertExpectations(t)
}

// --- DeleteCampaign ---

func TestDeleteCampaign_Success(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Delete", ctx, "camp-1").Return(nil)

	assert.NoError(t, svc.DeleteCampaign(ctx, "camp-1"))
	repo.AssertExpectations(t)
}

func TestDeleteCampaign_NotFound(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Delete", ctx, "missing").Return(apperrors.NotFound("campaign", "missing"))

	err := svc.DeleteCampaign(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- GetCampaignStats ---

func TestGetCampaignStats_Aggregates(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	c := existingCampaign()
	c.MaxUses = 10
	c.UsedCount = 3
	repo.On("GetByID", ctx, "camp-1").Return(c, nil)
	repo.On("ListUserUsages", ctx, "camp-1").Return([]domain.CampaignUserUsage{
		{ID: "u1", CampaignID: "camp-1", UserID: "user-1", DiscountAmount: 500},
		{ID: "u2", CampaignID: "camp-1", UserID: "user-1", DiscountAmount: 300},
		{ID: "u3", CampaignID: "camp-1", UserID: "user-2", DiscountAmount: 400},
	}, nil)

	stats, err := svc.GetCampaignStats(ctx, "camp-1")

	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUses)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, int64(1200), stats.TotalSavings)
	assert.Equal(t, int64(400), stats.AverageSavings)
	require.NotNil(t, stats.UsageRate)
	assert.InDelta(t, 30.0, *stats.UsageRate, 1e-9)
}

func TestGetCampaignStats_CounterIsAuthoritative(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	// A seeded counter with no retained usage rows still reports its uses
	// and rate from the counter.
	c := existingCampaign()
	c.MaxUses = 10
	c.UsedCount = 5
	repo.On("GetByID", ctx, "camp-1").Return(c, nil)
	repo.On("ListUserUsages", ctx, "camp-1").Return([]domain.CampaignUserUsage{}, nil)

	stats, err := svc.GetCampaignStats(ctx, "camp-1")

	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalUses)
	assert.Zero(t, stats.TotalUsers)
	assert.Zero(t, stats.TotalSavings)
	assert.Zero(t, stats.AverageSavings)
	require.NotNil(t, stats.UsageRate)
	assert.InDelta(t, 50.0, *stats.UsageRate, 1e-9)
}

func TestGetCampaignStats_NoUsage(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	// MaxUses of zero means unlimited, so no usage rate is reported.
	repo.On("GetByID", ctx, "camp-1").Return(existingCampaign(), nil)
	repo.On("ListUserUsages", ctx, "camp-1").Return([]domain.CampaignUserUsage{}, nil)

	stats, err := svc.GetCampaignStats(ctx, "camp-1")

	require.NoError(t, err)
	assert.Zero(t, stats.TotalUses)
	assert.Zero(t, stats.TotalUsers)
	assert.Zero(t, stats.TotalSavings)
	assert.Zero(t, stats.AverageSavings)
	assert.Nil(t, stats.UsageRate)
}

// --- Voucher facades ---

func TestValidateVoucher_PassesThroughToEngine(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	c := existingCampaign()
	repo.On("GetByCode", ctx, "EXISTING").Return(c, nil)

	items := []domain.CartItem{{VariantID: "v1", Quantity: 1, Price: 10000}}
	result, err := svc.ValidateVoucher(ctx, "existing", "user-1", items)

	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Equal(t, int64(500), result.DiscountAmount)
	repo.AssertExpectations(t)
}

func TestRedeemVoucher_RecordsUsage(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	c := existingCampaign()
	repo.On("GetByCode", ctx, "EXISTING").Return(c, nil)
	repo.On("Redeem", ctx, mock.AnythingOfType("*domain.CampaignUserUsage")).Return(nil)

	items := []domain.CartItem{{VariantID: "v1", Quantity: 1, Price: 10000}}
	usage, err := svc.RedeemVoucher(ctx, "EXISTING", "user-1", "order-1", items)

	require.NoError(t, err)
	assert.Equal(t, c.ID, usage.CampaignID)
	assert.Equal(t, int64(500), usage.DiscountAmount)
	repo.AssertExpectations(t)
}
