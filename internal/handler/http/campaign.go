package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
	"github.com/nguyenvotandat/runway-backend/internal/service"
	apperrors "github.com/nguyenvotandat/runway-backend/pkg/errors"
	"github.com/nguyenvotandat/runway-backend/pkg/validator"
)

// CampaignHandler exposes campaign administration and voucher endpoints.
type CampaignHandler struct {
	service *service.CampaignService
}

// NewCampaignHandler creates the campaign HTTP handler.
func NewCampaignHandler(svc *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{service: svc}
}

type ruleRequest struct {
	RuleType    string                 `json:"rule_type" validate:"required,oneof=INCLUDE EXCLUDE"`
	TargetType  string                 `json:"target_type" validate:"required"`
	TargetID    string                 `json:"target_id"`
	MinQuantity int                    `json:"min_quantity" validate:"gte=0"`
	Conditions  *domain.RuleConditions `json:"conditions"`
}

type createCampaignRequest struct {
	Name           string        `json:"name" validate:"required,max=255"`
	Description    string        `json:"description"`
	Code           string        `json:"code" validate:"max=64"`
	DiscountType   string        `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING"`
	DiscountValue  int64         `json:"discount_value" validate:"gte=0"`
	MaxDiscount    int64         `json:"max_discount" validate:"gte=0"`
	MinOrderValue  int64         `json:"min_order_value" validate:"gte=0"`
	StartDate      string        `json:"start_date" validate:"required"`
	EndDate        string        `json:"end_date" validate:"required"`
	MaxUses        int           `json:"max_uses" validate:"gte=0"`
	MaxUsesPerUser int           `json:"max_uses_per_user" validate:"gte=0"`
	Status         string        `json:"status"`
	Priority       int           `json:"priority" validate:"gte=0,lte=100"`
	IsAutoApply    bool          `json:"is_auto_apply"`
	Rules          []ruleRequest `json:"rules" validate:"required,min=1,dive"`
}

type updateCampaignRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *int    `json:"priority"`
	MaxUses     *int    `json:"max_uses"`
	EndDate     *string `json:"end_date"`
}

type cartItemRequest struct {
	VariantID  string   `json:"variant_id" validate:"required"`
	Quantity   int      `json:"quantity" validate:"required,gt=0"`
	Price      int64    `json:"price" validate:"gte=0"`
	ProductID  string   `json:"product_id"`
	CategoryID string   `json:"category_id"`
	BrandID    string   `json:"brand_id"`
	Tags       []string `json:"tags"`
}

type validateVoucherRequest struct {
	Code   string            `json:"code" validate:"required"`
	UserID string            `json:"user_id"`
	Items  []cartItemRequest `json:"items" validate:"dive"`
}

type redeemVoucherRequest struct {
	Code    string            `json:"code" validate:"required"`
	UserID  string            `json:"user_id" validate:"required"`
	OrderID string            `json:"order_id" validate:"required"`
	Items   []cartItemRequest `json:"items" validate:"dive"`
}

type autoApplyRequest struct {
	UserID string            `json:"user_id"`
	Items  []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

// Create handles POST /api/v1/campaigns.
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	startDate, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	endDate, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		writeError(w, r, err)
		return
	}

	input := service.CreateCampaignInput{
		Name:           req.Name,
		Description:    req.Description,
		Code:           req.Code,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		MaxDiscount:    req.MaxDiscount,
		MinOrderValue:  req.MinOrderValue,
		StartDate:      startDate,
		EndDate:        endDate,
		MaxUses:        req.MaxUses,
		MaxUsesPerUser: req.MaxUsesPerUser,
		Status:         req.Status,
		Priority:       req.Priority,
		IsAutoApply:    req.IsAutoApply,
	}
	for _, rule := range req.Rules {
		input.Rules = append(input.Rules, service.RuleInput{
			RuleType:    rule.RuleType,
			TargetType:  rule.TargetType,
			TargetID:    rule.TargetID,
			MinQuantity: rule.MinQuantity,
			Conditions:  rule.Conditions,
		})
	}

	campaign, err := h.service.CreateCampaign(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, campaign)
}

// Get handles GET /api/v1/campaigns/{id}.
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.service.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, campaign)
}

// GetByCode handles GET /api/v1/campaigns/code/{code}.
func (h *CampaignHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.service.GetCampaignByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, campaign)
}

// List handles GET /api/v1/campaigns with an optional status query filter.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.service.ListCampaigns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, campaigns)
}

// Update handles PUT /api/v1/campaigns/{id}.
func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateCampaignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	input := service.UpdateCampaignInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		MaxUses:     req.MaxUses,
	}
	if req.EndDate != nil {
		endDate, err := parseDate(*req.EndDate, "end_date")
		if err != nil {
			writeError(w, r, err)
			return
		}
		input.EndDate = &endDate
	}

	campaign, err := h.service.UpdateCampaign(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, campaign)
}

// Delete handles DELETE /api/v1/campaigns/{id}.
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCampaign(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/v1/campaigns/{id}/stats.
func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetCampaignStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// ValidateVoucher handles POST /api/v1/vouchers/validate. Rejections are 200
// responses with eligible=false and a reason, not errors.
func (h *CampaignHandler) ValidateVoucher(w http.ResponseWriter, r *http.Request) {
	var req validateVoucherRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.ValidateVoucher(r.Context(), req.Code, req.UserID, toCartItems(req.Items))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, result)
}

// RedeemVoucher handles POST /api/v1/vouchers/redeem.
func (h *CampaignHandler) RedeemVoucher(w http.ResponseWriter, r *http.Request) {
	var req redeemVoucherRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	usage, err := h.service.RedeemVoucher(r.Context(), req.Code, req.UserID, req.OrderID, toCartItems(req.Items))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, usage)
}

// AutoApply handles POST /api/v1/vouchers/auto-apply.
func (h *CampaignHandler) AutoApply(w http.ResponseWriter, r *http.Request) {
	var req autoApplyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.AutoApply(r.Context(), req.UserID, toCartItems(req.Items))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, result)
}

// decode reads the JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.InvalidInput("invalid JSON body")
	}
	return validator.Validate(dst)
}

// parseDate accepts RFC 3339 timestamps.
func parseDate(value, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput(field + " must be an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}

func toCartItems(items []cartItemRequest) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.CartItem{
			VariantID:  it.VariantID,
			Quantity:   it.Quantity,
			Price:      it.Price,
			ProductID:  it.ProductID,
			CategoryID: it.CategoryID,
			BrandID:    it.BrandID,
			Tags:       it.Tags,
		})
	}
	return out
}
