package event

import (
	"context"
	"log/slog"

	"github.com/nguyenvotandat/runway-backend/internal/domain"
	"github.com/nguyenvotandat/runway-backend/pkg/kafka"
	"github.com/nguyenvotandat/runway-backend/pkg/logger"
)

// Kafka topics for promotion lifecycle events.
const (
	TopicCampaignCreated = "ecommerce.promotion.created"
	TopicCampaignUpdated = "ecommerce.promotion.updated"
	TopicCampaignDeleted = "ecommerce.promotion.deleted"
	TopicVoucherRedeemed = "ecommerce.promotion.voucher_redeemed"
)

// Event type identifiers carried in the envelope.
const (
	TypeCampaignCreated = "promotion.campaign.created"
	TypeCampaignUpdated = "promotion.campaign.updated"
	TypeCampaignDeleted = "promotion.campaign.deleted"
	TypeVoucherRedeemed = "promotion.voucher.redeemed"
)

const (
	aggregateType = "campaign"
	source        = "promotion-service"
)

// CampaignPayload is the data body of campaign lifecycle events.
type CampaignPayload struct {
	CampaignID   string `json:"campaign_id"`
	Name         string `json:"name"`
	Code         string `json:"code,omitempty"`
	DiscountType string `json:"discount_type"`
	Status       string `json:"status"`
	Priority     int    `json:"priority"`
}

// RedemptionPayload is the data body of voucher redemption events.
type RedemptionPayload struct {
	CampaignID     string `json:"campaign_id"`
	UserID         string `json:"user_id"`
	OrderID        string `json:"order_id,omitempty"`
	OrderValue     int64  `json:"order_value"`
	DiscountAmount int64  `json:"discount_amount"`
}

// Publisher emits promotion lifecycle events to Kafka. Publishing failures
// are logged and swallowed so the write path never fails on a broker outage.
type Publisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewPublisher creates a promotion event publisher.
func NewPublisher(producer *kafka.Producer, log *slog.Logger) *Publisher {
	return &Publisher{producer: producer, logger: log}
}

// CampaignCreated emits a campaign-created event.
func (p *Publisher) CampaignCreated(ctx context.Context, c *domain.Campaign) {
	p.publishCampaign(ctx, TopicCampaignCreated, TypeCampaignCreated, c)
}

// CampaignUpdated emits a campaign-updated event.
func (p *Publisher) CampaignUpdated(ctx context.Context, c *domain.Campaign) {
	p.publishCampaign(ctx, TopicCampaignUpdated, TypeCampaignUpdated, c)
}

// CampaignDeleted emits a campaign-deleted event carrying only the id.
func (p *Publisher) CampaignDeleted(ctx context.Context, campaignID string) {
	p.publish(ctx, TopicCampaignDeleted, TypeCampaignDeleted, campaignID,
		CampaignPayload{CampaignID: campaignID})
}

// VoucherRedeemed emits a redemption event for downstream consumers such as
// analytics and order enrichment.
func (p *Publisher) VoucherRedeemed(ctx context.Context, usage *domain.CampaignUserUsage) {
	p.publish(ctx, TopicVoucherRedeemed, TypeVoucherRedeemed, usage.CampaignID,
		RedemptionPayload{
			CampaignID:     usage.CampaignID,
			UserID:         usage.UserID,
			OrderID:        usage.OrderID,
			OrderValue:     usage.OrderValue,
			DiscountAmount: usage.DiscountAmount,
		})
}

func (p *Publisher) publishCampaign(ctx context.Context, topic, eventType string, c *domain.Campaign) {
	p.publish(ctx, topic, eventType, c.ID, CampaignPayload{
		CampaignID:   c.ID,
		Name:         c.Name,
		Code:         c.Code,
		DiscountType: c.DiscountType,
		Status:       c.Status,
		Priority:     c.Priority,
	})
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, aggregateID string, payload any) {
	if p.producer == nil {
		return
	}

	evt, err := kafka.NewEvent(eventType, aggregateID, aggregateType, source, payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.producer.Publish(ctx, topic, evt); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
