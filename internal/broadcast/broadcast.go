package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brickfield/brickfield-backend/pkg/enums"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/google/uuid"
)

// StockEvent is the payload pushed to storefront listeners when stock moves.
// AvailableAfter is a hint only; clients re-fetch before relying on it. The
// originator lets a client suppress notifications about its own activity.
type StockEvent struct {
	Type           enums.StockEventType `json:"type"`
	ProductID      uuid.UUID            `json:"product_id"`
	SKU            string               `json:"sku"`
	Qty            int                  `json:"qty"`
	AvailableAfter int                  `json:"available_after"`
	Originator     string               `json:"originator,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

type publishClient interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Publisher pushes stock events over redis pub/sub. Delivery is best effort:
// a failed publish is logged and never fails the surrounding operation.
type Publisher interface {
	StockReserved(ctx context.Context, productID uuid.UUID, sku string, qty, availableAfter int, originator string)
	StockReleased(ctx context.Context, productID uuid.UUID, sku string, qty, availableAfter int)
}

type publisher struct {
	client  publishClient
	channel string
	logg    *logger.Logger
}

// NewPublisher builds the stock event publisher.
func NewPublisher(client publishClient, channel string, logg *logger.Logger) (Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("publish client required")
	}
	if channel == "" {
		return nil, fmt.Errorf("channel required")
	}
	return &publisher{client: client, channel: channel, logg: logg}, nil
}

func (p *publisher) StockReserved(ctx context.Context, productID uuid.UUID, sku string, qty, availableAfter int, originator string) {
	p.emit(ctx, StockEvent{
		Type:           enums.StockEventReserved,
		ProductID:      productID,
		SKU:            sku,
		Qty:            qty,
		AvailableAfter: availableAfter,
		Originator:     originator,
		OccurredAt:     time.Now().UTC(),
	})
}

func (p *publisher) StockReleased(ctx context.Context, productID uuid.UUID, sku string, qty, availableAfter int) {
	p.emit(ctx, StockEvent{
		Type:           enums.StockEventReleased,
		ProductID:      productID,
		SKU:            sku,
		Qty:            qty,
		AvailableAfter: availableAfter,
		OccurredAt:     time.Now().UTC(),
	})
}

func (p *publisher) emit(ctx context.Context, event StockEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.warn(ctx, event, err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload); err != nil {
		p.warn(ctx, event, err)
	}
}

func (p *publisher) warn(ctx context.Context, event StockEvent, err error) {
	if p.logg == nil {
		return
	}
	ctx = p.logg.WithFields(ctx, map[string]any{
		"channel":    p.channel,
		"event_type": event.Type.String(),
		"product_id": event.ProductID.String(),
		"error":      err.Error(),
	})
	p.logg.Warn(ctx, "stock event publish failed")
}
