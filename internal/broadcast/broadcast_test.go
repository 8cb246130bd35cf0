package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/brickfield/brickfield-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingClient struct {
	channel string
	payload []byte
	err     error
}

func (c *capturingClient) Publish(ctx context.Context, channel string, payload any) error {
	c.channel = channel
	if b, ok := payload.([]byte); ok {
		c.payload = b
	}
	return c.err
}

func TestStockReservedPublishesEvent(t *testing.T) {
	client := &capturingClient{}
	pub, err := NewPublisher(client, "stock.events", nil)
	require.NoError(t, err)

	productID := uuid.New()
	pub.StockReserved(context.Background(), productID, "BRK-100", 12, 88, "session-abc")

	assert.Equal(t, "stock.events", client.channel)

	var event StockEvent
	require.NoError(t, json.Unmarshal(client.payload, &event))
	assert.Equal(t, enums.StockEventReserved, event.Type)
	assert.Equal(t, productID, event.ProductID)
	assert.Equal(t, "BRK-100", event.SKU)
	assert.Equal(t, 12, event.Qty)
	assert.Equal(t, 88, event.AvailableAfter)
	assert.Equal(t, "session-abc", event.Originator)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	client := &capturingClient{err: errors.New("redis down")}
	pub, err := NewPublisher(client, "stock.events", nil)
	require.NoError(t, err)

	// must not panic or surface the error
	pub.StockReleased(context.Background(), uuid.New(), "BRK-100", 3, 10)
}

func TestNewPublisherValidation(t *testing.T) {
	_, err := NewPublisher(nil, "stock.events", nil)
	assert.Error(t, err)
	_, err = NewPublisher(&capturingClient{}, "", nil)
	assert.Error(t, err)
}
