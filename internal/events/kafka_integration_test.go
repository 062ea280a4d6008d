//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func setupKafka(t *testing.T) string {
	ctx := context.Background()

	kafkaContainer, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func TestKafkaPublisher_Integration(t *testing.T) {
	broker := setupKafka(t)
	topic := "storefront.orders.test"

	publisher := NewKafkaPublisher(config.KafkaConfig{
		Brokers:     []string{broker},
		OrdersTopic: topic,
	}, logging.NewLogger("test"))
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	order := &models.Order{ID: "order-1", Status: models.OrderStatusPaid, Total: 1998, Currency: "PHP"}

	// The first write may race topic auto-creation.
	require.Eventually(t, func() bool {
		return publisher.PublishOrderStatusChanged(ctx, order, models.OrderStatusPending, "webhook") == nil
	}, 20*time.Second, 500*time.Millisecond)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{broker},
		Topic:    topic,
		GroupID:  "storefront-test",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-1", string(msg.Key))

	var event OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventTypeOrderStatusChanged, event.Type)

	var change StatusChange
	require.NoError(t, json.Unmarshal(event.Data, &change))
	assert.Equal(t, models.OrderStatusPending, change.PreviousStatus)
	assert.Equal(t, models.OrderStatusPaid, change.NewStatus)
	assert.Equal(t, "webhook", change.Source)
}
