package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	Configure("json", "debug", &buf)
	t.Cleanup(func() { Configure("json", "info", nil) })

	NewLogger("order-service").Info("Order created", Fields{"order_id": "ord-1", "total": 1998})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Order created", line["msg"])
	assert.Equal(t, "order-service", line["component"])
	assert.Equal(t, "ord-1", line["order_id"])
	assert.EqualValues(t, 1998, line["total"])
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure("text", "warn", &buf)
	t.Cleanup(func() { Configure("json", "info", nil) })

	logger := NewLogger("handlers")
	logger.Debug("hidden")
	logger.Info("hidden too")
	assert.Empty(t, buf.String())

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
