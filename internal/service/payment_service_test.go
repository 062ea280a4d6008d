package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func webhookBody(orderID, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"data": {
			"external_id": %q,
			"status": %q,
			"paid_at": "2026-03-01T09:15:00.000Z",
			"payment_method": {"type": "EWALLET", "channel_code": "GCASH"}
		}
	}`, orderID, status))
}

func TestHandleWebhook_Paid(t *testing.T) {
	f := newFixture()
	order := placeOrder(t, f)
	ctx := context.Background()

	require.NoError(t, f.payments.HandleWebhook(ctx, testCallbackToken, webhookBody(order.ID, "PAID")))

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
	assert.Equal(t, "EWALLET", models.Deref(stored.PaymentMethod))
	assert.Equal(t, "GCASH", models.Deref(stored.PaymentChannel))
	require.NotNil(t, stored.PaidAt)
	assert.Equal(t, "2026-03-01T09:15:00Z", stored.PaidAt.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "inv-123", models.Deref(stored.PaymentLinkID))
	assert.Equal(t, 1, f.sender.confirmations())
	assert.Equal(t, 1, f.publisher.Count(events.EventTypeOrderStatusChanged))

	// Provider retries must not send a second email.
	require.NoError(t, f.payments.HandleWebhook(ctx, testCallbackToken, webhookBody(order.ID, "PAID")))
	assert.Equal(t, 1, f.sender.confirmations())
	assert.Equal(t, 1, f.publisher.Count(events.EventTypeOrderStatusChanged))
}

func TestHandleWebhook_PaidWithoutMethodKeepsStoredValues(t *testing.T) {
	f := newFixture()
	order := placeOrder(t, f)
	ctx := context.Background()

	body := []byte(fmt.Sprintf(`{"data":{"external_id":%q,"status":"PAID"}}`, order.ID))
	require.NoError(t, f.payments.HandleWebhook(ctx, testCallbackToken, body))

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
	assert.Equal(t, PaymentMethodXenditInvoice, models.Deref(stored.PaymentMethod))
	assert.NotNil(t, stored.PaidAt)
}

func TestHandleWebhook_ExpiredMarksFailed(t *testing.T) {
	f := newFixture()
	order := placeOrder(t, f)
	ctx := context.Background()

	for _, status := range []string{"EXPIRED", "CANCELED"} {
		require.NoError(t, f.payments.HandleWebhook(ctx, testCallbackToken, webhookBody(order.ID, status)))
	}

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFailed, stored.Status)
	assert.Nil(t, stored.PaidAt)
	assert.Equal(t, 0, f.sender.confirmations())
}

func TestHandleWebhook_PendingChangesNothing(t *testing.T) {
	f := newFixture()
	order := placeOrder(t, f)
	ctx := context.Background()

	require.NoError(t, f.payments.HandleWebhook(ctx, testCallbackToken, webhookBody(order.ID, "PENDING")))

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Revision, stored.Revision)
	assert.Nil(t, stored.PaymentChannel)
}

func TestHandleWebhook_UnknownOrderIsAcknowledged(t *testing.T) {
	f := newFixture()

	err := f.payments.HandleWebhook(context.Background(), testCallbackToken, webhookBody("ghost-order", "PAID"))
	assert.NoError(t, err)
	assert.Equal(t, 0, f.repo.count())
}

func TestHandleWebhook_InvalidTransitionIsIgnored(t *testing.T) {
	f := newFixture()
	order := placeOrder(t, f)
	ctx := context.Background()

	require.NoError(t, f.payments.HandleWebhook(ctx, testCallbackToken, webhookBody(order.ID, "PAID")))
	require.NoError(t, f.payments.HandleWebhook(ctx, testCallbackToken, webhookBody(order.ID, "EXPIRED")))

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
}

func TestHandleWebhook_BadToken(t *testing.T) {
	f := newFixture()
	order := placeOrder(t, f)
	ctx := context.Background()

	for _, token := range []string{"", "cb-tokem"} {
		err := f.payments.HandleWebhook(ctx, token, webhookBody(order.ID, "PAID"))
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	}

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}

func TestHandleWebhook_Malformed(t *testing.T) {
	f := newFixture()

	bodies := []string{
		`not json`,
		`{"id":"inv-123","status":"PAID"}`,
		`{"data":{"status":"PAID"}}`,
	}
	for _, body := range bodies {
		err := f.payments.HandleWebhook(context.Background(), testCallbackToken, []byte(body))
		assert.True(t, errors.Is(err, apperrors.ErrMalformedPayload), body)
	}
}
