package service

import (
	"context"
	"errors"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// Webhook outcomes recorded in metrics.
const (
	webhookApplied      = "applied"
	webhookPending      = "pending"
	webhookUnknownOrder = "unknown_order"
	webhookIgnored      = "ignored"
	webhookUnauthorized = "unauthorized"
	webhookMalformed    = "malformed"
	webhookError        = "error"
)

// PaymentService reconciles orders from payment provider callbacks.
type PaymentService struct {
	gateway      clients.PaymentGateway
	orderService *OrderService
	metrics      *metrics.Metrics
	logger       *logging.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(gateway clients.PaymentGateway, orderService *OrderService, m *metrics.Metrics) *PaymentService {
	return &PaymentService{
		gateway:      gateway,
		orderService: orderService,
		metrics:      m,
		logger:       logging.NewLogger("payment-service"),
	}
}

// HandleWebhook verifies and applies a provider callback. A nil error means
// the callback should be acknowledged; pending callbacks, unknown orders and
// transitions the lifecycle forbids are acknowledged without changes.
func (s *PaymentService) HandleWebhook(ctx context.Context, token string, raw []byte) error {
	if err := s.gateway.ValidateWebhook(token); err != nil {
		s.logger.Warn("Rejected webhook with invalid token")
		s.metrics.Webhook(webhookUnauthorized)
		return err
	}

	event, err := s.gateway.NormalizeWebhookPayload(raw)
	if err != nil {
		s.logger.Warn("Rejected malformed webhook", logging.Fields{"error": err.Error()})
		s.metrics.Webhook(webhookMalformed)
		return err
	}

	fields := logging.Fields{
		"order_id": event.OrderID,
		"status":   event.Status,
	}

	if event.Status == models.OrderStatusPending {
		s.logger.Info("Webhook reports pending payment, nothing to apply", fields)
		s.metrics.Webhook(webhookPending)
		return nil
	}

	change := StatusChange{Status: event.Status, PaidAt: event.PaidAt}
	if event.PaymentMethod != nil {
		change.PaymentMethod = models.Set(event.PaymentMethod)
	}
	if event.PaymentChannel != nil {
		change.PaymentChannel = models.Set(event.PaymentChannel)
	}

	_, err = s.orderService.ApplyStatusChange(ctx, event.OrderID, change, SourceWebhook)
	switch {
	case err == nil:
		s.metrics.Webhook(webhookApplied)
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		s.logger.Warn("Webhook for unknown order", fields)
		s.metrics.Webhook(webhookUnknownOrder)
		return nil
	case errors.Is(err, apperrors.ErrInvalidTransition):
		s.logger.Warn("Webhook status change not allowed, ignoring", logging.Fields{
			"order_id": event.OrderID,
			"status":   event.Status,
			"error":    err.Error(),
		})
		s.metrics.Webhook(webhookIgnored)
		return nil
	default:
		s.logger.Error("Failed to apply webhook", logging.Fields{
			"order_id": event.OrderID,
			"error":    err.Error(),
		})
		s.metrics.Webhook(webhookError)
		return err
	}
}
