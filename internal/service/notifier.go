package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

// Notifier sends customer emails at most once per order and kind. Delivery
// failures are logged and never fail the calling operation.
type Notifier struct {
	sender  clients.NotificationSender
	ledger  repository.NotificationLedger
	metrics *metrics.Metrics
	logger  *logging.Logger
}

func NewNotifier(sender clients.NotificationSender, ledger repository.NotificationLedger, m *metrics.Metrics) *Notifier {
	return &Notifier{
		sender:  sender,
		ledger:  ledger,
		metrics: m,
		logger:  logging.NewLogger("notifier"),
	}
}

// OrderPaid sends the payment confirmation.
func (n *Notifier) OrderPaid(ctx context.Context, order *models.Order) {
	n.once(ctx, order, repository.NotificationPaidConfirmation, func() error {
		return n.sender.SendOrderConfirmation(ctx, order)
	})
}

// ManualInstructions sends the manual payment instructions.
func (n *Notifier) ManualInstructions(ctx context.Context, order *models.Order, manual models.ManualPayment) {
	n.once(ctx, order, repository.NotificationManualInstructions, func() error {
		return n.sender.SendManualPaymentInstructions(ctx, order, manual)
	})
}

func (n *Notifier) once(ctx context.Context, order *models.Order, kind repository.NotificationKind, send func() error) {
	fields := logging.Fields{"order_id": order.ID, "kind": kind}

	if n.ledger != nil {
		first, err := n.ledger.MarkSent(ctx, order.ID, kind)
		if err != nil {
			n.logger.Error("Failed to check notification ledger", logging.Fields{
				"order_id": order.ID,
				"kind":     kind,
				"error":    err.Error(),
			})
			n.metrics.Notification(string(kind), "error")
			return
		}
		if !first {
			n.metrics.Notification(string(kind), "duplicate")
			return
		}
	}

	if err := send(); err != nil {
		n.logger.Warn("Failed to send notification", logging.Fields{
			"order_id": order.ID,
			"kind":     kind,
			"error":    err.Error(),
		})
		n.metrics.Notification(string(kind), "failed")
		if n.ledger != nil {
			if err := n.ledger.Release(ctx, order.ID, kind); err != nil {
				n.logger.Error("Failed to release notification slot", fields)
			}
		}
		return
	}

	n.metrics.Notification(string(kind), "sent")
}
