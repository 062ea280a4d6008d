package repository

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// OrderRepository persists orders.
type OrderRepository interface {
	Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	Update(ctx context.Context, id string, changes models.OrderChanges) (*models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, error)
}

// OrderCache defines caching operations for orders. A miss returns nil, nil.
type OrderCache interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
}

// NotificationKind names a customer notification that is sent at most once
// per order.
type NotificationKind string

const (
	NotificationPaidConfirmation   NotificationKind = "paid_confirmation"
	NotificationManualInstructions NotificationKind = "manual_instructions"
)

// NotificationLedger records which notifications an order already received.
type NotificationLedger interface {
	// MarkSent claims the (order, kind) slot. It returns false when the slot
	// was already taken.
	MarkSent(ctx context.Context, orderID string, kind NotificationKind) (bool, error)

	// Release frees a slot after a failed delivery so a later trigger can retry.
	Release(ctx context.Context, orderID string, kind NotificationKind) error
}

var (
	_ OrderRepository    = (*SQLOrderRepository)(nil)
	_ OrderCache         = (*RedisOrderCache)(nil)
	_ NotificationLedger = (*SQLNotificationLedger)(nil)
)
