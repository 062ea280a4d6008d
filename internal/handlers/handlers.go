package handlers

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers holds all HTTP handlers for the storefront.
type Handlers struct {
	checkoutService *service.CheckoutService
	orderService    *service.OrderService
	paymentService  *service.PaymentService
	db              Pinger
	config          *config.Config
	logger          *logging.Logger
}

// NewHandlers creates a new handlers instance. db may be nil, in which case
// readiness always succeeds.
func NewHandlers(
	checkoutService *service.CheckoutService,
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	db Pinger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		checkoutService: checkoutService,
		orderService:    orderService,
		paymentService:  paymentService,
		db:              db,
		config:          cfg,
		logger:          logging.NewLogger("handlers"),
	}
}
