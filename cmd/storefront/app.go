package main

import (
	"context"
	"errors"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/service"
)

// app is the wired service graph shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	db        *repository.DB
	cache     *repository.RedisOrderCache
	publisher events.Publisher
	metrics   *metrics.Metrics

	orders   *service.OrderService
	payments *service.PaymentService
	checkout *service.CheckoutService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.NewLogger("storefront")

	db, err := repository.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		publisher: events.NoopPublisher{},
		metrics:   metrics.New(),
	}

	var orderCache repository.OrderCache
	if cfg.Features.EnableOrderCaching {
		a.cache = repository.NewRedisOrderCache(cfg.Redis)
		if err := a.cache.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable, order caching disabled", logging.Fields{"error": err.Error()})
			a.cache.Close()
			a.cache = nil
		} else {
			orderCache = a.cache
		}
	}

	if cfg.Features.EnableOrderEvents {
		a.publisher = events.NewKafkaPublisher(cfg.Kafka, logging.NewLogger("events"))
	}

	products, err := catalog.Default()
	if err != nil {
		a.Close()
		return nil, err
	}

	sender := clients.NewNotificationSender(cfg.Email, logging.NewLogger("notifications"))
	ledger := repository.NewSQLNotificationLedger(db, logging.NewLogger("notification-ledger"))
	notifier := service.NewNotifier(sender, ledger, a.metrics)

	gateway := clients.NewXenditClient(cfg.Payments.Xendit, cfg.Storefront.Currency, logging.NewLogger("xendit-client"))
	orderRepo := repository.NewSQLOrderRepository(db, logging.NewLogger("order-repository"))

	a.orders = service.NewOrderService(orderRepo, orderCache, notifier, a.publisher, a.metrics, cfg)
	a.payments = service.NewPaymentService(gateway, a.orders, a.metrics)
	a.checkout = service.NewCheckoutService(products, a.orders, gateway, notifier, a.metrics, cfg)

	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if err := a.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
