package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

// Sources of a status change, used in events and metrics.
const (
	SourceAdmin   = "admin"
	SourceWebhook = "webhook"
)

// DefaultManualPaymentMethod is recorded when an admin marks an order without
// naming the payment method.
const DefaultManualPaymentMethod = "manual_verification"

const maxTransitionAttempts = 3

// StatusChange is a requested move to a new status plus the payment details
// that came with it. Unset payment fields keep their stored values.
type StatusChange struct {
	Status         models.OrderStatus
	PaymentMethod  models.Field[*string]
	PaymentChannel models.Field[*string]
	PaidAt         *time.Time
}

// OrderService handles order business logic.
type OrderService struct {
	orderRepo      repository.OrderRepository
	orderCache     repository.OrderCache
	notifier       *Notifier
	eventPublisher events.Publisher
	metrics        *metrics.Metrics
	config         *config.Config
	logger         *logging.Logger
	loads          singleflight.Group
	now            func() time.Time
}

// NewOrderService creates a new order service. orderCache may be nil when
// caching is disabled.
func NewOrderService(
	orderRepo repository.OrderRepository,
	orderCache repository.OrderCache,
	notifier *Notifier,
	eventPublisher events.Publisher,
	m *metrics.Metrics,
	cfg *config.Config,
) *OrderService {
	if eventPublisher == nil {
		eventPublisher = events.NoopPublisher{}
	}
	return &OrderService{
		orderRepo:      orderRepo,
		orderCache:     orderCache,
		notifier:       notifier,
		eventPublisher: eventPublisher,
		metrics:        m,
		config:         cfg,
		logger:         logging.NewLogger("order-service"),
		now:            time.Now,
	}
}

// CreateOrder persists a new order and announces it.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	order, err := s.orderRepo.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cacheOrder(ctx, order)
	if err := s.eventPublisher.PublishOrderCreated(ctx, order); err != nil {
		s.logger.Error("Failed to publish order created event", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
	return order, nil
}

// UpdateOrder applies changes without lifecycle checks. It is used for
// payment link bookkeeping, not for status moves.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, changes models.OrderChanges) (*models.Order, error) {
	order, err := s.orderRepo.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	s.cacheOrder(ctx, order)
	return order, nil
}

// GetOrder retrieves an order by ID, reading through the cache when enabled.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if s.orderCache != nil {
		order, err := s.orderCache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Order cache read failed", logging.Fields{
				"order_id": id,
				"error":    err.Error(),
			})
		} else if order != nil {
			return order, nil
		}
	}

	v, err, _ := s.loads.Do(id, func() (interface{}, error) {
		order, err := s.orderRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cacheOrder(ctx, order)
		return order, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Order), nil
}

// ListOrders lists orders newest first. An empty status lists all orders.
func (s *OrderService) ListOrders(ctx context.Context, status string) ([]*models.Order, error) {
	filter := models.OrderListFilter{}
	if strings.TrimSpace(status) != "" {
		parsed, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = &parsed
	}
	return s.orderRepo.List(ctx, filter)
}

// SetOrderStatus is the admin reconciliation path. credential is checked
// before anything is read.
func (s *OrderService) SetOrderStatus(ctx context.Context, id string, req models.UpdateOrderStatusRequest, credential string) (*models.Order, error) {
	if err := s.AuthorizeAdmin(credential); err != nil {
		return nil, err
	}

	status, err := ParseStatus(string(req.Status))
	if err != nil {
		return nil, err
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = DefaultManualPaymentMethod
	}

	return s.ApplyStatusChange(ctx, id, StatusChange{
		Status:         status,
		PaymentMethod:  models.Set(&method),
		PaymentChannel: models.Set(models.StringPtr(strings.TrimSpace(req.PaymentChannel))),
	}, SourceAdmin)
}

// AuthorizeAdmin checks credential against the configured admin token. An
// unset token leaves admin routes open.
func (s *OrderService) AuthorizeAdmin(credential string) error {
	expected := s.config.Admin.Token
	if expected == "" {
		s.logger.Warn("ADMIN_TOKEN is not configured, admin routes are unprotected")
		return nil
	}
	received := strings.TrimSpace(credential)
	if subtle.ConstantTimeCompare([]byte(received), []byte(expected)) != 1 {
		s.logger.Warn("Admin authentication failed", logging.Fields{
			"received_length": len(received),
		})
		return apperrors.ErrUnauthorized
	}
	return nil
}

// ApplyStatusChange moves an order to change.Status. Staying in the same
// status is a no-op. Writes are guarded by the order revision, so a
// concurrent change is re-read and re-validated.
func (s *OrderService) ApplyStatusChange(ctx context.Context, id string, change StatusChange, source string) (*models.Order, error) {
	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		current, err := s.orderRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if current.Status == change.Status {
			s.logger.Info("Order already in requested status", logging.Fields{
				"order_id": id,
				"status":   current.Status,
				"source":   source,
			})
			if current.Status == models.OrderStatusPaid {
				s.notifier.OrderPaid(ctx, current)
			}
			return current, nil
		}

		if s.config.Features.StrictStatusTransitions && !current.Status.CanTransitionTo(change.Status) {
			return nil, apperrors.InvalidTransition(string(current.Status), string(change.Status))
		}

		changes := models.OrderChanges{
			Status:           models.Set(change.Status),
			PaymentMethod:    change.PaymentMethod,
			PaymentChannel:   change.PaymentChannel,
			ExpectedRevision: current.Revision,
		}
		if change.Status == models.OrderStatusPaid {
			paidAt := change.PaidAt
			if paidAt == nil {
				now := s.now().UTC()
				paidAt = &now
			}
			changes.PaidAt = models.Set(paidAt)
		} else {
			changes.PaidAt = models.Set[*time.Time](nil)
		}

		updated, err := s.orderRepo.Update(ctx, id, changes)
		if errors.Is(err, apperrors.ErrConflict) {
			s.logger.Debug("Order changed during status update, retrying", logging.Fields{
				"order_id": id,
				"attempt":  attempt,
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		s.afterTransition(ctx, updated, current.Status, source)
		return updated, nil
	}
	return nil, apperrors.ErrConflict
}

func (s *OrderService) afterTransition(ctx context.Context, order *models.Order, previous models.OrderStatus, source string) {
	s.logger.Info("Order status changed", logging.Fields{
		"order_id":        order.ID,
		"previous_status": previous,
		"new_status":      order.Status,
		"source":          source,
	})

	s.cacheOrder(ctx, order)
	s.metrics.StatusTransition(string(previous), string(order.Status), source)

	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, order, previous, source); err != nil {
		s.logger.Error("Failed to publish status changed event", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}

	if order.Status == models.OrderStatusPaid {
		s.notifier.OrderPaid(ctx, order)
	}
}

func (s *OrderService) cacheOrder(ctx context.Context, order *models.Order) {
	if s.orderCache == nil {
		return
	}
	if err := s.orderCache.Set(ctx, order); err != nil {
		s.logger.Warn("Failed to cache order, evicting entry", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		// A stale entry would outlive the write until its TTL expires.
		if err := s.orderCache.Delete(ctx, order.ID); err != nil {
			s.logger.Error("Failed to evict cached order", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}
}
