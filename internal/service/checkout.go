package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// PaymentMethodXenditInvoice marks orders paid through a hosted invoice.
const PaymentMethodXenditInvoice = "xendit_invoice"

// CheckoutService turns a cart into a pending order and a way to pay for it.
type CheckoutService struct {
	catalog      ProductCatalog
	orderService *OrderService
	gateway      clients.PaymentGateway
	notifier     *Notifier
	metrics      *metrics.Metrics
	config       *config.Config
	logger       *logging.Logger
}

func NewCheckoutService(
	catalog ProductCatalog,
	orderService *OrderService,
	gateway clients.PaymentGateway,
	notifier *Notifier,
	m *metrics.Metrics,
	cfg *config.Config,
) *CheckoutService {
	return &CheckoutService{
		catalog:      catalog,
		orderService: orderService,
		gateway:      gateway,
		notifier:     notifier,
		metrics:      m,
		config:       cfg,
		logger:       logging.NewLogger("checkout-service"),
	}
}

// SubmitCheckout validates and prices the cart, stores a pending order, then
// either returns manual payment instructions or opens a gateway invoice.
//
// Once the order exists every returned result carries its id, including
// alongside a gateway error, so the client can still show the order.
func (s *CheckoutService) SubmitCheckout(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResult, error) {
	if err := ValidateCheckoutRequest(req); err != nil {
		return nil, err
	}

	items, total, err := PriceCart(s.catalog, req.Items)
	if err != nil {
		return nil, err
	}

	order, err := s.orderService.CreateOrder(ctx, &models.CreateOrderRequest{
		CustomerName: req.Customer.FullName,
		Email:        req.Customer.Email,
		Phone:        req.Customer.Phone,
		Address:      req.Customer.Address,
		Items:        items,
		Total:        total,
		Currency:     s.config.Storefront.Currency,
		Status:       models.OrderStatusPending,
	})
	if err != nil {
		return nil, err
	}

	mode := s.config.Payments.Mode
	s.metrics.OrderCreated(mode)
	s.logger.Info("Order placed", logging.Fields{
		"order_id": order.ID,
		"total":    order.Total,
		"items":    len(order.Items),
		"mode":     mode,
	})

	result := &models.CheckoutResult{
		OrderID: order.ID,
		Status:  order.Status,
	}

	if mode == config.PaymentsModeManual {
		manual := models.ManualPayment{
			QRImageURL:   s.config.Manual.QRImageURL,
			Instructions: s.config.Manual.Instructions,
			PaymentEmail: s.config.Manual.PaymentEmail,
		}
		s.notifier.ManualInstructions(ctx, order, manual)
		result.Manual = &manual
		return result, nil
	}

	invoice, err := s.gateway.CreateInvoice(ctx, order, s.redirectURLs(order.ID))
	if err != nil {
		s.metrics.GatewayRequest(gatewayOutcome(err))
		s.logger.Error("Invoice creation failed, order left pending", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		return result, err
	}
	s.metrics.GatewayRequest("success")

	if _, err := s.orderService.UpdateOrder(ctx, order.ID, models.OrderChanges{
		PaymentMethod:  models.Set(models.StringPtr(PaymentMethodXenditInvoice)),
		PaymentChannel: models.Set[*string](nil),
		PaymentLinkID:  models.Set(models.StringPtr(invoice.ID)),
		PaymentURL:     models.Set(models.StringPtr(invoice.InvoiceURL)),
		Metadata:       models.Set(invoice.Raw),
	}); err != nil {
		return result, fmt.Errorf("record invoice on order: %w", err)
	}

	result.PaymentURL = invoice.InvoiceURL
	result.QRString = invoice.QRPayload()
	result.ExpiresAt = invoice.ExpiryDate
	result.AvailablePayments = invoice.AvailablePayments
	if result.AvailablePayments == nil {
		result.AvailablePayments = []models.AvailablePayment{}
	}
	return result, nil
}

// Products returns the sellable catalog.
func (s *CheckoutService) Products() []models.Product {
	return s.catalog.All()
}

func (s *CheckoutService) redirectURLs(orderID string) models.RedirectURLs {
	base := s.config.Storefront.ClientBaseURL + "/order/" + url.PathEscape(orderID)
	return models.RedirectURLs{
		Success: base + "?status=paid",
		Failure: base + "?status=failed",
	}
}

func gatewayOutcome(err error) string {
	var gwErr *apperrors.GatewayError
	if errors.As(err, &gwErr) {
		return string(gwErr.Kind)
	}
	return "error"
}
