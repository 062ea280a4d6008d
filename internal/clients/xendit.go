package clients

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// PaymentGateway creates hosted invoices and interprets provider callbacks.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, order *models.Order, urls models.RedirectURLs) (*models.Invoice, error)
	ValidateWebhook(token string) error
	NormalizeWebhookPayload(raw []byte) (*models.PaymentEvent, error)
}

var _ PaymentGateway = (*XenditClient)(nil)

const invoicesPath = "/v2/invoices"

// XenditClient talks to the Xendit invoice API.
type XenditClient struct {
	client         *resty.Client
	apiKey         string
	callbackToken  string
	currency       string
	paymentMethods []string
	logger         *logging.Logger
}

// NewXenditClient creates a client. An empty API key is allowed so the
// service can start; invoice creation then fails as unavailable.
func NewXenditClient(cfg config.XenditConfig, currency string, logger *logging.Logger) *XenditClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetBasicAuth(cfg.APIKey, "")
	}

	if cfg.CallbackToken == "" {
		logger.Warn("XENDIT_CALLBACK_TOKEN is not set, webhooks are accepted without verification")
	}

	return &XenditClient{
		client:         client,
		apiKey:         cfg.APIKey,
		callbackToken:  cfg.CallbackToken,
		currency:       currency,
		paymentMethods: cfg.PaymentMethods,
		logger:         logger,
	}
}

type invoiceCustomer struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobile_number"`
}

type notificationPreference struct {
	InvoiceCreated  []string `json:"invoice_created"`
	InvoiceReminder []string `json:"invoice_reminder"`
	InvoicePaid     []string `json:"invoice_paid"`
}

type invoiceItem struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type createInvoiceRequest struct {
	ExternalID                     string                 `json:"external_id"`
	Amount                         int64                  `json:"amount"`
	Currency                       string                 `json:"currency"`
	Description                    string                 `json:"description"`
	Customer                       invoiceCustomer        `json:"customer"`
	CustomerNotificationPreference notificationPreference `json:"customer_notification_preference"`
	SuccessRedirectURL             string                 `json:"success_redirect_url"`
	FailureRedirectURL             string                 `json:"failure_redirect_url"`
	PaymentMethods                 []string               `json:"payment_methods,omitempty"`
	Metadata                       map[string]string      `json:"metadata"`
	Items                          []invoiceItem          `json:"items"`
}

func (c *XenditClient) buildInvoiceRequest(order *models.Order, urls models.RedirectURLs) createInvoiceRequest {
	email := []string{"email"}
	currency := order.Currency
	if currency == "" {
		currency = c.currency
	}

	items := make([]invoiceItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, invoiceItem{Name: item.Name, Price: item.Price, Quantity: item.Quantity})
	}

	return createInvoiceRequest{
		ExternalID:  order.ID,
		Amount:      order.Total,
		Currency:    currency,
		Description: "Order " + order.ID,
		Customer: invoiceCustomer{
			Name:         order.CustomerName,
			Email:        order.Email,
			MobileNumber: order.Phone,
		},
		CustomerNotificationPreference: notificationPreference{
			InvoiceCreated:  email,
			InvoiceReminder: email,
			InvoicePaid:     email,
		},
		SuccessRedirectURL: urls.Success,
		FailureRedirectURL: urls.Failure,
		PaymentMethods:     c.paymentMethods,
		Metadata:           map[string]string{"orderId": order.ID},
		Items:              items,
	}
}

// CreateInvoice asks Xendit for a hosted invoice for order. It makes exactly
// one request; failures are classified but never retried here.
func (c *XenditClient) CreateInvoice(ctx context.Context, order *models.Order, urls models.RedirectURLs) (*models.Invoice, error) {
	ctx, span := otel.Tracer("xendit-client").Start(ctx, "xendit.CreateInvoice")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int64("order.total", order.Total),
	)

	if c.apiKey == "" {
		err := &apperrors.GatewayError{
			Kind:    apperrors.GatewayUnavailable,
			Message: "payment gateway is not configured (XENDIT_API_KEY missing)",
		}
		span.SetStatus(codes.Error, err.Message)
		return nil, err
	}

	c.logger.Debug("Creating invoice", logging.Fields{
		"order_id": order.ID,
		"amount":   order.Total,
	})

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(c.buildInvoiceRequest(order, urls)).
		Post(invoicesPath)
	if err != nil {
		c.logger.Error("Invoice request failed", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return nil, &apperrors.GatewayError{
			Kind:    apperrors.GatewayUnavailable,
			Message: "payment gateway unreachable",
			Err:     err,
		}
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status >= http.StatusInternalServerError || status < http.StatusOK {
		c.logger.Error("Invoice request returned server error", logging.Fields{
			"order_id":    order.ID,
			"status_code": status,
		})
		span.SetStatus(codes.Error, "gateway unavailable")
		return nil, &apperrors.GatewayError{
			Kind:       apperrors.GatewayUnavailable,
			StatusCode: status,
			Message:    "payment gateway unavailable",
			Detail:     resp.Body(),
		}
	}
	if status >= http.StatusBadRequest {
		c.logger.Warn("Invoice request rejected", logging.Fields{
			"order_id":    order.ID,
			"status_code": status,
			"body":        string(resp.Body()),
		})
		span.SetStatus(codes.Error, "gateway rejected")
		return nil, &apperrors.GatewayError{
			Kind:       apperrors.GatewayRejected,
			StatusCode: status,
			Message:    "payment gateway rejected the invoice",
			Detail:     resp.Body(),
		}
	}

	var invoice models.Invoice
	if err := json.Unmarshal(resp.Body(), &invoice); err != nil {
		span.RecordError(err)
		return nil, &apperrors.GatewayError{
			Kind:       apperrors.GatewayUnavailable,
			StatusCode: status,
			Message:    "unreadable invoice response",
			Detail:     resp.Body(),
			Err:        err,
		}
	}
	invoice.Raw = json.RawMessage(resp.Body())

	c.logger.Info("Invoice created", logging.Fields{
		"order_id":   order.ID,
		"invoice_id": invoice.ID,
	})
	span.SetAttributes(attribute.String("xendit.invoice_id", invoice.ID))

	return &invoice, nil
}

// ValidateWebhook checks the callback token sent in X-Callback-Token.
func (c *XenditClient) ValidateWebhook(token string) error {
	if c.callbackToken == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(c.callbackToken)) != 1 {
		return fmt.Errorf("%w: invalid webhook token", apperrors.ErrUnauthorized)
	}
	return nil
}

type webhookEnvelope struct {
	Data *webhookData `json:"data"`
}

type webhookData struct {
	ExternalID    string `json:"external_id"`
	Status        string `json:"status"`
	PaidAt        string `json:"paid_at"`
	PaymentMethod *struct {
		Type        string `json:"type"`
		ChannelCode string `json:"channel_code"`
	} `json:"payment_method"`
}

// NormalizeWebhookPayload maps a provider callback onto the order vocabulary.
func (c *XenditClient) NormalizeWebhookPayload(raw []byte) (*models.PaymentEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedPayload, err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("%w: missing data object", apperrors.ErrMalformedPayload)
	}
	data := envelope.Data
	if data.ExternalID == "" {
		return nil, fmt.Errorf("%w: missing external_id", apperrors.ErrMalformedPayload)
	}

	event := &models.PaymentEvent{
		OrderID: data.ExternalID,
		Status:  normalizeStatus(data.Status),
		Raw:     json.RawMessage(raw),
	}
	if data.PaymentMethod != nil {
		event.PaymentMethod = models.StringPtr(data.PaymentMethod.Type)
		event.PaymentChannel = models.StringPtr(data.PaymentMethod.ChannelCode)
	}
	if data.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339Nano, data.PaidAt)
		if err != nil {
			c.logger.Warn("Ignoring unparsable paid_at", logging.Fields{
				"order_id": data.ExternalID,
				"paid_at":  data.PaidAt,
			})
		} else {
			paidAt = paidAt.UTC()
			event.PaidAt = &paidAt
		}
	}

	return event, nil
}

func normalizeStatus(status string) models.OrderStatus {
	switch status {
	case "PAID":
		return models.OrderStatusPaid
	case "EXPIRED", "CANCELED":
		return models.OrderStatusFailed
	default:
		return models.OrderStatusPending
	}
}
