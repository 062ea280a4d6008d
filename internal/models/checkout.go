package models

import (
	"encoding/json"
	"time"
)

// CheckoutRequest is the POST /checkout body. Client prices, if any, are
// ignored.
type CheckoutRequest struct {
	Items    []CartItem   `json:"items"`
	Customer CustomerInfo `json:"customer"`
}

type CartItem struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

type CustomerInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// ManualPayment tells the customer how to pay without a gateway.
type ManualPayment struct {
	QRImageURL   string `json:"qrImageUrl"`
	Instructions string `json:"instructions"`
	PaymentEmail string `json:"paymentEmail"`
}

// CheckoutResult is returned with 201 after an order is placed.
type CheckoutResult struct {
	OrderID           string             `json:"orderId"`
	Status            OrderStatus        `json:"status"`
	PaymentURL        string             `json:"paymentUrl,omitempty"`
	QRString          *string            `json:"qrString,omitempty"`
	ExpiresAt         *time.Time         `json:"expiresAt,omitempty"`
	AvailablePayments []AvailablePayment `json:"availablePayments,omitempty"`
	Manual            *ManualPayment     `json:"manual,omitempty"`
}

// RedirectURLs are where the provider sends the payer afterwards.
type RedirectURLs struct {
	Success string
	Failure string
}

// Invoice is the provider's payable request.
type Invoice struct {
	ID                string             `json:"id"`
	ExternalID        string             `json:"external_id"`
	Status            string             `json:"status"`
	InvoiceURL        string             `json:"invoice_url"`
	ExpiryDate        *time.Time         `json:"expiry_date,omitempty"`
	QRString          string             `json:"qr_string,omitempty"`
	AvailablePayments []AvailablePayment `json:"available_payments,omitempty"`

	// Raw is the provider response body, kept verbatim for audit.
	Raw json.RawMessage `json:"-"`
}

type AvailablePayment struct {
	ChannelCode     string `json:"channel_code"`
	ChannelCategory string `json:"channel_category"`
	QRString        string `json:"qr_string,omitempty"`
}

// QRPayload returns the QR string to render, preferring the top-level one
// and falling back to the first QR-capable channel.
func (i *Invoice) QRPayload() *string {
	if i.QRString != "" {
		qr := i.QRString
		return &qr
	}
	for _, p := range i.AvailablePayments {
		if (p.ChannelCategory == "QR_CODE" || p.ChannelCode == "QR_PH") && p.QRString != "" {
			qr := p.QRString
			return &qr
		}
	}
	return nil
}

// PaymentEvent is a provider webhook normalized to canonical vocabulary.
type PaymentEvent struct {
	OrderID        string
	Status         OrderStatus
	PaymentMethod  *string
	PaymentChannel *string
	PaidAt         *time.Time
	Raw            json.RawMessage
}

// Product is read-only catalog data.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       int64    `json:"price"`
	Category    string   `json:"category"`
	Stock       int      `json:"stock"`
	Image       string   `json:"image"`
	Description string   `json:"description"`
	Sizes       []string `json:"sizes"`
}

// HasSize reports whether the product is offered in size.
func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
