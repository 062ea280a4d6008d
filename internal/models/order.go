package models

import (
	"encoding/json"
	"math"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// OrderStatuses lists every valid status in display order.
var OrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusFailed}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is an expected
// lifecycle edge. Staying in the same status is allowed and is a no-op.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	return s == OrderStatusPending && (next == OrderStatusPaid || next == OrderStatusFailed)
}

// Order is the durable purchase record.
type Order struct {
	ID             string          `json:"id"`
	CustomerName   string          `json:"customerName"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	Items          []OrderItem     `json:"items"`
	Total          int64           `json:"total"`
	Currency       string          `json:"currency"`
	Status         OrderStatus     `json:"status"`
	PaymentMethod  *string         `json:"paymentMethod"`
	PaymentChannel *string         `json:"paymentChannel"`
	PaymentLinkID  *string         `json:"paymentLinkId"`
	PaymentURL     *string         `json:"paymentUrl"`
	Metadata       json.RawMessage `json:"metadata"`
	PaidAt         *time.Time      `json:"paidAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Revision       int64           `json:"revision"`
}

// OrderItem is one priced cart line captured at order time.
type OrderItem struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

// MaxItemQuantity caps how many units of one product a cart line may hold.
const MaxItemQuantity = 1000

// LineTotal returns price times quantity. ok is false when the product does
// not fit in an int64 or either factor is negative.
func (i OrderItem) LineTotal() (total int64, ok bool) {
	if i.Price < 0 || i.Quantity < 0 {
		return 0, false
	}
	if i.Quantity > 0 && i.Price > math.MaxInt64/int64(i.Quantity) {
		return 0, false
	}
	return i.Price * int64(i.Quantity), true
}

// SumItems totals the given line items. ok is false when a line total or the
// running sum overflows.
func SumItems(items []OrderItem) (total int64, ok bool) {
	for _, item := range items {
		line, fits := item.LineTotal()
		if !fits || total > math.MaxInt64-line {
			return 0, false
		}
		total += line
	}
	return total, true
}

// CreateOrderRequest is the draft handed to the order store.
type CreateOrderRequest struct {
	ID             string
	CustomerName   string
	Email          string
	Phone          string
	Address        string
	Items          []OrderItem
	Total          int64
	Currency       string
	Status         OrderStatus
	PaymentMethod  *string
	PaymentChannel *string
	PaymentLinkID  *string
	PaymentURL     *string
	Metadata       json.RawMessage
}

// OrderChanges is a partial update. Every field is either kept or set to an
// explicit value; nullable columns are cleared with Set[*T](nil).
type OrderChanges struct {
	CustomerName   Field[string]
	Email          Field[string]
	Phone          Field[string]
	Address        Field[string]
	Items          Field[[]OrderItem]
	Total          Field[int64]
	Currency       Field[string]
	Status         Field[OrderStatus]
	PaymentMethod  Field[*string]
	PaymentChannel Field[*string]
	PaymentLinkID  Field[*string]
	PaymentURL     Field[*string]
	Metadata       Field[json.RawMessage]
	PaidAt         Field[*time.Time]

	// ExpectedRevision, when non-zero, makes the update fail with a conflict
	// if the stored revision differs.
	ExpectedRevision int64
}

// Apply merges the changes onto a copy of o.
func (c *OrderChanges) Apply(o Order) Order {
	o.CustomerName = c.CustomerName.Or(o.CustomerName)
	o.Email = c.Email.Or(o.Email)
	o.Phone = c.Phone.Or(o.Phone)
	o.Address = c.Address.Or(o.Address)
	o.Items = c.Items.Or(o.Items)
	o.Total = c.Total.Or(o.Total)
	o.Currency = c.Currency.Or(o.Currency)
	o.Status = c.Status.Or(o.Status)
	o.PaymentMethod = c.PaymentMethod.Or(o.PaymentMethod)
	o.PaymentChannel = c.PaymentChannel.Or(o.PaymentChannel)
	o.PaymentLinkID = c.PaymentLinkID.Or(o.PaymentLinkID)
	o.PaymentURL = c.PaymentURL.Or(o.PaymentURL)
	o.Metadata = c.Metadata.Or(o.Metadata)
	o.PaidAt = c.PaidAt.Or(o.PaidAt)
	return o
}

// OrderListFilter narrows order listings. A nil Status lists everything.
type OrderListFilter struct {
	Status *OrderStatus
}

// UpdateOrderStatusRequest is the admin reconciliation body.
type UpdateOrderStatusRequest struct {
	Status         OrderStatus `json:"status"`
	PaymentMethod  string      `json:"paymentMethod,omitempty"`
	PaymentChannel string      `json:"paymentChannel,omitempty"`
}

// StringPtr returns nil for an empty string, otherwise a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
