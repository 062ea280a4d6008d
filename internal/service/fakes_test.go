package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

type memRepo struct {
	mu     sync.Mutex
	orders map[string]models.Order
	clock  time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders: make(map[string]models.Order),
		clock:  time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (r *memRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memRepo) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	o := models.Order{
		ID:             req.ID,
		CustomerName:   req.CustomerName,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		Items:          req.Items,
		Total:          req.Total,
		Currency:       req.Currency,
		Status:         req.Status,
		PaymentMethod:  req.PaymentMethod,
		PaymentChannel: req.PaymentChannel,
		PaymentLinkID:  req.PaymentLinkID,
		PaymentURL:     req.PaymentURL,
		Metadata:       req.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
		Revision:       1,
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	r.orders[o.ID] = o
	return &o, nil
}

func (r *memRepo) Update(ctx context.Context, id string, changes models.OrderChanges) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if changes.ExpectedRevision != 0 && changes.ExpectedRevision != current.Revision {
		return nil, apperrors.ErrConflict
	}
	next := changes.Apply(current)
	next.Revision++
	next.UpdatedAt = r.tick()
	r.orders[id] = next
	return &next, nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &o, nil
}

func (r *memRepo) List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Order, 0)
	for _, o := range r.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type memCache struct {
	mu      sync.Mutex
	orders  map[string]models.Order
	gets    int
	deletes int
	setErr  error
}

func newMemCache() *memCache {
	return &memCache{orders: make(map[string]models.Order)}
}

func (c *memCache) Get(ctx context.Context, id string) (*models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	o, ok := c.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (c *memCache) Set(ctx context.Context, order *models.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.orders[order.ID] = *order
	return nil
}

func (c *memCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.orders, id)
	return nil
}

type memLedger struct {
	mu   sync.Mutex
	sent map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{sent: make(map[string]bool)}
}

func (l *memLedger) MarkSent(ctx context.Context, orderID string, kind repository.NotificationKind) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := orderID + "/" + string(kind)
	if l.sent[key] {
		return false, nil
	}
	l.sent[key] = true
	return true, nil
}

func (l *memLedger) Release(ctx context.Context, orderID string, kind repository.NotificationKind) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sent, orderID+"/"+string(kind))
	return nil
}

type fakeSender struct {
	mu           sync.Mutex
	confirmed    []string
	instructions []string
	err          error
}

func (s *fakeSender) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.confirmed = append(s.confirmed, order.ID)
	return nil
}

func (s *fakeSender) SendManualPaymentInstructions(ctx context.Context, order *models.Order, manual models.ManualPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.instructions = append(s.instructions, order.ID)
	return nil
}

func (s *fakeSender) confirmations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.confirmed)
}

// fakeGateway uses the real webhook handling and a scripted invoice call.
type fakeGateway struct {
	*clients.XenditClient
	invoice *models.Invoice
	err     error
	orders  []*models.Order
	urls    []models.RedirectURLs
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, order *models.Order, urls models.RedirectURLs) (*models.Invoice, error) {
	g.orders = append(g.orders, order)
	g.urls = append(g.urls, urls)
	if g.err != nil {
		return nil, g.err
	}
	return g.invoice, nil
}

const (
	testCallbackToken = "cb-token"
	testAdminToken    = "admin-secret"
)

type fixture struct {
	cfg       *config.Config
	repo      *memRepo
	cache     *memCache
	ledger    *memLedger
	sender    *fakeSender
	gateway   *fakeGateway
	publisher *events.MockEventPublisher
	orders    *OrderService
	payments  *PaymentService
	checkout  *CheckoutService
}

func newFixture(mutate ...func(*config.Config)) *fixture {
	cfg := &config.Config{
		Payments: config.PaymentsConfig{Mode: config.PaymentsModeXendit},
		Manual: config.ManualPaymentConfig{
			QRImageURL:   "https://cdn.example.com/qr.png",
			Instructions: "Scan the QR code, then email your receipt.",
			PaymentEmail: "payments@example.com",
		},
		Admin:      config.AdminConfig{Token: testAdminToken},
		Storefront: config.StorefrontConfig{ClientBaseURL: "http://localhost:5173", Currency: "PHP"},
		Features:   config.FeatureFlags{StrictStatusTransitions: true},
	}
	for _, m := range mutate {
		m(cfg)
	}

	cat, err := catalog.Default()
	if err != nil {
		panic(err)
	}

	f := &fixture{
		cfg:       cfg,
		repo:      newMemRepo(),
		cache:     newMemCache(),
		ledger:    newMemLedger(),
		sender:    &fakeSender{},
		publisher: events.NewMockEventPublisher(),
	}
	f.gateway = &fakeGateway{
		XenditClient: clients.NewXenditClient(config.XenditConfig{CallbackToken: testCallbackToken}, "PHP", logging.NewLogger("test")),
		invoice: &models.Invoice{
			ID:         "inv-123",
			InvoiceURL: "https://checkout.xendit.co/web/inv-123",
			Raw:        []byte(`{"id":"inv-123","status":"PENDING"}`),
		},
	}

	m := metrics.New()
	notifier := NewNotifier(f.sender, f.ledger, m)
	f.orders = NewOrderService(f.repo, f.cache, notifier, f.publisher, m, cfg)
	f.payments = NewPaymentService(f.gateway, f.orders, m)
	f.checkout = NewCheckoutService(cat, f.orders, f.gateway, notifier, m, cfg)
	return f
}

func validCheckout() *models.CheckoutRequest {
	return &models.CheckoutRequest{
		Items: []models.CartItem{{ProductID: "tee-classic", Quantity: 2, Size: "M"}},
		Customer: models.CustomerInfo{
			FullName: "Juan Dela Cruz",
			Email:    "juan@example.com",
			Phone:    "+639171234567",
			Address:  "1 Rizal St, Manila",
		},
	}
}
