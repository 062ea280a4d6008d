package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

const (
	defaultCurrency   = "PHP"
	maxUpdateAttempts = 5
)

const orderColumns = `
	id, customer_name, email, phone, address, total, currency, status,
	payment_method, payment_channel, payment_link_id, payment_url,
	items, metadata, paid_at, created_at, updated_at, revision`

// SQLOrderRepository stores orders in SQLite or PostgreSQL.
type SQLOrderRepository struct {
	db     *DB
	logger *logging.Logger
	now    func() time.Time
}

// NewSQLOrderRepository creates a new order repository on db.
func NewSQLOrderRepository(db *DB, logger *logging.Logger) *SQLOrderRepository {
	return &SQLOrderRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// GetByID retrieves an order by its identifier.
func (r *SQLOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.logger.Debug("Fetching order by ID", logging.Fields{"order_id": id})

	query := r.db.rebind(`SELECT ` + orderColumns + ` FROM orders WHERE id = ?`)
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to fetch order", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, apperrors.Storage("get order", err)
	}
	return order, nil
}

// Create inserts a new order. A missing id is generated, a missing status
// defaults to pending and a missing currency to PHP.
func (r *SQLOrderRepository) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := validateDraft(req); err != nil {
		return nil, err
	}

	now := r.now().UTC().Truncate(time.Microsecond)
	order := &models.Order{
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
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.Currency == "" {
		order.Currency = defaultCurrency
	}

	itemsJSON, metadata, err := encodeBlobs(order)
	if err != nil {
		return nil, err
	}

	query := r.db.rebind(`INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.CustomerName,
		order.Email,
		order.Phone,
		order.Address,
		order.Total,
		order.Currency,
		string(order.Status),
		stringArg(order.PaymentMethod),
		stringArg(order.PaymentChannel),
		stringArg(order.PaymentLinkID),
		stringArg(order.PaymentURL),
		itemsJSON,
		metadata,
		r.db.nullableTimeArg(order.PaidAt),
		r.db.timeArg(order.CreatedAt),
		r.db.timeArg(order.UpdatedAt),
		order.Revision,
	)
	if err != nil {
		if r.db.isUniqueViolation(err) {
			return nil, apperrors.ErrConflict
		}
		r.logger.Error("Failed to create order", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		return nil, apperrors.Storage("create order", err)
	}

	r.logger.Info("Order created", logging.Fields{
		"order_id": order.ID,
		"status":   order.Status,
		"total":    order.Total,
	})

	return order, nil
}

// Update merges changes into the stored order and bumps its revision. With
// ExpectedRevision set a concurrent write surfaces as ErrConflict; otherwise
// the merge is retried against the fresh row.
func (r *SQLOrderRepository) Update(ctx context.Context, id string, changes models.OrderChanges) (*models.Order, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if changes.ExpectedRevision != 0 && current.Revision != changes.ExpectedRevision {
			return nil, apperrors.ErrConflict
		}

		next := changes.Apply(*current)
		next.UpdatedAt = nextTimestamp(current.UpdatedAt, r.now())
		next.Revision = current.Revision + 1
		if err := validateOrder(&next); err != nil {
			return nil, err
		}

		updated, err := r.write(ctx, &next, current.Revision)
		if err != nil {
			return nil, err
		}
		if updated {
			r.logger.Info("Order updated", logging.Fields{
				"order_id": id,
				"status":   next.Status,
				"revision": next.Revision,
			})
			return &next, nil
		}

		if changes.ExpectedRevision != 0 {
			return nil, apperrors.ErrConflict
		}
		r.logger.Debug("Order changed during update, retrying", logging.Fields{
			"order_id": id,
			"attempt":  attempt,
		})
	}
	return nil, apperrors.ErrConflict
}

func (r *SQLOrderRepository) write(ctx context.Context, o *models.Order, prevRevision int64) (bool, error) {
	itemsJSON, metadata, err := encodeBlobs(o)
	if err != nil {
		return false, err
	}

	query := r.db.rebind(`
		UPDATE orders
		SET customer_name = ?, email = ?, phone = ?, address = ?, total = ?,
		    currency = ?, status = ?, payment_method = ?, payment_channel = ?,
		    payment_link_id = ?, payment_url = ?, items = ?, metadata = ?,
		    paid_at = ?, updated_at = ?, revision = ?
		WHERE id = ? AND revision = ?`)

	result, err := r.db.ExecContext(ctx, query,
		o.CustomerName,
		o.Email,
		o.Phone,
		o.Address,
		o.Total,
		o.Currency,
		string(o.Status),
		stringArg(o.PaymentMethod),
		stringArg(o.PaymentChannel),
		stringArg(o.PaymentLinkID),
		stringArg(o.PaymentURL),
		itemsJSON,
		metadata,
		r.db.nullableTimeArg(o.PaidAt),
		r.db.timeArg(o.UpdatedAt),
		o.Revision,
		o.ID,
		prevRevision,
	)
	if err != nil {
		r.logger.Error("Failed to update order", logging.Fields{
			"order_id": o.ID,
			"error":    err.Error(),
		})
		return false, apperrors.Storage("update order", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Storage("update order", err)
	}
	return rowsAffected == 1, nil
}

// List returns orders newest first, optionally restricted to one status.
func (r *SQLOrderRepository) List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := make([]interface{}, 0, 1)
	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, apperrors.Storage("list orders", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, apperrors.Storage("list orders", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("list orders", err)
	}

	r.logger.Debug("Orders listed", logging.Fields{"count": len(orders)})
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var status string
	var itemsJSON, metadata []byte
	var method, channel, linkID, url sql.NullString
	var paidAt, createdAt, updatedAt dbTime

	err := row.Scan(
		&order.ID,
		&order.CustomerName,
		&order.Email,
		&order.Phone,
		&order.Address,
		&order.Total,
		&order.Currency,
		&status,
		&method,
		&channel,
		&linkID,
		&url,
		&itemsJSON,
		&metadata,
		&paidAt,
		&createdAt,
		&updatedAt,
		&order.Revision,
	)
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatus(status)
	order.PaymentMethod = nullString(method)
	order.PaymentChannel = nullString(channel)
	order.PaymentLinkID = nullString(linkID)
	order.PaymentURL = nullString(url)
	order.PaidAt = paidAt.ptr()
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		order.Metadata = json.RawMessage(metadata)
	}

	return &order, nil
}

func stringArg(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func encodeBlobs(o *models.Order) (string, interface{}, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return "", nil, err
	}
	var metadata interface{}
	if len(o.Metadata) > 0 {
		if !json.Valid(o.Metadata) {
			return "", nil, apperrors.NewValidationError("metadata", "must be valid JSON")
		}
		metadata = string(o.Metadata)
	}
	return string(itemsJSON), metadata, nil
}

// nextTimestamp returns now truncated to the stored precision, nudged past
// prev so updatedAt strictly increases.
func nextTimestamp(prev, now time.Time) time.Time {
	next := now.UTC().Truncate(time.Microsecond)
	if !next.After(prev) {
		next = prev.Add(time.Microsecond)
	}
	return next
}

func validateDraft(req *models.CreateOrderRequest) error {
	o := models.Order{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		Items:        req.Items,
		Status:       req.Status,
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	return validateOrder(&o)
}

func validateOrder(o *models.Order) error {
	required := []struct {
		field string
		value string
	}{
		{"customerName", o.CustomerName},
		{"email", o.Email},
		{"phone", o.Phone},
		{"address", o.Address},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperrors.NewValidationError(r.field, "is required")
		}
	}
	if len(o.Items) == 0 {
		return apperrors.NewValidationError("items", "at least one item is required")
	}
	if !o.Status.Valid() {
		return apperrors.ErrInvalidStatus
	}
	return nil
}
