package repository

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
)

// SQLNotificationLedger keeps one row per delivered (order, kind) pair.
type SQLNotificationLedger struct {
	db     *DB
	logger *logging.Logger
}

func NewSQLNotificationLedger(db *DB, logger *logging.Logger) *SQLNotificationLedger {
	return &SQLNotificationLedger{db: db, logger: logger}
}

func (l *SQLNotificationLedger) MarkSent(ctx context.Context, orderID string, kind NotificationKind) (bool, error) {
	query := l.db.rebind(`
		INSERT INTO order_notifications (order_id, kind, sent_at)
		VALUES (?, ?, ?)
		ON CONFLICT (order_id, kind) DO NOTHING`)

	result, err := l.db.ExecContext(ctx, query, orderID, string(kind), l.db.timeArg(time.Now()))
	if err != nil {
		return false, apperrors.Storage("mark notification", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Storage("mark notification", err)
	}
	if n == 0 {
		l.logger.Debug("Notification already sent", logging.Fields{
			"order_id": orderID,
			"kind":     kind,
		})
	}
	return n == 1, nil
}

func (l *SQLNotificationLedger) Release(ctx context.Context, orderID string, kind NotificationKind) error {
	query := l.db.rebind(`DELETE FROM order_notifications WHERE order_id = ? AND kind = ?`)
	if _, err := l.db.ExecContext(ctx, query, orderID, string(kind)); err != nil {
		return apperrors.Storage("release notification", err)
	}
	return nil
}
