//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func setupPostgres(t *testing.T) *DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Driver:       config.DriverPostgres,
		Host:         host,
		Port:         port.Int(),
		User:         "storefront",
		Password:     "storefront",
		Name:         "storefront",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		MaxLifetime:  time.Minute,
	}
	require.NoError(t, Migrate(cfg, "up"))

	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgres_OrderLifecycle(t *testing.T) {
	db := setupPostgres(t)
	repo := NewSQLOrderRepository(db, logging.NewLogger("test"))
	ctx := context.Background()

	order, err := repo.Create(ctx, newDraft())
	require.NoError(t, err)

	paidAt := time.Now().UTC().Truncate(time.Microsecond)
	updated, err := repo.Update(ctx, order.ID, models.OrderChanges{
		Status:           models.Set(models.OrderStatusPaid),
		PaymentChannel:   models.Set(models.StringPtr("GCASH")),
		PaidAt:           models.Set(&paidAt),
		ExpectedRevision: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Revision)

	_, err = repo.Update(ctx, order.ID, models.OrderChanges{
		Status:           models.Set(models.OrderStatusFailed),
		ExpectedRevision: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	stored, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
	assert.Equal(t, "GCASH", models.Deref(stored.PaymentChannel))
	require.NotNil(t, stored.PaidAt)
	assert.True(t, paidAt.Equal(*stored.PaidAt))

	paid := models.OrderStatusPaid
	list, err := repo.List(ctx, models.OrderListFilter{Status: &paid})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, order.ID, list[0].ID)

	ledger := NewSQLNotificationLedger(db, logging.NewLogger("test"))
	ok, err := ledger.MarkSent(ctx, order.ID, NotificationPaidConfirmation)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = ledger.MarkSent(ctx, order.ID, NotificationPaidConfirmation)
	require.NoError(t, err)
	assert.False(t, ok)
}
