package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Load()
	cfg.Database = config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "orders.sqlite"),
	}
	cfg.Features.EnableOrderCaching = false
	cfg.Features.EnableOrderEvents = false
	cfg.Admin.Token = "cli-token"
	return cfg
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var root = ordersCmd(cfg)
	switch args[0] {
	case "migrate":
		root = migrateCmd(cfg)
	}
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs(args[1:])
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOrdersCommands(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrations applied")

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	order, err := a.orders.CreateOrder(context.Background(), &models.CreateOrderRequest{
		CustomerName: "Juan Dela Cruz",
		Email:        "juan@example.com",
		Phone:        "+639171234567",
		Address:      "1 Rizal St, Manila",
		Items:        []models.OrderItem{{ProductID: "cap-sun", Name: "Sun Cap", Price: 890, Quantity: 1}},
		Total:        890,
		Currency:     "PHP",
	})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	out, err = run(t, cfg, "orders", "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, order.ID)
	assert.Contains(t, out, "890 PHP")

	out, err = run(t, cfg, "orders", "set-status", order.ID, "paid", "--channel", "GCASH")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "paid"`)
	assert.Contains(t, out, `"paymentMethod": "manual_verification"`)

	out, err = run(t, cfg, "orders", "get", order.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"paymentChannel": "GCASH"`)

	_, err = run(t, cfg, "orders", "set-status", order.ID, "pending")
	assert.Error(t, err)

	_, err = run(t, cfg, "migrate", "sideways")
	assert.Error(t, err)
}
