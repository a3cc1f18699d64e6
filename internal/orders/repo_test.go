package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shivanand-vn/SVPharma-sub000/pkg/db/models"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	customers := `
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  password_hash TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  due_amount NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  total_price NUMERIC NOT NULL,
  wallet_amount_used NUMERIC NOT NULL DEFAULT 0,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  is_admin_modified INTEGER NOT NULL DEFAULT 0,
  original_total_price NUMERIC,
  original_items TEXT,
  cancellation_reason TEXT,
  delivery_slip_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  medicine_id TEXT,
  name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	statusEvents := `
CREATE TABLE IF NOT EXISTS order_status_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME
);`
	orderReturns := `
CREATE TABLE IF NOT EXISTS order_returns (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  reason TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(customers).Error)
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(statusEvents).Error)
	require.NoError(t, db.Exec(orderReturns).Error)
	return db
}

func newCustomer(t *testing.T, db *gorm.DB, email string) *models.Customer {
	t.Helper()

	customer := &models.Customer{
		ID:           uuid.New(),
		Name:         "Test Customer",
		Email:        email,
		PasswordHash: "argon2id$test",
		IsActive:     true,
	}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

func createTestOrder(t *testing.T, db *gorm.DB, customerID uuid.UUID, status enums.OrderStatus, total int64, created time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     status,
		TotalPrice: decimal.NewFromInt(total),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func createTestItem(t *testing.T, db *gorm.DB, orderID uuid.UUID, name string, price int64, qty int) models.OrderItem {
	t.Helper()

	item := models.OrderItem{
		ID:        uuid.New(),
		OrderID:   orderID,
		Name:      name,
		UnitPrice: decimal.NewFromInt(price),
		Quantity:  qty,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func TestRepositoryListByCustomer_pagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customer := newCustomer(t, db, "page@example.com")
	other := newCustomer(t, db, "other@example.com")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		order := createTestOrder(t, db, customer.ID, enums.OrderStatusPending, int64(100+i), base.Add(time.Duration(i)*time.Hour))
		createTestItem(t, db, order.ID, "Paracetamol 500mg", 50, 2)
	}
	createTestOrder(t, db, other.ID, enums.OrderStatusPending, 999, base)

	first, err := repo.ListByCustomer(ctx, customer.ID, pagination.Params{Limit: 3}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, first.Orders, 3)
	require.NotEmpty(t, first.NextCursor)
	assert.True(t, first.Orders[0].CreatedAt.After(first.Orders[1].CreatedAt), "newest first")
	assert.Equal(t, 2, first.Orders[0].TotalItems)

	second, err := repo.ListByCustomer(ctx, customer.ID, pagination.Params{Limit: 3, Cursor: first.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, second.Orders, 2)
	assert.Empty(t, second.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, summary := range append(first.Orders, second.Orders...) {
		assert.False(t, seen[summary.ID], "no order repeats across pages")
		seen[summary.ID] = true
	}
}

func TestRepositoryListByCustomer_statusFilter(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customer := newCustomer(t, db, "filter@example.com")
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	createTestOrder(t, db, customer.ID, enums.OrderStatusPending, 100, base)
	delivered := createTestOrder(t, db, customer.ID, enums.OrderStatusDelivered, 200, base.Add(time.Hour))

	status := enums.OrderStatusDelivered
	list, err := repo.ListByCustomer(ctx, customer.ID, pagination.Params{Limit: 10}, ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, delivered.ID, list.Orders[0].ID)
}

func TestRepositoryFindDetailPreloadsHistory(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customer := newCustomer(t, db, "detail@example.com")
	order := createTestOrder(t, db, customer.ID, enums.OrderStatusDelivered, 150, time.Now().UTC())
	createTestItem(t, db, order.ID, "Paracetamol 500mg", 50, 3)

	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	} {
		require.NoError(t, repo.AppendStatusEvent(ctx, &models.OrderStatusEvent{
			ID:      uuid.New(),
			OrderID: order.ID,
			Status:  status,
		}))
	}
	require.NoError(t, repo.AppendReturns(ctx, []models.OrderReturn{{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Name:      "Paracetamol 500mg",
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(50),
		Reason:    "damaged",
	}}))

	detail, err := repo.FindDetail(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	require.Len(t, detail.StatusEvents, 4)
	assert.Equal(t, enums.OrderStatusPending, detail.StatusEvents[0].Status)
	assert.Equal(t, enums.OrderStatusDelivered, detail.StatusEvents[3].Status)
	require.Len(t, detail.Returns, 1)
	assert.Equal(t, "damaged", detail.Returns[0].Reason)
}

func TestRepositoryReplaceItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customer := newCustomer(t, db, "replace@example.com")
	order := createTestOrder(t, db, customer.ID, enums.OrderStatusPending, 100, time.Now().UTC())
	createTestItem(t, db, order.ID, "Paracetamol 500mg", 50, 2)
	createTestItem(t, db, order.ID, "Bandages", 10, 5)

	require.NoError(t, repo.ReplaceItems(ctx, order.ID, []models.OrderItem{{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Name:      "Paracetamol 500mg",
		UnitPrice: decimal.NewFromInt(50),
		Quantity:  1,
	}}))

	detail, err := repo.FindDetail(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, 1, detail.Items[0].Quantity)
}

func TestRepositoryUpdatePersistsStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customer := newCustomer(t, db, "update@example.com")
	order := createTestOrder(t, db, customer.ID, enums.OrderStatusPending, 100, time.Now().UTC())

	require.NoError(t, repo.Update(ctx, order.ID, map[string]any{
		"status":              enums.OrderStatusCancelled,
		"cancellation_reason": "out of stock",
	}))

	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, "out of stock", *got.CancellationReason)
}

func TestRepositorySumReturnedQuantities(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customer := newCustomer(t, db, "returns@example.com")
	order := createTestOrder(t, db, customer.ID, enums.OrderStatusDelivered, 150, time.Now().UTC())

	require.NoError(t, repo.AppendReturns(ctx, []models.OrderReturn{
		{ID: uuid.New(), OrderID: order.ID, Name: "Paracetamol 500mg", Quantity: 1, UnitPrice: decimal.NewFromInt(50), Reason: "damaged"},
		{ID: uuid.New(), OrderID: order.ID, Name: "Paracetamol 500mg", Quantity: 2, UnitPrice: decimal.NewFromInt(50), Reason: "expired"},
		{ID: uuid.New(), OrderID: order.ID, Name: "Bandages", Quantity: 1, UnitPrice: decimal.NewFromInt(10), Reason: "wrong size"},
	}))

	totals, err := repo.SumReturnedQuantities(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, totals["Paracetamol 500mg"])
	assert.Equal(t, 1, totals["Bandages"])
}
