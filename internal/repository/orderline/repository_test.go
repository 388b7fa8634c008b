package orderline_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/stocklinehq/stockline/internal/database"
	"github.com/stocklinehq/stockline/internal/entity"
	repo "github.com/stocklinehq/stockline/internal/repository/orderline"
)

const testDDL = `
CREATE TABLE order_lines (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	product_id INTEGER NOT NULL,
	ordered_quantity INTEGER NOT NULL,
	unit_price NUMERIC NOT NULL,
	subtotal NUMERIC NOT NULL,
	received_quantity INTEGER NOT NULL DEFAULT 0,
	notes TEXT,
	created_at TIMESTAMP,
	updated_at TIMESTAMP,
	UNIQUE (order_id, product_id)
)`

func newTestRepository(t *testing.T) *repo.Repository {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec(testDDL)
	require.NoError(t, err)

	return repo.NewRepository(&database.Connections{Writer: db, Reader: db})
}

func newLine(orderID, productID, quantity int64, price string) *entity.OrderLine {
	unitPrice := decimal.RequireFromString(price)
	now := time.Now().UTC()
	return &entity.OrderLine{
		OrderID:         orderID,
		ProductID:       productID,
		OrderedQuantity: quantity,
		UnitPrice:       unitPrice,
		Subtotal:        unitPrice.Mul(decimal.NewFromInt(quantity)).Round(2),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestCreateAndGet(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	line := newLine(1, 1, 4, "25.00")
	require.NoError(t, r.Create(ctx, line))
	require.NotZero(t, line.ID)

	got, err := r.GetByID(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, line.OrderID, got.OrderID)
	assert.True(t, got.Subtotal.Equal(decimal.RequireFromString("100")))

	_, err = r.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestFindByOrderProduct(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newLine(2, 7, 1, "1.00")))

	got, err := r.FindByOrderProduct(ctx, 2, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.ProductID)

	_, err = r.FindByOrderProduct(ctx, 2, 8)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := r.RunInTx(ctx, func(ctx context.Context, txRepo *repo.Repository) error {
		if err := txRepo.Create(ctx, newLine(3, 1, 1, "1.00")); err != nil {
			return err
		}
		// In-transaction reads must observe the pending row.
		if _, err := txRepo.FindByOrderProduct(ctx, 3, 1); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = r.FindByOrderProduct(ctx, 3, 1)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRunInTxJoinsAmbientTransaction(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := r.RunInTx(ctx, func(ctx context.Context, outer *repo.Repository) error {
		// A nested call must join the open transaction, so the outer
		// rollback discards its writes too.
		if err := outer.RunInTx(ctx, func(ctx context.Context, inner *repo.Repository) error {
			return inner.Create(ctx, newLine(7, 1, 1, "1.00"))
		}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = r.FindByOrderProduct(ctx, 7, 1)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestUpdateReceivedGuard(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	line := newLine(4, 1, 10, "1.00")
	require.NoError(t, r.Create(ctx, line))

	affected, err := r.UpdateReceived(ctx, line.ID, 0, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	// Stale guard value: another writer already moved the quantity.
	affected, err = r.UpdateReceived(ctx, line.ID, 0, 7)
	require.NoError(t, err)
	assert.Zero(t, affected)

	got, err := r.GetByID(ctx, line.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, got.ReceivedQuantity)
}

func TestListReceivedCompleteFilter(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	done := newLine(5, 1, 3, "1.00")
	done.ReceivedQuantity = 3
	require.NoError(t, r.Create(ctx, done))
	require.NoError(t, r.Create(ctx, newLine(5, 2, 3, "1.00")))

	complete := true
	lines, err := r.List(ctx, repo.Filter{OrderID: &done.OrderID, ReceivedComplete: &complete})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, done.ID, lines[0].ID)

	complete = false
	lines, err = r.List(ctx, repo.Filter{OrderID: &done.OrderID, ReceivedComplete: &complete})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.EqualValues(t, 2, lines[0].ProductID)
}

func TestAggregates(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	a := newLine(6, 1, 4, "25.00")
	a.ReceivedQuantity = 2
	require.NoError(t, r.Create(ctx, a))
	require.NoError(t, r.Create(ctx, newLine(6, 2, 2, "9.99")))

	totals, err := r.OrderTotals(ctx, 6)
	require.NoError(t, err)
	assert.True(t, totals.Total.Equal(decimal.RequireFromString("119.98")), "total %s", totals.Total)
	assert.EqualValues(t, 2, totals.ItemCount)
	assert.EqualValues(t, 6, totals.TotalUnits)

	reception, err := r.ReceptionTotals(ctx, 6)
	require.NoError(t, err)
	assert.EqualValues(t, 6, reception.TotalOrdered)
	assert.EqualValues(t, 2, reception.TotalReceived)
	assert.EqualValues(t, 2, reception.ItemCount)
}

func TestAggregatesEmptyOrder(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	totals, err := r.OrderTotals(ctx, 999)
	require.NoError(t, err)
	assert.True(t, totals.Total.IsZero())
	assert.Zero(t, totals.ItemCount)
	assert.Zero(t, totals.TotalUnits)

	reception, err := r.ReceptionTotals(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, reception.TotalOrdered)
	assert.Zero(t, reception.TotalReceived)
	assert.Zero(t, reception.ItemCount)
}
