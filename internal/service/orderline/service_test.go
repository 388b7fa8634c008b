package orderline_test

import (
	"context"
	"database/sql"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	"github.com/stocklinehq/stockline/internal/config"
	"github.com/stocklinehq/stockline/internal/database"
	"github.com/stocklinehq/stockline/internal/entity"
	repo "github.com/stocklinehq/stockline/internal/repository/orderline"
	service "github.com/stocklinehq/stockline/internal/service/orderline"
	"github.com/stocklinehq/stockline/pkg/errorbank"
)

const orderLinesDDL = `
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

func newTestService(t *testing.T) (*service.Service, *repo.Repository) {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec(orderLinesDDL)
	require.NoError(t, err)

	r := repo.NewRepository(&database.Connections{Writer: db, Reader: db})
	svc := service.NewService(service.Params{
		Repository: r,
		Config:     config.Config{},
		Logger:     zap.NewNop(),
	})
	return svc, r
}

func requireKind(t *testing.T, err error, kind errorbank.Kind) {
	t.Helper()
	require.Error(t, err)
	appErr := errorbank.From(err)
	assert.Equal(t, kind, appErr.Kind(), "unexpected error kind: %v", err)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustCreate(t *testing.T, svc *service.Service, orderID, productID, quantity int64, price string) *entity.OrderLine {
	t.Helper()
	line, err := svc.CreateLine(context.Background(), service.CreateLineInput{
		OrderID:         orderID,
		ProductID:       productID,
		OrderedQuantity: quantity,
		UnitPrice:       dec(price),
	})
	require.NoError(t, err)
	return line
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name     string
		quantity int64
		price    string
		want     string
	}{
		{"whole", 4, "25.00", "100"},
		{"zero price", 10, "0", "0"},
		{"rounds half up", 3, "0.335", "1.01"},
		{"rounds down", 3, "3.333", "10"},
		{"single unit", 1, "19.99", "19.99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.Subtotal(tt.quantity, dec(tt.price))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestCreateLine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, service.CreateLineInput{
		OrderID:         10,
		ProductID:       5,
		OrderedQuantity: 4,
		UnitPrice:       dec("25.00"),
	})
	require.NoError(t, err)
	assert.NotZero(t, line.ID)
	assert.True(t, line.Subtotal.Equal(dec("100")), "subtotal %s", line.Subtotal)
	assert.EqualValues(t, 0, line.ReceivedQuantity)
}

func TestCreateLineValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input service.CreateLineInput
	}{
		{"missing order", service.CreateLineInput{ProductID: 1, OrderedQuantity: 1, UnitPrice: dec("1")}},
		{"missing product", service.CreateLineInput{OrderID: 1, OrderedQuantity: 1, UnitPrice: dec("1")}},
		{"zero quantity", service.CreateLineInput{OrderID: 1, ProductID: 1, OrderedQuantity: 0, UnitPrice: dec("1")}},
		{"negative quantity", service.CreateLineInput{OrderID: 1, ProductID: 1, OrderedQuantity: -3, UnitPrice: dec("1")}},
		{"negative price", service.CreateLineInput{OrderID: 1, ProductID: 1, OrderedQuantity: 1, UnitPrice: dec("-0.01")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateLine(ctx, tt.input)
			requireKind(t, err, errorbank.KindBadRequest)
		})
	}

	t.Run("received beyond ordered", func(t *testing.T) {
		received := int64(5)
		_, err := svc.CreateLine(ctx, service.CreateLineInput{
			OrderID: 1, ProductID: 1, OrderedQuantity: 4, UnitPrice: dec("1"),
			ReceivedQuantity: &received,
		})
		requireKind(t, err, errorbank.KindBadRequest)
	})

	t.Run("zero price accepted", func(t *testing.T) {
		line, err := svc.CreateLine(ctx, service.CreateLineInput{
			OrderID: 2, ProductID: 1, OrderedQuantity: 3, UnitPrice: dec("0"),
		})
		require.NoError(t, err)
		assert.True(t, line.Subtotal.IsZero())
	})
}

func TestCreateLineDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, 10, 5, 4, "25.00")

	_, err := svc.CreateLine(ctx, service.CreateLineInput{
		OrderID: 10, ProductID: 5, OrderedQuantity: 1, UnitPrice: dec("1"),
	})
	requireKind(t, err, errorbank.KindConflict)
}

func TestCreateLinesBulk(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	lines, err := svc.CreateLinesBulk(ctx, []service.CreateLineInput{
		{OrderID: 20, ProductID: 1, OrderedQuantity: 2, UnitPrice: dec("5.00")},
		{OrderID: 20, ProductID: 2, OrderedQuantity: 1, UnitPrice: dec("9.99")},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Subtotal.Equal(dec("10")))
	assert.True(t, lines[1].Subtotal.Equal(dec("9.99")))
}

func TestCreateLinesBulkEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateLinesBulk(context.Background(), nil)
	requireKind(t, err, errorbank.KindBadRequest)
}

func TestCreateLinesBulkAtomic(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Two valid lines and one duplicating the first: the whole batch must
	// roll back, leaving the order empty.
	_, err := svc.CreateLinesBulk(ctx, []service.CreateLineInput{
		{OrderID: 30, ProductID: 1, OrderedQuantity: 2, UnitPrice: dec("5.00")},
		{OrderID: 30, ProductID: 2, OrderedQuantity: 1, UnitPrice: dec("3.00")},
		{OrderID: 30, ProductID: 1, OrderedQuantity: 4, UnitPrice: dec("5.00")},
	})
	requireKind(t, err, errorbank.KindConflict)

	remaining, err := svc.ListLines(ctx, service.Filter{OrderID: ptr(int64(30))})
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestCreateLinesBulkAgainstExisting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, 40, 7, 1, "2.00")

	_, err := svc.CreateLinesBulk(ctx, []service.CreateLineInput{
		{OrderID: 40, ProductID: 8, OrderedQuantity: 1, UnitPrice: dec("1.00")},
		{OrderID: 40, ProductID: 7, OrderedQuantity: 1, UnitPrice: dec("1.00")},
	})
	requireKind(t, err, errorbank.KindConflict)

	remaining, err := svc.ListLines(ctx, service.Filter{OrderID: ptr(int64(40))})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.EqualValues(t, 7, remaining[0].ProductID)
}

func TestListLinesFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, 50, 1, 4, "1.00")
	b := mustCreate(t, svc, 50, 2, 2, "1.00")
	mustCreate(t, svc, 51, 1, 1, "1.00")

	_, err := svc.MarkLineReceived(ctx, b.ID)
	require.NoError(t, err)

	t.Run("by order", func(t *testing.T) {
		lines, err := svc.ListLines(ctx, service.Filter{OrderID: ptr(int64(50))})
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, a.ID, lines[0].ID)
		assert.Equal(t, b.ID, lines[1].ID)
	})

	t.Run("by product", func(t *testing.T) {
		lines, err := svc.ListLines(ctx, service.Filter{ProductID: ptr(int64(1))})
		require.NoError(t, err)
		assert.Len(t, lines, 2)
	})

	t.Run("received complete", func(t *testing.T) {
		lines, err := svc.ListLines(ctx, service.Filter{OrderID: ptr(int64(50)), ReceivedComplete: ptr(true)})
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, b.ID, lines[0].ID)
	})

	t.Run("received pending", func(t *testing.T) {
		lines, err := svc.ListLines(ctx, service.Filter{OrderID: ptr(int64(50)), ReceivedComplete: ptr(false)})
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, a.ID, lines[0].ID)
	})
}

func TestUpdateLine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	line := mustCreate(t, svc, 60, 1, 4, "25.00")

	t.Run("price change recomputes subtotal with current quantity", func(t *testing.T) {
		updated, err := svc.UpdateLine(ctx, line.ID, service.UpdateLinePatch{
			UnitPrice: ptr(dec("10.00")),
		})
		require.NoError(t, err)
		assert.True(t, updated.Subtotal.Equal(dec("40")), "subtotal %s", updated.Subtotal)
	})

	t.Run("quantity change recomputes subtotal with current price", func(t *testing.T) {
		updated, err := svc.UpdateLine(ctx, line.ID, service.UpdateLinePatch{
			OrderedQuantity: ptr(int64(6)),
		})
		require.NoError(t, err)
		assert.True(t, updated.Subtotal.Equal(dec("60")), "subtotal %s", updated.Subtotal)
	})

	t.Run("notes only keeps subtotal", func(t *testing.T) {
		updated, err := svc.UpdateLine(ctx, line.ID, service.UpdateLinePatch{
			Notes: ptr("rush delivery"),
		})
		require.NoError(t, err)
		assert.True(t, updated.Subtotal.Equal(dec("60")))
		assert.Equal(t, "rush delivery", updated.Notes)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.UpdateLine(ctx, 99999, service.UpdateLinePatch{Notes: ptr("x")})
		requireKind(t, err, errorbank.KindNotFound)
	})

	t.Run("invalid ranges", func(t *testing.T) {
		_, err := svc.UpdateLine(ctx, line.ID, service.UpdateLinePatch{OrderedQuantity: ptr(int64(0))})
		requireKind(t, err, errorbank.KindBadRequest)

		_, err = svc.UpdateLine(ctx, line.ID, service.UpdateLinePatch{UnitPrice: ptr(dec("-1"))})
		requireKind(t, err, errorbank.KindBadRequest)
	})
}

func TestUpdateLineEffectiveBound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	line := mustCreate(t, svc, 61, 1, 10, "1.00")
	_, err := svc.RegisterReceivedQuantity(ctx, line.ID, 6)
	require.NoError(t, err)

	// Shrinking the ordered quantity below what was already received must
	// fail against the merged row.
	_, err = svc.UpdateLine(ctx, line.ID, service.UpdateLinePatch{OrderedQuantity: ptr(int64(5))})
	requireKind(t, err, errorbank.KindBadRequest)

	// Shrinking to exactly the received quantity is allowed.
	updated, err := svc.UpdateLine(ctx, line.ID, service.UpdateLinePatch{OrderedQuantity: ptr(int64(6))})
	require.NoError(t, err)
	assert.EqualValues(t, 6, updated.OrderedQuantity)
	assert.EqualValues(t, 6, updated.ReceivedQuantity)

	// Patching received above the effective ordered quantity must fail.
	_, err = svc.UpdateLine(ctx, line.ID, service.UpdateLinePatch{ReceivedQuantity: ptr(int64(7))})
	requireKind(t, err, errorbank.KindBadRequest)
}

func TestRegisterReceivedQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	line := mustCreate(t, svc, 70, 1, 5, "2.00")

	updated, err := svc.RegisterReceivedQuantity(ctx, line.ID, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated.ReceivedQuantity)

	// Absolute set may go back down.
	updated, err = svc.RegisterReceivedQuantity(ctx, line.ID, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, updated.ReceivedQuantity)

	_, err = svc.RegisterReceivedQuantity(ctx, line.ID, -1)
	requireKind(t, err, errorbank.KindBadRequest)

	_, err = svc.RegisterReceivedQuantity(ctx, line.ID, 6)
	requireKind(t, err, errorbank.KindBadRequest)

	_, err = svc.RegisterReceivedQuantity(ctx, 99999, 1)
	requireKind(t, err, errorbank.KindNotFound)
}

func TestRegisterPartialReceipt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	line := mustCreate(t, svc, 80, 1, 4, "25.00")

	updated, err := svc.RegisterPartialReceipt(ctx, line.ID, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated.ReceivedQuantity)

	// Filling up to exactly the ordered quantity succeeds.
	updated, err = svc.RegisterPartialReceipt(ctx, line.ID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 4, updated.ReceivedQuantity)

	// One more unit on the full line is rejected.
	_, err = svc.RegisterPartialReceipt(ctx, line.ID, 1)
	requireKind(t, err, errorbank.KindBadRequest)

	_, err = svc.RegisterPartialReceipt(ctx, line.ID, 0)
	requireKind(t, err, errorbank.KindBadRequest)

	_, err = svc.RegisterPartialReceipt(ctx, line.ID, -2)
	requireKind(t, err, errorbank.KindBadRequest)
}

func TestRegisterPartialReceiptHugeIncrement(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	line := mustCreate(t, svc, 82, 1, 10, "1.00")
	_, err := svc.RegisterPartialReceipt(ctx, line.ID, 1)
	require.NoError(t, err)

	// An increment near the int64 ceiling would wrap the running total
	// negative; it must be rejected, not persisted.
	_, err = svc.RegisterPartialReceipt(ctx, line.ID, math.MaxInt64)
	requireKind(t, err, errorbank.KindBadRequest)

	current, err := svc.GetLine(ctx, line.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, current.ReceivedQuantity)
}

func TestPartialReceiptAccumulation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Two increments a then b land on the same total as one a+b receipt.
	split := mustCreate(t, svc, 81, 1, 10, "1.00")
	_, err := svc.RegisterPartialReceipt(ctx, split.ID, 4)
	require.NoError(t, err)
	got, err := svc.RegisterPartialReceipt(ctx, split.ID, 3)
	require.NoError(t, err)

	whole := mustCreate(t, svc, 81, 2, 10, "1.00")
	want, err := svc.RegisterPartialReceipt(ctx, whole.ID, 7)
	require.NoError(t, err)

	assert.Equal(t, want.ReceivedQuantity, got.ReceivedQuantity)
}

func TestMarkLineReceived(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	line := mustCreate(t, svc, 90, 1, 7, "3.00")

	updated, err := svc.MarkLineReceived(ctx, line.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, updated.ReceivedQuantity)

	// Marking an already complete line is a no-op, not an error.
	updated, err = svc.MarkLineReceived(ctx, line.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, updated.ReceivedQuantity)

	_, err = svc.MarkLineReceived(ctx, 99999)
	requireKind(t, err, errorbank.KindNotFound)
}

func TestMarkOrderReceived(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, 100, 1, 4, "1.00")
	partial := mustCreate(t, svc, 100, 2, 6, "1.00")
	_, err := svc.RegisterPartialReceipt(ctx, partial.ID, 2)
	require.NoError(t, err)

	lines, err := svc.MarkOrderReceived(ctx, 100)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, line.OrderedQuantity, line.ReceivedQuantity, "line %d", line.ID)
	}

	completion, err := svc.OrderCompletion(ctx, 100)
	require.NoError(t, err)
	assert.True(t, completion.Complete)
}

func TestMarkOrderReceivedEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.MarkOrderReceived(context.Background(), 4242)
	requireKind(t, err, errorbank.KindNotFound)
}

func TestDeleteLine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	clean := mustCreate(t, svc, 110, 1, 2, "1.00")
	dirty := mustCreate(t, svc, 110, 2, 2, "1.00")
	_, err := svc.RegisterPartialReceipt(ctx, dirty.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLine(ctx, clean.ID))
	_, err = svc.GetLine(ctx, clean.ID)
	requireKind(t, err, errorbank.KindNotFound)

	err = svc.DeleteLine(ctx, dirty.ID)
	requireKind(t, err, errorbank.KindBadRequest)

	err = svc.DeleteLine(ctx, 99999)
	requireKind(t, err, errorbank.KindNotFound)
}

func TestDeleteLinesForOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, 120, 1, 2, "1.00")
	mustCreate(t, svc, 120, 2, 2, "1.00")

	deleted, err := svc.DeleteLinesForOrder(ctx, 120)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	// One line with receipts poisons the whole deletion.
	mustCreate(t, svc, 121, 1, 2, "1.00")
	withReceipt := mustCreate(t, svc, 121, 2, 2, "1.00")
	_, err = svc.RegisterPartialReceipt(ctx, withReceipt.ID, 1)
	require.NoError(t, err)

	_, err = svc.DeleteLinesForOrder(ctx, 121)
	requireKind(t, err, errorbank.KindBadRequest)

	remaining, err := svc.ListLines(ctx, service.Filter{OrderID: ptr(int64(121))})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	// Deleting an order with no lines is a no-op.
	deleted, err = svc.DeleteLinesForOrder(ctx, 122)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestOrderTotal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, 130, 1, 4, "25.00")
	mustCreate(t, svc, 130, 2, 2, "9.99")

	total, err := svc.OrderTotal(ctx, 130)
	require.NoError(t, err)
	assert.True(t, total.Total.Equal(dec("119.98")), "total %s", total.Total)
	assert.EqualValues(t, 2, total.ItemCount)
	assert.EqualValues(t, 6, total.TotalUnits)

	empty, err := svc.OrderTotal(ctx, 131)
	require.NoError(t, err)
	assert.True(t, empty.Total.IsZero())
	assert.Zero(t, empty.ItemCount)
	assert.Zero(t, empty.TotalUnits)
}

func TestReceptionStatistics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	line := mustCreate(t, svc, 140, 1, 4, "25.00")
	mustCreate(t, svc, 140, 2, 4, "1.00")
	_, err := svc.RegisterPartialReceipt(ctx, line.ID, 3)
	require.NoError(t, err)

	stats, err := svc.ReceptionStatistics(ctx, 140)
	require.NoError(t, err)
	assert.EqualValues(t, 8, stats.TotalOrdered)
	assert.EqualValues(t, 3, stats.TotalReceived)
	assert.EqualValues(t, 5, stats.TotalPending)
	assert.EqualValues(t, 2, stats.ItemCount)
	assert.True(t, stats.PercentReceived.Equal(dec("37.5")), "percent %s", stats.PercentReceived)

	empty, err := svc.ReceptionStatistics(ctx, 141)
	require.NoError(t, err)
	assert.True(t, empty.PercentReceived.IsZero())
	assert.Zero(t, empty.TotalOrdered)
}

func TestOrderCompletion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, 150, 1, 4, "1.00")
	mustCreate(t, svc, 150, 2, 4, "1.00")
	mustCreate(t, svc, 150, 3, 4, "1.00")
	_, err := svc.MarkLineReceived(ctx, a.ID)
	require.NoError(t, err)

	completion, err := svc.OrderCompletion(ctx, 150)
	require.NoError(t, err)
	assert.False(t, completion.Complete)
	assert.EqualValues(t, 3, completion.LineCount)
	assert.EqualValues(t, 1, completion.ReceivedLines)
	assert.EqualValues(t, 2, completion.PendingLines)
	assert.True(t, completion.PercentComplete.Equal(dec("33.33")), "percent %s", completion.PercentComplete)

	// An order with no lines is never complete.
	empty, err := svc.OrderCompletion(ctx, 151)
	require.NoError(t, err)
	assert.False(t, empty.Complete)
	assert.Zero(t, empty.LineCount)
	assert.True(t, empty.PercentComplete.IsZero())
}

func TestFullReceiptScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, service.CreateLineInput{
		OrderID:         10,
		ProductID:       5,
		OrderedQuantity: 4,
		UnitPrice:       dec("25.00"),
	})
	require.NoError(t, err)
	assert.True(t, line.Subtotal.Equal(dec("100")))

	_, err = svc.RegisterPartialReceipt(ctx, line.ID, 3)
	require.NoError(t, err)
	updated, err := svc.RegisterPartialReceipt(ctx, line.ID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 4, updated.ReceivedQuantity)

	completion, err := svc.OrderCompletion(ctx, 10)
	require.NoError(t, err)
	assert.True(t, completion.Complete)
	assert.EqualValues(t, 1, completion.LineCount)
	assert.EqualValues(t, 1, completion.ReceivedLines)
	assert.Zero(t, completion.PendingLines)
	assert.True(t, completion.PercentComplete.Equal(dec("100")))

	_, err = svc.RegisterPartialReceipt(ctx, line.ID, 1)
	requireKind(t, err, errorbank.KindBadRequest)

	total, err := svc.OrderTotal(ctx, 10)
	require.NoError(t, err)
	assert.True(t, total.Total.Equal(dec("100")))
	assert.EqualValues(t, 1, total.ItemCount)
	assert.EqualValues(t, 4, total.TotalUnits)

	stats, err := svc.ReceptionStatistics(ctx, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalOrdered)
	assert.EqualValues(t, 4, stats.TotalReceived)
	assert.Zero(t, stats.TotalPending)
	assert.True(t, stats.PercentReceived.Equal(dec("100")))
}

func TestReceiptConflictOnConcurrentWrite(t *testing.T) {
	svc, r := newTestService(t)
	ctx := context.Background()

	line := mustCreate(t, svc, 160, 1, 10, "1.00")

	// Another writer bumps the line between our read and write: the
	// guarded update must miss and the repository reports zero rows.
	affected, err := r.UpdateReceived(ctx, line.ID, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = r.UpdateReceived(ctx, line.ID, 0, 5)
	require.NoError(t, err)
	assert.Zero(t, affected)

	current, err := svc.GetLine(ctx, line.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, current.ReceivedQuantity)
}

func ptr[T any](v T) *T {
	return &v
}
