package orderline

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stocklinehq/stockline/internal/database"
	"github.com/stocklinehq/stockline/internal/entity"
)

var repoTracer = otel.Tracer("github.com/stocklinehq/stockline/repository/orderline")

// ErrNotFound is returned when an order line is missing.
var ErrNotFound = errors.New("order line not found")

// Filter narrows List results. Nil fields are ignored. ReceivedComplete
// selects fully delivered lines when true and pending lines when false.
type Filter struct {
	OrderID          *int64
	ProductID        *int64
	ReceivedComplete *bool
}

// OrderTotals aggregates the financial columns of one order's lines.
type OrderTotals struct {
	Total      decimal.Decimal
	ItemCount  int64
	TotalUnits int64
}

// ReceptionTotals aggregates the quantity columns of one order's lines.
type ReceptionTotals struct {
	TotalOrdered  int64
	TotalReceived int64
	ItemCount     int64
}

// Repository encapsulates read/write access for order lines.
type Repository struct {
	db     *bun.DB
	writer bun.IDB
	reader bun.IDB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		db:     conns.Writer,
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// WithTx returns a repository view whose statements run inside tx. Reads
// inside a transaction go through the writer so they observe pending rows.
func (r *Repository) WithTx(tx bun.Tx) *Repository {
	return &Repository{db: r.db, writer: tx, reader: tx}
}

// RunInTx executes fn atomically; any error rolls back every statement
// issued through the transactional repository handed to fn. Called on a
// repository already inside a transaction it joins that transaction
// instead of opening a second one.
func (r *Repository) RunInTx(ctx context.Context, fn func(ctx context.Context, repo *Repository) error) error {
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.RunInTx")
	defer span.End()

	if _, ok := r.writer.(bun.Tx); ok {
		return fn(ctx, r)
	}

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, r.WithTx(tx))
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
	}
	return err
}

// Create persists a new order line.
func (r *Repository) Create(ctx context.Context, line *entity.OrderLine) error {
	if line == nil {
		return errors.New("nil order line")
	}
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.Create", trace.WithAttributes(
		attribute.Int64("order.id", line.OrderID),
		attribute.Int64("product.id", line.ProductID),
	))
	defer span.End()

	_, err := r.writer.NewInsert().Model(line).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order line by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.GetByID", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	line := new(entity.OrderLine)
	err := r.reader.NewSelect().Model(line).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return line, nil
}

// FindByOrderProduct looks up the line for an (order, product) pair. Used
// as the duplicate probe before creation.
func (r *Repository) FindByOrderProduct(ctx context.Context, orderID, productID int64) (*entity.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.FindByOrderProduct", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("product.id", productID),
	))
	defer span.End()

	line := new(entity.OrderLine)
	err := r.reader.NewSelect().Model(line).
		Where("order_id = ?", orderID).
		Where("product_id = ?", productID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return line, nil
}

// ListByOrder returns every line of an order in id ascending order.
func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]entity.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.ListByOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var lines []entity.OrderLine
	err := r.reader.NewSelect().Model(&lines).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return lines, nil
}

// List returns lines matching the filter in id ascending order.
func (r *Repository) List(ctx context.Context, filter Filter) ([]entity.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.List")
	defer span.End()

	var lines []entity.OrderLine
	q := r.reader.NewSelect().Model(&lines)
	if filter.OrderID != nil {
		q = q.Where("order_id = ?", *filter.OrderID)
	}
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.ReceivedComplete != nil {
		if *filter.ReceivedComplete {
			q = q.Where("received_quantity >= ordered_quantity")
		} else {
			q = q.Where("received_quantity < ordered_quantity")
		}
	}

	if err := q.Order("id ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return lines, nil
}

// Update persists the full row and reports how many rows matched.
func (r *Repository) Update(ctx context.Context, line *entity.OrderLine) (int64, error) {
	if line == nil {
		return 0, errors.New("nil order line")
	}
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.Update", trace.WithAttributes(attribute.Int64("line.id", line.ID)))
	defer span.End()

	line.UpdatedAt = time.Now().UTC()
	res, err := r.writer.NewUpdate().Model(line).WherePK().Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateReceived sets received_quantity guarded on the previously observed
// value. Zero affected rows means a concurrent writer changed the line
// since it was read.
func (r *Repository) UpdateReceived(ctx context.Context, id, prevReceived, newReceived int64) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.UpdateReceived", trace.WithAttributes(
		attribute.Int64("line.id", id),
		attribute.Int64("line.received", newReceived),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.OrderLine)(nil)).
		Set("received_quantity = ?", newReceived).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("received_quantity = ?", prevReceived).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes a line by id and reports how many rows were removed.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.Delete", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.OrderLine)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return 0, err
	}
	return res.RowsAffected()
}

// OrderTotals aggregates subtotal, line count, and ordered units for one
// order. Sums are zero when the order has no lines.
func (r *Repository) OrderTotals(ctx context.Context, orderID int64) (OrderTotals, error) {
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.OrderTotals", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var totals OrderTotals
	err := r.reader.NewSelect().Model((*entity.OrderLine)(nil)).
		ColumnExpr("COALESCE(SUM(subtotal), 0) AS total").
		ColumnExpr("COUNT(*) AS item_count").
		ColumnExpr("COALESCE(SUM(ordered_quantity), 0) AS total_units").
		Where("order_id = ?", orderID).
		Scan(ctx, &totals.Total, &totals.ItemCount, &totals.TotalUnits)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")
		return OrderTotals{}, err
	}
	return totals, nil
}

// ReceptionTotals aggregates ordered/received units and line count for one
// order. Sums are zero when the order has no lines.
func (r *Repository) ReceptionTotals(ctx context.Context, orderID int64) (ReceptionTotals, error) {
	ctx, span := repoTracer.Start(ctx, "OrderLineRepository.ReceptionTotals", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var totals ReceptionTotals
	err := r.reader.NewSelect().Model((*entity.OrderLine)(nil)).
		ColumnExpr("COALESCE(SUM(ordered_quantity), 0) AS total_ordered").
		ColumnExpr("COALESCE(SUM(received_quantity), 0) AS total_received").
		ColumnExpr("COUNT(*) AS item_count").
		Where("order_id = ?", orderID).
		Scan(ctx, &totals.TotalOrdered, &totals.TotalReceived, &totals.ItemCount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")
		return ReceptionTotals{}, err
	}
	return totals, nil
}
