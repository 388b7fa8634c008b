package supplier

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stocklinehq/stockline/internal/database"
	"github.com/stocklinehq/stockline/internal/entity"
)

var repoTracer = otel.Tracer("github.com/stocklinehq/stockline/repository/supplier")

// ErrNotFound is returned when a supplier is missing.
var ErrNotFound = errors.New("supplier not found")

// Repository encapsulates read/write access for suppliers.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer, reader: conns.Reader}
}

// Create persists a new supplier.
func (r *Repository) Create(ctx context.Context, supplier *entity.Supplier) error {
	if supplier == nil {
		return errors.New("nil supplier")
	}
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.Create", trace.WithAttributes(attribute.String("supplier.name", supplier.Name)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(supplier).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a supplier by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Supplier, error) {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.GetByID", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	supplier := new(entity.Supplier)
	err := r.reader.NewSelect().Model(supplier).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return supplier, nil
}

// FindActiveByName looks up an active supplier by exact name. Used as the
// uniqueness probe before create and rename.
func (r *Repository) FindActiveByName(ctx context.Context, name string) (*entity.Supplier, error) {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.FindActiveByName", trace.WithAttributes(attribute.String("supplier.name", name)))
	defer span.End()

	supplier := new(entity.Supplier)
	err := r.reader.NewSelect().Model(supplier).
		Where("name = ?", name).
		Where("active").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return supplier, nil
}

// ListActive returns active suppliers ordered by id ascending.
func (r *Repository) ListActive(ctx context.Context) ([]entity.Supplier, error) {
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.ListActive")
	defer span.End()

	var suppliers []entity.Supplier
	err := r.reader.NewSelect().Model(&suppliers).
		Where("active").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return suppliers, nil
}

// Update persists the full row and reports how many rows matched.
func (r *Repository) Update(ctx context.Context, supplier *entity.Supplier) (int64, error) {
	if supplier == nil {
		return 0, errors.New("nil supplier")
	}
	ctx, span := repoTracer.Start(ctx, "SupplierRepository.Update", trace.WithAttributes(attribute.Int64("supplier.id", supplier.ID)))
	defer span.End()

	supplier.UpdatedAt = time.Now().UTC()
	res, err := r.writer.NewUpdate().Model(supplier).WherePK().Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	return res.RowsAffected()
}
