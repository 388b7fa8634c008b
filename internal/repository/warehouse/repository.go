package warehouse

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

var repoTracer = otel.Tracer("github.com/stocklinehq/stockline/repository/warehouse")

// ErrNotFound is returned when a warehouse is missing.
var ErrNotFound = errors.New("warehouse not found")

// Repository encapsulates read/write access for warehouses.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer, reader: conns.Reader}
}

// Create persists a new warehouse.
func (r *Repository) Create(ctx context.Context, warehouse *entity.Warehouse) error {
	if warehouse == nil {
		return errors.New("nil warehouse")
	}
	ctx, span := repoTracer.Start(ctx, "WarehouseRepository.Create", trace.WithAttributes(attribute.String("warehouse.name", warehouse.Name)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(warehouse).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a warehouse by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Warehouse, error) {
	ctx, span := repoTracer.Start(ctx, "WarehouseRepository.GetByID", trace.WithAttributes(attribute.Int64("warehouse.id", id)))
	defer span.End()

	warehouse := new(entity.Warehouse)
	err := r.reader.NewSelect().Model(warehouse).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return warehouse, nil
}

// FindActiveByName looks up an active warehouse by exact name.
func (r *Repository) FindActiveByName(ctx context.Context, name string) (*entity.Warehouse, error) {
	ctx, span := repoTracer.Start(ctx, "WarehouseRepository.FindActiveByName", trace.WithAttributes(attribute.String("warehouse.name", name)))
	defer span.End()

	warehouse := new(entity.Warehouse)
	err := r.reader.NewSelect().Model(warehouse).
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
	return warehouse, nil
}

// ListActive returns active warehouses ordered by id ascending.
func (r *Repository) ListActive(ctx context.Context) ([]entity.Warehouse, error) {
	ctx, span := repoTracer.Start(ctx, "WarehouseRepository.ListActive")
	defer span.End()

	var warehouses []entity.Warehouse
	err := r.reader.NewSelect().Model(&warehouses).
		Where("active").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return warehouses, nil
}

// Update persists the full row and reports how many rows matched.
func (r *Repository) Update(ctx context.Context, warehouse *entity.Warehouse) (int64, error) {
	if warehouse == nil {
		return 0, errors.New("nil warehouse")
	}
	ctx, span := repoTracer.Start(ctx, "WarehouseRepository.Update", trace.WithAttributes(attribute.Int64("warehouse.id", warehouse.ID)))
	defer span.End()

	warehouse.UpdatedAt = time.Now().UTC()
	res, err := r.writer.NewUpdate().Model(warehouse).WherePK().Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	return res.RowsAffected()
}
