package warehouse

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/stocklinehq/stockline/internal/entity"
	repo "github.com/stocklinehq/stockline/internal/repository/warehouse"
	"github.com/stocklinehq/stockline/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/stocklinehq/stockline/service/warehouse")

// Service manages warehouse records: unique active name, soft delete.
type Service struct {
	repo   *repo.Repository
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{repo: p.Repository, logger: p.Logger}
}

// CreateInput carries the fields accepted when creating a warehouse.
type CreateInput struct {
	Name     string
	Location string
}

// UpdatePatch is a partial update; nil fields keep current values.
type UpdatePatch struct {
	Name     *string
	Location *string
}

// Create validates and persists a new active warehouse.
func (s *Service) Create(ctx context.Context, input CreateInput) (*entity.Warehouse, error) {
	ctx, span := serviceTracer.Start(ctx, "WarehouseService.Create", trace.WithAttributes(attribute.String("warehouse.name", input.Name)))
	defer span.End()

	if input.Name == "" {
		return nil, errorbank.BadRequest("warehouse name is required")
	}
	if err := s.checkNameAvailable(ctx, input.Name, 0); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	warehouse := &entity.Warehouse{
		Name:      input.Name,
		Location:  input.Location,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, warehouse); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create warehouse", errorbank.WithCause(err))
	}
	return warehouse, nil
}

// Get retrieves a warehouse by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Warehouse, error) {
	ctx, span := serviceTracer.Start(ctx, "WarehouseService.Get", trace.WithAttributes(attribute.Int64("warehouse.id", id)))
	defer span.End()

	warehouse, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("warehouse not found", errorbank.WithDetail("id", id))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load warehouse", errorbank.WithCause(err))
	}
	return warehouse, nil
}

// List returns active warehouses ordered by id ascending.
func (s *Service) List(ctx context.Context) ([]entity.Warehouse, error) {
	ctx, span := serviceTracer.Start(ctx, "WarehouseService.List")
	defer span.End()

	warehouses, err := s.repo.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list warehouses", errorbank.WithCause(err))
	}
	return warehouses, nil
}

// Update applies a partial update, re-checking name uniqueness on rename.
func (s *Service) Update(ctx context.Context, id int64, patch UpdatePatch) (*entity.Warehouse, error) {
	ctx, span := serviceTracer.Start(ctx, "WarehouseService.Update", trace.WithAttributes(attribute.Int64("warehouse.id", id)))
	defer span.End()

	warehouse, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != warehouse.Name {
		if *patch.Name == "" {
			return nil, errorbank.BadRequest("warehouse name is required")
		}
		if err := s.checkNameAvailable(ctx, *patch.Name, id); err != nil {
			return nil, err
		}
		warehouse.Name = *patch.Name
	}
	if patch.Location != nil {
		warehouse.Location = *patch.Location
	}

	affected, err := s.repo.Update(ctx, warehouse)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update warehouse", errorbank.WithCause(err))
	}
	if affected == 0 {
		return nil, errorbank.NotFound("warehouse not found", errorbank.WithDetail("id", id))
	}
	return warehouse, nil
}

// Deactivate soft-deletes a warehouse.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "WarehouseService.Deactivate", trace.WithAttributes(attribute.Int64("warehouse.id", id)))
	defer span.End()

	warehouse, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !warehouse.Active {
		return nil
	}

	warehouse.Active = false
	affected, err := s.repo.Update(ctx, warehouse)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to deactivate warehouse", errorbank.WithCause(err))
	}
	if affected == 0 {
		return errorbank.NotFound("warehouse not found", errorbank.WithDetail("id", id))
	}
	return nil
}

func (s *Service) checkNameAvailable(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.FindActiveByName(ctx, name)
	if err == nil {
		if existing.ID == selfID {
			return nil
		}
		return errorbank.Conflict("an active warehouse with this name already exists",
			errorbank.WithDetail("name", name))
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return errorbank.Internal("failed to check warehouse name", errorbank.WithCause(err))
	}
	return nil
}
