package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/stocklinehq/stockline/internal/cache"
	"github.com/stocklinehq/stockline/internal/config"
	"github.com/stocklinehq/stockline/internal/entity"
	repo "github.com/stocklinehq/stockline/internal/repository/supplier"
	"github.com/stocklinehq/stockline/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/stocklinehq/stockline/service/supplier")

// Service manages supplier records. The only invariant is that names are
// unique among active suppliers; deletion is a soft deactivate.
type Service struct {
	repo     *repo.Repository
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:     p.Repository,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		logger:   p.Logger,
	}
}

// CreateInput carries the fields accepted when creating a supplier.
type CreateInput struct {
	Name    string
	Contact string
	Phone   string
}

// UpdatePatch is a partial update; nil fields keep current values.
type UpdatePatch struct {
	Name    *string
	Contact *string
	Phone   *string
}

// Create validates and persists a new active supplier.
func (s *Service) Create(ctx context.Context, input CreateInput) (*entity.Supplier, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Create", trace.WithAttributes(attribute.String("supplier.name", input.Name)))
	defer span.End()

	if input.Name == "" {
		return nil, errorbank.BadRequest("supplier name is required")
	}
	if err := s.checkNameAvailable(ctx, input.Name, 0); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	supplier := &entity.Supplier{
		Name:      input.Name,
		Contact:   input.Contact,
		Phone:     input.Phone,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, supplier); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create supplier", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, supplier); err != nil && s.logger != nil {
		s.logger.Warn("suppliers cache write failed", zap.Int64("id", supplier.ID), zap.Error(err))
	}
	return supplier, nil
}

// Get retrieves a supplier by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Supplier, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Get", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	if supplier, err := s.getFromCache(ctx, id); err == nil {
		return supplier, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("suppliers cache read failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	supplier, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("supplier not found", errorbank.WithDetail("id", id))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load supplier", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, supplier); err != nil && s.logger != nil {
		s.logger.Warn("suppliers cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return supplier, nil
}

// List returns active suppliers ordered by id ascending.
func (s *Service) List(ctx context.Context) ([]entity.Supplier, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.List")
	defer span.End()

	suppliers, err := s.repo.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list suppliers", errorbank.WithCause(err))
	}
	return suppliers, nil
}

// Update applies a partial update, re-checking name uniqueness on rename.
func (s *Service) Update(ctx context.Context, id int64, patch UpdatePatch) (*entity.Supplier, error) {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Update", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	supplier, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != supplier.Name {
		if *patch.Name == "" {
			return nil, errorbank.BadRequest("supplier name is required")
		}
		if err := s.checkNameAvailable(ctx, *patch.Name, id); err != nil {
			return nil, err
		}
		supplier.Name = *patch.Name
	}
	if patch.Contact != nil {
		supplier.Contact = *patch.Contact
	}
	if patch.Phone != nil {
		supplier.Phone = *patch.Phone
	}

	affected, err := s.repo.Update(ctx, supplier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update supplier", errorbank.WithCause(err))
	}
	if affected == 0 {
		return nil, errorbank.NotFound("supplier not found", errorbank.WithDetail("id", id))
	}

	if err := s.storeInCache(ctx, supplier); err != nil && s.logger != nil {
		s.logger.Warn("suppliers cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return supplier, nil
}

// Deactivate soft-deletes a supplier and drops it from the cache. Its name
// becomes available for reuse by new active suppliers.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "SupplierService.Deactivate", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	supplier, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !supplier.Active {
		return nil
	}

	supplier.Active = false
	affected, err := s.repo.Update(ctx, supplier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to deactivate supplier", errorbank.WithCause(err))
	}
	if affected == 0 {
		return errorbank.NotFound("supplier not found", errorbank.WithDetail("id", id))
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil && s.logger != nil {
			s.logger.Warn("suppliers cache delete failed", zap.Int64("id", id), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) checkNameAvailable(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.FindActiveByName(ctx, name)
	if err == nil {
		if existing.ID == selfID {
			return nil
		}
		return errorbank.Conflict("an active supplier with this name already exists",
			errorbank.WithDetail("name", name))
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return errorbank.Internal("failed to check supplier name", errorbank.WithCause(err))
	}
	return nil
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("suppliers:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Supplier, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var supplier entity.Supplier
	if err := json.Unmarshal(bytes, &supplier); err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (s *Service) storeInCache(ctx context.Context, supplier *entity.Supplier) error {
	if s.cache == nil || supplier == nil {
		return nil
	}
	bytes, err := json.Marshal(supplier)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(supplier.ID), bytes, s.cacheTTL)
}
