package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/stocklinehq/stockline/internal/database"
	"github.com/stocklinehq/stockline/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// All seeds every sample dataset.
func (s *Seeder) All(ctx context.Context) error {
	if err := s.Suppliers(ctx); err != nil {
		return err
	}
	if err := s.Warehouses(ctx); err != nil {
		return err
	}
	return s.OrderLines(ctx)
}

// Suppliers seeds example suppliers if they are missing.
func (s *Seeder) Suppliers(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Supplier{
		{Name: "Acme Wholesale", Contact: "sales@acme-wholesale.test", Active: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Northside Distribution", Contact: "orders@northside.test", Active: true, CreatedAt: now, UpdatedAt: now},
	}

	count := 0
	for _, sample := range samples {
		supplier := sample
		exists, err := s.db.NewSelect().Model((*entity.Supplier)(nil)).
			Where("name = ?", supplier.Name).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.db.NewInsert().Model(&supplier).Exec(ctx); err != nil {
			return err
		}
		count++
	}

	if s.logger != nil {
		s.logger.Info("seeded suppliers", zap.Int("count", count))
	}
	return nil
}

// Warehouses seeds example warehouses if they are missing.
func (s *Seeder) Warehouses(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Warehouse{
		{Name: "Central", Location: "Dock 4, Industrial Park", Active: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Overflow", Location: "Unit 12, East Yard", Active: true, CreatedAt: now, UpdatedAt: now},
	}

	count := 0
	for _, sample := range samples {
		warehouse := sample
		exists, err := s.db.NewSelect().Model((*entity.Warehouse)(nil)).
			Where("name = ?", warehouse.Name).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.db.NewInsert().Model(&warehouse).Exec(ctx); err != nil {
			return err
		}
		count++
	}

	if s.logger != nil {
		s.logger.Info("seeded warehouses", zap.Int("count", count))
	}
	return nil
}

// OrderLines seeds a sample order with a partially received line.
func (s *Seeder) OrderLines(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.OrderLine{
		{
			OrderID:          1000,
			ProductID:        1,
			OrderedQuantity:  10,
			UnitPrice:        decimal.NewFromFloat(12.50),
			Subtotal:         decimal.NewFromFloat(125.00),
			ReceivedQuantity: 4,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			OrderID:         1000,
			ProductID:       2,
			OrderedQuantity: 3,
			UnitPrice:       decimal.NewFromFloat(49.99),
			Subtotal:        decimal.NewFromFloat(149.97),
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}

	count := 0
	for _, sample := range samples {
		line := sample
		_, err := s.db.NewInsert().Model(&line).
			On("CONFLICT (order_id, product_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		count++
	}

	if s.logger != nil {
		s.logger.Info("seeded order lines", zap.Int("count", count))
	}
	return nil
}
