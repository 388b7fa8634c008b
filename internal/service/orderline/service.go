package orderline

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/stocklinehq/stockline/internal/config"
	"github.com/stocklinehq/stockline/internal/entity"
	"github.com/stocklinehq/stockline/internal/messaging"
	repo "github.com/stocklinehq/stockline/internal/repository/orderline"
	"github.com/stocklinehq/stockline/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/stocklinehq/stockline/service/orderline")

// Subtotal is the single rounding policy for line money values:
// quantity times price, rounded to two fractional digits. Every subtotal
// the service persists or recomputes goes through here.
func Subtotal(quantity int64, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity)).Round(2)
}

// Service is the reconciliation engine for purchase-order lines. It owns
// validation and derived-field computation; the repository owns only
// persistence and identity. The service holds no line state between calls.
type Service struct {
	repo      *repo.Repository
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// CreateLineInput carries the fields accepted when creating a line.
// Subtotal and ReceivedQuantity are optional: the subtotal is derived from
// quantity and price when absent, received quantity defaults to zero.
type CreateLineInput struct {
	OrderID          int64
	ProductID        int64
	OrderedQuantity  int64
	UnitPrice        decimal.Decimal
	Subtotal         *decimal.Decimal
	ReceivedQuantity *int64
	Notes            string
}

// UpdateLinePatch is a partial update; nil fields keep current values.
type UpdateLinePatch struct {
	OrderedQuantity  *int64
	UnitPrice        *decimal.Decimal
	ReceivedQuantity *int64
	Notes            *string
}

// Filter narrows ListLines results.
type Filter = repo.Filter

// OrderTotal carries the financial aggregates of one order.
type OrderTotal struct {
	Total      decimal.Decimal
	ItemCount  int64
	TotalUnits int64
}

// ReceptionStatistics carries per-order delivery progress in units.
type ReceptionStatistics struct {
	TotalOrdered    int64
	TotalReceived   int64
	TotalPending    int64
	ItemCount       int64
	PercentReceived decimal.Decimal
}

// OrderCompletion reports per-line completion of one order. An order with
// no lines is never complete: completeness must be demonstrated by lines,
// not assumed from their absence.
type OrderCompletion struct {
	Complete        bool
	LineCount       int64
	ReceivedLines   int64
	PendingLines    int64
	PercentComplete decimal.Decimal
}

func (in CreateLineInput) validate() error {
	if in.OrderID <= 0 {
		return errorbank.BadRequest("order id is required", errorbank.WithDetail("order_id", in.OrderID))
	}
	if in.ProductID <= 0 {
		return errorbank.BadRequest("product id is required", errorbank.WithDetail("product_id", in.ProductID))
	}
	if in.OrderedQuantity < 1 {
		return errorbank.BadRequest("ordered quantity must be at least 1", errorbank.WithDetail("ordered_quantity", in.OrderedQuantity))
	}
	if in.UnitPrice.IsNegative() {
		return errorbank.BadRequest("unit price must not be negative", errorbank.WithDetail("unit_price", in.UnitPrice.String()))
	}
	if in.ReceivedQuantity != nil {
		if *in.ReceivedQuantity < 0 || *in.ReceivedQuantity > in.OrderedQuantity {
			return errorbank.BadRequest("received quantity must be between 0 and the ordered quantity",
				errorbank.WithDetail("received_quantity", *in.ReceivedQuantity))
		}
	}
	return nil
}

// CreateLine validates and persists one order line. Fails with a conflict
// when a line for the same (order, product) pair already exists.
func (s *Service) CreateLine(ctx context.Context, input CreateLineInput) (*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.CreateLine", trace.WithAttributes(
		attribute.Int64("order.id", input.OrderID),
		attribute.Int64("product.id", input.ProductID),
	))
	defer span.End()

	line, err := createWith(ctx, s.repo, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, err
	}
	return line, nil
}

// createWith runs the single-line creation flow against the given
// repository view so bulk creation can reuse it inside one transaction.
func createWith(ctx context.Context, r *repo.Repository, input CreateLineInput) (*entity.OrderLine, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	_, err := r.FindByOrderProduct(ctx, input.OrderID, input.ProductID)
	if err == nil {
		return nil, errorbank.Conflict("order line already exists for this product",
			errorbank.WithDetail("order_id", input.OrderID),
			errorbank.WithDetail("product_id", input.ProductID),
		)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, errorbank.Internal("failed to check for duplicate line", errorbank.WithCause(err))
	}

	subtotal := Subtotal(input.OrderedQuantity, input.UnitPrice)
	if input.Subtotal != nil {
		subtotal = *input.Subtotal
	}
	var received int64
	if input.ReceivedQuantity != nil {
		received = *input.ReceivedQuantity
	}

	now := time.Now().UTC()
	line := &entity.OrderLine{
		OrderID:          input.OrderID,
		ProductID:        input.ProductID,
		OrderedQuantity:  input.OrderedQuantity,
		UnitPrice:        input.UnitPrice,
		Subtotal:         subtotal,
		ReceivedQuantity: received,
		Notes:            input.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.Create(ctx, line); err != nil {
		return nil, errorbank.Internal("failed to create order line", errorbank.WithCause(err))
	}
	return line, nil
}

// CreateLinesBulk creates every line of a batch inside one transaction.
// Any single failure rolls back the entire batch; no partial order is ever
// persisted. Duplicate probes see rows created earlier in the same batch.
func (s *Service) CreateLinesBulk(ctx context.Context, inputs []CreateLineInput) ([]entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.CreateLinesBulk", trace.WithAttributes(
		attribute.Int("batch.size", len(inputs)),
	))
	defer span.End()

	if len(inputs) == 0 {
		return nil, errorbank.BadRequest("at least one line is required")
	}

	created := make([]entity.OrderLine, 0, len(inputs))
	err := s.repo.RunInTx(ctx, func(ctx context.Context, txRepo *repo.Repository) error {
		for _, input := range inputs {
			line, err := createWith(ctx, txRepo, input)
			if err != nil {
				return err
			}
			created = append(created, *line)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk create failed")
		return nil, errorbank.From(err)
	}
	return created, nil
}

// ListLines returns lines matching the filter, ordered by id ascending.
func (s *Service) ListLines(ctx context.Context, filter Filter) ([]entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.ListLines")
	defer span.End()

	lines, err := s.repo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list order lines", errorbank.WithCause(err))
	}
	return lines, nil
}

// GetLine fetches one line by id.
func (s *Service) GetLine(ctx context.Context, id int64) (*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.GetLine", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	line, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order line not found", errorbank.WithDetail("id", id))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order line", errorbank.WithCause(err))
	}
	return line, nil
}

// UpdateLine applies a partial update. The patch is merged onto the
// current row first; only then are the effective quantities checked and,
// when quantity or price was touched, the subtotal rederived from the
// merged values.
func (s *Service) UpdateLine(ctx context.Context, id int64, patch UpdateLinePatch) (*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.UpdateLine", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	if patch.OrderedQuantity != nil && *patch.OrderedQuantity < 1 {
		return nil, errorbank.BadRequest("ordered quantity must be at least 1",
			errorbank.WithDetail("ordered_quantity", *patch.OrderedQuantity))
	}
	if patch.UnitPrice != nil && patch.UnitPrice.IsNegative() {
		return nil, errorbank.BadRequest("unit price must not be negative",
			errorbank.WithDetail("unit_price", patch.UnitPrice.String()))
	}
	if patch.ReceivedQuantity != nil && *patch.ReceivedQuantity < 0 {
		return nil, errorbank.BadRequest("received quantity must not be negative",
			errorbank.WithDetail("received_quantity", *patch.ReceivedQuantity))
	}

	line, err := s.GetLine(ctx, id)
	if err != nil {
		return nil, err
	}

	// Merge first, derive after: the bound and the subtotal are checked
	// against the post-merge row, not the patch in isolation.
	merged := *line
	if patch.OrderedQuantity != nil {
		merged.OrderedQuantity = *patch.OrderedQuantity
	}
	if patch.UnitPrice != nil {
		merged.UnitPrice = *patch.UnitPrice
	}
	if patch.ReceivedQuantity != nil {
		merged.ReceivedQuantity = *patch.ReceivedQuantity
	}
	if patch.Notes != nil {
		merged.Notes = *patch.Notes
	}

	if merged.ReceivedQuantity > merged.OrderedQuantity {
		return nil, errorbank.BadRequest("received quantity exceeds ordered quantity",
			errorbank.WithDetail("ordered_quantity", merged.OrderedQuantity),
			errorbank.WithDetail("received_quantity", merged.ReceivedQuantity),
		)
	}
	if patch.OrderedQuantity != nil || patch.UnitPrice != nil {
		merged.Subtotal = Subtotal(merged.OrderedQuantity, merged.UnitPrice)
	}

	affected, err := s.repo.Update(ctx, &merged)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update order line", errorbank.WithCause(err))
	}
	if affected == 0 {
		return nil, errorbank.NotFound("order line not found", errorbank.WithDetail("id", id))
	}
	return &merged, nil
}

// RegisterReceivedQuantity sets the received quantity to an absolute value
// within [0, orderedQuantity].
func (s *Service) RegisterReceivedQuantity(ctx context.Context, id, quantity int64) (*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.RegisterReceivedQuantity", trace.WithAttributes(
		attribute.Int64("line.id", id),
		attribute.Int64("line.received", quantity),
	))
	defer span.End()

	if quantity < 0 {
		return nil, errorbank.BadRequest("received quantity must not be negative",
			errorbank.WithDetail("received_quantity", quantity))
	}

	line, err := s.GetLine(ctx, id)
	if err != nil {
		return nil, err
	}
	if quantity > line.OrderedQuantity {
		return nil, errorbank.BadRequest("received quantity exceeds ordered quantity",
			errorbank.WithDetail("ordered_quantity", line.OrderedQuantity),
			errorbank.WithDetail("received_quantity", quantity),
		)
	}

	if err := s.writeReceived(ctx, line, quantity); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.publishLineReceived(ctx, line)
	return line, nil
}

// RegisterPartialReceipt adds an incremental delivery to the line. The
// running total may never exceed the ordered quantity.
func (s *Service) RegisterPartialReceipt(ctx context.Context, id, additionalQuantity int64) (*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.RegisterPartialReceipt", trace.WithAttributes(
		attribute.Int64("line.id", id),
		attribute.Int64("receipt.quantity", additionalQuantity),
	))
	defer span.End()

	if additionalQuantity <= 0 {
		return nil, errorbank.BadRequest("receipt quantity must be positive",
			errorbank.WithDetail("quantity", additionalQuantity))
	}

	line, err := s.GetLine(ctx, id)
	if err != nil {
		return nil, err
	}
	// Compare against the remaining capacity instead of summing first:
	// the sum can wrap around for a huge increment and sneak past an
	// upper-bound check as a negative value.
	if additionalQuantity > line.OrderedQuantity-line.ReceivedQuantity {
		return nil, errorbank.BadRequest("receipt would exceed ordered quantity",
			errorbank.WithDetail("ordered_quantity", line.OrderedQuantity),
			errorbank.WithDetail("received_quantity", line.ReceivedQuantity),
			errorbank.WithDetail("quantity", additionalQuantity),
		)
	}
	newReceived := line.ReceivedQuantity + additionalQuantity

	if err := s.writeReceived(ctx, line, newReceived); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.publishLineReceived(ctx, line)
	return line, nil
}

// MarkLineReceived records full receipt of the ordered quantity.
func (s *Service) MarkLineReceived(ctx context.Context, id int64) (*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.MarkLineReceived", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	line, err := s.GetLine(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.writeReceived(ctx, line, line.OrderedQuantity); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.publishLineReceived(ctx, line)
	return line, nil
}

// writeReceived persists a receipt mutation guarded on the received value
// observed at read time. A concurrent writer between read and write makes
// the guard miss; the caller gets a conflict instead of a lost or
// overshooting increment.
func (s *Service) writeReceived(ctx context.Context, line *entity.OrderLine, newReceived int64) error {
	affected, err := s.repo.UpdateReceived(ctx, line.ID, line.ReceivedQuantity, newReceived)
	if err != nil {
		return errorbank.Internal("failed to record receipt", errorbank.WithCause(err))
	}
	if affected == 0 {
		return errorbank.Conflict("order line was modified concurrently, retry the receipt",
			errorbank.WithDetail("id", line.ID))
	}
	line.ReceivedQuantity = newReceived
	line.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkOrderReceived records full receipt of every line of an order inside
// one transaction. If any line cannot be updated no line is changed.
func (s *Service) MarkOrderReceived(ctx context.Context, orderID int64) ([]entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.MarkOrderReceived", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var lines []entity.OrderLine
	err := s.repo.RunInTx(ctx, func(ctx context.Context, txRepo *repo.Repository) error {
		var err error
		lines, err = txRepo.ListByOrder(ctx, orderID)
		if err != nil {
			return errorbank.Internal("failed to load order lines", errorbank.WithCause(err))
		}
		if len(lines) == 0 {
			return errorbank.NotFound("order has no lines", errorbank.WithDetail("order_id", orderID))
		}
		for i := range lines {
			line := &lines[i]
			if line.Received() {
				continue
			}
			affected, err := txRepo.UpdateReceived(ctx, line.ID, line.ReceivedQuantity, line.OrderedQuantity)
			if err != nil {
				return errorbank.Internal("failed to record receipt", errorbank.WithCause(err))
			}
			if affected == 0 {
				return errorbank.Conflict("order line was modified concurrently, retry the receipt",
					errorbank.WithDetail("id", line.ID))
			}
			line.ReceivedQuantity = line.OrderedQuantity
			line.UpdatedAt = time.Now().UTC()
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk receipt failed")
		return nil, errorbank.From(err)
	}

	s.publishOrderReceived(ctx, orderID, len(lines))
	return lines, nil
}

// DeleteLine removes a line that has no recorded receipts.
func (s *Service) DeleteLine(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.DeleteLine", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	line, err := s.GetLine(ctx, id)
	if err != nil {
		return err
	}
	if line.ReceivedQuantity > 0 {
		return errorbank.BadRequest("cannot delete a line with recorded receipts",
			errorbank.WithDetail("id", id),
			errorbank.WithDetail("received_quantity", line.ReceivedQuantity),
		)
	}

	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to delete order line", errorbank.WithCause(err))
	}
	if affected == 0 {
		return errorbank.NotFound("order line not found", errorbank.WithDetail("id", id))
	}
	return nil
}

// DeleteLinesForOrder removes every line of an order. The whole deletion
// is rejected when any line of the order has recorded receipts.
func (s *Service) DeleteLinesForOrder(ctx context.Context, orderID int64) (int64, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.DeleteLinesForOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var deleted int64
	err := s.repo.RunInTx(ctx, func(ctx context.Context, txRepo *repo.Repository) error {
		lines, err := txRepo.ListByOrder(ctx, orderID)
		if err != nil {
			return errorbank.Internal("failed to load order lines", errorbank.WithCause(err))
		}
		for _, line := range lines {
			if line.ReceivedQuantity > 0 {
				return errorbank.BadRequest("cannot delete order lines with recorded receipts",
					errorbank.WithDetail("order_id", orderID),
					errorbank.WithDetail("line_id", line.ID),
				)
			}
		}
		for _, line := range lines {
			affected, err := txRepo.Delete(ctx, line.ID)
			if err != nil {
				return errorbank.Internal("failed to delete order line", errorbank.WithCause(err))
			}
			deleted += affected
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk delete failed")
		return 0, errorbank.From(err)
	}
	return deleted, nil
}

// OrderTotal derives the financial aggregates of one order. All values are
// zero for an order with no lines.
func (s *Service) OrderTotal(ctx context.Context, orderID int64) (OrderTotal, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.OrderTotal", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	totals, err := s.repo.OrderTotals(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return OrderTotal{}, errorbank.Internal("failed to compute order total", errorbank.WithCause(err))
	}
	return OrderTotal{
		Total:      totals.Total.Round(2),
		ItemCount:  totals.ItemCount,
		TotalUnits: totals.TotalUnits,
	}, nil
}

// ReceptionStatistics derives per-order delivery progress in units.
func (s *Service) ReceptionStatistics(ctx context.Context, orderID int64) (ReceptionStatistics, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.ReceptionStatistics", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	totals, err := s.repo.ReceptionTotals(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return ReceptionStatistics{}, errorbank.Internal("failed to compute reception statistics", errorbank.WithCause(err))
	}

	stats := ReceptionStatistics{
		TotalOrdered:  totals.TotalOrdered,
		TotalReceived: totals.TotalReceived,
		TotalPending:  totals.TotalOrdered - totals.TotalReceived,
		ItemCount:     totals.ItemCount,
	}
	stats.PercentReceived = percentage(totals.TotalReceived, totals.TotalOrdered)
	return stats, nil
}

// OrderCompletion reports whether every line of the order has been fully
// received. A line counts as received when receivedQuantity has reached
// orderedQuantity; an order with no lines is reported as not complete.
func (s *Service) OrderCompletion(ctx context.Context, orderID int64) (OrderCompletion, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderLineService.OrderCompletion", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	lines, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return OrderCompletion{}, errorbank.Internal("failed to check order completion", errorbank.WithCause(err))
	}

	completion := OrderCompletion{LineCount: int64(len(lines))}
	for i := range lines {
		if lines[i].Received() {
			completion.ReceivedLines++
		} else {
			completion.PendingLines++
		}
	}
	completion.Complete = completion.LineCount > 0 && completion.PendingLines == 0
	completion.PercentComplete = percentage(completion.ReceivedLines, completion.LineCount)
	return completion, nil
}

// percentage is round(100 * part / whole, 2), zero when whole is zero.
func percentage(part, whole int64) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(100 * part).Div(decimal.NewFromInt(whole)).Round(2)
}
