package orderline

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/stocklinehq/stockline/internal/config"
	"github.com/stocklinehq/stockline/internal/messaging"
	linesvc "github.com/stocklinehq/stockline/internal/service/orderline"
	"github.com/stocklinehq/stockline/internal/worker"
)

var workerTracer = otel.Tracer("github.com/stocklinehq/stockline/worker/orderline")

// Module registers order-line worker handlers.
var Module = fx.Module("worker_orderline",
	fx.Provide(
		fx.Annotate(
			NewLineReceivedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewLineReceivedHandler sets up a worker handler that tracks receipt
// events and logs delivery progress per line.
func NewLineReceivedHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orderlines.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event linesvc.LineReceivedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode line received", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		pending := event.OrderedQuantity - event.ReceivedQuantity
		logger.Info("line receipt event processed",
			zap.Int64("line_id", event.LineID),
			zap.Int64("order_id", event.OrderID),
			zap.Int64("product_id", event.ProductID),
			zap.Int64("received", event.ReceivedQuantity),
			zap.Int64("pending", pending),
		)
		if pending == 0 {
			logger.Info("line fully received",
				zap.Int64("line_id", event.LineID),
				zap.Int64("order_id", event.OrderID),
			)
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
