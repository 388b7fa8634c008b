package orderline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stocklinehq/stockline/internal/entity"
)

// LineReceivedEvent is emitted after a receipt mutation is persisted.
type LineReceivedEvent struct {
	LineID           int64     `json:"line_id"`
	OrderID          int64     `json:"order_id"`
	ProductID        int64     `json:"product_id"`
	OrderedQuantity  int64     `json:"ordered_quantity"`
	ReceivedQuantity int64     `json:"received_quantity"`
	ReceivedAt       time.Time `json:"received_at"`
}

// OrderReceivedEvent is emitted after an order is fully received in bulk.
type OrderReceivedEvent struct {
	OrderID    int64     `json:"order_id"`
	LineCount  int       `json:"line_count"`
	ReceivedAt time.Time `json:"received_at"`
}

// publishLineReceived emits a LineReceivedEvent. Publication is best
// effort: a bus failure is logged, never surfaced to the caller.
func (s *Service) publishLineReceived(ctx context.Context, line *entity.OrderLine) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := LineReceivedEvent{
		LineID:           line.ID,
		OrderID:          line.OrderID,
		ProductID:        line.ProductID,
		OrderedQuantity:  line.OrderedQuantity,
		ReceivedQuantity: line.ReceivedQuantity,
		ReceivedAt:       time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal line received", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-line-%d", line.ID)), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish line received", zap.Error(err))
		}
	}
}

func (s *Service) publishOrderReceived(ctx context.Context, orderID int64, lineCount int) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := OrderReceivedEvent{
		OrderID:    orderID,
		LineCount:  lineCount,
		ReceivedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal order received", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", orderID)), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish order received", zap.Error(err))
		}
	}
}
