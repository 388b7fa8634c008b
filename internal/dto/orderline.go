package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLineResponse represents an order line as exposed via transport layers.
type OrderLineResponse struct {
	ID               int64           `json:"id"`
	OrderID          int64           `json:"order_id"`
	ProductID        int64           `json:"product_id"`
	OrderedQuantity  int64           `json:"ordered_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ReceivedQuantity int64           `json:"received_quantity"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OrderTotalResponse carries the financial aggregates of one order.
type OrderTotalResponse struct {
	Total      decimal.Decimal `json:"total"`
	ItemCount  int64           `json:"item_count"`
	TotalUnits int64           `json:"total_units"`
}

// ReceptionStatisticsResponse carries per-order delivery progress in units.
type ReceptionStatisticsResponse struct {
	TotalOrdered    int64           `json:"total_ordered"`
	TotalReceived   int64           `json:"total_received"`
	TotalPending    int64           `json:"total_pending"`
	ItemCount       int64           `json:"item_count"`
	PercentReceived decimal.Decimal `json:"percent_received"`
}

// OrderCompletionResponse reports per-line completion of one order.
type OrderCompletionResponse struct {
	Complete        bool            `json:"complete"`
	LineCount       int64           `json:"line_count"`
	ReceivedLines   int64           `json:"received_lines"`
	PendingLines    int64           `json:"pending_lines"`
	PercentComplete decimal.Decimal `json:"percent_complete"`
}
