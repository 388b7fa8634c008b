package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// OrderLine is one purchased-product line of a purchase order, tracking
// the quantity ordered against the quantity received across deliveries.
// At most one line exists per (order, product) pair.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines"`

	ID               int64           `bun:",pk,autoincrement"`
	OrderID          int64           `bun:"order_id,notnull"`
	ProductID        int64           `bun:"product_id,notnull"`
	OrderedQuantity  int64           `bun:"ordered_quantity,notnull"`
	UnitPrice        decimal.Decimal `bun:"unit_price,notnull"`
	Subtotal         decimal.Decimal `bun:"subtotal,notnull"`
	ReceivedQuantity int64           `bun:"received_quantity,notnull,default:0"`
	Notes            string          `bun:"notes,nullzero"`
	CreatedAt        time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `bun:"updated_at,nullzero"`
}

// Received reports whether the line has been fully delivered.
func (l *OrderLine) Received() bool {
	return l.ReceivedQuantity >= l.OrderedQuantity
}
