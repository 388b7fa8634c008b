package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Warehouse is a storage-location record with the same lifecycle rules as
// Supplier: unique active name, soft delete via the Active flag.
type Warehouse struct {
	bun.BaseModel `bun:"table:warehouses"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Location  string    `bun:"location,nullzero"`
	Active    bool      `bun:"active,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}
