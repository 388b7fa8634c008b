package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Supplier is a vendor record. Names must be unique among active suppliers;
// deactivation is a soft delete.
type Supplier struct {
	bun.BaseModel `bun:"table:suppliers"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Contact   string    `bun:"contact,nullzero"`
	Phone     string    `bun:"phone,nullzero"`
	Active    bool      `bun:"active,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}
