package partner

import (
	"time"

	"github.com/pos/backend/internal/domain/shared"
)

// Customer represents a retail customer, keyed by phone for idempotent upsert
type Customer struct {
	shared.BaseAggregateRoot
	Name    string `gorm:"size:255;not null"`
	Phone   string `gorm:"size:32;not null;uniqueIndex"`
	Address string `gorm:"size:500"`
}

// NewCustomer creates a new customer
func NewCustomer(name, phone string) (*Customer, error) {
	if phone == "" {
		return nil, shared.NewDomainError("INVALID_PHONE", "Customer phone cannot be empty")
	}
	return &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Phone:             phone,
	}, nil
}

// ApplyDetails updates only the fields that actually changed.
// Returns true when anything was modified, so callers can skip a write.
func (c *Customer) ApplyDetails(name, address string) bool {
	changed := false
	if name != "" && name != c.Name {
		c.Name = name
		changed = true
	}
	if address != "" && address != c.Address {
		c.Address = address
		changed = true
	}
	if changed {
		c.UpdatedAt = time.Now()
	}
	return changed
}
