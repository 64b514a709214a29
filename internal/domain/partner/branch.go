package partner

import (
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
)

// Branch represents a store location holding products and a cash register.
// CashBalance is mutated through the repository's atomic increment, never
// read-modify-write, because the register is contended across cashiers.
type Branch struct {
	shared.BaseAggregateRoot
	Name        string          `gorm:"size:255;not null"`
	Address     string          `gorm:"size:500"`
	CashBalance decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
}

// NewBranch creates a new branch
func NewBranch(name string) (*Branch, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_BRANCH_NAME", "Branch name cannot be empty")
	}
	return &Branch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		CashBalance:       decimal.Zero,
	}, nil
}
