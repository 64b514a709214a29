package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerRepository defines persistence operations for customers
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByPhone(ctx context.Context, phone string) (*Customer, error)
	Save(ctx context.Context, customer *Customer) error
}

// BranchRepository defines persistence operations for branches
type BranchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	Save(ctx context.Context, branch *Branch) error

	// AdjustCashBalance applies a signed delta to the branch cash balance
	// using the store's native increment, not read-modify-write.
	AdjustCashBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
}
