package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines persistence operations for products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindByBarcode(ctx context.Context, branchID uuid.UUID, barcode string) (*Product, error)
	Save(ctx context.Context, product *Product) error

	// DeductStock performs a conditional atomic decrement
	// (UPDATE ... SET quantity = quantity - ? WHERE quantity >= ?).
	// Returns shared.ErrInsufficientStock when the condition fails, so
	// concurrent sales of the same product surface as a normal error
	// instead of driving stock negative.
	DeductStock(ctx context.Context, id uuid.UUID, qty int64) error
}
