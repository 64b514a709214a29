package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
)

// ProductStatus is a derived label describing where the product's stock sits.
// It is recomputed whenever quantity changes and is never an independent
// source of truth.
type ProductStatus string

const (
	ProductStatusInStore     ProductStatus = "IN_STORE"
	ProductStatusDefective   ProductStatus = "DEFECTIVE"
	ProductStatusFixed       ProductStatus = "FIXED"
	ProductStatusReturned    ProductStatus = "RETURNED"
	ProductStatusExchanged   ProductStatus = "EXCHANGED"
	ProductStatusSold        ProductStatus = "SOLD"
	ProductStatusInWarehouse ProductStatus = "IN_WAREHOUSE"
)

// IsValid checks if the status is a valid ProductStatus
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusInStore, ProductStatusDefective, ProductStatusFixed,
		ProductStatusReturned, ProductStatusExchanged, ProductStatusSold,
		ProductStatusInWarehouse:
		return true
	}
	return false
}

// Product represents a sellable item owned by a branch.
// Price is the cost basis in the source currency; MarketPrice is what the
// shop floor quotes. All stock counters stay non-negative.
type Product struct {
	shared.BaseAggregateRoot
	BranchID          uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_products_barcode_branch"`
	Barcode           string          `gorm:"size:64;not null;uniqueIndex:idx_products_barcode_branch"`
	Name              string          `gorm:"size:255;not null"`
	Price             decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	MarketPrice       decimal.Decimal `gorm:"type:numeric(18,2)"`
	Quantity          int64           `gorm:"not null;default:0"`
	DefectiveQuantity int64           `gorm:"not null;default:0"`
	ReturnedQuantity  int64           `gorm:"not null;default:0"`
	ExchangedQuantity int64           `gorm:"not null;default:0"`
	Status            ProductStatus   `gorm:"size:20;not null"`
	BonusPercentage   decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"`
}

// NewProduct creates a new product in the warehouse
func NewProduct(branchID uuid.UUID, barcode, name string, price, marketPrice decimal.Decimal, quantity int64) (*Product, error) {
	if branchID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BRANCH", "Branch ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Product price cannot be negative")
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Product quantity cannot be negative")
	}

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BranchID:          branchID,
		Barcode:           barcode,
		Name:              name,
		Price:             price,
		MarketPrice:       marketPrice,
		Quantity:          quantity,
		Status:            ProductStatusInWarehouse,
		BonusPercentage:   decimal.Zero,
	}
	return p, nil
}

// SetBonusPercentage sets the margin share the seller earns on this product
func (p *Product) SetBonusPercentage(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_BONUS_PERCENTAGE", "Bonus percentage must be between 0 and 100")
	}
	p.BonusPercentage = percent
	p.UpdatedAt = time.Now()
	return nil
}

// Deduct removes qty units of available stock, flooring at zero, and
// refreshes the derived status. Callers that need the race-safe variant go
// through ProductRepository.DeductStock instead.
func (p *Product) Deduct(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	p.Quantity -= qty
	if p.Quantity < 0 {
		p.Quantity = 0
	}
	p.refreshStatus(ProductStatusInStore)
	return nil
}

// Restock adds qty units back to available stock
func (p *Product) Restock(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	p.Quantity += qty
	p.refreshStatus(ProductStatusInStore)
	return nil
}

// Receive adds purchased stock into the warehouse
func (p *Product) Receive(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	p.Quantity += qty
	p.refreshStatus(ProductStatusInWarehouse)
	return nil
}

// MarkDefective moves qty units into the defective counter.
// When fromStore is true the units also leave available stock; a defect
// discovered on an already-sold unit leaves store quantity untouched.
func (p *Product) MarkDefective(qty int64, fromStore bool) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if fromStore {
		if qty > p.Quantity {
			return shared.ErrInsufficientStock
		}
		p.Quantity -= qty
	}
	p.DefectiveQuantity += qty
	p.refreshStatus(ProductStatusDefective)
	return nil
}

// MarkFixed moves qty units from the defective counter back to stock
func (p *Product) MarkFixed(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if qty > p.DefectiveQuantity {
		return shared.NewDomainError("INVALID_QUANTITY", "Cannot fix more units than are defective")
	}
	p.DefectiveQuantity -= qty
	p.Quantity += qty
	p.refreshStatus(ProductStatusFixed)
	return nil
}

// AcceptReturn restocks qty returned units and bumps the return counter
func (p *Product) AcceptReturn(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	p.Quantity += qty
	p.ReturnedQuantity += qty
	p.refreshStatus(ProductStatusReturned)
	return nil
}

// AcceptExchange restocks qty exchanged units and bumps the exchange counter
func (p *Product) AcceptExchange(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	p.Quantity += qty
	p.ExchangedQuantity += qty
	p.refreshStatus(ProductStatusExchanged)
	return nil
}

// refreshStatus recomputes the derived status after a quantity change.
// A product with no remaining stock is SOLD; otherwise the label of the
// mutation that just happened wins.
func (p *Product) refreshStatus(cause ProductStatus) {
	if p.Quantity == 0 {
		p.Status = ProductStatusSold
	} else {
		p.Status = cause
	}
	p.UpdatedAt = time.Now()
}
