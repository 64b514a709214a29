package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/shared/valueobject"
)

// TransactionType classifies the business movement a transaction records
type TransactionType string

const (
	TransactionTypeSale     TransactionType = "SALE"
	TransactionTypePurchase TransactionType = "PURCHASE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeReturn   TransactionType = "RETURN"
	TransactionTypeWriteOff TransactionType = "WRITE_OFF"
	TransactionTypeDelivery TransactionType = "DELIVERY"
)

// IsValid checks if the type is a valid TransactionType
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeSale, TransactionTypePurchase, TransactionTypeTransfer,
		TransactionTypeReturn, TransactionTypeWriteOff, TransactionTypeDelivery:
		return true
	}
	return false
}

// PaymentType is how the customer settles the transaction
type PaymentType string

const (
	PaymentTypeCash        PaymentType = "CASH"
	PaymentTypeCard        PaymentType = "CARD"
	PaymentTypeTerminal    PaymentType = "TERMINAL"
	PaymentTypeCredit      PaymentType = "CREDIT"
	PaymentTypeInstallment PaymentType = "INSTALLMENT"
)

// IsValid checks if the payment type is valid
func (p PaymentType) IsValid() bool {
	switch p {
	case PaymentTypeCash, PaymentTypeCard, PaymentTypeTerminal,
		PaymentTypeCredit, PaymentTypeInstallment:
		return true
	}
	return false
}

// IsScheduled reports whether this payment type carries a payment schedule
func (p PaymentType) IsScheduled() bool {
	return p == PaymentTypeCredit || p == PaymentTypeInstallment
}

// IsUpfrontEligible reports whether the type may appear as an upfront
// payment component of a credit sale
func (p PaymentType) IsUpfrontEligible() bool {
	return p == PaymentTypeCash || p == PaymentTypeCard || p == PaymentTypeTerminal
}

// TermUnit is the unit the credit term is expressed in
type TermUnit string

const (
	TermUnitMonths TermUnit = "MONTHS"
	TermUnitDays   TermUnit = "DAYS"
)

// TransactionStatus tracks the settlement lifecycle
type TransactionStatus string

const (
	TransactionStatusActive    TransactionStatus = "ACTIVE"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
)

// ItemStatus distinguishes an active line from one fully consumed by returns
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "ACTIVE"
	ItemStatusReturned ItemStatus = "RETURNED"
)

// TransactionItem is one line of a transaction. Quantity only ever moves
// downward after creation (returns/exchanges); OriginalQuantity preserves
// the sold amount for proportional recalculation and audit.
type TransactionItem struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity         int64     `gorm:"not null"`
	OriginalQuantity int64     `gorm:"not null"`
	// Price is the per-unit amount charged on this line; line principal is
	// Price * Quantity.
	Price         decimal.Decimal  `gorm:"type:numeric(18,2);not null"`
	SellingPrice  decimal.Decimal  `gorm:"type:numeric(18,2)"`
	OriginalPrice decimal.Decimal  `gorm:"type:numeric(18,2)"`
	// Currency tags Price/SellingPrice explicitly. Empty on rows written
	// before the tag existed; consumers fall back to magnitude detection.
	Currency      valueobject.Currency `gorm:"size:8"`
	Total         decimal.Decimal      `gorm:"type:numeric(18,2);not null"`
	CreditMonth   int                  `gorm:"not null;default:0"`
	CreditPercent *decimal.Decimal     `gorm:"type:numeric(9,6)"`
	Status        ItemStatus           `gorm:"size:16;not null;default:ACTIVE"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Principal returns the current line principal (price x remaining quantity)
func (i *TransactionItem) Principal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

// OriginalPrincipal returns the line principal as sold
func (i *TransactionItem) OriginalPrincipal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.OriginalQuantity))
}

// Reduce lowers the remaining quantity by qty. A line that reaches zero is
// marked RETURNED rather than deleted, preserving the audit trail.
func (i *TransactionItem) Reduce(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if qty > i.Quantity {
		return shared.ErrQuantityExceedsSold
	}
	i.Quantity -= qty
	i.Total = i.Principal()
	if i.Quantity == 0 {
		i.Status = ItemStatusReturned
	}
	i.UpdatedAt = time.Now()
	return nil
}

// Transaction is the financial aggregate root. Total and FinalTotal are
// computed once at creation and only ever adjusted by the schedule engine's
// recomputation after a partial return - never re-derived on read.
type Transaction struct {
	shared.BaseAggregateRoot
	Type        TransactionType   `gorm:"size:16;not null;index"`
	PaymentType PaymentType       `gorm:"size:16;not null"`
	Status      TransactionStatus `gorm:"size:16;not null;default:ACTIVE"`

	Total            decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	FinalTotal       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	AmountPaid       decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	RemainingBalance decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	ExtraProfit      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`

	TermUnit   TermUnit `gorm:"size:8"`
	TermLength int      `gorm:"not null;default:0"`

	CustomerID   *uuid.UUID `gorm:"type:uuid;index"`
	FromBranchID *uuid.UUID `gorm:"type:uuid;index"`
	ToBranchID   *uuid.UUID `gorm:"type:uuid"`

	// SoldByUserID is the seller of record, the bonus beneficiary.
	// CreatedByUserID is the cashier who keyed the transaction in. These
	// are distinct identities with distinct bonus implications.
	SoldByUserID    *uuid.UUID `gorm:"type:uuid;index"`
	CreatedByUserID uuid.UUID  `gorm:"type:uuid;not null;index"`

	IsDelivery      bool   `gorm:"not null;default:false"`
	DeliveryAddress string `gorm:"size:500"`
	DeliveryMethod  string `gorm:"size:64"`

	Items []TransactionItem `gorm:"foreignKey:TransactionID"`
}

// NewTransaction creates a new transaction shell; items are attached via AddItem
func NewTransaction(txType TransactionType, paymentType PaymentType, createdBy uuid.UUID) (*Transaction, error) {
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Unknown transaction type")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", "Unknown payment type")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Creator user ID cannot be empty")
	}
	return &Transaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              txType,
		PaymentType:       paymentType,
		Status:            TransactionStatusActive,
		CreatedByUserID:   createdBy,
		Total:             decimal.Zero,
		FinalTotal:        decimal.Zero,
		AmountPaid:        decimal.Zero,
		RemainingBalance:  decimal.Zero,
		ExtraProfit:       decimal.Zero,
		Items:             make([]TransactionItem, 0),
	}, nil
}

// AddItem attaches a line to the transaction. sellingPrice and
// originalPrice default to price when zero; creditPercent may be nil for
// lines carrying no credit terms.
func (t *Transaction) AddItem(productID uuid.UUID, qty int64, price, sellingPrice, originalPrice decimal.Decimal, creditMonth int, creditPercent *decimal.Decimal) (*TransactionItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if creditMonth < 0 {
		return nil, shared.NewDomainError("INVALID_CREDIT_TERM", "Credit term cannot be negative")
	}
	if creditPercent != nil && creditPercent.IsNegative() {
		return nil, shared.NewDomainError("INVALID_CREDIT_PERCENT", "Credit percent cannot be negative")
	}
	if sellingPrice.IsZero() {
		sellingPrice = price
	}
	if originalPrice.IsZero() {
		originalPrice = price
	}

	now := time.Now()
	item := TransactionItem{
		ID:               uuid.New(),
		TransactionID:    t.ID,
		ProductID:        productID,
		Quantity:         qty,
		OriginalQuantity: qty,
		Price:            price,
		SellingPrice:     sellingPrice,
		OriginalPrice:    originalPrice,
		Total:            price.Mul(decimal.NewFromInt(qty)),
		CreditMonth:      creditMonth,
		CreditPercent:    creditPercent,
		Status:           ItemStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	t.Items = append(t.Items, item)
	t.UpdatedAt = now
	return &t.Items[len(t.Items)-1], nil
}

// AbsorbReplacement merges an exchange replacement into the transaction:
// an existing active line for the product grows, otherwise a new line is
// added at the given unit price
func (t *Transaction) AbsorbReplacement(productID uuid.UUID, qty int64, price decimal.Decimal) (*TransactionItem, error) {
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if existing := t.ItemForProduct(productID); existing != nil {
		existing.Quantity += qty
		existing.OriginalQuantity += qty
		existing.Total = existing.Principal()
		existing.UpdatedAt = time.Now()
		t.UpdatedAt = existing.UpdatedAt
		return existing, nil
	}
	return t.AddItem(productID, qty, price, decimal.Zero, decimal.Zero, 0, nil)
}

// ItemForProduct returns the first active line for the given product
func (t *Transaction) ItemForProduct(productID uuid.UUID) *TransactionItem {
	for idx := range t.Items {
		if t.Items[idx].ProductID == productID && t.Items[idx].Quantity > 0 {
			return &t.Items[idx]
		}
	}
	return nil
}

// RemainingItems returns the lines still carrying quantity
func (t *Transaction) RemainingItems() []TransactionItem {
	remaining := make([]TransactionItem, 0, len(t.Items))
	for _, item := range t.Items {
		if item.Quantity > 0 {
			remaining = append(remaining, item)
		}
	}
	return remaining
}

// RemainingPrincipal is the sum of per-line totals over remaining items.
// Invariant: this defines the current transaction principal.
func (t *Transaction) RemainingPrincipal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Items {
		if item.Quantity > 0 {
			total = total.Add(item.Principal())
		}
	}
	return total
}

// OriginalPrincipal is the principal as sold, recovered from the full item
// list including lines since reduced to zero
func (t *Transaction) OriginalPrincipal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Items {
		total = total.Add(item.OriginalPrincipal())
	}
	return total
}

// ApplyScheduleTotals records what the schedule engine computed for this
// transaction. Called at creation and again after each recomputation.
func (t *Transaction) ApplyScheduleTotals(total, finalTotal, remaining decimal.Decimal, unit TermUnit, term int) {
	t.Total = total
	t.FinalTotal = finalTotal
	t.RemainingBalance = remaining
	t.TermUnit = unit
	t.TermLength = term
	t.UpdatedAt = time.Now()
}

// ReduceExtraProfit shrinks the persisted margin proportionally to the
// fraction of a line being returned, floored at zero
func (t *Transaction) ReduceExtraProfit(returnedQty, lineQtyBeforeReturn int64) {
	if lineQtyBeforeReturn <= 0 {
		return
	}
	fraction := decimal.NewFromInt(returnedQty).Div(decimal.NewFromInt(lineQtyBeforeReturn))
	t.ExtraProfit = t.ExtraProfit.Sub(t.ExtraProfit.Mul(fraction))
	if t.ExtraProfit.IsNegative() {
		t.ExtraProfit = decimal.Zero
	}
	t.UpdatedAt = time.Now()
}

// MarkCompleted marks the transaction fully settled
func (t *Transaction) MarkCompleted() {
	t.Status = TransactionStatusCompleted
	t.RemainingBalance = decimal.Zero
	t.UpdatedAt = time.Now()
}

// IsCompleted reports whether the transaction is fully settled
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

// CanBeDeletedBy enforces the deletion guard: only a privileged role may
// delete, and never a COMPLETED transaction
func (t *Transaction) CanBeDeletedBy(privileged bool) error {
	if !privileged {
		return shared.ErrForbidden
	}
	if t.IsCompleted() {
		return shared.NewDomainError("INVALID_STATE", "Completed transactions cannot be deleted")
	}
	return nil
}

// SellerID returns the bonus beneficiary, falling back to the cashier when
// no seller of record was captured
func (t *Transaction) SellerID() uuid.UUID {
	if t.SoldByUserID != nil {
		return *t.SoldByUserID
	}
	return t.CreatedByUserID
}
