package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
)

// AdjustmentAction is a post-sale action against a product or sale line
type AdjustmentAction string

const (
	ActionDefective AdjustmentAction = "DEFECTIVE"
	ActionFixed     AdjustmentAction = "FIXED"
	ActionReturn    AdjustmentAction = "RETURN"
	ActionExchange  AdjustmentAction = "EXCHANGE"
)

// IsValid checks if the action is a valid AdjustmentAction
func (a AdjustmentAction) IsValid() bool {
	switch a {
	case ActionDefective, ActionFixed, ActionReturn, ActionExchange:
		return true
	}
	return false
}

// CashDirection is an explicit cashier override for which way cash moves
type CashDirection string

const (
	CashDirectionIn  CashDirection = "IN"
	CashDirectionOut CashDirection = "OUT"
)

// DefectiveLog is the append-only audit record of a post-sale adjustment.
// CashAmount is signed: negative means cash left the register, positive
// means cash came in.
type DefectiveLog struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ProductID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	TransactionID   *uuid.UUID       `gorm:"type:uuid;index"`
	ActionType      AdjustmentAction `gorm:"size:16;not null"`
	Quantity        int64            `gorm:"not null"`
	CashAmount      decimal.Decimal  `gorm:"type:numeric(18,2);not null"`
	CashOverride    *CashDirection   `gorm:"size:8"`
	HandledByUserID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Comment         string           `gorm:"size:500"`
	CreatedAt       time.Time
}

// NewDefectiveLog creates a new audit record for a post-sale adjustment
func NewDefectiveLog(productID uuid.UUID, action AdjustmentAction, qty int64, cashAmount decimal.Decimal, handledBy uuid.UUID) (*DefectiveLog, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACTION", "Unknown adjustment action")
	}
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if handledBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Handler user ID cannot be empty")
	}
	return &DefectiveLog{
		ID:              uuid.New(),
		ProductID:       productID,
		ActionType:      action,
		Quantity:        qty,
		CashAmount:      cashAmount,
		HandledByUserID: handledBy,
		CreatedAt:       time.Now(),
	}, nil
}
