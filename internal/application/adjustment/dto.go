package adjustment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/ledger"
)

// ReplacementRequest identifies the product handed over in an EXCHANGE
type ReplacementRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,gt=0"`
}

// CashOverride is an explicit cashier decision on how much cash moves and
// in which direction, overriding the action's default
type CashOverride struct {
	Direction ledger.CashDirection `json:"direction" binding:"required"`
	Amount    decimal.Decimal      `json:"amount" binding:"required"`
}

// Request describes one post-sale adjustment action
type Request struct {
	Action    ledger.AdjustmentAction `json:"action" binding:"required"`
	ProductID uuid.UUID               `json:"product_id" binding:"required"`
	Quantity  int64                   `json:"quantity" binding:"required,gt=0"`

	// TransactionID links the action to the originating sale; required
	// for RETURN and EXCHANGE, optional for DEFECTIVE/FIXED
	TransactionID *uuid.UUID `json:"transaction_id"`

	Replacement  *ReplacementRequest `json:"replacement"`
	CashOverride *CashOverride       `json:"cash_override"`

	BranchID        uuid.UUID `json:"branch_id" binding:"required"`
	HandledByUserID uuid.UUID `json:"handled_by_user_id" binding:"required"`
	Comment         string    `json:"comment"`
}

// Response reports the committed adjustment
type Response struct {
	LogID      uuid.UUID       `json:"log_id"`
	CashAmount decimal.Decimal `json:"cash_amount"`
	// ScheduleFlagged is true when the linked credit transaction was
	// queued for schedule recomputation
	ScheduleFlagged bool `json:"schedule_flagged"`
}
