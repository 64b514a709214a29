package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionRepository defines persistence operations for transactions
// and their items
type TransactionRepository interface {
	// FindByID loads a transaction with all its items, including lines
	// reduced to zero quantity
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	Save(ctx context.Context, tx *Transaction) error
	SaveItem(ctx context.Context, item *TransactionItem) error
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByCashierAndDay returns a cashier's transactions for one
	// calendar day, for report aggregation
	FindByCashierAndDay(ctx context.Context, cashierID, branchID uuid.UUID, day time.Time) ([]Transaction, error)

	// FindScheduleDrift returns ids of credit/installment transactions
	// whose stored schedule payments no longer sum to the transaction's
	// remaining balance; the reconciliation pass recomputes these.
	FindScheduleDrift(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// ScheduleRepository defines persistence operations for payment schedules
type ScheduleRepository interface {
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]PaymentSchedule, error)
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentSchedule, error)
	// Replace deletes every schedule row of the transaction and inserts
	// the given rows in one statement sequence. Schedules are never
	// partially patched.
	Replace(ctx context.Context, transactionID uuid.UUID, rows []PaymentSchedule) error
	Save(ctx context.Context, row *PaymentSchedule) error
}

// DefectiveLogRepository defines persistence for the adjustment audit log
type DefectiveLogRepository interface {
	Create(ctx context.Context, log *DefectiveLog) error
	// SumCashByHandlerAndDay totals the signed cash deltas a user's
	// adjustments produced on one calendar day
	SumCashByHandlerAndDay(ctx context.Context, handledBy uuid.UUID, day time.Time) (decimal.Decimal, error)
}

// BonusRepository defines persistence for bonus/penalty rows
type BonusRepository interface {
	Create(ctx context.Context, bonus *Bonus) error
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]Bonus, error)
	DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error
}

// BonusProductRepository defines persistence for giveaway associations
type BonusProductRepository interface {
	CreateAll(ctx context.Context, rows []TransactionBonusProduct) error
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]TransactionBonusProduct, error)
	DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error
}

// RepaymentRepository defines persistence for collected repayments
type RepaymentRepository interface {
	Create(ctx context.Context, repayment *Repayment) error
	// SumByCashierAndDay totals repayments a cashier collected on one
	// calendar day
	SumByCashierAndDay(ctx context.Context, cashierID, branchID uuid.UUID, day time.Time) (decimal.Decimal, error)
}
