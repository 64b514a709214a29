package ledger

import (
	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
)

// Event types published by the ledger context
const (
	EventTypeTransactionCreated       = "ledger.transaction.created"
	EventTypeScheduleRecomputeFlagged = "ledger.schedule.recompute_flagged"
)

// TransactionCreatedEvent fires after a sale commits. The bonus calculator
// listens for it; BonusProductsAttached tells the handler whether giveaway
// associations arrived synchronously with the sale or may still be on
// their way, in which case the handler waits out its grace delay.
type TransactionCreatedEvent struct {
	shared.BaseDomainEvent
	TransactionID         uuid.UUID `json:"transaction_id"`
	BonusProductsAttached bool      `json:"bonus_products_attached"`
}

// NewTransactionCreatedEvent creates a TransactionCreatedEvent
func NewTransactionCreatedEvent(transactionID uuid.UUID, bonusProductsAttached bool) *TransactionCreatedEvent {
	return &TransactionCreatedEvent{
		BaseDomainEvent:       shared.NewBaseDomainEvent(EventTypeTransactionCreated, "Transaction", transactionID),
		TransactionID:         transactionID,
		BonusProductsAttached: bonusProductsAttached,
	}
}

// ScheduleRecomputeFlaggedEvent fires after a post-sale adjustment commits
// against a credit/installment transaction. The recompute handler runs
// outside the adjusting write so a slow or failing recompute can never
// roll back or block the adjustment itself.
type ScheduleRecomputeFlaggedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID `json:"transaction_id"`
}

// NewScheduleRecomputeFlaggedEvent creates a ScheduleRecomputeFlaggedEvent
func NewScheduleRecomputeFlaggedEvent(transactionID uuid.UUID) *ScheduleRecomputeFlaggedEvent {
	return &ScheduleRecomputeFlaggedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeScheduleRecomputeFlagged, "Transaction", transactionID),
		TransactionID:   transactionID,
	}
}
