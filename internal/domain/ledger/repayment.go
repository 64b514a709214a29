package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repayment records cash collected against a schedule period. The cashier
// report aggregator reads these; the schedule row itself carries the
// paid/unpaid state.
type Repayment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ScheduleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	BranchID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	CashierID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	PaymentType   PaymentType     `gorm:"size:16;not null"`
	CreatedAt     time.Time
}
