package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
)

// ScheduleType distinguishes monthly rows from the single synthetic row a
// day-based term produces
type ScheduleType string

const (
	ScheduleTypeMonthly ScheduleType = "MONTHLY"
	ScheduleTypeDaily   ScheduleType = "DAILY"
)

// PaymentSchedule is one period of a credit/installment plan. Rows for a
// transaction are always replaced wholesale when principal changes; they
// are never patched individually, so the stored plan cannot drift from the
// computed totals.
type PaymentSchedule struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID    `gorm:"type:uuid;not null;index"`
	Type          ScheduleType `gorm:"size:8;not null;default:MONTHLY"`
	// Month is the period ordinal, starting at 1. A DAILY schedule has a
	// single row with Month 1 and a DueDate offset instead.
	Month            int             `gorm:"not null"`
	Payment          decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	RemainingBalance decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	IsPaid           bool            `gorm:"not null;default:false"`
	PaidAmount       decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	DueDate          *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ApplyPayment accumulates a repayment into this row, marking it paid once
// the due amount is covered. Returns the amount actually absorbed (a
// payment larger than the outstanding due is truncated to it).
func (s *PaymentSchedule) ApplyPayment(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if s.IsPaid {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE", "Schedule period is already paid")
	}
	outstanding := s.Payment.Sub(s.PaidAmount)
	if amount.GreaterThan(outstanding) {
		amount = outstanding
	}
	s.PaidAmount = s.PaidAmount.Add(amount)
	if s.PaidAmount.GreaterThanOrEqual(s.Payment) {
		s.IsPaid = true
	}
	s.UpdatedAt = time.Now()
	return amount, nil
}
