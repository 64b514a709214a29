package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared"
)

// CashierReport is the per-day roll-up of one cashier's activity at one
// branch. (CashierID, BranchID, ReportDate) is unique; re-aggregation
// upserts the same row.
type CashierReport struct {
	shared.BaseEntity
	CashierID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cashier_reports_day"`
	BranchID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cashier_reports_day"`
	ReportDate time.Time `gorm:"not null;uniqueIndex:idx_cashier_reports_day"`

	CashSales       decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	CardSales       decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	TerminalSales   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	CreditSales     decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	RepaymentsTotal decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	// DefectiveCashDelta is the signed net of register cash the cashier's
	// defect/return/exchange handling moved that day
	DefectiveCashDelta decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	TransactionCount   int64           `gorm:"not null;default:0"`
}

// NetCash returns the net cash position of the day: cash sales plus
// repayments plus the signed adjustment delta
func (r *CashierReport) NetCash() decimal.Decimal {
	return r.CashSales.Add(r.RepaymentsTotal).Add(r.DefectiveCashDelta)
}

// CashierReportRepository defines persistence for cashier day summaries
type CashierReportRepository interface {
	Upsert(ctx context.Context, report *CashierReport) error
	FindByDay(ctx context.Context, cashierID, branchID uuid.UUID, day time.Time) (*CashierReport, error)
}
