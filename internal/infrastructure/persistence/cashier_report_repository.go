package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/domain/shared"
)

// GormCashierReportRepository implements report.CashierReportRepository using GORM
type GormCashierReportRepository struct {
	db *gorm.DB
}

// NewGormCashierReportRepository creates a new GormCashierReportRepository
func NewGormCashierReportRepository(db *gorm.DB) *GormCashierReportRepository {
	return &GormCashierReportRepository{db: db}
}

// Upsert writes the day summary, overwriting an existing row for the same
// (cashier, branch, day) key
func (r *GormCashierReportRepository) Upsert(ctx context.Context, summary *report.CashierReport) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "cashier_id"},
			{Name: "branch_id"},
			{Name: "report_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"cash_sales",
			"card_sales",
			"terminal_sales",
			"credit_sales",
			"repayments_total",
			"defective_cash_delta",
			"transaction_count",
			"updated_at",
		}),
	}).Create(summary).Error
}

// FindByDay returns the summary row for one cashier, branch and day
func (r *GormCashierReportRepository) FindByDay(ctx context.Context, cashierID, branchID uuid.UUID, day time.Time) (*report.CashierReport, error) {
	var summary report.CashierReport
	if err := r.db.WithContext(ctx).
		Where("cashier_id = ? AND branch_id = ? AND report_date = ?", cashierID, branchID, day).
		First(&summary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &summary, nil
}

var _ report.CashierReportRepository = (*GormCashierReportRepository)(nil)
