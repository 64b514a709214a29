package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pos/backend/internal/application/store"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/report"
)

// GormTransactionScope implements store.TransactionScope over a gorm
// database transaction. Every Execute call gets a fresh transaction with
// the configured write timeout applied; exceeding it aborts and rolls back
// the whole unit.
type GormTransactionScope struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormTransactionScope creates a transaction scope with the given write
// timeout. A zero timeout disables the deadline.
func NewGormTransactionScope(db *gorm.DB, timeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, timeout: timeout}
}

// Execute implements store.TransactionScope
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos store.Repositories) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
}

var _ store.TransactionScope = (*GormTransactionScope)(nil)

// GormRepositories bundles every repository over one shared gorm handle,
// either a live transaction or a plain connection
type GormRepositories struct {
	products       *GormProductRepository
	customers      *GormCustomerRepository
	branches       *GormBranchRepository
	transactions   *GormTransactionRepository
	schedules      *GormScheduleRepository
	defectiveLogs  *GormDefectiveLogRepository
	bonuses        *GormBonusRepository
	bonusProducts  *GormBonusProductRepository
	repayments     *GormRepaymentRepository
	cashierReports *GormCashierReportRepository
}

// NewGormRepositories creates the repository bundle over one gorm handle
func NewGormRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{
		products:       NewGormProductRepository(db),
		customers:      NewGormCustomerRepository(db),
		branches:       NewGormBranchRepository(db),
		transactions:   NewGormTransactionRepository(db),
		schedules:      NewGormScheduleRepository(db),
		defectiveLogs:  NewGormDefectiveLogRepository(db),
		bonuses:        NewGormBonusRepository(db),
		bonusProducts:  NewGormBonusProductRepository(db),
		repayments:     NewGormRepaymentRepository(db),
		cashierReports: NewGormCashierReportRepository(db),
	}
}

// Products implements store.Repositories
func (r *GormRepositories) Products() catalog.ProductRepository { return r.products }

// Customers implements store.Repositories
func (r *GormRepositories) Customers() partner.CustomerRepository { return r.customers }

// Branches implements store.Repositories
func (r *GormRepositories) Branches() partner.BranchRepository { return r.branches }

// Transactions implements store.Repositories
func (r *GormRepositories) Transactions() ledger.TransactionRepository { return r.transactions }

// Schedules implements store.Repositories
func (r *GormRepositories) Schedules() ledger.ScheduleRepository { return r.schedules }

// DefectiveLogs implements store.Repositories
func (r *GormRepositories) DefectiveLogs() ledger.DefectiveLogRepository { return r.defectiveLogs }

// Bonuses implements store.Repositories
func (r *GormRepositories) Bonuses() ledger.BonusRepository { return r.bonuses }

// BonusProducts implements store.Repositories
func (r *GormRepositories) BonusProducts() ledger.BonusProductRepository { return r.bonusProducts }

// Repayments implements store.Repositories
func (r *GormRepositories) Repayments() ledger.RepaymentRepository { return r.repayments }

// CashierReports implements store.Repositories
func (r *GormRepositories) CashierReports() report.CashierReportRepository { return r.cashierReports }

var _ store.Repositories = (*GormRepositories)(nil)
