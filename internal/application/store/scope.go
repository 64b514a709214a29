// Package store defines the unit-of-work boundary the orchestrators write
// through. Every state-changing operation performs its core writes inside
// one Execute call; derived computations (schedule recompute, bonus
// calculation) deliberately run after it.
package store

import (
	"context"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/report"
)

// TransactionScope runs a function inside one bounded atomic database
// transaction. The implementation applies the configured write timeout; an
// exceeded budget aborts the whole unit and nothing is retried.
type TransactionScope interface {
	// Execute runs fn within a database transaction. If fn returns an
	// error the transaction is rolled back, otherwise committed.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories exposes every repository scoped to the current transaction.
// All of them share the same underlying database transaction.
type Repositories interface {
	Products() catalog.ProductRepository
	Customers() partner.CustomerRepository
	Branches() partner.BranchRepository
	Transactions() ledger.TransactionRepository
	Schedules() ledger.ScheduleRepository
	DefectiveLogs() ledger.DefectiveLogRepository
	Bonuses() ledger.BonusRepository
	BonusProducts() ledger.BonusProductRepository
	Repayments() ledger.RepaymentRepository
	CashierReports() report.CashierReportRepository
}

// NoOpScope runs the function without a real transaction. Useful in tests.
type NoOpScope struct {
	Repos Repositories
}

// Execute runs fn directly against the held repositories
func (s *NoOpScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.Repos)
}

var _ TransactionScope = (*NoOpScope)(nil)
