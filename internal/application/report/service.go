// Package report rolls one cashier's day up into a persisted summary row.
// The aggregator is read-only over the ledger's outputs; it never calls
// back into the orchestrators.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/store"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/domain/shared"
)

// Service is the cashier report aggregator
type Service struct {
	scope  store.TransactionScope
	logger *zap.Logger
}

// NewService creates a report Service
func NewService(scope store.TransactionScope, logger *zap.Logger) *Service {
	return &Service{scope: scope, logger: logger}
}

// Aggregate recomputes one cashier's day and upserts the summary row.
// Running it twice for the same day overwrites the same record.
func (s *Service) Aggregate(ctx context.Context, cashierID, branchID uuid.UUID, day time.Time) (*report.CashierReport, error) {
	if cashierID == uuid.Nil || branchID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Cashier and branch IDs cannot be empty")
	}

	day = truncateToDay(day)
	summary := &report.CashierReport{
		BaseEntity: shared.NewBaseEntity(),
		CashierID:  cashierID,
		BranchID:   branchID,
		ReportDate: day,
	}

	err := s.scope.Execute(ctx, func(repos store.Repositories) error {
		transactions, err := repos.Transactions().FindByCashierAndDay(ctx, cashierID, branchID, day)
		if err != nil {
			return err
		}
		for _, tx := range transactions {
			if tx.Type != ledger.TransactionTypeSale && tx.Type != ledger.TransactionTypeDelivery {
				continue
			}
			summary.TransactionCount++
			switch tx.PaymentType {
			case ledger.PaymentTypeCash:
				summary.CashSales = summary.CashSales.Add(tx.FinalTotal)
			case ledger.PaymentTypeCard:
				summary.CardSales = summary.CardSales.Add(tx.FinalTotal)
			case ledger.PaymentTypeTerminal:
				summary.TerminalSales = summary.TerminalSales.Add(tx.FinalTotal)
			case ledger.PaymentTypeCredit, ledger.PaymentTypeInstallment:
				summary.CreditSales = summary.CreditSales.Add(tx.FinalTotal)
			}
		}

		repayments, err := repos.Repayments().SumByCashierAndDay(ctx, cashierID, branchID, day)
		if err != nil {
			return err
		}
		summary.RepaymentsTotal = repayments

		adjustments, err := repos.DefectiveLogs().SumCashByHandlerAndDay(ctx, cashierID, day)
		if err != nil {
			return err
		}
		summary.DefectiveCashDelta = adjustments

		return repos.CashierReports().Upsert(ctx, summary)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cashier day aggregated",
		zap.String("cashier_id", cashierID.String()),
		zap.String("branch_id", branchID.String()),
		zap.Time("report_date", day),
		zap.Int64("transactions", summary.TransactionCount),
		zap.String("net_cash", summary.NetCash().String()))
	return summary, nil
}

// FindByDay returns an existing summary row without recomputing it
func (s *Service) FindByDay(ctx context.Context, cashierID, branchID uuid.UUID, day time.Time) (*report.CashierReport, error) {
	var found *report.CashierReport
	err := s.scope.Execute(ctx, func(repos store.Repositories) error {
		summary, err := repos.CashierReports().FindByDay(ctx, cashierID, branchID, truncateToDay(day))
		if err != nil {
			return err
		}
		found = summary
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
