package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/store/storetest"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/shared"
)

func seedDayTx(t *testing.T, mem *storetest.Memory, cashier, branch uuid.UUID, txType ledger.TransactionType, payType ledger.PaymentType, total int64, at time.Time) {
	t.Helper()
	tx, err := ledger.NewTransaction(txType, payType, cashier)
	require.NoError(t, err)
	tx.FromBranchID = &branch
	tx.FinalTotal = decimal.NewFromInt(total)
	tx.CreatedAt = at
	mem.SeedTransaction(tx)
}

func TestService_Aggregate(t *testing.T) {
	mem := storetest.NewMemory()
	cashier := uuid.New()
	branch := uuid.New()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	at := day.Add(10 * time.Hour)

	seedDayTx(t, mem, cashier, branch, ledger.TransactionTypeSale, ledger.PaymentTypeCash, 1000, at)
	seedDayTx(t, mem, cashier, branch, ledger.TransactionTypeSale, ledger.PaymentTypeCard, 500, at)
	seedDayTx(t, mem, cashier, branch, ledger.TransactionTypeDelivery, ledger.PaymentTypeTerminal, 300, at)
	seedDayTx(t, mem, cashier, branch, ledger.TransactionTypeSale, ledger.PaymentTypeCredit, 2000, at)
	// Excluded: a transfer, another cashier's sale, yesterday's sale.
	seedDayTx(t, mem, cashier, branch, ledger.TransactionTypeTransfer, ledger.PaymentTypeCash, 999, at)
	seedDayTx(t, mem, uuid.New(), branch, ledger.TransactionTypeSale, ledger.PaymentTypeCash, 999, at)
	seedDayTx(t, mem, cashier, branch, ledger.TransactionTypeSale, ledger.PaymentTypeCash, 999, day.Add(-2*time.Hour))

	mem.RepaymentRows = append(mem.RepaymentRows, ledger.Repayment{
		ID: uuid.New(), TransactionID: uuid.New(), ScheduleID: uuid.New(),
		BranchID: branch, CashierID: cashier,
		Amount: decimal.NewFromInt(400), PaymentType: ledger.PaymentTypeCash,
		CreatedAt: at,
	})
	mem.Logs = append(mem.Logs, ledger.DefectiveLog{
		ID: uuid.New(), ProductID: uuid.New(), ActionType: ledger.ActionReturn,
		Quantity: 1, CashAmount: decimal.NewFromInt(-150),
		HandledByUserID: cashier, CreatedAt: at,
	})

	svc := NewService(mem.Scope(), zap.NewNop())
	summary, err := svc.Aggregate(context.Background(), cashier, branch, at)
	require.NoError(t, err)

	assert.Equal(t, int64(4), summary.TransactionCount)
	assert.Equal(t, "1000.00", summary.CashSales.StringFixed(2))
	assert.Equal(t, "500.00", summary.CardSales.StringFixed(2))
	assert.Equal(t, "300.00", summary.TerminalSales.StringFixed(2))
	assert.Equal(t, "2000.00", summary.CreditSales.StringFixed(2))
	assert.Equal(t, "400.00", summary.RepaymentsTotal.StringFixed(2))
	assert.Equal(t, "-150.00", summary.DefectiveCashDelta.StringFixed(2))
	assert.Equal(t, "1250.00", summary.NetCash().StringFixed(2))

	// The row is persisted and readable back.
	stored, err := svc.FindByDay(context.Background(), cashier, branch, day)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, stored.ID)
}

func TestService_Aggregate_IsRepeatable(t *testing.T) {
	mem := storetest.NewMemory()
	cashier := uuid.New()
	branch := uuid.New()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	seedDayTx(t, mem, cashier, branch, ledger.TransactionTypeSale, ledger.PaymentTypeCash, 1000, day.Add(9*time.Hour))

	svc := NewService(mem.Scope(), zap.NewNop())
	_, err := svc.Aggregate(context.Background(), cashier, branch, day)
	require.NoError(t, err)

	seedDayTx(t, mem, cashier, branch, ledger.TransactionTypeSale, ledger.PaymentTypeCash, 500, day.Add(15*time.Hour))
	summary, err := svc.Aggregate(context.Background(), cashier, branch, day)
	require.NoError(t, err)

	// One summary row per (cashier, branch, day), always the fresh totals.
	assert.Equal(t, "1500.00", summary.CashSales.StringFixed(2))
	assert.Len(t, mem.Reports, 1)
}

func TestService_Aggregate_Validation(t *testing.T) {
	mem := storetest.NewMemory()
	svc := NewService(mem.Scope(), zap.NewNop())

	_, err := svc.Aggregate(context.Background(), uuid.Nil, uuid.New(), time.Now())
	assert.Error(t, err)
	_, err = svc.Aggregate(context.Background(), uuid.New(), uuid.Nil, time.Now())
	assert.Error(t, err)
}

func TestService_FindByDay_NotFound(t *testing.T) {
	mem := storetest.NewMemory()
	svc := NewService(mem.Scope(), zap.NewNop())

	_, err := svc.FindByDay(context.Background(), uuid.New(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
