package sales

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/store/storetest"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/shared"
)

func newFixture(t *testing.T) (*storetest.Memory, *Service, *catalog.Product, uuid.UUID) {
	t.Helper()
	mem := storetest.NewMemory()
	branch, err := partner.NewBranch("Main")
	require.NoError(t, err)
	mem.SeedBranch(branch)

	product, err := catalog.NewProduct(branch.ID, "200001", "Washer", decimal.NewFromInt(400), decimal.NewFromInt(500), 10)
	require.NoError(t, err)
	mem.SeedProduct(product)

	svc := NewService(mem.Scope(), ledger.NewScheduleEngine(), zap.NewNop())
	return mem, svc, product, branch.ID
}

func TestService_Create_CashSale(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)

	resp, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeCash,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 2, Price: decimal.NewFromInt(500)},
		},
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, string(ledger.TransactionStatusCompleted), resp.Status)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(1000)))
	assert.True(t, resp.RemainingBalance.IsZero())
	assert.Empty(t, resp.Schedule)

	// Stock moved atomically with the sale.
	assert.Equal(t, int64(8), mem.ProductsByID[product.ID].Quantity)
	require.Contains(t, mem.Txs, resp.ID)
}

func TestService_Create_PartialSaleDerivesInStoreStatus(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)
	require.Equal(t, catalog.ProductStatusInWarehouse, product.Status)

	_, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeCash,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 2, Price: decimal.NewFromInt(500)},
		},
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	})
	require.NoError(t, err)

	// Stock remains, so the derived label must follow it out of the
	// warehouse rather than sticking to its pre-sale value.
	assert.Equal(t, int64(8), mem.ProductsByID[product.ID].Quantity)
	assert.Equal(t, catalog.ProductStatusInStore, mem.ProductsByID[product.ID].Status)
}

func TestService_Create_InstallmentSaleBuildsSchedule(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)

	resp, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeInstallment,
		TermUnit:    ledger.TermUnitMonths,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 2, Price: decimal.NewFromInt(500000), CreditMonth: 3, CreditPercent: pctOf("0.10")},
		},
		UpfrontAmount:   decimal.NewFromInt(100000),
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, string(ledger.TransactionStatusActive), resp.Status)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(1000000)))
	// 900,000 remaining plus 10% interest.
	assert.True(t, resp.RemainingBalance.Equal(decimal.NewFromInt(990000)))
	assert.True(t, resp.AmountPaid.Equal(decimal.NewFromInt(100000)))
	require.Len(t, resp.Schedule, 3)

	rows := mem.ScheduleRows[resp.ID]
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, resp.ID, row.TransactionID)
	}
}

func TestService_Create_PaymentBreakdownMismatch(t *testing.T) {
	_, svc, product, branchID := newFixture(t)

	_, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeCash,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 2, Price: decimal.NewFromInt(500)},
		},
		Payments:        &PaymentBreakdown{Cash: decimal.NewFromInt(600), Card: decimal.NewFromInt(300)},
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	})
	assert.ErrorIs(t, err, shared.ErrPaymentMismatch)
}

func TestService_Create_InsufficientStockRollsBack(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)

	_, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeCash,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 50, Price: decimal.NewFromInt(500)},
		},
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, int64(10), mem.ProductsByID[product.ID].Quantity)
}

func TestService_Create_PurchaseReceivesStock(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)

	_, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypePurchase,
		PaymentType: ledger.PaymentTypeCash,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 5, Price: decimal.NewFromInt(400)},
		},
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), mem.ProductsByID[product.ID].Quantity)
}

func TestService_Create_UpsertsCustomerByPhone(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)

	req := CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeCash,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(500)},
		},
		Customer:        &CustomerDetails{Name: "Aziz", Phone: "+998901234567"},
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	}

	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, mem.CustomersByID, 1)

	// A second sale with the same phone reuses the customer and applies
	// the changed details.
	req.Customer.Name = "Aziz Karimov"
	_, err = svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, mem.CustomersByID, 1)
	for _, c := range mem.CustomersByID {
		assert.Equal(t, "Aziz Karimov", c.Name)
	}
}

func TestService_RepayInstallment(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)
	cashier := uuid.New()

	resp, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeCredit,
		TermUnit:    ledger.TermUnitMonths,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 2, Price: decimal.NewFromInt(500), CreditMonth: 2, CreditPercent: pctOf("0")},
		},
		BranchID:        branchID,
		CreatedByUserID: cashier,
	})
	require.NoError(t, err)
	require.Len(t, resp.Schedule, 2)

	row, err := svc.RepayInstallment(context.Background(), RepayInstallmentRequest{
		ScheduleID:  resp.Schedule[0].ID,
		Amount:      decimal.NewFromInt(500),
		PaymentType: ledger.PaymentTypeCash,
		BranchID:    branchID,
		CashierID:   cashier,
	})
	require.NoError(t, err)
	assert.True(t, row.IsPaid)

	// Cash repayments feed the branch register and the repayment log.
	assert.True(t, mem.BranchesByID[branchID].CashBalance.Equal(decimal.NewFromInt(500)))
	require.Len(t, mem.RepaymentRows, 1)
	assert.Equal(t, cashier, mem.RepaymentRows[0].CashierID)
	assert.Equal(t, ledger.TransactionStatusActive, mem.Txs[resp.ID].Status)

	// Settling the last period completes the transaction.
	_, err = svc.RepayInstallment(context.Background(), RepayInstallmentRequest{
		ScheduleID:  resp.Schedule[1].ID,
		Amount:      decimal.NewFromInt(500),
		PaymentType: ledger.PaymentTypeCard,
		BranchID:    branchID,
		CashierID:   cashier,
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusCompleted, mem.Txs[resp.ID].Status)
	// Card repayments never touch the register.
	assert.True(t, mem.BranchesByID[branchID].CashBalance.Equal(decimal.NewFromInt(500)))
}

func TestService_Delete_Guards(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)

	resp, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeCredit,
		TermUnit:    ledger.TermUnitMonths,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(500), CreditMonth: 2, CreditPercent: pctOf("0.10")},
		},
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), resp.ID, false)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Contains(t, mem.Txs, resp.ID)

	require.NoError(t, svc.Delete(context.Background(), resp.ID, true))
	assert.NotContains(t, mem.Txs, resp.ID)
	assert.Empty(t, mem.ScheduleRows[resp.ID])
}

func TestService_RecomputeSchedule_AfterPartialReturn(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)

	resp, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeInstallment,
		TermUnit:    ledger.TermUnitMonths,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 4, Price: decimal.NewFromInt(250000), CreditMonth: 4, CreditPercent: pctOf("0.10")},
		},
		UpfrontAmount:   decimal.NewFromInt(200000),
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	})
	require.NoError(t, err)

	// Half the quantity is returned out of band.
	tx := mem.Txs[resp.ID]
	require.NoError(t, tx.Items[0].Reduce(2))

	require.NoError(t, svc.RecomputeSchedule(context.Background(), resp.ID))

	// Remaining principal 500,000; upfront re-apportioned to 100,000;
	// 400,000 plus 10% interest rescheduled over 4 months.
	recomputed := mem.Txs[resp.ID]
	assert.True(t, recomputed.Total.Equal(decimal.NewFromInt(500000)))
	assert.True(t, recomputed.RemainingBalance.Equal(decimal.NewFromInt(440000)))
	rows := mem.ScheduleRows[resp.ID]
	require.Len(t, rows, 4)
	sum := decimal.Zero
	for _, row := range rows {
		sum = sum.Add(row.Payment)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(440000)))
}

func TestService_RecomputeSchedule_UnchangedItemsKeepPaidHistory(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)

	resp, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeCredit,
		TermUnit:    ledger.TermUnitMonths,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 2, Price: decimal.NewFromInt(500), CreditMonth: 2, CreditPercent: pctOf("0")},
		},
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	})
	require.NoError(t, err)

	rows := mem.ScheduleRows[resp.ID]
	require.Len(t, rows, 2)
	_, err = svc.RepayInstallment(context.Background(), RepayInstallmentRequest{
		ScheduleID:  rows[0].ID,
		Amount:      decimal.NewFromInt(500),
		PaymentType: ledger.PaymentTypeCash,
		BranchID:    branchID,
		CashierID:   uuid.New(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.RecomputeSchedule(context.Background(), resp.ID))

	// Nothing was returned, so the stored plan is authoritative and the
	// collected first period survives.
	rows = mem.ScheduleRows[resp.ID]
	require.Len(t, rows, 2)
	assert.True(t, rows[0].IsPaid)
	assert.True(t, rows[0].PaidAmount.Equal(decimal.NewFromInt(500)))
	assert.False(t, rows[1].IsPaid)
}

func TestService_RecomputeSchedule_FullReturnClearsPlan(t *testing.T) {
	mem, svc, product, branchID := newFixture(t)

	resp, err := svc.Create(context.Background(), CreateTransactionRequest{
		Type:        ledger.TransactionTypeSale,
		PaymentType: ledger.PaymentTypeInstallment,
		TermUnit:    ledger.TermUnitMonths,
		Items: []SaleItemRequest{
			{ProductID: product.ID, Quantity: 2, Price: decimal.NewFromInt(500000), CreditMonth: 2, CreditPercent: pctOf("0.10")},
		},
		BranchID:        branchID,
		CreatedByUserID: uuid.New(),
	})
	require.NoError(t, err)

	tx := mem.Txs[resp.ID]
	require.NoError(t, tx.Items[0].Reduce(2))

	require.NoError(t, svc.RecomputeSchedule(context.Background(), resp.ID))

	// The transaction carries no schedulable principal anymore: totals are
	// zeroed and the rows removed, so the drift scan stops matching it.
	cleared := mem.Txs[resp.ID]
	assert.True(t, cleared.Total.IsZero())
	assert.True(t, cleared.FinalTotal.IsZero())
	assert.True(t, cleared.RemainingBalance.IsZero())
	assert.Empty(t, mem.ScheduleRows[resp.ID])

	drifted, err := mem.Transactions().FindScheduleDrift(context.Background(), 50)
	require.NoError(t, err)
	assert.Empty(t, drifted)
}

func pctOf(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}
