package adjustment

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

type fixture struct {
	mem     *storetest.Memory
	svc     *Service
	product *catalog.Product
	branch  *partner.Branch
	handler uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storetest.NewMemory()
	branch, err := partner.NewBranch("Main")
	require.NoError(t, err)
	branch.CashBalance = decimal.NewFromInt(10000)
	mem.SeedBranch(branch)

	product, err := catalog.NewProduct(branch.ID, "300001", "Phone", decimal.NewFromInt(100), decimal.NewFromInt(150), 10)
	require.NoError(t, err)
	mem.SeedProduct(product)

	return &fixture{
		mem:     mem,
		svc:     NewService(mem.Scope(), zap.NewNop()),
		product: product,
		branch:  branch,
		handler: uuid.New(),
	}
}

// seedCreditSale records a sold line of qty units at the given unit price
func (f *fixture) seedCreditSale(t *testing.T, qty int64, price int64) *ledger.Transaction {
	t.Helper()
	tx, err := ledger.NewTransaction(ledger.TransactionTypeSale, ledger.PaymentTypeCredit, f.handler)
	require.NoError(t, err)
	tx.FromBranchID = &f.branch.ID
	p := decimal.NewFromInt(price)
	_, err = tx.AddItem(f.product.ID, qty, p, p, p, 0, nil)
	require.NoError(t, err)
	f.mem.SeedTransaction(tx)
	return tx
}

func TestService_Apply_Defective(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Apply(context.Background(), Request{
		Action:          ledger.ActionDefective,
		ProductID:       f.product.ID,
		Quantity:        2,
		BranchID:        f.branch.ID,
		HandledByUserID: f.handler,
	})
	require.NoError(t, err)

	// Standalone defect: units leave store stock; cash leaves the register.
	assert.Equal(t, int64(8), f.product.Quantity)
	assert.Equal(t, int64(2), f.product.DefectiveQuantity)
	assert.Equal(t, "-200.00", resp.CashAmount.StringFixed(2))
	assert.True(t, f.branch.CashBalance.Equal(decimal.NewFromInt(9800)))
	assert.False(t, resp.ScheduleFlagged)

	require.Len(t, f.mem.Logs, 1)
	log := f.mem.Logs[0]
	assert.Equal(t, ledger.ActionDefective, log.ActionType)
	assert.Equal(t, "-200.00", log.CashAmount.StringFixed(2))
}

func TestService_Apply_DefectiveFromSaleKeepsStock(t *testing.T) {
	f := newFixture(t)
	tx := f.seedCreditSale(t, 2, 150)

	resp, err := f.svc.Apply(context.Background(), Request{
		Action:          ledger.ActionDefective,
		ProductID:       f.product.ID,
		Quantity:        1,
		TransactionID:   &tx.ID,
		BranchID:        f.branch.ID,
		HandledByUserID: f.handler,
	})
	require.NoError(t, err)

	// The defective unit was already out of the store.
	assert.Equal(t, int64(10), f.product.Quantity)
	assert.Equal(t, int64(1), f.product.DefectiveQuantity)

	// No sale line changed, so the payment plan stays untouched even on a
	// scheduled transaction.
	assert.False(t, resp.ScheduleFlagged)
}

func TestService_Apply_FixedReturnsUnitsAndCash(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.product.MarkDefective(3, true))

	resp, err := f.svc.Apply(context.Background(), Request{
		Action:          ledger.ActionFixed,
		ProductID:       f.product.ID,
		Quantity:        3,
		BranchID:        f.branch.ID,
		HandledByUserID: f.handler,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), f.product.Quantity)
	assert.Equal(t, int64(0), f.product.DefectiveQuantity)
	assert.Equal(t, "300.00", resp.CashAmount.StringFixed(2))
	assert.True(t, f.branch.CashBalance.Equal(decimal.NewFromInt(10300)))
}

func TestService_Apply_Return(t *testing.T) {
	f := newFixture(t)
	tx := f.seedCreditSale(t, 3, 150)
	tx.ExtraProfit = decimal.NewFromInt(90)

	resp, err := f.svc.Apply(context.Background(), Request{
		Action:          ledger.ActionReturn,
		ProductID:       f.product.ID,
		Quantity:        1,
		TransactionID:   &tx.ID,
		BranchID:        f.branch.ID,
		HandledByUserID: f.handler,
	})
	require.NoError(t, err)

	// Restocked, line reduced, customer paid from the register at the
	// line's unit price, margin shrunk proportionally.
	assert.Equal(t, int64(11), f.product.Quantity)
	assert.Equal(t, int64(2), tx.Items[0].Quantity)
	assert.Equal(t, "-150.00", resp.CashAmount.StringFixed(2))
	assert.True(t, tx.ExtraProfit.Equal(decimal.NewFromInt(60)))
	// Credit sale adjustments flag the schedule for recomputation.
	assert.True(t, resp.ScheduleFlagged)
}

func TestService_Apply_ReturnQuantityExceedsSold(t *testing.T) {
	f := newFixture(t)
	tx := f.seedCreditSale(t, 2, 150)

	_, err := f.svc.Apply(context.Background(), Request{
		Action:          ledger.ActionReturn,
		ProductID:       f.product.ID,
		Quantity:        3,
		TransactionID:   &tx.ID,
		BranchID:        f.branch.ID,
		HandledByUserID: f.handler,
	})
	assert.ErrorIs(t, err, shared.ErrQuantityExceedsSold)
	// Nothing moved.
	assert.Equal(t, int64(10), f.product.Quantity)
	assert.Empty(t, f.mem.Logs)
}

func TestService_Apply_ReturnReversesBonusesOnce(t *testing.T) {
	f := newFixture(t)
	tx := f.seedCreditSale(t, 2, 150)

	giveaway, err := catalog.NewProduct(f.branch.ID, "300002", "Case", decimal.NewFromInt(10), decimal.NewFromInt(15), 0)
	require.NoError(t, err)
	f.mem.SeedProduct(giveaway)
	f.mem.GiveawayRows = append(f.mem.GiveawayRows, ledger.TransactionBonusProduct{
		ID: uuid.New(), TransactionID: tx.ID, ProductID: giveaway.ID, Quantity: 2,
	})
	f.mem.BonusRows = append(f.mem.BonusRows, ledger.Bonus{
		ID: uuid.New(), UserID: f.handler, TransactionID: tx.ID,
		Amount: decimal.NewFromInt(14), Reason: ledger.BonusReasonSales,
	})

	req := Request{
		Action:          ledger.ActionReturn,
		ProductID:       f.product.ID,
		Quantity:        1,
		TransactionID:   &tx.ID,
		BranchID:        f.branch.ID,
		HandledByUserID: f.handler,
	}
	_, err = f.svc.Apply(context.Background(), req)
	require.NoError(t, err)

	// Giveaways restocked, join rows and bonus rows gone.
	assert.Equal(t, int64(2), giveaway.Quantity)
	assert.Empty(t, f.mem.GiveawayRows)
	assert.Empty(t, f.mem.BonusRows)

	// A second return on the same sale finds nothing to restock again.
	_, err = f.svc.Apply(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), giveaway.Quantity)
}

func TestService_Apply_ReturnCashOverride(t *testing.T) {
	f := newFixture(t)
	tx := f.seedCreditSale(t, 2, 150)

	resp, err := f.svc.Apply(context.Background(), Request{
		Action:        ledger.ActionReturn,
		ProductID:     f.product.ID,
		Quantity:      1,
		TransactionID: &tx.ID,
		CashOverride: &CashOverride{
			Direction: ledger.CashDirectionOut,
			Amount:    decimal.NewFromInt(120),
		},
		BranchID:        f.branch.ID,
		HandledByUserID: f.handler,
	})
	require.NoError(t, err)
	assert.Equal(t, "-120.00", resp.CashAmount.StringFixed(2))
	assert.True(t, f.branch.CashBalance.Equal(decimal.NewFromInt(9880)))
	require.Len(t, f.mem.Logs, 1)
	require.NotNil(t, f.mem.Logs[0].CashOverride)
	assert.Equal(t, ledger.CashDirectionOut, *f.mem.Logs[0].CashOverride)
}

func TestService_Apply_Exchange(t *testing.T) {
	f := newFixture(t)
	tx := f.seedCreditSale(t, 2, 150)

	replacement, err := catalog.NewProduct(f.branch.ID, "300003", "Phone Pro", decimal.NewFromInt(120), decimal.NewFromInt(180), 5)
	require.NoError(t, err)
	f.mem.SeedProduct(replacement)

	resp, err := f.svc.Apply(context.Background(), Request{
		Action:        ledger.ActionExchange,
		ProductID:     f.product.ID,
		Quantity:      1,
		TransactionID: &tx.ID,
		Replacement: &ReplacementRequest{
			ProductID: replacement.ID,
			Quantity:  1,
		},
		BranchID:        f.branch.ID,
		HandledByUserID: f.handler,
	})
	require.NoError(t, err)

	// Returned unit restocked, replacement handed out, sale line mutated.
	assert.Equal(t, int64(11), f.product.Quantity)
	assert.Equal(t, int64(4), replacement.Quantity)
	assert.Equal(t, int64(1), tx.Items[0].Quantity)
	require.Len(t, tx.Items, 2)
	assert.Equal(t, replacement.ID, tx.Items[1].ProductID)
	assert.True(t, tx.Items[1].Price.Equal(decimal.NewFromInt(180)))

	assert.Equal(t, "100.00", resp.CashAmount.StringFixed(2))
	assert.True(t, resp.ScheduleFlagged)
}

func TestService_Apply_ExchangeInsufficientReplacementStock(t *testing.T) {
	f := newFixture(t)
	tx := f.seedCreditSale(t, 2, 150)

	replacement, err := catalog.NewProduct(f.branch.ID, "300004", "Phone Pro", decimal.NewFromInt(120), decimal.NewFromInt(180), 1)
	require.NoError(t, err)
	f.mem.SeedProduct(replacement)

	_, err = f.svc.Apply(context.Background(), Request{
		Action:        ledger.ActionExchange,
		ProductID:     f.product.ID,
		Quantity:      2,
		TransactionID: &tx.ID,
		Replacement: &ReplacementRequest{
			ProductID: replacement.ID,
			Quantity:  2,
		},
		BranchID:        f.branch.ID,
		HandledByUserID: f.handler,
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestService_Apply_Validation(t *testing.T) {
	f := newFixture(t)

	t.Run("exchange requires replacement", func(t *testing.T) {
		id := uuid.New()
		_, err := f.svc.Apply(context.Background(), Request{
			Action: ledger.ActionExchange, ProductID: f.product.ID, Quantity: 1,
			TransactionID: &id, BranchID: f.branch.ID, HandledByUserID: f.handler,
		})
		assert.Error(t, err)
	})

	t.Run("return requires transaction", func(t *testing.T) {
		_, err := f.svc.Apply(context.Background(), Request{
			Action: ledger.ActionReturn, ProductID: f.product.ID, Quantity: 1,
			BranchID: f.branch.ID, HandledByUserID: f.handler,
		})
		assert.Error(t, err)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := f.svc.Apply(context.Background(), Request{
			Action: ledger.ActionDefective, ProductID: f.product.ID, Quantity: 0,
			BranchID: f.branch.ID, HandledByUserID: f.handler,
		})
		assert.Error(t, err)
	})
}
