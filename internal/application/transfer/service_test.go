package transfer

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

func seedBranches(t *testing.T, mem *storetest.Memory) (*partner.Branch, *partner.Branch) {
	t.Helper()
	from, err := partner.NewBranch("Main")
	require.NoError(t, err)
	to, err := partner.NewBranch("Airport")
	require.NoError(t, err)
	mem.SeedBranch(from)
	mem.SeedBranch(to)
	return from, to
}

func TestService_Transfer_CreatesTargetProduct(t *testing.T) {
	mem := storetest.NewMemory()
	from, to := seedBranches(t, mem)

	source, err := catalog.NewProduct(from.ID, "400001", "Mixer", decimal.NewFromInt(50), decimal.NewFromInt(80), 10)
	require.NoError(t, err)
	require.NoError(t, source.SetBonusPercentage(decimal.NewFromInt(15)))
	mem.SeedProduct(source)

	svc := NewService(mem.Scope(), zap.NewNop())
	resp, err := svc.Transfer(context.Background(), Request{
		ProductID:       source.ID,
		Quantity:        4,
		FromBranchID:    from.ID,
		ToBranchID:      to.ID,
		CreatedByUserID: uuid.New(),
	})
	require.NoError(t, err)

	assert.True(t, resp.TargetCreated)
	assert.Equal(t, int64(6), resp.RemainingAtFrom)
	assert.Equal(t, int64(6), source.Quantity)

	target := mem.ProductsByID[resp.TargetProductID]
	require.NotNil(t, target)
	assert.Equal(t, to.ID, target.BranchID)
	assert.Equal(t, source.Barcode, target.Barcode)
	assert.Equal(t, int64(4), target.Quantity)
	// The clone inherits pricing and the bonus share.
	assert.True(t, target.Price.Equal(source.Price))
	assert.True(t, target.BonusPercentage.Equal(source.BonusPercentage))

	// An audit TRANSFER transaction was recorded and closed.
	tx := mem.Txs[resp.TransactionID]
	require.NotNil(t, tx)
	assert.Equal(t, ledger.TransactionTypeTransfer, tx.Type)
	assert.Equal(t, ledger.TransactionStatusCompleted, tx.Status)
	require.NotNil(t, tx.ToBranchID)
	assert.Equal(t, to.ID, *tx.ToBranchID)
}

func TestService_Transfer_MergesIntoExistingTarget(t *testing.T) {
	mem := storetest.NewMemory()
	from, to := seedBranches(t, mem)

	source, err := catalog.NewProduct(from.ID, "400002", "Iron", decimal.NewFromInt(30), decimal.NewFromInt(45), 10)
	require.NoError(t, err)
	mem.SeedProduct(source)
	existing, err := catalog.NewProduct(to.ID, "400002", "Iron", decimal.NewFromInt(30), decimal.NewFromInt(45), 2)
	require.NoError(t, err)
	mem.SeedProduct(existing)

	svc := NewService(mem.Scope(), zap.NewNop())
	resp, err := svc.Transfer(context.Background(), Request{
		ProductID:       source.ID,
		Quantity:        3,
		FromBranchID:    from.ID,
		ToBranchID:      to.ID,
		CreatedByUserID: uuid.New(),
	})
	require.NoError(t, err)

	assert.False(t, resp.TargetCreated)
	assert.Equal(t, existing.ID, resp.TargetProductID)
	assert.Equal(t, int64(5), existing.Quantity)
}

func TestService_Transfer_Guards(t *testing.T) {
	mem := storetest.NewMemory()
	from, to := seedBranches(t, mem)

	source, err := catalog.NewProduct(from.ID, "400003", "Fan", decimal.NewFromInt(20), decimal.NewFromInt(30), 2)
	require.NoError(t, err)
	mem.SeedProduct(source)

	svc := NewService(mem.Scope(), zap.NewNop())

	t.Run("same branch", func(t *testing.T) {
		_, err := svc.Transfer(context.Background(), Request{
			ProductID: source.ID, Quantity: 1,
			FromBranchID: from.ID, ToBranchID: from.ID,
			CreatedByUserID: uuid.New(),
		})
		assert.Error(t, err)
	})

	t.Run("wrong source branch", func(t *testing.T) {
		_, err := svc.Transfer(context.Background(), Request{
			ProductID: source.ID, Quantity: 1,
			FromBranchID: to.ID, ToBranchID: from.ID,
			CreatedByUserID: uuid.New(),
		})
		assert.Error(t, err)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		_, err := svc.Transfer(context.Background(), Request{
			ProductID: source.ID, Quantity: 5,
			FromBranchID: from.ID, ToBranchID: to.ID,
			CreatedByUserID: uuid.New(),
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("unknown target branch", func(t *testing.T) {
		_, err := svc.Transfer(context.Background(), Request{
			ProductID: source.ID, Quantity: 1,
			FromBranchID: from.ID, ToBranchID: uuid.New(),
			CreatedByUserID: uuid.New(),
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
