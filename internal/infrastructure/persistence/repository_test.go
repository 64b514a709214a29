package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pos/backend/internal/domain/shared"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestGormProductRepository_DeductStock(t *testing.T) {
	id := uuid.New()

	t.Run("decrements and re-derives status", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormProductRepository(db)

		// Both CASE arms must bind a status value; a partial sale lands the
		// product IN_STORE instead of keeping its previous label.
		mock.ExpectExec(`UPDATE "products" SET .*CASE WHEN quantity - \$\d+ = 0 THEN \$\d+ ELSE \$\d+ END`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.DeductStock(context.Background(), id, 2)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient stock when row exists but guard fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormProductRepository(db)

		mock.ExpectExec(`UPDATE "products" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT count`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := repo.DeductStock(context.Background(), id, 5)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found when row is missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormProductRepository(db)

		mock.ExpectExec(`UPDATE "products" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT count`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err := repo.DeductStock(context.Background(), id, 1)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive quantity without touching the store", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormProductRepository(db)

		err := repo.DeductStock(context.Background(), id, 0)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProductRepository_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormProductRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBranchRepository_AdjustCashBalance(t *testing.T) {
	id := uuid.New()

	t.Run("applies signed delta as an increment", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormBranchRepository(db)

		mock.ExpectExec(`UPDATE "branches" SET "cash_balance"=cash_balance`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.AdjustCashBalance(context.Background(), id, decimal.NewFromInt(-150))
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero delta is a no-op", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormBranchRepository(db)

		err := repo.AdjustCashBalance(context.Background(), id, decimal.Zero)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found for an unknown branch", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormBranchRepository(db)

		mock.ExpectExec(`UPDATE "branches" SET "cash_balance"=cash_balance`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.AdjustCashBalance(context.Background(), id, decimal.NewFromInt(100))
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCustomerRepository_FindByPhone_RejectsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCustomerRepository(db)

	_, err := repo.FindByPhone(context.Background(), "")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
