package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/shared"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID loads a transaction with every item, including lines reduced to
// zero quantity. Recomputation needs the full list to recover pre-return
// totals.
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	if err := r.db.WithContext(ctx).Preload("Items").First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// Save creates or updates a transaction together with its items
func (r *GormTransactionRepository) Save(ctx context.Context, tx *ledger.Transaction) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(tx).Error
}

// SaveItem updates a single line
func (r *GormTransactionRepository) SaveItem(ctx context.Context, item *ledger.TransactionItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete removes a transaction with its items and schedule rows
func (r *GormTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", id).Delete(&ledger.PaymentSchedule{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", id).Delete(&ledger.TransactionItem{}).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&ledger.Transaction{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByCashierAndDay returns the cashier's transactions for one calendar day
func (r *GormTransactionRepository) FindByCashierAndDay(ctx context.Context, cashierID, branchID uuid.UUID, day time.Time) ([]ledger.Transaction, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var transactions []ledger.Transaction
	if err := r.db.WithContext(ctx).
		Where("created_by_user_id = ? AND from_branch_id = ? AND created_at >= ? AND created_at < ?",
			cashierID, branchID, start, end).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// FindScheduleDrift returns active credit/installment transactions whose
// recorded principal no longer matches their remaining items. These are
// sales whose post-return recomputation was lost; the reconciliation pass
// regenerates them.
func (r *GormTransactionRepository) FindScheduleDrift(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 50
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT t.id FROM transactions t
		WHERE t.payment_type IN ?
		  AND t.status = ?
		  AND t.total <> (
			SELECT COALESCE(SUM(i.price * i.quantity), 0)
			FROM transaction_items i
			WHERE i.transaction_id = t.id AND i.quantity > 0
		  )
		LIMIT ?`,
		[]string{string(ledger.PaymentTypeCredit), string(ledger.PaymentTypeInstallment)},
		string(ledger.TransactionStatusActive),
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
