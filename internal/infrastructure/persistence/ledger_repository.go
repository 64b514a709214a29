package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/shared"
)

// GormScheduleRepository implements ledger.ScheduleRepository using GORM
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GormScheduleRepository
func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

// FindByTransaction returns every schedule row of a transaction in period order
func (r *GormScheduleRepository) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]ledger.PaymentSchedule, error) {
	var rows []ledger.PaymentSchedule
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("month ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID finds a schedule row by its ID
func (r *GormScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.PaymentSchedule, error) {
	var row ledger.PaymentSchedule
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// Replace swaps the transaction's schedule wholesale: delete then insert.
// A transaction never holds two overlapping schedules.
func (r *GormScheduleRepository) Replace(ctx context.Context, transactionID uuid.UUID, rows []ledger.PaymentSchedule) error {
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Delete(&ledger.PaymentSchedule{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// Save updates a single schedule row
func (r *GormScheduleRepository) Save(ctx context.Context, row *ledger.PaymentSchedule) error {
	return r.db.WithContext(ctx).Save(row).Error
}

var _ ledger.ScheduleRepository = (*GormScheduleRepository)(nil)

// GormDefectiveLogRepository implements ledger.DefectiveLogRepository using GORM
type GormDefectiveLogRepository struct {
	db *gorm.DB
}

// NewGormDefectiveLogRepository creates a new GormDefectiveLogRepository
func NewGormDefectiveLogRepository(db *gorm.DB) *GormDefectiveLogRepository {
	return &GormDefectiveLogRepository{db: db}
}

// Create appends an audit record; the log is never updated or deleted
func (r *GormDefectiveLogRepository) Create(ctx context.Context, log *ledger.DefectiveLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// SumCashByHandlerAndDay totals the signed register deltas a user's
// adjustments produced on one calendar day
func (r *GormDefectiveLogRepository) SumCashByHandlerAndDay(ctx context.Context, handledBy uuid.UUID, day time.Time) (decimal.Decimal, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&ledger.DefectiveLog{}).
		Select("SUM(cash_amount)").
		Where("handled_by_user_id = ? AND created_at >= ? AND created_at < ?", handledBy, start, end).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

var _ ledger.DefectiveLogRepository = (*GormDefectiveLogRepository)(nil)

// GormBonusRepository implements ledger.BonusRepository using GORM
type GormBonusRepository struct {
	db *gorm.DB
}

// NewGormBonusRepository creates a new GormBonusRepository
func NewGormBonusRepository(db *gorm.DB) *GormBonusRepository {
	return &GormBonusRepository{db: db}
}

// Create inserts a bonus or penalty row
func (r *GormBonusRepository) Create(ctx context.Context, bonus *ledger.Bonus) error {
	return r.db.WithContext(ctx).Create(bonus).Error
}

// FindByTransaction returns every bonus row tied to a transaction
func (r *GormBonusRepository) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]ledger.Bonus, error) {
	var bonuses []ledger.Bonus
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Find(&bonuses).Error; err != nil {
		return nil, err
	}
	return bonuses, nil
}

// DeleteByTransaction removes every bonus row tied to a transaction
func (r *GormBonusRepository) DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Delete(&ledger.Bonus{}).Error
}

var _ ledger.BonusRepository = (*GormBonusRepository)(nil)

// GormBonusProductRepository implements ledger.BonusProductRepository using GORM
type GormBonusProductRepository struct {
	db *gorm.DB
}

// NewGormBonusProductRepository creates a new GormBonusProductRepository
func NewGormBonusProductRepository(db *gorm.DB) *GormBonusProductRepository {
	return &GormBonusProductRepository{db: db}
}

// CreateAll inserts the giveaway associations of a sale
func (r *GormBonusProductRepository) CreateAll(ctx context.Context, rows []ledger.TransactionBonusProduct) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByTransaction returns the giveaway associations of a sale
func (r *GormBonusProductRepository) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]ledger.TransactionBonusProduct, error) {
	var rows []ledger.TransactionBonusProduct
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByTransaction removes the associations after their giveaways have
// been restocked, guarding against a second restock
func (r *GormBonusProductRepository) DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Delete(&ledger.TransactionBonusProduct{}).Error
}

var _ ledger.BonusProductRepository = (*GormBonusProductRepository)(nil)

// GormRepaymentRepository implements ledger.RepaymentRepository using GORM
type GormRepaymentRepository struct {
	db *gorm.DB
}

// NewGormRepaymentRepository creates a new GormRepaymentRepository
func NewGormRepaymentRepository(db *gorm.DB) *GormRepaymentRepository {
	return &GormRepaymentRepository{db: db}
}

// Create records a collected repayment
func (r *GormRepaymentRepository) Create(ctx context.Context, repayment *ledger.Repayment) error {
	return r.db.WithContext(ctx).Create(repayment).Error
}

// SumByCashierAndDay totals repayments a cashier collected on one calendar day
func (r *GormRepaymentRepository) SumByCashierAndDay(ctx context.Context, cashierID, branchID uuid.UUID, day time.Time) (decimal.Decimal, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&ledger.Repayment{}).
		Select("SUM(amount)").
		Where("cashier_id = ? AND branch_id = ? AND created_at >= ? AND created_at < ?",
			cashierID, branchID, start, end).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

var _ ledger.RepaymentRepository = (*GormRepaymentRepository)(nil)
