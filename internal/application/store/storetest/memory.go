// Package storetest provides an in-memory Repositories implementation for
// exercising the orchestrators without a database. Writes are not
// transactional: a failed Execute leaves earlier mutations in place, which
// is acceptable for the single-threaded test flows this package serves.
package storetest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/application/store"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/domain/shared"
)

// Memory holds every aggregate in plain maps and slices
type Memory struct {
	ProductsByID  map[uuid.UUID]*catalog.Product
	CustomersByID map[uuid.UUID]*partner.Customer
	BranchesByID  map[uuid.UUID]*partner.Branch
	Txs           map[uuid.UUID]*ledger.Transaction
	ScheduleRows  map[uuid.UUID][]ledger.PaymentSchedule
	Logs          []ledger.DefectiveLog
	BonusRows     []ledger.Bonus
	GiveawayRows  []ledger.TransactionBonusProduct
	RepaymentRows []ledger.Repayment
	Reports       map[string]*report.CashierReport
}

// NewMemory creates an empty Memory
func NewMemory() *Memory {
	return &Memory{
		ProductsByID:  make(map[uuid.UUID]*catalog.Product),
		CustomersByID: make(map[uuid.UUID]*partner.Customer),
		BranchesByID:  make(map[uuid.UUID]*partner.Branch),
		Txs:           make(map[uuid.UUID]*ledger.Transaction),
		ScheduleRows:  make(map[uuid.UUID][]ledger.PaymentSchedule),
		Reports:       make(map[string]*report.CashierReport),
	}
}

// Scope returns a pass-through TransactionScope over this Memory
func (m *Memory) Scope() store.TransactionScope {
	return &store.NoOpScope{Repos: m}
}

// SeedProduct stores a product and returns it
func (m *Memory) SeedProduct(p *catalog.Product) *catalog.Product {
	m.ProductsByID[p.ID] = p
	return p
}

// SeedBranch stores a branch and returns it
func (m *Memory) SeedBranch(b *partner.Branch) *partner.Branch {
	m.BranchesByID[b.ID] = b
	return b
}

// SeedTransaction stores a transaction and returns it
func (m *Memory) SeedTransaction(tx *ledger.Transaction) *ledger.Transaction {
	m.Txs[tx.ID] = tx
	return tx
}

func (m *Memory) Products() catalog.ProductRepository       { return (*productRepo)(m) }
func (m *Memory) Customers() partner.CustomerRepository     { return (*customerRepo)(m) }
func (m *Memory) Branches() partner.BranchRepository        { return (*branchRepo)(m) }
func (m *Memory) Transactions() ledger.TransactionRepository { return (*transactionRepo)(m) }
func (m *Memory) Schedules() ledger.ScheduleRepository      { return (*scheduleRepo)(m) }
func (m *Memory) DefectiveLogs() ledger.DefectiveLogRepository { return (*defectiveLogRepo)(m) }
func (m *Memory) Bonuses() ledger.BonusRepository           { return (*bonusRepo)(m) }
func (m *Memory) BonusProducts() ledger.BonusProductRepository { return (*bonusProductRepo)(m) }
func (m *Memory) Repayments() ledger.RepaymentRepository    { return (*repaymentRepo)(m) }
func (m *Memory) CashierReports() report.CashierReportRepository { return (*cashierReportRepo)(m) }

var _ store.Repositories = (*Memory)(nil)

type productRepo Memory

func (r *productRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := r.ProductsByID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *productRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.ProductsByID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *productRepo) FindByBarcode(_ context.Context, branchID uuid.UUID, barcode string) (*catalog.Product, error) {
	for _, p := range r.ProductsByID {
		if p.BranchID == branchID && strings.EqualFold(p.Barcode, barcode) {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *productRepo) Save(_ context.Context, product *catalog.Product) error {
	r.ProductsByID[product.ID] = product
	return nil
}

func (r *productRepo) DeductStock(_ context.Context, id uuid.UUID, qty int64) error {
	p, ok := r.ProductsByID[id]
	if !ok {
		return shared.ErrNotFound
	}
	if p.Quantity < qty {
		return shared.ErrInsufficientStock
	}
	p.Quantity -= qty
	if p.Quantity == 0 {
		p.Status = catalog.ProductStatusSold
	} else {
		p.Status = catalog.ProductStatusInStore
	}
	return nil
}

type customerRepo Memory

func (r *customerRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	c, ok := r.CustomersByID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *customerRepo) FindByPhone(_ context.Context, phone string) (*partner.Customer, error) {
	for _, c := range r.CustomersByID {
		if c.Phone == phone {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *customerRepo) Save(_ context.Context, customer *partner.Customer) error {
	r.CustomersByID[customer.ID] = customer
	return nil
}

type branchRepo Memory

func (r *branchRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Branch, error) {
	b, ok := r.BranchesByID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (r *branchRepo) Save(_ context.Context, branch *partner.Branch) error {
	r.BranchesByID[branch.ID] = branch
	return nil
}

func (r *branchRepo) AdjustCashBalance(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	b, ok := r.BranchesByID[id]
	if !ok {
		return shared.ErrNotFound
	}
	b.CashBalance = b.CashBalance.Add(delta)
	return nil
}

type transactionRepo Memory

func (r *transactionRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	tx, ok := r.Txs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return tx, nil
}

func (r *transactionRepo) Save(_ context.Context, tx *ledger.Transaction) error {
	r.Txs[tx.ID] = tx
	return nil
}

func (r *transactionRepo) SaveItem(_ context.Context, item *ledger.TransactionItem) error {
	tx, ok := r.Txs[item.TransactionID]
	if !ok {
		return shared.ErrNotFound
	}
	for i := range tx.Items {
		if tx.Items[i].ID == item.ID {
			tx.Items[i] = *item
			return nil
		}
	}
	tx.Items = append(tx.Items, *item)
	return nil
}

func (r *transactionRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.Txs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.Txs, id)
	delete(r.ScheduleRows, id)
	return nil
}

func (r *transactionRepo) FindByCashierAndDay(_ context.Context, cashierID, branchID uuid.UUID, day time.Time) ([]ledger.Transaction, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var out []ledger.Transaction
	for _, tx := range r.Txs {
		if tx.CreatedByUserID != cashierID {
			continue
		}
		if tx.FromBranchID == nil || *tx.FromBranchID != branchID {
			continue
		}
		if tx.CreatedAt.Before(start) || !tx.CreatedAt.Before(end) {
			continue
		}
		out = append(out, *tx)
	}
	return out, nil
}

func (r *transactionRepo) FindScheduleDrift(_ context.Context, limit int) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, tx := range r.Txs {
		if !tx.PaymentType.IsScheduled() || tx.Status != ledger.TransactionStatusActive {
			continue
		}
		if !tx.Total.Equal(tx.RemainingPrincipal()) {
			out = append(out, id)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type scheduleRepo Memory

func (r *scheduleRepo) FindByTransaction(_ context.Context, transactionID uuid.UUID) ([]ledger.PaymentSchedule, error) {
	rows := make([]ledger.PaymentSchedule, len(r.ScheduleRows[transactionID]))
	copy(rows, r.ScheduleRows[transactionID])
	return rows, nil
}

func (r *scheduleRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.PaymentSchedule, error) {
	for txID := range r.ScheduleRows {
		for i := range r.ScheduleRows[txID] {
			if r.ScheduleRows[txID][i].ID == id {
				return &r.ScheduleRows[txID][i], nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (r *scheduleRepo) Replace(_ context.Context, transactionID uuid.UUID, rows []ledger.PaymentSchedule) error {
	replaced := make([]ledger.PaymentSchedule, len(rows))
	copy(replaced, rows)
	r.ScheduleRows[transactionID] = replaced
	return nil
}

func (r *scheduleRepo) Save(_ context.Context, row *ledger.PaymentSchedule) error {
	rows := r.ScheduleRows[row.TransactionID]
	for i := range rows {
		if rows[i].ID == row.ID {
			rows[i] = *row
			return nil
		}
	}
	r.ScheduleRows[row.TransactionID] = append(rows, *row)
	return nil
}

type defectiveLogRepo Memory

func (r *defectiveLogRepo) Create(_ context.Context, log *ledger.DefectiveLog) error {
	r.Logs = append(r.Logs, *log)
	return nil
}

func (r *defectiveLogRepo) SumCashByHandlerAndDay(_ context.Context, handledBy uuid.UUID, day time.Time) (decimal.Decimal, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	sum := decimal.Zero
	for _, log := range r.Logs {
		if log.HandledByUserID != handledBy {
			continue
		}
		if log.CreatedAt.Before(start) || !log.CreatedAt.Before(end) {
			continue
		}
		sum = sum.Add(log.CashAmount)
	}
	return sum, nil
}

type bonusRepo Memory

func (r *bonusRepo) Create(_ context.Context, bonus *ledger.Bonus) error {
	r.BonusRows = append(r.BonusRows, *bonus)
	return nil
}

func (r *bonusRepo) FindByTransaction(_ context.Context, transactionID uuid.UUID) ([]ledger.Bonus, error) {
	var out []ledger.Bonus
	for _, b := range r.BonusRows {
		if b.TransactionID == transactionID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *bonusRepo) DeleteByTransaction(_ context.Context, transactionID uuid.UUID) error {
	kept := r.BonusRows[:0]
	for _, b := range r.BonusRows {
		if b.TransactionID != transactionID {
			kept = append(kept, b)
		}
	}
	r.BonusRows = kept
	return nil
}

type bonusProductRepo Memory

func (r *bonusProductRepo) CreateAll(_ context.Context, rows []ledger.TransactionBonusProduct) error {
	r.GiveawayRows = append(r.GiveawayRows, rows...)
	return nil
}

func (r *bonusProductRepo) FindByTransaction(_ context.Context, transactionID uuid.UUID) ([]ledger.TransactionBonusProduct, error) {
	var out []ledger.TransactionBonusProduct
	for _, row := range r.GiveawayRows {
		if row.TransactionID == transactionID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *bonusProductRepo) DeleteByTransaction(_ context.Context, transactionID uuid.UUID) error {
	kept := r.GiveawayRows[:0]
	for _, row := range r.GiveawayRows {
		if row.TransactionID != transactionID {
			kept = append(kept, row)
		}
	}
	r.GiveawayRows = kept
	return nil
}

type repaymentRepo Memory

func (r *repaymentRepo) Create(_ context.Context, repayment *ledger.Repayment) error {
	r.RepaymentRows = append(r.RepaymentRows, *repayment)
	return nil
}

func (r *repaymentRepo) SumByCashierAndDay(_ context.Context, cashierID, branchID uuid.UUID, day time.Time) (decimal.Decimal, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	sum := decimal.Zero
	for _, row := range r.RepaymentRows {
		if row.CashierID != cashierID || row.BranchID != branchID {
			continue
		}
		if row.CreatedAt.Before(start) || !row.CreatedAt.Before(end) {
			continue
		}
		sum = sum.Add(row.Amount)
	}
	return sum, nil
}

type cashierReportRepo Memory

func reportKey(cashierID, branchID uuid.UUID, day time.Time) string {
	return cashierID.String() + "/" + branchID.String() + "/" + day.Format("2006-01-02")
}

func (r *cashierReportRepo) Upsert(_ context.Context, rep *report.CashierReport) error {
	r.Reports[reportKey(rep.CashierID, rep.BranchID, rep.ReportDate)] = rep
	return nil
}

func (r *cashierReportRepo) FindByDay(_ context.Context, cashierID, branchID uuid.UUID, day time.Time) (*report.CashierReport, error) {
	rep, ok := r.Reports[reportKey(cashierID, branchID, day)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rep, nil
}
