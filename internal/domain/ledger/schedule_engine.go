package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleLine is one item's contribution to a payment plan
type ScheduleLine struct {
	// Principal is price x quantity for the line
	Principal decimal.Decimal
	// CreditPercent is the per-line interest fraction (0.10 = 10%).
	// Nil means the line carries no credit terms: it still adds to the
	// principal but is excluded from the blended rate.
	CreditPercent *decimal.Decimal
	// CreditTerm is the line's term length, in months or days depending
	// on the request's TermUnit
	CreditTerm int
}

// ScheduleRequest asks the engine to produce a plan for a transaction
type ScheduleRequest struct {
	PaymentType PaymentType
	TermUnit    TermUnit
	Lines       []ScheduleLine
	// Upfront is the amount paid at sale time before scheduling
	Upfront decimal.Decimal
	Now     time.Time
}

// SchedulePlan is the engine's deterministic output. Rows carry no
// TransactionID; the orchestrator stamps it before persisting.
type SchedulePlan struct {
	TotalPrincipal        decimal.Decimal
	EffectivePercent      decimal.Decimal
	RemainingPrincipal    decimal.Decimal
	Interest              decimal.Decimal
	RemainingWithInterest decimal.Decimal
	Term                  int
	TermUnit              TermUnit
	Rows                  []PaymentSchedule
}

// RecomputeRequest re-runs the engine after items changed. AllLines is the
// full original item list including lines reduced to zero, used only to
// recover the pre-return totals; RemainingLines drives the new plan.
type RecomputeRequest struct {
	PaymentType PaymentType
	TermUnit    TermUnit
	// AllLines carries each line's ORIGINAL principal (price x quantity
	// as sold)
	AllLines []ScheduleLine
	// RemainingLines carries current principals for lines with
	// quantity > 0
	RemainingLines []ScheduleLine
	// OriginalUpfront is the upfront payment recorded at sale time
	OriginalUpfront decimal.Decimal
	Now             time.Time
}

// ScheduleEngine computes credit/installment payment plans. It is a pure
// domain service: same input, same plan.
type ScheduleEngine struct{}

// NewScheduleEngine creates a ScheduleEngine
func NewScheduleEngine() *ScheduleEngine {
	return &ScheduleEngine{}
}

var hundred = decimal.NewFromInt(100)

// Generate produces the payment plan for a transaction at creation time.
// It returns nil when no schedule applies: a payment type without a
// schedule, zero principal, or a zero term.
func (e *ScheduleEngine) Generate(req ScheduleRequest) *SchedulePlan {
	if !req.PaymentType.IsScheduled() {
		return nil
	}

	totalPrincipal := decimal.Zero
	weighted := decimal.Zero
	weightBase := decimal.Zero
	term := 0
	for _, line := range req.Lines {
		totalPrincipal = totalPrincipal.Add(line.Principal)
		if line.CreditPercent != nil {
			weighted = weighted.Add(line.Principal.Mul(*line.CreditPercent))
			weightBase = weightBase.Add(line.Principal)
		}
		if line.CreditTerm > term {
			term = line.CreditTerm
		}
	}

	if totalPrincipal.IsZero() || term == 0 {
		return nil
	}

	effectivePercent := decimal.Zero
	if weightBase.IsPositive() {
		effectivePercent = weighted.Div(weightBase)
	}

	remainingPrincipal := totalPrincipal.Sub(req.Upfront)
	if remainingPrincipal.IsNegative() {
		remainingPrincipal = decimal.Zero
	}
	interest := remainingPrincipal.Mul(effectivePercent).Round(2)
	remainingWithInterest := remainingPrincipal.Add(interest)

	plan := &SchedulePlan{
		TotalPrincipal:        totalPrincipal,
		EffectivePercent:      effectivePercent,
		RemainingPrincipal:    remainingPrincipal,
		Interest:              interest,
		RemainingWithInterest: remainingWithInterest,
		Term:                  term,
		TermUnit:              req.TermUnit,
	}

	if req.TermUnit == TermUnitDays {
		plan.Rows = e.dailyRows(remainingWithInterest, term, req.Now)
	} else {
		plan.Rows = e.monthlyRows(remainingWithInterest, term)
	}
	return plan
}

// monthlyRows emits one row per month. Every row pays the rounded monthly
// amount except the last, which absorbs the rounding residue so that the
// payments sum to remainingWithInterest exactly and the final balance
// lands on zero.
func (e *ScheduleEngine) monthlyRows(remainingWithInterest decimal.Decimal, term int) []PaymentSchedule {
	monthly := remainingWithInterest.Div(decimal.NewFromInt(int64(term))).Round(2)

	now := time.Now()
	rows := make([]PaymentSchedule, 0, term)
	balance := remainingWithInterest
	for month := 1; month <= term; month++ {
		payment := monthly
		if month == term {
			payment = balance
		}
		balance = balance.Sub(payment)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		rows = append(rows, PaymentSchedule{
			ID:               uuid.New(),
			Type:             ScheduleTypeMonthly,
			Month:            month,
			Payment:          payment,
			RemainingBalance: balance,
			PaidAmount:       decimal.Zero,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return rows
}

// dailyRows emits the single synthetic row a day-based term produces: the
// whole remaining amount due at now + term days.
func (e *ScheduleEngine) dailyRows(remainingWithInterest decimal.Decimal, termDays int, now time.Time) []PaymentSchedule {
	if now.IsZero() {
		now = time.Now()
	}
	due := now.AddDate(0, 0, termDays)
	return []PaymentSchedule{{
		ID:               uuid.New(),
		Type:             ScheduleTypeDaily,
		Month:            1,
		Payment:          remainingWithInterest,
		RemainingBalance: remainingWithInterest,
		PaidAmount:       decimal.Zero,
		DueDate:          &due,
		CreatedAt:        now,
		UpdatedAt:        now,
	}}
}

// Recompute regenerates the plan after a partial return, exchange or
// defect changed the item set. The original upfront payment is
// re-apportioned proportionally: a customer who paid X% upfront keeps
// paying the same percentage upfront on the reduced principal. Returns nil
// when there are no remaining items (full return) or when no schedule
// applies to the remaining set.
func (e *ScheduleEngine) Recompute(req RecomputeRequest) *SchedulePlan {
	if len(req.RemainingLines) == 0 {
		return nil
	}

	originalPrincipal := decimal.Zero
	for _, line := range req.AllLines {
		originalPrincipal = originalPrincipal.Add(line.Principal)
	}
	remainingPrincipal := decimal.Zero
	for _, line := range req.RemainingLines {
		remainingPrincipal = remainingPrincipal.Add(line.Principal)
	}

	upfront := req.OriginalUpfront
	if originalPrincipal.IsPositive() {
		upfront = req.OriginalUpfront.Mul(remainingPrincipal).Div(originalPrincipal).Round(2)
	}

	return e.Generate(ScheduleRequest{
		PaymentType: req.PaymentType,
		TermUnit:    req.TermUnit,
		Lines:       req.RemainingLines,
		Upfront:     upfront,
		Now:         req.Now,
	})
}

// LinesFromItems converts transaction items into schedule lines using
// their current quantities
func LinesFromItems(items []TransactionItem) []ScheduleLine {
	lines := make([]ScheduleLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, ScheduleLine{
			Principal:     item.Principal(),
			CreditPercent: item.CreditPercent,
			CreditTerm:    item.CreditMonth,
		})
	}
	return lines
}

// OriginalLinesFromItems converts transaction items into schedule lines
// using their original (as sold) quantities
func OriginalLinesFromItems(items []TransactionItem) []ScheduleLine {
	lines := make([]ScheduleLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, ScheduleLine{
			Principal:     item.OriginalPrincipal(),
			CreditPercent: item.CreditPercent,
			CreditTerm:    item.CreditMonth,
		})
	}
	return lines
}
