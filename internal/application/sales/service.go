package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/store"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/partner"
	"github.com/pos/backend/internal/domain/shared"
)

// TaskCreator is the external task collaborator: delivery transactions get
// an audit task, fire-and-forget
type TaskCreator interface {
	CreateAuditTask(ctx context.Context, transactionID uuid.UUID, address string) error
}

// Service is the sale mutation orchestrator. It turns a validated sale or
// purchase request into an atomically persisted transaction with stock
// deltas and, for credit/installment sales, a payment schedule.
type Service struct {
	scope     store.TransactionScope
	engine    *ledger.ScheduleEngine
	publisher shared.EventPublisher
	tasks     TaskCreator
	logger    *zap.Logger
}

// NewService creates a sales Service
func NewService(scope store.TransactionScope, engine *ledger.ScheduleEngine, logger *zap.Logger) *Service {
	return &Service{
		scope:  scope,
		engine: engine,
		logger: logger,
	}
}

// SetEventPublisher sets the publisher used to hand the committed sale to
// the bonus calculator
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetTaskCreator sets the external task collaborator
func (s *Service) SetTaskCreator(tasks TaskCreator) {
	s.tasks = tasks
}

// Create persists a sale or purchase transaction. Validation happens
// before the atomic write and aborts with no side effects; errors raised
// inside the write roll the whole unit back.
func (s *Service) Create(ctx context.Context, req CreateTransactionRequest) (*TransactionResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	tx, err := ledger.NewTransaction(req.Type, req.PaymentType, req.CreatedByUserID)
	if err != nil {
		return nil, err
	}
	tx.FromBranchID = &req.BranchID
	tx.SoldByUserID = req.SoldByUserID
	tx.CreatedByUserID = req.CreatedByUserID
	tx.IsDelivery = req.IsDelivery
	tx.DeliveryAddress = req.DeliveryAddress
	tx.DeliveryMethod = req.DeliveryMethod

	for _, item := range req.Items {
		line, err := tx.AddItem(item.ProductID, item.Quantity, item.Price, item.SellingPrice, item.OriginalPrice, item.CreditMonth, item.CreditPercent)
		if err != nil {
			return nil, err
		}
		line.Currency = item.Currency
	}

	computedTotal := tx.RemainingPrincipal()
	if req.Payments != nil {
		// Rounded to the nearest integer currency unit before comparing,
		// to tolerate floating-point noise in the breakdown.
		if !req.Payments.Sum().Round(0).Equal(computedTotal.Round(0)) {
			return nil, shared.ErrPaymentMismatch
		}
	}

	// Computed once, at creation time. This is the single source of truth
	// persisted on the transaction row; it is never re-derived on read.
	plan := s.engine.Generate(ledger.ScheduleRequest{
		PaymentType: req.PaymentType,
		TermUnit:    req.TermUnit,
		Lines:       ledger.LinesFromItems(tx.Items),
		Upfront:     req.UpfrontAmount,
		Now:         time.Now(),
	})
	if plan != nil {
		tx.AmountPaid = req.UpfrontAmount
		tx.ApplyScheduleTotals(plan.TotalPrincipal, plan.TotalPrincipal.Add(plan.Interest), plan.RemainingWithInterest, plan.TermUnit, plan.Term)
	} else {
		tx.AmountPaid = computedTotal
		tx.ApplyScheduleTotals(computedTotal, computedTotal, decimal.Zero, req.TermUnit, 0)
		tx.MarkCompleted()
	}

	var scheduleRows []ledger.PaymentSchedule

	err = s.scope.Execute(ctx, func(repos store.Repositories) error {
		if req.Customer != nil {
			customer, err := s.upsertCustomer(ctx, repos, *req.Customer)
			if err != nil {
				return err
			}
			tx.CustomerID = &customer.ID
		}

		if err := repos.Transactions().Save(ctx, tx); err != nil {
			return err
		}

		if err := s.applyStockDeltas(ctx, repos, req.Type, tx.Items); err != nil {
			return err
		}

		if plan != nil {
			scheduleRows = stampRows(plan.Rows, tx.ID)
			if err := repos.Schedules().Replace(ctx, tx.ID, scheduleRows); err != nil {
				return err
			}
		}

		if len(req.BonusProducts) > 0 {
			rows := make([]ledger.TransactionBonusProduct, 0, len(req.BonusProducts))
			now := time.Now()
			for _, bp := range req.BonusProducts {
				rows = append(rows, ledger.TransactionBonusProduct{
					ID:            uuid.New(),
					TransactionID: tx.ID,
					ProductID:     bp.ProductID,
					Quantity:      bp.Quantity,
					CreatedAt:     now,
				})
			}
			if err := repos.BonusProducts().CreateAll(ctx, rows); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, tx, len(req.BonusProducts) > 0)

	resp := ToTransactionResponse(tx, scheduleRows)
	return &resp, nil
}

// afterCommit runs the deliberately deferred steps: bonus computation via
// the event bus and the delivery audit task. Both are best-effort; their
// failure is never surfaced to the caller.
func (s *Service) afterCommit(ctx context.Context, tx *ledger.Transaction, bonusAttached bool) {
	if tx.Type == ledger.TransactionTypeSale && s.publisher != nil {
		if err := s.publisher.Publish(ctx, ledger.NewTransactionCreatedEvent(tx.ID, bonusAttached)); err != nil {
			s.logger.Error("failed to publish transaction created event",
				zap.String("transaction_id", tx.ID.String()),
				zap.Error(err))
		}
	}

	if s.isDelivery(tx) && s.tasks != nil {
		go func() {
			taskCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.tasks.CreateAuditTask(taskCtx, tx.ID, tx.DeliveryAddress); err != nil {
				s.logger.Warn("delivery task creation failed",
					zap.String("transaction_id", tx.ID.String()),
					zap.Error(err))
			}
		}()
	}
}

// isDelivery applies the delivery heuristic: any one signal is sufficient
func (s *Service) isDelivery(tx *ledger.Transaction) bool {
	return tx.Type == ledger.TransactionTypeDelivery ||
		tx.IsDelivery ||
		tx.DeliveryMethod == "delivery" ||
		tx.DeliveryAddress != ""
}

func (s *Service) validate(req CreateTransactionRequest) error {
	if req.Type != ledger.TransactionTypeSale && req.Type != ledger.TransactionTypePurchase && req.Type != ledger.TransactionTypeDelivery {
		return shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Only SALE, PURCHASE and DELIVERY transactions can be created here")
	}
	if !req.PaymentType.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_TYPE", "Unknown payment type")
	}
	if len(req.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Transaction requires at least one item")
	}
	if req.UpfrontAmount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Upfront amount cannot be negative")
	}
	if req.UpfrontPaymentType != nil && !req.UpfrontPaymentType.IsUpfrontEligible() {
		return shared.NewDomainError("INVALID_PAYMENT_TYPE", "Upfront payment must be CASH, CARD or TERMINAL")
	}
	return nil
}

// upsertCustomer resolves or creates a customer by phone, updating only
// fields that changed
func (s *Service) upsertCustomer(ctx context.Context, repos store.Repositories, details CustomerDetails) (*partner.Customer, error) {
	customer, err := repos.Customers().FindByPhone(ctx, details.Phone)
	if err != nil {
		if err != shared.ErrNotFound {
			return nil, err
		}
		customer, err = partner.NewCustomer(details.Name, details.Phone)
		if err != nil {
			return nil, err
		}
		customer.ApplyDetails(details.Name, details.Address)
		if err := repos.Customers().Save(ctx, customer); err != nil {
			return nil, err
		}
		return customer, nil
	}
	if customer.ApplyDetails(details.Name, details.Address) {
		if err := repos.Customers().Save(ctx, customer); err != nil {
			return nil, err
		}
	}
	return customer, nil
}

// applyStockDeltas mutates product stock for each line. SALE uses the
// store's conditional decrement so concurrent sales surface as
// INSUFFICIENT_STOCK rather than racing stock negative.
func (s *Service) applyStockDeltas(ctx context.Context, repos store.Repositories, txType ledger.TransactionType, items []ledger.TransactionItem) error {
	for _, item := range items {
		switch txType {
		case ledger.TransactionTypeSale, ledger.TransactionTypeDelivery:
			if err := repos.Products().DeductStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		case ledger.TransactionTypePurchase:
			product, err := repos.Products().FindByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := product.Receive(item.Quantity); err != nil {
				return err
			}
			if err := repos.Products().Save(ctx, product); err != nil {
				return err
			}
		}
	}
	return nil
}

// RepayInstallment collects a payment against one schedule period and
// feeds the branch register and the cashier report inputs
func (s *Service) RepayInstallment(ctx context.Context, req RepayInstallmentRequest) (*ScheduleRowResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Repayment amount must be positive")
	}
	if !req.PaymentType.IsUpfrontEligible() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", "Repayment must be CASH, CARD or TERMINAL")
	}

	var row *ledger.PaymentSchedule
	err := s.scope.Execute(ctx, func(repos store.Repositories) error {
		var err error
		row, err = repos.Schedules().FindByID(ctx, req.ScheduleID)
		if err != nil {
			return err
		}

		absorbed, err := row.ApplyPayment(req.Amount)
		if err != nil {
			return err
		}
		if err := repos.Schedules().Save(ctx, row); err != nil {
			return err
		}

		repayment := &ledger.Repayment{
			ID:            uuid.New(),
			TransactionID: row.TransactionID,
			ScheduleID:    row.ID,
			BranchID:      req.BranchID,
			CashierID:     req.CashierID,
			Amount:        absorbed,
			PaymentType:   req.PaymentType,
			CreatedAt:     time.Now(),
		}
		if err := repos.Repayments().Create(ctx, repayment); err != nil {
			return err
		}

		if req.PaymentType == ledger.PaymentTypeCash {
			if err := repos.Branches().AdjustCashBalance(ctx, req.BranchID, absorbed); err != nil {
				return err
			}
		}

		return s.completeIfSettled(ctx, repos, row.TransactionID)
	})
	if err != nil {
		return nil, err
	}

	resp := ScheduleRowResponse{
		ID:               row.ID,
		Month:            row.Month,
		Payment:          row.Payment,
		RemainingBalance: row.RemainingBalance,
		IsPaid:           row.IsPaid,
		PaidAmount:       row.PaidAmount,
		DueDate:          row.DueDate,
	}
	return &resp, nil
}

// completeIfSettled marks the transaction COMPLETED once every schedule
// period is paid
func (s *Service) completeIfSettled(ctx context.Context, repos store.Repositories, transactionID uuid.UUID) error {
	rows, err := repos.Schedules().FindByTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if !row.IsPaid {
			return nil
		}
	}
	tx, err := repos.Transactions().FindByID(ctx, transactionID)
	if err != nil {
		return err
	}
	tx.MarkCompleted()
	return repos.Transactions().Save(ctx, tx)
}

// Delete removes a transaction, honoring the privileged/COMPLETED guard
func (s *Service) Delete(ctx context.Context, transactionID uuid.UUID, privileged bool) error {
	return s.scope.Execute(ctx, func(repos store.Repositories) error {
		tx, err := repos.Transactions().FindByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := tx.CanBeDeletedBy(privileged); err != nil {
			return err
		}
		return repos.Transactions().Delete(ctx, transactionID)
	})
}

// RecomputeSchedule regenerates the payment plan of a credit/installment
// transaction from its remaining items, re-apportioning the original
// upfront payment proportionally. Existing rows are fully replaced. It is
// idempotent and re-triggerable: the reconciliation pass calls it for any
// transaction whose stored schedule disagrees with its item totals.
func (s *Service) RecomputeSchedule(ctx context.Context, transactionID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos store.Repositories) error {
		tx, err := repos.Transactions().FindByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if !tx.PaymentType.IsScheduled() {
			return nil
		}

		remaining := tx.RemainingItems()
		plan := s.engine.Recompute(ledger.RecomputeRequest{
			PaymentType:     tx.PaymentType,
			TermUnit:        tx.TermUnit,
			AllLines:        ledger.OriginalLinesFromItems(tx.Items),
			RemainingLines:  ledger.LinesFromItems(remaining),
			OriginalUpfront: tx.AmountPaid,
			Now:             time.Now(),
		})
		if plan == nil {
			// Every line was returned. The stale plan must still be cleared,
			// or the drift scan re-reports this transaction on every pass.
			if tx.Total.IsZero() {
				return nil
			}
			if err := repos.Schedules().Replace(ctx, tx.ID, nil); err != nil {
				return err
			}
			tx.ApplyScheduleTotals(decimal.Zero, decimal.Zero, decimal.Zero, tx.TermUnit, 0)
			return repos.Transactions().Save(ctx, tx)
		}

		// An unchanged principal means the stored plan is already correct.
		// Replacing it anyway would erase collected-payment history.
		if tx.Total.Equal(plan.TotalPrincipal) {
			return nil
		}

		rows := stampRows(plan.Rows, tx.ID)
		if err := repos.Schedules().Replace(ctx, tx.ID, rows); err != nil {
			return err
		}

		tx.ApplyScheduleTotals(plan.TotalPrincipal, plan.RemainingWithInterest, plan.RemainingWithInterest, plan.TermUnit, plan.Term)
		return repos.Transactions().Save(ctx, tx)
	})
}

// stampRows assigns the owning transaction to engine-produced rows
func stampRows(rows []ledger.PaymentSchedule, transactionID uuid.UUID) []ledger.PaymentSchedule {
	stamped := make([]ledger.PaymentSchedule, len(rows))
	copy(stamped, rows)
	for i := range stamped {
		stamped[i].TransactionID = transactionID
	}
	return stamped
}
