package adjustment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/store"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/shared"
)

// Service is the post-sale adjustment orchestrator: the
// DEFECTIVE / FIXED / RETURN / EXCHANGE state machine over a
// (product, transaction line) pair. Each action runs as one atomic write
// covering the audit log, stock updates, line mutation, bonus reversal
// and branch cash movement; schedule recomputation is flagged and runs
// after commit.
type Service struct {
	scope     store.TransactionScope
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates an adjustment Service
func NewService(scope store.TransactionScope, logger *zap.Logger) *Service {
	return &Service{scope: scope, logger: logger}
}

// SetEventPublisher sets the publisher used to flag schedule recomputation
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Apply executes one adjustment action
func (s *Service) Apply(ctx context.Context, req Request) (*Response, error) {
	if !req.Action.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACTION", "Unknown adjustment action")
	}
	if req.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if req.Action == ledger.ActionExchange && req.Replacement == nil {
		return nil, shared.NewDomainError("INVALID_ACTION", "Exchange requires a replacement product")
	}
	if (req.Action == ledger.ActionReturn || req.Action == ledger.ActionExchange) && req.TransactionID == nil {
		return nil, shared.NewDomainError("INVALID_ACTION", "Return and exchange must reference the originating sale")
	}

	var (
		logID           uuid.UUID
		cashAmount      decimal.Decimal
		scheduleFlagged bool
	)

	err := s.scope.Execute(ctx, func(repos store.Repositories) error {
		product, err := repos.Products().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}

		var tx *ledger.Transaction
		var line *ledger.TransactionItem
		if req.TransactionID != nil {
			tx, err = repos.Transactions().FindByID(ctx, *req.TransactionID)
			if err != nil {
				return err
			}
			line = tx.ItemForProduct(req.ProductID)
		}

		switch req.Action {
		case ledger.ActionDefective:
			cashAmount, err = s.applyDefective(product, req, tx != nil)
		case ledger.ActionFixed:
			cashAmount, err = s.applyFixed(product, req)
		case ledger.ActionReturn:
			cashAmount, err = s.applyReturn(ctx, repos, product, tx, line, req)
		case ledger.ActionExchange:
			cashAmount, err = s.applyExchange(ctx, repos, product, tx, line, req)
		}
		if err != nil {
			return err
		}

		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}
		if tx != nil {
			if err := repos.Transactions().Save(ctx, tx); err != nil {
				return err
			}
		}

		if !cashAmount.IsZero() {
			if err := repos.Branches().AdjustCashBalance(ctx, req.BranchID, cashAmount); err != nil {
				return err
			}
		}

		// The audit record is the last write in the sequence, so within
		// this request it always references already-applied stock state.
		log, err := ledger.NewDefectiveLog(req.ProductID, req.Action, req.Quantity, cashAmount, req.HandledByUserID)
		if err != nil {
			return err
		}
		log.TransactionID = req.TransactionID
		log.Comment = req.Comment
		if req.CashOverride != nil {
			log.CashOverride = &req.CashOverride.Direction
		}
		if err := repos.DefectiveLogs().Create(ctx, log); err != nil {
			return err
		}
		logID = log.ID

		// Only actions that mutate the remaining sale lines invalidate the
		// payment plan. DEFECTIVE and FIXED touch stock counters, not lines.
		scheduleFlagged = tx != nil && tx.PaymentType.IsScheduled() &&
			(req.Action == ledger.ActionReturn || req.Action == ledger.ActionExchange)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Recomputation is deliberately excluded from the atomic boundary to
	// bound lock duration; its failure must never roll back this action.
	if scheduleFlagged && s.publisher != nil {
		if err := s.publisher.Publish(ctx, ledger.NewScheduleRecomputeFlaggedEvent(*req.TransactionID)); err != nil {
			s.logger.Error("failed to flag schedule recomputation",
				zap.String("transaction_id", req.TransactionID.String()),
				zap.Error(err))
		}
	}

	return &Response{LogID: logID, CashAmount: cashAmount, ScheduleFlagged: scheduleFlagged}, nil
}

// applyDefective marks units defective. A defect on units from the linked
// sale leaves store quantity untouched; only the defective counter grows.
func (s *Service) applyDefective(product *catalog.Product, req Request, fromSale bool) (decimal.Decimal, error) {
	if err := product.MarkDefective(req.Quantity, !fromSale); err != nil {
		return decimal.Zero, err
	}
	return product.Price.Mul(decimal.NewFromInt(req.Quantity)).Neg(), nil
}

// applyFixed moves units from defective back to stock; cash re-enters
func (s *Service) applyFixed(product *catalog.Product, req Request) (decimal.Decimal, error) {
	if err := product.MarkFixed(req.Quantity); err != nil {
		return decimal.Zero, err
	}
	return product.Price.Mul(decimal.NewFromInt(req.Quantity)), nil
}

// applyReturn restocks the product, reduces the sale line, reverses the
// bonuses tied to the sale and pays the customer out of the register
func (s *Service) applyReturn(ctx context.Context, repos store.Repositories, product *catalog.Product, tx *ledger.Transaction, line *ledger.TransactionItem, req Request) (decimal.Decimal, error) {
	if line == nil {
		return decimal.Zero, shared.NewDomainError("LINE_NOT_FOUND", "The sale has no active line for this product")
	}
	if req.Quantity > line.Quantity {
		return decimal.Zero, shared.ErrQuantityExceedsSold
	}

	if err := product.AcceptReturn(req.Quantity); err != nil {
		return decimal.Zero, err
	}

	lineQtyBefore := line.Quantity
	if err := line.Reduce(req.Quantity); err != nil {
		return decimal.Zero, err
	}

	if err := s.reverseBonuses(ctx, repos, tx); err != nil {
		return decimal.Zero, err
	}
	tx.ReduceExtraProfit(req.Quantity, lineQtyBefore)

	// Unit price preferentially sourced from the original sale line; the
	// cashier override wins over both.
	if req.CashOverride != nil {
		return signedOverride(*req.CashOverride), nil
	}
	unit := line.Price
	if unit.IsZero() {
		unit = product.Price
	}
	return unit.Mul(decimal.NewFromInt(req.Quantity)).Neg(), nil
}

// applyExchange restocks the returned product, hands out the replacement
// and mutates the original sale line
func (s *Service) applyExchange(ctx context.Context, repos store.Repositories, product *catalog.Product, tx *ledger.Transaction, line *ledger.TransactionItem, req Request) (decimal.Decimal, error) {
	if line == nil {
		return decimal.Zero, shared.NewDomainError("LINE_NOT_FOUND", "The sale has no active line for this product")
	}
	if req.Quantity > line.Quantity {
		return decimal.Zero, shared.ErrQuantityExceedsSold
	}

	replacement, err := repos.Products().FindByID(ctx, req.Replacement.ProductID)
	if err != nil {
		return decimal.Zero, err
	}
	if req.Replacement.Quantity > replacement.Quantity {
		return decimal.Zero, shared.ErrInsufficientStock
	}

	if err := product.AcceptExchange(req.Quantity); err != nil {
		return decimal.Zero, err
	}
	if err := repos.Products().DeductStock(ctx, replacement.ID, req.Replacement.Quantity); err != nil {
		return decimal.Zero, err
	}

	if err := line.Reduce(req.Quantity); err != nil {
		return decimal.Zero, err
	}
	if _, err := tx.AbsorbReplacement(replacement.ID, req.Replacement.Quantity, replacement.MarketPrice); err != nil {
		return decimal.Zero, err
	}

	if req.CashOverride != nil {
		return signedOverride(*req.CashOverride), nil
	}
	return product.Price.Mul(decimal.NewFromInt(req.Quantity)), nil
}

// reverseBonuses restocks giveaway products exactly once and deletes the
// bonus rows tied to the sale. The join rows are deleted after restock, so
// a second return on the same transaction finds nothing to restock.
func (s *Service) reverseBonuses(ctx context.Context, repos store.Repositories, tx *ledger.Transaction) error {
	giveaways, err := repos.BonusProducts().FindByTransaction(ctx, tx.ID)
	if err != nil {
		return err
	}
	if len(giveaways) > 0 {
		for _, giveaway := range giveaways {
			// A single failing restock is best-effort: it must not abort
			// the encompassing return.
			if err := s.restockGiveaway(ctx, repos, giveaway); err != nil {
				s.logger.Warn("bonus product restock failed",
					zap.String("transaction_id", tx.ID.String()),
					zap.String("product_id", giveaway.ProductID.String()),
					zap.Error(err))
			}
		}
		if err := repos.BonusProducts().DeleteByTransaction(ctx, tx.ID); err != nil {
			return err
		}
	}
	return repos.Bonuses().DeleteByTransaction(ctx, tx.ID)
}

func (s *Service) restockGiveaway(ctx context.Context, repos store.Repositories, giveaway ledger.TransactionBonusProduct) error {
	product, err := repos.Products().FindByID(ctx, giveaway.ProductID)
	if err != nil {
		return err
	}
	if err := product.Restock(giveaway.Quantity); err != nil {
		return err
	}
	return repos.Products().Save(ctx, product)
}

// signedOverride converts a cashier override into a signed register delta
func signedOverride(override CashOverride) decimal.Decimal {
	amount := override.Amount.Abs()
	if override.Direction == ledger.CashDirectionOut {
		return amount.Neg()
	}
	return amount
}
