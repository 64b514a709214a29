// Package transfer moves stock between branches. The receiving branch's
// product row is matched by barcode and created when absent, so a branch
// can receive goods it has never carried.
package transfer

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

// Request describes one stock movement between two branches
type Request struct {
	ProductID       uuid.UUID `json:"product_id" binding:"required"`
	Quantity        int64     `json:"quantity" binding:"required,gt=0"`
	FromBranchID    uuid.UUID `json:"from_branch_id" binding:"required"`
	ToBranchID      uuid.UUID `json:"to_branch_id" binding:"required"`
	CreatedByUserID uuid.UUID `json:"created_by_user_id" binding:"required"`
}

// Response reports the transfer audit record and the receiving product
type Response struct {
	TransactionID    uuid.UUID `json:"transaction_id"`
	TargetProductID  uuid.UUID `json:"target_product_id"`
	TargetCreated    bool      `json:"target_created"`
	RemainingAtFrom  int64     `json:"remaining_at_from"`
	QuantityReceived int64     `json:"quantity_received"`
}

// Service is the transfer orchestrator
type Service struct {
	scope  store.TransactionScope
	logger *zap.Logger
}

// NewService creates a transfer Service
func NewService(scope store.TransactionScope, logger *zap.Logger) *Service {
	return &Service{scope: scope, logger: logger}
}

// Transfer moves quantity of a product from one branch to another inside
// one atomic write and records a TRANSFER transaction for audit
func (s *Service) Transfer(ctx context.Context, req Request) (*Response, error) {
	if req.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if req.FromBranchID == req.ToBranchID {
		return nil, shared.NewDomainError("INVALID_BRANCH", "Source and target branch must differ")
	}

	var resp Response
	err := s.scope.Execute(ctx, func(repos store.Repositories) error {
		source, err := repos.Products().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if source.BranchID != req.FromBranchID {
			return shared.NewDomainError("INVALID_BRANCH", "Product does not belong to the source branch")
		}
		if _, err := repos.Branches().FindByID(ctx, req.ToBranchID); err != nil {
			return err
		}

		if err := repos.Products().DeductStock(ctx, source.ID, req.Quantity); err != nil {
			return err
		}

		target, created, err := s.resolveTarget(ctx, repos, source, req.ToBranchID)
		if err != nil {
			return err
		}
		if err := target.Receive(req.Quantity); err != nil {
			return err
		}
		if err := repos.Products().Save(ctx, target); err != nil {
			return err
		}

		tx, err := ledger.NewTransaction(ledger.TransactionTypeTransfer, ledger.PaymentTypeCash, req.CreatedByUserID)
		if err != nil {
			return err
		}
		tx.FromBranchID = &req.FromBranchID
		tx.ToBranchID = &req.ToBranchID
		if _, err := tx.AddItem(source.ID, req.Quantity, source.Price, decimal.Zero, decimal.Zero, 0, nil); err != nil {
			return err
		}
		tx.MarkCompleted()
		if err := repos.Transactions().Save(ctx, tx); err != nil {
			return err
		}

		resp = Response{
			TransactionID:    tx.ID,
			TargetProductID:  target.ID,
			TargetCreated:    created,
			RemainingAtFrom:  source.Quantity - req.Quantity,
			QuantityReceived: req.Quantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock transferred",
		zap.String("transaction_id", resp.TransactionID.String()),
		zap.String("product_id", req.ProductID.String()),
		zap.Int64("quantity", req.Quantity),
		zap.String("from_branch", req.FromBranchID.String()),
		zap.String("to_branch", req.ToBranchID.String()))
	return &resp, nil
}

// resolveTarget finds the receiving branch's row for the same barcode,
// creating a warehouse-status clone of the source product when absent
func (s *Service) resolveTarget(ctx context.Context, repos store.Repositories, source *catalog.Product, toBranchID uuid.UUID) (*catalog.Product, bool, error) {
	target, err := repos.Products().FindByBarcode(ctx, toBranchID, source.Barcode)
	if err == nil {
		return target, false, nil
	}
	if err != shared.ErrNotFound {
		return nil, false, err
	}

	target, err = catalog.NewProduct(toBranchID, source.Barcode, source.Name, source.Price, source.MarketPrice, 0)
	if err != nil {
		return nil, false, err
	}
	if err := target.SetBonusPercentage(source.BonusPercentage); err != nil {
		return nil, false, err
	}
	if err := repos.Products().Save(ctx, target); err != nil {
		return nil, false, err
	}
	return target, true, nil
}
