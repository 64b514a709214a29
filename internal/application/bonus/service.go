package bonus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/store"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/shared"
)

var hundred = decimal.NewFromInt(100)

// Service computes seller bonuses and penalties for a committed sale.
// A seller earns per-line bonuses when lines sold above cost carry a
// nonzero bonus percentage; a transaction sold below cost in aggregate
// produces exactly one penalty instead. The two outcomes are mutually
// exclusive.
type Service struct {
	scope  store.TransactionScope
	rates  RateResolver
	logger *zap.Logger
}

// NewService creates a bonus Service
func NewService(scope store.TransactionScope, rates RateResolver, logger *zap.Logger) *Service {
	return &Service{scope: scope, rates: rates, logger: logger}
}

// lineFigure is one sold line's contribution, in settlement currency
type lineFigure struct {
	product  *catalog.Product
	quantity int64
	selling  decimal.Decimal
	unitCost decimal.Decimal
	diff     decimal.Decimal
	eligible bool
}

// Calculate runs the bonus/penalty computation for one transaction
func (s *Service) Calculate(ctx context.Context, transactionID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos store.Repositories) error {
		tx, err := repos.Transactions().FindByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.Type != ledger.TransactionTypeSale {
			return nil
		}

		seller := tx.SellerID()
		rate := s.resolveRate(ctx, tx.FromBranchID)

		products, err := s.loadProducts(ctx, repos, tx)
		if err != nil {
			return err
		}

		giveaways, err := s.resolveGiveaways(ctx, repos, tx)
		if err != nil {
			return err
		}
		snapshot, giveawayCost, err := s.costGiveaways(ctx, repos, products, giveaways, rate)
		if err != nil {
			return err
		}

		figures, sellingTotal, costTotal, totalDiff := s.lineFigures(tx, products, rate)

		// Transaction-level gross margin, independent of per-line bonuses.
		// Persisted even when zero so an earlier value never lingers.
		margin := sellingTotal.Sub(costTotal.Add(giveawayCost)).Round(2)
		tx.ExtraProfit = margin
		if err := repos.Transactions().Save(ctx, tx); err != nil {
			return err
		}

		if margin.IsNegative() {
			return s.createPenalty(ctx, repos, tx, seller, margin, figures, giveawayCost, snapshot)
		}
		return s.createBonuses(ctx, repos, tx, seller, figures, totalDiff, giveawayCost, snapshot)
	})
}

// resolveRate returns the source-per-settlement rate, falling back to 1
// when no branch or global rate is available
func (s *Service) resolveRate(ctx context.Context, branchID *uuid.UUID) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if s.rates == nil {
		return one
	}
	rate, err := s.rates.Rate(ctx, branchID)
	if err != nil || !rate.IsPositive() {
		if err != nil {
			s.logger.Warn("conversion rate unavailable, using 1", zap.Error(err))
		}
		return one
	}
	return rate
}

// loadProducts fetches every product referenced by the transaction's lines
func (s *Service) loadProducts(ctx context.Context, repos store.Repositories, tx *ledger.Transaction) (map[uuid.UUID]*catalog.Product, error) {
	ids := make([]uuid.UUID, 0, len(tx.Items))
	for _, item := range tx.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := repos.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for idx := range products {
		byID[products[idx].ID] = &products[idx]
	}
	return byID, nil
}

// resolveGiveaways returns the giveaway associations for the sale. When
// none were recorded, any zero-price line is treated as an implicit
// giveaway and written back as an association for auditability.
func (s *Service) resolveGiveaways(ctx context.Context, repos store.Repositories, tx *ledger.Transaction) ([]ledger.TransactionBonusProduct, error) {
	giveaways, err := repos.BonusProducts().FindByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if len(giveaways) > 0 {
		return giveaways, nil
	}

	now := time.Now()
	for _, item := range tx.Items {
		if item.Quantity > 0 && item.Price.IsZero() && item.SellingPrice.IsZero() {
			giveaways = append(giveaways, ledger.TransactionBonusProduct{
				ID:            uuid.New(),
				TransactionID: tx.ID,
				ProductID:     item.ProductID,
				Quantity:      item.Quantity,
				CreatedAt:     now,
			})
		}
	}
	if len(giveaways) > 0 {
		if err := repos.BonusProducts().CreateAll(ctx, giveaways); err != nil {
			return nil, err
		}
	}
	return giveaways, nil
}

// costGiveaways totals giveaway cost in settlement currency and builds the
// denormalized snapshot stored on each bonus row
func (s *Service) costGiveaways(ctx context.Context, repos store.Repositories, products map[uuid.UUID]*catalog.Product, giveaways []ledger.TransactionBonusProduct, rate decimal.Decimal) (ledger.BonusProductSnapshot, decimal.Decimal, error) {
	total := decimal.Zero
	snapshot := make(ledger.BonusProductSnapshot, 0, len(giveaways))
	for _, giveaway := range giveaways {
		product, ok := products[giveaway.ProductID]
		if !ok {
			loaded, err := repos.Products().FindByID(ctx, giveaway.ProductID)
			if err != nil {
				return nil, decimal.Zero, err
			}
			product = loaded
			products[product.ID] = product
		}
		unitCost := product.Price.Div(rate)
		total = total.Add(unitCost.Mul(decimal.NewFromInt(giveaway.Quantity)))
		snapshot = append(snapshot, ledger.BonusProductLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    giveaway.Quantity,
			CostPrice:   unitCost.Round(2),
		})
	}
	return snapshot, total, nil
}

// lineFigures converts every active sold line to settlement currency and
// marks the ones contributing to the bonus pool. Zero-price lines are
// implicit giveaways whose cost is already carried by the giveaway pool.
func (s *Service) lineFigures(tx *ledger.Transaction, products map[uuid.UUID]*catalog.Product, rate decimal.Decimal) ([]lineFigure, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	figures := make([]lineFigure, 0, len(tx.Items))
	sellingTotal := decimal.Zero
	costTotal := decimal.Zero
	totalDiff := decimal.Zero

	for idx := range tx.Items {
		item := &tx.Items[idx]
		if item.Quantity == 0 {
			continue
		}
		if item.Price.IsZero() && item.SellingPrice.IsZero() {
			continue
		}
		product, ok := products[item.ProductID]
		if !ok {
			s.logger.Warn("sold line references unknown product",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("product_id", item.ProductID.String()))
			continue
		}

		qty := decimal.NewFromInt(item.Quantity)
		selling := toSettlement(item.SellingPrice, item.Currency, rate)
		unitCost := product.Price.Div(rate)

		figure := lineFigure{
			product:  product,
			quantity: item.Quantity,
			selling:  selling,
			unitCost: unitCost,
		}
		if selling.GreaterThan(unitCost) && product.BonusPercentage.IsPositive() {
			figure.eligible = true
			figure.diff = selling.Sub(unitCost).Mul(qty)
			totalDiff = totalDiff.Add(figure.diff)
		}
		figures = append(figures, figure)

		sellingTotal = sellingTotal.Add(selling.Mul(qty))
		costTotal = costTotal.Add(unitCost.Mul(qty))
	}
	return figures, sellingTotal, costTotal, totalDiff
}

// createBonuses allocates the netted pool back to contributing lines and
// writes one bonus row per line with a nonzero computed amount
func (s *Service) createBonuses(ctx context.Context, repos store.Repositories, tx *ledger.Transaction, seller uuid.UUID, figures []lineFigure, totalDiff, giveawayCost decimal.Decimal, snapshot ledger.BonusProductSnapshot) error {
	if !totalDiff.IsPositive() {
		return nil
	}

	// Giveaway cost is netted once, at the transaction level, then the
	// remainder is shared proportionally to each line's raw difference.
	netPool := totalDiff.Sub(giveawayCost)
	if netPool.IsNegative() {
		netPool = decimal.Zero
	}

	now := time.Now()
	for _, figure := range figures {
		if !figure.eligible {
			continue
		}
		allocated := netPool.Mul(figure.diff).Div(totalDiff)
		amount := allocated.Mul(figure.product.BonusPercentage).Div(hundred).Round(2)
		if amount.IsZero() {
			continue
		}
		bonus := &ledger.Bonus{
			ID:            uuid.New(),
			UserID:        seller,
			TransactionID: tx.ID,
			Amount:        amount,
			Reason:        ledger.BonusReasonSales,
			Description: fmt.Sprintf("Sales bonus for %s (x%d): %s%% of allocated profit %s",
				figure.product.Name, figure.quantity,
				figure.product.BonusPercentage.String(), allocated.Round(2).String()),
			BonusProducts: snapshot,
			CreatedAt:     now,
		}
		if err := repos.Bonuses().Create(ctx, bonus); err != nil {
			return err
		}
	}
	return nil
}

// createPenalty writes the single penalty row for a below-cost sale, with
// a description itemizing every offending line and the giveaway cost
func (s *Service) createPenalty(ctx context.Context, repos store.Repositories, tx *ledger.Transaction, seller uuid.UUID, margin decimal.Decimal, figures []lineFigure, giveawayCost decimal.Decimal, snapshot ledger.BonusProductSnapshot) error {
	var parts []string
	for _, figure := range figures {
		if figure.selling.LessThan(figure.unitCost) {
			parts = append(parts, fmt.Sprintf("%s sold at %s below cost %s (x%d)",
				figure.product.Name, figure.selling.Round(2).String(),
				figure.unitCost.Round(2).String(), figure.quantity))
		}
	}
	if giveawayCost.IsPositive() {
		parts = append(parts, fmt.Sprintf("giveaway cost %s", giveawayCost.Round(2).String()))
	}

	penalty := &ledger.Bonus{
		ID:            uuid.New(),
		UserID:        seller,
		TransactionID: tx.ID,
		Amount:        margin,
		Reason:        ledger.BonusReasonPenalty,
		Description:   "Sales penalty: " + strings.Join(parts, "; "),
		BonusProducts: snapshot,
		CreatedAt:     time.Now(),
	}
	return repos.Bonuses().Create(ctx, penalty)
}

// TransactionCreatedHandler subscribes the calculator to committed sales.
// The configured grace period lets late giveaway associations land first;
// it is skipped entirely when the sale carried them synchronously. Any
// failure is logged and swallowed so it can never affect the sale.
type TransactionCreatedHandler struct {
	service *Service
	delay   time.Duration
	logger  *zap.Logger
}

// NewTransactionCreatedHandler creates a TransactionCreatedHandler
func NewTransactionCreatedHandler(service *Service, delay time.Duration, logger *zap.Logger) *TransactionCreatedHandler {
	return &TransactionCreatedHandler{service: service, delay: delay, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *TransactionCreatedHandler) EventTypes() []string {
	return []string{ledger.EventTypeTransactionCreated}
}

// Handle implements shared.EventHandler
func (h *TransactionCreatedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	created, ok := event.(*ledger.TransactionCreatedEvent)
	if !ok {
		return nil
	}

	if h.delay > 0 && !created.BonusProductsAttached {
		select {
		case <-time.After(h.delay):
		case <-ctx.Done():
			h.logger.Warn("bonus calculation cancelled before grace period elapsed",
				zap.String("transaction_id", created.TransactionID.String()))
			return nil
		}
	}

	if err := h.service.Calculate(ctx, created.TransactionID); err != nil {
		h.logger.Error("bonus calculation failed",
			zap.String("transaction_id", created.TransactionID.String()),
			zap.Error(err))
	}
	return nil
}

var _ shared.EventHandler = (*TransactionCreatedHandler)(nil)
