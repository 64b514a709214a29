package bonus

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/shared/valueobject"
)

// RateResolver supplies the exchange rate between the source currency and
// the settlement currency, expressed as source units per settlement unit.
// Implementations prefer a branch-scoped rate and fall back to a global
// one; the calculator falls back to 1 when resolution fails entirely.
type RateResolver interface {
	Rate(ctx context.Context, branchID *uuid.UUID) (decimal.Decimal, error)
}

// toSettlement converts an amount into the settlement currency. Tagged
// amounts convert by their tag. Untagged amounts fall back to magnitude
// detection: rows predating the currency tag stored settlement amounts as
// small numbers, so anything at or above one settlement unit's worth of
// source currency is taken to still be in the source currency.
func toSettlement(amount decimal.Decimal, currency valueobject.Currency, rate decimal.Decimal) decimal.Decimal {
	if rate.LessThanOrEqual(decimal.Zero) || rate.Equal(decimal.NewFromInt(1)) {
		return amount
	}
	switch currency {
	case valueobject.USD:
		return amount
	case valueobject.UZS:
		return amount.Div(rate)
	default:
		if amount.GreaterThanOrEqual(rate) {
			return amount.Div(rate)
		}
		return amount
	}
}
