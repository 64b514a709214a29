// Package currency supplies exchange rates to the bonus calculator.
// Rates come from configuration: a per-branch table with a global
// fallback. The resolver is pure from the caller's perspective.
package currency

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/infrastructure/config"
)

// ConfigRateResolver resolves rates from static configuration
type ConfigRateResolver struct {
	global      decimal.Decimal
	branchRates map[uuid.UUID]decimal.Decimal
}

// NewConfigRateResolver builds a resolver from currency configuration.
// Branch keys that fail to parse as UUIDs are skipped.
func NewConfigRateResolver(cfg config.CurrencyConfig) *ConfigRateResolver {
	branchRates := make(map[uuid.UUID]decimal.Decimal, len(cfg.BranchRates))
	for key, rate := range cfg.BranchRates {
		branchID, err := uuid.Parse(key)
		if err != nil {
			continue
		}
		branchRates[branchID] = decimal.NewFromFloat(rate)
	}
	return &ConfigRateResolver{
		global:      decimal.NewFromFloat(cfg.GlobalRate),
		branchRates: branchRates,
	}
}

// Rate returns the branch-scoped rate when one is configured, otherwise
// the global rate
func (r *ConfigRateResolver) Rate(_ context.Context, branchID *uuid.UUID) (decimal.Decimal, error) {
	if branchID != nil {
		if rate, ok := r.branchRates[*branchID]; ok {
			return rate, nil
		}
	}
	return r.global, nil
}
