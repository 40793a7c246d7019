// Package forecast aggregates per-asset ladder outcomes into a portfolio
// projection. The aggregation is a pure sum; it is cheap enough to recompute
// on every request, so nothing here caches or invalidates.
package forecast

import (
	"github.com/shopspring/decimal"

	"coinladder/internal/ladder"
	"coinladder/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Selection pairs a holding with its chosen ladder and the current (or last
// known) quote used to value the unsold remainder.
type Selection struct {
	Holding models.Holding
	Steps   []models.LadderStep
	// QuotePrice is supplied by the external quote source; this package
	// never fetches prices itself.
	QuotePrice decimal.Decimal
}

// Aggregate combines one selection per asset into a portfolio forecast.
// Totals are plain sums, so the order of selections never changes the result.
func Aggregate(portfolioID string, selections []Selection) (models.Forecast, error) {
	if len(selections) == 0 {
		return models.Forecast{}, &models.ValidationError{Field: "selections", Reason: "no assets selected"}
	}

	f := models.Forecast{
		PortfolioID:         portfolioID,
		PerAsset:            make(map[string]models.AssetProjection, len(selections)),
		TotalInvested:       decimal.Zero,
		TotalProjectedValue: decimal.Zero,
		TotalProfit:         decimal.Zero,
		ReturnPercent:       decimal.Zero,
	}

	for _, sel := range selections {
		symbol := sel.Holding.AssetSymbol
		if symbol == "" {
			return models.Forecast{}, &models.ValidationError{Field: "holding", Reason: "selection without asset symbol"}
		}
		if _, dup := f.PerAsset[symbol]; dup {
			return models.Forecast{}, &models.ValidationError{Field: "selections", Reason: "duplicate selection for asset " + symbol}
		}
		if sel.QuotePrice.IsNegative() {
			return models.Forecast{}, &models.ValidationError{Field: "quote_price", Reason: "must not be negative"}
		}

		remaining := ladder.RemainingQuantity(sel.Holding, sel.Steps)
		proceeds := ladder.ProjectedProceeds(sel.Steps)
		value := remaining.Mul(sel.QuotePrice).Add(proceeds)

		f.PerAsset[symbol] = models.AssetProjection{
			AssetSymbol:       symbol,
			InvestedAmount:    sel.Holding.InvestedAmount,
			RemainingQuantity: remaining,
			ProjectedProceeds: proceeds,
			ProjectedValue:    value,
			Profit:            value.Sub(sel.Holding.InvestedAmount),
		}

		f.TotalInvested = f.TotalInvested.Add(sel.Holding.InvestedAmount)
		f.TotalProjectedValue = f.TotalProjectedValue.Add(value)
	}

	f.TotalProfit = f.TotalProjectedValue.Sub(f.TotalInvested)
	if f.TotalInvested.IsPositive() {
		f.ReturnPercent = f.TotalProfit.Div(f.TotalInvested).Mul(hundred)
	}
	return f, nil
}
