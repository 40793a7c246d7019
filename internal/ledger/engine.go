// Package ledger derives current holdings from a transaction ledger slice.
//
// The engine is a pure function over an in-memory slice: it never reads the
// database, never mutates its input, and produces identical output for
// identical input. Replaying the full slice is the recovery mechanism after
// any ledger edit; there is no incremental patching.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"coinladder/internal/models"
)

// ComputeHolding replays a per-(owner, asset, sub-account) ledger slice into
// the current position. Transactions are applied in ascending occurredAt
// order with ties broken by insertion order; the ordering matters because the
// average price is path-dependent under the proportional reduction rule.
func ComputeHolding(txs []models.Transaction) (models.Holding, error) {
	if len(txs) == 0 {
		return models.Holding{}, &models.ValidationError{Field: "transactions", Reason: "ledger slice is empty"}
	}

	scope := txs[0]
	for i := range txs {
		if err := txs[i].Validate(); err != nil {
			return models.Holding{}, err
		}
		if txs[i].AssetSymbol != scope.AssetSymbol ||
			txs[i].OwnerID != scope.OwnerID ||
			txs[i].SubAccountID != scope.SubAccountID {
			return models.Holding{}, &models.ValidationError{
				Field:  "transactions",
				Reason: "ledger slice spans more than one (owner, asset, sub-account) scope",
			}
		}
	}

	ordered := make([]models.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
	})

	quantity := decimal.Zero
	invested := decimal.Zero

	for i := range ordered {
		tx := &ordered[i]
		switch {
		case tx.Kind.Accumulates():
			quantity = quantity.Add(tx.Quantity)
			invested = invested.Add(tx.AmountInvested)
		case tx.Kind.Reduces():
			// Cost reduction uses the explicit invested amount when the row
			// carries one, otherwise quantity*unitPrice. Which basis applies
			// changes the resulting average price, so the fallback order is
			// part of the contract.
			cost := tx.AmountInvested
			if cost.IsZero() {
				cost = tx.Quantity.Mul(tx.UnitPrice)
			}
			quantity = quantity.Sub(tx.Quantity)
			if quantity.IsNegative() {
				quantity = decimal.Zero
			}
			invested = invested.Sub(cost)
			if invested.IsNegative() {
				invested = decimal.Zero
			}
		}
	}

	if quantity.IsNegative() || invested.IsNegative() {
		return models.Holding{}, &models.InvariantViolation{
			Detail: "negative quantity or invested amount after replay",
		}
	}

	avg := decimal.Zero
	if quantity.IsPositive() {
		avg = invested.Div(quantity)
	}

	return models.Holding{
		OwnerID:        scope.OwnerID,
		AssetSymbol:    scope.AssetSymbol,
		SubAccountID:   scope.SubAccountID,
		Quantity:       quantity,
		InvestedAmount: invested,
		AveragePrice:   avg,
	}, nil
}
