// Package ladder models per-asset profit-taking exit ladders: it turns a set
// of exit rules into concrete target prices and sell quantities, and exposes
// the pure step state machine. Nothing here polls prices or places orders;
// price observations and fill confirmations arrive from the caller.
package ladder

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"coinladder/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ExitRule is one caller-supplied profit-taking rule. Rule order is
// significant and preserved on the built steps.
type ExitRule struct {
	TargetMode     models.TargetMode `json:"target_mode"`
	TargetInput    decimal.Decimal   `json:"target_input"`
	SellPercentage decimal.Decimal   `json:"sell_percentage"`
	Notes          string            `json:"notes,omitempty"`
}

// Validate checks a single rule. SellPercentage must lie in (0, 100]; an
// exact-price target must be positive. A percent-of-average input is left
// unconstrained so targets below the average remain expressible.
func (r *ExitRule) Validate() error {
	switch r.TargetMode {
	case models.TargetExactPrice:
		if !r.TargetInput.IsPositive() {
			return &models.ValidationError{Field: "target_input", Reason: "exact price must be positive"}
		}
	case models.TargetPercentOfAverage:
		// any percent accepted
	default:
		return &models.ValidationError{Field: "target_mode", Reason: "unknown target mode " + string(r.TargetMode)}
	}
	if !r.SellPercentage.IsPositive() || r.SellPercentage.GreaterThan(hundred) {
		return &models.ValidationError{Field: "sell_percentage", Reason: "must be in (0, 100]"}
	}
	return nil
}

// Build derives concrete ladder steps from a holding snapshot and an ordered
// rule list. Sell quantities are computed once against the holding passed in
// and deliberately never track later ledger changes; a ladder built against a
// holding that has since moved is stale and must be rebuilt by the caller.
func Build(holding models.Holding, rules []ExitRule) ([]models.LadderStep, error) {
	if len(rules) == 0 {
		return nil, &models.ValidationError{Field: "rules", Reason: "rule list is empty"}
	}
	if !holding.Quantity.IsPositive() {
		return nil, &models.ValidationError{Field: "holding", Reason: "cannot attach a ladder to an empty position"}
	}

	steps := make([]models.LadderStep, 0, len(rules))
	for i, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}

		var target decimal.Decimal
		switch rule.TargetMode {
		case models.TargetExactPrice:
			target = rule.TargetInput
		case models.TargetPercentOfAverage:
			target = holding.AveragePrice.Mul(decimal.NewFromInt(1).Add(rule.TargetInput.Div(hundred)))
		}

		steps = append(steps, models.LadderStep{
			ID:               uuid.New(),
			OwnerID:          holding.OwnerID,
			AssetSymbol:      holding.AssetSymbol,
			SubAccountID:     holding.SubAccountID,
			StepOrder:        i,
			TargetMode:       rule.TargetMode,
			TargetInput:      rule.TargetInput,
			SellPercentage:   rule.SellPercentage,
			TargetPrice:      target,
			SellQuantity:     holding.Quantity.Mul(rule.SellPercentage).Div(hundred),
			SnapshotQuantity: holding.Quantity,
			State:            models.StepPending,
			Notes:            rule.Notes,
		})
	}
	return steps, nil
}

// ObservePrice applies a market price observation to a step. A pending step
// triggers once the price reaches its target; a step that has triggered never
// un-triggers, even if the price later falls back below. The returned bool
// reports whether the step changed.
func ObservePrice(step models.LadderStep, price decimal.Decimal, at time.Time) (models.LadderStep, bool) {
	if step.State != models.StepPending {
		return step, false
	}
	if price.LessThan(step.TargetPrice) {
		return step, false
	}
	step.State = models.StepTriggered
	step.TriggeredAt = &at
	return step, true
}

// ConfirmFill marks a triggered step as executed. The transition is
// irreversible and only valid from TRIGGERED.
func ConfirmFill(step models.LadderStep, at time.Time) (models.LadderStep, error) {
	if step.State != models.StepTriggered {
		return step, &models.ValidationError{
			Field:  "state",
			Reason: "cannot confirm a step in state " + string(step.State),
		}
	}
	step.State = models.StepDone
	step.DoneAt = &at
	return step, nil
}

// ProjectedProceeds sums target price times sell quantity across all steps,
// i.e. the proceeds if every rung executes at its target.
func ProjectedProceeds(steps []models.LadderStep) decimal.Decimal {
	total := decimal.Zero
	for i := range steps {
		total = total.Add(steps[i].SellQuantity.Mul(steps[i].TargetPrice))
	}
	return total
}

// RemainingQuantity is what is left of the holding after every step sells.
// Rule sets summing past 100% are accepted; the remainder simply floors at
// zero and the excess is ignored.
func RemainingQuantity(holding models.Holding, steps []models.LadderStep) decimal.Decimal {
	remaining := holding.Quantity
	for i := range steps {
		remaining = remaining.Sub(steps[i].SellQuantity)
	}
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Staleness compares the ladder's build-time snapshot against the live
// holding. A non-nil result means the derived quantities no longer reflect
// the position; they are still served, but as advisory numbers only.
func Staleness(holding models.Holding, steps []models.LadderStep) *models.StaleLadderWarning {
	if len(steps) == 0 {
		return nil
	}
	if steps[0].SnapshotQuantity.Equal(holding.Quantity) {
		return nil
	}
	return &models.StaleLadderWarning{
		AssetSymbol:      holding.AssetSymbol,
		SnapshotQuantity: steps[0].SnapshotQuantity,
		CurrentQuantity:  holding.Quantity,
	}
}
