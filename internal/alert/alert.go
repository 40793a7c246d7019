// Package alert maps ladder steps to notification triggers. It only decides
// when a trigger condition is met; delivery belongs to an external dispatcher
// and its success or failure never feeds back into the ladder state machine.
package alert

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"coinladder/internal/models"
)

var hundred = decimal.NewFromInt(100)

// MarginMode selects how the before-target distance is expressed.
type MarginMode string

const (
	MarginPercent  MarginMode = "PERCENT"
	MarginAbsolute MarginMode = "ABSOLUTE"
)

// Margin is the inward distance from the target price at which a
// before-target trigger fires.
type Margin struct {
	Mode  MarginMode      `json:"mode"`
	Value decimal.Decimal `json:"value"`
}

// Policy configures which triggers a step gets. A nil BeforeTarget and a
// false OnReach bind nothing at all.
type Policy struct {
	BeforeTarget *Margin `json:"before_target,omitempty"`
	OnReach      bool    `json:"on_reach"`
	ChannelHints string  `json:"channel_hints,omitempty"`
}

// Trigger is a bound, not yet fired, notification condition for one step.
type Trigger struct {
	StepID       uuid.UUID
	Kind         models.AlertKind
	Threshold    decimal.Decimal
	ChannelHints string
}

// Bind derives the triggers for a step: at most one before-target trigger at
// the target adjusted inward by the margin, and one on-reach trigger at the
// target itself. The on-reach threshold coincides with the step's own
// PENDING -> TRIGGERED transition but is reported independently.
func Bind(step models.LadderStep, policy Policy) ([]Trigger, error) {
	var triggers []Trigger

	if policy.BeforeTarget != nil {
		threshold, err := beforeTargetThreshold(step.TargetPrice, *policy.BeforeTarget)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, Trigger{
			StepID:       step.ID,
			Kind:         models.AlertBeforeTarget,
			Threshold:    threshold,
			ChannelHints: policy.ChannelHints,
		})
	}

	if policy.OnReach {
		triggers = append(triggers, Trigger{
			StepID:       step.ID,
			Kind:         models.AlertOnReach,
			Threshold:    step.TargetPrice,
			ChannelHints: policy.ChannelHints,
		})
	}

	return triggers, nil
}

func beforeTargetThreshold(target decimal.Decimal, m Margin) (decimal.Decimal, error) {
	if !m.Value.IsPositive() {
		return decimal.Zero, &models.ValidationError{Field: "before_target.value", Reason: "margin must be positive"}
	}

	var threshold decimal.Decimal
	switch m.Mode {
	case MarginPercent:
		if m.Value.GreaterThanOrEqual(hundred) {
			return decimal.Zero, &models.ValidationError{Field: "before_target.value", Reason: "percent margin must be below 100"}
		}
		threshold = target.Mul(decimal.NewFromInt(1).Sub(m.Value.Div(hundred)))
	case MarginAbsolute:
		threshold = target.Sub(m.Value)
	default:
		return decimal.Zero, &models.ValidationError{Field: "before_target.mode", Reason: "unknown margin mode " + string(m.Mode)}
	}

	if !threshold.IsPositive() {
		return decimal.Zero, &models.ValidationError{Field: "before_target.value", Reason: "margin places threshold at or below zero"}
	}
	return threshold, nil
}

// ShouldFire reports whether an observed price meets a trigger's threshold.
func ShouldFire(trigger Trigger, price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(trigger.Threshold)
}

// Event materializes a fired trigger into the record handed to the external
// delivery mechanism.
func Event(trigger Trigger, price decimal.Decimal, at time.Time) models.AlertEvent {
	return models.AlertEvent{
		StepID:       trigger.StepID,
		Kind:         trigger.Kind,
		FiredAt:      at,
		Price:        price,
		ChannelHints: trigger.ChannelHints,
	}
}
