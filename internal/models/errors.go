package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrConcurrencyConflict is returned by the store when a versioned holding
// replace observes that another writer got there first. Callers re-read the
// ledger slice, recompute, and retry.
var ErrConcurrencyConflict = errors.New("holding was modified by a concurrent writer")

// ValidationError reports a malformed input field. It is raised before any
// state is touched, so a rejected input never leaves a partial result behind.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvariantViolation reports a computed result that the clamping rules should
// have made impossible. It indicates corrupted ledger data and is fatal to
// the computation rather than being clamped over a second time.
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return "holding invariant violated: " + e.Detail
}

// StaleLadderWarning flags a ladder whose derived quantities were snapshotted
// against a holding that has since changed. The derived numbers are still
// returned as-is; the caller should treat them as advisory and rebuild.
type StaleLadderWarning struct {
	AssetSymbol      string
	SnapshotQuantity decimal.Decimal
	CurrentQuantity  decimal.Decimal
}

func (e *StaleLadderWarning) Error() string {
	return fmt.Sprintf("ladder for %s is stale: built against quantity %s, holding now %s",
		e.AssetSymbol, e.SnapshotQuantity, e.CurrentQuantity)
}
