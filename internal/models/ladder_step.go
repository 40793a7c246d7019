package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TargetMode selects how a ladder step's target price is derived.
type TargetMode string

const (
	TargetExactPrice       TargetMode = "EXACT_PRICE"
	TargetPercentOfAverage TargetMode = "PERCENT_OF_AVERAGE"
)

// StepState is the take-profit step state machine. Transitions only move
// forward: PENDING -> TRIGGERED -> DONE.
type StepState string

const (
	StepPending   StepState = "PENDING"
	StepTriggered StepState = "TRIGGERED"
	StepDone      StepState = "DONE"
)

// LadderStep is one rung of a profit-taking ladder. TargetPrice and
// SellQuantity are derived once, against the holding as it was when the
// ladder was built; they are deliberately not recomputed as the ledger moves
// on. SnapshotQuantity records the holding quantity the derivation used so
// staleness can be detected later.
type LadderStep struct {
	ID        uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerID      string `gorm:"index:idx_ladder_scope;not null" json:"owner_id"`
	AssetSymbol  string `gorm:"index:idx_ladder_scope;not null" json:"asset_symbol"`
	SubAccountID string `gorm:"index:idx_ladder_scope" json:"sub_account_id,omitempty"`

	// StepOrder preserves the caller-specified rule order. It drives display
	// and remaining-quantity bookkeeping and is never re-sorted by price.
	StepOrder      int             `gorm:"not null" json:"step_order"`
	TargetMode     TargetMode      `gorm:"not null" json:"target_mode"`
	TargetInput    decimal.Decimal `gorm:"type:decimal(32,16)" json:"target_input"`
	SellPercentage decimal.Decimal `gorm:"type:decimal(32,16)" json:"sell_percentage"`

	TargetPrice      decimal.Decimal `gorm:"type:decimal(32,16)" json:"target_price"`
	SellQuantity     decimal.Decimal `gorm:"type:decimal(32,16)" json:"sell_quantity"`
	SnapshotQuantity decimal.Decimal `gorm:"type:decimal(32,16)" json:"snapshot_quantity"`

	State       StepState  `gorm:"not null;default:'PENDING'" json:"state"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
	DoneAt      *time.Time `json:"done_at,omitempty"`

	Notes string `json:"notes,omitempty"`
}
