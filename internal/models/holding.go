package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the derived position for one (owner, asset, sub-account) ledger
// slice. It is a projection, not independent truth: replaying the slice in
// timestamp order must reproduce it exactly, so it is replaced wholesale on
// every recomputation rather than mutated incrementally.
type Holding struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerID      string `gorm:"uniqueIndex:idx_holding_key;not null" json:"owner_id"`
	AssetSymbol  string `gorm:"uniqueIndex:idx_holding_key;not null" json:"asset_symbol"`
	SubAccountID string `gorm:"uniqueIndex:idx_holding_key" json:"sub_account_id,omitempty"`

	Quantity       decimal.Decimal `gorm:"type:decimal(32,16)" json:"quantity"`
	InvestedAmount decimal.Decimal `gorm:"type:decimal(32,16)" json:"invested_amount"`
	AveragePrice   decimal.Decimal `gorm:"type:decimal(32,16)" json:"average_price"`

	// Version guards the replace-on-recompute upsert. A writer that read
	// version N may only replace version N; anything else lost the race and
	// must re-read the ledger slice and recompute.
	Version int64 `gorm:"not null;default:0" json:"version"`
}
