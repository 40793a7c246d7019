package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a ledger event.
type TransactionKind string

const (
	KindAcquire     TransactionKind = "ACQUIRE"
	KindDispose     TransactionKind = "DISPOSE"
	KindTransferIn  TransactionKind = "TRANSFER_IN"
	KindTransferOut TransactionKind = "TRANSFER_OUT"
	KindStake       TransactionKind = "STAKE"
	KindReward      TransactionKind = "REWARD"
)

// Transaction is a single immutable entry in the per-(owner, asset, sub-account)
// ledger. Rows are appended by the ingestion layer and only ever removed by an
// explicit user delete, which forces a full holding re-derivation.
type Transaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OwnerID      string          `gorm:"index:idx_ledger_scope;not null" json:"owner_id"`
	AssetSymbol  string          `gorm:"index:idx_ledger_scope;not null" json:"asset_symbol"`
	SubAccountID string          `gorm:"index:idx_ledger_scope" json:"sub_account_id,omitempty"`
	Kind         TransactionKind `gorm:"not null" json:"kind"`

	Quantity       decimal.Decimal `gorm:"type:decimal(32,16)" json:"quantity"`
	AmountInvested decimal.Decimal `gorm:"type:decimal(32,16)" json:"amount_invested"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(32,16)" json:"unit_price"`
	OccurredAt     time.Time       `gorm:"index" json:"occurred_at"`
}

// Valid reports whether the kind is one of the known ledger event kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindAcquire, KindDispose, KindTransferIn, KindTransferOut, KindStake, KindReward:
		return true
	}
	return false
}

// Accumulates reports whether the kind adds to the position.
func (k TransactionKind) Accumulates() bool {
	switch k {
	case KindAcquire, KindTransferIn, KindStake, KindReward:
		return true
	}
	return false
}

// Reduces reports whether the kind removes from the position.
func (k TransactionKind) Reduces() bool {
	return k == KindDispose || k == KindTransferOut
}

// Validate checks the fields the cost-basis engine depends on. It runs before
// any accumulation so a bad row is rejected rather than silently absorbed.
func (t *Transaction) Validate() error {
	if !t.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "unknown transaction kind " + string(t.Kind)}
	}
	if t.Quantity.IsNegative() {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if t.AmountInvested.IsNegative() {
		return &ValidationError{Field: "amount_invested", Reason: "must not be negative"}
	}
	if t.UnitPrice.IsNegative() {
		return &ValidationError{Field: "unit_price", Reason: "must not be negative"}
	}
	if t.AssetSymbol == "" {
		return &ValidationError{Field: "asset_symbol", Reason: "must not be empty"}
	}
	return nil
}
