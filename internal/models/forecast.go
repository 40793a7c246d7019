package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetProjection is the per-asset outcome of one selected ladder, assuming
// every step executes at its target price.
type AssetProjection struct {
	AssetSymbol       string          `json:"asset_symbol"`
	InvestedAmount    decimal.Decimal `json:"invested_amount"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	ProjectedProceeds decimal.Decimal `json:"projected_proceeds"`
	ProjectedValue    decimal.Decimal `json:"projected_value"`
	Profit            decimal.Decimal `json:"profit"`
}

// Forecast is a portfolio-wide projection combining one ladder outcome per
// asset. It is computed on demand and safe to discard; persisted copies are
// point-in-time snapshots, never re-derived when holdings change.
type Forecast struct {
	PortfolioID         string                     `json:"portfolio_id"`
	PerAsset            map[string]AssetProjection `json:"per_asset"`
	TotalInvested       decimal.Decimal            `json:"total_invested"`
	TotalProjectedValue decimal.Decimal            `json:"total_projected_value"`
	TotalProfit         decimal.Decimal            `json:"total_profit"`
	ReturnPercent       decimal.Decimal            `json:"return_percent"`
}

// ForecastSnapshot is a named, persisted Forecast kept for later comparison.
// The per-asset breakdown is stored as JSON text alongside the totals.
type ForecastSnapshot struct {
	ID        uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PortfolioID string `gorm:"index;not null" json:"portfolio_id"`
	Name        string `gorm:"not null" json:"name"`

	TotalInvested       decimal.Decimal `gorm:"type:decimal(32,16)" json:"total_invested"`
	TotalProjectedValue decimal.Decimal `gorm:"type:decimal(32,16)" json:"total_projected_value"`
	TotalProfit         decimal.Decimal `gorm:"type:decimal(32,16)" json:"total_profit"`
	ReturnPercent       decimal.Decimal `gorm:"type:decimal(32,16)" json:"return_percent"`

	PerAssetJSON string `gorm:"type:text" json:"per_asset_json"`
}
