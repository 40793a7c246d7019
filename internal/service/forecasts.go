package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinladder/internal/forecast"
	"coinladder/internal/models"
	"coinladder/internal/store"
)

// ForecastService computes portfolio projections from selected ladders and
// persists them as named point-in-time snapshots. Snapshots are never
// re-derived when the underlying holdings move on.
type ForecastService struct {
	logger *zap.Logger
	repo   *store.Repository
}

func NewForecastService(logger *zap.Logger, repo *store.Repository) *ForecastService {
	return &ForecastService{logger: logger, repo: repo}
}

// SelectionRequest names one asset's chosen ladder for the projection, plus
// the quote used to value the unsold remainder. The quote is supplied by the
// caller; this service never fetches prices.
type SelectionRequest struct {
	AssetSymbol  string          `json:"asset_symbol"`
	SubAccountID string          `json:"sub_account_id,omitempty"`
	QuotePrice   decimal.Decimal `json:"quote_price"`
}

// BuildForecast aggregates the selections into a forecast and stores it
// under the given name for later comparison.
func (s *ForecastService) BuildForecast(ctx context.Context, portfolioID, name string, requests []SelectionRequest) (*models.Forecast, *models.ForecastSnapshot, error) {
	if name == "" {
		return nil, nil, &models.ValidationError{Field: "name", Reason: "snapshot name must not be empty"}
	}

	selections := make([]forecast.Selection, 0, len(requests))
	for _, req := range requests {
		holding, err := s.repo.GetHolding(ctx, portfolioID, req.AssetSymbol, req.SubAccountID)
		if err != nil {
			if store.IsNotFound(err) {
				return nil, nil, &models.ValidationError{Field: "asset_symbol", Reason: "no holding for " + req.AssetSymbol}
			}
			return nil, nil, err
		}
		steps, err := s.repo.ListLadder(ctx, portfolioID, req.AssetSymbol, req.SubAccountID)
		if err != nil {
			return nil, nil, err
		}
		if len(steps) == 0 {
			return nil, nil, &models.ValidationError{Field: "asset_symbol", Reason: "no ladder attached for " + req.AssetSymbol}
		}
		selections = append(selections, forecast.Selection{
			Holding:    *holding,
			Steps:      steps,
			QuotePrice: req.QuotePrice,
		})
	}

	f, err := forecast.Aggregate(portfolioID, selections)
	if err != nil {
		return nil, nil, err
	}

	perAsset, err := json.Marshal(f.PerAsset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode per-asset breakdown: %w", err)
	}

	snapshot := &models.ForecastSnapshot{
		ID:                  uuid.New(),
		PortfolioID:         portfolioID,
		Name:                name,
		TotalInvested:       f.TotalInvested,
		TotalProjectedValue: f.TotalProjectedValue,
		TotalProfit:         f.TotalProfit,
		ReturnPercent:       f.ReturnPercent,
		PerAssetJSON:        string(perAsset),
	}
	if err := s.repo.SaveForecastSnapshot(ctx, snapshot); err != nil {
		return nil, nil, fmt.Errorf("failed to persist forecast snapshot: %w", err)
	}

	s.logger.Info("Forecast snapshot saved",
		zap.String("portfolio", portfolioID),
		zap.String("name", name),
		zap.String("total_profit", f.TotalProfit.String()))
	return &f, snapshot, nil
}

// ListSnapshots returns the stored snapshots for a portfolio, newest first.
func (s *ForecastService) ListSnapshots(ctx context.Context, portfolioID string) ([]models.ForecastSnapshot, error) {
	return s.repo.ListForecastSnapshots(ctx, portfolioID)
}

// GetSnapshot returns one stored snapshot by id.
func (s *ForecastService) GetSnapshot(ctx context.Context, id uuid.UUID) (*models.ForecastSnapshot, error) {
	snapshot, err := s.repo.GetForecastSnapshot(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, &models.ValidationError{Field: "id", Reason: "snapshot not found"}
		}
		return nil, err
	}
	return snapshot, nil
}
