// Package service orchestrates the pure core packages against the store:
// ledger replays after every append or delete, ladder attachment and state
// advancement, and forecast snapshotting.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinladder/internal/ledger"
	"coinladder/internal/models"
	"coinladder/internal/store"
)

// maxRecomputeRetries bounds the re-read-and-recompute loop when concurrent
// writers race on the same holding.
const maxRecomputeRetries = 3

// HoldingService owns the ledger write path: every mutation re-derives the
// holding by replaying the full slice through the cost-basis engine.
type HoldingService struct {
	logger *zap.Logger
	repo   *store.Repository
}

func NewHoldingService(logger *zap.Logger, repo *store.Repository) *HoldingService {
	return &HoldingService{logger: logger, repo: repo}
}

// RecordTransaction validates and appends a ledger entry, then recomputes
// the affected holding.
func (s *HoldingService) RecordTransaction(ctx context.Context, tx *models.Transaction) (*models.Holding, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.AppendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}
	s.logger.Info("Transaction recorded",
		zap.String("asset", tx.AssetSymbol),
		zap.String("kind", string(tx.Kind)),
		zap.String("quantity", tx.Quantity.String()))
	return s.Recompute(ctx, tx.OwnerID, tx.AssetSymbol, tx.SubAccountID)
}

// DeleteTransaction removes a ledger entry and re-derives the holding the
// entry belonged to. The replay is the recovery mechanism: there is no
// incremental un-apply.
func (s *HoldingService) DeleteTransaction(ctx context.Context, id uint) (*models.Holding, error) {
	tx, err := s.repo.DeleteTransaction(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, &models.ValidationError{Field: "id", Reason: "transaction not found"}
		}
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}
	s.logger.Info("Transaction deleted, re-deriving holding",
		zap.Uint("id", id),
		zap.String("asset", tx.AssetSymbol))
	return s.Recompute(ctx, tx.OwnerID, tx.AssetSymbol, tx.SubAccountID)
}

// Recompute replays one ledger slice and replaces the stored holding under
// an optimistic version check, retrying when a concurrent writer wins the
// race. Each retry re-reads the slice so the losing writer never persists a
// result computed from a stale snapshot.
func (s *HoldingService) Recompute(ctx context.Context, owner, asset, subAccount string) (*models.Holding, error) {
	for attempt := 0; attempt < maxRecomputeRetries; attempt++ {
		var expectedVersion int64
		existing, err := s.repo.GetHolding(ctx, owner, asset, subAccount)
		switch {
		case err == nil:
			expectedVersion = existing.Version
		case store.IsNotFound(err):
			expectedVersion = 0
		default:
			return nil, fmt.Errorf("failed to read holding: %w", err)
		}

		txs, err := s.repo.ListTransactions(ctx, owner, asset, subAccount)
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger slice: %w", err)
		}

		var computed models.Holding
		if len(txs) == 0 {
			// The last entry was deleted: the projection collapses to an
			// empty position, it is not removed.
			computed = models.Holding{
				OwnerID:        owner,
				AssetSymbol:    asset,
				SubAccountID:   subAccount,
				Quantity:       decimal.Zero,
				InvestedAmount: decimal.Zero,
				AveragePrice:   decimal.Zero,
			}
		} else {
			computed, err = ledger.ComputeHolding(txs)
			if err != nil {
				return nil, err
			}
		}
		if existing != nil {
			computed.ID = existing.ID
		}

		err = s.repo.ReplaceHolding(ctx, &computed, expectedVersion)
		if err == nil {
			return &computed, nil
		}
		if !errors.Is(err, models.ErrConcurrencyConflict) {
			return nil, err
		}
		s.logger.Warn("Concurrent holding update detected, recomputing",
			zap.String("asset", asset),
			zap.Int("attempt", attempt+1))
	}
	return nil, models.ErrConcurrencyConflict
}

// GetHolding returns the stored projection for one scope.
func (s *HoldingService) GetHolding(ctx context.Context, owner, asset, subAccount string) (*models.Holding, error) {
	h, err := s.repo.GetHolding(ctx, owner, asset, subAccount)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, &models.ValidationError{Field: "asset_symbol", Reason: "no holding for " + asset}
		}
		return nil, err
	}
	return h, nil
}

// ListHoldings returns all stored projections for one owner.
func (s *HoldingService) ListHoldings(ctx context.Context, owner string) ([]models.Holding, error) {
	return s.repo.ListHoldings(ctx, owner)
}
