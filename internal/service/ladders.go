package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinladder/internal/ladder"
	"coinladder/internal/models"
	"coinladder/internal/store"
)

// LadderService manages per-asset profit-taking ladders: attachment against
// the current holding snapshot, externally driven state transitions, and
// staleness reporting.
type LadderService struct {
	logger *zap.Logger
	repo   *store.Repository
}

func NewLadderService(logger *zap.Logger, repo *store.Repository) *LadderService {
	return &LadderService{logger: logger, repo: repo}
}

// AttachLadder validates a rule payload, builds the ladder against the
// current holding, and replaces any previous ladder for the scope. The
// derived quantities snapshot the holding as of now; later ledger changes
// leave them untouched until the caller attaches a fresh ladder.
func (s *LadderService) AttachLadder(ctx context.Context, owner, asset, subAccount string, payload []byte) ([]models.LadderStep, error) {
	rules, err := ladder.ParseRules(payload)
	if err != nil {
		return nil, err
	}

	holding, err := s.repo.GetHolding(ctx, owner, asset, subAccount)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, &models.ValidationError{Field: "asset_symbol", Reason: "no holding for " + asset}
		}
		return nil, err
	}

	steps, err := ladder.Build(*holding, rules)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceLadder(ctx, owner, asset, subAccount, steps); err != nil {
		return nil, fmt.Errorf("failed to persist ladder: %w", err)
	}

	s.logger.Info("Ladder attached",
		zap.String("asset", asset),
		zap.Int("steps", len(steps)),
		zap.String("snapshot_quantity", holding.Quantity.String()))
	return steps, nil
}

// GetLadder returns the stored steps for a scope plus a staleness warning
// when the holding has drifted from the ladder's build-time snapshot. The
// warning is advisory: the derived numbers are served unchanged.
func (s *LadderService) GetLadder(ctx context.Context, owner, asset, subAccount string) ([]models.LadderStep, *models.StaleLadderWarning, error) {
	steps, err := s.repo.ListLadder(ctx, owner, asset, subAccount)
	if err != nil {
		return nil, nil, err
	}
	if len(steps) == 0 {
		return steps, nil, nil
	}

	holding, err := s.repo.GetHolding(ctx, owner, asset, subAccount)
	if err != nil {
		if store.IsNotFound(err) {
			return steps, nil, nil
		}
		return nil, nil, err
	}

	warn := ladder.Staleness(*holding, steps)
	if warn != nil {
		s.logger.Warn("Serving stale ladder", zap.String("asset", asset), zap.Error(warn))
	}
	return steps, warn, nil
}

// ObservePrice advances every step of one scope against an observed market
// price and persists the transitions. Returns the steps that changed.
func (s *LadderService) ObservePrice(ctx context.Context, owner, asset, subAccount string, price decimal.Decimal, at time.Time) ([]models.LadderStep, error) {
	if price.IsNegative() {
		return nil, &models.ValidationError{Field: "price", Reason: "must not be negative"}
	}

	steps, err := s.repo.ListLadder(ctx, owner, asset, subAccount)
	if err != nil {
		return nil, err
	}

	var changedSteps []models.LadderStep
	for i := range steps {
		updated, changed := ladder.ObservePrice(steps[i], price, at)
		if !changed {
			continue
		}
		if err := s.repo.SaveStep(ctx, &updated); err != nil {
			return nil, fmt.Errorf("failed to persist step transition: %w", err)
		}
		s.logger.Info("Ladder step triggered",
			zap.String("asset", asset),
			zap.Int("step_order", updated.StepOrder),
			zap.String("target_price", updated.TargetPrice.String()),
			zap.String("observed_price", price.String()))
		changedSteps = append(changedSteps, updated)
	}
	return changedSteps, nil
}

// ConfirmStep marks a triggered step as executed after the external fill
// (manual sale or exchange order) is confirmed by the caller.
func (s *LadderService) ConfirmStep(ctx context.Context, stepID uuid.UUID, at time.Time) (*models.LadderStep, error) {
	step, err := s.repo.GetStep(ctx, stepID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, &models.ValidationError{Field: "step_id", Reason: "step not found"}
		}
		return nil, err
	}

	done, err := ladder.ConfirmFill(*step, at)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveStep(ctx, &done); err != nil {
		return nil, fmt.Errorf("failed to persist confirmed step: %w", err)
	}

	s.logger.Info("Ladder step confirmed done",
		zap.String("asset", done.AssetSymbol),
		zap.Int("step_order", done.StepOrder))
	return &done, nil
}
