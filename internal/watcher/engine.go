// Package watcher drives the externally observed side of the ladder state
// machine: it polls quotes on a fixed interval, reports prices to the pure
// transition function, and records fired alert triggers for the external
// delivery mechanism.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinladder/internal/alert"
	"coinladder/internal/config"
	"coinladder/internal/ladder"
	"coinladder/internal/models"
	"coinladder/internal/quotes"
	"coinladder/internal/store"
)

// Engine is the polling loop that observes market prices against open ladder
// steps.
type Engine struct {
	logger *zap.Logger
	cfg    *config.Config
	quotes quotes.Client
	repo   *store.Repository
}

// NewEngine creates a new price watcher engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, quoteClient quotes.Client, repo *store.Repository) *Engine {
	return &Engine{
		logger: logger,
		cfg:    cfg,
		quotes: quoteClient,
		repo:   repo,
	}
}

// Run starts the watch loop and blocks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.Watcher.TickInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting price watch loop", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping price watcher...")
			return
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				e.logger.Error("Watch tick failed", zap.Error(err))
			}
		}
	}
}

// Tick performs a single observation round: fetch quotes, advance pending
// steps, and record any alert triggers whose thresholds were crossed. Alert
// recording failures are logged and skipped; they never block a ladder's own
// state transition.
func (e *Engine) Tick(ctx context.Context) error {
	steps, err := e.repo.ListOpenSteps(ctx)
	if err != nil {
		return fmt.Errorf("could not load open ladder steps: %w", err)
	}
	if len(steps) == 0 {
		e.logger.Debug("No open ladder steps to watch")
		return nil
	}

	prices, err := e.quotes.GetAllPrices(ctx)
	if err != nil {
		return fmt.Errorf("could not get quotes: %w", err)
	}

	policy := e.alertPolicy()
	now := time.Now().UTC()

	for i := range steps {
		step := steps[i]
		symbol := step.AssetSymbol + e.cfg.Quotes.QuoteAsset
		price, ok := prices[symbol]
		if !ok {
			e.logger.Warn("No quote for ladder symbol", zap.String("symbol", symbol))
			continue
		}

		e.fireAlerts(ctx, step, policy, price, now)

		updated, changed := ladder.ObservePrice(step, price, now)
		if !changed {
			continue
		}
		if err := e.repo.SaveStep(ctx, &updated); err != nil {
			e.logger.Error("Failed to persist step transition",
				zap.String("asset", step.AssetSymbol), zap.Error(err))
			continue
		}
		e.logger.Info("Ladder step triggered",
			zap.String("asset", step.AssetSymbol),
			zap.Int("step_order", step.StepOrder),
			zap.String("target_price", step.TargetPrice.String()),
			zap.String("price", price.String()))
	}
	return nil
}

// fireAlerts records each trigger at most once per step and kind.
func (e *Engine) fireAlerts(ctx context.Context, step models.LadderStep, policy alert.Policy, price decimal.Decimal, now time.Time) {
	triggers, err := alert.Bind(step, policy)
	if err != nil {
		e.logger.Error("Failed to bind alerts for step",
			zap.String("asset", step.AssetSymbol), zap.Error(err))
		return
	}

	for _, trigger := range triggers {
		if !alert.ShouldFire(trigger, price) {
			continue
		}
		already, err := e.repo.HasAlertEvent(ctx, trigger.StepID, trigger.Kind)
		if err != nil {
			e.logger.Error("Failed to check alert history", zap.Error(err))
			continue
		}
		if already {
			continue
		}
		ev := alert.Event(trigger, price, now)
		if err := e.repo.SaveAlertEvent(ctx, &ev); err != nil {
			e.logger.Error("Failed to record alert event",
				zap.String("asset", step.AssetSymbol),
				zap.String("kind", string(trigger.Kind)),
				zap.Error(err))
			continue
		}
		e.logger.Info("Alert trigger fired",
			zap.String("asset", step.AssetSymbol),
			zap.String("kind", string(trigger.Kind)),
			zap.String("price", price.String()))
	}
}

// alertPolicy builds the default policy from configuration.
func (e *Engine) alertPolicy() alert.Policy {
	policy := alert.Policy{
		OnReach:      e.cfg.Alerts.OnReach,
		ChannelHints: e.cfg.Alerts.ChannelHints,
	}
	if e.cfg.Alerts.BeforeTargetValue > 0 {
		mode := alert.MarginPercent
		if e.cfg.Alerts.BeforeTargetMode == "ABSOLUTE" {
			mode = alert.MarginAbsolute
		}
		policy.BeforeTarget = &alert.Margin{
			Mode:  mode,
			Value: decimal.NewFromFloat(e.cfg.Alerts.BeforeTargetValue),
		}
	}
	return policy
}
