// Package store is the persistence boundary around gorm. The ledger is
// append-only with hard deletes on explicit user action only; holdings are
// replaceable projections guarded by an optimistic version check.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"coinladder/internal/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Ledger

func (r *Repository) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// DeleteTransaction removes one ledger row and returns it so the caller
// knows which (owner, asset, sub-account) slice to re-derive.
func (r *Repository) DeleteTransaction(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&models.Transaction{}, id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListTransactions returns one ledger slice ordered by occurredAt with the
// auto-increment id as the insertion-order tiebreak. The engine depends on
// this ordering.
func (r *Repository) ListTransactions(ctx context.Context, owner, asset, subAccount string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND asset_symbol = ? AND sub_account_id = ?", owner, asset, subAccount).
		Order("occurred_at, id").
		Find(&txs).Error
	return txs, err
}

// Holdings

func (r *Repository) GetHolding(ctx context.Context, owner, asset, subAccount string) (*models.Holding, error) {
	var h models.Holding
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND asset_symbol = ? AND sub_account_id = ?", owner, asset, subAccount).
		First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *Repository) ListHoldings(ctx context.Context, owner string) ([]models.Holding, error) {
	var holdings []models.Holding
	err := r.db.WithContext(ctx).Where("owner_id = ?", owner).Order("asset_symbol").Find(&holdings).Error
	return holdings, err
}

// ReplaceHolding upserts a freshly computed holding. expectedVersion is the
// version the caller read before recomputing (0 when no row existed). If
// another writer replaced the row in between, nothing is written and
// ErrConcurrencyConflict comes back; the caller re-reads the ledger slice and
// recomputes rather than patching over a stale snapshot.
func (r *Repository) ReplaceHolding(ctx context.Context, h *models.Holding, expectedVersion int64) error {
	if expectedVersion == 0 {
		h.Version = 1
		err := r.db.WithContext(ctx).Create(h).Error
		if err == nil {
			return nil
		}
		// A unique-index failure means someone created the row first.
		var existing models.Holding
		lookupErr := r.db.WithContext(ctx).
			Where("owner_id = ? AND asset_symbol = ? AND sub_account_id = ?", h.OwnerID, h.AssetSymbol, h.SubAccountID).
			First(&existing).Error
		if lookupErr == nil {
			return models.ErrConcurrencyConflict
		}
		return fmt.Errorf("failed to create holding: %w", err)
	}

	res := r.db.WithContext(ctx).Model(&models.Holding{}).
		Where("owner_id = ? AND asset_symbol = ? AND sub_account_id = ? AND version = ?",
			h.OwnerID, h.AssetSymbol, h.SubAccountID, expectedVersion).
		Updates(map[string]interface{}{
			"quantity":        h.Quantity,
			"invested_amount": h.InvestedAmount,
			"average_price":   h.AveragePrice,
			"version":         expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrConcurrencyConflict
	}
	h.Version = expectedVersion + 1
	return nil
}

// Ladder steps

// ReplaceLadder swaps the ladder for one scope atomically. Rebuilding a
// ladder always replaces all of its steps; there is no per-step editing.
func (r *Repository) ReplaceLadder(ctx context.Context, owner, asset, subAccount string, steps []models.LadderStep) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("owner_id = ? AND asset_symbol = ? AND sub_account_id = ?", owner, asset, subAccount).
			Delete(&models.LadderStep{}).Error
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			return nil
		}
		return tx.Create(&steps).Error
	})
}

func (r *Repository) ListLadder(ctx context.Context, owner, asset, subAccount string) ([]models.LadderStep, error) {
	var steps []models.LadderStep
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND asset_symbol = ? AND sub_account_id = ?", owner, asset, subAccount).
		Order("step_order").
		Find(&steps).Error
	return steps, err
}

func (r *Repository) GetStep(ctx context.Context, id uuid.UUID) (*models.LadderStep, error) {
	var step models.LadderStep
	if err := r.db.WithContext(ctx).First(&step, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &step, nil
}

func (r *Repository) SaveStep(ctx context.Context, step *models.LadderStep) error {
	return r.db.WithContext(ctx).Save(step).Error
}

// ListOpenSteps returns every step the watcher still has to observe prices
// for, across all owners.
func (r *Repository) ListOpenSteps(ctx context.Context) ([]models.LadderStep, error) {
	var steps []models.LadderStep
	err := r.db.WithContext(ctx).
		Where("state <> ?", models.StepDone).
		Order("asset_symbol, step_order").
		Find(&steps).Error
	return steps, err
}

// Forecast snapshots

func (r *Repository) SaveForecastSnapshot(ctx context.Context, snapshot *models.ForecastSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *Repository) ListForecastSnapshots(ctx context.Context, portfolioID string) ([]models.ForecastSnapshot, error) {
	var snapshots []models.ForecastSnapshot
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("created_at DESC").
		Find(&snapshots).Error
	return snapshots, err
}

func (r *Repository) GetForecastSnapshot(ctx context.Context, id uuid.UUID) (*models.ForecastSnapshot, error) {
	var snapshot models.ForecastSnapshot
	if err := r.db.WithContext(ctx).First(&snapshot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Alert events

func (r *Repository) SaveAlertEvent(ctx context.Context, ev *models.AlertEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// HasAlertEvent reports whether a trigger of this kind already fired for the
// step, so the watcher emits each trigger at most once.
func (r *Repository) HasAlertEvent(ctx context.Context, stepID uuid.UUID, kind models.AlertKind) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AlertEvent{}).
		Where("step_id = ? AND kind = ?", stepID, kind).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) RecentAlertEvents(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	var events []models.AlertEvent
	err := r.db.WithContext(ctx).Order("fired_at DESC").Limit(limit).Find(&events).Error
	return events, err
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
