package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinladder/internal/models"
	"coinladder/internal/service"
	"coinladder/internal/store"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log       *zap.Logger
	holdings  *service.HoldingService
	ladders   *service.LadderService
	forecasts *service.ForecastService
	repo      *store.Repository
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, holdings *service.HoldingService, ladders *service.LadderService, forecasts *service.ForecastService, repo *store.Repository) *APIHandler {
	return &APIHandler{log: log, holdings: holdings, ladders: ladders, forecasts: forecasts, repo: repo}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps the domain error taxonomy to HTTP statuses. Validation
// errors carry the offending field back to the caller.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Reason,
			"field": verr.Field,
		})
		return
	}
	if errors.Is(err, models.ErrConcurrencyConflict) {
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	var inv *models.InvariantViolation
	if errors.As(err, &inv) {
		h.log.Error("Invariant violation", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.log.Error("Request failed", zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

type transactionRequest struct {
	OwnerID        string          `json:"owner_id"`
	AssetSymbol    string          `json:"asset_symbol"`
	SubAccountID   string          `json:"sub_account_id,omitempty"`
	Kind           string          `json:"kind"`
	Quantity       decimal.Decimal `json:"quantity"`
	AmountInvested decimal.Decimal `json:"amount_invested"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// TransactionsHandler appends or deletes ledger entries. Both mutations
// re-derive the affected holding before responding.
func (h *APIHandler) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req transactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, &models.ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()})
			return
		}
		tx := &models.Transaction{
			OwnerID:        req.OwnerID,
			AssetSymbol:    req.AssetSymbol,
			SubAccountID:   req.SubAccountID,
			Kind:           models.TransactionKind(req.Kind),
			Quantity:       req.Quantity,
			AmountInvested: req.AmountInvested,
			UnitPrice:      req.UnitPrice,
			OccurredAt:     req.OccurredAt,
		}
		holding, err := h.holdings.RecordTransaction(r.Context(), tx)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"transaction": tx,
			"holding":     holding,
		})

	case http.MethodDelete:
		id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			h.writeError(w, &models.ValidationError{Field: "id", Reason: "must be a positive integer"})
			return
		}
		holding, err := h.holdings.DeleteTransaction(r.Context(), uint(id))
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"holding": holding})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HoldingsHandler returns the stored projections for an owner.
func (h *APIHandler) HoldingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		h.writeError(w, &models.ValidationError{Field: "owner", Reason: "must not be empty"})
		return
	}

	if asset := r.URL.Query().Get("asset"); asset != "" {
		holding, err := h.holdings.GetHolding(r.Context(), owner, asset, r.URL.Query().Get("sub_account"))
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, holding)
		return
	}

	holdings, err := h.holdings.ListHoldings(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, holdings)
}

type ladderRequest struct {
	OwnerID      string          `json:"owner_id"`
	AssetSymbol  string          `json:"asset_symbol"`
	SubAccountID string          `json:"sub_account_id,omitempty"`
	Rules        json.RawMessage `json:"rules"`
}

// LaddersHandler attaches a ladder from a rule payload or returns the stored
// ladder with its staleness flag.
func (h *APIHandler) LaddersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req ladderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, &models.ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()})
			return
		}
		steps, err := h.ladders.AttachLadder(r.Context(), req.OwnerID, req.AssetSymbol, req.SubAccountID, req.Rules)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, steps)

	case http.MethodGet:
		owner := r.URL.Query().Get("owner")
		asset := r.URL.Query().Get("asset")
		if owner == "" || asset == "" {
			h.writeError(w, &models.ValidationError{Field: "owner", Reason: "owner and asset are required"})
			return
		}
		steps, warn, err := h.ladders.GetLadder(r.Context(), owner, asset, r.URL.Query().Get("sub_account"))
		if err != nil {
			h.writeError(w, err)
			return
		}
		resp := map[string]interface{}{"steps": steps}
		if warn != nil {
			resp["stale_warning"] = warn.Error()
		}
		h.writeJSON(w, http.StatusOK, resp)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// AlertsHandler returns recently fired alert triggers, newest first.
func (h *APIHandler) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, &models.ValidationError{Field: "limit", Reason: "must be a positive integer"})
			return
		}
		limit = parsed
	}
	events, err := h.repo.RecentAlertEvents(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

type confirmRequest struct {
	StepID uuid.UUID `json:"step_id"`
}

// ConfirmHandler marks a triggered step as filled.
func (h *APIHandler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &models.ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()})
		return
	}
	step, err := h.ladders.ConfirmStep(r.Context(), req.StepID, time.Now().UTC())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, step)
}

type forecastRequest struct {
	PortfolioID string                     `json:"portfolio_id"`
	Name        string                     `json:"name"`
	Selections  []service.SelectionRequest `json:"selections"`
}

// ForecastsHandler builds and stores a forecast snapshot, or lists stored
// snapshots for a portfolio.
func (h *APIHandler) ForecastsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req forecastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, &models.ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()})
			return
		}
		f, snapshot, err := h.forecasts.BuildForecast(r.Context(), req.PortfolioID, req.Name, req.Selections)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"forecast":    f,
			"snapshot_id": snapshot.ID,
		})

	case http.MethodGet:
		portfolio := r.URL.Query().Get("portfolio")
		if portfolio == "" {
			h.writeError(w, &models.ValidationError{Field: "portfolio", Reason: "must not be empty"})
			return
		}
		snapshots, err := h.forecasts.ListSnapshots(r.Context(), portfolio)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, snapshots)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
