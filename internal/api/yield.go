package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/defolio/defolio/internal/apy"
	"github.com/defolio/defolio/internal/snapshot"
)

// YieldHandler serves on-demand per-position yield estimates computed from two
// stored snapshots. Nothing is persisted.
type YieldHandler struct {
	snapshots *snapshot.Service
	engine    *apy.Engine
}

// NewYieldHandler creates a yield handler.
func NewYieldHandler(snapshots *snapshot.Service, engine *apy.Engine) *YieldHandler {
	return &YieldHandler{snapshots: snapshots, engine: engine}
}

// yieldResponse is the envelope for a yield calculation.
type yieldResponse struct {
	Wallet        string                `json:"wallet"`
	CurrentDate   string                `json:"currentDate"`
	ReferenceDate string                `json:"referenceDate,omitempty"`
	Positions     map[string]apy.Result `json:"positions"`
}

// GetYield handles GET /api/v1/yield/{wallet}?date=YYYY-MM-DD. The date
// defaults to today; the reference snapshot is the most recent one strictly
// before the current snapshot's date.
func (h *YieldHandler) GetYield(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	uid := userID(r)

	date := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	current, err := h.snapshots.GetAtOrBefore(r.Context(), uid, wallet, date)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "insufficient data: no snapshot at or before date")
			return
		}
		slog.Error("failed to load current snapshot for yield", "wallet", wallet, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	reference, err := h.snapshots.GetLatestBefore(r.Context(), uid, wallet, current.Date)
	if err != nil && !errors.Is(err, snapshot.ErrNotFound) {
		slog.Error("failed to load reference snapshot for yield", "wallet", wallet, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := yieldResponse{
		Wallet:      wallet,
		CurrentDate: current.Date.Format("2006-01-02"),
		Positions:   h.engine.Calculate(current, reference),
	}
	if reference != nil {
		resp.ReferenceDate = reference.Date.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, resp)
}
