package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/defolio/defolio/internal/domain"
	"github.com/defolio/defolio/internal/nav"
)

// NAVHandler provides HTTP endpoints for monthly NAV settings and results.
type NAVHandler struct {
	navs *nav.Service
}

// NewNAVHandler creates a NAV handler.
func NewNAVHandler(navs *nav.Service) *NAVHandler {
	return &NAVHandler{navs: navs}
}

// GetResult handles GET /api/v1/nav/{year}/{month}.
func (h *NAVHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}

	res, err := h.navs.GetResult(r.Context(), userID(r), year, month)
	if err != nil {
		if errors.Is(err, nav.ErrNotFound) {
			writeError(w, http.StatusNotFound, "nav result not found for month")
			return
		}
		slog.Error("failed to get nav result", "year", year, "month", month, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetSettings handles GET /api/v1/nav/{year}/{month}/settings.
func (h *NAVHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}

	settings, err := h.navs.GetSettings(r.Context(), userID(r), year, month)
	if err != nil {
		if errors.Is(err, nav.ErrNotFound) {
			writeError(w, http.StatusNotFound, "nav settings not found for month")
			return
		}
		slog.Error("failed to get nav settings", "year", year, "month", month, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutSettings handles PUT /api/v1/nav/{year}/{month}/settings. The path
// values are authoritative; matching fields in the body are overwritten.
func (h *NAVHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}

	var settings domain.NAVSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	settings.UserID = userID(r)
	settings.Year = year
	settings.Month = month

	if settings.FeeSettings.ManagementFeeRate.IsNegative() ||
		settings.FeeSettings.PerformanceFeeRate.IsNegative() ||
		settings.FeeSettings.AccruedPerformanceFeeRate.IsNegative() {
		writeError(w, http.StatusBadRequest, "fee rates must not be negative")
		return
	}

	// Unknown enum values would silently fall through to the waterfall's
	// zero-hurdle / zero-accrual defaults; reject them here instead.
	switch settings.FeeSettings.HurdleRateType {
	case domain.HurdleNone, domain.HurdleAnnual, domain.HurdleMonthly:
	default:
		writeError(w, http.StatusBadRequest, "unknown hurdleRateType, expected annual or monthly")
		return
	}
	switch settings.FeeSettings.FeePaymentStatus {
	case "", domain.FeePaid, domain.FeeNotPaid, domain.FeePartiallyPaid:
	default:
		writeError(w, http.StatusBadRequest, "unknown feePaymentStatus, expected paid, not_paid or partially_paid")
		return
	}

	if err := h.navs.SaveSettings(r.Context(), settings); err != nil {
		slog.Error("failed to save nav settings", "year", year, "month", month, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Calculate handles POST /api/v1/nav/{year}/{month}/calculate. Passing
// ?estimate=true allows a first month with no history to fall back to the
// month's own portfolio totals as the prior baseline.
func (h *NAVHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}

	opts := nav.Options{
		AllowPortfolioEstimate: r.URL.Query().Get("estimate") == "true",
	}

	res, err := h.navs.CalculateMonth(r.Context(), userID(r), year, month, opts)
	if err != nil {
		switch {
		case errors.Is(err, nav.ErrNotFound):
			writeError(w, http.StatusNotFound, "nav settings not found for month")
		case errors.Is(err, nav.ErrMissingPriorNav):
			writeError(w, http.StatusConflict, err.Error())
		default:
			slog.Error("failed to calculate nav", "year", year, "month", month, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to calculate nav")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func yearMonth(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 2000 || year > 2200 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month, expected 1-12")
		return 0, 0, false
	}
	return year, month, true
}
