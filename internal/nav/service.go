package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/defolio/defolio/internal/domain"
)

// ErrMissingPriorNav is returned when a month has no stored prior pre-fee NAV,
// no manual override, and estimation was not requested. The first month of a
// fund requires an explicit prior; it is never inferred silently.
var ErrMissingPriorNav = errors.New("prior pre-fee NAV unavailable: supply an explicit override for the first month")

// Options adjusts how a month's calculation resolves its prior NAV.
type Options struct {
	// AllowPortfolioEstimate permits using the month's own portfolio totals
	// as the prior baseline when no stored history exists. The result is
	// tagged portfolio_estimate so consumers can discount it.
	AllowPortfolioEstimate bool
}

// Service ties the waterfall to stored settings and enforces the month-to-month
// continuity rule: month N's prior pre-fee NAV is month N-1's stored preFeeNav
// unless a manual override says otherwise.
type Service struct {
	repo Repository
}

// NewService creates a NAV calculation service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SaveSettings upserts a month's settings.
func (s *Service) SaveSettings(ctx context.Context, settings domain.NAVSettings) error {
	return s.repo.SaveSettings(ctx, settings)
}

// GetSettings returns a month's stored settings.
func (s *Service) GetSettings(ctx context.Context, userID string, year, month int) (*domain.NAVSettings, error) {
	return s.repo.GetSettings(ctx, userID, year, month)
}

// GetResult returns a stored month result.
func (s *Service) GetResult(ctx context.Context, userID string, year, month int) (*domain.NAVCalculationResult, error) {
	return s.repo.GetResult(ctx, userID, year, month)
}

// CalculateMonth loads the month's settings, resolves the prior pre-fee NAV,
// runs the waterfall, attaches validation warnings and persists the result.
func (s *Service) CalculateMonth(ctx context.Context, userID string, year, month int, opts Options) (*domain.NAVCalculationResult, error) {
	settings, err := s.repo.GetSettings(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	prior, source, err := s.resolvePrior(ctx, settings, opts)
	if err != nil {
		return nil, err
	}

	res := Waterfall(*settings, prior, source)
	res.Warnings = Validate(res)
	if len(res.Warnings) > 0 {
		slog.Warn("nav result flagged by validation",
			"user", userID, "year", year, "month", month, "warnings", res.Warnings)
	}

	if err := s.repo.SaveResult(ctx, res); err != nil {
		return nil, fmt.Errorf("persisting nav result: %w", err)
	}
	return &res, nil
}

// resolvePrior determines the prior pre-fee NAV and records its provenance:
// manual override first, then the previous month's stored result, then a
// reconstruction from the previous month's settings, then (only if allowed)
// the current portfolio totals.
func (s *Service) resolvePrior(ctx context.Context, settings *domain.NAVSettings, opts Options) (decimal.Decimal, domain.PriorNavSource, error) {
	if settings.PriorPreFeeNavOverride != nil {
		return *settings.PriorPreFeeNavOverride, domain.PriorNavManual, nil
	}

	prevYear, prevMonth := previousMonth(settings.Year, settings.Month)

	prevResult, err := s.repo.GetResult(ctx, settings.UserID, prevYear, prevMonth)
	switch {
	case err == nil:
		return prevResult.PreFeeNav, domain.PriorNavAutoLoaded, nil
	case !errors.Is(err, ErrNotFound):
		return decimal.Zero, "", fmt.Errorf("loading prior month result: %w", err)
	}

	// No stored result; a prior month's settings still let us reconstruct
	// what its preFeeNav would have been.
	prevSettings, err := s.repo.GetSettings(ctx, settings.UserID, prevYear, prevMonth)
	switch {
	case err == nil:
		reconstructed := prevSettings.Portfolio.TotalTokensValue.
			Add(prevSettings.Portfolio.TotalPositionsValue).
			Sub(prevSettings.MonthlyExpense)
		slog.Warn("prior month result missing, reconstructed from its settings",
			"user", settings.UserID, "year", prevYear, "month", prevMonth)
		return reconstructed, domain.PriorNavFallback, nil
	case !errors.Is(err, ErrNotFound):
		return decimal.Zero, "", fmt.Errorf("loading prior month settings: %w", err)
	}

	if opts.AllowPortfolioEstimate {
		estimate := settings.Portfolio.TotalTokensValue.
			Add(settings.Portfolio.TotalPositionsValue)
		return estimate, domain.PriorNavPortfolioEstimate, nil
	}

	return decimal.Zero, "", ErrMissingPriorNav
}

func previousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}
