package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/defolio/defolio/internal/domain"
	"github.com/defolio/defolio/internal/pricing"
)

// QuoteSource reads a stored spot quote for a symbol. Satisfied by
// pricing.Service.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (pricing.Quote, error)
}

// PortfolioFetcher fetches a raw wallet portfolio from the provider.
type PortfolioFetcher interface {
	FetchPortfolio(ctx context.Context, wallet string) (providerPortfolio, error)
}

// Service turns provider portfolios into canonical snapshots. It implements
// snapshot.Source. When a quote source is configured, tokens the provider
// returns unpriced are backfilled from the stored spot quotes.
type Service struct {
	fetcher PortfolioFetcher
	quotes  QuoteSource // optional
}

// NewService creates an ingestion service. quotes may be nil.
func NewService(fetcher PortfolioFetcher, quotes QuoteSource) *Service {
	return &Service{fetcher: fetcher, quotes: quotes}
}

// Ingest fetches and normalizes a wallet's portfolio for the given date.
func (s *Service) Ingest(ctx context.Context, userID, wallet string, date time.Time) (domain.PortfolioSnapshot, error) {
	raw, err := s.fetcher.FetchPortfolio(ctx, wallet)
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("fetching portfolio for %s: %w", wallet, err)
	}

	snap := Normalize(raw, userID, wallet, date)
	if s.quotes != nil {
		s.backfillPrices(ctx, &snap)
	}
	return snap, nil
}

// backfillPrices prices tokens that arrived with a balance but no valuation,
// using the latest stored spot quote for their symbol. Position totals and
// the snapshot total are recomputed from the repaired tokens.
func (s *Service) backfillPrices(ctx context.Context, snap *domain.PortfolioSnapshot) {
	repaired := 0
	for i := range snap.Tokens {
		if s.backfillToken(ctx, &snap.Tokens[i]) {
			repaired++
		}
	}
	for i := range snap.Positions {
		p := &snap.Positions[i]
		positionRepaired := 0
		for j := range p.SupplyTokens {
			if s.backfillToken(ctx, &p.SupplyTokens[j]) {
				positionRepaired++
			}
		}
		for j := range p.RewardTokens {
			if s.backfillToken(ctx, &p.RewardTokens[j]) {
				positionRepaired++
			}
		}
		// The provider's own total (when present) already covers these
		// tokens; only a token-sum-derived total needs recomputing.
		if positionRepaired > 0 && p.TotalValue == 0 {
			p.TotalValue = tokenSum(p.SupplyTokens) + tokenSum(p.RewardTokens)
		}
		repaired += positionRepaired
	}

	if repaired > 0 {
		snap.TotalValue = snap.TokensValue() + snap.PositionsValue()
		slog.Info("backfilled unpriced tokens from stored quotes",
			"wallet", snap.WalletAddress, "tokens", repaired)
	}
}

func (s *Service) backfillToken(ctx context.Context, t *domain.TokenHolding) bool {
	if t.ValueUSD != 0 || t.Amount <= 0 {
		return false
	}

	quote, err := s.quotes.GetQuote(ctx, strings.ToUpper(t.Symbol))
	if err != nil {
		if !errors.Is(err, pricing.ErrNotFound) {
			slog.Warn("quote lookup failed during price backfill",
				"symbol", t.Symbol, "error", err)
		}
		return false
	}

	price, _ := quote.PriceInUSD.Float64()
	if price <= 0 {
		return false
	}
	t.PriceUSD = price
	t.ValueUSD = t.Amount * price
	return true
}

func tokenSum(tokens []domain.TokenHolding) float64 {
	var sum float64
	for _, t := range tokens {
		sum += t.ValueUSD
	}
	return sum
}
