package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// QuoteSource reads quotes, either straight from the repository or through
// the cache.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

// Service manages spot quotes: periodic refresh into the store and cached
// reads for consumers.
type Service struct {
	client *CoinGeckoClient
	repo   QuoteRepository
	cache  *CachedQuotes // optional
}

// NewService creates a pricing service. cache may be nil.
func NewService(client *CoinGeckoClient, repo QuoteRepository, cache *CachedQuotes) *Service {
	return &Service{client: client, repo: repo, cache: cache}
}

// FetchAndStoreQuotes fetches all configured spot prices and upserts them,
// invalidating any cached copies.
func (s *Service) FetchAndStoreQuotes(ctx context.Context) error {
	prices, err := s.client.FetchPrices(ctx)
	if err != nil {
		return fmt.Errorf("fetching spot prices: %w", err)
	}

	symbols := make([]string, 0, len(prices))
	for symbol, priceInUSD := range prices {
		if err := s.repo.SaveQuote(ctx, symbol, decimal.NewFromFloat(priceInUSD)); err != nil {
			return fmt.Errorf("storing quote for %s: %w", symbol, err)
		}
		symbols = append(symbols, symbol)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, symbols...)
	}
	return nil
}

// GetQuote reads one quote, preferring the cache when configured.
func (s *Service) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	if s.cache != nil {
		return s.cache.GetQuote(ctx, symbol)
	}
	return s.repo.GetQuote(ctx, symbol)
}
