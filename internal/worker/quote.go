package worker

import (
	"context"
	"log/slog"
	"time"
)

// QuoteFetcher refreshes the stored spot quotes that snapshot ingestion uses
// to price tokens the provider returns unvalued.
type QuoteFetcher interface {
	FetchAndStoreQuotes(ctx context.Context) error
}

// QuoteWorker keeps the spot quote store fresh. A failed refresh is logged
// and retried on the next tick; the loop only exits with the context.
type QuoteWorker struct {
	fetcher  QuoteFetcher
	interval time.Duration
}

// NewQuoteWorker creates a new QuoteWorker.
func NewQuoteWorker(fetcher QuoteFetcher, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		fetcher:  fetcher,
		interval: interval,
	}
}

// Run starts the refresh loop. It blocks until the context is cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("quote worker starting", "interval", w.interval)
	runEvery(ctx, w.interval, w.refresh)
	slog.Info("quote worker stopped")
}

func (w *QuoteWorker) refresh(ctx context.Context) {
	if err := w.fetcher.FetchAndStoreQuotes(ctx); err != nil {
		slog.Error("quote refresh failed", "error", err)
		return
	}
	slog.Info("quote refresh completed")
}
