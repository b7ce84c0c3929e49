package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/defolio/defolio/internal/config"
	"github.com/defolio/defolio/internal/domain"
)

// SnapshotGenerator defines the interface for generating wallet snapshots.
type SnapshotGenerator interface {
	Generate(ctx context.Context, userID, wallet string, date time.Time) (domain.PortfolioSnapshot, error)
}

// AfterSnapshotHook is called after each successful snapshot generation.
type AfterSnapshotHook interface {
	Export(ctx context.Context, snap domain.PortfolioSnapshot) error
}

// SnapshotWorker periodically captures a snapshot for every tracked wallet.
// A failing wallet is logged and skipped; the rest of the list still runs.
type SnapshotWorker struct {
	generator SnapshotGenerator
	wallets   []config.Wallet
	interval  time.Duration
	hook      AfterSnapshotHook // optional
}

// NewSnapshotWorker creates a new SnapshotWorker with an optional
// post-generation hook.
func NewSnapshotWorker(generator SnapshotGenerator, wallets []config.Wallet, interval time.Duration, hook AfterSnapshotHook) *SnapshotWorker {
	return &SnapshotWorker{
		generator: generator,
		wallets:   wallets,
		interval:  interval,
		hook:      hook,
	}
}

// Run starts the snapshot loop. It blocks until the context is cancelled.
func (w *SnapshotWorker) Run(ctx context.Context) {
	slog.Info("snapshot worker starting", "wallets", len(w.wallets), "interval", w.interval)
	runEvery(ctx, w.interval, w.snapshotAll)
	slog.Info("snapshot worker stopped")
}

func (w *SnapshotWorker) snapshotAll(ctx context.Context) {
	date := utcDate()
	for _, wallet := range w.wallets {
		snap, err := w.generator.Generate(ctx, wallet.UserID, wallet.Address, date)
		if err != nil {
			slog.Error("snapshot capture failed",
				"wallet", wallet.Address, "error", err)
			continue
		}
		slog.Info("snapshot captured",
			"wallet", wallet.Address, "totalValue", snap.TotalValue)
		w.runHook(ctx, snap)
	}
}

// runHook calls the post-generation hook if one is configured.
func (w *SnapshotWorker) runHook(ctx context.Context, snap domain.PortfolioSnapshot) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, snap); err != nil {
		slog.Error("export hook failed",
			"wallet", snap.WalletAddress, "error", err)
	} else {
		slog.Info("export hook completed", "wallet", snap.WalletAddress)
	}
}

// utcDate returns the current date normalized to midnight UTC.
func utcDate() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
