package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/defolio/defolio/internal/domain"
)

// Source produces a fresh portfolio snapshot for a wallet, normalized to the
// canonical domain shape at the ingestion boundary.
type Source interface {
	Ingest(ctx context.Context, userID, wallet string, date time.Time) (domain.PortfolioSnapshot, error)
}

// Service manages snapshot generation and retrieval.
type Service struct {
	source Source
	repo   Repository
}

// NewService creates a new snapshot Service.
func NewService(source Source, repo Repository) *Service {
	return &Service{source: source, repo: repo}
}

// Generate ingests and stores a snapshot for the given wallet and date.
func (s *Service) Generate(ctx context.Context, userID, wallet string, date time.Time) (domain.PortfolioSnapshot, error) {
	snap, err := s.source.Ingest(ctx, userID, wallet, date)
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("ingesting wallet %s: %w", wallet, err)
	}

	if err := s.repo.Save(ctx, snap); err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("saving snapshot: %w", err)
	}

	slog.Info("snapshot stored",
		"user", userID, "wallet", wallet,
		"date", snap.Date.Format("2006-01-02"),
		"positions", len(snap.Positions))
	return snap, nil
}

// GetAtOrBefore retrieves the most recent snapshot at or before date.
func (s *Service) GetAtOrBefore(ctx context.Context, userID, wallet string, date time.Time) (*domain.PortfolioSnapshot, error) {
	return s.repo.GetAtOrBefore(ctx, userID, wallet, date)
}

// GetLatestBefore retrieves the most recent snapshot strictly before date.
func (s *Service) GetLatestBefore(ctx context.Context, userID, wallet string, date time.Time) (*domain.PortfolioSnapshot, error) {
	return s.repo.GetLatestBefore(ctx, userID, wallet, date)
}

// GetByDate retrieves the snapshot for an exact date.
func (s *Service) GetByDate(ctx context.Context, userID, wallet string, date time.Time) (*domain.PortfolioSnapshot, error) {
	return s.repo.GetByDate(ctx, userID, wallet, date)
}

// List retrieves recent snapshots, newest first.
func (s *Service) List(ctx context.Context, userID, wallet string, limit int) ([]domain.PortfolioSnapshot, error) {
	return s.repo.List(ctx, userID, wallet, limit)
}
