package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/defolio/defolio/internal/domain"
)

// ErrNotFound indicates that no snapshot matched the query. Absence of
// history is a normal steady state for callers, not a failure.
var ErrNotFound = errors.New("snapshot not found")

// Repository defines persistent storage for portfolio snapshots.
type Repository interface {
	Save(ctx context.Context, snap domain.PortfolioSnapshot) error
	GetByDate(ctx context.Context, userID, wallet string, date time.Time) (*domain.PortfolioSnapshot, error)
	GetAtOrBefore(ctx context.Context, userID, wallet string, date time.Time) (*domain.PortfolioSnapshot, error)
	GetLatestBefore(ctx context.Context, userID, wallet string, date time.Time) (*domain.PortfolioSnapshot, error)
	List(ctx context.Context, userID, wallet string, limit int) ([]domain.PortfolioSnapshot, error)
}

// PgRepository implements Repository with PostgreSQL. The full snapshot is
// stored as JSONB; (user_id, wallet_address, snapshot_date) is the unique key
// and writes upsert, so concurrent writers resolve last-writer-wins.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL snapshot repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, snap domain.PortfolioSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO portfolio_snapshots (user_id, wallet_address, snapshot_date, total_value, data)
		 VALUES ($1, $2, $3, $4, $5::jsonb)
		 ON CONFLICT (user_id, wallet_address, snapshot_date)
		 DO UPDATE SET total_value = $4, data = $5::jsonb`,
		snap.UserID, snap.WalletAddress, dateOnly(snap.Date), snap.TotalValue, data)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByDate(ctx context.Context, userID, wallet string, date time.Time) (*domain.PortfolioSnapshot, error) {
	return r.queryOne(ctx,
		`SELECT data FROM portfolio_snapshots
		 WHERE user_id = $1 AND wallet_address = $2 AND snapshot_date = $3`,
		userID, wallet, dateOnly(date))
}

// GetAtOrBefore returns the most recent snapshot at or before the given date.
// This is the documented fallback for queries with no exact-date match.
func (r *PgRepository) GetAtOrBefore(ctx context.Context, userID, wallet string, date time.Time) (*domain.PortfolioSnapshot, error) {
	return r.queryOne(ctx,
		`SELECT data FROM portfolio_snapshots
		 WHERE user_id = $1 AND wallet_address = $2 AND snapshot_date <= $3
		 ORDER BY snapshot_date DESC
		 LIMIT 1`,
		userID, wallet, dateOnly(date))
}

// GetLatestBefore returns the most recent snapshot strictly before the given
// date, used as the reference side of a yield comparison.
func (r *PgRepository) GetLatestBefore(ctx context.Context, userID, wallet string, date time.Time) (*domain.PortfolioSnapshot, error) {
	return r.queryOne(ctx,
		`SELECT data FROM portfolio_snapshots
		 WHERE user_id = $1 AND wallet_address = $2 AND snapshot_date < $3
		 ORDER BY snapshot_date DESC
		 LIMIT 1`,
		userID, wallet, dateOnly(date))
}

func (r *PgRepository) List(ctx context.Context, userID, wallet string, limit int) ([]domain.PortfolioSnapshot, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx,
		`SELECT data FROM portfolio_snapshots
		 WHERE user_id = $1 AND wallet_address = $2
		 ORDER BY snapshot_date DESC
		 LIMIT $3`,
		userID, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.PortfolioSnapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		var snap domain.PortfolioSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("parsing snapshot data: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

func (r *PgRepository) queryOne(ctx context.Context, sql string, args ...any) (*domain.PortfolioSnapshot, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, sql, args...).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	var snap domain.PortfolioSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot data: %w", err)
	}
	return &snap, nil
}

// dateOnly truncates a timestamp to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
