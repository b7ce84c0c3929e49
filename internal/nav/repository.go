package nav

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/defolio/defolio/internal/domain"
)

// ErrNotFound indicates that no settings or result row matched the query.
var ErrNotFound = errors.New("nav record not found")

// Repository defines persistent storage for NAV settings and results, keyed
// by (userID, year, month). Writes upsert; last-writer-wins.
type Repository interface {
	SaveSettings(ctx context.Context, s domain.NAVSettings) error
	GetSettings(ctx context.Context, userID string, year, month int) (*domain.NAVSettings, error)
	SaveResult(ctx context.Context, res domain.NAVCalculationResult) error
	GetResult(ctx context.Context, userID string, year, month int) (*domain.NAVCalculationResult, error)
}

// PgRepository implements Repository with PostgreSQL, storing settings and
// result documents as JSONB alongside their natural key.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL NAV repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) SaveSettings(ctx context.Context, s domain.NAVSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling nav settings: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO nav_records (user_id, year, month, settings)
		 VALUES ($1, $2, $3, $4::jsonb)
		 ON CONFLICT (user_id, year, month)
		 DO UPDATE SET settings = $4::jsonb, updated_at = NOW()`,
		s.UserID, s.Year, s.Month, data)
	if err != nil {
		return fmt.Errorf("saving nav settings: %w", err)
	}
	return nil
}

func (r *PgRepository) GetSettings(ctx context.Context, userID string, year, month int) (*domain.NAVSettings, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT settings FROM nav_records
		 WHERE user_id = $1 AND year = $2 AND month = $3 AND settings IS NOT NULL`,
		userID, year, month).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting nav settings: %w", err)
	}
	var s domain.NAVSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing nav settings: %w", err)
	}
	return &s, nil
}

func (r *PgRepository) SaveResult(ctx context.Context, res domain.NAVCalculationResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling nav result: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO nav_records (user_id, year, month, result)
		 VALUES ($1, $2, $3, $4::jsonb)
		 ON CONFLICT (user_id, year, month)
		 DO UPDATE SET result = $4::jsonb, updated_at = NOW()`,
		res.UserID, res.Year, res.Month, data)
	if err != nil {
		return fmt.Errorf("saving nav result: %w", err)
	}
	return nil
}

func (r *PgRepository) GetResult(ctx context.Context, userID string, year, month int) (*domain.NAVCalculationResult, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT result FROM nav_records
		 WHERE user_id = $1 AND year = $2 AND month = $3 AND result IS NOT NULL`,
		userID, year, month).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting nav result: %w", err)
	}
	var res domain.NAVCalculationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parsing nav result: %w", err)
	}
	return &res, nil
}
