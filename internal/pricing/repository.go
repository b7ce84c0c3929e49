package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that no quote is stored for the requested symbol.
var ErrNotFound = errors.New("quote not found")

// Quote is a stored spot price for one symbol.
type Quote struct {
	Symbol     string          `json:"symbol"`
	PriceInUSD decimal.Decimal `json:"priceInUsd"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// QuoteRepository defines persistent storage for spot quotes.
type QuoteRepository interface {
	SaveQuote(ctx context.Context, symbol string, priceInUSD decimal.Decimal) error
	GetQuote(ctx context.Context, symbol string) (Quote, error)
	GetAllQuotes(ctx context.Context) ([]Quote, error)
}

// PgQuoteRepository implements QuoteRepository with PostgreSQL.
type PgQuoteRepository struct {
	pool *pgxpool.Pool
}

// NewPgQuoteRepository creates a new PostgreSQL quote repository.
func NewPgQuoteRepository(pool *pgxpool.Pool) *PgQuoteRepository {
	return &PgQuoteRepository{pool: pool}
}

func (r *PgQuoteRepository) SaveQuote(ctx context.Context, symbol string, priceInUSD decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO spot_quotes (symbol, price_in_usd, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (symbol) DO UPDATE SET price_in_usd = $2, updated_at = NOW()`,
		symbol, priceInUSD)
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", symbol, err)
	}
	return nil
}

func (r *PgQuoteRepository) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	var q Quote
	err := r.pool.QueryRow(ctx,
		`SELECT symbol, price_in_usd, updated_at FROM spot_quotes WHERE symbol = $1`,
		symbol).Scan(&q.Symbol, &q.PriceInUSD, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, fmt.Errorf("getting quote for %s: %w", symbol, err)
	}
	return q, nil
}

func (r *PgQuoteRepository) GetAllQuotes(ctx context.Context) ([]Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT symbol, price_in_usd, updated_at FROM spot_quotes ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.Symbol, &q.PriceInUSD, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quotes: %w", err)
	}
	return quotes, nil
}
