package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/defolio/defolio/internal/api"
	"github.com/defolio/defolio/internal/apy"
	"github.com/defolio/defolio/internal/config"
	"github.com/defolio/defolio/internal/database"
	"github.com/defolio/defolio/internal/export"
	"github.com/defolio/defolio/internal/ingest"
	"github.com/defolio/defolio/internal/nav"
	"github.com/defolio/defolio/internal/pricing"
	"github.com/defolio/defolio/internal/snapshot"
	"github.com/defolio/defolio/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	app := &cli.App{
		Name:  "defolio",
		Usage: "DeFi portfolio dashboard: snapshots, yield estimates and monthly NAV",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and background workers",
				Action: runServe,
			},
			{
				Name:  "snapshot",
				Usage: "capture one snapshot for a wallet and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "wallet", Required: true, Usage: "wallet address"},
					&cli.StringFlag{Name: "user", Value: "default", Usage: "user ID"},
				},
				Action: runSnapshot,
			},
			{
				Name:  "nav",
				Usage: "calculate a month's NAV waterfall and exit",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Required: true},
					&cli.IntFlag{Name: "month", Required: true},
					&cli.StringFlag{Name: "user", Value: "default", Usage: "user ID"},
					&cli.BoolFlag{Name: "estimate", Usage: "allow a first month to use its own portfolio totals as the prior baseline"},
				},
				Action: runNav,
			},
			{
				Name:  "export",
				Usage: "write a month's NAV report workbook",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Required: true},
					&cli.IntFlag{Name: "month", Required: true},
					&cli.StringFlag{Name: "user", Value: "default", Usage: "user ID"},
					&cli.StringFlag{Name: "wallet", Usage: "wallet for the yield sheet"},
					&cli.StringFlag{Name: "out", Usage: "output directory (defaults to EXPORT_PATH)"},
				},
				Action: runExport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// connect loads config, connects to the database and applies migrations.
func connect(ctx context.Context) (config.Config, *pgxpool.Pool, error) {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return cfg, nil, errors.New("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return cfg, nil, fmt.Errorf("connecting to database: %w", err)
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return cfg, nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return cfg, nil, fmt.Errorf("running migrations: %w", err)
	}

	return cfg, pool, nil
}

func newSnapshotService(cfg config.Config, pool *pgxpool.Pool, quotes ingest.QuoteSource) *snapshot.Service {
	client := ingest.NewClient(cfg.ProviderURL, cfg.ProviderAPIKey,
		cfg.ProviderRateLimit, cfg.ProviderRetryMax, cfg.ProviderRetryDelay)
	return snapshot.NewService(ingest.NewService(client, quotes), snapshot.NewPgRepository(pool))
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Pricing, with an optional Redis read-through cache
	quoteRepo := pricing.NewPgQuoteRepository(pool)
	var cache *pricing.CachedQuotes
	if cfg.RedisAddr != "" {
		redisClient, err := pricing.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisClient.Close()
		cache = pricing.NewCachedQuotes(quoteRepo, redisClient, cfg.QuoteCacheTTL)
	} else {
		slog.Info("REDIS_ADDR not set, quote cache disabled")
	}
	coingecko := pricing.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax)
	pricingSvc := pricing.NewService(coingecko, quoteRepo, cache)

	// Stored quotes backfill provider tokens that arrive unpriced.
	snapshotSvc := newSnapshotService(cfg, pool, pricingSvc)
	navSvc := nav.NewService(nav.NewPgRepository(pool))

	// Optional monitoring sheet hook
	var hook worker.AfterSnapshotHook
	if cfg.SheetsSpreadsheetID != "" && cfg.SheetsCredentialsJSON != "" {
		writer, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsJSON)
		if err != nil {
			return fmt.Errorf("creating sheets writer: %w", err)
		}
		hook = export.NewService(writer)
	}

	quoteWorker := worker.NewQuoteWorker(pricingSvc, cfg.QuoteWorkerInterval)
	go quoteWorker.Run(ctx)

	if len(cfg.Wallets) > 0 {
		snapshotWorker := worker.NewSnapshotWorker(snapshotSvc, cfg.Wallets, cfg.SnapshotWorkerInterval, hook)
		go snapshotWorker.Run(ctx)
	} else {
		slog.Warn("WALLETS not set, snapshot worker disabled")
	}

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, mutating endpoints are unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, snapshotSvc, apy.NewEngine(), navSvc, cfg.AdminAPIKey)
	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func runSnapshot(c *cli.Context) error {
	ctx := c.Context
	cfg, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	snapshotSvc := newSnapshotService(cfg, pool, pricing.NewPgQuoteRepository(pool))
	now := time.Now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	snap, err := snapshotSvc.Generate(ctx, c.String("user"), c.String("wallet"), date)
	if err != nil {
		return fmt.Errorf("generating snapshot: %w", err)
	}
	fmt.Printf("snapshot %s %s: total $%.2f, %d tokens, %d positions\n",
		snap.WalletAddress, snap.Date.Format("2006-01-02"),
		snap.TotalValue, len(snap.Tokens), len(snap.Positions))
	return nil
}

func runNav(c *cli.Context) error {
	ctx := c.Context
	_, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	navSvc := nav.NewService(nav.NewPgRepository(pool))
	res, err := navSvc.CalculateMonth(ctx, c.String("user"), c.Int("year"), c.Int("month"),
		nav.Options{AllowPortfolioEstimate: c.Bool("estimate")})
	if err != nil {
		return fmt.Errorf("calculating nav: %w", err)
	}

	printLine := func(label string, v decimal.Decimal) {
		fmt.Printf("%-26s %s\n", label, v.StringFixed(2))
	}
	fmt.Printf("NAV %04d-%02d (prior source: %s)\n", res.Year, res.Month, res.PriorPreFeeNavSource)
	printLine("pre-fee NAV", res.PreFeeNav)
	printLine("performance", res.Performance)
	printLine("performance fee", res.PerformanceFee)
	printLine("accrued perf. fees", res.AccruedPerformanceFees)
	printLine("management fee", res.ManagementFee)
	printLine("net assets", res.NetAssets)
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

func runExport(c *cli.Context) error {
	ctx := c.Context
	cfg, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	user := c.String("user")
	year, month := c.Int("year"), c.Int("month")

	navSvc := nav.NewService(nav.NewPgRepository(pool))
	res, err := navSvc.GetResult(ctx, user, year, month)
	if err != nil {
		return fmt.Errorf("loading nav result for %04d-%02d: %w", year, month, err)
	}

	yields := map[string]apy.Result{}
	if wallet := c.String("wallet"); wallet != "" {
		snapshotSvc := newSnapshotService(cfg, pool, pricing.NewPgQuoteRepository(pool))
		monthEnd := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		current, err := snapshotSvc.GetAtOrBefore(ctx, user, wallet, monthEnd)
		if err != nil {
			return fmt.Errorf("loading snapshot for yield sheet: %w", err)
		}
		reference, err := snapshotSvc.GetLatestBefore(ctx, user, wallet, current.Date)
		if err != nil && !errors.Is(err, snapshot.ErrNotFound) {
			return fmt.Errorf("loading reference snapshot for yield sheet: %w", err)
		}
		yields = apy.NewEngine().Calculate(current, reference)
	}

	dir := c.String("out")
	if dir == "" {
		dir = cfg.ExportPath
	}
	path := export.MonthlyReportPath(dir, year, month)
	if err := export.WriteMonthlyReport(path, *res, yields); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
