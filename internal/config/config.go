package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment
// variables, with an optional .env file for local development.
type Config struct {
	DatabaseURL string
	RedisAddr   string

	ProviderURL        string
	ProviderAPIKey     string
	ProviderRateLimit  float64
	ProviderRetryMax   int
	ProviderRetryDelay time.Duration

	CoinGeckoURL      string
	CoinGeckoDelay    time.Duration
	CoinGeckoRetryMax int

	QuoteCacheTTL          time.Duration
	QuoteWorkerInterval    time.Duration
	SnapshotWorkerInterval time.Duration

	// Wallets to snapshot periodically, as "userID:address" pairs.
	Wallets []Wallet

	HTTPPort    string
	AdminAPIKey string

	SheetsSpreadsheetID   string
	SheetsCredentialsJSON string

	// ExportPath is the directory monthly report workbooks are written to.
	ExportPath string
}

// Wallet identifies one tracked wallet for the snapshot worker.
type Wallet struct {
	UserID  string
	Address string
}

// Load reads configuration from the environment with sensible defaults. A
// .env file in the working directory is loaded first if present.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	return Config{
		DatabaseURL: envOrDefaultWarn("DATABASE_URL", ""),
		RedisAddr:   envOrDefault("REDIS_ADDR", ""),

		ProviderURL:        envOrDefault("PROVIDER_URL", "https://pro-openapi.debank.com"),
		ProviderAPIKey:     envOrDefault("PROVIDER_API_KEY", ""),
		ProviderRateLimit:  envOrDefaultFloat("PROVIDER_RATE_LIMIT", 2),
		ProviderRetryMax:   envOrDefaultInt("PROVIDER_RETRY_MAX", 3),
		ProviderRetryDelay: envOrDefaultDuration("PROVIDER_RETRY_DELAY", 2*time.Second),

		CoinGeckoURL:      envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoDelay:    envOrDefaultDuration("COINGECKO_DELAY", 6*time.Second),
		CoinGeckoRetryMax: envOrDefaultInt("COINGECKO_RETRY_MAX", 5),

		QuoteCacheTTL:          envOrDefaultDuration("QUOTE_CACHE_TTL", 10*time.Minute),
		QuoteWorkerInterval:    envOrDefaultDuration("QUOTE_WORKER_INTERVAL", 1*time.Hour),
		SnapshotWorkerInterval: envOrDefaultDuration("SNAPSHOT_WORKER_INTERVAL", 24*time.Hour),

		Wallets: parseWallets(envOrDefault("WALLETS", "")),

		HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey: envOrDefault("ADMIN_API_KEY", ""),

		SheetsSpreadsheetID:   envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsJSON: envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
		ExportPath:            envOrDefault("EXPORT_PATH", "."),
	}
}

// parseWallets parses a comma-separated list of userID:address pairs.
// Malformed entries are skipped with a warning.
func parseWallets(raw string) []Wallet {
	if raw == "" {
		return nil
	}
	var wallets []Wallet
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		userID, address, ok := strings.Cut(entry, ":")
		if !ok || userID == "" || address == "" {
			slog.Warn("skipping malformed wallet entry, expected userID:address", "entry", entry)
			continue
		}
		wallets = append(wallets, Wallet{UserID: userID, Address: address})
	}
	return wallets
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
