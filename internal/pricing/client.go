package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SymbolMapping maps tracked token symbols to CoinGecko IDs.
var SymbolMapping = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDC": "usd-coin",
	"USDT": "tether",
	"DAI":  "dai",
	"AAVE": "aave",
	"CRV":  "curve-dao-token",
	"UNI":  "uniswap",
	"LDO":  "lido-dao",
}

// CoinGeckoClient fetches spot prices from the CoinGecko API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
}

// NewCoinGeckoClient creates a new CoinGecko API client.
func NewCoinGeckoClient(baseURL string, delay time.Duration, maxRetries int) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// FetchPrices fetches USD prices for all configured symbols.
// Returns a map of symbol -> priceInUSD.
func (c *CoinGeckoClient) FetchPrices(ctx context.Context) (map[string]float64, error) {
	uniqueIDs := make(map[string]bool)
	for _, id := range SymbolMapping {
		uniqueIDs[id] = true
	}

	ids := make([]string, 0, len(uniqueIDs))
	for id := range uniqueIDs {
		ids = append(ids, id)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, strings.Join(ids, ","))

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	// Parse: {"bitcoin":{"usd":45000},"ethereum":{"usd":2500},...}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing CoinGecko response: %w", err)
	}

	result := make(map[string]float64)
	for symbol, coinID := range SymbolMapping {
		prices, ok := raw[coinID]
		if !ok {
			continue
		}
		result[symbol] = prices["usd"]
	}

	return result, nil
}

func (c *CoinGeckoClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinGecko request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("CoinGecko request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading CoinGecko response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("CoinGecko returned %d, retrying", resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("CoinGecko returned %d: %s", resp.StatusCode, body)
		}
	}
	return nil, fmt.Errorf("CoinGecko request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
