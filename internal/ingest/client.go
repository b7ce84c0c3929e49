package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client fetches raw wallet portfolios from the upstream position provider
// (a DeBank-style aggregation API). Requests are rate limited and retried
// with exponential backoff.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a provider API client. requestsPerSecond bounds outbound
// request rate across all callers of this client.
func NewClient(baseURL, apiKey string, requestsPerSecond float64, maxRetries int, retryDelay time.Duration) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// FetchPortfolio retrieves the current raw portfolio for a wallet address.
func (c *Client) FetchPortfolio(ctx context.Context, wallet string) (providerPortfolio, error) {
	url := fmt.Sprintf("%s/v1/wallet/%s/portfolio", c.baseURL, wallet)

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return providerPortfolio{}, err
	}

	var raw providerPortfolio
	if err := json.Unmarshal(body, &raw); err != nil {
		return providerPortfolio{}, fmt.Errorf("parsing provider response: %w", err)
	}
	return raw, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.retryDelay
			if baseDelay == 0 {
				baseDelay = 2 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating provider request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("provider request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading provider response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("provider returned %d, retrying", resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, body)
		}
	}
	return nil, fmt.Errorf("provider request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
