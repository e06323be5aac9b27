// Package coingecko fetches spot prices from the CoinGecko simple price API.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rewired-gh/quickodds/internal/models"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrRateLimited is returned for HTTP 429 responses.
var ErrRateLimited = errors.New("rate limited")

// ClientConfig holds optional client tuning.
type ClientConfig struct {
	VsCurrency    string
	APIKey        string
	RatePerMinute int // 0 disables client-side limiting
	RateBurst     int
}

// Client provides access to the CoinGecko API
type Client struct {
	baseURL    string
	vsCurrency string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new CoinGecko client. A zero timeout keeps the
// http.Client default (no timeout).
func NewClient(baseURL string, timeout time.Duration, cfg ClientConfig) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = "usd"
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerMinute > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		vsCurrency: strings.ToLower(cfg.VsCurrency),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// FetchSpotPrice returns the current price of one asset in the configured currency.
// Transport, status and decode failures wrap models.ErrFeedUnavailable; a
// missing, zero or negative price wraps models.ErrInvalidSample.
func (c *Client) FetchSpotPrice(ctx context.Context, assetID string) (float64, error) {
	prices, err := c.FetchSpotPrices(ctx, []string{assetID})
	if err != nil {
		return 0, err
	}
	p, ok := prices[assetID]
	if !ok {
		return 0, fmt.Errorf("%w: no price for %s", models.ErrInvalidSample, assetID)
	}
	if err := models.ValidatePrice(p); err != nil {
		return 0, fmt.Errorf("%s: %w", assetID, err)
	}
	return p, nil
}

// FetchSpotPrices returns prices for several assets in one request. Assets
// the API does not know are omitted from the result.
func (c *Client) FetchSpotPrices(ctx context.Context, assetIDs []string) (map[string]float64, error) {
	if len(assetIDs) == 0 {
		return map[string]float64{}, nil
	}

	u, err := url.Parse(c.baseURL + "/simple/price")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("ids", strings.Join(assetIDs, ","))
	q.Set("vs_currencies", c.vsCurrency)
	u.RawQuery = q.Encode()

	var body map[string]map[string]json.Number
	if err := c.get(ctx, u.String(), &body); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(body))
	for id, quote := range body {
		raw, ok := quote[c.vsCurrency]
		if !ok {
			continue
		}
		p, err := raw.Float64()
		if err != nil {
			continue
		}
		prices[id] = p
	}
	return prices, nil
}

// get performs a single rate-limited GET and decodes the JSON body into out.
// It does not retry: the poller's next tick is the retry.
func (c *Client) get(ctx context.Context, urlStr string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", models.ErrFeedUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", models.ErrFeedUnavailable, ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: status %d: %s", models.ErrFeedUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", models.ErrFeedUnavailable, err)
	}
	return nil
}
