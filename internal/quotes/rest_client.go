// Package quotes supplies market prices from the Binance public market-data
// endpoints. It is the external quote collaborator of the core: read-only,
// unauthenticated, and never used to place orders.
package quotes

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"coinladder/internal/config"
)

const (
	baseURL        = "https://api.binance.com/api/v3"
	testnetBaseURL = "https://testnet.binance.vision/api/v3"
)

// Client defines the quote source interface consumed by the watcher and the
// API layer.
type Client interface {
	Ping(ctx context.Context) error
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetAllPrices(ctx context.Context) (map[string]decimal.Decimal, error)
}

// RestClient is a rate-limited resty client for the ticker endpoints.
// It implements the Client interface.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure RestClient implements the interface
var _ Client = (*RestClient)(nil)

// NewRestClient creates a new market quote client.
func NewRestClient(cfg *config.Quotes, logger *zap.Logger) *RestClient {
	var url string
	if cfg.Testnet {
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet for quotes")
	} else {
		url = baseURL
	}

	client := resty.New().SetBaseURL(url)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// Ping checks connectivity against the server time endpoint.
func (c *RestClient) Ping(ctx context.Context) error {
	type serverTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}

	req := c.client.R().SetResult(&serverTimeResponse{})
	if _, err := c.doRequest(ctx, "GET", "/time", req); err != nil {
		return fmt.Errorf("quote source unreachable: %w", err)
	}
	return nil
}

// tickerPrice represents the response for a single ticker price.
type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetPrice fetches the latest price for one symbol.
func (c *RestClient) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var ticker tickerPrice
	req := c.client.R().
		SetResult(&ticker).
		SetQueryParam("symbol", symbol)

	if _, err := c.doRequest(ctx, "GET", "/ticker/price", req); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get price for %s: %w", symbol, err)
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse price %q for %s: %w", ticker.Price, symbol, err)
	}
	return price, nil
}

// GetAllPrices fetches the latest price for all symbols.
func (c *RestClient) GetAllPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	var tickers []*tickerPrice
	req := c.client.R().
		SetResult(&tickers).
		SetHeader("Content-Type", "application/json")

	if _, err := c.doRequest(ctx, "GET", "/ticker/price", req); err != nil {
		return nil, fmt.Errorf("failed to get ticker prices: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(tickers))
	for _, t := range tickers {
		price, err := decimal.NewFromString(t.Price)
		if err != nil {
			c.logger.Warn("Skipping unparseable ticker price",
				zap.String("symbol", t.Symbol), zap.String("price", t.Price))
			continue
		}
		prices[t.Symbol] = price
	}
	return prices, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.SetContext(ctx).Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 { // HTTP 429 or 418
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
