package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"sevenms-engine/internal/market"
)

// DefaultBarCount is the window fetched when the caller does not say
const DefaultBarCount = 500

// BridgeClient fetches bars and symbol metadata from the terminal
// bridge, a small HTTP sidecar in front of the trading terminal.
// Requests are rate limited and retried with exponential backoff.
type BridgeClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
	logger     zerolog.Logger
}

// BridgeOptions holds options for creating a bridge client
type BridgeOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryElapsed time.Duration
}

// NewBridgeClient creates a bridge client with sane defaults
func NewBridgeClient(opts BridgeOptions, logger zerolog.Logger) *BridgeClient {
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryElapsed == 0 {
		opts.MaxRetryElapsed = 30 * time.Second
	}

	return &BridgeClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.RequestTimeout,
		},
		limiter:    rate.NewLimiter(rate.Every(time.Second), opts.RequestsPerSec),
		maxElapsed: opts.MaxRetryElapsed,
		logger:     logger.With().Str("component", "bridge_client").Logger(),
	}
}

var _ Provider = (*BridgeClient)(nil)

type barsResponse struct {
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"timeframe"`
	Bars      []market.Bar `json:"bars"`
}

// GetBars fetches the most recent bars for a symbol and timeframe
func (c *BridgeClient) GetBars(ctx context.Context, symbol string, timeframe market.Timeframe, count int) ([]market.Bar, error) {
	if count <= 0 {
		count = DefaultBarCount
	}

	endpoint := fmt.Sprintf("%s/bars?symbol=%s&timeframe=%s&count=%d",
		c.baseURL, url.QueryEscape(symbol), timeframe, count)

	var payload barsResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("%w: bars %s %s: %v", ErrDataUnavailable, symbol, timeframe, err)
	}
	if len(payload.Bars) == 0 {
		return nil, fmt.Errorf("%w: bars %s %s: empty response", ErrDataUnavailable, symbol, timeframe)
	}

	bars := Normalize(payload.Bars)
	c.logger.Debug().
		Str("symbol", symbol).
		Str("timeframe", string(timeframe)).
		Int("count", len(bars)).
		Msg("fetched bars")
	return bars, nil
}

// GetInstrument fetches symbol metadata from the bridge
func (c *BridgeClient) GetInstrument(ctx context.Context, symbol string) (*market.Instrument, error) {
	endpoint := fmt.Sprintf("%s/instrument?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	var inst market.Instrument
	if err := c.getJSON(ctx, endpoint, &inst); err != nil {
		return nil, fmt.Errorf("%w: instrument %s: %v", ErrDataUnavailable, symbol, err)
	}
	if inst.Symbol == "" {
		inst.Symbol = symbol
	}
	return &inst, nil
}

// getJSON performs a rate limited GET with retries and decodes the body
func (c *BridgeClient) getJSON(ctx context.Context, endpoint string, v interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			// Client errors will not improve on retry
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}

		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %v", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}
