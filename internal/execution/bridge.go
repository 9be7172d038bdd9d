package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sevenms-engine/internal/market"
	"sevenms-engine/internal/plan"
)

// DefaultMagic tags every order the engine places so bridge-side
// position queries can tell them apart from manual trades.
const DefaultMagic = 7777

// BridgeExecutor places orders through the MT5 bridge HTTP API.
// Unlike the data feed there is no retry layer here: resending a
// timed-out order request can double-fill.
type BridgeExecutor struct {
	baseURL    string
	httpClient *http.Client
	magic      int
	logger     zerolog.Logger
}

// BridgeExecutorOptions configures the bridge order client
type BridgeExecutorOptions struct {
	BaseURL        string
	RequestTimeout time.Duration
	Magic          int
}

// NewBridgeExecutor creates an executor talking to the MT5 bridge
func NewBridgeExecutor(opts BridgeExecutorOptions, logger zerolog.Logger) *BridgeExecutor {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Magic == 0 {
		opts.Magic = DefaultMagic
	}

	return &BridgeExecutor{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.RequestTimeout},
		magic:      opts.Magic,
		logger:     logger.With().Str("component", "bridge_executor").Logger(),
	}
}

var _ Executor = (*BridgeExecutor)(nil)

type orderRequest struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Magic      int     `json:"magic"`
	Comment    string  `json:"comment"`
}

type orderResponse struct {
	Retcode int    `json:"retcode"`
	Order   int64  `json:"order"`
	Deal    int64  `json:"deal"`
	Comment string `json:"comment"`
}

// SubmitOrder places a limit order at the plan's entry with its stop
// and first take profit attached. Returns the bridge order ticket.
func (be *BridgeExecutor) SubmitOrder(ctx context.Context, p *plan.TradePlan) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: no plan", ErrExecutionFailure)
	}
	if p.Size <= 0 {
		return "", fmt.Errorf("%w: %s", ErrExecutionFailure, RetcodeDescription(RetcodeInvalidVolume))
	}

	side := "BUY_LIMIT"
	if p.Direction == market.Bearish {
		side = "SELL_LIMIT"
	}

	var takeProfit float64
	if len(p.TakeProfits) > 0 {
		takeProfit = p.TakeProfits[0]
	}

	req := orderRequest{
		Symbol:     p.Symbol,
		Side:       side,
		Volume:     p.Size,
		Price:      p.Entry,
		StopLoss:   p.StopLoss,
		TakeProfit: takeProfit,
		Magic:      be.magic,
		Comment:    "7ms",
	}

	var resp orderResponse
	if err := be.postJSON(ctx, "/order", req, &resp); err != nil {
		return "", err
	}
	if !RetcodeSuccess(resp.Retcode) {
		return "", fmt.Errorf("%w: retcode %d: %s", ErrExecutionFailure, resp.Retcode, RetcodeDescription(resp.Retcode))
	}

	ticket := fmt.Sprintf("%d", resp.Order)
	be.logger.Info().
		Str("symbol", p.Symbol).
		Str("side", side).
		Float64("volume", p.Size).
		Float64("price", p.Entry).
		Str("ticket", ticket).
		Int("retcode", resp.Retcode).
		Msg("Order placed")

	return ticket, nil
}

// ClosePosition closes the position or pending order behind a ticket
func (be *BridgeExecutor) ClosePosition(ctx context.Context, orderID string) error {
	req := struct {
		Ticket string `json:"ticket"`
	}{Ticket: orderID}

	var resp orderResponse
	if err := be.postJSON(ctx, "/close", req, &resp); err != nil {
		return err
	}
	if !RetcodeSuccess(resp.Retcode) {
		return fmt.Errorf("%w: retcode %d: %s", ErrExecutionFailure, resp.Retcode, RetcodeDescription(resp.Retcode))
	}

	be.logger.Info().Str("ticket", orderID).Msg("Position closed")
	return nil
}

// OpenPositions lists positions the bridge currently reports
func (be *BridgeExecutor) OpenPositions(ctx context.Context) ([]Position, error) {
	var resp struct {
		Positions []Position `json:"positions"`
	}
	if err := be.getJSON(ctx, "/positions", &resp); err != nil {
		return nil, err
	}
	return resp.Positions, nil
}

// AccountInfo returns the broker account snapshot
func (be *BridgeExecutor) AccountInfo(ctx context.Context) (*Account, error) {
	var acc Account
	if err := be.getJSON(ctx, "/account", &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (be *BridgeExecutor) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrExecutionFailure, path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, be.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build %s: %v", ErrExecutionFailure, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return be.do(req, path, out)
}

func (be *BridgeExecutor) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, be.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build %s: %v", ErrExecutionFailure, path, err)
	}
	return be.do(req, path, out)
}

func (be *BridgeExecutor) do(req *http.Request, path string, out interface{}) error {
	resp, err := be.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExecutionFailure, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: status %d: %s", ErrExecutionFailure, path, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrExecutionFailure, path, err)
	}
	return nil
}
