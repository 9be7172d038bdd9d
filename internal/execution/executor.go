package execution

import (
	"context"
	"errors"

	"sevenms-engine/internal/market"
	"sevenms-engine/internal/plan"
)

// ErrExecutionFailure means the broker refused or failed an order
// operation. The proposal keeps its reviewed state so the failure can
// be inspected and resubmitted deliberately.
var ErrExecutionFailure = errors.New("order execution failed")

// Position is an open position as reported by the broker
type Position struct {
	Ticket     string           `json:"ticket"`
	Symbol     string           `json:"symbol"`
	Direction  market.Direction `json:"direction"`
	Volume     float64          `json:"volume"`
	OpenPrice  float64          `json:"open_price"`
	StopLoss   float64          `json:"stop_loss"`
	TakeProfit float64          `json:"take_profit"`
	Profit     float64          `json:"profit"`
	OpenedAt   int64            `json:"time"`
}

// Account is the broker account snapshot used for sizing and display
type Account struct {
	Login      string  `json:"login"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"margin_free"`
	Currency   string  `json:"currency"`
}

// Executor places and manages orders for approved proposals. Order
// calls are never retried internally; a failure surfaces so the
// reviewer decides what happens next.
type Executor interface {
	SubmitOrder(ctx context.Context, p *plan.TradePlan) (string, error)
	ClosePosition(ctx context.Context, orderID string) error
	OpenPositions(ctx context.Context) ([]Position, error)
	AccountInfo(ctx context.Context) (*Account, error)
}
