package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sevenms-engine/internal/market"
	"sevenms-engine/internal/plan"
)

func paperPlan(size float64) *plan.TradePlan {
	return &plan.TradePlan{
		ID:          "plan-1",
		Symbol:      "XAUUSD",
		Timeframe:   market.TimeframeM15,
		Direction:   market.Bullish,
		Entry:       101,
		StopLoss:    99.25,
		TakeProfits: []float64{104.5, 106.25},
		Size:        size,
		CreatedAt:   time.Unix(1700000000, 0),
	}
}

func TestPaperSubmitAndClose(t *testing.T) {
	pe := NewPaperExecutor(10000, zerolog.Nop())
	ctx := context.Background()

	ticket, err := pe.SubmitOrder(ctx, paperPlan(0.5))
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if ticket != "paper-1" {
		t.Errorf("expected ticket paper-1, got %s", ticket)
	}

	positions, err := pe.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(positions))
	}
	pos := positions[0]
	if pos.Symbol != "XAUUSD" || pos.Direction != market.Bullish {
		t.Errorf("unexpected position %+v", pos)
	}
	if pos.Volume != 0.5 || pos.OpenPrice != 101 || pos.StopLoss != 99.25 {
		t.Errorf("unexpected position levels %+v", pos)
	}
	if pos.TakeProfit != 104.5 {
		t.Errorf("expected first take profit 104.5, got %v", pos.TakeProfit)
	}

	if err := pe.ClosePosition(ctx, ticket); err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}
	positions, _ = pe.OpenPositions(ctx)
	if len(positions) != 0 {
		t.Errorf("expected no open positions after close, got %d", len(positions))
	}

	if err := pe.ClosePosition(ctx, ticket); !errors.Is(err, ErrExecutionFailure) {
		t.Errorf("expected ErrExecutionFailure closing twice, got %v", err)
	}
}

func TestPaperRejectsZeroVolume(t *testing.T) {
	pe := NewPaperExecutor(10000, zerolog.Nop())

	_, err := pe.SubmitOrder(context.Background(), paperPlan(0))
	if !errors.Is(err, ErrExecutionFailure) {
		t.Fatalf("expected ErrExecutionFailure for zero volume, got %v", err)
	}
}

func TestPaperAccountInfo(t *testing.T) {
	pe := NewPaperExecutor(2500, zerolog.Nop())

	acc, err := pe.AccountInfo(context.Background())
	if err != nil {
		t.Fatalf("AccountInfo: %v", err)
	}
	if acc.Balance != 2500 || acc.Equity != 2500 {
		t.Errorf("expected equity 2500, got %+v", acc)
	}

	def := NewPaperExecutor(0, zerolog.Nop())
	acc, _ = def.AccountInfo(context.Background())
	if acc.Equity != 10000 {
		t.Errorf("expected default equity 10000, got %v", acc.Equity)
	}
}

func TestRetcodeDescription(t *testing.T) {
	if desc := RetcodeDescription(RetcodeNoMoney); desc != "There is not enough money to complete the request" {
		t.Errorf("unexpected description for 10019: %s", desc)
	}
	if desc := RetcodeDescription(99999); desc != "Unknown return code" {
		t.Errorf("unexpected description for unknown code: %s", desc)
	}
}

func TestRetcodeSuccess(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{RetcodePlaced, true},
		{RetcodeDone, true},
		{RetcodeDonePartial, true},
		{RetcodeRequote, false},
		{RetcodeNoMoney, false},
		{RetcodeMarketClosed, false},
	}

	for _, tt := range tests {
		if got := RetcodeSuccess(tt.code); got != tt.want {
			t.Errorf("RetcodeSuccess(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
