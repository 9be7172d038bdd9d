package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sevenms-engine/internal/engine"
	"sevenms-engine/internal/market"
	"sevenms-engine/internal/plan"
	"sevenms-engine/internal/structure"
)

func TestBuildRunPrompt(t *testing.T) {
	res := &engine.Result{
		RunID:     "run-1",
		Symbol:    "XAUUSD",
		Timeframe: market.TimeframeM15,
		Verdict:   engine.VerdictProposed,
		Stage:     engine.StageGate,
		BarCount:  500,
		Swings: []structure.SwingPoint{
			{Kind: structure.SwingHigh, Index: 2, Price: 102},
			{Kind: structure.SwingLow, Index: 4, Price: 100},
		},
		Sweep: &structure.LiquiditySweep{
			Direction: market.Bullish,
			Swing:     structure.SwingPoint{Kind: structure.SwingLow, Index: 4, Price: 100},
			BarIndex:  7,
			Extreme:   99.5,
		},
		Shift: &structure.StructureShift{
			Direction:    market.Bullish,
			BreakLevel:   102,
			BreakIndex:   8,
			Displacement: 0.5,
		},
		POI: &structure.PointOfInterest{
			Direction: market.Bullish,
			ZoneHigh:  101,
			ZoneLow:   100.3,
			Mode:      structure.ZoneRange,
			Degraded:  true,
		},
		Plan: &plan.TradePlan{
			Direction:   market.Bullish,
			Entry:       101,
			StopLoss:    99.25,
			Size:        0.5,
			TakeProfits: []float64{104.5, 106.25},
			CreatedAt:   time.Unix(1700000000, 0),
		},
	}

	prompt := BuildRunPrompt(res)

	for _, want := range []string{"XAUUSD", "15M", "PROPOSED", "99.5", "102", "101", "99.25"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildRunPromptNoSetup(t *testing.T) {
	res := &engine.Result{
		Symbol:    "EURUSD",
		Timeframe: market.TimeframeH1,
		Verdict:   engine.VerdictNoSweep,
		Stage:     engine.StageSweep,
		Detail:    "no liquidity sweep against a confirmed swing",
		BarCount:  500,
	}

	prompt := BuildRunPrompt(res)
	if !strings.Contains(prompt, "NO_SWEEP") || !strings.Contains(prompt, "sweep") {
		t.Errorf("prompt should carry the stopping step:\n%s", prompt)
	}
	if strings.Contains(prompt, "Plan:") {
		t.Errorf("no plan section expected without a plan:\n%s", prompt)
	}
}

func TestNarrateRunNotConfigured(t *testing.T) {
	n := NewNarrator(nil, zerolog.Nop())

	_, err := n.NarrateRun(context.Background(), &engine.Result{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	unkeyed := NewNarrator(NewClient(&ClientConfig{Provider: ProviderClaude}), zerolog.Nop())
	if unkeyed.Enabled() {
		t.Error("narrator without an API key should be disabled")
	}
}
