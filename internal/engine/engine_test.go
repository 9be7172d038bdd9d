package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"sevenms-engine/internal/feed"
	"sevenms-engine/internal/market"
	"sevenms-engine/internal/proposal"
)

func testInstrument() market.Instrument {
	return market.Instrument{Symbol: "XAUUSD", PointSize: 0.01, Digits: 2, MinLot: 0.25, LotStep: 0.25}
}

func testConfig() Config {
	return Config{
		SwingWindow:      2,
		ShiftLookahead:   10,
		ZoneMode:         "range",
		StopBufferPoints: 25,
		RiskPercent:      1,
		RewardMultiples:  []float64{2, 3},
		BarCount:         9,
	}
}

// setupBars is a full bullish sequence: swing high 102 at bar 2, swing
// low 100 at bar 4, a sweep wick to 99.5 at bar 7 and a displacement
// close through 102 at bar 8.
func setupBars() []market.Bar {
	return []market.Bar{
		{Time: 1, Open: 101.3, High: 101.8, Low: 100.9, Close: 101.6},
		{Time: 2, Open: 101.6, High: 101.9, Low: 101.1, Close: 101.4},
		{Time: 3, Open: 101.4, High: 102.0, Low: 100.8, Close: 101.2},
		{Time: 4, Open: 101.2, High: 101.3, Low: 100.3, Close: 100.5},
		{Time: 5, Open: 100.5, High: 100.9, Low: 100.0, Close: 100.4},
		{Time: 6, Open: 100.4, High: 101.0, Low: 100.2, Close: 100.8},
		{Time: 7, Open: 100.8, High: 101.2, Low: 100.4, Close: 101.0},
		{Time: 8, Open: 101.0, High: 101.1, Low: 99.5, Close: 100.3},
		{Time: 9, Open: 100.3, High: 102.6, Low: 100.2, Close: 102.5},
	}
}

func newTestEngine(cfg Config, provider feed.Provider) (*Engine, *proposal.Gate) {
	gate := proposal.NewGate(nil, nil, zerolog.Nop())
	return NewEngine(cfg, provider, gate, zerolog.Nop()), gate
}

func TestAnalyzeProposed(t *testing.T) {
	inst := testInstrument()
	provider := feed.NewMockProvider()
	provider.SetBars(inst.Symbol, market.TimeframeM15, setupBars())

	eng, gate := newTestEngine(testConfig(), provider)

	res, err := eng.Analyze(context.Background(), inst, market.TimeframeM15, 10000)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Verdict != VerdictProposed {
		t.Fatalf("expected PROPOSED, got %s at stage %s (%s)", res.Verdict, res.Stage, res.Detail)
	}
	if res.Stage != StageGate {
		t.Errorf("expected stage gate, got %s", res.Stage)
	}
	if len(res.Swings) != 2 {
		t.Fatalf("expected 2 swings, got %d", len(res.Swings))
	}
	if res.Sweep == nil || res.Sweep.BarIndex != 7 || res.Sweep.Extreme != 99.5 {
		t.Errorf("unexpected sweep %+v", res.Sweep)
	}
	if res.Shift == nil || res.Shift.BreakIndex != 8 || res.Shift.BreakLevel != 102 {
		t.Errorf("unexpected shift %+v", res.Shift)
	}
	if res.POI == nil || !res.POI.Degraded {
		t.Errorf("expected degraded sweep-bar zone, got %+v", res.POI)
	}

	if res.Plan == nil {
		t.Fatal("expected a trade plan")
	}
	if res.Plan.Entry != 101 || res.Plan.StopLoss != 99.25 {
		t.Errorf("unexpected levels entry=%v stop=%v", res.Plan.Entry, res.Plan.StopLoss)
	}
	if res.Plan.Size != 57 {
		t.Errorf("expected size 57, got %v", res.Plan.Size)
	}

	if res.Proposal == nil {
		t.Fatal("expected a submitted proposal")
	}
	if res.Proposal.Status != proposal.StatusPending {
		t.Errorf("expected pending proposal, got %s", res.Proposal.Status)
	}
	if _, err := gate.Get(res.Proposal.ID); err != nil {
		t.Errorf("proposal not registered with gate: %v", err)
	}
}

func TestAnalyzeZeroSize(t *testing.T) {
	inst := testInstrument()
	provider := feed.NewMockProvider()
	provider.SetBars(inst.Symbol, market.TimeframeM15, setupBars())

	eng, _ := newTestEngine(testConfig(), provider)

	res, err := eng.Analyze(context.Background(), inst, market.TimeframeM15, 40)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Verdict != VerdictZeroSize {
		t.Fatalf("expected ZERO_SIZE, got %s (%s)", res.Verdict, res.Detail)
	}
	if res.Plan == nil || res.Plan.Size != 0 {
		t.Errorf("expected zero volume plan, got %+v", res.Plan)
	}
	if res.Proposal == nil || !res.Proposal.ZeroSize {
		t.Errorf("expected proposal flagged zero size, got %+v", res.Proposal)
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	inst := testInstrument()
	provider := feed.NewMockProvider()
	provider.SetBars(inst.Symbol, market.TimeframeM15, setupBars()[:3])

	eng, _ := newTestEngine(testConfig(), provider)

	res, err := eng.Analyze(context.Background(), inst, market.TimeframeM15, 10000)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Verdict != VerdictInsufficientData {
		t.Fatalf("expected INSUFFICIENT_DATA, got %s", res.Verdict)
	}
	if res.Stage != StageData {
		t.Errorf("expected stage data, got %s", res.Stage)
	}
	if res.BarCount != 3 {
		t.Errorf("expected 3 bars recorded, got %d", res.BarCount)
	}
}

func TestAnalyzeNoSweep(t *testing.T) {
	inst := testInstrument()
	provider := feed.NewMockProvider()
	provider.SetBars(inst.Symbol, market.TimeframeM15, setupBars()[:7])

	eng, _ := newTestEngine(testConfig(), provider)

	res, err := eng.Analyze(context.Background(), inst, market.TimeframeM15, 10000)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Verdict != VerdictNoSweep {
		t.Fatalf("expected NO_SWEEP, got %s", res.Verdict)
	}
	if len(res.Swings) != 2 {
		t.Errorf("expected swings before the missing sweep, got %d", len(res.Swings))
	}
	if res.Proposal != nil {
		t.Error("no proposal expected without a setup")
	}
}

func TestAnalyzeAwaitingShift(t *testing.T) {
	inst := testInstrument()
	provider := feed.NewMockProvider()
	provider.SetBars(inst.Symbol, market.TimeframeM15, setupBars()[:8])

	eng, _ := newTestEngine(testConfig(), provider)

	res, err := eng.Analyze(context.Background(), inst, market.TimeframeM15, 10000)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Verdict != VerdictAwaitingShift {
		t.Fatalf("expected AWAITING_SHIFT, got %s (%s)", res.Verdict, res.Detail)
	}
	if res.Stage != StageShift {
		t.Errorf("expected stage shift, got %s", res.Stage)
	}
	if res.Sweep == nil || res.Sweep.BarIndex != 7 {
		t.Errorf("sweep should be recorded while waiting, got %+v", res.Sweep)
	}
}

func TestAnalyzeCandidateExpired(t *testing.T) {
	bars := setupBars()[:8]
	bars = append(bars,
		market.Bar{Time: 9, Open: 100.3, High: 100.6, Low: 99.3, Close: 99.8},
		market.Bar{Time: 10, Open: 99.8, High: 100.0, Low: 99.1, Close: 99.4},
	)

	inst := testInstrument()
	provider := feed.NewMockProvider()
	provider.SetBars(inst.Symbol, market.TimeframeM15, bars)

	cfg := testConfig()
	cfg.ShiftLookahead = 2
	cfg.BarCount = len(bars)

	eng, _ := newTestEngine(cfg, provider)

	res, err := eng.Analyze(context.Background(), inst, market.TimeframeM15, 10000)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Verdict != VerdictCandidateExpired {
		t.Fatalf("expected CANDIDATE_EXPIRED, got %s (%s)", res.Verdict, res.Detail)
	}
	if res.Stage != StageShift {
		t.Errorf("expected stage shift, got %s", res.Stage)
	}
}

func TestAnalyzeTrendMismatch(t *testing.T) {
	inst := testInstrument()
	provider := feed.NewMockProvider()
	provider.SetBars(inst.Symbol, market.TimeframeM15, setupBars())

	// Higher timeframe prints a bearish order block against the
	// bullish sweep.
	provider.SetBars(inst.Symbol, market.TimeframeH4, []market.Bar{
		{Time: 10, Open: 100.0, High: 100.5, Low: 99.8, Close: 100.4},
		{Time: 20, Open: 100.4, High: 100.6, Low: 99.0, Close: 99.2},
		{Time: 30, Open: 99.2, High: 99.5, Low: 98.8, Close: 99.0},
	})

	cfg := testConfig()
	cfg.TrendFilter = true
	cfg.TrendTimeframe = market.TimeframeH4

	eng, _ := newTestEngine(cfg, provider)

	res, err := eng.Analyze(context.Background(), inst, market.TimeframeM15, 10000)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Verdict != VerdictTrendMismatch {
		t.Fatalf("expected TREND_MISMATCH, got %s (%s)", res.Verdict, res.Detail)
	}
	if res.Stage != StageTrend {
		t.Errorf("expected stage trend, got %s", res.Stage)
	}
}

type failingProvider struct{}

func (failingProvider) GetBars(ctx context.Context, symbol string, timeframe market.Timeframe, count int) ([]market.Bar, error) {
	return nil, fmt.Errorf("%w: bridge offline", feed.ErrDataUnavailable)
}

func (failingProvider) GetInstrument(ctx context.Context, symbol string) (*market.Instrument, error) {
	return nil, fmt.Errorf("%w: bridge offline", feed.ErrDataUnavailable)
}

func TestAnalyzeDataUnavailable(t *testing.T) {
	eng, _ := newTestEngine(testConfig(), failingProvider{})

	res, err := eng.Analyze(context.Background(), testInstrument(), market.TimeframeM15, 10000)
	if !errors.Is(err, feed.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	if res != nil {
		t.Errorf("no result expected on feed failure, got %+v", res)
	}
}

func TestVerdictSetup(t *testing.T) {
	if !VerdictProposed.Setup() || !VerdictZeroSize.Setup() {
		t.Error("proposal verdicts should count as setups")
	}
	if VerdictNoSweep.Setup() || VerdictCandidateExpired.Setup() {
		t.Error("no-setup verdicts should not count as setups")
	}
}
