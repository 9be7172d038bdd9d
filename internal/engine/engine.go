package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sevenms-engine/internal/feed"
	"sevenms-engine/internal/market"
	"sevenms-engine/internal/plan"
	"sevenms-engine/internal/proposal"
	"sevenms-engine/internal/structure"
)

// Config holds the detection and sizing parameters for one engine.
// Point-denominated fields are converted to prices with the
// instrument's point size at analysis time.
type Config struct {
	SwingWindow             int
	SweepMinPoints          float64
	TwoCandleRejection      bool
	ShiftLookahead          int
	MinDisplacementPoints   float64
	DisplacementRangeFactor float64
	ZoneMode                string
	StopBufferPoints        float64
	RiskPercent             float64
	RewardMultiples         []float64
	BarCount                int
	MinGapPercent           float64
	TrendFilter             bool
	TrendTimeframe          market.Timeframe
}

// Engine runs the seven step market structure pipeline over one
// symbol and timeframe: swings, liquidity sweep, structure shift,
// point of interest, trade plan, proposal.
type Engine struct {
	cfg      Config
	provider feed.Provider
	gate     *proposal.Gate
	logger   zerolog.Logger
}

// NewEngine creates an analysis engine. The gate may be nil, in which
// case runs produce plans without submitting proposals.
func NewEngine(cfg Config, provider feed.Provider, gate *proposal.Gate, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		provider: provider,
		gate:     gate,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// Analyze fetches bars and walks the pipeline once. Every detection
// outcome, including "nothing found", returns a Result; only
// infrastructure failures return an error.
func (e *Engine) Analyze(ctx context.Context, inst market.Instrument, timeframe market.Timeframe, equity float64) (*Result, error) {
	return e.AnalyzeRun(ctx, uuid.New().String(), inst, timeframe, equity)
}

// AnalyzeRun is Analyze under a caller supplied run ID, so schedulers
// can announce the run before the data fetch begins.
func (e *Engine) AnalyzeRun(ctx context.Context, runID string, inst market.Instrument, timeframe market.Timeframe, equity float64) (*Result, error) {
	started := time.Now()

	count := e.cfg.BarCount
	if count <= 0 {
		count = feed.DefaultBarCount
	}

	bars, err := e.provider.GetBars(ctx, inst.Symbol, timeframe, count)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     runID,
		Symbol:    inst.Symbol,
		Timeframe: timeframe,
		BarCount:  len(bars),
		StartedAt: started,
	}

	swingDet := structure.NewSwingDetector(e.cfg.SwingWindow)
	if need := 2*swingDet.Window() + 1; len(bars) < need {
		return e.finish(res, VerdictInsufficientData, StageData,
			fmt.Sprintf("%d bars, need at least %d", len(bars), need)), nil
	}

	// Unfilled imbalances ride along on every result as review context.
	fvgDet := structure.NewFVGDetector(e.cfg.MinGapPercent)
	gaps := fvgDet.Detect(inst.Symbol, timeframe, bars)
	for i := range gaps {
		fvgDet.UpdateStatus(&gaps[i], bars)
	}
	res.Imbalances = fvgDet.Unfilled(gaps)

	res.Swings = swingDet.Detect(bars)
	if len(res.Swings) == 0 {
		return e.finish(res, VerdictNoSwings, StageSwing, "no confirmed swing points"), nil
	}

	sweepDet := structure.NewSweepDetector(inst.Points(e.cfg.SweepMinPoints), e.cfg.TwoCandleRejection)
	res.Sweep = sweepDet.Detect(bars, res.Swings)
	if res.Sweep == nil {
		return e.finish(res, VerdictNoSweep, StageSweep, "no liquidity sweep against a confirmed swing"), nil
	}

	if e.cfg.TrendFilter {
		bias, ok, err := e.trendBias(ctx, inst.Symbol, count)
		if err != nil {
			return nil, err
		}
		if ok && bias != res.Sweep.Direction {
			return e.finish(res, VerdictTrendMismatch, StageTrend,
				fmt.Sprintf("%s sweep against %s higher timeframe bias", res.Sweep.Direction, bias)), nil
		}
	}

	shiftVal := structure.NewShiftValidator(e.cfg.ShiftLookahead, e.minDisplacement(inst, bars), inst.Points(e.cfg.SweepMinPoints))
	shift, err := shiftVal.Validate(bars, res.Swings, res.Sweep)
	if err != nil {
		switch {
		case errors.Is(err, structure.ErrCandidateExpired):
			return e.finish(res, VerdictCandidateExpired, StageShift, err.Error()), nil
		case errors.Is(err, structure.ErrCandidateInvalidated):
			return e.finish(res, VerdictCandidateInvalidated, StageShift, err.Error()), nil
		case errors.Is(err, structure.ErrAwaitingBreak):
			return e.finish(res, VerdictAwaitingShift, StageShift, err.Error()), nil
		case errors.Is(err, structure.ErrNoBreakLevel):
			return e.finish(res, VerdictNoBreakLevel, StageShift, err.Error()), nil
		default:
			return nil, err
		}
	}
	res.Shift = shift

	mode, _ := structure.ParseZoneMode(e.cfg.ZoneMode)
	poi, err := structure.NewPOILocator(mode).Locate(bars, shift)
	if err != nil {
		if errors.Is(err, structure.ErrZoneInvalid) {
			return e.finish(res, VerdictZoneInvalid, StageZone, err.Error()), nil
		}
		return nil, err
	}
	res.POI = poi

	builder := plan.NewBuilder(e.cfg.RiskPercent, inst.Points(e.cfg.StopBufferPoints), e.cfg.RewardMultiples)
	tradePlan, err := builder.Build(inst, timeframe, shift, poi, equity)
	if err != nil {
		if errors.Is(err, plan.ErrInvalidLevels) {
			return e.finish(res, VerdictZoneInvalid, StagePlan, err.Error()), nil
		}
		return nil, err
	}
	res.Plan = tradePlan

	if e.gate != nil {
		prop, err := e.gate.Submit(ctx, res.RunID, tradePlan)
		if err != nil {
			return nil, err
		}
		res.Proposal = prop
	}

	verdict := VerdictProposed
	if tradePlan.ZeroSize() {
		verdict = VerdictZeroSize
	}
	return e.finish(res, verdict, StageGate, tradePlan.Reason), nil
}

// trendBias reads the higher timeframe order block flow. No blocks on
// the trend timeframe means no opinion and the filter stays open.
func (e *Engine) trendBias(ctx context.Context, symbol string, count int) (market.Direction, bool, error) {
	trendTf := e.cfg.TrendTimeframe
	if !trendTf.Valid() {
		trendTf = market.TimeframeH4
	}

	htfBars, err := e.provider.GetBars(ctx, symbol, trendTf, count)
	if err != nil {
		return "", false, err
	}

	blocks := structure.NewOrderBlockDetector().Detect(trendTf, htfBars)
	bias, ok := structure.TrendBias(blocks)
	return bias, ok, nil
}

func (e *Engine) minDisplacement(inst market.Instrument, bars []market.Bar) float64 {
	min := inst.Points(e.cfg.MinDisplacementPoints)
	if e.cfg.DisplacementRangeFactor > 0 {
		if adaptive := e.cfg.DisplacementRangeFactor * market.AverageRange(bars); adaptive > min {
			min = adaptive
		}
	}
	return min
}

func (e *Engine) finish(res *Result, verdict Verdict, stage Stage, detail string) *Result {
	res.Verdict = verdict
	res.Stage = stage
	res.Detail = detail
	res.FinishedAt = time.Now()

	e.logger.Info().
		Str("run_id", res.RunID).
		Str("symbol", res.Symbol).
		Str("timeframe", string(res.Timeframe)).
		Str("verdict", string(verdict)).
		Str("stage", string(stage)).
		Int("bars", res.BarCount).
		Msg("Analysis finished")

	return res
}
