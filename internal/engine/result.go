package engine

import (
	"time"

	"sevenms-engine/internal/market"
	"sevenms-engine/internal/plan"
	"sevenms-engine/internal/proposal"
	"sevenms-engine/internal/structure"
)

// Verdict is the outcome of one analysis run. Every verdict is a
// normal result; anything that stops a run with an error (data feed
// down, storage failure) surfaces as an error instead.
type Verdict string

const (
	// VerdictProposed means a full setup was found and a proposal is
	// waiting for review.
	VerdictProposed Verdict = "PROPOSED"
	// VerdictZeroSize means a setup was found but the sized volume
	// floored to zero. The proposal is still reviewable.
	VerdictZeroSize Verdict = "ZERO_SIZE"

	VerdictInsufficientData     Verdict = "INSUFFICIENT_DATA"
	VerdictNoSwings             Verdict = "NO_SWINGS"
	VerdictNoSweep              Verdict = "NO_SWEEP"
	VerdictTrendMismatch        Verdict = "TREND_MISMATCH"
	VerdictCandidateExpired     Verdict = "CANDIDATE_EXPIRED"
	VerdictCandidateInvalidated Verdict = "CANDIDATE_INVALIDATED"
	VerdictAwaitingShift        Verdict = "AWAITING_SHIFT"
	VerdictNoBreakLevel         Verdict = "NO_BREAK_LEVEL"
	VerdictZoneInvalid          Verdict = "ZONE_INVALID"
)

// Setup reports whether the run ended with a reviewable proposal
func (v Verdict) Setup() bool {
	return v == VerdictProposed || v == VerdictZeroSize
}

// Stage names the pipeline step a run stopped at
type Stage string

const (
	StageData  Stage = "data"
	StageSwing Stage = "swings"
	StageSweep Stage = "sweep"
	StageTrend Stage = "trend"
	StageShift Stage = "shift"
	StageZone  Stage = "zone"
	StagePlan  Stage = "plan"
	StageGate  Stage = "gate"
)

// Result carries everything one analysis run produced, including the
// intermediate structures so a reviewer can retrace the decision.
type Result struct {
	RunID      string                     `json:"run_id"`
	Symbol     string                     `json:"symbol"`
	Timeframe  market.Timeframe           `json:"timeframe"`
	Verdict    Verdict                    `json:"verdict"`
	Stage      Stage                      `json:"stage"`
	Detail     string                     `json:"detail,omitempty"`
	Swings     []structure.SwingPoint     `json:"swings,omitempty"`
	Sweep      *structure.LiquiditySweep  `json:"sweep,omitempty"`
	Shift      *structure.StructureShift  `json:"shift,omitempty"`
	POI        *structure.PointOfInterest `json:"poi,omitempty"`
	Plan       *plan.TradePlan            `json:"plan,omitempty"`
	Proposal   *proposal.Proposal         `json:"proposal,omitempty"`
	Imbalances []structure.FVG            `json:"imbalances,omitempty"`
	Narration  string                     `json:"narration,omitempty"`
	BarCount   int                        `json:"bar_count"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
}
