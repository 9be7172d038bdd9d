package plan

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sevenms-engine/internal/market"
	"sevenms-engine/internal/structure"
)

// ErrInvalidLevels means entry and stop ended up on the wrong sides of
// each other, which a well-formed setup cannot produce
var ErrInvalidLevels = errors.New("stop loss is not beyond the entry")

// TradePlan is a fully specified limit order derived from a confirmed
// setup. A zero Size is a valid plan for an untradable volume; callers
// flag it instead of discarding it.
type TradePlan struct {
	ID           string           `json:"id"`
	Symbol       string           `json:"symbol"`
	Timeframe    market.Timeframe `json:"timeframe"`
	Direction    market.Direction `json:"direction"`
	Entry        float64          `json:"entry"`
	StopLoss     float64          `json:"stop_loss"`
	TakeProfits  []float64        `json:"take_profits"`
	Size         float64          `json:"size"`
	RiskAmount   float64          `json:"risk_amount"`
	RiskPerUnit  float64          `json:"risk_per_unit"`
	ZoneHigh     float64          `json:"zone_high"`
	ZoneLow      float64          `json:"zone_low"`
	SweepExtreme float64          `json:"sweep_extreme"`
	BreakLevel   float64          `json:"break_level"`
	Reason       string           `json:"reason"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ZeroSize reports whether the plan floored to an untradable volume
func (p *TradePlan) ZeroSize() bool {
	return p.Size <= 0
}

// Revise returns a copy of the plan under a fresh ID, used when a
// reviewer edit spawns a replacement proposal
func (p *TradePlan) Revise() *TradePlan {
	c := *p
	c.ID = uuid.New().String()
	c.TakeProfits = append([]float64(nil), p.TakeProfits...)
	c.CreatedAt = time.Now().UTC()
	return &c
}

// DefaultRiskPercent is the fraction of equity risked per trade
const DefaultRiskPercent = 1.0

var defaultRewards = []float64{2, 3}

// Builder turns a confirmed setup into a trade plan: limit entry at the
// zone edge, stop behind the sweep extreme, targets at fixed reward
// multiples of the risk distance.
type Builder struct {
	riskPercent float64
	stopBuffer  float64
	rewards     []float64
}

// NewBuilder creates a plan builder. riskPercent is the percentage of
// equity to risk (non-positive values fall back to the default);
// stopBuffer is the extra stop distance past the sweep extreme, in
// price units; rewards are the take profit multiples, nearest first.
func NewBuilder(riskPercent, stopBuffer float64, rewards []float64) *Builder {
	if riskPercent <= 0 {
		riskPercent = DefaultRiskPercent
	}
	if stopBuffer < 0 {
		stopBuffer = 0
	}
	if len(rewards) == 0 {
		rewards = defaultRewards
	}
	rs := make([]float64, len(rewards))
	copy(rs, rewards)
	return &Builder{
		riskPercent: riskPercent,
		stopBuffer:  stopBuffer,
		rewards:     rs,
	}
}

// Build prices the setup into a trade plan. The entry sits at the zone
// edge nearest to price, the stop behind the sweep extreme plus the
// buffer, and the size is the risk budget divided by the stop distance,
// floored to the instrument's lot step.
func (b *Builder) Build(inst market.Instrument, timeframe market.Timeframe, shift *structure.StructureShift, poi *structure.PointOfInterest, equity float64) (*TradePlan, error) {
	var entry, stop float64
	if shift.Direction == market.Bullish {
		entry = poi.ZoneHigh
		stop = shift.Sweep.Extreme - b.stopBuffer
	} else {
		entry = poi.ZoneLow
		stop = shift.Sweep.Extreme + b.stopBuffer
	}
	entry = inst.RoundPrice(entry)
	stop = inst.RoundPrice(stop)

	riskPerUnit := entry - stop
	if shift.Direction == market.Bearish {
		riskPerUnit = stop - entry
	}
	if riskPerUnit <= 0 {
		return nil, ErrInvalidLevels
	}

	var riskAmount float64
	if equity > 0 {
		riskAmount = equity * (b.riskPercent / 100)
	}
	var size float64
	if riskAmount > 0 {
		size = inst.FloorLot(riskAmount / riskPerUnit)
	}

	targets := make([]float64, 0, len(b.rewards))
	for _, m := range b.rewards {
		if shift.Direction == market.Bullish {
			targets = append(targets, inst.RoundPrice(entry+m*riskPerUnit))
		} else {
			targets = append(targets, inst.RoundPrice(entry-m*riskPerUnit))
		}
	}

	return &TradePlan{
		ID:           uuid.New().String(),
		Symbol:       inst.Symbol,
		Timeframe:    timeframe,
		Direction:    shift.Direction,
		Entry:        entry,
		StopLoss:     stop,
		TakeProfits:  targets,
		Size:         size,
		RiskAmount:   riskAmount,
		RiskPerUnit:  riskPerUnit,
		ZoneHigh:     poi.ZoneHigh,
		ZoneLow:      poi.ZoneLow,
		SweepExtreme: shift.Sweep.Extreme,
		BreakLevel:   shift.BreakLevel,
		Reason:       describe(shift, poi),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func describe(shift *structure.StructureShift, poi *structure.PointOfInterest) string {
	side := "buy"
	if shift.Direction == market.Bearish {
		side = "sell"
	}
	zone := string(poi.Mode)
	if poi.Degraded {
		zone = "degraded " + zone
	}
	return fmt.Sprintf("%s setup: swept %g, broke %g, %s zone %g-%g",
		side, shift.Sweep.Extreme, shift.BreakLevel, zone, poi.ZoneLow, poi.ZoneHigh)
}
