package structure

import (
	"errors"

	"sevenms-engine/internal/market"
)

// Validation outcomes that end a candidate without a structure shift.
// These are normal no-setup results, not faults.
var (
	ErrCandidateExpired     = errors.New("sweep candidate expired without structure break")
	ErrCandidateInvalidated = errors.New("sweep candidate invalidated by opposite sweep")
	ErrAwaitingBreak        = errors.New("confirmation window still open at end of data")
	ErrNoBreakLevel         = errors.New("no opposite swing available to break")
)

// StructureShift is a confirmed market structure shift: after a sweep,
// a bar closed beyond the nearest opposite swing with the required
// displacement inside the confirmation window.
type StructureShift struct {
	Direction    market.Direction `json:"direction"`
	Sweep        LiquiditySweep   `json:"sweep"`
	BrokenSwing  SwingPoint       `json:"broken_swing"`
	BreakLevel   float64          `json:"break_level"`
	BreakIndex   int              `json:"break_index"`
	Displacement float64          `json:"displacement"`
	Time         int64            `json:"time"`
}

// ShiftValidator confirms or retires a sweep candidate.
type ShiftValidator struct {
	lookahead       int
	minDisplacement float64
	sweepExcess     float64
}

// DefaultShiftLookahead is the number of bars a candidate stays valid after its sweep
const DefaultShiftLookahead = 10

// NewShiftValidator creates a validator. lookahead values below 1 fall
// back to the default; minDisplacement is the minimum close excess
// beyond the broken level, in price units; sweepExcess mirrors the
// sweep detector's threshold and is used to spot opposite raids that
// retire the candidate.
func NewShiftValidator(lookahead int, minDisplacement, sweepExcess float64) *ShiftValidator {
	if lookahead <= 0 {
		lookahead = DefaultShiftLookahead
	}
	if minDisplacement < 0 {
		minDisplacement = 0
	}
	if sweepExcess < 0 {
		sweepExcess = 0
	}
	return &ShiftValidator{
		lookahead:       lookahead,
		minDisplacement: minDisplacement,
		sweepExcess:     sweepExcess,
	}
}

// Validate scans forward from the sweep bar for the first close beyond
// the nearest opposite swing. The first qualifying bar wins. An
// opposite-direction raid arriving first returns ErrCandidateInvalidated;
// a fully elapsed window returns ErrCandidateExpired; running out of
// bars mid-window returns ErrAwaitingBreak. Expired candidates are
// never retried within a run.
func (sv *ShiftValidator) Validate(bars []market.Bar, swings []SwingPoint, sweep *LiquiditySweep) (*StructureShift, error) {
	opposite := SwingHigh
	if sweep.Direction == market.Bearish {
		opposite = SwingLow
	}
	target := lastSwingBefore(swings, opposite, sweep.BarIndex)
	if target == nil {
		return nil, ErrNoBreakLevel
	}

	level := target.Price
	end := sweep.BarIndex + sv.lookahead
	for j := sweep.BarIndex + 1; j < len(bars) && j <= end; j++ {
		b := bars[j]
		if sweep.Direction == market.Bullish {
			if b.Close > level && b.Close-level >= sv.minDisplacement {
				return &StructureShift{
					Direction:    market.Bullish,
					Sweep:        *sweep,
					BrokenSwing:  *target,
					BreakLevel:   level,
					BreakIndex:   j,
					Displacement: b.Close - level,
					Time:         b.Time,
				}, nil
			}
			if b.High > level && b.High-level >= sv.sweepExcess && b.Close < level {
				return nil, ErrCandidateInvalidated
			}
		} else {
			if b.Close < level && level-b.Close >= sv.minDisplacement {
				return &StructureShift{
					Direction:    market.Bearish,
					Sweep:        *sweep,
					BrokenSwing:  *target,
					BreakLevel:   level,
					BreakIndex:   j,
					Displacement: level - b.Close,
					Time:         b.Time,
				}, nil
			}
			if b.Low < level && level-b.Low >= sv.sweepExcess && b.Close > level {
				return nil, ErrCandidateInvalidated
			}
		}
	}

	if end < len(bars) {
		return nil, ErrCandidateExpired
	}
	return nil, ErrAwaitingBreak
}
