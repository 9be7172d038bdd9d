package structure

import (
	"errors"

	"sevenms-engine/internal/market"
)

// ErrZoneInvalid means the computed zone fell outside the band between
// the sweep extreme and the break level. The candidate is dropped
// rather than clamped.
var ErrZoneInvalid = errors.New("poi zone outside the sweep-to-break band")

// ZoneMode selects how the entry zone is derived from the source bar
type ZoneMode string

const (
	ZoneRange     ZoneMode = "range"
	ZoneImbalance ZoneMode = "imbalance"
)

// ParseZoneMode validates a zone mode string, defaulting to range
func ParseZoneMode(s string) (ZoneMode, error) {
	switch ZoneMode(s) {
	case ZoneRange, "":
		return ZoneRange, nil
	case ZoneImbalance:
		return ZoneImbalance, nil
	default:
		return "", errors.New("zone mode must be \"range\" or \"imbalance\"")
	}
}

// PointOfInterest is the entry zone behind a confirmed structure shift
type PointOfInterest struct {
	Direction   market.Direction `json:"direction"`
	ZoneHigh    float64          `json:"zone_high"`
	ZoneLow     float64          `json:"zone_low"`
	SourceIndex int              `json:"source_index"`
	Mode        ZoneMode         `json:"mode"`
	Degraded    bool             `json:"degraded"`
	Time        int64            `json:"time"`
}

// POILocator derives the point of interest for a structure shift: the
// last bar closing against the displacement direction inside the leg
// from sweep to break.
type POILocator struct {
	mode ZoneMode
}

// NewPOILocator creates a locator. Unknown modes fall back to range.
func NewPOILocator(mode ZoneMode) *POILocator {
	if mode != ZoneImbalance {
		mode = ZoneRange
	}
	return &POILocator{mode: mode}
}

// Locate computes the entry zone for a confirmed shift. In range mode
// the zone is the source bar's full extent; in imbalance mode it is the
// untraded gap the displacement left after the source bar, falling back
// to range when no gap exists. A leg with no opposing bar degrades to
// the sweep bar's body. The zone must sit strictly between the sweep
// extreme and the break level or the setup is invalid.
func (pl *POILocator) Locate(bars []market.Bar, shift *StructureShift) (*PointOfInterest, error) {
	sweepIdx := shift.Sweep.BarIndex
	dir := shift.Direction

	src := -1
	for j := shift.BreakIndex - 1; j > sweepIdx; j-- {
		if (dir == market.Bullish && bars[j].Bearish()) ||
			(dir == market.Bearish && bars[j].Bullish()) {
			src = j
			break
		}
	}

	poi := &PointOfInterest{Direction: dir, Mode: pl.mode}
	if src == -1 {
		// No opposing bar in the leg: fall back to the sweep bar's
		// body. Its full range would contain the sweep extreme and
		// could never satisfy the band check below.
		sb := bars[sweepIdx]
		poi.ZoneLow = sb.BodyLow()
		poi.ZoneHigh = sb.BodyHigh()
		poi.SourceIndex = sweepIdx
		poi.Mode = ZoneRange
		poi.Degraded = true
		poi.Time = sb.Time
	} else {
		b := bars[src]
		poi.SourceIndex = src
		poi.Time = b.Time
		poi.ZoneLow = b.Low
		poi.ZoneHigh = b.High
		if pl.mode == ZoneImbalance {
			hi, lo, ok := imbalanceZone(bars, src, shift.BreakIndex, dir)
			if ok {
				poi.ZoneHigh = hi
				poi.ZoneLow = lo
			} else {
				poi.Mode = ZoneRange
			}
		}
	}

	if poi.ZoneHigh <= poi.ZoneLow {
		return nil, ErrZoneInvalid
	}
	if dir == market.Bullish {
		if poi.ZoneLow <= shift.Sweep.Extreme || poi.ZoneHigh >= shift.BreakLevel {
			return nil, ErrZoneInvalid
		}
	} else {
		if poi.ZoneHigh >= shift.Sweep.Extreme || poi.ZoneLow <= shift.BreakLevel {
			return nil, ErrZoneInvalid
		}
	}
	return poi, nil
}

// imbalanceZone returns the fair value gap opened by the two bars after
// the source bar, when the trio completes inside the displacement leg
func imbalanceZone(bars []market.Bar, src, breakIdx int, dir market.Direction) (hi, lo float64, ok bool) {
	if src+2 > breakIdx {
		return 0, 0, false
	}
	c1 := bars[src]
	c3 := bars[src+2]
	if dir == market.Bullish && c1.High < c3.Low {
		return c3.Low, c1.High, true
	}
	if dir == market.Bearish && c1.Low > c3.High {
		return c1.Low, c3.High, true
	}
	return 0, 0, false
}
