package structure

import (
	"sevenms-engine/internal/market"
)

// SwingKind distinguishes swing highs from swing lows
type SwingKind string

const (
	SwingHigh SwingKind = "HIGH"
	SwingLow  SwingKind = "LOW"
)

// SwingPoint is a confirmed structural extreme in a bar window
type SwingPoint struct {
	Kind  SwingKind `json:"kind"`
	Index int       `json:"index"`
	Price float64   `json:"price"`
	Time  int64     `json:"time"`
}

// SwingDetector finds fractal swing points using a symmetric window:
// a bar is a swing high when its high is the strict maximum of the
// window bars on each side, mirrored for lows.
type SwingDetector struct {
	window int
}

// DefaultSwingWindow is the number of bars checked on each side of a candidate
const DefaultSwingWindow = 2

// NewSwingDetector creates a swing detector. Window values below 1 fall
// back to the default.
func NewSwingDetector(window int) *SwingDetector {
	if window <= 0 {
		window = DefaultSwingWindow
	}
	return &SwingDetector{window: window}
}

// Window returns the configured per-side window size
func (sd *SwingDetector) Window() int {
	return sd.window
}

// Detect returns the alternating swing sequence for the given bars.
// Windows shorter than 2*window+1 bars produce an empty result, not an
// error. Equal extremes resolve to the earliest bar; consecutive
// candidates of the same kind reduce to the most extreme one, so the
// output alternates between highs and lows.
func (sd *SwingDetector) Detect(bars []market.Bar) []SwingPoint {
	w := sd.window
	if len(bars) < 2*w+1 {
		return nil
	}

	var candidates []SwingPoint
	for i := w; i < len(bars)-w; i++ {
		if sd.isSwingHigh(bars, i) {
			candidates = append(candidates, SwingPoint{
				Kind:  SwingHigh,
				Index: i,
				Price: bars[i].High,
				Time:  bars[i].Time,
			})
		}
		if sd.isSwingLow(bars, i) {
			candidates = append(candidates, SwingPoint{
				Kind:  SwingLow,
				Index: i,
				Price: bars[i].Low,
				Time:  bars[i].Time,
			})
		}
	}

	return reduceAlternating(candidates)
}

func (sd *SwingDetector) isSwingHigh(bars []market.Bar, i int) bool {
	h := bars[i].High
	for j := i - sd.window; j <= i+sd.window; j++ {
		if j == i {
			continue
		}
		if bars[j].High > h {
			return false
		}
		// An equal high earlier in the window claims the swing
		if bars[j].High == h && j < i {
			return false
		}
	}
	return true
}

func (sd *SwingDetector) isSwingLow(bars []market.Bar, i int) bool {
	l := bars[i].Low
	for j := i - sd.window; j <= i+sd.window; j++ {
		if j == i {
			continue
		}
		if bars[j].Low < l {
			return false
		}
		if bars[j].Low == l && j < i {
			return false
		}
	}
	return true
}

// reduceAlternating collapses runs of same-kind candidates to the most
// extreme point of the run
func reduceAlternating(points []SwingPoint) []SwingPoint {
	var out []SwingPoint
	for _, p := range points {
		if len(out) == 0 {
			out = append(out, p)
			continue
		}
		last := &out[len(out)-1]
		if last.Kind != p.Kind {
			out = append(out, p)
			continue
		}
		if p.Kind == SwingHigh && p.Price > last.Price {
			*last = p
		} else if p.Kind == SwingLow && p.Price < last.Price {
			*last = p
		}
	}
	return out
}

// lastSwing returns the most recent swing of the given kind, or nil
func lastSwing(swings []SwingPoint, kind SwingKind) *SwingPoint {
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].Kind == kind {
			s := swings[i]
			return &s
		}
	}
	return nil
}

// lastSwingBefore returns the most recent swing of the given kind whose
// bar index is strictly before the given index, or nil
func lastSwingBefore(swings []SwingPoint, kind SwingKind, index int) *SwingPoint {
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].Kind == kind && swings[i].Index < index {
			s := swings[i]
			return &s
		}
	}
	return nil
}
