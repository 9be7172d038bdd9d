package structure

import (
	"sevenms-engine/internal/market"
)

// LiquiditySweep records a raid of the most recent swing point: a bar
// whose wick traded beyond the swing price and whose close reversed
// back through it. A bullish sweep takes a swing low, a bearish sweep
// takes a swing high.
type LiquiditySweep struct {
	Direction market.Direction `json:"direction"`
	Swing     SwingPoint       `json:"swing"`
	BarIndex  int              `json:"bar_index"`
	Extreme   float64          `json:"extreme"`
	Time      int64            `json:"time"`
}

// SweepDetector checks the most recent swing high and swing low for a
// qualifying raid. Older swing points are never re-evaluated.
type SweepDetector struct {
	minExcess float64
	twoCandle bool
}

// NewSweepDetector creates a sweep detector. minExcess is the minimum
// distance, in price units, the wick must trade beyond the swing price.
// twoCandleRejection additionally accepts the two-bar variant where a
// small-bodied bar closes through the level and the next bar rejects
// back inside; with it disabled only same-bar wick-and-reject qualifies.
func NewSweepDetector(minExcess float64, twoCandleRejection bool) *SweepDetector {
	if minExcess < 0 {
		minExcess = 0
	}
	return &SweepDetector{minExcess: minExcess, twoCandle: twoCandleRejection}
}

// Detect returns the current sweep candidate, or nil when no swing has
// been raided. When both directions hold a qualifying bar, the later
// sweeping bar wins; a tie on the same bar resolves by that bar's close
// direction.
func (sd *SweepDetector) Detect(bars []market.Bar, swings []SwingPoint) *LiquiditySweep {
	var bullish, bearish *LiquiditySweep
	if low := lastSwing(swings, SwingLow); low != nil {
		bullish = sd.scanLow(bars, *low)
	}
	if high := lastSwing(swings, SwingHigh); high != nil {
		bearish = sd.scanHigh(bars, *high)
	}

	switch {
	case bullish == nil:
		return bearish
	case bearish == nil:
		return bullish
	case bullish.BarIndex > bearish.BarIndex:
		return bullish
	case bearish.BarIndex > bullish.BarIndex:
		return bearish
	default:
		// Same bar raided both sides; read the close for intent
		if bars[bullish.BarIndex].Bullish() {
			return bullish
		}
		return bearish
	}
}

// scanLow finds the latest bar after the swing that raids its low
func (sd *SweepDetector) scanLow(bars []market.Bar, sw SwingPoint) *LiquiditySweep {
	var found *LiquiditySweep
	for j := sw.Index + 1; j < len(bars); j++ {
		b := bars[j]
		if b.Low >= sw.Price || sw.Price-b.Low < sd.minExcess {
			continue
		}
		if b.Close > sw.Price {
			found = &LiquiditySweep{
				Direction: market.Bullish,
				Swing:     sw,
				BarIndex:  j,
				Extreme:   b.Low,
				Time:      b.Time,
			}
			continue
		}
		if sd.twoCandle && j+1 < len(bars) && rejectionPairUp(b, bars[j+1], sw.Price) {
			found = &LiquiditySweep{
				Direction: market.Bullish,
				Swing:     sw,
				BarIndex:  j,
				Extreme:   b.Low,
				Time:      b.Time,
			}
		}
	}
	return found
}

// scanHigh finds the latest bar after the swing that raids its high
func (sd *SweepDetector) scanHigh(bars []market.Bar, sw SwingPoint) *LiquiditySweep {
	var found *LiquiditySweep
	for j := sw.Index + 1; j < len(bars); j++ {
		b := bars[j]
		if b.High <= sw.Price || b.High-sw.Price < sd.minExcess {
			continue
		}
		if b.Close < sw.Price {
			found = &LiquiditySweep{
				Direction: market.Bearish,
				Swing:     sw,
				BarIndex:  j,
				Extreme:   b.High,
				Time:      b.Time,
			}
			continue
		}
		if sd.twoCandle && j+1 < len(bars) && rejectionPairDown(b, bars[j+1], sw.Price) {
			found = &LiquiditySweep{
				Direction: market.Bearish,
				Swing:     sw,
				BarIndex:  j,
				Extreme:   b.High,
				Time:      b.Time,
			}
		}
	}
	return found
}

// rejectionPairUp is the two-bar bullish variant: the raiding bar closes
// at or below the swept low with a body no more than 30% of its range,
// and the next bar closes back above the level with a body of at least
// 40% of its range.
func rejectionPairUp(raid, next market.Bar, level float64) bool {
	if raid.Close > level {
		return false
	}
	if raid.Range() <= 0 || raid.Body() > 0.3*raid.Range() {
		return false
	}
	if !next.Bullish() || next.Close <= level {
		return false
	}
	return next.Range() > 0 && next.Body() >= 0.4*next.Range()
}

func rejectionPairDown(raid, next market.Bar, level float64) bool {
	if raid.Close < level {
		return false
	}
	if raid.Range() <= 0 || raid.Body() > 0.3*raid.Range() {
		return false
	}
	if !next.Bearish() || next.Close >= level {
		return false
	}
	return next.Range() > 0 && next.Body() >= 0.4*next.Range()
}
