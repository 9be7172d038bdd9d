package structure

import (
	"fmt"
	"time"

	"sevenms-engine/internal/market"
)

// FVG represents an untraded fair value gap left by a displacement
type FVG struct {
	ID          string           `json:"id"`
	Symbol      string           `json:"symbol"`
	Timeframe   market.Timeframe `json:"timeframe"`
	Kind        market.Direction `json:"kind"`
	Top         float64          `json:"top"`
	Bottom      float64          `json:"bottom"`
	Index       int              `json:"index"`
	Time        int64            `json:"time"`
	Filled      bool             `json:"filled"`
	FilledAt    *int64           `json:"filled_at,omitempty"`
	FilledPrice *float64         `json:"filled_price,omitempty"`
}

// FVGDetector detects fair value gaps in bar data
type FVGDetector struct {
	minGapPercent float64 // Minimum gap size as percentage
}

// NewFVGDetector creates a new FVG detector
func NewFVGDetector(minGapPercent float64) *FVGDetector {
	if minGapPercent <= 0 {
		minGapPercent = 0.1 // Default 0.1% minimum gap
	}
	return &FVGDetector{
		minGapPercent: minGapPercent,
	}
}

// Detect identifies all fair value gaps in the given bars
func (fd *FVGDetector) Detect(symbol string, timeframe market.Timeframe, bars []market.Bar) []FVG {
	if len(bars) < 3 {
		return nil
	}

	var gaps []FVG

	// A gap needs 3 consecutive bars; the middle one creates it
	for i := 0; i < len(bars)-2; i++ {
		c1 := bars[i]
		c2 := bars[i+1]
		c3 := bars[i+2]

		// Bullish gap: first high never overlaps third low
		if c1.High < c3.Low {
			gapSize := ((c3.Low - c1.High) / c1.High) * 100

			if gapSize >= fd.minGapPercent {
				gaps = append(gaps, FVG{
					ID:        gapID(symbol, timeframe, i),
					Symbol:    symbol,
					Timeframe: timeframe,
					Kind:      market.Bullish,
					Top:       c3.Low,
					Bottom:    c1.High,
					Index:     i,
					Time:      c2.Time,
				})
			}
		}

		// Bearish gap: first low never overlaps third high
		if c1.Low > c3.High {
			gapSize := ((c1.Low - c3.High) / c3.High) * 100

			if gapSize >= fd.minGapPercent {
				gaps = append(gaps, FVG{
					ID:        gapID(symbol, timeframe, i),
					Symbol:    symbol,
					Timeframe: timeframe,
					Kind:      market.Bearish,
					Top:       c1.Low,
					Bottom:    c3.High,
					Index:     i,
					Time:      c2.Time,
				})
			}
		}
	}

	return gaps
}

// Contains checks whether a price sits inside the gap zone
func (fd *FVGDetector) Contains(price float64, gap FVG) bool {
	return price >= gap.Bottom && price <= gap.Top
}

// UpdateStatus marks a gap filled once price trades back into it
func (fd *FVGDetector) UpdateStatus(gap *FVG, bars []market.Bar) {
	if gap.Filled {
		return
	}

	for _, b := range bars {
		if gap.Kind == market.Bullish {
			// Price must come back down into the gap
			if b.Low <= gap.Top && b.Low >= gap.Bottom {
				gap.Filled = true
				at := b.Time
				gap.FilledAt = &at
				price := b.Low
				gap.FilledPrice = &price
				return
			}
		} else {
			// Price must come back up into the gap
			if b.High >= gap.Bottom && b.High <= gap.Top {
				gap.Filled = true
				at := b.Time
				gap.FilledAt = &at
				price := b.High
				gap.FilledPrice = &price
				return
			}
		}
	}
}

// Unfilled returns only gaps price has not yet traded into
func (fd *FVGDetector) Unfilled(gaps []FVG) []FVG {
	var out []FVG
	for _, g := range gaps {
		if !g.Filled {
			out = append(out, g)
		}
	}
	return out
}

func gapID(symbol string, timeframe market.Timeframe, index int) string {
	return fmt.Sprintf("%s_%s_%d_%d", symbol, timeframe, index, time.Now().Unix())
}
