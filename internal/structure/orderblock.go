package structure

import (
	"sevenms-engine/internal/market"
)

// OrderBlockRole classifies how a block is expected to behave when
// price revisits it
type OrderBlockRole string

const (
	RoleReversal     OrderBlockRole = "REVERSAL"
	RoleContinuation OrderBlockRole = "CONTINUATION"
)

// OrderBlock is the last opposing candle before a displacement that
// gapped away from it
type OrderBlock struct {
	Kind   market.Direction `json:"kind"`
	Top    float64          `json:"top"`
	Bottom float64          `json:"bottom"`
	Index  int              `json:"index"`
	Time   int64            `json:"time"`
	Role   OrderBlockRole   `json:"role"`
}

// OrderBlockDetector finds displacement order blocks in bar data
type OrderBlockDetector struct{}

// NewOrderBlockDetector creates a new order block detector
func NewOrderBlockDetector() *OrderBlockDetector {
	return &OrderBlockDetector{}
}

// Detect identifies order blocks: an opposing candle, a close through
// its extreme, and follow-through that never trades back into it. On
// H4 and D1 the blocks mark reversal zones; below that they mark
// continuation zones.
func (od *OrderBlockDetector) Detect(timeframe market.Timeframe, bars []market.Bar) []OrderBlock {
	if len(bars) < 3 {
		return nil
	}

	role := RoleContinuation
	if timeframe == market.TimeframeH4 || timeframe == market.TimeframeD1 {
		role = RoleReversal
	}

	var blocks []OrderBlock
	for i := 1; i < len(bars)-1; i++ {
		prev := bars[i-1]
		cur := bars[i]
		nxt := bars[i+1]

		if prev.Bearish() && cur.Bullish() && cur.Close > prev.High && nxt.Low > prev.High {
			blocks = append(blocks, OrderBlock{
				Kind:   market.Bullish,
				Top:    prev.High,
				Bottom: prev.Low,
				Index:  i - 1,
				Time:   prev.Time,
				Role:   role,
			})
		}

		if prev.Bullish() && cur.Bearish() && cur.Close < prev.Low && nxt.High < prev.Low {
			blocks = append(blocks, OrderBlock{
				Kind:   market.Bearish,
				Top:    prev.High,
				Bottom: prev.Low,
				Index:  i - 1,
				Time:   prev.Time,
				Role:   role,
			})
		}
	}

	return blocks
}

// TrendBias reports the direction of the most recent block. The second
// return is false when no blocks exist to read a bias from.
func TrendBias(blocks []OrderBlock) (market.Direction, bool) {
	if len(blocks) == 0 {
		return "", false
	}
	return blocks[len(blocks)-1].Kind, true
}
