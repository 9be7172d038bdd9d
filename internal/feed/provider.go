package feed

import (
	"context"
	"errors"
	"sort"

	"sevenms-engine/internal/market"
)

// ErrDataUnavailable means the market data source could not serve the
// request. Analysis runs fail on it rather than read a partial picture.
var ErrDataUnavailable = errors.New("market data unavailable")

// Provider serves bar history and instrument metadata for analysis runs
type Provider interface {
	GetBars(ctx context.Context, symbol string, timeframe market.Timeframe, count int) ([]market.Bar, error)
	GetInstrument(ctx context.Context, symbol string) (*market.Instrument, error)
}

// Normalize sorts bars by open time and collapses duplicate timestamps,
// keeping the later entry. Terminal feeds occasionally resend the
// forming bar.
func Normalize(bars []market.Bar) []market.Bar {
	if len(bars) < 2 {
		return bars
	}
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time < bars[j].Time
	})
	out := bars[:0:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time == b.Time {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
