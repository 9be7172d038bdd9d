package market

import "time"

// Direction represents the directional read of a setup or bar sequence
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
)

// Opposite returns the inverse direction
func (d Direction) Opposite() Direction {
	if d == Bullish {
		return Bearish
	}
	return Bullish
}

// Bar represents a single OHLC bar as delivered by the terminal bridge.
// Field names follow the MT5 rates payload.
type Bar struct {
	Time   int64   `json:"time"` // bar open time, unix seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"tick_volume"`
	Spread int     `json:"spread"`
}

// Timestamp returns the bar open time as time.Time
func (b Bar) Timestamp() time.Time {
	return time.Unix(b.Time, 0).UTC()
}

// Bullish reports whether the bar closed above its open
func (b Bar) Bullish() bool {
	return b.Close > b.Open
}

// Bearish reports whether the bar closed below its open
func (b Bar) Bearish() bool {
	return b.Close < b.Open
}

// Body returns the absolute open-to-close distance
func (b Bar) Body() float64 {
	if b.Close >= b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

// BodyLow and BodyHigh bound the open/close extent of the bar
func (b Bar) BodyLow() float64 {
	if b.Open < b.Close {
		return b.Open
	}
	return b.Close
}

func (b Bar) BodyHigh() float64 {
	if b.Open > b.Close {
		return b.Open
	}
	return b.Close
}

// Range returns the high-to-low distance
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// AverageRange returns the mean high-to-low range over the given bars.
// Returns 0 for an empty slice.
func AverageRange(bars []Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var sum float64
	for _, b := range bars {
		sum += b.Range()
	}
	return sum / float64(len(bars))
}
