package market

import (
	"fmt"
	"time"
)

// Timeframe identifies a bar interval. Values match the terminal bridge naming.
type Timeframe string

const (
	TimeframeM1  Timeframe = "1M"
	TimeframeM15 Timeframe = "15M"
	TimeframeH1  Timeframe = "1H"
	TimeframeH4  Timeframe = "4H"
	TimeframeD1  Timeframe = "D1"
)

var timeframeDurations = map[Timeframe]time.Duration{
	TimeframeM1:  time.Minute,
	TimeframeM15: 15 * time.Minute,
	TimeframeH1:  time.Hour,
	TimeframeH4:  4 * time.Hour,
	TimeframeD1:  24 * time.Hour,
}

// ParseTimeframe validates a timeframe string
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeDurations[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Duration returns the bar interval length, or 0 for an unknown timeframe
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// Valid reports whether the timeframe is one of the supported intervals
func (tf Timeframe) Valid() bool {
	_, ok := timeframeDurations[tf]
	return ok
}
