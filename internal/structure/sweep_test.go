package structure

import (
	"testing"

	"sevenms-engine/internal/market"
)

// TestBullishSweep tests the wick-and-reject raid of a swing low
func TestBullishSweep(t *testing.T) {
	detector := NewSweepDetector(0.1, false)

	bars := []market.Bar{
		{Time: 1, Open: 100.6, High: 100.9, Low: 100.2, Close: 100.4},
		{Time: 2, Open: 100.4, High: 100.7, Low: 100.1, Close: 100.3},
		// Swing low at 100
		{Time: 3, Open: 100.3, High: 100.5, Low: 100, Close: 100.2},
		{Time: 4, Open: 100.2, High: 100.6, Low: 100.1, Close: 100.5},
		// Raid: wick to 99.5, close back above the level
		{Time: 5, Open: 100.1, High: 100.4, Low: 99.5, Close: 100.3},
	}
	swings := []SwingPoint{{Kind: SwingLow, Index: 2, Price: 100, Time: 3}}

	sweep := detector.Detect(bars, swings)

	if sweep == nil {
		t.Fatal("Expected a sweep, got nil")
	}
	if sweep.Direction != market.Bullish {
		t.Errorf("Expected bullish sweep, got %s", sweep.Direction)
	}
	if sweep.BarIndex != 4 {
		t.Errorf("Expected sweep at bar 4, got %d", sweep.BarIndex)
	}
	if sweep.Extreme != 99.5 {
		t.Errorf("Expected sweep extreme 99.5, got %f", sweep.Extreme)
	}
	if sweep.Swing.Price != 100 {
		t.Errorf("Expected swept swing price 100, got %f", sweep.Swing.Price)
	}
}

// TestCloseBeyondIsNotASweep tests that a bar closing past the level
// does not qualify as a raid
func TestCloseBeyondIsNotASweep(t *testing.T) {
	detector := NewSweepDetector(0.1, false)

	bars := []market.Bar{
		{Time: 1, Open: 100.6, High: 100.9, Low: 100.2, Close: 100.4},
		{Time: 2, Open: 100.3, High: 100.5, Low: 100, Close: 100.2},
		// Breaks down and stays down: acceptance, not a raid
		{Time: 3, Open: 100.2, High: 100.3, Low: 99.4, Close: 99.6},
	}
	swings := []SwingPoint{{Kind: SwingLow, Index: 1, Price: 100, Time: 2}}

	if sweep := detector.Detect(bars, swings); sweep != nil {
		t.Errorf("Expected no sweep for a close beyond the level, got %+v", sweep)
	}
}

// TestSweepMinExcess tests the minimum wick excess threshold
func TestSweepMinExcess(t *testing.T) {
	detector := NewSweepDetector(0.1, false)

	bars := []market.Bar{
		{Time: 1, Open: 100.6, High: 100.9, Low: 100.2, Close: 100.4},
		{Time: 2, Open: 100.3, High: 100.5, Low: 100, Close: 100.2},
		// Wick only 0.05 beyond the level
		{Time: 3, Open: 100.2, High: 100.4, Low: 99.95, Close: 100.3},
	}
	swings := []SwingPoint{{Kind: SwingLow, Index: 1, Price: 100, Time: 2}}

	if sweep := detector.Detect(bars, swings); sweep != nil {
		t.Errorf("Expected no sweep below the excess threshold, got %+v", sweep)
	}
}

// TestLatestSweepWins tests that the most recent raid supersedes an
// earlier one in the other direction
func TestLatestSweepWins(t *testing.T) {
	detector := NewSweepDetector(0.1, false)

	bars := []market.Bar{
		{Time: 1, Open: 101, High: 102, Low: 100.5, Close: 101.5},
		// Swing low at 100
		{Time: 2, Open: 101.5, High: 101.8, Low: 100, Close: 101},
		// Swing high at 104
		{Time: 3, Open: 101, High: 104, Low: 100.8, Close: 103},
		// Bullish raid of the low
		{Time: 4, Open: 103, High: 103.2, Low: 99.4, Close: 100.5},
		{Time: 5, Open: 100.5, High: 102, Low: 100.3, Close: 101.8},
		// Later bearish raid of the high
		{Time: 6, Open: 101.8, High: 104.7, Low: 101.5, Close: 103.6},
	}
	swings := []SwingPoint{
		{Kind: SwingLow, Index: 1, Price: 100, Time: 2},
		{Kind: SwingHigh, Index: 2, Price: 104, Time: 3},
	}

	sweep := detector.Detect(bars, swings)

	if sweep == nil {
		t.Fatal("Expected a sweep, got nil")
	}
	if sweep.Direction != market.Bearish {
		t.Errorf("Expected the later bearish sweep to win, got %s", sweep.Direction)
	}
	if sweep.BarIndex != 5 {
		t.Errorf("Expected sweep at bar 5, got %d", sweep.BarIndex)
	}
	if sweep.Extreme != 104.7 {
		t.Errorf("Expected sweep extreme 104.7, got %f", sweep.Extreme)
	}
}

// TestTwoCandleRejection tests the optional two-bar raid variant
func TestTwoCandleRejection(t *testing.T) {
	bars := []market.Bar{
		{Time: 1, Open: 100.6, High: 100.9, Low: 100.2, Close: 100.4},
		{Time: 2, Open: 100.3, High: 100.5, Low: 100, Close: 100.2},
		// Raid bar: closes below the level with a small body
		{Time: 3, Open: 99.95, High: 100.05, Low: 99.2, Close: 99.9},
		// Rejection bar: strong close back above the level
		{Time: 4, Open: 100.05, High: 100.8, Low: 100, Close: 100.6},
	}
	swings := []SwingPoint{{Kind: SwingLow, Index: 1, Price: 100, Time: 2}}

	strict := NewSweepDetector(0.1, false)
	if sweep := strict.Detect(bars, swings); sweep != nil {
		t.Errorf("Expected no sweep with two-candle rejection disabled, got %+v", sweep)
	}

	relaxed := NewSweepDetector(0.1, true)
	sweep := relaxed.Detect(bars, swings)
	if sweep == nil {
		t.Fatal("Expected a two-candle sweep, got nil")
	}
	if sweep.Direction != market.Bullish {
		t.Errorf("Expected bullish sweep, got %s", sweep.Direction)
	}
	if sweep.BarIndex != 2 {
		t.Errorf("Expected sweep anchored at the raid bar 2, got %d", sweep.BarIndex)
	}
	if sweep.Extreme != 99.2 {
		t.Errorf("Expected sweep extreme 99.2, got %f", sweep.Extreme)
	}
}
