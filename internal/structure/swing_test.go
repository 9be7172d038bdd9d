package structure

import (
	"testing"

	"sevenms-engine/internal/market"
)

// TestDetectSwingPoints tests basic swing high and swing low detection
func TestDetectSwingPoints(t *testing.T) {
	detector := NewSwingDetector(2)

	bars := []market.Bar{
		{Time: 1, Open: 100.5, High: 101, Low: 100, Close: 100.8},
		{Time: 2, Open: 100.8, High: 102, Low: 101, Close: 101.5},
		// Swing high: strict maximum against two bars on each side
		{Time: 3, Open: 101.5, High: 105, Low: 103, Close: 104},
		{Time: 4, Open: 104, High: 103, Low: 101, Close: 102},
		{Time: 5, Open: 102, High: 102, Low: 100, Close: 101},
		{Time: 6, Open: 101, High: 101, Low: 99, Close: 100},
		// Swing low: strict minimum against two bars on each side
		{Time: 7, Open: 100, High: 100, Low: 97, Close: 99},
		{Time: 8, Open: 99, High: 101, Low: 99, Close: 100},
		{Time: 9, Open: 100, High: 102, Low: 100, Close: 101},
	}

	swings := detector.Detect(bars)

	if len(swings) != 2 {
		t.Fatalf("Expected 2 swing points, got %d", len(swings))
	}

	if swings[0].Kind != SwingHigh {
		t.Errorf("Expected first swing to be a high, got %s", swings[0].Kind)
	}
	if swings[0].Index != 2 {
		t.Errorf("Expected swing high at index 2, got %d", swings[0].Index)
	}
	if swings[0].Price != 105 {
		t.Errorf("Expected swing high price 105, got %f", swings[0].Price)
	}

	if swings[1].Kind != SwingLow {
		t.Errorf("Expected second swing to be a low, got %s", swings[1].Kind)
	}
	if swings[1].Index != 6 {
		t.Errorf("Expected swing low at index 6, got %d", swings[1].Index)
	}
	if swings[1].Price != 97 {
		t.Errorf("Expected swing low price 97, got %f", swings[1].Price)
	}
}

// TestDetectShortWindow tests that too few bars yield no swings
func TestDetectShortWindow(t *testing.T) {
	detector := NewSwingDetector(2)

	bars := []market.Bar{
		{Time: 1, Open: 100, High: 101, Low: 99, Close: 100.5},
		{Time: 2, Open: 100.5, High: 103, Low: 100, Close: 102},
		{Time: 3, Open: 102, High: 102.5, Low: 101, Close: 101.5},
		{Time: 4, Open: 101.5, High: 102, Low: 100.5, Close: 101},
	}

	swings := detector.Detect(bars)

	if len(swings) != 0 {
		t.Errorf("Expected no swings from 4 bars with window 2, got %d", len(swings))
	}
}

// TestEqualHighsEarliestWins tests that ties go to the earlier bar
func TestEqualHighsEarliestWins(t *testing.T) {
	detector := NewSwingDetector(2)

	bars := []market.Bar{
		{Time: 1, Open: 100.5, High: 101, Low: 100, Close: 100.8},
		{Time: 2, Open: 100.8, High: 102, Low: 99, Close: 101.5},
		// First bar at the shared extreme claims the swing
		{Time: 3, Open: 101.5, High: 105, Low: 102, Close: 104},
		{Time: 4, Open: 104, High: 103, Low: 101, Close: 102},
		// Equal high inside the earlier bar's window is not a swing
		{Time: 5, Open: 102, High: 105, Low: 102, Close: 104.5},
		{Time: 6, Open: 104.5, High: 102, Low: 99, Close: 100},
		{Time: 7, Open: 100, High: 101, Low: 100, Close: 100.5},
	}

	swings := detector.Detect(bars)

	if len(swings) != 1 {
		t.Fatalf("Expected 1 swing point, got %d", len(swings))
	}
	if swings[0].Kind != SwingHigh || swings[0].Index != 2 {
		t.Errorf("Expected swing high at index 2, got %s at %d", swings[0].Kind, swings[0].Index)
	}
}

// TestSameKindRunsReduced tests that back-to-back highs collapse to the
// most extreme one
func TestSameKindRunsReduced(t *testing.T) {
	detector := NewSwingDetector(1)

	bars := []market.Bar{
		{Time: 1, Open: 99.5, High: 100, Low: 99, Close: 99.8},
		{Time: 2, Open: 99.8, High: 105, Low: 100, Close: 104},
		{Time: 3, Open: 104, High: 101, Low: 100.5, Close: 100.8},
		// Higher high with no swing low in between replaces the first
		{Time: 4, Open: 100.8, High: 107, Low: 101, Close: 106},
		{Time: 5, Open: 106, High: 102, Low: 101.5, Close: 101.8},
	}

	swings := detector.Detect(bars)

	if len(swings) != 1 {
		t.Fatalf("Expected 1 swing point after reduction, got %d", len(swings))
	}
	if swings[0].Index != 3 || swings[0].Price != 107 {
		t.Errorf("Expected the higher high at index 3 price 107, got index %d price %f",
			swings[0].Index, swings[0].Price)
	}
}

// TestAlternatingSequence tests that highs and lows alternate in the output
func TestAlternatingSequence(t *testing.T) {
	detector := NewSwingDetector(1)

	bars := []market.Bar{
		{Time: 1, Open: 100, High: 101, Low: 99.5, Close: 100.5},
		{Time: 2, Open: 100.5, High: 104, Low: 100, Close: 103},
		{Time: 3, Open: 103, High: 103.5, Low: 98, Close: 99},
		{Time: 4, Open: 99, High: 106, Low: 98.5, Close: 105},
		{Time: 5, Open: 105, High: 105.5, Low: 97, Close: 98},
		{Time: 6, Open: 98, High: 100, Low: 97.5, Close: 99.5},
	}

	swings := detector.Detect(bars)

	if len(swings) < 2 {
		t.Fatalf("Expected at least 2 swing points, got %d", len(swings))
	}
	for i := 1; i < len(swings); i++ {
		if swings[i].Kind == swings[i-1].Kind {
			t.Errorf("Swings %d and %d share kind %s, sequence must alternate",
				i-1, i, swings[i].Kind)
		}
	}
}

// TestDefaultWindow tests the fallback for non-positive window values
func TestDefaultWindow(t *testing.T) {
	detector := NewSwingDetector(0)

	if detector.Window() != DefaultSwingWindow {
		t.Errorf("Expected default window %d, got %d", DefaultSwingWindow, detector.Window())
	}
}
