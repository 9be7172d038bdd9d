package market

import "testing"

// TestFloorLot tests volume flooring against lot step and minimum lot
func TestFloorLot(t *testing.T) {
	inst := Instrument{Symbol: "XAUUSD", PointSize: 0.01, MinLot: 0.01, LotStep: 0.01}

	tests := []struct {
		size     float64
		expected float64
	}{
		{0.237, 0.23},
		{0.01, 0.01},
		{0.009, 0},
		{0, 0},
		{-1, 0},
		// Exactly on a step boundary must not lose a step to float noise
		{0.3, 0.3},
	}

	for _, tt := range tests {
		got := inst.FloorLot(tt.size)
		if got != tt.expected {
			t.Errorf("FloorLot(%v) = %v, expected %v", tt.size, got, tt.expected)
		}
	}
}

// TestFloorLotCoarseStep tests that a size below a coarse step floors to zero
func TestFloorLotCoarseStep(t *testing.T) {
	inst := Instrument{Symbol: "US500", MinLot: 0.25, LotStep: 0.25}

	if got := inst.FloorLot(0.2); got != 0 {
		t.Errorf("expected 0.2 to floor to 0 with step 0.25, got %v", got)
	}
	if got := inst.FloorLot(0.55); got != 0.5 {
		t.Errorf("expected 0.55 to floor to 0.5, got %v", got)
	}
}

// TestAverageRange tests the mean bar range helper
func TestAverageRange(t *testing.T) {
	bars := []Bar{
		{High: 102, Low: 100},
		{High: 105, Low: 101},
	}

	if got := AverageRange(bars); got != 3 {
		t.Errorf("AverageRange = %v, expected 3", got)
	}

	if got := AverageRange(nil); got != 0 {
		t.Errorf("AverageRange(nil) = %v, expected 0", got)
	}
}

// TestDirectionOpposite tests direction inversion
func TestDirectionOpposite(t *testing.T) {
	if Bullish.Opposite() != Bearish {
		t.Error("expected opposite of Bullish to be Bearish")
	}
	if Bearish.Opposite() != Bullish {
		t.Error("expected opposite of Bearish to be Bullish")
	}
}
