package structure

import (
	"errors"
	"testing"

	"sevenms-engine/internal/market"
)

func bullishShiftFixture(breakIndex int) *StructureShift {
	return &StructureShift{
		Direction:   market.Bullish,
		Sweep:       LiquiditySweep{Direction: market.Bullish, BarIndex: 2, Extreme: 99.5, Time: 3},
		BrokenSwing: SwingPoint{Kind: SwingHigh, Index: 1, Price: 102, Time: 2},
		BreakLevel:  102,
		BreakIndex:  breakIndex,
	}
}

// TestLocateRangeZone tests the zone from the last opposing bar in the leg
func TestLocateRangeZone(t *testing.T) {
	locator := NewPOILocator(ZoneRange)

	bars := []market.Bar{
		{Time: 1, Open: 100.8, High: 101.2, Low: 100.5, Close: 101},
		{Time: 2, Open: 101, High: 102, Low: 100.6, Close: 101.5},
		// Sweep bar
		{Time: 3, Open: 101.5, High: 101.6, Low: 99.5, Close: 100.3},
		// Last opposing bar: bearish close inside the leg
		{Time: 4, Open: 100.9, High: 101, Low: 100.4, Close: 100.5},
		{Time: 5, Open: 100.5, High: 101.3, Low: 100.45, Close: 101.2},
		// Break bar
		{Time: 6, Open: 101.2, High: 102.9, Low: 101.1, Close: 102.6},
	}

	poi, err := locator.Locate(bars, bullishShiftFixture(5))
	if err != nil {
		t.Fatalf("Expected a zone, got error %v", err)
	}

	if poi.SourceIndex != 3 {
		t.Errorf("Expected source bar 3, got %d", poi.SourceIndex)
	}
	if poi.ZoneLow != 100.4 {
		t.Errorf("Expected zone low 100.4, got %f", poi.ZoneLow)
	}
	if poi.ZoneHigh != 101 {
		t.Errorf("Expected zone high 101, got %f", poi.ZoneHigh)
	}
	if poi.Mode != ZoneRange {
		t.Errorf("Expected range mode, got %s", poi.Mode)
	}
	if poi.Degraded {
		t.Error("Zone should not be degraded when an opposing bar exists")
	}
}

// TestLocateDegradedZone tests the sweep-bar body fallback when the leg
// has no opposing bar
func TestLocateDegradedZone(t *testing.T) {
	locator := NewPOILocator(ZoneRange)

	bars := []market.Bar{
		{Time: 1, Open: 100.8, High: 101.2, Low: 100.5, Close: 101},
		{Time: 2, Open: 101, High: 102, Low: 100.6, Close: 101.5},
		// Sweep bar; its body becomes the fallback zone
		{Time: 3, Open: 100.1, High: 100.5, Low: 99.5, Close: 100.3},
		{Time: 4, Open: 100.3, High: 101.1, Low: 100.2, Close: 101},
		{Time: 5, Open: 101, High: 101.8, Low: 100.9, Close: 101.6},
		// Break bar
		{Time: 6, Open: 101.6, High: 102.9, Low: 101.4, Close: 102.6},
	}

	poi, err := locator.Locate(bars, bullishShiftFixture(5))
	if err != nil {
		t.Fatalf("Expected a degraded zone, got error %v", err)
	}

	if !poi.Degraded {
		t.Error("Expected a degraded zone")
	}
	if poi.SourceIndex != 2 {
		t.Errorf("Expected the sweep bar as source, got %d", poi.SourceIndex)
	}
	if poi.ZoneLow != 100.1 || poi.ZoneHigh != 100.3 {
		t.Errorf("Expected zone from the sweep bar body [100.1, 100.3], got [%f, %f]",
			poi.ZoneLow, poi.ZoneHigh)
	}
}

// TestLocateZoneOutsideBand tests rejection of a zone that reaches past
// the sweep extreme
func TestLocateZoneOutsideBand(t *testing.T) {
	locator := NewPOILocator(ZoneRange)

	bars := []market.Bar{
		{Time: 1, Open: 100.8, High: 101.2, Low: 100.5, Close: 101},
		{Time: 2, Open: 101, High: 102, Low: 100.6, Close: 101.5},
		// Sweep bar
		{Time: 3, Open: 101.5, High: 101.6, Low: 99.5, Close: 100.3},
		// Opposing bar dips below the sweep extreme
		{Time: 4, Open: 100.6, High: 101, Low: 99.4, Close: 100},
		{Time: 5, Open: 100, High: 101.3, Low: 100, Close: 101.2},
		// Break bar
		{Time: 6, Open: 101.2, High: 102.9, Low: 101.1, Close: 102.6},
	}

	poi, err := locator.Locate(bars, bullishShiftFixture(5))
	if !errors.Is(err, ErrZoneInvalid) {
		t.Errorf("Expected ErrZoneInvalid, got %v", err)
	}
	if poi != nil {
		t.Errorf("Expected no zone, got %+v", poi)
	}
}

// TestLocateImbalanceZone tests the gap zone left by the displacement
func TestLocateImbalanceZone(t *testing.T) {
	locator := NewPOILocator(ZoneImbalance)

	bars := []market.Bar{
		{Time: 1, Open: 100.8, High: 101.2, Low: 100.5, Close: 101},
		{Time: 2, Open: 101, High: 102, Low: 100.6, Close: 101.5},
		// Sweep bar
		{Time: 3, Open: 100.4, High: 100.6, Low: 99.5, Close: 100.3},
		// Source bar: high 100.9 forms the gap floor
		{Time: 4, Open: 100.8, High: 100.9, Low: 100.3, Close: 100.4},
		{Time: 5, Open: 100.4, High: 101.5, Low: 100.35, Close: 101.4},
		// Break bar: low 101.2 leaves the gap open
		{Time: 6, Open: 101.4, High: 102.9, Low: 101.2, Close: 102.6},
	}

	poi, err := locator.Locate(bars, bullishShiftFixture(5))
	if err != nil {
		t.Fatalf("Expected an imbalance zone, got error %v", err)
	}

	if poi.Mode != ZoneImbalance {
		t.Errorf("Expected imbalance mode, got %s", poi.Mode)
	}
	if poi.ZoneLow != 100.9 {
		t.Errorf("Expected zone low 100.9, got %f", poi.ZoneLow)
	}
	if poi.ZoneHigh != 101.2 {
		t.Errorf("Expected zone high 101.2, got %f", poi.ZoneHigh)
	}
}

// TestLocateImbalanceFallsBackToRange tests range fallback when the
// displacement left no gap
func TestLocateImbalanceFallsBackToRange(t *testing.T) {
	locator := NewPOILocator(ZoneImbalance)

	bars := []market.Bar{
		{Time: 1, Open: 100.8, High: 101.2, Low: 100.5, Close: 101},
		{Time: 2, Open: 101, High: 102, Low: 100.6, Close: 101.5},
		// Sweep bar
		{Time: 3, Open: 100.4, High: 100.6, Low: 99.5, Close: 100.3},
		// Source bar
		{Time: 4, Open: 100.8, High: 100.9, Low: 100.3, Close: 100.4},
		{Time: 5, Open: 100.4, High: 101.5, Low: 100.35, Close: 101.4},
		// Break bar overlaps the source bar: no gap
		{Time: 6, Open: 101.4, High: 102.9, Low: 100.7, Close: 102.6},
	}

	poi, err := locator.Locate(bars, bullishShiftFixture(5))
	if err != nil {
		t.Fatalf("Expected a zone, got error %v", err)
	}

	if poi.Mode != ZoneRange {
		t.Errorf("Expected fallback to range mode, got %s", poi.Mode)
	}
	if poi.ZoneLow != 100.3 || poi.ZoneHigh != 100.9 {
		t.Errorf("Expected the source bar extent [100.3, 100.9], got [%f, %f]",
			poi.ZoneLow, poi.ZoneHigh)
	}
}
