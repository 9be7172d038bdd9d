package structure

import (
	"testing"

	"sevenms-engine/internal/market"
)

// TestDetectBullishOrderBlock tests the opposing-candle block with a
// displacement gap past it
func TestDetectBullishOrderBlock(t *testing.T) {
	detector := NewOrderBlockDetector()

	bars := []market.Bar{
		// Block candidate: bearish bar
		{Time: 1, Open: 101, High: 101.5, Low: 99.8, Close: 100.2},
		// Displacement closes above the candidate's high
		{Time: 2, Open: 100.2, High: 102.4, Low: 100.1, Close: 102.2},
		// Follow-through never trades back into the candidate
		{Time: 3, Open: 102.2, High: 103, Low: 101.9, Close: 102.8},
	}

	blocks := detector.Detect(market.TimeframeH1, bars)

	if len(blocks) != 1 {
		t.Fatalf("Expected 1 order block, got %d", len(blocks))
	}

	block := blocks[0]

	if block.Kind != market.Bullish {
		t.Errorf("Expected bullish block, got %s", block.Kind)
	}
	if block.Top != 101.5 || block.Bottom != 99.8 {
		t.Errorf("Expected block [99.8, 101.5], got [%f, %f]", block.Bottom, block.Top)
	}
	if block.Index != 0 {
		t.Errorf("Expected block at bar 0, got %d", block.Index)
	}
	if block.Role != RoleContinuation {
		t.Errorf("Expected continuation role on H1, got %s", block.Role)
	}
}

// TestDetectBearishOrderBlock tests the mirrored bearish block
func TestDetectBearishOrderBlock(t *testing.T) {
	detector := NewOrderBlockDetector()

	bars := []market.Bar{
		// Block candidate: bullish bar
		{Time: 1, Open: 99.8, High: 101.2, Low: 99.5, Close: 101},
		// Displacement closes below the candidate's low
		{Time: 2, Open: 101, High: 101.1, Low: 99, Close: 99.2},
		// Follow-through stays below the candidate
		{Time: 3, Open: 99.2, High: 99.3, Low: 98.2, Close: 98.5},
	}

	blocks := detector.Detect(market.TimeframeH4, bars)

	if len(blocks) != 1 {
		t.Fatalf("Expected 1 order block, got %d", len(blocks))
	}

	block := blocks[0]

	if block.Kind != market.Bearish {
		t.Errorf("Expected bearish block, got %s", block.Kind)
	}
	if block.Top != 101.2 || block.Bottom != 99.5 {
		t.Errorf("Expected block [99.5, 101.2], got [%f, %f]", block.Bottom, block.Top)
	}
	if block.Role != RoleReversal {
		t.Errorf("Expected reversal role on H4, got %s", block.Role)
	}
}

// TestNoBlockWithoutGap tests that overlap with the candidate cancels
// the block
func TestNoBlockWithoutGap(t *testing.T) {
	detector := NewOrderBlockDetector()

	bars := []market.Bar{
		{Time: 1, Open: 101, High: 101.5, Low: 99.8, Close: 100.2},
		{Time: 2, Open: 100.2, High: 102.4, Low: 100.1, Close: 102.2},
		// Trades back into the candidate's range
		{Time: 3, Open: 102.2, High: 103, Low: 101.2, Close: 102.8},
	}

	blocks := detector.Detect(market.TimeframeH1, bars)

	if len(blocks) != 0 {
		t.Errorf("Expected 0 order blocks without a gap, got %d", len(blocks))
	}
}

// TestTrendBias tests bias from the most recent block
func TestTrendBias(t *testing.T) {
	if _, ok := TrendBias(nil); ok {
		t.Error("Expected no bias from an empty block list")
	}

	blocks := []OrderBlock{
		{Kind: market.Bullish, Index: 3},
		{Kind: market.Bearish, Index: 9},
	}

	bias, ok := TrendBias(blocks)
	if !ok {
		t.Fatal("Expected a bias")
	}
	if bias != market.Bearish {
		t.Errorf("Expected bearish bias from the latest block, got %s", bias)
	}
}
