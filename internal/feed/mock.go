package feed

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"sevenms-engine/internal/market"
)

// MockProvider serves simulated market data for development and tests
// without a terminal bridge. Preset series take precedence; unknown
// symbols get a random walk from a base price table.
type MockProvider struct {
	mu    sync.RWMutex
	bars  map[string][]market.Bar
	insts map[string]market.Instrument
	base  map[string]float64
}

// NewMockProvider creates a new mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		bars:  make(map[string][]market.Bar),
		insts: make(map[string]market.Instrument),
		base: map[string]float64{
			"EURUSD": 1.085,
			"GBPUSD": 1.27,
			"USDJPY": 148.50,
			"XAUUSD": 2400.00,
			"US500":  5500.00,
			"BTCUSD": 104500.00,
		},
	}
}

var _ Provider = (*MockProvider)(nil)

// SetBars pins a bar series for a symbol and timeframe
func (m *MockProvider) SetBars(symbol string, timeframe market.Timeframe, bars []market.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[seriesKey(symbol, timeframe)] = bars
}

// SetInstrument pins instrument metadata for a symbol
func (m *MockProvider) SetInstrument(inst market.Instrument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insts[inst.Symbol] = inst
}

// GetBars returns the pinned series when one exists, otherwise a
// generated random walk ending now
func (m *MockProvider) GetBars(ctx context.Context, symbol string, timeframe market.Timeframe, count int) ([]market.Bar, error) {
	if count <= 0 {
		count = DefaultBarCount
	}

	m.mu.RLock()
	pinned, ok := m.bars[seriesKey(symbol, timeframe)]
	basePrice, known := m.base[symbol]
	m.mu.RUnlock()

	if ok {
		if len(pinned) > count {
			pinned = pinned[len(pinned)-count:]
		}
		out := make([]market.Bar, len(pinned))
		copy(out, pinned)
		return out, nil
	}

	if !known {
		basePrice = 100.0
	}
	return generateBars(basePrice, timeframe, count), nil
}

// GetInstrument returns pinned metadata or a generic five digit symbol
func (m *MockProvider) GetInstrument(ctx context.Context, symbol string) (*market.Instrument, error) {
	m.mu.RLock()
	inst, ok := m.insts[symbol]
	m.mu.RUnlock()

	if !ok {
		inst = market.Instrument{
			Symbol:    symbol,
			PointSize: 0.00001,
			Digits:    5,
			MinLot:    0.01,
			LotStep:   0.01,
		}
	}
	return &inst, nil
}

// generateBars builds a random walk working backwards from now
func generateBars(basePrice float64, timeframe market.Timeframe, count int) []market.Bar {
	interval := timeframe.Duration()
	if interval == 0 {
		interval = time.Minute
	}

	bars := make([]market.Bar, count)
	now := time.Now().Truncate(interval)
	price := basePrice

	for i := 0; i < count; i++ {
		openTime := now.Add(-time.Duration(count-i) * interval)

		volatility := 0.004
		open := price
		change := (rand.Float64() - 0.5) * volatility * 2
		close := open * (1 + change)
		high := math.Max(open, close) * (1 + rand.Float64()*volatility*0.5)
		low := math.Min(open, close) * (1 - rand.Float64()*volatility*0.5)

		bars[i] = market.Bar{
			Time:   openTime.Unix(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: math.Round(100 + rand.Float64()*900),
		}
		price = close
	}

	return bars
}

func seriesKey(symbol string, timeframe market.Timeframe) string {
	return symbol + "|" + string(timeframe)
}
