package market

import "math"

// Instrument carries the symbol metadata needed to convert point-based
// thresholds into prices and to floor position sizes to tradable volumes.
// Values come from the bridge's symbol info, with config fallbacks.
type Instrument struct {
	Symbol    string  `json:"symbol"`
	PointSize float64 `json:"point"`
	Digits    int     `json:"digits"`
	MinLot    float64 `json:"volume_min"`
	LotStep   float64 `json:"volume_step"`
}

// Points converts a distance expressed in points into price units
func (i Instrument) Points(n float64) float64 {
	return n * i.PointSize
}

// FloorLot rounds a size down to the nearest lot step. Sizes below the
// minimum lot collapse to zero; a zero result means the setup is not
// tradable at this risk, which callers surface rather than hide.
func (i Instrument) FloorLot(size float64) float64 {
	if size <= 0 {
		return 0
	}
	step := i.LotStep
	if step <= 0 {
		return size
	}
	// Small epsilon so sizes landing exactly on a step boundary are not
	// lost to float representation.
	lot := math.Floor(size/step+1e-9) * step
	if lot < i.MinLot || lot <= 0 {
		return 0
	}
	return lot
}

// RoundPrice snaps a price to the instrument's digit precision
func (i Instrument) RoundPrice(p float64) float64 {
	if i.Digits <= 0 {
		return p
	}
	pow := math.Pow10(i.Digits)
	return math.Round(p*pow) / pow
}
