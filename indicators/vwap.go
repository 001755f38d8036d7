package indicators

import "github.com/quantrail/intrabot/market"

// VWAP is the session volume-weighted average price. It accumulates from
// the first candle fed to it, so it must be Reset at every session
// boundary.
type VWAP struct {
	cumPV  float64
	cumVol float64
}

func NewVWAP() *VWAP {
	return &VWAP{}
}

func (v *VWAP) Update(c market.Candle) {
	tp := (c.High + c.Low + c.Close) / 3
	v.cumPV += tp * c.Volume
	v.cumVol += c.Volume
}

func (v *VWAP) Ready() bool {
	return v.cumVol > 0
}

func (v *VWAP) Value() float64 {
	if v.cumVol == 0 {
		return 0
	}
	return v.cumPV / v.cumVol
}

func (v *VWAP) Reset() {
	v.cumPV = 0
	v.cumVol = 0
}
