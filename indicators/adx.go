package indicators

import (
	"math"

	"github.com/quantrail/intrabot/market"
)

// ADX implements Wilder's Average Directional Index (trend strength).
//
// Warmup happens in two phases: Period candles to seed the smoothed
// TR/+DM/-DM averages, then Period DX values to seed ADX itself, so
// Ready turns true after roughly 2*Period candles.
type ADX struct {
	period int

	prev    market.Candle
	hasPrev bool

	trS  float64
	pdmS float64
	mdmS float64

	adx     float64
	dxSum   float64
	dxCount int

	count int
	ready bool
}

func NewADX(period int) *ADX {
	return &ADX{period: period}
}

func (a *ADX) Update(c market.Candle) {
	if !a.hasPrev {
		a.prev = c
		a.hasPrev = true
		a.count = 1
		return
	}

	upMove := c.High - a.prev.High
	downMove := a.prev.Low - c.Low

	var pdm, mdm float64
	if upMove > downMove && upMove > 0 {
		pdm = upMove
	}
	if downMove > upMove && downMove > 0 {
		mdm = downMove
	}

	tr := trueRange(c, a.prev)
	a.prev = c
	a.count++

	p := float64(a.period)

	// Phase A: accumulate initial TR/DM averages.
	if a.count <= a.period+1 {
		a.trS += tr
		a.pdmS += pdm
		a.mdmS += mdm
		if a.count == a.period+1 {
			a.trS /= p
			a.pdmS /= p
			a.mdmS /= p
		}
		return
	}

	a.trS = (a.trS*(p-1) + tr) / p
	a.pdmS = (a.pdmS*(p-1) + pdm) / p
	a.mdmS = (a.mdmS*(p-1) + mdm) / p

	if a.trS == 0 {
		return
	}

	pdi := 100 * (a.pdmS / a.trS)
	mdi := 100 * (a.mdmS / a.trS)
	den := pdi + mdi
	if den == 0 {
		return
	}
	dx := 100 * math.Abs(pdi-mdi) / den

	// Phase B: seed ADX with the average of the first Period DX values.
	if !a.ready {
		a.dxSum += dx
		a.dxCount++
		if a.dxCount == a.period {
			a.adx = a.dxSum / p
			a.ready = true
		}
		return
	}

	a.adx = (a.adx*(p-1) + dx) / p
}

func (a *ADX) Ready() bool {
	return a.ready
}

func (a *ADX) Value() float64 {
	if !a.ready {
		return 0
	}
	return a.adx
}

func (a *ADX) Reset() {
	*a = ADX{period: a.period}
}
