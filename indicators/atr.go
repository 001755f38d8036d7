package indicators

import (
	"math"

	"github.com/quantrail/intrabot/market"
)

// ATR is a streaming Average True Range using Wilder's smoothing. It
// needs Period+1 candles before Ready because true range references the
// previous close.
type ATR struct {
	period int

	atr       float64
	warmupSum float64
	count     int

	prev    market.Candle
	hasPrev bool
}

func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Update(c market.Candle) {
	if !a.hasPrev {
		a.prev = c
		a.hasPrev = true
		return
	}

	tr := trueRange(c, a.prev)
	a.prev = c

	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
		return
	}

	a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
}

func (a *ATR) Ready() bool {
	return a.count >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

func (a *ATR) Reset() {
	a.atr = 0
	a.warmupSum = 0
	a.count = 0
	a.hasPrev = false
}

func trueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
