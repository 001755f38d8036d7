package indicators

import "github.com/quantrail/intrabot/market"

// EMA is a streaming exponential moving average of candle closes. The
// first Period closes seed it with a simple average, after which the
// standard 2/(n+1) multiplier applies.
type EMA struct {
	period int
	mult   float64

	warmupSum float64
	count     int
	ema       float64
}

func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		mult:   2.0 / float64(period+1),
	}
}

func (e *EMA) Update(c market.Candle) {
	e.count++
	if e.count <= e.period {
		e.warmupSum += c.Close
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (c.Close-e.ema)*e.mult + e.ema
}

func (e *EMA) Ready() bool {
	return e.count >= e.period
}

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

func (e *EMA) Reset() {
	e.warmupSum = 0
	e.count = 0
	e.ema = 0
}

// EMASeries computes an EMA over a slice of candles, seeding with the
// first close the way pandas' ewm(adjust=false) does. Used by the regime
// classifier, which works over a bounded window rather than a stream.
func EMASeries(candles []market.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	mult := 2.0 / float64(period+1)
	ema := candles[0].Close
	for _, c := range candles[1:] {
		ema = (c.Close-ema)*mult + ema
	}
	return ema
}
