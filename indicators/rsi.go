package indicators

import "github.com/quantrail/intrabot/market"

// RSI is a streaming Relative Strength Index over candle closes,
// Wilder-smoothed after a simple-average warmup.
type RSI struct {
	period int

	avgGain float64
	avgLoss float64

	gainSum float64
	lossSum float64

	prevClose float64
	hasPrev   bool
	count     int
}

func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Update(c market.Candle) {
	if !r.hasPrev {
		r.prevClose = c.Close
		r.hasPrev = true
		return
	}

	delta := c.Close - r.prevClose
	r.prevClose = c.Close

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.count < r.period {
		r.gainSum += gain
		r.lossSum += loss
		r.count++
		if r.count == r.period {
			r.avgGain = r.gainSum / float64(r.period)
			r.avgLoss = r.lossSum / float64(r.period)
		}
		return
	}

	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
}

func (r *RSI) Ready() bool {
	return r.count >= r.period
}

// Value returns RSI in [0,100]. A flat series (no losses at all) reads
// as 100, no gains as 0.
func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}

func (r *RSI) Reset() {
	r.avgGain = 0
	r.avgLoss = 0
	r.gainSum = 0
	r.lossSum = 0
	r.prevClose = 0
	r.hasPrev = false
	r.count = 0
}
