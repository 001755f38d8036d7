package market

import "time"

// Quote is a level-1 option quote used for liquidity checks and premium
// pricing at entry.
type Quote struct {
	Symbol       string
	Bid          float64
	Ask          float64
	LTP          float64
	OpenInterest int64
	Time         time.Time
}

// SpreadPct returns the bid-ask spread as a fraction of the bid, on the
// same scale as the fractional config thresholds. Returns 0 when either
// side of the book is empty; callers treat an empty book as illiquid via
// OpenInterest instead.
func (q Quote) SpreadPct() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return 0
	}
	return (q.Ask - q.Bid) / q.Bid
}

// Mid returns the quote midpoint, falling back to LTP when one side of
// the book is missing.
func (q Quote) Mid() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return q.LTP
	}
	return (q.Bid + q.Ask) / 2
}
