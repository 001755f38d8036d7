package indicators

import "github.com/quantrail/intrabot/market"

// Supertrend is an ATR-band trend overlay. While bullish the line rides
// below price; a close through the line flips the state. Only the flip
// direction is exposed because that is all the exit logic consumes.
type Supertrend struct {
	mult float64
	atr  *ATR

	upper float64
	lower float64
	line  float64
	bull  bool
	init  bool
}

func NewSupertrend(period int, mult float64) *Supertrend {
	return &Supertrend{
		mult: mult,
		atr:  NewATR(period),
	}
}

func (s *Supertrend) Update(c market.Candle) {
	s.atr.Update(c)
	if !s.atr.Ready() {
		return
	}

	mid := (c.High + c.Low) / 2
	band := s.mult * s.atr.Value()
	upper := mid + band
	lower := mid - band

	if !s.init {
		s.upper = upper
		s.lower = lower
		s.bull = c.Close > mid
		if s.bull {
			s.line = lower
		} else {
			s.line = upper
		}
		s.init = true
		return
	}

	// Bands only tighten; they never widen against an open trend.
	if lower > s.lower || c.Close < s.lower {
		s.lower = lower
	}
	if upper < s.upper || c.Close > s.upper {
		s.upper = upper
	}

	if s.bull {
		if c.Close < s.lower {
			s.bull = false
			s.line = s.upper
		} else {
			s.line = s.lower
		}
	} else {
		if c.Close > s.upper {
			s.bull = true
			s.line = s.lower
		} else {
			s.line = s.upper
		}
	}
}

func (s *Supertrend) Ready() bool {
	return s.init
}

// Bullish reports the current trend state. Only meaningful once Ready.
func (s *Supertrend) Bullish() bool {
	return s.bull
}

// Value returns the supertrend line itself.
func (s *Supertrend) Value() float64 {
	if !s.init {
		return 0
	}
	return s.line
}

func (s *Supertrend) Reset() {
	period := s.atr.period
	*s = Supertrend{mult: s.mult, atr: NewATR(period)}
}
