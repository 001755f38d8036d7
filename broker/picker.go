package broker

import (
	"context"
	"time"

	"github.com/quantrail/intrabot/market"
)

// ATMPicker selects the at-the-money contract of the nearest listed
// expiry for a directional view and quotes it. It is the production
// implementation of the signal gate's option picker.
type ATMPicker struct {
	chain   *market.OptionChain
	exec    Execution
	now     func() time.Time
	timeout time.Duration
}

func NewATMPicker(chain *market.OptionChain, exec Execution, now func() time.Time) *ATMPicker {
	if now == nil {
		now = time.Now
	}
	return &ATMPicker{chain: chain, exec: exec, now: now, timeout: 5 * time.Second}
}

// Pick resolves strike and expiry against the instrument list and
// fetches a live quote. Any failure surfaces as-is so the gate records
// the tick as data-unavailable instead of trading blind.
func (p *ATMPicker) Pick(typ market.OptionType, spot float64) (market.Instrument, market.Quote, error) {
	expiry, err := p.chain.NearestExpiry(p.now())
	if err != nil {
		return market.Instrument{}, market.Quote{}, err
	}
	strike := market.ATMStrike(spot, p.chain.StrikeStep)

	inst, err := p.chain.Resolve(strike, typ, expiry)
	if err != nil {
		return market.Instrument{}, market.Quote{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	q, err := p.exec.Quote(ctx, inst.Symbol)
	if err != nil {
		return market.Instrument{}, market.Quote{}, err
	}
	return inst, q, nil
}
