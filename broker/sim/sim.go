// Package sim is an in-process execution venue for replay runs and
// tests. Fills cross the quoted spread; failure injection exercises
// the engine's entry-abort and exit-retry paths.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantrail/intrabot/broker"
	"github.com/quantrail/intrabot/internal/id"
	"github.com/quantrail/intrabot/market"
)

type Engine struct {
	mu     sync.Mutex
	chain  *market.OptionChain
	quotes map[string]market.Quote
	fills  []broker.Fill
	log    zerolog.Logger

	failNextOrders int
}

func New(chain *market.OptionChain, log zerolog.Logger) *Engine {
	return &Engine{
		chain:  chain,
		quotes: make(map[string]market.Quote),
		log:    log.With().Str("component", "sim").Logger(),
	}
}

// SetQuote publishes the current quote for a symbol. Replay drivers
// call this before each evaluation tick.
func (e *Engine) SetQuote(q market.Quote) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quotes[q.Symbol] = q
}

// DropQuote removes a symbol's quote, simulating a feed gap.
func (e *Engine) DropQuote(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.quotes, symbol)
}

// FailNextOrders makes the next n PlaceOrder calls return
// broker.ErrOrderRejected.
func (e *Engine) FailNextOrders(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failNextOrders = n
}

func (e *Engine) PlaceOrder(ctx context.Context, o broker.Order) (broker.Fill, error) {
	if err := ctx.Err(); err != nil {
		return broker.Fill{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failNextOrders > 0 {
		e.failNextOrders--
		e.log.Warn().Str("symbol", o.Symbol).Str("tag", o.Tag).Msg("injected order rejection")
		return broker.Fill{}, fmt.Errorf("%w: %s", broker.ErrOrderRejected, o.Symbol)
	}

	q, ok := e.quotes[o.Symbol]
	if !ok {
		return broker.Fill{}, fmt.Errorf("%w: %s", broker.ErrNoQuote, o.Symbol)
	}

	// Buys lift the offer, sells hit the bid; a one-sided book falls
	// back to the last trade.
	price := q.LTP
	switch {
	case o.Side == broker.Buy && q.Ask > 0:
		price = q.Ask
	case o.Side == broker.Sell && q.Bid > 0:
		price = q.Bid
	}
	if price <= 0 {
		return broker.Fill{}, fmt.Errorf("%w: %s has no tradable price", broker.ErrNoQuote, o.Symbol)
	}

	if o.ID == "" {
		o.ID = id.New()
	}
	fill := broker.Fill{
		OrderID: o.ID,
		Symbol:  o.Symbol,
		Side:    o.Side,
		Qty:     o.Qty,
		Price:   price,
		Time:    q.Time,
	}
	e.fills = append(e.fills, fill)

	e.log.Debug().
		Str("order", o.ID).
		Str("symbol", o.Symbol).
		Str("side", o.Side.String()).
		Int("qty", o.Qty).
		Float64("price", price).
		Msg("order filled")
	return fill, nil
}

func (e *Engine) LastTradedPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.quotes[symbol]
	if !ok || q.LTP <= 0 {
		return 0, fmt.Errorf("%w: %s", broker.ErrNoQuote, symbol)
	}
	return q.LTP, nil
}

func (e *Engine) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return market.Quote{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.quotes[symbol]
	if !ok {
		return market.Quote{}, fmt.Errorf("%w: %s", broker.ErrNoQuote, symbol)
	}
	return q, nil
}

func (e *Engine) ResolveOption(strike int, typ market.OptionType, expiry time.Time) (market.Instrument, error) {
	return e.chain.Resolve(strike, typ, expiry)
}

// Fills returns a copy of every fill the engine has produced.
func (e *Engine) Fills() []broker.Fill {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]broker.Fill, len(e.fills))
	copy(out, e.fills)
	return out
}
