// Package broker defines the execution surface the engine trades
// through. Implementations: the in-process simulator under sim, and
// whatever live gateway is wired in at deployment.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/quantrail/intrabot/market"
)

// OrderSide is the direction of an order in the option contract.
type OrderSide int

const (
	Buy OrderSide = iota
	Sell
)

func (s OrderSide) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Order is a market order for qty contracts of symbol.
type Order struct {
	ID     string
	Symbol string
	Side   OrderSide
	Qty    int

	// Tag carries the decision that produced the order (signal id,
	// close reason) for journaling at the execution layer.
	Tag string
}

// Fill is a confirmed execution.
type Fill struct {
	OrderID string
	Symbol  string
	Side    OrderSide
	Qty     int
	Price   float64
	Time    time.Time
}

var (
	// ErrOrderRejected means the venue refused the order. Entry
	// callers discard the signal; exit callers retry with backoff.
	ErrOrderRejected = errors.New("broker: order rejected")

	// ErrNoQuote means no current quote exists for the symbol. Never
	// substitute a stale price for it.
	ErrNoQuote = errors.New("broker: no quote")
)

// Execution is the blocking order/quote interface. Every method takes
// a context because live implementations sit on the network.
type Execution interface {
	PlaceOrder(ctx context.Context, o Order) (Fill, error)
	LastTradedPrice(ctx context.Context, symbol string) (float64, error)
	Quote(ctx context.Context, symbol string) (market.Quote, error)

	// ResolveOption looks the contract up in the authoritative
	// instrument list. Symbols are never constructed from parts;
	// weekly and monthly expiries name themselves differently.
	ResolveOption(strike int, typ market.OptionType, expiry time.Time) (market.Instrument, error)
}
