// Package indicators provides streaming technical indicators over candle
// data. Each indicator follows the same shape: feed candles with Update,
// check Ready, then read Value. None of them look at more than one candle
// per call, so they work identically on live, replayed and simulated
// feeds.
package indicators

import "github.com/quantrail/intrabot/market"

// Streaming is the common surface shared by all indicators in this
// package.
type Streaming interface {
	Update(c market.Candle)
	Ready() bool
	Value() float64
	Reset()
}
