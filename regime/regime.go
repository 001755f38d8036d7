// Package regime classifies the trading session as trending or sideways
// from early price action. The classification selects which entry setup
// the signal gate looks for; it never places or closes trades itself.
package regime

// Regime is the session classification.
type Regime int

const (
	// Undetermined means not enough candles have formed yet, or the two
	// moving averages disagree with price action. No entries are taken
	// while undetermined.
	Undetermined Regime = iota
	Trending
	Sideways
)

func (r Regime) String() string {
	switch r {
	case Trending:
		return "trending"
	case Sideways:
		return "sideways"
	default:
		return "undetermined"
	}
}
