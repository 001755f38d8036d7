package regime

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/quantrail/intrabot/market"
)

func mkCandles(closes ...float64) []market.Candle {
	start := time.Date(2026, 8, 3, 9, 15, 0, 0, time.UTC)
	out := make([]market.Candle, len(closes))
	for i, cl := range closes {
		out[i] = market.Candle{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   cl,
			High:   cl + 1,
			Low:    cl - 1,
			Close:  cl,
			Volume: 1000,
		}
	}
	return out
}

func trendingWindow(n int) []market.Candle {
	closes := make([]float64, n)
	px := 24000.0
	for i := range closes {
		px += 12 // ~0.05% per candle, well past the displacement threshold
		closes[i] = px
	}
	return mkCandles(closes...)
}

func sidewaysWindow(n int) []market.Candle {
	closes := make([]float64, n)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 24000 + 3
		} else {
			closes[i] = 24000 - 3
		}
	}
	return mkCandles(closes...)
}

func newTestClassifier(confirm int) *Classifier {
	cfg := DefaultConfig()
	cfg.ConfirmCount = confirm
	return NewClassifier(cfg, zerolog.Nop())
}

func TestClassify_InsufficientCandles(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(1)
	got := c.Classify(trendingWindow(10), Undetermined)
	assert.Equal(t, Undetermined, got)
}

func TestClassify_Trending(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(1)
	got := c.Classify(trendingWindow(25), Undetermined)
	assert.Equal(t, Trending, got)
}

func TestClassify_Sideways(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(1)
	got := c.Classify(sidewaysWindow(25), Undetermined)
	assert.Equal(t, Sideways, got)
}

func TestClassify_HysteresisHoldsFirstContraryRead(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(2)

	got := c.Classify(trendingWindow(25), Undetermined)
	assert.Equal(t, Trending, got)

	// One contrary evaluation does not flip a determined regime.
	got = c.Classify(sidewaysWindow(25), got)
	assert.Equal(t, Trending, got)

	// The second consecutive contrary evaluation does.
	got = c.Classify(sidewaysWindow(25), got)
	assert.Equal(t, Sideways, got)
}

func TestClassify_ConfirmationResetOnAgreement(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(2)

	got := c.Classify(trendingWindow(25), Undetermined)
	got = c.Classify(sidewaysWindow(25), got) // pending sideways x1
	got = c.Classify(trendingWindow(25), got) // agreement clears pending
	got = c.Classify(sidewaysWindow(25), got) // pending sideways x1 again
	assert.Equal(t, Trending, got)
}

func TestClassify_UndeterminedNeverDisplacesPrior(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(1)

	got := c.Classify(trendingWindow(25), Undetermined)
	got = c.Classify(trendingWindow(5), got)
	assert.Equal(t, Trending, got)
}
