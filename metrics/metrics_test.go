package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndGauges(t *testing.T) {
	m := New()

	m.SignalsEmitted.Inc()
	m.SignalsRejected.WithLabelValues("duplicate_candle").Inc()
	m.SignalsRejected.WithLabelValues("duplicate_candle").Inc()
	m.TradesClosed.WithLabelValues("closed_stop").Inc()
	m.DailyPnL.Set(-1250)

	assert.InDelta(t, 1, testutil.ToFloat64(m.SignalsEmitted), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.SignalsRejected.WithLabelValues("duplicate_candle")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TradesClosed.WithLabelValues("closed_stop")), 1e-9)
	assert.InDelta(t, -1250, testutil.ToFloat64(m.DailyPnL), 1e-9)
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.BreakerTrips.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "intrabot_breaker_trips_total 1")
}
