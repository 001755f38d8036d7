package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quantrail/intrabot/market"
)

// LiveConfig configures the websocket candle feed.
type LiveConfig struct {
	// URL is the broker's streaming endpoint for the subscribed
	// underlying.
	URL string `json:"url" yaml:"url"`

	// Interval is the candle width ticks are aggregated into.
	Interval time.Duration `json:"interval" yaml:"interval"`

	// StaleAfter bounds how old the newest tick may be before Next
	// reports ErrStaleData instead of a snapshot.
	StaleAfter time.Duration `json:"stale_after" yaml:"stale_after"`

	Indicators IndicatorConfig `json:"indicators" yaml:"indicators"`
}

func DefaultLiveConfig(url string) LiveConfig {
	return LiveConfig{
		URL:        url,
		Interval:   5 * time.Minute,
		StaleAfter: 90 * time.Second,
		Indicators: DefaultIndicatorConfig(),
	}
}

// tickMsg is the wire shape of one stream message.
type tickMsg struct {
	Symbol string  `json:"symbol"`
	LTP    float64 `json:"ltp"`
	Volume float64 `json:"volume"`
	TS     int64   `json:"ts"` // unix millis
}

// Live consumes a tick stream, aggregates ticks into fixed-interval
// candles and hands each completed candle through the indicator
// pipeline. The read loop reconnects with exponential backoff; Next
// reports staleness rather than papering over a dead stream.
type Live struct {
	cfg  LiveConfig
	pipe *pipeline
	log  zerolog.Logger

	candles chan market.Candle
	done    chan struct{}

	mu       sync.Mutex
	lastTick time.Time
	closed   bool

	// building is the candle currently accumulating ticks.
	building    market.Candle
	buildingSet bool
}

func NewLive(cfg LiveConfig, log zerolog.Logger) *Live {
	l := &Live{
		cfg:     cfg,
		pipe:    newPipeline(cfg.Indicators),
		log:     log.With().Str("component", "feed").Logger(),
		candles: make(chan market.Candle, 16),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Next blocks until a completed candle arrives, the context ends, or
// the stream goes stale.
func (l *Live) Next(ctx context.Context) (market.Snapshot, error) {
	stale := time.NewTimer(l.staleDeadline())
	defer stale.Stop()

	select {
	case <-ctx.Done():
		return market.Snapshot{}, ctx.Err()
	case <-l.done:
		return market.Snapshot{}, ErrClosed
	case c, ok := <-l.candles:
		if !ok {
			return market.Snapshot{}, ErrClosed
		}
		return l.pipe.apply(c), nil
	case <-stale.C:
		return market.Snapshot{}, fmt.Errorf("%w: no tick for %s", ErrStaleData, l.cfg.StaleAfter)
	}
}

func (l *Live) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	return nil
}

func (l *Live) staleDeadline() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastTick.IsZero() {
		return l.cfg.Interval + l.cfg.StaleAfter
	}
	d := time.Until(l.lastTick.Add(l.cfg.Interval + l.cfg.StaleAfter))
	if d < time.Second {
		d = time.Second
	}
	return d
}

// run dials and reads until Close. Each disconnect retries with
// exponential backoff; the in-progress candle survives a reconnect.
func (l *Live) run() {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0

	for {
		select {
		case <-l.done:
			return
		default:
		}

		if err := l.readOnce(); err != nil {
			wait := policy.NextBackOff()
			l.log.Warn().Err(err).Dur("retry_in", wait).Msg("stream disconnected")
			select {
			case <-l.done:
				return
			case <-time.After(wait):
			}
			continue
		}
		policy.Reset()
	}
}

func (l *Live) readOnce() error {
	conn, _, err := websocket.DefaultDialer.Dial(l.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.cfg.URL, err)
	}
	defer conn.Close()
	l.log.Info().Str("url", l.cfg.URL).Msg("stream connected")

	for {
		select {
		case <-l.done:
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(l.cfg.Interval + l.cfg.StaleAfter))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var msg tickMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			l.log.Warn().Err(err).Msg("unparseable stream message")
			continue
		}
		l.ingest(msg)
	}
}

// ingest folds one tick into the building candle and emits the candle
// when the tick crosses an interval boundary.
func (l *Live) ingest(msg tickMsg) {
	if msg.LTP <= 0 {
		return
	}
	ts := time.UnixMilli(msg.TS).UTC()
	bucket := ts.Truncate(l.cfg.Interval)

	l.mu.Lock()
	l.lastTick = ts

	if l.buildingSet && !l.building.Time.Equal(bucket) {
		done := l.building
		l.buildingSet = false
		l.mu.Unlock()

		select {
		case l.candles <- done:
		case <-l.done:
			return
		}
		l.mu.Lock()
	}

	if !l.buildingSet {
		l.building = market.Candle{
			Time: bucket,
			Open: msg.LTP, High: msg.LTP, Low: msg.LTP, Close: msg.LTP,
		}
		l.buildingSet = true
	}
	c := &l.building
	if msg.LTP > c.High {
		c.High = msg.LTP
	}
	if msg.LTP < c.Low {
		c.Low = msg.LTP
	}
	c.Close = msg.LTP
	c.Volume += msg.Volume
	l.mu.Unlock()
}
