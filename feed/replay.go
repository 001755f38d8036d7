package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quantrail/intrabot/market"
)

// Replay feeds recorded candles through the indicator pipeline, one
// per Next call. It is deterministic: the same candle file always
// produces the same snapshot sequence.
type Replay struct {
	candles []market.Candle
	pos     int
	pipe    *pipeline
	closed  bool
}

func NewReplay(candles []market.Candle, cfg IndicatorConfig) *Replay {
	return &Replay{candles: candles, pipe: newPipeline(cfg)}
}

// NewReplayFromCSV loads a candle file and wraps it in a replay feed.
func NewReplayFromCSV(path string, cfg IndicatorConfig) (*Replay, error) {
	candles, err := LoadCandlesCSV(path)
	if err != nil {
		return nil, err
	}
	return NewReplay(candles, cfg), nil
}

func (r *Replay) Next(ctx context.Context) (market.Snapshot, error) {
	if err := ctxErr(ctx); err != nil {
		return market.Snapshot{}, err
	}
	if r.closed || r.pos >= len(r.candles) {
		return market.Snapshot{}, ErrClosed
	}
	snap := r.pipe.apply(r.candles[r.pos])
	r.pos++
	return snap, nil
}

func (r *Replay) Close() error {
	r.closed = true
	return nil
}

// Remaining reports how many candles are left to play.
func (r *Replay) Remaining() int {
	if r.closed {
		return 0
	}
	return len(r.candles) - r.pos
}

// LoadCandlesCSV reads candles in the recorder's export format:
// time(RFC3339),open,high,low,close,volume. Rows are sorted by time so
// out-of-order exports still replay correctly.
func LoadCandlesCSV(path string) ([]market.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candle file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	var out []market.Candle
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("candle file line %d: %w", line+1, err)
		}
		line++
		if line == 1 && strings.EqualFold(rec[0], "time") {
			continue
		}

		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("candle file line %d: time: %w", line, err)
		}
		vals := make([]float64, 5)
		for i := 1; i < 6; i++ {
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, fmt.Errorf("candle file line %d: field %d: %w", line, i, err)
			}
			vals[i-1] = v
		}
		out = append(out, market.Candle{
			Time: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("candle file %s: %w", path, ErrNoData)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}
