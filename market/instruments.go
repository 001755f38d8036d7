package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

// Instrument describes a tradeable option contract taken from the
// broker's instrument dump. Symbols must come from that dump: weekly and
// monthly expiries use different naming conventions, so constructing a
// symbol from its parts is not safe.
type Instrument struct {
	Symbol     string
	Token      int64
	Underlying string
	Exchange   string
	Expiry     time.Time
	Strike     int
	Type       OptionType
	LotSize    int
}

// Value returns the notional of qty contracts at the given premium.
func (i Instrument) Value(premium float64, qty int) float64 {
	return premium * float64(qty)
}

// OptionChain is the authoritative contract list for one underlying,
// indexed for strike/type/expiry lookup.
type OptionChain struct {
	Underlying string
	StrikeStep int
	byKey      map[chainKey]Instrument
	expiries   []time.Time
}

type chainKey struct {
	strike int
	typ    OptionType
	expiry string // yyyy-mm-dd
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

// NewOptionChain builds a chain from a list of instruments, keeping only
// contracts for the given underlying.
func NewOptionChain(underlying string, strikeStep int, list []Instrument) *OptionChain {
	c := &OptionChain{
		Underlying: underlying,
		StrikeStep: strikeStep,
		byKey:      make(map[chainKey]Instrument),
	}
	seen := make(map[string]bool)
	for _, in := range list {
		if in.Underlying != underlying {
			continue
		}
		k := chainKey{strike: in.Strike, typ: in.Type, expiry: dayKey(in.Expiry)}
		c.byKey[k] = in
		if !seen[k.expiry] {
			seen[k.expiry] = true
			c.expiries = append(c.expiries, in.Expiry)
		}
	}
	return c
}

// LoadChainCSV reads an instrument dump in the broker's CSV export format:
// symbol,token,underlying,exchange,expiry(2006-01-02),strike,type,lot_size
func LoadChainCSV(path, underlying string, strikeStep int) (*OptionChain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instrument dump: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 8

	var list []Instrument
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("instrument dump line %d: %w", line+1, err)
		}
		line++
		if line == 1 && strings.EqualFold(rec[0], "symbol") {
			continue
		}

		token, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("instrument dump line %d: token: %w", line, err)
		}
		expiry, err := time.Parse("2006-01-02", rec[4])
		if err != nil {
			return nil, fmt.Errorf("instrument dump line %d: expiry: %w", line, err)
		}
		strike, err := strconv.Atoi(rec[5])
		if err != nil {
			return nil, fmt.Errorf("instrument dump line %d: strike: %w", line, err)
		}
		lot, err := strconv.Atoi(rec[7])
		if err != nil {
			return nil, fmt.Errorf("instrument dump line %d: lot_size: %w", line, err)
		}

		list = append(list, Instrument{
			Symbol:     rec[0],
			Token:      token,
			Underlying: rec[2],
			Exchange:   rec[3],
			Expiry:     expiry,
			Strike:     strike,
			Type:       OptionType(strings.ToUpper(rec[6])),
			LotSize:    lot,
		})
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("instrument dump %s: no contracts for %s", path, underlying)
	}
	return NewOptionChain(underlying, strikeStep, list), nil
}

// Resolve returns the contract for strike/type/expiry, or an error when
// the authoritative list has no such contract.
func (c *OptionChain) Resolve(strike int, typ OptionType, expiry time.Time) (Instrument, error) {
	in, ok := c.byKey[chainKey{strike: strike, typ: typ, expiry: dayKey(expiry)}]
	if !ok {
		return Instrument{}, fmt.Errorf("no %s %s%d contract expiring %s in instrument list",
			c.Underlying, typ, strike, dayKey(expiry))
	}
	return in, nil
}

// NearestExpiry returns the earliest listed expiry on or after the given
// day. The instrument list, not calendar arithmetic, decides what is
// actually tradeable this week.
func (c *OptionChain) NearestExpiry(after time.Time) (time.Time, error) {
	day := time.Date(after.Year(), after.Month(), after.Day(), 0, 0, 0, 0, time.UTC)
	var best time.Time
	for _, e := range c.expiries {
		if e.Before(day) {
			continue
		}
		if best.IsZero() || e.Before(best) {
			best = e
		}
	}
	if best.IsZero() {
		return time.Time{}, fmt.Errorf("no expiry on or after %s in instrument list", dayKey(day))
	}
	return best, nil
}

// ATMStrike rounds the spot price to the nearest strike step.
func ATMStrike(price float64, step int) int {
	if step <= 0 {
		step = 50
	}
	n := int(price/float64(step) + 0.5)
	return n * step
}
