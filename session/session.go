// Package session runs the per-day evaluation loop: one snapshot at a
// time through regime classification, the signal gate and position
// management, with the risk governor consulted at every boundary.
package session

import (
	"time"
)

// Session scopes one trading day. Decisions use snapshot time, never
// wall-clock time, so a replayed day behaves exactly like the live one.
type Session struct {
	Day time.Time

	// Start and End bound the trading window.
	Start time.Time
	End   time.Time

	// Cutoff is the forced square-off instant. An open position is
	// closed at the first snapshot at or after it.
	Cutoff time.Time

	Capital float64
}

// NewSession builds the standard intraday window for the given day:
// 09:15 to 15:30 with square-off at the cutoff offset before close.
func NewSession(day time.Time, capital float64, squareOffBefore time.Duration) Session {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := d.Add(15*time.Hour + 30*time.Minute)
	return Session{
		Day:     d,
		Start:   d.Add(9*time.Hour + 15*time.Minute),
		End:     end,
		Cutoff:  end.Add(-squareOffBefore),
		Capital: capital,
	}
}

// EodReached reports whether t is at or past the square-off cutoff.
func (s Session) EodReached(t time.Time) bool {
	return !t.Before(s.Cutoff)
}

// InWindow reports whether t falls inside the trading window.
func (s Session) InWindow(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}
