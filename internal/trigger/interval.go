package trigger

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Interval fires at a fixed period from the previous fire time.
type Interval struct {
	period time.Duration
	jitter time.Duration
	start  time.Time
}

func newInterval(s *IntervalSpec) (*Interval, error) {
	if s.Weeks < 0 || s.Days < 0 || s.Hours < 0 || s.Minutes < 0 || s.Seconds < 0 {
		return nil, errors.New("interval: negative duration field")
	}
	period := time.Duration(s.Weeks)*7*24*time.Hour +
		time.Duration(s.Days)*24*time.Hour +
		time.Duration(s.Hours)*time.Hour +
		time.Duration(s.Minutes)*time.Minute +
		time.Duration(s.Seconds)*time.Second
	if period <= 0 {
		return nil, errors.New("interval: period must be positive")
	}
	if s.Jitter < 0 {
		return nil, errors.New("interval: negative jitter")
	}
	iv := &Interval{
		period: period,
		jitter: time.Duration(s.Jitter) * time.Second,
	}
	if s.StartTime != "" {
		t, err := time.Parse(time.RFC3339, s.StartTime)
		if err != nil {
			return nil, fmt.Errorf("interval: bad startTime: %w", err)
		}
		iv.start = t
	}
	return iv, nil
}

// NextFire returns lastFire+period, or startTime for the first fire
// when it lies in the future. Jitter is applied afterwards, clamped so
// the result never precedes now.
func (iv *Interval) NextFire(now, lastFire time.Time) (time.Time, bool) {
	var next time.Time
	if lastFire.IsZero() {
		if !iv.start.IsZero() && iv.start.After(now) {
			next = iv.start
		} else {
			next = now.Add(iv.period)
		}
	} else {
		next = lastFire.Add(iv.period)
	}
	if iv.jitter > 0 {
		off := time.Duration(rand.Int63n(int64(2*iv.jitter)+1)) - iv.jitter
		next = next.Add(off)
	}
	if next.Before(now) {
		next = now
	}
	return next, true
}

// Period reports the configured interval length.
func (iv *Interval) Period() time.Duration { return iv.period }
