package trigger

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronScanLimit bounds the search for an instant satisfying the year
// and week constraints, which the schedule itself cannot express.
const cronScanLimit = 1 << 20

// Cron fires at wall-clock instants matching all configured calendar
// fields. The six standard fields are matched by a seconds-enabled
// cron schedule; year and ISO week are filtered on top of it.
type Cron struct {
	sched cron.Schedule
	years map[int]bool
	weeks map[int]bool
}

func newCron(s *CronSpec) (*Cron, error) {
	fields := []string{
		orDefault(s.Second, "0"),
		orDefault(s.Minute, "*"),
		orDefault(s.Hour, "*"),
		orDefault(s.Day, "*"),
		orDefault(s.Month, "*"),
		orDefault(s.DayOfWeek, "*"),
	}
	parser := cron.NewParser(
		cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(strings.Join(fields, " "))
	if err != nil {
		return nil, fmt.Errorf("cron: %w", err)
	}
	years, err := parseSet(s.Year, 1970, 9999)
	if err != nil {
		return nil, fmt.Errorf("cron: year: %w", err)
	}
	weeks, err := parseSet(s.Week, 1, 53)
	if err != nil {
		return nil, fmt.Errorf("cron: week: %w", err)
	}
	return &Cron{sched: sched, years: years, weeks: weeks}, nil
}

func orDefault(f Field, def string) string {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return def
	}
	return s
}

// NextFire returns the earliest future instant satisfying every
// configured field, or false when no such instant exists within the
// scan bound.
func (c *Cron) NextFire(now, lastFire time.Time) (time.Time, bool) {
	t := now
	if c.years != nil {
		// Jump ahead to the first candidate year to keep the scan short.
		y, ok := c.nextYear(t.Year())
		if !ok {
			return time.Time{}, false
		}
		if y > t.Year() {
			t = time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location()).Add(-time.Second)
		}
	}
	for i := 0; i < cronScanLimit; i++ {
		t = c.sched.Next(t)
		if t.IsZero() {
			return time.Time{}, false
		}
		if c.years != nil && !c.years[t.Year()] {
			y, ok := c.nextYear(t.Year())
			if !ok {
				return time.Time{}, false
			}
			t = time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location()).Add(-time.Second)
			continue
		}
		if c.weeks != nil {
			if _, wk := t.ISOWeek(); !c.weeks[wk] {
				continue
			}
		}
		return t, true
	}
	return time.Time{}, false
}

// nextYear returns the smallest configured year >= from.
func (c *Cron) nextYear(from int) (int, bool) {
	best := 0
	for y := range c.years {
		if y >= from && (best == 0 || y < best) {
			best = y
		}
	}
	return best, best != 0
}
