// Package trigger computes the next fire time for scheduled checks.
package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Trigger yields the next wall-clock instant a check should run.
// The second return is false when the trigger will never fire again.
type Trigger interface {
	NextFire(now, lastFire time.Time) (time.Time, bool)
}

// Spec is the serialized trigger definition: exactly one of the
// interval or cron objects must be present.
type Spec struct {
	Interval *IntervalSpec `json:"interval,omitempty" yaml:"interval,omitempty"`
	Cron     *CronSpec     `json:"cron,omitempty" yaml:"cron,omitempty"`
}

// IntervalSpec describes a fixed-period trigger. The period is the sum
// of all duration fields. Jitter, when set, spreads each fire time by a
// uniform random offset in [-jitter, +jitter] seconds.
type IntervalSpec struct {
	Weeks     int    `json:"weeks,omitempty" yaml:"weeks,omitempty"`
	Days      int    `json:"days,omitempty" yaml:"days,omitempty"`
	Hours     int    `json:"hours,omitempty" yaml:"hours,omitempty"`
	Minutes   int    `json:"minutes,omitempty" yaml:"minutes,omitempty"`
	Seconds   int    `json:"seconds,omitempty" yaml:"seconds,omitempty"`
	Jitter    int    `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	StartTime string `json:"startTime,omitempty" yaml:"startTime,omitempty"`
}

// CronSpec describes a calendar trigger. Each field accepts "*", a
// single value, a comma-list or a range "a-b". Unset fields default to
// their widest range, except second which defaults to 0.
type CronSpec struct {
	Year      Field `json:"year,omitempty" yaml:"year,omitempty"`
	Month     Field `json:"month,omitempty" yaml:"month,omitempty"`
	Day       Field `json:"day,omitempty" yaml:"day,omitempty"`
	Week      Field `json:"week,omitempty" yaml:"week,omitempty"`
	DayOfWeek Field `json:"day_of_week,omitempty" yaml:"day_of_week,omitempty"`
	Hour      Field `json:"hour,omitempty" yaml:"hour,omitempty"`
	Minute    Field `json:"minute,omitempty" yaml:"minute,omitempty"`
	Second    Field `json:"second,omitempty" yaml:"second,omitempty"`
}

// Field holds a cron field value that may arrive as a JSON/YAML string
// or bare integer.
type Field string

func (f *Field) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = Field(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*f = Field(strconv.Itoa(n))
		return nil
	}
	return fmt.Errorf("invalid cron field %s", string(b))
}

func (f *Field) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*f = Field(s)
		return nil
	}
	var n int
	if err := unmarshal(&n); err == nil {
		*f = Field(strconv.Itoa(n))
		return nil
	}
	return errors.New("invalid cron field")
}

// New validates the spec and builds the matching trigger variant.
func New(s *Spec) (Trigger, error) {
	if s == nil {
		return nil, errors.New("trigger: empty spec")
	}
	switch {
	case s.Interval != nil && s.Cron != nil:
		return nil, errors.New("trigger: both interval and cron specified")
	case s.Interval != nil:
		return newInterval(s.Interval)
	case s.Cron != nil:
		return newCron(s.Cron)
	default:
		return nil, errors.New("trigger: neither interval nor cron specified")
	}
}

// parseSet expands "*", "a", "a,b,c" and "a-b" into a member set.
// An empty field returns nil, meaning any value.
func parseSet(f Field, lo, hi int) (map[int]bool, error) {
	s := strings.TrimSpace(string(f))
	if s == "" || s == "*" {
		return nil, nil
	}
	set := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if a, b, ok := strings.Cut(part, "-"); ok {
			from, err := strconv.Atoi(a)
			if err != nil {
				return nil, fmt.Errorf("bad range start %q", part)
			}
			to, err := strconv.Atoi(b)
			if err != nil {
				return nil, fmt.Errorf("bad range end %q", part)
			}
			if from > to || from < lo || to > hi {
				return nil, fmt.Errorf("range %q outside %d-%d", part, lo, hi)
			}
			for v := from; v <= to; v++ {
				set[v] = true
			}
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad value %q", part)
		}
		if v < lo || v > hi {
			return nil, fmt.Errorf("value %d outside %d-%d", v, lo, hi)
		}
		set[v] = true
	}
	return set, nil
}
