package domain

import "time"

// Status is a check's current health state.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusPassing Status = "passing"
	StatusFailing Status = "failing"
	StatusBlocked Status = "blocked"
)

// DefaultHistorySize bounds per-check result history unless the site
// configures otherwise.
const DefaultHistorySize = 32

// Result records one execution attempt.
type Result struct {
	Time    time.Time `json:"time"`
	Success bool      `json:"success"`
	Status  Status    `json:"status"`
	Message string    `json:"message"`
}

// RuntimeState is the mutable per-check state owned by the scheduler.
// It is not safe for concurrent use; the scheduler serialises access.
type RuntimeState struct {
	Status              Status
	ConsecutiveFailures int
	LastResult          *Result
	LastTransition      time.Time
	history             []Result
	capacity            int
}

// NewRuntimeState returns a fresh state in StatusUnknown with the
// given history capacity.
func NewRuntimeState(capacity int) *RuntimeState {
	if capacity < 1 {
		capacity = DefaultHistorySize
	}
	return &RuntimeState{Status: StatusUnknown, capacity: capacity}
}

// AppendHistory records r, evicting the oldest entry at capacity.
func (s *RuntimeState) AppendHistory(r Result) {
	if len(s.history) >= s.capacity {
		s.history = s.history[1:]
	}
	s.history = append(s.history, r)
}

// History returns a copy of the recorded results, oldest first.
func (s *RuntimeState) History() []Result {
	out := make([]Result, len(s.history))
	copy(out, s.history)
	return out
}

// StateData is the serializable form of RuntimeState, persisted in the
// site config's per-check data block and exposed over the API.
type StateData struct {
	Status              Status    `json:"status"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastResult          *Result   `json:"lastResult,omitempty"`
	LastTransition      time.Time `json:"lastTransition,omitempty"`
	History             []Result  `json:"history,omitempty"`
}

// Data snapshots the state for persistence.
func (s *RuntimeState) Data() StateData {
	d := StateData{
		Status:              s.Status,
		ConsecutiveFailures: s.ConsecutiveFailures,
		LastTransition:      s.LastTransition,
		History:             s.History(),
	}
	if s.LastResult != nil {
		r := *s.LastResult
		d.LastResult = &r
	}
	return d
}

// StateFromData rebuilds runtime state from a persisted data block so
// a restart does not reset status or history.
func StateFromData(d StateData, capacity int) *RuntimeState {
	s := NewRuntimeState(capacity)
	if d.Status != "" {
		s.Status = d.Status
	}
	if d.ConsecutiveFailures > 0 {
		s.ConsecutiveFailures = d.ConsecutiveFailures
	}
	s.LastTransition = d.LastTransition
	if d.LastResult != nil {
		r := *d.LastResult
		s.LastResult = &r
	}
	for _, r := range d.History {
		s.AppendHistory(r)
	}
	return s
}
