package models

import "time"

// Status is the state of the streaming client's current run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) String() string { return string(s) }

// Terminal reports whether no further transitions can happen without a new run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Active reports whether a channel may still deliver fragments.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusStreaming
}

// Run is a point-in-time snapshot of one streaming call.
type Run struct {
	ID         string
	Request    Request
	Status     Status
	Output     string
	Err        error
	Fragments  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Processing mirrors the UI's busy flag.
func (r Run) Processing() bool { return r.Status.Active() }

// Duration returns how long the run took, or zero while it is still active.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
