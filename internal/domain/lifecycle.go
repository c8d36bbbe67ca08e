package domain

import "time"

// PollStatus is the lifecycle state of a poll, derived purely from its
// time window and the current time. It is never stored.
type PollStatus string

const (
	StatusNotStarted PollStatus = "not_started"
	StatusActive     PollStatus = "active"
	StatusEnded      PollStatus = "ended"
)

// StatusAt evaluates the poll's lifecycle state at the given instant.
// Both window endpoints are inclusive. Vote gating and display both go
// through this function so enforcement and presentation cannot drift.
func (p *Poll) StatusAt(now time.Time) PollStatus {
	switch {
	case now.Before(p.StartDate):
		return StatusNotStarted
	case now.After(p.EndDate):
		return StatusEnded
	default:
		return StatusActive
	}
}
