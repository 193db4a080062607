package service

import (
	"context"
	"time"

	"github.com/educmun/creche-api/internal/models"
)

// DeadlineEvaluation is a point-in-time reading of a convocation deadline.
// It is display data only; expiry never auto-transitions a status.
type DeadlineEvaluation struct {
	Deadline         time.Time `json:"deadline"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	DaysRemaining    int       `json:"days_remaining"`
	Expired          bool      `json:"expired"`
	Urgent           bool      `json:"urgent"`
}

// DeadlineMonitor evaluates convocation deadlines against an injected clock.
type DeadlineMonitor struct {
	now  func() time.Time
	tick time.Duration
}

// NewDeadlineMonitor builds a monitor. Nil clock defaults to time.Now; a
// non-positive tick defaults to one second.
func NewDeadlineMonitor(now func() time.Time, tick time.Duration) *DeadlineMonitor {
	if now == nil {
		now = time.Now
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &DeadlineMonitor{now: now, tick: tick}
}

// Evaluate computes the remaining time for a date-only deadline. The clock
// runs out at the first instant of the deadline day: a deadline of Jan 10 is
// still open at Jan 9 23:59:59 and expired at Jan 10 00:00:01.
func (m *DeadlineMonitor) Evaluate(deadline time.Time) DeadlineEvaluation {
	now := m.now()
	midnight := time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 0, 0, 0, 0, now.Location())

	seconds := int64(midnight.Sub(now) / time.Second)
	expired := seconds < 0
	days := 0
	if seconds > 0 {
		days = int(seconds / 86400)
	}

	return DeadlineEvaluation{
		Deadline:         midnight,
		SecondsRemaining: seconds,
		DaysRemaining:    days,
		Expired:          expired,
		Urgent:           !expired && days == 0,
	}
}

// EvaluateApplicant evaluates the applicant's deadline when one is set.
func (m *DeadlineMonitor) EvaluateApplicant(a *models.Applicant) *DeadlineEvaluation {
	if a.ConvocationDeadline == nil {
		return nil
	}
	eval := m.Evaluate(*a.ConvocationDeadline)
	return &eval
}

// Watch re-evaluates the deadline on every tick and hands the reading to fn
// until the context is cancelled. It issues no I/O and has no side effects;
// cancelling the context is the only way to stop it.
func (m *DeadlineMonitor) Watch(ctx context.Context, deadline time.Time, fn func(DeadlineEvaluation)) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	fn(m.Evaluate(deadline))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(m.Evaluate(deadline))
		}
	}
}
