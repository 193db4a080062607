package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educmun/creche-api/internal/models"
)

func monitorAt(now time.Time) *DeadlineMonitor {
	return NewDeadlineMonitor(func() time.Time { return now }, time.Millisecond)
}

func TestDeadlineMonitorExpiryBoundary(t *testing.T) {
	deadline := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		now     time.Time
		expired bool
		urgent  bool
	}{
		{"one second before midnight", time.Date(2024, 1, 9, 23, 59, 59, 0, time.UTC), false, true},
		{"exactly midnight", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), false, true},
		{"one second past midnight", time.Date(2024, 1, 10, 0, 0, 1, 0, time.UTC), true, false},
		{"three days out", time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC), false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eval := monitorAt(tc.now).Evaluate(deadline)
			assert.Equal(t, tc.expired, eval.Expired)
			assert.Equal(t, tc.urgent, eval.Urgent)
		})
	}
}

func TestDeadlineMonitorRemaining(t *testing.T) {
	now := time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)
	deadline := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	eval := monitorAt(now).Evaluate(deadline)
	assert.Equal(t, int64(2*86400+12*3600), eval.SecondsRemaining)
	assert.Equal(t, 2, eval.DaysRemaining)
	assert.False(t, eval.Expired)
}

func TestDeadlineMonitorIgnoresTimeOfDayOnDeadline(t *testing.T) {
	// deadlines are date-only; any time component is dropped
	now := time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)
	deadline := time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC)

	eval := monitorAt(now).Evaluate(deadline)
	assert.True(t, eval.Expired)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), eval.Deadline)
}

func TestDeadlineMonitorEvaluateApplicant(t *testing.T) {
	now := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	monitor := monitorAt(now)

	assert.Nil(t, monitor.EvaluateApplicant(&models.Applicant{}))

	deadline := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	eval := monitor.EvaluateApplicant(&models.Applicant{ConvocationDeadline: &deadline})
	require.NotNil(t, eval)
	assert.Equal(t, 5, eval.DaysRemaining)
}

func TestDeadlineMonitorWatchStopsOnCancel(t *testing.T) {
	monitor := NewDeadlineMonitor(time.Now, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	readings := make(chan DeadlineEvaluation, 16)
	done := make(chan struct{})
	go func() {
		monitor.Watch(ctx, time.Now().AddDate(0, 0, 1), func(e DeadlineEvaluation) {
			select {
			case readings <- e:
			default:
			}
		})
		close(done)
	}()

	select {
	case <-readings:
	case <-time.After(time.Second):
		t.Fatal("no reading delivered")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
