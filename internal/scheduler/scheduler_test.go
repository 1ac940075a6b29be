package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racefuse/internal/overlay"
	"github.com/yourusername/racefuse/internal/reconcile"
	"github.com/yourusername/racefuse/internal/service"
)

type fakeRunner struct {
	mu         sync.Mutex
	reconciled []time.Time
	settled    []time.Time
	err        error
}

func (f *fakeRunner) ReconcileDay(ctx context.Context, date time.Time) ([]*service.BatchSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciled = append(f.reconciled, date)
	if f.err != nil {
		return nil, f.err
	}
	return []*service.BatchSummary{{
		Date:  date,
		Track: "Track X",
		Races: []reconcile.RaceSummary{{Status: reconcile.StatusOK}, {Status: reconcile.StatusFailed}},
	}}, nil
}

func (f *fakeRunner) SettleDay(ctx context.Context, date time.Time, opts ...overlay.ResultOption) (*service.SettlementSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, date)
	if f.err != nil {
		return nil, f.err
	}
	return &service.SettlementSummary{Date: date, Updated: 1, Applied: 3}, nil
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, nil)

	err := s.ScheduleReconcile("not a schedule")
	assert.Error(t, err)
	assert.Empty(t, s.Entries())
}

func TestStartRequiresJobs(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, nil)
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, nil)
	require.NoError(t, s.ScheduleReconcile("*/15 * * * *"))
	require.NoError(t, s.ScheduleResults("0 * * * *"))

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Len(t, s.Entries(), 2)
	assert.False(t, s.GetNextRun().IsZero())

	assert.Error(t, s.Start())
	assert.Error(t, s.ScheduleResults("@hourly"))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
}

func TestRunJobsUseCurrentDate(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, nil)
	fixed := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.RunReconcile(context.Background())
	s.RunResults(context.Background())

	require.Len(t, runner.reconciled, 1)
	require.Len(t, runner.settled, 1)
	assert.Equal(t, fixed, runner.reconciled[0])
	assert.Equal(t, fixed, runner.settled[0])
}

func TestRunJobsSurviveErrors(t *testing.T) {
	runner := &fakeRunner{err: errors.New("backbone down")}
	s := NewScheduler(runner, nil)

	assert.NotPanics(t, func() {
		s.RunReconcile(context.Background())
		s.RunResults(context.Background())
	})
	assert.Len(t, runner.reconciled, 1)
}
