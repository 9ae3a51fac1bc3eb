package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"discord-server-status/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counting(n *atomic.Int32) Handler {
	return func(ctx context.Context) error {
		n.Add(1)
		return nil
	}
}

func stopNow(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestNew_Validation(t *testing.T) {
	noop := func(ctx context.Context) error { return nil }
	tests := []struct {
		name    string
		jobs    []Job
		wantErr bool
	}{
		{name: "valid pair", jobs: []Job{{Name: "messages", Interval: time.Second, Run: noop}, {Name: "presence", Interval: time.Second, Run: noop}}},
		{name: "no jobs", jobs: nil},
		{name: "missing name", jobs: []Job{{Interval: time.Second, Run: noop}}, wantErr: true},
		{name: "zero interval", jobs: []Job{{Name: "messages", Run: noop}}, wantErr: true},
		{name: "negative interval", jobs: []Job{{Name: "messages", Interval: -time.Second, Run: noop}}, wantErr: true},
		{name: "nil handler", jobs: []Job{{Name: "messages", Interval: time.Second}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.jobs...)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidJob)
				assert.Nil(t, s)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestScheduler_NoImmediateTick(t *testing.T) {
	var n atomic.Int32
	s, err := New(Job{Name: "messages", Interval: 200 * time.Millisecond, Run: counting(&n)})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer stopNow(t, s)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, n.Load(), "first tick must wait a full interval")
	assert.Eventually(t, func() bool { return n.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_StopPreventsFurtherTicks(t *testing.T) {
	var messages, presence atomic.Int32
	s, err := New(
		Job{Name: "messages", Interval: 10 * time.Millisecond, Run: counting(&messages)},
		Job{Name: "presence", Interval: 10 * time.Millisecond, Run: counting(&presence)},
	)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())

	assert.Eventually(t, func() bool { return messages.Load() >= 2 && presence.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	stopNow(t, s)
	assert.False(t, s.Running())

	m, p := messages.Load(), presence.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, m, messages.Load(), "messages job ticked after Stop")
	assert.Equal(t, p, presence.Load(), "presence job ticked after Stop")
}

func TestScheduler_ParentCancelStopsTicks(t *testing.T) {
	var n atomic.Int32
	s, err := New(Job{Name: "messages", Interval: 10 * time.Millisecond, Run: counting(&n)})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	defer stopNow(t, s)

	assert.Eventually(t, func() bool { return n.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	time.Sleep(30 * time.Millisecond)
	got := n.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, got, n.Load())
}

func TestScheduler_SkipsOverlappingTicks(t *testing.T) {
	var n atomic.Int32
	release := make(chan struct{})
	s, err := New(Job{Name: "overlap-test", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) error {
		n.Add(1)
		<-release
		return nil
	}})
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.TicksSkippedTotal.WithLabelValues("overlap-test"))
	require.NoError(t, s.Start(context.Background()))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load(), "job re-entered while still running")
	assert.Greater(t, testutil.ToFloat64(metrics.TicksSkippedTotal.WithLabelValues("overlap-test"))-before, float64(0))

	close(release)
	assert.Eventually(t, func() bool { return n.Load() >= 2 }, 2*time.Second, 5*time.Millisecond, "job did not resume after the slow tick")
	stopNow(t, s)
}

func TestScheduler_JobsAreIndependent(t *testing.T) {
	var presence atomic.Int32
	release := make(chan struct{})
	s, err := New(
		Job{Name: "messages", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) error {
			<-release
			return errors.New("slow and failing")
		}},
		Job{Name: "presence", Interval: 10 * time.Millisecond, Run: counting(&presence)},
	)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return presence.Load() >= 3 }, 2*time.Second, 5*time.Millisecond, "presence starved by a blocked messages job")
	close(release)
	stopNow(t, s)
}

func TestScheduler_StopLetsInFlightFinish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var cancelled atomic.Bool
	var finished atomic.Bool
	s, err := New(Job{Name: "messages", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
			return nil
		}
		<-release
		cancelled.Store(ctx.Err() != nil)
		finished.Store(true)
		return nil
	}})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	<-started
	short, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(short), context.DeadlineExceeded)
	assert.False(t, finished.Load())

	close(release)
	assert.Eventually(t, finished.Load, 2*time.Second, 5*time.Millisecond)
	assert.False(t, cancelled.Load(), "in-flight handler context must not be cancelled by Stop")
}

func TestScheduler_RecoversPanics(t *testing.T) {
	var n atomic.Int32
	s, err := New(Job{Name: "messages", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) error {
		if n.Add(1) == 1 {
			panic("boom")
		}
		return nil
	}})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer stopNow(t, s)

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_StartTwice(t *testing.T) {
	var n atomic.Int32
	s, err := New(Job{Name: "messages", Interval: 10 * time.Millisecond, Run: counting(&n)})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)
	stopNow(t, s)

	// a stopped scheduler can be started again
	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return n.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	stopNow(t, s)
	stopNow(t, s)
}
