package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"discord-server-status/metrics"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidJob     = errors.New("scheduler: invalid job")
	ErrAlreadyRunning = errors.New("scheduler: already running")
)

// Handler is one tick of a job.
type Handler func(ctx context.Context) error

// Job is a repeating handler with its own period.
type Job struct {
	Name     string
	Interval time.Duration
	Run      Handler
}

// Scheduler runs each job on its own ticker. The first tick of a job fires
// one full interval after Start. A tick that lands while the previous
// invocation of the same job is still running is skipped, not queued.
type Scheduler struct {
	jobs []Job

	mu      sync.Mutex
	running []*timer
}

func New(jobs ...Job) (*Scheduler, error) {
	for _, j := range jobs {
		switch {
		case j.Name == "":
			return nil, fmt.Errorf("%w: name is required", ErrInvalidJob)
		case j.Interval <= 0:
			return nil, fmt.Errorf("%w: %s interval must be > 0, got %s", ErrInvalidJob, j.Name, j.Interval)
		case j.Run == nil:
			return nil, fmt.Errorf("%w: %s has no handler", ErrInvalidJob, j.Name)
		}
	}
	return &Scheduler{jobs: jobs}, nil
}

// Start launches every job. Cancelling ctx stops further ticks the same way
// Stop does; handlers in flight still see a live context.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil {
		return ErrAlreadyRunning
	}
	s.running = make([]*timer, 0, len(s.jobs))
	for _, j := range s.jobs {
		t := newTimer(j)
		t.start(ctx)
		s.running = append(s.running, t)
		log.Debug().Str("job", j.Name).Dur("interval", j.Interval).Msg("scheduler: job started")
	}
	return nil
}

// Stop cancels all jobs. No handler begins once Stop returns from its first
// phase; handlers already running are waited for until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	timers := s.running
	s.running = nil
	s.mu.Unlock()

	for _, t := range timers {
		t.halt()
	}
	for _, t := range timers {
		if err := t.wait(ctx); err != nil {
			log.Warn().Err(err).Str("job", t.job.Name).Msg("scheduler: in-flight handler did not finish before deadline")
			return err
		}
	}
	return nil
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running != nil
}

type timer struct {
	job      Job
	cancel   context.CancelFunc
	loopDone chan struct{}

	mu       sync.Mutex
	stopped  bool
	busy     bool
	inflight sync.WaitGroup
}

func newTimer(j Job) *timer {
	return &timer{job: j, loopDone: make(chan struct{})}
}

func (t *timer) start(parent context.Context) {
	loopCtx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	go t.loop(loopCtx, context.WithoutCancel(parent))
}

func (t *timer) loop(ctx, runCtx context.Context) {
	defer close(t.loopDone)
	ticker := time.NewTicker(t.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// both cases may be ready at once; cancellation wins
			if ctx.Err() != nil {
				return
			}
			t.fire(runCtx)
		}
	}
}

func (t *timer) fire(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.busy {
		metrics.TicksSkippedTotal.WithLabelValues(t.job.Name).Inc()
		log.Debug().Str("job", t.job.Name).Msg("scheduler: previous tick still running; skipping")
		return
	}
	t.busy = true
	t.inflight.Add(1)
	go t.run(ctx)
}

func (t *timer) run(ctx context.Context) {
	defer t.inflight.Done()
	defer func() {
		t.mu.Lock()
		t.busy = false
		t.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("job", t.job.Name).Msg("scheduler: handler panicked")
		}
	}()

	start := time.Now()
	err := t.job.Run(ctx)
	duration := time.Since(start)
	metrics.TickDuration.WithLabelValues(t.job.Name).Observe(duration.Seconds())
	if err != nil {
		log.Error().Err(err).Str("job", t.job.Name).Dur("duration", duration).Msg("scheduler: tick failed")
		return
	}
	log.Debug().Str("job", t.job.Name).Dur("duration", duration).Msg("scheduler: tick complete")
}

func (t *timer) halt() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.cancel()
	<-t.loopDone
}

func (t *timer) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
