// Package engine drives the periodic simulation cycles.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultResolution is how often the loop wakes to look for due jobs.
const DefaultResolution = time.Second

// JobFunc is one run of a periodic job.
type JobFunc func(ctx context.Context, now time.Time)

type job struct {
	name     string
	interval time.Duration
	run      JobFunc
	next     time.Time // zero until the first run
	runs     uint64
}

// Engine runs named jobs on fixed intervals. Jobs run serially on the loop
// goroutine, so one slow cycle delays the next instead of overlapping it. A
// job that has started always runs to completion; cancellation only stops
// further jobs from starting.
type Engine struct {
	Resolution time.Duration
	Now        func() time.Time

	mu      sync.Mutex
	jobs    []*job
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewEngine creates an engine on the wall clock.
func NewEngine() *Engine {
	return &Engine{
		Resolution: DefaultResolution,
		Now:        time.Now,
	}
}

// Every registers fn to run each interval. The first run happens on the
// first step after registration.
func (e *Engine) Every(name string, interval time.Duration, fn JobFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, &job{name: name, interval: interval, run: fn})
}

// Start launches the loop. It returns immediately; Stop or cancelling ctx
// ends the loop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errors.New("engine already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true
	go e.run(ctx, e.done)
	return nil
}

// Stop halts the loop and waits for the in-flight job to return.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(done)
	}()

	resolution := e.Resolution
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	slog.Info("simulation engine started", "jobs", len(e.snapshot()), "resolution", resolution)

	ticker := time.NewTicker(resolution)
	defer ticker.Stop()

	e.Step(ctx, e.Now())
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped")
			return
		case <-ticker.C:
			e.Step(ctx, e.Now())
		}
	}
}

func (e *Engine) snapshot() []*job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*job(nil), e.jobs...)
}

// Step runs every job due at now and returns how many ran. A job that fell
// several intervals behind runs once and is rescheduled from now. Step must
// not be called while the loop is running.
func (e *Engine) Step(ctx context.Context, now time.Time) int {
	ran := 0
	for _, j := range e.snapshot() {
		if ctx.Err() != nil {
			return ran
		}
		if !j.next.IsZero() && now.Before(j.next) {
			continue
		}
		start := time.Now()
		j.run(context.WithoutCancel(ctx), now)
		j.runs++
		j.next = now.Add(j.interval)
		ran++
		slog.Debug("job finished", "job", j.name, "run", j.runs, "took", time.Since(start), "next", j.next)
	}
	return ran
}
