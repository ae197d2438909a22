// Package jobs provides a prioritized background worker pool with
// cancelable jobs and typed futures. Pending work is re-ranked every
// time a worker picks a job: priority functions are re-evaluated, never
// snapshotted at submission time, so job order follows the view as it
// changes.
package jobs

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/openglobe3d/strata/internal/logger"
)

// Config carries per-job metadata.
type Config struct {
	// Name identifies the job in logs.
	Name string

	// Priority is re-evaluated each time a worker selects work; higher
	// runs first. Nil means priority 0.
	Priority func() float32

	// Token is the cancellation token to attach. Nil allocates a fresh
	// one. Sharing a token lets one Cancel cover a group of jobs.
	Token *Token
}

type pendingJob struct {
	name     string
	priority func() float32
	run      func()
}

func (j *pendingJob) currentPriority() float32 {
	if j.priority == nil {
		return 0
	}
	return j.priority()
}

// Metrics is a snapshot of scheduler counters.
type Metrics struct {
	Pending   int
	Running   int
	Completed int64
}

// Scheduler runs jobs on a fixed pool of workers.
type Scheduler struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []*pendingJob
	closed  bool

	wg        sync.WaitGroup
	running   atomic.Int32
	completed atomic.Int64

	log *zap.Logger
}

// NewScheduler starts a scheduler with the given worker count.
// Concurrency <= 0 uses GOMAXPROCS.
func NewScheduler(concurrency int) *Scheduler {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	s := &Scheduler{
		log: logger.Named("jobs"),
	}
	s.cond = sync.NewCond(&s.mu)

	for i := 0; i < concurrency; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	s.log.Debug("scheduler started", zap.Int("workers", concurrency))
	return s
}

// Dispatch submits fn for asynchronous execution and returns its future.
// fn must observe the token cooperatively and return the zero value when
// canceled; cancellation never surfaces as an error.
func Dispatch[T any](s *Scheduler, fn func(Cancelable) T, cfg Config) Future[T] {
	token := cfg.Token
	if token == nil {
		token = NewToken()
	}

	state := &futureState[T]{
		done:  make(chan struct{}),
		token: token,
	}

	job := &pendingJob{
		name:     cfg.Name,
		priority: cfg.Priority,
		run: func() {
			state.resolve(fn(token))
		},
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		// Late dispatch after Close: resolve immediately as canceled.
		token.Cancel()
		var zero T
		state.resolve(zero)
		return Future[T]{s: state}
	}
	s.pending = append(s.pending, job)
	s.mu.Unlock()
	s.cond.Signal()

	return Future[T]{s: state}
}

// worker picks the highest-priority pending job, re-evaluating each
// job's priority function on every pass.
func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}

		best := 0
		bestPri := s.pending[0].currentPriority()
		for i := 1; i < len(s.pending); i++ {
			if p := s.pending[i].currentPriority(); p > bestPri {
				best, bestPri = i, p
			}
		}
		job := s.pending[best]
		s.pending[best] = s.pending[len(s.pending)-1]
		s.pending = s.pending[:len(s.pending)-1]
		s.mu.Unlock()

		s.running.Add(1)
		job.run()
		s.running.Add(-1)
		s.completed.Add(1)
	}
}

// Metrics returns a snapshot of the scheduler's counters.
func (s *Scheduler) Metrics() Metrics {
	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()
	return Metrics{
		Pending:   pending,
		Running:   int(s.running.Load()),
		Completed: s.completed.Load(),
	}
}

// Close drains remaining jobs and stops the workers. Blocks until every
// worker has exited.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
	s.log.Debug("scheduler stopped", zap.Int64("completed", s.completed.Load()))
}
