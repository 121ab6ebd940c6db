// Package scheduler implements the Scheduler (C7) and Dispatcher (C8):
// it owns the worker pool, assigns mailboxes to workers via a
// pkg/workqueue.Queue, and drives the pop→pin→dispatch→unpin→requeue
// pipeline described in spec §4.3-4.4.
package scheduler

import (
	"sync"

	"github.com/antithesishq/antithesis-sdk-go/assert"
	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/core"
	"github.com/fluxorio/theron/pkg/mailbox"
	"github.com/fluxorio/theron/pkg/metrics"
	"github.com/fluxorio/theron/pkg/workqueue"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Fallback is invoked for messages that reach no actor handler: either
// the mailbox had no bound actor, or the bound actor's HandlerTable and
// default handler both declined the message.
type Fallback func(value any, from address.Address)

// Config configures a Scheduler instance.
type Config struct {
	Queue      workqueue.Queue
	Counters   *metrics.Counters
	Logger     core.Logger
	Fallback   Fallback
	MinThreads int
	MaxThreads int
	// ThreadCeiling, if positive, caps MaxThreads (spec §6's
	// max_threads_per_framework): New and every later SetMaxThreads(n)
	// clamp the maximum to it. It does not cap the live worker count
	// directly: MinThreads at construction and SetMinThreads(n) start
	// workers without checking it. Zero means no cap.
	ThreadCeiling int
}

// Scheduler owns the worker pool and the work queue backing it.
type Scheduler struct {
	queue    workqueue.Queue
	counters *metrics.Counters
	logger   core.Logger
	fallback Fallback

	mu            sync.Mutex
	minThreads    int
	maxThreads    int
	threadCeiling int
	peakThreads   int
	workers       []*worker
	stopping      bool
	group         *errgroup.Group
	tracer        trace.Tracer
}

// SetTracer installs (or clears, if tracer is nil) the OTel tracer used
// to wrap each dispatch in a span, per pkg/framework/trace.go's
// WithTracerProvider.
func (s *Scheduler) SetTracer(tracer trace.Tracer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracer = tracer
}

func (s *Scheduler) getTracer() trace.Tracer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracer
}

type worker struct {
	ctx     *workqueue.WorkerContext
	stopped bool
}

// New constructs a Scheduler from cfg and starts MinThreads workers.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = core.NewDefaultLogger()
	}
	maxThreads := cfg.MaxThreads
	if cfg.ThreadCeiling > 0 && maxThreads > cfg.ThreadCeiling {
		maxThreads = cfg.ThreadCeiling
	}
	s := &Scheduler{
		queue:         cfg.Queue,
		counters:      cfg.Counters,
		logger:        cfg.Logger,
		fallback:      cfg.Fallback,
		minThreads:    cfg.MinThreads,
		maxThreads:    maxThreads,
		threadCeiling: cfg.ThreadCeiling,
		group:         &errgroup.Group{},
	}
	s.mu.Lock()
	for i := 0; i < cfg.MinThreads; i++ {
		s.spawnWorkerLocked()
	}
	s.notePeakLocked()
	s.mu.Unlock()
	return s
}

// spawnWorkerLocked starts a new worker goroutine under the scheduler's
// errgroup.Group, which serves as the join point Stop waits on. The
// worker function always returns nil and Stop discards Wait's result;
// handler panics are recovered inside invokeHandlers, not reported here.
func (s *Scheduler) spawnWorkerLocked() {
	w := &worker{ctx: s.queue.NewWorker()}
	s.workers = append(s.workers, w)
	s.group.Go(func() error {
		s.runWorker(w)
		return nil
	})
}

func (s *Scheduler) runWorker(w *worker) {
	for {
		s.mu.Lock()
		stop := w.stopped
		s.mu.Unlock()
		if stop && s.queue.Empty(w.ctx) {
			return
		}

		ref, ok := s.queue.Pop(w.ctx)
		if !ok {
			if s.counters != nil {
				s.counters.Add(w.ctx.ID(), metrics.Yields, 1)
			}
			s.mu.Lock()
			shuttingDown := s.stopping
			s.mu.Unlock()
			if shuttingDown && s.queue.Empty(w.ctx) {
				return
			}
			continue
		}

		mb, ok := ref.(*mailbox.Mailbox)
		if !ok || mb == nil {
			continue
		}
		if s.counters != nil {
			s.counters.Add(w.ctx.ID(), metrics.ThreadsPulsed, 1)
		}
		DispatchOne(mb, w.ctx, s.queue, s.fallback, s.counters, s.logger, s.getTracer())
	}
}

// Enqueue installs mb onto the work queue if it is not already
// scheduled, using localHint as the tail-send locality hint. Callers
// (pkg/actor, pkg/framework) call this after Mailbox.Push reports the
// mailbox transitioned from empty to non-empty.
func (s *Scheduler) Enqueue(workerCtx *workqueue.WorkerContext, mb *mailbox.Mailbox, localHint bool) {
	alreadyScheduled := mb.SetScheduled(true)
	if alreadyScheduled {
		// Already scheduled: a concurrent sender or the dispatcher's
		// own requeue already owns the scheduling decision. Pushing here
		// too would put mb on the work queue twice, violating spec §8's
		// scheduled-exclusivity property (a mailbox occupies at most one
		// work-queue slot at a time).
		assert.Always(true, "Enqueue skips the push for an already-scheduled mailbox", nil)
		return
	}
	s.queue.Push(workerCtx, mb, localHint)
}

// SetMinThreads raises the scheduler's lower bound on live worker
// threads, spawning workers immediately if the current count is below
// the new minimum. Per the original Theron header this call only ever
// increases the live count; it never reduces it (see DESIGN.md Open
// Question 3).
//
// The growth check compares n against the live worker count, not against
// len(s.workers): a prior SetMaxThreads flags excess workers as stopped
// in place without shrinking s.workers, so using the slice length here
// would undercount how many fresh workers are actually needed.
func (s *Scheduler) SetMinThreads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minThreads = n
	for s.liveCountLocked() < n {
		s.spawnWorkerLocked()
	}
	s.notePeakLocked()
}

// SetMaxThreads lowers the scheduler's upper bound, flagging the
// excess workers to exit on their next empty pop. It only ever decreases
// the live count (see DESIGN.md Open Question 3). n is clamped to the
// scheduler's ThreadCeiling, if one was configured (spec §6's
// max_threads_per_framework is a hard ceiling independent of the
// caller-supplied bound).
func (s *Scheduler) SetMaxThreads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.threadCeiling > 0 && n > s.threadCeiling {
		n = s.threadCeiling
	}
	s.maxThreads = n
	live := s.liveCountLocked()
	excess := live - n
	for i := 0; i < len(s.workers) && excess > 0; i++ {
		w := s.workers[len(s.workers)-1-i]
		if !w.stopped {
			w.stopped = true
			excess--
		}
	}
	s.queue.WakeAll()
}

// GetNumThreads returns the current live (not yet flagged to stop)
// worker count.
func (s *Scheduler) GetNumThreads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveCountLocked()
}

// GetPeakThreads returns the highest live worker count this scheduler has
// ever reached, per spec §6's get_peak_threads — a high-water mark that
// SetMaxThreads shrinking the pool back down never lowers.
func (s *Scheduler) GetPeakThreads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peakThreads
}

func (s *Scheduler) liveCountLocked() int {
	n := 0
	for _, w := range s.workers {
		if !w.stopped {
			n++
		}
	}
	return n
}

func (s *Scheduler) notePeakLocked() {
	if live := s.liveCountLocked(); live > s.peakThreads {
		s.peakThreads = live
	}
}

// GetMinThreads / GetMaxThreads return the current target bounds.
func (s *Scheduler) GetMinThreads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minThreads
}

func (s *Scheduler) GetMaxThreads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxThreads
}

// Stop marks the scheduler as shutting down: all workers exit once both
// the shared queue and their local slots are empty, matching the
// Framework lifecycle's "drain before stop" requirement (spec §4.8).
// Stop blocks until every worker goroutine has returned.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopping = true
	for _, w := range s.workers {
		w.stopped = true
	}
	s.mu.Unlock()
	s.queue.Stop()
	s.queue.WakeAll()
	_ = s.group.Wait()
}
