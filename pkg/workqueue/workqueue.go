// Package workqueue implements Theron's two-level WorkQueue (C6): one
// shared queue per scheduler plus one single-slot local queue per worker,
// behind a common interface with a blocking (mutex+condvar) and a
// non-blocking (mutex + per-strategy backoff) implementation, matching the
// Design Notes' directive to offer both behind the same trait so the
// dispatcher never needs to know which one it is driving.
package workqueue

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MailboxRef is the opaque handle the queue moves around; pkg/scheduler
// supplies *mailbox.Mailbox as this type via an interface to avoid an
// import cycle (workqueue must not depend on mailbox or actor).
type MailboxRef any

// YieldStrategy selects the non-blocking variant's backoff tier.
type YieldStrategy int

const (
	// Polite yields (runtime.Gosched plus a 1µs sleep) on every empty poll.
	Polite YieldStrategy = iota
	// Strong spins briefly on every empty poll, then yields without sleeping.
	Strong
	// Aggressive never yields; it is a pure spin loop.
	Aggressive
)

// WorkerContext identifies a worker's local slot to the queue. Workers
// obtain one from Queue.NewWorker and must use it consistently across
// Push/Pop/Empty calls. local holds at most one MailboxRef; a nil pointer
// means the slot is free — represented as a pointer rather than
// atomic.Value directly over MailboxRef because atomic.Value panics on a
// nil Store/Swap, and "empty" is a legitimate, frequent local-slot state.
//
// id is assigned by the owning Queue at NewWorker time and never changes;
// pkg/metrics uses it to attribute per-worker counter shards (C12's
// get_per_thread_counters) to the worker that actually did the work.
type WorkerContext struct {
	id    int
	local atomic.Pointer[MailboxRef]
}

// ID returns the worker's stable index within its queue, assigned in
// spawn order starting at 0.
func (w *WorkerContext) ID() int {
	return w.id
}

func (w *WorkerContext) swap(ref MailboxRef) (previous MailboxRef) {
	var newPtr *MailboxRef
	if ref != nil {
		newPtr = &ref
	}
	old := w.local.Swap(newPtr)
	if old == nil {
		return nil
	}
	return *old
}

func (w *WorkerContext) peek() MailboxRef {
	p := w.local.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Queue is the common interface both scheduler variants satisfy.
type Queue interface {
	// NewWorker allocates a WorkerContext for a new worker goroutine.
	NewWorker() *WorkerContext
	// Push enqueues ref. If localHint is true and ctx is non-nil, ref is
	// installed in ctx's local slot; if that slot already held a mailbox,
	// the older occupant is moved to the shared queue, per spec §4.3's
	// fairness rule. Otherwise ref goes on the shared queue.
	Push(ctx *WorkerContext, ref MailboxRef, localHint bool)
	// Pop removes and returns one MailboxRef for ctx: its local slot
	// first, then the shared queue. If both are empty it blocks
	// (blocking variant) or executes the yield policy and returns
	// ok=false (non-blocking variant).
	Pop(ctx *WorkerContext) (ref MailboxRef, ok bool)
	// WakeAll wakes every worker parked in Pop (no-op for the
	// non-blocking variant, which never parks).
	WakeAll()
	// Empty reports whether ctx's local slot and the shared queue are
	// both empty.
	Empty(ctx *WorkerContext) bool
	// Stop marks the queue as shutting down; parked Pop calls return
	// ok=false and future Pop calls return immediately with ok=false
	// once both queues drain.
	Stop()
}

// ---- Blocking variant --------------------------------------------------

// Blocking is the mutex+condvar WorkQueue variant: Pop parks on a condvar
// when both queues are empty rather than spinning.
type Blocking struct {
	mu      sync.Mutex
	cond    *sync.Cond
	shared  []MailboxRef
	stopped bool

	nextWorkerID atomic.Int64

	onPush func(ctx *WorkerContext, local bool)
	onWake func()
}

// NewBlocking constructs a Blocking WorkQueue. onPush/onWake, if non-nil,
// are invoked for LocalPushes/SharedPushes and ThreadsWoken counter
// bookkeeping (pkg/metrics wires these in via pkg/scheduler). onWake fires
// once per WakeAll call, not once per woken worker — WakeAll has no single
// worker to attribute the event to, so ThreadsWoken stays a framework-wide
// aggregate rather than a per-worker shard.
func NewBlocking(onPush func(ctx *WorkerContext, local bool), onWake func()) *Blocking {
	b := &Blocking{onPush: onPush, onWake: onWake}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Blocking) NewWorker() *WorkerContext {
	return &WorkerContext{id: int(b.nextWorkerID.Add(1) - 1)}
}

func (b *Blocking) Push(ctx *WorkerContext, ref MailboxRef, localHint bool) {
	if localHint && ctx != nil {
		displaced := ctx.swap(ref)
		if b.onPush != nil {
			b.onPush(ctx, true)
		}
		if displaced != nil {
			b.pushShared(displaced)
		}
		b.wakeOne()
		return
	}
	b.pushShared(ref)
	if b.onPush != nil {
		b.onPush(ctx, false)
	}
	b.wakeOne()
}

func (b *Blocking) pushShared(ref MailboxRef) {
	b.mu.Lock()
	b.shared = append(b.shared, ref)
	b.mu.Unlock()
}

func (b *Blocking) wakeOne() {
	b.mu.Lock()
	b.cond.Signal()
	b.mu.Unlock()
}

func (b *Blocking) Pop(ctx *WorkerContext) (MailboxRef, bool) {
	if ctx != nil {
		if ref := ctx.swap(nil); ref != nil {
			return ref, true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.shared) == 0 && !b.stopped {
		b.cond.Wait()
	}
	if len(b.shared) == 0 {
		return nil, false
	}
	ref := b.shared[0]
	b.shared[0] = nil
	b.shared = b.shared[1:]
	return ref, true
}

func (b *Blocking) WakeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.onWake != nil {
		b.onWake()
	}
	b.cond.Broadcast()
}

func (b *Blocking) Empty(ctx *WorkerContext) bool {
	if ctx != nil && ctx.peek() != nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.shared) == 0
}

func (b *Blocking) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// ---- Non-blocking variant ----------------------------------------------

// NonBlocking is the polling WorkQueue variant: a mutex-guarded shared
// queue plus the configured YieldStrategy's backoff on every empty Pop.
type NonBlocking struct {
	mu      sync.Mutex
	shared  []MailboxRef
	stopped atomic.Bool
	yield   YieldStrategy

	nextWorkerID atomic.Int64

	onPush  func(ctx *WorkerContext, local bool)
	onYield func(ctx *WorkerContext)
}

// NewNonBlocking constructs a NonBlocking WorkQueue with the given yield
// strategy. onPush/onYield wire into pkg/metrics the same as Blocking's
// callbacks; onYield receives the yielding worker's own context, since an
// empty poll always happens on behalf of one specific worker.
func NewNonBlocking(yield YieldStrategy, onPush func(ctx *WorkerContext, local bool), onYield func(ctx *WorkerContext)) *NonBlocking {
	return &NonBlocking{yield: yield, onPush: onPush, onYield: onYield}
}

func (nb *NonBlocking) NewWorker() *WorkerContext {
	return &WorkerContext{id: int(nb.nextWorkerID.Add(1) - 1)}
}

func (nb *NonBlocking) Push(ctx *WorkerContext, ref MailboxRef, localHint bool) {
	if localHint && ctx != nil {
		displaced := ctx.swap(ref)
		if nb.onPush != nil {
			nb.onPush(ctx, true)
		}
		if displaced != nil {
			nb.pushShared(displaced)
		}
		return
	}
	nb.pushShared(ref)
	if nb.onPush != nil {
		nb.onPush(ctx, false)
	}
}

func (nb *NonBlocking) pushShared(ref MailboxRef) {
	nb.mu.Lock()
	nb.shared = append(nb.shared, ref)
	nb.mu.Unlock()
}

func (nb *NonBlocking) Pop(ctx *WorkerContext) (MailboxRef, bool) {
	if ctx != nil {
		if ref := ctx.swap(nil); ref != nil {
			return ref, true
		}
	}

	nb.mu.Lock()
	if len(nb.shared) > 0 {
		ref := nb.shared[0]
		nb.shared[0] = nil
		nb.shared = nb.shared[1:]
		nb.mu.Unlock()
		return ref, true
	}
	nb.mu.Unlock()

	if nb.onYield != nil {
		nb.onYield(ctx)
	}
	nb.backoff()
	return nil, false
}

// backoff executes one escalation step of the configured yield strategy.
// Theron's three named strategies (polite/strong/aggressive) are static
// per-framework configuration rather than an adaptive per-call streak, so
// one call corresponds to one empty Pop, with the strategy itself
// encoding how aggressively that single call yields.
func (nb *NonBlocking) backoff() {
	switch nb.yield {
	case Aggressive:
		// Pure spin: no yield at all.
	case Strong:
		spins := 0
		for spins < 64 {
			spins++
		}
		runtime.Gosched()
	case Polite:
		runtime.Gosched()
		time.Sleep(time.Microsecond)
	}
}

func (nb *NonBlocking) WakeAll() {
	// No-op: non-blocking workers never park, they poll.
}

func (nb *NonBlocking) Empty(ctx *WorkerContext) bool {
	if ctx != nil && ctx.peek() != nil {
		return false
	}
	nb.mu.Lock()
	defer nb.mu.Unlock()
	return len(nb.shared) == 0
}

func (nb *NonBlocking) Stop() {
	nb.stopped.Store(true)
}
