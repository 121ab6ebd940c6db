// Package framework implements the Framework façade (C9): it composes
// a Directory, a Scheduler, a FallbackChain, and per-framework Counters
// behind the lifecycle spec §4.8 describes (register, construct,
// start, drain, stop, unregister). Grounded on the teacher's
// BaseVerticle/GoCMD composition root shape (pkg/core/gocmd.go wires a
// context, an event bus, and a worker pool behind one object the same
// way Framework wires a Directory, a Scheduler, and Counters).
package framework

import (
	"strconv"
	"sync"

	"github.com/fluxorio/theron/pkg/actor"
	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/config"
	"github.com/fluxorio/theron/pkg/core"
	"github.com/fluxorio/theron/pkg/mailbox"
	"github.com/fluxorio/theron/pkg/message"
	"github.com/fluxorio/theron/pkg/metrics"
	obsprom "github.com/fluxorio/theron/pkg/observability/prometheus"
	"github.com/fluxorio/theron/pkg/receiver"
	"github.com/fluxorio/theron/pkg/scheduler"
	"github.com/fluxorio/theron/pkg/workqueue"
	"github.com/prometheus/client_golang/prometheus"
)

// Framework composes every component needed to run actors: a Directory
// of mailbox slots, a Scheduler driving dispatch, a per-framework
// fallback handler, and aggregated Counters.
type Framework struct {
	id     uint32
	logger core.Logger

	dir   *mailbox.Directory
	sched *scheduler.Scheduler
	queue workqueue.Queue
	cnt   *metrics.Counters

	mu              sync.RWMutex
	fallback        FallbackHandler
	reportUnhandled bool
}

// New registers a new Framework, reserving a process-wide framework id,
// constructs its Scheduler, and starts its initial worker pool, per
// spec §4.8 steps 1-2.
func New(cfg config.FrameworkConfig, registerer prometheus.Registerer) (*Framework, error) {
	id, err := registry.reserve()
	if err != nil {
		return nil, err
	}

	f := &Framework{
		id:              id,
		logger:          core.NewDefaultLogger(),
		dir:             mailbox.NewDirectory(id, cfg.MaxActors),
		cnt:             metrics.New(registerer, id),
		reportUnhandled: true,
	}

	if strategy, ok := cfg.YieldStrategy(); ok {
		f.queue = workqueue.NewNonBlocking(strategy,
			func(ctx *workqueue.WorkerContext, local bool) { f.countPush(ctx, local) },
			func(ctx *workqueue.WorkerContext) { f.cnt.Add(workerID(ctx), metrics.Yields, 1) })
	} else {
		f.queue = workqueue.NewBlocking(
			func(ctx *workqueue.WorkerContext, local bool) { f.countPush(ctx, local) },
			// WakeAll has no single worker to attribute the wake to, so
			// ThreadsWoken stays an aggregate-only counter (see DESIGN.md).
			func() { f.cnt.Add(metrics.ExternalWorker, metrics.ThreadsWoken, 1) })
	}

	min := cfg.MinThreads
	max := cfg.MaxThreads
	if cfg.ThreadCount > min {
		min = cfg.ThreadCount
	}
	f.sched = scheduler.New(scheduler.Config{
		Queue:         f.queue,
		Counters:      f.cnt,
		Logger:        f.logger,
		Fallback:      f.chainFallback,
		MinThreads:    min,
		MaxThreads:    max,
		ThreadCeiling: cfg.MaxThreadsPerFramework,
	})

	registry.register(f)
	f.reportDirectoryOccupancy()
	f.reportSchedulerThreads()
	return f, nil
}

func (f *Framework) countPush(ctx *workqueue.WorkerContext, local bool) {
	wid := workerID(ctx)
	if local {
		f.cnt.Add(wid, metrics.LocalPushes, 1)
	} else {
		f.cnt.Add(wid, metrics.SharedPushes, 1)
	}
}

// workerID maps a (possibly nil, for a framework-external send) worker
// context to the sentinel pkg/metrics.Counters.Add/Observe expect.
func workerID(ctx *workqueue.WorkerContext) int {
	if ctx == nil {
		return metrics.ExternalWorker
	}
	return ctx.ID()
}

// FrameworkID implements actor.FrameworkHandle.
func (f *Framework) FrameworkID() uint32 {
	return f.id
}

// SpawnActor allocates a Directory slot named name and returns a new
// Actor bound to it.
func (f *Framework) SpawnActor(name string) (*actor.Actor, error) {
	addr, mb, ok := f.dir.Allocate(name)
	if !ok {
		return nil, mailbox.ErrCapacityExhausted
	}
	f.reportDirectoryOccupancy()
	return actor.New(addr, mb, f), nil
}

// DestroyActor unbinds a and frees its Directory slot. It blocks until
// any in-flight dispatch for a's mailbox completes (I-LiveWhileWorking).
func (f *Framework) DestroyActor(a *actor.Actor) {
	addr := a.GetAddress()
	mb, ok := f.dir.Lookup(addr)
	if !ok {
		return
	}
	mb.Unbind()
	f.dir.Free(addr)
	f.reportDirectoryOccupancy()
}

func (f *Framework) reportDirectoryOccupancy() {
	inUse := f.dir.InUse()
	free := f.dir.Capacity() - inUse
	obsprom.GetMetrics().UpdateDirectory(strconv.FormatUint(uint64(f.id), 10), int(inUse), int(free))
}

func (f *Framework) reportSchedulerThreads() {
	obsprom.GetMetrics().UpdateSchedulerThreads(
		strconv.FormatUint(uint64(f.id), 10),
		f.sched.GetNumThreads(), f.sched.GetMinThreads(), f.sched.GetMaxThreads())
}

// NewReceiver constructs a Receiver with a process-wide unique address
// (framework_id=0) and registers it so any Framework's SendMessage can
// resolve it, matching spec §6's Receiver::new() — the user never
// supplies the address by hand.
func NewReceiver(name string) *receiver.Receiver {
	addr := address.New(address.ReceiverFrameworkID, registry.reserveReceiverIndex(), name)
	r := receiver.New(addr)
	registry.registerReceiver(r)
	return r
}

// RegisterReceiver makes r resolvable by SendMessage from any Framework
// in the process, matching Receivers' process-wide (not per-Directory)
// addressing (framework_id=0). Use NewReceiver for the common case;
// RegisterReceiver remains for Receivers constructed directly via
// receiver.New with a caller-managed address.
func RegisterReceiver(r *receiver.Receiver) {
	registry.registerReceiver(r)
}

// UnregisterReceiver removes r from the process-wide receiver registry.
func UnregisterReceiver(r *receiver.Receiver) {
	registry.unregisterReceiver(r)
}

// SendMessage implements actor.FrameworkHandle and is also the entry
// point for framework-external sends (spec §4.5). It resolves to either
// the process-wide Receiver registry (to.IsReceiver()) or the owning
// Framework's Directory, pushes msg, and enqueues the mailbox if the
// push transitioned it from empty to non-empty and it is not already
// scheduled.
func (f *Framework) SendMessage(to address.Address, msg message.Message, localHint bool, workerCtx any) bool {
	if to.IsReceiver() {
		r, ok := registry.lookupReceiver(to)
		if !ok {
			return false
		}
		r.Push(msg)
		return true
	}

	owner := f
	if to.FrameworkID() != f.id {
		other, ok := registry.lookup(to.FrameworkID())
		if !ok {
			return false
		}
		owner = other
	}

	mb, ok := owner.dir.Lookup(to)
	if !ok {
		return false
	}

	wasEmpty := mb.Push(msg)
	if wasEmpty {
		ctx, _ := workerCtx.(*workqueue.WorkerContext)
		owner.sched.Enqueue(ctx, mb, localHint)
	}
	return true
}

// SetFallbackHandler installs fn as the framework-wide fallback for
// messages no actor claims (spec §4.6 step 2). A nil fn clears it,
// falling back to the built-in unhandled-message reporter.
func (f *Framework) SetFallbackHandler(fn FallbackHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = fn
}

// SetReportUnhandled toggles the built-in unhandled-message reporter
// used when no fallback handler is installed (spec §4.6 step 3).
func (f *Framework) SetReportUnhandled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportUnhandled = enabled
}

// SetMinThreads / SetMaxThreads / GetNumThreads / GetMinThreads /
// GetMaxThreads delegate to the Scheduler; see DESIGN.md Open Question
// 3 for their independent-bound negotiation semantics.
func (f *Framework) SetMinThreads(n int) {
	f.sched.SetMinThreads(n)
	f.reportSchedulerThreads()
}

func (f *Framework) SetMaxThreads(n int) {
	f.sched.SetMaxThreads(n)
	f.reportSchedulerThreads()
}
func (f *Framework) GetNumThreads() int  { return f.sched.GetNumThreads() }
func (f *Framework) GetMinThreads() int  { return f.sched.GetMinThreads() }
func (f *Framework) GetMaxThreads() int  { return f.sched.GetMaxThreads() }

// GetPeakThreads returns the highest live worker count this framework's
// Scheduler has ever reached, per spec §6's get_peak_threads.
func (f *Framework) GetPeakThreads() int { return f.sched.GetPeakThreads() }

// GetCounter reads one aggregated per-framework counter (C12).
func (f *Framework) GetCounter(c metrics.Counter) uint64 {
	return f.cnt.Get(c)
}

// GetPerThreadCounters copies counter c's per-worker values into out and
// returns how many workers are known, per spec §6's
// get_per_thread_counters. ThreadsWoken has no per-worker shard (WakeAll
// wakes every worker at once, not one in particular) and always reports
// zeroes here; see DESIGN.md.
func (f *Framework) GetPerThreadCounters(c metrics.Counter, out []uint64) int {
	return f.cnt.GetPerThreadCounters(c, out)
}

// ResetCounters zeroes every counter.
func (f *Framework) ResetCounters() {
	f.cnt.Reset()
}

// Stop implements spec §4.8 step 4: drain the scheduler (blocking until
// every worker has exited), then unregister the framework from the
// process-wide registry, making its id available for reuse.
func (f *Framework) Stop() {
	f.sched.Stop()
	registry.unregister(f.id)
}
