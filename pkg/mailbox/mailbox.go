// Package mailbox implements the per-actor Mailbox FIFO (C3) and the
// fixed-capacity Directory (C4) that allocates stable mailbox slots.
package mailbox

import (
	"sync"

	"github.com/antithesishq/antithesis-sdk-go/assert"
	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/message"
)

// Actor is the narrow interface the dispatcher needs from a bound actor:
// its handler table and default handler. pkg/actor.Actor satisfies this;
// it is declared here (rather than imported) to avoid a mailbox<->actor
// import cycle, matching the Design Notes' "break cyclic references with
// indices/handles" guidance applied at the package-dependency level.
type Actor interface {
	// Dispatch runs every registered handler matching m's type and
	// reports whether at least one matched.
	Dispatch(m message.Message) (handled bool)
	// InvokeDefault runs the actor's own default handler, if any, and
	// reports whether one was registered.
	InvokeDefault(value any, from address.Address) (invoked bool)
	// Compact applies deferred handler-table tombstones. Called by the
	// dispatcher between dispatches, never mid-dispatch.
	Compact()
	// SetWorkerContext records the workqueue.WorkerContext of the worker
	// currently dispatching this actor, so a tail_send issued from
	// inside a handler can target that worker's local slot (spec §4.3's
	// locality hint). Cleared (nil) once the dispatch completes. Typed
	// as any to avoid a mailbox<->workqueue import cycle.
	SetWorkerContext(ctx any)
}

// Mailbox is the FIFO of undelivered messages bound to at most one actor
// at a time. All mutable fields are guarded by mu; the zero value is not
// ready for use — construct with New.
type Mailbox struct {
	name string

	mu        sync.Mutex
	queue     []message.Message
	actor     Actor
	pinned    uint32
	scheduled bool
	unbindCond *sync.Cond
}

// New returns an empty, unbound Mailbox.
func New(name string) *Mailbox {
	m := &Mailbox{name: name}
	m.unbindCond = sync.NewCond(&m.mu)
	return m
}

// Name returns the mailbox's registered name.
func (m *Mailbox) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Push appends msg to the tail of the queue and reports whether the
// queue was empty immediately before the push — the caller uses this to
// decide whether the mailbox transitions onto a work queue.
func (m *Mailbox) Push(msg message.Message) (wasEmpty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wasEmpty = len(m.queue) == 0
	m.queue = append(m.queue, msg)
	return wasEmpty
}

// PopHead removes and returns the head message, if any, plus whether more
// messages remain in the queue after the pop.
func (m *Mailbox) PopHead() (msg message.Message, ok bool, more bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return message.Message{}, false, false
	}
	msg = m.queue[0]
	m.queue[0] = message.Message{}
	m.queue = m.queue[1:]
	return msg, true, len(m.queue) > 0
}

// Count returns the current queue length. Pinning does not change it, but
// the dispatcher removes a message with PopHead before it pins the mailbox
// and runs handlers, so a message that is being handled is not counted.
func (m *Mailbox) Count() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint32(len(m.queue))
}

// Bind attaches actor to the mailbox. It is an error (caller's
// responsibility to avoid) to bind over an already-bound mailbox.
func (m *Mailbox) Bind(actor Actor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actor = actor
}

// Unbind detaches the bound actor, spinning (via condvar wait, not a busy
// loop) until Pinned reaches zero — I-LiveWhileWorking: an in-flight
// handler invocation must complete before the actor can be detached.
func (m *Mailbox) Unbind() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.pinned > 0 {
		m.unbindCond.Wait()
	}
	assert.Always(m.pinned == 0, "mailbox detaches its actor only once no dispatch is in flight", map[string]any{
		"mailbox": m.name,
	})
	m.actor = nil
}

// ActorRef returns the currently bound actor, or nil.
func (m *Mailbox) ActorRef() Actor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actor
}

// Pin increments the pin count, preventing Unbind from completing until a
// matching Unpin brings it back to zero. Called by the dispatcher before
// invoking handlers.
func (m *Mailbox) Pin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned++
}

// Unpin decrements the pin count and wakes any goroutine blocked in
// Unbind when it reaches zero.
func (m *Mailbox) Unpin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pinned == 0 {
		panic("mailbox: Unpin called with pin count already zero")
	}
	m.pinned--
	if m.pinned == 0 {
		m.unbindCond.Broadcast()
	}
}

// UnpinAndRequeueDecision unpins the mailbox and, in the same critical
// section, decides whether it should remain scheduled: if the queue is
// still non-empty the mailbox stays scheduled and requeue reports true;
// otherwise scheduled is cleared and requeue reports false. Combining
// unpin and the requeue decision under one lock acquisition matches
// spec §4.4 step 5's single locked critical section.
func (m *Mailbox) UnpinAndRequeueDecision() (requeue bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pinned == 0 {
		panic("mailbox: Unpin called with pin count already zero")
	}
	m.pinned--
	if m.pinned == 0 {
		m.unbindCond.Broadcast()
	}
	if len(m.queue) > 0 {
		m.scheduled = true
		assert.Sometimes(true, "a dispatched mailbox is requeued because messages remain", map[string]any{
			"mailbox":     m.name,
			"queue_depth": len(m.queue),
		})
		return true
	}
	m.scheduled = false
	return false
}

// SetScheduled sets the scheduled flag under lock and returns the
// previous value. The scheduler uses this to enforce "scheduled
// exclusivity": a mailbox is present on at most one work-queue slot at a
// time.
func (m *Mailbox) SetScheduled(v bool) (previous bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	previous = m.scheduled
	m.scheduled = v
	return previous
}

// Scheduled reports the current scheduled flag.
func (m *Mailbox) Scheduled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduled
}
