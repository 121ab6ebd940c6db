// Package receiver implements the Receiver (C10): a non-actor sink with
// its own HandlerTable, usable by external threads to bridge the actor
// mesh into plain goroutines. Grounded on spec §4.7 directly — the
// teacher has no blocking external-thread sink — built from the same
// HandlerTable primitive plus a sync.Cond-guarded arrival counter.
package receiver

import (
	"sync"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/handler"
	"github.com/fluxorio/theron/pkg/message"
	obsprom "github.com/fluxorio/theron/pkg/observability/prometheus"
)

// Receiver is a single-owner, externally driven message sink. It is
// created and destroyed explicitly and is never garbage-collected while
// reachable: it keeps its own HandlerTable rather than living inside a
// Framework's Directory, matching spec §3's "framework_id=0, never
// owned by a Directory" field description.
type Receiver struct {
	addr  address.Address
	table *handler.Table

	mu       sync.Mutex
	cond     *sync.Cond
	arrivals uint32
}

// New constructs a Receiver bound to addr (conventionally built with
// address.ReceiverFrameworkID as its framework id).
func New(addr address.Address) *Receiver {
	r := &Receiver{addr: addr, table: handler.New()}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Address returns the Receiver's own address.
func (r *Receiver) Address() address.Address {
	return r.addr
}

// RegisterHandler installs fn for messages of type T.
func RegisterHandler[T any](r *Receiver, fn func(value T, from address.Address)) {
	handler.Register(r.table, fn)
}

// DeregisterHandler removes one handler registered for type T, if any.
func DeregisterHandler[T any](r *Receiver) bool {
	ok := handler.DeregisterOne[T](r.table)
	r.table.Compact()
	return ok
}

// Push delivers msg: every matching handler runs synchronously on the
// caller's goroutine (typically a Scheduler worker routing a Send to
// this Receiver's address), then arrival_count is incremented and
// waiters are woken. The message is "destroyed" by simply going out of
// scope once Push returns — Go's GC reclaims it.
func (r *Receiver) Push(msg message.Message) {
	r.table.Dispatch(msg.TypeID, msg.Value, msg.From)
	r.table.Compact()

	r.mu.Lock()
	r.arrivals++
	r.cond.Broadcast()
	r.mu.Unlock()

	obsprom.GetMetrics().RecordReceiverArrival(r.addr.Name())
}

// Wait blocks indefinitely until at least one message has arrived (see
// DESIGN.md Open Question 1: the original Theron's Receiver::Wait has
// no timeout), then atomically decrements up to max from the arrival
// counter and returns the amount decremented.
func (r *Receiver) Wait(max uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.arrivals == 0 {
		r.cond.Wait()
	}
	return r.takeLocked(max)
}

// Consume is the non-blocking variant of Wait: it returns 0 immediately
// if no arrivals are currently pending.
func (r *Receiver) Consume(max uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.arrivals == 0 {
		return 0
	}
	return r.takeLocked(max)
}

func (r *Receiver) takeLocked(max uint32) uint32 {
	take := max
	if take > r.arrivals {
		take = r.arrivals
	}
	r.arrivals -= take
	return take
}

// Count returns the current arrival count without consuming it.
func (r *Receiver) Count() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arrivals
}

// Reset zeroes the arrival count.
func (r *Receiver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arrivals = 0
}
