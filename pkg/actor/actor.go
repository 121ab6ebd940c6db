// Package actor implements the Actor API (spec §4.5-4.6): registering
// typed handlers, sending messages by address or tail-send locality
// hint, and reading an actor's own queue depth. It follows the
// teacher's BaseVerticle template-method shape (register/deregister
// hooks, a thin lifecycle, fail-fast argument checks) generalized from
// a single event-loop consumer to a per-actor HandlerTable.
package actor

import (
	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/core/failfast"
	"github.com/fluxorio/theron/pkg/handler"
	"github.com/fluxorio/theron/pkg/mailbox"
	"github.com/fluxorio/theron/pkg/message"
)

// FrameworkHandle is the narrow surface an Actor needs from its owning
// Framework: routing a message to another address. Declared here
// (rather than importing pkg/framework) to avoid an actor<->framework
// import cycle — pkg/framework.Framework satisfies this structurally.
type FrameworkHandle interface {
	// SendMessage routes msg to addr, using localHint as the tail-send
	// locality hint, and reports whether addr resolved to a live
	// mailbox. workerCtx, if non-nil, identifies the worker currently
	// dispatching the sending actor (set by the scheduler for the
	// duration of one dispatch) so a tail-send can land on that
	// worker's local slot instead of the shared queue.
	SendMessage(addr address.Address, msg message.Message, localHint bool, workerCtx any) bool
	// FrameworkID returns the id of the owning framework.
	FrameworkID() uint32
}

// Actor is a single schedulable unit: a HandlerTable bound to exactly
// one Mailbox inside exactly one Framework. The zero value is not
// ready for use — construct with New.
type Actor struct {
	addr     address.Address
	mb       *mailbox.Mailbox
	table    *handler.Table
	fw       FrameworkHandle
	defaultLocalHint bool

	workerCtx any
}

// New constructs an Actor bound to mb at addr, routing outgoing sends
// through fw. The Actor registers itself as mb's bound actor.
func New(addr address.Address, mb *mailbox.Mailbox, fw FrameworkHandle) *Actor {
	failfast.NotNil(mb, "mb")
	failfast.NotNil(fw, "fw")
	a := &Actor{
		addr:  addr,
		mb:    mb,
		table: handler.New(),
		fw:    fw,
	}
	mb.Bind(a)
	return a
}

// GetAddress returns the actor's own address, usable by peers as a
// return address.
func (a *Actor) GetAddress() address.Address {
	return a.addr
}

// GetNumQueuedMessages reports the actor's mailbox depth. The message a
// handler is currently processing has already been popped and is not
// counted (see DESIGN.md Open Question 2).
func (a *Actor) GetNumQueuedMessages() uint32 {
	return a.mb.Count()
}

// GetFramework returns the handle of the framework this actor is
// registered against.
func (a *Actor) GetFramework() FrameworkHandle {
	return a.fw
}

// RegisterHandler installs fn as a handler for messages of type T.
// Multiple handlers may be registered for the same type; all run.
func RegisterHandler[T any](a *Actor, fn func(value T, from address.Address)) {
	handler.Register(a.table, fn)
}

// IsHandlerRegistered reports whether at least one handler is currently
// registered for type T.
func IsHandlerRegistered[T any](a *Actor) bool {
	return handler.IsRegistered[T](a.table)
}

// DeregisterHandler removes one handler registered for type T, if any,
// applying tombstone+compaction semantics so an in-flight dispatch
// iterating the table is never disturbed.
func DeregisterHandler[T any](a *Actor) bool {
	return handler.DeregisterOne[T](a.table)
}

// SetDefaultHandler installs fn as the actor's fallback for messages
// that no registered handler claims. A nil fn clears the default.
func (a *Actor) SetDefaultHandler(fn handler.DefaultInvocation) {
	a.table.SetDefault(fn)
}

// Send constructs a Message of type T from value, stamps it with this
// actor's own address as the return address, and routes it to to via
// the owning framework. localHint requests the tail-send locality
// optimization (spec §4.3): the sending worker's local slot is
// preferred for to's mailbox if it is free.
func Send[T any](a *Actor, value T, to address.Address, localHint bool) bool {
	msg := message.New(value, a.addr)
	return a.fw.SendMessage(to, msg, localHint, a.workerCtx)
}

// TailSend is Send with the locality hint forced on, matching the
// spec's named tail-call optimization for an actor's last send inside
// a handler.
func TailSend[T any](a *Actor, value T, to address.Address) bool {
	return Send(a, value, to, true)
}

// Dispatch implements mailbox.Actor: it runs every handler registered
// for m's type and reports whether at least one matched.
func (a *Actor) Dispatch(m message.Message) bool {
	return a.table.Dispatch(m.TypeID, m.Value, m.From)
}

// InvokeDefault implements mailbox.Actor: it runs the actor's own
// default handler, if one is registered.
func (a *Actor) InvokeDefault(value any, from address.Address) bool {
	d := a.table.Default()
	if d == nil {
		return false
	}
	d(value, from)
	return true
}

// Compact implements mailbox.Actor: it applies deferred handler-table
// tombstones between dispatches.
func (a *Actor) Compact() {
	a.table.Compact()
}

// SetWorkerContext implements mailbox.Actor: the scheduler calls this
// with the dispatching worker's context before invoking handlers, and
// clears it (nil) once the dispatch completes.
func (a *Actor) SetWorkerContext(ctx any) {
	a.workerCtx = ctx
}
