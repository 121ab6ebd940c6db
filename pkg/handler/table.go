// Package handler implements the per-actor HandlerTable (C2): an ordered
// list of typed handlers with deferred, tombstone-based deregistration so
// that mutations made from inside a handler never disturb the dispatch
// currently iterating the table.
package handler

import (
	"sync"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/message"
)

// Invocation is a registered handler body. It receives the message's
// type-erased value and the sender's Address.
type Invocation func(value any, from address.Address)

// DefaultInvocation is the signature for a default/fallback handler —
// either of the two forms the spec documents collapses to this shape,
// with Value/Size left zero for the (from)-only form.
type DefaultInvocation func(value any, from address.Address)

type entry struct {
	typeID    message.TypeID
	invoke    Invocation
	tombstone bool
}

// Table is an ordered sequence of {type_id, invocation} pairs owned by a
// single actor. Registration appends; deregistration marks the most
// recently registered matching entry as a tombstone, and tombstones are
// compacted out between dispatches — never mid-dispatch, since Dispatch
// iterates over a stable snapshot taken at entry.
type Table struct {
	mu      sync.Mutex
	entries []entry
	deflt   DefaultInvocation
}

// New returns an empty HandlerTable.
func New() *Table {
	return &Table{}
}

// Register appends a handler for T. Each registration is independent:
// registering the same (type, function) pair twice yields two entries,
// both of which run on dispatch, per spec §4.2 ("duplicates are allowed
// and each counts").
func Register[T any](t *Table, fn func(value T, from address.Address)) {
	id := message.TypeIDOf[T]()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry{
		typeID: id,
		invoke: func(value any, from address.Address) {
			v, _ := value.(T)
			fn(v, from)
		},
	})
}

// IsRegistered reports whether at least one non-tombstoned handler is
// registered for T.
func IsRegistered[T any](t *Table) bool {
	id := message.TypeIDOf[T]()
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.typeID == id && !e.tombstone {
			return true
		}
	}
	return false
}

// DeregisterOne marks the last matching, non-tombstoned entry for T as a
// tombstone. Compaction happens on the next call to Compact (invoked by
// the dispatcher between dispatches, never mid-dispatch), matching the
// Design Notes' "tombstone + compaction between dispatches" scheme.
func DeregisterOne[T any](t *Table) bool {
	id := message.TypeIDOf[T]()
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].typeID == id && !t.entries[i].tombstone {
			t.entries[i].tombstone = true
			return true
		}
	}
	return false
}

// SetDefault installs the actor's own default handler, invoked by the
// FallbackChain before the framework's fallback handler.
func (t *Table) SetDefault(fn DefaultInvocation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deflt = fn
}

// Default returns the actor's default handler, or nil if none is set.
func (t *Table) Default() DefaultInvocation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deflt
}

// snapshot is the stable view of entries taken at dispatch entry; a
// []entry value copy is cheap (entry holds only a typeID, a func value,
// and a bool) and immune to concurrent Register/DeregisterOne calls made
// by the handler currently executing, since those mutate t.entries, not
// the copy.
func (t *Table) snapshot() []entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := make([]entry, len(t.entries))
	copy(snap, t.entries)
	return snap
}

// Compact removes tombstoned entries accumulated since the last compact.
// Must only be called between dispatches (see Dispatcher in pkg/scheduler),
// never while a snapshot from this Table is still being iterated.
func (t *Table) Compact() {
	t.mu.Lock()
	defer t.mu.Unlock()
	live := t.entries[:0]
	for _, e := range t.entries {
		if !e.tombstone {
			live = append(live, e)
		}
	}
	t.entries = live
}

// Dispatch invokes every non-tombstoned entry matching typeID, in
// registration order, against value/from. It returns true iff at least
// one entry matched ("handled" in spec terms). Mutations made by an
// invoked handler (Register/DeregisterOne calls) do not affect this
// dispatch's snapshot.
func (t *Table) Dispatch(typeID message.TypeID, value any, from address.Address) bool {
	snap := t.snapshot()
	handled := false
	for _, e := range snap {
		if e.typeID == typeID && !e.tombstone {
			handled = true
			e.invoke(value, from)
		}
	}
	return handled
}
