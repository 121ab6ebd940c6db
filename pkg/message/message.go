// Package message implements Theron's type-erased message envelope (C1)
// and the stable type-tag registry used by the handler table and
// dispatcher to resolve a message's type without relying on Go's runtime
// type descriptors directly.
package message

import "github.com/fluxorio/theron/pkg/address"

// Message is the type-erased envelope carried through a Mailbox. Value
// holds the copy-by-value payload; ownership of Value passes to whichever
// code calls Mailbox.PopHead: the Mailbox stops referencing it, and the dispatcher is
// responsible for ensuring it is "destroyed" (eligible for GC) exactly
// once handlers have run.
type Message struct {
	TypeID TypeID
	From   address.Address
	Value  any
}

// New builds a Message carrying value, stamping it with value's stable
// TypeID and the sender's Address.
func New[T any](value T, from address.Address) Message {
	return Message{
		TypeID: TypeIDOf[T](),
		From:   from,
		Value:  value,
	}
}

// ValueAs attempts to recover the statically typed payload from a
// Message. It returns false if the Message's dynamic type does not match
// T, which should not happen for a Message routed through a HandlerTable
// entry registered for T.
func ValueAs[T any](m Message) (T, bool) {
	v, ok := m.Value.(T)
	return v, ok
}
