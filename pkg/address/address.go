// Package address implements Theron's opaque mailbox addressing scheme.
package address

import "fmt"

const (
	frameworkBits = 12
	mailboxBits   = 20

	frameworkMax = (1 << frameworkBits) - 1
	mailboxMax   = (1 << mailboxBits) - 1

	mailboxShift = 0
	frameworkShift = mailboxBits
)

// ReceiverFrameworkID is the reserved framework id for Receivers — a
// Receiver is not owned by any Framework's Directory.
const ReceiverFrameworkID = 0

// Address is an immutable 64-bit identifier: a (framework id, mailbox
// index) pair plus an advisory name. Two Addresses are equal iff their
// (framework id, mailbox index) pair is equal; Name is never consulted by
// Equal or by Directory lookups keyed on the packed value.
type Address struct {
	packed uint64
	name   string
}

// Null returns the zero Address, which never resolves to a live mailbox.
func Null() Address {
	return Address{}
}

// New packs a framework id and mailbox index into an Address. It panics
// if either field overflows its bit width — this is a construction-site
// invariant, not a runtime error a caller should branch on.
func New(frameworkID uint32, mailboxIndex uint32, name string) Address {
	if frameworkID > frameworkMax {
		panic(fmt.Sprintf("address: framework id %d exceeds %d-bit range", frameworkID, frameworkBits))
	}
	if mailboxIndex > mailboxMax {
		panic(fmt.Sprintf("address: mailbox index %d exceeds %d-bit range", mailboxIndex, mailboxBits))
	}
	return Address{
		packed: uint64(frameworkID)<<frameworkShift | uint64(mailboxIndex)<<mailboxShift,
		name:   name,
	}
}

// FrameworkID returns the framework-id component.
func (a Address) FrameworkID() uint32 {
	return uint32((a.packed >> frameworkShift) & frameworkMax)
}

// MailboxIndex returns the mailbox-index component.
func (a Address) MailboxIndex() uint32 {
	return uint32((a.packed >> mailboxShift) & mailboxMax)
}

// Name returns the advisory name attached at construction, or "" if none
// was given.
func (a Address) Name() string {
	return a.name
}

// IsNull reports whether a equals the Null address.
func (a Address) IsNull() bool {
	return a.packed == 0
}

// IsReceiver reports whether a addresses a Receiver rather than an actor
// mailbox (framework id 0 is reserved for Receivers).
func (a Address) IsReceiver() bool {
	return a.FrameworkID() == ReceiverFrameworkID
}

// Equal compares two Addresses by their (framework id, mailbox index)
// pair only; Name is advisory and excluded from equality.
func (a Address) Equal(b Address) bool {
	return a.packed == b.packed
}

// Key returns a value suitable for use as a map key, equivalent to the
// packed (framework id, mailbox index) pair.
func (a Address) Key() uint64 {
	return a.packed
}

func (a Address) String() string {
	if a.name != "" {
		return fmt.Sprintf("%s(%d:%d)", a.name, a.FrameworkID(), a.MailboxIndex())
	}
	return fmt.Sprintf("addr(%d:%d)", a.FrameworkID(), a.MailboxIndex())
}
