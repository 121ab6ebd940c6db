package mailbox

import (
	"sync"

	"github.com/antithesishq/antithesis-sdk-go/assert"
	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/core"
)

// Directory is a fixed-capacity, index-addressable table of mailboxes
// (C4). An Address' mailbox index directly indexes into slots; slots are
// stable once allocated. A freed slot is cleared and its index pushed onto
// a LIFO free list, so the next Allocate reuses it and an Address still
// held for the old mailbox then resolves to the new one.
type Directory struct {
	frameworkID uint32

	mu       sync.Mutex
	slots    []*Mailbox
	freeList []uint32
	byName   map[string]uint32
}

// NewDirectory constructs a Directory with capacity N for frameworkID.
func NewDirectory(frameworkID uint32, capacity uint32) *Directory {
	d := &Directory{
		frameworkID: frameworkID,
		slots:       make([]*Mailbox, capacity),
		freeList:    make([]uint32, capacity),
		byName:      make(map[string]uint32),
	}
	for i := range d.freeList {
		d.freeList[i] = uint32(i)
	}
	return d
}

// Allocate reserves a free slot and returns its Address and Mailbox. It
// returns ok=false if the directory is at capacity (CapacityExhausted,
// spec §7) — surfaced to the caller as a construction-site failure, never
// a panic.
func (d *Directory) Allocate(name string) (addr address.Address, mb *Mailbox, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.freeList) == 0 {
		return address.Address{}, nil, false
	}
	idx := d.freeList[len(d.freeList)-1]
	d.freeList = d.freeList[:len(d.freeList)-1]

	mb = New(name)
	d.slots[idx] = mb
	if name != "" {
		d.byName[name] = idx
	}
	addr = address.New(d.frameworkID, idx, name)
	return addr, mb, true
}

// Free releases the slot addressed by addr back to the free list,
// clearing its entry. The caller must have already Unbind()'d any actor
// and ensured no further sends will target addr.
func (d *Directory) Free(addr address.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := addr.MailboxIndex()
	if int(idx) >= len(d.slots) || d.slots[idx] == nil {
		return
	}
	name := d.slots[idx].Name()
	if name != "" {
		delete(d.byName, name)
	}
	d.slots[idx] = nil
	d.freeList = append(d.freeList, idx)
	assert.Always(len(d.freeList) <= len(d.slots), "a freed slot never grows the directory past its fixed capacity", map[string]any{
		"free":     len(d.freeList),
		"capacity": len(d.slots),
	})
}

// Lookup resolves addr to its Mailbox, or ok=false if the slot is
// unallocated (AddressNotFound, spec §7).
func (d *Directory) Lookup(addr address.Address) (mb *Mailbox, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := addr.MailboxIndex()
	if int(idx) >= len(d.slots) {
		return nil, false
	}
	mb = d.slots[idx]
	return mb, mb != nil
}

// LookupByName resolves a registered name to its Address, or ok=false if
// no mailbox with that name is currently allocated.
func (d *Directory) LookupByName(name string) (addr address.Address, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx, found := d.byName[name]
	if !found {
		return address.Address{}, false
	}
	return address.New(d.frameworkID, idx, name), true
}

// Capacity returns the directory's fixed slot capacity.
func (d *Directory) Capacity() uint32 {
	return uint32(len(d.slots))
}

// InUse returns the number of currently allocated slots.
func (d *Directory) InUse() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint32(len(d.slots)) - uint32(len(d.freeList))
}

// ErrCapacityExhausted is returned (wrapped by callers) when Allocate
// fails because the directory is full.
var ErrCapacityExhausted = &core.Error{Code: "CAPACITY_EXHAUSTED", Message: "directory has no free mailbox slots"}
