package framework

import (
	"fmt"
	"sync"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/receiver"
)

var errFrameworkIDsExhausted = fmt.Errorf("framework: process-wide framework id space exhausted")

// frameworkRegistry is the process-wide table of live Frameworks and
// Receivers (spec §3's "process-wide framework table" and §4.8 step 1),
// a single package-scoped singleton with explicit init/teardown per
// each Framework's lifecycle rather than ambient global state mutated
// from arbitrary call sites — every mutation goes through New/Stop and
// Register/UnregisterReceiver.
type frameworkRegistry struct {
	mu              sync.Mutex
	frameworks      map[uint32]*Framework
	receivers       map[uint64]*receiver.Receiver
	nextID          uint32
	nextReceiverIdx uint32
}

var registry = &frameworkRegistry{
	frameworks: make(map[uint32]*Framework),
	receivers:  make(map[uint64]*receiver.Receiver),
	nextID:     1, // 0 is reserved for Receivers (address.ReceiverFrameworkID)
	// Receiver index 0 under framework id 0 would pack to address.Null().
	nextReceiverIdx: 1,
}

const maxFrameworkID = 1<<12 - 1 // matches pkg/address's 12-bit framework id field

func (r *frameworkRegistry) reserve() (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.nextID
	for {
		id := r.nextID
		r.nextID++
		if r.nextID > maxFrameworkID {
			r.nextID = 1
		}
		if _, taken := r.frameworks[id]; !taken {
			return id, nil
		}
		if r.nextID == start {
			return 0, errFrameworkIDsExhausted
		}
	}
}

func (r *frameworkRegistry) register(f *Framework) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frameworks[f.id] = f
}

func (r *frameworkRegistry) unregister(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.frameworks, id)
}

func (r *frameworkRegistry) lookup(id uint32) (*Framework, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.frameworks[id]
	return f, ok
}

// reserveReceiverIndex hands out a process-wide unique mailbox index for
// a new Receiver, since Receivers share the reserved framework id 0 and
// are not allocated out of any Directory (spec §3: "never owned by a
// Directory").
func (r *frameworkRegistry) reserveReceiverIndex() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.nextReceiverIdx
	r.nextReceiverIdx++
	return idx
}

func (r *frameworkRegistry) registerReceiver(rcv *receiver.Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receivers[rcv.Address().Key()] = rcv
}

func (r *frameworkRegistry) unregisterReceiver(rcv *receiver.Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.receivers, rcv.Address().Key())
}

func (r *frameworkRegistry) lookupReceiver(addr address.Address) (*receiver.Receiver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rcv, ok := r.receivers[addr.Key()]
	return rcv, ok
}
