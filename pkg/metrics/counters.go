// Package metrics implements Theron's per-worker event counters (C12),
// aggregated on read, backed by Prometheus the way the teacher's
// pkg/observability/prometheus wraps a dedicated Registerer per service.
package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/antithesishq/antithesis-sdk-go/assert"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counter names the contract-stable counter enumeration from spec §6.
type Counter int

const (
	MessagesProcessed Counter = iota
	ThreadsPulsed
	ThreadsWoken
	LocalPushes
	SharedPushes
	Yields
	MailboxQueueMax
	HandlerPanics
	counterCount
)

func (c Counter) String() string {
	switch c {
	case MessagesProcessed:
		return "MessagesProcessed"
	case ThreadsPulsed:
		return "ThreadsPulsed"
	case ThreadsWoken:
		return "ThreadsWoken"
	case LocalPushes:
		return "LocalPushes"
	case SharedPushes:
		return "SharedPushes"
	case Yields:
		return "Yields"
	case MailboxQueueMax:
		return "MailboxQueueMax"
	case HandlerPanics:
		return "HandlerPanics"
	default:
		return "Unknown"
	}
}

// ExternalWorker is the sentinel workerID for an event that did not
// originate on any scheduler worker goroutine (a framework-external Send,
// or a broadcast WakeAll with no single worker to attribute to). Add and
// Observe skip per-worker sharding for it, so it only shows up in the
// aggregate returned by Get.
const ExternalWorker = -1

// Counters holds one atomic counter per Counter name, aggregated
// globally, plus a per-worker shard of every counter (read by
// GetPerThreadCounters) and a mirrored Prometheus registration so the
// aggregate values are scrapable externally.
type Counters struct {
	values   [counterCount]atomic.Uint64
	prom     [counterCount]prometheus.Counter
	queueMax prometheus.Gauge

	// shardMu guards shards' length; growing it happens at most once per
	// newly seen worker id. Add and Observe take it briefly on every call
	// to look up the shard; the cells themselves are updated atomically.
	shardMu sync.Mutex
	shards  []*[counterCount]atomic.Uint64
}

// New constructs a Counters set registered against registerer. Every
// metric carries a "framework_id" const label set to frameworkID, so the
// registerer passed in must not already add that label.
func New(registerer prometheus.Registerer, frameworkID uint32) *Counters {
	c := &Counters{}
	factory := promauto.With(registerer)
	labels := prometheus.Labels{"framework_id": strconv.FormatUint(uint64(frameworkID), 10)}

	for i := Counter(0); i < counterCount; i++ {
		if i == MailboxQueueMax {
			continue
		}
		c.prom[i] = factory.NewCounter(prometheus.CounterOpts{
			Name:        "theron_" + toSnake(i.String()) + "_total",
			Help:        "Theron scheduler counter: " + i.String(),
			ConstLabels: labels,
		})
	}
	c.queueMax = factory.NewGauge(prometheus.GaugeOpts{
		Name:        "theron_mailbox_queue_max",
		Help:        "High-water mark of any mailbox's queued-message count",
		ConstLabels: labels,
	})
	return c
}

// Add increments counter n by delta, attributes it to workerID's shard
// (unless workerID is ExternalWorker), and mirrors the update into the
// corresponding Prometheus metric.
func (c *Counters) Add(workerID int, n Counter, delta uint64) {
	c.values[n].Add(delta)
	if c.prom[n] != nil {
		c.prom[n].Add(float64(delta))
	}
	if workerID != ExternalWorker {
		c.shardFor(workerID)[n].Add(delta)
	}
}

// Observe records a high-water-mark sample for MailboxQueueMax: the
// stored value only ever rises within a reset window, per spec §8's
// counter-monotonicity property. The same high-water-mark rule applies
// independently to workerID's shard.
func (c *Counters) Observe(workerID int, n Counter, value uint64) {
	if rose := observeInto(&c.values[n], value); rose {
		assert.Always(c.values[n].Load() >= value, "a high-water-mark counter never decreases between reset windows", map[string]any{
			"counter":  n.String(),
			"observed": value,
		})
		if n == MailboxQueueMax && c.queueMax != nil {
			c.queueMax.Set(float64(value))
		}
	}
	if workerID != ExternalWorker {
		observeInto(&c.shardFor(workerID)[n], value)
	}
}

// observeInto CASes cell up to value if value is higher, and reports
// whether it did.
func observeInto(cell *atomic.Uint64, value uint64) (rose bool) {
	for {
		cur := cell.Load()
		if value <= cur {
			return false
		}
		if cell.CompareAndSwap(cur, value) {
			return true
		}
	}
}

// shardFor returns (allocating if necessary) the per-worker counter array
// for workerID. Growth happens at most once per newly observed worker id,
// guarded by shardMu; the returned pointer is stable for the Counters'
// lifetime, so callers may keep reading/writing it lock-free afterward.
func (c *Counters) shardFor(workerID int) *[counterCount]atomic.Uint64 {
	c.shardMu.Lock()
	defer c.shardMu.Unlock()
	for len(c.shards) <= workerID {
		c.shards = append(c.shards, &[counterCount]atomic.Uint64{})
	}
	return c.shards[workerID]
}

// Get reads the current aggregated value of counter n.
func (c *Counters) Get(n Counter) uint64 {
	return c.values[n].Load()
}

// GetPerThreadCounters copies counter n's per-worker shards into out, one
// slot per worker id in spawn order, and returns the number of workers
// known to this Counters set (which may exceed len(out); only the leading
// min(known, len(out)) shards are copied). Implements C12/spec §6's
// get_per_thread_counters for every counter that has a natural per-worker
// attribution point; see DESIGN.md for the ThreadsWoken exception.
func (c *Counters) GetPerThreadCounters(n Counter, out []uint64) int {
	c.shardMu.Lock()
	defer c.shardMu.Unlock()
	for i := 0; i < len(c.shards) && i < len(out); i++ {
		out[i] = c.shards[i][n].Load()
	}
	return len(c.shards)
}

// Reset zeroes every counter, including per-worker shards. Prometheus
// counters cannot be decremented, so the exported Prometheus series stay
// monotonic for scrapers even though the library-level API models an
// explicit reset — only Get/GetPerThreadCounters reflect the reset.
func (c *Counters) Reset() {
	for i := range c.values {
		c.values[i].Store(0)
	}
	c.shardMu.Lock()
	defer c.shardMu.Unlock()
	for _, shard := range c.shards {
		for i := range shard {
			shard[i].Store(0)
		}
	}
}

func toSnake(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= 'A' && ch <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			out = append(out, ch-'A'+'a')
		} else {
			out = append(out, ch)
		}
	}
	return string(out)
}
