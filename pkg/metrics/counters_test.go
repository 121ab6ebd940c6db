package metrics_test

import (
	"testing"

	"github.com/fluxorio/theron/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestAddAndGet(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg, 1)

	c.Add(metrics.ExternalWorker, metrics.MessagesProcessed, 3)
	c.Add(metrics.ExternalWorker, metrics.MessagesProcessed, 2)
	assert.Equal(t, uint64(5), c.Get(metrics.MessagesProcessed))
}

func TestResetZeroesImmediateRead(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg, 1)

	c.Add(metrics.ExternalWorker, metrics.LocalPushes, 7)
	c.Reset()
	assert.Equal(t, uint64(0), c.Get(metrics.LocalPushes))
}

func TestMonotonicBetweenResets(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg, 1)

	var last uint64
	for i := 0; i < 5; i++ {
		c.Add(metrics.ExternalWorker, metrics.ThreadsPulsed, 1)
		cur := c.Get(metrics.ThreadsPulsed)
		assert.GreaterOrEqual(t, cur, last)
		last = cur
	}
}

func TestObserveGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg, 1)

	c.Observe(metrics.ExternalWorker, metrics.MailboxQueueMax, 42)
	assert.Equal(t, uint64(42), c.Get(metrics.MailboxQueueMax))
}

func TestPerThreadCountersShardByWorkerID(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg, 1)

	c.Add(0, metrics.MessagesProcessed, 3)
	c.Add(1, metrics.MessagesProcessed, 5)
	c.Add(0, metrics.MessagesProcessed, 1)

	out := make([]uint64, 2)
	known := c.GetPerThreadCounters(metrics.MessagesProcessed, out)
	assert.Equal(t, 2, known)
	assert.Equal(t, uint64(4), out[0])
	assert.Equal(t, uint64(5), out[1])
	assert.Equal(t, uint64(8), c.Get(metrics.MessagesProcessed))
}

func TestPerThreadCountersIgnoreExternalWorker(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg, 1)

	c.Add(0, metrics.MessagesProcessed, 1)
	c.Add(metrics.ExternalWorker, metrics.MessagesProcessed, 9)

	out := make([]uint64, 1)
	known := c.GetPerThreadCounters(metrics.MessagesProcessed, out)
	assert.Equal(t, 1, known)
	assert.Equal(t, uint64(1), out[0])
	assert.Equal(t, uint64(10), c.Get(metrics.MessagesProcessed))
}
