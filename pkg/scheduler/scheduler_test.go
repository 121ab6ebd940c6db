package scheduler_test

import (
	"sync"
	"testing"
	"time"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/mailbox"
	"github.com/fluxorio/theron/pkg/message"
	"github.com/fluxorio/theron/pkg/scheduler"
	"github.com/fluxorio/theron/pkg/workqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingActor struct {
	mu    sync.Mutex
	total int
}

func (c *countingActor) Dispatch(m message.Message) bool {
	if _, ok := message.ValueAs[tick](m); !ok {
		return false
	}
	c.mu.Lock()
	c.total++
	c.mu.Unlock()
	return true
}

func (c *countingActor) InvokeDefault(value any, from address.Address) bool { return false }
func (c *countingActor) Compact()                                          {}
func (c *countingActor) SetWorkerContext(ctx any)                          {}

func TestSchedulerProcessesQueuedMailbox(t *testing.T) {
	q := workqueue.NewBlocking(nil, nil)
	s := scheduler.New(scheduler.Config{Queue: q, MinThreads: 2, MaxThreads: 2})
	defer s.Stop()

	mb := mailbox.New("worker-mb")
	actor := &countingActor{}
	mb.Bind(actor)

	for i := 0; i < 10; i++ {
		mb.Push(message.New(tick{n: i}, address.Null()))
	}
	s.Enqueue(nil, mb, false)

	require.Eventually(t, func() bool {
		actor.mu.Lock()
		defer actor.mu.Unlock()
		return actor.total == 10
	}, time.Second, time.Millisecond)
}

func TestSchedulerEnqueueIsIdempotentWhileScheduled(t *testing.T) {
	q := workqueue.NewBlocking(nil, nil)
	s := scheduler.New(scheduler.Config{Queue: q, MinThreads: 0, MaxThreads: 0})
	defer s.Stop()

	mb := mailbox.New("mb")
	mb.Push(message.New(tick{n: 1}, address.Null()))
	s.Enqueue(nil, mb, false)
	s.Enqueue(nil, mb, false)

	assert.True(t, mb.Scheduled())
}

func TestSetMinThreadsGrowsPool(t *testing.T) {
	q := workqueue.NewBlocking(nil, nil)
	s := scheduler.New(scheduler.Config{Queue: q, MinThreads: 1, MaxThreads: 4})
	defer s.Stop()

	s.SetMinThreads(3)
	assert.Equal(t, 3, s.GetNumThreads())
}

func TestSetMaxThreadsShrinksPool(t *testing.T) {
	q := workqueue.NewBlocking(nil, nil)
	s := scheduler.New(scheduler.Config{Queue: q, MinThreads: 4, MaxThreads: 4})

	s.SetMaxThreads(1)
	require.Eventually(t, func() bool {
		return s.GetNumThreads() == 1
	}, time.Second, time.Millisecond)
	s.Stop()
}

func TestSetMinThreadsGrowsBackAfterMaxThreadsShrink(t *testing.T) {
	q := workqueue.NewBlocking(nil, nil)
	s := scheduler.New(scheduler.Config{Queue: q, MinThreads: 2, MaxThreads: 2})
	defer s.Stop()

	s.SetMaxThreads(1)
	require.Eventually(t, func() bool {
		return s.GetNumThreads() == 1
	}, time.Second, time.Millisecond)

	s.SetMaxThreads(4)
	s.SetMinThreads(4)
	require.Eventually(t, func() bool {
		return s.GetNumThreads() == 4
	}, time.Second, time.Millisecond)
}

func TestGetPeakThreadsNeverDecreases(t *testing.T) {
	q := workqueue.NewBlocking(nil, nil)
	s := scheduler.New(scheduler.Config{Queue: q, MinThreads: 4, MaxThreads: 4})
	defer s.Stop()

	assert.Equal(t, 4, s.GetPeakThreads())

	s.SetMaxThreads(1)
	require.Eventually(t, func() bool {
		return s.GetNumThreads() == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 4, s.GetPeakThreads())
}

func TestSetMaxThreadsClampsToThreadCeiling(t *testing.T) {
	q := workqueue.NewBlocking(nil, nil)
	s := scheduler.New(scheduler.Config{Queue: q, MinThreads: 1, MaxThreads: 1, ThreadCeiling: 2})
	defer s.Stop()

	s.SetMaxThreads(8)
	assert.Equal(t, 2, s.GetMaxThreads())
}

func TestStopDrainsWorkers(t *testing.T) {
	q := workqueue.NewBlocking(nil, nil)
	s := scheduler.New(scheduler.Config{Queue: q, MinThreads: 2, MaxThreads: 2})

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
