package mailbox_test

import (
	"sync"
	"testing"
	"time"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/mailbox"
	"github.com/fluxorio/theron/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushReportsWasEmpty(t *testing.T) {
	mb := mailbox.New("m")
	wasEmpty := mb.Push(message.New(1, address.Null()))
	assert.True(t, wasEmpty)

	wasEmpty = mb.Push(message.New(2, address.Null()))
	assert.False(t, wasEmpty)
}

func TestPopHeadFIFO(t *testing.T) {
	mb := mailbox.New("m")
	mb.Push(message.New(1, address.Null()))
	mb.Push(message.New(2, address.Null()))

	m1, ok, more := mb.PopHead()
	require.True(t, ok)
	assert.True(t, more)
	v1, _ := message.ValueAs[int](m1)
	assert.Equal(t, 1, v1)

	m2, ok, more := mb.PopHead()
	require.True(t, ok)
	assert.False(t, more)
	v2, _ := message.ValueAs[int](m2)
	assert.Equal(t, 2, v2)

	_, ok, _ = mb.PopHead()
	assert.False(t, ok)
}

func TestPinDoesNotChangeCount(t *testing.T) {
	mb := mailbox.New("m")
	mb.Push(message.New(1, address.Null()))
	assert.Equal(t, uint32(1), mb.Count())

	mb.Pin()
	assert.Equal(t, uint32(1), mb.Count())
	mb.Unpin()
}

func TestUnbindWaitsForUnpin(t *testing.T) {
	mb := mailbox.New("m")
	mb.Pin()

	var wg sync.WaitGroup
	wg.Add(1)
	unbound := make(chan struct{})
	go func() {
		defer wg.Done()
		mb.Unbind()
		close(unbound)
	}()

	select {
	case <-unbound:
		t.Fatal("Unbind returned before Unpin")
	case <-time.After(20 * time.Millisecond):
	}

	mb.Unpin()
	wg.Wait()
}

func TestScheduledExclusivity(t *testing.T) {
	mb := mailbox.New("m")
	prev := mb.SetScheduled(true)
	assert.False(t, prev)
	prev = mb.SetScheduled(true)
	assert.True(t, prev)
}
