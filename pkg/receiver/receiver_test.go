package receiver_test

import (
	"sync"
	"testing"
	"time"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/message"
	"github.com/fluxorio/theron/pkg/receiver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pong struct{ n int }

func TestPushInvokesHandlerAndIncrementsArrivals(t *testing.T) {
	r := receiver.New(address.New(address.ReceiverFrameworkID, 1, "r"))

	var got int
	receiver.RegisterHandler(r, func(value pong, from address.Address) {
		got = value.n
	})

	r.Push(message.New(pong{n: 9}, address.Null()))

	assert.Equal(t, 9, got)
	assert.Equal(t, uint32(1), r.Count())
}

func TestConsumeNonBlocking(t *testing.T) {
	r := receiver.New(address.New(address.ReceiverFrameworkID, 1, "r"))

	assert.Equal(t, uint32(0), r.Consume(5))

	r.Push(message.New(pong{n: 1}, address.Null()))
	r.Push(message.New(pong{n: 2}, address.Null()))
	r.Push(message.New(pong{n: 3}, address.Null()))

	assert.Equal(t, uint32(2), r.Consume(2))
	assert.Equal(t, uint32(1), r.Count())
}

func TestWaitBlocksUntilArrival(t *testing.T) {
	r := receiver.New(address.New(address.ReceiverFrameworkID, 1, "r"))

	var wg sync.WaitGroup
	wg.Add(1)
	var taken uint32
	go func() {
		defer wg.Done()
		taken = r.Wait(10)
	}()

	time.Sleep(10 * time.Millisecond)
	r.Push(message.New(pong{n: 1}, address.Null()))
	wg.Wait()

	assert.Equal(t, uint32(1), taken)
}

func TestResetZeroesArrivals(t *testing.T) {
	r := receiver.New(address.New(address.ReceiverFrameworkID, 1, "r"))
	r.Push(message.New(pong{n: 1}, address.Null()))
	r.Reset()
	assert.Equal(t, uint32(0), r.Count())
}

func TestDeregisterHandlerStopsFutureDelivery(t *testing.T) {
	r := receiver.New(address.New(address.ReceiverFrameworkID, 1, "r"))

	calls := 0
	receiver.RegisterHandler(r, func(value pong, from address.Address) {
		calls++
	})
	require.True(t, receiver.DeregisterHandler[pong](r))

	r.Push(message.New(pong{n: 1}, address.Null()))
	assert.Equal(t, 0, calls)
}
