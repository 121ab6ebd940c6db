package handler_test

import (
	"testing"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/handler"
	"github.com/fluxorio/theron/pkg/message"
	"github.com/stretchr/testify/assert"
)

type tick struct{ N int }

func TestRegisterAndDispatch(t *testing.T) {
	table := handler.New()
	var got int
	handler.Register(table, func(v tick, from address.Address) {
		got += v.N
	})

	from := address.New(1, 1, "")
	id := message.TypeIDOf[tick]()
	handled := table.Dispatch(id, tick{N: 3}, from)

	assert.True(t, handled)
	assert.Equal(t, 3, got)
}

func TestDuplicateRegistrationsBothRun(t *testing.T) {
	table := handler.New()
	count := 0
	handler.Register(table, func(v tick, from address.Address) { count++ })
	handler.Register(table, func(v tick, from address.Address) { count++ })

	id := message.TypeIDOf[tick]()
	table.Dispatch(id, tick{N: 1}, address.Null())

	assert.Equal(t, 2, count)
}

func TestDeregisterRoundTrip(t *testing.T) {
	table := handler.New()
	handler.Register(table, func(v tick, from address.Address) {})

	assert.True(t, handler.IsRegistered[tick](table))
	assert.True(t, handler.DeregisterOne[tick](table))
	table.Compact()
	assert.False(t, handler.IsRegistered[tick](table))

	id := message.TypeIDOf[tick]()
	handled := table.Dispatch(id, tick{N: 1}, address.Null())
	assert.False(t, handled)
}

func TestUnmatchedReturnsFalse(t *testing.T) {
	table := handler.New()
	id := message.TypeIDOf[tick]()
	assert.False(t, table.Dispatch(id, tick{}, address.Null()))
}

func TestMutationDuringDispatchDoesNotDisturbSnapshot(t *testing.T) {
	table := handler.New()
	calls := 0
	handler.Register(table, func(v tick, from address.Address) {
		calls++
		// Registering a new handler mid-dispatch must not extend the
		// snapshot currently being iterated.
		handler.Register(table, func(v tick, from address.Address) { calls++ })
	})

	id := message.TypeIDOf[tick]()
	table.Dispatch(id, tick{}, address.Null())
	assert.Equal(t, 1, calls)

	// The second handler is visible on the *next* dispatch.
	table.Dispatch(id, tick{}, address.Null())
	assert.Equal(t, 3, calls)
}
