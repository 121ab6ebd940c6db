package address_test

import (
	"testing"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndAccessors(t *testing.T) {
	a := address.New(3, 1024, "worker-pool")
	assert.Equal(t, uint32(3), a.FrameworkID())
	assert.Equal(t, uint32(1024), a.MailboxIndex())
	assert.Equal(t, "worker-pool", a.Name())
	assert.False(t, a.IsNull())
}

func TestEqualIgnoresName(t *testing.T) {
	a := address.New(1, 2, "alice")
	b := address.New(1, 2, "bob")
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
}

func TestNullAddress(t *testing.T) {
	n := address.Null()
	assert.True(t, n.IsNull())
	assert.True(t, n.IsReceiver())
}

func TestReceiverFramework(t *testing.T) {
	a := address.New(address.ReceiverFrameworkID, 5, "")
	assert.True(t, a.IsReceiver())
}

func TestOverflowPanics(t *testing.T) {
	require.Panics(t, func() { address.New(1<<12, 0, "") })
	require.Panics(t, func() { address.New(0, 1<<20, "") })
}
