package endpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/endpoint"
	natssrv "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/require"
)

func runTestNATSServer(t *testing.T) *natssrv.Server {
	t.Helper()

	opts := &natssrv.Options{Port: -1}
	s, err := natssrv.NewServer(opts)
	require.NoError(t, err)

	go s.Start()
	if !s.ReadyForConnections(5 * time.Second) {
		s.Shutdown()
		t.Fatal("nats server not ready")
	}
	t.Cleanup(s.Shutdown)
	return s
}

func TestNATSEndpointRegisterAndResolve(t *testing.T) {
	s := runTestNATSServer(t)

	cfg := endpoint.NATSConfig{
		URL:    s.ClientURL(),
		Prefix: "theron.test",
		Secret: []byte("test-secret"),
	}
	publisher, err := endpoint.NewNATS(cfg)
	require.NoError(t, err)
	defer publisher.Close()

	resolver, err := endpoint.NewNATS(cfg)
	require.NoError(t, err)
	defer resolver.Close()

	ctx := context.Background()
	want := address.New(1, 42, "results")
	require.NoError(t, publisher.Register(ctx, "results", want))

	var got address.Address
	require.Eventually(t, func() bool {
		var resolveErr error
		got, resolveErr = resolver.Resolve(ctx, "results")
		return resolveErr == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, want, got)
}

func TestNATSEndpointResolveUnregisteredNameFails(t *testing.T) {
	s := runTestNATSServer(t)

	resolver, err := endpoint.NewNATS(endpoint.NATSConfig{
		URL:            s.ClientURL(),
		Prefix:         "theron.test",
		Secret:         []byte("test-secret"),
		RequestTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	defer resolver.Close()

	_, err = resolver.Resolve(context.Background(), "nobody")
	require.ErrorIs(t, err, endpoint.ErrNameNotRegistered)
}

func TestNATSEndpointUnregisterStopsResolving(t *testing.T) {
	s := runTestNATSServer(t)

	cfg := endpoint.NATSConfig{
		URL:            s.ClientURL(),
		Prefix:         "theron.test",
		Secret:         []byte("test-secret"),
		RequestTimeout: 200 * time.Millisecond,
	}
	publisher, err := endpoint.NewNATS(cfg)
	require.NoError(t, err)
	defer publisher.Close()

	ctx := context.Background()
	require.NoError(t, publisher.Register(ctx, "gone", address.New(1, 1, "gone")))
	require.Eventually(t, func() bool {
		_, err := publisher.Resolve(ctx, "gone")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, publisher.Unregister(ctx, "gone"))

	_, err = publisher.Resolve(ctx, "gone")
	require.ErrorIs(t, err, endpoint.ErrNameNotRegistered)
}
