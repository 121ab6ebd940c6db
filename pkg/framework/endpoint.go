package framework

import (
	"context"

	"github.com/fluxorio/theron/pkg/config"
	"github.com/fluxorio/theron/pkg/endpoint"
	"github.com/fluxorio/theron/pkg/receiver"
	"github.com/prometheus/client_golang/prometheus"
)

// NewOnEndpoint implements spec §6's Framework::new_on_endpoint(ep, name,
// params): it constructs a Framework exactly like New, then publishes a
// framework-level bootstrap Receiver under name through ep so a process
// with no Theron actors of its own — linking only pkg/endpoint and
// pkg/address — can discover this Framework's well-known Receiver by
// name via ep.Resolve, without ever importing the actor core.
func NewOnEndpoint(ctx context.Context, ep endpoint.Endpoint, name string, cfg config.FrameworkConfig, registerer prometheus.Registerer) (*Framework, *receiver.Receiver, error) {
	f, err := New(cfg, registerer)
	if err != nil {
		return nil, nil, err
	}

	bootstrap := NewReceiver(name)
	if err := ep.Register(ctx, name, bootstrap.Address()); err != nil {
		UnregisterReceiver(bootstrap)
		f.Stop()
		return nil, nil, err
	}
	return f, bootstrap, nil
}
