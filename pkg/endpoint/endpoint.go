// Package endpoint implements Theron's "distributed-endpoint /
// remote-name-lookup layer" (spec §1: explicitly out of scope for the
// actor core itself, referenced only through this package's Endpoint
// interface). It lets an external process resolve a well-known Address
// — typically a Receiver's — by name, without linking against the rest
// of Theron. Adapted from the teacher's eventbus_cluster_nats.go subject
// scheme (<prefix>.pub/send/req.<address>), narrowed from pub/sub
// message delivery to a signed name→Address resolution RPC.
package endpoint

import (
	"context"
	"errors"

	"github.com/fluxorio/theron/pkg/address"
)

// ErrNameNotRegistered is returned by Resolve when no Framework in the
// cluster has Registered the requested name.
var ErrNameNotRegistered = errors.New("endpoint: name not registered")

// ErrInvalidToken is returned when a lookup reply's bearer token fails
// signature or claim verification.
var ErrInvalidToken = errors.New("endpoint: invalid or expired lookup token")

// Endpoint is the narrow surface Framework.NewOnEndpoint needs: publish
// this process' well-known Addresses under a name, and resolve a name
// published by any process sharing the same Endpoint backend.
type Endpoint interface {
	// Register advertises addr under name so other processes' Resolve
	// calls can find it. Re-registering a name replaces its address.
	Register(ctx context.Context, name string, addr address.Address) error

	// Unregister withdraws a previously Registered name.
	Unregister(ctx context.Context, name string) error

	// Resolve looks up the Address currently registered under name,
	// anywhere in the cluster. Returns ErrNameNotRegistered if no
	// process has registered it (within the backend's request timeout).
	Resolve(ctx context.Context, name string) (address.Address, error)

	// Close releases the Endpoint's underlying connection.
	Close() error
}
