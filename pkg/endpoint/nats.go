package endpoint

import (
	"context"
	"sync"
	"time"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/core"
	"github.com/nats-io/nats.go"
)

// NATSConfig configures the NATS-backed Endpoint.
type NATSConfig struct {
	// URL is the NATS server URL; defaults to nats.DefaultURL.
	URL string
	// Prefix is prepended to all lookup subjects; default "theron".
	Prefix string
	// Name is an optional NATS connection name.
	Name string
	// Secret signs/verifies lookup-reply tokens. Required: a zero-length
	// Secret makes every Resolve fail verification.
	Secret []byte
	// RequestTimeout bounds Resolve's round trip; default 5s.
	RequestTimeout time.Duration
	// TokenTTL bounds how long a signed lookup reply is valid for,
	// primarily relevant if a caller caches a resolved token; default 1m.
	TokenTTL time.Duration
}

// NewNATS dials url and returns a NATS-backed Endpoint, adapted from the
// teacher's NewClusterEventBusNATS connection setup, narrowed to the
// subset needed for name lookup.
func NewNATS(cfg NATSConfig) (Endpoint, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "theron"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	nc, err := nats.Connect(url, func(o *nats.Options) error {
		if cfg.Name != "" {
			o.Name = cfg.Name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &natsEndpoint{
		nc:      nc,
		prefix:  prefix,
		secret:  cfg.Secret,
		timeout: timeout,
		ttl:     ttl,
		subs:    make(map[string]*nats.Subscription),
		local:   make(map[string]address.Address),
		logger:  core.NewDefaultLogger(),
	}, nil
}

type natsEndpoint struct {
	nc      *nats.Conn
	prefix  string
	secret  []byte
	timeout time.Duration
	ttl     time.Duration
	logger  core.Logger

	mu    sync.Mutex
	subs  map[string]*nats.Subscription
	local map[string]address.Address
}

func (e *natsEndpoint) subject(name string) string {
	return e.prefix + ".lookup." + name
}

// Register subscribes to this name's lookup subject in a queue group
// named after the subject, so exactly one of potentially many processes
// that have Registered the same name answers each Resolve request — the
// same queue-group-per-subject pattern the teacher's
// clusterNATSConsumer.Handler uses for its send/request subjects.
func (e *natsEndpoint) Register(ctx context.Context, name string, addr address.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.local[name] = addr
	if _, ok := e.subs[name]; ok {
		return nil
	}

	subject := e.subject(name)
	sub, err := e.nc.QueueSubscribe(subject, subject, func(msg *nats.Msg) {
		e.mu.Lock()
		current, ok := e.local[name]
		e.mu.Unlock()
		if !ok {
			return
		}
		token, err := signLookupToken(e.secret, name, current, e.ttl)
		if err != nil {
			e.logger.Warnf("endpoint: failed to sign lookup token for %s: %v", name, err)
			return
		}
		if err := msg.Respond([]byte(token)); err != nil {
			e.logger.Warnf("endpoint: failed to reply to lookup for %s: %v", name, err)
		}
	})
	if err != nil {
		return err
	}
	e.subs[name] = sub
	return nil
}

// Unregister withdraws name: the subscription is torn down and the local
// address mapping is forgotten.
func (e *natsEndpoint) Unregister(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.local, name)
	sub, ok := e.subs[name]
	if !ok {
		return nil
	}
	delete(e.subs, name)
	return sub.Unsubscribe()
}

// Resolve requests name's current Address over NATS and verifies the
// signed reply, rejecting it (ErrInvalidToken) if the signature or name
// claim does not match, or reporting ErrNameNotRegistered if the request
// times out with no responder.
func (e *natsEndpoint) Resolve(ctx context.Context, name string) (address.Address, error) {
	timeout := e.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}

	resp, err := e.nc.Request(e.subject(name), nil, timeout)
	if err != nil {
		return address.Address{}, ErrNameNotRegistered
	}
	return verifyLookupToken(e.secret, string(resp.Data), name)
}

func (e *natsEndpoint) Close() error {
	e.mu.Lock()
	for _, sub := range e.subs {
		_ = sub.Unsubscribe()
	}
	e.subs = nil
	e.mu.Unlock()

	_ = e.nc.Drain()
	e.nc.Close()
	return nil
}
