package framework

import (
	"strconv"

	"github.com/fluxorio/theron/pkg/address"
	obsprom "github.com/fluxorio/theron/pkg/observability/prometheus"
)

// FallbackHandler is a framework-wide catch-all for messages that no
// actor's HandlerTable or default handler claimed.
type FallbackHandler func(value any, from address.Address)

// chainFallback implements spec §4.6's FallbackChain step 2-3: the
// framework fallback handler if one is set, otherwise a built-in
// unhandled-message reporter. Step 1 (the actor's own default handler)
// already ran inside pkg/scheduler.DispatchOne before this is reached.
func (f *Framework) chainFallback(value any, from address.Address) {
	obsprom.GetMetrics().RecordFallbackInvocation(strconv.FormatUint(uint64(f.id), 10))

	f.mu.RLock()
	fh := f.fallback
	f.mu.RUnlock()

	if fh != nil {
		fh(value, from)
		return
	}
	if f.reportUnhandled {
		f.logger.Warnf("theron: unhandled message from %s: %#v", from.String(), value)
	}
}
