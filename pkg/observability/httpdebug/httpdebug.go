// Package httpdebug serves a minimal operator-facing HTTP surface over
// fasthttp: a Prometheus scrape endpoint and a JSON dump of a
// Framework's live counters. Adapted from the teacher's
// pkg/web.FastHTTPServer lifecycle (doStart/doStop around
// fasthttp.Server, ListenAndServe / ShutdownWithContext) with the
// CCU backpressure and request-mailbox machinery dropped — this server
// serves cheap, infrequent debug reads, not production request traffic.
package httpdebug

import (
	"context"
	"net"
	"time"

	"github.com/fluxorio/theron/pkg/core"
	"github.com/fluxorio/theron/pkg/framework"
	"github.com/fluxorio/theron/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
)

// Server exposes /metrics and /debug/counters for one Framework.
type Server struct {
	addr       string
	fw         *framework.Framework
	gatherer   prometheus.Gatherer
	httpServer *fasthttp.Server
}

// New constructs a Server bound to addr, scraping gatherer for /metrics
// and fw's live counters for /debug/counters.
func New(addr string, fw *framework.Framework, gatherer prometheus.Gatherer) *Server {
	s := &Server{addr: addr, fw: fw, gatherer: gatherer}
	s.httpServer = &fasthttp.Server{
		Handler:               s.handle,
		NoDefaultServerHeader: true,
		ReduceMemoryUsage:     true,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown is called.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe(s.addr)
}

// Serve blocks serving requests accepted from ln, for tests that bridge
// fasthttp over an in-memory listener instead of a real socket.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server, waiting up to 5 seconds for
// in-flight requests to finish.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.ShutdownWithContext(ctx)
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/metrics":
		s.writeMetrics(ctx)
	case "/debug/counters":
		s.writeCounters(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) writeMetrics(ctx *fasthttp.RequestCtx) {
	families, err := s.gatherer.Gather()
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(err.Error())
		return
	}

	ctx.SetContentType(string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	enc := expfmt.NewEncoder(ctx.Response.BodyWriter(), expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			return
		}
	}
}

var allCounters = []metrics.Counter{
	metrics.MessagesProcessed,
	metrics.ThreadsPulsed,
	metrics.ThreadsWoken,
	metrics.LocalPushes,
	metrics.SharedPushes,
	metrics.Yields,
	metrics.MailboxQueueMax,
}

func (s *Server) writeCounters(ctx *fasthttp.RequestCtx) {
	dump := make(map[string]uint64, len(allCounters))
	for _, c := range allCounters {
		dump[c.String()] = s.fw.GetCounter(c)
	}

	ctx.SetContentType("application/json")
	body, err := core.JSONEncode(dump)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetBody(body)
}
