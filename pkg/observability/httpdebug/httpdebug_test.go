package httpdebug_test

import (
	"encoding/json"
	"net"
	"testing"

	"github.com/fluxorio/theron/pkg/actor"
	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/config"
	"github.com/fluxorio/theron/pkg/framework"
	"github.com/fluxorio/theron/pkg/observability/httpdebug"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type greeting struct{ text string }

func TestServerServesMetricsAndCounters(t *testing.T) {
	cfg := config.DefaultFrameworkConfig()
	cfg.ThreadCount = 1
	cfg.MaxThreads = 2
	registry := prometheus.NewRegistry()
	fw, err := framework.New(cfg, registry)
	require.NoError(t, err)
	defer fw.Stop()

	a, err := fw.SpawnActor("a")
	require.NoError(t, err)
	done := make(chan struct{})
	actor.RegisterHandler(a, func(value greeting, from address.Address) { close(done) })
	b, err := fw.SpawnActor("b")
	require.NoError(t, err)
	actor.Send(b, greeting{text: "hi"}, a.GetAddress(), false)
	<-done

	srv := httpdebug.New("", fw, registry)

	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()
	go srv.Serve(ln)
	defer srv.Shutdown()

	client := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI("http://test/debug/counters")
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)
	require.NoError(t, client.Do(req, resp))

	var counters map[string]uint64
	require.NoError(t, json.Unmarshal(resp.Body(), &counters))
	require.GreaterOrEqual(t, counters["MessagesProcessed"], uint64(1))

	req2 := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req2)
	req2.SetRequestURI("http://test/metrics")
	resp2 := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp2)
	require.NoError(t, client.Do(req2, resp2))
	require.Equal(t, fasthttp.StatusOK, resp2.StatusCode())
}
