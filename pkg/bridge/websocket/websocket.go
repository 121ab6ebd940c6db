// Package websocket bridges external, non-actor WebSocket clients into
// the actor mesh: a client opens a connection, sends a JSON envelope
// naming a target Address and a body, and the Bridge routes it through
// a Framework exactly like any other Sender. Adapted from the teacher's
// eventbus_ws.go op-based JSON protocol (publish/send/request/subscribe/
// unsubscribe), narrowed to the two operations Theron's point-to-point
// mailbox model supports: "send" (tell, fire-and-forget) and "ask"
// (send, then await one correlated reply).
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fluxorio/theron/pkg/address"
	"github.com/fluxorio/theron/pkg/core"
	"github.com/fluxorio/theron/pkg/core/concurrency"
	"github.com/fluxorio/theron/pkg/framework"
	"github.com/fluxorio/theron/pkg/message"
	"github.com/fluxorio/theron/pkg/receiver"
	"github.com/gorilla/websocket"
)

// inboxCapacity bounds how many not-yet-processed operations a single
// connection can queue; once it is full, Send fails and the read loop
// closes the connection. connWorkers
// sizes the concurrency.WorkerPool that drains that queue —
// the same queue-then-process split as the teacher's
// FastHTTPServer.requestMailbox/startRequestWorkers, scaled down from a
// shared server-wide pool to one small pool per connection.
const (
	inboxCapacity = 256
	connWorkers   = 4
)

// RawPayload is the message type Bridge delivers into the actor mesh for
// every "send"/"ask" operation, and the type an actor replies with to
// answer an "ask". RequestID is opaque to the actor mesh — it exists
// only so the Bridge can correlate a reply to the connection and pending
// ask call that is waiting for it.
type RawPayload struct {
	RequestID string
	Body      json.RawMessage
}

// wireMessage is the JSON envelope exchanged over the WebSocket
// connection, mirroring the teacher's wsMessage shape (Op/Address/Body/
// ID/Timeout/Error/Result) narrowed to Theron's packed Address fields.
type wireMessage struct {
	Op           string          `json:"op"`
	FrameworkID  uint32          `json:"framework_id"`
	MailboxIndex uint32          `json:"mailbox_index"`
	Body         json.RawMessage `json:"body,omitempty"`
	ID           string          `json:"id"`
	TimeoutMS    int64           `json:"timeout_ms,omitempty"`
	Error        string          `json:"error,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// Bridge upgrades incoming HTTP connections to WebSocket and routes each
// connection's "send"/"ask" operations into fw.
type Bridge struct {
	fw       *framework.Framework
	upgrader websocket.Upgrader
	logger   core.Logger
}

// New constructs a Bridge routing through fw. CheckOrigin is permissive
// by default (matching the teacher's development-mode upgrader); callers
// embedding Bridge in a production HTTP server should replace Upgrader
// directly before calling HandleWebSocket if an origin check is needed.
func New(fw *framework.Framework) *Bridge {
	return &Bridge{
		fw: fw,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: core.NewDefaultLogger(),
	}
}

// HandleWebSocket upgrades r and serves messages on the resulting
// connection until it closes. It is meant to be wired as an
// http.HandlerFunc (e.g. mux.HandleFunc("/ws", bridge.HandleWebSocket)).
func (b *Bridge) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Errorf("websocket bridge: upgrade failed: %v", err)
		return
	}

	c := &bridgeConn{
		bridge:  b,
		ws:      conn,
		replyTo: framework.NewReceiver("ws-bridge-conn"),
		inbox:   concurrency.NewBoundedMailbox(inboxCapacity),
		pending: make(map[string]chan wireMessage),
	}
	receiver.RegisterHandler(c.replyTo, c.onReply)

	c.serve()
}

type bridgeConn struct {
	bridge  *Bridge
	ws      *websocket.Conn
	replyTo *receiver.Receiver
	inbox   concurrency.Mailbox

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan wireMessage
}

func (c *bridgeConn) serve() {
	ctx, cancel := context.WithCancel(context.Background())
	pool := concurrency.NewWorkerPool(ctx, concurrency.WorkerPoolConfig{
		Workers:   connWorkers,
		QueueSize: inboxCapacity,
	})
	if err := pool.Start(); err != nil {
		c.bridge.logger.Errorf("websocket bridge: worker pool start failed: %v", err)
		cancel()
		c.ws.Close()
		return
	}

	var dispatcher sync.WaitGroup
	dispatcher.Add(1)
	go c.runDispatcher(ctx, pool, &dispatcher)

	defer func() {
		cancel()
		c.inbox.Close()
		dispatcher.Wait()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := pool.Stop(stopCtx); err != nil {
			c.bridge.logger.Warnf("websocket bridge: worker pool stop: %v", err)
		}
		framework.UnregisterReceiver(c.replyTo)
		c.ws.Close()
	}()

	for {
		var msg wireMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.bridge.logger.Warnf("websocket bridge: read error: %v", err)
			}
			return
		}
		if err := c.inbox.Send(msg); err != nil {
			// Connection shutting down or backlogged past inboxCapacity;
			// either way the op is dropped and the connection is closed.
			return
		}
	}
}

// runDispatcher drains the per-connection inbox and hands each operation
// to the worker pool as a Task, so a slow actor reply on one "ask" never
// blocks the next message off the wire.
func (c *bridgeConn) runDispatcher(ctx context.Context, pool concurrency.WorkerPool, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		v, err := c.inbox.Receive(ctx)
		if err != nil {
			return
		}
		msg := v.(wireMessage)
		task := concurrency.NewNamedTask("ws-op-"+msg.Op, func(context.Context) error {
			c.dispatch(msg)
			return nil
		})
		if err := pool.Submit(task); err != nil {
			c.writeError(&msg, "server busy")
		}
	}
}

func (c *bridgeConn) dispatch(msg wireMessage) {
	switch msg.Op {
	case "send":
		c.handleSend(&msg)
	case "ask":
		c.handleAsk(msg)
	default:
		c.writeError(&msg, fmt.Sprintf("unknown operation: %s", msg.Op))
	}
}

func (c *bridgeConn) targetAddress(msg *wireMessage) address.Address {
	return address.New(msg.FrameworkID, msg.MailboxIndex, "")
}

func (c *bridgeConn) handleSend(msg *wireMessage) {
	to := c.targetAddress(msg)
	payload := message.New(RawPayload{RequestID: msg.ID, Body: msg.Body}, c.replyTo.Address())
	ok := c.bridge.fw.SendMessage(to, payload, false, nil)
	if !ok {
		c.writeError(msg, "address not found")
		return
	}
	c.writeResult(msg, json.RawMessage(`{"status":"ok"}`))
}

func (c *bridgeConn) handleAsk(msg wireMessage) {
	to := c.targetAddress(&msg)

	ch := make(chan wireMessage, 1)
	c.pendingMu.Lock()
	c.pending[msg.ID] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, msg.ID)
		c.pendingMu.Unlock()
	}()

	payload := message.New(RawPayload{RequestID: msg.ID, Body: msg.Body}, c.replyTo.Address())
	if ok := c.bridge.fw.SendMessage(to, payload, false, nil); !ok {
		c.writeError(&msg, "address not found")
		return
	}

	timeout := 5 * time.Second
	if msg.TimeoutMS > 0 {
		timeout = time.Duration(msg.TimeoutMS) * time.Millisecond
	}

	select {
	case reply := <-ch:
		c.writeResult(&msg, reply.Result)
	case <-time.After(timeout):
		c.writeError(&msg, "ask timed out waiting for reply")
	}
}

// onReply is registered on replyTo: any actor that wants to answer an
// "ask" sends a RawPayload back to c.replyTo.Address() carrying the
// original RequestID.
func (c *bridgeConn) onReply(value RawPayload, from address.Address) {
	c.pendingMu.Lock()
	ch, ok := c.pending[value.RequestID]
	c.pendingMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- wireMessage{ID: value.RequestID, Result: value.Body}:
	default:
	}
}

func (c *bridgeConn) writeResult(msg *wireMessage, result json.RawMessage) {
	c.write(wireMessage{Op: msg.Op, ID: msg.ID, Result: result})
}

func (c *bridgeConn) writeError(msg *wireMessage, errMsg string) {
	c.write(wireMessage{Op: msg.Op, ID: msg.ID, Error: errMsg})
}

func (c *bridgeConn) write(msg wireMessage) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(msg); err != nil {
		c.bridge.logger.Warnf("websocket bridge: write error: %v", err)
	}
}
