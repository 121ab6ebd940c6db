package scheduler

import (
	"context"

	"github.com/fluxorio/theron/pkg/core"
	"github.com/fluxorio/theron/pkg/mailbox"
	"github.com/fluxorio/theron/pkg/message"
	"github.com/fluxorio/theron/pkg/metrics"
	"github.com/fluxorio/theron/pkg/workqueue"
	"go.opentelemetry.io/otel/trace"
)

// DispatchOne runs the spec §4.4 dispatch algorithm once against mb:
//
//  1. Pop the head message. If the mailbox was empty, there is nothing
//     to do (a spurious wake).
//  2. Pin the mailbox so a concurrent Unbind cannot race the in-flight
//     handler invocation (I-LiveWhileWorking).
//  3. Snapshot the bound actor and dispatch through its handler table;
//     if no actor is bound, or its table declines the message, fall
//     through to the actor's own default handler, then to the
//     scheduler-wide fallback. A panicking handler is isolated (see
//     invokeHandlers) rather than allowed to crash the worker.
//  4. Let the popped message go out of scope (Go's GC reclaims it; no
//     explicit destroy step is needed).
//  5. Atomically unpin and decide whether the mailbox stays scheduled,
//     re-enqueuing it with a local hint if messages remain.
func DispatchOne(mb *mailbox.Mailbox, ctx *workqueue.WorkerContext, q workqueue.Queue, fallback Fallback, counters *metrics.Counters, logger core.Logger, tracer trace.Tracer) {
	msg, ok, _ := mb.PopHead()
	if !ok {
		mb.SetScheduled(false)
		return
	}

	if tracer != nil {
		var span trace.Span
		_, span = tracer.Start(context.Background(), msg.TypeID.Name())
		defer span.End()
	}

	wid := workerID(ctx)

	mb.Pin()
	handled := false
	if a := mb.ActorRef(); a != nil {
		a.SetWorkerContext(ctx)
		handled = invokeHandlers(a, msg, fallback, counters, logger, wid)
		a.Compact()
		a.SetWorkerContext(nil)
	}
	if !handled && fallback != nil {
		fallback(msg.Value, msg.From)
	}

	if counters != nil {
		counters.Add(wid, metrics.MessagesProcessed, 1)
		counters.Observe(wid, metrics.MailboxQueueMax, uint64(mb.Count()))
	}

	if mb.UnpinAndRequeueDecision() {
		requeueLocally(mb, ctx, q)
	}
}

// invokeHandlers runs msg through a's handler table (falling through to
// its default handler), isolating any panic the same way the teacher's
// consumer.processMessages double-recover loop isolates a handler panic
// from the rest of the dispatch pipeline: the worker goroutine survives,
// the panic is logged, counted, and routed through the fallback chain
// rather than left to crash the process.
func invokeHandlers(a mailbox.Actor, msg message.Message, fallback Fallback, counters *metrics.Counters, logger core.Logger, wid int) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("handler panic isolated by dispatcher", "from", msg.From, "panic", r)
			}
			if counters != nil {
				counters.Add(wid, metrics.HandlerPanics, 1)
			}
			if fallback != nil {
				fallback(r, msg.From)
			}
			handled = true
		}
	}()
	handled = a.Dispatch(msg)
	if !handled {
		handled = a.InvokeDefault(msg.Value, msg.From)
	}
	return handled
}

func workerID(ctx *workqueue.WorkerContext) int {
	if ctx == nil {
		return metrics.ExternalWorker
	}
	return ctx.ID()
}

// requeueLocally re-pushes mb with a local hint, since the same worker
// that just finished dispatching it is the cheapest place to run its
// next message (tail-send locality extended to self-requeue).
func requeueLocally(mb *mailbox.Mailbox, ctx *workqueue.WorkerContext, q workqueue.Queue) {
	q.Push(ctx, mb, true)
}
