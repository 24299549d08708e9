package host

import (
	"context"
	"log/slog"
	"sync"
)

const pendingEventLimit = 64

type emitFunc func(ctx context.Context, eventName string, optionalData ...interface{})

type queuedEvent struct {
	name    string
	payload any
}

// emitter forwards plugin events to the webview. Until the webview context
// exists events are buffered; when the buffer is full the oldest is dropped.
// After detach events are discarded.
type emitter struct {
	mu      sync.Mutex
	ctx     context.Context
	closed  bool
	pending []queuedEvent
	limit   int
	dropped int
	emit    emitFunc
}

func newEmitter(emit emitFunc) *emitter {
	return &emitter{emit: emit, limit: pendingEventLimit}
}

func (e *emitter) Emit(name string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.closed:
		slog.Debug("discarding event after shutdown", "event", name)
	case e.ctx == nil:
		if len(e.pending) >= e.limit {
			e.pending = e.pending[1:]
			e.dropped++
		}
		e.pending = append(e.pending, queuedEvent{name: name, payload: payload})
	default:
		e.emit(e.ctx, name, payload)
	}
}

// attach flushes queued events, in order, to the webview context.
func (e *emitter) attach(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx = ctx
	if e.dropped > 0 {
		slog.Warn("dropped events queued before startup", "count", e.dropped)
		e.dropped = 0
	}
	for _, ev := range e.pending {
		e.emit(ctx, ev.name, ev.payload)
	}
	e.pending = nil
}

func (e *emitter) detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx = nil
	e.closed = true
	e.pending = nil
}
