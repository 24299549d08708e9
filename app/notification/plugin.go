// Package notification is the desktop notification plugin. Requests from the
// frontend are queued and shown one at a time by the OS notifier.
package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/featherchat/desktop/app/host"
)

const (
	Name = "notification"

	// DeliveredEvent and FailedEvent report the outcome of each accepted
	// notification.
	DeliveredEvent = "notification://delivered"
	FailedEvent    = "notification://failed"

	queueSize = 32
)

var (
	// ErrInvalid rejects notifications without a title.
	ErrInvalid = errors.New("invalid notification")
	// ErrQueueFull rejects notifications while the delivery queue is full.
	ErrQueueFull = errors.New("notification queue full")
	// ErrClosed rejects notifications after shutdown.
	ErrClosed = errors.New("notification plugin closed")
)

var commands = []string{"is-permission-granted", "request-permission", "notify"}

// Delivery is the payload of DeliveredEvent and FailedEvent.
type Delivery struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Error string `json:"error,omitempty"`
}

type request struct {
	id   string
	opts Options
}

// sender shows one notification.
type sender func(Options) error

// Plugin implements host.Plugin.
type Plugin struct {
	send sender
	cmds *Commands

	rt host.Runtime

	mu     sync.RWMutex
	closed bool
	queue  chan request
	done   chan struct{}
}

var _ host.Plugin = (*Plugin)(nil)

// Init returns the plugin with the OS notifier.
func Init() *Plugin {
	return newPlugin(osNotify, queueSize)
}

func newPlugin(send sender, size int) *Plugin {
	p := &Plugin{
		send:  send,
		queue: make(chan request, size),
		done:  make(chan struct{}),
	}
	p.cmds = &Commands{p: p}
	return p
}

func (p *Plugin) Name() string              { return Name }
func (p *Plugin) Commands() []string        { return commands }
func (p *Plugin) DefaultCommands() []string { return commands }
func (p *Plugin) Binding() any              { return p.cmds }

func (p *Plugin) Setup(rt host.Runtime) error {
	p.rt = rt
	go p.worker()
	return nil
}

// Shutdown stops accepting notifications and waits for the queued ones.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	if p.rt == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue hands a validated notification to the worker. It never blocks.
func (p *Plugin) enqueue(opts Options) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return "", ErrClosed
	}

	req := request{id: uuid.NewString(), opts: opts}
	select {
	case p.queue <- req:
		return req.id, nil
	default:
		return "", ErrQueueFull
	}
}

func (p *Plugin) worker() {
	defer close(p.done)
	logger := p.rt.Logger().With("plugin", Name)

	for req := range p.queue {
		if req.opts.Sound != "" {
			logger.Debug("notification sound not supported, ignoring", "id", req.id, "sound", req.opts.Sound)
		}

		if err := p.send(req.opts); err != nil {
			logger.Warn("failed to deliver notification", "id", req.id, "error", err)
			p.rt.Emit(FailedEvent, Delivery{ID: req.id, Title: req.opts.Title, Error: err.Error()})
			continue
		}
		logger.Debug("notification delivered", "id", req.id)
		p.rt.Emit(DeliveredEvent, Delivery{ID: req.id, Title: req.opts.Title})
	}
}
