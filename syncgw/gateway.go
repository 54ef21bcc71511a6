// Package syncgw pushes local state to the upstream on a best-effort basis.
// At most one send is in flight per gateway; pushes that arrive meanwhile are
// coalesced so the next send always carries the latest state.
package syncgw

import (
	"context"
	"sync"
	"time"

	"vogue/metrics"

	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

// SendFunc delivers one value to the upstream.
type SendFunc[T any] func(ctx context.Context, v T) error

type Gateway[T any] struct {
	name    string
	send    SendFunc[T]
	log     *zap.Logger
	Timeout time.Duration

	mu         sync.Mutex
	pending    T
	hasPending bool
	running    bool
	idle       chan struct{}
	lastErr    error
}

// New returns a gateway labelled name in logs and metrics.
func New[T any](name string, send SendFunc[T], log *zap.Logger) *Gateway[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway[T]{name: name, send: send, log: log, Timeout: DefaultTimeout}
}

// Push schedules v to be sent. It never blocks on the network.
func (g *Gateway[T]) Push(v T) {
	g.mu.Lock()
	if g.hasPending {
		metrics.SyncCoalesced.WithLabelValues(g.name).Inc()
	}
	g.pending = v
	g.hasPending = true
	if g.running {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.idle = make(chan struct{})
	g.mu.Unlock()

	go g.drain()
}

func (g *Gateway[T]) drain() {
	for {
		g.mu.Lock()
		if !g.hasPending {
			g.running = false
			close(g.idle)
			g.mu.Unlock()
			return
		}
		v := g.pending
		var zero T
		g.pending = zero
		g.hasPending = false
		g.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
		err := g.send(ctx, v)
		cancel()

		g.mu.Lock()
		g.lastErr = err
		g.mu.Unlock()
		if err != nil {
			metrics.SyncPushes.WithLabelValues(g.name, "error").Inc()
			g.log.Warn("sync failed", zap.String("store", g.name), zap.Error(err))
			continue
		}
		metrics.SyncPushes.WithLabelValues(g.name, "ok").Inc()
		g.log.Debug("synced", zap.String("store", g.name))
	}
}

// Flush waits until nothing is pending or in flight.
func (g *Gateway[T]) Flush(ctx context.Context) error {
	for {
		g.mu.Lock()
		if !g.running {
			g.mu.Unlock()
			return nil
		}
		idle := g.idle
		g.mu.Unlock()
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// LastError reports the outcome of the most recent send.
func (g *Gateway[T]) LastError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}
