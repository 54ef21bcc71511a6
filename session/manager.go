// Package session hosts one storefront shell per browser session, keyed by
// the vogue_session cookie, and exposes the shell's operations over HTTP.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"vogue/localstore"
	"vogue/metrics"
	"vogue/rdx"
	"vogue/remote"
	"vogue/shell"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	CookieName     = "vogue_session"
	DefaultIdleTTL = 30 * time.Minute
	initTimeout    = 15 * time.Second
)

type Options struct {
	// Redis backs each session's local storage; nil keeps it in memory.
	Redis *redis.Client
	// Upstream is the base URL of the storefront API.
	Upstream  string
	Intervals shell.Intervals
	IdleTTL   time.Duration
	Log       *zap.Logger
	Now       func() time.Time
}

type entry struct {
	shell    *shell.Shell
	cancel   context.CancelFunc
	done     chan struct{}
	lastSeen time.Time
}

// Manager owns the live sessions.
type Manager struct {
	opts  Options
	log   *zap.Logger
	group singleflight.Group

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewManager(opts Options) *Manager {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	return &Manager{opts: opts, log: opts.Log, sessions: map[string]*entry{}}
}

// Shell returns the session's shell, starting one (and setting the cookie)
// when the request has no live session.
func (m *Manager) Shell(w http.ResponseWriter, r *http.Request) (*shell.Shell, error) {
	id := ""
	if c, err := r.Cookie(CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(rdx.DefaultTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	if sh := m.touch(id); sh != nil {
		return sh, nil
	}

	v, err, _ := m.group.Do(id, func() (any, error) {
		if sh := m.touch(id); sh != nil {
			return sh, nil
		}
		return m.start(context.WithoutCancel(r.Context()), id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*shell.Shell), nil
}

func (m *Manager) touch(id string) *shell.Shell {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil
	}
	e.lastSeen = m.opts.Now()
	return e.shell
}

func (m *Manager) start(ctx context.Context, id string) (*shell.Shell, error) {
	var storage localstore.Store = localstore.NewMemory()
	if m.opts.Redis != nil {
		storage = rdx.SessionStore(m.opts.Redis, id)
	}
	client := remote.New(m.opts.Upstream)
	client.SessionID = id

	sh := shell.New(shell.Deps{
		SessionID: id,
		Storage:   storage,
		Remote:    client,
		Confirm:   confirmed,
		Log:       m.log.Named("session"),
		Now:       m.opts.Now,
		Intervals: m.opts.Intervals,
	})
	ictx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := sh.Init(ictx); err != nil {
		_ = sh.Close(context.Background())
		return nil, fmt.Errorf("init session %s: %w", id, err)
	}

	runCtx, stop := context.WithCancel(context.Background())
	e := &entry{shell: sh, cancel: stop, done: make(chan struct{}), lastSeen: m.opts.Now()}
	go func() {
		defer close(e.done)
		if err := sh.Run(runCtx); err != nil {
			m.log.Error("session tasks stopped", zap.String("session", id), zap.Error(err))
		}
	}()

	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()
	m.log.Info("session started", zap.String("session", id))
	return sh, nil
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// End stops a session's tasks and flushes its pending syncs.
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	metrics.ActiveSessions.Dec()

	e.cancel()
	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return e.shell.Close(ctx)
}

// Sweep ends sessions idle for longer than the idle TTL and returns how many
// it ended. Their storage stays behind for the next visit.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.opts.Now().Add(-m.opts.IdleTTL)
	m.mu.Lock()
	var idle []string
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.Unlock()

	for _, id := range idle {
		if err := m.End(ctx, id); err != nil {
			m.log.Warn("ending idle session", zap.String("session", id), zap.Error(err))
		}
	}
	return len(idle)
}

// Run sweeps idle sessions every minute until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(ctx); n > 0 {
				m.log.Info("idle sessions ended", zap.Int("count", n))
			}
		}
	}
}

// Close ends every session.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		errs = append(errs, m.End(ctx, id))
	}
	return errors.Join(errs...)
}

type confirmKey struct{}

// WithConfirm marks ctx as carrying the user's answer to a confirmation
// prompt.
func WithConfirm(ctx context.Context, yes bool) context.Context {
	return context.WithValue(ctx, confirmKey{}, yes)
}

func confirmed(ctx context.Context, _ string) bool {
	yes, _ := ctx.Value(confirmKey{}).(bool)
	return yes
}
