// Package analytics tracks storefront events for the current session. Events
// that can't be delivered are kept in local storage and retried by
// FlushPending.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vogue/localstore"
	"vogue/models"

	"go.uber.org/zap"
)

const PendingKey = "analytics_pending"

// Sender delivers one event upstream.
type Sender interface {
	Track(ctx context.Context, ev models.AnalyticsEvent) error
}

type Tracker struct {
	Storage localstore.Store
	Sender  Sender
	Log     *zap.Logger
	Now     func() time.Time
	// Debug logs every event before sending.
	Debug bool

	mu       sync.Mutex
	session  models.Session
	user     *models.AnalyticsUser
	url      string
	hiddenAt time.Time

	pendingMu sync.Mutex
}

func NewTracker(storage localstore.Store, sender Sender, sessionID string, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if storage == nil {
		storage = localstore.NewMemory()
	}
	t := &Tracker{Storage: storage, Sender: sender, Log: log, Now: time.Now}
	t.session = models.Session{ID: sessionID, StartTime: t.Now().UnixMilli()}
	return t
}

// Track builds an event stamped with the session and user and sends it. A
// failed send is queued for later; it is never reported to the caller.
func (t *Tracker) Track(ctx context.Context, name string, data map[string]any) {
	ev := t.event(name, data)
	if t.Debug {
		t.Log.Debug("analytics event", zap.String("event", name), zap.Any("data", data))
	}
	if t.Sender == nil {
		t.saveForLater(ctx, ev)
		return
	}
	if err := t.Sender.Track(ctx, ev); err != nil {
		t.Log.Warn("analytics send failed, queued", zap.String("event", name), zap.Error(err))
		t.saveForLater(ctx, ev)
	}
}

// TrackPageView counts a page view and tracks it.
func (t *Tracker) TrackPageView(ctx context.Context, url, title string) {
	t.mu.Lock()
	t.session.PageViews++
	t.url = url
	t.mu.Unlock()
	t.Track(ctx, "page_view", map[string]any{"url": url, "title": title})
}

// Interact counts one user interaction.
func (t *Tracker) Interact() {
	t.mu.Lock()
	t.session.Interactions++
	t.mu.Unlock()
}

// SetUser attaches u to subsequent events; nil detaches.
func (t *Tracker) SetUser(u *models.User) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if u == nil {
		t.user = nil
		return
	}
	t.user = &models.AnalyticsUser{ID: u.UserID, Email: u.Email, Segment: u.Segment}
}

// Tick refreshes the session duration.
func (t *Tracker) Tick() {
	now := t.Now().UnixMilli()
	t.mu.Lock()
	t.session.Duration = now - t.session.StartTime
	t.mu.Unlock()
}

// Hidden and Visible bracket time the page spent in the background.
func (t *Tracker) Hidden() {
	t.mu.Lock()
	t.hiddenAt = t.Now()
	t.mu.Unlock()
}

func (t *Tracker) Visible() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hiddenAt.IsZero() {
		return
	}
	t.session.HiddenDuration += t.Now().Sub(t.hiddenAt).Milliseconds()
	t.hiddenAt = time.Time{}
}

func (t *Tracker) Session() models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

func (t *Tracker) event(name string, data map[string]any) models.AnalyticsEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	ev := models.AnalyticsEvent{
		Event:     name,
		Timestamp: t.Now().UnixMilli(),
		Session:   t.session,
		URL:       t.url,
		Data:      data,
	}
	if t.user != nil {
		u := *t.user
		ev.User = &u
	}
	return ev
}

// Pending returns the queued events.
func (t *Tracker) Pending(ctx context.Context) ([]models.AnalyticsEvent, error) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	return t.loadPending(ctx)
}

// FlushPending re-sends queued events and keeps only the ones that fail again.
func (t *Tracker) FlushPending(ctx context.Context) (int, error) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()

	pending, err := t.loadPending(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 || t.Sender == nil {
		return 0, nil
	}
	var failed []models.AnalyticsEvent
	sent := 0
	for _, ev := range pending {
		if err := t.Sender.Track(ctx, ev); err != nil {
			failed = append(failed, ev)
			continue
		}
		sent++
	}
	if len(failed) == 0 {
		err = t.Storage.Remove(ctx, PendingKey)
	} else {
		err = localstore.SetJSON(ctx, t.Storage, PendingKey, failed)
	}
	if err != nil {
		return sent, fmt.Errorf("store pending analytics: %w", err)
	}
	t.Log.Debug("analytics flushed", zap.Int("sent", sent), zap.Int("left", len(failed)))
	return sent, nil
}

func (t *Tracker) saveForLater(ctx context.Context, ev models.AnalyticsEvent) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	pending, err := t.loadPending(ctx)
	if err != nil {
		pending = nil
	}
	pending = append(pending, ev)
	if err := localstore.SetJSON(ctx, t.Storage, PendingKey, pending); err != nil {
		t.Log.Error("queue analytics failed", zap.Error(err))
	}
}

// loadPending treats a corrupt queue as empty.
func (t *Tracker) loadPending(ctx context.Context) ([]models.AnalyticsEvent, error) {
	var pending []models.AnalyticsEvent
	err := localstore.GetJSON(ctx, t.Storage, PendingKey, &pending)
	switch {
	case err == nil:
		return pending, nil
	case errors.Is(err, localstore.ErrNotFound):
		return nil, nil
	}
	if errors.Is(err, localstore.ErrCorrupt) {
		t.Log.Warn("pending analytics unreadable, dropping", zap.Error(err))
		return nil, nil
	}
	return nil, fmt.Errorf("load pending analytics: %w", err)
}
