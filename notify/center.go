// Package notify is the transient user-facing message queue.
package notify

import (
	"sync"
	"time"

	"vogue/metrics"
	"vogue/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultDuration = 5 * time.Second

// Notifier is what stores use to talk to the user.
type Notifier interface {
	Show(message, kind string) string
}

// Discard drops every message.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Show(string, string) string { return "" }

// Event types delivered to subscribers.
const (
	EventShown  = "shown"
	EventHidden = "hidden"
)

type Event struct {
	Type         string              `json:"type"`
	Icon         string              `json:"icon,omitempty"`
	Notification models.Notification `json:"notification"`
}

// Center keeps the visible notifications and dismisses them when their
// duration elapses.
type Center struct {
	Default time.Duration
	Now     func() time.Time

	mu     sync.Mutex
	active []models.Notification
	timers map[string]*time.Timer
	subs   map[chan Event]struct{}
	log    *zap.Logger
}

func NewCenter(log *zap.Logger) *Center {
	if log == nil {
		log = zap.NewNop()
	}
	return &Center{
		Default: DefaultDuration,
		Now:     time.Now,
		timers:  make(map[string]*time.Timer),
		subs:    make(map[chan Event]struct{}),
		log:     log,
	}
}

// Show displays message for the default duration and returns its id.
func (c *Center) Show(message, kind string) string {
	return c.ShowFor(message, kind, c.Default)
}

// ShowFor displays message for d. d <= 0 keeps it until Hide is called.
func (c *Center) ShowFor(message, kind string, d time.Duration) string {
	kind = normalizeKind(kind)
	n := models.Notification{
		ID:       uuid.NewString(),
		Message:  message,
		Type:     kind,
		ShownAt:  c.Now(),
		Duration: d,
	}

	c.mu.Lock()
	c.active = append(c.active, n)
	if d > 0 {
		id := n.ID
		c.timers[id] = time.AfterFunc(d, func() { c.Hide(id) })
	}
	c.broadcastLocked(Event{Type: EventShown, Icon: Icon(kind), Notification: n})
	c.mu.Unlock()

	metrics.Notifications.WithLabelValues(kind).Inc()
	c.log.Debug("notification", zap.String("kind", kind), zap.String("message", message))
	return n.ID
}

// Hide removes a notification. It reports whether id was visible.
func (c *Center) Hide(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.active {
		if n.ID != id {
			continue
		}
		c.active = append(c.active[:i], c.active[i+1:]...)
		if t, ok := c.timers[id]; ok {
			t.Stop()
			delete(c.timers, id)
		}
		c.broadcastLocked(Event{Type: EventHidden, Notification: n})
		return true
	}
	return false
}

// Active returns the visible notifications, oldest first.
func (c *Center) Active() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Notification(nil), c.active...)
}

// Subscribe returns a channel of events and a cancel func. Events are dropped
// for a subscriber whose buffer is full.
func (c *Center) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			if _, ok := c.subs[ch]; ok {
				delete(c.subs, ch)
				close(ch)
			}
			c.mu.Unlock()
		})
	}
}

// Close stops pending dismiss timers and closes every subscription.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
}

func (c *Center) broadcastLocked(e Event) {
	for ch := range c.subs {
		select {
		case ch <- e:
		default:
			c.log.Debug("dropping notification event for slow subscriber")
		}
	}
}

func normalizeKind(kind string) string {
	switch kind {
	case models.KindSuccess, models.KindError, models.KindWarning, models.KindInfo:
		return kind
	}
	return models.KindInfo
}

// Icon maps a kind to its Font Awesome class.
func Icon(kind string) string {
	switch kind {
	case models.KindSuccess:
		return "fas fa-check-circle"
	case models.KindError:
		return "fas fa-exclamation-circle"
	case models.KindWarning:
		return "fas fa-exclamation-triangle"
	}
	return "fas fa-info-circle"
}
