package shell

import (
	"context"
	"time"

	"vogue/localstore"
	"vogue/models"

	"go.uber.org/zap"
)

// Autosave is the snapshot written every autosave interval.
type Autosave struct {
	Cart        []models.CartItem `json:"cart"`
	Preferences map[string]any    `json:"preferences"`
	Timestamp   int64             `json:"timestamp"`
}

// Run drives the periodic tasks until ctx is done: session duration, autosave,
// notification polling for signed-in users and the cross-store sync.
func (s *Shell) Run(ctx context.Context) error {
	session := time.NewTicker(s.intervals.Session)
	autosave := time.NewTicker(s.intervals.Autosave)
	poll := time.NewTicker(s.intervals.Notifications)
	sync := time.NewTicker(s.intervals.Sync)
	defer func() {
		session.Stop()
		autosave.Stop()
		poll.Stop()
		sync.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			s.Autosave(context.WithoutCancel(ctx))
			return nil
		case <-session.C:
			s.Analytics.Tick()
		case <-autosave.C:
			s.Autosave(ctx)
		case <-poll.C:
			if s.Auth.IsAuthenticated() {
				s.CheckNotifications(ctx)
			}
		case <-sync.C:
			s.SyncData(ctx)
		}
	}
}

func (s *Shell) Autosave(ctx context.Context) {
	snap := Autosave{
		Cart:        s.Cart.Items(),
		Preferences: s.Preferences(),
		Timestamp:   s.now().UnixMilli(),
	}
	if err := localstore.SetJSON(ctx, s.storage, AutosaveKey, snap); err != nil {
		s.log.Error("autosave failed", zap.Error(err))
	}
}

// CheckNotifications shows the user's unread notifications. Errors are
// ignored.
func (s *Shell) CheckNotifications(ctx context.Context) int {
	ns, err := s.remote.UnreadNotifications(ctx)
	if err != nil {
		s.log.Debug("notification poll failed", zap.Error(err))
		return 0
	}
	for _, n := range ns {
		s.Notify.Show(n.Message, n.Type)
	}
	return len(ns)
}

// SyncData pushes the cart, wishlist and compare lists and retries queued
// analytics.
func (s *Shell) SyncData(ctx context.Context) {
	s.Cart.Resync()
	s.Catalog.ResyncLists()
	if _, err := s.Analytics.FlushPending(ctx); err != nil {
		s.log.Warn("analytics flush failed", zap.Error(err))
	}
}
