package catalog

import (
	"context"
	"errors"
	"slices"

	"vogue/localstore"
	"vogue/models"

	"go.uber.org/zap"
)

// List kinds double as their storage keys and upstream paths.
const (
	Wishlist = "wishlist"
	Compare  = "compare"
)

// ToggleWishlist adds or removes id and reports whether it is now listed.
func (s *Store) ToggleWishlist(ctx context.Context, id string) bool {
	on := s.toggle(ctx, Wishlist, id)
	if on {
		s.opts.Notifier.Show("Добавлено в избранное", models.KindSuccess)
	} else {
		s.opts.Notifier.Show("Удалено из избранного", models.KindInfo)
	}
	return on
}

// ToggleCompare adds or removes id and reports whether it is now listed.
func (s *Store) ToggleCompare(ctx context.Context, id string) bool {
	on := s.toggle(ctx, Compare, id)
	if on {
		s.opts.Notifier.Show("Добавлено к сравнению", models.KindSuccess)
	} else {
		s.opts.Notifier.Show("Удалено из сравнения", models.KindInfo)
	}
	return on
}

func (s *Store) toggle(ctx context.Context, kind, id string) bool {
	s.mu.Lock()
	list := s.idsLocked(kind)
	on := true
	if i := slices.Index(*list, id); i >= 0 {
		*list = slices.Delete(*list, i, i+1)
		on = false
	} else {
		*list = append(*list, id)
	}
	ids := slices.Clone(*list)
	s.mu.Unlock()

	s.saveList(ctx, kind, ids)
	if sync := s.syncerFor(kind); sync != nil {
		sync.Push(ids)
	}
	return on
}

// SetList replaces a list wholesale, e.g. with the upstream copy after login.
func (s *Store) SetList(ctx context.Context, kind string, ids []string) {
	ids = slices.Compact(slices.Clone(ids))
	s.mu.Lock()
	*s.idsLocked(kind) = ids
	s.mu.Unlock()
	s.saveList(ctx, kind, ids)
}

// LoadLists reads both lists from local storage. Corrupt lists start empty.
func (s *Store) LoadLists(ctx context.Context) {
	for _, kind := range []string{Wishlist, Compare} {
		var ids []string
		err := localstore.GetJSON(ctx, s.opts.Storage, kind, &ids)
		if err != nil && !errors.Is(err, localstore.ErrNotFound) {
			s.log.Warn("stored list unreadable", zap.String("list", kind), zap.Error(err))
			ids = nil
		}
		s.mu.Lock()
		*s.idsLocked(kind) = ids
		s.mu.Unlock()
	}
}

func (s *Store) WishlistIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.wishlist)
}

func (s *Store) CompareIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.compare)
}

func (s *Store) InWishlist(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.wishlist, id)
}

// ResyncLists pushes both lists again.
func (s *Store) ResyncLists() {
	if s.opts.WishlistSync != nil {
		s.opts.WishlistSync.Push(s.WishlistIDs())
	}
	if s.opts.CompareSync != nil {
		s.opts.CompareSync.Push(s.CompareIDs())
	}
}

func (s *Store) idsLocked(kind string) *[]string {
	if kind == Compare {
		return &s.compare
	}
	return &s.wishlist
}

func (s *Store) syncerFor(kind string) ListSyncer {
	if kind == Compare {
		return s.opts.CompareSync
	}
	return s.opts.WishlistSync
}

func (s *Store) saveList(ctx context.Context, kind string, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	if err := localstore.SetJSON(ctx, s.opts.Storage, kind, ids); err != nil {
		s.log.Error("save list failed", zap.String("list", kind), zap.Error(err))
	}
}
