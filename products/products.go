// Package products resolves product details through an ordered chain of
// tiers: local cache, upstream API, a static table, and finally a placeholder.
package products

import (
	"context"
	"errors"

	"vogue/cache"
	"vogue/metrics"
	"vogue/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Source fetches a single product from the upstream.
type Source interface {
	FetchProduct(ctx context.Context, id string) (models.Product, error)
}

// Tier is one step of the resolution chain. A miss returns ok=false; an error
// is logged and treated as a miss.
type Tier struct {
	Name   string
	Lookup func(ctx context.Context, id string) (p models.Product, ok bool, err error)
}

type Resolver struct {
	tiers []Tier
	group singleflight.Group
	log   *zap.Logger
}

func NewResolver(log *zap.Logger, tiers ...Tier) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{tiers: tiers, log: log}
}

// Default builds cache → remote → static → placeholder.
func Default(c *cache.ProductCache, src Source, log *zap.Logger) *Resolver {
	return NewResolver(log, CacheTier(c), RemoteTier(src, c), StaticTier(), PlaceholderTier())
}

type result struct {
	p  models.Product
	ok bool
}

// Resolve walks the tiers in order. Concurrent calls for the same id share one
// walk, which runs detached from any single caller's cancellation; a caller
// whose ctx ends first gets a miss.
func (r *Resolver) Resolve(ctx context.Context, id string) (models.Product, bool) {
	walkCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(id, func() (any, error) {
		return r.walk(walkCtx, id), nil
	})
	select {
	case res := <-ch:
		v := res.Val.(result)
		return v.p, v.ok
	case <-ctx.Done():
		return models.Product{}, false
	}
}

func (r *Resolver) walk(ctx context.Context, id string) result {
	for _, t := range r.tiers {
		p, ok, err := t.Lookup(ctx, id)
		if err != nil {
			r.log.Warn("product tier failed",
				zap.String("tier", t.Name), zap.String("product_id", id), zap.Error(err))
			continue
		}
		if ok {
			metrics.Resolutions.WithLabelValues(t.Name).Inc()
			return result{p: p, ok: true}
		}
	}
	metrics.Resolutions.WithLabelValues("miss").Inc()
	return result{}
}

func CacheTier(c *cache.ProductCache) Tier {
	return Tier{Name: "cache", Lookup: func(ctx context.Context, id string) (models.Product, bool, error) {
		p, ok := c.Get(ctx, id)
		return p, ok, nil
	}}
}

// RemoteTier fetches from src and writes hits back into c when c is non-nil.
func RemoteTier(src Source, c *cache.ProductCache) Tier {
	return Tier{Name: "remote", Lookup: func(ctx context.Context, id string) (models.Product, bool, error) {
		if src == nil {
			return models.Product{}, false, nil
		}
		p, err := src.FetchProduct(ctx, id)
		if err != nil {
			return models.Product{}, false, err
		}
		if p.ID == "" {
			return models.Product{}, false, errors.New("remote product without id")
		}
		if c != nil {
			c.Put(ctx, p)
		}
		return p, true, nil
	}}
}

func StaticTier() Tier {
	return Tier{Name: "static", Lookup: func(_ context.Context, id string) (models.Product, bool, error) {
		p, ok := fallbackTable[id]
		return p, ok, nil
	}}
}

func PlaceholderTier() Tier {
	return Tier{Name: "placeholder", Lookup: func(_ context.Context, id string) (models.Product, bool, error) {
		return Placeholder(id), true, nil
	}}
}
