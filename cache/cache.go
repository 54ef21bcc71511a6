// Package cache keeps fetched products in local storage with a freshness
// window. Entries are overwritten on refresh and never deleted here.
package cache

import (
	"context"
	"errors"
	"time"

	"vogue/localstore"
	"vogue/models"

	"go.uber.org/zap"
)

const (
	ProductTTL = 5 * time.Minute
	ListingTTL = time.Hour

	productPrefix = "product_"
	listingKey    = "catalog_cache"
)

// Entry is a cached payload with its fetch time in unix millis.
type Entry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

type listingEntry struct {
	Products  []models.Product `json:"products"`
	Timestamp int64            `json:"timestamp"`
}

func fresh(ts int64, now time.Time, ttl time.Duration) bool {
	return now.Sub(time.UnixMilli(ts)) < ttl
}

// ProductCache stores single products under product_<id>.
type ProductCache struct {
	Store localstore.Store
	TTL   time.Duration
	Now   func() time.Time
	Log   *zap.Logger
}

func NewProductCache(store localstore.Store, log *zap.Logger) *ProductCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductCache{Store: store, TTL: ProductTTL, Now: time.Now, Log: log}
}

// Get returns the cached product if it was fetched within the TTL.
func (c *ProductCache) Get(ctx context.Context, id string) (models.Product, bool) {
	var e Entry[models.Product]
	if err := localstore.GetJSON(ctx, c.Store, productPrefix+id, &e); err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			c.Log.Warn("product cache read failed", zap.String("product_id", id), zap.Error(err))
		}
		return models.Product{}, false
	}
	if !fresh(e.Timestamp, c.Now(), c.TTL) {
		return models.Product{}, false
	}
	return e.Data, true
}

// Put overwrites the entry for p with the current time.
func (c *ProductCache) Put(ctx context.Context, p models.Product) {
	e := Entry[models.Product]{Data: p, Timestamp: c.Now().UnixMilli()}
	if err := localstore.SetJSON(ctx, c.Store, productPrefix+p.ID, e); err != nil {
		c.Log.Warn("product cache write failed", zap.String("product_id", p.ID), zap.Error(err))
	}
}

// ListingCache stores the whole catalog listing.
type ListingCache struct {
	Store localstore.Store
	TTL   time.Duration
	Now   func() time.Time
	Log   *zap.Logger
}

func NewListingCache(store localstore.Store, log *zap.Logger) *ListingCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingCache{Store: store, TTL: ListingTTL, Now: time.Now, Log: log}
}

func (c *ListingCache) Get(ctx context.Context) ([]models.Product, bool) {
	var e listingEntry
	if err := localstore.GetJSON(ctx, c.Store, listingKey, &e); err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			c.Log.Warn("listing cache read failed", zap.Error(err))
		}
		return nil, false
	}
	if !fresh(e.Timestamp, c.Now(), c.TTL) || len(e.Products) == 0 {
		return nil, false
	}
	return e.Products, true
}

func (c *ListingCache) Put(ctx context.Context, products []models.Product) {
	e := listingEntry{Products: products, Timestamp: c.Now().UnixMilli()}
	if err := localstore.SetJSON(ctx, c.Store, listingKey, e); err != nil {
		c.Log.Warn("listing cache write failed", zap.Error(err))
	}
}
