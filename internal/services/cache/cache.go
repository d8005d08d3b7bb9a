// Package cache holds the TTL-bounded current price cache.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/vadiminshakov/kurs/internal/domain"
)

const (
	// DefaultTTL bounds how long a resolved price stays valid. Zero
	// sentinel entries are cached for the same window on purpose: an
	// asset nobody can price is retried once per TTL, not on every call.
	DefaultTTL = 300 * time.Second

	// DefaultSize caps the number of cached pairs.
	DefaultSize = 4096
)

// Key identifies a cached pair by asset identifiers.
type Key struct {
	From string
	To   string
}

// Entry is one resolved price with its provenance.
type Entry struct {
	Price            domain.Price
	ResolvedAt       time.Time
	Oracle           domain.CurrentPriceOracleID
	UsedMainCurrency bool
}

// PriceCache is a TTL-bounded map from asset pair to the last resolved
// price. A hit additionally requires the entry's main-currency flag to
// match the request; a mismatch is a miss.
type PriceCache struct {
	lru *expirable.LRU[Key, Entry]
	ttl time.Duration
	now func() time.Time
}

// New creates a cache with the given capacity and TTL. Non-positive
// arguments fall back to the defaults.
func New(size int, ttl time.Duration) *PriceCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PriceCache{
		lru: expirable.NewLRU[Key, Entry](size, nil, ttl),
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached entry for the pair if it is fresh and was
// resolved under the same main-currency mode.
func (c *PriceCache) Get(from, to string, matchMainCurrency bool) (Entry, bool) {
	e, ok := c.lru.Get(Key{From: from, To: to})
	if !ok {
		return Entry{}, false
	}
	if c.now().Sub(e.ResolvedAt) > c.ttl {
		return Entry{}, false
	}
	if e.UsedMainCurrency != matchMainCurrency {
		return Entry{}, false
	}
	return e, true
}

// Set overwrites the entry for the pair, stamping the resolution time.
func (c *PriceCache) Set(from, to string, price domain.Price, oracle domain.CurrentPriceOracleID, usedMainCurrency bool) {
	c.lru.Add(Key{From: from, To: to}, Entry{
		Price:            price,
		ResolvedAt:       c.now(),
		Oracle:           oracle,
		UsedMainCurrency: usedMainCurrency,
	})
}

// Remove drops the entry for a single pair.
func (c *PriceCache) Remove(from, to string) {
	c.lru.Remove(Key{From: from, To: to})
}

// InvalidateAssets drops every entry whose key mentions any of the
// given asset identifiers. Called when asset metadata changes, e.g. a
// manual price edit.
func (c *PriceCache) InvalidateAssets(identifiers ...string) {
	stale := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		stale[id] = struct{}{}
	}

	for _, k := range c.lru.Keys() {
		if _, ok := stale[k.From]; ok {
			c.lru.Remove(k)
			continue
		}
		if _, ok := stale[k.To]; ok {
			c.lru.Remove(k)
		}
	}
}

// Len returns the number of live entries.
func (c *PriceCache) Len() int {
	return c.lru.Len()
}
