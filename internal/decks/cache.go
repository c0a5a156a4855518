package decks

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 2048

// cacheTTL bounds staleness of memoized SAS/AERC scores. An expired
// entry falls through to an uncached fetch.
const cacheTTL = time.Hour

type cachedDeck struct {
	deck    Deck
	cards   []string
	fetched time.Time
}

// CachingResolver memoizes Resolve and CardNames results by deck id in
// a bounded LRU. Universe and RestrictedCards draws are never cached:
// pools must be fresh on every generation and restricted lists are
// fetched per submission.
type CachingResolver struct {
	inner Resolver
	cache *lru.Cache[string, cachedDeck]
}

func NewCachingResolver(inner Resolver, size int) *CachingResolver {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, _ := lru.New[string, cachedDeck](size)
	return &CachingResolver{inner: inner, cache: cache}
}

func (r *CachingResolver) Resolve(ctx context.Context, ref string) (*Deck, error) {
	id := DeckIDFromRef(ref)
	if entry, ok := r.cache.Get(id); ok && time.Since(entry.fetched) < cacheTTL {
		deck := entry.deck
		return &deck, nil
	}
	deck, err := r.inner.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	r.store(id, *deck, nil)
	return deck, nil
}

func (r *CachingResolver) CardNames(ctx context.Context, ref string) ([]string, error) {
	id := DeckIDFromRef(ref)
	if entry, ok := r.cache.Get(id); ok && entry.cards != nil && time.Since(entry.fetched) < cacheTTL {
		return entry.cards, nil
	}
	cards, err := r.inner.CardNames(ctx, ref)
	if err != nil {
		return nil, err
	}
	if entry, ok := r.cache.Get(id); ok {
		r.store(id, entry.deck, cards)
	}
	return cards, nil
}

func (r *CachingResolver) Universe(ctx context.Context, filter UniverseFilter) ([]Deck, error) {
	return r.inner.Universe(ctx, filter)
}

func (r *CachingResolver) RestrictedCards(ctx context.Context, versionID int64) ([]string, error) {
	return r.inner.RestrictedCards(ctx, versionID)
}

func (r *CachingResolver) store(id string, deck Deck, cards []string) {
	r.cache.Add(id, cachedDeck{deck: deck, cards: cards, fetched: time.Now()})
}
