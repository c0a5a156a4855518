package decks

import "context"

// UniverseFilter narrows the deck universe for sealed pool draws.
type UniverseFilter struct {
	AllowedSets []string
	NoKeycheat  bool
}

// Resolver looks up canonical deck data from an external source
// (Decks of KeyForge / Master Vault). Calls happen before any store
// transaction begins; resolver latency must never hold a league lock.
type Resolver interface {
	// Resolve maps a deck URL or id to its canonical record.
	Resolve(ctx context.Context, ref string) (*Deck, error)
	// Universe lists decks matching the filter, for sealed pool draws.
	Universe(ctx context.Context, filter UniverseFilter) ([]Deck, error)
	// RestrictedCards returns the banned-card names for one version of
	// the alliance restricted list.
	RestrictedCards(ctx context.Context, versionID int64) ([]string, error)
	// CardNames returns the card names present in a deck, used for
	// restricted-list checks.
	CardNames(ctx context.Context, ref string) ([]string, error)
}
