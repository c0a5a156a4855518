package service

import (
	"context"

	"github.com/avandever/keytracker-sub000/internal/decks"
	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/google/uuid"
)

// SelectedDeck is one slot of a user's pending selection set, with the
// resolved deck snapshot.
type SelectedDeck struct {
	Slot int
	Deck decks.Deck
}

// ConstraintChecker validates a user's full selection set against a
// week's constraints. It runs after decks have been resolved and
// before the write transaction commits.
type ConstraintChecker struct {
	weeks *store.WeekStore
}

func NewConstraintChecker(weeks *store.WeekStore) *ConstraintChecker {
	return &ConstraintChecker{weeks: weeks}
}

func (c *ConstraintChecker) Check(ctx context.Context, week *league.Week, userID uuid.UUID, selected []SelectedDeck) error {
	allowed := week.AllowedSetList()

	combined := 0
	seenSets := make(map[string]int64)
	seenHouses := make(map[string]int64)

	for _, sel := range selected {
		d := sel.Deck
		combined += d.SAS

		if week.MaxSAS != nil && d.SAS > *week.MaxSAS {
			return league.ConstraintViolation("max_sas", d.ID)
		}
		if len(allowed) > 0 && !contains(allowed, d.Expansion) {
			return league.ConstraintViolation("allowed_sets", d.ID)
		}
		if week.NoKeycheat && d.HasKeycheat {
			return league.ConstraintViolation("no_keycheat", d.ID)
		}
		if week.SetDiversity {
			if _, dup := seenSets[d.Expansion]; dup {
				return league.ConstraintViolation("set_diversity", d.ID)
			}
			seenSets[d.Expansion] = d.ID
		}
		if week.HouseDiversity {
			for _, h := range d.HouseList() {
				if _, dup := seenHouses[h]; dup {
					return league.ConstraintViolation("house_diversity", d.ID)
				}
				seenHouses[h] = d.ID
			}
		}
	}

	if week.CombinedMaxSAS != nil && combined > *week.CombinedMaxSAS {
		last := int64(0)
		if len(selected) > 0 {
			last = selected[len(selected)-1].Deck.ID
		}
		return league.ConstraintViolation("combined_max_sas", last)
	}

	if week.Format.IsSealed() {
		pool, err := c.weeks.GetPoolForUser(ctx, week.ID, userID)
		if err != nil {
			return err
		}
		inPool := make(map[int64]bool, len(pool))
		for _, e := range pool {
			inPool[e.DeckID] = true
		}
		for _, sel := range selected {
			if !inPool[sel.Deck.ID] {
				return league.ConstraintViolation("sealed_membership", sel.Deck.ID)
			}
		}
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
