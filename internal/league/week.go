package league

import (
	"encoding/json"
	"time"
)

type WeekStatus string

const (
	WeekSetup         WeekStatus = "setup"
	WeekCuration      WeekStatus = "curation"
	WeekDeckSelection WeekStatus = "deck_selection"
	WeekTeamPaired    WeekStatus = "team_paired"
	WeekThief         WeekStatus = "thief"
	WeekPairing       WeekStatus = "pairing"
	WeekPublished     WeekStatus = "published"
	WeekCompleted     WeekStatus = "completed"
)

type Week struct {
	ID                      int64      `db:"id" json:"id"`
	LeagueID                int64      `db:"league_id" json:"league_id"`
	WeekNumber              int        `db:"week_number" json:"week_number"`
	Name                    *string    `db:"name" json:"name,omitempty"`
	Format                  Format     `db:"format" json:"format"`
	BestOfN                 int        `db:"best_of_n" json:"best_of_n"`
	MaxSAS                  *int       `db:"max_sas" json:"max_sas,omitempty"`
	CombinedMaxSAS          *int       `db:"combined_max_sas" json:"combined_max_sas,omitempty"`
	AllowedSets             *string    `db:"allowed_sets" json:"-"`
	SetDiversity            bool       `db:"set_diversity" json:"set_diversity"`
	HouseDiversity          bool       `db:"house_diversity" json:"house_diversity"`
	NoKeycheat              bool       `db:"no_keycheat" json:"no_keycheat"`
	DecksPerPlayer          *int       `db:"decks_per_player" json:"decks_per_player,omitempty"`
	RestrictedListVersionID *int64     `db:"restricted_list_version_id" json:"restricted_list_version_id,omitempty"`
	Status                  WeekStatus `db:"status" json:"status"`
	SealedPoolsGenerated    bool       `db:"sealed_pools_generated" json:"sealed_pools_generated"`
	ThiefFloorTeamID        *int64     `db:"thief_floor_team_id" json:"thief_floor_team_id,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
}

// AllowedSetList decodes the allowed_sets column. Nil means any set.
func (w *Week) AllowedSetList() []string {
	if w.AllowedSets == nil || *w.AllowedSets == "" {
		return nil
	}
	var sets []string
	if err := json.Unmarshal([]byte(*w.AllowedSets), &sets); err != nil {
		return nil
	}
	return sets
}

func (w *Week) SetAllowedSets(sets []string) {
	if len(sets) == 0 {
		w.AllowedSets = nil
		return
	}
	raw, _ := json.Marshal(sets)
	s := string(raw)
	w.AllowedSets = &s
}

// Editable reports whether selections may still be created or removed.
func (w *Week) Editable() bool {
	switch w.Status {
	case WeekPublished, WeekCompleted:
		return false
	}
	return true
}

// WinsNeeded is the per-matchup win threshold for a decided match.
func (w *Week) WinsNeeded() int {
	return w.BestOfN/2 + 1
}
