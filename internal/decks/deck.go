package decks

import (
	"encoding/json"
	"time"
)

// Deck is the canonical record for one KeyForge deck, snapshotted from
// the resolver so league rows can reference it by integer id.
type Deck struct {
	ID            int64     `db:"id" json:"id"`
	SourceRef     string    `db:"source_ref" json:"source_ref"`
	Name          string    `db:"name" json:"name"`
	Expansion     string    `db:"expansion" json:"expansion"`
	Houses        string    `db:"houses" json:"-"`
	SAS           int       `db:"sas" json:"sas"`
	AERC          int       `db:"aerc" json:"aerc"`
	HasKeycheat   bool      `db:"has_keycheat" json:"has_keycheat"`
	NeedsToken    bool      `db:"needs_token" json:"needs_token"`
	NeedsProphecy bool      `db:"needs_prophecy" json:"needs_prophecy"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func (d *Deck) HouseList() []string {
	if d.Houses == "" {
		return nil
	}
	var houses []string
	if err := json.Unmarshal([]byte(d.Houses), &houses); err != nil {
		return nil
	}
	return houses
}

func (d *Deck) SetHouses(houses []string) {
	raw, _ := json.Marshal(houses)
	d.Houses = string(raw)
}

func (d *Deck) HasHouse(house string) bool {
	for _, h := range d.HouseList() {
		if h == house {
			return true
		}
	}
	return false
}
