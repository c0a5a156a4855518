package league

import (
	"time"

	"github.com/google/uuid"
)

// DeckSelection is tied to a league week or to a standalone match,
// never both.
type DeckSelection struct {
	ID                int64     `db:"id" json:"id"`
	WeekID            *int64    `db:"week_id" json:"week_id,omitempty"`
	StandaloneMatchID *int64    `db:"standalone_match_id" json:"standalone_match_id,omitempty"`
	UserID            uuid.UUID `db:"user_id" json:"user_id"`
	SlotNumber        int       `db:"slot_number" json:"slot_number"`
	DeckID            int64     `db:"deck_id" json:"deck_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

type SealedPoolEntry struct {
	ID     int64     `db:"id" json:"id"`
	WeekID int64     `db:"week_id" json:"week_id"`
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	DeckID int64     `db:"deck_id" json:"deck_id"`
}

type PodSlotType string

const (
	PodSlotPod      PodSlotType = "pod"
	PodSlotToken    PodSlotType = "token"
	PodSlotProphecy PodSlotType = "prophecy"
)

type AlliancePodSelection struct {
	ID         int64       `db:"id" json:"id"`
	WeekID     int64       `db:"week_id" json:"week_id"`
	UserID     uuid.UUID   `db:"user_id" json:"user_id"`
	SlotType   PodSlotType `db:"slot_type" json:"slot_type"`
	SlotNumber int         `db:"slot_number" json:"slot_number"`
	DeckID     int64       `db:"deck_id" json:"deck_id"`
	HouseName  *string     `db:"house_name" json:"house_name,omitempty"`
}

type FeatureDesignation struct {
	ID     int64     `db:"id" json:"id"`
	WeekID int64     `db:"week_id" json:"week_id"`
	TeamID int64     `db:"team_id" json:"team_id"`
	UserID uuid.UUID `db:"user_id" json:"user_id"`
}
