package league

import (
	"time"

	"github.com/google/uuid"
)

type StandaloneStatus string

const (
	StandaloneOpen      StandaloneStatus = "open"
	StandaloneActive    StandaloneStatus = "active"
	StandaloneCompleted StandaloneStatus = "completed"
)

// StandaloneMatch is a single player matchup outside any league. The
// token authorizes the opponent to join.
type StandaloneMatch struct {
	ID              int64            `db:"id" json:"id"`
	Token           uuid.UUID        `db:"token" json:"token"`
	Format          Format           `db:"format" json:"format"`
	BestOfN         int              `db:"best_of_n" json:"best_of_n"`
	PlayerMatchupID *int64           `db:"player_matchup_id" json:"player_matchup_id,omitempty"`
	CreatedBy       uuid.UUID        `db:"created_by" json:"created_by"`
	Status          StandaloneStatus `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

func (m *StandaloneMatch) WinsNeeded() int {
	return m.BestOfN/2 + 1
}
