package league

import (
	"time"

	"github.com/google/uuid"
)

type Draft struct {
	ID         int64     `db:"id" json:"id"`
	LeagueID   int64     `db:"league_id" json:"league_id"`
	IsComplete bool      `db:"is_complete" json:"is_complete"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type DraftPick struct {
	ID           int64     `db:"id" json:"id"`
	DraftID      int64     `db:"draft_id" json:"draft_id"`
	Round        int       `db:"round" json:"round"`
	PickIndex    int       `db:"pick_index" json:"pick_index"`
	TeamID       int64     `db:"team_id" json:"team_id"`
	PickedUserID uuid.UUID `db:"picked_user_id" json:"picked_user_id"`
}

// SnakeOrder lays out the pick order over rounds additional rounds
// (captains occupy round 0 implicitly). Odd rounds reverse, so with
// teams [A B] and two rounds the order is A B B A.
func SnakeOrder(teamIDs []int64, rounds int) []int64 {
	order := make([]int64, 0, len(teamIDs)*rounds)
	for r := 0; r < rounds; r++ {
		if r%2 == 0 {
			order = append(order, teamIDs...)
		} else {
			for i := len(teamIDs) - 1; i >= 0; i-- {
				order = append(order, teamIDs[i])
			}
		}
	}
	return order
}
