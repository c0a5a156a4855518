package playoff

import "time"

type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchFinished MatchStatus = "finished"
)

// Match is one node of a league's single-elimination playoff bracket.
// Teams feed forward through WinnerNextMatchID/WinnerNextSlot; byes
// resolve at generation time.
type Match struct {
	ID       int64 `db:"id" json:"id"`
	LeagueID int64 `db:"league_id" json:"league_id"`

	// Position in the bracket for reconstructing the view
	RoundNumber int `db:"round_number" json:"round_number"`
	MatchOrder  int `db:"match_order" json:"match_order"`

	Team1ID *int64 `db:"team1_id" json:"team1_id,omitempty"`
	Team2ID *int64 `db:"team2_id" json:"team2_id,omitempty"`

	Status MatchStatus `db:"status" json:"status"`

	WinnerNextMatchID *int64 `db:"winner_next_match_id" json:"winner_next_match_id,omitempty"`
	WinnerNextSlot    *int   `db:"winner_next_slot" json:"winner_next_slot,omitempty"`

	WinnerSlot *int `db:"winner_slot" json:"winner_slot,omitempty"`
	IsBye      bool `db:"is_bye" json:"is_bye"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (m *Match) WinnerTeamID() *int64 {
	if m.Status != MatchFinished || m.WinnerSlot == nil {
		return nil
	}
	if *m.WinnerSlot == 1 {
		return m.Team1ID
	}
	return m.Team2ID
}

func (m *Match) HasTeam(teamID int64) bool {
	return (m.Team1ID != nil && *m.Team1ID == teamID) ||
		(m.Team2ID != nil && *m.Team2ID == teamID)
}
