package league

import (
	"time"

	"github.com/google/uuid"
)

type WeekMatchup struct {
	ID     int64 `db:"id" json:"id"`
	WeekID int64 `db:"week_id" json:"week_id"`
	Team1  int64 `db:"team1_id" json:"team1_id"`
	Team2  int64 `db:"team2_id" json:"team2_id"`
}

type PlayerMatchup struct {
	ID                int64     `db:"id" json:"id"`
	WeekMatchupID     *int64    `db:"week_matchup_id" json:"week_matchup_id,omitempty"`
	StandaloneMatchID *int64    `db:"standalone_match_id" json:"standalone_match_id,omitempty"`
	Player1           uuid.UUID `db:"player1_id" json:"player1_id"`
	Player2           uuid.UUID `db:"player2_id" json:"player2_id"`
	Player1Started    bool      `db:"player1_started" json:"player1_started"`
	Player2Started    bool      `db:"player2_started" json:"player2_started"`
	IsFeature         bool      `db:"is_feature" json:"is_feature"`
}

// Opponent returns the other seat, or uuid.Nil when u is not in the matchup.
func (m *PlayerMatchup) Opponent(u uuid.UUID) uuid.UUID {
	switch u {
	case m.Player1:
		return m.Player2
	case m.Player2:
		return m.Player1
	}
	return uuid.Nil
}

func (m *PlayerMatchup) Has(u uuid.UUID) bool {
	return m.Player1 == u || m.Player2 == u
}

type Game struct {
	ID              int64     `db:"id" json:"id"`
	PlayerMatchupID int64     `db:"player_matchup_id" json:"player_matchup_id"`
	GameNumber      int       `db:"game_number" json:"game_number"`
	WinnerID        uuid.UUID `db:"winner_id" json:"winner_id"`
	Player1Keys     int       `db:"player1_keys" json:"player1_keys"`
	Player2Keys     int       `db:"player2_keys" json:"player2_keys"`
	WentToTime      bool      `db:"went_to_time" json:"went_to_time"`
	LoserConceded   bool      `db:"loser_conceded" json:"loser_conceded"`
	Player1DeckID   *int64    `db:"player1_deck_id" json:"player1_deck_id,omitempty"`
	Player2DeckID   *int64    `db:"player2_deck_id" json:"player2_deck_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type Strike struct {
	ID                int64     `db:"id" json:"id"`
	PlayerMatchupID   int64     `db:"player_matchup_id" json:"player_matchup_id"`
	StrikingUserID    uuid.UUID `db:"striking_user_id" json:"striking_user_id"`
	StruckSelectionID int64     `db:"struck_selection_id" json:"struck_selection_id"`
}

type AdaptiveBidState struct {
	ID                  int64     `db:"id" json:"id"`
	PlayerMatchupID     int64     `db:"player_matchup_id" json:"player_matchup_id"`
	BidderID            uuid.UUID `db:"bidder_id" json:"bidder_id"`
	BidChains           int       `db:"bid_chains" json:"bid_chains"`
	WinningDeckPlayerID uuid.UUID `db:"winning_deck_player_id" json:"winning_deck_player_id"`
	Complete            bool      `db:"complete" json:"complete"`
}

// WinCounts tallies decided games per seat for one player matchup.
func WinCounts(m *PlayerMatchup, games []Game) (p1Wins, p2Wins int) {
	for _, g := range games {
		switch g.WinnerID {
		case m.Player1:
			p1Wins++
		case m.Player2:
			p2Wins++
		}
	}
	return p1Wins, p2Wins
}

// DecidedWinner returns the seat that has reached the win threshold,
// or uuid.Nil when the matchup is still live.
func DecidedWinner(m *PlayerMatchup, games []Game, winsNeeded int) uuid.UUID {
	p1, p2 := WinCounts(m, games)
	if p1 >= winsNeeded {
		return m.Player1
	}
	if p2 >= winsNeeded {
		return m.Player2
	}
	return uuid.Nil
}
