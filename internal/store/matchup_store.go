package store

import (
	"context"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/jmoiron/sqlx"
)

type MatchupStore struct {
	db *sqlx.DB
}

func NewMatchupStore(db *sqlx.DB) *MatchupStore {
	return &MatchupStore{db: db}
}

func (s *MatchupStore) CreateWeekMatchupsTx(ctx context.Context, tx *sqlx.Tx, matchups []league.WeekMatchup) error {
	if len(matchups) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO week_matchups (week_id, team1_id, team2_id)
		VALUES (:week_id, :team1_id, :team2_id)`, matchups)
	return err
}

func (s *MatchupStore) GetWeekMatchups(ctx context.Context, weekID int64) ([]league.WeekMatchup, error) {
	var matchups []league.WeekMatchup
	err := s.db.SelectContext(ctx, &matchups, "SELECT * FROM week_matchups WHERE week_id = ? ORDER BY id ASC", weekID)
	return matchups, err
}

func (s *MatchupStore) CreatePlayerMatchupsTx(ctx context.Context, tx *sqlx.Tx, matchups []league.PlayerMatchup) error {
	if len(matchups) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO player_matchups
		(week_matchup_id, standalone_match_id, player1_id, player2_id, player1_started, player2_started, is_feature)
		VALUES (:week_matchup_id, :standalone_match_id, :player1_id, :player2_id, :player1_started, :player2_started, :is_feature)`, matchups)
	return err
}

func (s *MatchupStore) CreatePlayerMatchupTx(ctx context.Context, tx *sqlx.Tx, m *league.PlayerMatchup) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO player_matchups
		(week_matchup_id, standalone_match_id, player1_id, player2_id, player1_started, player2_started, is_feature)
		VALUES (:week_matchup_id, :standalone_match_id, :player1_id, :player2_id, :player1_started, :player2_started, :is_feature)`, m)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (s *MatchupStore) GetPlayerMatchup(ctx context.Context, id int64) (*league.PlayerMatchup, error) {
	var m league.PlayerMatchup
	err := s.db.GetContext(ctx, &m, "SELECT * FROM player_matchups WHERE id = ?", id)
	return &m, err
}

func (s *MatchupStore) GetPlayerMatchups(ctx context.Context, weekMatchupID int64) ([]league.PlayerMatchup, error) {
	var ms []league.PlayerMatchup
	err := s.db.SelectContext(ctx, &ms, "SELECT * FROM player_matchups WHERE week_matchup_id = ? ORDER BY id ASC", weekMatchupID)
	return ms, err
}

func (s *MatchupStore) GetPlayerMatchupsForWeek(ctx context.Context, weekID int64) ([]league.PlayerMatchup, error) {
	var ms []league.PlayerMatchup
	err := s.db.SelectContext(ctx, &ms, `SELECT pm.* FROM player_matchups pm
		JOIN week_matchups wm ON wm.id = pm.week_matchup_id
		WHERE wm.week_id = ? ORDER BY pm.id ASC`, weekID)
	return ms, err
}

func (s *MatchupStore) UpdatePlayerMatchupTx(ctx context.Context, tx *sqlx.Tx, m *league.PlayerMatchup) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE player_matchups SET
		player1_id = :player1_id,
		player2_id = :player2_id,
		player1_started = :player1_started,
		player2_started = :player2_started,
		is_feature = :is_feature
		WHERE id = :id`, m)
	return err
}

func (s *MatchupStore) DeletePlayerMatchupsForWeekTx(ctx context.Context, tx *sqlx.Tx, weekID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM player_matchups WHERE week_matchup_id IN
		(SELECT id FROM week_matchups WHERE week_id = ?)`, weekID)
	return err
}

func (s *MatchupStore) CreateGameTx(ctx context.Context, tx *sqlx.Tx, g *league.Game) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO games
		(player_matchup_id, game_number, winner_id, player1_keys, player2_keys, went_to_time, loser_conceded, player1_deck_id, player2_deck_id)
		VALUES (:player_matchup_id, :game_number, :winner_id, :player1_keys, :player2_keys, :went_to_time, :loser_conceded, :player1_deck_id, :player2_deck_id)`, g)
	if err != nil {
		return err
	}
	g.ID, err = res.LastInsertId()
	return err
}

func (s *MatchupStore) GetGames(ctx context.Context, playerMatchupID int64) ([]league.Game, error) {
	var games []league.Game
	err := s.db.SelectContext(ctx, &games, "SELECT * FROM games WHERE player_matchup_id = ? ORDER BY game_number ASC", playerMatchupID)
	return games, err
}

func (s *MatchupStore) GetGamesForWeek(ctx context.Context, weekID int64) ([]league.Game, error) {
	var games []league.Game
	err := s.db.SelectContext(ctx, &games, `SELECT g.* FROM games g
		JOIN player_matchups pm ON pm.id = g.player_matchup_id
		JOIN week_matchups wm ON wm.id = pm.week_matchup_id
		WHERE wm.week_id = ? ORDER BY g.player_matchup_id, g.game_number`, weekID)
	return games, err
}

func (s *MatchupStore) CountGamesForWeek(ctx context.Context, weekID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM games g
		JOIN player_matchups pm ON pm.id = g.player_matchup_id
		JOIN week_matchups wm ON wm.id = pm.week_matchup_id
		WHERE wm.week_id = ?`, weekID)
	return count, err
}

func (s *MatchupStore) CreateStrikeTx(ctx context.Context, tx *sqlx.Tx, strike *league.Strike) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO strikes (player_matchup_id, striking_user_id, struck_selection_id)
		VALUES (:player_matchup_id, :striking_user_id, :struck_selection_id)`, strike)
	return err
}

func (s *MatchupStore) GetStrikes(ctx context.Context, playerMatchupID int64) ([]league.Strike, error) {
	var strikes []league.Strike
	err := s.db.SelectContext(ctx, &strikes, "SELECT * FROM strikes WHERE player_matchup_id = ?", playerMatchupID)
	return strikes, err
}

func (s *MatchupStore) UpsertBidTx(ctx context.Context, tx *sqlx.Tx, bid *league.AdaptiveBidState) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO adaptive_bids
		(player_matchup_id, bidder_id, bid_chains, winning_deck_player_id, complete)
		VALUES (:player_matchup_id, :bidder_id, :bid_chains, :winning_deck_player_id, :complete)
		ON CONFLICT(player_matchup_id) DO UPDATE SET
			bidder_id = excluded.bidder_id,
			bid_chains = excluded.bid_chains,
			complete = excluded.complete`, bid)
	return err
}

func (s *MatchupStore) GetBid(ctx context.Context, playerMatchupID int64) (*league.AdaptiveBidState, error) {
	var bid league.AdaptiveBidState
	err := s.db.GetContext(ctx, &bid, "SELECT * FROM adaptive_bids WHERE player_matchup_id = ?", playerMatchupID)
	return &bid, err
}

// pairCount is one historical pairing tally between two players.
type pairCount struct {
	Player1 string `db:"player1_id"`
	Player2 string `db:"player2_id"`
	N       int    `db:"n"`
}

// GetPriorPairCounts tallies how often each player pair has already met
// in earlier published or completed weeks of the league.
func (s *MatchupStore) GetPriorPairCounts(ctx context.Context, leagueID int64, beforeWeekNumber int) (map[[2]string]int, error) {
	var rows []pairCount
	err := s.db.SelectContext(ctx, &rows, `SELECT pm.player1_id, pm.player2_id, COUNT(*) AS n
		FROM player_matchups pm
		JOIN week_matchups wm ON wm.id = pm.week_matchup_id
		JOIN weeks w ON w.id = wm.week_id
		WHERE w.league_id = ? AND w.week_number < ?
		GROUP BY pm.player1_id, pm.player2_id`, leagueID, beforeWeekNumber)
	if err != nil {
		return nil, err
	}
	counts := make(map[[2]string]int)
	for _, r := range rows {
		a, b := r.Player1, r.Player2
		if a > b {
			a, b = b, a
		}
		counts[[2]string{a, b}] += r.N
	}
	return counts, nil
}

// CountPairedWeeks returns how many weeks of the league already have
// team pairings, which drives the round-robin round index.
func (s *MatchupStore) CountPairedWeeks(ctx context.Context, leagueID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(DISTINCT wm.week_id) FROM week_matchups wm
		JOIN weeks w ON w.id = wm.week_id
		WHERE w.league_id = ?`, leagueID)
	return count, err
}
