package store

import (
	"context"

	"github.com/avandever/keytracker-sub000/internal/playoff"
	"github.com/jmoiron/sqlx"
)

type PlayoffStore struct {
	db *sqlx.DB
}

func NewPlayoffStore(db *sqlx.DB) *PlayoffStore {
	return &PlayoffStore{db: db}
}

func (s *PlayoffStore) CreateMatchTx(ctx context.Context, tx *sqlx.Tx, m *playoff.Match) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO playoff_matches
		(league_id, round_number, match_order, team1_id, team2_id, status, winner_next_match_id, winner_next_slot, winner_slot, is_bye)
		VALUES (:league_id, :round_number, :match_order, :team1_id, :team2_id, :status, :winner_next_match_id, :winner_next_slot, :winner_slot, :is_bye)`, m)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (s *PlayoffStore) GetMatch(ctx context.Context, id int64) (*playoff.Match, error) {
	var m playoff.Match
	err := s.db.GetContext(ctx, &m, "SELECT * FROM playoff_matches WHERE id = ?", id)
	return &m, err
}

func (s *PlayoffStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id int64) (*playoff.Match, error) {
	var m playoff.Match
	err := tx.GetContext(ctx, &m, "SELECT * FROM playoff_matches WHERE id = ?", id)
	return &m, err
}

func (s *PlayoffStore) GetMatches(ctx context.Context, leagueID int64) ([]playoff.Match, error) {
	var matches []playoff.Match
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM playoff_matches WHERE league_id = ? ORDER BY round_number ASC, match_order ASC", leagueID)
	return matches, err
}

func (s *PlayoffStore) CountMatches(ctx context.Context, leagueID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM playoff_matches WHERE league_id = ?", leagueID)
	return n, err
}

func (s *PlayoffStore) UpdateMatchTx(ctx context.Context, tx *sqlx.Tx, m *playoff.Match) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE playoff_matches SET
		team1_id = :team1_id,
		team2_id = :team2_id,
		status = :status,
		winner_slot = :winner_slot
		WHERE id = :id`, m)
	return err
}

// HasPreviousPendingMatchesTx reports whether any earlier bracket slot
// is still undecided, so winners advance in order.
func (s *PlayoffStore) HasPreviousPendingMatchesTx(ctx context.Context, tx *sqlx.Tx, leagueID int64, roundNumber, matchOrder int) (bool, error) {
	var n int
	err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM playoff_matches
		WHERE league_id = ? AND status = ? AND (round_number < ? OR (round_number = ? AND match_order < ?))`,
		leagueID, playoff.MatchPending, roundNumber, roundNumber, matchOrder)
	return n > 0, err
}
