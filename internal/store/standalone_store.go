package store

import (
	"context"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type StandaloneStore struct {
	db *sqlx.DB
}

func NewStandaloneStore(db *sqlx.DB) *StandaloneStore {
	return &StandaloneStore{db: db}
}

func (s *StandaloneStore) CreateMatchTx(ctx context.Context, tx *sqlx.Tx, m *league.StandaloneMatch) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO standalone_matches (token, format, best_of_n, player_matchup_id, created_by, status)
		VALUES (:token, :format, :best_of_n, :player_matchup_id, :created_by, :status)`, m)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (s *StandaloneStore) GetMatch(ctx context.Context, id int64) (*league.StandaloneMatch, error) {
	var m league.StandaloneMatch
	err := s.db.GetContext(ctx, &m, "SELECT * FROM standalone_matches WHERE id = ?", id)
	return &m, err
}

func (s *StandaloneStore) GetMatchByToken(ctx context.Context, token uuid.UUID) (*league.StandaloneMatch, error) {
	var m league.StandaloneMatch
	err := s.db.GetContext(ctx, &m, "SELECT * FROM standalone_matches WHERE token = ?", token)
	return &m, err
}

func (s *StandaloneStore) UpdateMatchTx(ctx context.Context, tx *sqlx.Tx, m *league.StandaloneMatch) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE standalone_matches SET
		player_matchup_id = :player_matchup_id,
		status = :status
		WHERE id = :id`, m)
	return err
}

func (s *StandaloneStore) UpsertSelectionTx(ctx context.Context, tx *sqlx.Tx, sel *league.DeckSelection) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO deck_selections (standalone_match_id, user_id, slot_number, deck_id)
		VALUES (:standalone_match_id, :user_id, :slot_number, :deck_id)
		ON CONFLICT(standalone_match_id, user_id, slot_number) DO UPDATE SET deck_id = excluded.deck_id`, sel)
	if err != nil {
		return err
	}
	sel.ID, err = res.LastInsertId()
	return err
}

func (s *StandaloneStore) GetSelections(ctx context.Context, matchID int64) ([]league.DeckSelection, error) {
	var sels []league.DeckSelection
	err := s.db.SelectContext(ctx, &sels, "SELECT * FROM deck_selections WHERE standalone_match_id = ? ORDER BY user_id, slot_number", matchID)
	return sels, err
}
