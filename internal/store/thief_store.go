package store

import (
	"context"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/jmoiron/sqlx"
)

type ThiefStore struct {
	db *sqlx.DB
}

func NewThiefStore(db *sqlx.DB) *ThiefStore {
	return &ThiefStore{db: db}
}

func (s *ThiefStore) UpsertCurationDeckTx(ctx context.Context, tx *sqlx.Tx, d *league.ThiefCurationDeck) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO thief_curation_decks (week_id, team_id, slot_number, deck_id)
		VALUES (:week_id, :team_id, :slot_number, :deck_id)
		ON CONFLICT(week_id, team_id, slot_number) DO UPDATE SET deck_id = excluded.deck_id`, d)
	return err
}

func (s *ThiefStore) DeleteCurationDeckTx(ctx context.Context, tx *sqlx.Tx, weekID, teamID int64, slotNumber int) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM thief_curation_decks WHERE week_id = ? AND team_id = ? AND slot_number = ?", weekID, teamID, slotNumber)
	return err
}

func (s *ThiefStore) GetCurationDecks(ctx context.Context, weekID int64) ([]league.ThiefCurationDeck, error) {
	var rows []league.ThiefCurationDeck
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM thief_curation_decks WHERE week_id = ? ORDER BY team_id, slot_number", weekID)
	return rows, err
}

func (s *ThiefStore) GetCurationDecksForTeam(ctx context.Context, weekID, teamID int64) ([]league.ThiefCurationDeck, error) {
	var rows []league.ThiefCurationDeck
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM thief_curation_decks WHERE week_id = ? AND team_id = ? ORDER BY slot_number", weekID, teamID)
	return rows, err
}

func (s *ThiefStore) GetCurationDeck(ctx context.Context, id int64) (*league.ThiefCurationDeck, error) {
	var row league.ThiefCurationDeck
	err := s.db.GetContext(ctx, &row, "SELECT * FROM thief_curation_decks WHERE id = ?", id)
	return &row, err
}

func (s *ThiefStore) CreateStealTx(ctx context.Context, tx *sqlx.Tx, steal *league.ThiefSteal) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO thief_steals (week_id, stealing_team_id, curation_deck_id)
		VALUES (:week_id, :stealing_team_id, :curation_deck_id)`, steal)
	return err
}

func (s *ThiefStore) DeleteStealsForTeamTx(ctx context.Context, tx *sqlx.Tx, weekID, teamID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM thief_steals WHERE week_id = ? AND stealing_team_id = ?", weekID, teamID)
	return err
}

func (s *ThiefStore) GetSteals(ctx context.Context, weekID int64) ([]league.ThiefSteal, error) {
	var rows []league.ThiefSteal
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM thief_steals WHERE week_id = ? ORDER BY id", weekID)
	return rows, err
}
