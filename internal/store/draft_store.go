package store

import (
	"context"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/jmoiron/sqlx"
)

type DraftStore struct {
	db *sqlx.DB
}

func NewDraftStore(db *sqlx.DB) *DraftStore {
	return &DraftStore{db: db}
}

func (s *DraftStore) CreateDraftTx(ctx context.Context, tx *sqlx.Tx, d *league.Draft) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO drafts (league_id, is_complete) VALUES (:league_id, :is_complete)`, d)
	if err != nil {
		return err
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (s *DraftStore) GetDraft(ctx context.Context, leagueID int64) (*league.Draft, error) {
	var d league.Draft
	err := s.db.GetContext(ctx, &d, "SELECT * FROM drafts WHERE league_id = ?", leagueID)
	return &d, err
}

// AppendPickTx writes the pick at the next cursor position. The unique
// (draft_id, pick_index) constraint rejects a stale concurrent append.
func (s *DraftStore) AppendPickTx(ctx context.Context, tx *sqlx.Tx, pick *league.DraftPick) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO draft_picks (draft_id, round, pick_index, team_id, picked_user_id)
		VALUES (:draft_id, :round, :pick_index, :team_id, :picked_user_id)`, pick)
	if err != nil {
		return err
	}
	pick.ID, err = res.LastInsertId()
	return err
}

func (s *DraftStore) GetPicks(ctx context.Context, draftID int64) ([]league.DraftPick, error) {
	var picks []league.DraftPick
	err := s.db.SelectContext(ctx, &picks, "SELECT * FROM draft_picks WHERE draft_id = ? ORDER BY pick_index ASC", draftID)
	return picks, err
}

func (s *DraftStore) CompleteDraftTx(ctx context.Context, tx *sqlx.Tx, draftID int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE drafts SET is_complete = 1 WHERE id = ?", draftID)
	return err
}
