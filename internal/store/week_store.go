package store

import (
	"context"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type WeekStore struct {
	db *sqlx.DB
}

func NewWeekStore(db *sqlx.DB) *WeekStore {
	return &WeekStore{db: db}
}

func (s *WeekStore) CreateWeek(ctx context.Context, tx *sqlx.Tx, w *league.Week) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO weeks
		(league_id, week_number, name, format, best_of_n, max_sas, combined_max_sas, allowed_sets,
		 set_diversity, house_diversity, no_keycheat, decks_per_player, restricted_list_version_id,
		 status, sealed_pools_generated, thief_floor_team_id)
		VALUES (:league_id, :week_number, :name, :format, :best_of_n, :max_sas, :combined_max_sas, :allowed_sets,
		 :set_diversity, :house_diversity, :no_keycheat, :decks_per_player, :restricted_list_version_id,
		 :status, :sealed_pools_generated, :thief_floor_team_id)`, w)
	if err != nil {
		return err
	}
	w.ID, err = res.LastInsertId()
	return err
}

func (s *WeekStore) GetWeek(ctx context.Context, id int64) (*league.Week, error) {
	var w league.Week
	err := s.db.GetContext(ctx, &w, "SELECT * FROM weeks WHERE id = ?", id)
	return &w, err
}

func (s *WeekStore) GetWeeks(ctx context.Context, leagueID int64) ([]league.Week, error) {
	var weeks []league.Week
	err := s.db.SelectContext(ctx, &weeks, "SELECT * FROM weeks WHERE league_id = ? ORDER BY week_number ASC", leagueID)
	return weeks, err
}

func (s *WeekStore) UpdateWeek(ctx context.Context, tx *sqlx.Tx, w *league.Week) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE weeks SET
		name = :name,
		format = :format,
		best_of_n = :best_of_n,
		max_sas = :max_sas,
		combined_max_sas = :combined_max_sas,
		allowed_sets = :allowed_sets,
		set_diversity = :set_diversity,
		house_diversity = :house_diversity,
		no_keycheat = :no_keycheat,
		decks_per_player = :decks_per_player,
		restricted_list_version_id = :restricted_list_version_id,
		status = :status,
		sealed_pools_generated = :sealed_pools_generated,
		thief_floor_team_id = :thief_floor_team_id
		WHERE id = :id`, w)
	return err
}

func (s *WeekStore) UpdateWeekStatusTx(ctx context.Context, tx *sqlx.Tx, weekID int64, status league.WeekStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE weeks SET status = ? WHERE id = ?", status, weekID)
	return err
}

func (s *WeekStore) DeleteWeek(ctx context.Context, tx *sqlx.Tx, weekID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM weeks WHERE id = ?", weekID)
	return err
}

func (s *WeekStore) UpsertSelectionTx(ctx context.Context, tx *sqlx.Tx, sel *league.DeckSelection) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO deck_selections (week_id, user_id, slot_number, deck_id)
		VALUES (:week_id, :user_id, :slot_number, :deck_id)
		ON CONFLICT(week_id, user_id, slot_number) DO UPDATE SET deck_id = excluded.deck_id`, sel)
	if err != nil {
		return err
	}
	sel.ID, err = res.LastInsertId()
	return err
}

func (s *WeekStore) GetSelections(ctx context.Context, weekID int64) ([]league.DeckSelection, error) {
	var sels []league.DeckSelection
	err := s.db.SelectContext(ctx, &sels, "SELECT * FROM deck_selections WHERE week_id = ? ORDER BY user_id, slot_number", weekID)
	return sels, err
}

func (s *WeekStore) GetSelectionsForUser(ctx context.Context, weekID int64, userID uuid.UUID) ([]league.DeckSelection, error) {
	var sels []league.DeckSelection
	err := s.db.SelectContext(ctx, &sels, "SELECT * FROM deck_selections WHERE week_id = ? AND user_id = ? ORDER BY slot_number", weekID, userID)
	return sels, err
}

func (s *WeekStore) GetSelection(ctx context.Context, id int64) (*league.DeckSelection, error) {
	var sel league.DeckSelection
	err := s.db.GetContext(ctx, &sel, "SELECT * FROM deck_selections WHERE id = ?", id)
	return &sel, err
}

func (s *WeekStore) DeleteSelectionTx(ctx context.Context, tx *sqlx.Tx, weekID int64, userID uuid.UUID, slotNumber int) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM deck_selections WHERE week_id = ? AND user_id = ? AND slot_number = ?", weekID, userID, slotNumber)
	return err
}

func (s *WeekStore) DeleteSelectionsForUsersTx(ctx context.Context, tx *sqlx.Tx, weekID int64, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM deck_selections WHERE week_id = ? AND user_id IN (?)", weekID, userIDs)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
	return err
}

func (s *WeekStore) CountSelections(ctx context.Context, weekID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM deck_selections WHERE week_id = ?", weekID)
	return count, err
}

func (s *WeekStore) InsertPoolEntriesTx(ctx context.Context, tx *sqlx.Tx, entries []league.SealedPoolEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO sealed_pool_entries (week_id, user_id, deck_id)
		VALUES (:week_id, :user_id, :deck_id)`, entries)
	return err
}

func (s *WeekStore) GetPoolEntries(ctx context.Context, weekID int64) ([]league.SealedPoolEntry, error) {
	var entries []league.SealedPoolEntry
	err := s.db.SelectContext(ctx, &entries, "SELECT * FROM sealed_pool_entries WHERE week_id = ? ORDER BY user_id, id", weekID)
	return entries, err
}

func (s *WeekStore) GetPoolForUser(ctx context.Context, weekID int64, userID uuid.UUID) ([]league.SealedPoolEntry, error) {
	var entries []league.SealedPoolEntry
	err := s.db.SelectContext(ctx, &entries, "SELECT * FROM sealed_pool_entries WHERE week_id = ? AND user_id = ? ORDER BY id", weekID, userID)
	return entries, err
}

func (s *WeekStore) DeletePoolForUsersTx(ctx context.Context, tx *sqlx.Tx, weekID int64, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM sealed_pool_entries WHERE week_id = ? AND user_id IN (?)", weekID, userIDs)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
	return err
}

// ReplaceAllianceSelectionTx swaps a user's full alliance submission
// (pods plus optional token and prophecy rows) atomically.
func (s *WeekStore) ReplaceAllianceSelectionTx(ctx context.Context, tx *sqlx.Tx, weekID int64, userID uuid.UUID, rows []league.AlliancePodSelection) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM alliance_pod_selections WHERE week_id = ? AND user_id = ?", weekID, userID); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO alliance_pod_selections (week_id, user_id, slot_type, slot_number, deck_id, house_name)
		VALUES (:week_id, :user_id, :slot_type, :slot_number, :deck_id, :house_name)`, rows)
	return err
}

func (s *WeekStore) GetAllianceSelections(ctx context.Context, weekID int64) ([]league.AlliancePodSelection, error) {
	var rows []league.AlliancePodSelection
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM alliance_pod_selections WHERE week_id = ? ORDER BY user_id, slot_type, slot_number", weekID)
	return rows, err
}

func (s *WeekStore) GetAllianceSelectionsForUser(ctx context.Context, weekID int64, userID uuid.UUID) ([]league.AlliancePodSelection, error) {
	var rows []league.AlliancePodSelection
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM alliance_pod_selections WHERE week_id = ? AND user_id = ? ORDER BY slot_type, slot_number", weekID, userID)
	return rows, err
}

func (s *WeekStore) UpsertFeatureDesignationTx(ctx context.Context, tx *sqlx.Tx, fd *league.FeatureDesignation) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO feature_designations (week_id, team_id, user_id)
		VALUES (:week_id, :team_id, :user_id)
		ON CONFLICT(week_id, team_id) DO UPDATE SET user_id = excluded.user_id`, fd)
	return err
}

func (s *WeekStore) GetFeatureDesignations(ctx context.Context, weekID int64) ([]league.FeatureDesignation, error) {
	var fds []league.FeatureDesignation
	err := s.db.SelectContext(ctx, &fds, "SELECT * FROM feature_designations WHERE week_id = ?", weekID)
	return fds, err
}
