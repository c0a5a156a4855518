package store

import (
	"context"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type LeagueStore struct {
	db *sqlx.DB
}

func NewLeagueStore(db *sqlx.DB) *LeagueStore {
	return &LeagueStore{db: db}
}

func (s *LeagueStore) CreateLeague(ctx context.Context, tx *sqlx.Tx, l *league.League) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO leagues (name, description, fee, team_size, num_teams, week_bonus_points, status, is_test, created_by)
		VALUES (:name, :description, :fee, :team_size, :num_teams, :week_bonus_points, :status, :is_test, :created_by)`, l)
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	return err
}

func (s *LeagueStore) GetLeague(ctx context.Context, id int64) (*league.League, error) {
	var l league.League
	err := s.db.GetContext(ctx, &l, "SELECT * FROM leagues WHERE id = ?", id)
	return &l, err
}

func (s *LeagueStore) ListLeagues(ctx context.Context) ([]league.League, error) {
	var leagues []league.League
	err := s.db.SelectContext(ctx, &leagues, "SELECT * FROM leagues ORDER BY created_at DESC")
	return leagues, err
}

func (s *LeagueStore) UpdateLeague(ctx context.Context, tx *sqlx.Tx, l *league.League) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE leagues SET
		name = :name,
		description = :description,
		fee = :fee,
		week_bonus_points = :week_bonus_points,
		is_test = :is_test
		WHERE id = :id`, l)
	return err
}

func (s *LeagueStore) UpdateLeagueStatusTx(ctx context.Context, tx *sqlx.Tx, id int64, status league.Status) error {
	_, err := tx.ExecContext(ctx, "UPDATE leagues SET status = ? WHERE id = ?", status, id)
	return err
}

func (s *LeagueStore) CreateSignup(ctx context.Context, tx *sqlx.Tx, signup *league.Signup) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO signups (league_id, user_id, signup_order, status)
		VALUES (:league_id, :user_id, :signup_order, :status)`, signup)
	if err != nil {
		return err
	}
	signup.ID, err = res.LastInsertId()
	return err
}

func (s *LeagueStore) GetSignups(ctx context.Context, leagueID int64) ([]league.Signup, error) {
	var signups []league.Signup
	err := s.db.SelectContext(ctx, &signups, "SELECT * FROM signups WHERE league_id = ? ORDER BY signup_order ASC", leagueID)
	return signups, err
}

func (s *LeagueStore) GetSignup(ctx context.Context, leagueID int64, userID uuid.UUID) (*league.Signup, error) {
	var signup league.Signup
	err := s.db.GetContext(ctx, &signup, "SELECT * FROM signups WHERE league_id = ? AND user_id = ?", leagueID, userID)
	return &signup, err
}

func (s *LeagueStore) NextSignupOrder(ctx context.Context, leagueID int64) (int, error) {
	var max int
	err := s.db.GetContext(ctx, &max, "SELECT COALESCE(MAX(signup_order), 0) FROM signups WHERE league_id = ?", leagueID)
	return max + 1, err
}

func (s *LeagueStore) UpdateSignupStatusTx(ctx context.Context, tx *sqlx.Tx, signupID int64, status league.SignupStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE signups SET status = ? WHERE id = ?", status, signupID)
	return err
}

func (s *LeagueStore) AppendAdminLog(ctx context.Context, tx *sqlx.Tx, entry *league.AdminLogEntry) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO admin_log (league_id, user_id, action_type, details)
		VALUES (:league_id, :user_id, :action_type, :details)`, entry)
	return err
}

func (s *LeagueStore) GetAdminLog(ctx context.Context, leagueID int64) ([]league.AdminLogEntry, error) {
	var entries []league.AdminLogEntry
	err := s.db.SelectContext(ctx, &entries, "SELECT * FROM admin_log WHERE league_id = ? ORDER BY id ASC", leagueID)
	return entries, err
}
