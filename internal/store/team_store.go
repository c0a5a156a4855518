package store

import (
	"context"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TeamStore struct {
	db *sqlx.DB
}

func NewTeamStore(db *sqlx.DB) *TeamStore {
	return &TeamStore{db: db}
}

func (s *TeamStore) CreateTeam(ctx context.Context, tx *sqlx.Tx, team *league.Team) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO teams (league_id, name) VALUES (:league_id, :name)`, team)
	if err != nil {
		return err
	}
	team.ID, err = res.LastInsertId()
	return err
}

func (s *TeamStore) GetTeam(ctx context.Context, id int64) (*league.Team, error) {
	var team league.Team
	err := s.db.GetContext(ctx, &team, "SELECT * FROM teams WHERE id = ?", id)
	return &team, err
}

// GetTeams returns teams in insertion order, which is also the draft
// captain order.
func (s *TeamStore) GetTeams(ctx context.Context, leagueID int64) ([]league.Team, error) {
	var teams []league.Team
	err := s.db.SelectContext(ctx, &teams, "SELECT * FROM teams WHERE league_id = ? ORDER BY id ASC", leagueID)
	return teams, err
}

func (s *TeamStore) UpdateTeamName(ctx context.Context, tx *sqlx.Tx, teamID int64, name string) error {
	_, err := tx.ExecContext(ctx, "UPDATE teams SET name = ? WHERE id = ?", name, teamID)
	return err
}

func (s *TeamStore) DeleteTeam(ctx context.Context, tx *sqlx.Tx, teamID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM teams WHERE id = ?", teamID)
	return err
}

func (s *TeamStore) AddMember(ctx context.Context, tx *sqlx.Tx, member *league.TeamMember) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO team_members (team_id, user_id, is_captain, has_paid)
		VALUES (:team_id, :user_id, :is_captain, :has_paid)`, member)
	if err != nil {
		return err
	}
	member.ID, err = res.LastInsertId()
	return err
}

func (s *TeamStore) GetMembers(ctx context.Context, teamID int64) ([]league.TeamMember, error) {
	var members []league.TeamMember
	err := s.db.SelectContext(ctx, &members, "SELECT * FROM team_members WHERE team_id = ? ORDER BY id ASC", teamID)
	return members, err
}

func (s *TeamStore) GetMembersByLeague(ctx context.Context, leagueID int64) ([]league.TeamMember, error) {
	var members []league.TeamMember
	err := s.db.SelectContext(ctx, &members, `SELECT tm.* FROM team_members tm
		JOIN teams t ON t.id = tm.team_id
		WHERE t.league_id = ? ORDER BY tm.team_id ASC, tm.id ASC`, leagueID)
	return members, err
}

// GetMemberTeam finds the team a user belongs to within one league.
func (s *TeamStore) GetMemberTeam(ctx context.Context, leagueID int64, userID uuid.UUID) (*league.TeamMember, error) {
	var member league.TeamMember
	err := s.db.GetContext(ctx, &member, `SELECT tm.* FROM team_members tm
		JOIN teams t ON t.id = tm.team_id
		WHERE t.league_id = ? AND tm.user_id = ?`, leagueID, userID)
	return &member, err
}

// SetCaptainTx demotes any existing captain and promotes the given
// member, keeping at most one captain per team.
func (s *TeamStore) SetCaptainTx(ctx context.Context, tx *sqlx.Tx, teamID int64, userID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, "UPDATE team_members SET is_captain = 0 WHERE team_id = ?", teamID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "UPDATE team_members SET is_captain = 1 WHERE team_id = ? AND user_id = ?", teamID, userID)
	return err
}

func (s *TeamStore) SetPaidTx(ctx context.Context, tx *sqlx.Tx, teamID int64, userID uuid.UUID, paid bool) error {
	_, err := tx.ExecContext(ctx, "UPDATE team_members SET has_paid = ? WHERE team_id = ? AND user_id = ?", paid, teamID, userID)
	return err
}

func (s *TeamStore) MoveMemberTx(ctx context.Context, tx *sqlx.Tx, memberID, newTeamID int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE team_members SET team_id = ?, is_captain = 0 WHERE id = ?", newTeamID, memberID)
	return err
}

func (s *TeamStore) RemoveMemberTx(ctx context.Context, tx *sqlx.Tx, memberID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM team_members WHERE id = ?", memberID)
	return err
}
