package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type LeagueService struct {
	db      *sqlx.DB
	leagues *store.LeagueStore
	teams   *store.TeamStore
	weeks   *store.WeekStore
}

func NewLeagueService(db *sqlx.DB, leagues *store.LeagueStore, teams *store.TeamStore, weeks *store.WeekStore) *LeagueService {
	return &LeagueService{db: db, leagues: leagues, teams: teams, weeks: weeks}
}

type CreateLeagueInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Fee             int    `json:"fee"`
	TeamSize        int    `json:"team_size"`
	NumTeams        int    `json:"num_teams"`
	WeekBonusPoints int    `json:"week_bonus_points"`
	IsTest          bool   `json:"is_test"`
}

func (s *LeagueService) CreateLeague(ctx context.Context, input CreateLeagueInput) (*league.League, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, league.Forbidden("login required")
	}
	if input.Name == "" {
		return nil, league.Validation("league name is required")
	}
	if input.TeamSize < 2 {
		return nil, league.Validation("team_size must be at least 2")
	}
	if input.NumTeams < 2 {
		return nil, league.Validation("num_teams must be at least 2")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	l := &league.League{
		Name:            input.Name,
		Description:     input.Description,
		Fee:             input.Fee,
		TeamSize:        input.TeamSize,
		NumTeams:        input.NumTeams,
		WeekBonusPoints: input.WeekBonusPoints,
		Status:          league.StatusSetup,
		IsTest:          input.IsTest,
		CreatedBy:       userID,
	}
	if err := s.leagues.CreateLeague(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}
	if err := s.logAction(ctx, tx, l.ID, userID, "create_league", map[string]any{"name": l.Name}); err != nil {
		return nil, err
	}
	return l, tx.Commit()
}

type UpdateLeagueInput struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Fee             *int    `json:"fee"`
	WeekBonusPoints *int    `json:"week_bonus_points"`
	IsTest          *bool   `json:"is_test"`
}

func (s *LeagueService) UpdateLeague(ctx context.Context, leagueID int64, input UpdateLeagueInput) (*league.League, error) {
	l, err := s.RequireLeagueAdmin(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		l.Name = *input.Name
	}
	if input.Description != nil {
		l.Description = *input.Description
	}
	if input.Fee != nil {
		l.Fee = *input.Fee
	}
	if input.WeekBonusPoints != nil {
		l.WeekBonusPoints = *input.WeekBonusPoints
	}
	if input.IsTest != nil {
		l.IsTest = *input.IsTest
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.leagues.UpdateLeague(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("failed to update league: %w", err)
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := s.logAction(ctx, tx, l.ID, actor, "update_league", nil); err != nil {
		return nil, err
	}
	return l, tx.Commit()
}

// AdvanceLeagueStatus moves the league to playoffs or completed.
func (s *LeagueService) AdvanceLeagueStatus(ctx context.Context, leagueID int64, target league.Status) (*league.League, error) {
	l, err := s.RequireLeagueAdmin(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	legal := map[league.Status]league.Status{
		league.StatusActive:   league.StatusPlayoffs,
		league.StatusPlayoffs: league.StatusCompleted,
	}
	if legal[l.Status] != target {
		return nil, league.InvalidState(fmt.Sprintf("cannot move league from %s to %s", l.Status, target))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.leagues.UpdateLeagueStatusTx(ctx, tx, l.ID, target); err != nil {
		return nil, err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := s.logAction(ctx, tx, l.ID, actor, "advance_league_status", map[string]any{"to": target}); err != nil {
		return nil, err
	}
	l.Status = target
	return l, tx.Commit()
}

func (s *LeagueService) ListLeagues(ctx context.Context) ([]league.League, error) {
	return s.leagues.ListLeagues(ctx)
}

func (s *LeagueService) GetLeague(ctx context.Context, leagueID int64) (*league.League, error) {
	l, err := s.leagues.GetLeague(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, league.NotFound("league")
	}
	return l, err
}

// IsLeagueAdmin reports whether the context user may administer l.
func (s *LeagueService) IsLeagueAdmin(ctx context.Context, l *league.League) bool {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return false
	}
	if userID == l.CreatedBy {
		return true
	}
	if u := middleware.GetAuthenticatedUser(ctx); u != nil && u.IsSiteAdmin {
		return true
	}
	return false
}

// RequireLeagueAdmin loads the league and rejects non-admin actors.
func (s *LeagueService) RequireLeagueAdmin(ctx context.Context, leagueID int64) (*league.League, error) {
	l, err := s.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if !s.IsLeagueAdmin(ctx, l) {
		return nil, league.Forbidden("league admin required")
	}
	return l, nil
}

// RequireCaptain loads the acting user's membership and checks the
// captain flag. League admins pass for any team.
func (s *LeagueService) RequireCaptain(ctx context.Context, l *league.League, teamID int64) error {
	if s.IsLeagueAdmin(ctx, l) {
		return nil
	}
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return league.Forbidden("login required")
	}
	member, err := s.teams.GetMemberTeam(ctx, l.ID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return league.Forbidden("captain required")
	}
	if err != nil {
		return err
	}
	if member.TeamID != teamID || !member.IsCaptain {
		return league.Forbidden("captain required")
	}
	return nil
}

func (s *LeagueService) Signup(ctx context.Context, leagueID int64) (*league.Signup, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, league.Forbidden("login required")
	}
	l, err := s.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if l.Status != league.StatusSetup {
		return nil, league.InvalidState("signups are closed")
	}

	if existing, err := s.leagues.GetSignup(ctx, leagueID, userID); err == nil {
		if existing.Status != league.SignupWithdrawn {
			return nil, league.Validation("already signed up")
		}
	}

	order, err := s.leagues.NextSignupOrder(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	signup := &league.Signup{
		LeagueID:    leagueID,
		UserID:      userID,
		SignupOrder: order,
		Status:      league.SignupPending,
	}
	if err := s.leagues.CreateSignup(ctx, tx, signup); err != nil {
		return nil, fmt.Errorf("failed to create signup: %w", err)
	}
	if err := s.logAction(ctx, tx, leagueID, userID, "signup", nil); err != nil {
		return nil, err
	}
	return signup, tx.Commit()
}

func (s *LeagueService) Withdraw(ctx context.Context, leagueID int64) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return league.Forbidden("login required")
	}
	signup, err := s.leagues.GetSignup(ctx, leagueID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return league.NotFound("signup")
	}
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.leagues.UpdateSignupStatusTx(ctx, tx, signup.ID, league.SignupWithdrawn); err != nil {
		return err
	}
	if err := s.logAction(ctx, tx, leagueID, userID, "withdraw", nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LeagueService) SetSignupStatus(ctx context.Context, leagueID, signupID int64, status league.SignupStatus) error {
	l, err := s.RequireLeagueAdmin(ctx, leagueID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.leagues.UpdateSignupStatusTx(ctx, tx, signupID, status); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := s.logAction(ctx, tx, l.ID, actor, "set_signup_status", map[string]any{"signup": signupID, "status": status}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LeagueService) CreateTeam(ctx context.Context, leagueID int64, name string, captainID uuid.UUID) (*league.Team, error) {
	l, err := s.RequireLeagueAdmin(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, league.Validation("team name is required")
	}

	teams, err := s.teams.GetTeams(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if len(teams) >= l.NumTeams {
		return nil, league.Validation("league already has the configured number of teams")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	team := &league.Team{LeagueID: leagueID, Name: name}
	if err := s.teams.CreateTeam(ctx, tx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	if captainID != uuid.Nil {
		member := &league.TeamMember{TeamID: team.ID, UserID: captainID, IsCaptain: true}
		if err := s.teams.AddMember(ctx, tx, member); err != nil {
			return nil, fmt.Errorf("failed to add captain: %w", err)
		}
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := s.logAction(ctx, tx, leagueID, actor, "create_team", map[string]any{"team": team.Name}); err != nil {
		return nil, err
	}
	return team, tx.Commit()
}

func (s *LeagueService) RenameTeam(ctx context.Context, leagueID, teamID int64, name string) error {
	l, err := s.GetLeague(ctx, leagueID)
	if err != nil {
		return err
	}
	if err := s.RequireCaptain(ctx, l, teamID); err != nil {
		return err
	}
	if name == "" {
		return league.Validation("team name is required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.teams.UpdateTeamName(ctx, tx, teamID, name); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := s.logAction(ctx, tx, leagueID, actor, "rename_team", map[string]any{"team": teamID, "name": name}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LeagueService) DeleteTeam(ctx context.Context, leagueID, teamID int64) error {
	l, err := s.RequireLeagueAdmin(ctx, leagueID)
	if err != nil {
		return err
	}
	if l.Status != league.StatusSetup {
		return league.InvalidState("teams can only be deleted during setup")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.teams.DeleteTeam(ctx, tx, teamID); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := s.logAction(ctx, tx, leagueID, actor, "delete_team", map[string]any{"team": teamID}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LeagueService) AssignCaptain(ctx context.Context, leagueID, teamID int64, userID uuid.UUID) error {
	if _, err := s.RequireLeagueAdmin(ctx, leagueID); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.teams.SetCaptainTx(ctx, tx, teamID, userID); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := s.logAction(ctx, tx, leagueID, actor, "assign_captain", map[string]any{"team": teamID, "user": userID}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LeagueService) SetMemberPaid(ctx context.Context, leagueID, teamID int64, userID uuid.UUID, paid bool) error {
	if _, err := s.RequireLeagueAdmin(ctx, leagueID); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.teams.SetPaidTx(ctx, tx, teamID, userID, paid); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := s.logAction(ctx, tx, leagueID, actor, "set_member_paid", map[string]any{"team": teamID, "user": userID, "paid": paid}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LeagueService) MoveMember(ctx context.Context, leagueID, memberID, newTeamID int64) error {
	if _, err := s.RequireLeagueAdmin(ctx, leagueID); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.teams.MoveMemberTx(ctx, tx, memberID, newTeamID); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := s.logAction(ctx, tx, leagueID, actor, "move_member", map[string]any{"member": memberID, "team": newTeamID}); err != nil {
		return err
	}
	return tx.Commit()
}

// DesignateFeature records a team's feature player for a week. Only
// meaningful when team_size is even; it is the tiebreak seat.
func (s *LeagueService) DesignateFeature(ctx context.Context, leagueID, weekID, teamID int64, userID uuid.UUID) error {
	l, err := s.GetLeague(ctx, leagueID)
	if err != nil {
		return err
	}
	if err := s.RequireCaptain(ctx, l, teamID); err != nil {
		return err
	}
	if l.TeamSize%2 != 0 {
		return league.Validation("feature designations only apply to even team sizes")
	}
	week, err := s.weeks.GetWeek(ctx, weekID)
	if err != nil {
		return err
	}
	if !week.Editable() {
		return league.InvalidState("week is no longer editable")
	}
	member, err := s.teams.GetMemberTeam(ctx, leagueID, userID)
	if err != nil || member.TeamID != teamID {
		return league.Validation("designated player is not on the team")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fd := &league.FeatureDesignation{WeekID: weekID, TeamID: teamID, UserID: userID}
	if err := s.weeks.UpsertFeatureDesignationTx(ctx, tx, fd); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := s.logAction(ctx, tx, leagueID, actor, "designate_feature", map[string]any{"week": weekID, "team": teamID, "user": userID}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LeagueService) GetAdminLog(ctx context.Context, leagueID int64) ([]league.AdminLogEntry, error) {
	if _, err := s.RequireLeagueAdmin(ctx, leagueID); err != nil {
		return nil, err
	}
	return s.leagues.GetAdminLog(ctx, leagueID)
}

func (s *LeagueService) logAction(ctx context.Context, tx *sqlx.Tx, leagueID int64, actor uuid.UUID, actionType string, details map[string]any) error {
	return auditLog(ctx, tx, s.leagues, leagueID, actor, actionType, details)
}
