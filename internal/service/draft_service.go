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

type DraftService struct {
	db      *sqlx.DB
	drafts  *store.DraftStore
	leagues *store.LeagueStore
	teams   *store.TeamStore
	league  *LeagueService
}

func NewDraftService(db *sqlx.DB, drafts *store.DraftStore, leagues *store.LeagueStore, teams *store.TeamStore, leagueService *LeagueService) *DraftService {
	return &DraftService{db: db, drafts: drafts, leagues: leagues, teams: teams, league: leagueService}
}

type DraftView struct {
	Draft      *league.Draft      `json:"draft"`
	PickOrder  []int64            `json:"pick_order"`
	Picks      []league.DraftPick `json:"picks"`
	NextTeamID *int64             `json:"next_team_id,omitempty"`
}

// StartDraft opens the snake draft: captains fill round 0 implicitly,
// then teams pick over team_size-1 snaked rounds. Confirmed signups
// beyond draft capacity are waitlisted.
func (s *DraftService) StartDraft(ctx context.Context, leagueID int64) (*DraftView, error) {
	l, err := s.league.RequireLeagueAdmin(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if l.Status != league.StatusSetup {
		return nil, league.InvalidState("draft can only start during setup")
	}

	teams, err := s.teams.GetTeams(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if len(teams) != l.NumTeams {
		return nil, league.Validation(fmt.Sprintf("league needs %d teams before drafting", l.NumTeams))
	}
	for _, t := range teams {
		members, err := s.teams.GetMembers(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		hasCaptain := false
		for _, m := range members {
			if m.IsCaptain {
				hasCaptain = true
			}
		}
		if !hasCaptain {
			return nil, league.Validation(fmt.Sprintf("team %q has no captain", t.Name))
		}
	}

	available, err := s.availablePlayers(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	capacity := l.NumTeams * (l.TeamSize - 1)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Surplus confirmed signups past draft capacity go to the waitlist
	// in signup order.
	for i, signup := range available {
		if i >= capacity {
			if err := s.leagues.UpdateSignupStatusTx(ctx, tx, signup.ID, league.SignupWaitlisted); err != nil {
				return nil, err
			}
		}
	}

	draft := &league.Draft{LeagueID: leagueID}
	if err := s.drafts.CreateDraftTx(ctx, tx, draft); err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}
	if err := s.leagues.UpdateLeagueStatusTx(ctx, tx, leagueID, league.StatusDrafting); err != nil {
		return nil, err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "start_draft", nil); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetDraftView(ctx, leagueID)
}

// MakePick records the captain's pick for the team whose turn it is
// and places the player on that team. Completing the last roster slot
// ends the draft and activates the league.
func (s *DraftService) MakePick(ctx context.Context, leagueID int64, pickedUserID uuid.UUID) (*DraftView, error) {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, league.Forbidden("login required")
	}
	l, err := s.league.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if l.Status != league.StatusDrafting {
		return nil, league.InvalidState("no draft in progress")
	}
	draft, err := s.drafts.GetDraft(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, league.NotFound("draft")
	}
	if err != nil {
		return nil, err
	}
	if draft.IsComplete {
		return nil, league.InvalidState("draft is complete")
	}

	teams, err := s.teams.GetTeams(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	teamIDs := make([]int64, len(teams))
	for i, t := range teams {
		teamIDs[i] = t.ID
	}
	order := league.SnakeOrder(teamIDs, l.TeamSize-1)

	picks, err := s.drafts.GetPicks(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	if len(picks) >= len(order) {
		return nil, league.InvalidState("draft has no picks remaining")
	}
	onClockTeam := order[len(picks)]

	if !s.league.IsLeagueAdmin(ctx, l) {
		member, err := s.teams.GetMemberTeam(ctx, leagueID, actor)
		if err != nil || member.TeamID != onClockTeam || !member.IsCaptain {
			return nil, league.Forbidden("it is not your pick")
		}
	}

	available, err := s.availablePlayers(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	isAvailable := false
	for _, signup := range available {
		if signup.UserID == pickedUserID {
			isAvailable = true
			break
		}
	}
	if !isAvailable {
		return nil, league.Validation("player is not available to draft")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	pick := &league.DraftPick{
		DraftID:      draft.ID,
		Round:        len(picks)/len(teams) + 1,
		PickIndex:    len(picks),
		TeamID:       onClockTeam,
		PickedUserID: pickedUserID,
	}
	if err := s.drafts.AppendPickTx(ctx, tx, pick); err != nil {
		return nil, fmt.Errorf("failed to append pick: %w", err)
	}
	member := &league.TeamMember{TeamID: onClockTeam, UserID: pickedUserID}
	if err := s.teams.AddMember(ctx, tx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if len(picks)+1 == len(order) {
		if err := s.drafts.CompleteDraftTx(ctx, tx, draft.ID); err != nil {
			return nil, err
		}
		if err := s.leagues.UpdateLeagueStatusTx(ctx, tx, leagueID, league.StatusActive); err != nil {
			return nil, err
		}
	}
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "make_pick", map[string]any{"user": pickedUserID, "team": onClockTeam}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetDraftView(ctx, leagueID)
}

func (s *DraftService) GetDraftView(ctx context.Context, leagueID int64) (*DraftView, error) {
	l, err := s.league.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	draft, err := s.drafts.GetDraft(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, league.NotFound("draft")
	}
	if err != nil {
		return nil, err
	}
	teams, err := s.teams.GetTeams(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	teamIDs := make([]int64, len(teams))
	for i, t := range teams {
		teamIDs[i] = t.ID
	}
	order := league.SnakeOrder(teamIDs, l.TeamSize-1)
	picks, err := s.drafts.GetPicks(ctx, draft.ID)
	if err != nil {
		return nil, err
	}

	view := &DraftView{Draft: draft, PickOrder: order, Picks: picks}
	if !draft.IsComplete && len(picks) < len(order) {
		next := order[len(picks)]
		view.NextTeamID = &next
	}
	return view, nil
}

// availablePlayers lists confirmed signups not yet on any team, in
// signup order.
func (s *DraftService) availablePlayers(ctx context.Context, leagueID int64) ([]league.Signup, error) {
	signups, err := s.leagues.GetSignups(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	members, err := s.teams.GetMembersByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	onTeam := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		onTeam[m.UserID] = true
	}

	var available []league.Signup
	for _, signup := range signups {
		if signup.Status == league.SignupConfirmed && !onTeam[signup.UserID] {
			available = append(available, signup)
		}
	}
	return available, nil
}
