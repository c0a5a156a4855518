package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avandever/keytracker-sub000/internal/decks"
	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ThiefService covers the curation and steal phases of thief weeks.
// Captains curate T decks, then each team steals from the opposing
// team's curation under a floor/ceiling quota split.
type ThiefService struct {
	db       *sqlx.DB
	thief    *store.ThiefStore
	weeks    *store.WeekStore
	teams    *store.TeamStore
	matchups *store.MatchupStore
	deckDB   *store.DeckStore
	leagues  *store.LeagueStore
	resolver decks.Resolver
	league   *LeagueService
}

func NewThiefService(db *sqlx.DB, thief *store.ThiefStore, weeks *store.WeekStore, teams *store.TeamStore, matchups *store.MatchupStore, deckDB *store.DeckStore, leagues *store.LeagueStore, resolver decks.Resolver, leagueService *LeagueService) *ThiefService {
	return &ThiefService{db: db, thief: thief, weeks: weeks, teams: teams, matchups: matchups, deckDB: deckDB, leagues: leagues, resolver: resolver, league: leagueService}
}

// SubmitCurationDeck sets one of the captain's T curation slots.
func (s *ThiefService) SubmitCurationDeck(ctx context.Context, leagueID, weekID, teamID int64, slotNumber int, deckRef string) (*league.ThiefCurationDeck, error) {
	l, _, err := s.curationWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, err
	}
	if err := s.league.RequireCaptain(ctx, l, teamID); err != nil {
		return nil, err
	}
	if slotNumber < 1 || slotNumber > l.TeamSize {
		return nil, league.Validation(fmt.Sprintf("slot number must be between 1 and %d", l.TeamSize))
	}

	deck, err := s.resolver.Resolve(ctx, deckRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve deck: %w", err)
	}
	if err := s.deckDB.UpsertDeck(ctx, deck); err != nil {
		return nil, err
	}

	existing, err := s.thief.GetCurationDecksForTeam(ctx, weekID, teamID)
	if err != nil {
		return nil, err
	}
	for _, cd := range existing {
		if cd.DeckID == deck.ID && cd.SlotNumber != slotNumber {
			return nil, league.Validation("deck is already curated in another slot")
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := &league.ThiefCurationDeck{WeekID: weekID, TeamID: teamID, SlotNumber: slotNumber, DeckID: deck.ID}
	if err := s.thief.UpsertCurationDeckTx(ctx, tx, row); err != nil {
		return nil, err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "submit_curation_deck", map[string]any{"week": weekID, "team": teamID, "slot": slotNumber, "deck": deck.ID}); err != nil {
		return nil, err
	}
	return row, tx.Commit()
}

// RemoveCurationDeck clears a slot while the week is still in the
// curation or team_paired phase.
func (s *ThiefService) RemoveCurationDeck(ctx context.Context, leagueID, weekID, teamID int64, slotNumber int) error {
	l, _, err := s.curationWeek(ctx, leagueID, weekID)
	if err != nil {
		return err
	}
	if err := s.league.RequireCaptain(ctx, l, teamID); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.thief.DeleteCurationDeckTx(ctx, tx, weekID, teamID, slotNumber); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "remove_curation_deck", map[string]any{"week": weekID, "team": teamID, "slot": slotNumber}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *ThiefService) curationWeek(ctx context.Context, leagueID, weekID int64) (*league.League, *league.Week, error) {
	l, err := s.league.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, nil, err
	}
	week, err := s.weeks.GetWeek(ctx, weekID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, league.NotFound("week")
	}
	if err != nil {
		return nil, nil, err
	}
	if week.Format != league.Thief {
		return nil, nil, league.InvalidState("not a thief week")
	}
	if week.Status != league.WeekCuration && week.Status != league.WeekTeamPaired {
		return nil, nil, league.InvalidState("curation is closed for this week")
	}
	return l, week, nil
}

// SubmitSteals replaces the team's steals with the given curation deck
// ids. Every target must belong to the opposing team, and the count
// must match the quota exactly.
func (s *ThiefService) SubmitSteals(ctx context.Context, leagueID, weekID, teamID int64, curationDeckIDs []int64) error {
	l, err := s.league.GetLeague(ctx, leagueID)
	if err != nil {
		return err
	}
	week, err := s.weeks.GetWeek(ctx, weekID)
	if errors.Is(err, sql.ErrNoRows) {
		return league.NotFound("week")
	}
	if err != nil {
		return err
	}
	if week.Status != league.WeekThief {
		return league.InvalidState("week is not in the steal phase")
	}
	if err := s.league.RequireCaptain(ctx, l, teamID); err != nil {
		return err
	}

	opponentID, err := s.opponentTeam(ctx, week.ID, teamID)
	if err != nil {
		return err
	}
	quota := league.ThiefQuota(l.TeamSize, s.isFloorTeam(week, teamID, opponentID))
	if len(curationDeckIDs) != quota {
		return league.Validation(fmt.Sprintf("team must steal exactly %d decks", quota)).
			WithDetail("quota", quota)
	}

	seen := make(map[int64]bool, len(curationDeckIDs))
	for _, id := range curationDeckIDs {
		if seen[id] {
			return league.Validation("duplicate steal target")
		}
		seen[id] = true
		cd, err := s.thief.GetCurationDeck(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return league.NotFound("curation deck")
		}
		if err != nil {
			return err
		}
		if cd.WeekID != weekID || cd.TeamID != opponentID {
			return league.Validation("steals must target the opposing team's curation decks")
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.thief.DeleteStealsForTeamTx(ctx, tx, weekID, teamID); err != nil {
		return err
	}
	for _, id := range curationDeckIDs {
		steal := &league.ThiefSteal{WeekID: weekID, StealingTeamID: teamID, CurationDeckID: id}
		if err := s.thief.CreateStealTx(ctx, tx, steal); err != nil {
			return err
		}
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "submit_steals", map[string]any{"week": weekID, "team": teamID, "decks": curationDeckIDs}); err != nil {
		return err
	}
	return tx.Commit()
}

// opponentTeam finds the teamID's opponent in this week's pairings.
func (s *ThiefService) opponentTeam(ctx context.Context, weekID, teamID int64) (int64, error) {
	wms, err := s.matchups.GetWeekMatchups(ctx, weekID)
	if err != nil {
		return 0, err
	}
	for _, wm := range wms {
		if wm.Team1 == teamID {
			return wm.Team2, nil
		}
		if wm.Team2 == teamID {
			return wm.Team1, nil
		}
	}
	return 0, league.InvalidState("team has no pairing this week")
}

// isFloorTeam reads the week's floor designation. When the designated
// floor team sits in another matchup, the lower-id team of the pair
// takes the floor so quotas still total T.
func (s *ThiefService) isFloorTeam(week *league.Week, teamID, opponentID int64) bool {
	if week.ThiefFloorTeamID != nil {
		if *week.ThiefFloorTeamID == teamID {
			return true
		}
		if *week.ThiefFloorTeamID == opponentID {
			return false
		}
	}
	return teamID < opponentID
}

// GateSteals fails end_thief while any team's steal count is off quota.
func (s *ThiefService) GateSteals(ctx context.Context, l *league.League, week *league.Week) error {
	teams, err := s.teams.GetTeams(ctx, l.ID)
	if err != nil {
		return err
	}
	steals, err := s.thief.GetSteals(ctx, week.ID)
	if err != nil {
		return err
	}
	counts := make(map[int64]int)
	for _, st := range steals {
		counts[st.StealingTeamID]++
	}
	for _, t := range teams {
		opponentID, err := s.opponentTeam(ctx, week.ID, t.ID)
		if err != nil {
			return err
		}
		quota := league.ThiefQuota(l.TeamSize, s.isFloorTeam(week, t.ID, opponentID))
		if counts[t.ID] != quota {
			return league.InvalidState("teams have not finished stealing").
				WithDetail("team", t.ID).WithDetail("expected", quota).WithDetail("submitted", counts[t.ID])
		}
	}
	return nil
}

// GateCuration fails advance_to_thief until every team curated T decks.
func (s *ThiefService) GateCuration(ctx context.Context, l *league.League, week *league.Week) error {
	teams, err := s.teams.GetTeams(ctx, l.ID)
	if err != nil {
		return err
	}
	curated, err := s.thief.GetCurationDecks(ctx, week.ID)
	if err != nil {
		return err
	}
	counts := make(map[int64]int)
	for _, cd := range curated {
		counts[cd.TeamID]++
	}
	for _, t := range teams {
		if counts[t.ID] != l.TeamSize {
			return league.InvalidState("teams have not finished curating").
				WithDetail("team", t.ID).WithDetail("expected", l.TeamSize).WithDetail("submitted", counts[t.ID])
		}
	}
	return nil
}

// PoolForTeam resolves a team's post-steal deck pool: its own unstolen
// curation decks plus the decks it stole.
func (s *ThiefService) PoolForTeam(ctx context.Context, weekID, teamID int64) ([]int64, error) {
	curated, err := s.thief.GetCurationDecks(ctx, weekID)
	if err != nil {
		return nil, err
	}
	steals, err := s.thief.GetSteals(ctx, weekID)
	if err != nil {
		return nil, err
	}

	stolen := make(map[int64]int64, len(steals))
	for _, st := range steals {
		stolen[st.CurationDeckID] = st.StealingTeamID
	}

	var pool []int64
	for _, cd := range curated {
		thiefTeam, taken := stolen[cd.ID]
		switch {
		case cd.TeamID == teamID && !taken:
			pool = append(pool, cd.DeckID)
		case taken && thiefTeam == teamID:
			pool = append(pool, cd.DeckID)
		}
	}
	return pool, nil
}

// PoolForUser maps a player to their team's thief pool.
func (s *ThiefService) PoolForUser(ctx context.Context, leagueID, weekID int64, userID uuid.UUID) ([]int64, error) {
	member, err := s.teams.GetMemberTeam(ctx, leagueID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, league.Forbidden("not a member of any team")
	}
	if err != nil {
		return nil, err
	}
	return s.PoolForTeam(ctx, weekID, member.TeamID)
}
