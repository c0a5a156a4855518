package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// WeekService owns the per-week state machine. Every transition is an
// admin command; illegal transitions fail with invalid_state.
type WeekService struct {
	db       *sqlx.DB
	weeks    *store.WeekStore
	teams    *store.TeamStore
	leagues  *store.LeagueStore
	matchups *store.MatchupStore
	league   *LeagueService
	matchup  *MatchupService
	thief    *ThiefService
}

func NewWeekService(db *sqlx.DB, weeks *store.WeekStore, teams *store.TeamStore, leagues *store.LeagueStore, matchups *store.MatchupStore, leagueService *LeagueService, matchupService *MatchupService, thiefService *ThiefService) *WeekService {
	return &WeekService{db: db, weeks: weeks, teams: teams, leagues: leagues, matchups: matchups, league: leagueService, matchup: matchupService, thief: thiefService}
}

// resolveBestOf applies format-pinned series lengths, falling back to
// the requested value (or best-of-three when unset).
func resolveBestOf(f league.Format, requested int) int {
	if fixed := f.DefaultBestOf(); fixed != 0 {
		return fixed
	}
	if requested == 0 {
		return 3
	}
	return requested
}

type WeekInput struct {
	WeekNumber              int           `json:"week_number"`
	Name                    *string       `json:"name,omitempty"`
	Format                  league.Format `json:"format"`
	BestOfN                 int           `json:"best_of_n"`
	MaxSAS                  *int          `json:"max_sas,omitempty"`
	CombinedMaxSAS          *int          `json:"combined_max_sas,omitempty"`
	AllowedSets             []string      `json:"allowed_sets,omitempty"`
	SetDiversity            bool          `json:"set_diversity"`
	HouseDiversity          bool          `json:"house_diversity"`
	NoKeycheat              bool          `json:"no_keycheat"`
	DecksPerPlayer          *int          `json:"decks_per_player,omitempty"`
	RestrictedListVersionID *int64        `json:"restricted_list_version_id,omitempty"`
}

// CreateWeek adds a new week in setup. Best-of defaults follow the
// format when the caller leaves it zero; triad and alliance formats
// pin their values regardless.
func (s *WeekService) CreateWeek(ctx context.Context, leagueID int64, input WeekInput) (*league.Week, error) {
	l, err := s.league.RequireLeagueAdmin(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if !input.Format.Valid() {
		return nil, league.Validation("unknown week format")
	}
	bestOf := resolveBestOf(input.Format, input.BestOfN)
	if bestOf != 1 && bestOf != 3 && bestOf != 5 {
		return nil, league.Validation("best_of_n must be 1, 3, or 5")
	}
	if input.Format.IsSealed() && (input.DecksPerPlayer == nil || *input.DecksPerPlayer < 1) {
		return nil, league.Validation("sealed weeks need decks_per_player of at least 1")
	}

	week := &league.Week{
		LeagueID:                l.ID,
		WeekNumber:              input.WeekNumber,
		Name:                    input.Name,
		Format:                  input.Format,
		BestOfN:                 bestOf,
		MaxSAS:                  input.MaxSAS,
		CombinedMaxSAS:          input.CombinedMaxSAS,
		SetDiversity:            input.SetDiversity,
		HouseDiversity:          input.HouseDiversity,
		NoKeycheat:              input.NoKeycheat,
		DecksPerPlayer:          input.DecksPerPlayer,
		RestrictedListVersionID: input.RestrictedListVersionID,
		Status:                  league.WeekSetup,
	}
	week.SetAllowedSets(input.AllowedSets)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.weeks.CreateWeek(ctx, tx, week); err != nil {
		return nil, err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "create_week", map[string]any{"week": week.ID, "format": week.Format}); err != nil {
		return nil, err
	}
	return week, tx.Commit()
}

// UpdateWeek edits constraints and naming. Format changes are only
// allowed while the week is still in setup.
func (s *WeekService) UpdateWeek(ctx context.Context, leagueID, weekID int64, input WeekInput) (*league.Week, error) {
	if _, err := s.league.RequireLeagueAdmin(ctx, leagueID); err != nil {
		return nil, err
	}
	week, err := s.getWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, err
	}
	if !week.Editable() {
		return nil, league.InvalidState("week is no longer editable")
	}
	if input.Format != week.Format && week.Status != league.WeekSetup {
		return nil, league.InvalidState("format can only change during setup")
	}
	if !input.Format.Valid() {
		return nil, league.Validation("unknown week format")
	}

	week.Name = input.Name
	week.Format = input.Format
	week.BestOfN = resolveBestOf(input.Format, input.BestOfN)
	week.MaxSAS = input.MaxSAS
	week.CombinedMaxSAS = input.CombinedMaxSAS
	week.SetDiversity = input.SetDiversity
	week.HouseDiversity = input.HouseDiversity
	week.NoKeycheat = input.NoKeycheat
	week.DecksPerPlayer = input.DecksPerPlayer
	week.RestrictedListVersionID = input.RestrictedListVersionID
	week.SetAllowedSets(input.AllowedSets)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.weeks.UpdateWeek(ctx, tx, week); err != nil {
		return nil, err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "update_week", map[string]any{"week": week.ID}); err != nil {
		return nil, err
	}
	return week, tx.Commit()
}

// DeleteWeek removes a week that never left setup.
func (s *WeekService) DeleteWeek(ctx context.Context, leagueID, weekID int64) error {
	if _, err := s.league.RequireLeagueAdmin(ctx, leagueID); err != nil {
		return err
	}
	week, err := s.getWeek(ctx, leagueID, weekID)
	if err != nil {
		return err
	}
	if week.Status != league.WeekSetup {
		return league.InvalidState("only weeks in setup can be deleted")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.weeks.DeleteWeek(ctx, tx, weekID); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "delete_week", map[string]any{"week": weekID}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *WeekService) GetWeek(ctx context.Context, leagueID, weekID int64) (*league.Week, error) {
	return s.getWeek(ctx, leagueID, weekID)
}

func (s *WeekService) GetWeeks(ctx context.Context, leagueID int64) ([]league.Week, error) {
	return s.weeks.GetWeeks(ctx, leagueID)
}

func (s *WeekService) getWeek(ctx context.Context, leagueID, weekID int64) (*league.Week, error) {
	week, err := s.weeks.GetWeek(ctx, weekID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, league.NotFound("week")
	}
	if err != nil {
		return nil, err
	}
	if week.LeagueID != leagueID {
		return nil, league.NotFound("week")
	}
	return week, nil
}

// OpenDeckSelection leaves setup. Thief weeks go to curation first;
// everything else opens deck selection directly.
func (s *WeekService) OpenDeckSelection(ctx context.Context, leagueID, weekID int64) (*league.Week, error) {
	_, week, err := s.adminWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, err
	}
	if week.Status != league.WeekSetup {
		return nil, league.InvalidState("week has already left setup")
	}
	next := league.WeekDeckSelection
	if week.Format == league.Thief {
		next = league.WeekCuration
	}
	return s.transition(ctx, leagueID, week, next, "open_deck_selection", nil)
}

// GenerateTeamPairings runs the round-robin scheduler and moves the
// week to team_paired.
func (s *WeekService) GenerateTeamPairings(ctx context.Context, leagueID, weekID int64) (*league.Week, error) {
	l, week, err := s.adminWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, err
	}
	from := league.WeekDeckSelection
	if week.Format == league.Thief {
		from = league.WeekCuration
	}
	if week.Status != from {
		return nil, league.InvalidState("week is not ready for team pairings")
	}
	pairs, err := s.matchup.PlanTeamPairings(ctx, l, week)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, leagueID, week, league.WeekTeamPaired, "generate_team_pairings", func(tx *sqlx.Tx) error {
		return s.matchup.WriteTeamPairingsTx(ctx, tx, pairs)
	})
}

// AdvanceToThief closes curation. Every team must have curated a full
// slate; the floor team is taken from the request or rotated by how
// many thief weeks the league has already run.
func (s *WeekService) AdvanceToThief(ctx context.Context, leagueID, weekID int64, floorTeamID *int64) (*league.Week, error) {
	l, week, err := s.adminWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, err
	}
	if week.Format != league.Thief {
		return nil, league.InvalidState("not a thief week")
	}
	if week.Status != league.WeekTeamPaired {
		return nil, league.InvalidState("teams must be paired before stealing")
	}
	if err := s.thief.GateCuration(ctx, l, week); err != nil {
		return nil, err
	}

	floor := floorTeamID
	if floor == nil {
		floor, err = s.rotatedFloorTeam(ctx, l, week)
		if err != nil {
			return nil, err
		}
	}

	return s.transition(ctx, leagueID, week, league.WeekThief, "advance_to_thief", func(tx *sqlx.Tx) error {
		week.ThiefFloorTeamID = floor
		week.Status = league.WeekThief
		return s.weeks.UpdateWeek(ctx, tx, week)
	})
}

// rotatedFloorTeam alternates the floor across a league's thief weeks
// so no team is stuck with the smaller quota every time.
func (s *WeekService) rotatedFloorTeam(ctx context.Context, l *league.League, week *league.Week) (*int64, error) {
	weeks, err := s.weeks.GetWeeks(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	prior := 0
	for _, w := range weeks {
		if w.Format == league.Thief && w.WeekNumber < week.WeekNumber && w.ThiefFloorTeamID != nil {
			prior++
		}
	}
	teams, err := s.teams.GetTeams(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, league.InvalidState("league has no teams")
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	id := teams[prior%len(teams)].ID
	return &id, nil
}

// EndThief closes the steal phase and opens deck selection over the
// post-steal pools. Every team must have stolen its exact quota.
func (s *WeekService) EndThief(ctx context.Context, leagueID, weekID int64) (*league.Week, error) {
	l, week, err := s.adminWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, err
	}
	if week.Status != league.WeekThief {
		return nil, league.InvalidState("week is not in the steal phase")
	}
	if err := s.thief.GateSteals(ctx, l, week); err != nil {
		return nil, err
	}
	return s.transition(ctx, leagueID, week, league.WeekDeckSelection, "end_thief", nil)
}

// GeneratePlayerMatchups seats players and moves the week to pairing.
// Fails with incomplete_decks unless forced, and with
// missing_feature_designations when an even team size lacks them.
func (s *WeekService) GeneratePlayerMatchups(ctx context.Context, leagueID, weekID int64, allowIncomplete bool) (*league.Week, error) {
	l, week, err := s.adminWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, err
	}
	from := league.WeekTeamPaired
	if week.Format == league.Thief {
		from = league.WeekDeckSelection
	}
	if week.Status != from {
		return nil, league.InvalidState("week is not ready for player matchups")
	}
	if !allowIncomplete {
		if err := s.matchup.GateIncompleteDecks(ctx, l, week); err != nil {
			return nil, err
		}
	}
	if err := s.matchup.GateFeatureDesignations(ctx, l, week); err != nil {
		return nil, err
	}
	rows, err := s.matchup.PlanPlayerMatchups(ctx, l, week)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, leagueID, week, league.WeekPairing, "generate_player_matchups", func(tx *sqlx.Tx) error {
		return s.matchup.WritePlayerMatchupsTx(ctx, tx, rows)
	})
}

// Publish freezes matchups and opens game reporting. Publishing an
// already-published week is a no-op.
func (s *WeekService) Publish(ctx context.Context, leagueID, weekID int64) (*league.Week, error) {
	_, week, err := s.adminWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, err
	}
	if week.Status == league.WeekPublished {
		return week, nil
	}
	if week.Status != league.WeekPairing {
		return nil, league.InvalidState("player matchups must be generated before publishing")
	}
	return s.transition(ctx, leagueID, week, league.WeekPublished, "publish_week", nil)
}

// CheckCompletion marks the week completed once every player matchup
// is decided.
func (s *WeekService) CheckCompletion(ctx context.Context, leagueID, weekID int64) (*league.Week, error) {
	_, week, err := s.adminWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, err
	}
	if week.Status != league.WeekPublished {
		return nil, league.InvalidState("week is not published")
	}

	pms, err := s.matchups.GetPlayerMatchupsForWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	games, err := s.matchups.GetGamesForWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	byMatchup := make(map[int64][]league.Game)
	for _, g := range games {
		byMatchup[g.PlayerMatchupID] = append(byMatchup[g.PlayerMatchupID], g)
	}
	for i := range pms {
		if league.DecidedWinner(&pms[i], byMatchup[pms[i].ID], week.WinsNeeded()) == uuid.Nil {
			return nil, league.InvalidState("not every matchup is decided").
				WithDetail("matchup", pms[i].ID)
		}
	}
	return s.transition(ctx, leagueID, week, league.WeekCompleted, "complete_week", nil)
}

func (s *WeekService) adminWeek(ctx context.Context, leagueID, weekID int64) (*league.League, *league.Week, error) {
	l, err := s.league.RequireLeagueAdmin(ctx, leagueID)
	if err != nil {
		return nil, nil, err
	}
	week, err := s.getWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, nil, err
	}
	return l, week, nil
}

// transition commits a status change plus the optional side effects in
// one transaction, logging the action.
func (s *WeekService) transition(ctx context.Context, leagueID int64, week *league.Week, to league.WeekStatus, action string, sideEffect func(tx *sqlx.Tx) error) (*league.Week, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if sideEffect != nil {
		if err := sideEffect(tx); err != nil {
			return nil, err
		}
	}
	if err := s.weeks.UpdateWeekStatusTx(ctx, tx, week.ID, to); err != nil {
		return nil, err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, action, map[string]any{"week": week.ID, "to": to}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	week.Status = to
	return week, nil
}
