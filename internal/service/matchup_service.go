package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchupService struct {
	db       *sqlx.DB
	matchups *store.MatchupStore
	teams    *store.TeamStore
	weeks    *store.WeekStore
	leagues  *store.LeagueStore
	users    *store.UserStore
	adaptive *AdaptiveService
	league   *LeagueService
}

func NewMatchupService(db *sqlx.DB, matchups *store.MatchupStore, teams *store.TeamStore, weeks *store.WeekStore, leagues *store.LeagueStore, users *store.UserStore, adaptive *AdaptiveService, leagueService *LeagueService) *MatchupService {
	return &MatchupService{db: db, matchups: matchups, teams: teams, weeks: weeks, leagues: leagues, users: users, adaptive: adaptive, league: leagueService}
}

// PlanTeamPairings computes this week's team pairings using a
// round-robin circle schedule. The round index is the count of league
// weeks that already have pairings, so every pair of teams meets
// evenly across the season. Ties in slot order fall back to team id.
// All reads happen here so the caller can hold its write transaction
// open only for WriteTeamPairingsTx.
func (s *MatchupService) PlanTeamPairings(ctx context.Context, l *league.League, week *league.Week) ([]league.WeekMatchup, error) {
	teams, err := s.teams.GetTeams(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	if len(teams) < 2 {
		return nil, league.Validation("league needs at least two teams")
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })

	round, err := s.matchups.CountPairedWeeks(ctx, l.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	// Circle method: pad odd fields with a bye slot.
	if len(ids)%2 != 0 {
		ids = append(ids, 0)
	}
	n := len(ids)
	r := round % (n - 1)

	rotated := make([]int64, n)
	rotated[0] = ids[0]
	for i := 1; i < n; i++ {
		rotated[i] = ids[(i-1+r)%(n-1)+1]
	}

	var pairs []league.WeekMatchup
	for i := 0; i < n/2; i++ {
		a, b := rotated[i], rotated[n-1-i]
		if a == 0 || b == 0 {
			continue
		}
		if a > b {
			a, b = b, a
		}
		pairs = append(pairs, league.WeekMatchup{WeekID: week.ID, Team1: a, Team2: b})
	}
	return pairs, nil
}

func (s *MatchupService) WriteTeamPairingsTx(ctx context.Context, tx *sqlx.Tx, pairs []league.WeekMatchup) error {
	return s.matchups.CreateWeekMatchupsTx(ctx, tx, pairs)
}

// GateIncompleteDecks fails when any participating player is missing
// selection slots, naming them so the admin can force or chase.
func (s *MatchupService) GateIncompleteDecks(ctx context.Context, l *league.League, week *league.Week) error {
	members, err := s.teams.GetMembersByLeague(ctx, l.ID)
	if err != nil {
		return err
	}
	needed := week.Format.SlotsPerUser()

	filled := make(map[uuid.UUID]int)
	if week.Format.IsAlliance() {
		rows, err := s.weeks.GetAllianceSelections(ctx, week.ID)
		if err != nil {
			return err
		}
		podCount := make(map[uuid.UUID]int)
		for _, r := range rows {
			if r.SlotType == league.PodSlotPod {
				podCount[r.UserID]++
			}
		}
		for u, n := range podCount {
			if n >= 3 {
				filled[u] = needed
			}
		}
	} else {
		sels, err := s.weeks.GetSelections(ctx, week.ID)
		if err != nil {
			return err
		}
		for _, sel := range sels {
			filled[sel.UserID]++
		}
	}

	var missingIDs []string
	for _, m := range members {
		if filled[m.UserID] < needed {
			missingIDs = append(missingIDs, m.UserID.String())
		}
	}
	if len(missingIDs) == 0 {
		return nil
	}

	missing := make([]string, 0, len(missingIDs))
	if found, err := s.users.GetUsersByIDs(ctx, missingIDs); err == nil {
		for _, u := range found {
			missing = append(missing, u.Username)
		}
	}
	if len(missing) == 0 {
		missing = missingIDs
	}
	sort.Strings(missing)
	return league.NewError(league.ErrIncompleteDecks, "players are missing deck selections").
		WithDetail("missing", missing)
}

// GateFeatureDesignations applies when team_size is even: every team
// must have named its feature player before player pairing.
func (s *MatchupService) GateFeatureDesignations(ctx context.Context, l *league.League, week *league.Week) error {
	if l.TeamSize%2 != 0 {
		return nil
	}
	teams, err := s.teams.GetTeams(ctx, l.ID)
	if err != nil {
		return err
	}
	fds, err := s.weeks.GetFeatureDesignations(ctx, week.ID)
	if err != nil {
		return err
	}
	designated := make(map[int64]bool, len(fds))
	for _, fd := range fds {
		designated[fd.TeamID] = true
	}

	var missingTeams []int64
	for _, t := range teams {
		if !designated[t.ID] {
			missingTeams = append(missingTeams, t.ID)
		}
	}
	if len(missingTeams) == 0 {
		return nil
	}
	return league.NewError(league.ErrMissingFeatureDesignations, "teams have not designated feature players").
		WithDetail("missing_teams", missingTeams)
}

// PlanPlayerMatchups builds T player matchups per week matchup.
// Feature players pair against each other (flagged); remaining seats
// minimize repeat pairings across the season. Reads stay out of the
// caller's transaction; WritePlayerMatchupsTx persists the result.
func (s *MatchupService) PlanPlayerMatchups(ctx context.Context, l *league.League, week *league.Week) ([]league.PlayerMatchup, error) {
	weekMatchups, err := s.matchups.GetWeekMatchups(ctx, week.ID)
	if err != nil {
		return nil, err
	}
	if len(weekMatchups) == 0 {
		return nil, league.InvalidState("team pairings have not been generated")
	}

	fds, err := s.weeks.GetFeatureDesignations(ctx, week.ID)
	if err != nil {
		return nil, err
	}
	featureOf := make(map[int64]uuid.UUID, len(fds))
	for _, fd := range fds {
		featureOf[fd.TeamID] = fd.UserID
	}

	prior, err := s.matchups.GetPriorPairCounts(ctx, l.ID, week.WeekNumber)
	if err != nil {
		return nil, err
	}

	var rows []league.PlayerMatchup
	for _, wm := range weekMatchups {
		side1, err := s.memberIDs(ctx, wm.Team1)
		if err != nil {
			return nil, err
		}
		side2, err := s.memberIDs(ctx, wm.Team2)
		if err != nil {
			return nil, err
		}

		pairs := pairSides(side1, side2, featureOf[wm.Team1], featureOf[wm.Team2], prior)
		wmID := wm.ID
		for _, p := range pairs {
			rows = append(rows, league.PlayerMatchup{
				WeekMatchupID: &wmID,
				Player1:       p.p1,
				Player2:       p.p2,
				IsFeature:     p.feature,
			})
		}
	}
	return rows, nil
}

func (s *MatchupService) WritePlayerMatchupsTx(ctx context.Context, tx *sqlx.Tx, rows []league.PlayerMatchup) error {
	return s.matchups.CreatePlayerMatchupsTx(ctx, tx, rows)
}

type playerPair struct {
	p1, p2  uuid.UUID
	feature bool
}

// pairSides seats two team rosters against each other. The feature
// seats pair first; everyone else is matched greedily against the
// least-seen opponent, with a shuffle so reruns vary.
func pairSides(side1, side2 []uuid.UUID, feature1, feature2 uuid.UUID, prior map[[2]string]int) []playerPair {
	var pairs []playerPair

	rest1 := append([]uuid.UUID(nil), side1...)
	rest2 := append([]uuid.UUID(nil), side2...)

	if feature1 != uuid.Nil || feature2 != uuid.Nil {
		f1, f2 := feature1, feature2
		if f1 == uuid.Nil {
			f1 = lowestID(rest1)
		}
		if f2 == uuid.Nil {
			f2 = lowestID(rest2)
		}
		if removeID(&rest1, f1) && removeID(&rest2, f2) {
			pairs = append(pairs, playerPair{p1: f1, p2: f2, feature: true})
		}
	}

	rand.Shuffle(len(rest1), func(i, j int) { rest1[i], rest1[j] = rest1[j], rest1[i] })
	for _, p1 := range rest1 {
		if len(rest2) == 0 {
			break
		}
		best := 0
		bestCount := pairCountFor(prior, p1, rest2[0])
		for i := 1; i < len(rest2); i++ {
			if c := pairCountFor(prior, p1, rest2[i]); c < bestCount {
				best, bestCount = i, c
			}
		}
		pairs = append(pairs, playerPair{p1: p1, p2: rest2[best]})
		rest2 = append(rest2[:best], rest2[best+1:]...)
	}
	return pairs
}

func pairCountFor(prior map[[2]string]int, a, b uuid.UUID) int {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return prior[[2]string{x, y}]
}

func lowestID(ids []uuid.UUID) uuid.UUID {
	if len(ids) == 0 {
		return uuid.Nil
	}
	low := ids[0]
	for _, id := range ids[1:] {
		if id.String() < low.String() {
			low = id
		}
	}
	return low
}

func removeID(ids *[]uuid.UUID, target uuid.UUID) bool {
	for i, id := range *ids {
		if id == target {
			*ids = append((*ids)[:i], (*ids)[i+1:]...)
			return true
		}
	}
	return false
}

func (s *MatchupService) memberIDs(ctx context.Context, teamID int64) ([]uuid.UUID, error) {
	members, err := s.teams.GetMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids, nil
}

// RegeneratePlayerMatchups discards and reruns player pairing with a
// fresh shuffle. Only legal before any game has been reported.
func (s *MatchupService) RegeneratePlayerMatchups(ctx context.Context, leagueID, weekID int64) error {
	l, err := s.league.RequireLeagueAdmin(ctx, leagueID)
	if err != nil {
		return err
	}
	week, err := s.weeks.GetWeek(ctx, weekID)
	if err != nil {
		return err
	}
	games, err := s.matchups.CountGamesForWeek(ctx, weekID)
	if err != nil {
		return err
	}
	if games > 0 {
		return league.InvalidState("games have already been reported")
	}
	rows, err := s.PlanPlayerMatchups(ctx, l, week)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.matchups.DeletePlayerMatchupsForWeekTx(ctx, tx, weekID); err != nil {
		return err
	}
	if err := s.WritePlayerMatchupsTx(ctx, tx, rows); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "regenerate_player_matchups", map[string]any{"week": weekID}); err != nil {
		return err
	}
	return tx.Commit()
}

// EditMatchup swaps players within the same team membership. Admin
// override; changes after publication are still captured in the log.
func (s *MatchupService) EditMatchup(ctx context.Context, leagueID, playerMatchupID int64, p1, p2 uuid.UUID) error {
	if _, err := s.league.RequireLeagueAdmin(ctx, leagueID); err != nil {
		return err
	}
	pm, err := s.matchups.GetPlayerMatchup(ctx, playerMatchupID)
	if errors.Is(err, sql.ErrNoRows) {
		return league.NotFound("player matchup")
	}
	if err != nil {
		return err
	}
	if pm.WeekMatchupID == nil {
		return league.Validation("standalone matches cannot be edited this way")
	}

	wms, err := s.weekMatchup(ctx, *pm.WeekMatchupID)
	if err != nil {
		return err
	}
	side1, err := s.memberIDs(ctx, wms.Team1)
	if err != nil {
		return err
	}
	side2, err := s.memberIDs(ctx, wms.Team2)
	if err != nil {
		return err
	}
	if !containsID(side1, p1) || !containsID(side2, p2) {
		return league.Validation("players must stay within their team memberships")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	pm.Player1 = p1
	pm.Player2 = p2
	if err := s.matchups.UpdatePlayerMatchupTx(ctx, tx, pm); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "edit_matchup", map[string]any{"matchup": playerMatchupID}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *MatchupService) weekMatchup(ctx context.Context, id int64) (*league.WeekMatchup, error) {
	var wm league.WeekMatchup
	err := s.db.GetContext(ctx, &wm, "SELECT * FROM week_matchups WHERE id = ?", id)
	return &wm, err
}

func containsID(ids []uuid.UUID, target uuid.UUID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

type ReportGameInput struct {
	WinnerID      uuid.UUID `json:"winner_id"`
	Player1Keys   int       `json:"player1_keys"`
	Player2Keys   int       `json:"player2_keys"`
	WentToTime    bool      `json:"went_to_time"`
	LoserConceded bool      `json:"loser_conceded"`
	Player1DeckID *int64    `json:"player1_deck_id,omitempty"`
	Player2DeckID *int64    `json:"player2_deck_id,omitempty"`
}

// ReportGame appends the next game of a league player matchup. For the
// adaptive format a 1-1 score after game two opens chain bidding.
func (s *MatchupService) ReportGame(ctx context.Context, leagueID, playerMatchupID int64, input ReportGameInput) (*league.Game, error) {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, league.Forbidden("login required")
	}
	l, err := s.league.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	pm, err := s.matchups.GetPlayerMatchup(ctx, playerMatchupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, league.NotFound("player matchup")
	}
	if err != nil {
		return nil, err
	}
	if pm.WeekMatchupID == nil {
		return nil, league.Validation("use the standalone match endpoints")
	}
	wm, err := s.weekMatchup(ctx, *pm.WeekMatchupID)
	if err != nil {
		return nil, err
	}
	week, err := s.weeks.GetWeek(ctx, wm.WeekID)
	if err != nil {
		return nil, err
	}
	if week.Status != league.WeekPublished {
		return nil, league.InvalidState("week is not open for game reporting")
	}
	if !pm.Has(actor) && !s.league.IsLeagueAdmin(ctx, l) {
		return nil, league.Forbidden("only participants may report games")
	}
	if !pm.Has(input.WinnerID) {
		return nil, league.Validation("winner is not part of this matchup")
	}

	games, err := s.matchups.GetGames(ctx, playerMatchupID)
	if err != nil {
		return nil, err
	}
	if league.DecidedWinner(pm, games, week.WinsNeeded()) != uuid.Nil {
		return nil, league.InvalidState("matchup is already decided")
	}
	if len(games) >= week.BestOfN {
		return nil, league.InvalidState("all games have been played")
	}
	if (week.Format == league.Triad || week.Format == league.Adaptive) &&
		(input.Player1DeckID == nil || input.Player2DeckID == nil) {
		return nil, league.Validation("per-game decks are required for this format")
	}

	if week.Format == league.Adaptive && len(games) == 2 {
		bid, err := s.matchups.GetBid(ctx, playerMatchupID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if err == nil && !bid.Complete {
			return nil, league.InvalidState("chain bidding must finish before game three")
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	game := &league.Game{
		PlayerMatchupID: playerMatchupID,
		GameNumber:      len(games) + 1,
		WinnerID:        input.WinnerID,
		Player1Keys:     input.Player1Keys,
		Player2Keys:     input.Player2Keys,
		WentToTime:      input.WentToTime,
		LoserConceded:   input.LoserConceded,
		Player1DeckID:   input.Player1DeckID,
		Player2DeckID:   input.Player2DeckID,
	}
	if err := s.matchups.CreateGameTx(ctx, tx, game); err != nil {
		return nil, fmt.Errorf("failed to record game: %w", err)
	}

	if week.Format == league.Adaptive && game.GameNumber == 2 {
		if err := s.adaptive.maybeOpenBiddingTx(ctx, tx, pm, append(games, *game)); err != nil {
			return nil, err
		}
	}

	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "report_game", map[string]any{"matchup": playerMatchupID, "game": game.GameNumber}); err != nil {
		return nil, err
	}
	return game, tx.Commit()
}

// SubmitStrike records a triad strike: one per user per matchup, and
// the struck selection must belong to the opponent.
func (s *MatchupService) SubmitStrike(ctx context.Context, leagueID, playerMatchupID, struckSelectionID int64) error {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return league.Forbidden("login required")
	}
	pm, err := s.matchups.GetPlayerMatchup(ctx, playerMatchupID)
	if errors.Is(err, sql.ErrNoRows) {
		return league.NotFound("player matchup")
	}
	if err != nil {
		return err
	}
	if !pm.Has(actor) {
		return league.Forbidden("only participants may strike")
	}
	if pm.WeekMatchupID == nil {
		return league.Validation("use the standalone match endpoints")
	}
	wm, err := s.weekMatchup(ctx, *pm.WeekMatchupID)
	if err != nil {
		return err
	}
	week, err := s.weeks.GetWeek(ctx, wm.WeekID)
	if err != nil {
		return err
	}
	if week.Format != league.Triad {
		return league.InvalidState("strikes only apply to triad weeks")
	}
	if week.Status != league.WeekPublished {
		return league.InvalidState("week is not open for strikes")
	}

	sel, err := s.weeks.GetSelection(ctx, struckSelectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return league.NotFound("deck selection")
	}
	if err != nil {
		return err
	}
	if sel.UserID != pm.Opponent(actor) {
		return league.Validation("strike must target the opponent's selection")
	}

	strikes, err := s.matchups.GetStrikes(ctx, playerMatchupID)
	if err != nil {
		return err
	}
	for _, st := range strikes {
		if st.StrikingUserID == actor {
			return league.InvalidState("strike already submitted")
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	strike := &league.Strike{
		PlayerMatchupID:   playerMatchupID,
		StrikingUserID:    actor,
		StruckSelectionID: struckSelectionID,
	}
	if err := s.matchups.CreateStrikeTx(ctx, tx, strike); err != nil {
		return err
	}
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "submit_strike", map[string]any{"matchup": playerMatchupID, "selection": struckSelectionID}); err != nil {
		return err
	}
	return tx.Commit()
}
