package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StandingsService derives team standings and player power scores
// from reported games. Nothing here writes; standings are always
// recomputed from the game log.
type StandingsService struct {
	db       *sqlx.DB
	weeks    *store.WeekStore
	teams    *store.TeamStore
	matchups *store.MatchupStore
	league   *LeagueService
}

func NewStandingsService(db *sqlx.DB, weeks *store.WeekStore, teams *store.TeamStore, matchups *store.MatchupStore, leagueService *LeagueService) *StandingsService {
	return &StandingsService{db: db, weeks: weeks, teams: teams, matchups: matchups, league: leagueService}
}

type TeamStanding struct {
	TeamID   int64   `json:"team_id"`
	TeamName string  `json:"team_name"`
	Wins     int     `json:"wins"`
	Bonuses  int     `json:"bonuses"`
	Points   int     `json:"points"`
	Rank     int     `json:"rank"`
}

// ComputeStandings scores every published or completed week. A team
// earns a win per player matchup decided in its favor, plus the league
// bonus when it takes a strict majority of a week matchup, or exactly
// half while winning the feature seat.
func (s *StandingsService) ComputeStandings(ctx context.Context, leagueID int64) ([]TeamStanding, error) {
	l, err := s.league.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	teams, err := s.teams.GetTeams(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	teamOf, err := s.memberTeams(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	weeks, err := s.weeks.GetWeeks(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	byTeam := make(map[int64]*TeamStanding, len(teams))
	for _, t := range teams {
		byTeam[t.ID] = &TeamStanding{TeamID: t.ID, TeamName: t.Name}
	}
	// head-to-head points (wins plus week bonuses from the mutual
	// matchups), keyed [team][opposingTeam]
	h2h := make(map[int64]map[int64]int)

	for i := range weeks {
		week := &weeks[i]
		if week.Status != league.WeekPublished && week.Status != league.WeekCompleted {
			continue
		}
		if err := s.scoreWeek(ctx, l, week, teamOf, byTeam, h2h); err != nil {
			return nil, err
		}
	}

	standings := make([]TeamStanding, 0, len(byTeam))
	for _, st := range byTeam {
		st.Points = st.Wins + st.Bonuses*l.WeekBonusPoints
		standings = append(standings, *st)
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		ha := h2h[a.TeamID][b.TeamID]
		hb := h2h[b.TeamID][a.TeamID]
		if ha != hb {
			return ha > hb
		}
		return a.TeamID < b.TeamID
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings, nil
}

func (s *StandingsService) scoreWeek(ctx context.Context, l *league.League, week *league.Week, teamOf map[uuid.UUID]int64, byTeam map[int64]*TeamStanding, h2h map[int64]map[int64]int) error {
	wms, err := s.matchups.GetWeekMatchups(ctx, week.ID)
	if err != nil {
		return err
	}
	pms, err := s.matchups.GetPlayerMatchupsForWeek(ctx, week.ID)
	if err != nil {
		return err
	}
	games, err := s.matchups.GetGamesForWeek(ctx, week.ID)
	if err != nil {
		return err
	}
	gamesBy := make(map[int64][]league.Game)
	for _, g := range games {
		gamesBy[g.PlayerMatchupID] = append(gamesBy[g.PlayerMatchupID], g)
	}
	pmsBy := make(map[int64][]league.PlayerMatchup)
	for _, pm := range pms {
		if pm.WeekMatchupID != nil {
			pmsBy[*pm.WeekMatchupID] = append(pmsBy[*pm.WeekMatchupID], pm)
		}
	}

	for _, wm := range wms {
		t1Wins, t2Wins := 0, 0
		featureWinner := int64(0)
		total := len(pmsBy[wm.ID])
		for i := range pmsBy[wm.ID] {
			pm := &pmsBy[wm.ID][i]
			winner := league.DecidedWinner(pm, gamesBy[pm.ID], week.WinsNeeded())
			if winner == uuid.Nil {
				continue
			}
			winningTeam := teamOf[winner]
			switch winningTeam {
			case wm.Team1:
				t1Wins++
			case wm.Team2:
				t2Wins++
			}
			if pm.IsFeature {
				featureWinner = winningTeam
			}
		}

		t1Bonus := weekBonusEarned(t1Wins, total, wm.Team1, featureWinner)
		t2Bonus := weekBonusEarned(t2Wins, total, wm.Team2, featureWinner)
		if st := byTeam[wm.Team1]; st != nil {
			st.Wins += t1Wins
			if t1Bonus {
				st.Bonuses++
			}
		}
		if st := byTeam[wm.Team2]; st != nil {
			st.Wins += t2Wins
			if t2Bonus {
				st.Bonuses++
			}
		}

		// Ties on total points break by head-to-head points, so the
		// mutual tally carries the week bonus too, not just raw wins.
		t1Points, t2Points := t1Wins, t2Wins
		if t1Bonus {
			t1Points += l.WeekBonusPoints
		}
		if t2Bonus {
			t2Points += l.WeekBonusPoints
		}
		addH2H(h2h, wm.Team1, wm.Team2, t1Points)
		addH2H(h2h, wm.Team2, wm.Team1, t2Points)
	}
	return nil
}

// weekBonusEarned: strict majority of the matchup's seats, or exactly
// half plus the feature seat.
func weekBonusEarned(wins, total int, teamID, featureWinner int64) bool {
	if total == 0 {
		return false
	}
	if wins*2 > total {
		return true
	}
	return wins*2 == total && featureWinner == teamID
}

func addH2H(h2h map[int64]map[int64]int, team, opponent int64, points int) {
	if h2h[team] == nil {
		h2h[team] = make(map[int64]int)
	}
	h2h[team][opponent] += points
}

func (s *StandingsService) memberTeams(ctx context.Context, leagueID int64) (map[uuid.UUID]int64, error) {
	members, err := s.teams.GetMembersByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	teamOf := make(map[uuid.UUID]int64, len(members))
	for _, m := range members {
		teamOf[m.UserID] = m.TeamID
	}
	return teamOf, nil
}

// PowerScores rates every league player before the given week number:
// own decided-match wins over earlier completed weeks, plus a hundredth
// of each beaten-or-faced opponent's wins over the same span.
func (s *StandingsService) PowerScores(ctx context.Context, leagueID int64, beforeWeekNumber int) (map[uuid.UUID]float64, error) {
	weeks, err := s.weeks.GetWeeks(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	wins := make(map[uuid.UUID]int)
	opponents := make(map[uuid.UUID][]uuid.UUID)
	for i := range weeks {
		week := &weeks[i]
		if week.WeekNumber >= beforeWeekNumber || week.Status != league.WeekCompleted {
			continue
		}
		pms, err := s.matchups.GetPlayerMatchupsForWeek(ctx, week.ID)
		if err != nil {
			return nil, err
		}
		games, err := s.matchups.GetGamesForWeek(ctx, week.ID)
		if err != nil {
			return nil, err
		}
		gamesBy := make(map[int64][]league.Game)
		for _, g := range games {
			gamesBy[g.PlayerMatchupID] = append(gamesBy[g.PlayerMatchupID], g)
		}
		for i := range pms {
			pm := &pms[i]
			winner := league.DecidedWinner(pm, gamesBy[pm.ID], week.WinsNeeded())
			if winner != uuid.Nil {
				wins[winner]++
			}
			opponents[pm.Player1] = append(opponents[pm.Player1], pm.Player2)
			opponents[pm.Player2] = append(opponents[pm.Player2], pm.Player1)
		}
	}

	scores := make(map[uuid.UUID]float64, len(opponents))
	for player, opps := range opponents {
		score := float64(wins[player])
		for _, opp := range opps {
			score += 0.01 * float64(wins[opp])
		}
		scores[player] = score
	}
	return scores, nil
}

// WriteStandingsCSV emits the current standings with RFC 4180 quoting.
func (s *StandingsService) WriteStandingsCSV(ctx context.Context, w io.Writer, leagueID int64) error {
	standings, err := s.ComputeStandings(ctx, leagueID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "team", "wins", "bonuses", "points"}); err != nil {
		return err
	}
	for _, st := range standings {
		row := []string{
			fmt.Sprintf("%d", st.Rank),
			st.TeamName,
			fmt.Sprintf("%d", st.Wins),
			fmt.Sprintf("%d", st.Bonuses),
			fmt.Sprintf("%d", st.Points),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAdminLogCSV dumps the league's audit trail.
func (s *StandingsService) WriteAdminLogCSV(ctx context.Context, w io.Writer, leagueID int64, leagues *store.LeagueStore) error {
	entries, err := leagues.GetAdminLog(ctx, leagueID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "actor", "action", "details", "created_at"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			fmt.Sprintf("%d", e.ID),
			e.UserID.String(),
			e.ActionType,
			e.Details,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
