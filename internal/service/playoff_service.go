package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/avandever/keytracker-sub000/internal/playoff"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/avandever/keytracker-sub000/internal/utils"
	"github.com/jmoiron/sqlx"
)

// PlayoffService runs the single-elimination bracket that closes a
// season. Teams are seeded by regular-season standings; byes resolve
// at generation time and the final's winner completes the league.
type PlayoffService struct {
	db        *sqlx.DB
	playoffs  *store.PlayoffStore
	leagues   *store.LeagueStore
	teams     *store.TeamStore
	standings *StandingsService
	league    *LeagueService
}

func NewPlayoffService(db *sqlx.DB, playoffs *store.PlayoffStore, leagues *store.LeagueStore, teams *store.TeamStore, standings *StandingsService, leagueService *LeagueService) *PlayoffService {
	return &PlayoffService{db: db, playoffs: playoffs, leagues: leagues, teams: teams, standings: standings, league: leagueService}
}

// Gets the nearest power of 2 while rounding up, so with input 5 it
// returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// generateRound1Pairs lays out seeds so the top seed meets the lowest
// surviving seed each round.
func generateRound1Pairs(bracketSize int) [][2]int {
	if bracketSize == 0 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		pairs = append(pairs, [2]int{rounds[i], rounds[i+1]})
	}
	return pairs
}

// StartPlayoffs seeds the bracket from standings and moves the league
// to playoffs.
func (s *PlayoffService) StartPlayoffs(ctx context.Context, leagueID int64) ([]playoff.Match, error) {
	l, err := s.league.RequireLeagueAdmin(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if l.Status != league.StatusActive {
		return nil, league.InvalidState("league must be active to start playoffs")
	}
	if n, err := s.playoffs.CountMatches(ctx, leagueID); err != nil {
		return nil, err
	} else if n > 0 {
		return nil, league.InvalidState("playoff bracket already exists")
	}

	standings, err := s.standings.ComputeStandings(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if len(standings) < 2 {
		return nil, league.Validation("playoffs need at least two teams")
	}
	seeds := make([]int64, len(standings))
	for i, st := range standings {
		seeds[i] = st.TeamID
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.generateBracketTx(ctx, tx, leagueID, seeds); err != nil {
		return nil, err
	}
	if err := s.leagues.UpdateLeagueStatusTx(ctx, tx, leagueID, league.StatusPlayoffs); err != nil {
		return nil, err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "start_playoffs", map[string]any{"teams": len(seeds)}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.playoffs.GetMatches(ctx, leagueID)
}

// generateBracketTx builds the bracket from the final backward so each
// round can link to its parent matches, then seeds round one and
// resolves byes.
func (s *PlayoffService) generateBracketTx(ctx context.Context, tx *sqlx.Tx, leagueID int64, seeds []int64) error {
	bracketSize := calcBracketSize(len(seeds))
	totalRounds := int(math.Log2(float64(bracketSize)))

	parents := make(map[int]*playoff.Match)
	var round1 []*playoff.Match
	for r := totalRounds; r >= 1; r-- {
		matchesInRound := int(math.Pow(2, float64(totalRounds-r)))
		current := make(map[int]*playoff.Match)

		for i := 0; i < matchesInRound; i++ {
			matchOrder := i + 1
			m := &playoff.Match{
				LeagueID:    leagueID,
				RoundNumber: r,
				MatchOrder:  matchOrder,
				Status:      playoff.MatchPending,
			}
			if r < totalRounds {
				parent := parents[(matchOrder+1)/2]
				m.WinnerNextMatchID = &parent.ID
				if matchOrder%2 != 0 {
					m.WinnerNextSlot = utils.Ptr(1)
				} else {
					m.WinnerNextSlot = utils.Ptr(2)
				}
			}
			if err := s.playoffs.CreateMatchTx(ctx, tx, m); err != nil {
				return err
			}
			current[matchOrder] = m
			if r == 1 {
				round1 = append(round1, m)
			}
		}
		parents = current
	}
	pairs := generateRound1Pairs(bracketSize)
	for i, pair := range pairs {
		if i >= len(round1) {
			break
		}
		m := round1[i]
		if pair[0] < len(seeds) {
			m.Team1ID = &seeds[pair[0]]
		}
		if pair[1] < len(seeds) {
			m.Team2ID = &seeds[pair[1]]
		}
		if (m.Team1ID == nil) != (m.Team2ID == nil) {
			m.IsBye = true
		}
		if err := s.playoffs.UpdateMatchTx(ctx, tx, m); err != nil {
			return err
		}
	}

	for _, m := range round1 {
		if !m.IsBye {
			continue
		}
		slot := 1
		winner := m.Team1ID
		if winner == nil {
			slot = 2
			winner = m.Team2ID
		}
		m.WinnerSlot = &slot
		m.Status = playoff.MatchFinished
		if err := s.playoffs.UpdateMatchTx(ctx, tx, m); err != nil {
			return err
		}
		if err := s.propagateWinnerTx(ctx, tx, m, *winner); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceWinner records a playoff result. Matches decide in bracket
// order; the final's winner completes the league.
func (s *PlayoffService) AdvanceWinner(ctx context.Context, leagueID, matchID, winnerTeamID int64) (*playoff.Match, error) {
	if _, err := s.league.RequireLeagueAdmin(ctx, leagueID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m, err := s.playoffs.GetMatchTx(ctx, tx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, league.NotFound("playoff match")
	}
	if err != nil {
		return nil, err
	}
	if m.LeagueID != leagueID {
		return nil, league.NotFound("playoff match")
	}
	if m.Status == playoff.MatchFinished {
		return nil, league.InvalidState("match is already decided")
	}

	hasPending, err := s.playoffs.HasPreviousPendingMatchesTx(ctx, tx, leagueID, m.RoundNumber, m.MatchOrder)
	if err != nil {
		return nil, err
	}
	if hasPending {
		return nil, league.InvalidState("matches must be decided in order")
	}

	switch {
	case m.Team1ID != nil && *m.Team1ID == winnerTeamID:
		m.WinnerSlot = utils.Ptr(1)
	case m.Team2ID != nil && *m.Team2ID == winnerTeamID:
		m.WinnerSlot = utils.Ptr(2)
	default:
		return nil, league.Validation("winner is not part of this match")
	}
	m.Status = playoff.MatchFinished

	if err := s.playoffs.UpdateMatchTx(ctx, tx, m); err != nil {
		return nil, err
	}
	if err := s.propagateWinnerTx(ctx, tx, m, winnerTeamID); err != nil {
		return nil, err
	}

	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "playoff_advance", map[string]any{"match": matchID, "winner": winnerTeamID}); err != nil {
		return nil, err
	}
	return m, tx.Commit()
}

func (s *PlayoffService) propagateWinnerTx(ctx context.Context, tx *sqlx.Tx, m *playoff.Match, winnerTeamID int64) error {
	if m.WinnerNextMatchID == nil || m.WinnerNextSlot == nil {
		// The final: the season is over.
		return s.leagues.UpdateLeagueStatusTx(ctx, tx, m.LeagueID, league.StatusCompleted)
	}
	next, err := s.playoffs.GetMatchTx(ctx, tx, *m.WinnerNextMatchID)
	if err != nil {
		return err
	}
	switch *m.WinnerNextSlot {
	case 1:
		next.Team1ID = &winnerTeamID
	case 2:
		next.Team2ID = &winnerTeamID
	}
	return s.playoffs.UpdateMatchTx(ctx, tx, next)
}

func (s *PlayoffService) GetBracket(ctx context.Context, leagueID int64) ([]playoff.Match, error) {
	return s.playoffs.GetMatches(ctx, leagueID)
}
