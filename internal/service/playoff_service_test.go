package service

import (
	"fmt"
	"testing"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/playoff"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcBracketSize(t *testing.T) {
	assert.Equal(t, 0, calcBracketSize(0))
	assert.Equal(t, 1, calcBracketSize(1))
	assert.Equal(t, 2, calcBracketSize(2))
	assert.Equal(t, 4, calcBracketSize(3))
	assert.Equal(t, 4, calcBracketSize(4))
	assert.Equal(t, 8, calcBracketSize(5))
	assert.Equal(t, 8, calcBracketSize(8))
}

func TestGenerateRound1Pairs(t *testing.T) {
	assert.Empty(t, generateRound1Pairs(0))
	assert.Equal(t, [][2]int{{0, 1}}, generateRound1Pairs(2))
	assert.Equal(t, [][2]int{{0, 3}, {1, 2}}, generateRound1Pairs(4))
	assert.Equal(t, [][2]int{{0, 7}, {3, 4}, {1, 6}, {2, 5}}, generateRound1Pairs(8))
}

// playoffLeague seeds nTeams one-player teams and activates the league.
// With no games played, standings seed the bracket by team id.
func playoffLeague(t *testing.T, e *testEnv, nTeams int) (*league.League, []int64, uuid.UUID) {
	t.Helper()
	admin := e.createUser(t, "admin")
	l := e.createLeague(t, admin, 1, nTeams)
	teamIDs := make([]int64, nTeams)
	for i := 0; i < nTeams; i++ {
		captain := e.createUser(t, fmt.Sprintf("cap%d", i+1))
		teamIDs[i] = e.seedTeam(t, l.ID, fmt.Sprintf("Team %d", i+1), captain)
	}
	e.setLeagueStatus(t, l.ID, league.StatusActive)
	return l, teamIDs, admin
}

func matchAt(t *testing.T, matches []playoff.Match, round, order int) *playoff.Match {
	t.Helper()
	for i := range matches {
		if matches[i].RoundNumber == round && matches[i].MatchOrder == order {
			return &matches[i]
		}
	}
	t.Fatalf("no match at round %d order %d", round, order)
	return nil
}

func TestStartPlayoffsFourTeams(t *testing.T) {
	e := newTestEnv(t)
	l, teams, admin := playoffLeague(t, e, 4)

	matches, err := e.playoffSvc.StartPlayoffs(asUser(admin), l.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	m1 := matchAt(t, matches, 1, 1)
	m2 := matchAt(t, matches, 1, 2)
	final := matchAt(t, matches, 2, 1)

	// Seed 1 meets seed 4, seed 2 meets seed 3.
	require.NotNil(t, m1.Team1ID)
	require.NotNil(t, m1.Team2ID)
	assert.Equal(t, teams[0], *m1.Team1ID)
	assert.Equal(t, teams[3], *m1.Team2ID)
	assert.Equal(t, teams[1], *m2.Team1ID)
	assert.Equal(t, teams[2], *m2.Team2ID)

	assert.Nil(t, final.Team1ID)
	assert.Nil(t, final.Team2ID)
	require.NotNil(t, m1.WinnerNextMatchID)
	assert.Equal(t, final.ID, *m1.WinnerNextMatchID)

	updated, err := e.leagueSvc.GetLeague(asUser(admin), l.ID)
	require.NoError(t, err)
	assert.Equal(t, league.StatusPlayoffs, updated.Status)

	// The bracket only generates once.
	_, err = e.playoffSvc.StartPlayoffs(asUser(admin), l.ID)
	requireErrKind(t, err, league.ErrInvalidState)
}

func TestStartPlayoffsRequiresActiveLeague(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "admin")
	l := e.createLeague(t, admin, 1, 2)
	e.seedTeam(t, l.ID, "Team 1", e.createUser(t, "cap1"))
	e.seedTeam(t, l.ID, "Team 2", e.createUser(t, "cap2"))

	_, err := e.playoffSvc.StartPlayoffs(asUser(admin), l.ID)
	requireErrKind(t, err, league.ErrInvalidState)

	outsider := e.createUser(t, "outsider")
	e.setLeagueStatus(t, l.ID, league.StatusActive)
	_, err = e.playoffSvc.StartPlayoffs(asUser(outsider), l.ID)
	requireErrKind(t, err, league.ErrForbidden)
}

func TestPlayoffByeAutoAdvances(t *testing.T) {
	e := newTestEnv(t)
	l, teams, admin := playoffLeague(t, e, 3)

	matches, err := e.playoffSvc.StartPlayoffs(asUser(admin), l.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	bye := matchAt(t, matches, 1, 1)
	played := matchAt(t, matches, 1, 2)
	final := matchAt(t, matches, 2, 1)

	assert.True(t, bye.IsBye)
	assert.Equal(t, playoff.MatchFinished, bye.Status)
	require.NotNil(t, bye.Team1ID)
	assert.Equal(t, teams[0], *bye.Team1ID)
	assert.Nil(t, bye.Team2ID)

	assert.False(t, played.IsBye)
	assert.Equal(t, playoff.MatchPending, played.Status)
	assert.Equal(t, teams[1], *played.Team1ID)
	assert.Equal(t, teams[2], *played.Team2ID)

	// The bye winner is already waiting in the final.
	require.NotNil(t, final.Team1ID)
	assert.Equal(t, teams[0], *final.Team1ID)
	assert.Nil(t, final.Team2ID)
}

func TestAdvanceWinnerBracketOrder(t *testing.T) {
	e := newTestEnv(t)
	l, teams, admin := playoffLeague(t, e, 4)

	matches, err := e.playoffSvc.StartPlayoffs(asUser(admin), l.ID)
	require.NoError(t, err)
	m1 := matchAt(t, matches, 1, 1)
	m2 := matchAt(t, matches, 1, 2)
	final := matchAt(t, matches, 2, 1)

	// Later matches wait for earlier ones.
	_, err = e.playoffSvc.AdvanceWinner(asUser(admin), l.ID, m2.ID, teams[1])
	requireErrKind(t, err, league.ErrInvalidState)
	_, err = e.playoffSvc.AdvanceWinner(asUser(admin), l.ID, final.ID, teams[0])
	requireErrKind(t, err, league.ErrInvalidState)

	_, err = e.playoffSvc.AdvanceWinner(asUser(admin), l.ID, m1.ID, teams[0])
	require.NoError(t, err)

	// A winner must be one of the two seats.
	_, err = e.playoffSvc.AdvanceWinner(asUser(admin), l.ID, m2.ID, teams[0])
	requireErrKind(t, err, league.ErrValidationFailed)
	_, err = e.playoffSvc.AdvanceWinner(asUser(admin), l.ID, m2.ID, teams[2])
	require.NoError(t, err)

	// Decided matches stay decided.
	_, err = e.playoffSvc.AdvanceWinner(asUser(admin), l.ID, m1.ID, teams[3])
	requireErrKind(t, err, league.ErrInvalidState)

	bracket, err := e.playoffSvc.GetBracket(asUser(admin), l.ID)
	require.NoError(t, err)
	decided := matchAt(t, bracket, 2, 1)
	require.NotNil(t, decided.Team1ID)
	require.NotNil(t, decided.Team2ID)
	assert.Equal(t, teams[0], *decided.Team1ID)
	assert.Equal(t, teams[2], *decided.Team2ID)

	// The final's winner ends the season.
	won, err := e.playoffSvc.AdvanceWinner(asUser(admin), l.ID, final.ID, teams[2])
	require.NoError(t, err)
	require.NotNil(t, won.WinnerSlot)
	assert.Equal(t, 2, *won.WinnerSlot)

	updated, err := e.leagueSvc.GetLeague(asUser(admin), l.ID)
	require.NoError(t, err)
	assert.Equal(t, league.StatusCompleted, updated.Status)
}
