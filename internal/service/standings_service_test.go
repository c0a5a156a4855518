package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekBonusEarned(t *testing.T) {
	const teamA, teamB = int64(1), int64(2)

	// Strict majority earns the bonus outright.
	assert.True(t, weekBonusEarned(2, 3, teamA, 0))
	assert.False(t, weekBonusEarned(1, 3, teamA, 0))

	// An even split needs the feature seat.
	assert.True(t, weekBonusEarned(1, 2, teamA, teamA))
	assert.False(t, weekBonusEarned(1, 2, teamA, teamB))
	assert.False(t, weekBonusEarned(1, 2, teamA, 0))
	assert.True(t, weekBonusEarned(2, 4, teamB, teamB))

	// No seats, no bonus.
	assert.False(t, weekBonusEarned(0, 0, teamA, teamA))
}

// playedWeek runs a full archon week where team A takes two of the
// three seats, reporting every game as the admin.
func playedWeek(t *testing.T, e *testEnv) (*league.League, *league.Week, int64, int64, map[uuid.UUID]int64, uuid.UUID) {
	t.Helper()
	admin := e.createUser(t, "admin")
	l := e.createLeague(t, admin, 3, 2)

	var aUsers, bUsers []uuid.UUID
	for i := 1; i <= 3; i++ {
		aUsers = append(aUsers, e.createUser(t, fmt.Sprintf("a%d", i)))
		bUsers = append(bUsers, e.createUser(t, fmt.Sprintf("b%d", i)))
	}
	teamA := e.seedTeam(t, l.ID, "Team A", aUsers[0], aUsers[1:]...)
	teamB := e.seedTeam(t, l.ID, "Team B", bUsers[0], bUsers[1:]...)

	teamOf := make(map[uuid.UUID]int64, 6)
	for _, u := range aUsers {
		teamOf[u] = teamA
	}
	for _, u := range bUsers {
		teamOf[u] = teamB
	}

	week, err := e.weekSvc.CreateWeek(asUser(admin), l.ID, WeekInput{WeekNumber: 1, Format: league.ArchonStandard})
	require.NoError(t, err)
	week, err = e.weekSvc.OpenDeckSelection(asUser(admin), l.ID, week.ID)
	require.NoError(t, err)
	for i, p := range append(append([]uuid.UUID{}, aUsers...), bUsers...) {
		ref := e.resolver.add(stubDeck(fmt.Sprintf("standings-%d", i), "CotA", 60))
		_, err := e.selectionSvc.SubmitSelection(asUser(p), l.ID, week.ID, SubmitSelectionInput{SlotNumber: 1, DeckRef: ref})
		require.NoError(t, err)
	}
	week, err = e.weekSvc.GenerateTeamPairings(asUser(admin), l.ID, week.ID)
	require.NoError(t, err)
	week, err = e.weekSvc.GeneratePlayerMatchups(asUser(admin), l.ID, week.ID, false)
	require.NoError(t, err)
	week, err = e.weekSvc.Publish(asUser(admin), l.ID, week.ID)
	require.NoError(t, err)

	pms, err := e.matchups.GetPlayerMatchupsForWeek(context.Background(), week.ID)
	require.NoError(t, err)
	require.Len(t, pms, 3)

	// First two seats go to team A's player, the last to team B's.
	for i, pm := range pms {
		winner := pm.Player1
		if teamOf[winner] != teamA {
			winner = pm.Player2
		}
		if i == 2 {
			winner = pm.Opponent(winner)
		}
		for g := 0; g < 2; g++ {
			_, err := e.matchupSvc.ReportGame(asUser(admin), l.ID, pm.ID, ReportGameInput{WinnerID: winner})
			require.NoError(t, err)
		}
	}
	return l, week, teamA, teamB, teamOf, admin
}

func TestComputeStandings(t *testing.T) {
	e := newTestEnv(t)
	l, _, teamA, teamB, _, _ := playedWeek(t, e)

	standings, err := e.standingsSvc.ComputeStandings(context.Background(), l.ID)
	require.NoError(t, err)
	require.Len(t, standings, 2)

	first, second := standings[0], standings[1]
	assert.Equal(t, teamA, first.TeamID)
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, 2, first.Wins)
	assert.Equal(t, 1, first.Bonuses)
	assert.Equal(t, 3, first.Points) // 2 wins + 1 bonus point

	assert.Equal(t, teamB, second.TeamID)
	assert.Equal(t, 2, second.Rank)
	assert.Equal(t, 1, second.Wins)
	assert.Equal(t, 0, second.Bonuses)
	assert.Equal(t, 1, second.Points)
}

type seededSeat struct {
	p1, p2  uuid.UUID
	winner  uuid.UUID
	feature bool
}

type seededMatchup struct {
	team1, team2 int64
	seats        []seededSeat
}

// seedCompletedWeek writes a finished week straight through the
// stores so every matchup and winner is scripted.
func (e *testEnv) seedCompletedWeek(t *testing.T, leagueID int64, weekNumber int, wms []seededMatchup) {
	t.Helper()
	ctx := context.Background()

	tx, err := e.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	week := &league.Week{LeagueID: leagueID, WeekNumber: weekNumber, Format: league.ArchonStandard, BestOfN: 3, Status: league.WeekCompleted}
	require.NoError(t, e.weeks.CreateWeek(ctx, tx, week))
	for _, wm := range wms {
		require.NoError(t, e.matchups.CreateWeekMatchupsTx(ctx, tx, []league.WeekMatchup{{WeekID: week.ID, Team1: wm.team1, Team2: wm.team2}}))
	}
	require.NoError(t, tx.Commit())

	stored, err := e.matchups.GetWeekMatchups(ctx, week.ID)
	require.NoError(t, err)
	require.Len(t, stored, len(wms))

	tx, err = e.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	for i, wm := range wms {
		require.Equal(t, wm.team1, stored[i].Team1)
		wmID := stored[i].ID
		for _, seat := range wm.seats {
			pm := &league.PlayerMatchup{WeekMatchupID: &wmID, Player1: seat.p1, Player2: seat.p2, IsFeature: seat.feature}
			require.NoError(t, e.matchups.CreatePlayerMatchupTx(ctx, tx, pm))
			for g := 1; g <= 2; g++ {
				require.NoError(t, e.matchups.CreateGameTx(ctx, tx, &league.Game{PlayerMatchupID: pm.ID, GameNumber: g, WinnerID: seat.winner}))
			}
		}
	}
	require.NoError(t, tx.Commit())
}

func TestStandingsTiebreakUsesHeadToHeadPoints(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "admin")
	l := e.createLeague(t, admin, 2, 4)

	mk := func(prefix string) []uuid.UUID {
		return []uuid.UUID{e.createUser(t, prefix+"1"), e.createUser(t, prefix+"2")}
	}
	a, b, c, d := mk("a"), mk("b"), mk("c"), mk("d")
	teamA := e.seedTeam(t, l.ID, "Team A", a[0], a[1])
	teamB := e.seedTeam(t, l.ID, "Team B", b[0], b[1])
	teamC := e.seedTeam(t, l.ID, "Team C", c[0], c[1])
	teamD := e.seedTeam(t, l.ID, "Team D", d[0], d[1])

	// Week one: A and B split their seats but B takes the feature, so
	// the bonus in their mutual week goes to B. C and D split with D
	// featured.
	e.seedCompletedWeek(t, l.ID, 1, []seededMatchup{
		{team1: teamA, team2: teamB, seats: []seededSeat{
			{p1: a[0], p2: b[0], winner: b[0], feature: true},
			{p1: a[1], p2: b[1], winner: a[1]},
		}},
		{team1: teamC, team2: teamD, seats: []seededSeat{
			{p1: c[0], p2: d[0], winner: d[0], feature: true},
			{p1: c[1], p2: d[1], winner: c[1]},
		}},
	})
	// Week two: A sweeps C for three points; B splits with D while
	// holding the feature, landing both A and B on four points.
	e.seedCompletedWeek(t, l.ID, 2, []seededMatchup{
		{team1: teamA, team2: teamC, seats: []seededSeat{
			{p1: a[0], p2: c[0], winner: a[0], feature: true},
			{p1: a[1], p2: c[1], winner: a[1]},
		}},
		{team1: teamB, team2: teamD, seats: []seededSeat{
			{p1: b[0], p2: d[0], winner: b[0], feature: true},
			{p1: b[1], p2: d[1], winner: d[1]},
		}},
	})

	standings, err := e.standingsSvc.ComputeStandings(context.Background(), l.ID)
	require.NoError(t, err)
	require.Len(t, standings, 4)

	// A and B tie at four points with head-to-head wins split 1-1, but
	// B's feature win in week one carries the bonus point, so B ranks
	// first despite A's lower team id.
	assert.Equal(t, teamB, standings[0].TeamID)
	assert.Equal(t, 4, standings[0].Points)
	assert.Equal(t, teamA, standings[1].TeamID)
	assert.Equal(t, 4, standings[1].Points)
	assert.Equal(t, teamD, standings[2].TeamID)
	assert.Equal(t, teamC, standings[3].TeamID)
}

func TestPowerScores(t *testing.T) {
	e := newTestEnv(t)
	l, week, _, _, _, admin := playedWeek(t, e)

	week, err := e.weekSvc.CheckCompletion(asUser(admin), l.ID, week.ID)
	require.NoError(t, err)
	require.Equal(t, league.WeekCompleted, week.Status)

	scores, err := e.standingsSvc.PowerScores(context.Background(), l.ID, 2)
	require.NoError(t, err)
	require.Len(t, scores, 6)

	pms, err := e.matchups.GetPlayerMatchupsForWeek(context.Background(), week.ID)
	require.NoError(t, err)
	for _, pm := range pms {
		games, err := e.matchups.GetGames(context.Background(), pm.ID)
		require.NoError(t, err)
		winner := league.DecidedWinner(&pm, games, week.WinsNeeded())
		require.NotEqual(t, uuid.Nil, winner)
		loser := pm.Opponent(winner)
		// A winner counts their own win; a loser only carries a
		// hundredth of the opponent's.
		assert.InDelta(t, 1.0, scores[winner], 1e-9)
		assert.InDelta(t, 0.01, scores[loser], 1e-9)
	}

	// Nothing completed before week one.
	early, err := e.standingsSvc.PowerScores(context.Background(), l.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, early)
}

func TestWriteStandingsCSV(t *testing.T) {
	e := newTestEnv(t)
	l, _, _, _, _, _ := playedWeek(t, e)

	var buf bytes.Buffer
	require.NoError(t, e.standingsSvc.WriteStandingsCSV(context.Background(), &buf, l.ID))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "rank,team,wins,bonuses,points", lines[0])
	assert.Equal(t, "1,Team A,2,1,3", lines[1])
	assert.Equal(t, "2,Team B,1,0,1", lines[2])
}
