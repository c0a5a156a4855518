package store

import (
	"context"
	"testing"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekAndPlayerMatchups(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := uuid.MustParse(testSuperUserID)
	insertTestUser(t, db, owner, "owner")
	p1 := uuid.New()
	p2 := uuid.New()
	insertTestUser(t, db, p1, "alice")
	insertTestUser(t, db, p2, "bob")

	l := insertTestLeague(t, db, owner)
	week := insertTestWeek(t, db, l.ID, 1, league.ArchonStandard)
	teamA := insertTestTeam(t, db, l.ID, "Team A")
	teamB := insertTestTeam(t, db, l.ID, "Team B")

	store := NewMatchupStore(db)
	ctx := context.Background()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateWeekMatchupsTx(ctx, tx, []league.WeekMatchup{
		{WeekID: week.ID, Team1: teamA, Team2: teamB},
	}))
	require.NoError(t, tx.Commit())

	wms, err := store.GetWeekMatchups(ctx, week.ID)
	require.NoError(t, err)
	require.Len(t, wms, 1)
	assert.Equal(t, teamA, wms[0].Team1)
	assert.Equal(t, teamB, wms[0].Team2)

	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreatePlayerMatchupsTx(ctx, tx, []league.PlayerMatchup{
		{WeekMatchupID: &wms[0].ID, Player1: p1, Player2: p2, IsFeature: true},
	}))
	require.NoError(t, tx.Commit())

	pms, err := store.GetPlayerMatchupsForWeek(ctx, week.ID)
	require.NoError(t, err)
	require.Len(t, pms, 1)
	assert.True(t, pms[0].IsFeature)
	assert.Equal(t, p1, pms[0].Player1)
}

func TestGamesOrderedByNumber(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := uuid.MustParse(testSuperUserID)
	insertTestUser(t, db, owner, "owner")
	p1 := uuid.New()
	p2 := uuid.New()
	insertTestUser(t, db, p1, "alice")
	insertTestUser(t, db, p2, "bob")

	l := insertTestLeague(t, db, owner)
	week := insertTestWeek(t, db, l.ID, 1, league.ArchonStandard)
	teamA := insertTestTeam(t, db, l.ID, "Team A")
	teamB := insertTestTeam(t, db, l.ID, "Team B")

	store := NewMatchupStore(db)
	ctx := context.Background()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateWeekMatchupsTx(ctx, tx, []league.WeekMatchup{{WeekID: week.ID, Team1: teamA, Team2: teamB}}))
	require.NoError(t, tx.Commit())

	wms, err := store.GetWeekMatchups(ctx, week.ID)
	require.NoError(t, err)

	pm := &league.PlayerMatchup{WeekMatchupID: &wms[0].ID, Player1: p1, Player2: p2}
	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreatePlayerMatchupTx(ctx, tx, pm))
	require.NoError(t, store.CreateGameTx(ctx, tx, &league.Game{PlayerMatchupID: pm.ID, GameNumber: 1, WinnerID: p1, Player1Keys: 3, Player2Keys: 1}))
	require.NoError(t, store.CreateGameTx(ctx, tx, &league.Game{PlayerMatchupID: pm.ID, GameNumber: 2, WinnerID: p2, Player1Keys: 2, Player2Keys: 3}))
	require.NoError(t, tx.Commit())

	games, err := store.GetGames(ctx, pm.ID)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, 1, games[0].GameNumber)
	assert.Equal(t, p1, games[0].WinnerID)
	assert.Equal(t, 2, games[1].GameNumber)

	// Same game number twice violates the unique constraint.
	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	err = store.CreateGameTx(ctx, tx, &league.Game{PlayerMatchupID: pm.ID, GameNumber: 2, WinnerID: p1})
	assert.Error(t, err)
	tx.Rollback()
}

func TestUpsertBidReplacesState(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := uuid.MustParse(testSuperUserID)
	insertTestUser(t, db, owner, "owner")
	p1 := uuid.New()
	p2 := uuid.New()
	insertTestUser(t, db, p1, "alice")
	insertTestUser(t, db, p2, "bob")

	l := insertTestLeague(t, db, owner)
	week := insertTestWeek(t, db, l.ID, 1, league.Adaptive)
	teamA := insertTestTeam(t, db, l.ID, "Team A")
	teamB := insertTestTeam(t, db, l.ID, "Team B")

	store := NewMatchupStore(db)
	ctx := context.Background()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateWeekMatchupsTx(ctx, tx, []league.WeekMatchup{{WeekID: week.ID, Team1: teamA, Team2: teamB}}))
	require.NoError(t, tx.Commit())
	wms, err := store.GetWeekMatchups(ctx, week.ID)
	require.NoError(t, err)

	pm := &league.PlayerMatchup{WeekMatchupID: &wms[0].ID, Player1: p1, Player2: p2}
	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreatePlayerMatchupTx(ctx, tx, pm))
	require.NoError(t, store.UpsertBidTx(ctx, tx, &league.AdaptiveBidState{
		PlayerMatchupID: pm.ID, BidderID: p1, BidChains: 0, WinningDeckPlayerID: p1,
	}))
	require.NoError(t, tx.Commit())

	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.UpsertBidTx(ctx, tx, &league.AdaptiveBidState{
		PlayerMatchupID: pm.ID, BidderID: p2, BidChains: 3, WinningDeckPlayerID: p1, Complete: true,
	}))
	require.NoError(t, tx.Commit())

	bid, err := store.GetBid(ctx, pm.ID)
	require.NoError(t, err)
	assert.Equal(t, p2, bid.BidderID)
	assert.Equal(t, 3, bid.BidChains)
	assert.Equal(t, p1, bid.WinningDeckPlayerID)
	assert.True(t, bid.Complete)
}

func TestPriorPairCountsAndPairedWeeks(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := uuid.MustParse(testSuperUserID)
	insertTestUser(t, db, owner, "owner")
	p1 := uuid.New()
	p2 := uuid.New()
	insertTestUser(t, db, p1, "alice")
	insertTestUser(t, db, p2, "bob")

	l := insertTestLeague(t, db, owner)
	week1 := insertTestWeek(t, db, l.ID, 1, league.ArchonStandard)
	week2 := insertTestWeek(t, db, l.ID, 2, league.ArchonStandard)
	teamA := insertTestTeam(t, db, l.ID, "Team A")
	teamB := insertTestTeam(t, db, l.ID, "Team B")

	store := NewMatchupStore(db)
	ctx := context.Background()

	for _, w := range []*league.Week{week1, week2} {
		tx, err := db.BeginTxx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, store.CreateWeekMatchupsTx(ctx, tx, []league.WeekMatchup{{WeekID: w.ID, Team1: teamA, Team2: teamB}}))
		require.NoError(t, tx.Commit())
	}

	wms1, err := store.GetWeekMatchups(ctx, week1.ID)
	require.NoError(t, err)
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreatePlayerMatchupsTx(ctx, tx, []league.PlayerMatchup{
		{WeekMatchupID: &wms1[0].ID, Player1: p1, Player2: p2},
	}))
	require.NoError(t, tx.Commit())

	counts, err := store.GetPriorPairCounts(ctx, l.ID, 2)
	require.NoError(t, err)
	a, b := p1.String(), p2.String()
	if a > b {
		a, b = b, a
	}
	assert.Equal(t, 1, counts[[2]string{a, b}])

	// Week one's own pairings are excluded when scheduling week one.
	counts, err = store.GetPriorPairCounts(ctx, l.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, counts)

	paired, err := store.CountPairedWeeks(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, paired)
}
