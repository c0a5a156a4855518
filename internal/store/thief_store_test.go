package store

import (
	"context"
	"testing"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurationDeckUpsertAndDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := uuid.MustParse(testSuperUserID)
	insertTestUser(t, db, owner, "owner")
	l := insertTestLeague(t, db, owner)
	week := insertTestWeek(t, db, l.ID, 1, league.Thief)
	teamA := insertTestTeam(t, db, l.ID, "Team A")
	deck1 := insertTestDeck(t, db, "deck-1")
	deck2 := insertTestDeck(t, db, "deck-2")

	store := NewThiefStore(db)
	ctx := context.Background()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.UpsertCurationDeckTx(ctx, tx, &league.ThiefCurationDeck{WeekID: week.ID, TeamID: teamA, SlotNumber: 1, DeckID: deck1}))
	require.NoError(t, tx.Commit())

	// Resubmitting a slot swaps the deck.
	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.UpsertCurationDeckTx(ctx, tx, &league.ThiefCurationDeck{WeekID: week.ID, TeamID: teamA, SlotNumber: 1, DeckID: deck2}))
	require.NoError(t, tx.Commit())

	rows, err := store.GetCurationDecksForTeam(ctx, week.ID, teamA)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, deck2, rows[0].DeckID)

	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.DeleteCurationDeckTx(ctx, tx, week.ID, teamA, 1))
	require.NoError(t, tx.Commit())

	rows, err = store.GetCurationDecksForTeam(ctx, week.ID, teamA)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStealsReplacePerTeam(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := uuid.MustParse(testSuperUserID)
	insertTestUser(t, db, owner, "owner")
	l := insertTestLeague(t, db, owner)
	week := insertTestWeek(t, db, l.ID, 1, league.Thief)
	teamA := insertTestTeam(t, db, l.ID, "Team A")
	teamB := insertTestTeam(t, db, l.ID, "Team B")

	store := NewThiefStore(db)
	ctx := context.Background()

	deckIDs := make([]int64, 3)
	for i := range deckIDs {
		deckIDs[i] = insertTestDeck(t, db, uuid.NewString())
	}

	var curated []league.ThiefCurationDeck
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	for slot := 1; slot <= 3; slot++ {
		cd := &league.ThiefCurationDeck{WeekID: week.ID, TeamID: teamB, SlotNumber: slot, DeckID: deckIDs[slot-1]}
		require.NoError(t, store.UpsertCurationDeckTx(ctx, tx, cd))
		curated = append(curated, *cd)
	}
	require.NoError(t, tx.Commit())

	all, err := store.GetCurationDecks(ctx, week.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)

	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateStealTx(ctx, tx, &league.ThiefSteal{WeekID: week.ID, StealingTeamID: teamA, CurationDeckID: all[0].ID}))
	require.NoError(t, tx.Commit())

	// A resubmission clears the team's prior steals first.
	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.DeleteStealsForTeamTx(ctx, tx, week.ID, teamA))
	require.NoError(t, store.CreateStealTx(ctx, tx, &league.ThiefSteal{WeekID: week.ID, StealingTeamID: teamA, CurationDeckID: all[1].ID}))
	require.NoError(t, store.CreateStealTx(ctx, tx, &league.ThiefSteal{WeekID: week.ID, StealingTeamID: teamA, CurationDeckID: all[2].ID}))
	require.NoError(t, tx.Commit())

	steals, err := store.GetSteals(ctx, week.ID)
	require.NoError(t, err)
	require.Len(t, steals, 2)
	stolen := map[int64]bool{}
	for _, s := range steals {
		assert.Equal(t, teamA, s.StealingTeamID)
		stolen[s.CurationDeckID] = true
	}
	assert.True(t, stolen[all[1].ID])
	assert.True(t, stolen[all[2].ID])
}
