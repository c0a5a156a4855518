package store

import (
	"context"
	"testing"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetLeague(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := uuid.MustParse(testSuperUserID)
	insertTestUser(t, db, owner, "owner")

	created := insertTestLeague(t, db, owner)
	require.NotZero(t, created.ID)

	store := NewLeagueStore(db)
	fetched, err := store.GetLeague(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.Name, fetched.Name)
	assert.Equal(t, 3, fetched.TeamSize)
	assert.Equal(t, 2, fetched.NumTeams)
	assert.Equal(t, league.StatusSetup, fetched.Status)
	assert.Equal(t, owner, fetched.CreatedBy)
}

func TestUpdateLeagueStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := uuid.MustParse(testSuperUserID)
	insertTestUser(t, db, owner, "owner")
	l := insertTestLeague(t, db, owner)

	store := NewLeagueStore(db)
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, store.UpdateLeagueStatusTx(context.Background(), tx, l.ID, league.StatusDrafting))
	require.NoError(t, tx.Commit())

	fetched, err := store.GetLeague(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, league.StatusDrafting, fetched.Status)
}

func TestSignupOrderIncrements(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := uuid.MustParse(testSuperUserID)
	insertTestUser(t, db, owner, "owner")
	l := insertTestLeague(t, db, owner)

	store := NewLeagueStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		userID := uuid.New()
		insertTestUser(t, db, userID, uuid.NewString()[:8])

		order, err := store.NextSignupOrder(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, i+1, order)

		tx, err := db.BeginTxx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, store.CreateSignup(ctx, tx, &league.Signup{
			LeagueID:    l.ID,
			UserID:      userID,
			SignupOrder: order,
			Status:      league.SignupPending,
		}))
		require.NoError(t, tx.Commit())
	}

	signups, err := store.GetSignups(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, signups, 3)
	assert.Equal(t, 1, signups[0].SignupOrder)
	assert.Equal(t, 3, signups[2].SignupOrder)
}

func TestAdminLogAppendAndGet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owner := uuid.MustParse(testSuperUserID)
	insertTestUser(t, db, owner, "owner")
	l := insertTestLeague(t, db, owner)

	store := NewLeagueStore(db)
	ctx := context.Background()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.AppendAdminLog(ctx, tx, &league.AdminLogEntry{
		LeagueID:   l.ID,
		UserID:     owner,
		ActionType: "create_league",
		Details:    `{"name":"Test"}`,
	}))
	require.NoError(t, tx.Commit())

	entries, err := store.GetAdminLog(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "create_league", entries[0].ActionType)
	assert.Equal(t, owner, entries[0].UserID)
	assert.Contains(t, entries[0].Details, "Test")
}
