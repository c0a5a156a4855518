package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/avandever/keytracker-sub000/internal/decks"
	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

const testSuperUserID = "00000000-0000-0000-0000-000000000001"

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

func insertTestUser(t *testing.T, db *sqlx.DB, id uuid.UUID, username string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO users (id, email, username) VALUES (?, ?, ?)",
		id.String(), username+"@example.com", username,
	)
	require.NoError(t, err)
}

func insertTestDeck(t *testing.T, db *sqlx.DB, ref string) int64 {
	t.Helper()
	deck := &decks.Deck{
		SourceRef: ref,
		Name:      "Deck " + ref,
		Expansion: "CotA",
		SAS:       70,
		AERC:      70,
	}
	deck.SetHouses([]string{"Brobnar", "Dis", "Logos"})
	require.NoError(t, NewDeckStore(db).UpsertDeck(context.Background(), deck))
	return deck.ID
}

func insertTestLeague(t *testing.T, db *sqlx.DB, createdBy uuid.UUID) *league.League {
	t.Helper()
	l := &league.League{
		Name:            fmt.Sprintf("Test League %s", uuid.New()),
		TeamSize:        3,
		NumTeams:        2,
		WeekBonusPoints: 1,
		Status:          league.StatusSetup,
		CreatedBy:       createdBy,
	}
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, NewLeagueStore(db).CreateLeague(context.Background(), tx, l))
	require.NoError(t, tx.Commit())
	return l
}

func insertTestTeam(t *testing.T, db *sqlx.DB, leagueID int64, name string) int64 {
	t.Helper()
	team := &league.Team{LeagueID: leagueID, Name: name}
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, NewTeamStore(db).CreateTeam(context.Background(), tx, team))
	require.NoError(t, tx.Commit())
	return team.ID
}

func insertTestWeek(t *testing.T, db *sqlx.DB, leagueID int64, number int, format league.Format) *league.Week {
	t.Helper()
	w := &league.Week{
		LeagueID:   leagueID,
		WeekNumber: number,
		Format:     format,
		BestOfN:    3,
		Status:     league.WeekSetup,
	}
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, NewWeekStore(db).CreateWeek(context.Background(), tx, w))
	require.NoError(t, tx.Commit())
	return w
}
