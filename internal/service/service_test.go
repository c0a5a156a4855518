package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/avandever/keytracker-sub000/internal/decks"
	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/avandever/keytracker-sub000/internal/store"
	users "github.com/avandever/keytracker-sub000/internal/user"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

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

// stubResolver serves canned deck data so service tests never reach
// the network.
type stubResolver struct {
	decks      map[string]decks.Deck
	universe   []decks.Deck
	restricted []string
	cards      map[string][]string
}

func newStubResolver() *stubResolver {
	return &stubResolver{
		decks: make(map[string]decks.Deck),
		cards: make(map[string][]string),
	}
}

func (r *stubResolver) add(d decks.Deck) string {
	r.decks[d.SourceRef] = d
	return d.SourceRef
}

func (r *stubResolver) Resolve(ctx context.Context, ref string) (*decks.Deck, error) {
	d, ok := r.decks[ref]
	if !ok {
		return nil, fmt.Errorf("unknown deck %q", ref)
	}
	out := d
	return &out, nil
}

func (r *stubResolver) Universe(ctx context.Context, filter decks.UniverseFilter) ([]decks.Deck, error) {
	out := make([]decks.Deck, len(r.universe))
	copy(out, r.universe)
	return out, nil
}

func (r *stubResolver) RestrictedCards(ctx context.Context, versionID int64) ([]string, error) {
	return r.restricted, nil
}

func (r *stubResolver) CardNames(ctx context.Context, ref string) ([]string, error) {
	return r.cards[ref], nil
}

// stubDeck builds a deck fixture keyed by ref.
func stubDeck(ref, expansion string, sas int, houses ...string) decks.Deck {
	d := decks.Deck{
		SourceRef: ref,
		Name:      "Deck " + ref,
		Expansion: expansion,
		SAS:       sas,
		AERC:      sas,
	}
	if len(houses) == 0 {
		houses = []string{"Brobnar", "Dis", "Logos"}
	}
	d.SetHouses(houses)
	return d
}

// testEnv wires the full service graph over an in-memory database.
type testEnv struct {
	db       *sqlx.DB
	resolver *stubResolver

	leagues    *store.LeagueStore
	teams      *store.TeamStore
	weeks      *store.WeekStore
	matchups   *store.MatchupStore
	thiefDB    *store.ThiefStore
	deckDB     *store.DeckStore
	users      *store.UserStore
	drafts     *store.DraftStore
	standalone *store.StandaloneStore
	playoffDB  *store.PlayoffStore

	leagueSvc     *LeagueService
	draftSvc      *DraftService
	sealedSvc     *SealedService
	adaptiveSvc   *AdaptiveService
	matchupSvc    *MatchupService
	thiefSvc      *ThiefService
	weekSvc       *WeekService
	selectionSvc  *SelectionService
	allianceSvc   *AllianceService
	standingsSvc  *StandingsService
	standaloneSvc *StandaloneService
	playoffSvc    *PlayoffService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	e := &testEnv{
		db:         db,
		resolver:   newStubResolver(),
		leagues:    store.NewLeagueStore(db),
		teams:      store.NewTeamStore(db),
		weeks:      store.NewWeekStore(db),
		matchups:   store.NewMatchupStore(db),
		thiefDB:    store.NewThiefStore(db),
		deckDB:     store.NewDeckStore(db),
		users:      store.NewUserStore(db),
		drafts:     store.NewDraftStore(db),
		standalone: store.NewStandaloneStore(db),
		playoffDB:  store.NewPlayoffStore(db),
	}

	e.leagueSvc = NewLeagueService(db, e.leagues, e.teams, e.weeks)
	e.draftSvc = NewDraftService(db, e.drafts, e.leagues, e.teams, e.leagueSvc)
	e.sealedSvc = NewSealedService(db, e.weeks, e.teams, e.deckDB, e.leagues, e.resolver)
	e.adaptiveSvc = NewAdaptiveService(db, e.matchups, e.leagues)
	e.matchupSvc = NewMatchupService(db, e.matchups, e.teams, e.weeks, e.leagues, e.users, e.adaptiveSvc, e.leagueSvc)
	e.thiefSvc = NewThiefService(db, e.thiefDB, e.weeks, e.teams, e.matchups, e.deckDB, e.leagues, e.resolver, e.leagueSvc)
	e.weekSvc = NewWeekService(db, e.weeks, e.teams, e.leagues, e.matchups, e.leagueSvc, e.matchupSvc, e.thiefSvc)
	e.selectionSvc = NewSelectionService(db, e.weeks, e.teams, e.deckDB, e.leagues, e.resolver, NewConstraintChecker(e.weeks), e.thiefSvc, e.leagueSvc)
	e.allianceSvc = NewAllianceService(db, e.weeks, e.teams, e.deckDB, e.leagues, e.resolver, e.leagueSvc)
	e.standingsSvc = NewStandingsService(db, e.weeks, e.teams, e.matchups, e.leagueSvc)
	e.standaloneSvc = NewStandaloneService(db, e.standalone, e.matchups, e.weeks, e.deckDB, e.resolver, e.adaptiveSvc)
	e.playoffSvc = NewPlayoffService(db, e.playoffDB, e.leagues, e.teams, e.standingsSvc, e.leagueSvc)

	return e
}

func asUser(id uuid.UUID) context.Context {
	return context.WithValue(context.Background(), middleware.UserIDKey, id)
}

func (e *testEnv) createUser(t *testing.T, username string) uuid.UUID {
	t.Helper()
	u := &users.User{
		ID:       uuid.New(),
		Email:    username + "@example.com",
		Username: username,
	}
	require.NoError(t, e.users.CreateUser(context.Background(), u))
	return u.ID
}

func (e *testEnv) createLeague(t *testing.T, admin uuid.UUID, teamSize, numTeams int) *league.League {
	t.Helper()
	l, err := e.leagueSvc.CreateLeague(asUser(admin), CreateLeagueInput{
		Name:            "League " + uuid.NewString()[:8],
		TeamSize:        teamSize,
		NumTeams:        numTeams,
		WeekBonusPoints: 1,
	})
	require.NoError(t, err)
	return l
}

// seedTeam writes a roster directly, bypassing signups and the draft.
func (e *testEnv) seedTeam(t *testing.T, leagueID int64, name string, captain uuid.UUID, members ...uuid.UUID) int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := e.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	team := &league.Team{LeagueID: leagueID, Name: name}
	require.NoError(t, e.teams.CreateTeam(ctx, tx, team))
	require.NoError(t, e.teams.AddMember(ctx, tx, &league.TeamMember{TeamID: team.ID, UserID: captain, IsCaptain: true}))
	for _, m := range members {
		require.NoError(t, e.teams.AddMember(ctx, tx, &league.TeamMember{TeamID: team.ID, UserID: m}))
	}
	require.NoError(t, tx.Commit())
	return team.ID
}

func (e *testEnv) setLeagueStatus(t *testing.T, leagueID int64, status league.Status) {
	t.Helper()
	ctx := context.Background()
	tx, err := e.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, e.leagues.UpdateLeagueStatusTx(ctx, tx, leagueID, status))
	require.NoError(t, tx.Commit())
}

// requireErrKind asserts that err carries the given machine kind.
func requireErrKind(t *testing.T, err error, kind league.ErrorKind) *league.Error {
	t.Helper()
	require.Error(t, err)
	le, ok := league.AsError(err)
	require.True(t, ok, "expected a league error, got %v", err)
	require.Equal(t, kind, le.Kind, "unexpected error kind: %v", err)
	return le
}
