package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type thiefFixture struct {
	l      *league.League
	week   *league.Week
	admin  uuid.UUID
	teamA  int64
	teamB  int64
	capA   uuid.UUID
	capB   uuid.UUID
	aUsers []uuid.UUID
	bUsers []uuid.UUID
}

// newThiefFixture builds a two-team thief week in the curation phase
// and registers 2*teamSize decks with the resolver (refs tA-1.., tB-1..).
func newThiefFixture(t *testing.T, e *testEnv, teamSize int) *thiefFixture {
	t.Helper()
	f := &thiefFixture{admin: e.createUser(t, "admin")}
	f.l = e.createLeague(t, f.admin, teamSize, 2)

	for i := 0; i < teamSize; i++ {
		f.aUsers = append(f.aUsers, e.createUser(t, fmt.Sprintf("a%d", i+1)))
		f.bUsers = append(f.bUsers, e.createUser(t, fmt.Sprintf("b%d", i+1)))
		e.resolver.add(stubDeck(fmt.Sprintf("tA-%d", i+1), "CotA", 60))
		e.resolver.add(stubDeck(fmt.Sprintf("tB-%d", i+1), "CotA", 60))
	}
	f.capA, f.capB = f.aUsers[0], f.bUsers[0]
	f.teamA = e.seedTeam(t, f.l.ID, "Team A", f.capA, f.aUsers[1:]...)
	f.teamB = e.seedTeam(t, f.l.ID, "Team B", f.capB, f.bUsers[1:]...)

	week, err := e.weekSvc.CreateWeek(asUser(f.admin), f.l.ID, WeekInput{WeekNumber: 1, Format: league.Thief})
	require.NoError(t, err)
	week, err = e.weekSvc.OpenDeckSelection(asUser(f.admin), f.l.ID, week.ID)
	require.NoError(t, err)
	require.Equal(t, league.WeekCuration, week.Status)
	f.week = week
	return f
}

// curateAll fills every slot for both teams.
func (f *thiefFixture) curateAll(t *testing.T, e *testEnv) {
	t.Helper()
	for slot := 1; slot <= f.l.TeamSize; slot++ {
		_, err := e.thiefSvc.SubmitCurationDeck(asUser(f.capA), f.l.ID, f.week.ID, f.teamA, slot, fmt.Sprintf("tA-%d", slot))
		require.NoError(t, err)
		_, err = e.thiefSvc.SubmitCurationDeck(asUser(f.capB), f.l.ID, f.week.ID, f.teamB, slot, fmt.Sprintf("tB-%d", slot))
		require.NoError(t, err)
	}
}

func TestCurationValidation(t *testing.T) {
	e := newTestEnv(t)
	f := newThiefFixture(t, e, 2)

	// Only the captain curates for a team.
	_, err := e.thiefSvc.SubmitCurationDeck(asUser(f.aUsers[1]), f.l.ID, f.week.ID, f.teamA, 1, "tA-1")
	requireErrKind(t, err, league.ErrForbidden)

	// Slots run 1..T.
	_, err = e.thiefSvc.SubmitCurationDeck(asUser(f.capA), f.l.ID, f.week.ID, f.teamA, 3, "tA-1")
	requireErrKind(t, err, league.ErrValidationFailed)

	_, err = e.thiefSvc.SubmitCurationDeck(asUser(f.capA), f.l.ID, f.week.ID, f.teamA, 1, "tA-1")
	require.NoError(t, err)

	// Same deck cannot sit in two slots.
	_, err = e.thiefSvc.SubmitCurationDeck(asUser(f.capA), f.l.ID, f.week.ID, f.teamA, 2, "tA-1")
	requireErrKind(t, err, league.ErrValidationFailed)

	// Pairings can be generated mid-curation, but the steal phase is
	// gated until every team has a full slate.
	_, err = e.weekSvc.GenerateTeamPairings(asUser(f.admin), f.l.ID, f.week.ID)
	require.NoError(t, err)
	_, err = e.weekSvc.AdvanceToThief(asUser(f.admin), f.l.ID, f.week.ID, nil)
	requireErrKind(t, err, league.ErrInvalidState)
}

func TestThiefQuotasFloorCeiling(t *testing.T) {
	e := newTestEnv(t)
	f := newThiefFixture(t, e, 3)
	f.curateAll(t, e)

	_, err := e.weekSvc.GenerateTeamPairings(asUser(f.admin), f.l.ID, f.week.ID)
	require.NoError(t, err)
	week, err := e.weekSvc.AdvanceToThief(asUser(f.admin), f.l.ID, f.week.ID, &f.teamA)
	require.NoError(t, err)
	require.NotNil(t, week.ThiefFloorTeamID)
	assert.Equal(t, f.teamA, *week.ThiefFloorTeamID)

	ctx := context.Background()
	bCuration, err := e.thiefDB.GetCurationDecksForTeam(ctx, f.week.ID, f.teamB)
	require.NoError(t, err)
	require.Len(t, bCuration, 3)

	// Floor team steals floor(3/2) = 1; two targets is off quota.
	err = e.thiefSvc.SubmitSteals(asUser(f.capA), f.l.ID, f.week.ID, f.teamA, []int64{bCuration[0].ID, bCuration[1].ID})
	le := requireErrKind(t, err, league.ErrValidationFailed)
	assert.Equal(t, 1, le.Detail["quota"])

	require.NoError(t, e.thiefSvc.SubmitSteals(asUser(f.capA), f.l.ID, f.week.ID, f.teamA, []int64{bCuration[0].ID}))

	// Non-floor team steals ceil(3/2) = 2.
	aCuration, err := e.thiefDB.GetCurationDecksForTeam(ctx, f.week.ID, f.teamA)
	require.NoError(t, err)
	err = e.thiefSvc.SubmitSteals(asUser(f.capB), f.l.ID, f.week.ID, f.teamB, []int64{aCuration[0].ID})
	le = requireErrKind(t, err, league.ErrValidationFailed)
	assert.Equal(t, 2, le.Detail["quota"])

	// Stealing your own curation is rejected.
	err = e.thiefSvc.SubmitSteals(asUser(f.capB), f.l.ID, f.week.ID, f.teamB, []int64{bCuration[1].ID, bCuration[2].ID})
	requireErrKind(t, err, league.ErrValidationFailed)

	require.NoError(t, e.thiefSvc.SubmitSteals(asUser(f.capB), f.l.ID, f.week.ID, f.teamB, []int64{aCuration[0].ID, aCuration[1].ID}))
}

func TestThiefWeekFullFlow(t *testing.T) {
	e := newTestEnv(t)
	f := newThiefFixture(t, e, 2)
	f.curateAll(t, e)

	_, err := e.weekSvc.GenerateTeamPairings(asUser(f.admin), f.l.ID, f.week.ID)
	require.NoError(t, err)
	_, err = e.weekSvc.AdvanceToThief(asUser(f.admin), f.l.ID, f.week.ID, &f.teamA)
	require.NoError(t, err)

	ctx := context.Background()
	aCuration, err := e.thiefDB.GetCurationDecksForTeam(ctx, f.week.ID, f.teamA)
	require.NoError(t, err)
	bCuration, err := e.thiefDB.GetCurationDecksForTeam(ctx, f.week.ID, f.teamB)
	require.NoError(t, err)

	// end_thief is gated until both teams hit quota.
	require.NoError(t, e.thiefSvc.SubmitSteals(asUser(f.capA), f.l.ID, f.week.ID, f.teamA, []int64{bCuration[0].ID}))
	_, err = e.weekSvc.EndThief(asUser(f.admin), f.l.ID, f.week.ID)
	requireErrKind(t, err, league.ErrInvalidState)
	require.NoError(t, e.thiefSvc.SubmitSteals(asUser(f.capB), f.l.ID, f.week.ID, f.teamB, []int64{aCuration[0].ID}))

	week, err := e.weekSvc.EndThief(asUser(f.admin), f.l.ID, f.week.ID)
	require.NoError(t, err)
	assert.Equal(t, league.WeekDeckSelection, week.Status)

	// Team A keeps its unstolen deck and gains the one it stole.
	poolA, err := e.thiefSvc.PoolForUser(asUser(f.capA), f.l.ID, f.week.ID, f.capA)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{aCuration[1].DeckID, bCuration[0].DeckID}, poolA)

	poolB, err := e.thiefSvc.PoolForTeam(ctx, f.week.ID, f.teamB)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{bCuration[1].DeckID, aCuration[0].DeckID}, poolB)

	// Selections must come from the team pool.
	outside := bCuration[1].DeckID // still held by team B
	_, err = e.selectionSvc.SubmitSelection(asUser(f.capA), f.l.ID, f.week.ID, SubmitSelectionInput{SlotNumber: 1, DeckID: &outside})
	le := requireErrKind(t, err, league.ErrConstraintViolation)
	assert.Equal(t, "thief_pool", le.Detail["rule"])

	_, err = e.selectionSvc.SubmitSelection(asUser(f.capA), f.l.ID, f.week.ID, SubmitSelectionInput{SlotNumber: 1, DeckID: &poolA[0]})
	require.NoError(t, err)

	// A teammate cannot take the same deck.
	_, err = e.selectionSvc.SubmitSelection(asUser(f.aUsers[1]), f.l.ID, f.week.ID, SubmitSelectionInput{SlotNumber: 1, DeckID: &poolA[0]})
	le = requireErrKind(t, err, league.ErrConstraintViolation)
	assert.Equal(t, "thief_pool_taken", le.Detail["rule"])

	_, err = e.selectionSvc.SubmitSelection(asUser(f.aUsers[1]), f.l.ID, f.week.ID, SubmitSelectionInput{SlotNumber: 1, DeckID: &poolA[1]})
	require.NoError(t, err)
}

func TestFloorTeamRotatesAcrossThiefWeeks(t *testing.T) {
	e := newTestEnv(t)
	f := newThiefFixture(t, e, 2)
	f.curateAll(t, e)
	_, err := e.weekSvc.GenerateTeamPairings(asUser(f.admin), f.l.ID, f.week.ID)
	require.NoError(t, err)
	first, err := e.weekSvc.AdvanceToThief(asUser(f.admin), f.l.ID, f.week.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, first.ThiefFloorTeamID)

	week2, err := e.weekSvc.CreateWeek(asUser(f.admin), f.l.ID, WeekInput{WeekNumber: 2, Format: league.Thief})
	require.NoError(t, err)
	_, err = e.weekSvc.OpenDeckSelection(asUser(f.admin), f.l.ID, week2.ID)
	require.NoError(t, err)
	for slot := 1; slot <= f.l.TeamSize; slot++ {
		_, err := e.thiefSvc.SubmitCurationDeck(asUser(f.capA), f.l.ID, week2.ID, f.teamA, slot, fmt.Sprintf("tA-%d", slot))
		require.NoError(t, err)
		_, err = e.thiefSvc.SubmitCurationDeck(asUser(f.capB), f.l.ID, week2.ID, f.teamB, slot, fmt.Sprintf("tB-%d", slot))
		require.NoError(t, err)
	}
	_, err = e.weekSvc.GenerateTeamPairings(asUser(f.admin), f.l.ID, week2.ID)
	require.NoError(t, err)
	second, err := e.weekSvc.AdvanceToThief(asUser(f.admin), f.l.ID, week2.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, second.ThiefFloorTeamID)

	assert.NotEqual(t, *first.ThiefFloorTeamID, *second.ThiefFloorTeamID)
}
