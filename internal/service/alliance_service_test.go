package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allianceFixture opens an alliance week with one three-person team
// and three resolvable decks carrying distinct house triples.
func allianceFixture(t *testing.T, e *testEnv, configure func(*WeekInput)) (*league.League, *league.Week, uuid.UUID, [3]string) {
	t.Helper()
	admin := e.createUser(t, "admin")
	l := e.createLeague(t, admin, 3, 2)
	player := e.createUser(t, "builder")
	e.seedTeam(t, l.ID, "Team A", player, e.createUser(t, "a2"), e.createUser(t, "a3"))
	e.seedTeam(t, l.ID, "Team B", e.createUser(t, "b1"), e.createUser(t, "b2"), e.createUser(t, "b3"))

	refs := [3]string{
		e.resolver.add(stubDeck("pod-1", "CotA", 60, "Brobnar", "Dis", "Logos")),
		e.resolver.add(stubDeck("pod-2", "CotA", 60, "Mars", "Shadows", "Untamed")),
		e.resolver.add(stubDeck("pod-3", "CotA", 60, "Sanctum", "Saurian", "Dis")),
	}

	input := WeekInput{WeekNumber: 1, Format: league.Alliance}
	if configure != nil {
		configure(&input)
	}
	week, err := e.weekSvc.CreateWeek(asUser(admin), l.ID, input)
	require.NoError(t, err)
	week, err = e.weekSvc.OpenDeckSelection(asUser(admin), l.ID, week.ID)
	require.NoError(t, err)
	return l, week, player, refs
}

func podInputs(refs [3]string, houses [3]string) [3]PodInput {
	var pods [3]PodInput
	for i := range refs {
		pods[i] = PodInput{DeckRef: refs[i], House: houses[i]}
	}
	return pods
}

func TestSubmitAllianceStoresPods(t *testing.T) {
	e := newTestEnv(t)
	l, week, player, refs := allianceFixture(t, e, nil)

	err := e.allianceSvc.SubmitAlliance(asUser(player), l.ID, week.ID, AllianceInput{
		Pods: podInputs(refs, [3]string{"Brobnar", "Mars", "Saurian"}),
	})
	require.NoError(t, err)

	rows, err := e.allianceSvc.GetAlliance(context.Background(), week.ID, player)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, league.PodSlotPod, row.SlotType)
		assert.Equal(t, i+1, row.SlotNumber)
		require.NotNil(t, row.HouseName)
	}

	// Resubmission replaces the build wholesale.
	err = e.allianceSvc.SubmitAlliance(asUser(player), l.ID, week.ID, AllianceInput{
		Pods: podInputs(refs, [3]string{"Dis", "Shadows", "Sanctum"}),
	})
	require.NoError(t, err)
	rows, err = e.allianceSvc.GetAlliance(context.Background(), week.ID, player)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Dis", *rows[0].HouseName)

	require.NoError(t, e.allianceSvc.ClearAlliance(asUser(player), l.ID, week.ID))
	rows, err = e.allianceSvc.GetAlliance(context.Background(), week.ID, player)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSubmitAllianceHouseRules(t *testing.T) {
	e := newTestEnv(t)
	l, week, player, refs := allianceFixture(t, e, nil)

	// The house must come from its own deck.
	err := e.allianceSvc.SubmitAlliance(asUser(player), l.ID, week.ID, AllianceInput{
		Pods: podInputs(refs, [3]string{"Mars", "Brobnar", "Saurian"}),
	})
	le := requireErrKind(t, err, league.ErrConstraintViolation)
	assert.Equal(t, "alliance_house", le.Detail["rule"])

	// Houses are pairwise distinct across pods.
	err = e.allianceSvc.SubmitAlliance(asUser(player), l.ID, week.ID, AllianceInput{
		Pods: podInputs(refs, [3]string{"Dis", "Mars", "Dis"}),
	})
	le = requireErrKind(t, err, league.ErrConstraintViolation)
	assert.Equal(t, "alliance_house_distinct", le.Detail["rule"])
}

func TestSubmitAllianceTokenProphecy(t *testing.T) {
	e := newTestEnv(t)
	l, week, player, refs := allianceFixture(t, e, nil)

	tokenDeck := stubDeck("pod-token", "AES", 58, "Ekwidon", "Geistoid", "Skyborn")
	tokenDeck.NeedsToken = true
	refs[2] = e.resolver.add(tokenDeck)

	// A token pod without a designation is incomplete.
	err := e.allianceSvc.SubmitAlliance(asUser(player), l.ID, week.ID, AllianceInput{
		Pods: podInputs(refs, [3]string{"Brobnar", "Mars", "Ekwidon"}),
	})
	requireErrKind(t, err, league.ErrValidationFailed)

	err = e.allianceSvc.SubmitAlliance(asUser(player), l.ID, week.ID, AllianceInput{
		Pods:      podInputs(refs, [3]string{"Brobnar", "Mars", "Ekwidon"}),
		TokenDeck: utils.Ptr(2),
	})
	require.NoError(t, err)

	rows, err := e.allianceSvc.GetAlliance(context.Background(), week.ID, player)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	var tokenRows int
	for _, row := range rows {
		if row.SlotType == league.PodSlotToken {
			tokenRows++
		}
	}
	assert.Equal(t, 1, tokenRows)
}

func TestSubmitAllianceRestrictedList(t *testing.T) {
	e := newTestEnv(t)
	l, week, player, refs := allianceFixture(t, e, func(in *WeekInput) {
		in.RestrictedListVersionID = utils.Ptr(int64(7))
	})
	e.resolver.restricted = []string{"Timetraveller"}
	e.resolver.cards["pod-2"] = []string{"Anomaly Exploiter", "Timetraveller"}

	err := e.allianceSvc.SubmitAlliance(asUser(player), l.ID, week.ID, AllianceInput{
		Pods: podInputs(refs, [3]string{"Brobnar", "Mars", "Saurian"}),
	})
	le := requireErrKind(t, err, league.ErrConstraintViolation)
	assert.Equal(t, "restricted_card", le.Detail["rule"])
	assert.Equal(t, "Timetraveller", le.Detail["card"])

	e.resolver.cards["pod-2"] = []string{"Anomaly Exploiter"}
	require.NoError(t, e.allianceSvc.SubmitAlliance(asUser(player), l.ID, week.ID, AllianceInput{
		Pods: podInputs(refs, [3]string{"Brobnar", "Mars", "Saurian"}),
	}))
}

func TestSealedAlliancePodsComeFromPool(t *testing.T) {
	e := newTestEnv(t)
	admin := e.createUser(t, "admin")
	l := e.createLeague(t, admin, 2, 2)
	player := e.createUser(t, "builder")
	teammate := e.createUser(t, "a2")
	e.seedTeam(t, l.ID, "Team A", player, teammate)
	e.seedTeam(t, l.ID, "Team B", e.createUser(t, "b1"), e.createUser(t, "b2"))

	for i := 0; i < 16; i++ {
		e.resolver.universe = append(e.resolver.universe, stubDeck(fmt.Sprintf("sa-%d", i), "CotA", 60))
	}
	week, err := e.weekSvc.CreateWeek(asUser(admin), l.ID, WeekInput{
		WeekNumber:     1,
		Format:         league.SealedAlliance,
		DecksPerPlayer: utils.Ptr(3),
	})
	require.NoError(t, err)
	require.NoError(t, e.sealedSvc.GeneratePools(asUser(admin), l, week))
	week, err = e.weekSvc.OpenDeckSelection(asUser(admin), l.ID, week.ID)
	require.NoError(t, err)

	ctx := context.Background()
	pool, err := e.weeks.GetPoolForUser(ctx, week.ID, player)
	require.NoError(t, err)
	require.Len(t, pool, 3)

	var pods [3]PodInput
	for i, entry := range pool {
		d, err := e.deckDB.GetDeck(ctx, entry.DeckID)
		require.NoError(t, err)
		pods[i] = PodInput{DeckID: &pool[i].DeckID, House: d.HouseList()[i]}
	}
	require.NoError(t, e.allianceSvc.SubmitAlliance(asUser(player), l.ID, week.ID, AllianceInput{Pods: pods}))

	// A deck outside the caller's pool is rejected even when it exists.
	other, err := e.weeks.GetPoolForUser(ctx, week.ID, teammate)
	require.NoError(t, err)
	require.NotEmpty(t, other)
	pods[2] = PodInput{DeckID: &other[0].DeckID, House: "Logos"}
	err = e.allianceSvc.SubmitAlliance(asUser(player), l.ID, week.ID, AllianceInput{Pods: pods})
	le := requireErrKind(t, err, league.ErrConstraintViolation)
	assert.Equal(t, "sealed_pool", le.Detail["rule"])
}
