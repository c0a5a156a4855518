package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/avandever/keytracker-sub000/internal/decks"
	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type SealedService struct {
	db       *sqlx.DB
	weeks    *store.WeekStore
	teams    *store.TeamStore
	deckDB   *store.DeckStore
	leagues  *store.LeagueStore
	resolver decks.Resolver
}

func NewSealedService(db *sqlx.DB, weeks *store.WeekStore, teams *store.TeamStore, deckDB *store.DeckStore, leagues *store.LeagueStore, resolver decks.Resolver) *SealedService {
	return &SealedService{db: db, weeks: weeks, teams: teams, deckDB: deckDB, leagues: leagues, resolver: resolver}
}

// GeneratePools draws decks_per_player decks for every league member.
// Draws prefer pairwise-disjoint pools and only duplicate when the
// filtered universe is smaller than total demand. The universe fetch
// and deck snapshots happen before the transaction begins.
func (s *SealedService) GeneratePools(ctx context.Context, l *league.League, week *league.Week) error {
	if !week.Format.IsSealed() {
		return league.InvalidState("week format has no sealed pools")
	}
	if week.Status != league.WeekSetup && week.Status != league.WeekDeckSelection {
		return league.InvalidState("pools can only be generated before selections open or while empty")
	}
	count, err := s.weeks.CountSelections(ctx, week.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return league.InvalidState("selections already exist for this week")
	}
	if week.DecksPerPlayer == nil || *week.DecksPerPlayer < 1 {
		return league.Validation("decks_per_player is not configured")
	}

	members, err := s.teams.GetMembersByLeague(ctx, l.ID)
	if err != nil {
		return err
	}
	userIDs := make([]uuid.UUID, len(members))
	for i, m := range members {
		userIDs[i] = m.UserID
	}

	entries, err := s.drawPools(ctx, week, userIDs, nil)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.weeks.InsertPoolEntriesTx(ctx, tx, entries); err != nil {
		return fmt.Errorf("failed to insert pool entries: %w", err)
	}
	week.SealedPoolsGenerated = true
	if err := s.weeks.UpdateWeek(ctx, tx, week); err != nil {
		return err
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, l.ID, actor, "generate_sealed_pools", map[string]any{"week": week.ID}); err != nil {
		return err
	}
	return tx.Commit()
}

// RegeneratePools rebuilds pools for just the given users, clearing
// their submitted selections. Other users' pools are untouched.
func (s *SealedService) RegeneratePools(ctx context.Context, l *league.League, week *league.Week, userIDs []uuid.UUID) error {
	if !week.Format.IsSealed() {
		return league.InvalidState("week format has no sealed pools")
	}
	if week.Status != league.WeekDeckSelection && week.Status != league.WeekTeamPaired {
		return league.InvalidState("pools can only be regenerated while selection is open")
	}
	if !week.SealedPoolsGenerated {
		return league.InvalidState("pools have not been generated")
	}
	if len(userIDs) == 0 {
		return league.Validation("no users given")
	}

	// Keep untouched users' decks out of the fresh draws when the
	// universe allows it.
	existing, err := s.weeks.GetPoolEntries(ctx, week.ID)
	if err != nil {
		return err
	}
	regen := make(map[uuid.UUID]bool, len(userIDs))
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		regen[id] = true
		ids[i] = id.String()
	}
	reserved := make(map[string]bool)
	for _, e := range existing {
		if !regen[e.UserID] {
			reserved[fmt.Sprint(e.DeckID)] = true
		}
	}

	entries, err := s.drawPools(ctx, week, userIDs, reserved)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.weeks.DeletePoolForUsersTx(ctx, tx, week.ID, ids); err != nil {
		return err
	}
	if err := s.weeks.DeleteSelectionsForUsersTx(ctx, tx, week.ID, ids); err != nil {
		return err
	}
	if err := s.weeks.InsertPoolEntriesTx(ctx, tx, entries); err != nil {
		return fmt.Errorf("failed to insert pool entries: %w", err)
	}
	actor, _ := middleware.GetUserIDFromContext(ctx)
	if err := auditLog(ctx, tx, s.leagues, l.ID, actor, "regenerate_sealed_pools", map[string]any{"week": week.ID, "users": ids}); err != nil {
		return err
	}
	return tx.Commit()
}

// drawPools fetches the filtered universe, snapshots every candidate
// deck, and deals pools. reserved deck ids (stringified) are skipped
// until the universe runs short.
func (s *SealedService) drawPools(ctx context.Context, week *league.Week, userIDs []uuid.UUID, reserved map[string]bool) ([]league.SealedPoolEntry, error) {
	perPlayer := *week.DecksPerPlayer
	universe, err := s.resolver.Universe(ctx, decks.UniverseFilter{
		AllowedSets: week.AllowedSetList(),
		NoKeycheat:  week.NoKeycheat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deck universe: %w", err)
	}
	if len(universe) == 0 {
		return nil, league.Validation("no decks match the week's filters")
	}

	for i := range universe {
		if err := s.deckDB.UpsertDeck(ctx, &universe[i]); err != nil {
			return nil, fmt.Errorf("failed to snapshot deck: %w", err)
		}
	}

	rand.Shuffle(len(universe), func(i, j int) {
		universe[i], universe[j] = universe[j], universe[i]
	})

	demand := len(userIDs) * perPlayer
	available := make([]decks.Deck, 0, len(universe))
	for _, d := range universe {
		if reserved == nil || !reserved[fmt.Sprint(d.ID)] {
			available = append(available, d)
		}
	}

	entries := make([]league.SealedPoolEntry, 0, demand)
	cursor := 0
	// take prefers unseen decks; once the disjoint supply is exhausted
	// it falls back to the full universe so duplicates only appear
	// across players, never inside one player's pool.
	take := func(used map[int64]bool) int64 {
		for tries := 0; tries < 2; tries++ {
			for cursor < len(available) {
				d := available[cursor]
				cursor++
				if !used[d.ID] {
					return d.ID
				}
			}
			cursor = 0
			rand.Shuffle(len(universe), func(i, j int) {
				universe[i], universe[j] = universe[j], universe[i]
			})
			available = universe
		}
		d := available[cursor%len(available)]
		cursor++
		return d.ID
	}

	for _, userID := range userIDs {
		used := make(map[int64]bool, perPlayer)
		for k := 0; k < perPlayer; k++ {
			deckID := take(used)
			used[deckID] = true
			entries = append(entries, league.SealedPoolEntry{
				WeekID: week.ID,
				UserID: userID,
				DeckID: deckID,
			})
		}
	}
	return entries, nil
}
