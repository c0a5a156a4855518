package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avandever/keytracker-sub000/internal/decks"
	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AllianceService validates and stores three-pod alliance builds.
// Submission is atomic: the pod rows plus any token and prophecy rows
// replace the user's previous build in one transaction.
type AllianceService struct {
	db       *sqlx.DB
	weeks    *store.WeekStore
	teams    *store.TeamStore
	deckDB   *store.DeckStore
	leagues  *store.LeagueStore
	resolver decks.Resolver
	league   *LeagueService
}

func NewAllianceService(db *sqlx.DB, weeks *store.WeekStore, teams *store.TeamStore, deckDB *store.DeckStore, leagues *store.LeagueStore, resolver decks.Resolver, leagueService *LeagueService) *AllianceService {
	return &AllianceService{db: db, weeks: weeks, teams: teams, deckDB: deckDB, leagues: leagues, resolver: resolver, league: leagueService}
}

type PodInput struct {
	DeckRef string `json:"deck,omitempty"`
	DeckID  *int64 `json:"deck_id,omitempty"`
	House   string `json:"house"`
}

type AllianceInput struct {
	Pods         [3]PodInput `json:"pods"`
	TokenDeck    *int        `json:"token_deck,omitempty"`
	ProphecyDeck *int        `json:"prophecy_deck,omitempty"`
}

// SubmitAlliance replaces the caller's alliance build for the week.
// Pod houses must be legal for their decks and pairwise distinct;
// token and prophecy designations are required when any pod deck's
// expansion calls for them; sealed alliance pods must come from the
// caller's sealed pool; decks carrying restricted cards are rejected
// when the week pins a restricted-list version.
func (s *AllianceService) SubmitAlliance(ctx context.Context, leagueID, weekID int64, input AllianceInput) error {
	actor, week, err := s.allianceWeek(ctx, leagueID, weekID)
	if err != nil {
		return err
	}

	pods := make([]decks.Deck, 3)
	houses := make(map[string]bool, 3)
	for i, p := range input.Pods {
		deck, err := s.resolvePod(ctx, week, p)
		if err != nil {
			return err
		}
		if p.House == "" || !deck.HasHouse(p.House) {
			return league.ConstraintViolation("alliance_house", deck.ID).
				WithDetail("house", p.House)
		}
		if houses[p.House] {
			return league.ConstraintViolation("alliance_house_distinct", deck.ID).
				WithDetail("house", p.House)
		}
		houses[p.House] = true
		pods[i] = *deck
	}

	needsToken, needsProphecy := false, false
	for _, d := range pods {
		needsToken = needsToken || d.NeedsToken
		needsProphecy = needsProphecy || d.NeedsProphecy
	}
	if needsToken && (input.TokenDeck == nil || *input.TokenDeck < 0 || *input.TokenDeck > 2) {
		return league.Validation("a token deck must be designated among the three pods")
	}
	if needsProphecy && (input.ProphecyDeck == nil || *input.ProphecyDeck < 0 || *input.ProphecyDeck > 2) {
		return league.Validation("a prophecy deck must be designated among the three pods")
	}

	if week.Format.IsSealed() {
		if err := s.checkSealedPods(ctx, week, actor, pods); err != nil {
			return err
		}
	}
	if week.RestrictedListVersionID != nil {
		if err := s.checkRestricted(ctx, week, pods); err != nil {
			return err
		}
	}

	rows := make([]league.AlliancePodSelection, 0, 5)
	for i, d := range pods {
		house := input.Pods[i].House
		rows = append(rows, league.AlliancePodSelection{
			WeekID: weekID, UserID: actor, SlotType: league.PodSlotPod,
			SlotNumber: i + 1, DeckID: d.ID, HouseName: &house,
		})
	}
	if needsToken {
		rows = append(rows, league.AlliancePodSelection{
			WeekID: weekID, UserID: actor, SlotType: league.PodSlotToken,
			SlotNumber: 1, DeckID: pods[*input.TokenDeck].ID,
		})
	}
	if needsProphecy {
		rows = append(rows, league.AlliancePodSelection{
			WeekID: weekID, UserID: actor, SlotType: league.PodSlotProphecy,
			SlotNumber: 1, DeckID: pods[*input.ProphecyDeck].ID,
		})
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.weeks.ReplaceAllianceSelectionTx(ctx, tx, weekID, actor, rows); err != nil {
		return err
	}
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "submit_alliance", map[string]any{"week": weekID}); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearAlliance drops the caller's build for the week.
func (s *AllianceService) ClearAlliance(ctx context.Context, leagueID, weekID int64) error {
	actor, _, err := s.allianceWeek(ctx, leagueID, weekID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.weeks.ReplaceAllianceSelectionTx(ctx, tx, weekID, actor, nil); err != nil {
		return err
	}
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "clear_alliance", map[string]any{"week": weekID}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *AllianceService) GetAlliance(ctx context.Context, weekID int64, userID uuid.UUID) ([]league.AlliancePodSelection, error) {
	return s.weeks.GetAllianceSelectionsForUser(ctx, weekID, userID)
}

func (s *AllianceService) allianceWeek(ctx context.Context, leagueID, weekID int64) (uuid.UUID, *league.Week, error) {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, nil, league.Forbidden("login required")
	}
	week, err := s.weeks.GetWeek(ctx, weekID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, nil, league.NotFound("week")
	}
	if err != nil {
		return uuid.Nil, nil, err
	}
	if week.LeagueID != leagueID {
		return uuid.Nil, nil, league.NotFound("week")
	}
	if !week.Format.IsAlliance() {
		return uuid.Nil, nil, league.InvalidState("not an alliance week")
	}
	if week.Status != league.WeekDeckSelection && week.Status != league.WeekTeamPaired {
		return uuid.Nil, nil, league.InvalidState("deck selection is not open")
	}
	if _, err := s.teams.GetMemberTeam(ctx, leagueID, actor); errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, nil, league.Forbidden("not a member of any team")
	} else if err != nil {
		return uuid.Nil, nil, err
	}
	return actor, week, nil
}

func (s *AllianceService) resolvePod(ctx context.Context, week *league.Week, p PodInput) (*decks.Deck, error) {
	if p.DeckID != nil {
		deck, err := s.deckDB.GetDeck(ctx, *p.DeckID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, league.NotFound("deck")
		}
		return deck, err
	}
	if p.DeckRef == "" {
		return nil, league.Validation("each pod needs a deck reference or deck id")
	}
	deck, err := s.resolver.Resolve(ctx, p.DeckRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve deck: %w", err)
	}
	if err := s.deckDB.UpsertDeck(ctx, deck); err != nil {
		return nil, err
	}
	return deck, nil
}

func (s *AllianceService) checkSealedPods(ctx context.Context, week *league.Week, actor uuid.UUID, pods []decks.Deck) error {
	pool, err := s.weeks.GetPoolForUser(ctx, week.ID, actor)
	if err != nil {
		return err
	}
	inPool := make(map[int64]bool, len(pool))
	for _, e := range pool {
		inPool[e.DeckID] = true
	}
	for _, d := range pods {
		if !inPool[d.ID] {
			return league.ConstraintViolation("sealed_pool", d.ID)
		}
	}
	return nil
}

// checkRestricted pulls the banned-card list for the week's pinned
// version and rejects any pod deck containing one.
func (s *AllianceService) checkRestricted(ctx context.Context, week *league.Week, pods []decks.Deck) error {
	banned, err := s.resolver.RestrictedCards(ctx, *week.RestrictedListVersionID)
	if err != nil {
		return fmt.Errorf("failed to load restricted list: %w", err)
	}
	if len(banned) == 0 {
		return nil
	}
	bannedSet := make(map[string]bool, len(banned))
	for _, c := range banned {
		bannedSet[c] = true
	}
	for _, d := range pods {
		cards, err := s.resolver.CardNames(ctx, d.SourceRef)
		if err != nil {
			return fmt.Errorf("failed to load deck cards: %w", err)
		}
		for _, c := range cards {
			if bannedSet[c] {
				return league.ConstraintViolation("restricted_card", d.ID).
					WithDetail("card", c)
			}
		}
	}
	return nil
}
