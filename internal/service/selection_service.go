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

// SelectionService handles whole-deck selections for the archon-style
// formats. Alliance pods go through AllianceService instead.
type SelectionService struct {
	db       *sqlx.DB
	weeks    *store.WeekStore
	teams    *store.TeamStore
	deckDB   *store.DeckStore
	leagues  *store.LeagueStore
	resolver decks.Resolver
	checker  *ConstraintChecker
	thief    *ThiefService
	league   *LeagueService
}

func NewSelectionService(db *sqlx.DB, weeks *store.WeekStore, teams *store.TeamStore, deckDB *store.DeckStore, leagues *store.LeagueStore, resolver decks.Resolver, checker *ConstraintChecker, thiefService *ThiefService, leagueService *LeagueService) *SelectionService {
	return &SelectionService{db: db, weeks: weeks, teams: teams, deckDB: deckDB, leagues: leagues, resolver: resolver, checker: checker, thief: thiefService, league: leagueService}
}

type SubmitSelectionInput struct {
	SlotNumber int    `json:"slot_number"`
	DeckRef    string `json:"deck,omitempty"`
	DeckID     *int64 `json:"deck_id,omitempty"`
}

// SubmitSelection fills one selection slot. The full pending set is
// re-checked against the week's constraints before anything commits,
// so a submission that would break set or house diversity fails even
// when the new deck is individually fine.
func (s *SelectionService) SubmitSelection(ctx context.Context, leagueID, weekID int64, input SubmitSelectionInput) (*league.DeckSelection, error) {
	actor, week, err := s.selectionWeek(ctx, leagueID, weekID)
	if err != nil {
		return nil, err
	}
	if week.Format.IsAlliance() {
		return nil, league.Validation("alliance weeks use the alliance-selection endpoint")
	}
	slots := week.Format.SlotsPerUser()
	if input.SlotNumber < 1 || input.SlotNumber > slots {
		return nil, league.Validation(fmt.Sprintf("slot number must be between 1 and %d", slots))
	}

	deck, err := s.resolveInput(ctx, week, actor, input)
	if err != nil {
		return nil, err
	}
	if err := s.deckDB.UpsertDeck(ctx, deck); err != nil {
		return nil, err
	}

	existing, err := s.weeks.GetSelectionsForUser(ctx, weekID, actor)
	if err != nil {
		return nil, err
	}
	pending := []SelectedDeck{{Slot: input.SlotNumber, Deck: *deck}}
	var keepIDs []int64
	for _, sel := range existing {
		if sel.SlotNumber == input.SlotNumber {
			continue
		}
		keepIDs = append(keepIDs, sel.DeckID)
		pending = append(pending, SelectedDeck{Slot: sel.SlotNumber})
	}
	if len(keepIDs) > 0 {
		kept, err := s.deckDB.GetDecksByIDs(ctx, keepIDs)
		if err != nil {
			return nil, err
		}
		for i := range pending[1:] {
			idx := i + 1
			for _, sel := range existing {
				if sel.SlotNumber == pending[idx].Slot {
					pending[idx].Deck = kept[sel.DeckID]
				}
			}
		}
	}

	if err := s.checker.Check(ctx, week, actor, pending); err != nil {
		return nil, err
	}
	if week.Format == league.Thief {
		if err := s.checkThiefPool(ctx, leagueID, week, actor, deck.ID); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sel := &league.DeckSelection{WeekID: &weekID, UserID: actor, SlotNumber: input.SlotNumber, DeckID: deck.ID}
	if err := s.weeks.UpsertSelectionTx(ctx, tx, sel); err != nil {
		return nil, err
	}
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "submit_deck_selection", map[string]any{"week": weekID, "slot": input.SlotNumber, "deck": deck.ID}); err != nil {
		return nil, err
	}
	return sel, tx.Commit()
}

// RemoveSelection clears a slot while the week is still editable.
func (s *SelectionService) RemoveSelection(ctx context.Context, leagueID, weekID int64, slotNumber int) error {
	actor, week, err := s.selectionWeek(ctx, leagueID, weekID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.weeks.DeleteSelectionTx(ctx, tx, week.ID, actor, slotNumber); err != nil {
		return err
	}
	if err := auditLog(ctx, tx, s.leagues, leagueID, actor, "remove_deck_selection", map[string]any{"week": weekID, "slot": slotNumber}); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSelections lists a week's selections, admin or participant view.
func (s *SelectionService) GetSelections(ctx context.Context, weekID int64) ([]league.DeckSelection, error) {
	return s.weeks.GetSelections(ctx, weekID)
}

func (s *SelectionService) selectionWeek(ctx context.Context, leagueID, weekID int64) (uuid.UUID, *league.Week, error) {
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

// resolveInput turns the request into a deck snapshot. Thief and
// sealed weeks select from pools by id; open formats take a deck URL
// or source id through the resolver.
func (s *SelectionService) resolveInput(ctx context.Context, week *league.Week, actor uuid.UUID, input SubmitSelectionInput) (*decks.Deck, error) {
	if input.DeckID != nil {
		deck, err := s.deckDB.GetDeck(ctx, *input.DeckID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, league.NotFound("deck")
		}
		return deck, err
	}
	if input.DeckRef == "" {
		return nil, league.Validation("a deck reference or deck id is required")
	}
	if week.Format == league.Thief {
		return nil, league.Validation("thief selections must reference a pool deck id")
	}
	deck, err := s.resolver.Resolve(ctx, input.DeckRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve deck: %w", err)
	}
	return deck, nil
}

// checkThiefPool enforces that the deck sits in the user's post-steal
// pool and no teammate has already claimed it.
func (s *SelectionService) checkThiefPool(ctx context.Context, leagueID int64, week *league.Week, actor uuid.UUID, deckID int64) error {
	pool, err := s.thief.PoolForUser(ctx, leagueID, week.ID, actor)
	if err != nil {
		return err
	}
	inPool := false
	for _, id := range pool {
		if id == deckID {
			inPool = true
			break
		}
	}
	if !inPool {
		return league.ConstraintViolation("thief_pool", deckID)
	}

	member, err := s.teams.GetMemberTeam(ctx, leagueID, actor)
	if err != nil {
		return err
	}
	teammates, err := s.teams.GetMembers(ctx, member.TeamID)
	if err != nil {
		return err
	}
	sels, err := s.weeks.GetSelections(ctx, week.ID)
	if err != nil {
		return err
	}
	onTeam := make(map[uuid.UUID]bool, len(teammates))
	for _, tm := range teammates {
		onTeam[tm.UserID] = true
	}
	for _, sel := range sels {
		if sel.UserID != actor && onTeam[sel.UserID] && sel.DeckID == deckID {
			return league.ConstraintViolation("thief_pool_taken", deckID)
		}
	}
	return nil
}
