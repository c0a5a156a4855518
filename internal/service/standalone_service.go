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

// StandaloneService runs one-off matches outside any league. The
// creator shares the match token; whoever presents it becomes the
// opponent and the match reuses the normal game, strike, and bidding
// engines.
type StandaloneService struct {
	db         *sqlx.DB
	standalone *store.StandaloneStore
	matchups   *store.MatchupStore
	weeks      *store.WeekStore
	deckDB     *store.DeckStore
	resolver   decks.Resolver
	adaptive   *AdaptiveService
}

func NewStandaloneService(db *sqlx.DB, standalone *store.StandaloneStore, matchups *store.MatchupStore, weeks *store.WeekStore, deckDB *store.DeckStore, resolver decks.Resolver, adaptive *AdaptiveService) *StandaloneService {
	return &StandaloneService{db: db, standalone: standalone, matchups: matchups, weeks: weeks, deckDB: deckDB, resolver: resolver, adaptive: adaptive}
}

type CreateStandaloneInput struct {
	Format  league.Format `json:"format"`
	BestOfN int           `json:"best_of_n"`
}

func (s *StandaloneService) CreateMatch(ctx context.Context, input CreateStandaloneInput) (*league.StandaloneMatch, error) {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, league.Forbidden("login required")
	}
	if !input.Format.Valid() {
		return nil, league.Validation("unknown format")
	}
	bestOf := resolveBestOf(input.Format, input.BestOfN)
	if bestOf != 1 && bestOf != 3 && bestOf != 5 {
		return nil, league.Validation("best_of_n must be 1, 3, or 5")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m := &league.StandaloneMatch{
		Token:     uuid.New(),
		Format:    input.Format,
		BestOfN:   bestOf,
		CreatedBy: actor,
		Status:    league.StandaloneOpen,
	}
	if err := s.standalone.CreateMatchTx(ctx, tx, m); err != nil {
		return nil, err
	}
	return m, tx.Commit()
}

// Join claims the open seat using the share token and materializes
// the player matchup.
func (s *StandaloneService) Join(ctx context.Context, token uuid.UUID) (*league.StandaloneMatch, error) {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, league.Forbidden("login required")
	}
	m, err := s.standalone.GetMatchByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, league.NotFound("standalone match")
	}
	if err != nil {
		return nil, err
	}
	if m.Status != league.StandaloneOpen {
		return nil, league.InvalidState("match is no longer open")
	}
	if m.CreatedBy == actor {
		return nil, league.Validation("creator cannot join their own match")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	pm := &league.PlayerMatchup{
		StandaloneMatchID: &m.ID,
		Player1:           m.CreatedBy,
		Player2:           actor,
	}
	if err := s.matchups.CreatePlayerMatchupTx(ctx, tx, pm); err != nil {
		return nil, err
	}
	m.PlayerMatchupID = &pm.ID
	m.Status = league.StandaloneActive
	if err := s.standalone.UpdateMatchTx(ctx, tx, m); err != nil {
		return nil, err
	}
	return m, tx.Commit()
}

func (s *StandaloneService) GetMatch(ctx context.Context, id int64) (*league.StandaloneMatch, []league.Game, error) {
	m, err := s.standalone.GetMatch(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, league.NotFound("standalone match")
	}
	if err != nil {
		return nil, nil, err
	}
	if m.PlayerMatchupID == nil {
		return m, nil, nil
	}
	games, err := s.matchups.GetGames(ctx, *m.PlayerMatchupID)
	if err != nil {
		return nil, nil, err
	}
	return m, games, nil
}

// ReportGame appends the next game of a standalone match and closes it
// once a side reaches the win threshold. Format rules match the league
// path: triad and adaptive games carry per-game decks, and an adaptive
// 1-1 after game two opens chain bidding.
func (s *StandaloneService) ReportGame(ctx context.Context, matchID int64, input ReportGameInput) (*league.Game, error) {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, league.Forbidden("login required")
	}
	m, pm, err := s.activeMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !pm.Has(actor) {
		return nil, league.Forbidden("only participants may report games")
	}
	if !pm.Has(input.WinnerID) {
		return nil, league.Validation("winner is not part of this match")
	}

	games, err := s.matchups.GetGames(ctx, pm.ID)
	if err != nil {
		return nil, err
	}
	if league.DecidedWinner(pm, games, m.WinsNeeded()) != uuid.Nil {
		return nil, league.InvalidState("match is already decided")
	}
	if len(games) >= m.BestOfN {
		return nil, league.InvalidState("all games have been played")
	}
	if (m.Format == league.Triad || m.Format == league.Adaptive) &&
		(input.Player1DeckID == nil || input.Player2DeckID == nil) {
		return nil, league.Validation("per-game decks are required for this format")
	}

	if m.Format == league.Adaptive && len(games) == 2 {
		bid, err := s.matchups.GetBid(ctx, pm.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if err == nil && !bid.Complete {
			return nil, league.InvalidState("chain bidding must finish before game three")
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	game := &league.Game{
		PlayerMatchupID: pm.ID,
		GameNumber:      len(games) + 1,
		WinnerID:        input.WinnerID,
		Player1Keys:     input.Player1Keys,
		Player2Keys:     input.Player2Keys,
		WentToTime:      input.WentToTime,
		LoserConceded:   input.LoserConceded,
		Player1DeckID:   input.Player1DeckID,
		Player2DeckID:   input.Player2DeckID,
	}
	if err := s.matchups.CreateGameTx(ctx, tx, game); err != nil {
		return nil, err
	}

	if m.Format == league.Adaptive && game.GameNumber == 2 {
		if err := s.adaptive.maybeOpenBiddingTx(ctx, tx, pm, append(games, *game)); err != nil {
			return nil, err
		}
	}

	if league.DecidedWinner(pm, append(games, *game), m.WinsNeeded()) != uuid.Nil {
		m.Status = league.StandaloneCompleted
		if err := s.standalone.UpdateMatchTx(ctx, tx, m); err != nil {
			return nil, err
		}
	}
	return game, tx.Commit()
}

// SubmitSelection registers one slot of a participant's deck slate.
// Slates feed triad strikes; they lock once the first game is in.
func (s *StandaloneService) SubmitSelection(ctx context.Context, matchID int64, input SubmitSelectionInput) (*league.DeckSelection, error) {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, league.Forbidden("login required")
	}
	m, pm, err := s.activeMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !pm.Has(actor) {
		return nil, league.Forbidden("only participants may select decks")
	}
	if m.Format.IsAlliance() || m.Format.IsSealed() || m.Format == league.Thief {
		return nil, league.Validation("format does not support standalone deck slates")
	}
	slots := m.Format.SlotsPerUser()
	if input.SlotNumber < 1 || input.SlotNumber > slots {
		return nil, league.Validation(fmt.Sprintf("slot number must be between 1 and %d", slots))
	}

	games, err := s.matchups.GetGames(ctx, pm.ID)
	if err != nil {
		return nil, err
	}
	if len(games) > 0 {
		return nil, league.InvalidState("deck slates are locked once play begins")
	}

	deck, err := s.resolveDeck(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.deckDB.UpsertDeck(ctx, deck); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sel := &league.DeckSelection{StandaloneMatchID: &m.ID, UserID: actor, SlotNumber: input.SlotNumber, DeckID: deck.ID}
	if err := s.standalone.UpsertSelectionTx(ctx, tx, sel); err != nil {
		return nil, err
	}
	return sel, tx.Commit()
}

// SubmitStrike mirrors the triad week strike: one per participant, and
// the struck selection must belong to the opponent's slate on this
// match.
func (s *StandaloneService) SubmitStrike(ctx context.Context, matchID, struckSelectionID int64) error {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return league.Forbidden("login required")
	}
	m, pm, err := s.activeMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if !pm.Has(actor) {
		return league.Forbidden("only participants may strike")
	}
	if m.Format != league.Triad {
		return league.InvalidState("strikes only apply to triad matches")
	}

	sel, err := s.weeks.GetSelection(ctx, struckSelectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return league.NotFound("deck selection")
	}
	if err != nil {
		return err
	}
	if sel.StandaloneMatchID == nil || *sel.StandaloneMatchID != m.ID {
		return league.Validation("strike must target a slate deck from this match")
	}
	if sel.UserID != pm.Opponent(actor) {
		return league.Validation("strike must target the opponent's selection")
	}

	strikes, err := s.matchups.GetStrikes(ctx, pm.ID)
	if err != nil {
		return err
	}
	for _, st := range strikes {
		if st.StrikingUserID == actor {
			return league.InvalidState("strike already submitted")
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	strike := &league.Strike{
		PlayerMatchupID:   pm.ID,
		StrikingUserID:    actor,
		StruckSelectionID: struckSelectionID,
	}
	if err := s.matchups.CreateStrikeTx(ctx, tx, strike); err != nil {
		return err
	}
	return tx.Commit()
}

// Bid raises the chain auction on an adaptive standalone match.
func (s *StandaloneService) Bid(ctx context.Context, matchID int64, chains int) (*league.AdaptiveBidState, error) {
	m, pm, err := s.activeMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Format != league.Adaptive {
		return nil, league.InvalidState("bidding only applies to adaptive matches")
	}
	return s.adaptive.BidStandalone(ctx, pm.ID, chains)
}

// Concede closes the chain auction with the current holder.
func (s *StandaloneService) Concede(ctx context.Context, matchID int64) (*league.AdaptiveBidState, error) {
	m, pm, err := s.activeMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Format != league.Adaptive {
		return nil, league.InvalidState("bidding only applies to adaptive matches")
	}
	return s.adaptive.ConcedeStandalone(ctx, pm.ID)
}

func (s *StandaloneService) resolveDeck(ctx context.Context, input SubmitSelectionInput) (*decks.Deck, error) {
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
	deck, err := s.resolver.Resolve(ctx, input.DeckRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve deck: %w", err)
	}
	return deck, nil
}

func (s *StandaloneService) activeMatch(ctx context.Context, matchID int64) (*league.StandaloneMatch, *league.PlayerMatchup, error) {
	m, err := s.standalone.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, league.NotFound("standalone match")
	}
	if err != nil {
		return nil, nil, err
	}
	if m.Status != league.StandaloneActive || m.PlayerMatchupID == nil {
		return nil, nil, league.InvalidState("match is not active")
	}
	pm, err := s.matchups.GetPlayerMatchup(ctx, *m.PlayerMatchupID)
	if err != nil {
		return nil, nil, err
	}
	return m, pm, nil
}
