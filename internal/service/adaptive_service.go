package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AdaptiveService runs the chain auction that decides game three of an
// adaptive matchup. Bidding opens when game two leaves the score 1-1;
// the owner of the deck that took game two starts as bidder at zero
// chains, and seats alternate raising until one concedes.
type AdaptiveService struct {
	db       *sqlx.DB
	matchups *store.MatchupStore
	leagues  *store.LeagueStore
}

func NewAdaptiveService(db *sqlx.DB, matchups *store.MatchupStore, leagues *store.LeagueStore) *AdaptiveService {
	return &AdaptiveService{db: db, matchups: matchups, leagues: leagues}
}

// maybeOpenBiddingTx is called by game reporting inside its own
// transaction once game two of an adaptive matchup lands.
func (s *AdaptiveService) maybeOpenBiddingTx(ctx context.Context, tx *sqlx.Tx, pm *league.PlayerMatchup, games []league.Game) error {
	p1, p2 := league.WinCounts(pm, games)
	if p1 != 1 || p2 != 1 {
		return nil
	}
	owner := winningDeckOwner(pm, games)
	if owner == uuid.Nil {
		owner = pm.Player1
	}
	return s.matchups.UpsertBidTx(ctx, tx, &league.AdaptiveBidState{
		PlayerMatchupID:     pm.ID,
		BidderID:            owner,
		BidChains:           0,
		WinningDeckPlayerID: owner,
		Complete:            false,
	})
}

// winningDeckOwner finds who brought the deck that won game two. Game
// one is played on own decks, so whoever piloted that deck in game one
// owns it.
func winningDeckOwner(pm *league.PlayerMatchup, games []league.Game) uuid.UUID {
	var g1, g2 *league.Game
	for i := range games {
		switch games[i].GameNumber {
		case 1:
			g1 = &games[i]
		case 2:
			g2 = &games[i]
		}
	}
	if g1 == nil || g2 == nil {
		return uuid.Nil
	}
	winning := deckPlayedBy(g2, g2.WinnerID, pm)
	if winning == nil {
		return uuid.Nil
	}
	if g1.Player1DeckID != nil && *g1.Player1DeckID == *winning {
		return pm.Player1
	}
	if g1.Player2DeckID != nil && *g1.Player2DeckID == *winning {
		return pm.Player2
	}
	return uuid.Nil
}

func deckPlayedBy(g *league.Game, player uuid.UUID, pm *league.PlayerMatchup) *int64 {
	switch player {
	case pm.Player1:
		return g.Player1DeckID
	case pm.Player2:
		return g.Player2DeckID
	}
	return nil
}

// Bid raises the chain count and takes over as bidder. Only the seat
// not currently holding the bid may raise, and the raise must exceed
// the standing amount.
func (s *AdaptiveService) Bid(ctx context.Context, leagueID, playerMatchupID int64, chains int) (*league.AdaptiveBidState, error) {
	return s.bid(ctx, playerMatchupID, chains, &leagueID)
}

// BidStandalone raises on a standalone matchup. No league, no audit
// row; everything else matches the league path.
func (s *AdaptiveService) BidStandalone(ctx context.Context, playerMatchupID int64, chains int) (*league.AdaptiveBidState, error) {
	return s.bid(ctx, playerMatchupID, chains, nil)
}

func (s *AdaptiveService) bid(ctx context.Context, playerMatchupID int64, chains int, auditLeagueID *int64) (*league.AdaptiveBidState, error) {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, league.Forbidden("login required")
	}
	pm, bid, err := s.loadOpenBid(ctx, playerMatchupID)
	if err != nil {
		return nil, err
	}
	if !pm.Has(actor) {
		return nil, league.Forbidden("only participants may bid")
	}
	if bid.BidderID == actor {
		return nil, league.InvalidState("you already hold the bid")
	}
	if chains <= bid.BidChains {
		return nil, league.Validation("bid must exceed the current chains")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	bid.BidderID = actor
	bid.BidChains = chains
	if err := s.matchups.UpsertBidTx(ctx, tx, bid); err != nil {
		return nil, err
	}
	if auditLeagueID != nil {
		if err := auditLog(ctx, tx, s.leagues, *auditLeagueID, actor, "adaptive_bid", map[string]any{"matchup": playerMatchupID, "chains": chains}); err != nil {
			return nil, err
		}
	}
	return bid, tx.Commit()
}

// Concede closes bidding with the current holder. The final bidder
// plays the winning deck with the bid chains in game three; the other
// seat plays the losing deck unchained.
func (s *AdaptiveService) Concede(ctx context.Context, leagueID, playerMatchupID int64) (*league.AdaptiveBidState, error) {
	return s.concede(ctx, playerMatchupID, &leagueID)
}

// ConcedeStandalone closes bidding on a standalone matchup.
func (s *AdaptiveService) ConcedeStandalone(ctx context.Context, playerMatchupID int64) (*league.AdaptiveBidState, error) {
	return s.concede(ctx, playerMatchupID, nil)
}

func (s *AdaptiveService) concede(ctx context.Context, playerMatchupID int64, auditLeagueID *int64) (*league.AdaptiveBidState, error) {
	actor, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, league.Forbidden("login required")
	}
	pm, bid, err := s.loadOpenBid(ctx, playerMatchupID)
	if err != nil {
		return nil, err
	}
	if !pm.Has(actor) {
		return nil, league.Forbidden("only participants may concede")
	}
	if bid.BidderID == actor {
		return nil, league.InvalidState("the bid holder cannot concede")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	bid.Complete = true
	if err := s.matchups.UpsertBidTx(ctx, tx, bid); err != nil {
		return nil, err
	}
	if auditLeagueID != nil {
		if err := auditLog(ctx, tx, s.leagues, *auditLeagueID, actor, "adaptive_concede", map[string]any{"matchup": playerMatchupID, "chains": bid.BidChains}); err != nil {
			return nil, err
		}
	}
	return bid, tx.Commit()
}

// GetBid reports the auction state, including the game-three deck
// assignment once bidding is complete.
func (s *AdaptiveService) GetBid(ctx context.Context, playerMatchupID int64) (*league.AdaptiveBidState, error) {
	bid, err := s.matchups.GetBid(ctx, playerMatchupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, league.NotFound("adaptive bid")
	}
	return bid, err
}

func (s *AdaptiveService) loadOpenBid(ctx context.Context, playerMatchupID int64) (*league.PlayerMatchup, *league.AdaptiveBidState, error) {
	pm, err := s.matchups.GetPlayerMatchup(ctx, playerMatchupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, league.NotFound("player matchup")
	}
	if err != nil {
		return nil, nil, err
	}
	bid, err := s.matchups.GetBid(ctx, playerMatchupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, league.InvalidState("bidding has not opened for this matchup")
	}
	if err != nil {
		return nil, nil, err
	}
	if bid.Complete {
		return nil, nil, league.InvalidState("bidding has already closed")
	}
	return pm, bid, nil
}
