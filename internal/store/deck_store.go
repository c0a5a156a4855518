package store

import (
	"context"

	"github.com/avandever/keytracker-sub000/internal/decks"
	"github.com/jmoiron/sqlx"
)

type DeckStore struct {
	db *sqlx.DB
}

func NewDeckStore(db *sqlx.DB) *DeckStore {
	return &DeckStore{db: db}
}

// UpsertDeck persists a resolved deck snapshot, refreshing scores when
// the source_ref already exists, and fills in the row id.
func (s *DeckStore) UpsertDeck(ctx context.Context, deck *decks.Deck) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO decks (source_ref, name, expansion, houses, sas, aerc, has_keycheat, needs_token, needs_prophecy)
		VALUES (:source_ref, :name, :expansion, :houses, :sas, :aerc, :has_keycheat, :needs_token, :needs_prophecy)
		ON CONFLICT(source_ref) DO UPDATE SET
			name = excluded.name,
			sas = excluded.sas,
			aerc = excluded.aerc,
			has_keycheat = excluded.has_keycheat`, deck)
	if err != nil {
		return err
	}
	return s.db.GetContext(ctx, &deck.ID, "SELECT id FROM decks WHERE source_ref = ?", deck.SourceRef)
}

func (s *DeckStore) GetDeck(ctx context.Context, id int64) (*decks.Deck, error) {
	var deck decks.Deck
	err := s.db.GetContext(ctx, &deck, "SELECT * FROM decks WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

func (s *DeckStore) GetDeckBySourceRef(ctx context.Context, ref string) (*decks.Deck, error) {
	var deck decks.Deck
	err := s.db.GetContext(ctx, &deck, "SELECT * FROM decks WHERE source_ref = ?", ref)
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

func (s *DeckStore) GetDecksByIDs(ctx context.Context, ids []int64) (map[int64]decks.Deck, error) {
	result := make(map[int64]decks.Deck)
	if len(ids) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In("SELECT * FROM decks WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var rows []decks.Deck
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, d := range rows {
		result[d.ID] = d
	}
	return result, nil
}
