package decks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://decksofkeyforge.com/public-api/v3"
	defaultTimeout = 10 * time.Second
	maxAttempts    = 3
)

// DoKClient resolves decks through the Decks of KeyForge public API.
type DoKClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

func NewDoKClient(baseURL, apiKey string, logger zerolog.Logger) *DoKClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &DoKClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

type dokDeck struct {
	KeyforgeID    string   `json:"keyforgeId"`
	Name          string   `json:"name"`
	Expansion     string   `json:"expansion"`
	Houses        []string `json:"housesAndCards"`
	SasRating     int      `json:"sasRating"`
	AercScore     int      `json:"aercScore"`
	HasKeycheat   bool     `json:"hasKeycheat"`
	TokenRequired bool     `json:"tokenRequired"`
	Prophecies    bool     `json:"prophecies"`
	CardNames     []string `json:"cardNames"`
}

func (c *DoKClient) Resolve(ctx context.Context, ref string) (*Deck, error) {
	id := DeckIDFromRef(ref)
	var out struct {
		Deck dokDeck `json:"deck"`
	}
	if err := c.get(ctx, "/decks/"+url.PathEscape(id), &out); err != nil {
		return nil, fmt.Errorf("resolve deck %s: %w", id, err)
	}
	deck := &Deck{
		SourceRef:     id,
		Name:          out.Deck.Name,
		Expansion:     out.Deck.Expansion,
		SAS:           out.Deck.SasRating,
		AERC:          out.Deck.AercScore,
		HasKeycheat:   out.Deck.HasKeycheat,
		NeedsToken:    out.Deck.TokenRequired,
		NeedsProphecy: out.Deck.Prophecies,
	}
	deck.SetHouses(out.Deck.Houses)
	return deck, nil
}

func (c *DoKClient) Universe(ctx context.Context, filter UniverseFilter) ([]Deck, error) {
	q := url.Values{}
	if len(filter.AllowedSets) > 0 {
		q.Set("expansions", strings.Join(filter.AllowedSets, ","))
	}
	if filter.NoKeycheat {
		q.Set("excludeKeycheat", "true")
	}
	var out struct {
		Decks []dokDeck `json:"decks"`
	}
	if err := c.get(ctx, "/decks/random-pool?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("deck universe: %w", err)
	}
	decks := make([]Deck, 0, len(out.Decks))
	for _, d := range out.Decks {
		deck := Deck{
			SourceRef:     d.KeyforgeID,
			Name:          d.Name,
			Expansion:     d.Expansion,
			SAS:           d.SasRating,
			AERC:          d.AercScore,
			HasKeycheat:   d.HasKeycheat,
			NeedsToken:    d.TokenRequired,
			NeedsProphecy: d.Prophecies,
		}
		deck.SetHouses(d.Houses)
		decks = append(decks, deck)
	}
	return decks, nil
}

func (c *DoKClient) RestrictedCards(ctx context.Context, versionID int64) ([]string, error) {
	var out struct {
		Cards []string `json:"cards"`
	}
	if err := c.get(ctx, fmt.Sprintf("/alliance-restricted-list/%d", versionID), &out); err != nil {
		return nil, fmt.Errorf("restricted list %d: %w", versionID, err)
	}
	return out.Cards, nil
}

func (c *DoKClient) CardNames(ctx context.Context, ref string) ([]string, error) {
	id := DeckIDFromRef(ref)
	var out struct {
		Deck dokDeck `json:"deck"`
	}
	if err := c.get(ctx, "/decks/"+url.PathEscape(id), &out); err != nil {
		return nil, fmt.Errorf("deck cards %s: %w", id, err)
	}
	return out.Deck.CardNames, nil
}

// get performs one GET with up to three attempts behind exponential
// backoff. 4xx responses are permanent; retrying would not help.
func (c *DoKClient) get(ctx context.Context, endpoint string, result any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.apiKey != "" {
			req.Header.Set("Api-Key", c.apiKey)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("dok returned status %d: %s", resp.StatusCode, string(body)))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("dok returned status %d", resp.StatusCode)
		}
		return json.Unmarshal(body, result)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxAttempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("dok request failed")
		return err
	}
	return nil
}

// DeckIDFromRef accepts a raw keyforge id, a Master Vault URL, or a
// DoK URL and returns the deck id.
func DeckIDFromRef(ref string) string {
	ref = strings.TrimSpace(strings.TrimRight(ref, "/"))
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return ref
}
