package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/jmoiron/sqlx"
)

// LeagueAggregate is everything a client needs to render a league in
// one round-trip.
type LeagueAggregate struct {
	League              *league.League               `json:"league"`
	Signups             []league.Signup              `json:"signups"`
	Teams               []TeamWithMembers            `json:"teams"`
	Weeks               []WeekAggregate              `json:"weeks"`
	Draft               *DraftView                   `json:"draft,omitempty"`
	Standings           []TeamStanding               `json:"standings"`
}

type TeamWithMembers struct {
	league.Team
	Members []league.TeamMember `json:"members"`
}

type WeekAggregate struct {
	league.Week
	WeekMatchups        []league.WeekMatchup         `json:"week_matchups"`
	PlayerMatchups      []league.PlayerMatchup       `json:"player_matchups"`
	Games               []league.Game                `json:"games"`
	Selections          []league.DeckSelection       `json:"selections"`
	AllianceSelections  []league.AlliancePodSelection `json:"alliance_selections,omitempty"`
	FeatureDesignations []league.FeatureDesignation  `json:"feature_designations,omitempty"`
	CurationDecks       []league.ThiefCurationDeck   `json:"curation_decks,omitempty"`
	Steals              []league.ThiefSteal          `json:"steals,omitempty"`
	PoolEntries         []league.SealedPoolEntry     `json:"pool_entries,omitempty"`
	AdaptiveBids        []league.AdaptiveBidState    `json:"adaptive_bids,omitempty"`
}

// AggregateService assembles whole-league reads. It goes straight to
// the stores; the command services own all writes.
type AggregateService struct {
	db        *sqlx.DB
	leagues   *store.LeagueStore
	teams     *store.TeamStore
	weeks     *store.WeekStore
	matchups  *store.MatchupStore
	thief     *store.ThiefStore
	draft     *DraftService
	standings *StandingsService
}

func NewAggregateService(db *sqlx.DB, leagues *store.LeagueStore, teams *store.TeamStore, weeks *store.WeekStore, matchups *store.MatchupStore, thief *store.ThiefStore, draft *DraftService, standings *StandingsService) *AggregateService {
	return &AggregateService{db: db, leagues: leagues, teams: teams, weeks: weeks, matchups: matchups, thief: thief, draft: draft, standings: standings}
}

func (s *AggregateService) GetLeagueAggregate(ctx context.Context, leagueID int64) (*LeagueAggregate, error) {
	l, err := s.leagues.GetLeague(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, league.NotFound("league")
	}
	if err != nil {
		return nil, err
	}

	agg := &LeagueAggregate{League: l}

	if agg.Signups, err = s.leagues.GetSignups(ctx, leagueID); err != nil {
		return nil, err
	}

	teams, err := s.teams.GetTeams(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		members, err := s.teams.GetMembers(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		agg.Teams = append(agg.Teams, TeamWithMembers{Team: t, Members: members})
	}

	weeks, err := s.weeks.GetWeeks(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	for i := range weeks {
		wa, err := s.weekAggregate(ctx, &weeks[i])
		if err != nil {
			return nil, err
		}
		agg.Weeks = append(agg.Weeks, *wa)
	}

	if draft, err := s.draft.GetDraftView(ctx, leagueID); err == nil {
		agg.Draft = draft
	} else if e, ok := league.AsError(err); !ok || e.Kind != league.ErrNotFound {
		return nil, err
	}

	if agg.Standings, err = s.standings.ComputeStandings(ctx, leagueID); err != nil {
		return nil, err
	}
	return agg, nil
}

func (s *AggregateService) weekAggregate(ctx context.Context, week *league.Week) (*WeekAggregate, error) {
	wa := &WeekAggregate{Week: *week}
	var err error

	if wa.WeekMatchups, err = s.matchups.GetWeekMatchups(ctx, week.ID); err != nil {
		return nil, err
	}
	if wa.PlayerMatchups, err = s.matchups.GetPlayerMatchupsForWeek(ctx, week.ID); err != nil {
		return nil, err
	}
	if wa.Games, err = s.matchups.GetGamesForWeek(ctx, week.ID); err != nil {
		return nil, err
	}
	if wa.Selections, err = s.weeks.GetSelections(ctx, week.ID); err != nil {
		return nil, err
	}
	if wa.FeatureDesignations, err = s.weeks.GetFeatureDesignations(ctx, week.ID); err != nil {
		return nil, err
	}
	if week.Format.IsAlliance() {
		if wa.AllianceSelections, err = s.weeks.GetAllianceSelections(ctx, week.ID); err != nil {
			return nil, err
		}
	}
	if week.Format.IsSealed() {
		if wa.PoolEntries, err = s.weeks.GetPoolEntries(ctx, week.ID); err != nil {
			return nil, err
		}
	}
	if week.Format == league.Thief {
		if wa.CurationDecks, err = s.thief.GetCurationDecks(ctx, week.ID); err != nil {
			return nil, err
		}
		if wa.Steals, err = s.thief.GetSteals(ctx, week.ID); err != nil {
			return nil, err
		}
	}
	if week.Format == league.Adaptive {
		for _, pm := range wa.PlayerMatchups {
			bid, err := s.matchups.GetBid(ctx, pm.ID)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return nil, err
			}
			wa.AdaptiveBids = append(wa.AdaptiveBids, *bid)
		}
	}
	return wa, nil
}
