package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/avandever/keytracker-sub000/internal/httputil"
	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/locks"
	"github.com/avandever/keytracker-sub000/internal/service"
	"github.com/go-chi/chi/v5"
)

// API bundles the engine services behind JSON handlers. Every mutating
// league handler runs under that league's advisory lock so commands on
// one league serialize; reads go lock-free.
type API struct {
	locks      *locks.Registry
	Leagues    *service.LeagueService
	Weeks      *service.WeekService
	Draft      *service.DraftService
	Sealed     *service.SealedService
	Selections *service.SelectionService
	Alliance   *service.AllianceService
	Thief      *service.ThiefService
	Matchups   *service.MatchupService
	Adaptive   *service.AdaptiveService
	Standings  *service.StandingsService
	Playoffs   *service.PlayoffService
	Standalone *service.StandaloneService
	Users      *service.UserService
}

func New(lockRegistry *locks.Registry) *API {
	return &API{locks: lockRegistry}
}

func leagueKey(id int64) string {
	return fmt.Sprintf("league:%d", id)
}

func standaloneKey(id int64) string {
	return fmt.Sprintf("standalone:%d", id)
}

// urlID parses a chi URL parameter as an int64 id.
func urlID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, league.Validation("invalid " + name)
	}
	return id, nil
}

// withLeagueLock parses the league id and runs fn holding its lock.
func (a *API) withLeagueLock(w http.ResponseWriter, r *http.Request, fn func(leagueID int64) error) {
	leagueID, err := urlID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if err := a.locks.With(leagueKey(leagueID), func() error {
		return fn(leagueID)
	}); err != nil {
		httputil.WriteError(w, r, err)
	}
}
