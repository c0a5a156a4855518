package api

import (
	"net/http"

	"github.com/avandever/keytracker-sub000/internal/httputil"
	"github.com/avandever/keytracker-sub000/internal/store"
)

// CSV downloads. Headers go out before the body, so errors after the
// first write can only be logged; both writers buffer per row.

func (a *API) StandingsCSV(w http.ResponseWriter, r *http.Request) {
	leagueID, err := urlID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="standings.csv"`)
	if err := a.Standings.WriteStandingsCSV(r.Context(), w, leagueID); err != nil {
		httputil.WriteError(w, r, err)
	}
}

func (a *API) AdminLogCSV(leagues *store.LeagueStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leagueID, err := urlID(r, "id")
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		if _, err := a.Leagues.RequireLeagueAdmin(r.Context(), leagueID); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="admin-log.csv"`)
		if err := a.Standings.WriteAdminLogCSV(r.Context(), w, leagueID, leagues); err != nil {
			httputil.WriteError(w, r, err)
		}
	}
}
