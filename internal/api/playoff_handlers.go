package api

import (
	"net/http"

	"github.com/avandever/keytracker-sub000/internal/httputil"
)

func (a *API) StartPlayoffs(w http.ResponseWriter, r *http.Request) {
	a.withLeagueLock(w, r, func(leagueID int64) error {
		bracket, err := a.Playoffs.StartPlayoffs(r.Context(), leagueID)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, bracket)
		return nil
	})
}

func (a *API) GetPlayoffBracket(w http.ResponseWriter, r *http.Request) {
	leagueID, err := urlID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	bracket, err := a.Playoffs.GetBracket(r.Context(), leagueID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bracket)
}

func (a *API) AdvancePlayoffWinner(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlID(r, "matchID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		WinnerTeamID int64 `json:"winner_team_id"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		m, err := a.Playoffs.AdvanceWinner(r.Context(), leagueID, matchID, input.WinnerTeamID)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, m)
		return nil
	})
}
