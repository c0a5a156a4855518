package api

import (
	"net/http"

	"github.com/avandever/keytracker-sub000/internal/httputil"
	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/service"
	"github.com/google/uuid"
)

func (a *API) ListLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := a.Leagues.ListLeagues(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, leagues)
}

func (a *API) CreateLeague(w http.ResponseWriter, r *http.Request) {
	var input service.CreateLeagueInput
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	l, err := a.Leagues.CreateLeague(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, l)
}

func (a *API) GetLeague(agg *service.AggregateService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leagueID, err := urlID(r, "id")
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		view, err := agg.GetLeagueAggregate(r.Context(), leagueID)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, view)
	}
}

func (a *API) UpdateLeague(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateLeagueInput
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		l, err := a.Leagues.UpdateLeague(r.Context(), leagueID, input)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, l)
		return nil
	})
}

func (a *API) AdvanceLeagueStatus(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status league.Status `json:"status"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		l, err := a.Leagues.AdvanceLeagueStatus(r.Context(), leagueID, input.Status)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, l)
		return nil
	})
}

func (a *API) Signup(w http.ResponseWriter, r *http.Request) {
	a.withLeagueLock(w, r, func(leagueID int64) error {
		signup, err := a.Leagues.Signup(r.Context(), leagueID)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, signup)
		return nil
	})
}

func (a *API) Withdraw(w http.ResponseWriter, r *http.Request) {
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Leagues.Withdraw(r.Context(), leagueID); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
		return nil
	})
}

func (a *API) SetSignupStatus(w http.ResponseWriter, r *http.Request) {
	signupID, err := urlID(r, "signupID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		Status league.SignupStatus `json:"status"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Leagues.SetSignupStatus(r.Context(), leagueID, signupID, input.Status); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": string(input.Status)})
		return nil
	})
}

func (a *API) GetAdminLog(w http.ResponseWriter, r *http.Request) {
	leagueID, err := urlID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if _, err := a.Leagues.RequireLeagueAdmin(r.Context(), leagueID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	entries, err := a.Leagues.GetAdminLog(r.Context(), leagueID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (a *API) GetStandings(w http.ResponseWriter, r *http.Request) {
	leagueID, err := urlID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	standings, err := a.Standings.ComputeStandings(r.Context(), leagueID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, standings)
}

// DesignateFeature names a team's feature player for a week.
func (a *API) DesignateFeature(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		TeamID int64     `json:"team_id"`
		UserID uuid.UUID `json:"user_id"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Leagues.DesignateFeature(r.Context(), leagueID, weekID, input.TeamID, input.UserID); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "designated"})
		return nil
	})
}
