package api

import (
	"net/http"

	"github.com/avandever/keytracker-sub000/internal/httputil"
	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/service"
	"github.com/google/uuid"
)

func (a *API) CreateWeek(w http.ResponseWriter, r *http.Request) {
	var input service.WeekInput
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		week, err := a.Weeks.CreateWeek(r.Context(), leagueID, input)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, week)
		return nil
	})
}

func (a *API) UpdateWeek(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input service.WeekInput
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		week, err := a.Weeks.UpdateWeek(r.Context(), leagueID, weekID, input)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, week)
		return nil
	})
}

func (a *API) DeleteWeek(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Weeks.DeleteWeek(r.Context(), leagueID, weekID); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return nil
	})
}

// weekTransition wraps the simple admin transitions that take no body.
func (a *API) weekTransition(fn func(leagueID, weekID int64, r *http.Request) (*league.Week, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		weekID, err := urlID(r, "weekID")
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		a.withLeagueLock(w, r, func(leagueID int64) error {
			week, err := fn(leagueID, weekID, r)
			if err != nil {
				return err
			}
			httputil.WriteJSON(w, http.StatusOK, week)
			return nil
		})
	}
}

func (a *API) OpenDeckSelection() http.HandlerFunc {
	return a.weekTransition(func(leagueID, weekID int64, r *http.Request) (*league.Week, error) {
		return a.Weeks.OpenDeckSelection(r.Context(), leagueID, weekID)
	})
}

func (a *API) GenerateTeamPairings() http.HandlerFunc {
	return a.weekTransition(func(leagueID, weekID int64, r *http.Request) (*league.Week, error) {
		return a.Weeks.GenerateTeamPairings(r.Context(), leagueID, weekID)
	})
}

func (a *API) GeneratePlayerMatchups(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		AllowIncomplete bool `json:"allow_incomplete"`
	}
	if r.ContentLength > 0 {
		if err := httputil.Decode(r, &input); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		week, err := a.Weeks.GeneratePlayerMatchups(r.Context(), leagueID, weekID, input.AllowIncomplete)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, week)
		return nil
	})
}

func (a *API) PublishWeek() http.HandlerFunc {
	return a.weekTransition(func(leagueID, weekID int64, r *http.Request) (*league.Week, error) {
		return a.Weeks.Publish(r.Context(), leagueID, weekID)
	})
}

func (a *API) CheckCompletion() http.HandlerFunc {
	return a.weekTransition(func(leagueID, weekID int64, r *http.Request) (*league.Week, error) {
		return a.Weeks.CheckCompletion(r.Context(), leagueID, weekID)
	})
}

func (a *API) AdvanceToThief(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		FloorTeamID *int64 `json:"floor_team_id,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := httputil.Decode(r, &input); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		week, err := a.Weeks.AdvanceToThief(r.Context(), leagueID, weekID, input.FloorTeamID)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, week)
		return nil
	})
}

func (a *API) EndThief() http.HandlerFunc {
	return a.weekTransition(func(leagueID, weekID int64, r *http.Request) (*league.Week, error) {
		return a.Weeks.EndThief(r.Context(), leagueID, weekID)
	})
}

func (a *API) GenerateSealedPools(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		l, err := a.Leagues.RequireLeagueAdmin(r.Context(), leagueID)
		if err != nil {
			return err
		}
		week, err := a.Weeks.GetWeek(r.Context(), leagueID, weekID)
		if err != nil {
			return err
		}
		if err := a.Sealed.GeneratePools(r.Context(), l, week); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "generated"})
		return nil
	})
}

func (a *API) RegenerateSealedPools(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		UserIDs []uuid.UUID `json:"user_ids"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		l, err := a.Leagues.RequireLeagueAdmin(r.Context(), leagueID)
		if err != nil {
			return err
		}
		week, err := a.Weeks.GetWeek(r.Context(), leagueID, weekID)
		if err != nil {
			return err
		}
		if err := a.Sealed.RegeneratePools(r.Context(), l, week, input.UserIDs); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "regenerated"})
		return nil
	})
}

func (a *API) RegeneratePlayerMatchups(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Matchups.RegeneratePlayerMatchups(r.Context(), leagueID, weekID); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "regenerated"})
		return nil
	})
}
