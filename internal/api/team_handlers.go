package api

import (
	"net/http"

	"github.com/avandever/keytracker-sub000/internal/httputil"
	"github.com/google/uuid"
)

func (a *API) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name      string    `json:"name"`
		CaptainID uuid.UUID `json:"captain_id,omitempty"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		team, err := a.Leagues.CreateTeam(r.Context(), leagueID, input.Name, input.CaptainID)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, team)
		return nil
	})
}

func (a *API) RenameTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := urlID(r, "teamID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		Name string `json:"name"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Leagues.RenameTeam(r.Context(), leagueID, teamID, input.Name); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
		return nil
	})
}

func (a *API) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := urlID(r, "teamID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Leagues.DeleteTeam(r.Context(), leagueID, teamID); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return nil
	})
}

func (a *API) AssignCaptain(w http.ResponseWriter, r *http.Request) {
	teamID, err := urlID(r, "teamID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Leagues.AssignCaptain(r.Context(), leagueID, teamID, input.UserID); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
		return nil
	})
}

func (a *API) SetMemberPaid(w http.ResponseWriter, r *http.Request) {
	teamID, err := urlID(r, "teamID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		UserID uuid.UUID `json:"user_id"`
		Paid   bool      `json:"paid"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Leagues.SetMemberPaid(r.Context(), leagueID, teamID, input.UserID, input.Paid); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
		return nil
	})
}

func (a *API) MoveMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := urlID(r, "memberID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		NewTeamID int64 `json:"new_team_id"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Leagues.MoveMember(r.Context(), leagueID, memberID, input.NewTeamID); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "moved"})
		return nil
	})
}

func (a *API) StartDraft(w http.ResponseWriter, r *http.Request) {
	a.withLeagueLock(w, r, func(leagueID int64) error {
		view, err := a.Draft.StartDraft(r.Context(), leagueID)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, view)
		return nil
	})
}

func (a *API) GetDraft(w http.ResponseWriter, r *http.Request) {
	leagueID, err := urlID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	view, err := a.Draft.GetDraftView(r.Context(), leagueID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (a *API) MakeDraftPick(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		view, err := a.Draft.MakePick(r.Context(), leagueID, input.UserID)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, view)
		return nil
	})
}
