package api

import (
	"net/http"

	"github.com/avandever/keytracker-sub000/internal/httputil"
	"github.com/avandever/keytracker-sub000/internal/service"
)

func (a *API) SubmitDeckSelection(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input service.SubmitSelectionInput
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		sel, err := a.Selections.SubmitSelection(r.Context(), leagueID, weekID, input)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, sel)
		return nil
	})
}

func (a *API) RemoveDeckSelection(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		SlotNumber int `json:"slot_number"`
	}
	if r.ContentLength > 0 {
		if err := httputil.Decode(r, &input); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
	}
	if input.SlotNumber == 0 {
		input.SlotNumber = 1
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Selections.RemoveSelection(r.Context(), leagueID, weekID, input.SlotNumber); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
		return nil
	})
}

func (a *API) SubmitAllianceSelection(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input service.AllianceInput
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Alliance.SubmitAlliance(r.Context(), leagueID, weekID, input); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "submitted"})
		return nil
	})
}

func (a *API) ClearAllianceSelection(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Alliance.ClearAlliance(r.Context(), leagueID, weekID); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
		return nil
	})
}

func (a *API) SubmitCurationDeck(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		TeamID     int64  `json:"team_id"`
		SlotNumber int    `json:"slot_number"`
		Deck       string `json:"deck"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		row, err := a.Thief.SubmitCurationDeck(r.Context(), leagueID, weekID, input.TeamID, input.SlotNumber, input.Deck)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, row)
		return nil
	})
}

func (a *API) RemoveCurationDeck(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		TeamID     int64 `json:"team_id"`
		SlotNumber int   `json:"slot_number"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Thief.RemoveCurationDeck(r.Context(), leagueID, weekID, input.TeamID, input.SlotNumber); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
		return nil
	})
}

func (a *API) SubmitSteals(w http.ResponseWriter, r *http.Request) {
	weekID, err := urlID(r, "weekID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		TeamID          int64   `json:"team_id"`
		CurationDeckIDs []int64 `json:"curation_deck_ids"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Thief.SubmitSteals(r.Context(), leagueID, weekID, input.TeamID, input.CurationDeckIDs); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "submitted"})
		return nil
	})
}
