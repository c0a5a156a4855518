package api

import (
	"net/http"

	"github.com/avandever/keytracker-sub000/internal/httputil"
	"github.com/avandever/keytracker-sub000/internal/service"
	"github.com/google/uuid"
)

func (a *API) ReportGame(w http.ResponseWriter, r *http.Request) {
	matchupID, err := urlID(r, "matchupID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input service.ReportGameInput
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		game, err := a.Matchups.ReportGame(r.Context(), leagueID, matchupID, input)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, game)
		return nil
	})
}

func (a *API) SubmitStrike(w http.ResponseWriter, r *http.Request) {
	matchupID, err := urlID(r, "matchupID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		StruckSelectionID int64 `json:"struck_selection_id"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Matchups.SubmitStrike(r.Context(), leagueID, matchupID, input.StruckSelectionID); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "struck"})
		return nil
	})
}

func (a *API) SubmitAdaptiveBid(w http.ResponseWriter, r *http.Request) {
	matchupID, err := urlID(r, "matchupID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		Chains  int  `json:"chains"`
		Concede bool `json:"concede"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		var err error
		var bid any
		if input.Concede {
			bid, err = a.Adaptive.Concede(r.Context(), leagueID, matchupID)
		} else {
			bid, err = a.Adaptive.Bid(r.Context(), leagueID, matchupID, input.Chains)
		}
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, bid)
		return nil
	})
}

func (a *API) EditMatchup(w http.ResponseWriter, r *http.Request) {
	matchupID, err := urlID(r, "matchupID")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input struct {
		Player1 uuid.UUID `json:"player1_id"`
		Player2 uuid.UUID `json:"player2_id"`
	}
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	a.withLeagueLock(w, r, func(leagueID int64) error {
		if err := a.Matchups.EditMatchup(r.Context(), leagueID, matchupID, input.Player1, input.Player2); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
		return nil
	})
}
