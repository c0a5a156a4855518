package api

import (
	"net/http"

	"github.com/avandever/keytracker-sub000/internal/httputil"
	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/service"
	"github.com/google/uuid"
)

func (a *API) CreateStandaloneMatch(w http.ResponseWriter, r *http.Request) {
	var input service.CreateStandaloneInput
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	m, err := a.Standalone.CreateMatch(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

// JoinStandaloneMatch claims the open seat; the share token arrives as
// the uuid query parameter.
func (a *API) JoinStandaloneMatch(w http.ResponseWriter, r *http.Request) {
	token, err := uuid.Parse(r.URL.Query().Get("uuid"))
	if err != nil {
		httputil.WriteError(w, r, league.Validation("invalid match token"))
		return
	}
	m, err := a.Standalone.Join(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (a *API) GetStandaloneMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	m, games, err := a.Standalone.GetMatch(r.Context(), matchID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"match": m, "games": games})
}

func (a *API) ReportStandaloneGame(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input service.ReportGameInput
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if err := a.locks.With(standaloneKey(matchID), func() error {
		game, err := a.Standalone.ReportGame(r.Context(), matchID, input)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, game)
		return nil
	}); err != nil {
		httputil.WriteError(w, r, err)
	}
}

func (a *API) SubmitStandaloneSelection(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var input service.SubmitSelectionInput
	if err := httputil.Decode(r, &input); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if err := a.locks.With(standaloneKey(matchID), func() error {
		sel, err := a.Standalone.SubmitSelection(r.Context(), matchID, input)
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, sel)
		return nil
	}); err != nil {
		httputil.WriteError(w, r, err)
	}
}

func (a *API) SubmitStandaloneStrike(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlID(r, "id")
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
	if err := a.locks.With(standaloneKey(matchID), func() error {
		if err := a.Standalone.SubmitStrike(r.Context(), matchID, input.StruckSelectionID); err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "struck"})
		return nil
	}); err != nil {
		httputil.WriteError(w, r, err)
	}
}

func (a *API) SubmitStandaloneBid(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlID(r, "id")
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
	if err := a.locks.With(standaloneKey(matchID), func() error {
		var bid *league.AdaptiveBidState
		var err error
		if input.Concede {
			bid, err = a.Standalone.Concede(r.Context(), matchID)
		} else {
			bid, err = a.Standalone.Bid(r.Context(), matchID, input.Chains)
		}
		if err != nil {
			return err
		}
		httputil.WriteJSON(w, http.StatusOK, bid)
		return nil
	}); err != nil {
		httputil.WriteError(w, r, err)
	}
}
