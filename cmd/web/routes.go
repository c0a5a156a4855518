package main

import (
	"context"
	"net/http"
	"os"

	"github.com/avandever/keytracker-sub000/internal/api"
	"github.com/avandever/keytracker-sub000/internal/decks"
	"github.com/avandever/keytracker-sub000/internal/httputil"
	"github.com/avandever/keytracker-sub000/internal/locks"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/avandever/keytracker-sub000/internal/service"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth/gothic"
	"github.com/rs/zerolog/log"
)

func newRouter(database *sqlx.DB, sessionManager *scs.SessionManager) http.Handler {
	userStore := store.NewUserStore(database)
	deckStore := store.NewDeckStore(database)
	leagueStore := store.NewLeagueStore(database)
	teamStore := store.NewTeamStore(database)
	weekStore := store.NewWeekStore(database)
	matchupStore := store.NewMatchupStore(database)
	thiefStore := store.NewThiefStore(database)
	draftStore := store.NewDraftStore(database)
	standaloneStore := store.NewStandaloneStore(database)

	dok := decks.NewDoKClient(os.Getenv("DOK_BASE_URL"), os.Getenv("DOK_API_KEY"), log.Logger)
	resolver := decks.NewCachingResolver(dok, 0)

	leagueService := service.NewLeagueService(database, leagueStore, teamStore, weekStore)
	draftService := service.NewDraftService(database, draftStore, leagueStore, teamStore, leagueService)
	sealedService := service.NewSealedService(database, weekStore, teamStore, deckStore, leagueStore, resolver)
	checker := service.NewConstraintChecker(weekStore)
	adaptiveService := service.NewAdaptiveService(database, matchupStore, leagueStore)
	matchupService := service.NewMatchupService(database, matchupStore, teamStore, weekStore, leagueStore, userStore, adaptiveService, leagueService)
	thiefService := service.NewThiefService(database, thiefStore, weekStore, teamStore, matchupStore, deckStore, leagueStore, resolver, leagueService)
	weekService := service.NewWeekService(database, weekStore, teamStore, leagueStore, matchupStore, leagueService, matchupService, thiefService)
	selectionService := service.NewSelectionService(database, weekStore, teamStore, deckStore, leagueStore, resolver, checker, thiefService, leagueService)
	allianceService := service.NewAllianceService(database, weekStore, teamStore, deckStore, leagueStore, resolver, leagueService)
	standingsService := service.NewStandingsService(database, weekStore, teamStore, matchupStore, leagueService)
	standaloneService := service.NewStandaloneService(database, standaloneStore, matchupStore, weekStore, deckStore, resolver, adaptiveService)
	playoffService := service.NewPlayoffService(database, store.NewPlayoffStore(database), leagueStore, teamStore, standingsService, leagueService)
	userService := service.NewUserService(database, userStore)
	aggregateService := service.NewAggregateService(database, leagueStore, teamStore, weekStore, matchupStore, thiefStore, draftService, standingsService)

	h := api.New(locks.NewRegistry())
	h.Leagues = leagueService
	h.Weeks = weekService
	h.Draft = draftService
	h.Sealed = sealedService
	h.Selections = selectionService
	h.Alliance = allianceService
	h.Thief = thiefService
	h.Matchups = matchupService
	h.Adaptive = adaptiveService
	h.Standings = standingsService
	h.Standalone = standaloneService
	h.Playoffs = playoffService
	h.Users = userService

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.LoadAuthenticatedUser(sessionManager, userStore))

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "validation_failed", "message": "authentication failure"})
			return
		}

		user, err := userService.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		sessionManager.Put(r.Context(), "userID", user.ID.String())
		http.Redirect(w, r, "/", http.StatusFound)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		sessionManager.Destroy(r.Context())
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
	})

	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		user := middleware.GetAuthenticatedUser(r.Context())
		httputil.WriteJSON(w, http.StatusOK, user)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/leagues/", h.ListLeagues)
		r.Get("/leagues/{id}", h.GetLeague(aggregateService))
		r.Get("/leagues/{id}/draft", h.GetDraft)
		r.Get("/leagues/{id}/standings", h.GetStandings)
		r.Get("/leagues/{id}/standings.csv", h.StandingsCSV)
		r.Get("/leagues/{id}/playoffs", h.GetPlayoffBracket)
		r.Get("/standalone-matches/{id}", h.GetStandaloneMatch)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/leagues/", h.CreateLeague)
			r.Put("/leagues/{id}", h.UpdateLeague)
			r.Post("/leagues/{id}/status", h.AdvanceLeagueStatus)
			r.Post("/leagues/{id}/signup", h.Signup)
			r.Delete("/leagues/{id}/signup", h.Withdraw)
			r.Put("/leagues/{id}/signups/{signupID}", h.SetSignupStatus)
			r.Get("/leagues/{id}/admin-log", h.GetAdminLog)
			r.Get("/leagues/{id}/admin-log.csv", h.AdminLogCSV(leagueStore))

			r.Post("/leagues/{id}/teams", h.CreateTeam)
			r.Put("/leagues/{id}/teams/{teamID}", h.RenameTeam)
			r.Delete("/leagues/{id}/teams/{teamID}", h.DeleteTeam)
			r.Post("/leagues/{id}/teams/{teamID}/captain", h.AssignCaptain)
			r.Post("/leagues/{id}/teams/{teamID}/paid", h.SetMemberPaid)
			r.Post("/leagues/{id}/members/{memberID}/move", h.MoveMember)

			r.Post("/leagues/{id}/draft/start", h.StartDraft)
			r.Post("/leagues/{id}/draft/pick", h.MakeDraftPick)

			r.Post("/leagues/{id}/playoffs/start", h.StartPlayoffs)
			r.Post("/leagues/{id}/playoffs/{matchID}/advance", h.AdvancePlayoffWinner)

			r.Post("/leagues/{id}/weeks", h.CreateWeek)
			r.Route("/leagues/{id}/weeks/{weekID}", func(r chi.Router) {
				r.Put("/", h.UpdateWeek)
				r.Delete("/", h.DeleteWeek)
				r.Post("/open-deck-selection", h.OpenDeckSelection())
				r.Post("/generate-team-pairings", h.GenerateTeamPairings())
				r.Post("/generate-player-matchups", h.GeneratePlayerMatchups)
				r.Post("/regenerate-player-matchups", h.RegeneratePlayerMatchups)
				r.Post("/publish", h.PublishWeek())
				r.Post("/check-completion", h.CheckCompletion())
				r.Post("/generate-sealed-pools", h.GenerateSealedPools)
				r.Post("/regenerate-sealed-pools", h.RegenerateSealedPools)
				r.Post("/advance-to-thief", h.AdvanceToThief)
				r.Post("/end-thief", h.EndThief())

				r.Post("/deck-selection", h.SubmitDeckSelection)
				r.Delete("/deck-selection", h.RemoveDeckSelection)
				r.Post("/alliance-selection", h.SubmitAllianceSelection)
				r.Delete("/alliance-selection", h.ClearAllianceSelection)
				r.Post("/curation-deck", h.SubmitCurationDeck)
				r.Delete("/curation-deck", h.RemoveCurationDeck)
				r.Post("/steals", h.SubmitSteals)
				r.Post("/feature-designation", h.DesignateFeature)
			})

			r.Route("/leagues/{id}/matchups/{matchupID}", func(r chi.Router) {
				r.Put("/", h.EditMatchup)
				r.Post("/games", h.ReportGame)
				r.Post("/strike", h.SubmitStrike)
				r.Post("/adaptive-bid", h.SubmitAdaptiveBid)
			})

			r.Post("/standalone-matches", h.CreateStandaloneMatch)
			r.Post("/standalone-matches/join", h.JoinStandaloneMatch)
			r.Post("/standalone-matches/{id}/games", h.ReportStandaloneGame)
			r.Post("/standalone-matches/{id}/deck-selection", h.SubmitStandaloneSelection)
			r.Post("/standalone-matches/{id}/strike", h.SubmitStandaloneStrike)
			r.Post("/standalone-matches/{id}/adaptive-bid", h.SubmitStandaloneBid)
		})
	})

	return r
}
