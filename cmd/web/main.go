package main

import (
	"net/http"
	"os"
	"time"

	"github.com/avandever/keytracker-sub000/internal/db"
	"github.com/avandever/keytracker-sub000/internal/middleware"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("APP_ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	database, err := db.InitDB(os.Getenv("DB_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB, os.Getenv("MIGRATIONS_PATH")); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	middleware.InitAuth()

	sessionManager := scs.New()
	sessionManager.Lifetime = 24 * time.Hour
	sessionManager.Store = sqlite3store.New(database.DB)

	router := newRouter(database, sessionManager)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info().Str("addr", addr).Msg("server starting")
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
