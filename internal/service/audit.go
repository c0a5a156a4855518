package service

import (
	"context"
	"encoding/json"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/avandever/keytracker-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// auditLog appends one admin-log row inside the caller's transaction.
// The per-league lock gives the log its total order within a league.
func auditLog(ctx context.Context, tx *sqlx.Tx, leagues *store.LeagueStore, leagueID int64, actor uuid.UUID, actionType string, details map[string]any) error {
	raw := []byte("{}")
	if details != nil {
		var err error
		raw, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}
	return leagues.AppendAdminLog(ctx, tx, &league.AdminLogEntry{
		LeagueID:   leagueID,
		UserID:     actor,
		ActionType: actionType,
		Details:    string(raw),
	})
}
