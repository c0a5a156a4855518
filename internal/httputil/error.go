package httputil

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avandever/keytracker-sub000/internal/league"
	"github.com/rs/zerolog/log"
)

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Error().Err(err).Msg("failed to encode response")
		}
	}
}

// WriteError maps an engine error to the {"error": kind, ...} envelope.
// Unknown errors become a 500 without leaking internals.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = league.Timeout("deck resolver deadline exceeded")
	}
	if errors.Is(err, sql.ErrNoRows) {
		err = league.NotFound("record")
	}

	if e, ok := league.AsError(err); ok {
		body := map[string]any{"error": string(e.Kind)}
		if e.Message != "" {
			body["message"] = e.Message
		}
		for k, v := range e.Detail {
			body[k] = v
		}
		log.Warn().Str("kind", string(e.Kind)).Str("path", r.URL.Path).Msg(e.Message)
		WriteJSON(w, statusFor(e.Kind), body)
		return
	}

	log.Error().Err(err).Str("path", r.URL.Path).Msg("internal error")
	WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal"})
}

func statusFor(kind league.ErrorKind) int {
	switch kind {
	case league.ErrForbidden:
		return http.StatusForbidden
	case league.ErrNotFound:
		return http.StatusNotFound
	case league.ErrConflict:
		return http.StatusConflict
	case league.ErrTimeout:
		return http.StatusGatewayTimeout
	case league.ErrInvalidState:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// Decode reads a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return league.Validation("invalid request body")
	}
	return nil
}
