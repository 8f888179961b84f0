package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/AbogiC/kostum-resonanz/internal/apperror"
	"github.com/AbogiC/kostum-resonanz/internal/auth"
	"github.com/AbogiC/kostum-resonanz/internal/models"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSON reads a single JSON document from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.InvalidArgument("request body is empty")
		}
		return apperror.Wrap(apperror.KindInvalidArgument, "invalid request body", err)
	}
	return nil
}

// writeError logs err at a level matching its kind and writes it to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch apperror.KindOf(err) {
	case apperror.KindInternal:
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	case apperror.KindInvalidArgument, apperror.KindNotFound, apperror.KindConflict:
		log.Debug().Err(err).Str("path", r.URL.Path).Msg(msg)
	default:
		log.Warn().Err(err).Str("path", r.URL.Path).Msg(msg)
	}
	apperror.WriteHTTP(w, err)
}

// currentAccount returns the account resolved by auth.Middleware.
func currentAccount(w http.ResponseWriter, r *http.Request) (models.Account, bool) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		log.Error().Str("path", r.URL.Path).Msg("Could not retrieve account from context")
		apperror.WriteHTTP(w, apperror.Unauthenticated("missing auth token"))
		return models.Account{}, false
	}
	return account, true
}
