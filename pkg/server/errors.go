package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/Sternrassler/promptdeck/pkg/records"
	"github.com/Sternrassler/promptdeck/pkg/store"
)

// statusFor maps a store error to an HTTP status and a client-facing message.
// Malformed cursors count as server faults since clients only replay cursors
// the server issued.
func statusFor(err error) (int, string) {
	var verr *records.ValidationError
	switch {
	case errors.Is(err, store.ErrInvalidCursor):
		return http.StatusInternalServerError, "Internal server error"
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.Error()
	case errors.Is(err, records.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, records.ErrConflict):
		return http.StatusConflict, "A record with this label already exists"
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, records.ErrAuth):
		return http.StatusUnauthorized, "Unauthorized"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// fail writes the error response for err. Server faults are logged and
// persisted to the error log.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, owner, function string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.recordFailure(r, owner, function, err)
	} else {
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request rejected")
	}
	writeErrorMessage(w, status, msg)
}

func (s *Server) recordFailure(r *http.Request, owner, function string, err error) {
	s.logger.Error().
		Err(err).
		Str("path", r.URL.Path).
		Str("owner", owner).
		Str("function", function).
		Msg("Request failed")

	entry := records.ErrorLog{
		UserID:       owner,
		URLPath:      r.URL.Path,
		FunctionName: function,
		ErrorMessage: err.Error(),
	}
	if _, logErr := s.store.LogError(context.WithoutCancel(r.Context()), entry); logErr != nil {
		s.logger.Error().Err(logErr).Msg("Failed to persist error log")
	}
}
