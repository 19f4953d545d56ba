package server

import (
	"net/http"
	"strings"
)

// ownerHandler is a handler that runs on behalf of an authenticated owner.
type ownerHandler func(w http.ResponseWriter, r *http.Request, owner string)

// authenticated resolves the bearer token to an owner and applies the
// per-owner request limit before calling next.
func (s *Server) authenticated(next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.ownerFor(r)
		if !ok {
			writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if s.config.Limiter != nil {
			state, err := s.config.Limiter.Allow(r.Context(), owner)
			switch {
			case err != nil:
				// Limiter backend trouble never blocks requests.
				s.logger.Warn().Err(err).Str("owner", owner).Msg("Rate limiter unavailable")
			case !state.Allowed:
				w.Header().Set("Retry-After", state.RetryAfterSeconds())
				writeErrorMessage(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
		}

		next(w, r, owner)
	}
}

func (s *Server) ownerFor(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	owner, ok := s.config.Tokens[token]
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}
