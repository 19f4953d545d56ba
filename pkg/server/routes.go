package server

import (
	"encoding/json"
	"net/http"

	"github.com/Sternrassler/promptdeck/pkg/metrics"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	// Record API
	mux.HandleFunc("GET /api/{kind}", s.authenticated(s.handleList))
	mux.HandleFunc("POST /api/{kind}", s.authenticated(s.handleCreate))
	mux.HandleFunc("PUT /api/{kind}/{id}", s.authenticated(s.handleUpdate))
	mux.HandleFunc("DELETE /api/{kind}/{id}", s.authenticated(s.handleDelete))

	// Browser extension exports
	mux.HandleFunc("GET /api/extension/fetch-prompts", withCORS(s.authenticated(s.handleFetchPrompts)))
	mux.HandleFunc("GET /api/extension/fetch-prompt", withCORS(s.authenticated(s.handleFetchPrompt)))
	mux.HandleFunc("GET /api/extension/fetch-variables", withCORS(s.authenticated(s.handleFetchVariables)))
	mux.HandleFunc("POST /api/extension/optimize-prompt", withCORS(s.authenticated(s.handleOptimizePrompt)))
	mux.HandleFunc("OPTIONS /api/extension/{endpoint}", withCORS(handlePreflight))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		next(w, r)
	}
}

func handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
