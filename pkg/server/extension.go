package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Sternrassler/promptdeck/pkg/editor"
	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

func (s *Server) handleFetchPrompts(w http.ResponseWriter, r *http.Request, owner string) {
	rows, err := pagination.Collect(r.Context(),
		pagination.FetchFunc[records.PromptSummary](s.store.ListPromptSummaries),
		pagination.ResourceKind(records.KindPrompts),
		pagination.DefaultCollectConfig(owner))
	if err != nil {
		s.fail(w, r, owner, "fetchPrompts", err)
		return
	}
	if rows == nil {
		rows = []records.PromptSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

// handleFetchPrompt answers with empty content for unknown prompts, which
// extensions treat as "nothing to insert".
func (s *Server) handleFetchPrompt(w http.ResponseWriter, r *http.Request, owner string) {
	id := r.URL.Query().Get("prompt-id")
	if id == "" {
		writeErrorMessage(w, http.StatusNotFound, "Prompt id is required")
		return
	}

	content, err := s.store.GetPromptContent(r.Context(), owner, id)
	switch {
	case errors.Is(err, records.ErrNotFound):
		writeJSON(w, http.StatusOK, map[string]string{"content": ""})
		return
	case err != nil:
		s.fail(w, r, owner, "fetchPrompt", err)
		return
	}

	if r.URL.Query().Get("render") == "true" {
		values, err := s.store.VariableValues(r.Context(), owner)
		if err != nil {
			s.fail(w, r, owner, "fetchPrompt", err)
			return
		}
		content = editor.Render(content, values)
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (s *Server) handleFetchVariables(w http.ResponseWriter, r *http.Request, owner string) {
	rows, err := pagination.Collect(r.Context(),
		pagination.FetchFunc[records.Variable](s.store.ListVariables),
		pagination.ResourceKind(records.KindVariables),
		pagination.DefaultCollectConfig(owner))
	if err != nil {
		s.fail(w, r, owner, "fetchVariables", err)
		return
	}
	if rows == nil {
		rows = []records.Variable{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (s *Server) handleOptimizePrompt(w http.ResponseWriter, r *http.Request, owner string) {
	if s.config.Optimizer == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "Prompt optimization is not configured")
		return
	}

	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		s.fail(w, r, owner, "optimizePrompt", &records.ValidationError{Field: "body", Message: "request body is not valid JSON"})
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		s.fail(w, r, owner, "optimizePrompt", &records.ValidationError{Field: "prompt", Message: "prompt is required"})
		return
	}

	improved, err := s.config.Optimizer.Optimize(r.Context(), body.Prompt)
	if err != nil {
		s.fail(w, r, owner, "optimizePrompt", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": improved})
}
