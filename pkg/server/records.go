package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

const maxBodyBytes = 1 << 20

// kindFrom returns the record kind addressed by the request path.
func kindFrom(r *http.Request) (records.Kind, bool) {
	kind := records.Kind(r.PathValue("kind"))
	return kind, kind.Valid()
}

// pageRequest builds a pagination request from the query string.
func pageRequest(r *http.Request, kind records.Kind, owner string) (pagination.Request, error) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return pagination.Request{}, &records.ValidationError{Field: "limit", Message: "limit must be a positive integer"}
		}
		limit = n
	}
	key := pagination.BuildKey(pagination.ResourceKind(kind), q.Get("search"))
	return pagination.Request{
		Partition:  key,
		OwnerID:    owner,
		Limit:      limit,
		SearchTerm: key.Term,
		Cursor:     pagination.Cursor(q.Get("cursor")),
		Direction:  pagination.Direction(q.Get("direction")),
	}, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, owner string) {
	kind, ok := kindFrom(r)
	if !ok {
		writeErrorMessage(w, http.StatusNotFound, "Not found")
		return
	}
	req, err := pageRequest(r, kind, owner)
	if err != nil {
		s.fail(w, r, owner, "list", err)
		return
	}

	var page any
	switch {
	case kind == records.KindPrompts && r.URL.Query().Get("view") == "summary":
		page, err = s.store.ListPromptSummaries(r.Context(), req)
	case kind == records.KindPrompts:
		page, err = s.store.ListPrompts(r.Context(), req)
	default:
		page, err = s.store.ListVariables(r.Context(), req)
	}
	if err != nil {
		s.fail(w, r, owner, "list", err)
		return
	}

	body, err := json.Marshal(page)
	if err != nil {
		s.fail(w, r, owner, "list", fmt.Errorf("encode page: %w", err))
		return
	}
	etag := strongETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		httpNotModifiedTotal.WithLabelValues(string(kind)).Inc()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func strongETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// recordBody carries the writable fields of either record kind.
type recordBody struct {
	Label   string `json:"label"`
	Content string `json:"content"`
	Value   string `json:"value"`
}

func decodeBody(r *http.Request) (recordBody, error) {
	var body recordBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return body, &records.ValidationError{Field: "body", Message: "request body is required"}
		}
		return body, &records.ValidationError{Field: "body", Message: "request body is not valid JSON"}
	}
	return body, nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, owner string) {
	kind, ok := kindFrom(r)
	if !ok {
		writeErrorMessage(w, http.StatusNotFound, "Not found")
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, r, owner, "create", err)
		return
	}

	out, err := s.save(r.Context(), kind, owner, "", body)
	if err != nil {
		s.fail(w, r, owner, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, owner string) {
	kind, ok := kindFrom(r)
	if !ok {
		writeErrorMessage(w, http.StatusNotFound, "Not found")
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, r, owner, "update", err)
		return
	}

	out, err := s.save(r.Context(), kind, owner, r.PathValue("id"), body)
	if err != nil {
		s.fail(w, r, owner, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// save creates the record when id is empty and updates it otherwise.
func (s *Server) save(ctx context.Context, kind records.Kind, owner, id string, body recordBody) (any, error) {
	if kind == records.KindPrompts {
		p := records.Prompt{Label: body.Label, Content: body.Content}
		if id == "" {
			return s.store.CreatePrompt(ctx, owner, p)
		}
		return s.store.UpdatePrompt(ctx, owner, id, p)
	}
	v := records.Variable{Label: body.Label, Value: body.Value}
	if id == "" {
		return s.store.CreateVariable(ctx, owner, v)
	}
	return s.store.UpdateVariable(ctx, owner, id, v)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, owner string) {
	kind, ok := kindFrom(r)
	if !ok {
		writeErrorMessage(w, http.StatusNotFound, "Not found")
		return
	}

	var err error
	if kind == records.KindPrompts {
		err = s.store.DeletePrompt(r.Context(), owner, r.PathValue("id"))
	} else {
		err = s.store.DeleteVariable(r.Context(), owner, r.PathValue("id"))
	}
	if err != nil {
		s.fail(w, r, owner, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
