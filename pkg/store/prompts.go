package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

var promptList = listQuery{
	op:            "list_prompts",
	table:         "prompts",
	columns:       "id, user_id, label, content, created_at, updated_at",
	searchColumns: []string{"label", "content"},
}

var summaryList = listQuery{
	op:            "list_prompt_summaries",
	table:         "prompts",
	columns:       "id, label, created_at",
	searchColumns: []string{"label", "content"},
}

// ListPrompts returns a page of the owner's prompts.
func (s *Store) ListPrompts(ctx context.Context, req pagination.Request) (pagination.Page[records.Prompt], error) {
	return listPage(ctx, s, promptList, req, scanPrompt)
}

// ListPromptSummaries returns a page of (id, label) pairs, as exported to
// browser extensions.
func (s *Store) ListPromptSummaries(ctx context.Context, req pagination.Request) (pagination.Page[records.PromptSummary], error) {
	return listPage(ctx, s, summaryList, req, func(rows *sql.Rows) (records.PromptSummary, rowKey, error) {
		var (
			p records.PromptSummary
			k rowKey
		)
		if err := rows.Scan(&p.ID, &p.Label, &k.CreatedAt); err != nil {
			return p, k, err
		}
		k.ID = p.ID
		return p, k, nil
	})
}

// GetPromptContent returns the content of one owned prompt.
func (s *Store) GetPromptContent(ctx context.Context, ownerID, id string) (string, error) {
	start := time.Now()
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM prompts WHERE id = ? AND user_id = ?`, id, ownerID,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		observe("get_prompt_content", start, nil)
		return "", fmt.Errorf("prompt %s: %w", id, records.ErrNotFound)
	}
	observe("get_prompt_content", start, err)
	if err != nil {
		return "", fmt.Errorf("get prompt content: %w", err)
	}
	return content, nil
}

// CreatePrompt validates and inserts a prompt owned by ownerID.
func (s *Store) CreatePrompt(ctx context.Context, ownerID string, p records.Prompt) (records.Prompt, error) {
	if err := p.Validate(); err != nil {
		return records.Prompt{}, err
	}
	p.ID = uuid.NewString()
	p.UserID = ownerID
	p.CreatedAt = s.now()
	p.UpdatedAt = nil

	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompts (id, user_id, label, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Label, p.Content, p.CreatedAt.UnixNano(),
	)
	observe("create_prompt", start, err)
	if err != nil {
		return records.Prompt{}, fmt.Errorf("create prompt: %w", err)
	}

	s.logger.Debug().Str("owner", ownerID).Str("id", p.ID).Msg("Prompt created")
	return p, nil
}

// UpdatePrompt replaces label and content of an owned prompt.
func (s *Store) UpdatePrompt(ctx context.Context, ownerID, id string, p records.Prompt) (records.Prompt, error) {
	if err := p.Validate(); err != nil {
		return records.Prompt{}, err
	}
	now := s.now()
	if err := s.execAffecting(ctx, "update_prompt",
		`UPDATE prompts SET label = ?, content = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		p.Label, p.Content, now.UnixNano(), id, ownerID,
	); err != nil {
		return records.Prompt{}, err
	}
	return s.getPrompt(ctx, ownerID, id)
}

// DeletePrompt removes an owned prompt.
func (s *Store) DeletePrompt(ctx context.Context, ownerID, id string) error {
	return s.execAffecting(ctx, "delete_prompt",
		`DELETE FROM prompts WHERE id = ? AND user_id = ?`, id, ownerID)
}

func (s *Store) getPrompt(ctx context.Context, ownerID, id string) (records.Prompt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+promptList.columns+` FROM prompts WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return records.Prompt{}, fmt.Errorf("get prompt: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return records.Prompt{}, fmt.Errorf("get prompt: %w", err)
		}
		return records.Prompt{}, fmt.Errorf("prompt %s: %w", id, records.ErrNotFound)
	}
	p, _, err := scanPrompt(rows)
	return p, err
}

func scanPrompt(rows *sql.Rows) (records.Prompt, rowKey, error) {
	var (
		p       records.Prompt
		created int64
		updated sql.NullInt64
	)
	if err := rows.Scan(&p.ID, &p.UserID, &p.Label, &p.Content, &created, &updated); err != nil {
		return p, rowKey{}, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = nullableTime(updated)
	return p, rowKey{CreatedAt: created, ID: p.ID}, nil
}
