package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sternrassler/promptdeck/pkg/records"
)

// LogError persists a handler failure.
func (s *Store) LogError(ctx context.Context, e records.ErrorLog) (records.ErrorLog, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = s.now()

	owner := sql.NullString{String: e.UserID, Valid: e.UserID != ""}
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO error_logs (id, user_id, url_path, function_name, error_message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, owner, e.URLPath, e.FunctionName, e.ErrorMessage, e.CreatedAt.UnixNano(),
	)
	observe("log_error", start, err)
	if err != nil {
		return records.ErrorLog{}, fmt.Errorf("log error: %w", err)
	}
	return e, nil
}

// RecentErrors returns the newest error logs, newest first.
func (s *Store) RecentErrors(ctx context.Context, limit int) ([]records.ErrorLog, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, url_path, function_name, error_message, created_at
		 FROM error_logs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent errors: %w", err)
	}
	defer rows.Close()

	var logs []records.ErrorLog
	for rows.Next() {
		var (
			e       records.ErrorLog
			owner   sql.NullString
			created int64
		)
		if err := rows.Scan(&e.ID, &owner, &e.URLPath, &e.FunctionName, &e.ErrorMessage, &created); err != nil {
			return nil, fmt.Errorf("recent errors: scan: %w", err)
		}
		e.UserID = owner.String
		e.CreatedAt = time.Unix(0, created).UTC()
		logs = append(logs, e)
	}
	return logs, rows.Err()
}
