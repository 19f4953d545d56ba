package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

// listQuery describes a paginated read over one table.
type listQuery struct {
	op      string
	table   string
	columns string

	// searchColumns are matched against the search term.
	searchColumns []string
}

// scanFunc reads one row and returns it with its keyset position.
type scanFunc[T any] func(rows *sql.Rows) (T, rowKey, error)

// normalizeRequest applies defaults and rejects unusable parameters.
func normalizeRequest(req pagination.Request) (pagination.Request, error) {
	switch {
	case req.Limit <= 0:
		req.Limit = DefaultLimit
	case req.Limit > MaxLimit:
		req.Limit = MaxLimit
	}
	switch req.Direction {
	case "":
		req.Direction = pagination.DirectionNext
	case pagination.DirectionNext, pagination.DirectionPrev:
	default:
		return req, &records.ValidationError{Field: "direction", Message: fmt.Sprintf("unknown direction %q", req.Direction)}
	}
	if req.OwnerID == "" {
		return req, fmt.Errorf("list: %w", records.ErrAuth)
	}
	req.SearchTerm = strings.TrimSpace(req.SearchTerm)
	return req, nil
}

// listPage runs a keyset query.
//
// Forward pages hold the rows after the cursor, newest first. HasMore reports
// a further row; NextCursor points at the last row and PrevCursor at the
// first row whenever the page was reached through a cursor.
//
// Backward pages hold the rows immediately before the cursor, still newest
// first. They always report HasMore since the cursor row follows them, and
// carry a PrevCursor only when older pages remain before them.
func listPage[T any](ctx context.Context, s *Store, q listQuery, req pagination.Request, scan scanFunc[T]) (pagination.Page[T], error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return pagination.Page[T]{}, err
	}

	var (
		where = []string{"user_id = ?"}
		args  = []any{req.OwnerID}
	)
	if req.SearchTerm != "" {
		pattern := escapeLike(req.SearchTerm)
		var ors []string
		for _, col := range q.searchColumns {
			ors = append(ors, col+` LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	backward := req.Direction == pagination.DirectionPrev
	hasCursor := req.Cursor != ""
	if hasCursor {
		k, err := decodeCursor(req.Cursor)
		if err != nil {
			return pagination.Page[T]{}, err
		}
		if backward {
			where = append(where, "(created_at > ? OR (created_at = ? AND id > ?))")
		} else {
			where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		}
		args = append(args, k.CreatedAt, k.CreatedAt, k.ID)
	}

	order := "created_at DESC, id DESC"
	if backward && hasCursor {
		order = "created_at ASC, id ASC"
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT ?",
		q.columns, q.table, strings.Join(where, " AND "), order)
	args = append(args, req.Limit+1)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(q.op, start, err)
		return pagination.Page[T]{}, fmt.Errorf("%s: %w", q.op, err)
	}
	defer rows.Close()

	var (
		items = []T{}
		keys  []rowKey
	)
	for rows.Next() {
		item, key, err := scan(rows)
		if err != nil {
			observe(q.op, start, err)
			return pagination.Page[T]{}, fmt.Errorf("%s: scan: %w", q.op, err)
		}
		items = append(items, item)
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		observe(q.op, start, err)
		return pagination.Page[T]{}, fmt.Errorf("%s: %w", q.op, err)
	}
	observe(q.op, start, nil)

	more := len(items) > req.Limit
	if more {
		items = items[:req.Limit]
		keys = keys[:req.Limit]
	}

	page := pagination.Page[T]{Rows: items}
	if backward && hasCursor {
		slices.Reverse(page.Rows)
		slices.Reverse(keys)
		page.HasMore = true
		if len(keys) > 0 {
			page.NextCursor = encodeCursor(keys[len(keys)-1])
			if more {
				page.PrevCursor = encodeCursor(keys[0])
			}
		}
		return page, nil
	}

	page.HasMore = more
	if len(keys) > 0 {
		page.NextCursor = encodeCursor(keys[len(keys)-1])
		if hasCursor {
			page.PrevCursor = encodeCursor(keys[0])
		}
	}
	return page, nil
}
