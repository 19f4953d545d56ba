package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

var variableList = listQuery{
	op:            "list_variables",
	table:         "variables",
	columns:       "id, user_id, label, value, created_at, updated_at",
	searchColumns: []string{"label", "value"},
}

// ListVariables returns a page of the owner's variables.
func (s *Store) ListVariables(ctx context.Context, req pagination.Request) (pagination.Page[records.Variable], error) {
	return listPage(ctx, s, variableList, req, scanVariable)
}

// VariableValues returns every variable of the owner keyed by label.
func (s *Store) VariableValues(ctx context.Context, ownerID string) (map[string]string, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `SELECT label, value FROM variables WHERE user_id = ?`, ownerID)
	if err != nil {
		observe("variable_values", start, err)
		return nil, fmt.Errorf("variable values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var label, value string
		if err := rows.Scan(&label, &value); err != nil {
			observe("variable_values", start, err)
			return nil, fmt.Errorf("variable values: scan: %w", err)
		}
		values[label] = value
	}
	err = rows.Err()
	observe("variable_values", start, err)
	if err != nil {
		return nil, fmt.Errorf("variable values: %w", err)
	}
	return values, nil
}

// CreateVariable validates and inserts a variable. Labels are unique per
// owner; a duplicate yields records.ErrConflict.
func (s *Store) CreateVariable(ctx context.Context, ownerID string, v records.Variable) (records.Variable, error) {
	if err := v.Validate(); err != nil {
		return records.Variable{}, err
	}
	v.ID = uuid.NewString()
	v.UserID = ownerID
	v.CreatedAt = s.now()
	v.UpdatedAt = nil

	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO variables (id, user_id, label, value, created_at) VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Label, v.Value, v.CreatedAt.UnixNano(),
	)
	observe("create_variable", start, err)
	if err != nil {
		if isUniqueViolation(err) {
			return records.Variable{}, fmt.Errorf("variable %q: %w", v.Label, records.ErrConflict)
		}
		return records.Variable{}, fmt.Errorf("create variable: %w", err)
	}

	s.logger.Debug().Str("owner", ownerID).Str("id", v.ID).Msg("Variable created")
	return v, nil
}

// UpdateVariable replaces label and value of an owned variable.
func (s *Store) UpdateVariable(ctx context.Context, ownerID, id string, v records.Variable) (records.Variable, error) {
	if err := v.Validate(); err != nil {
		return records.Variable{}, err
	}
	if err := s.execAffecting(ctx, "update_variable",
		`UPDATE variables SET label = ?, value = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		v.Label, v.Value, s.now().UnixNano(), id, ownerID,
	); err != nil {
		return records.Variable{}, err
	}
	return s.getVariable(ctx, ownerID, id)
}

// DeleteVariable removes an owned variable.
func (s *Store) DeleteVariable(ctx context.Context, ownerID, id string) error {
	return s.execAffecting(ctx, "delete_variable",
		`DELETE FROM variables WHERE id = ? AND user_id = ?`, id, ownerID)
}

func (s *Store) getVariable(ctx context.Context, ownerID, id string) (records.Variable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+variableList.columns+` FROM variables WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return records.Variable{}, fmt.Errorf("get variable: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return records.Variable{}, fmt.Errorf("get variable: %w", err)
		}
		return records.Variable{}, fmt.Errorf("variable %s: %w", id, records.ErrNotFound)
	}
	v, _, err := scanVariable(rows)
	return v, err
}

func scanVariable(rows *sql.Rows) (records.Variable, rowKey, error) {
	var (
		v       records.Variable
		created int64
		updated sql.NullInt64
	)
	if err := rows.Scan(&v.ID, &v.UserID, &v.Label, &v.Value, &created, &updated); err != nil {
		return v, rowKey{}, err
	}
	v.CreatedAt = time.Unix(0, created).UTC()
	v.UpdatedAt = nullableTime(updated)
	return v, rowKey{CreatedAt: created, ID: v.ID}, nil
}
