package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

// ErrInvalidCursor is returned for cursors this store did not issue.
var ErrInvalidCursor = fmt.Errorf("%w: malformed cursor", records.ErrValidation)

// rowKey is the keyset position of a row.
type rowKey struct {
	CreatedAt int64  `json:"t"`
	ID        string `json:"id"`
}

func encodeCursor(k rowKey) pagination.Cursor {
	b, _ := json.Marshal(k)
	return pagination.Cursor(base64.RawURLEncoding.EncodeToString(b))
}

func decodeCursor(c pagination.Cursor) (rowKey, error) {
	var k rowKey
	b, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return k, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if err := json.Unmarshal(b, &k); err != nil {
		return k, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if k.ID == "" {
		return k, fmt.Errorf("%w: %v", ErrInvalidCursor, errors.New("missing id"))
	}
	return k, nil
}
