package pagination

import (
	"context"
)

// Cursor is an opaque position token issued by a Fetcher. The empty cursor
// stands for "none". Cursors are only stored and replayed, never inspected.
type Cursor string

// Direction selects which side of a cursor a fetch reads.
type Direction string

const (
	// DirectionNext reads the page after the cursor.
	DirectionNext Direction = "next"

	// DirectionPrev reads the page before the cursor.
	DirectionPrev Direction = "prev"
)

// Page is one fetch result. Pages are immutable once fetched.
type Page[T any] struct {
	Rows []T `json:"data"`

	// HasMore reports whether a further forward page exists.
	HasMore bool `json:"hasMore"`

	NextCursor Cursor `json:"nextCursor,omitempty"`
	PrevCursor Cursor `json:"prevCursor,omitempty"`
}

// Request is a navigation request handed to a Fetcher.
type Request struct {
	// Partition is the partition the request was issued for.
	Partition PartitionKey

	OwnerID    string
	Limit      int
	SearchTerm string
	Cursor     Cursor
	Direction  Direction
}

// Fetcher loads a single page. Implementations may block for an arbitrary
// time; timeouts are theirs to enforce through ctx.
type Fetcher[T any] interface {
	FetchPage(ctx context.Context, req Request) (Page[T], error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc[T any] func(ctx context.Context, req Request) (Page[T], error)

// FetchPage calls f.
func (f FetchFunc[T]) FetchPage(ctx context.Context, req Request) (Page[T], error) {
	return f(ctx, req)
}
