package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrMissingCursor is returned by Collect when a page claims more rows but
// carries no cursor to reach them.
var ErrMissingCursor = errors.New("page has more rows but no next cursor")

// CollectConfig holds Collect configuration.
type CollectConfig struct {
	// OwnerID is forwarded to every fetch.
	OwnerID string

	// SearchTerm restricts the rows (default: all rows).
	SearchTerm string

	// Limit is the page size per request (default: 20).
	Limit int

	// MaxPages bounds the walk (default: 1000).
	MaxPages int
}

// DefaultCollectConfig returns the configuration used by extension exports.
func DefaultCollectConfig(ownerID string) CollectConfig {
	return CollectConfig{
		OwnerID:  ownerID,
		Limit:    20,
		MaxPages: 1000,
	}
}

// Collect walks a partition forward from the first page and returns every row.
// Pages are fetched one after another since each cursor comes from the
// previous response.
func Collect[T any](ctx context.Context, fetcher Fetcher[T], kind ResourceKind, cfg CollectConfig) ([]T, error) {
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1000
	}

	start := time.Now()
	key := BuildKey(kind, cfg.SearchTerm)
	req := Request{
		Partition:  key,
		OwnerID:    cfg.OwnerID,
		Limit:      cfg.Limit,
		SearchTerm: key.Term,
		Direction:  DirectionNext,
	}

	var rows []T
	for pageNum := 1; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return rows, fmt.Errorf("collect cancelled after %d pages: %w", pageNum-1, err)
		}
		if pageNum > cfg.MaxPages {
			return rows, fmt.Errorf("collect %s: more than %d pages", key, cfg.MaxPages)
		}

		page, err := fetcher.FetchPage(ctx, req)
		if err != nil {
			return rows, fmt.Errorf("fetch page %d: %w", pageNum, err)
		}
		rows = append(rows, page.Rows...)

		// Progress logging every 50 pages
		if pageNum%50 == 0 {
			log.Info().
				Str("partition", key.String()).
				Int("pages", pageNum).
				Int("rows", len(rows)).
				Msg("Collect progress")
		}

		if !page.HasMore {
			log.Debug().
				Str("partition", key.String()).
				Int("pages", pageNum).
				Int("rows", len(rows)).
				Dur("duration", time.Since(start)).
				Msg("Collect complete")
			return rows, nil
		}
		if page.NextCursor == "" {
			return rows, fmt.Errorf("page %d: %w", pageNum, ErrMissingCursor)
		}
		req.Cursor = page.NextCursor
	}
}
