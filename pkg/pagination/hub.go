package pagination

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/promptdeck/pkg/logging"
)

// Invalidator is anything holding partitions that must be dropped after a
// mutation. *Controller implements it.
type Invalidator interface {
	Invalidate(kind ResourceKind)
}

// Hub fans invalidations out to every registered view of a resource kind,
// e.g. the variables list and the variable picker of an open editor.
type Hub struct {
	mu     sync.RWMutex
	subs   map[ResourceKind]map[uint64]Invalidator
	nextID uint64
	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[ResourceKind]map[uint64]Invalidator),
		logger: logging.NewLogger("pager-hub"),
	}
}

// Register subscribes inv to invalidations of kind. The returned function
// removes the subscription.
func (h *Hub) Register(kind ResourceKind, inv Invalidator) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[kind] == nil {
		h.subs[kind] = make(map[uint64]Invalidator)
	}
	h.subs[kind][id] = inv

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[kind], id)
	}
}

// Invalidate clears the partitions of kind in every registered view.
func (h *Hub) Invalidate(kind ResourceKind) {
	h.mu.RLock()
	targets := make([]Invalidator, 0, len(h.subs[kind]))
	for _, inv := range h.subs[kind] {
		targets = append(targets, inv)
	}
	h.mu.RUnlock()

	for _, inv := range targets {
		inv.Invalidate(kind)
	}

	h.logger.Debug().
		Str("kind", string(kind)).
		Int("views", len(targets)).
		Msg("Invalidated views")
}

// Mutate runs a create, update or delete and invalidates kind once it has
// finished, whether it succeeded or not. The mutation's error is returned.
func (h *Hub) Mutate(ctx context.Context, kind ResourceKind, mutation func(context.Context) error) error {
	err := mutation(ctx)
	h.Invalidate(kind)
	return err
}
