package pagination

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/promptdeck/pkg/logging"
)

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 10

// ErrBusy is returned when a navigation is attempted while the active
// partition already has a fetch in flight.
var ErrBusy = errors.New("fetch already in flight")

// Options configures a Controller.
type Options[T any] struct {
	// OwnerID is forwarded to every fetch.
	OwnerID string

	// Limit is the page size (default: DefaultLimit).
	Limit int

	// Debounce is the search-term quiet period (default: DefaultDebounce).
	Debounce time.Duration

	// AutoLoad fetches the first page in the background whenever the active
	// partition becomes empty through a search change or an invalidation.
	AutoLoad bool

	// Logger defaults to the global logger with component=pager.
	Logger *zerolog.Logger

	// OnChange receives every new view. It runs outside the controller lock
	// and must not block. It may run on the debounce timer or a background
	// load, both of which Close waits for, so it must not call Close itself;
	// hand teardown to another goroutine instead.
	OnChange func(View[T])
}

// View is the render-ready state of the active partition.
type View[T any] struct {
	Rows       []T
	CanGoNext  bool
	CanGoPrev  bool
	IsLoading  bool
	SearchTerm string
	Index      int
	Pages      int

	// Err is the last fetch failure, kept until dismissed or superseded.
	Err error
}

type partition[T any] struct {
	key      PartitionKey
	window   Window[T]
	inFlight bool

	// gen changes on every invalidation so outstanding responses can be
	// recognised as stale.
	gen uint64
}

// Controller drives the page windows of one resource kind.
type Controller[T any] struct {
	kind    ResourceKind
	fetcher Fetcher[T]
	opts    Options[T]
	logger  zerolog.Logger
	gate    *Gate

	mu         sync.Mutex
	partitions map[PartitionKey]*partition[T]
	active     PartitionKey
	err        error
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup
}

// NewController creates a controller whose active partition is the empty
// search term. Nothing is fetched until Load, GoNext or AutoLoad asks for it.
func NewController[T any](kind ResourceKind, fetcher Fetcher[T], opts Options[T]) *Controller[T] {
	if fetcher == nil {
		panic("pagination: fetcher cannot be nil")
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	logger := logging.NewLogger("pager")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("kind", string(kind)).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller[T]{
		kind:       kind,
		fetcher:    fetcher,
		opts:       opts,
		logger:     logger,
		partitions: make(map[PartitionKey]*partition[T]),
		ctx:        ctx,
		cancel:     cancel,
	}
	c.active = BuildKey(kind, "")
	c.partitionLocked(c.active)
	c.gate = NewGate(opts.Debounce, c.onSearchTerm)

	return c
}

// Kind returns the resource kind this controller pages over.
func (c *Controller[T]) Kind() ResourceKind {
	return c.kind
}

// SetSearchTerm submits a search edit. The partition switch happens once the
// debounce quiet period elapses.
func (c *Controller[T]) SetSearchTerm(term string) {
	c.gate.Push(term)
}

// FlushSearchTerm applies a pending debounced search term immediately.
func (c *Controller[T]) FlushSearchTerm() {
	c.gate.Flush()
}

// ApplySearchTerm switches partitions without debouncing and loads the first
// page of the new partition if needed. A pending debounced term is dropped.
func (c *Controller[T]) ApplySearchTerm(ctx context.Context, term string) (View[T], error) {
	c.gate.Cancel()
	c.switchTo(term)
	return c.Load(ctx)
}

// Load makes sure the active partition holds its first page.
func (c *Controller[T]) Load(ctx context.Context) (View[T], error) {
	c.mu.Lock()
	p := c.partitions[c.active]
	if p.inFlight {
		return c.busyAndUnlock()
	}
	if p.window.Len() > 0 {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, nil
	}
	return c.fetchAndUnlock(ctx, p, DirectionNext, "")
}

// GoNext shows the following page, stepping through the cache when possible
// and fetching with the visible page's next cursor otherwise. It does nothing
// when CanGoNext is false, including before the first Load.
func (c *Controller[T]) GoNext(ctx context.Context) (View[T], error) {
	c.mu.Lock()
	p := c.partitions[c.active]
	if p.inFlight {
		return c.busyAndUnlock()
	}

	w := &p.window
	switch {
	case w.Index()+1 < w.Len():
		return c.stepAndUnlock(p, w.Index()+1, DirectionNext)
	case !w.CanGoNext():
		v := c.viewLocked()
		c.mu.Unlock()
		return v, nil
	}
	return c.fetchAndUnlock(ctx, p, DirectionNext, w.CurrentPage().NextCursor)
}

// GoPrev shows the preceding page, stepping through the cache when possible
// and fetching with the first page's previous cursor otherwise.
func (c *Controller[T]) GoPrev(ctx context.Context) (View[T], error) {
	c.mu.Lock()
	p := c.partitions[c.active]
	if p.inFlight {
		return c.busyAndUnlock()
	}

	w := &p.window
	switch {
	case w.Len() == 0:
		v := c.viewLocked()
		c.mu.Unlock()
		return v, nil
	case w.Index() > 0:
		return c.stepAndUnlock(p, w.Index()-1, DirectionPrev)
	case w.pages[0].PrevCursor == "":
		v := c.viewLocked()
		c.mu.Unlock()
		return v, nil
	}
	return c.fetchAndUnlock(ctx, p, DirectionPrev, w.pages[0].PrevCursor)
}

// Invalidate clears every partition of kind, whatever its search term.
// Call it after a create, update or delete has completed.
func (c *Controller[T]) Invalidate(kind ResourceKind) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	cleared := 0
	for key, p := range c.partitions {
		if key.Kind != kind {
			continue
		}
		p.window.Clear()
		p.gen++
		cleared++
	}
	activeCleared := c.active.Kind == kind
	if activeCleared {
		c.err = nil
	}
	v := c.viewLocked()
	c.mu.Unlock()

	if cleared == 0 {
		return
	}
	PagerInvalidations.WithLabelValues(string(kind)).Add(float64(cleared))
	c.logger.Debug().
		Int("partitions", cleared).
		Msg("Partitions invalidated")

	c.notify(v)
	if activeCleared && c.opts.AutoLoad {
		c.loadAsync()
	}
}

// Refresh loads the active partition in the background if it is empty.
func (c *Controller[T]) Refresh() {
	c.loadAsync()
}

// View returns the current state of the active partition.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// DismissError clears the transient failure state.
func (c *Controller[T]) DismissError() {
	c.mu.Lock()
	c.err = nil
	v := c.viewLocked()
	c.mu.Unlock()
	c.notify(v)
}

// Close tears the controller down: pending search edits are dropped,
// background loads are cancelled and waited for.
func (c *Controller[T]) Close() {
	c.gate.Stop()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.loads.Wait()
}

func (c *Controller[T]) onSearchTerm(term string) {
	if !c.switchTo(term) {
		return
	}
	c.notify(c.View())
	if c.opts.AutoLoad {
		c.loadAsync()
	}
}

// switchTo activates the partition for term and reports whether the active
// partition changed.
func (c *Controller[T]) switchTo(term string) bool {
	key := BuildKey(c.kind, term)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || key == c.active {
		return false
	}
	p := c.partitionLocked(key)
	if p.window.Len() > 0 {
		_ = p.window.StepTo(0)
	}
	c.active = key
	c.err = nil

	c.logger.Debug().
		Str("partition", key.String()).
		Int("cached_pages", p.window.Len()).
		Msg("Search partition activated")

	return true
}

func (c *Controller[T]) partitionLocked(key PartitionKey) *partition[T] {
	p, ok := c.partitions[key]
	if !ok {
		p = &partition[T]{key: key}
		c.partitions[key] = p
	}
	return p
}

func (c *Controller[T]) busyAndUnlock() (View[T], error) {
	v := c.viewLocked()
	c.mu.Unlock()
	PagerBusy.WithLabelValues(string(c.kind)).Inc()
	return v, ErrBusy
}

func (c *Controller[T]) stepAndUnlock(p *partition[T], index int, dir Direction) (View[T], error) {
	if err := p.window.StepTo(index); err != nil {
		c.mu.Unlock()
		return View[T]{}, err
	}
	v := c.viewLocked()
	c.mu.Unlock()

	PagerSteps.WithLabelValues(string(c.kind), string(dir)).Inc()
	c.logger.Debug().
		Str("direction", string(dir)).
		Int("index", index).
		Msg("Served page from cache")

	c.notify(v)
	return v, nil
}

// fetchAndUnlock issues a fetch for p. It is entered with c.mu held and
// releases it for the duration of the request.
func (c *Controller[T]) fetchAndUnlock(ctx context.Context, p *partition[T], dir Direction, cursor Cursor) (View[T], error) {
	p.inFlight = true
	gen := p.gen
	req := Request{
		Partition:  p.key,
		OwnerID:    c.opts.OwnerID,
		Limit:      c.opts.Limit,
		SearchTerm: p.key.Term,
		Cursor:     cursor,
		Direction:  dir,
	}
	loading := c.viewLocked()
	c.mu.Unlock()
	c.notify(loading)

	start := time.Now()
	page, err := c.fetcher.FetchPage(ctx, req)
	duration := time.Since(start)
	PagerFetchDuration.WithLabelValues(string(c.kind), string(dir)).Observe(duration.Seconds())

	c.mu.Lock()
	p.inFlight = false

	if c.closed || c.active != req.Partition || p.gen != gen {
		// An invalidation that raced this fetch had its background load
		// refused as busy; the emptied active partition is reloaded here.
		reload := !c.closed && c.opts.AutoLoad && c.active == req.Partition && p.window.Len() == 0
		v := c.viewLocked()
		c.mu.Unlock()

		PagerFetches.WithLabelValues(string(c.kind), string(dir), "stale").Inc()
		c.logger.Debug().
			Str("partition", req.Partition.String()).
			Str("direction", string(dir)).
			Dur("duration", duration).
			Bool("reload", reload).
			Msg("Discarded response for superseded partition")

		c.notify(v)
		if reload {
			c.loadAsync()
		}
		return v, nil
	}

	if err != nil {
		c.err = err
		v := c.viewLocked()
		c.mu.Unlock()

		PagerFetches.WithLabelValues(string(c.kind), string(dir), "error").Inc()
		c.logger.Warn().
			Err(err).
			Str("partition", req.Partition.String()).
			Str("direction", string(dir)).
			Dur("duration", duration).
			Msg("Page fetch failed")

		c.notify(v)
		return v, err
	}

	if dir == DirectionPrev {
		p.window.PrependBackward(page)
	} else {
		p.window.AppendForward(page)
	}
	c.err = nil
	v := c.viewLocked()
	c.mu.Unlock()

	PagerFetches.WithLabelValues(string(c.kind), string(dir), "ok").Inc()
	c.logger.Debug().
		Str("partition", req.Partition.String()).
		Str("direction", string(dir)).
		Int("rows", len(page.Rows)).
		Bool("has_more", page.HasMore).
		Int("index", v.Index).
		Dur("duration", duration).
		Msg("Page fetched")

	c.notify(v)
	return v, nil
}

func (c *Controller[T]) loadAsync() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.loads.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.loads.Done()
		if _, err := c.Load(c.ctx); err != nil && !errors.Is(err, ErrBusy) && c.ctx.Err() == nil {
			c.logger.Warn().Err(err).Msg("Background load failed")
		}
	}()
}

func (c *Controller[T]) viewLocked() View[T] {
	p := c.partitions[c.active]
	page := p.window.CurrentPage()
	return View[T]{
		Rows:       slices.Clone(page.Rows),
		CanGoNext:  p.window.CanGoNext(),
		CanGoPrev:  p.window.CanGoPrev(),
		IsLoading:  p.inFlight,
		SearchTerm: c.active.Term,
		Index:      p.window.Index(),
		Pages:      p.window.Len(),
		Err:        c.err,
	}
}

func (c *Controller[T]) notify(v View[T]) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(v)
	}
}
