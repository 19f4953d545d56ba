package pagination

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 300 * time.Millisecond

// Gate delays search-term edits until no further edit arrived for the
// configured delay, then emits the latest value. Intermediate values are
// dropped.
type Gate struct {
	delay time.Duration
	emit  func(string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	seq     uint64
	stopped bool

	// emitting tracks emissions in progress so Stop can wait for them.
	emitting sync.WaitGroup
}

// NewGate creates a gate calling emit after delay of quiet.
func NewGate(delay time.Duration, emit func(string)) *Gate {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Gate{
		delay: delay,
		emit:  emit,
	}
}

// Push records an edit and restarts the quiet period.
func (g *Gate) Push(term string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	g.stopTimerLocked()
	g.seq++
	seq := g.seq
	g.pending = term
	g.timer = time.AfterFunc(g.delay, func() {
		g.fire(seq)
	})
}

// Flush emits the pending value now, if any.
func (g *Gate) Flush() {
	g.mu.Lock()
	if g.stopped || g.timer == nil {
		g.mu.Unlock()
		return
	}
	g.stopTimerLocked()
	g.seq++
	seq := g.seq
	g.mu.Unlock()

	g.fire(seq)
}

// Cancel drops a pending value without emitting it.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopTimerLocked()
	g.seq++
}

// Pending reports whether an emission is scheduled.
func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timer != nil
}

// Stop cancels any pending emission and disables the gate. Once Stop returns
// no further emission happens. It waits for a running emission, so emit must
// not call Stop.
func (g *Gate) Stop() {
	g.mu.Lock()
	g.stopped = true
	g.stopTimerLocked()
	g.seq++
	g.mu.Unlock()

	g.emitting.Wait()
}

func (g *Gate) fire(seq uint64) {
	g.mu.Lock()
	if g.stopped || seq != g.seq {
		g.mu.Unlock()
		return
	}
	term := g.pending
	g.timer = nil
	g.seq++
	g.emitting.Add(1)
	g.mu.Unlock()

	defer g.emitting.Done()
	g.emit(term)
}

func (g *Gate) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
