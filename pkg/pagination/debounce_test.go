package pagination

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	terms []string
}

func (r *recorder) emit(term string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terms = append(r.terms, term)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.terms...)
}

func TestGate_EmitsLatestAfterQuietPeriod(t *testing.T) {
	rec := &recorder{}
	g := NewGate(20*time.Millisecond, rec.emit)
	defer g.Stop()

	g.Push("p")
	g.Push("pr")
	g.Push("pro")
	assert.True(t, g.Pending())
	assert.Empty(t, rec.got(), "nothing is emitted before the quiet period")

	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"pro"}, rec.got())
	assert.False(t, g.Pending())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, []string{"pro"}, rec.got(), "intermediate values are dropped, not queued")
}

func TestGate_StopCancelsPending(t *testing.T) {
	rec := &recorder{}
	g := NewGate(20*time.Millisecond, rec.emit)

	g.Push("gone")
	g.Stop()
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.got())

	g.Push("after stop")
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.got(), "a stopped gate ignores edits")
}

func TestGate_Cancel(t *testing.T) {
	rec := &recorder{}
	g := NewGate(20*time.Millisecond, rec.emit)
	defer g.Stop()

	g.Push("dropped")
	g.Cancel()
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.got())

	g.Push("kept")
	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"kept"}, rec.got())
}

func TestGate_Flush(t *testing.T) {
	rec := &recorder{}
	g := NewGate(time.Hour, rec.emit)
	defer g.Stop()

	g.Flush()
	assert.Empty(t, rec.got(), "flush without a pending value is a no-op")

	g.Push("x")
	g.Push("xy")
	g.Flush()
	assert.Equal(t, []string{"xy"}, rec.got())

	g.Flush()
	assert.Equal(t, []string{"xy"}, rec.got(), "a value is emitted once")
}

func TestGate_StopWaitsForRunningEmission(t *testing.T) {
	started := make(chan struct{})
	finish := make(chan struct{})
	var done bool
	var mu sync.Mutex

	g := NewGate(time.Millisecond, func(string) {
		close(started)
		<-finish
		mu.Lock()
		done = true
		mu.Unlock()
	})

	g.Push("slow")
	<-started

	stopped := make(chan struct{})
	go func() {
		g.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while an emission was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(finish)
	<-stopped
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, done)
}

func TestNewGate_DefaultDelay(t *testing.T) {
	g := NewGate(0, func(string) {})
	defer g.Stop()
	assert.Equal(t, DefaultDebounce, g.delay)
}
