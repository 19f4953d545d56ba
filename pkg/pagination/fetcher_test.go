package pagination

import (
	"context"
	"fmt"
	"sync"
)

// scriptedFetcher answers requests from a table keyed by term, cursor and
// direction. Terms listed in hold block until their channel is closed.
type scriptedFetcher struct {
	mu      sync.Mutex
	pages   map[string]Page[int]
	errs    map[string]error
	hold    map[string]chan struct{}
	calls   []Request
	started chan Request
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		pages:   make(map[string]Page[int]),
		errs:    make(map[string]error),
		hold:    make(map[string]chan struct{}),
		started: make(chan Request, 16),
	}
}

func scriptKey(term string, cursor Cursor, dir Direction) string {
	return fmt.Sprintf("%s|%s|%s", term, cursor, dir)
}

func (f *scriptedFetcher) on(term string, cursor Cursor, dir Direction, p Page[int]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[scriptKey(term, cursor, dir)] = p
}

func (f *scriptedFetcher) fail(term string, cursor Cursor, dir Direction, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[scriptKey(term, cursor, dir)] = err
}

func (f *scriptedFetcher) block(term string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.hold[term] = ch
	return ch
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, req Request) (Page[int], error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	hold := f.hold[req.SearchTerm]
	key := scriptKey(req.SearchTerm, req.Cursor, req.Direction)
	p, ok := f.pages[key]
	err := f.errs[key]
	f.mu.Unlock()

	f.started <- req
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return Page[int]{}, ctx.Err()
		}
	}
	if err != nil {
		return Page[int]{}, err
	}
	if !ok {
		return Page[int]{}, fmt.Errorf("no page scripted for %s", key)
	}
	return p, nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *scriptedFetcher) lastCall() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *scriptedFetcher) termsRequested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	terms := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		terms = append(terms, c.SearchTerm)
	}
	return terms
}

// chain scripts n forward pages for term: page i holds rows i*10..i*10+9.
func (f *scriptedFetcher) chain(term string, n int) {
	for i := 0; i < n; i++ {
		rows := make([]int, 10)
		for j := range rows {
			rows[j] = i*10 + j
		}
		var cursor, next, prev Cursor
		if i > 0 {
			cursor = Cursor(fmt.Sprintf("n%d", i))
			prev = Cursor(fmt.Sprintf("p%d", i))
		}
		if i < n-1 {
			next = Cursor(fmt.Sprintf("n%d", i+1))
		}
		f.on(term, cursor, DirectionNext, Page[int]{Rows: rows, HasMore: i < n-1, NextCursor: next, PrevCursor: prev})
	}
}

func rowsOf(n, start int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = start + i
	}
	return rows
}
