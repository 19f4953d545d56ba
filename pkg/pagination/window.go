package pagination

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned by Window.StepTo for an index outside the window.
// Seeing it outside of tests means the step-before-fetch rule was broken.
var ErrOutOfRange = errors.New("page index out of range")

// Window is the page window of one partition: pages in fetch order (backward
// fetches are prepended) and a pointer to the visible one.
//
// Invariant: 0 <= index < len(pages) whenever len(pages) > 0.
type Window[T any] struct {
	pages []Page[T]
	index int
}

// CurrentPage returns the visible page, or an empty page when nothing has
// been fetched yet.
func (w *Window[T]) CurrentPage() Page[T] {
	if len(w.pages) == 0 {
		return Page[T]{Rows: []T{}}
	}
	return w.pages[w.index]
}

// AppendForward adds page after the last one and makes it visible.
func (w *Window[T]) AppendForward(page Page[T]) {
	w.pages = append(w.pages, page)
	w.index = len(w.pages) - 1
}

// PrependBackward adds page before the first one and makes it visible.
func (w *Window[T]) PrependBackward(page Page[T]) {
	w.pages = append([]Page[T]{page}, w.pages...)
	w.index = 0
}

// StepTo makes a cached page visible without fetching.
func (w *Window[T]) StepTo(index int) error {
	if index < 0 || index >= len(w.pages) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, len(w.pages))
	}
	w.index = index
	return nil
}

// Clear drops all pages.
func (w *Window[T]) Clear() {
	w.pages = nil
	w.index = 0
}

// Len returns the number of cached pages.
func (w *Window[T]) Len() int {
	return len(w.pages)
}

// Index returns the position of the visible page.
func (w *Window[T]) Index() int {
	return w.index
}

// CanGoNext reports whether a cached or fetchable page follows the visible one.
func (w *Window[T]) CanGoNext() bool {
	if len(w.pages) == 0 {
		return false
	}
	return w.index < len(w.pages)-1 || w.pages[w.index].HasMore
}

// CanGoPrev reports whether a cached or fetchable page precedes the visible one.
func (w *Window[T]) CanGoPrev() bool {
	if len(w.pages) == 0 {
		return false
	}
	return w.index > 0 || w.pages[0].PrevCursor != ""
}
