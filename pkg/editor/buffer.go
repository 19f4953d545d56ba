// Package editor implements the prompt editor's inline variable references:
// typing "{{" opens a variable picker, choosing a variable replaces what was
// typed since the trigger with a {{label}} token.
package editor

import (
	"errors"
	"strings"
)

// TriggerSequence opens the picker when typed.
const TriggerSequence = "{{"

// ErrPickerClosed is returned by Select when no trigger is active.
var ErrPickerClosed = errors.New("picker is not open")

// Buffer is an editable text with a caret and the trigger state machine.
// Positions count runes.
//
// States: Closed -> Open when the trigger sequence is typed; Open -> Closed on
// Cancel, on Select, or when the trigger context is lost (the trigger is
// edited away or the caret leaves it). Deletions never open the picker.
type Buffer struct {
	text         []rune
	caret        int
	open         bool
	triggerStart int
}

// NewBuffer creates a buffer holding text with the caret at the end.
func NewBuffer(text string) *Buffer {
	r := []rune(text)
	return &Buffer{text: r, caret: len(r)}
}

// Text returns the buffer contents.
func (b *Buffer) Text() string {
	return string(b.text)
}

// Caret returns the caret position.
func (b *Buffer) Caret() int {
	return b.caret
}

// IsOpen reports whether the picker is open.
func (b *Buffer) IsOpen() bool {
	return b.open
}

// TriggerStart returns where the active trigger begins, or -1.
func (b *Buffer) TriggerStart() int {
	if !b.open {
		return -1
	}
	return b.triggerStart
}

// Query returns what was typed after the trigger, used as the picker's
// search term.
func (b *Buffer) Query() string {
	if !b.open {
		return ""
	}
	return string(b.text[b.triggerStart+len(TriggerSequence) : b.caret])
}

// Type inserts s at the caret.
func (b *Buffer) Type(s string) {
	trigger := []rune(TriggerSequence)
	for _, r := range s {
		b.text = append(b.text, 0)
		copy(b.text[b.caret+1:], b.text[b.caret:])
		b.text[b.caret] = r
		b.caret++

		if !b.open && b.caret >= len(trigger) && string(b.text[b.caret-len(trigger):b.caret]) == TriggerSequence {
			b.open = true
			b.triggerStart = b.caret - len(trigger)
		}
	}
	b.checkContext()
}

// Backspace removes the rune before the caret.
func (b *Buffer) Backspace() {
	if b.caret == 0 {
		return
	}
	b.text = append(b.text[:b.caret-1], b.text[b.caret:]...)
	b.caret--
	b.checkContext()
}

// Delete removes the rune after the caret.
func (b *Buffer) Delete() {
	if b.caret >= len(b.text) {
		return
	}
	b.text = append(b.text[:b.caret], b.text[b.caret+1:]...)
	b.checkContext()
}

// MoveCaret places the caret at pos, clamped to the text.
func (b *Buffer) MoveCaret(pos int) {
	b.caret = max(0, min(pos, len(b.text)))
	b.checkContext()
}

// Cancel closes the picker and keeps the text as typed.
func (b *Buffer) Cancel() {
	b.open = false
}

// Select replaces the trigger and query with a {{name}} token and moves the
// caret right after it.
func (b *Buffer) Select(name string) error {
	if !b.open {
		return ErrPickerClosed
	}
	token := []rune(Token(name))

	rest := append([]rune(nil), b.text[b.caret:]...)
	b.text = append(append(b.text[:b.triggerStart], token...), rest...)
	b.caret = b.triggerStart + len(token)
	b.open = false
	return nil
}

// checkContext closes the picker when the trigger it was opened for is gone.
func (b *Buffer) checkContext() {
	if !b.open {
		return
	}
	end := b.triggerStart + len([]rune(TriggerSequence))
	switch {
	case end > len(b.text) || b.caret < end:
		b.open = false
	case string(b.text[b.triggerStart:end]) != TriggerSequence:
		b.open = false
	case strings.Contains(string(b.text[end:b.caret]), "}}"):
		b.open = false
	}
}
