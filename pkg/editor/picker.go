package editor

import (
	"context"
	"fmt"

	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

// Picker couples a Buffer with a paged, searchable variable list. While the
// trigger is open every edit becomes the list's (debounced) search term.
type Picker struct {
	buf  *Buffer
	vars *pagination.Controller[records.Variable]
}

// NewPicker wires buf to the variable controller vars. The controller should
// run with AutoLoad so search switches fetch on their own.
func NewPicker(buf *Buffer, vars *pagination.Controller[records.Variable]) *Picker {
	return &Picker{buf: buf, vars: vars}
}

// Buffer returns the edited buffer.
func (p *Picker) Buffer() *Buffer {
	return p.buf
}

// Type inserts s and updates the search term when the picker is open.
func (p *Picker) Type(s string) {
	wasOpen := p.buf.IsOpen()
	p.buf.Type(s)
	p.sync(wasOpen)
}

// Backspace deletes before the caret.
func (p *Picker) Backspace() {
	wasOpen := p.buf.IsOpen()
	p.buf.Backspace()
	p.sync(wasOpen)
}

// Delete deletes after the caret.
func (p *Picker) Delete() {
	wasOpen := p.buf.IsOpen()
	p.buf.Delete()
	p.sync(wasOpen)
}

// MoveCaret moves the caret.
func (p *Picker) MoveCaret(pos int) {
	wasOpen := p.buf.IsOpen()
	p.buf.MoveCaret(pos)
	p.sync(wasOpen)
}

// Cancel closes the picker.
func (p *Picker) Cancel() {
	p.buf.Cancel()
}

// IsOpen reports whether the picker is open.
func (p *Picker) IsOpen() bool {
	return p.buf.IsOpen()
}

// View returns the visible variables.
func (p *Picker) View() pagination.View[records.Variable] {
	return p.vars.View()
}

// Next pages the variable list forward.
func (p *Picker) Next(ctx context.Context) (pagination.View[records.Variable], error) {
	return p.vars.GoNext(ctx)
}

// Prev pages the variable list back.
func (p *Picker) Prev(ctx context.Context) (pagination.View[records.Variable], error) {
	return p.vars.GoPrev(ctx)
}

// Choose inserts the i-th visible variable.
func (p *Picker) Choose(i int) error {
	if !p.buf.IsOpen() {
		return ErrPickerClosed
	}
	rows := p.vars.View().Rows
	if i < 0 || i >= len(rows) {
		return fmt.Errorf("no variable at position %d (%d visible)", i, len(rows))
	}
	return p.buf.Select(rows[i].Label)
}

func (p *Picker) sync(wasOpen bool) {
	if !p.buf.IsOpen() {
		return
	}
	p.vars.SetSearchTerm(p.buf.Query())
	if !wasOpen {
		// A reopened picker must not offer the previous query's rows.
		p.vars.FlushSearchTerm()
		p.vars.Refresh()
	}
}
