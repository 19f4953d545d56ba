package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_TypingTriggerOpens(t *testing.T) {
	b := NewBuffer("Hello ")
	b.Type("{")
	assert.False(t, b.IsOpen())
	assert.Equal(t, -1, b.TriggerStart())

	b.Type("{")
	require.True(t, b.IsOpen())
	assert.Equal(t, 6, b.TriggerStart())
	assert.Equal(t, "", b.Query())

	b.Type("na")
	assert.Equal(t, "na", b.Query())
	assert.Equal(t, "Hello {{na", b.Text())
}

func TestBuffer_SelectReplacesTriggerAndQuery(t *testing.T) {
	b := NewBuffer("Dear , thanks")
	b.MoveCaret(5)
	b.Type("{{fir")
	require.True(t, b.IsOpen())

	require.NoError(t, b.Select("first_name"))
	assert.Equal(t, "Dear {{first_name}}, thanks", b.Text())
	assert.Equal(t, 5+len("{{first_name}}"), b.Caret())
	assert.False(t, b.IsOpen())
}

func TestBuffer_SelectWithMultibyteText(t *testing.T) {
	b := NewBuffer("Grüße ")
	b.Type("{{n")
	require.NoError(t, b.Select("name"))
	assert.Equal(t, "Grüße {{name}}", b.Text())
	assert.Equal(t, len([]rune("Grüße {{name}}")), b.Caret())
}

func TestBuffer_SelectWhenClosed(t *testing.T) {
	b := NewBuffer("plain")
	assert.ErrorIs(t, b.Select("x"), ErrPickerClosed)
	assert.Equal(t, "plain", b.Text())
}

func TestBuffer_CancelKeepsText(t *testing.T) {
	b := NewBuffer("")
	b.Type("{{abc")
	b.Cancel()
	assert.False(t, b.IsOpen())
	assert.Equal(t, "{{abc", b.Text())
	assert.Equal(t, "", b.Query())
}

func TestBuffer_DeletingThroughTriggerDoesNotReopen(t *testing.T) {
	b := NewBuffer("")
	b.Type("{{ab")
	b.Cancel()

	b.Backspace() // {{a
	b.Backspace() // {{
	assert.False(t, b.IsOpen(), "deleting down to the trigger must not open the picker")
	b.Backspace() // {
	b.Backspace() // empty
	assert.False(t, b.IsOpen())
	assert.Equal(t, "", b.Text())
}

func TestBuffer_LosingTriggerContextCloses(t *testing.T) {
	tests := []struct {
		name string
		edit func(b *Buffer)
	}{
		{
			name: "backspace into trigger",
			edit: func(b *Buffer) {
				b.Backspace() // removes x
				b.Backspace() // removes second brace
			},
		},
		{
			name: "caret moved before trigger end",
			edit: func(b *Buffer) { b.MoveCaret(1) },
		},
		{
			name: "trigger brace deleted ahead of caret",
			edit: func(b *Buffer) {
				b.MoveCaret(2)
				b.Backspace()
			},
		},
		{
			name: "token closed by hand",
			edit: func(b *Buffer) { b.Type("}}") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer("")
			b.Type("{{x")
			require.True(t, b.IsOpen())

			tt.edit(b)
			assert.False(t, b.IsOpen())
		})
	}
}

func TestBuffer_EditingQueryKeepsOpen(t *testing.T) {
	b := NewBuffer("")
	b.Type("{{abc")
	b.Backspace()
	assert.True(t, b.IsOpen())
	assert.Equal(t, "ab", b.Query())

	b.MoveCaret(3)
	assert.True(t, b.IsOpen())
	assert.Equal(t, "a", b.Query())

	b.Delete()
	assert.True(t, b.IsOpen())
	assert.Equal(t, "{{a", b.Text())
}

func TestBuffer_MoveCaretClamps(t *testing.T) {
	b := NewBuffer("abc")
	b.MoveCaret(-5)
	assert.Equal(t, 0, b.Caret())
	b.MoveCaret(50)
	assert.Equal(t, 3, b.Caret())
}
