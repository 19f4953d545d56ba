package pagination

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invalidationLog struct {
	kinds []ResourceKind
	// writes records how many writes had completed when Invalidate ran.
	writes  *int
	atWrite []int
}

func (l *invalidationLog) Invalidate(kind ResourceKind) {
	l.kinds = append(l.kinds, kind)
	if l.writes != nil {
		l.atWrite = append(l.atWrite, *l.writes)
	}
}

func TestHub_InvalidateFansOutByKind(t *testing.T) {
	hub := NewHub()
	prompts := &invalidationLog{}
	variables := &invalidationLog{}
	picker := &invalidationLog{}

	hub.Register("prompts", prompts)
	hub.Register("variables", variables)
	unregister := hub.Register("variables", picker)

	hub.Invalidate("variables")
	assert.Empty(t, prompts.kinds)
	assert.Equal(t, []ResourceKind{"variables"}, variables.kinds)
	assert.Equal(t, []ResourceKind{"variables"}, picker.kinds)

	unregister()
	hub.Invalidate("variables")
	assert.Len(t, variables.kinds, 2)
	assert.Len(t, picker.kinds, 1, "unregistered views are not invalidated")
}

func TestHub_MutateInvalidatesAfterCompletion(t *testing.T) {
	tests := []struct {
		name    string
		mutErr  error
		wantErr bool
	}{
		{name: "success"},
		{name: "failure", mutErr: errors.New("conflict"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub()
			writes := 0
			view := &invalidationLog{writes: &writes}
			hub.Register("prompts", view)

			err := hub.Mutate(context.Background(), "prompts", func(context.Context) error {
				writes++
				return tt.mutErr
			})
			if tt.wantErr {
				require.ErrorIs(t, err, tt.mutErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, []int{1}, view.atWrite, "invalidation runs after the write completed")
		})
	}
}

func TestHub_MutateClearsControllerPartitions(t *testing.T) {
	f := newScriptedFetcher()
	f.chain("", 2)
	c := newTestController(t, f, Options[int]{})
	ctx := context.Background()

	hub := NewHub()
	hub.Register(c.Kind(), c)

	_, err := c.Load(ctx)
	require.NoError(t, err)
	_, err = c.GoNext(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, c.View().Pages)

	err = hub.Mutate(ctx, c.Kind(), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 0, c.View().Pages)

	_, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Cursor(""), f.lastCall().Cursor)
}
