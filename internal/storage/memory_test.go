package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thefirstspine/matches-sub001/internal/game"
)

func TestMemoryReturnsCopies(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	inst := &game.Instance{Status: game.StatusActive, Users: []string{"alice", "bob"}}
	require.NoError(t, store.Create(ctx, inst))
	assert.Equal(t, int64(1), inst.ID)

	got, err := store.Get(ctx, inst.ID)
	require.NoError(t, err)
	got.Users[0] = "mallory"

	again, err := store.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Users[0])
}

func TestMemoryFindActive(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(ctx, &game.Instance{Status: game.StatusActive}))
	}
	closed := &game.Instance{Status: game.StatusActive}
	require.NoError(t, store.Create(ctx, closed))
	closed.Status = game.StatusClosed
	require.NoError(t, store.UpdateOne(ctx, closed.ID, closed))

	found, err := store.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, found, 3)
	for i, inst := range found {
		assert.Equal(t, int64(i+1), inst.ID)
	}

	assert.ErrorIs(t, store.UpdateOne(ctx, 99, closed), ErrNotFound)
	_, err = store.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
