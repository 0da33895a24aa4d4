package tomlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dkeye/Chorus/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTripKeepsOrder(t *testing.T) {
	t.Parallel()

	store, err := New(filepath.Join(t.TempDir(), "nested", "rooms.toml"))
	require.NoError(t, err)

	rooms := []domain.RoomName{"BETA", "ALPHA", "GAMMA"}
	require.NoError(t, store.Save(context.Background(), rooms))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rooms, got)

	require.NoError(t, store.Save(context.Background(), []domain.RoomName{"ALPHA"}))
	got, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.RoomName{"ALPHA"}, got)
}

func TestStoreMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store, err := New(filepath.Join(t.TempDir(), "rooms.toml"))
	require.NoError(t, err)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreRejectsFutureSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rooms.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 9\nrooms = [\"A\"]\n"), 0o600))

	store, err := New(path)
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	assert.ErrorContains(t, err, "unsupported rooms schema version")
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "rooms.toml"))
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), []domain.RoomName{"ALPHA"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "rooms.toml", entries[0].Name())
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	store, err := New(filepath.Join(t.TempDir(), "rooms.toml"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Save(ctx, nil), context.Canceled)
}
