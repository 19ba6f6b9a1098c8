package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/playlistbot/core/database"
	"github.com/m3rciful/playlistbot/migrations"
)

func newStore(t *testing.T) (*Store, *sqlx.DB) {
	t.Helper()
	cfg := database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "store.db")}
	require.NoError(t, database.RunMigrations(cfg, migrations.FS))
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), db
}

func TestFindOrCreateUserIsIdempotent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	u, err := s.FindOrCreateUser(ctx, 100, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.ID)
	assert.Equal(t, "alice", u.Name())

	again, err := s.FindOrCreateUser(ctx, 100, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Name(), "username is not refreshed")

	anon, err := s.FindOrCreateUser(ctx, 200, "")
	require.NoError(t, err)
	assert.Nil(t, anon.Username)
}

func TestPlaylistsAreScopedToOwner(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	for _, id := range []int64{1, 2} {
		_, err := s.FindOrCreateUser(ctx, id, "")
		require.NoError(t, err)
	}

	p1, err := s.CreatePlaylist(ctx, 1, "Road Trip")
	require.NoError(t, err)
	assert.NotZero(t, p1.ID)
	assert.Equal(t, int64(1), p1.OwnerID)
	assert.Equal(t, "Road Trip", p1.Name)

	p2, err := s.CreatePlaylist(ctx, 1, "Gym")
	require.NoError(t, err)
	_, err = s.CreatePlaylist(ctx, 2, "Other")
	require.NoError(t, err)

	mine, err := s.FindPlaylistsByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, p1.ID, mine[0].ID)
	assert.Equal(t, p2.ID, mine[1].ID)

	none, err := s.FindPlaylistsByOwner(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPlaylistItemsKeepInsertionOrder(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	_, err := s.FindOrCreateUser(ctx, 1, "bob")
	require.NoError(t, err)
	p, err := s.CreatePlaylist(ctx, 1, "Mix")
	require.NoError(t, err)

	empty, err := s.FindPlaylistItems(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, ref := range []string{"f-a", "f-b", "f-c"} {
		it, err := s.CreatePlaylistItem(ctx, 1, p.ID, ref)
		require.NoError(t, err)
		assert.Equal(t, ref, it.FileRef)
		assert.Equal(t, p.ID, it.PlaylistID)
	}

	items, err := s.FindPlaylistItems(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "f-a", items[0].FileRef)
	assert.Equal(t, "f-b", items[1].FileRef)
	assert.Equal(t, "f-c", items[2].FileRef)
}

func TestFailuresWrapErrPersistence(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()

	// Foreign key: the owner does not exist.
	_, err := s.CreatePlaylist(ctx, 999, "orphan")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))

	require.NoError(t, db.Close())
	_, err = s.FindPlaylistsByOwner(ctx, 1)
	assert.ErrorIs(t, err, ErrPersistence)
	_, err = s.FindOrCreateUser(ctx, 1, "x")
	assert.ErrorIs(t, err, ErrPersistence)
	_, err = s.FindPlaylistItems(ctx, 1)
	assert.ErrorIs(t, err, ErrPersistence)
	_, err = s.CreatePlaylistItem(ctx, 1, 1, "f")
	assert.ErrorIs(t, err, ErrPersistence)
}
