package playlistbot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/playlistbot/internal/models"
)

func loader(list ...models.Playlist) (PlaylistsLoader, *int) {
	calls := 0
	return func(context.Context) ([]models.Playlist, error) {
		calls++
		return list, nil
	}, &calls
}

func TestPolicyZeroValueAcceptsEverything(t *testing.T) {
	ctx := context.Background()
	load, calls := loader(models.Playlist{ID: 1, Name: "Mix"})
	var p Policy
	assert.NoError(t, p.ValidateNewPlaylist(ctx, 1, "Mix", load))
	assert.NoError(t, p.ValidateTarget(ctx, 1, 42, load))
	assert.Zero(t, *calls)
}

func TestPolicyNameLength(t *testing.T) {
	p := Policy{MaxNameLength: 3}
	ctx := context.Background()
	assert.NoError(t, p.ValidateNewPlaylist(ctx, 1, "Мир", nil), "runes, not bytes")
	err := p.ValidateNewPlaylist(ctx, 1, "Миры", nil)
	require.Error(t, err)
	assert.True(t, IsRejection(err))
}

func TestPolicyUniqueAndOwnership(t *testing.T) {
	ctx := context.Background()
	load, _ := loader(models.Playlist{ID: 7, OwnerID: 1, Name: "Road Trip"})
	p := Policy{UniqueNames: true, EnforceOwnership: true}

	assert.True(t, IsRejection(p.ValidateNewPlaylist(ctx, 1, "road trip", load)))
	assert.NoError(t, p.ValidateNewPlaylist(ctx, 1, "Gym", load))
	assert.NoError(t, p.ValidateTarget(ctx, 1, 7, load))
	assert.True(t, IsRejection(p.ValidateTarget(ctx, 1, 8, load)))
}

func TestPolicyLoaderFailureIsNotARejection(t *testing.T) {
	boom := errors.New("db down")
	failing := func(context.Context) ([]models.Playlist, error) { return nil, boom }
	p := Policy{UniqueNames: true, EnforceOwnership: true}
	err := p.ValidateNewPlaylist(context.Background(), 1, "x", failing)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsRejection(err))
	assert.ErrorIs(t, p.ValidateTarget(context.Background(), 1, 1, failing), boom)
}

func TestNewPolicyFromConfig(t *testing.T) {
	assert.Equal(t, DefaultMaxNameLength, NewPolicy(PlaylistsConfig{}).MaxNameLength)
	zero := 0
	assert.Equal(t, 0, NewPolicy(PlaylistsConfig{MaxNameLength: &zero}).MaxNameLength)
	p := NewPolicy(PlaylistsConfig{UniqueNames: true, EnforceOwnership: true})
	assert.True(t, p.UniqueNames)
	assert.True(t, p.EnforceOwnership)
}
