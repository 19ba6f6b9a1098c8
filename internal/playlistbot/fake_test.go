package playlistbot

import (
	"context"
	"fmt"
	"sync"

	"github.com/m3rciful/playlistbot/internal/models"
	"github.com/m3rciful/playlistbot/internal/storage"
)

// fakeGateway is an in-memory storage.Gateway with failure injection.
type fakeGateway struct {
	mu        sync.Mutex
	users     map[int64]models.User
	playlists []models.Playlist
	items     []models.PlaylistItem
	nextID    int64
	fail      map[string]bool
	calls     map[string]int
}

var _ storage.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		users: make(map[int64]models.User),
		fail:  make(map[string]bool),
		calls: make(map[string]int),
	}
}

func (f *fakeGateway) enter(op string) error {
	f.calls[op]++
	if f.fail[op] {
		return fmt.Errorf("%w: %s: injected", storage.ErrPersistence, op)
	}
	return nil
}

func (f *fakeGateway) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) failOn(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = true
}

func (f *fakeGateway) FindPlaylistsByOwner(_ context.Context, ownerID int64) ([]models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("FindPlaylistsByOwner"); err != nil {
		return nil, err
	}
	out := []models.Playlist{}
	for _, p := range f.playlists {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeGateway) CreatePlaylist(_ context.Context, ownerID int64, name string) (models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreatePlaylist"); err != nil {
		return models.Playlist{}, err
	}
	f.nextID++
	p := models.Playlist{ID: f.nextID, OwnerID: ownerID, Name: name}
	f.playlists = append(f.playlists, p)
	return p, nil
}

func (f *fakeGateway) FindOrCreateUser(_ context.Context, id int64, username string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("FindOrCreateUser"); err != nil {
		return models.User{}, err
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	u := models.User{ID: id}
	if username != "" {
		u.Username = &username
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeGateway) FindPlaylistItems(_ context.Context, playlistID int64) ([]models.PlaylistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("FindPlaylistItems"); err != nil {
		return nil, err
	}
	out := []models.PlaylistItem{}
	for _, it := range f.items {
		if it.PlaylistID == playlistID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeGateway) CreatePlaylistItem(_ context.Context, ownerID, playlistID int64, fileRef string) (models.PlaylistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreatePlaylistItem"); err != nil {
		return models.PlaylistItem{}, err
	}
	f.nextID++
	it := models.PlaylistItem{ID: f.nextID, OwnerID: ownerID, PlaylistID: playlistID, FileRef: fileRef}
	f.items = append(f.items, it)
	return it, nil
}

// seed stores a playlist with the given file refs and returns its id.
func (f *fakeGateway) seed(ownerID int64, name string, refs ...string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := models.Playlist{ID: f.nextID, OwnerID: ownerID, Name: name}
	f.playlists = append(f.playlists, p)
	for _, r := range refs {
		f.nextID++
		f.items = append(f.items, models.PlaylistItem{ID: f.nextID, OwnerID: ownerID, PlaylistID: p.ID, FileRef: r})
	}
	return p.ID
}

func (f *fakeGateway) itemsOf(playlistID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs []string
	for _, it := range f.items {
		if it.PlaylistID == playlistID {
			refs = append(refs, it.FileRef)
		}
	}
	return refs
}
