// Package storage is the relational persistence gateway for users, playlists and items.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/internal/models"
)

// ErrPersistence marks every failure returned by the gateway.
var ErrPersistence = errors.New("storage: persistence failure")

// Gateway is the persistence contract used by the interaction state machine.
type Gateway interface {
	FindPlaylistsByOwner(ctx context.Context, ownerID int64) ([]models.Playlist, error)
	CreatePlaylist(ctx context.Context, ownerID int64, name string) (models.Playlist, error)
	FindOrCreateUser(ctx context.Context, id int64, username string) (models.User, error)
	FindPlaylistItems(ctx context.Context, playlistID int64) ([]models.PlaylistItem, error)
	CreatePlaylistItem(ctx context.Context, ownerID, playlistID int64, fileRef string) (models.PlaylistItem, error)
}

// Store implements Gateway on top of a sqlx pool. Queries are written with
// '?' placeholders and rebound for the pool's driver.
type Store struct {
	db *sqlx.DB
}

var _ Gateway = (*Store)(nil)

// New wraps db. The pool is shared and safe for concurrent use.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const (
	qPlaylistsByOwner = `SELECT id, owner_id, name FROM playlists WHERE owner_id = ? ORDER BY id ASC`
	qCreatePlaylist   = `INSERT INTO playlists (owner_id, name) VALUES (?, ?) RETURNING id, owner_id, name`
	qInsertUser       = `INSERT INTO users (id, username) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`
	qUserByID         = `SELECT id, username FROM users WHERE id = ?`
	qItemsByPlaylist  = `SELECT id, owner_id, playlist_id, file_ref FROM playlist_items WHERE playlist_id = ? ORDER BY id ASC`
	qCreateItem       = `INSERT INTO playlist_items (owner_id, playlist_id, file_ref) VALUES (?, ?, ?) RETURNING id, owner_id, playlist_id, file_ref`
)

// FindPlaylistsByOwner returns the owner's playlists in creation order.
func (s *Store) FindPlaylistsByOwner(ctx context.Context, ownerID int64) ([]models.Playlist, error) {
	start := time.Now()
	out := []models.Playlist{}
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(qPlaylistsByOwner), ownerID)
	if err := s.finish(ctx, "find_playlists", start, err,
		slog.Int64("owner_id", ownerID),
		slog.Int("rows", len(out)),
	); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePlaylist inserts a playlist and returns it with its assigned id.
func (s *Store) CreatePlaylist(ctx context.Context, ownerID int64, name string) (models.Playlist, error) {
	start := time.Now()
	var p models.Playlist
	err := s.db.GetContext(ctx, &p, s.db.Rebind(qCreatePlaylist), ownerID, name)
	if err := s.finish(ctx, "create_playlist", start, err,
		slog.Int64("owner_id", ownerID),
		slog.Int64("playlist_id", p.ID),
	); err != nil {
		return models.Playlist{}, err
	}
	return p, nil
}

// FindOrCreateUser returns the stored user, inserting it on first sight.
// An existing username is never refreshed.
func (s *Store) FindOrCreateUser(ctx context.Context, id int64, username string) (models.User, error) {
	start := time.Now()
	var name any
	if username != "" {
		name = username
	}
	var u models.User
	err := func() error {
		if _, err := s.db.ExecContext(ctx, s.db.Rebind(qInsertUser), id, name); err != nil {
			return err
		}
		return s.db.GetContext(ctx, &u, s.db.Rebind(qUserByID), id)
	}()
	if err := s.finish(ctx, "find_or_create_user", start, err, slog.Int64("user_id", id)); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// FindPlaylistItems returns items in insertion order; an empty playlist yields an empty slice.
func (s *Store) FindPlaylistItems(ctx context.Context, playlistID int64) ([]models.PlaylistItem, error) {
	start := time.Now()
	out := []models.PlaylistItem{}
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(qItemsByPlaylist), playlistID)
	if err := s.finish(ctx, "find_items", start, err,
		slog.Int64("playlist_id", playlistID),
		slog.Int("rows", len(out)),
	); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePlaylistItem appends fileRef to the playlist. Ownership is not checked here.
func (s *Store) CreatePlaylistItem(ctx context.Context, ownerID, playlistID int64, fileRef string) (models.PlaylistItem, error) {
	start := time.Now()
	var it models.PlaylistItem
	err := s.db.GetContext(ctx, &it, s.db.Rebind(qCreateItem), ownerID, playlistID, fileRef)
	if err := s.finish(ctx, "create_item", start, err,
		slog.Int64("owner_id", ownerID),
		slog.Int64("playlist_id", playlistID),
	); err != nil {
		return models.PlaylistItem{}, err
	}
	return it, nil
}

// finish logs the outcome of op and wraps a failure with ErrPersistence.
func (s *Store) finish(ctx context.Context, op string, start time.Time, err error, attrs ...slog.Attr) error {
	attrs = append(attrs,
		slog.String("op", op),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		logger.LogEvent(ctx, logger.Store, slog.LevelError, "store."+op, attrs...)
		return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
	}
	attrs = append(attrs, slog.String("status", "ok"))
	logger.LogEvent(ctx, logger.Store, slog.LevelDebug, "store."+op, attrs...)
	return nil
}
