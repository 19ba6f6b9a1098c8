package playlistbot

import "github.com/m3rciful/playlistbot/internal/models"

// Step is the pending interaction of a user. Exactly one variant is active.
type Step interface {
	stepName() string
}

// Idle means nothing is pending.
type Idle struct{}

// AwaitingPlaylistName means the next text message names a new playlist.
type AwaitingPlaylistName struct{}

// AwaitingUploadTarget holds an uploaded file until a playlist is chosen.
type AwaitingUploadTarget struct {
	FileRef string
}

// BrowsingPlaylist remembers the playlist whose songs were last listed.
type BrowsingPlaylist struct {
	PlaylistID int64
}

func (Idle) stepName() string                 { return "idle" }
func (AwaitingPlaylistName) stepName() string { return "awaiting_playlist_name" }
func (AwaitingUploadTarget) stepName() string { return "awaiting_upload_target" }
func (BrowsingPlaylist) stepName() string     { return "browsing_playlist" }

// StepName returns a stable identifier of s for logs; nil reads as idle.
func StepName(s Step) string {
	if s == nil {
		return Idle{}.stepName()
	}
	return s.stepName()
}

// Session is the per-user conversational state. It lives in memory only.
type Session struct {
	User *models.User
	Step Step
}

func newSession() Session {
	return Session{Step: Idle{}}
}
