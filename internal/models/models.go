// Package models holds the persisted records of the playlist bot.
package models

// User is a Telegram account known to the bot. ID is the Telegram user id.
type User struct {
	ID       int64   `db:"id"`
	Username *string `db:"username"`
}

// Name returns the username or an empty string when none was recorded.
func (u User) Name() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// Playlist is a named collection owned by one user.
type Playlist struct {
	ID      int64  `db:"id"`
	OwnerID int64  `db:"owner_id"`
	Name    string `db:"name"`
}

// PlaylistItem references one uploaded audio file inside a playlist.
// FileRef is the Telegram file id and is opaque to the bot.
type PlaylistItem struct {
	ID         int64  `db:"id"`
	OwnerID    int64  `db:"owner_id"`
	PlaylistID int64  `db:"playlist_id"`
	FileRef    string `db:"file_ref"`
}
