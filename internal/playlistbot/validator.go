package playlistbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/playlistbot/internal/models"
)

// Rejection is a validation failure the user can fix. Its message is shown as is.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string { return r.Message }

// IsRejection reports whether err carries a user-facing Rejection.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// PlaylistsLoader returns the owner's playlists. Validators call it only when a
// check needs them, so the permissive policy costs no extra query.
type PlaylistsLoader func(ctx context.Context) ([]models.Playlist, error)

// Validator decides whether playlist operations may proceed.
// A *Rejection becomes a user error; any other error is a system error.
type Validator interface {
	ValidateNewPlaylist(ctx context.Context, ownerID int64, name string, existing PlaylistsLoader) error
	ValidateTarget(ctx context.Context, ownerID, playlistID int64, owned PlaylistsLoader) error
}

// Policy is the configurable Validator. The zero value accepts everything.
type Policy struct {
	UniqueNames      bool
	EnforceOwnership bool
	MaxNameLength    int
}

// NewPolicy builds the policy described by cfg.
func NewPolicy(cfg PlaylistsConfig) Policy {
	return Policy{
		UniqueNames:      cfg.UniqueNames,
		EnforceOwnership: cfg.EnforceOwnership,
		MaxNameLength:    cfg.NameLimit(),
	}
}

var _ Validator = Policy{}

func (p Policy) ValidateNewPlaylist(ctx context.Context, _ int64, name string, existing PlaylistsLoader) error {
	if p.MaxNameLength > 0 && utf8.RuneCountInString(name) > p.MaxNameLength {
		return &Rejection{Message: fmt.Sprintf(textNameTooLong, p.MaxNameLength)}
	}
	if !p.UniqueNames || existing == nil {
		return nil
	}
	current, err := existing(ctx)
	if err != nil {
		return err
	}
	for _, pl := range current {
		if strings.EqualFold(strings.TrimSpace(pl.Name), name) {
			return &Rejection{Message: textNameTaken}
		}
	}
	return nil
}

func (p Policy) ValidateTarget(ctx context.Context, _ int64, playlistID int64, owned PlaylistsLoader) error {
	if !p.EnforceOwnership || owned == nil {
		return nil
	}
	current, err := owned(ctx)
	if err != nil {
		return err
	}
	for _, pl := range current {
		if pl.ID == playlistID {
			return nil
		}
	}
	return &Rejection{Message: textNotYourPlaylist}
}
