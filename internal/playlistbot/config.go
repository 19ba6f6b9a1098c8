package playlistbot

import (
	"fmt"

	coreconfig "github.com/m3rciful/playlistbot/core/config"
	coredatabase "github.com/m3rciful/playlistbot/core/database"
)

// DefaultMaxNameLength caps playlist names when playlists.max_name_length is unset.
const DefaultMaxNameLength = 128

// PlaylistsConfig selects the validation policy applied to playlist operations.
type PlaylistsConfig struct {
	// UniqueNames rejects a new playlist whose name the owner already uses.
	UniqueNames bool `yaml:"unique_names" envconfig:"PLAYLISTS_UNIQUE_NAMES"`
	// EnforceOwnership rejects callbacks that target another user's playlist.
	EnforceOwnership bool `yaml:"enforce_ownership" envconfig:"PLAYLISTS_ENFORCE_OWNERSHIP"`
	// MaxNameLength limits names in runes; nil means DefaultMaxNameLength, 0 disables.
	MaxNameLength *int `yaml:"max_name_length" envconfig:"PLAYLISTS_MAX_NAME_LENGTH"`
}

// NameLimit returns the effective name length limit.
func (p PlaylistsConfig) NameLimit() int {
	if p.MaxNameLength == nil {
		return DefaultMaxNameLength
	}
	return *p.MaxNameLength
}

// Config is the full application configuration: the reusable core plus
// the database and playlist policy sections.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config `yaml:"database"`
	Playlists PlaylistsConfig     `yaml:"playlists"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads path, overlays the environment and validates every section.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	if c.Playlists.MaxNameLength != nil && *c.Playlists.MaxNameLength < 0 {
		return fmt.Errorf("playlists.max_name_length must be >= 0")
	}
	return nil
}

// LoadMigrateConfig reads the file but validates only the database section,
// so schema changes do not require a bot token.
func LoadMigrateConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
