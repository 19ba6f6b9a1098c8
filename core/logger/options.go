package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	coreconfig "github.com/m3rciful/playlistbot/core/config"
)

// options is the resolved form of the logging section.
type options struct {
	format  format
	level   slog.Level
	order   []string
	keep    int
	every   int
	file    string
	profile string
	trace   bool
}

func optionsFrom(cfg *coreconfig.Config) options {
	o := options{
		format:  formatJSON,
		level:   slog.LevelInfo,
		order:   keyOrder,
		keep:    defaultSampleKeep,
		every:   defaultSampleEvery,
		profile: "prod",
		trace:   truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE")),
	}
	if cfg == nil {
		return o
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		o.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		o.format = formatKV
	case "json":
	default:
		if o.profile == "debug" || o.profile == "dev" {
			o.format = formatKV
		}
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		o.level = slog.LevelDebug
	case "warn", "warning":
		o.level = slog.LevelWarn
	case "error":
		o.level = slog.LevelError
	}
	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			o.order = order
		}
	}
	o.keep, o.every = parseSample(lc.DebugSample)
	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		o.file = filepath.Join(dir, name)
	}
	return o
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
