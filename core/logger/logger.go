// Package logger provides the structured slog setup shared by every
// component: one line per record, stable key order, update correlation ids
// taken from the context and an asynchronous writer.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/m3rciful/playlistbot/core/buildinfo"
	coreconfig "github.com/m3rciful/playlistbot/core/config"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closed   bool

	writer  *asyncWriter
	logFile *os.File

	levelVar     slog.LevelVar
	debugSampler sampler
	traceAll     bool

	// L is the base logger; component loggers below are derived from it.
	L *slog.Logger

	App    *slog.Logger
	DB     *slog.Logger
	MIG    *slog.Logger
	Store  *slog.Logger
	TG     *slog.Logger
	TWire  *slog.Logger
	Sender *slog.Logger
	Flow   *slog.Logger
	HTTP   *slog.Logger
)

func init() {
	// Usable before InitLogger runs (tests, early CLI errors).
	debugSampler.set(defaultSampleKeep, defaultSampleEvery)
	setBase(slog.Default())
}

func setBase(base *slog.Logger) {
	L = base
	App = base.With("component", "app")
	DB = base.With("component", "db")
	MIG = base.With("component", "db.migrate")
	Store = base.With("component", "store")
	TG = base.With("component", "tg")
	TWire = base.With("component", "tg.wire")
	Sender = base.With("component", "tg.sender")
	Flow = base.With("component", "flow")
	HTTP = base.With("component", "http")
}

// InitLogger installs the structured handler as slog default. Only the first
// call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		o := optionsFrom(cfg)
		levelVar.Set(o.level)
		debugSampler.set(o.keep, o.every)
		traceAll = o.trace

		sinks := []io.Writer{os.Stdout}
		if o.file != "" {
			f, openErr := openLogFile(o.file)
			if openErr != nil {
				err = openErr
				return
			}
			logFile = f
			sinks = append(sinks, f)
		}
		writer = newAsyncWriter(sinks, 64*1024)

		base := slog.New(newLineHandler(writer, &levelVar, o.format, o.order))
		slog.SetDefault(base)
		setBase(base)

		App.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", o.profile),
		)
	})
	return err
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

// Shutdown flushes queued lines and closes the log file.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if writer != nil {
		errs = append(errs, writer.Close())
	}
	if logFile != nil {
		errs = append(errs, logFile.Close())
	}
	return errors.Join(errs...)
}

// LogEvent writes a message-less record whose event attribute comes first.
// A nil log falls back to the logger stored in ctx.
func LogEvent(ctx context.Context, log *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if log == nil {
		log = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	log.LogAttrs(ctx, level, "", attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 in the environment lets every line through.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.allow()
}
