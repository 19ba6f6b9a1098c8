package router

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/playlistbot/core/logger"
	tghelpers "github.com/m3rciful/playlistbot/core/telegram/helpers"
	"github.com/m3rciful/playlistbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// OutcomeKey lets handlers report a domain outcome (for example "user_error")
// that replaces the default ok/fail in the handler summary.
const OutcomeKey = "outcome"

// summary writes the handler.handled line of one routed update.
type summary struct {
	handler string
	attrs   []slog.Attr
}

func summarize(handler string, attrs ...slog.Attr) summary {
	return summary{handler: handlerName(handler), attrs: attrs}
}

// run calls h under the summary's handler name. A nil h is logged as skipped.
func (s summary) run(c tele.Context, h tele.HandlerFunc) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, s.handler)
	var err error
	if h != nil {
		err = h(c)
	}

	outcome, _ := c.Get(OutcomeKey).(string)
	switch {
	case outcome != "":
	case err != nil:
		outcome = "fail"
	case h == nil:
		outcome = "skip"
	default:
		outcome = "ok"
	}
	msgs, kb := middleware.GetCounters(c)
	queued, queuedKb := tghelpers.Queued(c)
	attrs := append([]slog.Attr{
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Int("queued", queued),
		slog.Bool("kb", kb || queuedKb),
		slog.Duration("duration", time.Since(start)),
	}, s.attrs...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)
	return err
}

// handlerName turns "/MyPlaylists" into "myplaylists".
func handlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// errorCode prefers an explicit Code() anywhere in the chain and falls back
// to the dynamic type name of err.
func errorCode(err error) string {
	var coded interface{ Code() string }
	switch {
	case err == nil:
		return ""
	case errors.As(err, &coded) && strings.TrimSpace(coded.Code()) != "":
		return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(coded.Code()), " ", "_"))
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return "CANCELED"
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
