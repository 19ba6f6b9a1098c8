package middleware

import (
	"log/slog"

	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/playlistbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware assigns the update rid ("update:chat:user", stored under
// "rid"), prepares the update context for helpers and writes a sampled
// update.received debug line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		var userID, chatID int64
		if u := c.Sender(); u != nil {
			userID = u.ID
		}
		if ch := c.Chat(); ch != nil {
			chatID = ch.ID
		}
		c.Set("rid", logger.BuildRID(c.Update().ID, chatID, userID))
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", receivedAttrs(c)...)
		}
		return next(c)
	}
}

func receivedAttrs(c tele.Context) []slog.Attr {
	upd := c.Update()
	attrs := []slog.Attr{slog.String("kind", UpdateKind(upd))}
	if ch := c.Chat(); ch != nil {
		attrs = append(attrs, slog.String("chat_type", string(ch.Type)))
	}
	if u := c.Sender(); u != nil {
		attrs = append(attrs,
			slog.String("username", logger.SanitizeLimit(u.Username, 64)),
			slog.String("lang", u.LanguageCode),
		)
	}
	switch {
	case upd.Callback != nil:
		attrs = append(attrs,
			slog.String("cb_key", string(callbacks.VerbOf(upd.Callback.Data))),
			slog.String("payload", logger.SanitizeLimit(upd.Callback.Data, 64)),
		)
	case upd.Message != nil && upd.Message.Audio != nil:
		attrs = append(attrs, slog.Bool("audio", true))
	case upd.Message != nil:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Message.Text, 256)))
	}
	return attrs
}
