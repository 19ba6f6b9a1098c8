package router

import (
	"log/slog"

	"github.com/m3rciful/playlistbot/core/logger"
	tg "github.com/m3rciful/playlistbot/core/telegram"
	"github.com/m3rciful/playlistbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/playlistbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// NotFound replaces the registry fallback for unregistered verbs.
	NotFound tele.HandlerFunc
}

// CallbackRoute routes tele.OnCallback by the verb before ':' in the data.
// The callback is acknowledged before the handler runs so the client stops
// its progress indicator even when the handler fails.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	notFound := opts.NotFound
	if notFound == nil && reg != nil {
		notFound = reg.CallbackNotFound()
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: func(c tele.Context) error {
			cb := c.Callback()
			if cb == nil {
				return nil
			}
			verb := string(callbacks.VerbOf(cb.Data))
			if err := c.Respond(); err != nil {
				logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "callback.respond",
					slog.String("cb_key", verb),
					slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				)
			}

			h, ok := tele.HandlerFunc(nil), false
			if reg != nil {
				h, ok = reg.GetCallback(verb)
			}
			if !ok {
				return summarize("callback."+verb, slog.String("cb_key", verb), slog.Bool("not_found", true)).run(c, notFound)
			}
			return summarize("callback."+verb, slog.String("cb_key", verb)).run(c, h)
		},
	}
}
