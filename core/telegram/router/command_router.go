package router

import (
	"log/slog"
	"sort"

	"github.com/m3rciful/playlistbot/core/logger"
	tg "github.com/m3rciful/playlistbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes returns one route per registered command and alias, sorted
// by endpoint. Aliases share the summary name of their command.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, cmd := range cmds {
		h := commandHandler(name, cmd.Handler)
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range cmd.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Endpoint.(string) < routes[j].Endpoint.(string)
	})

	logger.TWire.Info("routes wired",
		slog.String("event", "tg.wire"),
		slog.Int("commands", len(cmds)),
		slog.Int("count", len(routes)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
		slog.Bool("text_fallback", reg.TextFallback() != nil),
		slog.Bool("audio", reg.AudioHandler() != nil),
	)
	return routes
}

func commandHandler(name string, h tele.HandlerFunc) tele.HandlerFunc {
	s := summarize(name)
	return func(c tele.Context) error { return s.run(c, h) }
}
