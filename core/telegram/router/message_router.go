package router

import (
	"strings"

	tg "github.com/m3rciful/playlistbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// MessageOptions sets handlers used when the registry has none.
type MessageOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownAudio tele.HandlerFunc
}

// MessageRoutes builds the tele.OnText and tele.OnAudio routes. Text whose
// first word names a registered command or alias (an optional @botname
// suffix is ignored) runs that command; other text goes to the text fallback.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	onText := func(c tele.Context) error {
		text := strings.TrimSpace(c.Text())
		if reg != nil && strings.HasPrefix(text, "/") {
			word, _, _ := strings.Cut(text, " ")
			word, _, _ = strings.Cut(word, "@")
			if name, cmd, ok := reg.LookupCommand(word); ok {
				return summarize(name).run(c, cmd.Handler)
			}
		}
		if reg != nil && reg.TextFallback() != nil {
			return summarize("text").run(c, reg.TextFallback())
		}
		return summarize("unknown_text").run(c, opts.UnknownText)
	}

	onAudio := func(c tele.Context) error {
		if reg != nil && reg.AudioHandler() != nil {
			return summarize("audio").run(c, reg.AudioHandler())
		}
		return summarize("unexpected_audio").run(c, opts.UnknownAudio)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: onText},
		{Endpoint: tele.OnAudio, Handler: onAudio},
	}
}
