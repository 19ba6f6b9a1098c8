package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/playlistbot/core/telegram"
	"github.com/m3rciful/playlistbot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func routeFor(routes []tg.Route, endpoint any) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	return nil
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	calls := 0
	require.NoError(t, reg.RegisterCommand("/myplaylists", tg.Command{
		Handler:     func(tele.Context) error { calls++; return nil },
		Description: "list",
		Aliases:     []string{"playlists"},
	}))

	routes := CommandRoutes(reg)
	require.Len(t, routes, 2)
	require.NoError(t, routeFor(routes, "/myplaylists")(teletest.NewMessage(1, "", "/myplaylists")))
	require.NoError(t, routeFor(routes, "/playlists")(teletest.NewMessage(1, "", "/playlists")))
	assert.Equal(t, 2, calls)
}

func TestCallbackRouteByVerb(t *testing.T) {
	reg := tg.NewRegistry()
	var got string
	require.NoError(t, reg.RegisterCallback("play_song", func(c tele.Context) error {
		got = c.Callback().Data
		return nil
	}))

	route := CallbackRoute(reg, CallbackOptions{})
	c := teletest.NewCallback(5, "", "play_song:2")
	require.NoError(t, route.Handler(c))
	assert.Equal(t, "play_song:2", got)
	assert.Equal(t, 1, c.Responses())
}

func TestCallbackRouteRunsHandlerWhenAckFails(t *testing.T) {
	reg := tg.NewRegistry()
	hit := false
	require.NoError(t, reg.RegisterCallback("select_playlist", func(tele.Context) error {
		hit = true
		return nil
	}))

	c := teletest.NewCallback(5, "", "select_playlist:4")
	c.RespondErr = errors.New("query is too old")
	require.NoError(t, CallbackRoute(reg, CallbackOptions{}).Handler(c))
	assert.True(t, hit)
	assert.Equal(t, 1, c.Responses())
}

func TestCallbackRouteNotFound(t *testing.T) {
	reg := tg.NewRegistry()
	hit := false
	route := CallbackRoute(reg, CallbackOptions{NotFound: func(tele.Context) error { hit = true; return nil }})
	c := teletest.NewCallback(5, "", "bogus:1")
	require.NoError(t, route.Handler(c))
	assert.True(t, hit)
}

func TestMessageRoutesDispatch(t *testing.T) {
	reg := tg.NewRegistry()
	var seen []string
	require.NoError(t, reg.RegisterCommand("/help", tg.Command{
		Handler:     func(tele.Context) error { seen = append(seen, "help"); return nil },
		Description: "help",
	}))
	reg.SetTextFallback(func(c tele.Context) error { seen = append(seen, "text:"+c.Text()); return nil })
	reg.SetAudioHandler(func(tele.Context) error { seen = append(seen, "audio"); return nil })

	routes := MessageRoutes(reg, MessageOptions{})
	onText := routeFor(routes, tele.OnText)
	onAudio := routeFor(routes, tele.OnAudio)
	require.NotNil(t, onText)
	require.NotNil(t, onAudio)

	require.NoError(t, onText(teletest.NewMessage(1, "", "/help@playlist_bot")))
	require.NoError(t, onText(teletest.NewMessage(1, "", "Road Trip")))
	require.NoError(t, onAudio(teletest.NewAudio(1, "", "file-1")))
	assert.Equal(t, []string{"help", "text:Road Trip", "audio"}, seen)
}

func TestMessageRoutesErrorPropagates(t *testing.T) {
	reg := tg.NewRegistry()
	boom := errors.New("boom")
	reg.SetTextFallback(func(tele.Context) error { return boom })
	err := routeFor(MessageRoutes(reg, MessageOptions{}), tele.OnText)(teletest.NewMessage(1, "", "x"))
	assert.ErrorIs(t, err, boom)
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "not found" }

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", errorCode(nil))
	assert.Equal(t, "NOT_FOUND", errorCode(fmt.Errorf("wrap: %w", codedErr{})))
	assert.Equal(t, "ERRORSTRING", errorCode(errors.New("x")))
	assert.Equal(t, "CANCELED", errorCode(fmt.Errorf("send: %w", context.Canceled)))
}

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "myplaylists", handlerName("/MyPlaylists"))
	assert.Equal(t, "callback.play_song", handlerName("callback.play_song"))
	assert.Equal(t, "unknown", handlerName("  "))
}

func TestSummaryUsesReportedOutcome(t *testing.T) {
	c := teletest.NewMessage(1, "", "x")
	err := summarize("text").run(c, func(c tele.Context) error {
		c.Set(OutcomeKey, "user_error")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user_error", c.Get(OutcomeKey))
}

func TestMessageRoutesWithoutHandlers(t *testing.T) {
	routes := MessageRoutes(tg.NewRegistry(), MessageOptions{})
	assert.NoError(t, routeFor(routes, tele.OnText)(teletest.NewMessage(1, "", "hello")))
	assert.NoError(t, routeFor(routes, tele.OnAudio)(teletest.NewAudio(1, "", "file-1")))
}
