package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/playlistbot/core/config"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "start"}))
	require.NoError(t, reg.RegisterCommand("/help", Command{Handler: noop, Description: "help", Aliases: []string{"h"}}))
	require.NoError(t, reg.RegisterCommand("/debug", Command{Handler: noop, Description: "debug", Hidden: true}))
	assert.ErrorIs(t, reg.RegisterCommand("noslash", Command{Handler: noop, Description: "x"}), ErrInvalidRoute)
	assert.ErrorIs(t, reg.RegisterCommand("/empty", Command{Description: "x"}), ErrInvalidRoute)
	assert.Error(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "again"}))
	assert.Error(t, reg.RegisterCommand("/h", Command{Handler: noop, Description: "clashes with alias"}))
	assert.Error(t, reg.RegisterCommand("/other", Command{Handler: noop, Description: "x", Aliases: []string{"/start"}}))

	assert.Len(t, reg.Commands(), 3)
	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "/help", visible[0].Text)
	assert.Equal(t, "/start", visible[1].Text)

	key, _, ok := reg.LookupCommand("/h")
	require.True(t, ok)
	assert.Equal(t, "/help", key)
	key, _, ok = reg.LookupCommand("start")
	require.True(t, ok)
	assert.Equal(t, "/start", key)
	_, _, ok = reg.LookupCommand("/nope")
	assert.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("play_song", noop))
	require.Error(t, reg.RegisterCallback("play_song", noop))
	require.Error(t, reg.RegisterCallback("", noop))
	require.NoError(t, reg.RegisterCallback("add_to_playlist", noop))

	_, ok := reg.GetCallback("play_song")
	assert.True(t, ok)
	assert.Equal(t, []string{"add_to_playlist", "play_song"}, reg.ListCallbacks())
	assert.NotNil(t, reg.CallbackNotFound())

	assert.Nil(t, reg.AudioHandler())
	reg.SetAudioHandler(noop)
	assert.NotNil(t, reg.AudioHandler())
}

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "longpoll"})
	lp, ok := p.(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, lp.Timeout)

	p = BuildPoller(PollerOptions{RunMode: "WEBHOOK", Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://x"}})
	wh, ok := p.(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://x", wh.Endpoint.PublicURL)
}

func TestDefaultMiddlewares(t *testing.T) {
	names := func(mws []Middleware) []string {
		out := make([]string, 0, len(mws))
		for _, mw := range mws {
			out = append(out, mw.Name)
		}
		return out
	}

	assert.Equal(t, []string{"recover", "logger", "metrics"}, names(DefaultMiddlewares(nil, nil, nil)))

	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500, Burst: 3}}
	assert.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, names(DefaultMiddlewares(cfg, nil, nil)))
}

func TestDispatcherOptionsFrom(t *testing.T) {
	opts := DispatcherOptionsFrom(coreconfig.SenderConfig{QueueSize: 8, Workers: 2, MaxRetries: 1, RetryBackoffMS: 250})
	assert.Equal(t, 8, opts.QueueSize)
	assert.Equal(t, 2, opts.Workers)
	assert.Equal(t, 1, opts.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, opts.RetryBackoff)
}
