package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/playlistbot/core/telegram/sender"
	"github.com/m3rciful/playlistbot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func TestSendWithoutDispatcherIsDirect(t *testing.T) {
	SetDispatcher(nil)
	c := teletest.NewMessage(3, "", "/help")

	require.NoError(t, SendText(c, "hello"))
	assert.Equal(t, []string{"hello"}, c.Texts())

	n, kb := Queued(c)
	assert.Zero(t, n)
	assert.False(t, kb)
}

func TestQueuedCountsDispatchedSends(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	c := teletest.NewMessage(3, "", "/myplaylists")
	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{{Text: "Rock", Data: "select_playlist:1"}}}}
	require.NoError(t, SendText(c, "plain"))
	require.NoError(t, SendKeyboard(c, "pick", markup))
	require.NoError(t, SendAudio(c, "file-1"))

	n, kb := Queued(c)
	assert.Equal(t, 3, n)
	assert.True(t, kb)

	d.Close()
	sent := c.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "plain", sent[0].Text())
	assert.Equal(t, markup, sent[1].Markup())
	audio, ok := sent[2].What.(*tele.Audio)
	require.True(t, ok)
	assert.Equal(t, "file-1", audio.FileID)
}
