package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func chatKey(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if user := c.Sender(); user != nil {
		return user.ID
	}
	return 0
}

const (
	queuedKey   = "queued"
	queuedKbKey = "queued_kb"
)

// Queued reports how many sends of the current update were handed to the
// dispatcher and whether any of them carried a keyboard. Those sends happen
// after the handler returns, so the in-context message counters miss them.
func Queued(c tele.Context) (n int, keyboard bool) {
	n, _ = c.Get(queuedKey).(int)
	keyboard, _ = c.Get(queuedKbKey).(bool)
	return n, keyboard
}

func markQueued(c tele.Context, withKeyboard bool) {
	n, _ := c.Get(queuedKey).(int)
	c.Set(queuedKey, n+1)
	if withKeyboard {
		c.Set(queuedKbKey, true)
	}
}

func sendAsync(c tele.Context, action, endpoint string, withKeyboard bool, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, chatKey(c), action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.LogEvent(ctx, logger.Sender, slog.LevelWarn, "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	markQueued(c, withKeyboard)
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	withKeyboard := sendOpts != nil && sendOpts.ReplyMarkup != nil
	return sendAsync(c, "send.text", "sendMessage", withKeyboard, func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendKeyboard sends plain text with an inline keyboard attached.
func SendKeyboard(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}

// SendAudio re-sends previously uploaded audio by its Telegram file id.
func SendAudio(c tele.Context, fileID string) error {
	audio := &tele.Audio{File: tele.File{FileID: fileID}}
	return sendAsync(c, "send.audio", "sendAudio", false, func() error {
		return c.Send(audio)
	})
}
