package middleware

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

const (
	// KindCallback is an inline button press.
	KindCallback = "callback"
	// KindCommand is a message starting with a slash.
	KindCommand = "command"
	// KindText is any other text message.
	KindText = "text"
	// KindAudio is a message carrying an audio attachment.
	KindAudio = "audio"
	// KindOther covers everything the bot does not handle.
	KindOther = "other"
)

// UpdateKind classifies an update for metrics and logging.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil && upd.Message.Audio != nil:
		return KindAudio
	case upd.Message != nil && strings.HasPrefix(upd.Message.Text, "/"):
		return KindCommand
	case upd.Message != nil && upd.Message.Text != "":
		return KindText
	}
	return KindOther
}

// limitKind maps an update to the rate limit exclusion vocabulary ("callback" or "message").
func limitKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	}
	return "other"
}
