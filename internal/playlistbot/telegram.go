package playlistbot

import (
	"errors"
	"strings"

	coretelegram "github.com/m3rciful/playlistbot/core/telegram"
	"github.com/m3rciful/playlistbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/playlistbot/core/telegram/helpers"
	"github.com/m3rciful/playlistbot/core/telegram/keyboard"
	"github.com/m3rciful/playlistbot/core/telegram/router"

	tele "gopkg.in/telebot.v4"
)

// Bot adapts telebot updates to Machine events and renders the results.
type Bot struct {
	machine *Machine
}

// NewBot wraps m.
func NewBot(m *Machine) *Bot {
	return &Bot{machine: m}
}

// Register binds commands, callback verbs, free text and audio to the machine.
func (b *Bot) Register(reg *coretelegram.Registry) error {
	for _, c := range Commands {
		if err := reg.RegisterCommand(c.Name, coretelegram.Command{
			Handler:     b.command(c.Name),
			Description: c.Description,
		}); err != nil {
			return err
		}
	}
	for _, verb := range callbacks.Verbs() {
		if err := reg.RegisterCallback(string(verb), b.Handle); err != nil {
			return err
		}
	}
	// Unknown verbs still reach the machine, which answers with an invalid selection.
	reg.SetCallbackNotFound(b.Handle)
	reg.SetTextFallback(b.Handle)
	reg.SetAudioHandler(b.Handle)
	return nil
}

func (b *Bot) command(name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return b.dispatch(c, CommandEvent(senderFrom(c), name))
	}
}

// Handle converts any supported update into an event and dispatches it.
func (b *Bot) Handle(c tele.Context) error {
	return b.dispatch(c, EventFrom(c))
}

// OnLimited tells a throttled user to slow down.
func (b *Bot) OnLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: textRateLimitedAnswer})
	}
	return tghelpers.SendText(c, textRateLimited)
}

func (b *Bot) dispatch(c tele.Context, ev Event) error {
	ctx := tghelpers.BuildContext(c)
	res := b.machine.Dispatch(ctx, ev)
	c.Set(router.OutcomeKey, res.Kind.String())
	return errors.Join(res.Err, render(c, res.Render()))
}

// EventFrom classifies the update behind c.
func EventFrom(c tele.Context) Event {
	s := senderFrom(c)
	if cb := c.Callback(); cb != nil {
		return CallbackEvent(s, cb.Data)
	}
	if msg := c.Message(); msg != nil && msg.Audio != nil {
		return AudioEvent(s, msg.Audio.FileID)
	}
	text := c.Text()
	if name, isCommand := commandName(text); isCommand {
		return CommandEvent(s, name)
	}
	return TextEvent(s, text)
}

// commandName extracts "/name" from text such as "/name@bot args".
func commandName(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word, _, _ := strings.Cut(text, " ")
	word, _, _ = strings.Cut(word, "@")
	return strings.ToLower(word), true
}

func senderFrom(c tele.Context) *Sender {
	u := c.Sender()
	if u == nil {
		return nil
	}
	return &Sender{ID: u.ID, Username: u.Username}
}

func render(c tele.Context, replies []Reply) error {
	var errs []error
	for _, r := range replies {
		var err error
		switch {
		case r.AudioRef != "":
			err = tghelpers.SendAudio(c, r.AudioRef)
		case len(r.Rows) > 0:
			err = tghelpers.SendKeyboard(c, r.Text, keyboard.InlineButtonsRows(r.Rows...))
		default:
			err = tghelpers.SendText(c, r.Text)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
