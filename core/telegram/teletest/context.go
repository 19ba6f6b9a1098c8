// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Sent is one outgoing call captured by Context.
type Sent struct {
	What any
	Opts []any
}

// Markup returns the inline keyboard attached to the message, if any.
func (s Sent) Markup() *tele.ReplyMarkup {
	for _, o := range s.Opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return v.ReplyMarkup
			}
		case *tele.ReplyMarkup:
			return v
		}
	}
	return nil
}

// Text returns the message body when a string was sent.
func (s Sent) Text() string {
	t, _ := s.What.(string)
	return t
}

// Context implements the subset of tele.Context used by the bot.
// Calling any other method panics through the nil embedded interface.
type Context struct {
	tele.Context

	upd tele.Update

	mu        sync.Mutex
	store     map[string]any
	sent      []Sent
	responses []*tele.CallbackResponse

	SendErr    error
	RespondErr error
}

// NewMessage builds a context for a text message from user.
func NewMessage(userID int64, username, text string) *Context {
	u := &tele.User{ID: userID, Username: username}
	return &Context{upd: tele.Update{ID: 1, Message: &tele.Message{
		Sender: u,
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   text,
	}}}
}

// NewAudio builds a context for an audio message carrying fileID.
func NewAudio(userID int64, username, fileID string) *Context {
	c := NewMessage(userID, username, "")
	c.upd.Message.Audio = &tele.Audio{File: tele.File{FileID: fileID}}
	return c
}

// NewCallback builds a context for an inline button press with raw data.
func NewCallback(userID int64, username, data string) *Context {
	u := &tele.User{ID: userID, Username: username}
	return &Context{upd: tele.Update{ID: 1, Callback: &tele.Callback{
		ID:     "cb",
		Sender: u,
		Data:   data,
		Message: &tele.Message{
			Chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		},
	}}}
}

// WithoutSender drops the sender from the update.
func (c *Context) WithoutSender() *Context {
	if c.upd.Message != nil {
		c.upd.Message.Sender = nil
	}
	if c.upd.Callback != nil {
		c.upd.Callback.Sender = nil
	}
	return c
}

func (c *Context) Update() tele.Update { return c.upd }

func (c *Context) Message() *tele.Message {
	if c.upd.Callback != nil {
		return c.upd.Callback.Message
	}
	return c.upd.Message
}

func (c *Context) Callback() *tele.Callback { return c.upd.Callback }

func (c *Context) Sender() *tele.User {
	switch {
	case c.upd.Callback != nil:
		return c.upd.Callback.Sender
	case c.upd.Message != nil:
		return c.upd.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	if m := c.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (c *Context) Recipient() tele.Recipient { return c.Chat() }

func (c *Context) Text() string {
	if c.upd.Message != nil {
		return c.upd.Message.Text
	}
	return ""
}

func (c *Context) Data() string {
	if c.upd.Callback != nil {
		return c.upd.Callback.Data
	}
	return ""
}

func (c *Context) Send(what any, opts ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.sent = append(c.sent, Sent{What: what, Opts: opts})
	return nil
}

func (c *Context) Reply(what any, opts ...any) error { return c.Send(what, opts...) }

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var r *tele.CallbackResponse
	if len(resp) > 0 {
		r = resp[0]
	}
	c.responses = append(c.responses, r)
	return c.RespondErr
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = val
}

// Sent returns a copy of captured outgoing messages.
func (c *Context) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Texts returns the bodies of all captured text messages.
func (c *Context) Texts() []string {
	var out []string
	for _, s := range c.Sent() {
		if t := s.Text(); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Responses returns how many times the callback was acknowledged.
func (c *Context) Responses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses)
}
