// Package playlistbot implements the playlist manager: the per-user
// interaction state machine, its presentation and the Telegram wiring.
package playlistbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/core/telegram/callbacks"
	"github.com/m3rciful/playlistbot/core/telegram/keyboard"
	"github.com/m3rciful/playlistbot/core/telegram/state"
	"github.com/m3rciful/playlistbot/internal/models"
	"github.com/m3rciful/playlistbot/internal/storage"
)

// EventKind identifies the inbound event variant.
type EventKind string

const (
	EventCommand  EventKind = "command"
	EventText     EventKind = "text"
	EventAudio    EventKind = "audio"
	EventCallback EventKind = "callback"
)

// Sender is the transport identity of the user behind an event.
type Sender struct {
	ID       int64
	Username string
}

// Event is one inbound interaction. Only the field matching Kind is read:
// Command for commands, Text for text, FileRef for audio, Data for callbacks.
type Event struct {
	Kind    EventKind
	Sender  *Sender
	Command string
	Text    string
	FileRef string
	Data    string
}

// CommandEvent, TextEvent, AudioEvent and CallbackEvent build events for a sender.
func CommandEvent(s *Sender, name string) Event { return Event{Kind: EventCommand, Sender: s, Command: name} }
func TextEvent(s *Sender, text string) Event    { return Event{Kind: EventText, Sender: s, Text: text} }
func AudioEvent(s *Sender, ref string) Event    { return Event{Kind: EventAudio, Sender: s, FileRef: ref} }
func CallbackEvent(s *Sender, data string) Event {
	return Event{Kind: EventCallback, Sender: s, Data: data}
}

// Reply is one outbound message: text, text with an inline keyboard, or an audio
// file re-sent by reference.
type Reply struct {
	Text     string
	Rows     [][]keyboard.InlineBtn
	AudioRef string
}

// ResultKind classifies how an event ended.
type ResultKind int

const (
	OK ResultKind = iota
	UserError
	SystemError
)

func (k ResultKind) String() string {
	switch k {
	case OK:
		return "ok"
	case UserError:
		return "user_error"
	default:
		return "system_error"
	}
}

// Result is what every handler returns. Err is set for system errors only.
type Result struct {
	Kind    ResultKind
	Replies []Reply
	Err     error
}

// Render turns a result into the messages to send. System errors collapse into
// a single generic retry message.
func (r Result) Render() []Reply {
	if r.Kind == SystemError {
		return []Reply{textReply(textSomethingWrong)}
	}
	return r.Replies
}

func success(replies ...Reply) Result { return Result{Kind: OK, Replies: replies} }

func userError(text string) Result {
	return Result{Kind: UserError, Replies: []Reply{textReply(text)}}
}

func systemError(op string, err error) Result {
	return Result{Kind: SystemError, Err: fmt.Errorf("%s: %w", op, err)}
}

// checkError maps a validator error onto a result. ok is false when err is nil.
func checkError(op string, err error) (Result, bool) {
	if err == nil {
		return Result{}, false
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		return userError(rej.Message), true
	}
	return systemError(op, err), true
}

// Observer receives one notification per dispatched event.
type Observer interface {
	ObserveEvent(kind EventKind, outcome ResultKind, took time.Duration)
}

// Machine interprets events against per-user sessions and the gateway.
type Machine struct {
	gw        storage.Gateway
	sessions  *state.Memory[Session]
	validator Validator
	observer  Observer
}

// MachineOption customises a Machine.
type MachineOption func(*Machine)

// WithValidator replaces the permissive default policy.
func WithValidator(v Validator) MachineOption {
	return func(m *Machine) {
		if v != nil {
			m.validator = v
		}
	}
}

// WithObserver reports dispatch outcomes, for example to metrics.
func WithObserver(o Observer) MachineOption {
	return func(m *Machine) { m.observer = o }
}

// NewMachine builds a state machine over gw with empty sessions.
func NewMachine(gw storage.Gateway, opts ...MachineOption) *Machine {
	m := &Machine{
		gw:        gw,
		sessions:  state.NewMemory(newSession),
		validator: Policy{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns a copy of the user's session and whether one exists.
func (m *Machine) Session(userID int64) (Session, bool) {
	return m.sessions.Peek(userID)
}

// Sessions reports how many users have a session.
func (m *Machine) Sessions() int {
	return m.sessions.Len()
}

// Dispatch processes ev under the sender's lock, so events of one user are
// handled one at a time while different users proceed in parallel.
func (m *Machine) Dispatch(ctx context.Context, ev Event) Result {
	start := time.Now()
	if ev.Sender == nil || ev.Sender.ID == 0 {
		res := userError(textNoID)
		m.finish(ctx, ev, "", "", res, start)
		return res
	}

	uid := ev.Sender.ID
	unlock := m.sessions.Lock(uid)
	defer unlock()

	sess := m.sessions.Get(uid)
	u := models.User{ID: uid}
	if ev.Sender.Username != "" {
		name := ev.Sender.Username
		u.Username = &name
	}
	sess.User = &u
	before := StepName(sess.Step)

	var res Result
	switch ev.Kind {
	case EventCommand:
		res = m.onCommand(ctx, &sess, ev.Command)
	case EventText:
		res = m.onText(ctx, &sess, ev.Text)
	case EventAudio:
		res = m.onAudio(ctx, &sess, ev.FileRef)
	case EventCallback:
		res = m.onCallback(ctx, &sess, ev.Data)
	default:
		res = userError(textUnknownCommand)
	}

	m.sessions.Set(uid, sess)
	m.finish(ctx, ev, before, StepName(sess.Step), res, start)
	return res
}

func (m *Machine) finish(ctx context.Context, ev Event, before, after string, res Result, start time.Time) {
	took := time.Since(start)
	if m.observer != nil {
		m.observer.ObserveEvent(ev.Kind, res.Kind, took)
	}

	attrs := []slog.Attr{
		slog.String("kind", string(ev.Kind)),
		slog.String("outcome", res.Kind.String()),
		slog.Int("replies", len(res.Render())),
		slog.Duration("duration", logger.RoundMS(took)),
	}
	if before != "" {
		attrs = append(attrs, slog.String("step", before), slog.String("next_step", after))
	}
	switch ev.Kind {
	case EventCommand:
		attrs = append(attrs, slog.String("command", ev.Command))
	case EventCallback:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(ev.Data, 64)))
	}
	level := slog.LevelDebug
	if res.Err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(res.Err.Error(), 256)))
	}
	logger.LogEvent(ctx, logger.Flow, level, "flow.dispatch", attrs...)
}

func (m *Machine) onCommand(ctx context.Context, sess *Session, name string) Result {
	switch name {
	case CmdStart:
		if _, err := m.gw.FindOrCreateUser(ctx, sess.User.ID, sess.User.Name()); err != nil {
			return systemError("start", err)
		}
		return success(textReply(textGreeting))
	case CmdHelp:
		return success(helpReply())
	case CmdMyPlaylists:
		playlists, err := m.gw.FindPlaylistsByOwner(ctx, sess.User.ID)
		if err != nil {
			return systemError("list playlists", err)
		}
		if len(playlists) == 0 {
			return success(textReply(textNoPlaylists), textReply(CmdCreatePlaylist))
		}
		return success(Reply{Text: textYourPlaylists, Rows: playlistRows(callbacks.SelectPlaylist, playlists)})
	case CmdCreatePlaylist:
		sess.Step = AwaitingPlaylistName{}
		return success(textReply(textAskPlaylistName))
	}
	return userError(textUnknownCommand)
}

func (m *Machine) onText(ctx context.Context, sess *Session, text string) Result {
	if _, awaiting := sess.Step.(AwaitingPlaylistName); !awaiting {
		return userError(textNoPendingAction)
	}
	name := strings.TrimSpace(text)
	if name == "" {
		return userError(textRepromptName)
	}

	owner := sess.User.ID
	err := m.validator.ValidateNewPlaylist(ctx, owner, name, m.ownedBy(owner))
	if res, failed := checkError("validate playlist", err); failed {
		return res
	}
	if _, err := m.gw.FindOrCreateUser(ctx, owner, sess.User.Name()); err != nil {
		return systemError("create playlist", err)
	}
	p, err := m.gw.CreatePlaylist(ctx, owner, name)
	if err != nil {
		return systemError("create playlist", err)
	}
	sess.Step = Idle{}
	return success(createdReply(p.Name))
}

func (m *Machine) onAudio(ctx context.Context, sess *Session, ref string) Result {
	if strings.TrimSpace(ref) == "" {
		return userError(textSendAudioFirst)
	}
	owner := sess.User.ID
	if _, err := m.gw.FindOrCreateUser(ctx, owner, sess.User.Name()); err != nil {
		return systemError("upload", err)
	}
	playlists, err := m.gw.FindPlaylistsByOwner(ctx, owner)
	if err != nil {
		return systemError("upload", err)
	}
	sess.Step = AwaitingUploadTarget{FileRef: ref}
	if len(playlists) == 0 {
		return success(textReply(textNoUploadTargets))
	}
	return success(Reply{Text: textChoosePlaylist, Rows: playlistRows(callbacks.AddToPlaylist, playlists)})
}

func (m *Machine) onCallback(ctx context.Context, sess *Session, data string) Result {
	p, err := callbacks.Decode(data)
	if err != nil {
		return userError(textInvalidSelection)
	}
	switch p.Verb {
	case callbacks.AddToPlaylist:
		return m.addToPlaylist(ctx, sess, p.Arg)
	case callbacks.SelectPlaylist:
		return m.selectPlaylist(ctx, sess, p.Arg)
	case callbacks.PlaySong:
		return m.playSong(ctx, sess, p.Arg)
	}
	return userError(textInvalidSelection)
}

func (m *Machine) addToPlaylist(ctx context.Context, sess *Session, playlistID int64) Result {
	upload, pending := sess.Step.(AwaitingUploadTarget)
	if !pending || upload.FileRef == "" {
		return userError(textSendAudioFirst)
	}
	owner := sess.User.ID
	err := m.validator.ValidateTarget(ctx, owner, playlistID, m.ownedBy(owner))
	if res, failed := checkError("validate target", err); failed {
		return res
	}
	if _, err := m.gw.CreatePlaylistItem(ctx, owner, playlistID, upload.FileRef); err != nil {
		return systemError("add to playlist", err)
	}
	sess.Step = Idle{}
	return success(textReply(textItemAdded))
}

func (m *Machine) selectPlaylist(ctx context.Context, sess *Session, playlistID int64) Result {
	owner := sess.User.ID
	err := m.validator.ValidateTarget(ctx, owner, playlistID, m.ownedBy(owner))
	if res, failed := checkError("validate target", err); failed {
		return res
	}
	items, err := m.gw.FindPlaylistItems(ctx, playlistID)
	if err != nil {
		return systemError("select playlist", err)
	}
	sess.Step = BrowsingPlaylist{PlaylistID: playlistID}
	if len(items) == 0 {
		return success(textReply(textNoItems))
	}
	return success(Reply{Text: textChooseSong, Rows: songRows(items)})
}

func (m *Machine) playSong(ctx context.Context, sess *Session, index int64) Result {
	browsing, active := sess.Step.(BrowsingPlaylist)
	if !active {
		return userError(textSelectPlaylist)
	}
	items, err := m.gw.FindPlaylistItems(ctx, browsing.PlaylistID)
	if err != nil {
		return systemError("play song", err)
	}
	if index < 1 || index > int64(len(items)) {
		return userError(textInvalidSelection)
	}
	return success(textReply(textHereIsYourSong), Reply{AudioRef: items[index-1].FileRef})
}

// ownedBy loads the owner's playlists at most once per event.
func (m *Machine) ownedBy(owner int64) PlaylistsLoader {
	var (
		cached []models.Playlist
		loaded bool
	)
	return func(ctx context.Context) ([]models.Playlist, error) {
		if loaded {
			return cached, nil
		}
		list, err := m.gw.FindPlaylistsByOwner(ctx, owner)
		if err != nil {
			return nil, err
		}
		cached, loaded = list, true
		return cached, nil
	}
}
