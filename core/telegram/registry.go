package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/playlistbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// ErrInvalidRoute is returned for registrations with a missing name or handler.
var ErrInvalidRoute = errors.New("telegram: invalid registration")

// Command is a slash command entry. Hidden commands are routed but left out
// of the client menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Hidden      bool
	Aliases     []string
}

// Registry is the routing table of the bot: slash commands with aliases,
// callback handlers keyed by verb and the fallbacks for everything else.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc

	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
	audioHandler     tele.HandlerFunc
}

// NewRegistry creates an empty Registry. Unknown callbacks are acknowledged
// with a short notice until SetCallbackNotFound replaces the fallback.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

func slash(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

func skipped(event, name, reason string) {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, event,
		slog.String("event", event),
		slog.String("name", name),
		slog.String("cause", reason),
	)
}

// RegisterCommand adds a slash command. Names must start with '/'; aliases may omit it.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	switch {
	case cmd.Handler == nil || cmd.Description == "":
		skipped("register.command.skip", name, "invalid")
		return fmt.Errorf("%w: command %q", ErrInvalidRoute, name)
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		skipped("register.command.skip", name, "no_slash_prefix")
		return fmt.Errorf("%w: command %q needs a leading slash", ErrInvalidRoute, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.lookup(name); taken {
		skipped("register.command.duplicate", name, "taken")
		return fmt.Errorf("telegram: command already registered: %s", name)
	}
	for _, alias := range cmd.Aliases {
		if alias == "" {
			continue
		}
		if _, taken := r.lookup(slash(alias)); taken {
			skipped("register.command.duplicate", alias, "alias_taken")
			return fmt.Errorf("telegram: alias already registered: %s", alias)
		}
	}
	r.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		if alias != "" {
			r.aliases[slash(alias)] = name
		}
	}
	return nil
}

func (r *Registry) lookup(name string) (string, bool) {
	if _, ok := r.commands[name]; ok {
		return name, true
	}
	key, ok := r.aliases[name]
	return key, ok
}

// LookupCommand resolves a command or alias, with or without the leading
// slash, to its canonical name.
func (r *Registry) LookupCommand(name string) (string, Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.lookup(slash(name))
	if !ok {
		return "", Command{}, false
	}
	return key, r.commands[key], true
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// ListCommands returns the commands sorted by name for the client menu.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && cmd.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// RegisterCallback binds handler to a callback verb.
func (r *Registry) RegisterCallback(verb string, handler tele.HandlerFunc) error {
	if verb == "" || handler == nil {
		skipped("register.callback.skip", verb, "invalid")
		return fmt.Errorf("%w: callback %q", ErrInvalidRoute, verb)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[verb]; exists {
		skipped("register.callback.duplicate", verb, "taken")
		return fmt.Errorf("telegram: callback already registered: %s", verb)
	}
	r.callbacks[verb] = handler
	return nil
}

// GetCallback returns the handler bound to verb.
func (r *Registry) GetCallback(verb string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[verb]
	return h, ok
}

// ListCallbacks returns the registered verbs sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	verbs := make([]string, 0, len(r.callbacks))
	for v := range r.callbacks {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return verbs
}

// SetCallbackNotFound replaces the handler for unregistered verbs. nil is ignored.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc { return r.callbackNotFound }

// SetTextFallback handles text that is not a registered command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) { r.textFallback = h }

func (r *Registry) TextFallback() tele.HandlerFunc { return r.textFallback }

// SetAudioHandler handles audio attachments.
func (r *Registry) SetAudioHandler(h tele.HandlerFunc) { r.audioHandler = h }

func (r *Registry) AudioHandler() tele.HandlerFunc { return r.audioHandler }

// InitBotCommands publishes the visible commands to the client menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("event", "register.commands.set_failed"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "register.commands.set",
		slog.String("event", "register.commands.set"),
		slog.Int("count", len(list)),
	)
}
