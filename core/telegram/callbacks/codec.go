// Package callbacks encodes and decodes inline button callback data.
//
// The wire format is "<verb>:<argument>" where argument is a positive decimal
// integer. Telegram limits callback data to 64 bytes.
package callbacks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Verb names the action a button triggers.
type Verb string

const (
	// SelectPlaylist opens a playlist; the argument is the playlist id.
	SelectPlaylist Verb = "select_playlist"
	// AddToPlaylist stores the last uploaded audio; the argument is the playlist id.
	AddToPlaylist Verb = "add_to_playlist"
	// PlaySong plays an item; the argument is its 1-based position.
	PlaySong Verb = "play_song"
)

// MaxDataLen is the Telegram limit for callback_data.
const MaxDataLen = 64

// ErrMalformed reports callback data that does not follow the verb:argument format.
var ErrMalformed = errors.New("callbacks: malformed data")

var known = map[Verb]struct{}{
	SelectPlaylist: {},
	AddToPlaylist:  {},
	PlaySong:       {},
}

// Verbs lists every supported verb.
func Verbs() []Verb {
	return []Verb{SelectPlaylist, AddToPlaylist, PlaySong}
}

// Valid reports whether v is a supported verb.
func (v Verb) Valid() bool {
	_, ok := known[v]
	return ok
}

// Payload is decoded callback data.
type Payload struct {
	Verb Verb
	Arg  int64
}

// String renders the payload in wire format without validation.
func (p Payload) String() string {
	return string(p.Verb) + ":" + strconv.FormatInt(p.Arg, 10)
}

// Encode renders verb and argument as callback data.
func Encode(v Verb, arg int64) (string, error) {
	if !v.Valid() {
		return "", fmt.Errorf("%w: unknown verb %q", ErrMalformed, v)
	}
	if arg <= 0 {
		return "", fmt.Errorf("%w: argument must be positive, got %d", ErrMalformed, arg)
	}
	data := Payload{Verb: v, Arg: arg}.String()
	if len(data) > MaxDataLen {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrMalformed, len(data), MaxDataLen)
	}
	return data, nil
}

// MustEncode is Encode for arguments already known to be valid.
func MustEncode(v Verb, arg int64) string {
	data, err := Encode(v, arg)
	if err != nil {
		panic(err)
	}
	return data
}

// Decode parses callback data produced by Encode.
func Decode(data string) (Payload, error) {
	verb, arg, ok := strings.Cut(data, ":")
	if !ok {
		return Payload{}, fmt.Errorf("%w: missing separator in %q", ErrMalformed, data)
	}
	v := Verb(verb)
	if !v.Valid() {
		return Payload{}, fmt.Errorf("%w: unknown verb %q", ErrMalformed, verb)
	}
	if arg == "" || strings.TrimLeft(arg, "0123456789") != "" {
		return Payload{}, fmt.Errorf("%w: argument %q is not a decimal integer", ErrMalformed, arg)
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n <= 0 {
		return Payload{}, fmt.Errorf("%w: argument %q out of range", ErrMalformed, arg)
	}
	return Payload{Verb: v, Arg: n}, nil
}

// VerbOf returns the verb part of data without validating the argument.
func VerbOf(data string) Verb {
	verb, _, _ := strings.Cut(data, ":")
	return Verb(strings.TrimSpace(verb))
}

// Data returns the raw callback data of the current update.
func Data(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	return cb.Data
}
