package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type format uint8

const (
	formatJSON format = iota
	formatKV
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// lineHandler writes one line per record with a stable key order, in JSON
// or logfmt-like key=value form.
type lineHandler struct {
	out    io.Writer
	level  slog.Leveler
	format format
	rank   map[string]int

	pre    []field
	prefix string
}

func newLineHandler(out io.Writer, level slog.Leveler, f format, order []string) *lineHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	if len(order) == 0 {
		order = keyOrder
	}
	return &lineHandler{out: out, level: level, format: f, rank: rankOf(order)}
}

func (h *lineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	rec := newRecord(16 + len(h.pre))
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	rec.set("ts", ts.UTC().Format(timeLayout))
	rec.set("level", levelName(r.Level))
	for _, f := range h.pre {
		rec.set(f.key, f.val)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(rec, h.prefix, a)
		return true
	})
	addMeta(ctx, rec)

	if rid := rec.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			rec.set("rid", short)
			if h.format == formatJSON {
				rec.setDefault("rid_full", rid)
			}
		}
	}
	if rec.str("event") == "" {
		event := r.Message
		if event == "" {
			event = "unknown"
		}
		rec.set("event", event)
	}
	if rec.str("component") == "" {
		rec.set("component", "app")
	}

	fields := rec.sorted(h.rank)
	var line []byte
	if h.format == formatJSON {
		var err error
		if line, err = encodeJSON(fields); err != nil {
			return err
		}
	} else {
		line = encodeKV(fields)
	}
	_, err := h.out.Write(append(line, '\n'))
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	rec := newRecord(len(h.pre) + len(attrs))
	for _, f := range h.pre {
		rec.set(f.key, f.val)
	}
	for _, a := range attrs {
		flatten(rec, h.prefix, a)
	}
	clone := *h
	clone.pre = rec.fields
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// flatten expands groups into dotted keys and drops empty values.
func flatten(rec *record, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			flatten(rec, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := normalize(key, v); ok {
		rec.set(k, val)
	}
}

func normalize(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		s := strings.TrimSpace(v.String())
		return key, s, s != ""
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return unitKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case fmt.Stringer:
		s := x.String()
		return key, s, s != ""
	default:
		return key, fmt.Sprint(x), true
	}
}

func encodeJSON(fields []field) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range fields {
		val, err := json.Marshal(f.val)
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", f.key, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(f.key))
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func encodeKV(fields []field) []byte {
	var b bytes.Buffer
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		s := fmt.Sprint(f.val)
		if strings.IndexFunc(s, needsQuote) >= 0 {
			s = strconv.Quote(s)
		}
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(s)
	}
	return b.Bytes()
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
