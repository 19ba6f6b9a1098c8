package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T, level slog.Level, f format, emit func(log *slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 1024)
	emit(slog.New(newLineHandler(w, level, f, keyOrder)))
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestLineHandlerKVOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(context.Background(), "rid-123"), 42, 7, 9)
	line := capture(t, slog.LevelInfo, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "store"), slog.LevelInfo, "store.create_playlist",
			slog.String("username", "alice"),
			slog.Int64("playlist_id", 3),
		)
	})

	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=store", "event=store.create_playlist", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "playlist_id=3", "username=alice"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected tokens %q", line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestLineHandlerJSON(t *testing.T) {
	ctx := WithRID(context.Background(), "12:34:56")
	line := capture(t, slog.LevelInfo, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "flow"), slog.LevelError, "flow.dispatch",
			slog.String("err", "boom"),
			slog.String("zeta", "last"),
		)
	})

	var got map[string]any
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("invalid json %s: %v", line, err)
	}
	if got["rid"] != CompactRID("12:34:56") || got["rid_full"] != "12:34:56" {
		t.Fatalf("unexpected rid fields in %s", line)
	}
	if got["level"] != "ERROR" || got["component"] != "flow" {
		t.Fatalf("unexpected level/component in %s", line)
	}
	pos := -1
	for _, key := range []string{`"ts":`, `"level":`, `"component":`, `"event":`, `"rid":`, `"err":`, `"zeta":`} {
		idx := strings.Index(line, key)
		if idx < pos {
			t.Fatalf("key %s out of order in %s", key, line)
		}
		pos = idx
	}
}

func TestLineHandlerCompactRIDKV(t *testing.T) {
	ctx := WithRID(context.Background(), "123:456:789")
	line := capture(t, slog.LevelInfo, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "rid.test")
	})
	if !strings.Contains(line, "rid="+CompactRID("123:456:789")) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
	if !strings.Contains(line, "component=app") {
		t.Fatalf("expected default component, got %s", line)
	}
}

func TestLineHandlerDurationsAndEmptyValues(t *testing.T) {
	line := capture(t, slog.LevelDebug, formatKV, func(log *slog.Logger) {
		LogEvent(context.Background(), log, slog.LevelDebug, "flow.dispatch",
			slog.Duration("duration", 1499*time.Microsecond),
			slog.Duration("db_duration", 2*time.Millisecond),
			slog.Duration("wait_ms", 3*time.Millisecond),
			slog.String("cache", "  "),
			slog.Any("cause", nil),
		)
	})
	for _, want := range []string{"duration_ms=1", "db_duration_ms=2", "wait_ms=3"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
	if strings.Contains(line, "cache=") || strings.Contains(line, "cause=") {
		t.Fatalf("empty attributes should be dropped, got %s", line)
	}
}

func TestLineHandlerGroupsAndLevel(t *testing.T) {
	line := capture(t, slog.LevelInfo, formatKV, func(log *slog.Logger) {
		log.Debug("hidden")
		log.WithGroup("db").With("driver", "sqlite").Info("open", slog.Group("pool", slog.Int("max", 4)))
	})
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug line should be filtered, got %s", line)
	}
	for _, want := range []string{"event=open", "db.driver=sqlite", "db.pool.max=4"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
}

func TestKVQuoting(t *testing.T) {
	line := capture(t, slog.LevelInfo, formatKV, func(log *slog.Logger) {
		log.Info("x", slog.String("payload", `Road "Trip"`))
	})
	if !strings.Contains(line, `payload="Road \"Trip\""`) {
		t.Fatalf("expected quoted payload, got %s", line)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("Road\x00 Trip\u200b\x7f", 64); got != "Road Trip" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
	if got := SanitizeLimit("плейлист", 4); got != "плей" {
		t.Fatalf("expected rune-aware truncation, got %q", got)
	}
	if got := SanitizeLimit("a\tb\nc", 0); got != "" {
		t.Fatalf("expected empty result for zero limit, got %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := CompactRID(BuildRID(35, 36, 1)); got != "z.10.1" {
		t.Fatalf("unexpected compact rid %q", got)
	}
}

func TestSampler(t *testing.T) {
	var s sampler
	s.set(parseSample("2/5"))
	passed := 0
	for i := 0; i < 10; i++ {
		if s.allow() {
			passed++
		}
	}
	if passed != 4 {
		t.Fatalf("expected 4 of 10 to pass, got %d", passed)
	}

	s.set(parseSample("all"))
	if !s.allow() || !s.allow() {
		t.Fatal("expected every call to pass")
	}

	if k, n := parseSample("garbage"); k != defaultSampleKeep || n != defaultSampleEvery {
		t.Fatalf("expected default ratio, got %d/%d", k, n)
	}
	if k, n := parseSample("10"); k != 1 || n != 10 {
		t.Fatalf("expected 1/10, got %d/%d", k, n)
	}
}

func TestWriterRejectsAfterClose(t *testing.T) {
	w := newAsyncWriter([]io.Writer{io.Discard}, 0)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := w.Write([]byte("late\n")); err == nil {
		t.Fatal("expected error after close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
