package logger

import (
	"log/slog"
	"sort"
	"strings"
	"time"
)

// keyOrder fixes the position of well-known keys. Keys not listed follow in
// alphabetical order.
var keyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"rid",
	"rid_full",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"kind",
	"cb_key",
	"step",
	"next_step",
	"outcome",
	"duration_ms",
	"playlist_id",
	"index",
	"count",
	"replies",
	"kb",
	"audio",
	"payload",
	"username",
	"op",
	"driver",
	"listen",
	"mode",
	"err",
	"err_code",
	"attempts",
}

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

type field struct {
	key string
	val any
}

// record collects the fields of one line. Setting a key twice keeps the
// first position and the last value.
type record struct {
	fields []field
	index  map[string]int
}

func newRecord(size int) *record {
	return &record{fields: make([]field, 0, size), index: make(map[string]int, size)}
}

func (r *record) set(key string, val any) {
	if i, ok := r.index[key]; ok {
		r.fields[i].val = val
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, field{key: key, val: val})
}

func (r *record) setDefault(key string, val any) {
	if _, ok := r.index[key]; !ok {
		r.set(key, val)
	}
}

func (r *record) str(key string) string {
	if i, ok := r.index[key]; ok {
		s, _ := r.fields[i].val.(string)
		return s
	}
	return ""
}

// sorted returns ranked keys first, then the rest alphabetically.
func (r *record) sorted(rank map[string]int) []field {
	out := append([]field(nil), r.fields...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i].key]
		rj, jok := rank[out[j].key]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i].key < out[j].key
		}
	})
	return out
}

func rankOf(order []string) map[string]int {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return rank
}

// unitKey makes every duration key carry its unit.
func unitKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

// RoundMS rounds d to the nearest millisecond; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins up to limit values and reports whether any were left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
