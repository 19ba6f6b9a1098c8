package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

const (
	defaultSampleKeep  = 1
	defaultSampleEvery = 50
)

// sampler lets keep out of every `every` calls through. A zero ratio lets
// everything through.
type sampler struct {
	keep  atomic.Int64
	every atomic.Int64
	seen  atomic.Uint64
}

func (s *sampler) set(keep, every int) {
	if keep <= 0 || every <= 0 {
		keep, every = 0, 0
	}
	s.keep.Store(int64(min(keep, every)))
	s.every.Store(int64(every))
	s.seen.Store(0)
}

func (s *sampler) allow() bool {
	every := s.every.Load()
	if every <= 0 {
		return true
	}
	n := (s.seen.Add(1) - 1) % uint64(every)
	return int64(n) < s.keep.Load()
}

// parseSample reads "k/n", "n" (one in n) or "all". Empty or invalid input
// falls back to one in fifty.
func parseSample(raw string) (keep, every int) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return defaultSampleKeep, defaultSampleEvery
	case "all", "0", "off":
		return 0, 0
	}
	if k, n, ok := strings.Cut(raw, "/"); ok {
		kv, err1 := strconv.Atoi(strings.TrimSpace(k))
		nv, err2 := strconv.Atoi(strings.TrimSpace(n))
		if err1 == nil && err2 == nil && kv > 0 && nv > 0 {
			return kv, nv
		}
		return defaultSampleKeep, defaultSampleEvery
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return 1, n
	}
	return defaultSampleKeep, defaultSampleEvery
}
