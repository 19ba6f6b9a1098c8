package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestDispatcherKeepsOrderPerKey(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4, QueueSize: 400})

	var mu sync.Mutex
	got := map[int64][]int{}
	for i := 0; i < 50; i++ {
		for _, chat := range []int64{-100, 7, 8} {
			chat, i := chat, i
			require.NoError(t, d.Enqueue(context.Background(), chat, "send.text", "sendMessage", func() error {
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
				return nil
			}))
		}
	}
	d.Close()

	for chat, seq := range got {
		require.Len(t, seq, 50, "chat %d", chat)
		for i, v := range seq {
			assert.Equal(t, i, v, "chat %d out of order", chat)
		}
	}
	assert.Equal(t, uint64(150), d.SentCount())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherCountsFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxDuration: time.Second})
	require.NoError(t, d.Enqueue(context.Background(), 1, "send.audio", "sendAudio", func() error {
		return errors.New("bad request (400)")
	}))
	d.Close()
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()

	err := d.Enqueue(context.Background(), 1, "send.text", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Error(t, d.Enqueue(context.Background(), 1, "send.text", "sendMessage", nil))
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 1, "block", "", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), 1, "queued", "", func() error { return nil }))

	err := d.Enqueue(context.Background(), 1, "overflow", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	d.Close()
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), 5, "send.text", "sendMessage", func() error {
		calls++
		if calls == 1 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return nil
	}))
	d.Close()

	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(1), d.SentCount())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherRetriesServerErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), 5, "send.audio", "sendAudio", func() error {
		calls++
		if calls < 3 {
			return &tele.Error{Code: 502, Description: "Bad Gateway"}
		}
		return nil
	}))
	d.Close()

	assert.Equal(t, 3, calls)
	assert.Equal(t, uint64(1), d.SentCount())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 1, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), 5, "send.text", "sendMessage", func() error {
		calls++
		return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	}))
	d.Close()

	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestBackoff(t *testing.T) {
	delay, retry := Backoff(tele.FloodError{RetryAfter: 3}, time.Second, 1)
	assert.True(t, retry)
	assert.Equal(t, 3*time.Second, delay)

	delay, retry = Backoff(&net.OpError{Op: "dial", Err: errors.New("refused")}, time.Second, 2)
	assert.True(t, retry)
	assert.Equal(t, 2*time.Second, delay)

	delay, retry = Backoff(&tele.Error{Code: 502, Description: "Bad Gateway"}, time.Second, 1)
	assert.True(t, retry)
	assert.Equal(t, time.Second, delay)

	delay, retry = Backoff(errors.New("telegram: Internal Server Error (500)"), time.Second, 3)
	assert.True(t, retry)
	assert.Equal(t, 3*time.Second, delay)

	_, retry = Backoff(errors.New("telegram: Bad Request: chat not found (400)"), time.Second, 1)
	assert.False(t, retry)

	_, retry = Backoff(context.Canceled, time.Second, 1)
	assert.False(t, retry)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "http_4xx", Classify(errors.New("telegram: Bad Request: wrong file identifier (400)")))
	assert.Equal(t, "http_5xx", Classify(errors.New("telegram: Internal Server Error (502)")))
	assert.Equal(t, "flood", Classify(tele.FloodError{RetryAfter: 1}))
	assert.Equal(t, "timeout", Classify(context.DeadlineExceeded))
	assert.Equal(t, "dial", Classify(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "unknown", Classify(errors.New("boom")))
	assert.Empty(t, Classify(nil))
}

func TestRedactHidesToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAE-secret_token/sendAudio": timeout`)
	assert.NotContains(t, Redact(err), "AAE-secret_token")
	assert.Contains(t, Redact(err), "bot<redacted>")
}
