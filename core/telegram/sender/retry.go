package sender

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/m3rciful/playlistbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

var (
	tokenRe  = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	statusRe = regexp.MustCompile(`\((\d{3})\)$`)
)

func (d *Dispatcher) exec(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attrs := jobAttrs(j)
	logger.LogEvent(j.ctx, logger.Sender, slog.LevelDebug, "send.start", attrs...)

	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			d.sent.Add(1)
			level := slog.LevelDebug
			if attempt > 1 {
				level = slog.LevelInfo
			}
			logger.LogEvent(j.ctx, logger.Sender, level, "send.success", append(attrs,
				slog.Int("attempts", attempt),
				slog.Duration("duration", time.Since(start)),
			)...)
			return
		}
		if attempt == attempts {
			break
		}
		delay, retry := Backoff(err, d.opts.RetryBackoff, attempt)
		if !retry {
			break
		}
		logger.LogEvent(j.ctx, logger.Sender, slog.LevelDebug, "send.retry", append(attrs,
			slog.Int("attempts", attempt),
			slog.Duration("delay", delay),
		)...)
		if waitErr := sleep(ctx, delay); waitErr != nil {
			err = errors.Join(err, waitErr)
			break
		}
	}

	d.failed.Add(1)
	logger.LogEvent(j.ctx, logger.Sender, slog.LevelError, "send.fail", append(attrs,
		slog.String("err", Redact(err)),
		slog.String("err_code", Classify(err)),
		slog.Duration("duration", time.Since(start)),
	)...)
}

func jobAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("op", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns how long to wait before attempt+1 and whether err is
// worth retrying at all. Flood control errors wait as long as Telegram asks;
// network failures and Bot API 5xx replies back off linearly.
func Backoff(err error, base time.Duration, attempt int) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	if !Transient(err) && statusOf(err) < 500 {
		return 0, false
	}
	return base * time.Duration(attempt), true
}

// Transient reports whether err is a timeout or dial failure on the way to
// the Bot API.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

// Classify names the failure class of err for logs.
func Classify(err error) string {
	var (
		flood  tele.FloodError
		dnsErr *net.DNSError
		opErr  *net.OpError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &flood):
		return "flood"
	case statusOf(err) >= 500:
		return "http_5xx"
	case statusOf(err) >= 400:
		return "http_4xx"
	case errors.As(err, &dnsErr):
		return "dns"
	case Transient(err):
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return "dial"
		}
		return "timeout"
	}
	return "unknown"
}

// statusOf extracts the Bot API status code. Errors telebot does not know
// by name only carry it as a "(code)" suffix of the message.
func statusOf(err error) int {
	if err == nil {
		return 0
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	m := statusRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

// Redact hides bot tokens that net/http embeds in request URLs.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
