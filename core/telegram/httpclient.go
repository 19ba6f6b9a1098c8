package telegram

import (
	"net"
	"net/http"
	"time"

	tgsender "github.com/m3rciful/playlistbot/core/telegram/sender"
)

// The client timeout must exceed the long-poll timeout so getUpdates is not
// cut short.
const (
	clientTimeout    = 30 * time.Second
	transportRetries = 2
	transportBackoff = time.Second
)

// BuildHTTPClient returns the Bot API client. Dial and timeout failures are
// retried at the transport level for requests whose body can be replayed.
func BuildHTTPClient() *http.Client {
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   clientTimeout,
		Transport: &retryTransport{base: base, retries: transportRetries, backoff: transportBackoff},
	}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries; attempt++ {
		if req.Body != nil && req.GetBody == nil {
			return nil, err
		}
		delay, retry := tgsender.Backoff(err, t.backoff, attempt)
		if !retry {
			return nil, err
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}
