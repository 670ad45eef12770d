package telegram

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/ratelimit"

	"github.com/m3rciful/dmbot/core/telegram/netutil"
)

const (
	dialTimeout      = 5 * time.Second
	keepAlive        = 30 * time.Second
	tlsTimeout       = 5 * time.Second
	idleConnTimeout  = 30 * time.Second
	headerTimeout    = 5 * time.Second
	clientTimeout    = 30 * time.Second
	transportRetries = 3
	transportBackoff = 2 * time.Second
	longPollEndpoint = "/getUpdates"
)

// HTTPClientOptions configures BuildHTTPClient.
type HTTPClientOptions struct {
	// PerSecond caps outbound Bot API calls; 0 disables the limiter.
	PerSecond int
	// LongPollTimeout extends the client timeout so getUpdates can block.
	LongPollTimeout time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
}

// BuildHTTPClient returns the client used for Bot API calls. Requests pass
// the overall rate limiter, then the retrying transport.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsTimeout,
		ExpectContinueTimeout: time.Second,
	}
	// getUpdates holds the response until its own timeout expires
	if opts.LongPollTimeout <= 0 {
		base.ResponseHeaderTimeout = headerTimeout
	}

	var rt http.RoundTripper = &retryTransport{
		next:    base,
		retries: positiveOr(opts.MaxRetries, transportRetries),
		backoff: positiveOr(opts.RetryBackoff, transportBackoff),
	}
	if opts.PerSecond > 0 {
		rt = &limitTransport{next: rt, limiter: ratelimit.New(opts.PerSecond)}
	}
	return &http.Client{
		Timeout:   clientTimeout + opts.LongPollTimeout,
		Transport: rt,
	}
}

func positiveOr[T int | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

// limitTransport applies the overall outbound cap. Long polls are exempt.
type limitTransport struct {
	next    http.RoundTripper
	limiter ratelimit.Limiter
}

func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil || !strings.HasSuffix(req.URL.Path, longPollEndpoint) {
		t.limiter.Take()
	}
	return t.next.RoundTrip(req)
}

// retryTransport repeats requests that failed before a response arrived.
// API error answers are returned as they are.
type retryTransport struct {
	next    http.RoundTripper
	retries int
	backoff time.Duration
}

var errNoRewind = errors.New("telegram: request body cannot be replayed")

// rewind returns a copy of req with a fresh body.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Clone(req.Context()), nil
	}
	if req.GetBody == nil {
		return nil, errNoRewind
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries && netutil.ShouldRetry(err); attempt++ {
		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		again, rewindErr := rewind(req)
		if rewindErr != nil {
			return nil, errors.Join(err, rewindErr)
		}
		resp, err = t.next.RoundTrip(again)
	}
	return resp, err
}
