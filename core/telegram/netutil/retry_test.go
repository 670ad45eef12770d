package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"timeout", timeoutErr{}, true},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"url wrapping timeout", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}, true},
		{"api 502", fmt.Errorf("telegram: Bad Gateway (502)"), true},
		{"api 400", fmt.Errorf("telegram: Bad Request: chat not found (400)"), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldRetry(tc.err))
		})
	}
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "", ClassifyError(nil))
	assert.Equal(t, "timeout", ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, "dial", ClassifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "http_4xx", ClassifyError(errors.New("telegram: Forbidden: bot was blocked by the user (403)")))
	assert.Equal(t, "http_5xx", ClassifyError(errors.New("telegram: Internal Server Error (500)")))
	assert.Equal(t, "unknown", ClassifyError(errors.New("boom")))
}

func TestRedactToken(t *testing.T) {
	msg := `Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": dial tcp`
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": dial tcp`, RedactToken(msg))
}

func TestRetryAfter(t *testing.T) {
	d, ok := RetryAfter(wrapped{tele.FloodError{RetryAfter: 3}})
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	_, ok = RetryAfter(tele.FloodError{})
	assert.False(t, ok)
	_, ok = RetryAfter(errors.New("plain"))
	assert.False(t, ok)
}

// wrapped hides the inner error text; FloodError built outside telebot has
// no message to format.
type wrapped struct{ err error }

func (w wrapped) Error() string { return "wrapped" }
func (w wrapped) Unwrap() error { return w.err }

func TestClassifyErrorKinds(t *testing.T) {
	assert.Equal(t, KindDNS, ClassifyError(&net.DNSError{Err: "no such host", Name: "api.telegram.org"}))
	assert.Equal(t, KindTimeout, ClassifyError(&net.DNSError{Err: "timeout", IsTimeout: true}))
	assert.Equal(t, KindFlood, ClassifyError(wrapped{tele.FloodError{RetryAfter: 1}}))
	assert.Equal(t, KindFlood, ClassifyError(errors.New("telegram: Too Many Requests: retry later (429)")))
	assert.False(t, ShouldRetry(wrapped{tele.FloodError{RetryAfter: 1}}))
	assert.True(t, ShouldRetry(&net.DNSError{Err: "no such host"}))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 403, HTTPStatus(errors.New("telegram: Forbidden: bot was kicked from the group chat (403)")))
	assert.Equal(t, 0, HTTPStatus(errors.New("telegram: unexpected (end")))
	assert.Equal(t, 0, HTTPStatus(errors.New("status (abc)")))
	assert.Equal(t, 0, HTTPStatus(nil))
}
