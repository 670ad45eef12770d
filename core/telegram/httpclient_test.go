package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedTransport struct {
	errs   []error
	bodies []string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		s.bodies = append(s.bodies, string(b))
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func dialErr() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestRetryTransportReplaysBody(t *testing.T) {
	next := &scriptedTransport{errs: []error{dialErr(), dialErr()}}
	rt := &retryTransport{next: next, retries: 3, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"text":"hi"}`, `{"text":"hi"}`, `{"text":"hi"}`}, next.bodies)
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	next := &scriptedTransport{errs: []error{errors.New("malformed"), nil}}
	rt := &retryTransport{next: next, retries: 3, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	assert.EqualError(t, err, "malformed")
}

func TestRetryTransportGivesUp(t *testing.T) {
	next := &scriptedTransport{errs: []error{dialErr(), dialErr(), dialErr()}}
	rt := &retryTransport{next: next, retries: 2, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.Empty(t, next.errs)
}

type countingLimiter struct{ n int }

func (l *countingLimiter) Take() time.Time {
	l.n++
	return time.Now()
}

func TestLimitTransportSkipsLongPoll(t *testing.T) {
	lim := &countingLimiter{}
	rt := &limitTransport{next: &scriptedTransport{}, limiter: lim}

	for _, path := range []string{"/botX/sendMessage", "/botX/getUpdates", "/botX/leaveChat"} {
		req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org"+path, nil)
		require.NoError(t, err)
		_, err = rt.RoundTrip(req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, lim.n)
}

func TestBuildHTTPClient(t *testing.T) {
	c := BuildHTTPClient(HTTPClientOptions{PerSecond: 20, LongPollTimeout: 10 * time.Second})
	assert.Equal(t, 40*time.Second, c.Timeout)
	_, limited := c.Transport.(*limitTransport)
	assert.True(t, limited)

	c = BuildHTTPClient(HTTPClientOptions{})
	rt, ok := c.Transport.(*retryTransport)
	require.True(t, ok)
	assert.Equal(t, transportRetries, rt.retries)
}
