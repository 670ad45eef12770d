package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Error kinds reported by ClassifyError.
const (
	KindTimeout = "timeout"
	KindDNS     = "dns"
	KindDial    = "dial"
	KindTLS     = "tls"
	KindFlood   = "flood"
	Kind5xx     = "http_5xx"
	Kind4xx     = "http_4xx"
	KindUnknown = "unknown"
)

// ClassifyError maps err to one of the Kind constants, or "" for nil.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if dnsErr := (*net.DNSError)(nil); errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}
	if netErr := net.Error(nil); errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if opErr := (*net.OpError)(nil); errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindDial
	}
	if errors.As(err, new(tls.AlertError)) {
		return KindTLS
	}
	switch code := HTTPStatus(err); {
	case code == http.StatusTooManyRequests:
		return KindFlood
	case code >= 500:
		return Kind5xx
	case code >= 400:
		return Kind4xx
	}
	return KindUnknown
}

// ShouldRetry reports whether a failed Bot API call may succeed when
// repeated: timeouts, connection failures and 5xx answers. Flood control is
// handled by RetryAfter instead.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch ClassifyError(err) {
	case KindTimeout, KindDNS, KindDial, Kind5xx:
		return true
	}
	return false
}

// RetryAfter returns the wait requested by a flood-control answer.
func RetryAfter(err error) (time.Duration, bool) {
	var flood tele.FloodError
	if !errors.As(err, &flood) || flood.RetryAfter <= 0 {
		return 0, false
	}
	return time.Duration(flood.RetryAfter) * time.Second, true
}

// HTTPStatus returns the Bot API status code carried by err, or 0.
func HTTPStatus(err error) int {
	if err == nil {
		return 0
	}
	if errors.As(err, new(tele.FloodError)) {
		return http.StatusTooManyRequests
	}
	if apiErr := (*tele.Error)(nil); errors.As(err, &apiErr) {
		return apiErr.Code
	}
	if errors.As(err, new(tele.GroupError)) {
		return http.StatusBadRequest
	}
	return trailingCode(err.Error())
}

// trailingCode parses the "(403)" suffix telebot puts on unknown API errors.
func trailingCode(msg string) int {
	msg = strings.TrimSpace(msg)
	if !strings.HasSuffix(msg, ")") {
		return 0
	}
	open := strings.LastIndexByte(msg, '(')
	if open < 0 {
		return 0
	}
	code, err := strconv.Atoi(msg[open+1 : len(msg)-1])
	if err != nil {
		return 0
	}
	return code
}

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// RedactToken hides bot tokens that net/http embeds in request URLs.
func RedactToken(msg string) string {
	return tokenRe.ReplaceAllString(msg, "bot<redacted>")
}
