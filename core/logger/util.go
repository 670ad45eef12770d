package logger

import (
	"strconv"
	"strings"
	"time"
)

// Status is "ok" for a nil error and "fail" otherwise.
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	return "fail"
}

// Took is the time since start, rounded for logs.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to whole milliseconds; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values with ", ". When values are cut
// it appends "+N" for the rest and reports true.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	if limit < 0 {
		limit = 0
	}
	rest := "+" + strconv.Itoa(len(values)-limit)
	if limit == 0 {
		return rest, true
	}
	return strings.Join(values[:limit], ", ") + ", " + rest, true
}
