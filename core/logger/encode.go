package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"

// fieldSet holds the flattened attributes of one record.
type fieldSet map[string]any

func (f fieldSet) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// prune removes nil values and empty strings.
func (f fieldSet) prune() {
	for k, v := range f {
		if v == nil || v == "" {
			delete(f, k)
		}
	}
}

// keys lists keys named in order first, then the rest alphabetically.
func (f fieldSet) keys(order []string) []string {
	out := make([]string, 0, len(f))
	placed := make(map[string]bool, len(f))
	for _, k := range order {
		if _, ok := f[k]; ok && !placed[k] {
			out = append(out, k)
			placed[k] = true
		}
	}
	rest := make([]string, 0, len(f)-len(out))
	for k := range f {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

type encoder interface {
	encode(fields fieldSet, keys []string) ([]byte, error)
	// keepsFullRID reports whether the uncompacted rid is worth a field.
	keepsFullRID() bool
}

type jsonEncoder struct{}

func (jsonEncoder) keepsFullRID() bool { return true }

func (jsonEncoder) encode(fields fieldSet, keys []string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range keys {
		v, err := json.Marshal(fields[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

type kvEncoder struct{}

func (kvEncoder) keepsFullRID() bool { return false }

func (kvEncoder) encode(fields fieldSet, keys []string) ([]byte, error) {
	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(fields[k])
		if strings.ContainsFunc(s, needsQuote) {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return b.Bytes(), nil
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
