// Package callbacks decodes callback query data produced by telebot buttons.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Data is a decoded callback: the button's unique key and its payload.
type Data struct {
	Key     string
	Payload string
}

// Parse decodes cb. Telebot encodes button data as "\f<unique>|<payload>";
// data sent by other clients has no prefix and is read the same way.
func Parse(cb *tele.Callback) Data {
	if cb == nil {
		return Data{}
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	key, payload, _ := strings.Cut(raw, "|")
	d := Data{Key: strings.TrimSpace(key), Payload: payload}
	if cb.Unique != "" {
		d.Key = cb.Unique
	}
	return d
}

// Key returns the routing key of the callback carried by c.
func Key(c tele.Context) string {
	return Parse(c.Callback()).Key
}
