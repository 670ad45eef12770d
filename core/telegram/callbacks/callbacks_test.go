package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		cb   *tele.Callback
		want Data
	}{
		{"nil", nil, Data{}},
		{"telebot button", &tele.Callback{Data: "\fconfirm|42"}, Data{Key: "confirm", Payload: "42"}},
		{"no payload", &tele.Callback{Data: "\fmenu"}, Data{Key: "menu"}},
		{"foreign data", &tele.Callback{Data: "plain"}, Data{Key: "plain"}},
		{"payload keeps separators", &tele.Callback{Data: "\fpage|2|next"}, Data{Key: "page", Payload: "2|next"}},
		{"unique wins", &tele.Callback{Unique: "menu", Data: "\fother|x"}, Data{Key: "menu", Payload: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.cb))
		})
	}
}
