package router

import (
	tg "github.com/m3rciful/dmbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// MemberRoute binds h to updates about the bot's own membership in a chat.
func MemberRoute(h tele.HandlerFunc) tg.Route {
	s := summary{name: "my_chat_member"}
	return tg.Route{
		Endpoint: tele.OnMyChatMember,
		Handler: guard(func(c tele.Context) error {
			if c.ChatMember() == nil {
				return nil
			}
			return s.run(c, h)
		}),
	}
}
