// Package membership reacts to changes of the bot's own membership in a chat.
// Private chats feed the user registry (block / unblock); groups and channels
// are left as soon as the bot is added.
package membership

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Status is the platform membership status of the bot in a chat.
type Status string

const (
	StatusOwner         Status = "creator"
	StatusAdministrator Status = "administrator"
	StatusMember        Status = "member"
	StatusRestricted    Status = "restricted"
	StatusLeft          Status = "left"
	StatusKicked        Status = "kicked"
)

// ChatKind is the type of chat an event belongs to.
type ChatKind string

const (
	KindPrivate    ChatKind = "private"
	KindGroup      ChatKind = "group"
	KindSupergroup ChatKind = "supergroup"
	KindChannel    ChatKind = "channel"
)

// Member is one side of a status change.
type Member struct {
	Status Status
	// IsMember is only meaningful for StatusRestricted.
	IsMember bool
}

// Chat identifies where the change happened.
type Chat struct {
	ID    int64
	Kind  ChatKind
	Title string
}

// Actor is the user who caused the change.
type Actor struct {
	ID    int64
	Name  string
	IsBot bool
}

// Event is a my_chat_member update reduced to what the tracker needs.
// Old or New may be nil when the platform omitted that side.
type Event struct {
	Chat  Chat
	Actor Actor
	Old   *Member
	New   *Member
}

// IsMember reports whether m counts as being in the chat.
func IsMember(m Member) bool {
	switch m.Status {
	case StatusMember, StatusOwner, StatusAdministrator:
		return true
	case StatusRestricted:
		return m.IsMember
	}
	return false
}

// StatusChange derives the membership before and after the event. ok is
// false when a side is missing or the status did not change.
func (e Event) StatusChange() (was, is, ok bool) {
	if e.Old == nil || e.New == nil || e.Old.Status == e.New.Status {
		return false, false, false
	}
	return IsMember(*e.Old), IsMember(*e.New), true
}

// NormalizeChatID renders id without the -100 prefix that marks supergroups
// and channels.
func NormalizeChatID(id int64) string {
	s := strconv.FormatInt(id, 10)
	return strings.TrimPrefix(s, "-100")
}

// EventFromUpdate converts a telebot chat member update. It returns false for
// nil input or an update without a chat.
func EventFromUpdate(u *tele.ChatMemberUpdate) (Event, bool) {
	if u == nil || u.Chat == nil {
		return Event{}, false
	}
	ev := Event{
		Chat: Chat{
			ID:    u.Chat.ID,
			Kind:  chatKind(u.Chat.Type),
			Title: chatTitle(u.Chat),
		},
		Old: memberFrom(u.OldChatMember),
		New: memberFrom(u.NewChatMember),
	}
	if u.Sender != nil {
		ev.Actor = Actor{ID: u.Sender.ID, Name: FullName(u.Sender), IsBot: u.Sender.IsBot}
	}
	return ev, true
}

// FullName joins first and last name the way clients display them.
func FullName(u *tele.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func memberFrom(m *tele.ChatMember) *Member {
	if m == nil {
		return nil
	}
	return &Member{Status: Status(m.Role), IsMember: m.Member}
}

func chatKind(t tele.ChatType) ChatKind {
	switch t {
	case tele.ChatPrivate:
		return KindPrivate
	case tele.ChatGroup:
		return KindGroup
	case tele.ChatSuperGroup:
		return KindSupergroup
	case tele.ChatChannel, tele.ChatChannelPrivate:
		return KindChannel
	}
	return ChatKind(t)
}

func chatTitle(c *tele.Chat) string {
	if c.Title != "" {
		return c.Title
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
