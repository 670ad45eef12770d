package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/dmbot/core/telegram"
	"github.com/m3rciful/dmbot/internal/admin"
	"github.com/m3rciful/dmbot/internal/locales"
	"github.com/m3rciful/dmbot/internal/membership"
	"github.com/m3rciful/dmbot/internal/users"
)

const adminID int64 = 7

type sentMessage struct {
	chatID int64
	text   string
}

type fakeAPI struct {
	mu      sync.Mutex
	sent    []sentMessage
	left    []int64
	sendErr error
}

func (f *fakeAPI) SendMarkdown(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeAPI) Leave(_ context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, chatID)
	return nil
}

// fakeContext records replies and delegates everything else to a real
// context built by an offline bot.
type fakeContext struct {
	tele.Context
	replies []any
}

func (f *fakeContext) Reply(what interface{}, _ ...interface{}) error {
	f.replies = append(f.replies, what)
	return nil
}

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.replies = append(f.replies, what)
	return nil
}

type harness struct {
	h     *Handlers
	store *users.MemoryStore
	api   *fakeAPI
	texts *locales.Bundle
	bot   *tele.Bot
	info  string
	errs  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	texts, err := locales.New("en")
	require.NoError(t, err)

	dir := t.TempDir()
	store := users.NewMemoryStore()
	api := &fakeAPI{}
	rights := admin.NewRights([]int64{adminID})

	hs := &harness{
		store: store,
		api:   api,
		texts: texts,
		bot:   bot,
		info:  filepath.Join(dir, "info.txt"),
		errs:  filepath.Join(dir, "errors.txt"),
	}
	hs.h = New(Deps{
		Store:        store,
		Rights:       rights,
		Archive:      admin.NewLogArchive(admin.ArchiveOptions{Delay: -1}),
		Notifier:     admin.NewNotifier(rights, api, nil),
		Tracker:      membership.NewTracker(store, api, nil),
		Texts:        texts,
		InfoLogPath:  hs.info,
		ErrorLogPath: hs.errs,
	})
	return hs
}

func (hs *harness) message(text string, user *tele.User, chat *tele.Chat) *fakeContext {
	upd := tele.Update{ID: 1, Message: &tele.Message{Text: text, Sender: user, Chat: chat}}
	return &fakeContext{Context: hs.bot.NewContext(upd)}
}

func (hs *harness) private(text string, user *tele.User) *fakeContext {
	return hs.message(text, user, &tele.Chat{ID: user.ID, Type: tele.ChatPrivate})
}

func TestStartRegistersAndNotifiesOnce(t *testing.T) {
	hs := newHarness(t)
	user := &tele.User{ID: 42, FirstName: "Ann", LastName: "Lee"}

	c := hs.private("/start", user)
	require.NoError(t, hs.h.Start(c))

	rec, err := hs.store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", rec.DisplayName)
	assert.True(t, rec.IsActive)

	require.Len(t, hs.api.sent, 1)
	assert.Equal(t, adminID, hs.api.sent[0].chatID)
	assert.Contains(t, hs.api.sent[0].text, "[Ann Lee](tg://user?id=42)")
	assert.Equal(t, []any{hs.texts.T(locales.Greeting)}, c.replies)

	again := hs.private("/start", user)
	require.NoError(t, hs.h.Start(again))
	assert.Len(t, hs.api.sent, 1)
	assert.Equal(t, []any{hs.texts.T(locales.Greeting)}, again.replies)
}

func TestStartInGroupDoesNotRegister(t *testing.T) {
	hs := newHarness(t)
	c := hs.message("/start", &tele.User{ID: 42}, &tele.Chat{ID: -100500, Type: tele.ChatSuperGroup})

	require.NoError(t, hs.h.Start(c))

	list, err := hs.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, hs.api.sent)
	assert.Len(t, c.replies, 1)
}

func TestStartGreetsEvenWhenNotifyFails(t *testing.T) {
	hs := newHarness(t)
	hs.api.sendErr = errors.New("forbidden")

	c := hs.private("/start", &tele.User{ID: 42, FirstName: "Ann"})
	require.NoError(t, hs.h.Start(c))
	assert.Equal(t, []any{hs.texts.T(locales.Greeting)}, c.replies)
}

func TestHelpReplies(t *testing.T) {
	hs := newHarness(t)
	c := hs.private("/help", &tele.User{ID: 42})
	require.NoError(t, hs.h.Help(c))
	assert.Equal(t, []any{hs.texts.T(locales.Help)}, c.replies)
}

func TestInfoLogSendsDocumentThenClears(t *testing.T) {
	hs := newHarness(t)
	require.NoError(t, os.WriteFile(hs.info, []byte("line one\nline two\n"), 0o644))

	c := hs.private("/info_log", &tele.User{ID: adminID})
	require.NoError(t, hs.h.InfoLog(c))

	require.Len(t, c.replies, 2)
	doc, ok := c.replies[0].(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "info.txt", doc.FileName)
	assert.Equal(t, hs.texts.T(locales.LogCleared), c.replies[1])

	st, err := os.Stat(hs.info)
	require.NoError(t, err)
	assert.Zero(t, st.Size())
}

func TestLogCommandsReportEmptyFiles(t *testing.T) {
	hs := newHarness(t)
	require.NoError(t, os.WriteFile(hs.info, nil, 0o644))

	info := hs.private("/info_log", &tele.User{ID: adminID})
	require.NoError(t, hs.h.InfoLog(info))
	assert.Equal(t, []any{hs.texts.T(locales.NoInfoEntries)}, info.replies)

	errLog := hs.private("/error_log", &tele.User{ID: adminID})
	require.NoError(t, hs.h.ErrorLog(errLog))
	assert.Equal(t, []any{hs.texts.T(locales.NoErrorEntries)}, errLog.replies)
}

func TestLogCommandsIgnoreNonAdmins(t *testing.T) {
	hs := newHarness(t)
	require.NoError(t, os.WriteFile(hs.errs, []byte("boom\n"), 0o644))

	c := hs.private("/error_log", &tele.User{ID: 42})
	require.NoError(t, hs.h.ErrorLog(c))
	assert.Empty(t, c.replies)

	data, err := os.ReadFile(hs.errs)
	require.NoError(t, err)
	assert.Equal(t, "boom\n", string(data))
}

func TestMyChatMemberLeavesGroups(t *testing.T) {
	hs := newHarness(t)
	upd := tele.Update{ID: 3, MyChatMember: &tele.ChatMemberUpdate{
		Chat:          &tele.Chat{ID: -100123, Type: tele.ChatSuperGroup, Title: "team"},
		Sender:        &tele.User{ID: 42, FirstName: "Ann"},
		OldChatMember: &tele.ChatMember{Role: tele.Left},
		NewChatMember: &tele.ChatMember{Role: tele.Member},
	}}

	require.NoError(t, hs.h.MyChatMember(hs.bot.NewContext(upd)))
	assert.Equal(t, []int64{-100123}, hs.api.left)

	list, err := hs.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMyChatMemberTracksPrivateBlock(t *testing.T) {
	hs := newHarness(t)
	user := &tele.User{ID: 42, FirstName: "Ann"}
	upd := tele.Update{ID: 4, MyChatMember: &tele.ChatMemberUpdate{
		Chat:          &tele.Chat{ID: 42, Type: tele.ChatPrivate, FirstName: "Ann"},
		Sender:        user,
		OldChatMember: &tele.ChatMember{Role: tele.Member},
		NewChatMember: &tele.ChatMember{Role: tele.Kicked},
	}}

	require.NoError(t, hs.h.MyChatMember(hs.bot.NewContext(upd)))

	rec, err := hs.store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, rec.IsActive)
	assert.Empty(t, hs.api.left)
}

func TestMyChatMemberWithoutPayload(t *testing.T) {
	hs := newHarness(t)
	require.NoError(t, hs.h.MyChatMember(hs.bot.NewContext(tele.Update{ID: 5})))
}

func TestRegisterCommands(t *testing.T) {
	hs := newHarness(t)
	reg := tg.NewRegistry()
	hs.h.Register(reg)

	for _, name := range []string{"/start", "/help", "/info_log", "/error_log"} {
		_, _, ok := reg.LookupCommand(name)
		assert.True(t, ok, name)
	}
	_, cmd, ok := reg.LookupCommand("/info_log")
	require.True(t, ok)
	assert.True(t, cmd.AdminOnly)

	key, _, ok := reg.LookupCommand(hs.texts.T(locales.MenuStart))
	require.True(t, ok)
	assert.Equal(t, "/start", key)

	menu := reg.ListCommands(true)
	require.Len(t, menu, 2)
}

type botStub struct {
	sent []tele.Recipient
	left []tele.Recipient
}

func (b *botStub) Send(to tele.Recipient, _ interface{}, _ ...interface{}) (*tele.Message, error) {
	b.sent = append(b.sent, to)
	return &tele.Message{}, nil
}

func (b *botStub) Leave(chat tele.Recipient) error {
	b.left = append(b.left, chat)
	return nil
}

func TestBotAPIAdapter(t *testing.T) {
	stub := &botStub{}
	api := NewBotAPI(stub)

	require.NoError(t, api.SendMarkdown(context.Background(), 7, "*hi*"))
	require.NoError(t, api.Leave(context.Background(), -100123))

	require.Len(t, stub.sent, 1)
	assert.Equal(t, "7", stub.sent[0].Recipient())
	require.Len(t, stub.left, 1)
	assert.Equal(t, "-100123", stub.left[0].Recipient())
}
