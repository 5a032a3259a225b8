package telegram

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmate/internal/auth"
	"mindmate/internal/chat"
	"mindmate/internal/llm"
	"mindmate/internal/session"
	"mindmate/internal/speech"
	"mindmate/internal/storage"
	"mindmate/internal/view"
)

type sentMessage struct {
	chatID int64
	text   string
	markup interface{}
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, sentMessage{chatID: m.ChatID, text: m.Text, markup: m.ReplyMarkup})
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.invalid/" + fileID, nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeSender) last() sentMessage {
	m := f.messages()
	if len(m) == 0 {
		return sentMessage{}
	}
	return m[len(m)-1]
}

type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	replies []string
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeLLM) Generate(_ context.Context, _ []llm.Message) (llm.Response, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if gate != nil && n > 1 {
		entered <- struct{}{}
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return llm.Response{}, f.err
	}
	if len(f.replies) == 0 {
		return llm.Response{Content: "I'm here with you."}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return llm.Response{Content: r}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRecognizer struct {
	text string
	err  error
}

func (r fakeRecognizer) Recognize(context.Context, speech.Clip) (string, error) {
	return r.text, r.err
}

type memRecorder struct {
	mu     sync.Mutex
	events []storage.Event
}

func (m *memRecorder) Record(e storage.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memRecorder) Between(from, to time.Time) ([]storage.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.Event
	for _, e := range m.events {
		if !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

const (
	userID  = int64(42)
	adminID = int64(999)
)

type fixture struct {
	bot *Bot
	s   *fakeSender
	llm *fakeLLM
	kv  storage.KV
	rec *memRecorder
}

func newFixture(t *testing.T, recognizer speech.Recognizer) *fixture {
	t.Helper()
	kv, err := storage.NewFileKV(filepath.Join(t.TempDir(), "kv.json"))
	require.NoError(t, err)
	svc, err := auth.NewWithRepo(nil, []int64{userID}, auth.WithAdmin(adminID))
	require.NoError(t, err)
	f := &fixture{
		s:   &fakeSender{},
		llm: &fakeLLM{replies: []string{"Hi, I'm MindMate. How are you feeling today?"}},
		kv:  kv,
		rec: &memRecorder{},
	}
	f.bot = newBot(f.s, Deps{
		Auth:         svc,
		LLM:          f.llm,
		SystemPrompt: "You are MindMate.",
		KV:           kv,
		Recorder:     f.rec,
		Recognizer:   recognizer,
		Logger:       zap.NewNop(),
		AdminUserID:  adminID,
		ParseMode:    tgbotapi.ModeHTML,
	})
	return f
}

func textMsg(from int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{From: &tgbotapi.User{ID: from, UserName: "u"}, Chat: &tgbotapi.Chat{ID: from}, Text: text}
}

func command(from int64, cmd string) *tgbotapi.Message {
	m := textMsg(from, "/"+cmd)
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}}
	return m
}

func callback(from int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{ID: "cb", From: &tgbotapi.User{ID: from}, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: from}}, Data: data}
}

func (f *fixture) history(t *testing.T) []chat.Message {
	t.Helper()
	h, _ := storage.NewAdapter(f.kv, "tg:42", zap.NewNop()).LoadHistory(context.Background())
	return h
}

func TestStartGreetsAndOffersSuggestions(t *testing.T) {
	f := newFixture(t, nil)
	f.bot.handleIncomingMessage(context.Background(), command(userID, "start"))

	msgs := f.s.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].text, "How are you feeling today?")
	nav, ok := msgs[0].markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, nav.InlineKeyboard[0], 4)

	kb, ok := msgs[1].markup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.Keyboard, 4)
	assert.Equal(t, "I'm feeling anxious about something.", kb.Keyboard[0][0].Text)

	assert.Equal(t, []chat.Message{chat.AI("Hi, I'm MindMate. How are you feeling today?")}, f.history(t))
}

func TestChatTextReachesSessionAndIsRecorded(t *testing.T) {
	f := newFixture(t, nil)
	f.llm.replies = append(f.llm.replies, "That sounds <hard>.")
	f.bot.handleIncomingMessage(context.Background(), textMsg(userID, "I had a really stressful day."))

	last := f.s.last()
	assert.Equal(t, "That sounds &lt;hard&gt;.", last.text)
	_, removesKeyboard := last.markup.(tgbotapi.ReplyKeyboardRemove)
	assert.True(t, removesKeyboard)

	h := f.history(t)
	require.Len(t, h, 3)
	assert.Equal(t, chat.User("I had a really stressful day."), h[1])
	assert.Equal(t, chat.AI("That sounds <hard>."), h[2])

	require.Len(t, f.rec.events, 1)
	assert.Equal(t, userID, f.rec.events[0].UserID)
	assert.False(t, f.rec.events[0].Fallback)
	assert.False(t, f.rec.events[0].Voice)
}

func TestModelFailureRepliesWithFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.bot.state(context.Background(), userID)
	f.llm.mu.Lock()
	f.llm.err = errors.New("boom")
	f.llm.mu.Unlock()

	f.bot.handleIncomingMessage(context.Background(), textMsg(userID, "hello"))
	assert.Equal(t, session.FallbackReply, strings.ReplaceAll(f.s.last().text, "&#39;", "'"))
	assert.True(t, f.rec.events[0].Fallback)
}

func TestJournalTabTextNeverReachesSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.bot.handleCallback(ctx, callback(userID, tabPrefix+"journal"))
	assert.Equal(t, view.TabJournal, f.bot.state(ctx, userID).tabs.Active())
	calls := f.llm.callCount()

	f.bot.handleIncomingMessage(ctx, textMsg(userID, "Today I walked by the sea."))
	f.bot.handleIncomingMessage(ctx, textMsg(userID, "It helped."))
	assert.Equal(t, calls, f.llm.callCount())
	assert.Len(t, f.history(t), 1)

	f.bot.handleCallback(ctx, callback(userID, saveJournal))
	got, ok := storage.NewAdapter(f.kv, "tg:42", zap.NewNop()).LoadJournal(ctx)
	require.True(t, ok)
	assert.Equal(t, "Today I walked by the sea.\nIt helped.", got)
	assert.Contains(t, f.s.last().text, "Saved!")
}

func TestVoiceMessageIsTranscribedAndSent(t *testing.T) {
	f := newFixture(t, fakeRecognizer{text: "  I want to talk about my feelings. "})
	f.llm.replies = append(f.llm.replies, "I'm listening.")
	msg := textMsg(userID, "")
	msg.Voice = &tgbotapi.Voice{FileID: "file-1", FileUniqueID: "u1", Duration: 3}

	f.bot.handleIncomingMessage(context.Background(), msg)

	h := f.history(t)
	require.Len(t, h, 3)
	assert.Equal(t, chat.User("I want to talk about my feelings."), h[1])
	assert.Equal(t, chat.AI("I'm listening."), h[2])
	require.Len(t, f.rec.events, 1)
	assert.True(t, f.rec.events[0].Voice)
}

func TestVoiceWithoutRecognizerIsUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	msg := textMsg(userID, "")
	msg.Voice = &tgbotapi.Voice{FileID: "file-1"}
	f.bot.handleIncomingMessage(context.Background(), msg)
	assert.Equal(t, voiceUnavailable, f.s.last().text)
	assert.Len(t, f.history(t), 1)
}

func TestFailedTranscriptionSendsNothing(t *testing.T) {
	f := newFixture(t, fakeRecognizer{err: errors.New("no speech")})
	msg := textMsg(userID, "")
	msg.Voice = &tgbotapi.Voice{FileID: "file-1"}
	f.bot.handleIncomingMessage(context.Background(), msg)
	assert.Contains(t, f.s.last().text, "couldn")
	assert.Len(t, f.history(t), 1)
}

func TestSecondMessageWhilePendingGetsNotice(t *testing.T) {
	f := newFixture(t, nil)
	f.llm.gate = make(chan struct{})
	f.llm.entered = make(chan struct{}, 1)
	ctx := context.Background()
	f.bot.state(ctx, userID)

	done := make(chan struct{})
	go func() {
		f.bot.handleIncomingMessage(ctx, textMsg(userID, "first"))
		close(done)
	}()
	<-f.llm.entered

	f.bot.handleIncomingMessage(ctx, textMsg(userID, "second"))
	assert.Equal(t, "I&#39;m still thinking about your last message. One moment please.", f.s.last().text)

	close(f.llm.gate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first send did not finish")
	}
	h := f.history(t)
	require.Len(t, h, 3)
	assert.Equal(t, chat.User("first"), h[1])
}

func TestNewConversationCommand(t *testing.T) {
	f := newFixture(t, nil)
	f.llm.replies = append(f.llm.replies, "reply", "Fresh start!")
	ctx := context.Background()
	f.bot.handleIncomingMessage(ctx, textMsg(userID, "hello"))
	require.Len(t, f.history(t), 3)

	f.bot.handleIncomingMessage(ctx, command(userID, "new"))
	assert.Equal(t, []chat.Message{chat.AI("Fresh start!")}, f.history(t))
}

func TestResourcesAndAboutPanels(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.bot.handleCallback(ctx, callback(userID, tabPrefix+"resources"))
	res := f.s.last().text
	assert.Contains(t, res, "<b>Helpful Resources</b>")
	assert.Contains(t, res, `<a href="https://www.nami.org">Visit NAMI.org</a>`)

	f.bot.handleIncomingMessage(ctx, command(userID, "about"))
	about := f.s.last().text
	assert.Contains(t, about, "Our Mission")
	assert.Contains(t, about, "not a replacement for professional medical advice")
}

func TestUnauthorizedFlow_RequestApproveAndRepeat(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	stranger := int64(7)

	f.bot.handleIncomingMessage(ctx, textMsg(stranger, "hi"))
	msgs := f.s.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, stranger, msgs[0].chatID)
	assert.Equal(t, adminID, msgs[1].chatID)
	kb, ok := msgs[1].markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, approvePrefix+"7", *kb.InlineKeyboard[0][0].CallbackData)

	f.bot.handleIncomingMessage(ctx, textMsg(stranger, "hello?"))
	assert.Contains(t, f.s.last().text, "already with the administrator")
	assert.Equal(t, 0, f.llm.callCount())

	f.bot.handleCallback(ctx, callback(stranger, approvePrefix+"7"))
	assert.False(t, f.bot.authSvc.IsAllowed(stranger), "only the admin approves")

	f.bot.handleCallback(ctx, callback(adminID, approvePrefix+"7"))
	assert.True(t, f.bot.authSvc.IsAllowed(stranger))
	assert.False(t, f.bot.pending.Has(stranger))
}

func TestDailyReportGoesToAdmin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.bot.handleIncomingMessage(ctx, textMsg(userID, "hello"))

	f.bot.handleIncomingMessage(ctx, command(adminID, "report"))
	last := f.s.last()
	assert.Equal(t, adminID, last.chatID)
	assert.Contains(t, last.text, "Messages: 1")
}

func TestUsersAreIsolated(t *testing.T) {
	f := newFixture(t, nil)
	other := int64(43)
	require.NoError(t, f.bot.authSvc.Upsert(auth.User{ID: other}))
	ctx := context.Background()

	f.bot.handleIncomingMessage(ctx, textMsg(userID, "mine"))
	f.bot.state(ctx, other)
	h, _ := storage.NewAdapter(f.kv, "tg:43", zap.NewNop()).LoadHistory(ctx)
	for _, m := range h {
		assert.NotEqual(t, "mine", m.Text)
	}
}

func commandWithArgs(from int64, cmd, args string) *tgbotapi.Message {
	m := command(from, cmd)
	m.Text += " " + args
	return m
}

func TestJournalCommandReplacesSavedEntry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	journal := storage.NewAdapter(f.kv, "tg:42", zap.NewNop())

	f.bot.handleCallback(ctx, callback(userID, tabPrefix+"journal"))
	f.bot.handleIncomingMessage(ctx, textMsg(userID, "A line I regret."))
	f.bot.handleCallback(ctx, callback(userID, saveJournal))
	got, ok := journal.LoadJournal(ctx)
	require.True(t, ok)
	require.Equal(t, "A line I regret.", got)

	f.bot.handleIncomingMessage(ctx, commandWithArgs(userID, "journal", "Calmer now."))
	assert.Equal(t, "Calmer now.", f.bot.state(ctx, userID).journal.Draft())
	f.bot.handleIncomingMessage(ctx, command(userID, "save"))

	got, ok = journal.LoadJournal(ctx)
	require.True(t, ok)
	assert.Equal(t, "Calmer now.", got)
}

func TestClearDraftEmptiesSavedEntry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	journal := storage.NewAdapter(f.kv, "tg:42", zap.NewNop())
	f.bot.handleCallback(ctx, callback(userID, tabPrefix+"journal"))
	f.bot.handleIncomingMessage(ctx, textMsg(userID, "Something private."))
	f.bot.handleCallback(ctx, callback(userID, saveJournal))

	f.bot.handleCallback(ctx, callback(userID, clearJournal))
	nav, ok := f.s.last().markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, nav.InlineKeyboard, 2)
	assert.Equal(t, clearJournal, *nav.InlineKeyboard[1][1].CallbackData)
	assert.Empty(t, f.bot.state(ctx, userID).journal.Draft())

	f.bot.handleCallback(ctx, callback(userID, saveJournal))
	_, ok = journal.LoadJournal(ctx)
	assert.False(t, ok)
}

func TestFirstPlainTextShowsGreeting(t *testing.T) {
	f := newFixture(t, nil)
	f.llm.replies = append(f.llm.replies, "Tell me more.")

	f.bot.handleIncomingMessage(context.Background(), textMsg(userID, "hello"))

	msgs := f.s.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].text, "How are you feeling today?")
	_, ok := msgs[0].markup.(tgbotapi.InlineKeyboardMarkup)
	assert.True(t, ok)
	assert.Equal(t, "Tell me more.", msgs[1].text)

	f.bot.handleIncomingMessage(context.Background(), textMsg(userID, "again"))
	assert.Len(t, f.s.messages(), 3)
}
