// Package telegram serves MindMate to Telegram users. Every user gets an
// independent conversation, journal and tab state.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"mindmate/internal/auth"
	"mindmate/internal/content"
	"mindmate/internal/llm"
	"mindmate/internal/metrics"
	"mindmate/internal/pending"
	"mindmate/internal/session"
	"mindmate/internal/speech"
	"mindmate/internal/storage"
	"mindmate/internal/view"
)

// Deps are the collaborators of a Bot. Recorder, Recognizer and Metrics are
// optional.
type Deps struct {
	Auth         *auth.Service
	Pending      *pending.Queue
	LLM          llm.Client
	SystemPrompt string
	KV           storage.KV
	Recorder     storage.Recorder
	Recognizer   speech.Recognizer
	Content      *content.Content
	Metrics      *metrics.Collector
	Logger       *zap.Logger
	AdminUserID  int64
	ParseMode    string
}

type Bot struct {
	api        *tgbotapi.BotAPI
	s          sender
	httpClient *http.Client
	logger     *zap.Logger

	authSvc      *auth.Service
	pending      *pending.Queue
	llmClient    llm.Client
	systemPrompt string
	kv           storage.KV
	recorder     storage.Recorder
	recognizer   speech.Recognizer
	content      *content.Content
	metrics      *metrics.Collector
	adminUserID  int64
	fmt          formatter

	mu    sync.Mutex
	users map[int64]*userState
}

// userState is everything MindMate keeps for one Telegram user.
type userState struct {
	session  *session.Session
	tabs     *view.Controller
	journal  *view.Journal
	composer *view.Composer
	capture  *speech.Capture
}

func New(botToken string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	b := newBot(botAPISender{api: api}, deps)
	b.api = api
	b.logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))
	return b, nil
}

func newBot(s sender, deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Content
	if c == nil {
		c = content.Default()
	}
	pq := deps.Pending
	if pq == nil {
		pq, _ = pending.NewQueue(nil)
	}
	return &Bot{
		s:            s,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		logger:       logger,
		authSvc:      deps.Auth,
		pending:      pq,
		llmClient:    deps.LLM,
		systemPrompt: deps.SystemPrompt,
		kv:           deps.KV,
		recorder:     deps.Recorder,
		recognizer:   deps.Recognizer,
		content:      c,
		metrics:      deps.Metrics,
		adminUserID:  deps.AdminUserID,
		fmt:          formatter{mode: deps.ParseMode},
		users:        make(map[int64]*userState),
	}
}

// Start long-polls updates until ctx is done. Each update is handled on its
// own goroutine; Start returns after the running handlers finish.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("update handler panicked", zap.Int("update_id", update.UpdateID), zap.Any("panic", r))
		}
	}()
	switch {
	case update.Message != nil:
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

// state returns the user's state, creating it and opening the conversation
// on first use.
func (b *Bot) state(ctx context.Context, userID int64) *userState {
	st, _ := b.open(ctx, userID)
	return st
}

// open is state that also reports whether the conversation was greeted by
// this call.
func (b *Bot) open(ctx context.Context, userID int64) (*userState, bool) {
	b.mu.Lock()
	st, ok := b.users[userID]
	if !ok {
		store := storage.NewAdapter(b.kv, fmt.Sprintf("tg:%d", userID), b.logger)
		log := b.logger.With(zap.Int64("user_id", userID))
		composer := view.NewComposer()
		st = &userState{
			session:  session.New(b.llmClient, b.systemPrompt, store, log),
			tabs:     view.NewController(),
			journal:  view.NewJournal(ctx, store),
			composer: composer,
			capture:  speech.NewCapture(b.recognizer, composer, log),
		}
		if b.metrics != nil {
			st.session.SetObserver(b.metrics)
		}
		b.users[userID] = st
	}
	b.mu.Unlock()
	return st, st.session.Open(ctx)
}

func (b *Bot) sendText(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = b.fmt.mode
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.s.Send(msg); err != nil {
		b.logger.Error("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendMessage sends plain text, escaped for the parse mode.
func (b *Bot) sendMessage(chatID int64, text string) {
	b.sendText(chatID, b.fmt.esc(text), nil)
}

func (b *Bot) nowUTC() time.Time { return time.Now().UTC() }
