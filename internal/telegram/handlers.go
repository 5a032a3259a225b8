package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"mindmate/internal/analytics"
	"mindmate/internal/auth"
	"mindmate/internal/session"
	"mindmate/internal/speech"
	"mindmate/internal/storage"
	"mindmate/internal/view"
)

const (
	stillThinkingText   = "I'm still thinking about your last message. One moment please."
	listeningText       = "I'm still listening to your voice message. Send /stop to cancel it."
	voiceUnavailable    = "Voice messages are not available right now. Please type your message instead."
	voiceEmptyText      = "I couldn't get any text from that voice message. You can try again or type it."
	journalAppendedText = "Added to your journal draft. Tap Save Entry or send /save to keep it."
	journalReplacedText = "Your journal draft was replaced. Tap Save Entry or send /save to keep it."
	journalClearedText  = "Your journal draft is empty now. Tap Save Entry or send /save to keep it that way."
	accessRequestedText = "Your access request has been sent to the administrator. I'll let you know once it is approved."
	accessWaitingText   = "Your access request is already with the administrator. Please wait for approval."
)

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.authSvc.IsAllowed(msg.From.ID) {
		b.requestAccess(msg)
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if msg.Voice != nil {
		b.handleVoice(ctx, msg)
		return
	}
	if msg.Text == "" {
		return
	}

	st := b.greet(ctx, msg.Chat.ID, msg.From.ID)
	switch st.tabs.Active() {
	case view.TabJournal:
		st.journal.Append(msg.Text)
		b.sendMessage(msg.Chat.ID, journalAppendedText)
	case view.TabChat:
		b.typeAndSend(ctx, msg, st)
	default:
		_ = st.tabs.Switch(view.TabChat)
		b.typeAndSend(ctx, msg, st)
	}
}

// greet returns the user's state. When this opened a new conversation the
// chat panel with the greeting is shown first.
func (b *Bot) greet(ctx context.Context, chatID, userID int64) *userState {
	st, greeted := b.open(ctx, userID)
	if greeted {
		_ = st.tabs.Switch(view.TabChat)
		b.renderPanel(chatID, st)
	}
	return st
}

// typeAndSend submits typed text through the composer and sends it. The
// composer refuses typing while a voice message is being transcribed.
func (b *Bot) typeAndSend(ctx context.Context, msg *tgbotapi.Message, st *userState) {
	text, ok := st.composer.Submit(msg.Text)
	if !ok {
		b.sendMessage(msg.Chat.ID, listeningText)
		return
	}
	b.sendChat(ctx, msg.Chat.ID, msg.From.ID, st, text, false)
}

// sendChat forwards text to the user's session and delivers the reply.
func (b *Bot) sendChat(ctx context.Context, chatID, userID int64, st *userState, text string, voice bool) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if st.session.Pending() {
		b.sendMessage(chatID, stillThinkingText)
		return
	}
	hadSuggestions := len(st.session.Messages()) == 1

	if _, err := b.s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("chat action", zap.Error(err))
	}
	b.logger.Info("incoming message", zap.Int64("user_id", userID), zap.Bool("voice", voice), zap.Int("length", len(text)))

	reply, ok := st.session.Send(ctx, text)
	if !ok {
		b.sendMessage(chatID, stillThinkingText)
		return
	}
	fallback := reply == session.FallbackReply
	if b.metrics != nil {
		b.metrics.RecordMessage(voice)
	}
	if b.recorder != nil {
		ev := storage.Event{
			Timestamp:         b.nowUTC(),
			UserID:            userID,
			UserMessage:       text,
			AssistantResponse: reply,
			Fallback:          fallback,
			Voice:             voice,
		}
		if err := b.recorder.Record(ev); err != nil {
			b.logger.Warn("record interaction", zap.Error(err))
		}
	}

	var markup interface{}
	if hadSuggestions {
		markup = tgbotapi.NewRemoveKeyboard(true)
	}
	b.sendText(chatID, b.fmt.esc(reply), markup)
}

func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	st := b.greet(ctx, msg.Chat.ID, msg.From.ID)
	if !st.capture.Available() {
		b.sendMessage(msg.Chat.ID, voiceUnavailable)
		return
	}
	if st.session.Pending() {
		b.sendMessage(msg.Chat.ID, stillThinkingText)
		return
	}
	_ = st.tabs.Switch(view.TabChat)

	clip := b.voiceClip(msg.Voice)
	if !st.capture.Start(ctx, clip) {
		b.sendMessage(msg.Chat.ID, listeningText)
		return
	}
	done := st.capture.Done()
	select {
	case <-done:
	case <-ctx.Done():
		st.capture.Stop()
		return
	}

	text := strings.TrimSpace(st.composer.Take())
	if b.metrics != nil {
		b.metrics.RecordTranscription(text == "")
	}
	if text == "" {
		b.sendMessage(msg.Chat.ID, voiceEmptyText)
		return
	}
	b.sendText(msg.Chat.ID, "🎙 "+b.fmt.italic(text), nil)
	b.sendChat(ctx, msg.Chat.ID, msg.From.ID, st, text, true)
}

// voiceClip downloads the voice file lazily from Telegram file storage.
func (b *Bot) voiceClip(v *tgbotapi.Voice) speech.Clip {
	return speech.Clip{
		Name: fmt.Sprintf("voice_%s.ogg", v.FileUniqueID),
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			url, err := b.s.GetFileDirectURL(v.FileID)
			if err != nil {
				return nil, fmt.Errorf("resolve voice file: %w", err)
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			resp, err := b.httpClient.Do(req)
			if err != nil {
				return nil, fmt.Errorf("download voice file: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return nil, fmt.Errorf("download voice file: status %d", resp.StatusCode)
			}
			return resp.Body, nil
		},
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	switch cmd := msg.Command(); cmd {
	case "start":
		st := b.state(ctx, userID)
		_ = st.tabs.Switch(view.TabChat)
		b.renderPanel(chatID, st)
		b.offerSuggestions(chatID, st)
	case "chat", "journal", "resources", "about":
		st := b.state(ctx, userID)
		tab, _ := view.ParseTab(cmd)
		_ = st.tabs.Switch(tab)
		if tab == view.TabJournal {
			if text := strings.TrimSpace(msg.CommandArguments()); text != "" {
				st.journal.Edit(text)
				b.sendMessage(chatID, journalReplacedText)
			}
		}
		b.renderPanel(chatID, st)
		if tab == view.TabChat {
			b.offerSuggestions(chatID, st)
		}
	case "new":
		b.newConversation(ctx, chatID, userID)
	case "save":
		b.saveJournal(ctx, chatID, userID)
	case "stop":
		st := b.state(ctx, userID)
		if st.capture.State() != speech.Recording {
			b.sendMessage(chatID, "Nothing to stop.")
			return
		}
		st.capture.Stop()
		b.sendMessage(chatID, "Stopped listening.")
	case "pending", "approve", "deny", "report":
		if !b.authSvc.IsAdmin(userID) {
			return
		}
		b.handleAdminCommand(chatID, cmd, msg.CommandArguments())
	default:
		b.sendMessage(chatID, "Unknown command. Try /chat, /journal, /resources or /about.")
	}
}

func (b *Bot) handleAdminCommand(chatID int64, cmd, args string) {
	switch cmd {
	case "pending":
		users := b.pending.List()
		if len(users) == 0 {
			b.sendMessage(chatID, "No pending requests.")
			return
		}
		var bld strings.Builder
		bld.WriteString("Pending requests:\n")
		for _, u := range users {
			fmt.Fprintf(&bld, "- %d %s\n", u.ID, u.DisplayName())
		}
		b.sendMessage(chatID, bld.String())
	case "approve", "deny":
		fields := strings.Fields(args)
		if len(fields) != 1 {
			b.sendMessage(chatID, fmt.Sprintf("Usage: /%s <user_id>", cmd))
			return
		}
		uid, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			b.sendMessage(chatID, "Invalid user_id")
			return
		}
		if cmd == "approve" {
			b.approveUser(uid)
		} else {
			b.denyUser(uid)
		}
	case "report":
		if err := b.SendDailyReport(context.Background()); err != nil {
			b.sendMessage(chatID, fmt.Sprintf("Report failed: %v", err))
		}
	}
}

func (b *Bot) renderPanel(chatID int64, st *userState) {
	tab := st.tabs.Active()
	var text string
	switch tab {
	case view.TabChat:
		text = b.fmt.renderChat(st.session.Messages())
	case view.TabJournal:
		text = b.fmt.renderJournal(b.content, st.journal.Draft(), st.journal.Saved())
	case view.TabResources:
		text = b.fmt.renderResources(b.content)
	case view.TabAbout:
		text = b.fmt.renderAbout(b.content)
	}
	b.sendText(chatID, text, navbar(tab))
}

// offerSuggestions shows the prompt suggestions while the conversation holds
// only the greeting.
func (b *Bot) offerSuggestions(chatID int64, st *userState) {
	if st.session.Pending() || len(st.session.Messages()) != 1 {
		return
	}
	b.sendText(chatID, b.fmt.esc(b.content.Suggestions.Intro), suggestionsKeyboard(b.content.Suggestions.Prompts))
}

func (b *Bot) newConversation(ctx context.Context, chatID, userID int64) {
	st := b.state(ctx, userID)
	if !st.session.Clear(ctx) {
		b.sendMessage(chatID, stillThinkingText)
		return
	}
	_ = st.tabs.Switch(view.TabChat)
	b.renderPanel(chatID, st)
	b.offerSuggestions(chatID, st)
}

func (b *Bot) saveJournal(ctx context.Context, chatID, userID int64) {
	st := b.state(ctx, userID)
	if err := st.journal.Save(ctx); err != nil {
		b.logger.Error("save journal", zap.Int64("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, "Sorry, your journal entry could not be saved. Please try again.")
		return
	}
	if b.metrics != nil {
		b.metrics.RecordJournalSave()
	}
	_ = st.tabs.Switch(view.TabJournal)
	b.renderPanel(chatID, st)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Debug("answer callback", zap.Error(err))
	}
	if cb.From == nil || cb.Message == nil {
		return
	}
	chatID, userID := cb.Message.Chat.ID, cb.From.ID

	switch {
	case strings.HasPrefix(cb.Data, approvePrefix), strings.HasPrefix(cb.Data, denyPrefix):
		if !b.authSvc.IsAdmin(userID) {
			return
		}
		if id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimPrefix(cb.Data, approvePrefix), denyPrefix), 10, 64); err == nil {
			if strings.HasPrefix(cb.Data, approvePrefix) {
				b.approveUser(id)
			} else {
				b.denyUser(id)
			}
		}
		return
	}

	if !b.authSvc.IsAllowed(userID) {
		return
	}
	switch {
	case strings.HasPrefix(cb.Data, tabPrefix):
		tab, err := view.ParseTab(strings.TrimPrefix(cb.Data, tabPrefix))
		if err != nil {
			b.logger.Warn("bad tab callback", zap.String("data", cb.Data))
			return
		}
		st := b.state(ctx, userID)
		_ = st.tabs.Switch(tab)
		b.renderPanel(chatID, st)
		if tab == view.TabChat {
			b.offerSuggestions(chatID, st)
		}
	case cb.Data == saveJournal:
		b.saveJournal(ctx, chatID, userID)
	case cb.Data == clearJournal:
		st := b.state(ctx, userID)
		st.journal.Edit("")
		_ = st.tabs.Switch(view.TabJournal)
		b.sendMessage(chatID, journalClearedText)
		b.renderPanel(chatID, st)
	case cb.Data == newChat:
		b.newConversation(ctx, chatID, userID)
	}
}

func (b *Bot) requestAccess(msg *tgbotapi.Message) {
	b.logger.Info("unauthorized access attempt", zap.Int64("user_id", msg.From.ID), zap.String("username", msg.From.UserName))
	u := auth.User{ID: msg.From.ID, Username: msg.From.UserName, FirstName: msg.From.FirstName, LastName: msg.From.LastName}
	added, err := b.pending.Add(u)
	if err != nil {
		b.logger.Warn("persist pending request", zap.Error(err))
	}
	if !added {
		b.sendMessage(msg.Chat.ID, accessWaitingText)
		return
	}
	b.sendMessage(msg.Chat.ID, accessRequestedText)
	b.notifyAdminRequest(u)
}

func (b *Bot) notifyAdminRequest(u auth.User) {
	if b.adminUserID == 0 {
		return
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", approvePrefix+strconv.FormatInt(u.ID, 10)),
			tgbotapi.NewInlineKeyboardButtonData("Deny", denyPrefix+strconv.FormatInt(u.ID, 10)),
		),
	)
	text := fmt.Sprintf("User %s (id %d) wants to use MindMate", u.DisplayName(), u.ID)
	b.sendText(b.adminUserID, b.fmt.esc(text), kb)
}

func (b *Bot) approveUser(userID int64) {
	u, ok, err := b.pending.Take(userID)
	if err != nil {
		b.logger.Warn("remove pending request", zap.Error(err))
	}
	if !ok {
		u = auth.User{ID: userID}
	}
	if err := b.authSvc.Upsert(u); err != nil {
		b.sendMessage(b.adminUserID, fmt.Sprintf("Could not approve %d: %v", userID, err))
		return
	}
	b.logger.Info("user approved", zap.Int64("user_id", userID))
	b.sendMessage(userID, "Access granted. Send /start to meet MindMate.")
	if b.adminUserID != 0 {
		b.sendMessage(b.adminUserID, fmt.Sprintf("User %d approved", userID))
	}
}

func (b *Bot) denyUser(userID int64) {
	if _, _, err := b.pending.Take(userID); err != nil {
		b.logger.Warn("remove pending request", zap.Error(err))
	}
	b.logger.Info("user denied", zap.Int64("user_id", userID))
	b.sendMessage(userID, "Sorry, your access request was declined.")
	if b.adminUserID != 0 {
		b.sendMessage(b.adminUserID, fmt.Sprintf("User %d denied", userID))
	}
}

// SendDailyReport sends today's activity summary to the admin. It does
// nothing without an admin or an interaction recorder.
func (b *Bot) SendDailyReport(_ context.Context) error {
	if b.adminUserID == 0 || b.recorder == nil {
		return nil
	}
	stats, err := analytics.Report(b.recorder, b.nowUTC())
	if err != nil {
		return err
	}
	b.logger.Info("daily report", zap.Int("messages", stats.TotalMessages), zap.Int("users", stats.UniqueUsers))
	b.sendMessage(b.adminUserID, stats.GenerateReportSummary())
	return nil
}
