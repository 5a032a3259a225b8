package telegram

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mindmate/internal/chat"
	"mindmate/internal/content"
	"mindmate/internal/view"
)

const chatPanelMessages = 6

// formatter renders text for the configured parse mode.
type formatter struct{ mode string }

func (f formatter) esc(s string) string {
	switch f.mode {
	case tgbotapi.ModeHTML:
		return html.EscapeString(s)
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return tgbotapi.EscapeText(f.mode, s)
	}
	return s
}

func (f formatter) bold(s string) string {
	switch f.mode {
	case tgbotapi.ModeHTML:
		return "<b>" + f.esc(s) + "</b>"
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return "*" + f.esc(s) + "*"
	}
	return s
}

func (f formatter) italic(s string) string {
	switch f.mode {
	case tgbotapi.ModeHTML:
		return "<i>" + f.esc(s) + "</i>"
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return "_" + f.esc(s) + "_"
	}
	return s
}

func (f formatter) link(text, url string) string {
	switch f.mode {
	case tgbotapi.ModeHTML:
		return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), f.esc(text))
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return "[" + f.esc(text) + "](" + url + ")"
	}
	return text + ": " + url
}

// renderChat shows the tail of the conversation.
func (f formatter) renderChat(msgs []chat.Message) string {
	if len(msgs) == 0 {
		return f.italic("Say hello to start a conversation.")
	}
	if len(msgs) > chatPanelMessages {
		msgs = msgs[len(msgs)-chatPanelMessages:]
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		who := "MindMate"
		if m.Author == chat.AuthorUser {
			who = "You"
		}
		parts = append(parts, f.bold(who)+"\n"+f.esc(m.Text))
	}
	return strings.Join(parts, "\n\n")
}

func (f formatter) renderJournal(c *content.Content, draft string, saved bool) string {
	var b strings.Builder
	b.WriteString(f.bold(view.TabJournal.Title()))
	b.WriteString("\n\n")
	b.WriteString(f.esc(c.Journal.Intro))
	b.WriteString("\n\n")
	if draft == "" {
		b.WriteString(f.italic(c.Journal.Placeholder))
	} else {
		b.WriteString(f.esc(draft))
	}
	b.WriteString("\n\n")
	b.WriteString(f.italic("Send text to add it to your entry, or /journal <text> to replace it. Then tap Save Entry or send /save."))
	if saved {
		b.WriteString("\n")
		b.WriteString(f.bold(c.Journal.Saved))
	}
	return b.String()
}

func (f formatter) renderResources(c *content.Content) string {
	var b strings.Builder
	b.WriteString(f.bold(c.Resources.Title))
	for _, sec := range c.Resources.Sections {
		b.WriteString("\n\n")
		b.WriteString(f.bold(sec.Title))
		for _, it := range sec.Items {
			b.WriteString("\n\n")
			title := it.Title
			if sec.Urgent {
				title = "⚠️ " + title
			}
			b.WriteString(f.bold(title))
			b.WriteString("\n")
			b.WriteString(f.esc(it.Description))
			if it.Link != "" {
				b.WriteString("\n")
				b.WriteString(f.link(it.LinkLabel(), it.Link))
			}
		}
	}
	return b.String()
}

func (f formatter) renderAbout(c *content.Content) string {
	var b strings.Builder
	b.WriteString(f.bold(c.About.Title))
	for _, p := range c.About.Mission {
		b.WriteString("\n\n")
		b.WriteString(f.esc(p))
	}
	b.WriteString("\n\n")
	b.WriteString(f.bold(c.About.DisclaimerTitle))
	for _, p := range c.About.Disclaimer {
		b.WriteString("\n\n")
		b.WriteString(f.esc(p))
	}
	b.WriteString("\n\n")
	b.WriteString(f.italic(c.Footer))
	return b.String()
}

const (
	tabPrefix     = "tab:"
	approvePrefix = "approve:"
	denyPrefix    = "deny:"
	saveJournal   = "journal:save"
	clearJournal  = "journal:clear"
	newChat       = "chat:new"
)

// navbar is the inline tab bar; the active tab is marked.
func navbar(active view.Tab) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(view.Tabs))
	for _, t := range view.Tabs {
		label := t.Title()
		if t == active {
			label = "• " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, tabPrefix+string(t)))
	}
	rows := [][]tgbotapi.InlineKeyboardButton{row}
	switch active {
	case view.TabJournal:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Save Entry", saveJournal),
			tgbotapi.NewInlineKeyboardButtonData("Clear Draft", clearJournal),
		))
	case view.TabChat:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("New conversation", newChat)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func suggestionsKeyboard(prompts []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(prompts))
	for _, p := range prompts {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(p)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}
