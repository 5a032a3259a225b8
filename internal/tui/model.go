// Package tui is the terminal front-end: the four MindMate tabs for a single
// local user.
package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"mindmate/internal/chat"
	"mindmate/internal/content"
	"mindmate/internal/session"
	"mindmate/internal/speech"
	"mindmate/internal/view"
)

const savedFlash = 2 * time.Second

type (
	openedMsg    struct{}
	replyMsg     struct{ ok bool }
	clearedMsg   struct{ ok bool }
	savedMsg     struct{ err error }
	flashDoneMsg struct{ id int }
)

// Deps are the collaborators of the terminal UI.
type Deps struct {
	Session *session.Session
	Journal *view.Journal
	Content *content.Content
	// Recognizer is nil in the terminal; voice input reports unavailable.
	Recognizer speech.Recognizer
	Logger     *zap.Logger
}

type Model struct {
	ctx      context.Context
	sess     *session.Session
	journal  *view.Journal
	content  *content.Content
	tabs     *view.Controller
	composer *view.Composer
	capture  *speech.Capture
	logger   *zap.Logger

	input    textinput.Model
	area     textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	theme    theme

	width, height int
	ready         bool
	busy          bool
	status        string
	flash         bool
	flashID       int

	// outgoing is shown until the session has recorded it; sentAt is the
	// message count when it was sent.
	outgoing string
	sentAt   int
}

func New(ctx context.Context, deps Deps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Content
	if c == nil {
		c = content.Default()
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Type your message…"
	input.Focus()

	area := textarea.New()
	area.Placeholder = c.Journal.Placeholder
	area.ShowLineNumbers = false
	area.CharLimit = 0
	area.SetValue(deps.Journal.Draft())

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	composer := view.NewComposer()
	return Model{
		ctx:      ctx,
		sess:     deps.Session,
		journal:  deps.Journal,
		content:  c,
		tabs:     view.NewController(),
		composer: composer,
		capture:  speech.NewCapture(deps.Recognizer, composer, logger),
		logger:   logger,
		input:    input,
		area:     area,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		theme:    newTheme(),
		busy:     true,
		status:   "MindMate is getting ready…",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.openCmd())
}

func (m Model) openCmd() tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		sess.Open(ctx)
		return openedMsg{}
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		_, ok := sess.Send(ctx, text)
		return replyMsg{ok: ok}
	}
}

func (m Model) clearCmd() tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		return clearedMsg{ok: sess.Clear(ctx)}
	}
}

func (m Model) saveCmd() tea.Cmd {
	journal, ctx := m.journal, m.ctx
	return func() tea.Msg {
		return savedMsg{err: journal.Save(ctx)}
	}
}

func flashTimer(id int) tea.Cmd {
	return tea.Tick(savedFlash, func(time.Time) tea.Msg { return flashDoneMsg{id: id} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case openedMsg:
		m.ready = true
		m.busy = false
		m.status = ""
		m.renderPanes()
	case replyMsg:
		m.busy = false
		m.outgoing = ""
		if !msg.ok {
			m.status = "MindMate is still thinking about your last message."
		}
		m.renderPanes()
	case clearedMsg:
		m.busy = false
		if msg.ok {
			m.status = "Started a new conversation."
		}
		m.renderPanes()
	case savedMsg:
		if msg.err != nil {
			m.logger.Error("save journal", zap.Error(msg.err))
			m.status = "Your journal entry could not be saved."
			break
		}
		m.flash = true
		m.flashID++
		cmds = append(cmds, flashTimer(m.flashID))
	case flashDoneMsg:
		if msg.id == m.flashID {
			m.flash = false
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderPanes()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.busy {
			m.renderPanes()
		}
	case tea.KeyMsg:
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "ctrl+q":
		return nil, true
	case "tab":
		m.switchTo(m.tabs.Next())
		return nil, false
	case "shift+tab":
		m.switchTo(m.tabs.Prev())
		return nil, false
	case "f1", "f2", "f3", "f4":
		n, _ := strconv.Atoi(strings.TrimPrefix(msg.String(), "f"))
		m.switchTo(view.Tabs[n-1])
		return nil, false
	}

	switch m.tabs.Active() {
	case view.TabChat:
		return m.handleChatKey(msg), false
	case view.TabJournal:
		return m.handleJournalKey(msg), false
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd, false
	}
}

func (m *Model) switchTo(t view.Tab) {
	_ = m.tabs.Switch(t)
	m.input.Blur()
	m.area.Blur()
	switch t {
	case view.TabChat:
		m.input.Focus()
	case view.TabJournal:
		m.area.Focus()
	}
	m.status = ""
	m.renderPanes()
}

func (m *Model) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		if !m.ready || m.busy {
			m.status = "MindMate is still thinking about your last message."
			return nil
		}
		text, ok := m.composer.Submit(m.input.Value())
		if !ok {
			m.status = "Listening… typing is paused."
			return nil
		}
		if strings.TrimSpace(text) == "" {
			return nil
		}
		if prompt, ok := m.suggestion(text); ok {
			text = prompt
		}
		m.input.SetValue("")
		m.outgoing = text
		m.sentAt = len(m.sess.Messages())
		m.busy = true
		m.status = ""
		m.renderPanes()
		return m.sendCmd(text)
	case "ctrl+n":
		if !m.ready || m.busy {
			return nil
		}
		m.busy = true
		m.renderPanes()
		return m.clearCmd()
	case "ctrl+r":
		if !m.capture.Available() {
			m.status = "Voice input isn't available in the terminal."
		}
		return nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// suggestion maps "1".."4" to a prompt suggestion while only the greeting is
// shown.
func (m *Model) suggestion(text string) (string, bool) {
	if !m.showSuggestions() {
		return "", false
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	prompts := m.content.Suggestions.Prompts
	if err != nil || n < 1 || n > len(prompts) {
		return "", false
	}
	return prompts[n-1], true
}

func (m *Model) showSuggestions() bool {
	return m.ready && !m.busy && len(m.sess.Messages()) == 1
}

func (m *Model) handleJournalKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+s" {
		m.journal.Edit(m.area.Value())
		return m.saveCmd()
	}
	var cmd tea.Cmd
	m.area, cmd = m.area.Update(msg)
	if m.area.Value() != m.journal.Draft() {
		m.journal.Edit(m.area.Value())
		m.flash = false
	}
	return cmd
}

func (m *Model) resize() {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	h := m.height - 9
	if h < 5 {
		h = 5
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 4
	m.area.SetWidth(w)
	m.area.SetHeight(h - 3)
}

// renderPanes refreshes the viewport content of the active tab.
func (m *Model) renderPanes() {
	switch m.tabs.Active() {
	case view.TabChat:
		m.viewport.SetContent(m.renderChat())
		m.viewport.GotoBottom()
	case view.TabResources:
		m.viewport.SetContent(m.renderResources())
		m.viewport.GotoTop()
	case view.TabAbout:
		m.viewport.SetContent(m.renderAbout())
		m.viewport.GotoTop()
	}
}

func (m *Model) wrap(s string) string {
	return lipgloss.NewStyle().Width(m.viewport.Width).Render(s)
}

func (m *Model) renderChat() string {
	var b strings.Builder
	msgs := m.sess.Messages()
	if m.busy && m.outgoing != "" && len(msgs) <= m.sentAt {
		msgs = append(msgs, chat.User(m.outgoing))
	}
	for _, msg := range msgs {
		if msg.Author == chat.AuthorUser {
			b.WriteString(m.theme.user.Render("You"))
		} else {
			b.WriteString(m.theme.ai.Render("MindMate"))
		}
		b.WriteString("\n")
		b.WriteString(m.wrap(msg.Text))
		b.WriteString("\n\n")
	}
	if m.showSuggestions() {
		b.WriteString(m.theme.muted.Render(m.content.Suggestions.Intro))
		b.WriteString("\n")
		for i, p := range m.content.Suggestions.Prompts {
			b.WriteString(m.theme.muted.Render(strconv.Itoa(i+1) + ". " + p))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) renderResources() string {
	var b strings.Builder
	b.WriteString(m.theme.title.Render(m.content.Resources.Title))
	for _, sec := range m.content.Resources.Sections {
		b.WriteString("\n\n")
		b.WriteString(m.theme.title.Render(sec.Title))
		for _, it := range sec.Items {
			b.WriteString("\n\n")
			if sec.Urgent {
				b.WriteString(m.theme.urgent.Render(it.Title))
			} else {
				b.WriteString(m.theme.title.Render(it.Title))
			}
			b.WriteString("\n")
			b.WriteString(m.wrap(it.Description))
			if it.Link != "" {
				b.WriteString("\n")
				b.WriteString(m.theme.link.Render(it.LinkLabel() + " → " + it.Link))
			}
		}
	}
	return b.String()
}

func (m *Model) renderAbout() string {
	var b strings.Builder
	b.WriteString(m.theme.title.Render(m.content.About.Title))
	for _, p := range m.content.About.Mission {
		b.WriteString("\n\n")
		b.WriteString(m.wrap(p))
	}
	b.WriteString("\n\n")
	b.WriteString(m.theme.title.Render(m.content.About.DisclaimerTitle))
	for _, p := range m.content.About.Disclaimer {
		b.WriteString("\n\n")
		b.WriteString(m.wrap(p))
	}
	return b.String()
}

func (m Model) View() string {
	tabs := make([]string, 0, len(view.Tabs))
	for _, t := range view.Tabs {
		if t == m.tabs.Active() {
			tabs = append(tabs, m.theme.tabActive.Render(t.Title()))
		} else {
			tabs = append(tabs, m.theme.tabInactive.Render(t.Title()))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	var body string
	switch m.tabs.Active() {
	case view.TabChat:
		body = m.viewport.View() + "\n"
		if m.busy {
			body += m.spinner.View() + " MindMate is typing…\n"
		} else {
			body += m.input.View() + "\n"
		}
	case view.TabJournal:
		body = m.theme.muted.Render(m.content.Journal.Intro) + "\n\n" + m.area.View() + "\n"
		if m.flash && m.journal.Saved() {
			body += m.theme.saved.Render(m.content.Journal.Saved) + "  "
		}
		body += m.theme.muted.Render("ctrl+s save entry")
	default:
		body = m.viewport.View()
	}

	help := "tab/shift+tab switch · enter send · ctrl+n new conversation · ctrl+c quit"
	if m.status != "" {
		help = m.status
	}
	return header + "\n" + m.theme.panel.Render(body) + "\n" +
		m.theme.muted.Render(help) + "\n" + m.theme.footer.Render(m.content.Footer)
}
