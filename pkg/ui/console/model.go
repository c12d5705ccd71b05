package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type entryRole int

const (
	roleUser entryRole = iota
	roleBot
	roleError
)

type logEntry struct {
	role    entryRole
	content string
}

type replyMsg struct {
	text string
	err  error
}

type model struct {
	ctx      context.Context
	submit   SubmitFunc
	info     RuntimeInfo
	theme    theme
	spinner  spinner.Model
	input    textinput.Model
	viewport viewport.Model

	entries   []logEntry
	width     int
	height    int
	isReady   bool
	isLoading bool
	followLog bool
	sent      int
}

func newModel(ctx context.Context, submit SubmitFunc, info RuntimeInfo) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "Buy milk tomorrow at 6pm..."
	in.Focus()
	in.CharLimit = 0

	vp := viewport.New(80, 12)

	return &model{
		ctx:       ctx,
		submit:    submit,
		info:      info,
		theme:     defaultTheme(),
		spinner:   spin,
		input:     in,
		viewport:  vp,
		width:     100,
		height:    28,
		followLog: true,
	}
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil

	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

		if handled := m.handleViewportKey(typed); handled {
			return m, nil
		}

		if typed.String() == "enter" {
			if m.isLoading {
				return m, nil
			}

			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if isExitCommand(text) {
				return m, tea.Quit
			}

			m.entries = append(m.entries, logEntry{role: roleUser, content: text})
			m.sent++
			m.input.SetValue("")
			m.isLoading = true
			m.followLog = true
			m.refreshViewport(true)
			return m, tea.Batch(m.spinner.Tick, submitCmd(m.ctx, m.submit, text))
		}

	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd

	case replyMsg:
		m.isLoading = false
		if typed.err != nil {
			m.entries = append(m.entries, logEntry{role: roleError, content: typed.err.Error()})
		} else {
			m.entries = append(m.entries, logEntry{role: roleBot, content: typed.text})
		}
		m.refreshViewport(false)
		return m, nil
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}

	header := m.theme.header.Width(m.width - 2).Render("TaskClaw Console")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"parser:%s · transcriber:%s · api:%s · messages:%d",
		displayOrNA(m.info.ParserModel),
		displayOrNA(m.info.TranscriberModel),
		displayOrNA(m.info.TaskAPI),
		m.sent,
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("─", maxInt(8, m.width-2)))

	status := m.theme.status.Render("Enter send · PgUp/PgDn scroll · Ctrl+C quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(m.spinner.View() + " creating task...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		meta,
		line,
		m.theme.viewport.Width(m.width-2).Render(m.viewport.View()),
		status,
		m.theme.hint.Render("(type /exit or :q to leave)"),
		m.theme.input.Width(m.width-2).Render(m.input.View()),
	)
}

func (m *model) resizeComponents() {
	w := m.width - 6
	if w < 50 {
		w = 50
	}
	h := m.height - 10
	if h < 8 {
		h = 8
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	var sections []string
	for _, entry := range m.entries {
		switch entry.role {
		case roleUser:
			sections = append(sections, m.renderCard(
				m.theme.youTitle.Render("you"),
				m.theme.youBox.Width(m.viewport.Width).Render(strings.TrimSpace(entry.content)),
			))
		case roleBot:
			sections = append(sections, m.renderCard(
				m.theme.botTitle.Render("taskclaw"),
				m.theme.botBox.Width(m.viewport.Width).Render(strings.TrimSpace(entry.content)),
			))
		case roleError:
			sections = append(sections, m.renderCard(
				m.theme.errorTitle.Render("error"),
				m.theme.errorBox.Width(m.viewport.Width).Render(strings.TrimSpace(entry.content)),
			))
		}
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if previousOffset > maxOffset {
		previousOffset = maxOffset
	}
	m.viewport.SetYOffset(previousOffset)
}

func (m *model) renderCard(title string, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f":
		m.viewport.PageDown()
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

func submitCmd(ctx context.Context, submit SubmitFunc, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := submit(ctx, text)
		return replyMsg{text: reply, err: err}
	}
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}

func displayOrNA(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "n/a"
	}

	return trimmed
}

func maxInt(a int, b int) int {
	if a > b {
		return a
	}

	return b
}
