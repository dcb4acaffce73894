package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/scribe/internal/editor"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/shared"
	"github.com/desertthunder/scribe/internal/stream"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	EditorView
	HistoryView
)

// Session is the session manager as seen by the TUI.
type Session interface {
	State() models.Session
	Login(ctx context.Context, username, password string) error
	Logout() error
}

// Streamer is the streaming client with its update channel.
type Streamer interface {
	editor.Runner
	Updates() <-chan stream.Update
}

// History lists recorded runs.
type History interface {
	List(criteria map[string]any) ([]*models.RunRecord, error)
}

// Preferences persists UI settings.
type Preferences interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Options holds the TUI's dependencies. History and Preferences may be nil.
type Options struct {
	Session     Session
	Stream      Streamer
	Controller  *editor.Controller
	History     History
	Preferences Preferences
	Logger      *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	opts   Options
	logger *log.Logger
	view   ViewState
	width  int
	height int

	username textinput.Model
	password textinput.Model
	editor   textarea.Model
	output   viewport.Model
	history  list.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	theme     Theme
	styles    *Palette
	run       models.Run
	restored  *models.RunRecord
	loggingIn bool
	notice    string
	err       error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	username := textinput.New()
	username.Placeholder = "username"
	username.Prompt = "Username: "

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	ta := textarea.New()
	ta.Placeholder = "Type or paste text to transform..."
	ta.ShowLineNumbers = false

	hl := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	hl.Title = "History"

	theme := Dark
	if opts.Preferences != nil {
		if v, err := opts.Preferences.Get(ThemeKey); err != nil {
			logger.Warn("failed to load theme preference", "error", err)
		} else {
			theme = ParseTheme(v)
		}
	}

	m := &Model{
		ctx:      ctx,
		opts:     opts,
		logger:   logger,
		username: username,
		password: password,
		editor:   ta,
		output:   viewport.New(80, 10),
		history:  hl,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
		theme:    theme,
		styles:   PaletteFor(theme),
		run:      opts.Stream.Snapshot(),
	}

	if opts.Session.State().Authenticated {
		m.view = EditorView
		m.editor.Focus()
	} else {
		m.view = LoginView
		m.username.Focus()
	}
	return m
}

func (m *Model) State() ViewState { return m.view }
func (m *Model) Theme() Theme     { return m.theme }

// Err returns the last login or history error shown to the user.
func (m *Model) Err() error { return m.err }

// Init starts cursor blinking and listens for run updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForUpdate())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.opts.Stream.Reset()
			return m, tea.Quit
		}
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case EditorView:
			return m.handleEditorKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}

	case loginResultMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.err = msg.err
			m.password.SetValue("")
			return m, nil
		}
		m.err = nil
		m.password.SetValue("")
		m.username.Blur()
		m.password.Blur()
		m.view = EditorView
		return m, m.editor.Focus()

	case runUpdateMsg:
		m.run = m.opts.Stream.Snapshot()
		m.refreshOutput()
		return m, m.waitForUpdate()

	case historyLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = EditorView
			return m, nil
		}
		items := make([]list.Item, len(msg.records))
		for i, r := range msg.records {
			items[i] = runItem{record: r}
		}
		return m, m.history.SetItems(items)

	case themeSavedMsg:
		m.logger.Warn("failed to save theme preference", "error", msg.err)
		m.notice = "Theme could not be saved"
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoginView:
		return m.renderLogin()
	case EditorView:
		return m.renderEditor()
	case HistoryView:
		return m.renderHistory()
	default:
		return ""
	}
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loggingIn {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.next):
		if m.username.Focused() {
			m.username.Blur()
			return m, m.password.Focus()
		}
		m.password.Blur()
		return m, m.username.Focus()

	case key.Matches(msg, m.keys.submit):
		if m.username.Focused() && m.password.Value() == "" {
			m.username.Blur()
			return m, m.password.Focus()
		}
		m.loggingIn = true
		m.err = nil
		return m, tea.Batch(m.login(m.username.Value(), m.password.Value()), m.spinner.Tick)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.opts.Controller

	switch {
	case key.Matches(msg, m.keys.paraphrase):
		return m.invoke(models.Paraphrase)
	case key.Matches(msg, m.keys.expand):
		return m.invoke(models.Expand)
	case key.Matches(msg, m.keys.summarize):
		return m.invoke(models.Summarize)
	case key.Matches(msg, m.keys.translate):
		return m.invoke(models.Translate)

	case key.Matches(msg, m.keys.target) && ctrl.Choosing():
		ctrl.CycleTarget()
		return m, nil

	case key.Matches(msg, m.keys.cancel):
		if ctrl.Choosing() || m.run.Processing() {
			ctrl.Cancel()
			m.run = m.opts.Stream.Snapshot()
			m.refreshOutput()
		}
		return m, nil

	case key.Matches(msg, m.keys.theme):
		return m, m.toggleTheme()

	case key.Matches(msg, m.keys.history):
		m.view = HistoryView
		m.editor.Blur()
		return m, m.loadHistory()

	case key.Matches(msg, m.keys.logout):
		ctrl.Cancel()
		if err := m.opts.Session.Logout(); err != nil {
			m.err = err
		}
		m.run = m.opts.Stream.Snapshot()
		m.restored = nil
		m.refreshOutput()
		m.editor.Blur()
		m.view = LoginView
		return m, m.username.Focus()
	}

	return m.updateFocused(msg)
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.history.FilterState() == list.Filtering {
		return m.updateFocused(msg)
	}

	switch {
	case key.Matches(msg, m.keys.cancel):
		m.view = EditorView
		return m, m.editor.Focus()

	case key.Matches(msg, m.keys.submit):
		if item, ok := m.history.SelectedItem().(runItem); ok {
			m.restored = item.record
			m.editor.SetValue(item.record.Input())
			m.refreshOutput()
		}
		m.view = EditorView
		return m, m.editor.Focus()
	}

	return m.updateFocused(msg)
}

// invoke hands the editor's text to the controller. Disabled operations are ignored.
func (m *Model) invoke(kind models.Kind) (tea.Model, tea.Cmd) {
	doc := editor.NewDocument(m.editor.Value())
	if !m.opts.Controller.Enabled(doc) {
		return m, nil
	}

	m.err = nil
	m.notice = ""
	id := m.opts.Controller.Invoke(m.ctx, kind, doc)
	m.run = m.opts.Stream.Snapshot()
	if id == "" {
		return m, nil
	}
	m.restored = nil
	m.refreshOutput()
	return m, m.spinner.Tick
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case LoginView:
		var ucmd, pcmd tea.Cmd
		m.username, ucmd = m.username.Update(msg)
		m.password, pcmd = m.password.Update(msg)
		cmd = tea.Batch(ucmd, pcmd)
	case EditorView:
		var ecmd, vcmd tea.Cmd
		m.editor, ecmd = m.editor.Update(msg)
		m.output, vcmd = m.output.Update(msg)
		cmd = tea.Batch(ecmd, vcmd)
	case HistoryView:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}

func (m *Model) login(username, password string) tea.Cmd {
	return func() tea.Msg {
		return loginResultMsg{err: m.opts.Session.Login(m.ctx, username, password)}
	}
}

// waitForUpdate blocks on the client's update channel and delivers one snapshot.
func (m *Model) waitForUpdate() tea.Cmd {
	updates := m.opts.Stream.Updates()
	return func() tea.Msg {
		select {
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			return runUpdateMsg{run: u.Run}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) loadHistory() tea.Cmd {
	h := m.opts.History
	return func() tea.Msg {
		if h == nil {
			return historyLoadedMsg{}
		}
		records, err := h.List(map[string]any{"limit": 50})
		return historyLoadedMsg{records: records, err: err}
	}
}

func (m *Model) toggleTheme() tea.Cmd {
	m.theme = m.theme.Toggle()
	m.styles = PaletteFor(m.theme)
	m.refreshOutput()

	prefs, theme := m.opts.Preferences, m.theme
	if prefs == nil {
		return nil
	}
	return func() tea.Msg {
		if err := prefs.Set(ThemeKey, string(theme)); err != nil {
			return themeSavedMsg{err: err}
		}
		return nil
	}
}

func (m *Model) busy() bool {
	return m.loggingIn || m.run.Processing()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	pane := max((height-14)/2, 3)
	m.editor.SetWidth(max(width-4, 20))
	m.editor.SetHeight(pane)
	m.output.Width = max(width-6, 20)
	m.output.Height = pane
	m.history.SetSize(max(width-4, 20), max(height-4, 5))
	m.refreshOutput()
}

func (m *Model) refreshOutput() {
	text := m.run.Output
	if m.restored != nil {
		text = m.restored.Output()
	}
	m.output.SetContent(lipgloss.NewStyle().Width(m.output.Width).Render(text))
	m.output.GotoBottom()
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("Sign in"))
	b.WriteString("\n")
	b.WriteString(m.username.View() + "\n")
	b.WriteString(m.password.View() + "\n\n")

	switch {
	case m.loggingIn:
		b.WriteString(m.spinner.View() + " Signing in...\n")
	case m.err != nil:
		b.WriteString(m.styles.err.Render(shared.Message(m.err)) + "\n")
	}

	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{m.keys.next, m.keys.submit, m.keys.quit}))
	return b.String()
}

func (m *Model) renderEditor() string {
	var b strings.Builder

	header := "scribe"
	if name := m.opts.Session.State().Username(); name != "" {
		header = fmt.Sprintf("scribe • %s", name)
	}
	b.WriteString(m.styles.title.Render(header) + "\n")
	b.WriteString(m.editor.View() + "\n")
	b.WriteString(m.renderButtons() + "\n")

	if m.opts.Controller.Choosing() {
		b.WriteString(m.renderTargets() + "\n")
	}

	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(m.styles.border.Render(m.output.View()) + "\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderButtons() string {
	enabled := m.opts.Controller.Enabled(editor.NewDocument(m.editor.Value()))
	keys := []string{"F1", "F2", "F3", "F4"}

	buttons := make([]string, len(models.Kinds))
	for i, kind := range models.Kinds {
		label := fmt.Sprintf("%s %s", keys[i], kind.Label())
		if enabled {
			buttons[i] = m.styles.button.Render(label)
		} else {
			buttons[i] = m.styles.inactive.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}

func (m *Model) renderTargets() string {
	target := m.opts.Controller.Target()
	parts := make([]string, len(models.Languages))
	for i, l := range models.Languages {
		if l == target {
			parts[i] = m.styles.ok.Render("[" + l.Label() + "]")
		} else {
			parts[i] = m.styles.disabled.Render(l.Label())
		}
	}
	return fmt.Sprintf("Translate to: %s  %s", strings.Join(parts, " "), m.styles.help.Render("tab to switch, F4 to submit, esc to cancel"))
}

func (m *Model) renderStatus() string {
	if m.err != nil {
		return m.styles.err.Render(shared.Message(m.err))
	}
	if m.notice != "" {
		return m.styles.warn.Render(m.notice)
	}
	if m.restored != nil {
		return m.styles.help.Render(fmt.Sprintf("History #%d (%s)", m.restored.Sequence(), m.restored.Status()))
	}

	switch m.run.Status {
	case models.StatusPending:
		return m.spinner.View() + " Connecting..."
	case models.StatusStreaming:
		return m.spinner.View() + fmt.Sprintf(" %s...", m.run.Request.Kind.Label())
	case models.StatusCompleted:
		return m.styles.ok.Render(fmt.Sprintf("✓ %s completed in %s", m.run.Request.Kind.Label(), m.run.Duration().Round(10*time.Millisecond)))
	case models.StatusFailed:
		return m.styles.err.Render(shared.Message(m.run.Err))
	default:
		return m.styles.help.Render("Ready")
	}
}

func (m *Model) renderHistory() string {
	if len(m.history.Items()) == 0 {
		return fmt.Sprintf("%s\n\nNo runs recorded yet.\n\n%s",
			m.styles.title.Render("History"),
			m.help.ShortHelpView([]key.Binding{m.keys.cancel, m.keys.quit}))
	}
	open := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open"))
	return fmt.Sprintf("%s\n\n%s", m.history.View(), m.help.ShortHelpView([]key.Binding{open, m.keys.cancel, m.keys.quit}))
}
