// Package tui provides the terminal user interface for the inbox client.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/engine"
)

// View represents the current view mode.
type View int

const (
	ViewInbox View = iota
	ViewChat
)

// Model is the main TUI model.
type Model struct {
	engine  *engine.Engine
	eventCh <-chan engine.Event

	view     View
	width    int
	height   int
	selected int
	showHelp bool

	composer ComposerModel
	viewport viewport.Model
	anchor   anchor
	stream   StreamIndicator

	conversations []engine.Conversation
	current       engine.Conversation
	hasCurrent    bool
	totalLines    int

	errText string
}

// EventMsg wraps an engine event for the TUI.
type EventMsg struct {
	Event engine.Event
}

type inboxLoadedMsg struct {
	err error
}

// New creates a new TUI model.
func New(eng *engine.Engine, eventCh <-chan engine.Event) Model {
	return Model{
		engine:   eng,
		eventCh:  eventCh,
		view:     ViewInbox,
		composer: NewComposerModel(),
		viewport: viewport.New(80, 20),
		anchor:   newAnchor(),
		stream:   NewStreamIndicator(),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadInbox(),
		m.listenForEvents(),
		m.stream.Init(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.composer.SetWidth(msg.Width - 4)
		m.resizeViewport()
		m.refreshChatContent(false)

	case tea.KeyMsg:
		if m.composer.IsActive() {
			return m.handleComposerKey(msg)
		}

		if key.Matches(msg, keys.Help) {
			m.showHelp = !m.showHelp
			return m, nil
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Escape):
			if m.view == ViewChat {
				m.view = ViewInbox
				m.hasCurrent = false
				m.errText = ""
				m.engine.Close()
			}
			return m, nil
		}

		if m.view == ViewInbox {
			return m.handleInboxKey(msg)
		}
		return m.handleChatKey(msg)

	case EventMsg:
		m.handleEvent(msg.Event)
		return m, m.listenForEvents()

	case inboxLoadedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		}

	case StreamIndicatorTickMsg:
		var cmd tea.Cmd
		m.stream, cmd = m.stream.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return RenderHelp(m.width, m.height)
	}

	if m.view == ViewChat {
		return RenderChatView(m.current, m.viewport, m.composer, m.width, m.totalLines, m.stream.View(), m.errText)
	}

	content := RenderInbox(m.conversations, m.selected, m.width, m.height-1, m.stream.View())
	if m.errText != "" {
		content += "\n" + errorBarStyle.Render("✗ "+m.errText)
	}
	return content
}

func (m Model) handleInboxKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up), key.Matches(msg, keys.ShiftTab):
		if m.selected > 0 {
			m.selected--
		}

	case key.Matches(msg, keys.Down), key.Matches(msg, keys.Tab):
		if m.selected < len(m.conversations)-1 {
			m.selected++
		}

	case key.Matches(msg, keys.Enter):
		if m.selected < len(m.conversations) {
			id := m.conversations[m.selected].ID
			m.view = ViewChat
			m.errText = ""
			m.current = m.conversations[m.selected]
			m.hasCurrent = true
			m.totalLines = 0
			m.anchor.Reset(0, 0)
			m.viewport.SetContent(dimmedStyle.Render("  loading..."))
			m.engine.Open(id)
		}

	case key.Matches(msg, keys.Refresh):
		return m, m.loadInbox()
	}

	return m, nil
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Reply):
		return m, m.composer.Activate()

	case key.Matches(msg, keys.Bottom):
		m.viewport.GotoBottom()
		m.anchor.OnScroll(m.viewport.YOffset, m.viewport.Height)
		return m, nil
	}

	// Everything else scrolls the log.
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.anchor.OnScroll(m.viewport.YOffset, m.viewport.Height)

	if m.hasCurrent {
		id := m.current.ID
		if m.anchor.ShouldLoadOlder(m.viewport.YOffset, m.engine.IsLoadingOlder(id), m.engine.HasMore(id)) {
			m.engine.LoadOlder(id)
		}
	}

	return m, cmd
}

func (m Model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.composer.Deactivate()
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := strings.TrimSpace(m.composer.Value())
		if value == "" {
			m.composer.Deactivate()
			return m, nil
		}

		m.errText = ""
		if err := m.engine.Send(m.current.ID, value); err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.composer.AddToHistory(value)
		m.composer.Clear()
		return m, nil
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *Model) handleEvent(event engine.Event) {
	switch event.Type {
	case engine.EventListChanged:
		m.conversations = m.engine.Conversations()
		if m.selected >= len(m.conversations) && m.selected > 0 {
			m.selected = len(m.conversations) - 1
		}

	case engine.EventConversationLoaded:
		m.refreshChatContent(false)
		m.viewport.GotoBottom()
		m.anchor.Reset(m.tailID(), m.totalLines)

	case engine.EventWindowChanged:
		m.applyWindowChange(event.Mutation)

	case engine.EventOlderLoading, engine.EventOlderLoaded:
		m.refreshChatContent(event.Type == engine.EventOlderLoading)

	case engine.EventLoadFailed, engine.EventOlderFailed:
		m.errText = event.Error
		m.refreshChatContent(false)

	case engine.EventSendFailed:
		m.errText = event.Error
		m.composer.Restore(event.Text)
		m.composer.Activate()

	case engine.EventStreamUp:
		m.stream.SetState(StreamStateConnected)

	case engine.EventStreamDown:
		m.stream.SetState(StreamStateReconnecting)
	}
}

// applyWindowChange re-renders the log and repositions the viewport per the
// mutation kind: prepends preserve the reading position, appends follow the
// tail only when the agent is already there, replaces stay put.
func (m *Model) applyWindowChange(mutation engine.Mutation) {
	prevOffset := m.viewport.YOffset
	m.refreshChatContent(false)

	switch mutation {
	case engine.MutationPrepend:
		m.viewport.SetYOffset(m.anchor.AfterPrepend(prevOffset, m.totalLines))

	case engine.MutationAppend:
		if m.anchor.AfterAppend(m.tailID(), m.totalLines) {
			m.viewport.GotoBottom()
		}

	case engine.MutationReplace:
		m.anchor.AfterReplace(m.tailID(), m.totalLines)
	}
}

// refreshChatContent pulls the window snapshot and re-renders the viewport
// content. No-op when no conversation is open.
func (m *Model) refreshChatContent(loadingOlder bool) {
	current, ok := m.engine.Current()
	if !ok {
		return
	}
	m.current = current
	m.hasCurrent = true

	if !loadingOlder {
		loadingOlder = m.engine.IsLoadingOlder(current.ID)
	}
	content := renderChatContent(current.Messages, current.Contact, m.viewport.Width-2, loadingOlder, m.engine.HasMore(current.ID))
	m.totalLines = lipgloss.Height(content)
	m.viewport.SetContent(content)
}

func (m *Model) resizeViewport() {
	// Header (3 + margin), info panel (3), log title (1), log borders (2),
	// composer (3), hint (1).
	vpHeight := m.height - 14
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport.Width = m.width - 8
	m.viewport.Height = vpHeight
}

func (m Model) tailID() int64 {
	n := len(m.current.Messages)
	if n == 0 {
		return 0
	}
	return m.current.Messages[n-1].ID
}

func (m Model) loadInbox() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		return inboxLoadedMsg{err: eng.LoadInbox(context.Background())}
	}
}

func (m Model) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.eventCh
		if !ok {
			return nil
		}
		return EventMsg{Event: event}
	}
}

// Key bindings
var keys = struct {
	Quit     key.Binding
	Help     key.Binding
	Escape   key.Binding
	Enter    key.Binding
	Tab      key.Binding
	ShiftTab key.Binding
	Up       key.Binding
	Down     key.Binding
	Reply    key.Binding
	Refresh  key.Binding
	Bottom   key.Binding
}{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Help:     key.NewBinding(key.WithKeys("?")),
	Escape:   key.NewBinding(key.WithKeys("esc")),
	Enter:    key.NewBinding(key.WithKeys("enter")),
	Tab:      key.NewBinding(key.WithKeys("tab")),
	ShiftTab: key.NewBinding(key.WithKeys("shift+tab")),
	Up:       key.NewBinding(key.WithKeys("up", "k")),
	Down:     key.NewBinding(key.WithKeys("down", "j")),
	Reply:    key.NewBinding(key.WithKeys("i")),
	Refresh:  key.NewBinding(key.WithKeys("r")),
	Bottom:   key.NewBinding(key.WithKeys("G", "end")),
}
