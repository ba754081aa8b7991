package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/constants"
)

const maxHistorySize = 100

// ComposerModel handles the reply input at the bottom of the chat view.
type ComposerModel struct {
	textInput    textinput.Model
	active       bool
	history      []string
	historyIndex int // -1 = not browsing
	draft        string
}

// NewComposerModel creates a new composer.
func NewComposerModel() ComposerModel {
	ti := textinput.New()
	ti.Placeholder = "Type a reply..."
	ti.CharLimit = constants.ComposerCharLimit
	ti.Width = 60
	ti.Prompt = inputPromptStyle.Render("> ")

	return ComposerModel{
		textInput:    ti,
		history:      make([]string, 0, maxHistorySize),
		historyIndex: -1,
	}
}

// Activate focuses the composer.
func (m *ComposerModel) Activate() tea.Cmd {
	m.active = true
	m.textInput.Focus()
	return textinput.Blink
}

// Deactivate blurs the composer without clearing its text.
func (m *ComposerModel) Deactivate() {
	m.active = false
	m.textInput.Blur()
}

// IsActive returns true when the composer has focus.
func (m ComposerModel) IsActive() bool {
	return m.active
}

// Value returns the current text.
func (m ComposerModel) Value() string {
	return m.textInput.Value()
}

// Clear empties the composer. Called the moment a reply is dispatched, so
// the agent can keep typing while the send is in flight.
func (m *ComposerModel) Clear() {
	m.textInput.Reset()
	m.historyIndex = -1
	m.draft = ""
}

// Restore puts failed text back for correction and resend.
func (m *ComposerModel) Restore(text string) {
	m.textInput.SetValue(text)
	m.textInput.CursorEnd()
}

var historyKeys = struct {
	Up   key.Binding
	Down key.Binding
}{
	Up:   key.NewBinding(key.WithKeys("up")),
	Down: key.NewBinding(key.WithKeys("down")),
}

// Update handles input updates, including history browsing.
func (m ComposerModel) Update(msg tea.Msg) (ComposerModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, historyKeys.Up):
			m.navigateHistory(1)
			return m, nil
		case key.Matches(keyMsg, historyKeys.Down):
			m.navigateHistory(-1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// navigateHistory moves through previously sent replies.
// direction: 1 = older (up), -1 = newer (down)
func (m *ComposerModel) navigateHistory(direction int) {
	if len(m.history) == 0 {
		return
	}

	if m.historyIndex == -1 && direction == 1 {
		m.draft = m.textInput.Value()
	}

	newIndex := m.historyIndex + direction
	if newIndex < -1 {
		newIndex = -1
	}
	if newIndex >= len(m.history) {
		newIndex = len(m.history) - 1
	}
	m.historyIndex = newIndex

	if m.historyIndex == -1 {
		m.textInput.SetValue(m.draft)
	} else {
		historyIdx := len(m.history) - 1 - m.historyIndex
		m.textInput.SetValue(m.history[historyIdx])
	}
	m.textInput.CursorEnd()
}

// AddToHistory records a dispatched reply.
func (m *ComposerModel) AddToHistory(message string) {
	if message == "" {
		return
	}
	if len(m.history) > 0 && m.history[len(m.history)-1] == message {
		return
	}
	m.history = append(m.history, message)
	if len(m.history) > maxHistorySize {
		m.history = m.history[len(m.history)-maxHistorySize:]
	}
}

// View renders the composer bar.
func (m ComposerModel) View(width int) string {
	if m.active {
		return inputStyle.Width(width - 2).Render(m.textInput.View())
	}
	placeholder := dimmedStyle.Render("Press 'i' to reply...")
	return inputStyle.Width(width - 2).Render(placeholder)
}

// SetWidth sets the input width.
func (m *ComposerModel) SetWidth(width int) {
	m.textInput.Width = width - 4
}
