package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StreamState represents the state of the push connection.
type StreamState int

const (
	StreamStateIdle StreamState = iota
	StreamStateConnected
	StreamStateReconnecting
)

// StreamIndicator is a small animated status for the live message feed.
type StreamIndicator struct {
	state StreamState
	frame int
}

// StreamIndicatorTickMsg is sent to animate the indicator.
type StreamIndicatorTickMsg time.Time

// NewStreamIndicator creates a new indicator.
func NewStreamIndicator() StreamIndicator {
	return StreamIndicator{state: StreamStateIdle}
}

// SetState sets the connection state.
func (s *StreamIndicator) SetState(state StreamState) {
	s.state = state
}

// State returns the current connection state.
func (s StreamIndicator) State() StreamState {
	return s.state
}

// Update handles tick messages for animation.
func (s StreamIndicator) Update(msg tea.Msg) (StreamIndicator, tea.Cmd) {
	switch msg.(type) {
	case StreamIndicatorTickMsg:
		if s.state == StreamStateReconnecting {
			s.frame++
		}
		return s, s.tick()
	}
	return s, nil
}

func (s StreamIndicator) tick() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return StreamIndicatorTickMsg(t)
	})
}

// Init starts the indicator animation.
func (s StreamIndicator) Init() tea.Cmd {
	return s.tick()
}

// View renders the indicator.
func (s StreamIndicator) View() string {
	switch s.state {
	case StreamStateConnected:
		style := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
		return style.Render("● LIVE")
	case StreamStateReconnecting:
		frames := []string{"◐", "◓", "◑", "◒"}
		style := lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
		return style.Render(frames[s.frame%len(frames)] + " RECONNECTING")
	default:
		style := lipgloss.NewStyle().Foreground(colorMuted)
		return style.Render("○ OFFLINE")
	}
}
