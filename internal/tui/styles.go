package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors - muted workbench palette for long inbox sessions
var (
	colorBrand    = lipgloss.Color("#3366FF") // Primary blue
	colorBrandDim = lipgloss.Color("#224499") // Dimmed blue for borders
	colorAccent   = lipgloss.Color("#00CCAA") // Teal accent

	// Message colors
	colorOutbound = lipgloss.Color("#66AAFF") // Agent replies
	colorInbound  = lipgloss.Color("#EEEEEE") // Customer messages

	// Semantic colors
	colorWarning = lipgloss.Color("#FFAA00")
	colorError   = lipgloss.Color("#FF3366")
	colorSuccess = lipgloss.Color("#00CC66")
	colorMuted   = lipgloss.Color("#667788")

	// Backgrounds
	colorBg      = lipgloss.Color("#0A0A10")
	colorBgAlt   = lipgloss.Color("#10101A")
	colorBgPanel = lipgloss.Color("#141420")
	colorBorder  = lipgloss.Color("#2A2A44")
)

// Styles
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand).
			Background(colorBgAlt).
			MarginBottom(1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand)

	conversationListStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBrandDim)

	conversationItemStyle = lipgloss.NewStyle().
				Foreground(colorInbound).
				Padding(0, 1)

	conversationItemSelectedStyle = lipgloss.NewStyle().
					Foreground(colorBg).
					Background(colorBrand).
					Bold(true).
					Padding(0, 1)

	unreadBadgeStyle = lipgloss.NewStyle().
				Foreground(colorBg).
				Background(colorAccent).
				Bold(true)

	priorityHighStyle = lipgloss.NewStyle().
				Foreground(colorError).
				Bold(true)

	priorityLowStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	logStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBrandDim)

	outboundStyle = lipgloss.NewStyle().
			Foreground(colorOutbound)

	inboundStyle = lipgloss.NewStyle().
			Foreground(colorInbound).
			Bold(true)

	sendingStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	failedStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(colorBrand).
				Bold(true)

	helpStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorBrand).
			Background(colorBgPanel).
			Padding(1, 2).
			Margin(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Background(colorBgPanel).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorBrand).
			Bold(true)

	dimmedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorBarStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)
)

// PriorityStyle returns the style for a conversation priority.
func PriorityStyle(priority string) lipgloss.Style {
	switch priority {
	case "high", "urgent":
		return priorityHighStyle
	case "low":
		return priorityLowStyle
	default:
		return dimmedStyle
	}
}

// DirectionStyle returns the style for a message direction.
func DirectionStyle(direction string) lipgloss.Style {
	if direction == "inbound" {
		return inboundStyle
	}
	return outboundStyle
}

// renderSectionTitle renders a section title that spans the full width.
func renderSectionTitle(title string, width int) string {
	return renderSectionTitleWithSuffix(title, "", width)
}

// renderSectionTitleWithSuffix renders a section title with an optional
// suffix, like a scroll position indicator.
func renderSectionTitleWithSuffix(title, suffix string, width int) string {
	titleWithSpaces := " " + title + " "
	titleDisplayWidth := lipgloss.Width(titleWithSpaces)
	suffixDisplayWidth := lipgloss.Width(suffix)
	availableWidth := width - titleDisplayWidth - 4 - suffixDisplayWidth
	if availableWidth < 2 {
		availableWidth = 2
	}
	leftDashes := availableWidth / 2
	rightDashes := availableWidth - leftDashes

	line := "┝─" + strings.Repeat("─", leftDashes) + titleWithSpaces + strings.Repeat("─", rightDashes) + "─┥"
	if suffix != "" {
		line += suffix
	}
	return panelTitleStyle.Width(width).Render(line)
}

// truncateToWidth truncates a string to fit within maxWidth display columns.
// Rune-aware to avoid cutting multi-byte characters.
func truncateToWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	currentWidth := 0
	for i, r := range s {
		charWidth := lipgloss.Width(string(r))
		if currentWidth+charWidth > maxWidth {
			return s[:i]
		}
		currentWidth += charWidth
	}
	return s
}

func truncateWithEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return truncateToWidth(s, maxWidth)
	}
	return truncateToWidth(s, maxWidth-3) + "..."
}
