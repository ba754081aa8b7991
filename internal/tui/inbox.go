package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/engine"
)

// RenderInbox renders the conversation list view.
func RenderInbox(convs []engine.Conversation, selectedIdx, width, height int, streamView string) string {
	var sections []string

	if width < 20 {
		width = 20
	}

	// Header banner
	topLine := "╒" + strings.Repeat("═", width-2) + "╕"
	titleText := " INBOX "
	titleDisplayWidth := lipgloss.Width(titleText)
	titlePadding := (width - titleDisplayWidth) / 2
	if titlePadding < 0 {
		titlePadding = 0
	}
	titleLine := strings.Repeat(" ", titlePadding) + titleText
	if w := lipgloss.Width(titleLine); w < width {
		titleLine += strings.Repeat(" ", width-w)
	}
	bottomLine := "╘" + strings.Repeat("═", width-2) + "╛"
	header := headerStyle.Width(width).Render(topLine + "\n" + titleLine + "\n" + bottomLine)
	sections = append(sections, header)

	// Stats bar: open count, unread total, stream state
	var unread int
	for _, c := range convs {
		unread += c.UnreadCount
	}
	stats := fmt.Sprintf("%s %d conversations", labelStyle.Render("▸"), len(convs))
	if unread > 0 {
		stats += "  " + unreadBadgeStyle.Render(fmt.Sprintf(" %d unread ", unread))
	}
	stats += "  " + streamView
	sections = append(sections, lipgloss.NewStyle().Width(width).Render(stats))

	listTitle := renderSectionTitle("CONVERSATIONS", width)
	sections = append(sections, listTitle)

	// Header (3 + margin) + stats (1) + title (1) + footer (1) + borders (2)
	usedHeight := 8
	listHeight := height - usedHeight
	if listHeight < 3 {
		listHeight = 3
	}

	contentWidth := width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	if len(convs) == 0 {
		emptyMsg := dimmedStyle.Render("No conversations yet.")
		sections = append(sections, conversationListStyle.Width(width-2).Height(listHeight).Render(emptyMsg))
	} else {
		var lines []string
		for i, c := range convs {
			lines = append(lines, renderConversationLine(c, i == selectedIdx, contentWidth))
		}
		// Keep the selection visible when the list outgrows the panel.
		if len(lines) > listHeight {
			start := selectedIdx - listHeight/2
			if start < 0 {
				start = 0
			}
			if start+listHeight > len(lines) {
				start = len(lines) - listHeight
			}
			lines = lines[start : start+listHeight]
		}
		content := strings.Join(lines, "\n")
		sections = append(sections, conversationListStyle.Width(width-2).Height(listHeight).Render(content))
	}

	hint := dimmedStyle.Render("[ ? ] HELP  ·  [ enter ] OPEN  ·  [ q ] QUIT")
	sections = append(sections, hint)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderConversationLine(c engine.Conversation, selected bool, width int) string {
	contact := c.Contact
	if lipgloss.Width(contact) > 18 {
		contact = truncateToWidth(contact, 15) + "..."
	}

	var badge string
	if c.UnreadCount > 0 {
		badge = unreadBadgeStyle.Render(fmt.Sprintf(" %d ", c.UnreadCount))
	} else {
		badge = "   "
	}

	timeStr := formatListTimestamp(c.LastMessageAt)

	var meta string
	if c.Priority != "" {
		meta = PriorityStyle(c.Priority).Render(fmt.Sprintf("[%s]", c.Priority))
	}
	if c.PipelineStageID != "" {
		if meta != "" {
			meta += " "
		}
		meta += dimmedStyle.Render(fmt.Sprintf("(%s)", c.PipelineStageID))
	}

	firstPart := fmt.Sprintf("%s %-18s %s", badge, contact, meta)

	// Remaining width goes to the preview.
	usedWidth := lipgloss.Width(firstPart) + lipgloss.Width(timeStr) + 6
	previewWidth := width - usedWidth
	if previewWidth < 10 {
		previewWidth = 10
	}

	preview := strings.ReplaceAll(c.LastMessagePreview, "\n", " ")
	if lipgloss.Width(preview) > previewWidth {
		preview = truncateToWidth(preview, previewWidth-3) + "..."
	}

	line := fmt.Sprintf("%s │ %s  %s", firstPart, dimmedStyle.Render(preview), labelStyle.Render(timeStr))

	if selected {
		return conversationItemSelectedStyle.Width(width).Render(line)
	}
	return conversationItemStyle.Width(width).Render(line)
}

// formatListTimestamp renders a compact age for the list: clock time today,
// date otherwise.
func formatListTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	local := t.Local()
	now := time.Now()
	if local.Year() == now.Year() && local.YearDay() == now.YearDay() {
		return local.Format("15:04")
	}
	return local.Format("Jan 02")
}
