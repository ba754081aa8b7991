package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/engine"
)

// wrapText wraps text to fit within maxWidth display columns, preserving
// words. Long words that exceed maxWidth are hard-wrapped.
func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		maxWidth = 80
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			lines = append(lines, "")
			continue
		}

		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		currentLine := ""
		for _, word := range words {
			wordWidth := lipgloss.Width(word)

			if wordWidth > maxWidth {
				if currentLine != "" {
					lines = append(lines, currentLine)
					currentLine = ""
				}
				for len(word) > 0 {
					chunk := truncateToWidth(word, maxWidth)
					lines = append(lines, chunk)
					chunkRunes := []rune(chunk)
					wordRunes := []rune(word)
					if len(chunkRunes) < len(wordRunes) {
						word = string(wordRunes[len(chunkRunes):])
					} else {
						word = ""
					}
				}
				continue
			}

			if currentLine == "" {
				currentLine = word
			} else if lipgloss.Width(currentLine)+1+wordWidth <= maxWidth {
				currentLine += " " + word
			} else {
				lines = append(lines, currentLine)
				currentLine = word
			}
		}
		if currentLine != "" {
			lines = append(lines, currentLine)
		}
	}

	return lines
}

// renderMessageLines renders one message as wrapped, prefixed lines.
func renderMessageLines(msg engine.Message, contact string, maxWidth int) []string {
	var rolePrefix string
	var prefixStyle lipgloss.Style
	if msg.Direction == engine.DirectionInbound {
		name := contact
		if lipgloss.Width(name) > 12 {
			name = truncateToWidth(name, 9) + "..."
		}
		rolePrefix = strings.ToUpper(name) + ":"
		prefixStyle = inboundStyle
	} else {
		rolePrefix = "YOU:"
		prefixStyle = outboundStyle
	}

	timePrefix := "--:--"
	if !msg.CreatedAt.IsZero() {
		timePrefix = msg.CreatedAt.Local().Format("15:04")
	}

	var statusSuffix string
	switch {
	case msg.Status == engine.StatusSending:
		statusSuffix = " " + sendingStyle.Render("⋯ sending")
	case msg.Status == engine.StatusFailed:
		statusSuffix = " " + failedStyle.Render("✗ failed")
	}

	prefix := fmt.Sprintf("%s %s", dimmedStyle.Render(timePrefix), prefixStyle.Render(rolePrefix))
	prefixWidth := lipgloss.Width(prefix) + 1

	contentWidth := maxWidth - prefixWidth
	if contentWidth < 20 {
		contentWidth = 20
	}

	contentStyle := DirectionStyle(string(msg.Direction))
	if msg.Status == engine.StatusSending {
		contentStyle = sendingStyle
	}

	wrapped := wrapText(msg.Content, contentWidth)
	indent := strings.Repeat(" ", prefixWidth)

	result := make([]string, 0, len(wrapped)+1)
	result = append(result, "")
	for i, line := range wrapped {
		if i == 0 {
			rendered := prefix + " " + contentStyle.Render(line)
			if len(wrapped) == 1 {
				rendered += statusSuffix
			}
			result = append(result, rendered)
		} else {
			rendered := indent + contentStyle.Render(line)
			if i == len(wrapped)-1 {
				rendered += statusSuffix
			}
			result = append(result, rendered)
		}
	}

	return result
}

// renderChatContent renders the full message buffer for the viewport.
func renderChatContent(msgs []engine.Message, contact string, width int, loadingOlder, hasMore bool) string {
	var lines []string

	switch {
	case loadingOlder:
		lines = append(lines, dimmedStyle.Render("  loading older messages..."))
	case !hasMore:
		lines = append(lines, dimmedStyle.Render("  · beginning of conversation ·"))
	}

	if len(msgs) == 0 {
		lines = append(lines, "", dimmedStyle.Render("  No messages yet."))
	}
	for _, msg := range msgs {
		lines = append(lines, renderMessageLines(msg, contact, width)...)
	}

	return strings.Join(lines, "\n")
}

// RenderChatView renders the open conversation: header, info panel,
// scrollable log, and composer.
func RenderChatView(conv engine.Conversation, vp viewport.Model, composer ComposerModel, width int, totalLines int, streamView string, errText string) string {
	var sections []string

	sections = append(sections, renderChatHeader(conv.Contact, width))

	infoLines := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Contact:"), valueStyle.Render(conv.Contact)),
	}
	if conv.PipelineStageID != "" {
		infoLines = append(infoLines, fmt.Sprintf("%s %s", labelStyle.Render("Stage:"), valueStyle.Render(conv.PipelineStageID)))
	}
	if conv.Priority != "" {
		infoLines = append(infoLines, fmt.Sprintf("%s %s", labelStyle.Render("Priority:"), PriorityStyle(conv.Priority).Render(conv.Priority)))
	}
	if conv.AssigneeID != "" {
		infoLines = append(infoLines, fmt.Sprintf("%s %s", labelStyle.Render("Assignee:"), valueStyle.Render(conv.AssigneeID)))
	}
	infoLines = append(infoLines, streamView)
	infoPanel := panelStyle.Width(width - 2).Render(strings.Join(infoLines, "  "))
	sections = append(sections, infoPanel)

	// Log title with scroll position when not at the bottom.
	scrollInfo := ""
	if totalLines > vp.Height && vp.YOffset+vp.Height < totalLines {
		scrollInfo = fmt.Sprintf("  LINE %d/%d", vp.YOffset+1, totalLines)
	}
	sections = append(sections, renderSectionTitleWithSuffix("MESSAGES", scrollInfo, width))

	// Viewport with scrollbar down the right edge.
	scrollbarLines := strings.Split(renderScrollbar(vp.Height, totalLines, vp.YOffset), "\n")
	vpContentLines := strings.Split(vp.View(), "\n")
	combined := make([]string, vp.Height)
	for i := 0; i < vp.Height; i++ {
		var contentLine string
		if i < len(vpContentLines) {
			contentLine = vpContentLines[i]
		}
		scrollLine := "  "
		if i < len(scrollbarLines) {
			scrollLine = " " + scrollbarLines[i]
		}
		combined[i] = contentLine + scrollLine
	}
	logPanel := logStyle.Width(width-2).Padding(0, 2).Render(strings.Join(combined, "\n"))
	sections = append(sections, logPanel)

	if errText != "" {
		sections = append(sections, errorBarStyle.Render("✗ "+errText))
	}

	sections = append(sections, composer.View(width))

	hint := dimmedStyle.Render("[ ESC ] BACK  ·  [ i ] REPLY  ·  [ ↑↓ ] SCROLL  ·  [ G ] BOTTOM")
	sections = append(sections, hint)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderChatHeader renders the chat view header spanning the full width.
func renderChatHeader(contact string, width int) string {
	titleText := " ◆ " + contact + " ◆ "
	titleDisplayWidth := lipgloss.Width(titleText)
	availableWidth := width - titleDisplayWidth - 3
	if availableWidth < 4 {
		availableWidth = 4
	}
	leftDashes := availableWidth / 2
	rightDashes := availableWidth - leftDashes

	line := " ╞" + strings.Repeat("═", leftDashes) + titleText + strings.Repeat("═", rightDashes) + "╡"
	return headerStyle.Width(width).Render(line)
}
