package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"dolma/internal/app"
)

func (m Model) renderChatPane(width, height int) string {
	style := m.theme.Pane
	title := m.theme.PaneTitle
	if m.focus == focusChat {
		style = m.theme.PaneFocused
		title = m.theme.PaneTitleF
	}
	inner := maxInt(width-4, 20)

	var blocks []string
	for _, msg := range m.app.Session.Messages() {
		blocks = append(blocks, m.renderMessage(msg, inner))
	}
	if m.chatBusy {
		blocks = append(blocks, m.theme.Spinner.Render(spinnerFrames[m.spin]+" thinking..."))
	}

	lines := strings.Split(strings.Join(blocks, "\n\n"), "\n")
	bodyHeight := maxInt(height-1, 3)
	if len(lines) > bodyHeight {
		lines = lines[len(lines)-bodyHeight:]
	}

	content := title.Render("Conversation") + "\n" + strings.Join(lines, "\n")
	return style.Width(width).Height(height).Render(content)
}

func (m Model) renderMessage(msg app.Message, width int) string {
	var header string
	switch {
	case msg.Role == app.RoleUser:
		header = m.theme.RoleYou.Render("You")
	case strings.HasPrefix(msg.Text, "⚠️"):
		header = m.theme.RoleErr.Render("DOLMA")
	default:
		header = m.theme.RoleAI.Render("DOLMA")
	}

	body := lipgloss.NewStyle().Width(width)
	var parts []string
	parts = append(parts, header)

	if msg.ReplyMD != "" {
		parts = append(parts, m.markdown.Render(msg.ReplyMD, width))
	} else if msg.Text != "" {
		parts = append(parts, body.Render(msg.Text))
	}

	for _, item := range msg.Items {
		line := "  " + item.Label + ": " + item.Value
		parts = append(parts, m.theme.GoalMeta.Render(line))
	}
	if msg.CTA != "" {
		parts = append(parts, m.theme.TopBarBadge.Render(msg.CTA))
	}
	if msg.Place != "" || msg.Weather != nil {
		var loc []string
		if msg.Place != "" {
			loc = append(loc, "📍 "+msg.Place)
		}
		if w := app.FormatWeather(msg.Weather); w != "" {
			loc = append(loc, w)
		}
		parts = append(parts, m.theme.InfoNote.Render(body.Render(strings.Join(loc, " · "))))
	}
	for _, tip := range msg.Tips {
		parts = append(parts, m.theme.GoalMeta.Render(body.Render("💡 "+tip)))
	}
	return strings.Join(parts, "\n")
}
