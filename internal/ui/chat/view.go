// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/termai/termai-tui/internal/model"
	"github.com/termai/termai-tui/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var sections []string
	sections = append(sections, m.headerView())
	sections = append(sections, m.viewport.View())

	if m.dialog.Visible() {
		sections = append(sections, m.dialog.View())
	} else if m.streaming && m.spinner.IsActive() {
		sections = append(sections, m.spinner.View())
	}

	sections = append(sections, m.inputView())
	sections = append(sections, m.statusView())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView() string {
	title := m.theme.HeaderTitle.Render("termai")
	name := m.theme.HeaderSubtitle.Render(m.session.DisplayName())
	badge := m.theme.ModelBadge.Render("[" + m.session.Model + "]")

	left := title + " " + name
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(badge) - 2
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(styles.Overlay).
		Width(m.width).
		Render(left + strings.Repeat(" ", gap) + badge)
}

func (m Model) inputView() string {
	prompt := m.theme.InputPrompt.Render("> ")
	if m.mode == modeSaveName {
		prompt = m.theme.InputPrompt.Render("name> ")
	} else if m.multiMode {
		prompt = m.theme.MultiLineBadge.Render("...> ")
	}

	return m.theme.InputContainer.
		Width(m.width - 2).
		Render(prompt + m.input.View())
}

func (m Model) statusView() string {
	if m.errMsg != "" {
		return styles.RenderError(m.errMsg)
	}
	if m.statusMsg != "" {
		return m.theme.ShortcutDesc.Render(m.statusMsg)
	}

	hints := []string{
		m.theme.ShortcutKey.Render("enter") + m.theme.ShortcutDesc.Render(" send"),
		m.theme.ShortcutKey.Render("/help") + m.theme.ShortcutDesc.Render(" commands"),
		m.theme.ShortcutKey.Render("esc") + m.theme.ShortcutDesc.Render(" back"),
	}
	if m.streaming {
		hints = []string{
			m.theme.ShortcutKey.Render("esc") + m.theme.ShortcutDesc.Render(" cancel generation"),
		}
	}
	return strings.Join(hints, m.theme.ShortcutDesc.Render("  |  "))
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// refreshViewport rebuilds the viewport content from the session transcript.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	if m.showHelp {
		m.viewport.SetContent(m.registry.HelpText())
		return
	}

	if m.session.MessageCount() == 0 {
		empty := m.theme.MenuHint.Render("\n  No messages yet. Say something.\n")
		m.viewport.SetContent(empty)
		return
	}

	var sb strings.Builder
	for _, msg := range m.session.Messages {
		sb.WriteString(m.renderMessage(msg))
		sb.WriteString("\n")
	}
	m.viewport.SetContent(sb.String())
}

func (m *Model) renderMessage(msg *model.Message) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.RoleLabelUser.Render("You")
	case model.RoleAssistant:
		label = m.theme.RoleLabelBot.Render("Assistant")
	default:
		label = m.theme.HeaderSubtitle.Render(msg.Role.DisplayName())
	}

	content := msg.DisplayContent()

	// Markdown rendering applies only to finished assistant turns; the live
	// stream renders plain to avoid re-parsing on every flush.
	if m.renderer != nil && msg.Role == model.RoleAssistant && !msg.IsStreaming {
		if rendered, err := m.renderer.Render(content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}

	out := label + "\n" + content + "\n"

	if m.cfg.UI.ShowStats && msg.Role == model.RoleAssistant {
		if stats := msg.FormatStats(); stats != "" {
			out += m.theme.StatsLabel.Render(stats) + "\n"
		}
	}

	return out
}
