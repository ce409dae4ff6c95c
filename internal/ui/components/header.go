// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/termai/termai-tui/internal/ui/styles"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header renders the application title bar with the active model name.
type Header struct {
	Title    string
	Subtitle string
	Model    string
	Width    int
}

// NewHeader creates a header with the application title.
func NewHeader(title string) Header {
	return Header{Title: title, Width: 80}
}

// SetWidth updates the available render width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetModel updates the model badge shown on the right.
func (h *Header) SetModel(model string) {
	h.Model = model
}

// View renders the header.
func (h Header) View() string {
	titleView := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Cyan).
		Render(h.Title)

	if h.Subtitle != "" {
		titleView += " " + lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Italic(true).
			Render(h.Subtitle)
	}

	var modelView string
	if h.Model != "" {
		modelView = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true).
			Render("[" + h.Model + "]")
	}

	gap := h.Width - lipgloss.Width(titleView) - lipgloss.Width(modelView) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	bar := titleView + spacer + modelView

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		Width(h.Width).
		Render(bar)
}
