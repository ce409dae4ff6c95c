// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/termai/termai-tui/internal/ui/styles"
)

// =============================================================================
// CONFIRM DIALOG COMPONENT
// =============================================================================

// ConfirmDialog is a yes/no prompt rendered over the current view.
// Used for delete confirmations and the save-on-exit prompt.
type ConfirmDialog struct {
	Title    string
	Message  string
	YesLabel string
	NoLabel  string

	selected bool // true = yes
	visible  bool
}

// NewConfirmDialog creates a dialog with the given title and message.
func NewConfirmDialog(title, message string) ConfirmDialog {
	return ConfirmDialog{
		Title:    title,
		Message:  message,
		YesLabel: "Yes",
		NoLabel:  "No",
	}
}

// Show makes the dialog visible with "no" preselected.
func (d *ConfirmDialog) Show() {
	d.visible = true
	d.selected = false
}

// Hide dismisses the dialog.
func (d *ConfirmDialog) Hide() {
	d.visible = false
}

// Visible reports whether the dialog is showing.
func (d *ConfirmDialog) Visible() bool {
	return d.visible
}

// Toggle flips the selection between yes and no.
func (d *ConfirmDialog) Toggle() {
	d.selected = !d.selected
}

// Confirmed returns the current selection.
func (d *ConfirmDialog) Confirmed() bool {
	return d.selected
}

// View renders the dialog box.
func (d ConfirmDialog) View() string {
	if !d.visible {
		return ""
	}

	titleView := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true).
		Render(d.Title)

	messageView := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Render(d.Message)

	buttonStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Background(styles.Overlay).
		Padding(0, 2).
		MarginRight(1)

	activeStyle := lipgloss.NewStyle().
		Foreground(styles.TextInverse).
		Background(styles.Purple).
		Bold(true).
		Padding(0, 2).
		MarginRight(1)

	var yes, no string
	if d.selected {
		yes = activeStyle.Render(d.YesLabel)
		no = buttonStyle.Render(d.NoLabel)
	} else {
		yes = buttonStyle.Render(d.YesLabel)
		no = activeStyle.Render(d.NoLabel)
	}

	content := titleView + "\n\n" + messageView + "\n\n" + yes + no

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Amber).
		Padding(1, 2).
		Render(content)
}
