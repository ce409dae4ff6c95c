// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/ui/components"
	"github.com/termai/termai-tui/internal/ui/styles"
	"github.com/termai/termai-tui/internal/util"
)

// =============================================================================
// MESSAGES
// =============================================================================

// removeListMsg carries the installed model list.
type removeListMsg struct {
	models []ollama.ModelInfo
	err    error
}

// removeDoneMsg reports the result of a delete request.
type removeDoneMsg struct {
	name string
	err  error
}

// =============================================================================
// REMOVE MODEL VIEW
// =============================================================================

// RemoveModel is the remove-a-model view.
type RemoveModel struct {
	client *ollama.Client
	theme  *styles.Theme

	models []ollama.ModelInfo
	cursor int
	dialog components.ConfirmDialog

	removing  bool
	errMsg    string
	statusMsg string
}

// NewRemove creates the remove view.
func NewRemove(client *ollama.Client, theme *styles.Theme) RemoveModel {
	return RemoveModel{
		client: client,
		theme:  theme,
	}
}

// Init implements tea.Model.
func (m RemoveModel) Init() tea.Cmd {
	return m.loadModels()
}

func (m RemoveModel) loadModels() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		models, err := client.ListModels(ctx)
		return removeListMsg{models: models, err: err}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m RemoveModel) Update(msg tea.Msg) (RemoveModel, tea.Cmd) {
	switch msg := msg.(type) {
	case removeListMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			if ollama.IsNotRunning(msg.err) {
				m.errMsg = "Ollama is not running"
			}
			return m, nil
		}
		m.models = msg.models
		if m.cursor >= len(m.models) {
			m.cursor = len(m.models) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case removeDoneMsg:
		m.removing = false
		switch {
		case msg.err == nil:
			m.statusMsg = "removed " + msg.name
			m.errMsg = ""
		case ollama.IsModelNotFound(msg.err):
			m.errMsg = "model \"" + msg.name + "\" is not installed"
		default:
			m.errMsg = "remove failed: " + msg.err.Error()
		}
		return m, m.loadModels()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m RemoveModel) handleKey(msg tea.KeyMsg) (RemoveModel, tea.Cmd) {
	if m.dialog.Visible() {
		switch msg.String() {
		case "left", "right", "tab":
			m.dialog.Toggle()
		case "esc":
			m.dialog.Hide()
		case "enter":
			confirmed := m.dialog.Confirmed()
			m.dialog.Hide()
			if confirmed {
				return m.removeSelected()
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.models)-1 {
			m.cursor++
		}
	case "r":
		return m, m.loadModels()
	case "enter", "d":
		if len(m.models) > 0 && !m.removing {
			name := m.models[m.cursor].Name
			m.dialog = components.NewConfirmDialog(
				"Remove model",
				"Remove \""+name+"\" from disk?",
			)
			m.dialog.Show()
		}
	case "esc", "q":
		return m, func() tea.Msg { return BackMsg{} }
	}
	return m, nil
}

func (m RemoveModel) removeSelected() (RemoveModel, tea.Cmd) {
	if len(m.models) == 0 {
		return m, nil
	}

	name := m.models[m.cursor].Name
	m.removing = true

	client := m.client
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := client.DeleteModel(ctx, name)
		return removeDoneMsg{name: name, err: err}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m RemoveModel) View() string {
	title := m.theme.HeaderTitle.Render("Remove a model")

	var body string
	if len(m.models) == 0 {
		body = m.theme.MenuHint.Render("\n  no models installed\n")
	} else {
		var rows []string
		for i, info := range m.models {
			line := util.PadRight(util.TruncateRunes(info.Name, 30), 30) + "  " +
				util.FormatByteSize(info.Size)
			if i == m.cursor {
				rows = append(rows, m.theme.MenuItemSelected.Render("> "+line))
			} else {
				rows = append(rows, m.theme.MenuItem.Render("  "+line))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, rows...)
	}

	var status string
	switch {
	case m.removing:
		status = m.theme.ThinkingText.Render("removing...")
	case m.errMsg != "":
		status = styles.RenderError(m.errMsg)
	case m.statusMsg != "":
		status = styles.RenderSuccess(m.statusMsg)
	default:
		status = m.theme.MenuHint.Render("enter remove  |  r refresh  |  esc back")
	}

	sections := []string{title, "", body, "", status}
	if m.dialog.Visible() {
		sections = append(sections, "", m.dialog.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
