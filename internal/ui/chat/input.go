// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/termai/termai-tui/internal/commands"
	"github.com/termai/termai-tui/internal/model"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeConfirmExit:
		return m.handleExitDialogKey(msg)
	case modeConfirmOverwrite:
		return m.handleOverwriteDialogKey(msg)
	case modeSaveName:
		return m.handleSaveNameKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		return m.requestExit()

	case "esc":
		if m.streaming {
			m.cancelMgr.cancel()
			return m, nil
		}
		if m.showHelp {
			m.showHelp = false
			m.refreshViewport()
			return m, nil
		}
		return m.requestExit()

	case "enter":
		return m.handleSubmit()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleExitDialogKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "tab":
		m.dialog.Toggle()
		return m, nil
	case "esc":
		m.dialog.Hide()
		m.mode = modeChat
		m.exitAfterSave = false
		return m, nil
	case "enter":
		m.dialog.Hide()
		if m.dialog.Confirmed() {
			// Prompt for a name, then leave once saved.
			m.exitAfterSave = true
			m.mode = modeSaveName
			m.input.SetValue("")
			m.input.Placeholder = "Session name (" + defaultSessionName() + ")"
			return m, nil
		}
		m.mode = modeChat
		return m, func() tea.Msg { return BackToMenuMsg{} }
	}
	return m, nil
}

func (m Model) handleOverwriteDialogKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "tab":
		m.dialog.Toggle()
		return m, nil
	case "esc":
		m.dialog.Hide()
		m.mode = modeChat
		m.pendingSaveName = ""
		m.exitAfterSave = false
		return m, nil
	case "enter":
		if m.dialog.Confirmed() {
			return m.confirmOverwrite()
		}
		m.dialog.Hide()
		m.mode = modeChat
		m.pendingSaveName = ""
		return m, nil
	}
	return m, nil
}

func (m Model) handleSaveNameKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeChat
		m.exitAfterSave = false
		m.input.SetValue("")
		m.input.Placeholder = "Type a message or /help for commands"
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		return m.trySave(name)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// INPUT SUBMISSION
// =============================================================================

func (m Model) handleSubmit() (Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	// One outstanding request per session: new messages wait until the
	// current stream settles. Commands still dispatch (/exit, /help).
	// The typed text stays in the input so nothing is lost.
	if m.streaming && !commands.IsCommand(text) {
		m.errMsg = "still generating; wait or press esc to cancel"
		return m, nil
	}
	m.input.SetValue("")

	// Multi-line composition: accumulate until /multi-end.
	if m.multiMode {
		result := m.parser.Parse(text)
		if result.IsCommand && result.Action() == commands.ActionMultiEnd {
			return m.finishMultiLine()
		}
		m.multiLines = append(m.multiLines, text)
		return m, nil
	}

	result := m.parser.Parse(text)
	if !result.IsCommand {
		return m.startStream(text)
	}
	if result.Error != nil {
		m.errMsg = result.Error.Error()
		return m, nil
	}
	return m.dispatchCommand(result)
}

func (m Model) dispatchCommand(result commands.ParseResult) (Model, tea.Cmd) {
	switch result.Action() {
	case commands.ActionHelp:
		m.showHelp = !m.showHelp
		m.refreshViewport()
		return m, nil

	case commands.ActionExit:
		return m.requestExit()

	case commands.ActionSave:
		if m.session.IsEmpty() {
			m.errMsg = "nothing to save yet"
			return m, nil
		}
		return m.trySave(strings.TrimSpace(result.RawArgs))

	case commands.ActionClear:
		m.session = model.NewSession(m.session.Model)
		m.errMsg = ""
		m.statusMsg = "conversation cleared"
		m.refreshViewport()
		return m, nil

	case commands.ActionMultiStart:
		m.multiMode = true
		m.multiLines = nil
		m.statusMsg = "multi-line mode: finish with /multi-end"
		return m, nil

	case commands.ActionMultiEnd:
		m.errMsg = "not in multi-line mode (start with /multi-start)"
		return m, nil
	}

	return m, nil
}

// finishMultiLine joins the accumulated lines and sends them as one message.
func (m Model) finishMultiLine() (Model, tea.Cmd) {
	m.multiMode = false
	lines := m.multiLines
	m.multiLines = nil
	m.statusMsg = ""

	joined := strings.Join(lines, "\n")
	if strings.TrimSpace(joined) == "" {
		m.errMsg = "multi-line message was empty"
		return m, nil
	}
	return m.startStream(joined)
}
