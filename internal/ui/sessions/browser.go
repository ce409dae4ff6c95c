// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sessions provides the saved-session browser for the termai TUI.
//
// The browser lists saved sessions most-recent-first, opens transcripts
// read-only, resumes a session into the chat view, and deletes with
// confirmation. A filesystem watcher keeps the list current when sessions
// change on disk underneath the view.
package sessions

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"github.com/termai/termai-tui/internal/model"
	"github.com/termai/termai-tui/internal/storage"
	"github.com/termai/termai-tui/internal/ui/components"
	"github.com/termai/termai-tui/internal/ui/styles"
	"github.com/termai/termai-tui/internal/util"
)

// =============================================================================
// MESSAGES
// =============================================================================

// BackMsg asks the root model to return to the main menu.
type BackMsg struct{}

// ResumeSessionMsg asks the root model to open the chat view with the
// given transcript. The session is a clone; edits never alias the browser's
// copy.
type ResumeSessionMsg struct {
	Session *model.Session
}

// listLoadedMsg carries a refreshed session list.
type listLoadedMsg struct {
	summaries []storage.SessionSummary
	err       error
}

// fsEventMsg signals that something changed in the sessions directory.
type fsEventMsg struct{}

// =============================================================================
// BROWSER MODEL
// =============================================================================

// Model is the session browser view.
type Model struct {
	store *storage.SessionStore
	theme *styles.Theme

	summaries []storage.SessionSummary
	cursor    int

	// Read-only transcript view, nil when browsing the list.
	viewing  *model.Session
	viewport viewport.Model

	dialog  components.ConfirmDialog
	watcher *fsnotify.Watcher

	errMsg    string
	statusMsg string

	width  int
	height int
	ready  bool
}

// New creates the session browser. The filesystem watcher is best-effort:
// when it cannot be created the list still works, it just will not refresh
// on external changes.
func New(store *storage.SessionStore, theme *styles.Theme) Model {
	m := Model{
		store: store,
		theme: theme,
	}

	if watcher, err := fsnotify.NewWatcher(); err == nil {
		if err := watcher.Add(store.BaseDir); err == nil {
			m.watcher = watcher
		} else {
			watcher.Close()
		}
	}

	return m
}

// Close releases the filesystem watcher. The root model calls this when the
// browser is dismissed.
func (m *Model) Close() {
	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadList()}
	if m.watcher != nil {
		cmds = append(cmds, m.waitForChange())
	}
	return tea.Batch(cmds...)
}

// loadList reads the session list from the store.
func (m Model) loadList() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		summaries, err := store.List()
		return listLoadedMsg{summaries: summaries, err: err}
	}
}

// waitForChange blocks until the watcher reports an event.
func (m Model) waitForChange() tea.Cmd {
	watcher := m.watcher
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				// Only JSON session files matter.
				if strings.HasSuffix(event.Name, ".json") {
					return fsEventMsg{}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - 6
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		return m, nil

	case listLoadedMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.summaries = msg.summaries
		if m.cursor >= len(m.summaries) {
			m.cursor = len(m.summaries) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case fsEventMsg:
		cmds := []tea.Cmd{m.loadList()}
		if m.watcher != nil {
			cmds = append(cmds, m.waitForChange())
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	// Delete confirmation takes priority.
	if m.dialog.Visible() {
		return m.handleDialogKey(msg)
	}

	// Read-only transcript view.
	if m.viewing != nil {
		return m.handleTranscriptKey(msg)
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.summaries)-1 {
			m.cursor++
		}
	case "enter":
		return m.openSelected()
	case "r":
		return m.resumeSelected()
	case "d":
		if len(m.summaries) > 0 {
			name := m.summaries[m.cursor].Name
			m.dialog = components.NewConfirmDialog(
				"Delete session",
				"Delete \""+name+"\"? This cannot be undone.",
			)
			m.dialog.Show()
		}
	case "esc", "q":
		return m, func() tea.Msg { return BackMsg{} }
	}
	return m, nil
}

func (m Model) handleDialogKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "tab":
		m.dialog.Toggle()
	case "esc":
		m.dialog.Hide()
	case "enter":
		confirmed := m.dialog.Confirmed()
		m.dialog.Hide()
		if confirmed {
			return m.deleteSelected()
		}
	}
	return m, nil
}

func (m Model) handleTranscriptKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.viewing = nil
		return m, nil
	case "r":
		return m.resumeViewing()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m Model) openSelected() (Model, tea.Cmd) {
	if len(m.summaries) == 0 {
		return m, nil
	}

	sess, err := m.store.Load(m.summaries[m.cursor].Name)
	if err != nil {
		m.errMsg = loadErrorText(err)
		return m, m.loadList()
	}

	m.viewing = sess
	m.errMsg = ""
	if m.ready {
		m.viewport.SetContent(renderTranscript(m.theme, sess))
		m.viewport.GotoTop()
	}
	return m, nil
}

func (m Model) resumeSelected() (Model, tea.Cmd) {
	if len(m.summaries) == 0 {
		return m, nil
	}

	sess, err := m.store.Load(m.summaries[m.cursor].Name)
	if err != nil {
		m.errMsg = loadErrorText(err)
		return m, m.loadList()
	}

	clone := sess.Clone()
	return m, func() tea.Msg { return ResumeSessionMsg{Session: clone} }
}

func (m Model) resumeViewing() (Model, tea.Cmd) {
	if m.viewing == nil {
		return m, nil
	}
	clone := m.viewing.Clone()
	m.viewing = nil
	return m, func() tea.Msg { return ResumeSessionMsg{Session: clone} }
}

func (m Model) deleteSelected() (Model, tea.Cmd) {
	if len(m.summaries) == 0 {
		return m, nil
	}

	name := m.summaries[m.cursor].Name
	err := m.store.Delete(name)
	switch {
	case err == nil:
		m.statusMsg = "deleted " + name
		m.errMsg = ""
	case errors.Is(err, storage.ErrNotFound):
		// Deleted underneath us; the refresh below reconciles the list.
		m.errMsg = "session \"" + name + "\" was already deleted"
	default:
		m.errMsg = "delete failed: " + err.Error()
	}

	return m, m.loadList()
}

func loadErrorText(err error) string {
	if errors.Is(err, storage.ErrNotFound) {
		return "session no longer exists"
	}
	return err.Error()
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if m.viewing != nil {
		return m.transcriptView()
	}

	title := m.theme.HeaderTitle.Render("Saved sessions")

	var body string
	if len(m.summaries) == 0 {
		body = m.theme.MenuHint.Render("\n  no saved sessions yet\n")
	} else {
		var rows []string
		for i, s := range m.summaries {
			line := formatSummaryLine(s)
			if i == m.cursor {
				rows = append(rows, m.theme.SessionItemSelected.Render("> "+line))
			} else {
				rows = append(rows, m.theme.SessionItem.Render("  "+line))
			}
		}
		body = m.theme.SessionList.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	var status string
	switch {
	case m.errMsg != "":
		status = styles.RenderError(m.errMsg)
	case m.statusMsg != "":
		status = m.theme.ShortcutDesc.Render(m.statusMsg)
	default:
		status = m.theme.MenuHint.Render("enter view  |  r resume  |  d delete  |  esc back")
	}

	sections := []string{title, "", body, "", status}
	if m.dialog.Visible() {
		sections = append(sections, "", m.dialog.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) transcriptView() string {
	title := m.theme.HeaderTitle.Render(m.viewing.DisplayName()) + " " +
		m.theme.HeaderSubtitle.Render("(read-only)")
	hint := m.theme.MenuHint.Render("r resume  |  esc back to list")

	return lipgloss.JoinVertical(lipgloss.Left,
		title, m.viewport.View(), hint)
}

// formatSummaryLine renders one session row for the list.
func formatSummaryLine(s storage.SessionSummary) string {
	name := util.PadRight(util.TruncateRunes(s.Name, 28), 28)
	meta := s.UpdatedAt.Format("2006-01-02 15:04") + "  " +
		util.IntToString(s.MessageCount) + " msgs  " + s.Model
	return name + "  " + meta
}

// renderTranscript renders a saved transcript for the read-only viewport.
func renderTranscript(theme *styles.Theme, sess *model.Session) string {
	var sb strings.Builder
	for _, msg := range sess.Messages {
		var label string
		switch msg.Role {
		case model.RoleUser:
			label = theme.RoleLabelUser.Render("You")
		case model.RoleAssistant:
			label = theme.RoleLabelBot.Render("Assistant")
		default:
			label = theme.HeaderSubtitle.Render(msg.Role.DisplayName())
		}
		sb.WriteString(label)
		sb.WriteString("\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
