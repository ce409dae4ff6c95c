// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package menu provides the main menu view for the termai TUI.
//
// The menu lists the top-level actions and shows the locally installed
// models in a table, refreshed from the runtime when the view opens.
package menu

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/ui/styles"
	"github.com/termai/termai-tui/internal/util"
)

// =============================================================================
// ACTIONS AND MESSAGES
// =============================================================================

// Action identifies a main menu entry.
type Action int

const (
	ActionNewChat Action = iota
	ActionBrowseSessions
	ActionPullModel
	ActionRemoveModel
	ActionQuit
)

// SelectionMsg reports the entry the user activated.
type SelectionMsg struct {
	Action Action
}

// modelsLoadedMsg carries the installed model list from the runtime.
type modelsLoadedMsg struct {
	models []ollama.ModelInfo
	err    error
}

// =============================================================================
// MENU MODEL
// =============================================================================

type menuEntry struct {
	label  string
	action Action
}

// Model is the main menu view.
type Model struct {
	client *ollama.Client
	theme  *styles.Theme

	entries []menuEntry
	cursor  int

	modelTable  table.Model
	modelsErr   string
	modelsReady bool

	width  int
	height int
}

// New creates the main menu.
func New(client *ollama.Client, theme *styles.Theme) Model {
	entries := []menuEntry{
		{"Start new chat", ActionNewChat},
		{"Browse saved sessions", ActionBrowseSessions},
		{"Pull a model", ActionPullModel},
		{"Remove a model", ActionRemoveModel},
		{"Quit", ActionQuit},
	}

	columns := []table.Column{
		{Title: "Model", Width: 28},
		{Title: "Size", Width: 10},
		{Title: "Modified", Width: 16},
	}

	tbl := table.New(
		table.WithColumns(columns),
		table.WithHeight(6),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		Bold(true).
		Foreground(styles.Cyan).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(styles.Overlay)
	st.Selected = st.Selected.
		Background(styles.SelectionBg).
		Foreground(styles.TextPrimary)
	tbl.SetStyles(st)

	return Model{
		client:     client,
		theme:      theme,
		entries:    entries,
		modelTable: tbl,
	}
}

// Init implements tea.Model. It kicks off the installed-models refresh.
func (m Model) Init() tea.Cmd {
	return m.loadModels()
}

// loadModels fetches the installed model list in the background.
func (m Model) loadModels() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		models, err := client.ListModels(ctx)
		return modelsLoadedMsg{models: models, err: err}
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
		return m, nil

	case modelsLoadedMsg:
		return m.handleModelsLoaded(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleModelsLoaded(msg modelsLoadedMsg) Model {
	if msg.err != nil {
		m.modelsErr = msg.err.Error()
		if ollama.IsNotRunning(msg.err) {
			m.modelsErr = "Ollama is not running"
		}
		return m
	}

	rows := make([]table.Row, 0, len(msg.models))
	for _, info := range msg.models {
		rows = append(rows, table.Row{
			info.Name,
			util.FormatByteSize(info.Size),
			info.ModifiedAt.Format("2006-01-02 15:04"),
		})
	}
	m.modelTable.SetRows(rows)
	m.modelsReady = true
	m.modelsErr = ""
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "r":
		return m, m.loadModels()
	case "enter":
		entry := m.entries[m.cursor]
		return m, func() tea.Msg { return SelectionMsg{Action: entry.action} }
	case "q", "ctrl+c", "esc":
		return m, func() tea.Msg { return SelectionMsg{Action: ActionQuit} }
	}
	return m, nil
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	title := m.theme.HeaderTitle.Render("termai") + " " +
		m.theme.HeaderSubtitle.Render("local chat for Ollama")

	var items []string
	for i, entry := range m.entries {
		if i == m.cursor {
			items = append(items, m.theme.MenuItemSelected.Render("> "+entry.label))
		} else {
			items = append(items, m.theme.MenuItem.Render("  "+entry.label))
		}
	}
	menu := m.theme.MenuBox.Render(lipgloss.JoinVertical(lipgloss.Left, items...))

	var modelsView string
	switch {
	case m.modelsErr != "":
		modelsView = styles.RenderWarning(m.modelsErr)
	case !m.modelsReady:
		modelsView = m.theme.MenuHint.Render("loading installed models...")
	case len(m.modelTable.Rows()) == 0:
		modelsView = m.theme.MenuHint.Render("no models installed yet (pull one first)")
	default:
		modelsView = m.theme.HeaderSubtitle.Render("Installed models") + "\n" +
			m.modelTable.View()
	}

	hint := m.theme.MenuHint.Render("up/down move  |  enter select  |  r refresh models  |  q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title, "", menu, "", modelsView, "", hint)
}
