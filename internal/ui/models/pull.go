// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models provides the model management views for the termai TUI:
// pulling new models from the registry and removing installed ones.
package models

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/ui/components"
	"github.com/termai/termai-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// BackMsg asks the root model to return to the main menu.
type BackMsg struct{}

// pullProgressMsg carries one progress update from the pull stream.
type pullProgressMsg struct {
	progress ollama.PullProgress
}

// pullDoneMsg reports the terminal state of the pull goroutine.
type pullDoneMsg struct {
	err error
}

// =============================================================================
// RECOMMENDED MODELS
// =============================================================================

// RecommendedModel is a curated starter model shown in the pull view.
type RecommendedModel struct {
	Name        string
	Description string
}

// RecommendedModels lists good starting points for new installs.
var RecommendedModels = []RecommendedModel{
	{"llama3.2", "general chat, 3B, fast on most hardware"},
	{"llama3.2:1b", "smallest llama, runs on modest machines"},
	{"mistral", "general chat, 7B, strong quality"},
	{"qwen2.5-coder", "code assistance, 7B"},
	{"phi3", "compact general model from a 3.8B family"},
}

// =============================================================================
// PULL MODEL VIEW
// =============================================================================

// PullModel is the pull-a-model view.
type PullModel struct {
	client *ollama.Client
	theme  *styles.Theme

	input  textinput.Model
	cursor int // recommended list; -1 means free-form input

	progress *components.PullProgressView
	progCh   chan ollama.PullProgress
	doneCh   chan error
	cancel   context.CancelFunc
	pulling  bool

	errMsg    string
	statusMsg string
	width     int
}

// NewPull creates the pull view.
func NewPull(client *ollama.Client, theme *styles.Theme) PullModel {
	ti := textinput.New()
	ti.Placeholder = "model name (e.g. llama3.2)"
	ti.Focus()

	return PullModel{
		client: client,
		theme:  theme,
		input:  ti,
		cursor: -1,
	}
}

// Init implements tea.Model.
func (m PullModel) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m PullModel) Update(msg tea.Msg) (PullModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.progress != nil {
			m.progress.Width = msg.Width - 4
		}
		return m, nil

	case pullProgressMsg:
		if m.progress != nil {
			m.progress.Update(msg.progress)
		}
		return m, m.waitForPull()

	case pullDoneMsg:
		return m.handlePullDone(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m PullModel) handleKey(msg tea.KeyMsg) (PullModel, tea.Cmd) {
	if m.pulling {
		switch msg.String() {
		case "esc", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "esc", "ctrl+c":
		return m, func() tea.Msg { return BackMsg{} }

	case "up":
		if m.cursor > -1 {
			m.cursor--
			m.applyRecommended()
		}
		return m, nil

	case "down":
		if m.cursor < len(RecommendedModels)-1 {
			m.cursor++
			m.applyRecommended()
		}
		return m, nil

	case "enter":
		name := strings.TrimSpace(m.input.Value())
		if name == "" {
			m.errMsg = "enter a model name"
			return m, nil
		}
		return m.startPull(name)
	}

	// Free-form typing leaves the recommended list.
	m.cursor = -1
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyRecommended copies the highlighted recommendation into the input.
func (m *PullModel) applyRecommended() {
	if m.cursor >= 0 && m.cursor < len(RecommendedModels) {
		m.input.SetValue(RecommendedModels[m.cursor].Name)
		m.input.CursorEnd()
	}
}

// =============================================================================
// PULL EXECUTION
// =============================================================================

// startPull launches the download in a background goroutine.
func (m PullModel) startPull(name string) (PullModel, tea.Cmd) {
	m.pulling = true
	m.errMsg = ""
	m.statusMsg = ""
	m.progress = components.NewPullProgressView(name)
	if m.width > 0 {
		m.progress.Width = m.width - 4
	}
	m.progCh = make(chan ollama.PullProgress, 64)
	m.doneCh = make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	client := m.client
	progCh := m.progCh
	doneCh := m.doneCh

	go func() {
		err := client.PullModel(ctx, name, func(p ollama.PullProgress) {
			// Drop updates rather than stall the download stream.
			select {
			case progCh <- p:
			default:
			}
		})
		doneCh <- err
	}()

	return m, m.waitForPull()
}

// waitForPull returns the next progress update or the terminal result.
func (m PullModel) waitForPull() tea.Cmd {
	progCh := m.progCh
	doneCh := m.doneCh
	return func() tea.Msg {
		select {
		case p := <-progCh:
			return pullProgressMsg{progress: p}
		case err := <-doneCh:
			return pullDoneMsg{err: err}
		}
	}
}

func (m PullModel) handlePullDone(msg pullDoneMsg) PullModel {
	m.pulling = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if msg.err != nil {
		if m.progress != nil {
			m.progress.Fail(pullErrorText(msg.err))
		}
		m.errMsg = pullErrorText(msg.err)
		return m
	}

	m.statusMsg = "model ready"
	return m
}

func pullErrorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "pull cancelled"
	case ollama.IsNotRunning(err):
		return "Ollama is not running"
	default:
		return err.Error()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m PullModel) View() string {
	title := m.theme.HeaderTitle.Render("Pull a model")

	inputView := m.theme.InputContainer.Render(
		m.theme.InputPrompt.Render("pull> ") + m.input.View())

	var recs []string
	recs = append(recs, m.theme.HeaderSubtitle.Render("Recommended"))
	for i, rec := range RecommendedModels {
		line := rec.Name + "  " + m.theme.MenuHint.Render(rec.Description)
		if i == m.cursor {
			recs = append(recs, m.theme.MenuItemSelected.Render("> "+line))
		} else {
			recs = append(recs, m.theme.MenuItem.Render("  "+line))
		}
	}
	recView := lipgloss.JoinVertical(lipgloss.Left, recs...)

	var status string
	switch {
	case m.pulling && m.progress != nil:
		status = m.progress.View() + "\n" +
			m.theme.MenuHint.Render("esc cancel")
	case m.errMsg != "":
		status = styles.RenderError(m.errMsg)
	case m.statusMsg != "":
		status = styles.RenderSuccess(m.statusMsg)
	default:
		status = m.theme.MenuHint.Render("up/down pick a recommendation  |  enter pull  |  esc back")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title, "", inputView, "", recView, "", status)
}
