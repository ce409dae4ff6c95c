// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app provides the root Bubble Tea model for the termai TUI.
//
// The root model owns the shared client, store, and theme, and routes
// between the main menu, the chat view, the session browser, and the model
// management views. Child views signal navigation with exported messages;
// everything else is forwarded to whichever view is active.
package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/termai/termai-tui/internal/config"
	"github.com/termai/termai-tui/internal/model"
	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/storage"
	"github.com/termai/termai-tui/internal/ui/chat"
	"github.com/termai/termai-tui/internal/ui/menu"
	"github.com/termai/termai-tui/internal/ui/models"
	"github.com/termai/termai-tui/internal/ui/sessions"
	"github.com/termai/termai-tui/internal/ui/styles"
)

// =============================================================================
// VIEW STATES
// =============================================================================

type viewState int

const (
	stateMenu viewState = iota
	stateChat
	stateSessions
	statePull
	stateRemove
)

// runtimeReadyMsg reports the startup health check.
type runtimeReadyMsg struct {
	err error
}

// =============================================================================
// ROOT MODEL
// =============================================================================

// Model is the root TUI model.
type Model struct {
	client *ollama.Client
	store  *storage.SessionStore
	cfg    *config.Config
	theme  *styles.Theme

	state viewState

	menu     menu.Model
	chat     chat.Model
	sessions sessions.Model
	pull     models.PullModel
	remove   models.RemoveModel

	runtimeErr string
	lastSize   tea.WindowSizeMsg
}

// New creates the root model.
func New(client *ollama.Client, store *storage.SessionStore, cfg *config.Config) Model {
	theme := styles.NewTheme(cfg.UI.Theme)

	return Model{
		client: client,
		store:  store,
		cfg:    cfg,
		theme:  theme,
		state:  stateMenu,
		menu:   menu.New(client, theme),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.menu.Init(), m.checkRuntime())
}

// checkRuntime verifies the runtime is reachable, starting it when
// auto-start is enabled.
func (m Model) checkRuntime() tea.Cmd {
	client := m.client
	autoStart := m.cfg.Ollama.AutoStart
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		var err error
		if autoStart {
			err = client.EnsureRunning(ctx)
		} else {
			err = client.CheckRunning(ctx)
		}
		return runtimeReadyMsg{err: err}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Children are created on demand; replaySize lays out new ones, so
		// only the menu and the active view need live resizes.
		m.lastSize = msg
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		cmds = append(cmds, cmd)
		switch m.state {
		case stateChat:
			m.chat, cmd = m.chat.Update(msg)
			cmds = append(cmds, cmd)
		case stateSessions:
			m.sessions, cmd = m.sessions.Update(msg)
			cmds = append(cmds, cmd)
		case statePull:
			m.pull, cmd = m.pull.Update(msg)
			cmds = append(cmds, cmd)
		case stateRemove:
			m.remove, cmd = m.remove.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case runtimeReadyMsg:
		if msg.err != nil {
			m.runtimeErr = "Ollama unavailable: " + msg.err.Error()
			if ollama.IsNotRunning(msg.err) {
				m.runtimeErr = "Ollama is not running. Start it with: ollama serve"
			}
		} else {
			m.runtimeErr = ""
		}
		return m, nil

	case menu.SelectionMsg:
		return m.handleMenuSelection(msg)

	case chat.BackToMenuMsg:
		m.state = stateMenu
		return m, m.menu.Init()

	case sessions.BackMsg:
		m.sessions.Close()
		m.state = stateMenu
		return m, m.menu.Init()

	case sessions.ResumeSessionMsg:
		m.sessions.Close()
		return m.openChat(msg.Session)

	case models.BackMsg:
		m.state = stateMenu
		return m, m.menu.Init()
	}

	return m.updateActive(msg)
}

func (m Model) handleMenuSelection(msg menu.SelectionMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case menu.ActionNewChat:
		return m.openChat(model.NewSession(m.defaultModel()))

	case menu.ActionBrowseSessions:
		m.sessions = sessions.New(m.store, m.theme)
		m.state = stateSessions
		return m, tea.Batch(m.sessions.Init(), m.replaySize())

	case menu.ActionPullModel:
		m.pull = models.NewPull(m.client, m.theme)
		m.state = statePull
		return m, tea.Batch(m.pull.Init(), m.replaySize())

	case menu.ActionRemoveModel:
		m.remove = models.NewRemove(m.client, m.theme)
		m.state = stateRemove
		return m, tea.Batch(m.remove.Init(), m.replaySize())

	case menu.ActionQuit:
		return m, tea.Quit
	}
	return m, nil
}

// openChat switches to the chat view with the given session.
func (m Model) openChat(sess *model.Session) (tea.Model, tea.Cmd) {
	m.chat = chat.New(m.client, m.store, m.cfg, m.theme, sess)
	m.state = stateChat
	return m, tea.Batch(m.chat.Init(), m.replaySize())
}

// defaultModel resolves the model for new sessions.
func (m Model) defaultModel() string {
	if m.cfg.DefaultModel != "" {
		return m.cfg.DefaultModel
	}
	return m.client.GetDefaultModel()
}

// replaySize re-delivers the last window size so a freshly created child can
// lay itself out.
func (m Model) replaySize() tea.Cmd {
	if m.lastSize.Width == 0 {
		return nil
	}
	size := m.lastSize
	return func() tea.Msg { return size }
}

// updateActive forwards a message to the active child view.
func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state {
	case stateMenu:
		m.menu, cmd = m.menu.Update(msg)
	case stateChat:
		m.chat, cmd = m.chat.Update(msg)
	case stateSessions:
		m.sessions, cmd = m.sessions.Update(msg)
	case statePull:
		m.pull, cmd = m.pull.Update(msg)
	case stateRemove:
		m.remove, cmd = m.remove.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch m.state {
	case stateMenu:
		body = m.menu.View()
	case stateChat:
		body = m.chat.View()
	case stateSessions:
		body = m.sessions.View()
	case statePull:
		body = m.pull.View()
	case stateRemove:
		body = m.remove.View()
	}

	if m.runtimeErr != "" && m.state == stateMenu {
		return styles.RenderWarning(m.runtimeErr) + "\n\n" + body
	}
	return body
}

// =============================================================================
// PROGRAM ENTRY
// =============================================================================

// Run starts the TUI and blocks until it exits.
func Run(client *ollama.Client, store *storage.SessionStore, cfg *config.Config) error {
	program := tea.NewProgram(New(client, store, cfg), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
