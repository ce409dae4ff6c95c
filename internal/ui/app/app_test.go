// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/termai/termai-tui/internal/config"
	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/storage"
	"github.com/termai/termai-tui/internal/ui/chat"
	"github.com/termai/termai-tui/internal/ui/menu"
)

func newTestApp(t *testing.T) Model {
	t.Helper()

	store, err := storage.NewSessionStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	m := New(ollama.NewClient(), store, config.Default())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func TestMenuSelectionRouting(t *testing.T) {
	m := newTestApp(t)

	updated, _ := m.Update(menu.SelectionMsg{Action: menu.ActionNewChat})
	m = updated.(Model)
	if m.state != stateChat {
		t.Errorf("state = %v, want chat", m.state)
	}

	updated, _ = m.Update(chat.BackToMenuMsg{})
	m = updated.(Model)
	if m.state != stateMenu {
		t.Errorf("state = %v, want menu after back", m.state)
	}

	updated, _ = m.Update(menu.SelectionMsg{Action: menu.ActionBrowseSessions})
	m = updated.(Model)
	if m.state != stateSessions {
		t.Errorf("state = %v, want sessions", m.state)
	}
}

func TestQuitSelection(t *testing.T) {
	m := newTestApp(t)

	_, cmd := m.Update(menu.SelectionMsg{Action: menu.ActionQuit})
	if cmd == nil {
		t.Fatal("quit should produce a command")
	}
}

func TestRuntimeErrorBanner(t *testing.T) {
	m := newTestApp(t)

	updated, _ := m.Update(runtimeReadyMsg{err: ollama.ErrNotRunning})
	m = updated.(Model)
	if m.runtimeErr == "" {
		t.Error("runtime failure should set the banner")
	}

	updated, _ = m.Update(runtimeReadyMsg{})
	m = updated.(Model)
	if m.runtimeErr != "" {
		t.Error("healthy runtime should clear the banner")
	}
}
