// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package menu

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/ui/styles"
)

func newTestMenu() Model {
	return New(ollama.NewClient(), styles.NewTheme("dark"))
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCursorMovement(t *testing.T) {
	m := newTestMenu()

	if m.cursor != 0 {
		t.Fatal("cursor should start at 0")
	}

	m, _ = m.Update(keyMsg("k"))
	if m.cursor != 0 {
		t.Error("cursor should not move above the first entry")
	}

	for i := 0; i < 10; i++ {
		m, _ = m.Update(keyMsg("j"))
	}
	if m.cursor != len(m.entries)-1 {
		t.Errorf("cursor = %d, should clamp to last entry", m.cursor)
	}
}

func TestEnterEmitsSelection(t *testing.T) {
	m := newTestMenu()
	m, _ = m.Update(keyMsg("j")) // Browse saved sessions

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should produce a command")
	}
	sel, ok := cmd().(SelectionMsg)
	if !ok {
		t.Fatalf("msg = %T, want SelectionMsg", cmd())
	}
	if sel.Action != ActionBrowseSessions {
		t.Errorf("Action = %v, want ActionBrowseSessions", sel.Action)
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestMenu()

	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should produce a command")
	}
	sel := cmd().(SelectionMsg)
	if sel.Action != ActionQuit {
		t.Errorf("Action = %v, want ActionQuit", sel.Action)
	}
}

func TestModelsLoaded(t *testing.T) {
	m := newTestMenu()

	m = m.handleModelsLoaded(modelsLoadedMsg{
		models: []ollama.ModelInfo{
			{Name: "llama3.2:latest", Size: 2_000_000_000, ModifiedAt: time.Now()},
		},
	})

	if !m.modelsReady {
		t.Error("models should be marked ready")
	}
	if len(m.modelTable.Rows()) != 1 {
		t.Errorf("rows = %d", len(m.modelTable.Rows()))
	}
	if !strings.Contains(m.View(), "llama3.2:latest") {
		t.Error("view missing model name")
	}
}

func TestModelsLoadError(t *testing.T) {
	m := newTestMenu()

	m = m.handleModelsLoaded(modelsLoadedMsg{err: errors.New("connection refused")})
	if m.modelsErr == "" {
		t.Error("load error should be surfaced")
	}

	m = m.handleModelsLoaded(modelsLoadedMsg{err: ollama.ErrNotRunning})
	if m.modelsErr != "Ollama is not running" {
		t.Errorf("modelsErr = %q", m.modelsErr)
	}
}
