// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/ui/styles"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// PULL VIEW TESTS
// =============================================================================

func TestPullRecommendedSelection(t *testing.T) {
	m := NewPull(ollama.NewClient(), styles.NewTheme("dark"))

	if m.cursor != -1 {
		t.Fatal("cursor should start on free-form input")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 0 {
		t.Fatalf("cursor = %d after down", m.cursor)
	}
	if m.input.Value() != RecommendedModels[0].Name {
		t.Errorf("input = %q, want first recommendation", m.input.Value())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.input.Value() != RecommendedModels[1].Name {
		t.Errorf("input = %q, want second recommendation", m.input.Value())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.cursor != -1 {
		t.Errorf("cursor = %d, should return to free-form", m.cursor)
	}
}

func TestPullEmptyNameRejected(t *testing.T) {
	m := NewPull(ollama.NewClient(), styles.NewTheme("dark"))

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.pulling {
		t.Error("empty name must not start a pull")
	}
	if cmd != nil {
		t.Error("empty name should not produce a command")
	}
	if m.errMsg == "" {
		t.Error("empty name should set an error")
	}
}

func TestPullEscGoesBack(t *testing.T) {
	m := NewPull(ollama.NewClient(), styles.NewTheme("dark"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc should produce a command")
	}
	if _, ok := cmd().(BackMsg); !ok {
		t.Errorf("msg = %T, want BackMsg", cmd())
	}
}

func TestPullDoneError(t *testing.T) {
	m := NewPull(ollama.NewClient(), styles.NewTheme("dark"))
	m.pulling = true
	m.progress = nil

	m = m.handlePullDone(pullDoneMsg{err: errors.New("manifest not found")})
	if m.pulling {
		t.Error("pull should stop on error")
	}
	if !strings.Contains(m.errMsg, "manifest not found") {
		t.Errorf("errMsg = %q", m.errMsg)
	}
}

func TestPullErrorText(t *testing.T) {
	if got := pullErrorText(context.Canceled); got != "pull cancelled" {
		t.Errorf("cancelled text = %q", got)
	}
	if got := pullErrorText(ollama.ErrNotRunning); got != "Ollama is not running" {
		t.Errorf("not running text = %q", got)
	}
}

func TestPullViewShowsRecommendations(t *testing.T) {
	m := NewPull(ollama.NewClient(), styles.NewTheme("dark"))

	view := m.View()
	for _, rec := range RecommendedModels {
		if !strings.Contains(view, rec.Name) {
			t.Errorf("view missing recommendation %q", rec.Name)
		}
	}
}

// =============================================================================
// REMOVE VIEW TESTS
// =============================================================================

func newRemoveWithModels() RemoveModel {
	m := NewRemove(ollama.NewClient(), styles.NewTheme("dark"))
	m, _ = m.Update(removeListMsg{models: []ollama.ModelInfo{
		{Name: "llama3.2:latest", Size: 2_000_000_000},
		{Name: "mistral:latest", Size: 4_000_000_000},
	}})
	return m
}

func TestRemoveRequiresConfirmation(t *testing.T) {
	m := newRemoveWithModels()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.dialog.Visible() {
		t.Fatal("enter should open the confirm dialog")
	}

	// Declining leaves the model list untouched.
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("declined removal should not issue a delete")
	}
	if m.removing {
		t.Error("declined removal should not enter removing state")
	}
}

func TestRemoveDoneNotFound(t *testing.T) {
	m := newRemoveWithModels()

	m, cmd := m.Update(removeDoneMsg{name: "ghost", err: ollama.ErrModelNotFound})
	if !strings.Contains(m.errMsg, "not installed") {
		t.Errorf("errMsg = %q", m.errMsg)
	}
	if cmd == nil {
		t.Error("remove completion should refresh the list")
	}
}

func TestRemoveDoneSuccess(t *testing.T) {
	m := newRemoveWithModels()

	m, _ = m.Update(removeDoneMsg{name: "mistral:latest"})
	if m.statusMsg != "removed mistral:latest" {
		t.Errorf("statusMsg = %q", m.statusMsg)
	}
}

func TestRemoveCursorClamps(t *testing.T) {
	m := newRemoveWithModels()

	m, _ = m.Update(keyMsg("j"))
	m, _ = m.Update(keyMsg("j"))
	if m.cursor != 1 {
		t.Errorf("cursor = %d, should clamp to last model", m.cursor)
	}

	// List shrinks under the cursor.
	m, _ = m.Update(removeListMsg{models: []ollama.ModelInfo{
		{Name: "llama3.2:latest", Size: 2_000_000_000},
	}})
	if m.cursor != 0 {
		t.Errorf("cursor = %d after shrink", m.cursor)
	}
}
