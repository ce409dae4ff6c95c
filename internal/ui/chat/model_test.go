// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/termai/termai-tui/internal/config"
	"github.com/termai/termai-tui/internal/model"
	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/storage"
	"github.com/termai/termai-tui/internal/ui/styles"
)

func newTestModel(t *testing.T) Model {
	t.Helper()

	store, err := storage.NewSessionStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	cfg := config.Default()
	theme := styles.NewTheme("dark")
	sess := model.NewSession("llama3.2")

	m := New(ollama.NewClient(), store, cfg, theme, sess)
	m = m.handleResize(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

func typeAndEnter(m Model, text string) (Model, tea.Cmd) {
	m.input.SetValue(text)
	return m.handleSubmit()
}

// =============================================================================
// COMMAND DISPATCH TESTS
// =============================================================================

func TestClearCommandResetsSession(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.session.AppendUserMessage("hello"); err != nil {
		t.Fatal(err)
	}

	m, _ = typeAndEnter(m, "/clear")

	if m.session.MessageCount() != 0 {
		t.Errorf("MessageCount = %d after /clear", m.session.MessageCount())
	}
	if m.session.Model != "llama3.2" {
		t.Error("model should survive /clear")
	}
}

func TestSaveCommandRejectsEmptySession(t *testing.T) {
	m := newTestModel(t)

	m, _ = typeAndEnter(m, "/save notes")

	if m.errMsg == "" {
		t.Error("saving an empty session should set an error")
	}
}

func TestUnknownCommandSetsError(t *testing.T) {
	m := newTestModel(t)

	m, _ = typeAndEnter(m, "/frobnicate")

	if m.errMsg == "" {
		t.Error("unknown command should set an error")
	}
	if m.session.MessageCount() != 0 {
		t.Error("unknown command must not reach the transcript")
	}
}

func TestHelpToggles(t *testing.T) {
	m := newTestModel(t)

	m, _ = typeAndEnter(m, "/help")
	if !m.showHelp {
		t.Error("/help should show help")
	}
	m, _ = typeAndEnter(m, "/help")
	if m.showHelp {
		t.Error("second /help should hide help")
	}
}

// =============================================================================
// MULTI-LINE MODE TESTS
// =============================================================================

func TestMultiLineAccumulates(t *testing.T) {
	m := newTestModel(t)

	m, _ = typeAndEnter(m, "/multi-start")
	if !m.multiMode {
		t.Fatal("/multi-start should enter multi-line mode")
	}

	m, _ = typeAndEnter(m, "first line")
	m, _ = typeAndEnter(m, "second line")

	if len(m.multiLines) != 2 {
		t.Errorf("multiLines = %v", m.multiLines)
	}
	if m.session.MessageCount() != 0 {
		t.Error("lines must not be sent until /multi-end")
	}
}

func TestMultiLineEndEmpty(t *testing.T) {
	m := newTestModel(t)

	m, _ = typeAndEnter(m, "/multi-start")
	m, _ = typeAndEnter(m, "/multi-end")

	if m.multiMode {
		t.Error("/multi-end should leave multi-line mode")
	}
	if m.errMsg == "" {
		t.Error("ending with no lines should report an error")
	}
	if m.session.MessageCount() != 0 {
		t.Error("empty multi-line message must not be sent")
	}
}

func TestMultiEndWithoutStart(t *testing.T) {
	m := newTestModel(t)

	m, _ = typeAndEnter(m, "/multi-end")

	if m.errMsg == "" {
		t.Error("/multi-end outside multi-line mode should error")
	}
}

// =============================================================================
// STREAMING GUARD TESTS
// =============================================================================

// startFakeStream puts the model into the mid-stream state: a user turn, an
// assistant placeholder holding partial output, and an open accumulator.
func startFakeStream(t *testing.T, m Model, partial string) Model {
	t.Helper()

	if _, err := m.session.AppendUserMessage("question"); err != nil {
		t.Fatal(err)
	}
	m.session.BeginAssistantMessage()
	if partial != "" {
		m.session.AppendToLast(partial)
	}
	m.acc = ollama.NewStreamAccumulator()
	if partial != "" {
		m.acc.Add(ollama.StreamChunk{Content: partial})
	}
	m.streaming = true
	return m
}

func TestSubmitBlockedWhileStreaming(t *testing.T) {
	m := newTestModel(t)
	m = startFakeStream(t, m, "partial")
	before := m.session.MessageCount()

	m, cmd := typeAndEnter(m, "second question")

	if cmd != nil {
		t.Error("mid-stream submit must not launch a second stream")
	}
	if m.session.MessageCount() != before {
		t.Errorf("MessageCount = %d, want %d (no new turns mid-stream)",
			m.session.MessageCount(), before)
	}
	if m.errMsg == "" {
		t.Error("mid-stream submit should explain the refusal")
	}
	if m.input.Value() != "second question" {
		t.Errorf("input = %q, typed text should survive the refusal", m.input.Value())
	}
}

func TestCommandsStillDispatchWhileStreaming(t *testing.T) {
	m := newTestModel(t)
	m = startFakeStream(t, m, "partial")

	m, _ = typeAndEnter(m, "/help")
	if !m.showHelp {
		t.Error("/help should still work while streaming")
	}
}

func TestMultiEndBlockedWhileStreaming(t *testing.T) {
	m := newTestModel(t)
	m = startFakeStream(t, m, "partial")
	m.multiMode = true
	m.multiLines = []string{"buffered line"}
	before := m.session.MessageCount()

	m, cmd := typeAndEnter(m, "/multi-end")

	if cmd != nil {
		t.Error("/multi-end mid-stream must not launch a second stream")
	}
	if m.session.MessageCount() != before {
		t.Errorf("MessageCount = %d, want %d", m.session.MessageCount(), before)
	}
}

// =============================================================================
// STREAM COMPLETION TESTS
// =============================================================================

func TestStreamDoneFailureDiscardsPartial(t *testing.T) {
	m := newTestModel(t)
	m = startFakeStream(t, m, "partial answer")

	m, _ = m.handleStreamDone(streamDoneMsg{err: ollama.ErrStreamInterrupted})

	if m.streaming {
		t.Error("failed stream should leave streaming state")
	}
	if m.session.MessageCount() != 1 {
		t.Fatalf("MessageCount = %d, partial assistant turn must be discarded",
			m.session.MessageCount())
	}
	if last := m.session.LastMessage(); last.Role != model.RoleUser {
		t.Errorf("last role = %v, want the user turn", last.Role)
	}
	if m.errMsg == "" {
		t.Error("failed stream should surface an error message")
	}
}

func TestStreamDoneCancelledDiscardsPartial(t *testing.T) {
	m := newTestModel(t)
	m = startFakeStream(t, m, "partial answer")

	m, _ = m.handleStreamDone(streamDoneMsg{err: context.Canceled})

	if m.session.MessageCount() != 1 {
		t.Fatalf("MessageCount = %d after cancel", m.session.MessageCount())
	}
	if m.errMsg != "generation cancelled" {
		t.Errorf("errMsg = %q", m.errMsg)
	}
}

func TestStreamDoneCompletedFinalizes(t *testing.T) {
	m := newTestModel(t)
	m = startFakeStream(t, m, "the answer")
	m.acc.Add(ollama.StreamChunk{Done: true})

	m, _ = m.handleStreamDone(streamDoneMsg{})

	if m.session.MessageCount() != 2 {
		t.Fatalf("MessageCount = %d, want finalized assistant turn", m.session.MessageCount())
	}
	last := m.session.LastMessage()
	if last.IsStreaming {
		t.Error("completed stream should finalize the assistant turn")
	}
	if last.Content != "the answer" {
		t.Errorf("Content = %q", last.Content)
	}
	if m.errMsg != "" {
		t.Errorf("errMsg = %q on success", m.errMsg)
	}
}

// =============================================================================
// SAVE FLOW TESTS
// =============================================================================

func TestTrySaveAndResave(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.session.AppendUserMessage("keep this"); err != nil {
		t.Fatal(err)
	}

	m, _ = m.trySave("my notes")
	if m.session.Name != "my notes" {
		t.Errorf("Name = %q after save", m.session.Name)
	}
	if m.session.Dirty {
		t.Error("session should be clean after save")
	}

	// Saving again under its own name is a resave, not a conflict.
	m, _ = m.trySave("my notes")
	if m.mode == modeConfirmOverwrite {
		t.Error("resave under own name should not prompt for overwrite")
	}
}

func TestTrySaveDuplicatePromptsOverwrite(t *testing.T) {
	m := newTestModel(t)

	other := model.NewSession("llama3.2")
	if _, err := other.AppendUserMessage("occupies the name"); err != nil {
		t.Fatal(err)
	}
	if err := m.store.Save(other, "taken", false); err != nil {
		t.Fatal(err)
	}

	if _, err := m.session.AppendUserMessage("new content"); err != nil {
		t.Fatal(err)
	}

	m, _ = m.trySave("taken")
	if m.mode != modeConfirmOverwrite {
		t.Fatalf("mode = %v, want overwrite prompt", m.mode)
	}
	if m.pendingSaveName != "taken" {
		t.Errorf("pendingSaveName = %q", m.pendingSaveName)
	}

	m, _ = m.confirmOverwrite()
	loaded, err := m.store.Load("taken")
	if err != nil {
		t.Fatalf("load after overwrite: %v", err)
	}
	if loaded.Messages[0].Content != "new content" {
		t.Errorf("overwrite did not replace content: %q", loaded.Messages[0].Content)
	}
}

// =============================================================================
// EXIT FLOW TESTS
// =============================================================================

func TestExitCleanSessionSkipsPrompt(t *testing.T) {
	m := newTestModel(t)

	m, cmd := m.requestExit()
	if m.mode != modeChat {
		t.Error("clean session should not prompt")
	}
	if cmd == nil {
		t.Fatal("exit should produce a navigation command")
	}
	if _, ok := cmd().(BackToMenuMsg); !ok {
		t.Error("exit should emit BackToMenuMsg")
	}
}

func TestExitDirtySessionPrompts(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.session.AppendUserMessage("unsaved"); err != nil {
		t.Fatal(err)
	}

	m, _ = m.requestExit()
	if m.mode != modeConfirmExit {
		t.Errorf("mode = %v, want exit prompt", m.mode)
	}
	if !m.dialog.Visible() {
		t.Error("dialog should be visible")
	}
}
