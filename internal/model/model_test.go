// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"testing"
)

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewSession(t *testing.T) {
	s := NewSession("llama3.2")

	if s.Model != "llama3.2" {
		t.Errorf("Model = %q, want %q", s.Model, "llama3.2")
	}
	if !s.IsEmpty() {
		t.Error("new session should be empty")
	}
	if s.Dirty {
		t.Error("new session should not be dirty")
	}
	if s.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestAppendMessage(t *testing.T) {
	s := NewSession("test")

	msg, err := s.AppendMessage(RoleUser, "hello")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if msg.Role != RoleUser || msg.Content != "hello" {
		t.Errorf("message = {%s %q}, want {user hello}", msg.Role, msg.Content)
	}
	if !s.Dirty {
		t.Error("session should be dirty after append")
	}
	if s.MessageCount() != 1 {
		t.Errorf("MessageCount = %d, want 1", s.MessageCount())
	}
}

func TestAppendMessageInvalidRole(t *testing.T) {
	s := NewSession("test")

	_, err := s.AppendMessage(Role("robot"), "hello")
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("err = %v, want ErrInvalidRole", err)
	}
	if s.MessageCount() != 0 {
		t.Error("session should be unchanged on error")
	}
}

func TestAppendMessageEmptyContent(t *testing.T) {
	s := NewSession("test")

	_, err := s.AppendMessage(RoleUser, "")
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
	if s.MessageCount() != 0 {
		t.Error("session should be unchanged on error")
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	s := NewSession("test")

	// Strict alternation is not required; order is.
	contents := []struct {
		role Role
		text string
	}{
		{RoleUser, "one"},
		{RoleUser, "two"},
		{RoleAssistant, "three"},
		{RoleUser, "four"},
	}
	for _, c := range contents {
		if _, err := s.AppendMessage(c.role, c.text); err != nil {
			t.Fatalf("AppendMessage(%s, %q) failed: %v", c.role, c.text, err)
		}
	}

	for i, c := range contents {
		if s.Messages[i].Content != c.text || s.Messages[i].Role != c.role {
			t.Errorf("Messages[%d] = {%s %q}, want {%s %q}",
				i, s.Messages[i].Role, s.Messages[i].Content, c.role, c.text)
		}
	}
}

// =============================================================================
// STREAMING MESSAGE TESTS
// =============================================================================

func TestStreamingAccumulation(t *testing.T) {
	s := NewSession("test")
	s.AppendUserMessage("hi")

	msg := s.BeginAssistantMessage()
	for _, frag := range []string{"Hel", "lo", " world"} {
		s.AppendToLast(frag)
	}

	if msg.DisplayContent() != "Hello world" {
		t.Errorf("streaming content = %q, want %q", msg.DisplayContent(), "Hello world")
	}

	stats := NewStatistics()
	stats.Finalize(3)
	s.FinalizeLast(stats)

	if msg.IsStreaming {
		t.Error("message should not be streaming after finalize")
	}
	if msg.Content != "Hello world" {
		t.Errorf("final content = %q, want %q", msg.Content, "Hello world")
	}
	if s.MessageCount() != 2 {
		t.Errorf("MessageCount = %d, want 2", s.MessageCount())
	}
}

func TestDiscardLast(t *testing.T) {
	s := NewSession("test")
	s.AppendUserMessage("hi")
	s.BeginAssistantMessage()
	s.AppendToLast("partial resp")

	if !s.DiscardLast() {
		t.Fatal("DiscardLast should remove the streaming message")
	}
	if s.MessageCount() != 1 {
		t.Errorf("MessageCount = %d, want 1 (user message only)", s.MessageCount())
	}

	// Second discard is a no-op: the trailing message is not streaming.
	if s.DiscardLast() {
		t.Error("DiscardLast on finalized history should report false")
	}
}

func TestFinalizeLastIgnoresNonStreaming(t *testing.T) {
	s := NewSession("test")
	s.AppendUserMessage("hi")
	s.FinalizeLast(nil) // must not panic or mutate

	if s.Messages[0].Content != "hi" {
		t.Errorf("content = %q, want %q", s.Messages[0].Content, "hi")
	}
}

// =============================================================================
// CONVERSION TESTS
// =============================================================================

func TestToOllamaMessages(t *testing.T) {
	s := NewSession("test")
	s.AppendUserMessage("question")
	s.AppendMessage(RoleAssistant, "answer")

	// An in-flight stream must not be sent back to the runtime.
	s.BeginAssistantMessage()
	s.AppendToLast("in flight")

	msgs := s.ToOllamaMessages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "question" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "answer" {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
}

// =============================================================================
// DISPLAY TESTS
// =============================================================================

func TestPreview(t *testing.T) {
	s := NewSession("test")
	s.AppendUserMessage("first line\nsecond line")

	got := s.Preview(50)
	if got != "first line second line" {
		t.Errorf("Preview = %q", got)
	}
}

func TestMessagePreviewTruncation(t *testing.T) {
	m := NewUserMessage("a very long message that should get truncated somewhere")
	got := m.Preview(20)
	if len([]rune(got)) > 20 {
		t.Errorf("Preview longer than limit: %q", got)
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAssistant, RoleSystem} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("tool").Valid() {
		t.Error("unknown role should be invalid")
	}
}

func TestClone(t *testing.T) {
	s := NewSession("test")
	s.AppendUserMessage("hello")
	s.Name = "demo"

	clone := s.Clone()
	clone.Messages[0].Content = "mutated"

	if s.Messages[0].Content != "hello" {
		t.Error("clone should not alias original messages")
	}
	if clone.Name != "demo" || clone.Model != "test" {
		t.Errorf("clone metadata = {%q %q}", clone.Name, clone.Model)
	}
}
