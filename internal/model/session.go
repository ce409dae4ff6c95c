// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"errors"
	"time"

	"github.com/termai/termai-tui/internal/ollama"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidRole is returned when appending a message with an
	// unrecognized role.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrEmptyContent is returned when appending a message with no content.
	// Blank messages are rejected uniformly: a user cannot submit one and an
	// empty assistant response is treated as a failed turn by the caller.
	ErrEmptyContent = errors.New("empty message content")
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds one chat conversation: an ordered message sequence plus
// identity metadata. A session lives in memory during an active chat and
// becomes durable only when the store saves it under a name.
type Session struct {
	// Identity. Name is empty until the user saves; the store treats it as
	// the unique identifier.
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Model used for generation (e.g. "llama3.2:latest").
	Model string `json:"model"`

	// Messages in exact insertion order.
	Messages []*Message `json:"messages"`

	// Dirty is true when the session has appends not yet persisted.
	// Not part of the stored record.
	Dirty bool `json:"-"`
}

// NewSession creates a new empty session tagged with the current time.
// No side effects until the store saves it.
func NewSession(modelName string) *Session {
	now := time.Now()
	return &Session{
		CreatedAt: now,
		UpdatedAt: now,
		Model:     modelName,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AppendMessage validates and appends a message with the given role and
// content. Returns ErrInvalidRole or ErrEmptyContent on bad input; the
// session is unchanged on error.
func (s *Session) AppendMessage(role Role, content string) (*Message, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	msg := NewMessage(role, content)
	s.append(msg)
	return msg, nil
}

// AppendUserMessage appends a user message.
func (s *Session) AppendUserMessage(content string) (*Message, error) {
	return s.AppendMessage(RoleUser, content)
}

// BeginAssistantMessage appends an empty streaming assistant message and
// returns it. The caller feeds it tokens and must either finalize it
// (completed stream) or discard it (failed stream).
func (s *Session) BeginAssistantMessage() *Message {
	msg := NewStreamingMessage()
	s.append(msg)
	return msg
}

// FinalizeLast finalizes the trailing streaming message with statistics.
func (s *Session) FinalizeLast(stats *Statistics) {
	last := s.LastMessage()
	if last != nil && last.IsStreaming {
		last.FinalizeStream(stats)
		s.UpdatedAt = time.Now()
	}
}

// DiscardLast removes the trailing streaming message, if any. Called when a
// stream fails or is cancelled: the partial buffer never becomes part of the
// session. Reports whether a message was removed.
func (s *Session) DiscardLast() bool {
	last := s.LastMessage()
	if last == nil || !last.IsStreaming {
		return false
	}
	s.Messages = s.Messages[:len(s.Messages)-1]
	return true
}

// AppendToLast appends a token to the trailing streaming message.
func (s *Session) AppendToLast(token string) {
	last := s.LastMessage()
	if last != nil && last.IsStreaming {
		last.AppendToken(token)
	}
}

// LastMessage returns the most recent message, or nil if empty.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// MessageCount returns the number of messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty reports whether the session has no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// append adds a message and updates bookkeeping.
func (s *Session) append(msg *Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
	s.Dirty = true
}

// MarkSaved clears the dirty flag after a successful save.
func (s *Session) MarkSaved() {
	s.Dirty = false
}

// =============================================================================
// RUNTIME CONVERSION
// =============================================================================

// ToOllamaMessages converts the session history to the runtime wire format.
// Streaming messages are skipped: only completed turns travel to the model.
func (s *Session) ToOllamaMessages() []ollama.Message {
	messages := make([]ollama.Message, 0, len(s.Messages))
	for _, msg := range s.Messages {
		if msg.IsStreaming {
			continue
		}
		if msg.Content == "" {
			continue
		}
		messages = append(messages, ollama.Message{
			Role:    msg.Role.String(),
			Content: msg.Content,
		})
	}
	return messages
}

// =============================================================================
// DISPLAY HELPERS
// =============================================================================

// Preview returns a short preview of the session, derived from the first
// message.
func (s *Session) Preview(maxLen int) string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[0].Preview(maxLen)
}

// DisplayName returns the saved name, or a placeholder for unsaved sessions.
func (s *Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return "(unsaved)"
}

// Clone returns a deep copy of the session. Used when resuming a saved
// session so edits to the live copy never alias the loaded record.
func (s *Session) Clone() *Session {
	clone := &Session{
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Model:     s.Model,
		Messages:  make([]*Message, len(s.Messages)),
	}
	for i, msg := range s.Messages {
		msgCopy := *msg
		clone.Messages[i] = &msgCopy
	}
	return clone
}
