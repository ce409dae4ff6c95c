// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/termai/termai-tui/internal/model"
	"github.com/termai/termai-tui/internal/ollama"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches tokens for efficient rendering. Tokens accumulate
// until either the batch size threshold is reached or enough time has passed
// since the last flush. Rendering once per token flickers and burns CPU;
// batching keeps repaints at the configured frame rate.
//
// Thread-safety: the streaming goroutine writes while the Bubble Tea loop
// flushes, so every operation takes the mutex.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize  int
	maxFPS     int
	minFlushMs time.Duration
}

// NewStreamingBuffer creates a streaming buffer capped at the given frame
// rate. Out-of-range values fall back to 30fps.
func NewStreamingBuffer(maxFPS int) *StreamingBuffer {
	const defaultBatchSize = 15

	if maxFPS <= 0 || maxFPS > 120 {
		maxFPS = 30
	}

	return &StreamingBuffer{
		batchSize:  defaultBatchSize,
		maxFPS:     maxFPS,
		minFlushMs: time.Duration(1000/maxFPS) * time.Millisecond,
		lastFlush:  time.Now(),
	}
}

// Write adds a token to the buffer. Called from the streaming goroutine.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns accumulated content if a flush threshold has been reached.
// Called from the Bubble Tea loop on each stream tick.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if !sb.shouldFlushLocked() {
		return "", false
	}
	return sb.drainLocked()
}

// ForceFlush returns all buffered content regardless of thresholds.
// Used when a stream completes so no trailing tokens are lost.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.drainLocked()
}

// Reset clears the buffer without flushing. Used when a stream is cancelled.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of tokens waiting to be flushed.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

func (sb *StreamingBuffer) shouldFlushLocked() bool {
	if sb.buffer.Len() == 0 {
		return false
	}
	if sb.tokenCount >= sb.batchSize {
		return true
	}
	return time.Since(sb.lastFlush) >= sb.minFlushMs
}

func (sb *StreamingBuffer) drainLocked() (string, bool) {
	if sb.buffer.Len() == 0 {
		return "", false
	}

	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content, true
}

// =============================================================================
// STREAM MESSAGES AND COMMANDS
// =============================================================================

// StreamTickMsg drives buffer flushes while a stream is active.
type StreamTickMsg struct {
	Time time.Time
}

// streamDoneMsg reports the terminal state of the streaming goroutine.
type streamDoneMsg struct {
	err error
}

// streamTickCmd schedules the next flush tick for the given frame rate.
func streamTickCmd(maxFPS int) tea.Cmd {
	if maxFPS <= 0 || maxFPS > 120 {
		maxFPS = 30
	}
	interval := time.Duration(1000/maxFPS) * time.Millisecond
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// waitForStreamDone blocks on the done channel and converts the result into
// a message for the Update loop.
func waitForStreamDone(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return streamDoneMsg{err: <-done}
	}
}

// statsFromStream converts stream statistics to session statistics.
func statsFromStream(ss *ollama.StreamStats) *model.Statistics {
	if ss == nil {
		return nil
	}
	total := ss.TotalDuration
	if total == 0 && !ss.EndTime.IsZero() {
		total = ss.EndTime.Sub(ss.StartTime)
	}
	return &model.Statistics{
		StartTime:        ss.StartTime,
		FirstTokenTime:   ss.FirstTokenTime,
		EndTime:          ss.EndTime,
		PromptTokens:     ss.PromptTokens,
		CompletionTokens: ss.CompletionTokens,
		TTFT:             ss.TTFT,
		TotalDuration:    total,
		TokensPerSecond:  ss.TokensPerSecond,
	}
}
