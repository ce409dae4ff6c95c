// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"

	"github.com/termai/termai-tui/internal/ollama"
)

// =============================================================================
// STREAMING BUFFER TESTS
// =============================================================================

func TestStreamingBufferBatchThreshold(t *testing.T) {
	sb := NewStreamingBuffer(30)

	// Below the batch size and inside the flush window: no flush yet.
	sb.Write("a")
	if _, ok := sb.Flush(); ok {
		t.Error("single token should not flush immediately")
	}

	for i := 0; i < 20; i++ {
		sb.Write("x")
	}
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("batch threshold should trigger a flush")
	}
	if content != "a"+"xxxxxxxxxxxxxxxxxxxx" {
		t.Errorf("flushed content = %q", content)
	}
	if sb.Pending() != 0 {
		t.Errorf("Pending = %d after flush", sb.Pending())
	}
}

func TestStreamingBufferTimeThreshold(t *testing.T) {
	sb := NewStreamingBuffer(30)

	sb.Write("hello")
	time.Sleep(40 * time.Millisecond) // past the 33ms window at 30fps

	content, ok := sb.Flush()
	if !ok {
		t.Fatal("time threshold should trigger a flush")
	}
	if content != "hello" {
		t.Errorf("flushed content = %q", content)
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBuffer(30)

	sb.Write("tail")
	content, ok := sb.ForceFlush()
	if !ok || content != "tail" {
		t.Errorf("ForceFlush = %q, %v", content, ok)
	}

	if _, ok := sb.ForceFlush(); ok {
		t.Error("empty buffer should not force flush")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer(30)

	sb.Write("discarded")
	sb.Reset()

	if sb.Pending() != 0 {
		t.Error("Reset should clear pending tokens")
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("Reset should leave nothing to flush")
	}
}

func TestStreamingBufferFPSFallback(t *testing.T) {
	for _, fps := range []int{0, -1, 500} {
		sb := NewStreamingBuffer(fps)
		if sb.maxFPS != 30 {
			t.Errorf("NewStreamingBuffer(%d).maxFPS = %d, want 30", fps, sb.maxFPS)
		}
	}
}

// =============================================================================
// STATS CONVERSION TESTS
// =============================================================================

func TestStatsFromStream(t *testing.T) {
	if statsFromStream(nil) != nil {
		t.Error("nil stream stats should convert to nil")
	}

	ss := ollama.NewStreamStats()
	ss.RecordFirstToken()
	ss.Finalize(ollama.StreamChunk{
		Done:             true,
		TotalDuration:    2 * time.Second,
		PromptTokens:     10,
		CompletionTokens: 40,
	})

	got := statsFromStream(ss)
	if got.TotalDuration != 2*time.Second {
		t.Errorf("TotalDuration = %v", got.TotalDuration)
	}
	if got.CompletionTokens != 40 || got.PromptTokens != 10 {
		t.Errorf("token counts = %d/%d", got.PromptTokens, got.CompletionTokens)
	}
}

func TestStatsFromStreamWallClockFallback(t *testing.T) {
	// Runtime reported no duration: fall back to wall time.
	ss := ollama.NewStreamStats()
	ss.StartTime = time.Now().Add(-1 * time.Second)
	ss.Finalize(ollama.StreamChunk{Done: true, CompletionTokens: 5})

	got := statsFromStream(ss)
	if got.TotalDuration <= 0 {
		t.Errorf("TotalDuration = %v, want wall-clock fallback", got.TotalDuration)
	}
}
