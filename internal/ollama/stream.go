// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama runtime.
package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"
)

// ErrStreamInterrupted marks a stream that ended before the runtime sent its
// final chunk: connection drop, server crash, or user cancellation. Partial
// content accumulated so far is available but must not be treated as a
// completed turn.
var ErrStreamInterrupted = errors.New("stream interrupted before completion")

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
type StreamReader struct {
	reader     *bufio.Reader
	tokenCount int
	model      string
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
// Returns ErrStreamInterrupted when the stream ends without a done chunk.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					// EOF before the done chunk means the runtime went
					// away mid-generation.
					return ErrStreamInterrupted
				}
				return err
			}

			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single line from the stream.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		// Try to process the last line even on EOF
		if len(line) == 0 {
			return nil, err
		}
	}

	// Skip empty lines
	if len(strings.TrimSpace(string(line))) == 0 {
		return nil, nil
	}

	var response ChatResponse
	if err := json.Unmarshal(line, &response); err != nil {
		// Skip malformed lines
		return nil, nil
	}

	if response.Model != "" {
		s.model = response.Model
	}

	content := response.Message.Content
	if content != "" {
		s.tokenCount++
	}

	chunk := &StreamChunk{
		Content:    content,
		Done:       response.Done,
		DoneReason: response.DoneReason,
		Model:      s.model,
	}

	// On completion, extract statistics
	if response.Done {
		chunk.TotalDuration = time.Duration(response.TotalDuration)
		chunk.LoadDuration = time.Duration(response.LoadDuration)
		chunk.PromptEvalDuration = time.Duration(response.PromptEvalDuration)
		chunk.EvalDuration = time.Duration(response.EvalDuration)
		chunk.PromptTokens = response.PromptEvalCount
		chunk.CompletionTokens = response.EvalCount
	}

	return chunk, nil
}

// GetTokenCount returns the number of content-bearing chunks received.
func (s *StreamReader) GetTokenCount() int {
	return s.tokenCount
}

// GetModel returns the model name from the stream.
func (s *StreamReader) GetModel() string {
	return s.model
}

// =============================================================================
// PULL STREAM
// =============================================================================

// processPullStream reads the line-delimited /api/pull progress stream and
// forwards each update to the callback. A status line carrying an error field
// aborts the pull.
func processPullStream(ctx context.Context, r io.Reader, onProgress PullProgressFunc) error {
	scanner := bufio.NewScanner(r)
	// Progress lines are small, but leave room for long digests.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	sawSuccess := false
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var errLine apiError
		if err := json.Unmarshal(line, &errLine); err == nil && errLine.Error != "" {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: errLine.Error}
		}

		var progress PullProgress
		if err := json.Unmarshal(line, &progress); err != nil {
			continue
		}

		if onProgress != nil {
			onProgress(progress)
		}
		if progress.Status == "success" {
			sawSuccess = true
		}
	}

	if err := scanner.Err(); err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "pull stream failed", Cause: err}
	}
	if !sawSuccess {
		return ErrStreamInterrupted
	}
	return nil
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects streaming chunks into the final assistant
// message. It tracks the turn through its lifecycle: waiting for the first
// token, streaming, then completed or failed.
type StreamAccumulator struct {
	content strings.Builder
	stats   *StreamStats
	done    bool
	err     error
}

// NewStreamAccumulator creates a new accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{
		stats: NewStreamStats(),
	}
}

// Add processes a new chunk. After a chunk with Error set, or after the done
// chunk, further chunks are ignored.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if a.done {
		return
	}

	if chunk.Error != nil {
		a.err = chunk.Error
		a.done = true
		return
	}

	if chunk.Content != "" && a.content.Len() == 0 {
		a.stats.RecordFirstToken()
	}

	a.content.WriteString(chunk.Content)

	if chunk.Done {
		a.done = true
		a.stats.Finalize(chunk)
	}
}

// Fail marks the stream as failed with the given cause. Used when the
// transport errors out without delivering an error chunk.
func (a *StreamAccumulator) Fail(err error) {
	if a.done {
		return
	}
	a.err = err
	a.done = true
}

// Content returns the accumulated content so far.
func (a *StreamAccumulator) Content() string {
	return a.content.String()
}

// IsDone reports whether streaming has ended, successfully or not.
func (a *StreamAccumulator) IsDone() bool {
	return a.done
}

// Completed reports whether the stream finished cleanly.
func (a *StreamAccumulator) Completed() bool {
	return a.done && a.err == nil
}

// Err returns the failure cause, or nil for a clean stream.
func (a *StreamAccumulator) Err() error {
	return a.err
}

// Stats returns the collected statistics.
func (a *StreamAccumulator) Stats() *StreamStats {
	return a.stats
}

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// StreamStats holds statistics collected during streaming.
type StreamStats struct {
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Durations reported by the runtime on the done chunk
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration

	PromptTokens     int
	CompletionTokens int

	// Computed
	TTFT            time.Duration
	TokensPerSecond float64
}

// NewStreamStats creates a new StreamStats with start time set.
func NewStreamStats() *StreamStats {
	return &StreamStats{
		StartTime: time.Now(),
	}
}

// RecordFirstToken marks the time of first token arrival.
func (s *StreamStats) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes final statistics from the done chunk.
func (s *StreamStats) Finalize(chunk StreamChunk) {
	s.EndTime = time.Now()
	s.TotalDuration = chunk.TotalDuration
	s.LoadDuration = chunk.LoadDuration
	s.PromptEvalDuration = chunk.PromptEvalDuration
	s.EvalDuration = chunk.EvalDuration
	s.PromptTokens = chunk.PromptTokens
	s.CompletionTokens = chunk.CompletionTokens

	if s.EvalDuration > 0 {
		s.TokensPerSecond = float64(s.CompletionTokens) / s.EvalDuration.Seconds()
	}
}
