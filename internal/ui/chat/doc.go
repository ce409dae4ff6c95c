// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the termai TUI.
//
// The view drives a streaming conversation with the local Ollama runtime.
// Tokens arrive on a background goroutine and are batched through a
// StreamingBuffer, then flushed into the session on a capped tick so the
// terminal repaints at a steady frame rate instead of once per token.
//
// A failed or cancelled stream discards the partial assistant message; only
// completed turns become part of the session transcript. Slash commands
// (/save, /exit, /clear, /multi-start, /multi-end, /help) are parsed by the
// commands package and dispatched here.
package chat
