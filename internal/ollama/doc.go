// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama runtime.
//
// The client covers the surface termai needs: health checks (with a
// platform-specific best-effort start of the server), model listing, pulling
// and removal, and chat in both one-shot and streaming form. Streaming
// responses arrive as line-delimited JSON; StreamReader parses them and
// StreamAccumulator collects fragments into the final assistant message,
// distinguishing a completed stream from an interrupted one.
//
// All requests take a context.Context; cancelling it aborts the in-flight
// request, which is how the UI implements user interruption.
package ollama
