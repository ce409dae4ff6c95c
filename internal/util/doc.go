// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the termai application.
//
// String helpers are rune- and width-aware so transcripts containing CJK or
// other multi-byte text never get split mid-character when truncated for
// tables and previews. AtomicWriteFile is the single write path used by the
// session store and config: write to a temp file, fsync, rename.
package util
