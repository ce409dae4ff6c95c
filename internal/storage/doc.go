// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat sessions as JSON files on disk.
//
// Each saved session is one file under the store's base directory, named
// after a slug of the user-chosen session name. The name is the unique
// identifier: saving under a taken name fails with ErrDuplicateName unless
// the caller explicitly overwrites, and loading or deleting an unknown name
// fails with ErrNotFound.
//
// Writes are atomic (temp file, fsync, rename) so a crash mid-save never
// leaves a corrupt or truncated session behind.
package storage
