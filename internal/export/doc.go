// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved chat sessions to files in Markdown or JSON.
//
// Exporters work on model.Session directly, so both saved and still-active
// sessions can be exported. Filenames derive from the session name plus an
// export timestamp.
package export
