// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface of termai.
//
// Running termai with no arguments starts the full-screen TUI. Subcommands
// cover scripting needs: session management (list, show, delete, export),
// model management (pull, rm, models), configuration, and a plain-terminal
// chat REPL for environments where the TUI is unwanted.
package cli
