// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the chat view.
//
// Input starting with "/" is parsed against a registry of known commands.
// The parser returns an Action the UI switches on; unknown commands produce
// a user-visible error and never reach the model as chat content.
package commands
