// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// A Session is an ordered sequence of role-tagged messages plus identity
// metadata (name, timestamps, model). Messages are appended in the order
// they are produced and never reordered. Assistant messages stream token by
// token into a builder and are finalized exactly once; a failed stream is
// discarded without ever entering the message sequence.
package model
