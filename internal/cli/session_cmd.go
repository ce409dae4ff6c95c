// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Session management subcommands.
//
// Command: session
// Aliases: sessions
//
// Examples:
//   termai session list                      List all saved sessions
//   termai session show "Kitchen Plans"      Print a transcript
//   termai session delete "Kitchen Plans"    Delete a saved session
//   termai session export "Kitchen Plans" --format json --out ~/exports

package cli

import (
	"errors"
	"fmt"

	"github.com/termai/termai-tui/internal/export"
	"github.com/termai/termai-tui/internal/model"
	"github.com/termai/termai-tui/internal/storage"
)

// HandleSessionCommand dispatches session subcommands.
func HandleSessionCommand(deps *Deps, parser *ArgParser) error {
	switch parser.Positional(1) {
	case "list", "ls", "":
		return sessionList(deps)
	case "show":
		return sessionShow(deps, parser)
	case "delete", "rm":
		return sessionDelete(deps, parser)
	case "export":
		return sessionExport(deps, parser)
	default:
		return usageErrorf("unknown session subcommand: %s (expected list, show, delete, export)",
			parser.Positional(1))
	}
}

func sessionList(deps *Deps) error {
	summaries, err := deps.Store.List()
	if err != nil {
		return err
	}
	fmt.Print(storage.FormatSessionTable(summaries))
	return nil
}

func sessionShow(deps *Deps, parser *ArgParser) error {
	name := parser.JoinPositionalArgs(2)
	if name == "" {
		return usageErrorf("usage: termai session show NAME")
	}

	sess, err := deps.Store.Load(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no session named %q", name)
		}
		return err
	}

	fmt.Printf("%s\n", summaryHeaderStyle.Render(sess.DisplayName()))
	fmt.Printf("%s %s  %s %d messages\n\n",
		infoStyle.Render("Model:"), sess.Model,
		infoStyle.Render("|"), sess.MessageCount())

	for _, msg := range sess.Messages {
		label := formatRoleLabel(msg.Role)
		fmt.Printf("%s  %s\n%s\n\n",
			label,
			infoStyle.Render(msg.Timestamp.Format("2006-01-02 15:04:05")),
			msg.DisplayContent())
	}
	return nil
}

func formatRoleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return promptStyle.Render("[User]")
	case model.RoleAssistant:
		return commandStyle.Render("[Assistant]")
	default:
		return warningStyle.Render("[" + role.String() + "]")
	}
}

func sessionDelete(deps *Deps, parser *ArgParser) error {
	name := parser.JoinPositionalArgs(2)
	if name == "" {
		return usageErrorf("usage: termai session delete NAME")
	}

	if err := deps.Store.Delete(name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no session named %q", name)
		}
		return err
	}
	fmt.Printf("%s deleted %q\n", commandStyle.Render("[OK]"), name)
	return nil
}

func sessionExport(deps *Deps, parser *ArgParser) error {
	// --format and --out consume their values, so positionals stay clean.
	name := parser.JoinPositionalArgs(2)
	if name == "" {
		return usageErrorf("usage: termai session export NAME [--format markdown|json] [--out DIR]")
	}

	sess, err := deps.Store.Load(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no session named %q", name)
		}
		return err
	}

	opts := export.DefaultOptions()
	opts.OutputDir = parser.FlagOrDefault("out", ".")

	format := parser.FlagOrDefault("format", "markdown")
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return usageErrorf("%v", err)
	}

	path, err := export.ToFile(sess, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Printf("%s exported to %s\n", commandStyle.Render("[OK]"), path)
	return nil
}
