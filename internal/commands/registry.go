// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the chat view.
package commands

import (
	"sort"
	"strings"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Action identifies what a parsed command asks the UI to do.
type Action int

const (
	ActionNone Action = iota
	ActionHelp
	ActionExit
	ActionSave
	ActionClear
	ActionMultiStart
	ActionMultiEnd
)

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help
	Description string

	// Usage shows argument syntax (e.g., "/save [name]")
	Usage string

	// Action the UI performs when this command runs
	Action Action

	// MaxArgs caps the argument count (-1 = unlimited)
	MaxArgs int

	// Category for grouping in help display
	Category string
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
	order    []string
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	if _, exists := r.commands[cmd.Name]; !exists {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands in registration order.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, name := range r.order {
		cmds = append(cmds, r.commands[name])
	}
	return cmds
}

// ByCategory returns visible commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// HelpText renders the command list for the /help command.
func (r *Registry) HelpText() string {
	byCat := r.ByCategory()

	categories := make([]string, 0, len(byCat))
	for cat := range byCat {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var sb strings.Builder
	for i, cat := range categories {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(cat + ":\n")
		for _, cmd := range byCat[cat] {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			sb.WriteString("  " + pad(usage, 22) + cmd.Description)
			if len(cmd.Aliases) > 0 {
				sb.WriteString(" (" + strings.Join(cmd.Aliases, ", ") + ")")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func pad(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Action:      ActionHelp,
		MaxArgs:     0,
		Category:    "Navigation",
	})

	r.Register(&Command{
		Name:        "/exit",
		Aliases:     []string{"/quit", "/q"},
		Description: "Leave the chat (prompts to save unsaved changes)",
		Action:      ActionExit,
		MaxArgs:     0,
		Category:    "Navigation",
	})

	r.Register(&Command{
		Name:        "/save",
		Aliases:     []string{"/s"},
		Description: "Save the session under a name",
		Usage:       "/save [name]",
		Action:      ActionSave,
		MaxArgs:     -1, // name may contain spaces
		Category:    "Session",
	})

	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear the transcript and start fresh",
		Action:      ActionClear,
		MaxArgs:     0,
		Category:    "Session",
	})

	r.Register(&Command{
		Name:        "/multi-start",
		Description: "Begin multi-line input (lines buffer until /multi-end)",
		Action:      ActionMultiStart,
		MaxArgs:     0,
		Category:    "Input",
	})

	r.Register(&Command{
		Name:        "/multi-end",
		Description: "End multi-line input and send the buffered message",
		Action:      ActionMultiEnd,
		MaxArgs:     0,
		Category:    "Input",
	})
}
