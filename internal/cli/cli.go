// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Subcommand dispatch for termai.

package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/termai/termai-tui/internal/config"
	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/storage"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const usageText = `termai - terminal front-end for Ollama

Usage:
  termai                        Start the TUI (default)
  termai chat                   Plain-terminal chat REPL
    -m, --model NAME            Use a specific model
  termai session list           List saved sessions
  termai session show NAME      Print a session transcript
  termai session delete NAME    Delete a saved session
  termai session export NAME    Export a session to a file
    --format markdown|json      Export format (default: markdown)
    --out DIR                   Output directory (default: current)
  termai models                 List installed models
  termai pull NAME[:TAG]        Download a model
  termai rm NAME                Remove an installed model
  termai config show            Print current configuration
  termai config get KEY         Print one value (dot notation)
  termai config set KEY VALUE   Set and persist one value
  termai version                Show version information
  termai help                   Show this help

Environment:
  TERMAI_OLLAMA_URL             Override the Ollama server URL
  TERMAI_MODEL                  Override the default model
  NO_COLOR                      Disable colored output
`

// Deps bundles the shared dependencies handed to command handlers.
type Deps struct {
	Client *ollama.Client
	Store  *storage.SessionStore
	Config *config.Config
}

// NewDeps builds the shared client and store from configuration.
func NewDeps(cfg *config.Config) (*Deps, error) {
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Ollama.URL,
		DefaultModel: cfg.DefaultModel,
	})

	sessionsDir, err := cfg.SessionsDir()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSessionStoreWithDir(sessionsDir)
	if err != nil {
		return nil, err
	}

	return &Deps{Client: client, Store: store, Config: cfg}, nil
}

// Run dispatches a subcommand and returns the process exit code.
// An empty subcommand is handled by the caller (it starts the TUI).
func Run(deps *Deps, args []string) int {
	// Piped output and NO_COLOR get plain text.
	lipgloss.SetColorProfile(GetColorProfile())

	parser := NewArgParser(args)

	// Flag-only invocations: termai --version / termai --help.
	if parser.Subcommand() == "" {
		if parser.BoolFlag("version") || parser.BoolFlag("v") {
			printVersion()
			return 0
		}
		fmt.Print(usageText)
		return 0
	}

	var err error
	switch parser.Subcommand() {
	case "chat":
		err = HandleChatCommand(deps, parser)
	case "session", "sessions":
		err = HandleSessionCommand(deps, parser)
	case "models", "list":
		err = HandleModelsCommand(deps, parser)
	case "pull":
		err = HandlePullCommand(deps, parser)
	case "rm", "remove":
		err = HandleRemoveCommand(deps, parser)
	case "config":
		err = HandleConfigCommand(deps, parser)
	case "version":
		printVersion()
	case "help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", parser.Subcommand(), usageText)
		return 2
	}

	if err != nil {
		if _, ok := err.(*UsageError); ok {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			return 2
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		return 1
	}
	return 0
}

// printVersion prints build information.
func printVersion() {
	fmt.Printf("termai %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UsageError marks CLI misuse; it exits with code 2 instead of 1.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

func usageErrorf(format string, args ...interface{}) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
