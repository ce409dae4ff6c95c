// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models_cmd.go - Model management subcommands: models, pull, rm.
//
// Examples:
//   termai models               List installed models
//   termai pull llama3.2:1b     Download a model with progress
//   termai rm mistral           Remove an installed model

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/ui/components"
	"github.com/termai/termai-tui/internal/util"
)

// =============================================================================
// MODELS LIST
// =============================================================================

// HandleModelsCommand lists installed models.
func HandleModelsCommand(deps *Deps, parser *ArgParser) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := deps.Client.ListModels(ctx)
	if err != nil {
		return runtimeError(err)
	}

	if len(models) == 0 {
		fmt.Println("No models installed. Try: termai pull llama3.2")
		return nil
	}

	fmt.Print(util.PadRight("NAME", 30) + " " +
		util.PadRight("SIZE", 10) + " MODIFIED\n")
	for _, info := range models {
		fmt.Print(util.PadRight(util.TruncateRunes(info.Name, 30), 30) + " " +
			util.PadRight(util.FormatByteSize(info.Size), 10) + " " +
			info.ModifiedAt.Format("2006-01-02 15:04") + "\n")
	}
	return nil
}

// =============================================================================
// PULL
// =============================================================================

// HandlePullCommand downloads a model, printing streaming progress.
func HandlePullCommand(deps *Deps, parser *ArgParser) error {
	name := parser.Positional(1)
	if name == "" {
		return usageErrorf("usage: termai pull NAME[:TAG]")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C cancels the download instead of killing the process outright.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	fmt.Printf("pulling %s...\n", name)

	interactive := IsStdoutTTY()
	var lastStatus string
	err := deps.Client.PullModel(ctx, name, func(p ollama.PullProgress) {
		if interactive {
			fmt.Print("\r\033[K" + pullProgressLine(p))
			return
		}
		// Non-TTY: one line per status transition, no control sequences.
		if p.Status != lastStatus {
			lastStatus = p.Status
			fmt.Println(p.Status)
		}
	})
	if interactive {
		fmt.Println()
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("pull cancelled")
		}
		return runtimeError(err)
	}

	fmt.Printf("%s %s is ready\n", commandStyle.Render("[OK]"), name)
	return nil
}

// pullProgressLine renders one progress frame for interactive terminals.
func pullProgressLine(p ollama.PullProgress) string {
	pct := p.Percent()
	if pct < 0 {
		return infoStyle.Render(p.Status)
	}

	barWidth := GetTerminalWidth() - 40
	if barWidth < 10 {
		barWidth = 10
	}
	return fmt.Sprintf("%s %s %3.0f%% (%s / %s)",
		infoStyle.Render(p.Status),
		components.RenderBar(barWidth, pct),
		pct,
		util.FormatByteSize(p.Completed),
		util.FormatByteSize(p.Total))
}

// =============================================================================
// REMOVE
// =============================================================================

// HandleRemoveCommand deletes an installed model.
func HandleRemoveCommand(deps *Deps, parser *ArgParser) error {
	name := parser.Positional(1)
	if name == "" {
		return usageErrorf("usage: termai rm NAME")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := deps.Client.DeleteModel(ctx, name); err != nil {
		if ollama.IsModelNotFound(err) {
			return fmt.Errorf("model %q is not installed", name)
		}
		return runtimeError(err)
	}

	fmt.Printf("%s removed %s\n", commandStyle.Render("[OK]"), name)
	return nil
}

// runtimeError rewrites connection failures into an actionable message.
func runtimeError(err error) error {
	if ollama.IsNotRunning(err) {
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}
	if msg := err.Error(); strings.Contains(msg, "connection refused") {
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}
	return err
}
