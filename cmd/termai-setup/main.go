// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main provides termai-setup, a guided first-run setup for termai.
//
// It checks system requirements, verifies the Ollama runtime, offers a
// starter model download, and writes the initial configuration. Output is
// plain text so it works over ssh and copies cleanly into bug reports.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/termai/termai-tui/internal/config"
	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/util"
)

const version = "0.1.0"

// minFreeDiskBytes is the space needed for a small starter model plus slack.
const minFreeDiskBytes = 8 << 30

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--help", "-h":
			printHelp()
			return
		case "--version", "-v":
			fmt.Printf("termai-setup v%s\n", version)
			return
		}
	}

	runSetup()
}

func printHelp() {
	fmt.Println(`termai-setup v` + version + `

Usage: termai-setup [OPTIONS]

Options:
  --help, -h     Show this help
  --version, -v  Show version

Checks system requirements, verifies Ollama, downloads a starter
model, and creates the initial termai configuration.`)
}

// =============================================================================
// SETUP FLOW
// =============================================================================

func runSetup() {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("                               TERMAI SETUP")
	fmt.Println("                  Chat with local Ollama models, no browser")
	fmt.Println("================================================================================")
	fmt.Println()
	fmt.Println("This setup will:")
	fmt.Println("  [1] Check your system requirements")
	fmt.Println("  [2] Verify the Ollama runtime")
	fmt.Println("  [3] Download a starter model")
	fmt.Println("  [4] Create your configuration")
	fmt.Println()
	fmt.Print("Press Enter to continue (or 'q' to quit): ")
	input, _ := reader.ReadString('\n')
	if strings.TrimSpace(input) == "q" {
		fmt.Println("Setup cancelled.")
		return
	}

	fmt.Println()
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println("                           SYSTEM REQUIREMENTS CHECK")
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println()

	fmt.Printf("  [OK] Operating System: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	if home, err := os.UserHomeDir(); err == nil {
		if free, err := getFreeDiskSpace(home); err == nil {
			if free < minFreeDiskBytes {
				fmt.Printf("  [!!] Disk Space: %s free (8 GB recommended for models)\n",
					util.FormatByteSize(int64(free)))
			} else {
				fmt.Printf("  [OK] Disk Space: %s free\n", util.FormatByteSize(int64(free)))
			}
		}
	}

	client := ollama.NewClient()
	ollamaReady := checkOllama(client)

	fmt.Println()

	if !ollamaReady {
		fmt.Println("--------------------------------------------------------------------------------")
		fmt.Println("                              OLLAMA SETUP")
		fmt.Println("--------------------------------------------------------------------------------")
		fmt.Println()
		fmt.Println("Ollama is required to run local models.")
		fmt.Println()
		fmt.Println("Install it from: https://ollama.ai")
		fmt.Println("After installing, run: ollama serve")
		fmt.Println()
		fmt.Print("Press Enter when Ollama is ready (or 's' to skip): ")
		input, _ = reader.ReadString('\n')
		if strings.TrimSpace(input) != "s" {
			ollamaReady = checkOllama(client)
		}
		fmt.Println()
	}

	modelName := chooseModel(reader)

	if modelName != "" && ollamaReady {
		fmt.Printf("\nDownloading %s... (this may take a few minutes)\n", modelName)
		if err := pullModel(client, modelName); err != nil {
			fmt.Printf("  [!!] Download failed: %v\n", err)
			fmt.Println("       You can retry later with: termai pull " + modelName)
		} else {
			fmt.Printf("  [OK] %s is ready\n", modelName)
		}
	}

	fmt.Println()
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println("                            CREATING CONFIGURATION")
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println()

	writeConfig(modelName)

	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("                             SETUP COMPLETE!")
	fmt.Println("================================================================================")
	fmt.Println()
	fmt.Println("To start termai, run:")
	fmt.Println()
	fmt.Println("    termai")
	fmt.Println()
	fmt.Println("Quick tips:")
	fmt.Println("    /help          - Show in-chat commands")
	fmt.Println("    /save [name]   - Save the conversation")
	fmt.Println("    termai chat    - Plain-terminal REPL")
	fmt.Println()
}

// checkOllama reports whether the runtime binary exists and responds.
func checkOllama(client *ollama.Client) bool {
	if _, err := exec.LookPath("ollama"); err != nil {
		fmt.Println("  [!!] Ollama: Not installed")
		fmt.Println("       -> Visit https://ollama.ai to install")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.CheckRunning(ctx); err != nil {
		fmt.Println("  [!!] Ollama: Installed but not running")
		fmt.Println("       -> Run: ollama serve")
		return false
	}

	fmt.Println("  [OK] Ollama: Running")
	return true
}

// chooseModel prompts for a starter model.
func chooseModel(reader *bufio.Reader) string {
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println("                            CHOOSE A STARTER MODEL")
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println()
	fmt.Println("  [1] llama3.2        (Recommended - fast general chat)")
	fmt.Println("  [2] llama3.2:1b     (Smallest - runs on modest machines)")
	fmt.Println("  [3] mistral         (7B - strong quality)")
	fmt.Println("  [4] qwen2.5-coder   (7B - code assistance)")
	fmt.Println("  [5] Skip model download")
	fmt.Println()
	fmt.Print("Enter choice [1-5]: ")
	input, _ := reader.ReadString('\n')

	switch strings.TrimSpace(input) {
	case "1", "":
		return "llama3.2"
	case "2":
		return "llama3.2:1b"
	case "3":
		return "mistral"
	case "4":
		return "qwen2.5-coder"
	case "5":
		return ""
	default:
		return "llama3.2"
	}
}

// pullModel downloads the model, printing status transitions.
func pullModel(client *ollama.Client, name string) error {
	var lastStatus string
	return client.PullModel(context.Background(), name, func(p ollama.PullProgress) {
		if p.Status != lastStatus {
			lastStatus = p.Status
			fmt.Println("  " + p.Status)
		}
	})
}

// writeConfig creates the config directory and initial config file.
func writeConfig(modelName string) {
	if err := config.EnsureConfigDir(); err != nil {
		fmt.Printf("  [!!] Could not create config directory: %v\n", err)
		return
	}
	dir, _ := config.ConfigDir()
	fmt.Printf("  [OK] Created directory: %s\n", dir)

	path, err := config.ConfigPathTOML()
	if err != nil {
		return
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  [!!] Config already exists: %s\n", path)
		return
	}

	cfg := config.Default()
	if modelName != "" {
		cfg.DefaultModel = modelName
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		fmt.Printf("  [!!] Could not write config: %v\n", err)
		return
	}
	fmt.Printf("  [OK] Created config: %s\n", path)
}
