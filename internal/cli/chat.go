// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Plain-terminal chat REPL for environments where the TUI is
// unwanted (ssh without alt-screen, scripts driving a pty, muscle memory).
//
// Command: chat
//
// Examples:
//   termai chat                       Start interactive chat (default model)
//   termai chat --model qwen2.5-coder Use a specific model
//
// Interactive commands mirror the TUI chat view:
//   /help              Show available commands
//   /clear             Start a fresh conversation
//   /save [name]       Save the session
//   /multi-start       Begin multi-line input
//   /multi-end         Send accumulated lines
//   /exit              Exit (prompts to save unsaved changes)
//   Ctrl+C             Cancel current generation
//   Ctrl+D             Exit

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/termai/termai-tui/internal/commands"
	"github.com/termai/termai-tui/internal/config"
	"github.com/termai/termai-tui/internal/model"
	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI wraps liner with a persistent history file, giving the REPL
// readline-style editing and arrow-key history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with history loaded from the config dir.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and releases the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// STREAM CANCELLATION
// =============================================================================

// streamCancel guards the active stream's cancel function. The REPL loop and
// the signal-handler goroutine both touch it, so access is mutexed.
type streamCancel struct {
	mu sync.Mutex
	fn context.CancelFunc
}

// set stores the cancel function for the stream in flight.
func (sc *streamCancel) set(fn context.CancelFunc) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.fn = fn
}

// cancel invokes and clears the stored cancel function. Reports whether a
// stream was actually cancelled so the caller can decide what to print.
func (sc *streamCancel) cancel() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.fn == nil {
		return false
	}
	sc.fn()
	sc.fn = nil
	return true
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state of one REPL run.
type ChatSession struct {
	Session *model.Session
	Deps    *Deps

	Parser   *commands.Parser
	Registry *commands.Registry
	InputCLI *ChatCLI

	// Multi-line accumulation between /multi-start and /multi-end.
	MultiMode  bool
	MultiLines []string

	StartTime time.Time

	// Guarded cancel for the in-flight stream; empty when idle.
	Cancel *streamCancel
}

// NewChatSession builds the REPL state from parsed arguments.
func NewChatSession(deps *Deps, parser *ArgParser) *ChatSession {
	modelName := parser.FlagOrDefault("model", parser.FlagOrDefault("m", ""))
	if modelName == "" {
		modelName = deps.Config.DefaultModel
	}
	if modelName == "" {
		modelName = deps.Client.GetDefaultModel()
	}

	registry := commands.NewRegistry()
	return &ChatSession{
		Session:   model.NewSession(modelName),
		Deps:      deps,
		Parser:    commands.NewParser(registry),
		Registry:  registry,
		InputCLI:  NewChatCLI(),
		StartTime: time.Now(),
		Cancel:    &streamCancel{},
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand runs the interactive REPL until the user exits.
func HandleChatCommand(deps *Deps, parser *ArgParser) error {
	if !IsTTY() {
		return fmt.Errorf("chat requires an interactive terminal")
	}

	session := NewChatSession(deps, parser)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	var err error
	if deps.Config.Ollama.AutoStart {
		err = deps.Client.EnsureRunning(ctx)
	} else {
		err = deps.Client.CheckRunning(ctx)
	}
	cancel()
	if err != nil {
		return runtimeError(err)
	}

	printWelcome(session)
	defer session.InputCLI.Close()

	// First Ctrl+C during generation cancels the stream, not the process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if session.Cancel.cancel() {
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := session.InputCLI.ReadInput(session.prompt())
		if err != nil {
			// Ctrl+C at the prompt or EOF (Ctrl+D) both exit.
			fmt.Println()
			return exitChat(session)
		}

		input = strings.TrimSpace(input)
		if input == "" && !session.MultiMode {
			continue
		}

		if session.MultiMode && !commands.IsCommand(input) {
			session.MultiLines = append(session.MultiLines, input)
			continue
		}

		if commands.IsCommand(input) {
			keepGoing, err := handleSlashCommand(session, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				return exitChat(session)
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return exitChat(session)
		}

		if err := processMessage(session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}
}

// prompt returns the input prompt, switching in multi-line mode.
func (s *ChatSession) prompt() string {
	if s.MultiMode {
		return promptStyle.Render("...> ")
	}
	return promptStyle.Render("termai> ")
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage streams one exchange to stdout. The user turn and the
// history snapshot are recorded before the placeholder assistant turn so the
// placeholder never reaches the wire; a failed or cancelled stream discards
// the partial turn entirely.
func processMessage(session *ChatSession, input string) error {
	if _, err := session.Session.AppendUserMessage(input); err != nil {
		return err
	}
	history := session.Session.ToOllamaMessages()
	session.Session.BeginAssistantMessage()

	ctx, cancel := context.WithCancel(context.Background())
	session.Cancel.set(cancel)
	defer func() {
		session.Cancel.set(nil)
		cancel()
	}()

	fmt.Println()

	acc := ollama.NewStreamAccumulator()
	err := session.Deps.Client.ChatStream(ctx, session.Session.Model, history,
		func(chunk ollama.StreamChunk) {
			if chunk.Error != nil {
				return
			}
			if chunk.Content != "" {
				fmt.Print(chunk.Content)
			}
			acc.Add(chunk)
		})
	if err != nil {
		acc.Fail(err)
	}

	fmt.Println()

	if err != nil || !acc.Completed() {
		session.Session.DiscardLast()
		if errors.Is(err, context.Canceled) {
			return nil // already reported by the signal handler
		}
		if err == nil {
			return fmt.Errorf("stream ended before completion")
		}
		return fmt.Errorf("streaming failed: %w", runtimeError(err))
	}

	if strings.TrimSpace(acc.Content()) == "" {
		session.Session.DiscardLast()
		return fmt.Errorf("model returned an empty response")
	}

	session.Session.AppendToLast(acc.Content())
	session.Session.FinalizeLast(streamStatistics(acc.Stats()))

	if session.Deps.Config.UI.ShowStats {
		if last := session.Session.LastMessage(); last != nil {
			if stats := last.FormatStats(); stats != "" {
				fmt.Println(infoStyle.Render(stats))
			}
		}
	}
	fmt.Println()
	return nil
}

// streamStatistics converts accumulator stats into message statistics,
// falling back to wall-clock duration when the runtime reports none.
func streamStatistics(s *ollama.StreamStats) *model.Statistics {
	if s == nil {
		return nil
	}
	total := s.TotalDuration
	if total == 0 && !s.StartTime.IsZero() && !s.EndTime.IsZero() {
		total = s.EndTime.Sub(s.StartTime)
	}
	return &model.Statistics{
		StartTime:        s.StartTime,
		FirstTokenTime:   s.FirstTokenTime,
		EndTime:          s.EndTime,
		PromptTokens:     s.PromptTokens,
		CompletionTokens: s.CompletionTokens,
		TTFT:             s.TTFT,
		TotalDuration:    total,
		TokensPerSecond:  s.TokensPerSecond,
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes a slash command.
// Returns (keepGoing, error); keepGoing=false means exit the REPL.
func handleSlashCommand(session *ChatSession, input string) (bool, error) {
	result := session.Parser.Parse(input)
	if result.Error != nil {
		return true, result.Error
	}

	switch result.Action() {
	case commands.ActionHelp:
		fmt.Println()
		fmt.Println(session.Registry.HelpText())
		return true, nil

	case commands.ActionClear:
		session.Session = model.NewSession(session.Session.Model)
		session.MultiMode = false
		session.MultiLines = nil
		fmt.Println(commandStyle.Render("[Conversation cleared]"))
		return true, nil

	case commands.ActionSave:
		return true, saveFromREPL(session, result.RawArgs)

	case commands.ActionMultiStart:
		session.MultiMode = true
		session.MultiLines = nil
		fmt.Println(infoStyle.Render("[Multi-line mode: finish with /multi-end]"))
		return true, nil

	case commands.ActionMultiEnd:
		if !session.MultiMode {
			return true, fmt.Errorf("not in multi-line mode (start with /multi-start)")
		}
		session.MultiMode = false
		joined := strings.TrimSpace(strings.Join(session.MultiLines, "\n"))
		session.MultiLines = nil
		if joined == "" {
			return true, fmt.Errorf("nothing to send")
		}
		return true, processMessage(session, joined)

	case commands.ActionExit:
		return false, nil
	}

	return true, fmt.Errorf("unknown command: %s", result.CommandName)
}

// saveFromREPL saves the session, prompting before overwriting another
// session's name. Resaving under the session's own name always overwrites.
func saveFromREPL(session *ChatSession, name string) error {
	if session.Session.IsEmpty() {
		return fmt.Errorf("nothing to save yet")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = session.Session.Name
	}
	if name == "" {
		name = time.Now().Format("2006-01-02 15:04")
	}

	overwrite := session.Session.Name == name
	err := session.Deps.Store.Save(session.Session, name, overwrite)
	if errors.Is(err, storage.ErrDuplicateName) {
		answer, perr := session.InputCLI.ReadInput(
			warningStyle.Render("\"" + name + "\" exists. Overwrite? [y/N] "))
		if perr != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fmt.Println(infoStyle.Render("[Not saved]"))
			return nil
		}
		err = session.Deps.Store.Save(session.Session, name, true)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s saved as %q\n", commandStyle.Render("[OK]"), name)
	return nil
}

// exitChat offers to save unsaved changes, then prints the summary.
func exitChat(session *ChatSession) error {
	if session.Session.Dirty && !session.Session.IsEmpty() {
		answer, err := session.InputCLI.ReadInput(
			warningStyle.Render("Save session before exiting? [y/N] "))
		if err == nil && strings.EqualFold(strings.TrimSpace(answer), "y") {
			if serr := saveFromREPL(session, session.Session.Name); serr != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), serr)
			}
		}
	}
	printExitSummary(session)
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

// printWelcome prints the startup banner.
func printWelcome(session *ChatSession) {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("termai interactive chat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Model:"),
		commandStyle.Render(session.Session.Model))
	fmt.Println()
	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /exit"))
	fmt.Println()
}

// printExitSummary prints the session summary on exit.
func printExitSummary(session *ChatSession) {
	if session.Session.IsEmpty() {
		fmt.Println(infoStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session Summary"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 15)))
	fmt.Printf("  %s %d\n",
		infoStyle.Render("Messages:"),
		session.Session.MessageCount())
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Duration:"),
		elapsed.String())
	if session.Session.Name != "" {
		fmt.Printf("  %s %s\n",
			infoStyle.Render("Saved as:"),
			session.Session.Name)
	}
	fmt.Println()
	fmt.Println(infoStyle.Render("Goodbye!"))
}
