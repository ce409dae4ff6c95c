// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/termai/termai-tui/internal/commands"
	"github.com/termai/termai-tui/internal/config"
	"github.com/termai/termai-tui/internal/model"
	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/storage"
	"github.com/termai/termai-tui/internal/ui/components"
	"github.com/termai/termai-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// BackToMenuMsg asks the root model to return to the main menu.
type BackToMenuMsg struct{}

// =============================================================================
// INPUT MODES
// =============================================================================

type inputMode int

const (
	modeChat inputMode = iota
	modeSaveName
	modeConfirmOverwrite
	modeConfirmExit
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the chat view. It owns the live session, the input line, the
// transcript viewport, and the streaming machinery.
type Model struct {
	client *ollama.Client
	store  *storage.SessionStore
	cfg    *config.Config
	theme  *styles.Theme

	session *model.Session

	input    textinput.Model
	viewport viewport.Model
	spinner  components.Spinner
	dialog   components.ConfirmDialog
	renderer *glamour.TermRenderer

	buffer    *StreamingBuffer
	acc       *ollama.StreamAccumulator
	doneCh    chan error
	cancelMgr *cancelManager

	parser   *commands.Parser
	registry *commands.Registry

	mode            inputMode
	multiMode       bool
	multiLines      []string
	pendingSaveName string
	exitAfterSave   bool

	streaming bool
	showHelp  bool
	statusMsg string
	errMsg    string

	width  int
	height int
	ready  bool
}

// New creates a chat model for the given session. Pass a fresh session for
// a new chat or a loaded one to resume.
func New(client *ollama.Client, store *storage.SessionStore, cfg *config.Config, theme *styles.Theme, sess *model.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message or /help for commands"
	ti.CharLimit = 0
	ti.Focus()

	registry := commands.NewRegistry()

	return Model{
		client:    client,
		store:     store,
		cfg:       cfg,
		theme:     theme,
		session:   sess,
		input:     ti,
		spinner:   components.NewThinkingSpinner(),
		dialog:    components.NewConfirmDialog("", ""),
		buffer:    NewStreamingBuffer(cfg.UI.StreamFPS),
		cancelMgr: newCancelManager(),
		registry:  registry,
		parser:    commands.NewParser(registry),
	}
}

// Session returns the live session. The sessions browser uses this to hand
// the transcript back when resuming.
func (m *Model) Session() *model.Session {
	return m.session
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case StreamTickMsg:
		return m.handleStreamTick()

	case streamDoneMsg:
		return m.handleStreamDone(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2
	inputHeight := 3
	statusHeight := 1
	vpHeight := msg.Height - headerHeight - inputHeight - statusHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.Width = msg.Width - 4

	if m.cfg.UI.Markdown {
		wrap := msg.Width - 6
		if wrap < 20 {
			wrap = 20
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err == nil {
			m.renderer = renderer
		}
	}

	m.refreshViewport()
	return m
}

func (m Model) handleStreamTick() (Model, tea.Cmd) {
	if !m.streaming {
		return m, nil
	}

	if content, ok := m.buffer.Flush(); ok {
		m.session.AppendToLast(content)
		m.refreshViewport()
		m.viewport.GotoBottom()
	}

	return m, streamTickCmd(m.cfg.UI.StreamFPS)
}

func (m Model) handleStreamDone(msg streamDoneMsg) (Model, tea.Cmd) {
	// Drain whatever the last tick missed.
	if content, ok := m.buffer.ForceFlush(); ok {
		m.session.AppendToLast(content)
	}

	m.streaming = false
	m.spinner.Stop()
	m.cancelMgr.cancel()

	if msg.err != nil || !m.acc.Completed() {
		// Partial output never joins the transcript.
		m.session.DiscardLast()
		m.buffer.Reset()
		m.errMsg = streamErrorText(msg.err, m.acc)
	} else {
		m.session.FinalizeLast(statsFromStream(m.acc.Stats()))
		m.errMsg = ""
	}

	m.acc = nil
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

// streamErrorText picks the user-facing message for a failed stream.
func streamErrorText(err error, acc *ollama.StreamAccumulator) string {
	if err == nil && acc != nil {
		err = acc.Err()
	}
	switch {
	case err == nil:
		return "response incomplete"
	case errors.Is(err, context.Canceled):
		return "generation cancelled"
	case ollama.IsNotRunning(err):
		return "Ollama is not running. Start it with: ollama serve"
	case ollama.IsModelNotFound(err):
		return "model not found. Pull it first from the main menu"
	default:
		return err.Error()
	}
}

// =============================================================================
// STREAM LAUNCH
// =============================================================================

// startStream sends the user text and begins streaming the reply.
func (m Model) startStream(text string) (Model, tea.Cmd) {
	// Guards the /multi-end path too; handleSubmit blocks plain input.
	if m.streaming {
		m.errMsg = "still generating; wait or press esc to cancel"
		return m, nil
	}

	if _, err := m.session.AppendUserMessage(text); err != nil {
		m.errMsg = err.Error()
		return m, nil
	}

	// Snapshot the history before the empty assistant placeholder exists.
	history := m.session.ToOllamaMessages()
	m.session.BeginAssistantMessage()

	m.buffer.Reset()
	m.acc = ollama.NewStreamAccumulator()
	m.doneCh = make(chan error, 1)
	m.streaming = true
	m.errMsg = ""
	m.statusMsg = ""

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	client := m.client
	modelName := m.session.Model
	buffer := m.buffer
	acc := m.acc
	done := m.doneCh

	go func() {
		err := client.ChatStream(ctx, modelName, history, func(chunk ollama.StreamChunk) {
			if chunk.Content != "" {
				buffer.Write(chunk.Content)
			}
			acc.Add(chunk)
		})
		if err != nil {
			acc.Fail(err)
		}
		done <- err
	}()

	m.refreshViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.spinner.Start(),
		streamTickCmd(m.cfg.UI.StreamFPS),
		waitForStreamDone(done),
	)
}

// =============================================================================
// SAVE FLOW
// =============================================================================

// defaultSessionName is used when the user saves without naming the session.
func defaultSessionName() string {
	return time.Now().Format("2006-01-02 15:04")
}

// trySave attempts a save and routes duplicate names to the overwrite prompt.
func (m Model) trySave(name string) (Model, tea.Cmd) {
	if name == "" {
		name = defaultSessionName()
	}

	// Re-saving under the session's own name is always an overwrite.
	overwrite := m.session.Name == name

	err := m.store.Save(m.session, name, overwrite)
	if err == nil {
		m.statusMsg = "saved as " + name
		m.mode = modeChat
		m.input.Placeholder = "Type a message or /help for commands"
		if m.exitAfterSave {
			m.exitAfterSave = false
			return m, func() tea.Msg { return BackToMenuMsg{} }
		}
		return m, nil
	}

	if errors.Is(err, storage.ErrDuplicateName) {
		m.pendingSaveName = name
		m.mode = modeConfirmOverwrite
		m.dialog = components.NewConfirmDialog(
			"Session exists",
			"A session named \""+name+"\" already exists. Overwrite it?",
		)
		m.dialog.Show()
		return m, nil
	}

	m.errMsg = "save failed: " + err.Error()
	m.mode = modeChat
	return m, nil
}

// confirmOverwrite completes the save after the user approved replacing the
// existing session.
func (m Model) confirmOverwrite() (Model, tea.Cmd) {
	name := m.pendingSaveName
	m.pendingSaveName = ""
	m.dialog.Hide()
	m.mode = modeChat

	if err := m.store.Save(m.session, name, true); err != nil {
		m.errMsg = "save failed: " + err.Error()
		return m, nil
	}

	m.statusMsg = "saved as " + name
	if m.exitAfterSave {
		m.exitAfterSave = false
		return m, func() tea.Msg { return BackToMenuMsg{} }
	}
	return m, nil
}

// requestExit starts the exit flow, prompting to save unsaved changes.
func (m Model) requestExit() (Model, tea.Cmd) {
	if m.streaming {
		m.cancelMgr.cancel()
	}

	if m.session.Dirty && !m.session.IsEmpty() {
		m.mode = modeConfirmExit
		m.dialog = components.NewConfirmDialog(
			"Unsaved session",
			"Save this session before leaving?",
		)
		m.dialog.Show()
		return m, nil
	}

	return m, func() tea.Msg { return BackToMenuMsg{} }
}
