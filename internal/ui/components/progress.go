// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/termai/termai-tui/internal/ollama"
	"github.com/termai/termai-tui/internal/ui/styles"
	"github.com/termai/termai-tui/internal/util"
)

// =============================================================================
// PULL PROGRESS COMPONENT
// =============================================================================

// PullProgressView renders download progress for a model pull.
// It tracks the latest progress line from the registry stream.
type PullProgressView struct {
	ModelName string
	Width     int

	status    string
	total     int64
	completed int64
	done      bool
	failed    bool
	errMsg    string
}

// NewPullProgressView creates a progress view for pulling the named model.
func NewPullProgressView(modelName string) *PullProgressView {
	return &PullProgressView{
		ModelName: modelName,
		Width:     60,
		status:    "starting",
	}
}

// Update records the latest progress chunk from the pull stream.
func (p *PullProgressView) Update(prog ollama.PullProgress) {
	p.status = prog.Status
	if prog.Total > 0 {
		p.total = prog.Total
		p.completed = prog.Completed
	}
	if prog.Status == "success" {
		p.done = true
	}
}

// Fail marks the pull as failed with the given message.
func (p *PullProgressView) Fail(msg string) {
	p.failed = true
	p.errMsg = msg
}

// Done reports whether the pull finished successfully.
func (p *PullProgressView) Done() bool {
	return p.done
}

// Percent returns the completion percentage, or -1 when unknown.
func (p *PullProgressView) Percent() float64 {
	if p.total <= 0 {
		return -1
	}
	return float64(p.completed) / float64(p.total) * 100
}

// View renders the progress display.
func (p *PullProgressView) View() string {
	if p.failed {
		return styles.RenderError("pull failed: " + p.errMsg)
	}
	if p.done {
		return styles.RenderSuccess("pulled " + p.ModelName)
	}

	statusView := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Render(p.status)

	pct := p.Percent()
	if pct < 0 {
		return statusView
	}

	barWidth := p.Width - 30
	if barWidth < 10 {
		barWidth = 10
	}
	bar := RenderBar(barWidth, pct)

	sizeView := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Render(util.FormatByteSize(p.completed) + " / " + util.FormatByteSize(p.total))

	pctView := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Cyan).
		Render(fmt.Sprintf("%3.0f%%", pct))

	return statusView + "\n" +
		lipgloss.NewStyle().Foreground(styles.Cyan).Render(bar) + " " +
		pctView + "  " + sizeView
}

// RenderBar renders an ASCII progress bar of the given width.
func RenderBar(width int, percent float64) string {
	if width < 2 {
		width = 2
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(float64(width) * percent / 100)
	if filled > width {
		filled = width
	}

	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(strings.Repeat("#", filled))
	sb.WriteString(strings.Repeat("-", width-filled))
	sb.WriteString("]")
	return sb.String()
}
