// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/termai/termai-tui/internal/model"
)

func buildSession(t *testing.T) *model.Session {
	t.Helper()

	sess := model.NewSession("llama3.2")
	sess.Name = "Kitchen Plans"
	if _, err := sess.AppendUserMessage("How do I sharpen a knife?"); err != nil {
		t.Fatalf("append user: %v", err)
	}
	if _, err := sess.AppendMessage(model.RoleAssistant, "Use a whetstone at a 20 degree angle."); err != nil {
		t.Fatalf("append assistant: %v", err)
	}
	return sess
}

// =============================================================================
// MARKDOWN EXPORTER TESTS
// =============================================================================

func TestMarkdownExportContainsConversation(t *testing.T) {
	sess := buildSession(t)
	exporter := NewMarkdownExporter(DefaultOptions())

	content, err := exporter.Export(sess)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	out := string(content)
	for _, want := range []string{
		"# Kitchen Plans",
		"## Session Information",
		"- **Model**: llama3.2",
		"### [User]",
		"How do I sharpen a knife?",
		"### [Assistant]",
		"Use a whetstone at a 20 degree angle.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	sess := buildSession(t)
	opts := &Options{OutputDir: ".", IncludeMetadata: false, IncludeTimestamps: false}

	content, err := NewMarkdownExporter(opts).Export(sess)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	out := string(content)
	if strings.Contains(out, "## Session Information") {
		t.Error("metadata section should be omitted")
	}
	if strings.Contains(out, "<sub>") {
		t.Error("timestamps should be omitted")
	}
}

func TestMarkdownExportEscapesHeading(t *testing.T) {
	sess := buildSession(t)
	sess.Name = "notes #1 *draft*"
	opts := &Options{OutputDir: ".", IncludeMetadata: false}

	content, err := NewMarkdownExporter(opts).Export(sess)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if !strings.Contains(string(content), `# notes \#1 \*draft\*`) {
		t.Errorf("heading not escaped:\n%s", content)
	}
}

func TestMarkdownExportRejectsEmptySession(t *testing.T) {
	sess := model.NewSession("llama3.2")

	if _, err := NewMarkdownExporter(nil).Export(sess); err == nil {
		t.Error("empty session should fail to export")
	}
	if _, err := NewMarkdownExporter(nil).Export(nil); err == nil {
		t.Error("nil session should fail to export")
	}
}

// =============================================================================
// JSON EXPORTER TESTS
// =============================================================================

func TestJSONExportRoundTrips(t *testing.T) {
	sess := buildSession(t)

	content, err := NewJSONExporter().Export(sess)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var decoded model.Session
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Name != sess.Name {
		t.Errorf("Name = %q, want %q", decoded.Name, sess.Name)
	}
	if len(decoded.Messages) != len(sess.Messages) {
		t.Errorf("Messages = %d, want %d", len(decoded.Messages), len(sess.Messages))
	}
	if decoded.Messages[1].Content != sess.Messages[1].Content {
		t.Errorf("Content = %q", decoded.Messages[1].Content)
	}
}

// =============================================================================
// FORMAT SELECTION TESTS
// =============================================================================

func TestForFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"markdown", ".md", false},
		{"md", ".md", false},
		{"json", ".json", false},
		{"html", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		exporter, err := ForFormat(tt.format, nil)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ForFormat(%q) should fail", tt.format)
			}
			continue
		}
		if err != nil {
			t.Errorf("ForFormat(%q) error: %v", tt.format, err)
			continue
		}
		if got := exporter.FileExtension(); got != tt.wantExt {
			t.Errorf("ForFormat(%q).FileExtension = %q, want %q", tt.format, got, tt.wantExt)
		}
	}
}

// =============================================================================
// FILE OUTPUT TESTS
// =============================================================================

func TestToFileWritesFile(t *testing.T) {
	sess := buildSession(t)
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ToFile(sess, NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ToFile failed: %v", err)
	}

	if filepath.Dir(path) != opts.OutputDir {
		t.Errorf("file written to %q, want dir %q", path, opts.OutputDir)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "session_Kitchen_Plans_") || !strings.HasSuffix(name, ".md") {
		t.Errorf("unexpected filename %q", name)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(content), "# Kitchen Plans") {
		t.Error("written file missing session content")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"with spaces", "with_spaces"},
		{"a/b\\c:d", "a-b-c-d"},
		{"q?*<>|", "q-----"},
		{"", "session"},
		{strings.Repeat("x", 60), strings.Repeat("x", 50)},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
