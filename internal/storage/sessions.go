// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat sessions as JSON files on disk.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/termai/termai-tui/internal/model"
	"github.com/termai/termai-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

// StoreError represents a session storage error.
// It implements the error interface and can be compared using errors.Is.
type StoreError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is support for comparing store errors by message.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// Sentinel errors for easy checking.
var (
	// ErrNotFound is returned when loading or deleting a name with no
	// saved session behind it.
	ErrNotFound = &StoreError{Message: "session not found"}

	// ErrDuplicateName is returned when saving under a name that is
	// already taken and overwrite was not requested.
	ErrDuplicateName = &StoreError{Message: "session name already exists"}

	// ErrEmptyName is returned when saving under an empty or
	// whitespace-only name.
	ErrEmptyName = &StoreError{Message: "session name is empty"}

	// ErrStorageIO wraps filesystem failures underneath save, load,
	// list, and delete.
	ErrStorageIO = &StoreError{Message: "storage i/o failure"}
)

// ioError wraps a filesystem error so errors.Is(err, ErrStorageIO) holds.
func ioError(cause error) *StoreError {
	return &StoreError{Message: ErrStorageIO.Message, Cause: cause}
}

// =============================================================================
// SESSION SUMMARY
// =============================================================================

// SessionSummary contains metadata for listing sessions without loading
// full transcripts into the UI.
type SessionSummary struct {
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First message, truncated
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore handles named session persistence.
type SessionStore struct {
	// BaseDir is the directory holding session files
	// Default: ~/.termai/sessions/
	BaseDir string
}

// NewSessionStore creates a store rooted in the user's home directory.
func NewSessionStore() (*SessionStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, ioError(err)
	}
	return NewSessionStoreWithDir(filepath.Join(homeDir, ".termai", "sessions"))
}

// NewSessionStoreWithDir creates a store with a custom directory.
func NewSessionStoreWithDir(baseDir string) (*SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, ioError(err)
	}

	return &SessionStore{BaseDir: baseDir}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a session under the given name. A taken name is rejected
// with ErrDuplicateName unless overwrite is set; on success the session is
// stamped with the name and marked clean.
func (s *SessionStore) Save(sess *model.Session, name string, overwrite bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	path := s.filePath(name)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return ErrDuplicateName
		}
	}

	sess.Name = name
	sess.UpdatedAt = time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = sess.UpdatedAt
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return ioError(err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return ioError(err)
	}

	sess.MarkSaved()
	return nil
}

// Exists reports whether a session is saved under the given name.
func (s *SessionStore) Exists(name string) bool {
	_, err := os.Stat(s.filePath(name))
	return err == nil
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a session by name. Returns ErrNotFound for unknown names.
func (s *SessionStore) Load(name string) (*model.Session, error) {
	data, err := os.ReadFile(s.filePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, ioError(err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, ioError(err)
	}

	return &sess, nil
}

// LoadByIndex loads a session by its position in the list (0 = most recent).
func (s *SessionStore) LoadByIndex(index int) (*model.Session, error) {
	summaries, err := s.List()
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(summaries) {
		return nil, ErrNotFound
	}

	return s.Load(summaries[index].Name)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns summaries of all saved sessions, most recently updated first.
// Corrupted files are skipped rather than failing the whole listing.
func (s *SessionStore) List() ([]SessionSummary, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionSummary{}, nil
		}
		return nil, ioError(err)
	}

	summaries := make([]SessionSummary, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.BaseDir, entry.Name()))
		if err != nil {
			continue
		}

		var sess model.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}

		summaries = append(summaries, SessionSummary{
			Name:         sess.Name,
			Model:        sess.Model,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: sess.MessageCount(),
			Preview:      sess.Preview(80),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	return summaries, nil
}

// Search finds sessions whose name or preview contains the query
// (case-insensitive). An empty query matches everything.
func (s *SessionStore) Search(query string) ([]SessionSummary, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}

	query = strings.ToLower(query)
	var results []SessionSummary

	for _, summary := range all {
		if strings.Contains(strings.ToLower(summary.Name), query) ||
			strings.Contains(strings.ToLower(summary.Preview), query) {
			results = append(results, summary)
		}
	}

	return results, nil
}

// SearchMessages finds sessions where any message contains the query
// (case-insensitive). Loads full transcripts, so slower than Search.
func (s *SessionStore) SearchMessages(query string) ([]SessionSummary, error) {
	if query == "" {
		return s.List()
	}

	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []SessionSummary

	for _, summary := range all {
		sess, err := s.Load(summary.Name)
		if err != nil {
			continue
		}

		for _, msg := range sess.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, summary)
				break
			}
		}
	}

	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a saved session. Deleting an unknown name returns
// ErrNotFound, so a repeated delete of the same name fails.
func (s *SessionStore) Delete(name string) error {
	if err := os.Remove(s.filePath(name)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return ioError(err)
	}

	return nil
}

// Clear removes all saved sessions.
func (s *SessionStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ioError(err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// filePath returns the file path backing a session name.
func (s *SessionStore) filePath(name string) string {
	return filepath.Join(s.BaseDir, slugify(name)+".json")
}

// slugify turns a session name into a safe filename: lowercase, runs of
// non-alphanumerics collapsed to single dashes. Names that slug identically
// ("My Chat" and "my chat") are treated as the same session.
func slugify(name string) string {
	var sb strings.Builder
	lastDash := true // suppress leading dash

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		slug = "session"
	}
	return slug
}

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionTable formats session summaries as a plain text table for the
// CLI listing command.
func FormatSessionTable(summaries []SessionSummary) string {
	if len(summaries) == 0 {
		return "No saved sessions."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("NAME", 24) + " " +
		util.PadRight("UPDATED", 17) + " " +
		util.PadRight("MSGS", 5) + " PREVIEW\n")

	for _, s := range summaries {
		sb.WriteString(util.PadRight(util.TruncateRunes(s.Name, 24), 24) + " " +
			util.PadRight(s.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(util.IntToString(s.MessageCount), 5) + " " +
			util.TruncateRunes(s.Preview, 40) + "\n")
	}
	return sb.String()
}
