// Package record defines the per-edit session record agent hooks append
// to the session log, and small helpers shared by everything that
// produces or displays them.
package record

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/srcattr/srcattr/internal/lineset"
)

// HunkInfo stores the raw unified-diff hunk metadata for an edit.
// This enables line-number adjustment across subsequent edits.
type HunkInfo struct {
	OldStart int `json:"old_start"`
	OldLines int `json:"old_lines"`
	NewStart int `json:"new_start"`
	NewLines int `json:"new_lines"`
}

// Record is a single session JSONL entry: one agent edit, with the
// prompt that caused it and enough references to find its reasoning
// trace later. Commit stays empty until the edit lands in a commit.
type Record struct {
	Ts          string           `json:"ts"`
	File        string           `json:"file"`
	Lines       lineset.LineSet  `json:"lines"`
	Hunk        *HunkInfo        `json:"hunk,omitempty"`
	ContentHash string           `json:"content_hash"`
	Prompt      string           `json:"prompt"`
	Reason      string           `json:"reason"`
	Change      string           `json:"change"`
	Tool        string           `json:"tool"`
	Author      string           `json:"author"`
	Agent       string           `json:"agent,omitempty"` // attribution author ID of the agent session
	Session     string           `json:"session"`
	Trace       string           `json:"trace"`
	Commit      string           `json:"commit,omitempty"`
}

// ContentHash produces a 16-char hex hash of whitespace-normalized text.
func ContentHash(text string) string {
	if text == "" {
		return ""
	}
	normalized := strings.Join(strings.Fields(text), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)[:16]
}

// RelativizePath converts an absolute path to a project-relative path.
// Always uses forward slashes for portability.
func RelativizePath(absPath, projectDir string) string {
	if absPath == "" {
		return ""
	}
	rel, err := filepath.Rel(projectDir, absPath)
	if err != nil {
		return absPath
	}
	return filepath.ToSlash(rel)
}

// CompactChangeSummary generates a human-readable summary of what changed.
func CompactChangeSummary(oldStr, newStr string) string {
	const maxLen = 200

	if oldStr == "" && newStr != "" {
		preview := strings.ReplaceAll(newStr, "\n", " ")
		if len(preview) > maxLen {
			preview = preview[:maxLen]
		}
		return "added: " + preview
	}

	if oldStr != "" && newStr == "" {
		preview := strings.ReplaceAll(oldStr, "\n", " ")
		if len(preview) > maxLen {
			preview = preview[:maxLen]
		}
		return "removed: " + preview
	}

	// Normalize to single-line for display
	oldFlat := strings.TrimSpace(strings.ReplaceAll(oldStr, "\n", " "))
	newFlat := strings.TrimSpace(strings.ReplaceAll(newStr, "\n", " "))

	// Find common prefix length
	common := 0
	minLen := len(oldFlat)
	if len(newFlat) < minLen {
		minLen = len(newFlat)
	}
	for i := 0; i < minLen; i++ {
		if oldFlat[i] == newFlat[i] {
			common++
		} else {
			break
		}
	}

	var oldDisplay, newDisplay string
	if common > 20 {
		offset := common - 10
		if offset < 0 {
			offset = 0
		}
		oldDisplay = "…" + oldFlat[offset:]
		newDisplay = "…" + newFlat[offset:]
	} else {
		oldDisplay = oldFlat
		newDisplay = newFlat
	}

	if len(oldDisplay) > maxLen {
		oldDisplay = oldDisplay[:maxLen] + "…"
	}
	if len(newDisplay) > maxLen {
		newDisplay = newDisplay[:maxLen] + "…"
	}

	return oldDisplay + " → " + newDisplay
}
