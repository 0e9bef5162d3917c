// Package provenance mirrors per-commit attribution summaries into the
// refs/notes/ai namespace so other clones can bootstrap their INITIAL
// attributions without access to this machine's working logs. Notes are
// written with raw git plumbing (hash-object, read-tree, write-tree,
// commit-tree against a private index file) — the working tree is never
// touched and the notes ref is never checked out.
package provenance

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/srcattr/srcattr/internal/attribution"
)

const (
	// NotesRef is the full ref the mirror writes and pre-push publishes.
	NotesRef = "refs/notes/ai"
	// NotesName is the short name git's notes porcelain wants.
	NotesName = "ai"
)

// Summary is one commit's note payload: every file the commit's
// checkpoints touched, with the line attributions in force at commit
// time. The shape matches what the notes bridge parses on the read side.
type Summary struct {
	Files map[string][]attribution.LineAttribution `json:"files"`
}

// RefExists returns true if the notes ref exists locally.
func RefExists(root string) bool {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", NotesRef)
	cmd.Dir = root
	return cmd.Run() == nil
}

// InitRef creates the notes ref with an empty root commit. Idempotent.
func InitRef(root string) error {
	if RefExists(root) {
		return nil
	}

	cmd := exec.Command("git", "mktree")
	cmd.Dir = root
	cmd.Stdin = strings.NewReader("")
	treeOut, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("mktree: %w", err)
	}
	treeSHA := strings.TrimSpace(string(treeOut))

	cmd = exec.Command("git", "commit-tree", treeSHA, "-m", "ai: initialize attribution notes")
	cmd.Dir = root
	commitOut, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("commit-tree: %w", err)
	}
	commitSHA := strings.TrimSpace(string(commitOut))

	cmd = exec.Command("git", "update-ref", NotesRef, commitSHA)
	cmd.Dir = root
	return cmd.Run()
}

// WriteSummary attaches a Summary note to commitSHA, replacing any
// existing note for that commit.
func WriteSummary(root, gitDir, commitSHA string, files map[string][]attribution.LineAttribution) error {
	if len(files) == 0 {
		return nil
	}
	data, err := json.Marshal(Summary{Files: files})
	if err != nil {
		return err
	}
	return writeNote(root, gitDir, commitSHA, append(data, '\n'))
}

// writeNote writes payload as the note blob for targetSHA using git
// plumbing. The note tree keys blobs by the annotated object's hex SHA,
// the same flat layout git notes itself starts with.
func writeNote(root, gitDir, targetSHA string, payload []byte) error {
	if err := InitRef(root); err != nil {
		return err
	}

	indexFile := filepath.Join(gitDir, "ai-notes-index")
	defer os.Remove(indexFile)

	env := append(os.Environ(), "GIT_INDEX_FILE="+indexFile)

	// 1. Read the current note tree into the private index
	cmd := exec.Command("git", "read-tree", NotesRef)
	cmd.Dir = root
	cmd.Env = env
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("read-tree: %w", err)
	}

	// 2. Hash the payload as a blob
	cmd = exec.Command("git", "hash-object", "-w", "--stdin")
	cmd.Dir = root
	cmd.Stdin = strings.NewReader(string(payload))
	blobOut, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("hash-object: %w", err)
	}
	blobSHA := strings.TrimSpace(string(blobOut))

	// 3. Stage the blob at the annotated object's SHA
	cmd = exec.Command("git", "update-index", "--add", "--cacheinfo",
		fmt.Sprintf("100644,%s,%s", blobSHA, targetSHA))
	cmd.Dir = root
	cmd.Env = env
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("update-index: %w", err)
	}

	// 4. Write the tree
	cmd = exec.Command("git", "write-tree")
	cmd.Dir = root
	cmd.Env = env
	treeOut, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("write-tree: %w", err)
	}
	treeSHA := strings.TrimSpace(string(treeOut))

	// 5. Commit with the current tip as parent
	parentSHA := TipSHA(root)
	cmd = exec.Command("git", "commit-tree", treeSHA, "-p", parentSHA, "-m",
		fmt.Sprintf("ai: note for %s", shortSHA(targetSHA)))
	cmd.Dir = root
	commitOut, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("commit-tree: %w", err)
	}
	commitSHA := strings.TrimSpace(string(commitOut))

	// 6. Advance the ref
	cmd = exec.Command("git", "update-ref", NotesRef, commitSHA)
	cmd.Dir = root
	return cmd.Run()
}

// ReadSummary reads back the note for a commit, if any. Absence returns
// (nil, nil).
func ReadSummary(root, commitSHA string) (*Summary, error) {
	cmd := exec.Command("git", "show", NotesRef+":"+commitSHA)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, nil
	}
	var s Summary
	if err := json.Unmarshal(out, &s); err != nil {
		return nil, fmt.Errorf("parse note for %s: %w", shortSHA(commitSHA), err)
	}
	return &s, nil
}

// TipSHA returns the notes ref's tip commit SHA, or "" if absent.
func TipSHA(root string) string {
	cmd := exec.Command("git", "rev-parse", NotesRef)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// PushNotes pushes the notes ref, merging with the remote's copy when
// the push is rejected. Retries maxRetries times. A missing remote is
// silently skipped — publishing notes must never block a code push.
func PushNotes(root string, remote string, maxRetries int) error {
	if remote == "" {
		remote = "origin"
	}

	cmd := exec.Command("git", "remote", "get-url", remote)
	cmd.Dir = root
	if err := cmd.Run(); err != nil {
		return nil // no remote configured
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		cmd = exec.Command("git", "push", remote, NotesRef)
		cmd.Dir = root
		if err := cmd.Run(); err == nil {
			return nil
		}

		// Rejected: fetch the remote notes and merge them under ours.
		cmd = exec.Command("git", "fetch", remote, NotesRef+":refs/notes/ai-remote")
		cmd.Dir = root
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("fetch %s: %w", remote, err)
		}
		cmd = exec.Command("git", "notes", "--ref="+NotesName, "merge", "-s", "cat_sort_uniq", "refs/notes/ai-remote")
		cmd.Dir = root
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("notes merge: %w", err)
		}
	}
	return fmt.Errorf("push failed after %d retries", maxRetries)
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
