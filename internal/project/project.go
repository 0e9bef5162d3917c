package project

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Paths holds all relevant directories for a tracked repo. Everything
// lives under <gitdir>/ai/ so attribution state never touches the
// working tree.
type Paths struct {
	Root           string // git repo root (working tree top level)
	GitDir         string // actual .git directory (resolved for worktrees)
	AiDir          string // <gitdir>/ai/
	WorkingLogsDir string // <gitdir>/ai/working_logs/
	SessionsDir    string // <gitdir>/ai/sessions/  (agent-session JSONL records)
	TracesDir      string // <gitdir>/ai/traces/
	CacheDir       string // alias for AiDir; debug logs go to <AiDir>/logs/
	IndexDB        string // <gitdir>/ai/index.db
}

// FindRoot returns the git project root, preferring CLAUDE_PROJECT_DIR if set.
func FindRoot() (string, error) {
	if dir := os.Getenv("CLAUDE_PROJECT_DIR"); dir != "" {
		return dir, nil
	}
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git repository")
	}
	return strings.TrimSpace(string(out)), nil
}

// NewPaths constructs all path constants from a project root.
func NewPaths(root string) Paths {
	gitDir := resolveGitDir(root)
	aiDir := filepath.Join(gitDir, "ai")
	return Paths{
		Root:           root,
		GitDir:         gitDir,
		AiDir:          aiDir,
		WorkingLogsDir: filepath.Join(aiDir, "working_logs"),
		SessionsDir:    filepath.Join(aiDir, "sessions"),
		TracesDir:      filepath.Join(aiDir, "traces"),
		CacheDir:       aiDir,
		IndexDB:        filepath.Join(aiDir, "index.db"),
	}
}

// resolveGitDir returns the actual .git directory, handling worktrees
// where .git is a file containing "gitdir: <path>".
func resolveGitDir(root string) string {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Lstat(dotGit)
	if err != nil {
		return dotGit
	}
	if info.IsDir() {
		return dotGit
	}
	// .git is a file (worktree) — read the gitdir pointer
	data, err := os.ReadFile(dotGit)
	if err != nil {
		return dotGit
	}
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "gitdir: ") {
		return dotGit
	}
	gitdir := strings.TrimPrefix(content, "gitdir: ")
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(root, gitdir)
	}
	return gitdir
}

// IsInitialized returns true if attribution tracking has been enabled in
// this repo: either the <gitdir>/ai/ directory exists or the notes
// namespace has already been seeded by another clone.
func IsInitialized(root string) bool {
	paths := NewPaths(root)
	if info, err := os.Stat(paths.AiDir); err == nil && info.IsDir() {
		return true
	}
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", "refs/notes/ai")
	cmd.Dir = root
	return cmd.Run() == nil
}

// InRepo reports whether abs is inside the repo working tree rooted at
// root. Paths outside the repo are filtered out of checkpoint candidate
// sets rather than erroring.
func InRepo(root, abs string) bool {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
