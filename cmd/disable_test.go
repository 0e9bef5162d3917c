package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/srcattr/srcattr/internal/project"
)

func TestCmdDisable_FullCleanup(t *testing.T) {
	tmpDir := t.TempDir()

	// Create .git/ai/ with a session file and an index
	aiDir := filepath.Join(tmpDir, ".git", "ai")
	if err := os.MkdirAll(filepath.Join(aiDir, "sessions"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(aiDir, "sessions", "session.jsonl"), []byte(`{"file":"x"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(aiDir, "index.db"), []byte("sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Create .git/hooks/pre-commit with the git-ai marker only
	hooksDir := filepath.Join(tmpDir, ".git", "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	preCommitContent := "#!/usr/bin/env bash\n\n# git-ai: checkpoint human edits\ngit-ai hook pre-commit \"$@\"\n"
	if err := os.WriteFile(filepath.Join(hooksDir, "pre-commit"), []byte(preCommitContent), 0o755); err != nil {
		t.Fatal(err)
	}

	paths := project.NewPaths(tmpDir)
	out := captureStdout(t, func() {
		cmdDisable(paths, tmpDir)
	})

	if !strings.Contains(out, "Removed .git/ai/") {
		t.Errorf("expected output to contain 'Removed .git/ai/', got: %s", out)
	}

	if _, err := os.Stat(aiDir); !os.IsNotExist(err) {
		t.Error(".git/ai/ directory should have been deleted")
	}
	if _, err := os.Stat(filepath.Join(hooksDir, "pre-commit")); !os.IsNotExist(err) {
		t.Error("pre-commit hook with only git-ai content should have been deleted")
	}
}

func TestCmdDisable_SharedHookCleaned(t *testing.T) {
	tmpDir := t.TempDir()

	// Create .git/ai/ so the "not initialized" path is not hit
	if err := os.MkdirAll(filepath.Join(tmpDir, ".git", "ai"), 0o755); err != nil {
		t.Fatal(err)
	}

	// pre-commit hook with BOTH git-ai content AND other custom content
	hooksDir := filepath.Join(tmpDir, ".git", "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	preCommitContent := "#!/usr/bin/env bash\n\n# Run linter\nnpx eslint .\n\n# git-ai: checkpoint human edits\ngit-ai hook pre-commit \"$@\"\n"
	if err := os.WriteFile(filepath.Join(hooksDir, "pre-commit"), []byte(preCommitContent), 0o755); err != nil {
		t.Fatal(err)
	}

	paths := project.NewPaths(tmpDir)
	captureStdout(t, func() {
		cmdDisable(paths, tmpDir)
	})

	data, err := os.ReadFile(filepath.Join(hooksDir, "pre-commit"))
	if err != nil {
		t.Fatal("pre-commit hook should still exist (has non-git-ai content)")
	}
	remaining := string(data)
	if !strings.Contains(remaining, "npx eslint") {
		t.Errorf("custom hook content should survive, got: %s", remaining)
	}
	if strings.Contains(remaining, "git-ai") {
		t.Errorf("pre-commit should not contain git-ai references, got: %s", remaining)
	}
}

func TestCmdDisable_NotInitialized(t *testing.T) {
	tmpDir := t.TempDir()

	// Create .git/ but NOT .git/ai/
	if err := os.MkdirAll(filepath.Join(tmpDir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths := project.NewPaths(tmpDir)
	out := captureStdout(t, func() {
		cmdDisable(paths, tmpDir)
	})

	if !strings.Contains(out, "not initialized") {
		t.Errorf("expected output to contain 'not initialized', got: %s", out)
	}
}
