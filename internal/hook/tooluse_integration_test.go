package hook

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/srcattr/srcattr/internal/record"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// TestHandlePostToolUse_EndToEnd drives the full pipeline: a Claude Code
// hook payload goes in, a session record and an AiAgent checkpoint with
// attributions come out.
func TestHandlePostToolUse_EndToEnd(t *testing.T) {
	tmpDir := t.TempDir()
	initGitRepo(t, tmpDir)
	writeRepoFile(t, tmpDir, "src/main.go", "package main\n")
	run(t, tmpDir, "git", "add", ".")
	run(t, tmpDir, "git", "commit", "-m", "add main")

	// Stash prompt state the way the UserPromptSubmit hook would.
	ps := promptState{
		Prompt:         "fix the bug in handler",
		Author:         "claude-test",
		SessionID:      "session-abc",
		TranscriptPath: "/transcript/path",
		SessionFile:    "20250101T000000Z-test.jsonl",
	}
	psBytes, _ := json.Marshal(ps)
	_ = os.WriteFile(filepath.Join(tmpDir, ".git", "ai", "current_prompt.json"), psBytes, 0o644)

	t.Setenv("CLAUDE_PROJECT_DIR", tmpDir)

	// The agent appends a function.
	writeRepoFile(t, tmpDir, "src/main.go", "package main\n\nfunc handler() {}\n")

	payload := map[string]interface{}{
		"tool_name": "Edit",
		"tool_input": map[string]interface{}{
			"file_path":  filepath.Join(tmpDir, "src", "main.go"),
			"old_string": "package main\n",
			"new_string": "package main\n\nfunc handler() {}\n",
		},
		"tool_response": map[string]interface{}{
			"structuredPatch": []interface{}{
				map[string]interface{}{
					"oldStart": float64(1),
					"oldLines": float64(1),
					"newStart": float64(1),
					"newLines": float64(3),
				},
			},
		},
		"tool_use_id": "tool-123",
	}

	payloadBytes, _ := json.Marshal(payload)
	if err := HandlePostToolUse(bytes.NewReader(payloadBytes)); err != nil {
		t.Fatal(err)
	}

	// Session record written.
	records, err := record.ReadSession(filepath.Join(tmpDir, ".git", "ai", "sessions", ps.SessionFile))
	if err != nil || len(records) != 1 {
		t.Fatalf("expected 1 session record, got %d (err=%v)", len(records), err)
	}
	rec := records[0]
	if rec.File != "src/main.go" {
		t.Errorf("file = %q, want %q", rec.File, "src/main.go")
	}
	if rec.Prompt != "fix the bug in handler" {
		t.Errorf("prompt = %q", rec.Prompt)
	}
	if rec.Session != "session-abc" || rec.Tool != "Edit" {
		t.Errorf("session/tool = %q/%q", rec.Session, rec.Tool)
	}
	if rec.Trace != "/transcript/path#tool-123" {
		t.Errorf("trace = %q", rec.Trace)
	}
	if rec.Agent == "" || rec.Agent == "Human" {
		t.Errorf("agent author id = %q", rec.Agent)
	}

	// Checkpoint appended with the agent's attribution.
	head := revParse(t, tmpDir, "HEAD")
	wl := workinglog.Open(filepath.Join(tmpDir, ".git"), head)
	cps, err := wl.ReadAll()
	if err != nil || len(cps) != 1 {
		t.Fatalf("expected 1 checkpoint, got %d (err=%v)", len(cps), err)
	}
	cp := cps[0]
	if cp.Kind != workinglog.KindAiAgent {
		t.Errorf("kind = %q", cp.Kind)
	}
	entry, ok := cp.EntryForFile("src/main.go")
	if !ok {
		t.Fatal("no entry for src/main.go")
	}
	attributed := false
	for _, a := range entry.Attributions {
		if a.AuthorID == rec.Agent {
			attributed = true
		}
	}
	if !attributed {
		t.Errorf("no attribution for agent %s: %+v", rec.Agent, entry.Attributions)
	}
}

// TestHandlePostToolUse_WriteUsesProvidedContent verifies that a Write
// tool's content reaches the checkpoint through the dirty-files map even
// if the file never hits the disk.
func TestHandlePostToolUse_WriteUsesProvidedContent(t *testing.T) {
	tmpDir := t.TempDir()
	initGitRepo(t, tmpDir)

	ps := promptState{Author: "test", SessionID: "s-2", SessionFile: "s2.jsonl"}
	psBytes, _ := json.Marshal(ps)
	_ = os.WriteFile(filepath.Join(tmpDir, ".git", "ai", "current_prompt.json"), psBytes, 0o644)

	t.Setenv("CLAUDE_PROJECT_DIR", tmpDir)

	content := "package main\n\nfunc main() {\n}\n"
	payload := map[string]interface{}{
		"tool_name": "Write",
		"tool_input": map[string]interface{}{
			"file_path": filepath.Join(tmpDir, "new_file.go"),
			"content":   content,
		},
	}

	// Note: new_file.go is deliberately NOT written to disk.
	payloadBytes, _ := json.Marshal(payload)
	if err := HandlePostToolUse(bytes.NewReader(payloadBytes)); err != nil {
		t.Fatal(err)
	}

	head := revParse(t, tmpDir, "HEAD")
	wl := workinglog.Open(filepath.Join(tmpDir, ".git"), head)
	cps, err := wl.ReadAll()
	if err != nil || len(cps) != 1 {
		t.Fatalf("expected 1 checkpoint, got %d (err=%v)", len(cps), err)
	}
	entry, ok := cps[0].EntryForFile("new_file.go")
	if !ok {
		t.Fatal("no entry for new_file.go")
	}
	blob, err := wl.ReadBlob(entry.BlobSHA)
	if err != nil || blob != content {
		t.Errorf("blob = %q, want the tool-provided content", blob)
	}
}

// TestHandlePostToolUse_NotInitialized verifies silent no-op behavior.
func TestHandlePostToolUse_NotInitialized(t *testing.T) {
	tmpDir := t.TempDir()
	_ = os.MkdirAll(filepath.Join(tmpDir, ".git"), 0o755)

	t.Setenv("CLAUDE_PROJECT_DIR", tmpDir)

	payload := `{"tool_name":"Edit","tool_input":{"file_path":"x.go","old_string":"a","new_string":"b"}}`
	if err := HandlePostToolUse(bytes.NewReader([]byte(payload))); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".git", "ai", "sessions")); err == nil {
		t.Error("sessions dir should not exist when not initialized")
	}
}

func initGitRepo(t *testing.T, dir string) {
	t.Helper()
	run(t, dir, "git", "init")
	run(t, dir, "git", "config", "user.name", "Test")
	run(t, dir, "git", "config", "user.email", "test@test.com")
	run(t, dir, "git", "commit", "--allow-empty", "-m", "init")
	_ = os.MkdirAll(filepath.Join(dir, ".git", "ai"), 0o755)
}

func writeRepoFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func revParse(t *testing.T, dir, ref string) string {
	t.Helper()
	cmd := exec.Command("git", "rev-parse", ref)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("rev-parse %s: %v", ref, err)
	}
	return strings.TrimSpace(string(out))
}

func run(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("%s %v failed: %v\n%s", name, args, err, out)
	}
}
