package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/provenance"
)

// gitHookSpecs lists every git hook the tracker needs and the purpose shown
// in its marker comment, in install order. Each hook runs
// `git-ai hook <name> "$@"`; "$@" forwards the hook's positional arguments
// (commit-msg file, rewrite command, checkout SHAs).
var gitHookSpecs = []struct {
	name    string
	purpose string
}{
	{"pre-commit", "checkpoint human edits"},
	{"commit-msg", "fill reasons and tag the commit"},
	{"post-commit", "carry attribution forward"},
	{"post-merge", "follow merged history"},
	{"post-rewrite", "follow rewritten history"},
	{"post-checkout", "follow fast-forwards"},
	{"reference-transaction", "drop superseded logs"},
	{"pre-push", "publish attribution notes"},
	{"pre-rebase", "checkpoint before rewriting"},
}

// RunEnable handles the "enable" subcommand.
func RunEnable(args []string) {
	fs := flag.NewFlagSet("enable", flag.ExitOnError)
	global := fs.Bool("global", false, "Also configure Claude Code hooks globally")
	fs.Parse(args)

	if *global {
		enableGlobal()
	}

	enableRepo()
}

func enableGlobal() {
	fmt.Println("Installing git-ai globally...")

	// Find the binary path
	binaryPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not determine binary path: %v\n", err)
		os.Exit(1)
	}

	// Configure Claude Code hooks
	settingsFile := filepath.Join(os.Getenv("HOME"), ".claude", "settings.json")
	_ = os.MkdirAll(filepath.Dir(settingsFile), 0o755)

	var settings map[string]interface{}
	if data, err := os.ReadFile(settingsFile); err == nil {
		_ = json.Unmarshal(data, &settings)
	}
	if settings == nil {
		settings = map[string]interface{}{}
	}

	hooks, _ := settings["hooks"].(map[string]interface{})
	if hooks == nil {
		hooks = map[string]interface{}{}
	}

	// PreToolUse — checkpoint human edits before the agent touches files
	preTool := filterHookEntries(hooks, "PreToolUse", "git-ai")
	preTool = append(preTool, map[string]interface{}{
		"matcher": "Edit|Write|MultiEdit",
		"hooks":   []interface{}{map[string]interface{}{"type": "command", "command": binaryPath + " hook pre-tool-use"}},
	})
	hooks["PreToolUse"] = preTool

	// PostToolUse — record the edit and checkpoint as the agent
	postTool := filterHookEntries(hooks, "PostToolUse", "git-ai")
	postTool = append(postTool, map[string]interface{}{
		"matcher": "Edit|Write|MultiEdit",
		"hooks":   []interface{}{map[string]interface{}{"type": "command", "command": binaryPath + " hook post-tool-use"}},
	})
	hooks["PostToolUse"] = postTool

	// UserPromptSubmit — stash the prompt for session records
	userPrompt := filterHookEntries(hooks, "UserPromptSubmit", "git-ai")
	userPrompt = append(userPrompt, map[string]interface{}{
		"hooks": []interface{}{map[string]interface{}{"type": "command", "command": binaryPath + " hook prompt-submit"}},
	})
	hooks["UserPromptSubmit"] = userPrompt

	settings["hooks"] = hooks

	b, _ := json.MarshalIndent(settings, "", "  ")
	if err := os.WriteFile(settingsFile, append(b, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing settings: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("  ✓ Claude Code hooks configured in %s\n", settingsFile)
}

func filterHookEntries(hooks map[string]interface{}, key, exclude string) []interface{} {
	existing, _ := hooks[key].([]interface{})
	var filtered []interface{}
	for _, entry := range existing {
		e, ok := entry.(map[string]interface{})
		if !ok {
			filtered = append(filtered, entry)
			continue
		}
		hooksList, _ := e["hooks"].([]interface{})
		hasExcluded := false
		for _, h := range hooksList {
			hm, ok := h.(map[string]interface{})
			if ok {
				cmd, _ := hm["command"].(string)
				if strings.Contains(cmd, exclude) {
					hasExcluded = true
					break
				}
			}
		}
		if !hasExcluded {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func enableRepo() {
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: not inside a git repository")
		os.Exit(1)
	}
	projDir := strings.TrimSpace(string(out))
	paths := project.NewPaths(projDir)

	fmt.Printf("Initializing attribution tracking in %s\n", projDir)

	// 1. Local state directories under the git dir
	_ = os.MkdirAll(paths.WorkingLogsDir, 0o755)
	_ = os.MkdirAll(paths.SessionsDir, 0o755)
	_ = os.MkdirAll(filepath.Join(paths.CacheDir, "logs"), 0o755)
	fmt.Println("  ✓ Local state at .git/ai/")

	// 2. Install every git hook
	for _, spec := range gitHookSpecs {
		installGitHook(paths.GitDir, spec.name,
			fmt.Sprintf("# git-ai: %s", spec.purpose),
			fmt.Sprintf(`git-ai hook %s "$@"`, spec.name))
	}

	// 3. Fetch attribution notes from the remote, if it has any
	cmd := exec.Command("git", "fetch", "origin", provenance.NotesRef+":"+provenance.NotesRef)
	cmd.Dir = projDir
	_ = cmd.Run() // remote may not have the ref

	fmt.Println()
	fmt.Println("  Ready! Attribution is tracked under .git/ai/ and")
	fmt.Printf("  shared through %s.\n", provenance.NotesRef)
}

// installGitHook installs or appends a git-ai section to a git hook script.
func installGitHook(gitDir, hookName, marker, command string) {
	hookDir := filepath.Join(gitDir, "hooks")
	hookFile := filepath.Join(hookDir, hookName)

	if data, err := os.ReadFile(hookFile); err == nil && strings.Contains(string(data), marker) {
		fmt.Printf("  ✓ %s hook already installed\n", hookName)
		return
	}

	_ = os.MkdirAll(hookDir, 0o755)
	hookContent := fmt.Sprintf("\n%s\n%s\n", marker, command)

	if _, err := os.Stat(hookFile); err == nil {
		// Append to existing hook
		f, err := os.OpenFile(hookFile, os.O_APPEND|os.O_WRONLY, 0o755)
		if err == nil {
			f.WriteString(hookContent)
			f.Close()
			fmt.Printf("  ✓ Appended to existing %s hook\n", hookName)
		}
	} else {
		_ = os.WriteFile(hookFile, []byte("#!/usr/bin/env bash\n"+hookContent), 0o755)
		fmt.Printf("  ✓ Installed %s hook\n", hookName)
	}
}
