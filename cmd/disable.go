package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/provenance"
)

// RunDisable handles the "disable" subcommand.
func RunDisable(args []string) {
	root, err := project.FindRoot()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	paths := project.NewPaths(root)
	cmdDisable(paths, root)
}

func cmdDisable(paths project.Paths, projectRoot string) {
	var removed []string

	// 1. Delete the local attribution notes ref
	if provenance.RefExists(projectRoot) {
		cmd := exec.Command("git", "update-ref", "-d", provenance.NotesRef)
		cmd.Dir = projectRoot
		if err := cmd.Run(); err == nil {
			removed = append(removed, provenance.NotesRef)
		}
	}

	// 2. Remove .git/ai/ (working logs, sessions, traces, index)
	if info, err := os.Stat(paths.AiDir); err == nil && info.IsDir() {
		_ = os.RemoveAll(paths.AiDir)
		removed = append(removed, ".git/ai/")
	}

	// 3. Clean git hooks
	for _, spec := range gitHookSpecs {
		cleanGitHook(paths.GitDir, spec.name,
			fmt.Sprintf("# git-ai: %s", spec.purpose), &removed)
	}

	if len(removed) > 0 {
		for _, item := range removed {
			fmt.Printf("  Removed %s\n", item)
		}
		fmt.Println()
		fmt.Println("Attribution tracking removed from this repo.")
		fmt.Println("Note: the global CLI and hooks are still installed.")
		fmt.Println("Run 'git-ai enable' to re-initialize.")
	} else {
		fmt.Println("git-ai is not initialized in this repo.")
	}
}

// cleanGitHook removes the git-ai section from a git hook file.
func cleanGitHook(gitDir, hookName, marker string, removed *[]string) {
	hookFile := filepath.Join(gitDir, "hooks", hookName)
	data, err := os.ReadFile(hookFile)
	if err != nil {
		return
	}
	content := string(data)
	if !strings.Contains(content, marker) {
		return
	}

	lines := strings.Split(content, "\n")
	var cleaned []string
	skip := false
	for _, line := range lines {
		if strings.Contains(line, marker) {
			skip = true
			// Remove preceding blank line
			if len(cleaned) > 0 && strings.TrimSpace(cleaned[len(cleaned)-1]) == "" {
				cleaned = cleaned[:len(cleaned)-1]
			}
			continue
		}
		if skip {
			stripped := strings.TrimSpace(line)
			// Skip the command line(s) following the marker
			if strings.HasPrefix(stripped, "git-ai ") ||
				strings.HasPrefix(stripped, "#") ||
				strings.HasPrefix(stripped, "if ") ||
				stripped == "fi" {
				continue
			}
			skip = false
		}
		cleaned = append(cleaned, line)
	}

	remaining := strings.TrimSpace(strings.Join(cleaned, "\n"))
	if remaining == "" || remaining == "#!/usr/bin/env bash" {
		_ = os.Remove(hookFile)
		*removed = append(*removed, fmt.Sprintf(".git/hooks/%s (deleted)", hookName))
	} else {
		_ = os.WriteFile(hookFile, []byte(strings.Join(cleaned, "\n")), 0o755)
		*removed = append(*removed, fmt.Sprintf(".git/hooks/%s (cleaned)", hookName))
	}
}
