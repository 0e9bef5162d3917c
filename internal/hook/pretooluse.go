package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/srcattr/srcattr/internal/checkpoint"
	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/record"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// HandlePreToolUse runs before an agent edit tool executes. It takes a
// human checkpoint naming the files about to change, so any edits the
// human made since the last checkpoint are attributed to them before the
// agent's authorship begins.
func HandlePreToolUse(r io.Reader) error {
	root, err := project.FindRoot()
	if err != nil {
		return err
	}

	if !project.IsInitialized(root) {
		return nil
	}

	paths := project.NewPaths(root)

	raw, err := io.ReadAll(r)
	if err != nil {
		debug.Log(paths.CacheDir, "hook.log", fmt.Sprintf("PreToolUse: failed to read stdin: %v", err), nil)
		return nil
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		debug.Log(paths.CacheDir, "hook.log", fmt.Sprintf("PreToolUse: failed to parse JSON: %v", err), nil)
		return nil
	}

	toolName := getString(data, "tool_name")
	toolInput := getMap(data, "tool_input")

	debug.Log(paths.CacheDir, "hook.log", "PreToolUse payload", map[string]interface{}{
		"tool_name":   toolName,
		"tool_use_id": getString(data, "tool_use_id"),
	})

	filePaths := extractPreEditFilePaths(toolName, toolInput, root)
	if len(filePaths) == 0 {
		return nil
	}

	res, err := checkpoint.Run(paths, checkpoint.Options{
		Kind:              workinglog.KindHuman,
		Author:            git.Author(),
		WillEditFilepaths: filePaths,
		Quiet:             true,
	})
	if err != nil {
		debug.Log(paths.CacheDir, "hook.log",
			fmt.Sprintf("PreToolUse: checkpoint failed: %v", err), nil)
		return nil
	}
	debug.Log(paths.CacheDir, "hook.log",
		fmt.Sprintf("PreToolUse: human checkpoint before %s: %d entries", toolName, res.Entries), nil)
	return nil
}

// extractPreEditFilePaths extracts file paths from the tool input for Edit/Write/MultiEdit.
func extractPreEditFilePaths(toolName string, toolInput map[string]interface{}, projectDir string) []string {
	switch toolName {
	case "Edit", "Write":
		filePath := getString(toolInput, "file_path")
		if filePath == "" {
			filePath = getString(toolInput, "path")
		}
		if filePath == "" {
			return nil
		}
		return []string{record.RelativizePath(filePath, projectDir)}

	case "MultiEdit":
		subEdits := getArray(toolInput, "edits")
		if subEdits == nil {
			subEdits = getArray(toolInput, "changes")
		}

		seen := map[string]bool{}
		var paths []string

		// Check top-level file_path
		topFile := getString(toolInput, "file_path")
		if topFile == "" {
			topFile = getString(toolInput, "path")
		}

		for _, editRaw := range subEdits {
			edit, ok := editRaw.(map[string]interface{})
			if !ok {
				continue
			}
			editFile := getString(edit, "file_path")
			if editFile == "" {
				editFile = topFile
			}
			if editFile == "" {
				continue
			}
			rel := record.RelativizePath(editFile, projectDir)
			if !seen[rel] {
				seen[rel] = true
				paths = append(paths, rel)
			}
		}
		return paths

	default:
		return nil
	}
}
