package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/srcattr/srcattr/internal/checkpoint"
	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// tabPayload is what editor tab-completion integrations post: the files
// a completion landed in, optionally with buffer contents that may not
// be flushed to disk yet.
type tabPayload struct {
	SessionID string            `json:"session_id"`
	Tool      string            `json:"tool"`
	Model     string            `json:"model"`
	Files     []string          `json:"files"`
	Contents  map[string]string `json:"contents"`
}

// HandleTabComplete takes an AiTab checkpoint for an accepted
// tab-completion.
func HandleTabComplete(r io.Reader) error {
	root, err := project.FindRoot()
	if err != nil {
		return err
	}
	if !project.IsInitialized(root) {
		return nil
	}
	paths := project.NewPaths(root)

	raw, err := io.ReadAll(r)
	if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	var payload tabPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		debug.Log(paths.CacheDir, "hook.log", fmt.Sprintf("tab-complete: bad payload: %v", err), nil)
		return nil
	}
	if payload.Tool == "" {
		payload.Tool = "tab"
	}

	res, err := checkpoint.Run(paths, checkpoint.Options{
		Kind:            workinglog.KindAiTab,
		AgentID:         &workinglog.AgentID{Tool: payload.Tool, ID: payload.SessionID, Model: payload.Model},
		EditedFilepaths: payload.Files,
		DirtyFiles:      payload.Contents,
		Quiet:           true,
	})
	if err != nil {
		debug.Log(paths.CacheDir, "hook.log", fmt.Sprintf("tab-complete: checkpoint failed: %v", err), nil)
		return nil
	}
	debug.Log(paths.CacheDir, "hook.log",
		fmt.Sprintf("tab-complete: %d entries for session %s", res.Entries, payload.SessionID), nil)
	return nil
}
