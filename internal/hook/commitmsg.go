package hook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/llm"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/record"
	"github.com/srcattr/srcattr/internal/transcript"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// HandleCommitMsg runs just before the commit message is finalized. It
// fills empty reasons on this session's edit records, extracts reasoning
// traces from the transcripts, and — when the working log holds AI
// checkpoints — appends an AI-Checkpoint trailer naming the snapshot the
// commit closes out.
func HandleCommitMsg(commitMsgFile string) error {
	root, err := project.FindRoot()
	if err != nil {
		return err
	}
	if !project.IsInitialized(root) {
		return nil
	}
	paths := project.NewPaths(root)

	fillSessionReasons(paths)
	writeSessionTraces(paths)

	base := git.HeadSHA(root)
	wl := workinglog.Open(paths.GitDir, base)
	cps, err := wl.ReadAll()
	if err != nil || len(cps) == 0 {
		return nil
	}

	var lastAi *workinglog.Checkpoint
	for i := range cps {
		if cps[i].Kind != workinglog.KindHuman && len(cps[i].Entries) > 0 {
			lastAi = &cps[i]
		}
	}
	if lastAi == nil {
		return nil
	}

	if err := appendTrailer(commitMsgFile, shortHash(lastAi.Diff)); err != nil {
		debug.Log(paths.CacheDir, "hook.log",
			fmt.Sprintf("commit-msg: failed to append trailer: %v", err), nil)
	}
	return nil
}

// appendTrailer adds an AI-Checkpoint trailer to the commit message file.
func appendTrailer(commitMsgFile, checkpointRef string) error {
	data, err := os.ReadFile(commitMsgFile)
	if err != nil {
		return err
	}
	msg := strings.TrimRight(string(data), "\n")

	// Ensure blank line before trailer block
	if !strings.Contains(msg, "\n\n") {
		msg += "\n"
	}
	msg += "\nAI-Checkpoint: " + checkpointRef + "\n"
	return os.WriteFile(commitMsgFile, []byte(msg), 0o644)
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}

// fillSessionReasons fills empty reason fields on this repo's session
// records using Claude Haiku, grouped per session so one call covers a
// whole transcript's edits.
func fillSessionReasons(paths project.Paths) {
	sessions, err := os.ReadDir(paths.SessionsDir)
	if err != nil {
		return
	}

	for _, s := range sessions {
		if !strings.HasSuffix(s.Name(), ".jsonl") {
			continue
		}
		sessionPath := filepath.Join(paths.SessionsDir, s.Name())
		records, err := record.ReadSession(sessionPath)
		if err != nil || len(records) == 0 {
			continue
		}

		var empty []int
		for i, rec := range records {
			if rec.Reason == "" {
				empty = append(empty, i)
			}
		}
		if len(empty) == 0 {
			continue
		}

		transcriptPath := transcriptPathFor(records)
		sessionPrompts := transcript.ExtractSessionPrompts(transcriptPath)
		if len(sessionPrompts) == 0 {
			seen := make(map[string]bool)
			for _, i := range empty {
				if p := records[i].Prompt; p != "" && !seen[p] {
					sessionPrompts = append(sessionPrompts, p)
					seen[p] = true
				}
			}
		}

		var edits []fillEdit
		for n, i := range empty {
			edits = append(edits, fillEdit{
				id:     n + 1, // 1-indexed for the model
				file:   records[i].File,
				change: records[i].Change,
			})
		}

		results, err := llm.CallHaiku(buildFillPrompt(sessionPrompts, edits))
		if err != nil {
			debug.Log(paths.CacheDir, "hook.log",
				fmt.Sprintf("commit-msg: Haiku fill failed: %v", err), nil)
			continue
		}

		filled := 0
		for _, item := range results {
			if item.ID > 0 && item.ID <= len(empty) && item.Reason != "" {
				records[empty[item.ID-1]].Reason = item.Reason
				filled++
			}
		}
		if filled == 0 {
			continue
		}
		if err := record.WriteSession(sessionPath, records); err != nil {
			debug.Log(paths.CacheDir, "hook.log",
				fmt.Sprintf("commit-msg: rewrite of %s failed: %v", s.Name(), err), nil)
		}
	}
}

type fillEdit struct {
	id     int
	file   string
	change string
}

func buildFillPrompt(sessionPrompts []string, edits []fillEdit) string {
	var parts []string
	parts = append(parts,
		"You are generating concise reasons for AI code edits.",
		"Given the session prompt history and edit details below,",
		"write a brief reason (1 sentence max) for each edit",
		"explaining WHY the change was made.",
		"",
		"Session prompt history (in order):")

	for i, p := range sessionPrompts {
		display := p
		if len(display) > 200 {
			display = display[:197] + "..."
		}
		parts = append(parts, fmt.Sprintf("%d. \"%s\"", i+1, display))
	}

	parts = append(parts, "", "Edits:")
	for _, edit := range edits {
		parts = append(parts, fmt.Sprintf("[%d] File: %s", edit.id, edit.file))
		parts = append(parts, fmt.Sprintf("    Change: %s", edit.change))
	}

	parts = append(parts, "", `Respond with ONLY a JSON array: [{"id": 1, "reason": "..."}, ...]`)
	return strings.Join(parts, "\n")
}

// transcriptPathFor pulls the transcript path out of the records' trace
// references (the part before "#").
func transcriptPathFor(records []record.Record) string {
	for _, rec := range records {
		if idx := strings.Index(rec.Trace, "#"); idx > 0 {
			return rec.Trace[:idx]
		}
	}
	return ""
}

// writeSessionTraces extracts reasoning contexts from each session's
// transcript and persists them under the traces directory.
func writeSessionTraces(paths project.Paths) {
	sessions, err := os.ReadDir(paths.SessionsDir)
	if err != nil {
		return
	}

	for _, s := range sessions {
		if !strings.HasSuffix(s.Name(), ".jsonl") {
			continue
		}
		records, err := record.ReadSession(filepath.Join(paths.SessionsDir, s.Name()))
		if err != nil {
			continue
		}

		// transcript path → tool-use IDs recorded against it
		transcriptEdits := make(map[string][]string)
		for _, rec := range records {
			if idx := strings.Index(rec.Trace, "#"); idx > 0 {
				transcriptPath := rec.Trace[:idx]
				toolUseID := rec.Trace[idx+1:]
				if toolUseID != "" {
					transcriptEdits[transcriptPath] = append(transcriptEdits[transcriptPath], toolUseID)
				}
			}
		}

		for transcriptPath, toolUseIDs := range transcriptEdits {
			contexts := transcript.ExtractTraceContexts(transcriptPath, toolUseIDs)
			if len(contexts) == 0 {
				continue
			}
			sessionID := strings.TrimSuffix(filepath.Base(transcriptPath), filepath.Ext(transcriptPath))
			if err := transcript.WriteTraces(paths.TracesDir, sessionID, contexts); err != nil {
				continue
			}
		}
	}
}
