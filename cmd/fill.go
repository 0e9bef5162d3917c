package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/srcattr/srcattr/internal/format"
	"github.com/srcattr/srcattr/internal/llm"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/record"
	"github.com/srcattr/srcattr/internal/transcript"
)

// fillEdit identifies one record awaiting a generated reason.
type fillEdit struct {
	ID          int
	File        string
	Change      string
	SessionFile string
	RecordIdx   int
}

// cmdFillReasons fills empty reason fields across all session logs using
// Claude Haiku, one call per transcript, and extracts reasoning traces
// alongside.
func cmdFillReasons(paths project.Paths, projectRoot string, dryRun bool) {
	sessions, err := os.ReadDir(paths.SessionsDir)
	if err != nil || len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "No session logs found under .git/ai/sessions/.")
		return
	}

	// Read every session's records and count what needs filling.
	allRecords := make(map[string][]record.Record)
	needsFill := 0
	for _, s := range sessions {
		if !strings.HasSuffix(s.Name(), ".jsonl") {
			continue
		}
		records, err := record.ReadSession(filepath.Join(paths.SessionsDir, s.Name()))
		if err != nil || len(records) == 0 {
			continue
		}
		allRecords[s.Name()] = records
		for _, rec := range records {
			if rec.Reason == "" {
				needsFill++
			}
		}
	}

	if needsFill == 0 {
		fmt.Fprintln(os.Stderr, "All records already have reasons.")
		return
	}

	fmt.Fprintf(os.Stderr, "Found %d record(s) to fill across %d session(s).\n", needsFill, len(allRecords))

	// Group fillable records by transcript path.
	type transcriptGroup struct {
		edits []fillEdit
	}
	groups := make(map[string]*transcriptGroup)
	editID := 0

	for sessionFile, records := range allRecords {
		for i, rec := range records {
			if rec.Reason != "" {
				continue
			}
			transcriptPath := ""
			if idx := strings.Index(rec.Trace, "#"); idx >= 0 {
				transcriptPath = rec.Trace[:idx]
			}
			if transcriptPath == "" {
				continue
			}
			editID++

			g, ok := groups[transcriptPath]
			if !ok {
				g = &transcriptGroup{}
				groups[transcriptPath] = g
			}
			g.edits = append(g.edits, fillEdit{
				ID:          editID,
				File:        rec.File,
				Change:      rec.Change,
				SessionFile: sessionFile,
				RecordIdx:   i,
			})
		}
	}

	// One Haiku call per transcript group.
	reasonMap := make(map[int]string)

	for transcriptPath, group := range groups {
		sessionPrompts := transcript.ExtractSessionPrompts(transcriptPath)

		if len(sessionPrompts) == 0 {
			seen := make(map[string]bool)
			for _, edit := range group.edits {
				p := allRecords[edit.SessionFile][edit.RecordIdx].Prompt
				if p != "" && !seen[p] {
					sessionPrompts = append(sessionPrompts, p)
					seen[p] = true
				}
			}
		}

		prompt := buildReasonPrompt(sessionPrompts, group.edits)

		if dryRun {
			display := transcriptPath
			if len(display) > 60 {
				display = "..." + display[len(display)-60:]
			}
			fmt.Printf("\n%s── Transcript: %s%s\n", format.Bold, display, format.Reset)
			fmt.Printf("%s%s%s\n\n", format.Dim, prompt, format.Reset)
			continue
		}

		display := transcriptPath
		if len(display) > 50 {
			display = "..." + display[len(display)-50:]
		}
		fmt.Fprintf(os.Stderr, "  Filling %d edit(s) from %s", len(group.edits), display)

		results, err := llm.CallHaiku(prompt)
		if err != nil {
			fmt.Fprintln(os.Stderr, " → failed")
			continue
		}

		filled := 0
		for _, item := range results {
			if item.ID > 0 && item.Reason != "" {
				reasonMap[item.ID] = item.Reason
				filled++
			}
		}
		fmt.Fprintf(os.Stderr, " → %d reasons\n", filled)
	}

	// Extract and persist trace contexts alongside.
	for transcriptPath, group := range groups {
		var toolUseIDs []string
		for _, edit := range group.edits {
			trace := allRecords[edit.SessionFile][edit.RecordIdx].Trace
			if idx := strings.Index(trace, "#"); idx >= 0 {
				toolUseIDs = append(toolUseIDs, trace[idx+1:])
			}
		}
		if len(toolUseIDs) == 0 {
			continue
		}

		contexts := transcript.ExtractTraceContexts(transcriptPath, toolUseIDs)
		if len(contexts) == 0 {
			continue
		}

		sessionID := filepath.Base(transcriptPath)
		sessionID = strings.TrimSuffix(sessionID, filepath.Ext(sessionID))

		if dryRun {
			fmt.Printf("%s  Traces: %d context(s) for session %s...%s\n",
				format.Dim, len(contexts), sessionID[:min(len(sessionID), 12)], format.Reset)
			continue
		}

		_ = transcript.WriteTraces(paths.TracesDir, sessionID, contexts)
	}

	if dryRun {
		return
	}

	if len(reasonMap) == 0 {
		fmt.Fprintln(os.Stderr, "No reasons generated.")
		return
	}

	// Patch session files in place.
	patched := 0
	for sessionFile, records := range allRecords {
		changed := false
		for _, group := range groups {
			for _, edit := range group.edits {
				if edit.SessionFile != sessionFile {
					continue
				}
				if reason, ok := reasonMap[edit.ID]; ok {
					records[edit.RecordIdx].Reason = reason
					changed = true
					patched++
				}
			}
		}
		if changed {
			_ = record.WriteSession(filepath.Join(paths.SessionsDir, sessionFile), records)
		}
	}

	fmt.Fprintf(os.Stderr, "Filled %d reason(s). Index will rebuild on next query.\n", patched)

	// Force index rebuild
	_ = os.Remove(paths.IndexDB)
}

// buildReasonPrompt builds the Haiku fill prompt for one transcript group.
func buildReasonPrompt(sessionPrompts []string, edits []fillEdit) string {
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
		parts = append(parts, fmt.Sprintf("[%d] File: %s", edit.ID, edit.File))
		parts = append(parts, fmt.Sprintf("    Change: %s", edit.Change))
	}

	parts = append(parts, "", `Respond with ONLY a JSON array: [{"id": 1, "reason": "..."}, ...]`)
	return strings.Join(parts, "\n")
}
