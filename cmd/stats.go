package cmd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/srcattr/srcattr/internal/format"
)

func cmdStats(db *sql.DB, jsonOutput bool) {
	var total, files, agents, sessions int
	var first, last sql.NullString

	db.QueryRow("SELECT COUNT(*) FROM reasons").Scan(&total)
	db.QueryRow("SELECT COUNT(DISTINCT file) FROM reasons").Scan(&files)
	db.QueryRow("SELECT COUNT(DISTINCT agent) FROM reasons WHERE agent != ''").Scan(&agents)
	db.QueryRow("SELECT COUNT(DISTINCT source_file) FROM reasons").Scan(&sessions)
	db.QueryRow("SELECT MIN(ts) FROM reasons").Scan(&first)
	db.QueryRow("SELECT MAX(ts) FROM reasons").Scan(&last)

	var checkpoints, aiCheckpoints int
	var addSloc, delSloc sql.NullInt64
	var lastCpTs sql.NullInt64
	db.QueryRow("SELECT COUNT(*) FROM checkpoints").Scan(&checkpoints)
	db.QueryRow("SELECT COUNT(*) FROM checkpoints WHERE kind != 'Human'").Scan(&aiCheckpoints)
	db.QueryRow("SELECT SUM(additions_sloc), SUM(deletions_sloc) FROM checkpoints WHERE kind != 'Human'").Scan(&addSloc, &delSloc)
	db.QueryRow("SELECT MAX(ts) FROM checkpoints").Scan(&lastCpTs)

	var aiLines int
	db.QueryRow("SELECT COALESCE(SUM(end_line - start_line + 1), 0) FROM line_attributions WHERE author_id != 'Human'").Scan(&aiLines)

	type fileCount struct {
		File  string
		Count int
	}
	type agentCount struct {
		Agent string
		Count int
	}

	var topFiles []fileCount
	rows, _ := db.Query("SELECT file, COUNT(*) as cnt FROM reasons GROUP BY file ORDER BY cnt DESC LIMIT 5")
	if rows != nil {
		defer rows.Close()
		for rows.Next() {
			var fc fileCount
			rows.Scan(&fc.File, &fc.Count)
			topFiles = append(topFiles, fc)
		}
	}

	var topAgents []agentCount
	rows2, _ := db.Query("SELECT agent, COUNT(*) as cnt FROM reasons WHERE agent != '' GROUP BY agent ORDER BY cnt DESC LIMIT 5")
	if rows2 != nil {
		defer rows2.Close()
		for rows2.Next() {
			var ac agentCount
			rows2.Scan(&ac.Agent, &ac.Count)
			topAgents = append(topAgents, ac)
		}
	}

	lastCheckpoint := "n/a"
	if lastCpTs.Valid && lastCpTs.Int64 > 0 {
		lastCheckpoint = humanize.Time(time.UnixMilli(lastCpTs.Int64))
	}

	if jsonOutput {
		topFilesJSON := make([]map[string]interface{}, len(topFiles))
		for i, f := range topFiles {
			topFilesJSON[i] = map[string]interface{}{"file": f.File, "count": f.Count}
		}
		topAgentsJSON := make([]map[string]interface{}, len(topAgents))
		for i, a := range topAgents {
			topAgentsJSON[i] = map[string]interface{}{"agent": a.Agent, "count": a.Count}
		}
		b, _ := json.MarshalIndent(map[string]interface{}{
			"total_records":      total,
			"files_tracked":      files,
			"agents":             agents,
			"sessions":           sessions,
			"checkpoints":        checkpoints,
			"ai_checkpoints":     aiCheckpoints,
			"ai_lines_current":   aiLines,
			"ai_sloc_added":      nullInt(addSloc),
			"ai_sloc_deleted":    nullInt(delSloc),
			"first_record":       nullStr(first),
			"last_record":        nullStr(last),
			"last_checkpoint":    lastCheckpoint,
			"top_files":          topFilesJSON,
			"top_agents":         topAgentsJSON,
		}, "", "  ")
		fmt.Println(string(b))
		return
	}

	fmt.Printf("%sgit-ai statistics%s\n\n", format.Bold, format.Reset)
	fmt.Printf("  Total records:   %d\n", total)
	fmt.Printf("  Files tracked:   %d\n", files)
	fmt.Printf("  Agent sessions:  %d\n", agents)
	fmt.Printf("  Session logs:    %d\n", sessions)
	fmt.Printf("  Checkpoints:     %d (%d by agents)\n", checkpoints, aiCheckpoints)
	fmt.Printf("  AI lines now:    %d\n", aiLines)
	fmt.Printf("  AI SLOC +/-:     +%d / -%d\n", nullInt(addSloc), nullInt(delSloc))
	fmt.Printf("  First record:    %s\n", nullStr(first))
	fmt.Printf("  Last record:     %s\n", nullStr(last))
	fmt.Printf("  Last checkpoint: %s\n", lastCheckpoint)

	if len(topFiles) > 0 {
		fmt.Printf("\n  %sMost edited files:%s\n", format.Bold, format.Reset)
		for _, f := range topFiles {
			fmt.Printf("    %4d  %s\n", f.Count, f.File)
		}
	}

	if len(topAgents) > 0 {
		fmt.Printf("\n  %sBy agent session:%s\n", format.Bold, format.Reset)
		for _, a := range topAgents {
			fmt.Printf("    %4d  %s\n", a.Count, a.Agent)
		}
	}
}

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return "n/a"
}

func nullInt(ni sql.NullInt64) int64 {
	if ni.Valid {
		return ni.Int64
	}
	return 0
}
