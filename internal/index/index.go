// Package index maintains the SQLite query index over the attribution
// data: agent session records (the reasons table), working-log
// checkpoints, and their projected line attributions. The index is a
// cache — it is rebuilt wholesale from the session logs and working
// logs whenever it goes stale.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/record"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// ReasonRow mirrors a row from the reasons table.
type ReasonRow struct {
	ID           int
	File         string
	LineStart    *int
	LineEnd      *int
	ContentHash  string
	Ts           string
	Prompt       string
	Reason       string
	Change       string
	Tool         string
	Author       string
	Agent        string
	Session      string
	Trace        string
	SourceFile   string
	OldStart     *int
	OldLines     *int
	NewStart     *int
	NewLines     *int
	ChangedLines *string
	CommitSHA    string
}

// CheckpointRow mirrors a row from the checkpoints table.
type CheckpointRow struct {
	ID            int
	BaseCommit    string
	Kind          string
	Author        string
	Ts            int64
	DiffHash      string
	EntryCount    int
	Additions     int
	Deletions     int
	AdditionsSLOC int
	DeletionsSLOC int
	AgentTool     string
	AgentID       string
	AgentModel    string
}

// ScanRow scans a *sql.Rows into a ReasonRow.
func ScanRow(rows *sql.Rows) (*ReasonRow, error) {
	r := &ReasonRow{}
	err := rows.Scan(
		&r.ID, &r.File, &r.LineStart, &r.LineEnd, &r.ContentHash,
		&r.Ts, &r.Prompt, &r.Reason, &r.Change, &r.Tool,
		&r.Author, &r.Agent, &r.Session, &r.Trace, &r.SourceFile,
		&r.OldStart, &r.OldLines, &r.NewStart, &r.NewLines,
		&r.ChangedLines, &r.CommitSHA,
	)
	return r, err
}

// ScanCheckpointRow scans a *sql.Rows into a CheckpointRow.
func ScanCheckpointRow(rows *sql.Rows) (*CheckpointRow, error) {
	r := &CheckpointRow{}
	err := rows.Scan(
		&r.ID, &r.BaseCommit, &r.Kind, &r.Author, &r.Ts, &r.DiffHash,
		&r.EntryCount, &r.Additions, &r.Deletions, &r.AdditionsSLOC,
		&r.DeletionsSLOC, &r.AgentTool, &r.AgentID, &r.AgentModel,
	)
	return r, err
}

// IsStale returns true if the index needs rebuilding: any session log or
// working log newer than the index file, or HEAD moved since the last
// rebuild.
func IsStale(paths project.Paths) bool {
	info, err := os.Stat(paths.IndexDB)
	if err != nil {
		return true
	}
	indexMtime := info.ModTime()

	for _, dir := range []string{paths.SessionsDir, paths.WorkingLogsDir} {
		newer := false
		filepath.Walk(dir, func(_ string, fi os.FileInfo, err error) error {
			if err == nil && !fi.IsDir() && fi.ModTime().After(indexMtime) {
				newer = true
			}
			return nil
		})
		if newer {
			return true
		}
	}

	return headSHAChanged(paths)
}

// Rebuild drops and recreates the SQLite index from the session logs and
// working logs.
func Rebuild(paths project.Paths, quiet bool) (*sql.DB, error) {
	if err := os.MkdirAll(paths.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache dir %s: %w", paths.CacheDir, err)
	}
	_ = os.Remove(paths.IndexDB)

	db, err := sql.Open("sqlite", paths.IndexDB)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", paths.IndexDB, err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	recordCount, sessionCount, err := indexSessions(db, paths)
	if err != nil {
		db.Close()
		return nil, err
	}
	checkpointCount, err := indexWorkingLogs(db, paths)
	if err != nil {
		db.Close()
		return nil, err
	}

	storeHeadSHA(db, paths.Root)

	if !quiet {
		fmt.Fprintf(os.Stderr, "\033[2mIndex rebuilt: %d records from %d session(s), %d checkpoint(s)\033[0m\n\n",
			recordCount, sessionCount, checkpointCount)
	}

	return db, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE reasons (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file TEXT NOT NULL,
			line_start INTEGER,
			line_end INTEGER,
			content_hash TEXT,
			ts TEXT NOT NULL,
			prompt TEXT,
			reason TEXT,
			change TEXT,
			tool TEXT,
			author TEXT,
			agent TEXT,
			session TEXT,
			trace TEXT,
			source_file TEXT,
			old_start INTEGER,
			old_lines INTEGER,
			new_start INTEGER,
			new_lines INTEGER,
			changed_lines TEXT,
			commit_sha TEXT
		)`,
		`CREATE TABLE checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			base_commit TEXT NOT NULL,
			kind TEXT NOT NULL,
			author TEXT,
			ts INTEGER NOT NULL,
			diff_hash TEXT,
			entry_count INTEGER,
			additions INTEGER,
			deletions INTEGER,
			additions_sloc INTEGER,
			deletions_sloc INTEGER,
			agent_tool TEXT,
			agent_id TEXT,
			agent_model TEXT
		)`,
		`CREATE TABLE line_attributions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			base_commit TEXT NOT NULL,
			checkpoint_id INTEGER NOT NULL,
			file TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			author_id TEXT NOT NULL,
			overrode TEXT
		)`,
		"CREATE INDEX idx_file ON reasons(file)",
		"CREATE INDEX idx_content_hash ON reasons(content_hash)",
		"CREATE INDEX idx_ts ON reasons(ts)",
		"CREATE INDEX idx_author ON reasons(author)",
		"CREATE INDEX idx_agent ON reasons(agent)",
		"CREATE INDEX idx_commit_sha ON reasons(commit_sha)",
		"CREATE INDEX idx_cp_base ON checkpoints(base_commit)",
		"CREATE INDEX idx_cp_kind ON checkpoints(kind)",
		"CREATE INDEX idx_la_file ON line_attributions(file)",
		"CREATE INDEX idx_la_author ON line_attributions(author_id)",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// indexSessions loads every session JSONL into the reasons table.
func indexSessions(db *sql.DB, paths project.Paths) (records, sessions int, err error) {
	entries, err := os.ReadDir(paths.SessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	// Sort by name for deterministic ordering (names start with a UTC
	// timestamp, so this is also chronological).
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	tx, err := db.Begin()
	if err != nil {
		return 0, 0, err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO reasons
		(file, line_start, line_end, content_hash, ts,
		 prompt, reason, change, tool, author, agent, session, trace, source_file,
		 old_start, old_lines, new_start, new_lines, changed_lines, commit_sha)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, 0, err
	}
	defer stmt.Close()

	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		sessions++

		recs, err := record.ReadSession(filepath.Join(paths.SessionsDir, e.Name()))
		if err != nil {
			continue
		}
		for _, rec := range recs {
			var lineStart, lineEnd *int
			var changedLines *string
			if !rec.Lines.IsEmpty() {
				mn, mx := rec.Lines.Min(), rec.Lines.Max()
				lineStart, lineEnd = &mn, &mx
				s := rec.Lines.String()
				changedLines = &s
			}

			var oldStart, oldLines, newStart, newLines *int
			if rec.Hunk != nil {
				oldStart, oldLines = &rec.Hunk.OldStart, &rec.Hunk.OldLines
				newStart, newLines = &rec.Hunk.NewStart, &rec.Hunk.NewLines
			}

			change := rec.Change
			if change == "" {
				change = rec.Reason
			}

			stmt.Exec(
				rec.File, lineStart, lineEnd, rec.ContentHash, rec.Ts,
				rec.Prompt, rec.Reason, change, rec.Tool, rec.Author,
				rec.Agent, rec.Session, rec.Trace, e.Name(),
				oldStart, oldLines, newStart, newLines,
				changedLines, rec.Commit,
			)
			records++
		}
	}

	return records, sessions, tx.Commit()
}

// indexWorkingLogs loads every working log's checkpoints and their
// projected line attributions.
func indexWorkingLogs(db *sql.DB, paths project.Paths) (int, error) {
	bases, err := os.ReadDir(paths.WorkingLogsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	cpStmt, err := tx.Prepare(`
		INSERT INTO checkpoints
		(base_commit, kind, author, ts, diff_hash, entry_count,
		 additions, deletions, additions_sloc, deletions_sloc,
		 agent_tool, agent_id, agent_model)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer cpStmt.Close()
	laStmt, err := tx.Prepare(`
		INSERT INTO line_attributions
		(base_commit, checkpoint_id, file, start_line, end_line, author_id, overrode)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer laStmt.Close()

	count := 0
	for _, base := range bases {
		if !base.IsDir() {
			continue
		}
		wl := workinglog.Open(paths.GitDir, base.Name())
		cps, err := wl.ReadAll()
		if err != nil {
			continue
		}
		for _, cp := range cps {
			var tool, id, model string
			if cp.AgentID != nil {
				tool, id, model = cp.AgentID.Tool, cp.AgentID.ID, cp.AgentID.Model
			}
			res, err := cpStmt.Exec(
				base.Name(), cp.Kind, cp.Author, cp.Timestamp, cp.Diff,
				len(cp.Entries), cp.LineStats.Additions, cp.LineStats.Deletions,
				cp.LineStats.AdditionsSLOC, cp.LineStats.DeletionsSLOC,
				tool, id, model,
			)
			if err != nil {
				continue
			}
			cpID, _ := res.LastInsertId()
			for _, entry := range cp.Entries {
				for _, la := range entry.LineAttributions {
					laStmt.Exec(base.Name(), cpID, entry.File,
						la.StartLine, la.EndLine, la.AuthorID, la.Overrode)
				}
			}
			count++
		}
	}

	return count, tx.Commit()
}

// Open returns a database connection, rebuilding the index if stale.
func Open(paths project.Paths, forceRebuild bool) (*sql.DB, error) {
	if forceRebuild || IsStale(paths) {
		return Rebuild(paths, false)
	}
	db, err := sql.Open("sqlite", paths.IndexDB)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// storeHeadSHA saves the current HEAD SHA for staleness detection.
func storeHeadSHA(db *sql.DB, root string) {
	sha := git.HeadSHA(root)
	if sha == "" {
		return
	}
	db.Exec("CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)")
	db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('head_sha', ?)", sha)
}

// headSHAChanged returns true if HEAD has changed since the last rebuild.
func headSHAChanged(paths project.Paths) bool {
	db, err := sql.Open("sqlite", paths.IndexDB)
	if err != nil {
		return false
	}
	defer db.Close()

	var storedSHA string
	err = db.QueryRow("SELECT value FROM meta WHERE key = 'head_sha'").Scan(&storedSHA)
	if err != nil {
		return false
	}

	currentSHA := git.HeadSHA(paths.Root)
	return currentSHA != "" && currentSHA != storedSHA
}
