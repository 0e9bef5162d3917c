package workinglog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/srcattr/srcattr/internal/attrerr"
)

// Log is a handle onto the working log for one base commit.
type Log struct {
	baseDir string
	base    string
}

// Open returns a handle for the working log rooted at gitDir/ai/working_logs/<base>.
// An empty baseCommit is normalized to the "initial" sentinel.
func Open(gitDir, baseCommit string) *Log {
	base := baseCommit
	if base == "" {
		base = InitialBaseCommit
	}
	return &Log{
		base:    base,
		baseDir: filepath.Join(gitDir, "ai", "working_logs", base),
	}
}

func (l *Log) checkpointsPath() string { return filepath.Join(l.baseDir, "checkpoints.log") }
func (l *Log) initialPath() string     { return filepath.Join(l.baseDir, "INITIAL") }
func (l *Log) blobsDir() string        { return filepath.Join(l.baseDir, "blobs") }

// BaseCommit returns the base commit this log is rooted at.
func (l *Log) BaseCommit() string { return l.base }

// ReadAll reads every checkpoint in append order. Absence of the log file
// is AbsentState, reported as an empty slice with no error (spec §4.9,
// §7: "tolerate absence: every read returns empty rather than erroring").
func (l *Log) ReadAll() ([]Checkpoint, error) {
	data, err := os.ReadFile(l.checkpointsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, attrerr.Wrap(attrerr.IO, err)
	}

	var out []Checkpoint
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var cp Checkpoint
		if err := json.Unmarshal([]byte(line), &cp); err != nil {
			// Parse: skip the malformed record, keep reading the rest of the log.
			continue
		}
		out = append(out, cp)
	}
	return out, nil
}

// Append writes cp as the next line of checkpoints.log. The write is
// atomic: the whole file is rewritten into a temp file in the same
// directory and renamed over the original, so a crash mid-append never
// leaves a truncated or partial record visible to the next reader.
func (l *Log) Append(cp Checkpoint) error {
	if err := os.MkdirAll(l.baseDir, 0o755); err != nil {
		return attrerr.Wrap(attrerr.IO, err)
	}
	line, err := json.Marshal(cp)
	if err != nil {
		return attrerr.Wrap(attrerr.IO, err)
	}

	existing, err := os.ReadFile(l.checkpointsPath())
	if err != nil && !os.IsNotExist(err) {
		return attrerr.Wrap(attrerr.IO, err)
	}

	tmpPath := filepath.Join(l.baseDir, fmt.Sprintf(".checkpoints-%s.tmp", uuid.New().String()))
	buf := append(existing, line...)
	buf = append(buf, '\n')
	if err := os.WriteFile(tmpPath, buf, 0o644); err != nil {
		return attrerr.Wrap(attrerr.IO, err)
	}
	if err := os.Rename(tmpPath, l.checkpointsPath()); err != nil {
		os.Remove(tmpPath)
		return attrerr.Wrap(attrerr.IO, err)
	}
	return nil
}

// Clear removes this working log's entire directory (checkpoints, blobs,
// INITIAL). Used once a checkpoint chain has been committed and bundled.
func (l *Log) Clear() error {
	if err := os.RemoveAll(l.baseDir); err != nil {
		return attrerr.Wrap(attrerr.IO, err)
	}
	return nil
}

// Rename moves this working log to follow a new base commit, used when
// HEAD fast-forwards (post-checkout, post-merge) so future checkpoints
// continue the same history rather than starting a fresh log.
func Rename(gitDir, oldBase, newBase string) error {
	oldLog := Open(gitDir, oldBase)
	newLog := Open(gitDir, newBase)
	if _, err := os.Stat(oldLog.baseDir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return attrerr.Wrap(attrerr.IO, err)
	}
	if err := os.MkdirAll(filepath.Dir(newLog.baseDir), 0o755); err != nil {
		return attrerr.Wrap(attrerr.IO, err)
	}
	if err := os.RemoveAll(newLog.baseDir); err != nil {
		return attrerr.Wrap(attrerr.IO, err)
	}
	if err := os.Rename(oldLog.baseDir, newLog.baseDir); err != nil {
		return attrerr.Wrap(attrerr.IO, err)
	}
	return nil
}

// Delete removes the working log for a base commit that has been
// superseded (e.g. a reset that discards the prior tip).
func Delete(gitDir, base string) error {
	return Open(gitDir, base).Clear()
}
