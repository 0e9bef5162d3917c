// Package checkpoint drives the attribution engine across the working
// tree: on each hook invocation it enumerates candidate files, recovers
// each file's previously attributed state from the working log (or
// bootstraps it from HEAD, INITIAL attributions, and git blame), runs the
// engine per file on a bounded worker pool, and appends one checkpoint
// record to the working log.
package checkpoint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/srcattr/srcattr/internal/attribution"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// defaultWorkers bounds per-file attribution parallelism.
const defaultWorkers = 30

// Options configures one checkpoint run.
type Options struct {
	Kind   string // workinglog.KindHuman, KindAiAgent, or KindAiTab
	Author string // human name; ignored for AI checkpoints (derived from AgentID)

	Show      bool // print a summary of the checkpoint to stdout
	Reset     bool // discard the working log for the base commit first
	Quiet     bool // suppress all stdout output
	PreCommit bool // running under the pre-commit hook (enables the fast path)

	AgentID       *workinglog.AgentID
	Transcript    json.RawMessage
	AgentMetadata json.RawMessage

	// DirtyFiles overrides file content per repo-relative path, for edits
	// the agent reported directly that may not be flushed to disk yet.
	DirtyFiles map[string]string

	// Caller-supplied pathspecs; unioned into the candidate set after
	// filtering out paths that fall outside the repo working tree.
	WillEditFilepaths []string
	EditedFilepaths   []string

	// DetectCrossCommitMoves gates the blame-against-notes bootstrap for
	// files with no INITIAL entry, and disables the pre-commit fast path.
	DetectCrossCommitMoves bool

	Workers int                // bounded parallelism, default 30
	Config  attribution.Config // engine tuning (move threshold)
}

// Result is what a checkpoint run reports back to its hook.
type Result struct {
	Entries          int // files that produced a working-log entry
	Candidates       int // files considered
	TotalCheckpoints int // checkpoints now in the working log
}

// AgentAuthorID derives the opaque author ID for an agent session: a short
// hex hash over the session ID and tool name. The engine never parses
// these; they only need to be stable within a session and distinct from
// the reserved "Human" literal.
func AgentAuthorID(id *workinglog.AgentID) string {
	if id == nil {
		return attribution.HumanAuthor
	}
	h := sha256.Sum256([]byte(id.ID + id.Tool))
	return fmt.Sprintf("%x", h[:8])
}

// nextTimestamp assigns the checkpoint's monotone millisecond timestamp:
// wall-clock when it is ahead of the log, the previous timestamp plus two
// otherwise. The gap leaves room for the ts-1 preconditioning fill.
func nextTimestamp(prior []workinglog.Checkpoint) int64 {
	ts := time.Now().UnixMilli()
	if n := len(prior); n > 0 {
		if last := prior[n-1].Timestamp; ts <= last+1 {
			ts = last + 2
		}
	}
	return ts
}
