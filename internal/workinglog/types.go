// Package workinglog implements the append-only, per-base-commit working
// log described by the storage layer: a sequence of checkpoints, a
// content-addressed blob store, and an INITIAL file bootstrapping line
// attributions for files that predate the working log.
package workinglog

import (
	"encoding/json"

	"github.com/srcattr/srcattr/internal/attribution"
)

// Checkpoint kinds, per the reserved values in the on-disk record.
const (
	KindHuman   = "Human"
	KindAiAgent = "AiAgent"
	KindAiTab   = "AiTab"
)

// Sentinel base-commit name used when the repository has no HEAD yet.
const InitialBaseCommit = "initial"

// WorkingLogEntry is one file's contribution to a checkpoint.
type WorkingLogEntry struct {
	File             string                         `json:"file"`
	BlobSHA          string                          `json:"blob_sha"`
	Attributions     []attribution.Attribution      `json:"attributions"`
	LineAttributions []attribution.LineAttribution  `json:"line_attributions"`
}

// AgentID identifies the agent responsible for an AiAgent/AiTab checkpoint.
type AgentID struct {
	Tool  string `json:"tool"`
	ID    string `json:"id"`
	Model string `json:"model"`
}

// LineStats aggregates FileLineStats across every entry in a checkpoint.
type LineStats struct {
	Additions      int `json:"additions"`
	Deletions      int `json:"deletions"`
	AdditionsSLOC  int `json:"additions_sloc"`
	DeletionsSLOC  int `json:"deletions_sloc"`
}

// FileLineStats is the per-file line delta computed alongside attribution.
type FileLineStats struct {
	Additions     int
	Deletions     int
	AdditionsSLOC int
	DeletionsSLOC int
}

// Add accumulates per-file stats into an aggregate.
func (s *LineStats) Add(f FileLineStats) {
	s.Additions += f.Additions
	s.Deletions += f.Deletions
	s.AdditionsSLOC += f.AdditionsSLOC
	s.DeletionsSLOC += f.DeletionsSLOC
}

// Checkpoint is one append to the working log.
type Checkpoint struct {
	Kind          string            `json:"kind"`
	Diff          string            `json:"diff"` // composite hash over sorted (path, blob sha) pairs
	Author        string            `json:"author"`
	Timestamp     int64             `json:"timestamp"`
	Entries       []WorkingLogEntry `json:"entries"`
	LineStats     LineStats         `json:"line_stats"`
	AgentID       *AgentID          `json:"agent_id,omitempty"`
	Transcript    json.RawMessage   `json:"transcript,omitempty"`
	AgentMetadata json.RawMessage   `json:"agent_metadata,omitempty"`
}

// EntryForFile returns the entry for path, if this checkpoint has one.
func (c Checkpoint) EntryForFile(path string) (WorkingLogEntry, bool) {
	for _, e := range c.Entries {
		if e.File == path {
			return e, true
		}
	}
	return WorkingLogEntry{}, false
}

// Initial is the `{ "files": { path: [LineAttribution] } }` bootstrap file.
type Initial struct {
	Files map[string][]attribution.LineAttribution `json:"files"`
}
