package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/srcattr/srcattr/internal/attrerr"
	"github.com/srcattr/srcattr/internal/attribution"
	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/record"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// candidate is one file the checkpoint will consider.
type candidate struct {
	path    string // repo-relative POSIX path
	content string // current content ("" for deleted files)
	deleted bool
}

// Run takes one checkpoint: resolves the base commit, enumerates candidate
// files, persists their content into the blob store, computes per-file
// attribution entries concurrently, and appends a checkpoint record to the
// working log.
func Run(paths project.Paths, opts Options) (Result, error) {
	if git.IsBare(paths.Root) {
		return Result{}, attrerr.Wrap(attrerr.Fatal, fmt.Errorf("refusing to checkpoint a bare repository"))
	}

	base := git.HeadSHA(paths.Root)
	if base == "" {
		base = workinglog.InitialBaseCommit
	}
	wl := workinglog.Open(paths.GitDir, base)

	if opts.Reset {
		if err := wl.Clear(); err != nil {
			debug.Log(paths.CacheDir, "checkpoint.log", fmt.Sprintf("reset failed: %v", err), nil)
		}
	}

	prior, err := wl.ReadAll()
	if err != nil {
		return Result{}, err
	}
	initial, err := wl.ReadInitial()
	if err != nil && !attrerr.Is(err, attrerr.Parse) {
		return Result{}, err
	}

	// Pre-commit fast path: a human checkpoint over a log that has never
	// seen an AI edit and has nothing carried forward has nothing to
	// attribute, so skip enumeration entirely.
	if opts.PreCommit && opts.Kind == workinglog.KindHuman &&
		len(initial) == 0 && !opts.DetectCrossCommitMoves && !anyAiCheckpoint(prior) {
		return Result{}, nil
	}

	candidates, err := enumerateCandidates(paths, opts, prior, initial)
	if err != nil {
		return Result{}, err
	}
	if len(candidates) == 0 {
		return Result{Candidates: 0, TotalCheckpoints: len(prior)}, nil
	}

	// Persist current contents and fix the composite hash before any
	// parallel work, so the hash is independent of completion order.
	shaByPath := make(map[string]string, len(candidates))
	sortedPaths := make([]string, 0, len(candidates))
	for _, c := range candidates {
		sha, err := wl.WriteBlob(c.content)
		if err != nil {
			debug.Log(paths.CacheDir, "checkpoint.log",
				fmt.Sprintf("blob write failed for %s: %v", c.path, err), nil)
			continue
		}
		shaByPath[c.path] = sha
		sortedPaths = append(sortedPaths, c.path)
	}
	sort.Strings(sortedPaths)
	composite := workinglog.CompositeHash(sortedPaths, shaByPath)

	ts := nextTimestamp(prior)
	author := opts.Author
	if opts.Kind != workinglog.KindHuman {
		author = AgentAuthorID(opts.AgentID)
	}

	var mu sync.Mutex
	var entries []workinglog.WorkingLogEntry
	var stats workinglog.LineStats

	tasks := make([]func(), 0, len(candidates))
	for _, c := range candidates {
		c := c
		sha, ok := shaByPath[c.path]
		if !ok {
			continue
		}
		tasks = append(tasks, func() {
			entry, fileStats, err := computeEntry(paths, wl, prior, initial, c, sha, author, ts, opts)
			if err != nil {
				debug.Log(paths.CacheDir, "checkpoint.log",
					fmt.Sprintf("entry failed for %s: %v", c.path, err), nil)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			stats.Add(fileStats)
			if entry != nil {
				entries = append(entries, *entry)
			}
		})
	}
	runLimited(opts.Workers, tasks)

	total := len(prior)
	if len(entries) > 0 {
		cp := workinglog.Checkpoint{
			Kind:          opts.Kind,
			Diff:          composite,
			Author:        author,
			Timestamp:     ts,
			Entries:       entries,
			LineStats:     stats,
			AgentID:       opts.AgentID,
			Transcript:    opts.Transcript,
			AgentMetadata: opts.AgentMetadata,
		}
		if err := wl.Append(cp); err != nil {
			return Result{}, err
		}
		total++
	}

	res := Result{Entries: len(entries), Candidates: len(candidates), TotalCheckpoints: total}
	if opts.Show && !opts.Quiet {
		fmt.Printf("checkpoint %s: %d entries across %d candidates (%d total)\n",
			opts.Kind, res.Entries, res.Candidates, res.TotalCheckpoints)
	}
	return res, nil
}

// anyAiCheckpoint reports whether the log already holds an AI checkpoint
// with at least one entry.
func anyAiCheckpoint(prior []workinglog.Checkpoint) bool {
	for _, cp := range prior {
		if cp.Kind != workinglog.KindHuman && len(cp.Entries) > 0 {
			return true
		}
	}
	return false
}

// enumerateCandidates builds the candidate set: caller pathspecs, files
// from prior checkpoints and INITIAL, and everything git status reports as
// changed. Non-text files and paths outside the repo are dropped.
func enumerateCandidates(paths project.Paths, opts Options, prior []workinglog.Checkpoint, initial map[string][]attribution.LineAttribution) ([]candidate, error) {
	seen := make(map[string]bool)
	deleted := make(map[string]bool)
	var order []string

	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		order = append(order, p)
	}

	for _, spec := range append(append([]string{}, opts.WillEditFilepaths...), opts.EditedFilepaths...) {
		rel, ok := relativize(paths.Root, spec)
		if !ok {
			debug.Log(paths.CacheDir, "checkpoint.log",
				fmt.Sprintf("ignoring path outside repo: %s", spec), nil)
			continue
		}
		add(rel)
	}

	// Normalize dirty-file keys so lookups below hit regardless of how
	// the caller spelled the path.
	dirty := make(map[string]string, len(opts.DirtyFiles))
	for p, content := range opts.DirtyFiles {
		if rel, ok := relativize(paths.Root, p); ok {
			dirty[rel] = content
			add(rel)
		}
	}
	for _, cp := range prior {
		for _, e := range cp.Entries {
			add(e.File)
		}
	}
	for p := range initial {
		add(p)
	}

	statusEntries, err := git.Status(paths.Root)
	if err != nil {
		return nil, attrerr.Wrap(attrerr.GitSubprocess, err)
	}
	for _, se := range statusEntries {
		add(se.Path)
		if se.Deleted {
			deleted[se.Path] = true
		}
	}

	var candidates []candidate
	for _, p := range order {
		content, isDirty := dirty[p]
		if !isDirty {
			data, err := os.ReadFile(filepath.Join(paths.Root, filepath.FromSlash(p)))
			if err != nil {
				if !os.IsNotExist(err) {
					debug.Log(paths.CacheDir, "checkpoint.log",
						fmt.Sprintf("read failed for %s: %v", p, err), nil)
					continue
				}
				// Deleted: only track if the pre-deletion blob was text.
				if !deleted[p] && !trackedInHead(paths.Root, p) {
					continue
				}
				headContent, herr := git.ShowFile(paths.Root, "HEAD", p)
				if herr != nil || !git.IsTextContent(headContent) {
					continue
				}
				candidates = append(candidates, candidate{path: p, deleted: true})
				continue
			}
			content = string(data)
		}
		if !git.IsTextContent(content) {
			continue
		}
		candidates = append(candidates, candidate{path: p, content: content})
	}
	return candidates, nil
}

// trackedInHead reports whether HEAD has a blob for the path.
func trackedInHead(root, path string) bool {
	_, err := git.ShowFile(root, "HEAD", path)
	return err == nil
}

// relativize converts a caller-supplied pathspec to a repo-relative POSIX
// path, reporting false for paths outside the working tree.
func relativize(root, p string) (string, bool) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	if !project.InRepo(root, p) {
		return "", false
	}
	return record.RelativizePath(p, root), true
}

// computeEntry produces one file's working-log entry and line stats.
func computeEntry(paths project.Paths, wl *workinglog.Log, prior []workinglog.Checkpoint,
	initial map[string][]attribution.LineAttribution, c candidate, sha, author string,
	ts int64, opts Options) (*workinglog.WorkingLogEntry, workinglog.FileLineStats, error) {

	state, err := previousFileState(paths, wl, prior, initial, c.path, opts)
	if err != nil {
		return nil, workinglog.FileLineStats{}, err
	}

	var fileStats workinglog.FileLineStats
	fileStats.Additions, fileStats.Deletions, fileStats.AdditionsSLOC, fileStats.DeletionsSLOC =
		attribution.LineChanges(state.content, c.content)

	// Human checkpoint over a file with no AI history: nothing to
	// attribute, stats only.
	if opts.Kind == workinglog.KindHuman && !state.hasAiHistory {
		return nil, fileStats, nil
	}

	filled := attribution.FillUnattributed(state.content, state.attributions, attribution.HumanAuthor, ts-1)
	attrs := attribution.Update(state.content, c.content, filled, author, ts, opts.Config)

	for _, a := range attrs {
		if a.Start < 0 || a.End > len(c.content) {
			return nil, fileStats, attrerr.Wrap(attrerr.InvariantViolation,
				fmt.Errorf("%s: attribution [%d,%d) exceeds content length %d", c.path, a.Start, a.End, len(c.content)))
		}
	}

	entry := &workinglog.WorkingLogEntry{
		File:             c.path,
		BlobSHA:          sha,
		Attributions:     attrs,
		LineAttributions: attribution.ProjectLines(attrs, c.content),
	}
	return entry, fileStats, nil
}
