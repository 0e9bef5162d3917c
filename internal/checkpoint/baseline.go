package checkpoint

import (
	"github.com/srcattr/srcattr/internal/attribution"
	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/notes"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// fileState is a file's previously attributed state: the content the last
// checkpoint (or HEAD) saw, and the character attributions that held then.
type fileState struct {
	content      string
	attributions []attribution.Attribution
	hasAiHistory bool
}

// previousFileState recovers the baseline for one file. The most recent
// working-log entry wins; otherwise the file is bootstrapped from HEAD
// content plus INITIAL line attributions, optionally supplemented by
// blame against prior commits' notes.
func previousFileState(paths project.Paths, wl *workinglog.Log, prior []workinglog.Checkpoint,
	initial map[string][]attribution.LineAttribution, path string, opts Options) (fileState, error) {

	for i := len(prior) - 1; i >= 0; i-- {
		entry, ok := prior[i].EntryForFile(path)
		if !ok {
			continue
		}
		content, err := wl.ReadBlob(entry.BlobSHA)
		if err != nil {
			return fileState{}, err
		}
		return fileState{
			content:      content,
			attributions: entry.Attributions,
			hasAiHistory: hasAiAuthor(entry.Attributions) || len(initial[path]) > 0,
		}, nil
	}

	content, err := git.ShowFile(paths.Root, "HEAD", path)
	if err != nil {
		// New file: nothing in HEAD, empty baseline.
		content = ""
	}

	lineAttrs := initial[path]
	if len(lineAttrs) == 0 && content != "" {
		lineAttrs = notes.Bootstrap(paths.Root, path)
	}
	if opts.DetectCrossCommitMoves && content != "" {
		lineAttrs = append(lineAttrs, blameSupplement(paths.Root, path, lineAttrs)...)
	}

	return fileState{
		content:      content,
		attributions: attribution.LineAttributionsToAttributions(lineAttrs, content, attribution.InitialAttributionTS),
		hasAiHistory: len(lineAttrs) > 0,
	}, nil
}

func hasAiAuthor(attrs []attribution.Attribution) bool {
	for _, a := range attrs {
		if a.AuthorID != attribution.HumanAuthor {
			return true
		}
	}
	return false
}

// blameSupplement recovers AI authorship for lines INITIAL does not cover,
// by blaming the file and looking up each introducing commit's note.
// INITIAL wins where both report an author. Blame failure degrades to no
// supplement: the uncovered lines stay Human.
func blameSupplement(root, path string, initial []attribution.LineAttribution) []attribution.LineAttribution {
	blamed, err := git.BlameFile(root, path)
	if err != nil {
		return nil
	}

	covered := make(map[int]bool)
	for _, la := range initial {
		for l := la.StartLine; l <= la.EndLine; l++ {
			covered[l] = true
		}
	}

	noteCache := make(map[string]*notes.CommitNote)
	var supplement []attribution.LineAttribution

	for line, entry := range blamed {
		if covered[line] || entry.IsUncommitted() {
			continue
		}
		note, ok := noteCache[entry.SHA]
		if !ok {
			note, _, _ = notes.ForCommit(root, entry.SHA)
			noteCache[entry.SHA] = note
		}
		if note == nil {
			continue
		}
		for _, la := range note.Files[path] {
			if entry.OrigLine >= la.StartLine && entry.OrigLine <= la.EndLine {
				supplement = append(supplement, attribution.LineAttribution{
					StartLine: line,
					EndLine:   line,
					AuthorID:  la.AuthorID,
					Overrode:  la.Overrode,
				})
				break
			}
		}
	}
	return supplement
}
