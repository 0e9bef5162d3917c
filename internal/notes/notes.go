// Package notes bridges the core to the refs/notes/ai namespace: external
// tooling pushes and fetches that ref, and this package reads it to
// bootstrap INITIAL attributions for files the working log has not yet
// seen. The core never originates notes — there is deliberately no Write
// here, only the Bootstrap helper the orchestrator calls.
package notes

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/srcattr/srcattr/internal/attrerr"
	"github.com/srcattr/srcattr/internal/attribution"
)

const notesRef = "refs/notes/ai"

type notePayload struct {
	Lines map[string]attribution.LineAttribution `json:"lines"`
}

// Read looks up the note attached to HEAD:path's blob under refs/notes/ai
// and parses it into a per-line-number attribution map. Absence of the
// ref, of HEAD, of the path, or of a note for that blob all return
// (nil, false, nil) — AbsentState is never surfaced as an error (§7).
func Read(root, path string) (map[int]attribution.LineAttribution, bool, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, false, nil
	}

	blobHash, ok := headBlobHash(repo, path)
	if !ok {
		return nil, false, nil
	}

	notesHead, err := repo.Reference(plumbing.ReferenceName(notesRef), true)
	if err != nil {
		return nil, false, nil
	}
	notesCommit, err := repo.CommitObject(notesHead.Hash())
	if err != nil {
		return nil, false, nil
	}
	notesTree, err := notesCommit.Tree()
	if err != nil {
		return nil, false, nil
	}

	hex := blobHash.String()
	blob, ok := findNoteBlob(notesTree, hex)
	if !ok {
		return nil, false, nil
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, false, attrerr.Wrap(attrerr.IO, err)
	}
	defer reader.Close()

	var payload notePayload
	if err := json.NewDecoder(reader).Decode(&payload); err != nil {
		return nil, false, attrerr.Wrap(attrerr.Parse, err)
	}

	result := make(map[int]attribution.LineAttribution, len(payload.Lines))
	for lineStr, la := range payload.Lines {
		var lineNum int
		if _, err := fmt.Sscanf(lineStr, "%d", &lineNum); err != nil {
			continue
		}
		result[lineNum] = la
	}
	if len(result) == 0 {
		return nil, false, nil
	}
	return result, true, nil
}

// Bootstrap recovers line attributions for a file the working log has
// never seen and INITIAL does not cover, from the note attached to the
// file's HEAD blob. Absence yields nil.
func Bootstrap(root, path string) []attribution.LineAttribution {
	lines, ok, err := Read(root, path)
	if err != nil || !ok {
		return nil
	}

	nums := make([]int, 0, len(lines))
	for n := range lines {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	attrs := make([]attribution.LineAttribution, 0, len(nums))
	for _, n := range nums {
		la := lines[n]
		la.StartLine, la.EndLine = n, n
		attrs = append(attrs, la)
	}
	return attrs
}

// CommitNote is the per-commit summary payload mirrored into
// refs/notes/ai by the post-commit hook: each file the commit's
// checkpoints touched, with the line attributions that held when the
// commit was made.
type CommitNote struct {
	Files map[string][]attribution.LineAttribution `json:"files"`
}

// ForCommit looks up the note attached to a commit SHA under
// refs/notes/ai. Used by the blame bootstrap path: blame maps a line to
// the commit that introduced it, and the commit's note says who authored
// it there. Absence returns (nil, false, nil).
func ForCommit(root, commitSHA string) (*CommitNote, bool, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, false, nil
	}

	notesHead, err := repo.Reference(plumbing.ReferenceName(notesRef), true)
	if err != nil {
		return nil, false, nil
	}
	notesCommit, err := repo.CommitObject(notesHead.Hash())
	if err != nil {
		return nil, false, nil
	}
	notesTree, err := notesCommit.Tree()
	if err != nil {
		return nil, false, nil
	}

	blob, ok := findNoteBlob(notesTree, commitSHA)
	if !ok {
		return nil, false, nil
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, false, attrerr.Wrap(attrerr.IO, err)
	}
	defer reader.Close()

	var note CommitNote
	if err := json.NewDecoder(reader).Decode(&note); err != nil {
		return nil, false, attrerr.Wrap(attrerr.Parse, err)
	}
	if len(note.Files) == 0 {
		return nil, false, nil
	}
	return &note, true, nil
}

func headBlobHash(repo *git.Repository, path string) (plumbing.Hash, bool) {
	head, err := repo.Head()
	if err != nil {
		return plumbing.ZeroHash, false
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return plumbing.ZeroHash, false
	}
	tree, err := commit.Tree()
	if err != nil {
		return plumbing.ZeroHash, false
	}
	entry, err := tree.FindEntry(path)
	if err != nil {
		return plumbing.ZeroHash, false
	}
	return entry.Hash, true
}

// findNoteBlob locates the note blob for a target object's hex SHA,
// trying git notes' progressively deeper fanout layouts (flat, then
// 2/38, 2/2/36, 2/2/2/34 hex splits).
func findNoteBlob(tree *object.Tree, hex string) (*object.Blob, bool) {
	candidates := []string{
		hex,
		hex[:2] + "/" + hex[2:],
	}
	if len(hex) >= 4 {
		candidates = append(candidates, hex[:2]+"/"+hex[2:4]+"/"+hex[4:])
	}
	if len(hex) >= 6 {
		candidates = append(candidates, hex[:2]+"/"+hex[2:4]+"/"+hex[4:6]+"/"+hex[6:])
	}
	for _, c := range candidates {
		entry, err := tree.FindEntry(c)
		if err != nil {
			continue
		}
		blob, err := tree.File(c)
		if err == nil {
			return &blob.Blob, true
		}
		_ = entry
	}
	return nil, false
}
