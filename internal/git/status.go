package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// StatusEntry is one changed path reported by git status: staged, unstaged,
// or untracked. Ignored, unmerged, and conflicted entries are never
// reported here.
type StatusEntry struct {
	Path    string // repository-relative POSIX path
	Deleted bool   // deleted in the index or the working tree
}

// conflictCodes are the two-letter porcelain XY codes for unmerged paths.
var conflictCodes = map[string]bool{
	"DD": true, "AU": true, "UD": true,
	"UA": true, "DU": true, "AA": true, "UU": true,
}

// Status lists every file git considers changed — staged, unstaged, or
// untracked — excluding ignored and conflicted entries.
func Status(root string) ([]StatusEntry, error) {
	cmd := exec.Command("git", "status", "--porcelain", "-z", "--untracked-files=all")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}
	return parsePorcelainStatus(out), nil
}

// parsePorcelainStatus parses NUL-delimited `git status --porcelain -z`
// output. Rename records carry a second NUL-delimited field (the origin
// path) which is consumed and dropped; the entry reports the new path.
func parsePorcelainStatus(out []byte) []StatusEntry {
	fields := strings.Split(string(out), "\x00")
	var entries []StatusEntry

	for i := 0; i < len(fields); i++ {
		rec := fields[i]
		if len(rec) < 4 {
			continue
		}
		xy := rec[:2]
		path := rec[3:]

		if xy == "!!" || conflictCodes[xy] {
			continue
		}
		// Renames and copies list the origin path as the next field.
		if xy[0] == 'R' || xy[0] == 'C' {
			i++
		}
		entries = append(entries, StatusEntry{
			Path:    path,
			Deleted: xy[0] == 'D' || xy[1] == 'D',
		})
	}
	return entries
}

// IsBare reports whether the repository at root is bare. The orchestrator
// refuses to run in bare repositories.
func IsBare(root string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-bare-repository")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == "true"
}

// IsAncestor reports whether maybeAncestor is an ancestor of commit.
func IsAncestor(root, maybeAncestor, commit string) bool {
	cmd := exec.Command("git", "merge-base", "--is-ancestor", maybeAncestor, commit)
	cmd.Dir = root
	return cmd.Run() == nil
}

// IsTextContent classifies content as text by the absence of NUL bytes,
// matching git's own heuristic.
func IsTextContent(content string) bool {
	return !strings.ContainsRune(content, 0)
}
