package hook

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/srcattr/srcattr/internal/attribution"
	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/provenance"
	"github.com/srcattr/srcattr/internal/record"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// HandlePostCommit closes out the working log the commit was built
// against: the final line attributions are carried into the new base
// commit's INITIAL file, mirrored into refs/notes/ai against the new
// commit, and the old log is removed.
func HandlePostCommit() error {
	root, err := project.FindRoot()
	if err != nil {
		return err
	}
	if !project.IsInitialized(root) {
		return nil
	}
	paths := project.NewPaths(root)

	newBase := git.HeadSHA(root)
	if newBase == "" {
		return nil
	}
	oldBase := parentSHA(root)

	oldLog := workinglog.Open(paths.GitDir, oldBase)
	cps, err := oldLog.ReadAll()
	if err != nil {
		debug.Log(paths.CacheDir, "hook.log",
			fmt.Sprintf("post-commit: cannot read working log for %s: %v", oldBase, err), nil)
		return nil
	}
	carried := finalLineAttributions(cps)

	// Files INITIAL knew about but no checkpoint touched still carry over.
	if initialFiles, err := oldLog.ReadInitial(); err == nil {
		for path, attrs := range initialFiles {
			if _, ok := carried[path]; !ok && len(attrs) > 0 {
				carried[path] = attrs
			}
		}
	}

	if len(carried) > 0 {
		newLog := workinglog.Open(paths.GitDir, newBase)
		if err := newLog.WriteInitial(carried); err != nil {
			debug.Log(paths.CacheDir, "hook.log",
				fmt.Sprintf("post-commit: INITIAL write failed: %v", err), nil)
		}
		if err := provenance.WriteSummary(root, paths.GitDir, newBase, carried); err != nil {
			debug.Log(paths.CacheDir, "hook.log",
				fmt.Sprintf("post-commit: notes mirror failed: %v", err), nil)
		}
	}

	if len(cps) > 0 {
		if err := oldLog.Clear(); err != nil {
			debug.Log(paths.CacheDir, "hook.log",
				fmt.Sprintf("post-commit: clear failed for %s: %v", oldBase, err), nil)
		}
	}

	stampSessionRecords(paths, newBase)

	debug.Log(paths.CacheDir, "hook.log",
		fmt.Sprintf("post-commit: carried %d file(s) from %s to %s", len(carried), oldBase, newBase), nil)
	return nil
}

// stampSessionRecords marks every not-yet-committed session record with
// the commit that just landed, so queries can tie edits to commits.
func stampSessionRecords(paths project.Paths, commitSHA string) {
	sessions, err := os.ReadDir(paths.SessionsDir)
	if err != nil {
		return
	}
	for _, s := range sessions {
		if !strings.HasSuffix(s.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(paths.SessionsDir, s.Name())
		records, err := record.ReadSession(path)
		if err != nil || len(records) == 0 {
			continue
		}
		stamped := false
		for i := range records {
			if records[i].Commit == "" {
				records[i].Commit = commitSHA
				stamped = true
			}
		}
		if !stamped {
			continue
		}
		if err := record.WriteSession(path, records); err != nil {
			debug.Log(paths.CacheDir, "hook.log",
				fmt.Sprintf("post-commit: stamp failed for %s: %v", s.Name(), err), nil)
		}
	}
}

// finalLineAttributions collapses a checkpoint sequence to each file's
// last projected state, dropping files whose final state has no
// attributions left.
func finalLineAttributions(cps []workinglog.Checkpoint) map[string][]attribution.LineAttribution {
	final := make(map[string][]attribution.LineAttribution)
	for _, cp := range cps {
		for _, e := range cp.Entries {
			final[e.File] = e.LineAttributions
		}
	}
	for path, attrs := range final {
		if len(attrs) == 0 {
			delete(final, path)
		}
	}
	return final
}

// parentSHA returns HEAD^, or the initial sentinel for a root commit.
func parentSHA(root string) string {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", "HEAD^")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return workinglog.InitialBaseCommit
	}
	return strings.TrimSpace(string(out))
}
