package hook

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// HandleReferenceTransaction watches committed ref updates for the one
// case the other hooks cannot see: a reset that discards the prior tip.
// When a branch ref moves to a commit that is not a descendant of the
// old one, the old base's working log is deleted — its baseline no
// longer exists in that branch's history. Commit advances and
// fast-forwards are descendants and are left to post-commit /
// post-merge / post-checkout; branch switches never move branch refs at
// all.
func HandleReferenceTransaction(state string, r io.Reader) error {
	if state != "committed" {
		return nil
	}
	root, err := project.FindRoot()
	if err != nil {
		return nil
	}
	if !project.IsInitialized(root) {
		return nil
	}
	paths := project.NewPaths(root)

	// Rebases discard tips too, but post-rewrite renames those logs;
	// stay out of the way while one is in progress.
	if rebaseInProgress(paths.GitDir) {
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 || !strings.HasPrefix(fields[2], "refs/heads/") {
			continue
		}
		oldSHA, newSHA := fields[0], fields[1]
		if oldSHA == newSHA || isZeroSHA(oldSHA) || isZeroSHA(newSHA) {
			continue
		}
		if git.IsAncestor(root, oldSHA, newSHA) {
			continue
		}
		// Amends move the branch ref to a non-descendant as well, but
		// post-rewrite renames those logs. Resets leave their fingerprint
		// in ORIG_HEAD; only they discard.
		if origHeadSHA(root) != oldSHA {
			continue
		}
		if err := workinglog.Delete(paths.GitDir, oldSHA); err != nil {
			debug.Log(paths.CacheDir, "hook.log",
				fmt.Sprintf("reference-transaction: delete %s failed: %v", oldSHA, err), nil)
			continue
		}
		debug.Log(paths.CacheDir, "hook.log",
			fmt.Sprintf("reference-transaction: discarded working log for superseded %s", oldSHA), nil)
	}
	return nil
}

func rebaseInProgress(gitDir string) bool {
	for _, marker := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(gitDir, marker)); err == nil {
			return true
		}
	}
	return false
}

func isZeroSHA(sha string) bool {
	return strings.TrimLeft(sha, "0") == ""
}
