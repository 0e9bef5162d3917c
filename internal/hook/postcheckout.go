package hook

import (
	"fmt"

	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// HandlePostCheckout receives the previous and new HEAD SHAs. A
// fast-forward (the old base is an ancestor of the new one) renames the
// old base's working log to follow; a plain branch switch leaves every
// log keyed where it is, since each belongs to its own base commit.
func HandlePostCheckout(oldSHA, newSHA string, branchCheckout bool) error {
	root, err := project.FindRoot()
	if err != nil {
		return nil
	}
	if !project.IsInitialized(root) {
		return nil
	}
	if !branchCheckout || oldSHA == "" || newSHA == "" || oldSHA == newSHA {
		return nil
	}
	paths := project.NewPaths(root)

	if !git.IsAncestor(root, oldSHA, newSHA) {
		return nil
	}
	if err := workinglog.Rename(paths.GitDir, oldSHA, newSHA); err != nil {
		debug.Log(paths.CacheDir, "hook.log",
			fmt.Sprintf("post-checkout: rename %s -> %s failed: %v", oldSHA, newSHA, err), nil)
	}
	return nil
}
