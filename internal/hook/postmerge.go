package hook

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// HandlePostMerge follows a merge or fast-forward pull: when HEAD moved
// from a base that has a working log, the log is renamed to the new base
// so in-flight checkpoints keep their history.
func HandlePostMerge(squash bool) error {
	root, err := project.FindRoot()
	if err != nil {
		return nil
	}
	if !project.IsInitialized(root) {
		return nil
	}
	paths := project.NewPaths(root)

	oldBase := origHeadSHA(root)
	newBase := git.HeadSHA(root)
	if oldBase == "" || newBase == "" || oldBase == newBase {
		return nil
	}

	if err := workinglog.Rename(paths.GitDir, oldBase, newBase); err != nil {
		debug.Log(paths.CacheDir, "hook.log",
			fmt.Sprintf("post-merge: rename %s -> %s failed: %v", oldBase, newBase, err), nil)
		return nil
	}
	debug.Log(paths.CacheDir, "hook.log",
		fmt.Sprintf("post-merge: working log follows %s -> %s (squash=%v)", oldBase, newBase, squash), nil)
	return nil
}

// origHeadSHA resolves ORIG_HEAD, the pre-merge tip.
func origHeadSHA(root string) string {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", "ORIG_HEAD")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
