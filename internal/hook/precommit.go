package hook

import (
	"fmt"

	"github.com/srcattr/srcattr/internal/checkpoint"
	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// HandlePreCommit takes a final human checkpoint of the working tree so
// edits made since the last agent activity are attributed before the
// commit freezes them. Errors are logged, never surfaced — the commit
// must proceed regardless.
func HandlePreCommit() error {
	root, err := project.FindRoot()
	if err != nil {
		return nil
	}
	if !project.IsInitialized(root) {
		return nil
	}
	paths := project.NewPaths(root)

	res, err := checkpoint.Run(paths, checkpoint.Options{
		Kind:      workinglog.KindHuman,
		Author:    git.Author(),
		PreCommit: true,
		Quiet:     true,
	})
	if err != nil {
		debug.Log(paths.CacheDir, "hook.log",
			fmt.Sprintf("pre-commit: checkpoint failed: %v", err), nil)
		return nil
	}

	debug.Log(paths.CacheDir, "hook.log",
		fmt.Sprintf("pre-commit: %d entries, %d candidates, %d checkpoints",
			res.Entries, res.Candidates, res.TotalCheckpoints), nil)
	return nil
}
