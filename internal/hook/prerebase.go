package hook

import (
	"fmt"

	"github.com/srcattr/srcattr/internal/checkpoint"
	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/git"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// HandlePreRebase snapshots any outstanding human edits before the
// rebase starts rewriting commits, so the working log's final state is
// complete when post-rewrite moves it.
func HandlePreRebase() error {
	root, err := project.FindRoot()
	if err != nil {
		return nil
	}
	if !project.IsInitialized(root) {
		return nil
	}
	paths := project.NewPaths(root)

	res, err := checkpoint.Run(paths, checkpoint.Options{
		Kind:   workinglog.KindHuman,
		Author: git.Author(),
		Quiet:  true,
	})
	if err != nil {
		debug.Log(paths.CacheDir, "hook.log",
			fmt.Sprintf("pre-rebase: checkpoint failed: %v", err), nil)
		return nil
	}
	debug.Log(paths.CacheDir, "hook.log",
		fmt.Sprintf("pre-rebase: %d entries checkpointed", res.Entries), nil)
	return nil
}
