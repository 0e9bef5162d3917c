package hook

import (
	"fmt"

	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/provenance"
)

// HandlePrePush publishes the attribution notes alongside the code push.
// Errors are logged but never returned — must not block the user's push.
func HandlePrePush() error {
	root, err := project.FindRoot()
	if err != nil {
		return nil
	}
	if !project.IsInitialized(root) {
		return nil
	}
	if !provenance.RefExists(root) {
		return nil
	}
	paths := project.NewPaths(root)

	if err := provenance.PushNotes(root, "origin", 3); err != nil {
		debug.Log(paths.CacheDir, "hook.log",
			fmt.Sprintf("pre-push: failed to push attribution notes: %v", err), nil)
	}
	return nil
}
