package hook

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/project"
	"github.com/srcattr/srcattr/internal/workinglog"
)

// HandlePostRewrite processes amend/rebase rewrites: stdin carries one
// "<old-sha> <new-sha>" pair per line, and each pair's working log is
// renamed so future checkpoints find their history under the new SHA.
func HandlePostRewrite(command string, r io.Reader) error {
	root, err := project.FindRoot()
	if err != nil {
		return nil
	}
	if !project.IsInitialized(root) {
		return nil
	}
	paths := project.NewPaths(root)

	renamed := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] == fields[1] {
			continue
		}
		if err := workinglog.Rename(paths.GitDir, fields[0], fields[1]); err != nil {
			debug.Log(paths.CacheDir, "hook.log",
				fmt.Sprintf("post-rewrite(%s): rename %s -> %s failed: %v", command, fields[0], fields[1], err), nil)
			continue
		}
		renamed++
	}

	if renamed > 0 {
		debug.Log(paths.CacheDir, "hook.log",
			fmt.Sprintf("post-rewrite(%s): %d working log(s) follow rewrites", command, renamed), nil)
	}
	return nil
}
