package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/srcattr/srcattr/internal/debug"
	"github.com/srcattr/srcattr/internal/hook"
	"github.com/srcattr/srcattr/internal/project"
)

const hookUsage = "Usage: git-ai hook <pre-commit|commit-msg|post-commit|post-merge|" +
	"post-rewrite|post-checkout|reference-transaction|pre-push|pre-rebase|" +
	"prompt-submit|pre-tool-use|post-tool-use|tab-complete>"

// RunHook dispatches hook subcommands: the git hooks around commits and
// history rewrites, and the agent hooks around prompts and edit tools.
func RunHook(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, hookUsage)
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "pre-commit":
		err = hook.HandlePreCommit()
	case "commit-msg":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: git-ai hook commit-msg <msg-file>")
			os.Exit(1)
		}
		err = hook.HandleCommitMsg(args[1])
	case "post-commit":
		err = hook.HandlePostCommit()
	case "post-merge":
		squash := len(args) > 1 && args[1] == "1"
		err = hook.HandlePostMerge(squash)
	case "post-rewrite":
		command := ""
		if len(args) > 1 {
			command = args[1]
		}
		err = hook.HandlePostRewrite(command, os.Stdin)
	case "post-checkout":
		var oldSHA, newSHA string
		branchCheckout := false
		if len(args) > 3 {
			oldSHA, newSHA = args[1], args[2]
			if flag, perr := strconv.Atoi(args[3]); perr == nil {
				branchCheckout = flag == 1
			}
		}
		err = hook.HandlePostCheckout(oldSHA, newSHA, branchCheckout)
	case "reference-transaction":
		state := ""
		if len(args) > 1 {
			state = args[1]
		}
		err = hook.HandleReferenceTransaction(state, os.Stdin)
	case "pre-push":
		err = hook.HandlePrePush()
	case "pre-rebase":
		err = hook.HandlePreRebase()
	case "prompt-submit":
		err = hook.HandlePromptSubmit(os.Stdin)
	case "pre-tool-use":
		err = hook.HandlePreToolUse(os.Stdin)
	case "post-tool-use":
		err = hook.HandlePostToolUse(os.Stdin)
	case "tab-complete":
		err = hook.HandleTabComplete(os.Stdin)
	default:
		fmt.Fprintf(os.Stderr, "Unknown hook type: %s\n", args[0])
		os.Exit(1)
	}

	if err != nil {
		// Log error but never fail — hooks must not block git or the agent
		if root, e := project.FindRoot(); e == nil {
			paths := project.NewPaths(root)
			debug.Log(paths.CacheDir, "hook.log", fmt.Sprintf("Fatal error: %v", err), nil)
		}
	}
	// Always exit 0
}
