// Package attrerr defines the error taxonomy shared by the working-log
// storage layer and the checkpoint orchestrator.
//
// Callers classify an error with errors.Is against the sentinels below,
// then apply the propagation policy the caller site documents: AbsentState
// is silently treated as empty, IO/Parse/GitSubprocess are logged and
// isolated to the one file or record that produced them, InvariantViolation
// drops the one file's entry for the current checkpoint, and Fatal aborts
// the whole operation.
package attrerr

import "errors"

var (
	// AbsentState marks a missing working log, INITIAL file, or HEAD — never
	// surfaced to the user, always treated as "empty".
	AbsentState = errors.New("absent state")

	// IO marks a read/write failure against the blob store or the
	// checkpoint log. The caller logs it and continues with other files.
	IO = errors.New("io error")

	// Parse marks invalid JSON in an INITIAL file or a checkpoint record.
	// The caller skips the offending record without attempting repair.
	Parse = errors.New("parse error")

	// GitSubprocess marks a failed or non-zero git invocation (blame, show,
	// status). The caller degrades to Human attribution for the affected
	// lines and continues.
	GitSubprocess = errors.New("git subprocess error")

	// InvariantViolation marks a data invariant failure within a single
	// file's attribution (e.g. end > len(content)). The caller drops that
	// file's entry for the current checkpoint and continues with others.
	InvariantViolation = errors.New("invariant violation")

	// Fatal marks conditions the wrapper cannot recover from: a bare
	// repository, or a working directory that cannot be resolved.
	Fatal = errors.New("fatal")
)

// Wrap annotates err with a sentinel so errors.Is(wrapped, sentinel) holds,
// while preserving err's message via %w-style chaining semantics.
func Wrap(sentinel, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{sentinel: sentinel, err: err}
}

type wrapped struct {
	sentinel error
	err      error
}

func (w *wrapped) Error() string { return w.sentinel.Error() + ": " + w.err.Error() }
func (w *wrapped) Unwrap() []error { return []error{w.sentinel, w.err} }

// Is reports whether err carries the given sentinel, by way of the
// wrapped Unwrap chain or a direct errors.Is match.
func Is(err, sentinel error) bool {
	return errors.Is(err, sentinel)
}
