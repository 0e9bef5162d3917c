package workinglog

import (
	"encoding/json"
	"os"

	"github.com/srcattr/srcattr/internal/attrerr"
	"github.com/srcattr/srcattr/internal/attribution"
)

// ReadInitial loads the INITIAL file. Absence is reported as an empty
// map with no error; a malformed file is a Parse error logged by the
// caller, also degrading to empty rather than aborting.
func (l *Log) ReadInitial() (map[string][]attribution.LineAttribution, error) {
	data, err := os.ReadFile(l.initialPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, attrerr.Wrap(attrerr.IO, err)
	}
	var in Initial
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, attrerr.Wrap(attrerr.Parse, err)
	}
	return in.Files, nil
}

// WriteInitial persists the INITIAL file, merging newEntries into whatever
// is already on disk (a file already bootstrapped keeps its existing
// entry; only files absent from the current INITIAL gain one).
func (l *Log) WriteInitial(newEntries map[string][]attribution.LineAttribution) error {
	existing, err := l.ReadInitial()
	if err != nil && !attrerr.Is(err, attrerr.Parse) {
		return err
	}
	if existing == nil {
		existing = make(map[string][]attribution.LineAttribution, len(newEntries))
	}
	for path, attrs := range newEntries {
		if _, ok := existing[path]; ok {
			continue
		}
		existing[path] = attrs
	}

	if err := os.MkdirAll(l.baseDir, 0o755); err != nil {
		return attrerr.Wrap(attrerr.IO, err)
	}
	data, err := json.Marshal(Initial{Files: existing})
	if err != nil {
		return attrerr.Wrap(attrerr.IO, err)
	}
	return os.WriteFile(l.initialPath(), data, 0o644)
}
