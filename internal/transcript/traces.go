package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// WriteTraces merges extracted trace contexts into
// <tracesDir>/<sessionID>.json, keyed by tool-use ID. Existing entries
// for other tool uses in the same session are preserved.
func WriteTraces(tracesDir, sessionID string, contexts map[string]string) error {
	if len(contexts) == 0 {
		return nil
	}
	if err := os.MkdirAll(tracesDir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(tracesDir, sessionID+".json")
	existing := make(map[string]string)
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &existing)
	}
	for k, v := range contexts {
		existing[k] = v
	}

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadTraces reads a session's trace file. Absence returns (nil, nil).
func ReadTraces(tracesDir, sessionID string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(tracesDir, sessionID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var traces map[string]string
	if err := json.Unmarshal(data, &traces); err != nil {
		return nil, err
	}
	return traces, nil
}
