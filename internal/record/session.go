package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ReadSession reads every record from a session JSONL file, skipping
// malformed lines. A missing file reads as empty.
func ReadSession(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// WriteSession rewrites a session JSONL file in full, atomically: the
// records land in a temp file beside the target and replace it with a
// rename, so a reader never sees a half-written session.
func WriteSession(path string, records []Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".session-%s.tmp", uuid.New().String()))
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s\n", b); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// AppendSession appends records to a session JSONL file.
func AppendSession(path string, records ...Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s\n", b); err != nil {
			return err
		}
	}
	return nil
}
