package record

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSession_AppendReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions", "s1.jsonl")

	err := AppendSession(path,
		Record{Ts: "2025-01-01T00:00:00Z", File: "a.go", Tool: "Edit", Agent: "cafe01"},
		Record{Ts: "2025-01-01T00:01:00Z", File: "b.go", Tool: "Write"},
	)
	if err != nil {
		t.Fatalf("AppendSession: %v", err)
	}
	if err := AppendSession(path, Record{Ts: "2025-01-01T00:02:00Z", File: "c.go"}); err != nil {
		t.Fatalf("second AppendSession: %v", err)
	}

	records, err := ReadSession(path)
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].File != "a.go" || records[0].Agent != "cafe01" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[2].File != "c.go" {
		t.Errorf("appended record = %+v", records[2])
	}
}

func TestReadSession_AbsentIsEmpty(t *testing.T) {
	records, err := ReadSession(filepath.Join(t.TempDir(), "missing.jsonl"))
	if err != nil || records != nil {
		t.Errorf("absent session: %v, %v", records, err)
	}
}

func TestReadSession_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	content := "{broken\n" + `{"file":"ok.go","ts":"2025-01-01T00:00:00Z"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := ReadSession(path)
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if len(records) != 1 || records[0].File != "ok.go" {
		t.Errorf("records = %+v, want just ok.go", records)
	}
}

func TestWriteSession_RewritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.jsonl")

	if err := AppendSession(path, Record{File: "a.go"}, Record{File: "b.go"}); err != nil {
		t.Fatal(err)
	}
	records, _ := ReadSession(path)
	records[1].Reason = "filled in later"
	if err := WriteSession(path, records); err != nil {
		t.Fatalf("WriteSession: %v", err)
	}

	again, err := ReadSession(path)
	if err != nil || len(again) != 2 {
		t.Fatalf("re-read: %v, %d records", err, len(again))
	}
	if again[1].Reason != "filled in later" {
		t.Errorf("rewrite lost the reason: %+v", again[1])
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".session-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
