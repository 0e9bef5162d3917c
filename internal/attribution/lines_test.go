package attribution

import "testing"

func TestScanLinesBasic(t *testing.T) {
	content := "abc\ndef\r\nghi"
	lines := ScanLines(content)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d (%+v)", len(lines), lines)
	}
	if lines[0].Text != "abc" || lines[0].Start != 0 || lines[0].End != 4 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].Text != "def" {
		t.Fatalf("expected CRLF stripped, got %q", lines[1].Text)
	}
	last := lines[2]
	if last.Text != "ghi" || last.End != len(content) {
		t.Fatalf("unterminated final line mis-scanned: %+v", last)
	}
}

func TestScanLinesEmpty(t *testing.T) {
	if lines := ScanLines(""); lines != nil {
		t.Fatalf("expected nil for empty content, got %+v", lines)
	}
}

func TestScanLinesTrailingNewline(t *testing.T) {
	lines := ScanLines("one\ntwo\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", lines)
	}
	if lines[1].Text != "two" {
		t.Fatalf("unexpected second line text %q", lines[1].Text)
	}
}
