package attribution

import "strings"

// Line is one 1-indexed line record: the byte range includes the trailing
// newline (if any); Text has the newline and a single trailing \r stripped.
type Line struct {
	Number int
	Start  int
	End    int
	Text   string
}

// ScanLines splits content into line records. A final line with no trailing
// newline still produces a record, ending at len(content).
func ScanLines(content string) []Line {
	if content == "" {
		return nil
	}
	var lines []Line
	pos := 0
	number := 1
	n := len(content)
	for pos < n {
		end := n
		if idx := strings.IndexByte(content[pos:], '\n'); idx >= 0 {
			end = pos + idx + 1
		}
		text := content[pos:end]
		text = strings.TrimSuffix(text, "\n")
		text = strings.TrimSuffix(text, "\r")
		lines = append(lines, Line{Number: number, Start: pos, End: end, Text: text})
		pos = end
		number++
	}
	return lines
}

func isWhitespace(s string) bool {
	for _, r := range s {
		if !isSpaceRune(r) {
			return false
		}
	}
	return true
}
