package attribution

// LineChanges compares two revisions line-by-line and counts added and
// deleted line records, plus the subset of each containing at least one
// non-whitespace codepoint. Lines are compared as newline-terminated
// records, so the counts match what git reports for the same edit.
func LineChanges(oldContent, newContent string) (additions, deletions, additionsSloc, deletionsSloc int) {
	oldLines := ScanLines(oldContent)
	newLines := ScanLines(newContent)

	oldRaw := make([]string, len(oldLines))
	for i, l := range oldLines {
		oldRaw[i] = oldContent[l.Start:l.End]
	}
	newRaw := make([]string, len(newLines))
	for i, l := range newLines {
		newRaw[i] = newContent[l.Start:l.End]
	}

	for _, op := range diffLineSlices(oldRaw, newRaw) {
		switch op.Kind {
		case LineDelete, LineReplace:
			deletions += op.OldLen
			for i := op.OldIndex; i < op.OldIndex+op.OldLen; i++ {
				if !isWhitespace(oldLines[i].Text) {
					deletionsSloc++
				}
			}
		}
		switch op.Kind {
		case LineInsert, LineReplace:
			additions += op.NewLen
			for j := op.NewIndex; j < op.NewIndex+op.NewLen; j++ {
				if !isWhitespace(newLines[j].Text) {
					additionsSloc++
				}
			}
		}
	}
	return additions, deletions, additionsSloc, deletionsSloc
}
