package attribution

// ProjectLines implements the Line Projector (4.7): it converts a character-
// range attribution set into per-line attributions, picking as dominant
// author the latest-timestamped attribution that contributes non-whitespace
// to the line (ties keep the first candidate), merges adjacent lines sharing (author, overrode), and finally
// strips lines that are purely human-authored (no override to record).
func ProjectLines(attributions []Attribution, content string) []LineAttribution {
	if content == "" || len(attributions) == 0 {
		return nil
	}
	lines := ScanLines(content)
	if len(lines) == 0 {
		return nil
	}

	type authorship struct {
		author      string
		overrode    string
		hasOverrode bool
	}

	perLine := make([]authorship, len(lines))
	for i, line := range lines {
		author, overrode, hasOverrode := dominantAuthorForLine(line, attributions, content)
		perLine[i] = authorship{author: author, overrode: overrode, hasOverrode: hasOverrode}
	}

	var merged []LineAttribution
	startLine := lines[0].Number
	cur := perLine[0]
	for i := 1; i < len(perLine); i++ {
		a := perLine[i]
		if a.author == cur.author && a.hasOverrode == cur.hasOverrode && a.overrode == cur.overrode {
			continue
		}
		la := LineAttribution{StartLine: startLine, EndLine: lines[i-1].Number, AuthorID: cur.author}
		if cur.hasOverrode {
			la.Overrode = cur.overrode
		}
		merged = append(merged, la)
		startLine = lines[i].Number
		cur = a
	}
	la := LineAttribution{StartLine: startLine, EndLine: lines[len(lines)-1].Number, AuthorID: cur.author}
	if cur.hasOverrode {
		la.Overrode = cur.overrode
	}
	merged = append(merged, la)

	filtered := merged[:0]
	for _, la := range merged {
		if la.AuthorID == HumanAuthor && la.Overrode == "" {
			continue
		}
		filtered = append(filtered, la)
	}
	return filtered
}

// dominantAuthorForLine picks the author with the latest timestamp among
// attributions contributing at least one non-whitespace character to the
// line (all overlapping attributions count if the line itself is blank),
// and determines whether a human edit overrode a prior AI attribution.
func dominantAuthorForLine(line Line, attributions []Attribution, content string) (author string, overrode string, hasOverrode bool) {
	lineStart, lineEnd := line.Start, line.End
	isLineEmpty := isWhitespace(content[lineStart:lineEnd])

	var candidates []Attribution
	for _, attr := range attributions {
		s, e, ok := attr.Intersection(lineStart, lineEnd)
		if !ok {
			continue
		}
		if countNonWhitespace(content[s:e]) > 0 || isLineEmpty {
			candidates = append(candidates, attr)
		}
	}

	if len(candidates) == 0 {
		return HumanAuthor, "", false
	}

	latestTs := candidates[0].Ts
	for _, c := range candidates {
		if c.Ts > latestTs {
			latestTs = c.Ts
		}
	}
	var latestAuthor string
	for _, c := range candidates {
		if c.Ts == latestTs {
			latestAuthor = c.AuthorID
			break
		}
	}

	var lastAI, lastHuman *Attribution
	for i := range candidates {
		if candidates[i].AuthorID != HumanAuthor {
			lastAI = &candidates[i]
		} else {
			lastHuman = &candidates[i]
		}
	}

	if lastAI != nil && lastHuman != nil && lastAI.Ts < lastHuman.Ts {
		return latestAuthor, lastAI.AuthorID, true
	}
	return latestAuthor, "", false
}

func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !isSpaceRune(r) {
			n++
		}
	}
	return n
}
