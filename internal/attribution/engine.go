package attribution

// buildDiffCatalog walks the byte-level diff and records the byte range of
// every deletion (in old-content coordinates) and insertion (in new-content
// coordinates), in diff order.
func buildDiffCatalog(ops []ByteOp) (deletions, insertions []Range) {
	oldPos, newPos := 0, 0
	for _, op := range ops {
		l := len(op.Text)
		switch op.Kind {
		case ByteEqual:
			oldPos += l
			newPos += l
		case ByteDelete:
			deletions = append(deletions, Range{oldPos, oldPos + l})
			oldPos += l
		case ByteInsert:
			insertions = append(insertions, Range{newPos, newPos + l})
			newPos += l
		}
	}
	return deletions, insertions
}

// Update runs the full Attribution Engine pipeline (compute diffs -> build
// the deletion/insertion catalog -> detect moves -> transform -> merge). The
// caller must precondition oldAttributions with FillUnattributed so the
// transformer sees total coverage of oldContent (9, "prior-attribution
// preconditioning").
func Update(oldContent, newContent string, oldAttributions []Attribution, currentAuthor string, ts int64, cfg Config) []Attribution {
	cfg = cfg.normalized()

	ops, substantive := computeDiffs(oldContent, newContent)
	deletions, insertions := buildDiffCatalog(ops)
	moves := detectMoves(oldContent, newContent, deletions, insertions, cfg.MoveLinesThreshold)
	transformed := transformAttributions(ops, oldAttributions, currentAuthor, insertions, moves, ts, substantive)

	return mergeAttributions(transformed)
}

// FillUnattributed fills every unattributed byte of content with an
// attribution to author at ts, giving the transformer total coverage to work from.
func FillUnattributed(content string, prior []Attribution, author string, ts int64) []Attribution {
	n := len(content)
	result := append([]Attribution(nil), prior...)
	if n == 0 {
		return result
	}

	covered := make([]bool, n)
	for _, a := range prior {
		s, e := a.Start, a.End
		if s < 0 {
			s = 0
		}
		if e > n {
			e = n
		}
		for i := s; i < e; i++ {
			covered[i] = true
		}
	}

	i := 0
	for i < n {
		if covered[i] {
			i++
			continue
		}
		start := i
		for i < n && !covered[i] {
			i++
		}
		result = append(result, Attribution{Start: start, End: i, AuthorID: author, Ts: ts})
	}
	return result
}

// LineAttributionsToAttributions converts line-based attributions (e.g. from
// an INITIAL file or bootstrapped Git blame) into character-range
// attributions covering the same lines of content, all stamped at ts.
func LineAttributionsToAttributions(lineAttrs []LineAttribution, content string, ts int64) []Attribution {
	if len(lineAttrs) == 0 || content == "" {
		return nil
	}
	lines := ScanLines(content)
	byNumber := make(map[int]Line, len(lines))
	for _, l := range lines {
		byNumber[l.Number] = l
	}

	var result []Attribution
	for _, la := range lineAttrs {
		startLine, startOk := byNumber[la.StartLine]
		endLine, endOk := byNumber[la.EndLine]
		if !startOk || !endOk || startLine.Start >= endLine.End {
			continue
		}
		result = append(result, Attribution{Start: startLine.Start, End: endLine.End, AuthorID: la.AuthorID, Ts: ts})
	}
	return result
}
