package attribution

import (
	"sort"
	"strings"
)

// transformAttributions walks the byte-level diff script together with the
// prior attribution set and the move mappings, producing the post-edit
// attribution set (4.6). Output is unmerged/unsorted; callers run
// mergeAttributions afterward.
func transformAttributions(
	ops []ByteOp,
	oldAttributions []Attribution,
	currentAuthor string,
	insertions []Range,
	moveMappings []MoveMapping,
	ts int64,
	substantiveRanges []Range,
) []Attribution {
	var result []Attribution

	deletionToMove := make(map[int][]MoveMapping)
	insertionMoveRanges := make(map[int][]Range)
	for _, m := range moveMappings {
		entry := deletionToMove[m.DeletionIdx]
		dup := false
		for _, e := range entry {
			if e.SourceRange == m.SourceRange && e.TargetRange == m.TargetRange {
				dup = true
				break
			}
		}
		if !dup {
			deletionToMove[m.DeletionIdx] = append(entry, m)
		}
		insertionMoveRanges[m.InsertionIdx] = append(insertionMoveRanges[m.InsertionIdx], m.TargetRange)
	}
	for k, v := range deletionToMove {
		sorted := append([]MoveMapping(nil), v...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].SourceRange.Start < sorted[j].SourceRange.Start })
		deletionToMove[k] = sorted
	}

	oldPos, newPos := 0, 0
	deletionIdx, insertionIdx := 0, 0
	prevWhitespaceDelete := false

	for _, op := range ops {
		length := len(op.Text)

		switch op.Kind {
		case ByteEqual:
			oldStart, newStart := oldPos, newPos
			for _, attr := range oldAttributions {
				if s, e, ok := attr.Intersection(oldStart, oldStart+length); ok {
					offset := s - oldStart
					result = append(result, Attribution{
						Start:    newStart + offset,
						End:      newStart + offset + (e - s),
						AuthorID: attr.AuthorID,
						Ts:       attr.Ts,
					})
				}
			}
			oldPos += length
			newPos += length
			prevWhitespaceDelete = false

		case ByteDelete:
			deletionStart := oldPos
			if mappings, ok := deletionToMove[deletionIdx]; ok {
				for _, m := range mappings {
					insertion := insertions[m.InsertionIdx]
					sourceStart := deletionStart + m.SourceRange.Start
					sourceEnd := deletionStart + m.SourceRange.End
					if sourceStart >= sourceEnd {
						continue
					}
					targetStart := insertion.Start + m.TargetRange.Start
					for _, attr := range oldAttributions {
						if s, e, ok := attr.Intersection(sourceStart, sourceEnd); ok {
							offsetInSource := s - sourceStart
							newStart := targetStart + offsetInSource
							newEnd := newStart + (e - s)
							if newStart < newEnd {
								result = append(result, Attribution{Start: newStart, End: newEnd, AuthorID: attr.AuthorID, Ts: attr.Ts})
							}
						}
					}
				}
			}
			oldPos += length
			deletionIdx++
			prevWhitespaceDelete = dataIsWhitespace([]byte(op.Text))

		case ByteInsert:
			if ranges, ok := insertionMoveRanges[insertionIdx]; ok {
				covered := append([]Range(nil), ranges...)
				sort.Slice(covered, func(i, j int) bool { return covered[i].Start < covered[j].Start })
				var merged []Range
				for _, r := range covered {
					if r.Start >= r.End {
						continue
					}
					if len(merged) > 0 && r.Start <= merged[len(merged)-1].End {
						if r.End > merged[len(merged)-1].End {
							merged[len(merged)-1].End = r.End
						}
						continue
					}
					merged = append(merged, r)
				}

				cursor := 0
				for _, r := range merged {
					clampedStart := r.Start
					if clampedStart > length {
						clampedStart = length
					}
					clampedEnd := r.End
					if clampedEnd > length {
						clampedEnd = length
					}
					if cursor < clampedStart {
						result = append(result, Attribution{Start: newPos + cursor, End: newPos + clampedStart, AuthorID: currentAuthor, Ts: ts})
					}
					if clampedEnd > cursor {
						cursor = clampedEnd
					}
				}
				if cursor < length {
					result = append(result, Attribution{Start: newPos + cursor, End: newPos + length, AuthorID: currentAuthor, Ts: ts})
				}

				newPos += length
				insertionIdx++
				prevWhitespaceDelete = false
				continue
			}

			insertionRange := Range{newPos, newPos + length}
			isSubstantive := rangesIntersect(substantiveRanges, insertionRange)
			isWhitespaceOnly := dataIsWhitespace([]byte(op.Text))
			containsNewline := strings.Contains(op.Text, "\n")
			isFormattingPair := prevWhitespaceDelete && isWhitespaceOnly

			var authorID string
			var attrTs int64
			switch {
			case containsNewline, isSubstantive:
				authorID, attrTs = currentAuthor, ts
			case isFormattingPair:
				if attr := findAttributionForInsertion(oldAttributions, oldPos); attr != nil {
					authorID, attrTs = attr.AuthorID, attr.Ts
				} else if len(result) > 0 {
					last := result[len(result)-1]
					authorID, attrTs = last.AuthorID, last.Ts
				} else {
					authorID, attrTs = currentAuthor, ts
				}
			default:
				if len(result) > 0 {
					last := result[len(result)-1]
					authorID, attrTs = last.AuthorID, last.Ts
				} else if attr := findAttributionForInsertion(oldAttributions, oldPos); attr != nil {
					authorID, attrTs = attr.AuthorID, attr.Ts
				} else {
					authorID, attrTs = currentAuthor, ts
				}
			}

			result = append(result, Attribution{Start: newPos, End: newPos + length, AuthorID: authorID, Ts: attrTs})
			newPos += length
			insertionIdx++
			prevWhitespaceDelete = false
		}
	}

	return result
}

// findAttributionForInsertion picks the prior attribution a whitespace-only
// or inherited insertion should adopt: the attribution actually covering
// position (latest ts, then longest, tie broken to the last such candidate),
// else the nearest attribution ending at-or-before position, else the
// nearest one starting at-or-after it.
func findAttributionForInsertion(oldAttributions []Attribution, position int) *Attribution {
	var best *Attribution
	for i := range oldAttributions {
		a := &oldAttributions[i]
		if !a.Overlaps(position, position+1) {
			continue
		}
		if best == nil || a.Ts > best.Ts || (a.Ts == best.Ts && (a.End-a.Start) >= (best.End-best.Start)) {
			best = a
		}
	}
	if best != nil {
		return best
	}

	var before *Attribution
	for i := range oldAttributions {
		a := &oldAttributions[i]
		if a.End <= position && (before == nil || a.End >= before.End) {
			before = a
		}
	}
	if before != nil {
		return before
	}

	var after *Attribution
	for i := range oldAttributions {
		a := &oldAttributions[i]
		if a.Start >= position && (after == nil || a.Start < after.Start) {
			after = a
		}
	}
	return after
}

// mergeAttributions sorts by (start, end, author) and drops exact duplicates.
// Overlaps between distinct authors, or distinct timestamps, are retained.
func mergeAttributions(attrs []Attribution) []Attribution {
	if len(attrs) == 0 {
		return attrs
	}
	sorted := append([]Attribution(nil), attrs...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.AuthorID != b.AuthorID {
			return a.AuthorID < b.AuthorID
		}
		return a.Ts < b.Ts
	})
	out := sorted[:1]
	for _, a := range sorted[1:] {
		last := out[len(out)-1]
		if a == last {
			continue
		}
		out = append(out, a)
	}
	return out
}
