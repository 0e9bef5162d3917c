package attribution

import "sort"

// MoveMapping records a detected block relocation: SourceRange is relative to
// the deletion at DeletionIdx, TargetRange is relative to the insertion at
// InsertionIdx.
type MoveMapping struct {
	DeletionIdx  int
	InsertionIdx int
	SourceRange  Range
	TargetRange  Range
}

type taggedLine struct {
	text     string
	blockIdx int
	start    int
	end      int
}

// detectMoves finds runs of >= threshold byte-identical trimmed lines that
// appear as a contiguous block inside a single deletion and a single
// insertion, and reports their byte sub-ranges (4.5). Deliberately
// conservative: a candidate run that mixes lines from more than one
// deletion or more than one insertion block is rejected outright rather
// than split.
func detectMoves(oldContent, newContent string, deletions, insertions []Range, threshold int) []MoveMapping {
	if threshold <= 0 || len(deletions) == 0 || len(insertions) == 0 {
		return nil
	}

	oldLines := ScanLines(oldContent)
	newLines := ScanLines(newContent)

	var deletedLines []taggedLine
	for idx, d := range deletions {
		for _, l := range oldLines {
			if l.Start < d.End && l.End > d.Start {
				deletedLines = append(deletedLines, taggedLine{text: l.Text, blockIdx: idx, start: l.Start, end: l.End})
			}
		}
	}
	var insertedLines []taggedLine
	for idx, ins := range insertions {
		for _, l := range newLines {
			if l.Start < ins.End && l.End > ins.Start {
				insertedLines = append(insertedLines, taggedLine{text: l.Text, blockIdx: idx, start: l.Start, end: l.End})
			}
		}
	}

	if len(deletedLines) == 0 || len(insertedLines) == 0 {
		return nil
	}

	d, i := len(deletedLines), len(insertedLines)
	dp := make([][]int, d+1)
	for x := range dp {
		dp[x] = make([]int, i+1)
	}
	for x := 1; x <= d; x++ {
		for y := 1; y <= i; y++ {
			if deletedLines[x-1].text == insertedLines[y-1].text {
				dp[x][y] = dp[x-1][y-1] + 1
			}
		}
	}

	type run struct{ dStart, dEnd, iStart, iEnd int }
	var runs []run
	for x := 1; x <= d; x++ {
		for y := 1; y <= i; y++ {
			l := dp[x][y]
			if l < threshold {
				continue
			}
			if x < d && y < i && dp[x+1][y+1] == l+1 {
				continue // not the end of the maximal run
			}
			runs = append(runs, run{dStart: x - l, dEnd: x, iStart: y - l, iEnd: y})
		}
	}

	var mappings []MoveMapping
	for _, r := range runs {
		delIdx := deletedLines[r.dStart].blockIdx
		ok := true
		for k := r.dStart; k < r.dEnd; k++ {
			if deletedLines[k].blockIdx != delIdx {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		insIdx := insertedLines[r.iStart].blockIdx
		for k := r.iStart; k < r.iEnd; k++ {
			if insertedLines[k].blockIdx != insIdx {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		deletion := deletions[delIdx]
		insertion := insertions[insIdx]

		srcStart, srcEnd, haveSrc := 0, 0, false
		for k := r.dStart; k < r.dEnd && ok; k++ {
			dl := deletedLines[k]
			s, e := dl.start, dl.end
			if s < deletion.Start {
				s = deletion.Start
			}
			if e > deletion.End {
				e = deletion.End
			}
			if s >= e {
				ok = false
				break
			}
			if !haveSrc {
				srcStart = s - deletion.Start
				haveSrc = true
			}
			srcEnd = e - deletion.Start
		}
		if !ok || !haveSrc || srcStart >= srcEnd {
			continue
		}

		tgtStart, tgtEnd, haveTgt := 0, 0, false
		for k := r.iStart; k < r.iEnd && ok; k++ {
			il := insertedLines[k]
			s, e := il.start, il.end
			if s < insertion.Start {
				s = insertion.Start
			}
			if e > insertion.End {
				e = insertion.End
			}
			if s >= e {
				ok = false
				break
			}
			if !haveTgt {
				tgtStart = s - insertion.Start
				haveTgt = true
			}
			tgtEnd = e - insertion.Start
		}
		if !ok || !haveTgt || tgtStart >= tgtEnd {
			continue
		}

		mappings = append(mappings, MoveMapping{
			DeletionIdx:  delIdx,
			InsertionIdx: insIdx,
			SourceRange:  Range{srcStart, srcEnd},
			TargetRange:  Range{tgtStart, tgtEnd},
		})
	}

	sort.Slice(mappings, func(a, b int) bool {
		if mappings[a].SourceRange.Start != mappings[b].SourceRange.Start {
			return mappings[a].SourceRange.Start < mappings[b].SourceRange.Start
		}
		return mappings[a].TargetRange.Start < mappings[b].TargetRange.Start
	})

	type key struct{ delIdx, insIdx, ss, se, ts, te int }
	seen := make(map[key]bool, len(mappings))
	deduped := mappings[:0]
	for _, m := range mappings {
		k := key{m.DeletionIdx, m.InsertionIdx, m.SourceRange.Start, m.SourceRange.End, m.TargetRange.Start, m.TargetRange.End}
		if seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, m)
	}
	return deduped
}
