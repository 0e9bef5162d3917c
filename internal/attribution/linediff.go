package attribution

// LineOpKind identifies the shape of a line-level hunk.
type LineOpKind int

const (
	LineEqual LineOpKind = iota
	LineDelete
	LineInsert
	LineReplace
)

// LineOp is one hunk of the line-level edit script: old/new indices are
// indices into the Line slices passed to diffLineSlices (not byte offsets).
type LineOp struct {
	Kind     LineOpKind
	OldIndex int
	OldLen   int
	NewIndex int
	NewLen   int
}

// diffLineSlices computes an ordered Equal/Delete/Insert/Replace edit script
// between two line slices using an LCS backed by a hand-rolled DP table (the
// teacher's technique in internal/lineset/diff.go and
// internal/checkpoint/attribution.go, generalized from "which lines changed"
// to a full op script). Lines are compared by their raw byte-for-byte text,
// including any trailing line terminator.
func diffLineSlices(old, new []string) []LineOp {
	matchedOld, matchedNew := lcsMatch(old, new)

	var ops []LineOp
	i, j := 0, 0
	m, n := len(old), len(new)
	for i < m || j < n {
		if i < m && j < n && matchedOld[i] == j {
			start := i
			startJ := j
			for i < m && j < n && matchedOld[i] == j {
				i++
				j++
			}
			ops = append(ops, LineOp{Kind: LineEqual, OldIndex: start, NewIndex: startJ, NewLen: j - startJ})
			continue
		}

		delStart := i
		for i < m && matchedOld[i] == -1 {
			i++
		}
		delLen := i - delStart

		insStart := j
		for j < n && matchedNew[j] == -1 {
			j++
		}
		insLen := j - insStart

		switch {
		case delLen > 0 && insLen > 0:
			ops = append(ops, LineOp{Kind: LineReplace, OldIndex: delStart, OldLen: delLen, NewIndex: insStart, NewLen: insLen})
		case delLen > 0:
			ops = append(ops, LineOp{Kind: LineDelete, OldIndex: delStart, OldLen: delLen, NewIndex: j})
		case insLen > 0:
			ops = append(ops, LineOp{Kind: LineInsert, OldIndex: i, NewIndex: insStart, NewLen: insLen})
		default:
			// Neither side advanced: both sequences exhausted or a stray
			// mismatch the backtrack didn't resolve; force progress.
			if i < m {
				i++
			}
			if j < n {
				j++
			}
		}
	}
	return ops
}

// lcsMatch returns, for each index in a and b, the matched index on the
// other side (-1 if unmatched), via a classic O(m*n) DP table + backtrack.
func lcsMatch(a, b []string) (matchedOld, matchedNew []int) {
	m, n := len(a), len(b)
	matchedOld = make([]int, m)
	matchedNew = make([]int, n)
	for i := range matchedOld {
		matchedOld[i] = -1
	}
	for j := range matchedNew {
		matchedNew[j] = -1
	}

	dp := make([][]int32, m+1)
	for i := range dp {
		dp[i] = make([]int32, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	i, j := m, n
	for i > 0 && j > 0 {
		if a[i-1] == b[j-1] {
			matchedOld[i-1] = j - 1
			matchedNew[j-1] = i - 1
			i--
			j--
		} else if dp[i-1][j] >= dp[i][j-1] {
			i--
		} else {
			j--
		}
	}
	return matchedOld, matchedNew
}
