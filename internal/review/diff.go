package review

import "strings"

// DiffOp categorizes one entry in a Diff result.
type DiffOp string

const (
	DiffAdded     DiffOp = "added"
	DiffRemoved   DiffOp = "removed"
	DiffUnchanged DiffOp = "unchanged"
)

// DiffLine is one line of a computed diff. LeftLine/RightLine are
// 1-based line numbers into the "from"/"to" content respectively; a line
// number is zero when the operation has no counterpart on that side
// (added lines have no LeftLine, removed lines have no RightLine).
type DiffLine struct {
	Op        DiffOp `json:"op"`
	Text      string `json:"text"`
	LeftLine  int    `json:"leftLine,omitempty"`
	RightLine int    `json:"rightLine,omitempty"`
}

// DiffStats aggregates the counts of a Diff result.
type DiffStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Unchanged int `json:"unchanged"`
}

// Diff is the result of comparing two document versions line by line.
type Diff struct {
	Lines []DiffLine `json:"lines"`
	Stats DiffStats  `json:"stats"`
}

// splitLines splits content on \n the way spec §4.2 requires. A trailing
// newline does not produce a spurious empty final line, matching the
// intuitive notion of "the file has N lines".
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ComputeDiff computes a line-based LCS diff between from and to,
// following spec §4.2: when backtracking the LCS table and the "down"
// and "right" cells are equal, the added direction is preferred, giving
// a deterministic result independent of table-construction order.
func ComputeDiff(from, to string) Diff {
	a := splitLines(from)
	b := splitLines(to)

	n, m := len(a), len(b)

	// table[i][j] = length of the LCS of a[:i] and b[:j].
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if a[i-1] == b[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}

	// Backtrack from (n, m) to (0, 0), then reverse. On a tie between
	// the "up" (removed) and "left" (added) cells, prefer added, per
	// spec §4.2.
	var lines []DiffLine
	var stats DiffStats

	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			lines = append(lines, DiffLine{
				Op:        DiffUnchanged,
				Text:      a[i-1],
				LeftLine:  i,
				RightLine: j,
			})
			stats.Unchanged++
			i--
			j--

		case j > 0 && (i == 0 || table[i][j-1] >= table[i-1][j]):
			lines = append(lines, DiffLine{
				Op:        DiffAdded,
				Text:      b[j-1],
				RightLine: j,
			})
			stats.Additions++
			j--

		default:
			lines = append(lines, DiffLine{
				Op:       DiffRemoved,
				Text:     a[i-1],
				LeftLine: i,
			})
			stats.Deletions++
			i--
		}
	}

	for l, r := 0, len(lines)-1; l < r; l, r = l+1, r-1 {
		lines[l], lines[r] = lines[r], lines[l]
	}

	return Diff{Lines: lines, Stats: stats}
}
