package review

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestComputeDiff_ScenarioS6 checks the literal example from spec §8.
func TestComputeDiff_ScenarioS6(t *testing.T) {
	d := ComputeDiff("a\nb\nc", "a\nX\nc")

	require.Equal(t, DiffStats{Additions: 1, Deletions: 1, Unchanged: 2}, d.Stats)
	require.Equal(t, []DiffLine{
		{Op: DiffUnchanged, Text: "a", LeftLine: 1, RightLine: 1},
		{Op: DiffRemoved, Text: "b", LeftLine: 2},
		{Op: DiffAdded, Text: "X", RightLine: 2},
		{Op: DiffUnchanged, Text: "c", LeftLine: 3, RightLine: 3},
	}, d.Lines)
}

// TestComputeDiff_IdenticalContentIsAllUnchanged covers property 3's
// first half: diffing a version against itself adds and removes nothing.
func TestComputeDiff_IdenticalContentIsAllUnchanged(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		content := rapid.SliceOfN(
			rapid.StringMatching(`[a-zA-Z0-9 ]{0,12}`), 0, 8,
		).Draw(rt, "lines")
		joined := join(content)

		d := ComputeDiff(joined, joined)

		require.Zero(t, d.Stats.Additions)
		require.Zero(t, d.Stats.Deletions)
		require.Equal(t, len(content), d.Stats.Unchanged)
	})
}

// TestComputeDiff_RemovedCountMatchesNonLCSLines covers property 3's
// second half: the removed count equals the number of "from" lines that
// do not participate in the LCS with "to".
func TestComputeDiff_RemovedCountMatchesNonLCSLines(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		from := join(rapid.SliceOfN(
			rapid.StringMatching(`[a-c]{1,3}`), 0, 8,
		).Draw(rt, "from"))
		to := join(rapid.SliceOfN(
			rapid.StringMatching(`[a-c]{1,3}`), 0, 8,
		).Draw(rt, "to"))

		d := ComputeDiff(from, to)

		lcsLen := len(splitLines(from)) - d.Stats.Deletions
		require.Equal(t, lcsLen, len(splitLines(to))-d.Stats.Additions)
		require.LessOrEqual(t, d.Stats.Deletions, len(splitLines(from)))
		require.LessOrEqual(t, d.Stats.Additions, len(splitLines(to)))
	})
}

func join(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// TestDigest_MatchesSHA256 covers property 5.
func TestDigest_MatchesSHA256(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		content := rapid.String().Draw(rt, "content")

		got := Digest(content)
		sum := sha256.Sum256([]byte(content))
		require.Equal(t, hex.EncodeToString(sum[:]), got)
		require.Len(t, got, 64)
		require.Equal(t, Digest(content), got, "digest must be deterministic")
	})
}
