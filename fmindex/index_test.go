package fmindex_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iqbal-lab-org/gramtools-sub001/fmindex"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
)

func toMarkers(s string) []prg.Marker {
	lut := map[byte]prg.Marker{'A': 1, 'C': 2, 'G': 3, 'T': 4}
	out := make([]prg.Marker, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = lut[s[i]]
	}
	return out
}

// bruteOccurrences returns the sorted text positions where pattern occurs.
func bruteOccurrences(text []prg.Marker, pattern []prg.Marker) []int {
	var out []int
	for i := 0; i+len(pattern) <= len(text); i++ {
		match := true
		for j, p := range pattern {
			if text[i+j] != p {
				match = false
				break
			}
		}
		if match {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func searchPattern(t *testing.T, idx *fmindex.Index, pattern []prg.Marker) fmindex.SAInterval {
	t.Helper()
	iv := idx.FullInterval()
	for i := len(pattern) - 1; i >= 0; i-- {
		iv = idx.BackwardExtend(iv, pattern[i])
		if iv.Empty() {
			break
		}
	}
	return iv
}

func TestBackwardSearchMatchesBruteForce(t *testing.T) {
	text := toMarkers("ACGTACGTACGGT")
	idx, err := fmindex.Build(text)
	require.NoError(t, err)

	for _, pattern := range []string{"ACG", "CGT", "T", "GGT", "ACGT"} {
		p := toMarkers(pattern)
		iv := searchPattern(t, idx, p)

		var got []int
		if !iv.Empty() {
			for i := iv.Lo; i <= iv.Hi; i++ {
				got = append(got, idx.SA(i))
			}
			sort.Ints(got)
		}
		want := bruteOccurrences(text, p)
		assert.Equal(t, want, got, "pattern %q", pattern)
	}
}

func TestBackwardSearchAbsentPattern(t *testing.T) {
	text := toMarkers("ACGTACGT")
	idx, err := fmindex.Build(text)
	require.NoError(t, err)
	iv := searchPattern(t, idx, toMarkers("GGGG"))
	assert.True(t, iv.Empty())
}

func TestCArrayMonotonic(t *testing.T) {
	text := toMarkers("ACGTACGT")
	idx, err := fmindex.Build(text)
	require.NoError(t, err)
	assert.LessOrEqual(t, idx.C(1), idx.C(2))
	assert.LessOrEqual(t, idx.C(2), idx.C(3))
	assert.LessOrEqual(t, idx.C(3), idx.C(4))
}

func TestBaseRankAtEnd(t *testing.T) {
	text := toMarkers("ACGTACGT")
	idx, err := fmindex.Build(text)
	require.NoError(t, err)
	total := 0
	for _, base := range []prg.Marker{1, 2, 3, 4} {
		total += idx.BaseRank(idx.Len(), base)
	}
	assert.Equal(t, idx.Len()-1, total) // every BWT position is exactly one base, except the sentinel
}

func TestMarkerMaskWithVariantMarkers(t *testing.T) {
	// "AC[5]G[6]T" encoded directly: A C 5 G 6 T
	text := []prg.Marker{1, 2, 5, 3, 6, 4}
	idx, err := fmindex.Build(text)
	require.NoError(t, err)
	count := 0
	for i := 0; i < idx.Len(); i++ {
		if idx.IsMarker(i) {
			count++
		}
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, count, idx.MarkerRank(idx.Len()))
}

func TestPRGMasksBasic(t *testing.T) {
	ps, err := prg.ParseText("A[A,C]T")
	require.NoError(t, err)
	masks := fmindex.BuildPRGMasks(ps)

	markers := ps.Markers()
	for j, m := range markers {
		if m >= 5 {
			assert.True(t, masks.IsMarkerAt(j), "position %d", j)
			assert.Equal(t, prg.Marker(0), masks.SiteAt(j))
		} else {
			assert.False(t, masks.IsMarkerAt(j), "position %d", j)
		}
	}
	// markers = [1,5,1,6,2,6,4]: position 2 is allele1's 'A', position 4 is allele2's 'C'.
	assert.Equal(t, prg.Marker(5), masks.SiteAt(2))
	assert.Equal(t, prg.AlleleID(1), masks.AlleleAt(2))
	assert.Equal(t, prg.Marker(5), masks.SiteAt(4))
	assert.Equal(t, prg.AlleleID(2), masks.AlleleAt(4))
}
