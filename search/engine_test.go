package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iqbal-lab-org/gramtools-sub001/fmindex"
	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
	"github.com/iqbal-lab-org/gramtools-sub001/search"
)

var baseMarkers = map[byte]prg.Marker{'A': 1, 'C': 2, 'G': 3, 'T': 4}

func toMarkers(t *testing.T, s string) []prg.Marker {
	t.Helper()
	out := make([]prg.Marker, len(s))
	for i := 0; i < len(s); i++ {
		m, ok := baseMarkers[s[i]]
		require.True(t, ok, "not a nucleotide: %q", s[i])
		out[i] = m
	}
	return out
}

func buildEngine(t *testing.T, prgText string) (*search.Engine, *prg.String) {
	t.Helper()
	ps, err := prg.ParseText(prgText)
	require.NoError(t, err)
	idx, err := fmindex.Build(ps.Markers())
	require.NoError(t, err)
	masks := fmindex.BuildPRGMasks(ps)
	return search.New(idx, masks), ps
}

func combinedPath(s search.SearchState) []prg.VariantLocus {
	return append(append([]prg.VariantLocus{}, s.Traversed...), s.Traversing...)
}

// TestSingleSiteUnresolvedAlleleAtReadEnd hand-traces "A[A,C]T" / read "CT":
// the read matches allele 2's 'C' directly followed by the trailing 'T', and
// ends mid-site (never exits backward past the site-open marker), so the
// allele is only known once §4.F.6 resolves it from the interval directly.
func TestSingleSiteUnresolvedAlleleAtReadEnd(t *testing.T) {
	eng, _ := buildEngine(t, "A[A,C]T")
	states, err := eng.Search(toMarkers(t, "CT"))
	require.NoError(t, err)
	require.Len(t, states, 1)

	resolved := eng.ResolveUnknownAlleles(states)
	require.Len(t, resolved, 1)
	assert.Equal(t, []prg.VariantLocus{{Site: 5, Allele: 2}}, combinedPath(resolved[0]))
	assert.Equal(t, 1, resolved[0].Interval.Size())
}

// TestSingleSiteBothBoundariesCrossed hand-traces "A[A,C]T" / read "AAT".
// The read's trailing "AT" first crosses the site's closing/separator
// marker backward (entering the site, allele unknown, pushed onto
// traversing), then its leading "A" crosses the site-open marker backward
// (the site's odd-exit convention: allele 1), which only fills in the
// existing traversing entry's allele — a site entered via the even-marker
// "entering" branch stays on traversing for the rest of the search, even
// once both of its boundaries have been crossed.
func TestSingleSiteBothBoundariesCrossed(t *testing.T) {
	eng, _ := buildEngine(t, "A[A,C]T")
	states, err := eng.Search(toMarkers(t, "AAT"))
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Empty(t, states[0].Traversed)
	assert.Equal(t, []prg.VariantLocus{{Site: 5, Allele: 1}}, states[0].Traversing)
}

func TestNoSitesMatchesLikeOrdinaryBackwardSearch(t *testing.T) {
	eng, _ := buildEngine(t, "ACGTACGT")
	states, err := eng.Search(toMarkers(t, "CGT"))
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, 2, states[0].Interval.Size()) // "CGT" occurs at text offsets 1 and 5
}

func TestUnmappableReadEmptiesStateSet(t *testing.T) {
	eng, _ := buildEngine(t, "ACGTACGT")
	states, err := eng.Search(toMarkers(t, "GGGG"))
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestSplitEncapsulatedOutsideSite(t *testing.T) {
	eng, _ := buildEngine(t, "ACGTACGT")
	states, err := eng.Search(toMarkers(t, "A"))
	require.NoError(t, err)
	require.Len(t, states, 1)

	split := eng.SplitEncapsulated(states[0])
	// "A" occurs at offsets 0 and 4, both outside any site: one singleton
	// SearchState per occurrence, per §4.F.5's "outside any site" branch.
	assert.Len(t, split, 2)
	for _, s := range split {
		assert.Equal(t, 1, s.Interval.Size())
		assert.Empty(t, s.Traversed)
	}
}

// TestDuplicateSiteGuardRaisesInternalInvariant seeds a state that already
// claims site 5 as traversed, then runs it over the full interval (which
// borders site 5's own open marker): the odd-marker jump tries to record
// site 5 again and must be rejected as an invariant violation (§4.F.7).
func TestDuplicateSiteGuardRaisesInternalInvariant(t *testing.T) {
	eng, _ := buildEngine(t, "A[A,C]T")
	s := search.SearchState{
		Interval:  eng.FullInterval(),
		Traversed: []prg.VariantLocus{{Site: 5, Allele: 1}},
	}
	_, err := eng.ProcessReadChar([]search.SearchState{s}, 4)
	require.Error(t, err)
	assert.True(t, gramerr.Is(err, gramerr.InternalInvariant))
}
