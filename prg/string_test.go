package prg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
)

func markers(vs ...uint32) []prg.Marker {
	out := make([]prg.Marker, len(vs))
	for i, v := range vs {
		out[i] = prg.Marker(v)
	}
	return out
}

func TestParseTextSimple(t *testing.T) {
	s, err := prg.ParseText("[A,C[A,T]]")
	require.NoError(t, err)
	assert.Equal(t, markers(5, 1, 6, 2, 7, 1, 8, 4, 8, 6), s.Markers())
}

func TestParseTextInvalidChar(t *testing.T) {
	_, err := prg.ParseText("5A5")
	require.Error(t, err)
	assert.True(t, gramerr.Is(err, gramerr.InvalidPRGInput))
}

func TestTextRoundTrip(t *testing.T) {
	s, err := prg.FromMarkers(markers(5, 1, 6, 2, 7, 1, 8, 4, 8, 6))
	require.NoError(t, err)
	assert.Equal(t, "[A,C[A,T]]", s.Text())
}

func TestParseTextEmptyAlleles(t *testing.T) {
	s, err := prg.ParseText("[AAA,,A[CCC,CC,C]]G")
	require.NoError(t, err)
	want := markers(5, 1, 1, 1, 6, 6, 1, 7, 2, 2, 2, 8, 2, 2, 8, 2, 8, 6, 3)
	assert.Equal(t, want, s.Markers())
}

func TestParseTextNested(t *testing.T) {
	s, err := prg.ParseText("[A,AA,A[A,C]A]C[A,C]")
	require.NoError(t, err)
	want := markers(5, 1, 6, 1, 1, 6, 1, 7, 1, 8, 2, 8, 1, 6, 2, 9, 1, 10, 2, 10)
	assert.Equal(t, want, s.Markers())
}

func TestTextReassignsSiteNumbering(t *testing.T) {
	// Site numbering is lost across int -> text -> int when the original
	// numbering doesn't already obey "sites entered first have smaller IDs".
	s, err := prg.FromMarkers(markers(7, 1, 8, 2, 5, 1, 6, 4, 6, 8))
	require.NoError(t, err)
	assert.Equal(t, "[A,C[A,T]]", s.Text())

	reencoded, err := prg.ParseText(s.Text())
	require.NoError(t, err)
	assert.Equal(t, markers(5, 1, 6, 2, 7, 1, 8, 4, 8, 6), reencoded.Markers())
}

func TestEndPositions(t *testing.T) {
	s, err := prg.FromMarkers(markers(5, 1, 6, 2, 7, 1, 8, 3, 8, 6))
	require.NoError(t, err)
	want := map[prg.Marker]int{6: 9, 8: 8}
	assert.Equal(t, want, s.EndPositions())
}

func TestOddSiteEndNormalised(t *testing.T) {
	// Legacy producers close a site by re-emitting its odd marker instead
	// of the even allele marker; FromMarkers rewrites it to the even form.
	s, err := prg.FromMarkers(markers(5, 1, 6, 2, 5))
	require.NoError(t, err)
	assert.True(t, s.OddSiteEndFound)
	assert.Equal(t, markers(5, 1, 6, 2, 6), s.Markers())
	assert.Equal(t, map[prg.Marker]int{6: 4}, s.EndPositions())

	// Normalisation is idempotent: re-running it on the now-canonical
	// vector doesn't flag it again.
	s2, err := prg.FromMarkers(s.Markers())
	require.NoError(t, err)
	assert.False(t, s2.OddSiteEndFound)
}

func TestDuplicateSiteOpenIsError(t *testing.T) {
	_, err := prg.FromMarkers(markers(5, 1, 6, 2, 5, 1, 6, 2, 5))
	require.Error(t, err)
	assert.True(t, gramerr.Is(err, gramerr.InvalidPRGInput))
}

func TestDanglingOpenSiteIsError(t *testing.T) {
	_, err := prg.FromMarkers(markers(5, 1, 2))
	require.Error(t, err)
	assert.True(t, gramerr.Is(err, gramerr.InvalidPRGInput))
}

func TestSiteIndexConversion(t *testing.T) {
	assert.Equal(t, 0, prg.SiteIndex(5))
	assert.Equal(t, 1, prg.SiteIndex(7))
	assert.Equal(t, prg.Marker(5), prg.IndexToSite(0))
	assert.Equal(t, prg.Marker(9), prg.IndexToSite(2))
}
