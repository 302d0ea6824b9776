package covgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iqbal-lab-org/gramtools-sub001/covgraph"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
)

func build(t *testing.T, text string) (*prg.String, *covgraph.Graph) {
	t.Helper()
	ps, err := prg.ParseText(text)
	require.NoError(t, err)
	g, err := covgraph.Build(ps)
	require.NoError(t, err)
	return ps, g
}

func TestFirstPathTwoSites(t *testing.T) {
	_, g := build(t, "A[A,C]T[GGG,G]C")
	assert.Equal(t, "AATGGGC", g.FirstPath())
}

func TestFirstPathNoSites(t *testing.T) {
	_, g := build(t, "ACGTACGT")
	assert.Equal(t, "ACGTACGT", g.FirstPath())
}

func TestBubbleCount(t *testing.T) {
	_, g := build(t, "A[A,C]T[GGG,G]C")
	require.Len(t, g.Bubbles, 2)
	assert.Equal(t, prg.Marker(5), g.Bubbles[1].Site)
	assert.Equal(t, prg.Marker(7), g.Bubbles[0].Site)
}

func TestBubbleOrderingInnermostFirst(t *testing.T) {
	_, g := build(t, "[AC,[C,G]]T")
	require.Len(t, g.Bubbles, 2)
	// The nested (child) site is entered later in the scan, so it has a
	// strictly greater SeqPos than the enclosing site's entry and sorts
	// first.
	assert.Greater(t, g.Bubbles[0].Entry.SeqPos, g.Bubbles[1].Entry.SeqPos)
	assert.Equal(t, prg.Marker(7), g.Bubbles[0].Site)
	assert.Equal(t, prg.Marker(5), g.Bubbles[1].Site)
}

func TestParentMap(t *testing.T) {
	ps, g := build(t, "[AC,[C,G]]T")
	childSite := ps.Markers()[4] // the '[' opening the nested site
	parent, ok := g.ParentMap[childSite]
	require.True(t, ok)
	assert.Equal(t, prg.Marker(5), parent.Site)
	assert.Equal(t, prg.AlleleID(2), parent.Allele)
}

func TestNestedFlag(t *testing.T) {
	_, flat := build(t, "A[A,C]T[GGG,G]C")
	assert.False(t, flat.Nested)

	_, nested := build(t, "[AC,[C,G]]T")
	assert.True(t, nested.Nested)
}

func TestDirectDeletionEmptyAllele(t *testing.T) {
	_, g := build(t, "[A,,G]")
	require.Len(t, g.Bubbles, 1)
	entry := g.Bubbles[0].Entry
	require.Len(t, entry.Successors, 3)
	assert.Equal(t, 0, len(entry.Successors[1].Sequence))
}

func TestRandomAccessLength(t *testing.T) {
	ps, g := build(t, "A[A,C]T")
	assert.Equal(t, ps.Len(), len(g.RandomAccess))
}

func TestValidateDoesNotPanic(t *testing.T) {
	_, g := build(t, "[AC,[C,G]]T")
	assert.NotPanics(t, func() { g.Validate() })
}
