// Package fmindex builds the backward-search substrate over an
// integer-encoded PRG: a suffix array, its BWT, per-base rank-supporting
// bit masks, and the C array mapping a symbol to the first SA index of a
// suffix beginning with it.
package fmindex

import (
	"sort"

	"github.com/hillbig/rsdic"
	"golang.org/x/exp/slices"

	"github.com/iqbal-lab-org/gramtools-sub001/prg"
)

// SAInterval is a half-closed [Lo, Hi] range of suffix-array indices
// matching the current backward-search pattern. Lo > Hi denotes the
// empty interval.
type SAInterval struct {
	Lo, Hi int
}

// Empty reports whether the interval matches nothing.
func (iv SAInterval) Empty() bool { return iv.Lo > iv.Hi }

// Size returns the number of SA positions the interval covers.
func (iv SAInterval) Size() int {
	if iv.Empty() {
		return 0
	}
	return iv.Hi - iv.Lo + 1
}

// Index is the FM-index: suffix array, BWT, per-base rank masks and the
// marker-occurrence mask, plus the C array.
//
// Construction here sorts suffixes directly (O(n log n) suffix comparisons,
// each up to O(n) symbols long)
// rather than building a compressed suffix array with a wavelet tree; see
// the design notes for why no library in the available stack covers
// CSA-WT construction.
type Index struct {
	sa  []int
	bwt []prg.Marker

	cSorted []prg.Marker
	cCumul  []int

	baseMask   map[prg.Marker]*rsdic.RSDic
	markerMask *rsdic.RSDic
}

// Build constructs the FM-index over markers, appending an implicit
// terminator (0) that must not otherwise occur in markers.
func Build(markers []prg.Marker) (*Index, error) {
	n := len(markers)
	text := make([]prg.Marker, n+1)
	copy(text, markers)
	text[n] = 0

	sa := make([]int, n+1)
	for i := range sa {
		sa[i] = i
	}
	slices.SortFunc(sa, func(a, b int) int {
		return compareSuffixes(text, a, b)
	})

	bwt := make([]prg.Marker, n+1)
	for i, p := range sa {
		if p == 0 {
			bwt[i] = text[n]
		} else {
			bwt[i] = text[p-1]
		}
	}

	counts := map[prg.Marker]int{}
	for _, s := range text {
		counts[s]++
	}
	syms := make([]prg.Marker, 0, len(counts))
	for s := range counts {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	cumul := make([]int, len(syms)+1)
	for i, s := range syms {
		cumul[i+1] = cumul[i] + counts[s]
	}

	idx := &Index{
		sa:      sa,
		bwt:     bwt,
		cSorted: syms,
		cCumul:  cumul,
	}
	idx.buildMasks()
	return idx, nil
}

func compareSuffixes(text []prg.Marker, a, b int) int {
	n := len(text)
	for a < n && b < n {
		if text[a] != text[b] {
			if text[a] < text[b] {
				return -1
			}
			return 1
		}
		a++
		b++
	}
	switch {
	case a == n && b == n:
		return 0
	case a == n:
		return -1
	default:
		return 1
	}
}

func (idx *Index) buildMasks() {
	idx.baseMask = make(map[prg.Marker]*rsdic.RSDic, 4)
	for _, base := range []prg.Marker{1, 2, 3, 4} {
		bv := rsdic.New()
		for _, c := range idx.bwt {
			bv.PushBack(c == base)
		}
		idx.baseMask[base] = bv
	}
	markerBits := rsdic.New()
	for _, c := range idx.bwt {
		markerBits.PushBack(c >= 5)
	}
	idx.markerMask = markerBits
}

// Len is the number of suffixes, including the terminator.
func (idx *Index) Len() int { return len(idx.sa) }

// SA returns the text offset of the i-th suffix in sorted order.
func (idx *Index) SA(i int) int { return idx.sa[i] }

// BWT returns the BWT symbol at SA index i.
func (idx *Index) BWT(i int) prg.Marker { return idx.bwt[i] }

// C returns the number of suffixes whose first symbol is strictly less
// than sym: the first SA index at which an occurrence of sym could start.
func (idx *Index) C(sym prg.Marker) int {
	i := sort.Search(len(idx.cSorted), func(i int) bool { return idx.cSorted[i] >= sym })
	return idx.cCumul[i]
}

// BaseRank returns the number of occurrences of base among BWT[0:pos).
// base must be one of {1,2,3,4}.
func (idx *Index) BaseRank(pos int, base prg.Marker) int {
	return int(idx.baseMask[base].Rank(uint64(pos), true))
}

// IsMarker reports whether BWT[i] is a variant marker.
func (idx *Index) IsMarker(i int) bool {
	return idx.bwt[i] >= 5
}

// MarkerRank returns the number of variant-marker occurrences among
// BWT[0:pos).
func (idx *Index) MarkerRank(pos int) int {
	return int(idx.markerMask.Rank(uint64(pos), true))
}

// MarkerSelect returns the BWT position of the rank-th (0-based) variant
// marker occurrence.
func (idx *Index) MarkerSelect(rank int) int {
	return int(idx.markerMask.Select(uint64(rank), true))
}

// BackwardExtend applies one backward-search step (§4.F.1): narrows iv by
// prepending base. The returned interval is empty if base never occurs
// within iv.
func (idx *Index) BackwardExtend(iv SAInterval, base prg.Marker) SAInterval {
	rankLo := idx.BaseRank(iv.Lo, base)
	rankHi := idx.BaseRank(iv.Hi+1, base)
	if rankLo == rankHi {
		return SAInterval{Lo: 1, Hi: 0}
	}
	c := idx.C(base)
	return SAInterval{Lo: c + rankLo, Hi: c + rankHi - 1}
}

// FullInterval is the SA interval matching the empty pattern: every
// suffix, i.e. the whole index.
func (idx *Index) FullInterval() SAInterval {
	return SAInterval{Lo: 0, Hi: idx.Len() - 1}
}
