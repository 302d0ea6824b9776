package kmer

import (
	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
	"github.com/iqbal-lab-org/gramtools-sub001/search"
)

// Index maps a kmer's bytes to the SearchStates that back-search produced
// for it. An absent key means the kmer never occurs in the PRG; an empty
// list is never stored (§3's Kmer Index definition).
type Index struct {
	entries map[string][]search.SearchState
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{entries: map[string][]search.SearchState{}}
}

// Lookup returns the SearchStates cached for kmer, and whether it was found.
func (idx *Index) Lookup(kmer string) ([]search.SearchState, bool) {
	v, ok := idx.entries[kmer]
	return v, ok
}

// Len is the number of kmers with a non-empty cached state set.
func (idx *Index) Len() int { return len(idx.entries) }

// frame is one cached (states, base) pair in the incremental builder's
// per-kmer-position cache (§4.E).
type frame struct {
	states []search.SearchState
	base   byte
}

// Build runs the incremental index-building algorithm of §4.E over a sorted
// kmer sequence with its prefix diffs: a cache of per-position frames is
// truncated to the shared-suffix length and then extended, leftmost to
// rightmost within the diff, by one §4.F.4 step per base (marker-driven
// jumps, then backward extension by that base).
func Build(eng *search.Engine, diffs []PrefixDiff) (*Index, error) {
	idx := NewIndex()
	var cache []frame

	for _, d := range diffs {
		if d.SharedLen > len(cache) {
			return nil, gramerr.New(gramerr.InternalInvariant, "", "prefix diff shared length exceeds cache depth")
		}
		cache = cache[:d.SharedLen]

		for i := 0; i < len(d.NewPrefix); i++ {
			b := d.NewPrefix[i]
			m := markerFromNucleotide(b)
			if m == 0 {
				return nil, gramerr.New(gramerr.InvalidPRGInput, d.Kmer, "kmer contains a non-nucleotide byte")
			}

			var cur []search.SearchState
			if len(cache) == 0 {
				cur = []search.SearchState{{Interval: eng.FullInterval()}}
			} else {
				cur = cache[len(cache)-1].states
			}

			next, err := eng.ProcessReadChar(cur, m)
			if err != nil {
				return nil, err
			}
			cache = append(cache, frame{states: next, base: b})
		}

		if len(cache) == 0 {
			continue
		}
		top := cache[len(cache)-1].states
		if len(top) > 0 {
			idx.entries[d.Kmer] = top
		}
	}

	return idx, nil
}
