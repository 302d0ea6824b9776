// Package search implements the vBWT backward-search engine: one step of
// ordinary FM-index backward extension (§4.F.1 of the design notes) plus the
// marker-driven state transitions that let a search cross site boundaries
// without consuming a read character.
package search

import (
	"github.com/iqbal-lab-org/gramtools-sub001/fmindex"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
)

// SAInterval is an alias for the FM-index's suffix-array interval type, so
// callers don't need to import fmindex just to hold a SearchState.
type SAInterval = fmindex.SAInterval

// SearchState is one branch of an in-progress backward search: a suffix-array
// interval plus the variant-site path that branch has taken so far.
//
// Traversing holds sites the search entered backward through their closing
// marker, ordered most-recently-entered first; such a site stays here even
// after the search crosses its opening marker, which only fills in its
// allele. Traversed holds sites first met at an allele boundary or at their
// opening marker, whose allele was known when recorded. A Traversing
// entry's Allele is AlleleUnknown
// until either a later marker crossing resolves it (§4.F.3) or, at the end of
// the read, ResolveUnknownAlleles does (§4.F.6) — the only other place an
// unknown allele may be set.
type SearchState struct {
	Interval   SAInterval
	Traversed  []prg.VariantLocus
	Traversing []prg.VariantLocus
}

func cloneLoci(v []prg.VariantLocus) []prg.VariantLocus {
	if len(v) == 0 {
		return nil
	}
	out := make([]prg.VariantLocus, len(v))
	copy(out, v)
	return out
}

func (s SearchState) clone() SearchState {
	return SearchState{
		Interval:   s.Interval,
		Traversed:  cloneLoci(s.Traversed),
		Traversing: cloneLoci(s.Traversing),
	}
}

// hasSite reports whether site already appears anywhere in the combined path.
func (s SearchState) hasSite(site prg.Marker) bool {
	for _, l := range s.Traversed {
		if l.Site == site {
			return true
		}
	}
	for _, l := range s.Traversing {
		if l.Site == site {
			return true
		}
	}
	return false
}
