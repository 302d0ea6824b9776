package search

import (
	"fmt"

	"github.com/iqbal-lab-org/gramtools-sub001/fmindex"
	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
)

// Engine runs backward search over an FM-index plus its PRG-string masks.
type Engine struct {
	idx   *fmindex.Index
	masks *fmindex.PRGMasks
}

// New builds a search Engine over idx/masks. Both must come from the same
// PRG string.
func New(idx *fmindex.Index, masks *fmindex.PRGMasks) *Engine {
	return &Engine{idx: idx, masks: masks}
}

// FullInterval is the starting state for a fresh search: the whole index,
// no sites crossed yet.
func (e *Engine) FullInterval() SAInterval { return e.idx.FullInterval() }

// TextPos returns the PRG-string offset of the saIndex-th suffix in sorted
// order, letting callers outside this package (e.g. coverage recording)
// translate a resolved SearchState's interval back into graph positions.
func (e *Engine) TextPos(saIndex int) int { return e.idx.SA(saIndex) }

// markerHit is one left-marker occurrence found within a state's interval
// (§4.F.2): sa is the suffix-array index, marker the BWT symbol there.
type markerHit struct {
	sa     int
	marker prg.Marker
}

// leftMarkers scans a state's SA interval for BWT positions carrying a
// variant marker (§4.F.2).
func (e *Engine) leftMarkers(iv SAInterval) []markerHit {
	if iv.Empty() {
		return nil
	}
	var hits []markerHit
	for i := iv.Lo; i <= iv.Hi; i++ {
		if e.idx.IsMarker(i) {
			hits = append(hits, markerHit{sa: i, marker: e.idx.BWT(i)})
		}
	}
	return hits
}

// updateOrInsertLocus applies the path-update rule shared by both branches
// of §4.F.3: if site is already being traversed, set its allele; otherwise
// prepend a new (site, allele) locus to traversed. Raises InternalInvariant
// if site has already been fully crossed (duplicate site in a path, §4.F.7).
func updateOrInsertLocus(s SearchState, site prg.Marker, allele prg.AlleleID) (SearchState, error) {
	ns := s.clone()
	for i, l := range ns.Traversing {
		if l.Site == site {
			ns.Traversing[i].Allele = allele
			return ns, nil
		}
	}
	for _, l := range ns.Traversed {
		if l.Site == site {
			return ns, gramerr.New(gramerr.InternalInvariant, "", fmt.Sprintf("duplicate site %d in combined path", site))
		}
	}
	ns.Traversed = append([]prg.VariantLocus{{Site: site, Allele: allele}}, ns.Traversed...)
	return ns, nil
}

// enterSite prepends a new, unresolved Traversing locus for site, refusing
// to if the site already appears anywhere in the path (§4.F.7 duplicate-site
// guard).
func enterSite(s SearchState, site prg.Marker) (SearchState, error) {
	if s.hasSite(site) {
		return s, gramerr.New(gramerr.InternalInvariant, "", fmt.Sprintf("duplicate site %d in combined path", site))
	}
	ns := s.clone()
	ns.Traversing = append([]prg.VariantLocus{{Site: site, Allele: prg.AlleleUnknown}}, ns.Traversing...)
	return ns, nil
}

// jumpsForState enumerates the marker-driven branches of a single state
// (§4.F.2 + §4.F.3), not including the unchanged state itself.
func (e *Engine) jumpsForState(s SearchState) ([]SearchState, error) {
	var out []SearchState
	for _, hit := range e.leftMarkers(s.Interval) {
		textPos := e.idx.SA(hit.sa)
		m := hit.marker

		if prg.IsSiteMarker(m) {
			// Odd m: read is exiting a site backward. Allele 1 by convention;
			// exactly one BWT occurrence of an odd marker, so the interval
			// collapses to a singleton.
			ns, err := updateOrInsertLocus(s, m, prg.FirstAllele+1)
			if err != nil {
				return nil, err
			}
			c := e.idx.C(m)
			ns.Interval = SAInterval{Lo: c, Hi: c}
			out = append(out, ns)
			continue
		}

		// Even m: determine entry vs exit by whether the position just past
		// the marker is still inside the site it closes. The final text
		// position is the terminator, which lies outside every site.
		site := m - 1
		if textPos == e.idx.Len()-1 || e.masks.SiteAt(textPos) != site {
			// Entering a site backward: every BWT occurrence of m is an
			// equally valid jump target, so use the full C-array range.
			ns, err := enterSite(s, site)
			if err != nil {
				return nil, err
			}
			lo, hi := e.idx.C(m), e.idx.C(m+1)-1
			ns.Interval = SAInterval{Lo: lo, Hi: hi}
			out = append(out, ns)
		} else {
			// Exiting an allele inside a site backward: allele_mask resolves
			// which allele the read was traversing, and the search continues
			// from the site's opening marker, as for an odd marker.
			allele := e.masks.AlleleAt(textPos)
			ns, err := updateOrInsertLocus(s, site, allele)
			if err != nil {
				return nil, err
			}
			c := e.idx.C(site)
			ns.Interval = SAInterval{Lo: c, Hi: c}
			out = append(out, ns)
		}
	}
	return out, nil
}

// expandMarkerJumps enumerates the marker-driven branches of every state in
// states (§4.F.2/§4.F.3) and unions them with the unchanged states, exactly
// once per state — not a fixed point: the states a jump produces are not
// scanned again within the same step. Two markers with no base between them
// (one site's closing marker directly followed by the next site's opening
// marker, or a nested site's closing marker directly followed by its
// parent's) are therefore not crossed in one step, and a read whose bases
// are separated in the PRG by such a pair does not match across it.
func (e *Engine) expandMarkerJumps(states []SearchState) ([]SearchState, error) {
	all := make([]SearchState, len(states))
	copy(all, states)
	for _, s := range states {
		jumps, err := e.jumpsForState(s)
		if err != nil {
			return nil, err
		}
		for _, j := range jumps {
			if j.Interval.Empty() {
				continue
			}
			all = append(all, j)
		}
	}
	return all, nil
}

// ExtendByBase applies one backward-extension step (§4.F.1) to s, leaving
// its path untouched. The returned state's Interval is empty if base does
// not occur immediately before any of s's matches.
func (e *Engine) ExtendByBase(s SearchState, base prg.Marker) SearchState {
	return SearchState{
		Interval:   e.idx.BackwardExtend(s.Interval, base),
		Traversed:  s.Traversed,
		Traversing: s.Traversing,
	}
}

// ProcessReadChar runs one read-character step of the search (§4.F.4): first
// enumerates all marker-driven branches of states, unions them with the
// unchanged states, then backward-extends every resulting state by base,
// dropping any that go empty (§4.F.7).
func (e *Engine) ProcessReadChar(states []SearchState, base prg.Marker) ([]SearchState, error) {
	withJumps, err := e.expandMarkerJumps(states)
	if err != nil {
		return nil, err
	}
	var out []SearchState
	for _, s := range withJumps {
		ns := e.ExtendByBase(s, base)
		if !ns.Interval.Empty() {
			out = append(out, ns)
		}
	}
	return out, nil
}

// Search runs a full backward search of read (already marker-free, just
// nucleotide Markers 1..4) over the index, starting from the whole index and
// processing characters right to left.
func (e *Engine) Search(read []prg.Marker) ([]SearchState, error) {
	states := []SearchState{{Interval: e.FullInterval()}}
	for i := len(read) - 1; i >= 0; i-- {
		var err error
		states, err = e.ProcessReadChar(states, read[i])
		if err != nil {
			return nil, err
		}
		if len(states) == 0 {
			break
		}
	}
	return states, nil
}
