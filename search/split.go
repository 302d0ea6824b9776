package search

import "github.com/iqbal-lab-org/gramtools-sub001/prg"

// SplitEncapsulated implements §4.F.5: once a read has been searched in full
// with no site ever crossed (both path slices empty), the final SA interval
// can still sit entirely inside one or more alleles. It is split one
// SearchState per maximal run of SA indices sharing the same (site, allele);
// positions outside any site get one singleton SearchState each, since they
// aren't an equivalence class the way a shared allele position is.
//
// States that already carry a path (some site was crossed while scanning the
// read) are returned unchanged: splitting only applies to a read that never
// crossed a boundary.
func (e *Engine) SplitEncapsulated(s SearchState) []SearchState {
	if len(s.Traversed) != 0 || len(s.Traversing) != 0 {
		return []SearchState{s}
	}
	if s.Interval.Empty() {
		return nil
	}

	var out []SearchState
	i := s.Interval.Lo
	for i <= s.Interval.Hi {
		pos := e.idx.SA(i)
		site := e.masks.SiteAt(pos)
		if site == 0 {
			out = append(out, SearchState{Interval: SAInterval{Lo: i, Hi: i}})
			i++
			continue
		}
		allele := e.masks.AlleleAt(pos)
		j := i
		for j+1 <= s.Interval.Hi {
			nextPos := e.idx.SA(j + 1)
			if e.masks.SiteAt(nextPos) != site || e.masks.AlleleAt(nextPos) != allele {
				break
			}
			j++
		}
		out = append(out, SearchState{
			Interval:  SAInterval{Lo: i, Hi: j},
			Traversed: []prg.VariantLocus{{Site: site, Allele: allele}},
		})
		i = j + 1
	}
	return out
}

// ResolveUnknownAlleles implements §4.F.6: for any state whose front
// (most-recently-entered) Traversing locus is still AlleleUnknown, split it
// by the allele_mask value at each SA position in its interval, replacing
// AlleleUnknown with the resolved allele on each split's copy. Apart from a
// later marker crossing during the search (updateOrInsertLocus), this is the
// only place an unknown allele may be set after entry. States without an
// unresolved front locus pass through unchanged.
func (e *Engine) ResolveUnknownAlleles(states []SearchState) []SearchState {
	var out []SearchState
	for _, s := range states {
		if len(s.Traversing) == 0 || s.Traversing[0].Allele != prg.AlleleUnknown {
			out = append(out, s)
			continue
		}
		if s.Interval.Empty() {
			continue
		}
		i := s.Interval.Lo
		for i <= s.Interval.Hi {
			pos := e.idx.SA(i)
			allele := e.masks.AlleleAt(pos)
			j := i
			for j+1 <= s.Interval.Hi {
				nextPos := e.idx.SA(j + 1)
				if e.masks.AlleleAt(nextPos) != allele {
					break
				}
				j++
			}
			ns := s.clone()
			ns.Interval = SAInterval{Lo: i, Hi: j}
			ns.Traversing[0].Allele = allele
			out = append(out, ns)
			i = j + 1
		}
	}
	return out
}
