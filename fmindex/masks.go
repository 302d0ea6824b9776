package fmindex

import (
	"github.com/hillbig/rsdic"

	"github.com/iqbal-lab-org/gramtools-sub001/prg"
)

// PRGMasks annotates each position of a PRG marker vector with the site
// and allele it falls inside (0, 0 outside any site), plus a rank/select
// bit mask of variant-marker positions.
type PRGMasks struct {
	sites   []prg.Marker
	alleles []prg.AlleleID
	markers *rsdic.RSDic
}

// BuildPRGMasks derives the three PRG-string masks from a single
// left-to-right scan of ps, using its end-position map to tell an
// allele-separator occurrence of a marker from its site-closing one.
func BuildPRGMasks(ps *prg.String) *PRGMasks {
	markerVec := ps.Markers()
	ends := ps.EndPositions()
	n := len(markerVec)

	sites := make([]prg.Marker, n)
	alleles := make([]prg.AlleleID, n)
	markerBits := rsdic.New()

	type frame struct {
		site   prg.Marker
		allele prg.AlleleID
	}
	var stack []*frame

	for i, m := range markerVec {
		switch {
		case m >= 1 && m <= 4:
			markerBits.PushBack(false)
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				sites[i] = top.site
				alleles[i] = top.allele
			}
		case prg.IsSiteMarker(m):
			markerBits.PushBack(true)
			stack = append(stack, &frame{site: m, allele: prg.FirstAllele + 1})
		default:
			markerBits.PushBack(true)
			top := stack[len(stack)-1]
			if i == ends[m] {
				stack = stack[:len(stack)-1]
			} else {
				top.allele++
			}
		}
	}

	return &PRGMasks{sites: sites, alleles: alleles, markers: markerBits}
}

// SiteAt returns the enclosing site ID at PRG-string position j, or 0.
func (m *PRGMasks) SiteAt(j int) prg.Marker { return m.sites[j] }

// AlleleAt returns the 1-based allele ID within the enclosing site at
// position j, or 0.
func (m *PRGMasks) AlleleAt(j int) prg.AlleleID { return m.alleles[j] }

// IsMarkerAt reports whether position j in the PRG string is a variant
// marker.
func (m *PRGMasks) IsMarkerAt(j int) bool { return m.markers.Bit(uint64(j)) }

// MarkerRank returns the number of variant-marker positions among
// PRG-string positions [0, j).
func (m *PRGMasks) MarkerRank(j int) int { return int(m.markers.Rank(uint64(j), true)) }

// MarkerSelect returns the PRG-string position of the rank-th (0-based)
// variant marker.
func (m *PRGMasks) MarkerSelect(rank int) int { return int(m.markers.Select(uint64(rank), true)) }
