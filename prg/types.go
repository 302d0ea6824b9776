// Package prg implements the linearised Population Reference Graph (PRG)
// string: the marker-annotated nucleotide sequence that everything else in
// this module (coverage graph, FM-index, vBWT search) is built on top of.
package prg

import "github.com/iqbal-lab-org/gramtools-sub001/gramerr"

// Marker is a PRG-string symbol: 1..4 for a nucleotide, >=5 for a variant
// marker. Odd markers (5, 7, 9, ...) open/close a site; a site's allele
// marker is always site_marker + 1.
type Marker uint32

const (
	baseA Marker = 1
	baseC Marker = 2
	baseG Marker = 3
	baseT Marker = 4

	// firstSiteID is the smallest legal site marker. Markers 1..4 are
	// reserved for nucleotides, so site numbering starts at 5.
	firstSiteID Marker = 5
)

// AlleleID identifies an allele within a site. FirstAllele is the allele
// a search is in before any branch has been taken; AlleleUnknown means a
// site has been entered backward but the specific allele hasn't been
// resolved yet (see package search).
type AlleleID int32

const (
	FirstAllele   AlleleID = 0
	AlleleUnknown AlleleID = -1
)

// VariantLocus is a (site, allele) pair identifying a position in the PRG's
// variation structure.
type VariantLocus struct {
	Site   Marker
	Allele AlleleID
}

// IsSiteMarker reports whether m is a site (odd, >=5) marker.
func IsSiteMarker(m Marker) bool {
	if m < firstSiteID {
		panic("marker is not a variant marker (must be >= 5)")
	}
	return m%2 == 1
}

// IsAlleleMarker reports whether m is an allele (even, >=6) marker.
func IsAlleleMarker(m Marker) bool {
	return !IsSiteMarker(m)
}

// SiteIndex converts a site marker to a 0-based index: 5 -> 0, 7 -> 1, ...
func SiteIndex(site Marker) int {
	if !IsSiteMarker(site) {
		panic("marker is not a site marker")
	}
	return int((site - firstSiteID) / 2)
}

// IndexToSite is the inverse of SiteIndex.
func IndexToSite(idx int) Marker {
	return Marker(idx)*2 + firstSiteID
}

func baseToMarker(b byte) (Marker, error) {
	switch b {
	case 'A', 'a':
		return baseA, nil
	case 'C', 'c':
		return baseC, nil
	case 'G', 'g':
		return baseG, nil
	case 'T', 't':
		return baseT, nil
	default:
		return 0, gramerr.New(gramerr.InvalidPRGInput, "", string(b)+" is not a nucleotide")
	}
}

func markerToBase(m Marker) byte {
	switch m {
	case baseA:
		return 'A'
	case baseC:
		return 'C'
	case baseG:
		return 'G'
	case baseT:
		return 'T'
	default:
		panic("marker is not a nucleotide")
	}
}
