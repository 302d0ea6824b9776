package prg

import (
	"strings"

	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
)

// String is the linearised PRG: a marker vector plus the byte-offset map
// from each site's allele marker to the position where that site's last
// allele ends (its terminator).
//
// Older PRG producers close a site by re-emitting its odd (site) marker
// rather than the even allele marker; FromMarkers rewrites any such
// occurrence to the even form in place and records OddSiteEndFound. This
// repo treats the even-marker convention as canonical: decoding always
// produces, and encoding always emits, even terminators, so normalisation
// is a one-way migration applied on load and is idempotent on an
// already-canonical vector.
type String struct {
	markers         []Marker
	endPositions    map[Marker]int // allele (even) marker -> index of its last occurrence
	OddSiteEndFound bool
}

// Markers returns the underlying marker vector. Callers must not retain a
// reference across a call that mutates the String.
func (s *String) Markers() []Marker { return s.markers }

// Len returns the number of markers (including nucleotides) in the string.
func (s *String) Len() int { return len(s.markers) }

// EndPositions returns, for each site's allele marker, the index of that
// site's terminating occurrence.
func (s *String) EndPositions() map[Marker]int { return s.endPositions }

// FromMarkers builds a String from an in-memory marker vector, discovering
// site boundaries and normalising odd site-end markers to even ones.
func FromMarkers(v []Marker) (*String, error) {
	markers := make([]Marker, len(v))
	copy(markers, v)

	seenOdd := map[Marker]int{}
	endPositions := map[Marker]int{}
	oddSiteEndFound := false

	for i, m := range markers {
		if m <= 4 {
			continue
		}
		if IsSiteMarker(m) {
			seenOdd[m]++
			switch seenOdd[m] {
			case 1:
				// site opened; its terminator is discovered later via m+1.
			case 2:
				// legacy odd-end convention: this occurrence closes the site.
				markers[i] = m + 1
				oddSiteEndFound = true
				endPositions[m+1] = i
			default:
				return nil, gramerr.New(gramerr.InvalidPRGInput, "", "duplicate site open for marker")
			}
		} else {
			endPositions[m] = i
		}
	}

	for m := range seenOdd {
		if _, ok := endPositions[m+1]; !ok {
			return nil, gramerr.New(gramerr.InvalidPRGInput, "", "dangling open site at EOF")
		}
	}

	return &String{markers: markers, endPositions: endPositions, OddSiteEndFound: oddSiteEndFound}, nil
}

// ParseText encodes a linearised PRG text into a String. '[' opens a site,
// ']' closes it, ',' separates alleles, and {A,C,G,T} (any case) are
// nucleotides. Site IDs are assigned in the order their '[' is encountered
// (5, 7, 9, ...); round-tripping through text therefore does not preserve
// the original numbering of a marker vector that was built some other way.
func ParseText(text string) (*String, error) {
	markers := make([]Marker, 0, len(text))
	var openSites []Marker
	nextSiteID := firstSiteID

	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '[':
			site := nextSiteID
			nextSiteID += 2
			openSites = append(openSites, site)
			markers = append(markers, site)
		case ']':
			if len(openSites) == 0 {
				return nil, gramerr.New(gramerr.InvalidPRGInput, "", "unmatched ']' in PRG text")
			}
			site := openSites[len(openSites)-1]
			openSites = openSites[:len(openSites)-1]
			markers = append(markers, site+1)
		case ',':
			if len(openSites) == 0 {
				return nil, gramerr.New(gramerr.InvalidPRGInput, "", "',' outside of a site in PRG text")
			}
			site := openSites[len(openSites)-1]
			markers = append(markers, site+1)
		default:
			b, err := baseToMarker(c)
			if err != nil {
				return nil, err
			}
			markers = append(markers, b)
		}
	}
	if len(openSites) != 0 {
		return nil, gramerr.New(gramerr.InvalidPRGInput, "", "dangling open site in PRG text")
	}
	return FromMarkers(markers)
}

// Text decodes the marker vector back to its bracketed representation.
// Because site numbering is reassigned on re-encoding, ParseText(s.Text())
// reproduces s's marker vector only when s already numbers its sites in the
// order their '[' appears.
func (s *String) Text() string {
	lastEven := map[Marker]int{}
	for i, m := range s.markers {
		if m >= firstSiteID && m%2 == 0 {
			lastEven[m] = i
		}
	}

	var sb strings.Builder
	for i, m := range s.markers {
		switch {
		case m >= 1 && m <= 4:
			sb.WriteByte(markerToBase(m))
		case m%2 == 1:
			sb.WriteByte('[')
		default:
			if i == lastEven[m] {
				sb.WriteByte(']')
			} else {
				sb.WriteByte(',')
			}
		}
	}
	return sb.String()
}
