package interval

import "math"

// This file implements a merged interval-union over PRG-string offsets,
// represented as a sorted []PosType of interval endpoints, plus a scanner
// that iterates the union's positions in order.
//
// kmer.SitesOverlapping builds one [entry, exit+maxReadSize) span per
// bubble, sorts and merges the spans into such an endpoint list, and uses
// UnionScanner to walk the resulting positions without visiting any
// shared region twice. For example, given bubble spans
//   [5, 15)
//   [7, 17)
//   [20, 25)
// the merged union is [5, 17) U [20, 25), so the endpoint list is
// {5, 17, 20, 25}.
//
// UnionScanner is used as follows:
//   endpoints := []PosType{5, 17, 20, 25}
//   us := NewUnionScanner(endpoints)
//   var start, end PosType
//   for us.Scan(&start, &end, 22) {
//     for pos := start; pos < end; pos++ {
//       fmt.Printf("%d ", pos)
//     }
//   }
// prints "5 6 7 8 9 10 11 12 13 14 15 16 20 21 ". A later call with a
// higher limit picks up where the previous one left off.

// PosType represents a position along a PRG; kmer.SitesOverlapping passes
// covgraph.Node.SeqPos values (the number of nucleotides preceding a point
// in the marker vector). int32 is wide enough for any PRG this package is
// meant to index.
type PosType int32

// posTypeMax marks a scanner that has exhausted every interval.
const posTypeMax = math.MaxInt32

// UnionScanner iterates over an interval-union's positions in order.
// Invariant: pos is either contained in the current interval, or is
// posTypeMax once every interval has been consumed.
type UnionScanner struct {
	endpoints []PosType
	pos       PosType
	nextIdx   int
}

// NewUnionScanner returns a UnionScanner positioned at the union's first
// interval. endpoints must be sorted, as produced by merging and
// flattening a set of [lo, hi) spans.
func NewUnionScanner(endpoints []PosType) UnionScanner {
	us := UnionScanner{endpoints: endpoints, pos: posTypeMax}
	if len(endpoints) > 0 {
		us.pos = endpoints[0]
		us.nextIdx = 1
	}
	return us
}

// Pos returns the next position to be iterated over, or posTypeMax if
// none remain.
func (us *UnionScanner) Pos() PosType {
	return us.pos
}

// Scan reports the next contiguous run of in-union positions below
// limit, writing it to [*start, *end). It returns false once the union
// is exhausted up to limit; a later call with a higher limit resumes
// from where the previous call stopped.
func (us *UnionScanner) Scan(start *PosType, end *PosType, limit PosType) bool {
	if us.pos >= limit {
		return false
	}
	*start = us.pos
	intervalEnd := us.endpoints[us.nextIdx]
	if intervalEnd > limit {
		us.pos = limit
		*end = limit
		return true
	}
	*end = intervalEnd
	us.nextIdx++
	if us.nextIdx >= len(us.endpoints) {
		us.pos = posTypeMax
	} else {
		us.pos = us.endpoints[us.nextIdx]
		us.nextIdx++
	}
	return true
}
