// Package kmer enumerates candidate kmers (component D), builds the
// precomputed backward-search cache over them (component E), and persists
// that cache to the four packed files the build/mapping split needs
// (component H).
package kmer

import (
	"sort"

	"github.com/iqbal-lab-org/gramtools-sub001/covgraph"
	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
	"github.com/iqbal-lab-org/gramtools-sub001/interval"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
)

var kmerBases = [4]byte{'A', 'C', 'G', 'T'}

// PrefixDiff describes how a kmer in sorted order differs from its
// predecessor: the shared-suffix length, plus the bases the index builder
// still needs to fold in to extend the cached backward search further left
// (§4.D/§4.E). NewPrefix holds those bases in *processing* order: the base
// adjacent to the shared suffix first, the kmer's very first base last —
// i.e. Kmer[:len(Kmer)-SharedLen] reversed, not read left to right.
type PrefixDiff struct {
	Kmer      string
	SharedLen int
	NewPrefix string
}

// AllKmers generates every nucleotide string of length k, sorted so that
// consecutive entries share the maximal suffix ("reverse-lex" order, §4.D.1):
// the comparison key is the kmer read right to left. This maximises shared
// state between consecutive kmers in the incremental index builder, since
// kmers are matched backward (right to left).
func AllKmers(k int) ([]string, error) {
	if k <= 0 {
		return nil, gramerr.New(gramerr.KmerSizeInvalid, "", "kmer size must be positive")
	}
	total := 1
	for i := 0; i < k; i++ {
		total *= 4
	}
	out := make([]string, total)
	buf := make([]byte, k)
	for n := 0; n < total; n++ {
		v := n
		for i := 0; i < k; i++ {
			buf[i] = kmerBases[v%4]
			v /= 4
		}
		out[n] = string(buf)
	}
	sort.Slice(out, func(i, j int) bool { return reversedLess(out[i], out[j]) })
	return out, nil
}

func reversedLess(a, b string) bool {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// PrefixDiffs computes, for each kmer in sorted order, the shared-suffix
// length with its predecessor and the new leftward prefix bases (§4.D,
// final paragraph): empty shared length (the whole kmer, reversed, as "new
// prefix") for the first entry.
func PrefixDiffs(sorted []string) []PrefixDiff {
	out := make([]PrefixDiff, len(sorted))
	var prev string
	for i, km := range sorted {
		shared := sharedSuffixLen(prev, km)
		out[i] = PrefixDiff{
			Kmer:      km,
			SharedLen: shared,
			NewPrefix: reverseString(km[:len(km)-shared]),
		}
		prev = km
	}
	return out
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

func sharedSuffixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

// SitesOverlapping enumerates kmers that touch a variant site, or lie
// within maxReadSize bases of a site's right boundary (§4.D.2): the region
// that can ever serve as a read's seed kmer while that read also overlaps
// variation. For each bubble, the window considered runs, in
// covgraph.Node.SeqPos coordinates, from the bubble's entry to maxReadSize
// positions past its exit; overlapping bubble windows are merged into one
// interval-union, walked with interval.UnionScanner, so shared regions
// aren't windowed twice.
//
// Within each merged window, every path through the graph (all allele
// combinations the window touches) is walked and a length-k rightward
// sliding window is used to harvest kmers, which are then deduplicated and
// sorted exactly as in AllKmers.
func SitesOverlapping(g *covgraph.Graph, k, maxReadSize int) ([]string, error) {
	if k <= 0 {
		return nil, gramerr.New(gramerr.KmerSizeInvalid, "", "kmer size must be positive")
	}
	if len(g.Bubbles) == 0 {
		return nil, nil
	}

	endpoints := bubbleWindowEndpoints(g, maxReadSize)
	seen := map[string]bool{}
	us := interval.NewUnionScanner(endpoints)
	var start, end interval.PosType
	for us.Scan(&start, &end, interval.PosType(len(g.RandomAccess))) {
		lo, hi := int(start), int(end)
		for _, path := range pathsInWindow(g, lo, hi) {
			for i := 0; i+k <= len(path); i++ {
				seen[path[i:i+k]] = true
			}
		}
	}

	out := make([]string, 0, len(seen))
	for km := range seen {
		out = append(out, km)
	}
	sort.Slice(out, func(i, j int) bool { return reversedLess(out[i], out[j]) })
	return out, nil
}

// bubbleWindowEndpoints builds the sorted, merged interval-union endpoints
// (in covgraph.Node.SeqPos coordinates: nucleotides preceding a point in the
// marker vector) covering every bubble's span extended maxReadSize
// positions past its exit.
func bubbleWindowEndpoints(g *covgraph.Graph, maxReadSize int) []interval.PosType {
	type span struct{ lo, hi interval.PosType }
	spans := make([]span, 0, len(g.Bubbles))
	for _, b := range g.Bubbles {
		lo := b.Entry.SeqPos
		hi := b.Exit.SeqPos + maxReadSize
		spans = append(spans, span{interval.PosType(lo), interval.PosType(hi)})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })

	var endpoints []interval.PosType
	for _, s := range spans {
		if n := len(endpoints); n > 0 && s.lo <= endpoints[n-1] {
			if s.hi > endpoints[n-1] {
				endpoints[n-1] = s.hi
			}
			continue
		}
		endpoints = append(endpoints, s.lo, s.hi)
	}
	return endpoints
}

// pathsInWindow returns, for the window [lo, hi) in covgraph.Node.SeqPos
// coordinates, every distinct nucleotide string obtained by walking the
// graph from the node covering lo through all allele branches until passing
// hi.
//
// lo is a nucleotide count, while g.RandomAccess is indexed by raw
// marker-vector position, so the walk starts at the first marker-vector
// position preceded by exactly lo nucleotides.
func pathsInWindow(g *covgraph.Graph, lo, hi int) []string {
	if lo < 0 {
		lo = 0
	}
	startIdx := -1
	for i, seen := 0, 0; i < len(g.RandomAccess) && startIdx < 0; i++ {
		if seen == lo {
			startIdx = i
		} else if !g.RandomAccess[i].Node.Boundary {
			seen++
		}
	}
	if startIdx < 0 {
		return nil
	}
	start := g.RandomAccess[startIdx].Node
	offset := g.RandomAccess[startIdx].Offset
	var paths []string
	walkPaths(start, offset, hi, "", &paths)
	return paths
}

func walkPaths(n *covgraph.Node, offset, hi int, acc string, out *[]string) {
	const maxPaths = 4096
	if len(*out) >= maxPaths {
		return
	}
	seq := n.Sequence
	if offset > 0 && offset <= len(seq) {
		seq = seq[offset:]
	}
	acc += string(seq)
	if n.SeqPos+len(n.Sequence) >= hi || len(n.Successors) == 0 {
		*out = append(*out, acc)
		return
	}
	for _, succ := range n.Successors {
		walkPaths(succ, 0, hi, acc, out)
	}
}

func markerFromNucleotide(c byte) prg.Marker {
	switch c {
	case 'A':
		return 1
	case 'C':
		return 2
	case 'G':
		return 3
	case 'T':
		return 4
	default:
		return 0
	}
}
