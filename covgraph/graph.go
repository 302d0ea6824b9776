// Package covgraph builds the coverage graph: a DAG of sequence nodes
// derived from a linearised PRG string, used for per-allele coverage
// recording and downstream genotyping.
package covgraph

import (
	"sync/atomic"

	"github.com/grailbio/base/log"

	"github.com/iqbal-lab-org/gramtools-sub001/prg"
)

// Node is one sequence segment of the graph: a run of nucleotides bounded
// by variant markers (or the ends of the PRG). Site and Allele are both 0
// outside any bubble. Coverage points at the shared, atomically-updated
// counter for this node's (Site, Allele) locus (§5's "per-site coverage
// counters"); it is nil outside any bubble. A site interrupted by a nested
// bubble resumes as a new Node sharing the *same* Coverage pointer, so a
// locus's count stays correct across the fragmentation.
type Node struct {
	Sequence   []byte
	Site       prg.Marker
	Allele     prg.AlleleID
	SeqPos     int
	Coverage   *uint32
	Boundary   bool
	Successors []*Node
}

func (n *Node) hasCoverage() bool { return n.Site != 0 && n.Allele != 0 }

// newNode creates a Node for (site, allele), wiring its Coverage pointer to
// the Graph's shared per-locus counter when site/allele place it inside a
// bubble.
func (g *Graph) newNode(site prg.Marker, allele prg.AlleleID, seqPos int) *Node {
	n := &Node{Site: site, Allele: allele, SeqPos: seqPos}
	if n.hasCoverage() {
		n.Coverage = g.counterFor(prg.VariantLocus{Site: site, Allele: allele})
	}
	return n
}

// counterFor returns the shared counter for loc, creating it on first use.
func (g *Graph) counterFor(loc prg.VariantLocus) *uint32 {
	if c, ok := g.LocusCoverage[loc]; ok {
		return c
	}
	c := new(uint32)
	g.LocusCoverage[loc] = c
	return c
}

// RecordLocus atomically increments the coverage counter for loc. A locus
// that was never built into the graph (a programmer error, not a read-data
// error) is silently ignored.
func (g *Graph) RecordLocus(loc prg.VariantLocus) {
	if c, ok := g.LocusCoverage[loc]; ok {
		atomic.AddUint32(c, 1)
	}
}

// LocusCount reads the current coverage count for loc.
func (g *Graph) LocusCount(loc prg.VariantLocus) uint32 {
	if c, ok := g.LocusCoverage[loc]; ok {
		return atomic.LoadUint32(c)
	}
	return 0
}

// Bubble is a site's local DAG region: a unique entry and exit node.
type Bubble struct {
	Site  prg.Marker
	Entry *Node
	Exit  *Node
}

// RandomAccessEntry lets callers map a PRG-string offset back to the node
// that holds it and the offset within that node's Sequence.
type RandomAccessEntry struct {
	Node   *Node
	Offset int
}

// TargetedMarker is one entry of a Graph's target map: a marker directly
// reachable, in the backward-search sense, from the key marker.
// DirectDeletionAllele is prg.AlleleUnknown unless the jump crosses an
// empty (direct-deletion) allele, in which case it names that allele.
type TargetedMarker struct {
	Marker               prg.Marker
	DirectDeletionAllele prg.AlleleID
}

// Graph is the coverage graph built from a prg.String.
type Graph struct {
	Root *Node

	// Bubbles is ordered with the greatest Entry.SeqPos first: innermost,
	// latest-encountered bubbles sort first, which is the order genotyping
	// should visit them in.
	Bubbles []Bubble

	// ParentMap locates, for every site nested inside another, the
	// (parent site, parent allele) pair it sits inside.
	ParentMap map[prg.Marker]prg.VariantLocus

	RandomAccess []RandomAccessEntry

	// TargetMap records, per variant marker, the markers it jumps to in
	// the backward-search sense: a site (odd) marker targets its own
	// allele/terminator marker, an allele (even) marker targets its
	// site's entry marker.
	TargetMap map[prg.Marker][]TargetedMarker

	// Nested is true iff any site contains another.
	Nested bool

	// LocusCoverage holds the shared, atomically-updated coverage counter
	// for every (site, allele) the graph contains.
	LocusCoverage map[prg.VariantLocus]*uint32

	siteEntry map[prg.Marker]*Node
	siteExit  map[prg.Marker]*Node
}

// ChildMap is the inverse of ParentMap: for a given (site, allele),
// the child site IDs nested directly inside that allele. Derived on
// demand, not stored.
func (g *Graph) ChildMap() map[prg.VariantLocus][]prg.Marker {
	out := make(map[prg.VariantLocus][]prg.Marker)
	for child, parent := range g.ParentMap {
		out[parent] = append(out[parent], child)
	}
	return out
}

type openSite struct {
	site    prg.Marker
	entry   *Node
	exit    *Node
	allele  prg.AlleleID
	parent  prg.VariantLocus
	hasDeletion   bool
	deletedAllele prg.AlleleID
	// alleleHasContent tracks, for the allele currently open on this site,
	// whether it has accumulated any nucleotide or nested bubble. Reset
	// each time a new allele begins; an allele that reaches its closing
	// marker with this still false is a direct deletion.
	alleleHasContent bool
}

// Build constructs the coverage graph from a PRG string's marker vector in
// a single left-to-right pass.
func Build(ps *prg.String) (*Graph, error) {
	markers := ps.Markers()
	ends := ps.EndPositions()

	g := &Graph{
		ParentMap:     make(map[prg.Marker]prg.VariantLocus),
		TargetMap:     make(map[prg.Marker][]TargetedMarker),
		LocusCoverage: make(map[prg.VariantLocus]*uint32),
		siteEntry:     make(map[prg.Marker]*Node),
		siteExit:      make(map[prg.Marker]*Node),
	}

	var stack []*openSite
	var backWire *Node
	curNode := g.newNode(0, 0, 0)
	g.Root = curNode
	curPos := 0

	randomAccess := make([]RandomAccessEntry, len(markers))

	wireLinear := func(next *Node) {
		if backWire != nil {
			backWire.Successors = append(backWire.Successors, curNode)
		}
		curNode.Successors = append(curNode.Successors, next)
	}

	for i, m := range markers {
		switch {
		case m >= 1 && m <= 4:
			curNode.Sequence = append(curNode.Sequence, markerBaseByte(m))
			randomAccess[i] = RandomAccessEntry{Node: curNode, Offset: len(curNode.Sequence) - 1}
			curPos++
			if len(stack) > 0 {
				stack[len(stack)-1].alleleHasContent = true
			}

		case prg.IsSiteMarker(m):
			if len(stack) > 0 {
				g.Nested = true
				// Opening a child bubble counts as content for the
				// enclosing allele even if it carries no bases of its own.
				stack[len(stack)-1].alleleHasContent = true
			}
			entry := &Node{Boundary: true, SeqPos: curPos}
			exit := &Node{Boundary: true}
			wireLinear(entry)

			var parentLocus prg.VariantLocus
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				parentLocus = prg.VariantLocus{Site: top.site, Allele: top.allele}
			}
			g.ParentMap[m] = parentLocus
			stack = append(stack, &openSite{
				site: m, entry: entry, exit: exit, allele: prg.FirstAllele + 1,
				parent: parentLocus, deletedAllele: prg.AlleleUnknown,
			})
			g.siteEntry[m] = entry
			g.Bubbles = append(g.Bubbles, Bubble{Site: m, Entry: entry, Exit: exit})

			backWire = entry
			curNode = g.newNode(m, prg.FirstAllele+1, curPos)
			entry.Successors = append(entry.Successors, curNode)
			randomAccess[i] = RandomAccessEntry{Node: entry, Offset: 0}

		default: // even allele marker, m == top.site+1
			top := stack[len(stack)-1]
			if !top.alleleHasContent {
				top.hasDeletion = true
				top.deletedAllele = top.allele
			}
			curNode.Successors = append(curNode.Successors, top.exit)

			if i == ends[m] {
				// Final occurrence: site exit.
				stack = stack[:len(stack)-1]
				top.exit.SeqPos = curPos
				g.siteExit[top.site] = top.exit
				g.TargetMap[top.site] = append(g.TargetMap[top.site], TargetedMarker{
					Marker: m, DirectDeletionAllele: prg.AlleleUnknown,
				})
				deletionAllele := prg.AlleleUnknown
				if top.hasDeletion {
					deletionAllele = top.deletedAllele
				}
				g.TargetMap[m] = append(g.TargetMap[m], TargetedMarker{
					Marker: top.site, DirectDeletionAllele: deletionAllele,
				})
				randomAccess[i] = RandomAccessEntry{Node: top.exit, Offset: 0}

				backWire = top.exit
				if len(stack) > 0 {
					enclosing := stack[len(stack)-1]
					curNode = g.newNode(enclosing.site, enclosing.allele, curPos)
				} else {
					curNode = g.newNode(0, 0, curPos)
				}
			} else {
				top.allele++
				top.alleleHasContent = false
				curNode = g.newNode(top.site, top.allele, curPos)
				top.entry.Successors = append(top.entry.Successors, curNode)
				randomAccess[i] = RandomAccessEntry{Node: top.entry, Offset: 0}
			}
		}
	}

	if backWire != nil {
		backWire.Successors = append(backWire.Successors, curNode)
	}
	g.RandomAccess = randomAccess

	// Order bubbles innermost/latest-first: greater entry SeqPos first.
	for i := 1; i < len(g.Bubbles); i++ {
		for j := i; j > 0 && g.Bubbles[j-1].Entry.SeqPos < g.Bubbles[j].Entry.SeqPos; j-- {
			g.Bubbles[j-1], g.Bubbles[j] = g.Bubbles[j], g.Bubbles[j-1]
		}
	}

	return g, nil
}

func markerBaseByte(m prg.Marker) byte {
	switch m {
	case 1:
		return 'A'
	case 2:
		return 'C'
	case 3:
		return 'G'
	case 4:
		return 'T'
	default:
		log.Panicf("marker %d is not a nucleotide", m)
		return 0
	}
}
