package covgraph

import "github.com/grailbio/base/log"

// Validate enforces the structural invariants a correctly built graph must
// satisfy. Intended for test builds, not the hot path.
func (g *Graph) Validate() {
	visited := make(map[*Node]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		if n.hasCoverage() && n.Coverage == nil {
			log.Panicf("node at site %d allele %d is missing its coverage counter", n.Site, n.Allele)
		}
		if !n.hasCoverage() && n.Coverage != nil {
			log.Panicf("node outside a bubble (site %d allele %d) has a coverage counter", n.Site, n.Allele)
		}
		for _, s := range n.Successors {
			walk(s)
		}
	}
	walk(g.Root)

	for _, b := range g.Bubbles {
		if len(b.Entry.Successors) < 1 {
			log.Panicf("bubble entry for site %d has no outgoing edges", b.Site)
		}
	}
}
