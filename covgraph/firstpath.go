package covgraph

// FirstPath walks the graph always taking the first (index 0) outgoing
// edge, returning the concatenated nucleotide sequence. This is the
// reference-like path through the graph: for every site, it is that
// site's first allele.
func (g *Graph) FirstPath() string {
	var out []byte
	for n := g.Root; n != nil; {
		out = append(out, n.Sequence...)
		if len(n.Successors) == 0 {
			break
		}
		n = n.Successors[0]
	}
	return string(out)
}
