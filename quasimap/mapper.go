// Package quasimap implements the quasimapper (§4.G): seed a read's
// rightmost k bases against the kmer index, extend the match leftward one
// base at a time over the vBWT search engine, then record coverage for
// whichever mapping instance a seeded uniform draw selects (§5).
package quasimap

import (
	"math/rand"
	"sync/atomic"

	"github.com/grailbio/base/traverse"

	"github.com/iqbal-lab-org/gramtools-sub001/covgraph"
	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
	"github.com/iqbal-lab-org/gramtools-sub001/kmer"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
	"github.com/iqbal-lab-org/gramtools-sub001/search"
)

// BatchSize is the read-buffering default before a parallel mapping pass
// (§5: "B ≈ 5000").
const BatchSize = 5000

// Counters is the process-wide, atomically-updated tally of mapping
// outcomes (§5's "process-wide counters struct").
type Counters struct {
	TotalReads uint64
	Mapped     uint64
	Unmapped   uint64
}

func (c *Counters) recordTotal()    { atomic.AddUint64(&c.TotalReads, 1) }
func (c *Counters) recordMapped()   { atomic.AddUint64(&c.Mapped, 1) }
func (c *Counters) recordUnmapped() { atomic.AddUint64(&c.Unmapped, 1) }

// Snapshot loads each of the three counters atomically. The loads are
// independent, not one atomic group, matching the independent fetch-add
// updates each counter receives.
func (c *Counters) Snapshot() Counters {
	return Counters{
		TotalReads: atomic.LoadUint64(&c.TotalReads),
		Mapped:     atomic.LoadUint64(&c.Mapped),
		Unmapped:   atomic.LoadUint64(&c.Unmapped),
	}
}

var baseMarkers = map[byte]prg.Marker{'A': 1, 'C': 2, 'G': 3, 'T': 4}

func upperBase(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// Mapper quasimaps reads against a build's fixed, read-only artifacts: the
// search engine (FM-index + masks), the kmer index, and the coverage graph
// that recorded mappings feed.
type Mapper struct {
	Engine   *search.Engine
	Kmers    *kmer.Index
	Graph    *covgraph.Graph
	K        int
	Counters *Counters
}

// NewMapper builds a Mapper over already-built index artifacts.
func NewMapper(eng *search.Engine, kidx *kmer.Index, g *covgraph.Graph, k int) *Mapper {
	return &Mapper{Engine: eng, Kmers: kidx, Graph: g, K: k, Counters: &Counters{}}
}

func combinedLoci(s search.SearchState) []prg.VariantLocus {
	return append(append([]prg.VariantLocus{}, s.Traversed...), s.Traversing...)
}

// MapOne quasimaps a single read (§4.G), drawing from rng for the uniform
// mapping-instance selector (§5). Returns whether the read mapped; mapping
// success records coverage as a side effect on m.Graph.
func (m *Mapper) MapOne(read []byte, rng *rand.Rand) (bool, error) {
	m.Counters.recordTotal()

	if len(read) < m.K {
		m.Counters.recordUnmapped()
		return false, nil
	}

	seed := make([]byte, m.K)
	for i, c := range read[len(read)-m.K:] {
		seed[i] = upperBase(c)
	}
	cur, ok := m.Kmers.Lookup(string(seed))
	if !ok {
		m.Counters.recordUnmapped()
		return false, nil
	}
	states := append([]search.SearchState(nil), cur...)

	for i := len(read) - m.K - 1; i >= 0 && len(states) > 0; i-- {
		b, ok := baseMarkers[upperBase(read[i])]
		if !ok {
			states = nil
			break
		}
		var err error
		states, err = m.Engine.ProcessReadChar(states, b)
		if err != nil {
			return false, err
		}
	}
	if len(states) == 0 {
		m.Counters.recordUnmapped()
		return false, nil
	}

	var final []search.SearchState
	for _, s := range states {
		final = append(final, m.Engine.SplitEncapsulated(s)...)
	}
	final = m.Engine.ResolveUnknownAlleles(final)

	for _, s := range final {
		for _, l := range combinedLoci(s) {
			if l.Allele == prg.AlleleUnknown {
				return false, gramerr.New(gramerr.InternalInvariant, "",
					"ALLELE_UNKNOWN present in a SearchState at the mapping entry point")
			}
		}
	}

	m.selectAndRecord(final, rng)
	m.Counters.recordMapped()
	return true, nil
}

// selectAndRecord implements §5's uniform selector: invariant instances
// (no site ever crossed) each occupy one slot per genome position they
// cover, while every distinct site-path equivalence class occupies exactly
// one slot regardless of how many genome positions share that path. A draw
// landing on an invariant slot records no coverage.
func (m *Mapper) selectAndRecord(states []search.SearchState, rng *rand.Rand) {
	invariantCount := 0
	var classes []search.SearchState
	for _, s := range states {
		if len(s.Traversed) == 0 && len(s.Traversing) == 0 {
			invariantCount += s.Interval.Size()
		} else {
			classes = append(classes, s)
		}
	}
	total := invariantCount + len(classes)
	if total == 0 {
		return
	}
	draw := rng.Intn(total)
	if draw < invariantCount {
		return
	}
	chosen := classes[draw-invariantCount]
	for _, l := range combinedLoci(chosen) {
		m.Graph.RecordLocus(l)
	}
}

// MapBatch quasimaps reads in parallel (§5), bounded concurrency via
// traverse.Each, one independent rng per read derived from seed so the run
// is reproducible for a fixed seed and read order.
func (m *Mapper) MapBatch(reads [][]byte, seed int64) error {
	return traverse.Each(len(reads), func(i int) error {
		rng := rand.New(rand.NewSource(seed + int64(i)))
		_, err := m.MapOne(reads[i], rng)
		return err
	})
}
