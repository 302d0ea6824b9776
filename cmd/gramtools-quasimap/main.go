/*
gramtools-quasimap loads a gramtools-build output directory and quasimaps
one or more read files against it, emitting a per-locus coverage table and
a summary of mapping outcomes.
*/
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"

	"github.com/iqbal-lab-org/gramtools-sub001/covgraph"
	"github.com/iqbal-lab-org/gramtools-sub001/encoding/fastq"
	"github.com/iqbal-lab-org/gramtools-sub001/fmindex"
	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
	"github.com/iqbal-lab-org/gramtools-sub001/kmer"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
	"github.com/iqbal-lab-org/gramtools-sub001/quasimap"
	"github.com/iqbal-lab-org/gramtools-sub001/search"
)

var (
	gramDir   = flag.String("gram-dir", "", "Build output directory to quasimap against (required)")
	outPath   = flag.String("out", "", "Coverage TSV output path (default: stdout)")
	seed      = flag.Int64("seed", 1, "Seed for the uniform mapping-instance selector")
	batchSize = flag.Int("batch-size", quasimap.BatchSize, "Reads buffered per parallel mapping pass")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -gram-dir DIR [-out PATH] readfile [readfile...]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	shutdown := grail.Init()
	defer shutdown()
	ctx := vcontext.Background()

	if *gramDir == "" || flag.NArg() == 0 {
		log.Fatalf("-gram-dir and at least one read file are required")
	}

	m, err := loadMapper(*gramDir)
	if err != nil {
		log.Fatalf("%v", err)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("%v", gramerr.Wrap(err, gramerr.IOError, *outPath))
		}
		defer f.Close()
		out = f
	}

	for _, path := range flag.Args() {
		if err := ctx.Err(); err != nil {
			log.Fatalf("context cancelled: %v", err)
		}
		reads, err := readAll(path)
		if err != nil {
			log.Fatalf("%v", err)
		}
		for start := 0; start < len(reads); start += *batchSize {
			end := start + *batchSize
			if end > len(reads) {
				end = len(reads)
			}
			if err := m.MapBatch(reads[start:end], *seed+int64(start)); err != nil {
				log.Fatalf("%v", err)
			}
		}
		log.Printf("%s: %d reads quasimapped", path, len(reads))
	}

	snap := m.Counters.Snapshot()
	log.Printf("total=%d mapped=%d unmapped=%d", snap.TotalReads, snap.Mapped, snap.Unmapped)
	writeCoverage(out, m.Graph)
}

// loadMapper rebuilds the FM-index, masks, and coverage graph from the
// persisted `prg` artifact, and loads the kmer index from its four
// packed files (§4.H).
func loadMapper(dir string) (*quasimap.Mapper, error) {
	f, err := os.Open(filepath.Join(dir, "prg"))
	if err != nil {
		return nil, gramerr.Wrap(err, gramerr.IOError, "prg")
	}
	defer f.Close()
	ps, err := prg.ReadFrom(f, prg.Little)
	if err != nil {
		return nil, err
	}

	idx, err := fmindex.Build(ps.Markers())
	if err != nil {
		return nil, err
	}
	masks := fmindex.BuildPRGMasks(ps)
	eng := search.New(idx, masks)

	g, err := covgraph.Build(ps)
	if err != nil {
		return nil, err
	}

	files := &kmer.Files{}
	for name, dst := range map[string]*[]byte{
		"kmers":        &files.Kmers,
		"kmers_stats":  &files.Stats,
		"sa_intervals": &files.SAIntervals,
		"paths":        &files.Paths,
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, gramerr.Wrap(err, gramerr.IOError, name)
		}
		*dst = data
	}
	kidx, k, err := kmer.Load(files)
	if err != nil {
		return nil, err
	}

	return quasimap.NewMapper(eng, kidx, g, k), nil
}

// readAll loads every read's sequence from a FASTA or FASTQ file, plain or
// gzipped (by extension). A FASTQ file is recognised by its first byte
// ('@' vs '>').
func readAll(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gramerr.Wrap(err, gramerr.IOError, path)
	}
	defer f.Close()

	var r = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, gramerr.Wrap(err, gramerr.IOError, path)
		}
		defer gz.Close()
		r = bufio.NewReader(gz)
	}

	first, err := r.Peek(1)
	if err != nil {
		return nil, gramerr.Wrap(err, gramerr.IOError, path)
	}

	var reads [][]byte
	if first[0] == '@' {
		scan := fastq.NewScanner(r, fastq.Seq)
		var rec fastq.Read
		for scan.Scan(&rec) {
			reads = append(reads, []byte(rec.Seq))
		}
		if err := scan.Err(); err != nil {
			return nil, gramerr.Wrap(err, gramerr.IOError, path)
		}
		return reads, nil
	}

	var cur []byte
	flush := func() {
		if cur != nil {
			reads = append(reads, cur)
		}
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, ">") {
			flush()
			cur = nil
			continue
		}
		cur = append(cur, line...)
	}
	flush()
	if err := sc.Err(); err != nil {
		return nil, gramerr.Wrap(err, gramerr.IOError, path)
	}
	return reads, nil
}

func writeCoverage(w *os.File, g *covgraph.Graph) {
	type row struct {
		site   prg.Marker
		allele prg.AlleleID
		count  uint32
	}
	var rows []row
	for loc, c := range g.LocusCoverage {
		rows = append(rows, row{loc.Site, loc.Allele, *c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].site != rows[j].site {
			return rows[i].site < rows[j].site
		}
		return rows[i].allele < rows[j].allele
	})
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "site\tallele\tcoverage")
	for _, r := range rows {
		fmt.Fprintf(bw, "%d\t%d\t%d\n", r.site, r.allele, r.count)
	}
	bw.Flush()
}
