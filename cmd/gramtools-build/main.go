/*
gramtools-build turns a linearised PRG into the on-disk artifacts a later
gramtools-quasimap invocation needs: the marker vector itself, the kmer
index, and (if a reference FASTA is given) a check that the PRG's first
path matches it.

The FM-index, its masks, and the coverage graph are not separately
serialised: none of the succinct-structure libraries this repo pulls in
(rsdic) ship an on-disk codec for their rank/select structures, and this
repo's own arena-style graph has no stable node-numbering scheme to
serialise against. Both are cheap to rebuild from the persisted `prg`
file, which gramtools-quasimap does at load time.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/iqbal-lab-org/gramtools-sub001/covgraph"
	"github.com/iqbal-lab-org/gramtools-sub001/encoding/fasta"
	"github.com/iqbal-lab-org/gramtools-sub001/fmindex"
	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
	"github.com/iqbal-lab-org/gramtools-sub001/kmer"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
	"github.com/iqbal-lab-org/gramtools-sub001/search"
)

var (
	gramDir     = flag.String("gram-dir", "", "Output directory for build artifacts (required)")
	kmerSize    = flag.Int("kmer-size", 0, "Kmer size for the kmer index (required, > 0)")
	maxReadSize = flag.Int("max-read-size", 150, "Upper bound on read length; the kmer size may not exceed it")
	prgPath     = flag.String("prg", "", "Path to a linearised PRG text file (required; VCF+ref construction is out of scope)")
	refPath     = flag.String("ref", "", "Optional reference FASTA to check against the PRG's first path")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -gram-dir DIR -kmer-size K -prg PATH [-ref PATH]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	shutdown := grail.Init()
	defer shutdown()

	if *gramDir == "" || *prgPath == "" {
		log.Fatalf("-gram-dir and -prg are required")
	}
	if *kmerSize <= 0 || *kmerSize > *maxReadSize {
		log.Fatalf("%v", gramerr.New(gramerr.KmerSizeInvalid, *prgPath,
			fmt.Sprintf("kmer size %d invalid for max-read-size %d", *kmerSize, *maxReadSize)))
	}

	text, err := os.ReadFile(*prgPath)
	if err != nil {
		log.Fatalf("%v", gramerr.Wrap(err, gramerr.IOError, *prgPath))
	}
	ps, err := prg.ParseText(string(text))
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := os.MkdirAll(*gramDir, 0o755); err != nil {
		log.Fatalf("%v", gramerr.Wrap(err, gramerr.IOError, *gramDir))
	}

	if err := writePRG(ps, *gramDir); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("wrote prg (%d markers) to %s", ps.Len(), *gramDir)

	g, err := covgraph.Build(ps)
	if err != nil {
		log.Fatalf("%v", err)
	}
	g.Validate()

	if *refPath != "" {
		if err := checkReference(g, *refPath); err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("reference %s matches PRG first path", *refPath)
	}

	idx, err := fmindex.Build(ps.Markers())
	if err != nil {
		log.Fatalf("%v", err)
	}
	masks := fmindex.BuildPRGMasks(ps)
	eng := search.New(idx, masks)

	if err := buildKmerIndex(eng, *gramDir, *kmerSize); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("build complete: %s", *gramDir)
}

func writePRG(ps *prg.String, dir string) error {
	f, err := os.Create(filepath.Join(dir, "prg"))
	if err != nil {
		return gramerr.Wrap(err, gramerr.IOError, "prg")
	}
	defer f.Close()
	if err := ps.WriteTo(f, prg.Little); err != nil {
		return err
	}
	return gramerr.Wrap(f.Close(), gramerr.IOError, "prg")
}

func checkReference(g *covgraph.Graph, refPath string) error {
	f, err := os.Open(refPath)
	if err != nil {
		return gramerr.Wrap(err, gramerr.IOError, refPath)
	}
	defer f.Close()
	fa, err := fasta.New(f)
	if err != nil {
		return gramerr.Wrap(err, gramerr.IOError, refPath)
	}
	names := fa.SeqNames()
	if len(names) == 0 {
		return gramerr.New(gramerr.ReferenceMismatch, refPath, "reference FASTA contains no sequences")
	}
	length, err := fa.Len(names[0])
	if err != nil {
		return gramerr.Wrap(err, gramerr.IOError, refPath)
	}
	refSeq, err := fa.Get(names[0], 0, length)
	if err != nil {
		return gramerr.Wrap(err, gramerr.IOError, refPath)
	}
	if refSeq != g.FirstPath() {
		return gramerr.New(gramerr.ReferenceMismatch, refPath,
			"reference sequence does not match the PRG's first (reference-like) path")
	}
	return nil
}

func buildKmerIndex(eng *search.Engine, dir string, k int) error {
	sorted, err := kmer.AllKmers(k)
	if err != nil {
		return err
	}
	diffs := kmer.PrefixDiffs(sorted)
	idx, err := kmer.Build(eng, diffs)
	if err != nil {
		return err
	}
	files, err := kmer.Dump(idx, k, sorted)
	if err != nil {
		return err
	}
	for name, data := range map[string][]byte{
		"kmers":        files.Kmers,
		"kmers_stats":  files.Stats,
		"sa_intervals": files.SAIntervals,
		"paths":        files.Paths,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return gramerr.Wrap(err, gramerr.IOError, name)
		}
	}
	log.Printf("kmer index: %d distinct kmers of %d total", idx.Len(), len(sorted))
	return nil
}
