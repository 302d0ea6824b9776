package kmer

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
	"github.com/iqbal-lab-org/gramtools-sub001/prg"
	"github.com/iqbal-lab-org/gramtools-sub001/search"
)

// alleleShift keeps on-disk allele IDs non-negative: ALLELE_UNKNOWN (-1)
// becomes 0, FirstAllele (0) becomes 1, and so on (§4.H.4).
const alleleShift = -int32(prg.AlleleUnknown)

// Files bundles the four packed-integer artifacts of §4.H, already
// serialised to in-memory byte buffers so callers can choose how to persist
// them (plain files, an archive, whatever the build CLI wants).
type Files struct {
	Kmers       []byte
	Stats       []byte
	SAIntervals []byte
	Paths       []byte
}

// Dump packs idx's kmers, in the order given by sortedKmers, into the four
// files described in §4.H. sortedKmers gives the on-disk iteration order
// (callers typically pass AllKmers' or SitesOverlapping's output); kmers in
// it that idx has no entry for are skipped, and kmers of idx missing from it
// are not written.
func Dump(idx *Index, k int, sortedKmers []string) (*Files, error) {
	var kmersBuf, statsBuf, saBuf, pathsBuf bytes.Buffer

	if err := writeInt32(&kmersBuf, int32(k)); err != nil {
		return nil, gramerr.Wrap(err, gramerr.IOError, "kmers")
	}

	var bw bitWriter
	count := 0
	for _, km := range sortedKmers {
		states, ok := idx.Lookup(km)
		if !ok {
			continue
		}
		count++
		for i := 0; i < len(km); i++ {
			code, ok := baseCode(km[i])
			if !ok {
				return nil, gramerr.New(gramerr.InvalidPRGInput, km, "kmer contains a non-nucleotide byte")
			}
			bw.writeBits(code, 3)
		}

		if err := writeInt32(&statsBuf, int32(len(states))); err != nil {
			return nil, gramerr.Wrap(err, gramerr.IOError, "stats")
		}
		for _, s := range states {
			combined := len(s.Traversed) + len(s.Traversing)
			if err := writeInt32(&statsBuf, int32(combined)); err != nil {
				return nil, gramerr.Wrap(err, gramerr.IOError, "stats")
			}
			if err := writeInt32(&saBuf, int32(s.Interval.Lo)); err != nil {
				return nil, gramerr.Wrap(err, gramerr.IOError, "sa_intervals")
			}
			if err := writeInt32(&saBuf, int32(s.Interval.Hi)); err != nil {
				return nil, gramerr.Wrap(err, gramerr.IOError, "sa_intervals")
			}
			for _, loc := range s.Traversed {
				if err := writeLocus(&pathsBuf, loc); err != nil {
					return nil, err
				}
			}
			for _, loc := range s.Traversing {
				if err := writeLocus(&pathsBuf, loc); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := writeInt32(&kmersBuf, int32(count)); err != nil {
		return nil, gramerr.Wrap(err, gramerr.IOError, "kmers")
	}
	kmersBuf.Write(bw.bytes())

	return &Files{
		Kmers:       kmersBuf.Bytes(),
		Stats:       statsBuf.Bytes(),
		SAIntervals: saBuf.Bytes(),
		Paths:       pathsBuf.Bytes(),
	}, nil
}

// Load reconstructs an Index from Files, reading kmers/stats/sa_intervals/
// paths in lock-step exactly as §4.H.5 describes: a kmer whose stats entry
// is 0 is skipped (no entry recorded at all — absence already means
// "never matched", so there's nothing to gain from storing an empty list).
func Load(f *Files) (*Index, int, error) {
	kr := bytes.NewReader(f.Kmers)
	k32, err := readInt32(kr)
	if err != nil {
		return nil, 0, gramerr.Wrap(err, gramerr.IOError, "kmers")
	}
	k := int(k32)
	count32, err := readInt32(kr)
	if err != nil {
		return nil, 0, gramerr.Wrap(err, gramerr.IOError, "kmers")
	}
	count := int(count32)

	packed, err := io.ReadAll(kr)
	if err != nil {
		return nil, 0, gramerr.Wrap(err, gramerr.IOError, "kmers")
	}
	br := newBitReader(packed)

	sr := bytes.NewReader(f.Stats)
	saR := bytes.NewReader(f.SAIntervals)
	pathsR := bytes.NewReader(f.Paths)

	idx := NewIndex()
	for n := 0; n < count; n++ {
		buf := make([]byte, k)
		for i := 0; i < k; i++ {
			code, err := br.readBits(3)
			if err != nil {
				return nil, 0, gramerr.Wrap(err, gramerr.IOError, "kmers")
			}
			b, ok := codeBase(code)
			if !ok {
				return nil, 0, gramerr.New(gramerr.IOError, "kmers", "invalid 3-bit base code")
			}
			buf[i] = b
		}
		kmer := string(buf)

		numStates32, err := readInt32(sr)
		if err != nil {
			return nil, 0, gramerr.Wrap(err, gramerr.IOError, "stats")
		}
		numStates := int(numStates32)
		if numStates == 0 {
			continue
		}

		states := make([]search.SearchState, numStates)
		for s := 0; s < numStates; s++ {
			pathLen32, err := readInt32(sr)
			if err != nil {
				return nil, 0, gramerr.Wrap(err, gramerr.IOError, "stats")
			}
			lo, err := readInt32(saR)
			if err != nil {
				return nil, 0, gramerr.Wrap(err, gramerr.IOError, "sa_intervals")
			}
			hi, err := readInt32(saR)
			if err != nil {
				return nil, 0, gramerr.Wrap(err, gramerr.IOError, "sa_intervals")
			}
			loci := make([]prg.VariantLocus, pathLen32)
			for j := range loci {
				loc, err := readLocus(pathsR)
				if err != nil {
					return nil, 0, err
				}
				loci[j] = loc
			}
			states[s] = search.SearchState{
				Interval:  search.SAInterval{Lo: int(lo), Hi: int(hi)},
				Traversed: loci,
			}
		}
		idx.entries[kmer] = states
	}

	return idx, k, nil
}

func writeLocus(w io.Writer, loc prg.VariantLocus) error {
	if err := writeInt32(w, int32(loc.Site)); err != nil {
		return gramerr.Wrap(err, gramerr.IOError, "paths")
	}
	if err := writeInt32(w, int32(loc.Allele)+alleleShift); err != nil {
		return gramerr.Wrap(err, gramerr.IOError, "paths")
	}
	return nil
}

func readLocus(r io.Reader) (prg.VariantLocus, error) {
	site, err := readInt32(r)
	if err != nil {
		return prg.VariantLocus{}, gramerr.Wrap(err, gramerr.IOError, "paths")
	}
	allele, err := readInt32(r)
	if err != nil {
		return prg.VariantLocus{}, gramerr.Wrap(err, gramerr.IOError, "paths")
	}
	return prg.VariantLocus{Site: prg.Marker(site), Allele: prg.AlleleID(allele - alleleShift)}, nil
}

func writeInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func baseCode(b byte) (uint64, bool) {
	switch b {
	case 'A':
		return 0, true
	case 'C':
		return 1, true
	case 'G':
		return 2, true
	case 'T':
		return 3, true
	default:
		return 0, false
	}
}

func codeBase(code uint64) (byte, bool) {
	switch code {
	case 0:
		return 'A', true
	case 1:
		return 'C', true
	case 2:
		return 'G', true
	case 3:
		return 'T', true
	default:
		return 0, false
	}
}

// bitWriter packs fixed-width values MSB-first into a byte buffer, used for
// the kmers file's 3-bit-per-base encoding (§4.H.1).
type bitWriter struct {
	buf     []byte
	bitPos  uint
	current byte
}

func (bw *bitWriter) writeBits(v uint64, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		bit := byte((v >> uint(i)) & 1)
		bw.current |= bit << (7 - bw.bitPos)
		bw.bitPos++
		if bw.bitPos == 8 {
			bw.buf = append(bw.buf, bw.current)
			bw.current = 0
			bw.bitPos = 0
		}
	}
}

func (bw *bitWriter) bytes() []byte {
	if bw.bitPos > 0 {
		bw.buf = append(bw.buf, bw.current)
		bw.current = 0
		bw.bitPos = 0
	}
	return bw.buf
}

// bitReader is bitWriter's counterpart.
type bitReader struct {
	buf    []byte
	bytePos int
	bitPos  uint
}

func newBitReader(buf []byte) *bitReader { return &bitReader{buf: buf} }

func (br *bitReader) readBits(n uint) (uint64, error) {
	var v uint64
	for i := uint(0); i < n; i++ {
		if br.bytePos >= len(br.buf) {
			return 0, io.ErrUnexpectedEOF
		}
		bit := (br.buf[br.bytePos] >> (7 - br.bitPos)) & 1
		v = (v << 1) | uint64(bit)
		br.bitPos++
		if br.bitPos == 8 {
			br.bitPos = 0
			br.bytePos++
		}
	}
	return v, nil
}
