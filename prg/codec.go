package prg

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/iqbal-lab-org/gramtools-sub001/gramerr"
)

// Endianness selects the byte order used to persist a marker vector.
// Little is the default on both read and write.
type Endianness int

const (
	Little Endianness = iota
	Big
)

func (e Endianness) order() binary.ByteOrder {
	if e == Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ReadFrom decodes a PRG String from a stream of 32-bit unsigned integers
// in the given endianness. The writer of the file must use the same
// endianness.
func ReadFrom(r io.Reader, en Endianness) (*String, error) {
	br := bufio.NewReader(r)
	order := en.order()
	var markers []Marker
	buf := make([]byte, 4)
	for {
		_, err := io.ReadFull(br, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, gramerr.Wrap(errors.Wrap(err, "reading PRG string"), gramerr.IOError, "")
		}
		markers = append(markers, Marker(order.Uint32(buf)))
	}
	s, err := FromMarkers(markers)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WriteTo persists the marker vector as a stream of 32-bit unsigned
// integers in the given endianness.
func (s *String) WriteTo(w io.Writer, en Endianness) error {
	bw := bufio.NewWriter(w)
	order := en.order()
	buf := make([]byte, 4)
	for _, m := range s.markers {
		order.PutUint32(buf, uint32(m))
		if _, err := bw.Write(buf); err != nil {
			return gramerr.Wrap(errors.Wrap(err, "writing PRG string"), gramerr.IOError, "")
		}
	}
	return gramerr.Wrap(errors.Wrap(bw.Flush(), "flushing PRG string"), gramerr.IOError, "")
}
