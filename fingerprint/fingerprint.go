// Package fingerprint computes the content-addressed hash key the
// snapshot-diff engine uses to recognize a row across two snapshots.
//
// A naive length-free concatenation of per-Cell encodings is injective
// only within a fixed schema, since a variable-length payload's bytes
// can run into the next Cell's tag with nothing to tell them apart.
// This package hardens against that: every Cell is tagged with its
// Kind before its payload, and every variable-length payload (strings,
// enums, set/vector element counts) is length-prefixed, so two
// distinct Cell slices never collide on encoding regardless of schema.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"math"

	"github.com/c360/inputcore/cell"
)

// Key is the opaque, fixed-size, comparable hash Fingerprint produces.
// Equality and Go map hashing over Key are both defined by byte
// equality of the underlying array.
type Key [sha256.Size]byte

// Fingerprint maps a slice of Cells to its Key. Identical Cell
// sequences always produce byte-identical Keys.
func Fingerprint(cells []cell.Cell) Key {
	h := sha256.New()
	for i := range cells {
		encodeCell(h, &cells[i])
	}
	var k Key
	sum := h.Sum(nil)
	copy(k[:], sum)
	return k
}

func encodeCell(h hash.Hash, c *cell.Cell) {
	writeByte(h, byte(c.Kind))

	switch c.Kind {
	case cell.KindBool:
		b := byte(0)
		if c.Bool {
			b = 1
		}
		writeByte(h, b)
	case cell.KindInt:
		writeUint64(h, uint64(c.Int))
	case cell.KindCount, cell.KindCounter, cell.KindPort:
		writeUint64(h, c.Count)
	case cell.KindDouble, cell.KindTime, cell.KindInterval:
		writeUint64(h, math.Float64bits(c.Double))
	case cell.KindString, cell.KindEnum:
		writeLengthPrefixed(h, []byte(c.Str))
	case cell.KindAddr:
		writeAddr(h, c.Addr)
	case cell.KindSubnet:
		writeByte(h, c.Subnet.Width)
		writeAddr(h, c.Subnet.Network)
	case cell.KindSet:
		writeByte(h, byte(c.InnerKind))
		writeUint64(h, uint64(len(c.Set)))
		for i := range c.Set {
			encodeCell(h, &c.Set[i])
		}
	case cell.KindVector:
		writeByte(h, byte(c.InnerKind))
		writeUint64(h, uint64(len(c.Vector)))
		for i := range c.Vector {
			encodeCell(h, &c.Vector[i])
		}
	}
}

func writeByte(h hash.Hash, b byte) {
	_, _ = h.Write([]byte{b})
}

func writeUint64(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func writeUint32(h hash.Hash, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func writeAddr(h hash.Hash, a cell.Addr) {
	for _, w := range a {
		writeUint32(h, w)
	}
}

func writeLengthPrefixed(h hash.Hash, b []byte) {
	writeUint64(h, uint64(len(b)))
	_, _ = h.Write(b)
}
