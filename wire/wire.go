// Package wire implements the closed subset of CBOR (RFC 8949) used by
// smolcert: unsigned integers, byte strings, UTF-8 text strings and
// definite-length arrays.
//
// Every item starts with a header byte. The upper three bits select the
// major type, the lower five bits (the additional information) carry either
// the argument itself (0..23) or announce a 1, 2, 4 or 8 byte big-endian
// argument that follows the header byte. Any other major type or additional
// information value is rejected with [ErrUnsupportedEncoding]. There is no
// support for floats, tags, maps, negative integers or indefinite lengths.
//
// The [Cursor] type reads items from an immutable buffer without copying. The
// [Encoder] type appends items using the shortest argument form.
package wire

import "strconv"

// MajorType is the three-bit type selector of an item header.
type MajorType uint8

const (
	MajorUint   MajorType = 0
	MajorBytes  MajorType = 2
	MajorText   MajorType = 3
	MajorArray  MajorType = 4
	majorSimple MajorType = 7
)

// Additional information values.
const (
	infoDirectMax = 23
	infoUint8     = 24
	infoUint16    = 25
	infoUint32    = 26
	infoUint64    = 27
)

// Null is the encoding of the CBOR null simple value. It is never accepted by
// [Cursor]; [Encoder.AppendNull] exists so that signers can produce the
// placeholder that stands in for the signature in the signed message.
const Null byte = byte(majorSimple)<<5 | 22

// MaxDepth bounds the array nesting accepted by [Cursor.SkipItem].
const MaxDepth = 16

func (m MajorType) String() string {
	switch m {
	case MajorUint:
		return "unsigned integer"
	case MajorBytes:
		return "byte string"
	case MajorText:
		return "text string"
	case MajorArray:
		return "array"
	default:
		return "major type " + strconv.Itoa(int(m))
	}
}

// Header is a decoded item header.
type Header struct {
	Major MajorType
	// Argument is the integer value for MajorUint, the byte length for
	// MajorBytes and MajorText, and the element count for MajorArray.
	Argument uint64
	// Offset is the position of the header byte in the input.
	Offset int
}
