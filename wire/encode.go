package wire

import (
	"errors"
	"math"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
)

// Encoder appends items to a buffer. Arguments always use the shortest form,
// so the output of an Encoder is the canonical encoding of its items.
//
// The first failing Append call is remembered and returned by Bytes.
type Encoder struct {
	b   *cryptobyte.Builder
	err error
}

// NewEncoder returns an Encoder that appends to buf.
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{b: cryptobyte.NewBuilder(buf)}
}

func (e *Encoder) appendHeader(major MajorType, arg uint64) {
	m := uint8(major) << 5
	switch {
	case arg <= infoDirectMax:
		e.b.AddUint8(m | uint8(arg))
	case arg <= math.MaxUint8:
		e.b.AddUint8(m | infoUint8)
		e.b.AddUint8(uint8(arg))
	case arg <= math.MaxUint16:
		e.b.AddUint8(m | infoUint16)
		e.b.AddUint16(uint16(arg))
	case arg <= math.MaxUint32:
		e.b.AddUint8(m | infoUint32)
		e.b.AddUint32(uint32(arg))
	default:
		e.b.AddUint8(m | infoUint64)
		e.b.AddUint64(arg)
	}
}

// AppendUint appends an unsigned integer.
func (e *Encoder) AppendUint(v uint64) {
	e.appendHeader(MajorUint, v)
}

// AppendBytes appends a byte string.
func (e *Encoder) AppendBytes(p []byte) {
	e.appendHeader(MajorBytes, uint64(len(p)))
	e.b.AddBytes(p)
}

// AppendText appends a text string. s must be valid UTF-8.
func (e *Encoder) AppendText(s string) {
	if !utf8.ValidString(s) {
		e.fail(ErrInvalidUTF8)
		return
	}
	e.appendHeader(MajorText, uint64(len(s)))
	e.b.AddBytes([]byte(s))
}

// AppendArrayHeader appends the header of an array with n elements. The
// elements are appended by subsequent calls.
func (e *Encoder) AppendArrayHeader(n int) {
	if n < 0 {
		e.fail(errors.New("wire: negative array length"))
		return
	}
	e.appendHeader(MajorArray, uint64(n))
}

// AppendNull appends the null simple value.
func (e *Encoder) AppendNull() {
	e.b.AddUint8(Null)
}

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// Bytes returns the encoded items.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.b.Bytes()
}
