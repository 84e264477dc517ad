package wire

import (
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
)

// Cursor is a bounds-checked reader over an immutable byte slice. Slices
// returned by Cursor alias the input; nothing is copied or allocated.
//
// The item-level methods (ReadHeader, ReadUint, ...) are atomic: when they
// fail the cursor stays where it was before the call.
type Cursor struct {
	buf []byte
	s   cryptobyte.String // unread suffix of buf
}

// NewCursor returns a Cursor positioned at the start of buf.
func NewCursor(buf []byte) Cursor {
	return Cursor{buf: buf, s: cryptobyte.String(buf)}
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.s) }

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int { return len(c.buf) - len(c.s) }

// ReadUint8 reads a single byte.
func (c *Cursor) ReadUint8() (byte, error) {
	var b uint8
	if !c.s.ReadUint8(&b) {
		return 0, syntaxError(ErrBufferUnderflow, c.Offset())
	}
	return b, nil
}

// ReadBytes reads the next n bytes. The result aliases the input.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > len(c.s) {
		return nil, syntaxError(ErrBufferUnderflow, c.Offset())
	}
	var out []byte
	c.s.ReadBytes(&out, n)
	return out, nil
}

// ReadHeader decodes the next item header.
func (c *Cursor) ReadHeader() (Header, error) {
	start := c.s
	h, err := c.readHeader()
	if err != nil {
		c.s = start
	}
	return h, err
}

func (c *Cursor) readHeader() (Header, error) {
	h := Header{Offset: c.Offset()}
	var ib uint8
	if !c.s.ReadUint8(&ib) {
		return h, syntaxError(ErrBufferUnderflow, h.Offset)
	}
	h.Major = MajorType(ib >> 5)
	switch h.Major {
	case MajorUint, MajorBytes, MajorText, MajorArray:
	default:
		return h, syntaxError(ErrUnsupportedEncoding, h.Offset)
	}

	ok := true
	switch info := ib & 0x1f; {
	case info <= infoDirectMax:
		h.Argument = uint64(info)
	case info == infoUint8:
		var v uint8
		ok = c.s.ReadUint8(&v)
		h.Argument = uint64(v)
	case info == infoUint16:
		var v uint16
		ok = c.s.ReadUint16(&v)
		h.Argument = uint64(v)
	case info == infoUint32:
		var v uint32
		ok = c.s.ReadUint32(&v)
		h.Argument = uint64(v)
	case info == infoUint64:
		ok = c.s.ReadUint64(&h.Argument)
	default:
		// 28..30 are reserved, 31 is indefinite length.
		return h, syntaxError(ErrUnsupportedEncoding, h.Offset)
	}
	if !ok {
		return h, syntaxError(ErrBufferUnderflow, h.Offset)
	}
	return h, nil
}

// expect reads a header and checks its major type.
func (c *Cursor) expect(want MajorType) (Header, error) {
	h, err := c.readHeader()
	if err != nil {
		return h, err
	}
	if h.Major != want {
		return h, &TypeError{Want: want, Got: h.Major, Offset: h.Offset}
	}
	return h, nil
}

// ReadUint decodes an unsigned integer item.
func (c *Cursor) ReadUint() (uint64, error) {
	start := c.s
	h, err := c.expect(MajorUint)
	if err != nil {
		c.s = start
		return 0, err
	}
	return h.Argument, nil
}

func (c *Cursor) readString(major MajorType) ([]byte, error) {
	start := c.s
	h, err := c.expect(major)
	if err != nil {
		c.s = start
		return nil, err
	}
	if h.Argument > uint64(len(c.s)) {
		c.s = start
		return nil, syntaxError(ErrBufferUnderflow, h.Offset)
	}
	var out []byte
	c.s.ReadBytes(&out, int(h.Argument))
	return out, nil
}

// ReadByteString decodes a byte string item. The result aliases the input.
func (c *Cursor) ReadByteString() ([]byte, error) {
	return c.readString(MajorBytes)
}

// ReadText decodes a text string item and returns its raw UTF-8 bytes. The
// result aliases the input.
func (c *Cursor) ReadText() ([]byte, error) {
	start := c.s
	b, err := c.readString(MajorText)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		offset := len(c.buf) - len(start)
		c.s = start
		return nil, syntaxError(ErrInvalidUTF8, offset)
	}
	return b, nil
}

// ReadArrayHeader decodes a definite-length array header and returns the
// element count. The elements follow and are read by the caller.
func (c *Cursor) ReadArrayHeader() (int, error) {
	start := c.s
	h, err := c.expect(MajorArray)
	if err != nil {
		c.s = start
		return 0, err
	}
	// Every element takes at least one byte.
	if h.Argument > uint64(len(c.s)) {
		c.s = start
		return 0, syntaxError(ErrBufferUnderflow, h.Offset)
	}
	return int(h.Argument), nil
}

// SkipItem consumes one complete item, including all elements of an array.
func (c *Cursor) SkipItem() error {
	start := c.s
	if err := c.skip(0); err != nil {
		c.s = start
		return err
	}
	return nil
}

func (c *Cursor) skip(depth int) error {
	h, err := c.readHeader()
	if err != nil {
		return err
	}
	switch h.Major {
	case MajorUint:
		return nil
	case MajorBytes, MajorText:
		if h.Argument > uint64(len(c.s)) {
			return syntaxError(ErrBufferUnderflow, h.Offset)
		}
		if h.Major == MajorText && !utf8.Valid(c.s[:h.Argument]) {
			return syntaxError(ErrInvalidUTF8, h.Offset)
		}
		c.s.Skip(int(h.Argument))
		return nil
	default: // MajorArray
		if depth >= MaxDepth {
			return syntaxError(ErrTooDeep, h.Offset)
		}
		if h.Argument > uint64(len(c.s)) {
			return syntaxError(ErrBufferUnderflow, h.Offset)
		}
		for i := uint64(0); i < h.Argument; i++ {
			if err := c.skip(depth + 1); err != nil {
				return err
			}
		}
		return nil
	}
}
