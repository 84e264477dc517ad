package smolcert

import (
	"bytes"
	"fmt"

	"xdao.co/smolcert/wire"
)

const (
	// DefaultMaxSize is the default limit on the encoded certificate size.
	DefaultMaxSize = 64 << 10
	// DefaultMaxExtensions is the default limit on the number of extensions.
	DefaultMaxExtensions = 64
)

// ParseOptions controls limits and optional checks of ParseWithOptions.
// The zero value selects the defaults.
type ParseOptions struct {
	// MaxSize is the largest accepted input in bytes.
	MaxSize int
	// MaxExtensions is the largest accepted extension count.
	MaxExtensions int
	// StrictValidity rejects certificates whose not_before is after not_after.
	StrictValidity bool
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.MaxExtensions <= 0 {
		o.MaxExtensions = DefaultMaxExtensions
	}
	return o
}

// Parse decodes a certificate with the default options.
//
// Either a complete Certificate or an error is returned, never both. The
// input is copied once; buf is not retained and never modified.
func Parse(buf []byte) (*Certificate, error) {
	return ParseWithOptions(buf, ParseOptions{})
}

// ParseWithOptions decodes a certificate. Errors are *Error values with a
// Kind other than KindSignature.
func ParseWithOptions(buf []byte, opts ParseOptions) (*Certificate, error) {
	opts = opts.withDefaults()
	if len(buf) > opts.MaxSize {
		return nil, newError(KindAllocation, "SMOL-ALLOC-001", -1,
			fmt.Sprintf("smolcert: certificate is %d bytes, limit is %d", len(buf), opts.MaxSize))
	}
	c := &Certificate{raw: bytes.Clone(buf)}
	if err := c.decode(c.raw, opts); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

// decode fills c from src. Variable-length fields alias src.
func (c *Certificate) decode(src []byte, opts ParseOptions) error {
	cur := wire.NewCursor(src)

	n, err := cur.ReadArrayHeader()
	if err != nil {
		return fromWire(err, "certificate")
	}
	if n != fieldCount {
		return newError(KindSchema, "SMOL-SCHEMA-001", 0,
			fmt.Sprintf("smolcert: certificate must have %d fields, found %d", fieldCount, n))
	}

	if c.SerialNumber, err = cur.ReadUint(); err != nil {
		return fromWire(err, "serial_number")
	}

	if c.Issuer, err = readName(&cur, "issuer", "SMOL-SCHEMA-010"); err != nil {
		return err
	}

	offset := cur.Offset()
	if n, err = cur.ReadArrayHeader(); err != nil {
		return fromWire(err, "validity")
	}
	if n != validityFields {
		return newError(KindSchema, "SMOL-SCHEMA-001", offset,
			fmt.Sprintf("smolcert: validity must have %d fields, found %d", validityFields, n))
	}
	if c.Validity.NotBefore, err = cur.ReadUint(); err != nil {
		return fromWire(err, "not_before")
	}
	if c.Validity.NotAfter, err = cur.ReadUint(); err != nil {
		return fromWire(err, "not_after")
	}
	if opts.StrictValidity && c.Validity.NotBefore > c.Validity.NotAfter {
		return newError(KindSchema, "SMOL-SCHEMA-030", offset, "smolcert: not_before is after not_after")
	}

	if c.Subject, err = readName(&cur, "subject", "SMOL-SCHEMA-011"); err != nil {
		return err
	}

	offset = cur.Offset()
	pub, err := cur.ReadByteString()
	if err != nil {
		return fromWire(err, "public_key")
	}
	if len(pub) != PublicKeySize {
		return newError(KindSchema, "SMOL-SCHEMA-012", offset,
			fmt.Sprintf("smolcert: public_key must be %d bytes, found %d", PublicKeySize, len(pub)))
	}
	copy(c.PublicKey[:], pub)

	if c.Extensions, err = readExtensions(&cur, opts.MaxExtensions); err != nil {
		return err
	}

	c.signedEnd = cur.Offset()
	sig, err := cur.ReadByteString()
	if err != nil {
		return fromWire(err, "signature")
	}
	if len(sig) != SignatureSize {
		return newError(KindSchema, "SMOL-SCHEMA-013", c.signedEnd,
			fmt.Sprintf("smolcert: signature must be %d bytes, found %d", SignatureSize, len(sig)))
	}
	copy(c.Signature[:], sig)

	if cur.Remaining() > 0 {
		return newError(KindTrailingData, "SMOL-SCHEMA-020", cur.Offset(),
			fmt.Sprintf("smolcert: %d trailing bytes after certificate", cur.Remaining()))
	}
	return nil
}

func readName(cur *wire.Cursor, field, ruleID string) (string, error) {
	offset := cur.Offset()
	b, err := cur.ReadText()
	if err != nil {
		return "", fromWire(err, field)
	}
	if len(b) == 0 {
		return "", newError(KindSchema, ruleID, offset, "smolcert: "+field+" must not be empty")
	}
	return string(b), nil
}

func readExtensions(cur *wire.Cursor, limit int) (Extensions, error) {
	offset := cur.Offset()
	n, err := cur.ReadArrayHeader()
	if err != nil {
		return nil, fromWire(err, "extensions")
	}
	if n > limit {
		return nil, newError(KindAllocation, "SMOL-ALLOC-002", offset,
			fmt.Sprintf("smolcert: %d extensions, limit is %d", n, limit))
	}
	exts := make(Extensions, 0, n)
	for i := 0; i < n; i++ {
		offset = cur.Offset()
		arity, err := cur.ReadArrayHeader()
		if err != nil {
			return nil, fromWire(err, "extension")
		}
		if arity != extensionArity {
			return nil, newError(KindSchema, "SMOL-SCHEMA-014", offset,
				fmt.Sprintf("smolcert: extension must have %d fields, found %d", extensionArity, arity))
		}
		var ext Extension
		if ext.Tag, err = cur.ReadUint(); err != nil {
			return nil, fromWire(err, "extension tag")
		}
		if ext.Value, err = cur.ReadByteString(); err != nil {
			return nil, fromWire(err, "extension value")
		}
		exts = append(exts, ext)
	}
	return exts, nil
}
