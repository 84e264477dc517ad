// Package smolcert implements decoding and signature verification for
// smolcert, a compact binary certificate format for constrained devices.
//
// A certificate is a CBOR array of seven items:
//
//	[serial_number, issuer, [not_before, not_after], subject, public_key, extensions, signature]
//
// public_key is a 32 byte Ed25519 key and signature a 64 byte Ed25519
// signature. extensions is an array (possibly empty) of [tag, value] pairs.
// Only unsigned integers, byte strings, text strings and definite-length
// arrays may appear; see package [xdao.co/smolcert/wire].
//
// The signature covers every byte that precedes the signature item, followed
// by a CBOR null (0xf6) standing in for the signature. [SignedMessage] and
// [MarshalUnsigned] both produce that message.
package smolcert

import (
	"errors"
	"time"
)

const (
	// PublicKeySize is the length of the public_key field.
	PublicKeySize = 32
	// SignatureSize is the length of the signature field.
	SignatureSize = 64

	fieldCount     = 7
	validityFields = 2
	extensionArity = 2
)

var (
	// ErrNotYetValid is returned by Validity.Check before not_before.
	ErrNotYetValid = errors.New("smolcert: certificate not yet valid")
	// ErrExpired is returned by Validity.Check after not_after.
	ErrExpired = errors.New("smolcert: certificate expired")
	// ErrReleased is returned when a released Certificate is used.
	ErrReleased = errors.New("smolcert: certificate released")
)

// Certificate is a decoded smolcert.
//
// A Certificate returned by Parse owns a private copy of the encoding it was
// decoded from. Only Extension values point into that copy; Issuer and
// Subject are separate Go strings. Callers must not modify extension values.
// Release wipes the copy, and with it every extension value, then resets
// every field. Strings read from Issuer or Subject before Release stay valid.
type Certificate struct {
	SerialNumber uint64
	Issuer       string
	Validity     Validity
	Subject      string
	PublicKey    [PublicKeySize]byte
	Extensions   Extensions
	Signature    [SignatureSize]byte

	raw       []byte
	signedEnd int
}

// Validity is the validity window in seconds since the Unix epoch.
type Validity struct {
	NotBefore uint64
	NotAfter  uint64
}

// Extension is an opaque tagged value.
type Extension struct {
	Tag   uint64
	Value []byte
}

// Extensions is the ordered extension list of a certificate.
type Extensions []Extension

// Get returns the value of the first extension with the given tag.
func (e Extensions) Get(tag uint64) ([]byte, bool) {
	for _, ext := range e {
		if ext.Tag == tag {
			return ext.Value, true
		}
	}
	return nil, false
}

// Raw returns the encoding the certificate was parsed from. It is nil for
// certificates that were not produced by Parse, and after Release.
func (c *Certificate) Raw() []byte {
	if c == nil {
		return nil
	}
	return c.raw
}

// SignedSpanEnd returns the offset of the signature item in Raw. The bytes
// before it are the signed part of the certificate.
func (c *Certificate) SignedSpanEnd() int {
	if c == nil {
		return 0
	}
	return c.signedEnd
}

// Release wipes the owned encoding and resets all fields. It is safe to call
// more than once and on a nil Certificate.
func (c *Certificate) Release() {
	if c == nil {
		return
	}
	clear(c.raw)
	clear(c.Extensions)
	*c = Certificate{}
}

// Check reports whether at lies within the window. Bounds are inclusive.
func (v Validity) Check(at time.Time) error {
	if v.NotBefore > v.NotAfter {
		return newError(KindSchema, "SMOL-SCHEMA-030", -1, "smolcert: not_before is after not_after")
	}
	if at.Before(v.NotBeforeTime()) {
		return ErrNotYetValid
	}
	if at.After(v.NotAfterTime()) {
		return ErrExpired
	}
	return nil
}

// NotBeforeTime returns NotBefore as a UTC time.
func (v Validity) NotBeforeTime() time.Time { return unixTime(v.NotBefore) }

// NotAfterTime returns NotAfter as a UTC time.
func (v Validity) NotAfterTime() time.Time { return unixTime(v.NotAfter) }

// maxUnix is 9999-12-31T23:59:59Z. Larger values are clamped so that the
// conversion to time.Time cannot overflow.
const maxUnix = 253402300799

func unixTime(sec uint64) time.Time {
	if sec > maxUnix {
		sec = maxUnix
	}
	return time.Unix(int64(sec), 0).UTC()
}
