package smolcert

import (
	"errors"

	"xdao.co/smolcert/wire"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindBufferUnderflow     Kind = "BufferUnderflow"
	KindUnsupportedEncoding Kind = "UnsupportedEncoding"
	KindSchema              Kind = "SchemaViolation"
	KindTrailingData        Kind = "TrailingDataViolation"
	KindAllocation          Kind = "AllocationFailure"
	KindSignature           Kind = "SignatureInvalid"
	KindInvalidKey          Kind = "InvalidVerificationKey"
)

// Error is the library's structured error type.
//
// RuleID is a stable identifier (e.g. SMOL-WIRE-001, SMOL-SCHEMA-012) naming
// the violated rule. Offset is the input position the error refers to, or -1
// when it does not refer to a position.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Offset  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID string, offset int, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Offset: offset, Message: msg}
}

func wrapError(kind Kind, ruleID string, offset int, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, offset, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Offset: offset, Message: msg + ": " + cause.Error(), Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

// IsParseError reports whether err describes malformed certificate bytes, as
// opposed to a failed verification (KindSignature) or an unusable caller key
// (KindInvalidKey).
func IsParseError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind != KindSignature && e.Kind != KindInvalidKey
}

// fromWire maps an error of the wire package onto the taxonomy. what names
// the field that was being decoded.
func fromWire(err error, what string) error {
	var te *wire.TypeError
	if errors.As(err, &te) {
		return wrapError(KindSchema, "SMOL-SCHEMA-002", te.Offset, "smolcert: "+what, err)
	}
	offset := -1
	var se *wire.SyntaxError
	if errors.As(err, &se) {
		offset = se.Offset
	}
	switch {
	case errors.Is(err, wire.ErrBufferUnderflow):
		return wrapError(KindBufferUnderflow, "SMOL-WIRE-001", offset, "smolcert: "+what, err)
	case errors.Is(err, wire.ErrInvalidUTF8):
		return wrapError(KindUnsupportedEncoding, "SMOL-WIRE-003", offset, "smolcert: "+what, err)
	case errors.Is(err, wire.ErrTooDeep):
		return wrapError(KindUnsupportedEncoding, "SMOL-WIRE-004", offset, "smolcert: "+what, err)
	default:
		return wrapError(KindUnsupportedEncoding, "SMOL-WIRE-002", offset, "smolcert: "+what, err)
	}
}
