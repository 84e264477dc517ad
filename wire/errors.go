package wire

import (
	"errors"
	"strconv"
)

var (
	// ErrBufferUnderflow is returned when an item or a declared length runs
	// past the end of the input.
	ErrBufferUnderflow = errors.New("buffer underflow")
	// ErrUnsupportedEncoding is returned for major types and additional
	// information values outside the supported grammar.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	// ErrInvalidUTF8 is returned when a text string is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in text string")
	// ErrTooDeep is returned when arrays nest deeper than MaxDepth.
	ErrTooDeep = errors.New("arrays nested too deeply")
)

// SyntaxError reports malformed input together with its location.
type SyntaxError struct {
	Err error // one of the Err* values of this package

	// Offset is the position in the input where the failing item or read
	// begins.
	Offset int
}

func (e *SyntaxError) Unwrap() error { return e.Err }
func (e *SyntaxError) Error() string {
	return "wire: " + e.Err.Error() + " at offset " + strconv.Itoa(e.Offset)
}

// TypeError reports a well-formed item of an unexpected major type.
type TypeError struct {
	Want, Got MajorType
	Offset    int
}

func (e *TypeError) Error() string {
	return "wire: expected " + e.Want.String() + ", found " + e.Got.String() +
		" at offset " + strconv.Itoa(e.Offset)
}

func syntaxError(err error, offset int) error {
	return &SyntaxError{Err: err, Offset: offset}
}
