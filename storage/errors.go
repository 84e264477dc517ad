package storage

import "errors"

var (
	ErrNotFound           = errors.New("storage: not found")
	ErrInvalidCID         = errors.New("storage: invalid cid")
	ErrCIDMismatch        = errors.New("storage: cid mismatch")
	ErrImmutable          = errors.New("storage: immutable object mismatch")
	ErrInvalidCertificate = errors.New("storage: invalid certificate")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidCertificate reports whether err is a rejected certificate.
func IsInvalidCertificate(err error) bool { return errors.Is(err, ErrInvalidCertificate) }
