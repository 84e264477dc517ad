package storage

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/smolcert/smolcert"
)

// CertificateStore stores smolcert certificates in a CAS.
//
// Put only accepts bytes that parse as a certificate; with RequireSelfSigned
// the certificate must also verify under its own public key. Get parses what
// it reads back, so a backend that returns something else is detected.
type CertificateStore struct {
	CAS CAS

	ParseOptions      smolcert.ParseOptions
	RequireSelfSigned bool
}

var _ CAS = (*CertificateStore)(nil)

// invalidCertificate wraps a smolcert error so that both
// errors.Is(err, ErrInvalidCertificate) and errors.As(err, *smolcert.Error)
// work.
type invalidCertificate struct{ cause error }

func (e *invalidCertificate) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidCertificate, e.cause)
}

func (e *invalidCertificate) Unwrap() []error {
	return []error{ErrInvalidCertificate, e.cause}
}

// Check validates certificate bytes the way Put does.
func (s *CertificateStore) Check(b []byte) error {
	c, err := smolcert.ParseWithOptions(b, s.ParseOptions)
	if err != nil {
		return &invalidCertificate{cause: err}
	}
	defer c.Release()
	if s.RequireSelfSigned {
		if err := c.VerifySelfSigned(); err != nil {
			return &invalidCertificate{cause: err}
		}
	}
	return nil
}

func (s *CertificateStore) Put(b []byte) (cid.Cid, error) {
	if s == nil || s.CAS == nil {
		return cid.Undef, errors.New("storage: CertificateStore has no CAS")
	}
	if err := s.Check(b); err != nil {
		return cid.Undef, err
	}
	return s.CAS.Put(b)
}

func (s *CertificateStore) Get(id cid.Cid) ([]byte, error) {
	if s == nil || s.CAS == nil {
		return nil, ErrNotFound
	}
	b, err := s.CAS.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.Check(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *CertificateStore) Has(id cid.Cid) bool {
	if s == nil || s.CAS == nil {
		return false
	}
	return s.CAS.Has(id)
}

// GetCertificate fetches and parses a certificate. The caller owns the
// result and should Release it.
func (s *CertificateStore) GetCertificate(id cid.Cid) (*smolcert.Certificate, error) {
	b, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	c, err := smolcert.ParseWithOptions(b, s.ParseOptions)
	if err != nil {
		return nil, &invalidCertificate{cause: err}
	}
	return c, nil
}
