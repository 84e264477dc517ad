package keys

import (
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"

	"xdao.co/smolcert/smolcert"
)

// GenerateKey returns a new Ed25519 key pair read from rand.
func GenerateKey(rand io.Reader) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand)
}

// NewKeyFromSeed returns the private key for a 32 byte seed.
func NewKeyFromSeed(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// PublicKey returns the public half of priv.
func PublicKey(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}

// SignCertificate signs c with priv, stores the signature in c and returns
// the final encoding. c.PublicKey is used as set by the caller.
func SignCertificate(c *smolcert.Certificate, priv ed25519.PrivateKey) ([]byte, error) {
	if c == nil {
		return nil, errors.New("missing certificate")
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	msg, err := smolcert.MarshalUnsigned(c)
	if err != nil {
		return nil, err
	}
	copy(c.Signature[:], ed25519.Sign(priv, msg))
	return smolcert.Marshal(c)
}

// SignSelfSigned sets c.PublicKey to the public half of priv and signs c.
func SignSelfSigned(c *smolcert.Certificate, priv ed25519.PrivateKey) ([]byte, error) {
	if c == nil {
		return nil, errors.New("missing certificate")
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	copy(c.PublicKey[:], PublicKey(priv))
	return SignCertificate(c, priv)
}
