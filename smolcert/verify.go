package smolcert

import (
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"

	"xdao.co/smolcert/wire"
)

// VerifySignature checks the signature of the certificate encoded in buf
// against publicKey, a raw 32 byte Ed25519 key. Key provenance is the
// caller's business: pass the certificate's own key for a self-signed
// certificate or the issuer's key otherwise.
//
// buf is only read. The signed message is assembled in a scratch buffer, so
// buf is byte-for-byte unchanged on return whether or not verification
// succeeds.
//
// Malformed input yields the same errors as Parse. A well-formed
// certificate with a bad signature yields an *Error of KindSignature; a key
// that is not 32 bytes yields KindInvalidKey. The default ParseOptions apply.
func VerifySignature(buf []byte, publicKey []byte) error {
	return VerifySignatureWithOptions(buf, publicKey, ParseOptions{})
}

// VerifySignatureWithOptions is VerifySignature with the decoding limits of
// ParseWithOptions.
func VerifySignatureWithOptions(buf []byte, publicKey []byte, opts ParseOptions) error {
	opts = opts.withDefaults()
	if len(buf) > opts.MaxSize {
		return newError(KindAllocation, "SMOL-ALLOC-001", -1,
			fmt.Sprintf("smolcert: certificate is %d bytes, limit is %d", len(buf), opts.MaxSize))
	}
	var c Certificate
	if err := c.decode(buf, opts); err != nil {
		return err
	}
	return verify(buf, c.signedEnd, &c.Signature, publicKey)
}

// Verify checks the signature of c against publicKey. c must come from Parse.
func (c *Certificate) Verify(publicKey []byte) error {
	if c == nil || c.raw == nil {
		return ErrReleased
	}
	return verify(c.raw, c.signedEnd, &c.Signature, publicKey)
}

// VerifySelfSigned checks the signature of c against its own public key.
func (c *Certificate) VerifySelfSigned() error {
	if c == nil || c.raw == nil {
		return ErrReleased
	}
	return c.Verify(c.PublicKey[:])
}

// SignedMessage returns the message covered by the signature: the bytes of
// Raw before the signature item followed by a null item. The result is a new
// slice.
func (c *Certificate) SignedMessage() ([]byte, error) {
	if c == nil || c.raw == nil {
		return nil, ErrReleased
	}
	return signedMessage(c.raw, c.signedEnd), nil
}

// SignedMessage parses buf and returns the message covered by its signature.
func SignedMessage(buf []byte) ([]byte, error) {
	c, err := Parse(buf)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	return c.SignedMessage()
}

func signedMessage(src []byte, end int) []byte {
	msg := make([]byte, end+1)
	copy(msg, src[:end])
	msg[end] = wire.Null
	return msg
}

func verify(src []byte, end int, sig *[SignatureSize]byte, publicKey []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return newError(KindInvalidKey, "SMOL-KEY-001", -1,
			fmt.Sprintf("smolcert: verification key must be %d bytes, got %d", ed25519.PublicKeySize, len(publicKey)))
	}
	msg := signedMessage(src, end)
	if !ed25519.Verify(ed25519.PublicKey(publicKey), msg, sig[:]) {
		return newError(KindSignature, "SMOL-SIG-001", -1, "smolcert: signature invalid")
	}
	return nil
}
