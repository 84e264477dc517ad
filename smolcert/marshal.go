package smolcert

import (
	"xdao.co/smolcert/wire"
)

// Marshal returns the canonical encoding of c.
func Marshal(c *Certificate) ([]byte, error) {
	return encode(c, true)
}

// MarshalUnsigned returns the encoding of c with a null in place of the
// signature. This is the message a signer signs; the signature field of c is
// ignored.
func MarshalUnsigned(c *Certificate) ([]byte, error) {
	return encode(c, false)
}

func encode(c *Certificate, signed bool) ([]byte, error) {
	if c == nil {
		return nil, ErrReleased
	}
	if c.Issuer == "" {
		return nil, newError(KindSchema, "SMOL-SCHEMA-010", -1, "smolcert: issuer must not be empty")
	}
	if c.Subject == "" {
		return nil, newError(KindSchema, "SMOL-SCHEMA-011", -1, "smolcert: subject must not be empty")
	}

	size := 64 + len(c.Issuer) + len(c.Subject) + PublicKeySize + SignatureSize
	for _, ext := range c.Extensions {
		size += 12 + len(ext.Value)
	}
	e := wire.NewEncoder(make([]byte, 0, size))
	e.AppendArrayHeader(fieldCount)
	e.AppendUint(c.SerialNumber)
	e.AppendText(c.Issuer)
	e.AppendArrayHeader(validityFields)
	e.AppendUint(c.Validity.NotBefore)
	e.AppendUint(c.Validity.NotAfter)
	e.AppendText(c.Subject)
	e.AppendBytes(c.PublicKey[:])
	e.AppendArrayHeader(len(c.Extensions))
	for _, ext := range c.Extensions {
		e.AppendArrayHeader(extensionArity)
		e.AppendUint(ext.Tag)
		e.AppendBytes(ext.Value)
	}
	if signed {
		e.AppendBytes(c.Signature[:])
	} else {
		e.AppendNull()
	}
	b, err := e.Bytes()
	if err != nil {
		return nil, wrapError(KindUnsupportedEncoding, "SMOL-WIRE-003", -1, "smolcert: encode", err)
	}
	return b, nil
}
