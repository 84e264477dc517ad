package testkit

import (
	"bytes"
	"strconv"
	"testing"

	"xdao.co/smolcert/keys"
	"xdao.co/smolcert/smolcert"
)

// Certificate returns a valid self-signed certificate. Different serials
// yield different bytes; the same serial always yields the same bytes.
func Certificate(t *testing.T, serial uint64) []byte {
	t.Helper()
	priv, err := keys.NewKeyFromSeed(bytes.Repeat([]byte{0x5a}, 32))
	if err != nil {
		t.Fatalf("NewKeyFromSeed: %v", err)
	}
	c := &smolcert.Certificate{
		SerialNumber: serial,
		Issuer:       "testkit",
		Subject:      "device-" + strconv.FormatUint(serial, 10),
		Validity:     smolcert.Validity{NotBefore: 1700000000, NotAfter: 1800000000},
		Extensions:   smolcert.Extensions{},
	}
	b, err := keys.SignSelfSigned(c, priv)
	if err != nil {
		t.Fatalf("SignSelfSigned: %v", err)
	}
	return b
}
