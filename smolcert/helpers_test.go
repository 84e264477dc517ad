package smolcert

import (
	"encoding/hex"
	"testing"

	"github.com/cloudflare/circl/sign/ed25519"
)

// referenceCertHex is a self-signed certificate without extensions produced
// by an independent implementation of the format.
const referenceCertHex = "870c67636f6e6e637464821a5df02ef11a5df1807167636f6e6e637464" +
	"58209538eef65d1234a6373345131806f8006c4c6c81c8db581924189f8289dd7c43" +
	"80" +
	"5840d9de51673292b3ed69aa83ddd4f204e25c5ed25f7d43a033990e52339d088977d5" +
	"4c1b9d53314203b51df13878850687bf58e619b0f7a8fcd82957900cf78201"

const referencePublicKeyHex = "9538eef65d1234a6373345131806f8006c4c6c81c8db581924189f8289dd7c43"

// referenceSignedEnd is the offset of the signature item in the reference
// certificate.
const referenceSignedEnd = 64

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex: %v", err)
	}
	return b
}

func referenceCert(t *testing.T) []byte {
	t.Helper()
	return mustHex(t, referenceCertHex)
}

func mustKeypair(t *testing.T, seedByte byte) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey), priv
}

// signedCertBytes encodes and self-signs a certificate built from the
// template after applying mutate.
func signedCertBytes(t *testing.T, mutate func(c *Certificate)) ([]byte, ed25519.PublicKey) {
	t.Helper()
	pub, priv := mustKeypair(t, 0xa1)
	c := &Certificate{
		SerialNumber: 4242,
		Issuer:       "connctd root",
		Validity:     Validity{NotBefore: 1576021745, NotAfter: 1576108145},
		Subject:      "device/ab:cd",
		Extensions: Extensions{
			{Tag: 1, Value: []byte("key-usage")},
			{Tag: 300, Value: []byte{}},
		},
	}
	copy(c.PublicKey[:], pub)
	if mutate != nil {
		mutate(c)
	}
	msg, err := MarshalUnsigned(c)
	if err != nil {
		t.Fatalf("MarshalUnsigned: %v", err)
	}
	copy(c.Signature[:], ed25519.Sign(priv, msg))
	b, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return b, pub
}
