package keys

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
)

// ParseSeedHex decodes a 32 byte seed from hex, with an optional 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	return parseHex(seedHex, ed25519.SeedSize, "seed")
}

// ParsePublicKeyHex decodes a raw 32 byte Ed25519 public key from hex.
func ParsePublicKeyHex(keyHex string) (ed25519.PublicKey, error) {
	b, err := parseHex(keyHex, ed25519.PublicKeySize, "public key")
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(b), nil
}

func parseHex(s string, size int, what string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s hex: %w", what, err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("%s must be %d bytes, got %d", what, size, len(data))
	}
	return data, nil
}
