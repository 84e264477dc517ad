package keys

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/sha3"
)

const deriveContext = "smolcert-device-seed-v1"

// DeriveDeviceSeed deterministically derives a per-device Ed25519 seed from a
// root seed, so a fleet of devices can be provisioned from one secret.
func DeriveDeviceSeed(rootSeed []byte, deviceID string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckDeviceID(deviceID); err != nil {
		return nil, err
	}

	h := sha3.New256()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(deriveContext))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(deviceID))
	return h.Sum(nil), nil
}

// CheckDeviceID validates a device identifier: ASCII letters, digits, '-',
// '_', '.' and ':'.
func CheckDeviceID(id string) error {
	if id == "" {
		return errors.New("device id cannot be empty")
	}
	for _, char := range id {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') ||
			char == '-' || char == '_' || char == '.' || char == ':' {
			continue
		}
		return fmt.Errorf("invalid character %q in device id", char)
	}
	return nil
}
