// Package cidutil derives stable identifiers for certificate bytes.
package cidutil

import (
	"encoding/hex"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/sha3"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Fingerprint returns the sha3-256 digest of data. For a certificate this is
// taken over the full encoding, signature included.
func Fingerprint(data []byte) [32]byte {
	return sha3.Sum256(data)
}

// FingerprintHex returns Fingerprint as lowercase hex.
func FingerprintHex(data []byte) string {
	sum := Fingerprint(data)
	return hex.EncodeToString(sum[:])
}
