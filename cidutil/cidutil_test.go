package cidutil

import (
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
)

func TestCIDv1RawSHA256_Deterministic(t *testing.T) {
	a := CIDv1RawSHA256([]byte("certificate"))
	b := CIDv1RawSHA256([]byte("certificate"))
	if a == "" || a != b {
		t.Fatalf("expected stable non-empty CID, got %q and %q", a, b)
	}
	if !strings.HasPrefix(a, "bafkrei") {
		t.Fatalf("expected raw sha2-256 CIDv1 (bafkrei...), got %q", a)
	}
	if a == CIDv1RawSHA256([]byte("certificatf")) {
		t.Fatalf("different inputs produced the same CID")
	}

	id, err := cid.Decode(a)
	if err != nil {
		t.Fatalf("cid.Decode: %v", err)
	}
	if id.Prefix().Codec != cid.Raw || id.Version() != 1 {
		t.Fatalf("unexpected prefix %+v", id.Prefix())
	}
}

func TestFingerprint(t *testing.T) {
	// sha3-256 of the empty string.
	const empty = "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"
	if got := FingerprintHex(nil); got != empty {
		t.Fatalf("FingerprintHex(nil) = %s, want %s", got, empty)
	}
	if FingerprintHex([]byte{1}) == FingerprintHex([]byte{2}) {
		t.Fatalf("fingerprints collide")
	}
}
