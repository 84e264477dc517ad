// Package storage keeps certificate bytes in content-addressed stores.
//
// Objects are keyed by their CIDv1 (raw codec, sha2-256 multihash), so the
// same certificate has the same key in every backend and in IPFS. The CAS
// interface moves bytes; CertificateStore decides which bytes are accepted.
package storage

import "github.com/ipfs/go-cid"

// CAS stores immutable objects under the CID of their bytes.
//
// Put returns the CID of the stored bytes and succeeds again for bytes that
// are already present. Get returns exactly the bytes written, or ErrNotFound.
// Has never fails; backends that cannot answer report false.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
