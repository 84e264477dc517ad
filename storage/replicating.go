package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/smolcert/cidutil"
)

// NamedCAS associates a CAS with a backend name used in reports.
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS writes every object to all backends and reads from the first
// backend that has it, in slice order.
//
// The first backend is the primary. A failed write to the primary fails the
// Put. Failed writes to the other backends fail the Put unless BestEffort is
// set, in which case they are only reported by PutAll.
type ReplicatingCAS struct {
	Backends   []NamedCAS
	BestEffort bool
}

var _ CAS = (*ReplicatingCAS)(nil)

// PutResult reports the outcome of a replicated write per backend.
type PutResult struct {
	CIDs   map[string]cid.Cid
	Errors map[string]error
}

// PutAll writes the same bytes to all backends and returns the CID computed
// from bytes together with the per-backend outcome. A backend returning a
// different CID is always an error (ErrCIDMismatch).
func (r ReplicatingCAS) PutAll(bytes []byte) (cid.Cid, PutResult, error) {
	res := PutResult{CIDs: map[string]cid.Cid{}, Errors: map[string]error{}}
	want, err := cidutil.CIDv1RawSHA256CID(bytes)
	if err != nil {
		return cid.Undef, res, err
	}
	if len(r.Backends) == 0 {
		return cid.Undef, res, fmt.Errorf("storage: ReplicatingCAS has no backends")
	}

	for i, b := range r.Backends {
		if b.CAS == nil {
			return cid.Undef, res, fmt.Errorf("storage: nil CAS for backend %q", b.Name)
		}
		got, err := b.CAS.Put(bytes)
		if err == nil && got != want {
			err = ErrCIDMismatch
		}
		if err != nil {
			res.Errors[b.Name] = err
			if i == 0 || !r.BestEffort || err == ErrCIDMismatch {
				return cid.Undef, res, fmt.Errorf("storage: backend %q: %w", b.Name, err)
			}
			continue
		}
		res.CIDs[b.Name] = got
	}
	return want, res, nil
}

func (r ReplicatingCAS) Put(bytes []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(bytes)
	return id, err
}

func (r ReplicatingCAS) Get(id cid.Cid) ([]byte, error) {
	for _, b := range r.Backends {
		if b.CAS == nil {
			continue
		}
		out, err := b.CAS.Get(id)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (r ReplicatingCAS) Has(id cid.Cid) bool {
	for _, b := range r.Backends {
		if b.CAS != nil && b.CAS.Has(id) {
			return true
		}
	}
	return false
}
