// Package keys provides Ed25519 key helpers and certificate signing for
// smolcert.
//
// Signing is not needed to read or verify certificates; it is used to issue
// them (see cmd/smolcert) and to build test fixtures.
package keys
