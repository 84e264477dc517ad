// Command vectorgen writes the smolcert conformance vectors under
// testdata/conformance/smolcert. Every vector is a mutation of the reference
// certificate, so the set can be regenerated without a signing key.
package main

import (
	"bytes"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const referenceHex = "870c67636f6e6e637464821a5df02ef11a5df1807167636f6e6e637464" +
	"58209538eef65d1234a6373345131806f8006c4c6c81c8db581924189f8289dd7c43" +
	"80" +
	"5840d9de51673292b3ed69aa83ddd4f204e25c5ed25f7d43a033990e52339d088977d5" +
	"4c1b9d53314203b51df13878850687bf58e619b0f7a8fcd82957900cf78201"

// valid marks a vector that parses and verifies under its own key.
const valid = "-"

type vector struct {
	Name   string
	Bytes  []byte
	RuleID string
}

func reference() []byte {
	b, err := hex.DecodeString(referenceHex)
	if err != nil {
		panic(err)
	}
	return b
}

func replaceOnce(b, old, new []byte) []byte {
	i := bytes.Index(b, old)
	if i < 0 {
		panic(fmt.Sprintf("pattern %x not found", old))
	}
	out := append([]byte{}, b[:i]...)
	out = append(out, new...)
	return append(out, b[i+len(old):]...)
}

func join(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

func vectors() []vector {
	ref := reference()
	pub := ref[31:63]

	badSig := bytes.Clone(ref)
	badSig[len(badSig)-1] ^= 0x01

	return []vector{
		{"reference", ref, valid},
		{"bad_signature", badSig, "SMOL-SIG-001"},
		{"truncated", ref[:len(ref)-1], "SMOL-WIRE-001"},
		{"trailing_byte", join(ref, []byte{0x00}), "SMOL-SCHEMA-020"},
		{"indefinite_array", join([]byte{0x9f}, ref[1:]), "SMOL-WIRE-002"},
		{"arity_six", join([]byte{0x86}, ref[1:]), "SMOL-SCHEMA-001"},
		{"text_serial", join([]byte{0x87, 0x61, 0x61}, ref[2:]), "SMOL-SCHEMA-002"},
		{"float_serial", join([]byte{0x87, 0xfa, 0, 0, 0, 0}, ref[2:]), "SMOL-WIRE-002"},
		{"empty_issuer", join([]byte{0x87, 0x0c, 0x60}, ref[10:]), "SMOL-SCHEMA-010"},
		{"short_public_key", replaceOnce(ref, join([]byte{0x58, 0x20}, pub), join([]byte{0x58, 0x1f}, pub[:31])), "SMOL-SCHEMA-012"},
		{"invalid_utf8_subject", replaceOnce(ref, []byte("\x67connctd\x58"), []byte("\x67conn\xfftd\x58")), "SMOL-WIRE-003"},
	}
}

// write stores one <name>.hex file per vector and a vectors.txt manifest of
// "<name> <rule id>" lines.
func write(dir string, vs []vector) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var manifest strings.Builder
	for _, v := range vs {
		path := filepath.Join(dir, v.Name+".hex")
		if err := os.WriteFile(path, []byte(hex.EncodeToString(v.Bytes)+"\n"), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(&manifest, "%s %s\n", v.Name, v.RuleID)
	}
	return os.WriteFile(filepath.Join(dir, "vectors.txt"), []byte(manifest.String()), 0o644)
}

func main() {
	dir := flag.String("out", filepath.Join("testdata", "conformance", "smolcert"), "Output directory")
	flag.Parse()

	vs := vectors()
	if err := write(*dir, vs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d vectors to %s\n", len(vs), *dir)
}
