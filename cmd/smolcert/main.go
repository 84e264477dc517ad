package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/smolcert/cidutil"
	"xdao.co/smolcert/keys"
	"xdao.co/smolcert/smolcert"
	"xdao.co/smolcert/storage"
	"xdao.co/smolcert/storage/grpccas"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "inspect":
		return cmdInspect(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "issue":
		return cmdIssue(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "store":
		return cmdStore(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "smolcert: inspect, verify and issue smolcert certificates")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  smolcert inspect [--json] <file>")
	fmt.Fprintln(w, "  smolcert verify [--key <hex> | --issuer-cert <file>] [--at <time>] <file>")
	fmt.Fprintln(w, "  smolcert cid <file>")
	fmt.Fprintln(w, "  smolcert issue --seed-hex <64hex> --serial <n> --issuer <name> --subject <name> --not-before <time> --not-after <time> [--subject-key <hex>] [--ext tag=hex ...] --out <file>")
	fmt.Fprintln(w, "  smolcert key gen")
	fmt.Fprintln(w, "  smolcert key derive --root-seed-hex <64hex> --device <id>")
	fmt.Fprintln(w, "  smolcert key pub --seed-hex <64hex>")
	fmt.Fprintln(w, "  smolcert store put --target <host:port> <file>")
	fmt.Fprintln(w, "  smolcert store get --target <host:port> --cid <cid> [--out <file>]")
	fmt.Fprintln(w, "  smolcert store check --target <host:port> <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - <time> is unix seconds or RFC 3339")
	fmt.Fprintln(w, "  - verify without --key checks the certificate against its own public key")
	fmt.Fprintln(w, "  - issue without --subject-key writes a self-signed certificate")
}

// readCertificate reads and parses a certificate file. The caller releases
// the result.
func readCertificate(path string) (*smolcert.Certificate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return smolcert.Parse(b)
}

type inspectView struct {
	Serial     uint64          `json:"serial"`
	Issuer     string          `json:"issuer"`
	Subject    string          `json:"subject"`
	NotBefore  uint64          `json:"not_before"`
	NotAfter   uint64          `json:"not_after"`
	PublicKey  string          `json:"public_key"`
	Extensions []extensionView `json:"extensions"`
	Signature  string          `json:"signature"`
	CID        string          `json:"cid"`
}

type extensionView struct {
	Tag   uint64 `json:"tag"`
	Value string `json:"value"`
}

func cmdInspect(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(errOut)
	asJSON := fs.Bool("json", false, "Emit JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: smolcert inspect [--json] <file>")
		return 2
	}
	c, err := readCertificate(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid certificate: %v\n", err)
		return 1
	}
	defer c.Release()

	v := inspectView{
		Serial:     c.SerialNumber,
		Issuer:     c.Issuer,
		Subject:    c.Subject,
		NotBefore:  c.Validity.NotBefore,
		NotAfter:   c.Validity.NotAfter,
		PublicKey:  hex.EncodeToString(c.PublicKey[:]),
		Extensions: []extensionView{},
		Signature:  hex.EncodeToString(c.Signature[:]),
		CID:        cidutil.CIDv1RawSHA256(c.Raw()),
	}
	for _, e := range c.Extensions {
		v.Extensions = append(v.Extensions, extensionView{Tag: e.Tag, Value: hex.EncodeToString(e.Value)})
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(errOut, "encode: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(out, "serial:      %d\n", v.Serial)
	fmt.Fprintf(out, "issuer:      %s\n", v.Issuer)
	fmt.Fprintf(out, "subject:     %s\n", v.Subject)
	fmt.Fprintf(out, "not_before:  %d (%s)\n", v.NotBefore, c.Validity.NotBeforeTime().Format(time.RFC3339))
	fmt.Fprintf(out, "not_after:   %d (%s)\n", v.NotAfter, c.Validity.NotAfterTime().Format(time.RFC3339))
	fmt.Fprintf(out, "public_key:  %s\n", v.PublicKey)
	fmt.Fprintf(out, "extensions:  %d\n", len(v.Extensions))
	for _, e := range v.Extensions {
		fmt.Fprintf(out, "  %d: %s\n", e.Tag, e.Value)
	}
	fmt.Fprintf(out, "signature:   %s\n", v.Signature)
	fmt.Fprintf(out, "cid:         %s\n", v.CID)
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	keyHex := fs.String("key", "", "Issuer public key (hex)")
	issuerCert := fs.String("issuer-cert", "", "Issuer certificate whose public key verifies the signature")
	at := fs.String("at", "", "Also check the validity window at this time (unix seconds, RFC 3339 or 'now')")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || (*keyHex != "" && *issuerCert != "") {
		fmt.Fprintln(errOut, "usage: smolcert verify [--key <hex> | --issuer-cert <file>] [--at <time>] <file>")
		return 2
	}

	c, err := readCertificate(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid certificate: %v\n", err)
		return 1
	}
	defer c.Release()

	var pub []byte
	switch {
	case *keyHex != "":
		k, err := keys.ParsePublicKeyHex(*keyHex)
		if err != nil {
			fmt.Fprintf(errOut, "--key: %v\n", err)
			return 2
		}
		pub = k
	case *issuerCert != "":
		ic, err := readCertificate(*issuerCert)
		if err != nil {
			fmt.Fprintf(errOut, "--issuer-cert: %v\n", err)
			return 1
		}
		pub = append([]byte(nil), ic.PublicKey[:]...)
		ic.Release()
	default:
		pub = append([]byte(nil), c.PublicKey[:]...)
	}

	if err := c.Verify(pub); err != nil {
		fmt.Fprintf(errOut, "verification failed: %v\n", err)
		return 1
	}
	if *at != "" {
		t, err := parseTime(*at)
		if err != nil {
			fmt.Fprintf(errOut, "--at: %v\n", err)
			return 2
		}
		if err := c.Validity.Check(t); err != nil {
			fmt.Fprintf(errOut, "validity: %v\n", err)
			return 1
		}
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: smolcert cid <file>")
		return 2
	}
	c, err := readCertificate(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid certificate: %v\n", err)
		return 1
	}
	defer c.Release()

	_, _ = fmt.Fprintln(out, cidutil.CIDv1RawSHA256(c.Raw()))
	_, _ = fmt.Fprintln(out, cidutil.FingerprintHex(c.Raw()))
	return 0
}

type extFlags []smolcert.Extension

func (e *extFlags) String() string { return fmt.Sprint(len(*e)) }

func (e *extFlags) Set(s string) error {
	tagStr, valHex, ok := strings.Cut(s, "=")
	if !ok {
		return errors.New("expected tag=hex")
	}
	tag, err := strconv.ParseUint(tagStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tag: %w", err)
	}
	val, err := hex.DecodeString(valHex)
	if err != nil {
		return fmt.Errorf("invalid value hex: %w", err)
	}
	*e = append(*e, smolcert.Extension{Tag: tag, Value: val})
	return nil
}

func cmdIssue(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var exts extFlags
	seedHex := fs.String("seed-hex", "", "Signer Ed25519 seed (64 hex chars)")
	serial := fs.Uint64("serial", 0, "Serial number")
	issuer := fs.String("issuer", "", "Issuer name")
	subject := fs.String("subject", "", "Subject name")
	notBefore := fs.String("not-before", "", "Start of validity (unix seconds or RFC 3339)")
	notAfter := fs.String("not-after", "", "End of validity (unix seconds or RFC 3339)")
	subjectKey := fs.String("subject-key", "", "Subject public key (hex); default is the signer's key")
	outPath := fs.String("out", "", "Output file")
	fs.Var(&exts, "ext", "Extension tag=hex (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *seedHex == "" || *issuer == "" || *subject == "" || *notBefore == "" || *notAfter == "" || *outPath == "" {
		fmt.Fprintln(errOut, "usage: smolcert issue --seed-hex <64hex> --serial <n> --issuer <name> --subject <name> --not-before <time> --not-after <time> [--subject-key <hex>] [--ext tag=hex ...] --out <file>")
		return 2
	}

	seed, err := keys.ParseSeedHex(*seedHex)
	if err != nil {
		fmt.Fprintf(errOut, "--seed-hex: %v\n", err)
		return 2
	}
	priv, err := keys.NewKeyFromSeed(seed)
	if err != nil {
		fmt.Fprintf(errOut, "--seed-hex: %v\n", err)
		return 2
	}
	nb, err := parseTime(*notBefore)
	if err != nil {
		fmt.Fprintf(errOut, "--not-before: %v\n", err)
		return 2
	}
	na, err := parseTime(*notAfter)
	if err != nil {
		fmt.Fprintf(errOut, "--not-after: %v\n", err)
		return 2
	}
	if nb.Unix() < 0 || na.Unix() < 0 || na.Before(nb) {
		fmt.Fprintln(errOut, "validity window must be non-negative with not-before <= not-after")
		return 2
	}

	c := &smolcert.Certificate{
		SerialNumber: *serial,
		Issuer:       *issuer,
		Subject:      *subject,
		Validity:     smolcert.Validity{NotBefore: uint64(nb.Unix()), NotAfter: uint64(na.Unix())},
		Extensions:   smolcert.Extensions(exts),
	}

	var b []byte
	if *subjectKey != "" {
		pub, err := keys.ParsePublicKeyHex(*subjectKey)
		if err != nil {
			fmt.Fprintf(errOut, "--subject-key: %v\n", err)
			return 2
		}
		copy(c.PublicKey[:], pub)
		b, err = keys.SignCertificate(c, priv)
		if err != nil {
			fmt.Fprintf(errOut, "issue: %v\n", err)
			return 1
		}
	} else {
		b, err = keys.SignSelfSigned(c, priv)
		if err != nil {
			fmt.Fprintf(errOut, "issue: %v\n", err)
			return 1
		}
	}

	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		fmt.Fprintf(errOut, "write --out: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, cidutil.CIDv1RawSHA256(b))
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: smolcert key <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: gen, derive, pub")
		return 2
	}
	switch args[0] {
	case "gen":
		pub, priv, err := keys.GenerateKey(rand.Reader)
		if err != nil {
			fmt.Fprintf(errOut, "generate: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(out, "seed: %s\n", hex.EncodeToString(priv.Seed()))
		_, _ = fmt.Fprintf(out, "public_key: %s\n", hex.EncodeToString(pub))
		return 0
	case "derive":
		fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
		fs.SetOutput(errOut)
		rootHex := fs.String("root-seed-hex", "", "Root seed (64 hex chars)")
		device := fs.String("device", "", "Device identifier")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *rootHex == "" || *device == "" {
			fmt.Fprintln(errOut, "usage: smolcert key derive --root-seed-hex <64hex> --device <id>")
			return 2
		}
		root, err := keys.ParseSeedHex(*rootHex)
		if err != nil {
			fmt.Fprintf(errOut, "--root-seed-hex: %v\n", err)
			return 2
		}
		seed, err := keys.DeriveDeviceSeed(root, *device)
		if err != nil {
			fmt.Fprintf(errOut, "derive: %v\n", err)
			return 2
		}
		return printSeed(seed, out, errOut)
	case "pub":
		fs := flag.NewFlagSet("key pub", flag.ContinueOnError)
		fs.SetOutput(errOut)
		seedHex := fs.String("seed-hex", "", "Seed (64 hex chars)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		seed, err := keys.ParseSeedHex(*seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "--seed-hex: %v\n", err)
			return 2
		}
		return printSeed(seed, out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n", args[0])
		return 2
	}
}

func printSeed(seed []byte, out io.Writer, errOut io.Writer) int {
	priv, err := keys.NewKeyFromSeed(seed)
	if err != nil {
		fmt.Fprintf(errOut, "key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "seed: %s\n", hex.EncodeToString(seed))
	_, _ = fmt.Fprintf(out, "public_key: %s\n", hex.EncodeToString(keys.PublicKey(priv)))
	return 0
}

func cmdStore(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: smolcert store <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: put, get, check")
		return 2
	}
	sub := args[0]
	fs := flag.NewFlagSet("store "+sub, flag.ContinueOnError)
	fs.SetOutput(errOut)
	target := fs.String("target", "127.0.0.1:7777", "smolcertd address")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-call timeout")
	cidStr := fs.String("cid", "", "Certificate CID (get)")
	outPath := fs.String("out", "", "Output file (get; default stdout)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	client, err := grpccas.Dial(*target, grpccas.DialOptions{Timeout: *timeout})
	if err != nil {
		fmt.Fprintf(errOut, "dial: %v\n", err)
		return 1
	}
	defer client.Close()

	switch sub {
	case "put", "check":
		if fs.NArg() != 1 {
			fmt.Fprintf(errOut, "usage: smolcert store %s --target <host:port> <file>\n", sub)
			return 2
		}
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read: %v\n", err)
			return 1
		}
		var id cid.Cid
		if sub == "put" {
			id, err = client.Put(b)
		} else {
			id, err = client.Check(b)
		}
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", sub, err)
			return 1
		}
		_, _ = fmt.Fprintln(out, id.String())
		return 0
	case "get":
		id, err := cid.Decode(*cidStr)
		if err != nil {
			fmt.Fprintf(errOut, "--cid: %v\n", err)
			return 2
		}
		b, err := client.Get(id)
		if err != nil {
			if storage.IsNotFound(err) {
				fmt.Fprintf(errOut, "not found: %s\n", id)
				return 1
			}
			fmt.Fprintf(errOut, "get: %v\n", err)
			return 1
		}
		if *outPath == "" {
			_, _ = out.Write(b)
			return 0
		}
		if err := os.WriteFile(*outPath, b, 0o644); err != nil {
			fmt.Fprintf(errOut, "write --out: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(errOut, "unknown store subcommand: %s\n", sub)
		return 2
	}
}

// parseTime accepts unix seconds, RFC 3339 or "now".
func parseTime(s string) (time.Time, error) {
	if s == "now" {
		return time.Now().UTC(), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected unix seconds or RFC 3339, got %q", s)
	}
	return t, nil
}
