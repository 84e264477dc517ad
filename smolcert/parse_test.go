package smolcert

import (
	"bytes"
	"testing"

	"xdao.co/smolcert/wire"
)

func TestParse_ReferenceVector(t *testing.T) {
	buf := referenceCert(t)
	orig := bytes.Clone(buf)

	c, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer c.Release()

	if c.SerialNumber != 12 {
		t.Fatalf("SerialNumber = %d, want 12", c.SerialNumber)
	}
	if c.Issuer != "connctd" {
		t.Fatalf("Issuer = %q, want connctd", c.Issuer)
	}
	if c.Subject != "connctd" {
		t.Fatalf("Subject = %q, want connctd", c.Subject)
	}
	if c.Validity.NotBefore != 1576021745 {
		t.Fatalf("NotBefore = %d, want 1576021745", c.Validity.NotBefore)
	}
	if c.Validity.NotAfter != 1576108145 {
		t.Fatalf("NotAfter = %d, want 1576108145", c.Validity.NotAfter)
	}
	if !bytes.Equal(c.PublicKey[:], mustHex(t, referencePublicKeyHex)) {
		t.Fatalf("PublicKey = %x", c.PublicKey)
	}
	if !bytes.Equal(c.Signature[:], buf[referenceSignedEnd+2:]) {
		t.Fatalf("Signature = %x", c.Signature)
	}
	if c.Extensions == nil || len(c.Extensions) != 0 {
		t.Fatalf("Extensions = %#v, want empty", c.Extensions)
	}
	if c.SignedSpanEnd() != referenceSignedEnd {
		t.Fatalf("SignedSpanEnd = %d, want %d", c.SignedSpanEnd(), referenceSignedEnd)
	}
	if !bytes.Equal(buf, orig) {
		t.Fatalf("Parse modified its input")
	}
}

func TestParse_DoesNotRetainInput(t *testing.T) {
	buf, _ := signedCertBytes(t, nil)
	c, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := bytes.Clone(c.Extensions[0].Value)
	for i := range buf {
		buf[i] = 0
	}
	if !bytes.Equal(c.Extensions[0].Value, want) {
		t.Fatalf("extension value aliases the caller's buffer")
	}
	if c.Issuer != "connctd root" {
		t.Fatalf("Issuer changed to %q", c.Issuer)
	}
}

func TestParse_Extensions(t *testing.T) {
	buf, _ := signedCertBytes(t, nil)
	c, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer c.Release()

	if len(c.Extensions) != 2 {
		t.Fatalf("len(Extensions) = %d, want 2", len(c.Extensions))
	}
	if c.Extensions[0].Tag != 1 || string(c.Extensions[0].Value) != "key-usage" {
		t.Fatalf("Extensions[0] = %+v", c.Extensions[0])
	}
	if c.Extensions[1].Tag != 300 || len(c.Extensions[1].Value) != 0 {
		t.Fatalf("Extensions[1] = %+v", c.Extensions[1])
	}
	v, ok := c.Extensions.Get(300)
	if !ok || len(v) != 0 {
		t.Fatalf("Get(300) = %x, %v", v, ok)
	}
	if _, ok := c.Extensions.Get(2); ok {
		t.Fatalf("Get(2) found a missing extension")
	}
}

func TestParse_TruncatedYieldsBufferUnderflow(t *testing.T) {
	bufs := map[string][]byte{"reference": referenceCert(t)}
	bufs["with extensions"], _ = signedCertBytes(t, nil)

	for name, buf := range bufs {
		for n := 0; n < len(buf); n++ {
			_, err := Parse(buf[:n])
			if !IsKind(err, KindBufferUnderflow) {
				t.Fatalf("%s truncated to %d bytes: got %v, want KindBufferUnderflow", name, n, err)
			}
			if RuleID(err) != "SMOL-WIRE-001" {
				t.Fatalf("%s truncated to %d bytes: RuleID = %q", name, n, RuleID(err))
			}
		}
	}
}

// encodeRaw builds a certificate-shaped item sequence with arbitrary field
// lengths, bypassing Marshal's fixed-size arrays.
func encodeRaw(t *testing.T, pub, sig []byte) []byte {
	t.Helper()
	e := wire.NewEncoder(nil)
	e.AppendArrayHeader(fieldCount)
	e.AppendUint(1)
	e.AppendText("issuer")
	e.AppendArrayHeader(2)
	e.AppendUint(10)
	e.AppendUint(20)
	e.AppendText("subject")
	e.AppendBytes(pub)
	e.AppendArrayHeader(0)
	e.AppendBytes(sig)
	b, err := e.Bytes()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func TestParse_FixedLengthFields(t *testing.T) {
	cases := []struct {
		name   string
		pub    int
		sig    int
		ruleID string
	}{
		{"short public key", 31, 64, "SMOL-SCHEMA-012"},
		{"long public key", 33, 64, "SMOL-SCHEMA-012"},
		{"empty public key", 0, 64, "SMOL-SCHEMA-012"},
		{"short signature", 32, 63, "SMOL-SCHEMA-013"},
		{"long signature", 32, 65, "SMOL-SCHEMA-013"},
		{"empty signature", 32, 0, "SMOL-SCHEMA-013"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := encodeRaw(t, make([]byte, tc.pub), make([]byte, tc.sig))
			_, err := Parse(buf)
			if !IsKind(err, KindSchema) {
				t.Fatalf("got %v, want KindSchema", err)
			}
			if RuleID(err) != tc.ruleID {
				t.Fatalf("RuleID = %q, want %q", RuleID(err), tc.ruleID)
			}
		})
	}

	if _, err := Parse(encodeRaw(t, make([]byte, 32), make([]byte, 64))); err != nil {
		t.Fatalf("well-sized fields: %v", err)
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	good, _ := signedCertBytes(t, nil)

	cases := []struct {
		name   string
		mutate func(b []byte) []byte
		kind   Kind
		ruleID string
	}{
		{
			name:   "arity 6",
			mutate: func(b []byte) []byte { b[0] = 0x86; return b },
			kind:   KindSchema, ruleID: "SMOL-SCHEMA-001",
		},
		{
			name:   "arity 8",
			mutate: func(b []byte) []byte { b[0] = 0x88; return append(b, 0x00) },
			kind:   KindSchema, ruleID: "SMOL-SCHEMA-001",
		},
		{
			name:   "top level not an array",
			mutate: func(b []byte) []byte { b[0] = 0x07; return b },
			kind:   KindSchema, ruleID: "SMOL-SCHEMA-002",
		},
		{
			name:   "serial is a map",
			mutate: func(b []byte) []byte { b[1] = 0xa0; return b },
			kind:   KindUnsupportedEncoding, ruleID: "SMOL-WIRE-002",
		},
		{
			name:   "trailing byte",
			mutate: func(b []byte) []byte { return append(b, 0x00) },
			kind:   KindTrailingData, ruleID: "SMOL-SCHEMA-020",
		},
		{
			name:   "trailing item",
			mutate: func(b []byte) []byte { return append(b, 0x80) },
			kind:   KindTrailingData, ruleID: "SMOL-SCHEMA-020",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := tc.mutate(bytes.Clone(good))
			c, err := Parse(buf)
			if c != nil {
				t.Fatalf("Parse returned a certificate alongside %v", err)
			}
			if !IsKind(err, tc.kind) {
				t.Fatalf("got %v, want %s", err, tc.kind)
			}
			if RuleID(err) != tc.ruleID {
				t.Fatalf("RuleID = %q, want %q", RuleID(err), tc.ruleID)
			}
			if !IsParseError(err) {
				t.Fatalf("IsParseError(%v) = false", err)
			}
		})
	}
}

func TestParse_ItemLevelViolations(t *testing.T) {
	encode := func(fn func(e *wire.Encoder)) []byte {
		e := wire.NewEncoder(nil)
		fn(e)
		b, err := e.Bytes()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return b
	}
	prefix := func(e *wire.Encoder) {
		e.AppendArrayHeader(fieldCount)
		e.AppendUint(1)
	}

	cases := []struct {
		name   string
		buf    []byte
		kind   Kind
		ruleID string
	}{
		{
			name:   "empty issuer",
			buf:    encode(func(e *wire.Encoder) { prefix(e); e.AppendText(""); e.AppendArrayHeader(2) }),
			kind:   KindSchema,
			ruleID: "SMOL-SCHEMA-010",
		},
		{
			name:   "issuer as bytes",
			buf:    encode(func(e *wire.Encoder) { prefix(e); e.AppendBytes([]byte("x")) }),
			kind:   KindSchema,
			ruleID: "SMOL-SCHEMA-002",
		},
		{
			name:   "issuer invalid UTF-8",
			buf:    append(encode(prefix), 0x62, 0xc3, 0x28),
			kind:   KindUnsupportedEncoding,
			ruleID: "SMOL-WIRE-003",
		},
		{
			name: "validity arity 3",
			buf: encode(func(e *wire.Encoder) {
				prefix(e)
				e.AppendText("i")
				e.AppendArrayHeader(3)
				e.AppendUint(1)
				e.AppendUint(2)
				e.AppendUint(3)
			}),
			kind:   KindSchema,
			ruleID: "SMOL-SCHEMA-001",
		},
		{
			name: "empty subject",
			buf: encode(func(e *wire.Encoder) {
				prefix(e)
				e.AppendText("i")
				e.AppendArrayHeader(2)
				e.AppendUint(1)
				e.AppendUint(2)
				e.AppendText("")
				e.AppendBytes(make([]byte, 32))
			}),
			kind:   KindSchema,
			ruleID: "SMOL-SCHEMA-011",
		},
		{
			name: "indefinite length subject",
			buf: append(encode(func(e *wire.Encoder) {
				prefix(e)
				e.AppendText("i")
				e.AppendArrayHeader(2)
				e.AppendUint(1)
				e.AppendUint(2)
			}), 0x7f, 0x61, 'a', 0xff),
			kind:   KindUnsupportedEncoding,
			ruleID: "SMOL-WIRE-002",
		},
		{
			name: "extension arity 3",
			buf: encode(func(e *wire.Encoder) {
				prefix(e)
				e.AppendText("i")
				e.AppendArrayHeader(2)
				e.AppendUint(1)
				e.AppendUint(2)
				e.AppendText("s")
				e.AppendBytes(make([]byte, 32))
				e.AppendArrayHeader(1)
				e.AppendArrayHeader(3)
				e.AppendUint(1)
				e.AppendBytes(nil)
				e.AppendUint(0)
				e.AppendBytes(make([]byte, 64))
			}),
			kind:   KindSchema,
			ruleID: "SMOL-SCHEMA-014",
		},
		{
			name: "extension value as text",
			buf: encode(func(e *wire.Encoder) {
				prefix(e)
				e.AppendText("i")
				e.AppendArrayHeader(2)
				e.AppendUint(1)
				e.AppendUint(2)
				e.AppendText("s")
				e.AppendBytes(make([]byte, 32))
				e.AppendArrayHeader(1)
				e.AppendArrayHeader(2)
				e.AppendUint(1)
				e.AppendText("v")
				e.AppendBytes(make([]byte, 64))
			}),
			kind:   KindSchema,
			ruleID: "SMOL-SCHEMA-002",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Padding keeps the top-level element count plausible; the
			// failure happens before it is reached.
			buf := append(bytes.Clone(tc.buf), make([]byte, 8)...)
			_, err := Parse(buf)
			if !IsKind(err, tc.kind) {
				t.Fatalf("got %v, want %s", err, tc.kind)
			}
			if RuleID(err) != tc.ruleID {
				t.Fatalf("RuleID = %q, want %q", RuleID(err), tc.ruleID)
			}
		})
	}
}

func TestParse_ErrorOffset(t *testing.T) {
	buf := encodeRaw(t, make([]byte, 31), make([]byte, 64))
	_, err := Parse(buf)
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	// [7, 1, "issuer", [10, 20], "subject", h'...']
	//  0  1  2          9          13
	const pubOffset = 1 + 1 + 7 + 3 + 8
	if e.Offset != pubOffset {
		t.Fatalf("Offset = %d, want %d", e.Offset, pubOffset)
	}
}

func TestParseWithOptions_Limits(t *testing.T) {
	buf, _ := signedCertBytes(t, nil)

	_, err := ParseWithOptions(buf, ParseOptions{MaxSize: len(buf) - 1})
	if !IsKind(err, KindAllocation) || RuleID(err) != "SMOL-ALLOC-001" {
		t.Fatalf("MaxSize: got %v", err)
	}
	if _, err := ParseWithOptions(buf, ParseOptions{MaxSize: len(buf)}); err != nil {
		t.Fatalf("MaxSize exact: %v", err)
	}

	_, err = ParseWithOptions(buf, ParseOptions{MaxExtensions: 1})
	if !IsKind(err, KindAllocation) || RuleID(err) != "SMOL-ALLOC-002" {
		t.Fatalf("MaxExtensions: got %v", err)
	}
	if _, err := ParseWithOptions(buf, ParseOptions{MaxExtensions: 2}); err != nil {
		t.Fatalf("MaxExtensions exact: %v", err)
	}
}

func TestParseWithOptions_StrictValidity(t *testing.T) {
	buf, _ := signedCertBytes(t, func(c *Certificate) {
		c.Validity = Validity{NotBefore: 200, NotAfter: 100}
	})

	c, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse (default options) rejected inverted validity: %v", err)
	}
	if err := c.Validity.Check(c.Validity.NotBeforeTime()); RuleID(err) != "SMOL-SCHEMA-030" {
		t.Fatalf("Validity.Check: got %v", err)
	}
	c.Release()

	_, err = ParseWithOptions(buf, ParseOptions{StrictValidity: true})
	if !IsKind(err, KindSchema) || RuleID(err) != "SMOL-SCHEMA-030" {
		t.Fatalf("StrictValidity: got %v", err)
	}
}

func TestRelease(t *testing.T) {
	buf, _ := signedCertBytes(t, nil)
	c, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	raw := c.Raw()
	ext := c.Extensions[0].Value
	issuer, subject := c.Issuer, c.Subject

	c.Release()
	if issuer != "connctd root" || subject != "device/ab:cd" {
		t.Fatalf("names read before Release changed: %q %q", issuer, subject)
	}
	for i, b := range raw {
		if b != 0 {
			t.Fatalf("raw byte %d not wiped", i)
		}
	}
	for i, b := range ext {
		if b != 0 {
			t.Fatalf("extension byte %d not wiped", i)
		}
	}
	if c.Issuer != "" || c.SerialNumber != 0 || c.Extensions != nil || c.Raw() != nil {
		t.Fatalf("fields not reset: %+v", c)
	}
	if err := c.VerifySelfSigned(); err != ErrReleased {
		t.Fatalf("VerifySelfSigned after Release: got %v", err)
	}

	c.Release()
	var nilCert *Certificate
	nilCert.Release()
}
