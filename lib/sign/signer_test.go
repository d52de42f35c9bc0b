// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package sign

import (
	"bytes"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/kgen-foundation/kgen/lib/attest"
	"github.com/kgen-foundation/kgen/lib/cas"
	"github.com/kgen-foundation/kgen/lib/clock"
)

func testRecord(t *testing.T) *attest.Record {
	t.Helper()
	builder := attest.NewBuilder(clock.Fixed(time.Unix(1700000000, 0)), "1.0.0-test")
	handle := builder.Begin(attest.CommandInfo{
		Command:          "generate",
		Args:             []string{"api-routes"},
		WorkingDirectory: "/work",
	})
	handle.RecordInput("template.tmpl", cas.Digest([]byte("template")), 8, time.Unix(1700000000, 0))
	handle.RecordOutput("routes.js", cas.Digest([]byte("output")), 6)
	return handle.Finish(0)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	_, private, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	record := testRecord(t)
	if err := SignRecord(record, private); err != nil {
		t.Fatalf("SignRecord failed: %v", err)
	}
	if record.Signature == nil || record.Signature.Algorithm != Algorithm {
		t.Fatalf("signature = %+v, want %s", record.Signature, Algorithm)
	}

	ok, err := VerifyRecord(record)
	if err != nil {
		t.Fatalf("VerifyRecord failed: %v", err)
	}
	if !ok {
		t.Fatal("freshly signed record does not verify")
	}
}

func TestSigningIsDeterministic(t *testing.T) {
	_, private, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	canonical := []byte("canonical record bytes")

	first, err := Sign(canonical, private)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Sign(canonical, private)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.SignatureData, second.SignatureData) {
		t.Fatal("same bytes under the same key produced different signatures")
	}
}

func TestVerifyRejectsBitFlips(t *testing.T) {
	_, private, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	canonical := []byte("bytes under signature")
	signature, err := Sign(canonical, private)
	if err != nil {
		t.Fatal(err)
	}

	// Flip one bit of the content.
	tamperedContent := bytes.Clone(canonical)
	tamperedContent[3] ^= 0x01
	if Verify(tamperedContent, signature) {
		t.Error("content bit flip not detected")
	}

	// Flip one bit of the signature.
	tamperedSignature := &attest.Signature{
		Algorithm:     signature.Algorithm,
		PublicKey:     signature.PublicKey,
		SignatureData: bytes.Clone(signature.SignatureData),
	}
	tamperedSignature.SignatureData[0] ^= 0x01
	if Verify(canonical, tamperedSignature) {
		t.Error("signature bit flip not detected")
	}

	// A different key does not verify.
	otherPublic, _, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	wrongKey := &attest.Signature{
		Algorithm:     signature.Algorithm,
		PublicKey:     otherPublic,
		SignatureData: signature.SignatureData,
	}
	if Verify(canonical, wrongKey) {
		t.Error("wrong public key verified")
	}
}

func TestVerifyRejectsMalformedSignatures(t *testing.T) {
	if Verify([]byte("x"), nil) {
		t.Error("nil signature verified")
	}
	if Verify([]byte("x"), &attest.Signature{Algorithm: "rsa"}) {
		t.Error("foreign algorithm verified")
	}
	if Verify([]byte("x"), &attest.Signature{Algorithm: Algorithm, PublicKey: []byte("short")}) {
		t.Error("truncated public key verified")
	}
}

func TestSignRejectsBadKey(t *testing.T) {
	if _, err := Sign([]byte("x"), ed25519.PrivateKey("not a key")); err == nil {
		t.Fatal("malformed private key accepted")
	}
}

func TestVerifyRecordWithoutSignature(t *testing.T) {
	record := testRecord(t)
	if _, err := VerifyRecord(record); err == nil {
		t.Fatal("unsigned record verified without error")
	}
}

func TestKeypairSaveLoadRoundTrip(t *testing.T) {
	public, private, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if err := SaveKeypair(dir, public, private); err != nil {
		t.Fatalf("SaveKeypair failed: %v", err)
	}

	loadedPublic, loadedPrivate, err := LoadKeypair(dir)
	if err != nil {
		t.Fatalf("LoadKeypair failed: %v", err)
	}
	if !public.Equal(loadedPublic) || !private.Equal(loadedPrivate) {
		t.Fatal("keypair did not round trip")
	}
}

func TestLoadOrGenerateKeypair(t *testing.T) {
	dir := t.TempDir()

	public, _, generated, err := LoadOrGenerateKeypair(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !generated {
		t.Fatal("first call did not generate")
	}

	again, _, generated, err := LoadOrGenerateKeypair(dir)
	if err != nil {
		t.Fatal(err)
	}
	if generated {
		t.Fatal("second call regenerated instead of loading")
	}
	if !public.Equal(again) {
		t.Fatal("second call loaded a different key")
	}
}
