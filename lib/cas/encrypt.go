// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package cas

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the byte size of the master sealing key and of every
// derived per-object key.
const KeySize = 32

// sealedVersion is the version byte prepended to every sealed
// payload. It is included as additional authenticated data, so
// tampering with the version byte fails authentication.
const sealedVersion byte = 0x01

// sealedOverhead is the per-object byte overhead of sealing:
// 1 (version) + 24 (XChaCha20-Poly1305 nonce) + 16 (Poly1305 tag).
const sealedOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// hkdfInfoObject is the HKDF-SHA256 info string for per-object key
// derivation. Changing it invalidates all sealed objects.
var hkdfInfoObject = []byte("kgen.object.enc.v1")

// Sealer provides optional at-rest encryption for stored objects.
// Each object is sealed under a key derived from the master key and
// the object's content hash, so identical plaintext under the same
// master key still deduplicates (the object path is derived from the
// plaintext hash, not the ciphertext).
type Sealer struct {
	master [KeySize]byte
}

// NewSealer creates a Sealer from a 32-byte master key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("sealing key is %d bytes, want %d", len(key), KeySize)
	}
	sealer := &Sealer{}
	copy(sealer.master[:], key)
	return sealer, nil
}

// deriveObjectKey derives the per-object encryption key from the
// master key and the object's content hash via HKDF-SHA256.
func (s *Sealer) deriveObjectKey(hash Hash) ([]byte, error) {
	info := make([]byte, len(hkdfInfoObject)+len(hash))
	copy(info, hkdfInfoObject)
	copy(info[len(hkdfInfoObject):], hash[:])

	key := make([]byte, KeySize)
	reader := hkdf.New(sha256.New, s.master[:], nil, info)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("deriving object key: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext for the object identified by hash and
// returns the sealed blob:
//
//	[Version: 1 byte] [Nonce: 24 bytes] [Ciphertext+Tag: N+16 bytes]
//
// The version byte and the object hash are authenticated as AAD.
func (s *Sealer) Seal(plaintext []byte, hash Hash) ([]byte, error) {
	key, err := s.deriveObjectKey(hash)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("initializing AEAD: %w", err)
	}

	blob := make([]byte, 1+chacha20poly1305.NonceSizeX, len(plaintext)+sealedOverhead)
	blob[0] = sealedVersion
	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return aead.Seal(blob, nonce, plaintext, s.aad(hash)), nil
}

// Open decrypts a sealed blob for the object identified by hash. Any
// modification of the blob (version byte, nonce, ciphertext, tag)
// fails authentication.
func (s *Sealer) Open(blob []byte, hash Hash) ([]byte, error) {
	if len(blob) < sealedOverhead {
		return nil, fmt.Errorf("sealed blob is %d bytes, minimum is %d", len(blob), sealedOverhead)
	}
	if blob[0] != sealedVersion {
		return nil, fmt.Errorf("unsupported sealed blob version %d", blob[0])
	}

	key, err := s.deriveObjectKey(hash)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("initializing AEAD: %w", err)
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := blob[1+chacha20poly1305.NonceSizeX:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, s.aad(hash))
	if err != nil {
		return nil, fmt.Errorf("opening sealed object: %w", err)
	}
	return plaintext, nil
}

// aad builds the additional authenticated data for an object: the
// version byte followed by the content hash.
func (s *Sealer) aad(hash Hash) []byte {
	data := make([]byte, 1+len(hash))
	data[0] = sealedVersion
	copy(data[1:], hash[:])
	return data
}
